package crash

import (
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
)

// Goroutine identifies the goroutine a fault was raised on.
type Goroutine struct {
	ID    uint64
	State string
}

// CurrentGoroutine describes the calling goroutine from the header line of
// its stack trace ("goroutine 7 [running]:"). Fields that cannot be parsed
// are left zero.
func CurrentGoroutine() Goroutine {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	header := strings.TrimPrefix(string(buf[:n]), "goroutine ")

	idStr, rest, _ := strings.Cut(header, " ")
	id, _ := strconv.ParseUint(idStr, 10, 64)

	var state string
	if open := strings.IndexByte(rest, '['); open >= 0 {
		if end := strings.IndexByte(rest[open:], ']'); end > 0 {
			state = rest[open+1 : open+end]
		}
	}
	return Goroutine{ID: id, State: state}
}

// Handler receives uncaught faults.
type Handler interface {
	OnFault(g Goroutine, f *Fault)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(g Goroutine, f *Fault)

// OnFault calls fn(g, f).
func (fn HandlerFunc) OnFault(g Goroutine, f *Fault) {
	fn(g, f)
}

// PanicHandler re-raises the original panic value, which is what the Go
// runtime does when nothing intercepts a panic.
var PanicHandler Handler = HandlerFunc(func(_ Goroutine, f *Fault) {
	if f != nil {
		panic(f.Value)
	}
})

type handlerSlot struct {
	h Handler
}

// defaultHandler is the process-wide handler of last resort.
var defaultHandler atomic.Pointer[handlerSlot]

// SetDefaultHandler installs h as the process-wide handler for faults caught
// by Recover and returns the handler it replaces. A nil h uninstalls.
func SetDefaultHandler(h Handler) Handler {
	var next *handlerSlot
	if h != nil {
		next = &handlerSlot{h: h}
	}
	prev := defaultHandler.Swap(next)
	if prev == nil {
		return nil
	}
	return prev.h
}

// DefaultHandler returns the installed process-wide handler, or nil.
func DefaultHandler() Handler {
	if slot := defaultHandler.Load(); slot != nil {
		return slot.h
	}
	return nil
}

// Recover must be deferred directly at the top of main and of every
// goroutine whose panics should be captured:
//
//	func main() {
//	    defer crash.Recover()
//	    ...
//	}
//
// It hands the recovered value to the default handler. With no handler
// installed the panic is raised again.
func Recover() {
	r := recover()
	if r == nil {
		return
	}
	dispatch(r)
}

func dispatch(r any) {
	h := DefaultHandler()
	if h == nil {
		panic(r)
	}
	h.OnFault(CurrentGoroutine(), NewFault(r, 1))
}

// Go runs fn on a new goroutine guarded by Recover.
func Go(fn func()) {
	go func() {
		defer Recover()
		fn()
	}()
}
