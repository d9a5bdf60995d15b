package crash

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// maxStackDepth bounds the number of frames captured per fault.
const maxStackDepth = 64

// Frame is a single resolved stack frame.
type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Fault is an unhandled fault captured by the pipeline.
//
// A Fault is built once by NewFault and is not modified afterwards. Causes are
// ordered from the immediate cause to the root cause.
type Fault struct {
	Message string   `json:"message"`
	Kind    string   `json:"kind"`
	Value   any      `json:"-"`
	Frames  []Frame  `json:"frames,omitempty"`
	Causes  []*Fault `json:"causes,omitempty"`
}

// NewFault captures a fault for a recovered panic value. skip is the number of
// stack frames to omit above the caller of NewFault. When the stack contains the
// runtime panic machinery, frames up to and including it are dropped so the
// first frame is the function that panicked.
func NewFault(value any, skip int) *Fault {
	if value == nil {
		return nil
	}

	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(skip+2, pcs)

	f := &Fault{
		Message: describe(value),
		Kind:    fmt.Sprintf("%T", value),
		Value:   value,
		Frames:  trimPanicFrames(resolveFrames(pcs[:n])),
	}
	if err, ok := value.(error); ok {
		f.Causes = causesOf(err)
	}
	return f
}

// Error implements the error interface so a Fault can travel as an error.
func (f *Fault) Error() string {
	return f.Message
}

// Depth returns the number of rendered fault blocks: the fault plus each cause.
func (f *Fault) Depth() int {
	if f == nil {
		return 0
	}
	return 1 + len(f.Causes)
}

func describe(value any) string {
	switch v := value.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// causesOf flattens the unwrap chain of err, depth first.
func causesOf(err error) []*Fault {
	var causes []*Fault
	var walk func(e error)
	walk = func(e error) {
		for _, inner := range unwrapAll(e) {
			causes = append(causes, causeFault(inner))
			walk(inner)
		}
	}
	walk(err)
	return causes
}

// unwrapAll returns the direct children of e. A stack wrapper is transparent:
// its children are those of the error it wraps.
func unwrapAll(e error) []error {
	if s, ok := e.(*stackError); ok {
		e = s.err
	}
	if u, ok := e.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, inner := range u.Unwrap() {
			if inner != nil {
				out = append(out, inner)
			}
		}
		return out
	}
	if inner := errors.Unwrap(e); inner != nil {
		return []error{inner}
	}
	return nil
}

func causeFault(err error) *Fault {
	c := &Fault{
		Message: err.Error(),
		Kind:    fmt.Sprintf("%T", err),
		Value:   err,
	}
	if s, ok := err.(*stackError); ok {
		c.Kind = fmt.Sprintf("%T", s.err)
	}
	if s, ok := err.(interface{ Callers() []uintptr }); ok {
		c.Frames = resolveFrames(s.Callers())
	}
	return c
}

func resolveFrames(pcs []uintptr) []Frame {
	if len(pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs)
	out := make([]Frame, 0, len(pcs))
	for {
		fr, more := frames.Next()
		if fr.Function != "" {
			out = append(out, Frame{Function: fr.Function, File: fr.File, Line: fr.Line})
		}
		if !more {
			break
		}
	}
	return out
}

func trimPanicFrames(frames []Frame) []Frame {
	start := -1
	for i, fr := range frames {
		if fr.Function == "runtime.gopanic" {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return frames
	}
	// runtime.panicIndex, runtime.sigpanic and friends sit between gopanic
	// and the faulting function.
	for start < len(frames) && strings.HasPrefix(frames[start].Function, "runtime.") {
		start++
	}
	return frames[start:]
}

// stackError attaches the call stack at construction time to an error.
type stackError struct {
	err error
	pcs []uintptr
}

// WithStack wraps err so that, when it appears in the cause chain of a fault,
// its report block carries the stack captured here.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(2, pcs)
	return &stackError{err: err, pcs: pcs[:n]}
}

func (e *stackError) Error() string      { return e.err.Error() }
func (e *stackError) Unwrap() error      { return e.err }
func (e *stackError) Callers() []uintptr { return e.pcs }
