package crash

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

var (
	processStart = time.Now()

	// sessionID distinguishes reports written by different runs of the same
	// binary on the same machine.
	sessionID = uuid.NewString()
)

var errUnavailable = errors.New("not available on this platform")

// SessionID returns the identifier of this process run.
func SessionID() string {
	return sessionID
}

// DefaultAttributes returns the platform attributes read on every fault.
func DefaultAttributes() []Attribute {
	return []Attribute{
		// Runtime
		{Name: "GOOS", Read: constant(runtime.GOOS)},
		{Name: "GOARCH", Read: constant(runtime.GOARCH)},
		{Name: "GO_VERSION", Read: constant(runtime.Version())},
		{Name: "NUM_CPU", Read: constant(strconv.Itoa(runtime.NumCPU()))},
		{Name: "SESSION_ID", Read: constant(sessionID)},

		// Process
		{Name: "PID", Read: func(context.Context) (string, error) {
			return strconv.Itoa(os.Getpid()), nil
		}},
		{Name: "EXECUTABLE", Read: func(context.Context) (string, error) {
			return os.Executable()
		}},
		{Name: "UPTIME", Read: func(context.Context) (string, error) {
			return time.Since(processStart).Round(time.Millisecond).String(), nil
		}},
		{Name: "NUM_GOROUTINE", Read: func(context.Context) (string, error) {
			return strconv.Itoa(runtime.NumGoroutine()), nil
		}},
		{Name: "HEAP_ALLOC", Read: readHeapAlloc},
		{Name: "OPEN_FDS", Read: readOpenFDs},

		// Host
		{Name: "HOSTNAME", Read: func(context.Context) (string, error) {
			return os.Hostname()
		}},
		{Name: "PLATFORM", Read: platformField(0)},
		{Name: "PLATFORM_FAMILY", Read: platformField(1)},
		{Name: "PLATFORM_VERSION", Read: platformField(2)},
		{Name: "KERNEL_VERSION", Read: host.KernelVersionWithContext},
		{Name: "KERNEL_ARCH", Read: func(context.Context) (string, error) {
			return host.KernelArch()
		}},
		{Name: "HOST_ID", Read: host.HostIDWithContext},
		{Name: "VIRTUALIZATION", Read: readVirtualization},
		{Name: "CPU_MODEL", Read: readCPUModel},
		{Name: "MEM_TOTAL", Read: readMemTotal},

		// Hardware
		{Name: "PRODUCT_VENDOR", Read: readProduct(func(vendor, _ string) string { return vendor })},
		{Name: "PRODUCT_NAME", Read: readProduct(func(_, name string) string { return name })},
		{Name: "BIOS_VENDOR", Read: readBIOS(func(vendor, _ string) string { return vendor })},
		{Name: "BIOS_VERSION", Read: readBIOS(func(_, version string) string { return version })},
	}
}

func constant(v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		return v, nil
	}
}

func readHeapAlloc(context.Context) (string, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return humanize.IBytes(ms.HeapAlloc), nil
}

func readOpenFDs(context.Context) (string, error) {
	open, limit := CountFDs()
	if open == 0 {
		return "", errUnavailable
	}
	if limit > 0 {
		return strconv.Itoa(open) + "/" + strconv.Itoa(limit), nil
	}
	return strconv.Itoa(open), nil
}

func platformField(i int) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		platform, family, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			return "", err
		}
		return [3]string{platform, family, version}[i], nil
	}
}

func readVirtualization(ctx context.Context) (string, error) {
	system, role, err := host.VirtualizationWithContext(ctx)
	if err != nil {
		return "", err
	}
	if system == "" {
		return "none", nil
	}
	return system + "/" + role, nil
}

func readCPUModel(ctx context.Context) (string, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", errUnavailable
	}
	return strings.TrimSpace(infos[0].ModelName), nil
}

func readMemTotal(ctx context.Context) (string, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return "", err
	}
	return humanize.IBytes(vm.Total), nil
}

func readProduct(pick func(vendor, name string) string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		info, err := ghw.Product()
		if err != nil {
			return "", err
		}
		if info == nil {
			return "", errUnavailable
		}
		return pick(info.Vendor, info.Name), nil
	}
}

func readBIOS(pick func(vendor, version string) string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		info, err := ghw.BIOS()
		if err != nil {
			return "", err
		}
		if info == nil {
			return "", errUnavailable
		}
		return pick(info.Vendor, info.Version), nil
	}
}
