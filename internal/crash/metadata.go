package crash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Metadata keys for the application identity.
const (
	KeyPackageName = "packageName"
	KeyVersionName = "versionName"
	KeyVersionCode = "versionCode"
)

const defaultAttributeTimeout = 500 * time.Millisecond

// Metadata maps attribute names to values. Each collection builds a new one.
type Metadata map[string]string

// Keys returns the attribute names in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Attribute is a named environment attribute read at capture time.
type Attribute struct {
	Name string
	Read func(ctx context.Context) (string, error)
}

// Collector gathers Metadata. It holds no per-collection state and may be
// used from several goroutines.
type Collector struct {
	attrs      []Attribute
	timeout    time.Duration
	includeEnv bool
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithAttributes replaces the platform attribute list.
func WithAttributes(attrs ...Attribute) CollectorOption {
	return func(c *Collector) {
		c.attrs = attrs
	}
}

// WithAttributeTimeout bounds each attribute read.
func WithAttributeTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithEnvironment adds the redacted process environment as env.<NAME> keys.
func WithEnvironment(include bool) CollectorOption {
	return func(c *Collector) {
		c.includeEnv = include
	}
}

// NewCollector creates a collector reading DefaultAttributes.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		attrs:   DefaultAttributes(),
		timeout: defaultAttributeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect reads the application identity and every attribute. Attributes that
// fail are left out of the result and reported in the joined error; the
// returned Metadata is usable even when the error is non-nil.
func (c *Collector) Collect(ctx context.Context, host Host) (Metadata, error) {
	md := make(Metadata, len(c.attrs)+3)
	var errs []error

	if info, err := appInfo(host); err != nil {
		errs = append(errs, fmt.Errorf("application info: %w", err))
	} else {
		if info.Name != "" {
			md[KeyPackageName] = info.Name
		}
		name := info.VersionName
		if name == "" {
			name = "null"
		}
		md[KeyVersionName] = name
		md[KeyVersionCode] = info.VersionCode
	}

	for _, a := range c.attrs {
		v, err := c.read(ctx, a)
		if err != nil {
			errs = append(errs, fmt.Errorf("attribute %s: %w", a.Name, err))
			continue
		}
		md[a.Name] = v
	}

	if c.includeEnv {
		for k, v := range redactEnvironment(os.Environ()) {
			md["env."+k] = v
		}
	}

	return md, errors.Join(errs...)
}

func appInfo(host Host) (info AppInfo, err error) {
	if host == nil {
		return AppInfo{}, ErrAppInfoUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return host.AppInfo()
}

// read runs a.Read bounded by the collector timeout. An accessor that
// ignores its context is abandoned when the timeout expires; its result is
// discarded.
func (c *Collector) read(ctx context.Context, a Attribute) (string, error) {
	if a.Read == nil {
		return "", errors.New("no accessor")
	}

	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		value string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := a.Read(actx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-actx.Done():
		return "", actx.Err()
	}
}

var sensitiveEnvSubstrings = []string{
	"TOKEN", "KEY", "SECRET", "PASSWORD", "CREDENTIAL",
	"AUTH", "PRIVATE", "API_KEY", "APIKEY",
}

func redactEnvironment(environ []string) map[string]string {
	result := make(map[string]string, len(environ))
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || key == "" {
			continue
		}

		keyUpper := strings.ToUpper(key)
		for _, sensitive := range sensitiveEnvSubstrings {
			if strings.Contains(keyUpper, sensitive) {
				value = "[REDACTED]"
				break
			}
		}
		result[key] = value
	}
	return result
}
