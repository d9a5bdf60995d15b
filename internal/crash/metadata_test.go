package crash

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constAttr(name, value string) Attribute {
	return Attribute{Name: name, Read: func(context.Context) (string, error) { return value, nil }}
}

func TestCollect_VersionScenario(t *testing.T) {
	t.Parallel()

	host := StaticHost{Info: AppInfo{VersionName: "1.2", VersionCode: "7"}}
	md, err := NewCollector(WithAttributes()).Collect(context.Background(), host)
	require.NoError(t, err)

	want := Metadata{KeyVersionName: "1.2", KeyVersionCode: "7"}
	if diff := cmp.Diff(want, md); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_EmptyVersionNameIsNull(t *testing.T) {
	t.Parallel()

	host := StaticHost{Info: AppInfo{Name: "example.com/app", VersionCode: "3"}}
	md, err := NewCollector(WithAttributes()).Collect(context.Background(), host)
	require.NoError(t, err)

	want := Metadata{
		KeyPackageName: "example.com/app",
		KeyVersionName: "null",
		KeyVersionCode: "3",
	}
	if diff := cmp.Diff(want, md); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_AppInfoFailureOmitsIdentity(t *testing.T) {
	t.Parallel()

	host := StaticHost{InfoErr: ErrAppInfoUnavailable}
	c := NewCollector(WithAttributes(constAttr("GOOS", "linux")))

	md, err := c.Collect(context.Background(), host)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAppInfoUnavailable)

	want := Metadata{"GOOS": "linux"}
	if diff := cmp.Diff(want, md); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_NilHost(t *testing.T) {
	t.Parallel()

	md, err := NewCollector(WithAttributes()).Collect(context.Background(), nil)
	assert.ErrorIs(t, err, ErrAppInfoUnavailable)
	assert.Empty(t, md)
}

type panickingHost struct{}

func (panickingHost) AppInfo() (AppInfo, error)    { panic("package manager gone") }
func (panickingHost) StorageRoot() (string, error) { panic("no storage") }

func TestCollect_PanickingHost(t *testing.T) {
	t.Parallel()

	c := NewCollector(WithAttributes(constAttr("A", "1")))
	md, err := c.Collect(context.Background(), panickingHost{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package manager gone")
	assert.Equal(t, Metadata{"A": "1"}, md)
}

func TestCollect_SkipsFailingAttributes(t *testing.T) {
	t.Parallel()

	attrs := []Attribute{
		constAttr("GOOD", "ok"),
		{Name: "FAILS", Read: func(context.Context) (string, error) { return "", errors.New("denied") }},
		{Name: "PANICS", Read: func(context.Context) (string, error) { panic("reflection failed") }},
		{Name: "MISSING"},
		{Name: "SLOW", Read: func(ctx context.Context) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}},
		constAttr("LAST", "reached"),
	}
	c := NewCollector(WithAttributes(attrs...), WithAttributeTimeout(10*time.Millisecond))

	md, err := c.Collect(context.Background(), StaticHost{Info: AppInfo{VersionName: "1.0", VersionCode: "1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	for _, name := range []string{"FAILS", "PANICS", "MISSING", "SLOW"} {
		assert.Contains(t, err.Error(), "attribute "+name)
		assert.NotContains(t, md, name)
	}

	want := Metadata{
		KeyVersionName: "1.0",
		KeyVersionCode: "1",
		"GOOD":         "ok",
		"LAST":         "reached",
	}
	if diff := cmp.Diff(want, md); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}
}

func TestCollect_FreshMapPerCall(t *testing.T) {
	t.Parallel()

	c := NewCollector(WithAttributes(constAttr("A", "1")))
	host := StaticHost{Info: AppInfo{VersionName: "1", VersionCode: "1"}}

	first, err := c.Collect(context.Background(), host)
	require.NoError(t, err)
	first["A"] = "mutated"
	first["EXTRA"] = "x"

	second, err := c.Collect(context.Background(), host)
	require.NoError(t, err)
	assert.Equal(t, "1", second["A"])
	assert.NotContains(t, second, "EXTRA")
}

func TestCollect_Environment(t *testing.T) {
	t.Setenv("CRASHLOG_TEST_API_TOKEN", "s3cr3t")
	t.Setenv("CRASHLOG_TEST_REGION", "eu-west-1")

	c := NewCollector(WithAttributes(), WithEnvironment(true))
	md, err := c.Collect(context.Background(), StaticHost{Info: AppInfo{VersionName: "1", VersionCode: "1"}})
	require.NoError(t, err)

	assert.Equal(t, "[REDACTED]", md["env.CRASHLOG_TEST_API_TOKEN"])
	assert.Equal(t, "eu-west-1", md["env.CRASHLOG_TEST_REGION"])
}

func TestRedactEnvironment(t *testing.T) {
	t.Parallel()

	got := redactEnvironment([]string{
		"PATH=/usr/bin",
		"DB_PASSWORD=hunter2",
		"GITHUB_TOKEN=ghp_x",
		"aws_secret_access_key=abc",
		"EMPTY=",
		"=ignored",
		"malformed",
	})
	want := map[string]string{
		"PATH":                  "/usr/bin",
		"DB_PASSWORD":           "[REDACTED]",
		"GITHUB_TOKEN":          "[REDACTED]",
		"aws_secret_access_key": "[REDACTED]",
		"EMPTY":                 "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("redactEnvironment() mismatch (-want +got):\n%s", diff)
	}
}

func TestMetadata_Keys(t *testing.T) {
	t.Parallel()

	md := Metadata{"versionName": "1", "GOOS": "linux", "PID": "1"}
	assert.Equal(t, []string{"GOOS", "PID", "versionName"}, md.Keys())
}

func TestDefaultAttributes(t *testing.T) {
	t.Parallel()

	md, _ := NewCollector(WithAttributeTimeout(5*time.Second)).
		Collect(context.Background(), StaticHost{Info: AppInfo{VersionName: "1", VersionCode: "1"}})

	assert.Equal(t, runtime.GOOS, md["GOOS"])
	assert.Equal(t, runtime.GOARCH, md["GOARCH"])
	assert.Equal(t, runtime.Version(), md["GO_VERSION"])
	assert.Equal(t, strconv.Itoa(runtime.NumCPU()), md["NUM_CPU"])
	assert.Equal(t, strconv.Itoa(os.Getpid()), md["PID"])
	assert.Equal(t, SessionID(), md["SESSION_ID"])
	assert.NotEmpty(t, md["UPTIME"])
	assert.NotEmpty(t, md["HEAP_ALLOC"])

	names := make(map[string]bool)
	for _, a := range DefaultAttributes() {
		assert.False(t, names[a.Name], "duplicate attribute %s", a.Name)
		assert.NotNil(t, a.Read, "attribute %s", a.Name)
		names[a.Name] = true
	}
}

func TestBuildInfoHost(t *testing.T) {
	t.Parallel()

	h := BuildInfoHost{Root: "/data", VersionName: "2.0.0", VersionCode: "abc123"}
	info, err := h.AppInfo()
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", info.VersionName)
	assert.Equal(t, "abc123", info.VersionCode)

	root, err := h.StorageRoot()
	require.NoError(t, err)
	assert.Equal(t, "/data", root)
}

func TestStaticHost(t *testing.T) {
	t.Parallel()

	h := StaticHost{Root: "/tmp/app", Info: AppInfo{VersionName: "1"}}
	root, err := h.StorageRoot()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/app", root)

	_, err = StaticHost{InfoErr: ErrAppInfoUnavailable}.AppInfo()
	assert.ErrorIs(t, err, ErrAppInfoUnavailable)
}

func TestCollect_AbandonsUnresponsiveAttribute(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	attrs := []Attribute{
		{Name: "HUNG", Read: func(context.Context) (string, error) {
			<-release
			return "late", nil
		}},
		constAttr("LAST", "reached"),
	}
	c := NewCollector(WithAttributes(attrs...), WithAttributeTimeout(20*time.Millisecond))

	start := time.Now()
	md, err := c.Collect(context.Background(), StaticHost{Info: AppInfo{VersionName: "1", VersionCode: "1"}})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, elapsed, time.Second)
	assert.NotContains(t, md, "HUNG")
	assert.Equal(t, "reached", md["LAST"])
}
