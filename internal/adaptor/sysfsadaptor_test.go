package adaptor

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sensord-project/sensord/internal/xerror"
)

type countingProcessor struct {
	calls atomic.Int64
}

func (p *countingProcessor) ProcessSample(pathID int, fd int) error {
	p.calls.Add(1)
	return nil
}

func writeTempFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("0\n"), 0o644))
	return path
}

// S3: IntervalMode with a 200ms period and two monitored paths invokes
// processSample roughly 5 times per second per path, +/- 1.
func TestSysfsAdaptorIntervalModeScenarioS3(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTempFile(t, dir, "in_accel_x")
	p2 := writeTempFile(t, dir, "in_accel_y")

	proc := &countingProcessor{}
	a := New("accel", IntervalMode, false, 200, proc, zap.NewNop().Sugar(), 0)
	a.AddPath(p1, 1)
	a.AddPath(p2, 2)

	require.NoError(t, a.StartAdaptor())
	time.Sleep(1100 * time.Millisecond)
	require.NoError(t, a.StopAdaptor())

	calls := proc.calls.Load()
	// ~5 intervals/sec * 2 paths * ~1.1s, tolerate scheduling jitter.
	require.InDelta(t, 10, calls, 4)
}

func TestSysfsAdaptorStartStopIsRefCounted(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTempFile(t, dir, "in_accel_x")

	proc := &countingProcessor{}
	a := New("accel", IntervalMode, false, 50, proc, zap.NewNop().Sugar(), 0)
	a.AddPath(p1, 1)

	require.NoError(t, a.StartAdaptor())
	require.NoError(t, a.StartAdaptor())
	require.True(t, a.IsRunning())

	require.NoError(t, a.StopAdaptor())
	require.True(t, a.IsRunning())

	require.NoError(t, a.StopAdaptor())
	require.False(t, a.IsRunning())
}

func TestSysfsAdaptorOpenFailureReturnsDeviceOpenError(t *testing.T) {
	proc := &countingProcessor{}
	a := New("missing", IntervalMode, false, 50, proc, zap.NewNop().Sugar(), 1)
	a.AddPath("/nonexistent/path/for/test", 1)

	err := a.StartAdaptor()
	require.Error(t, err)
	require.True(t, xerror.Is(err, xerror.DeviceOpen))
	require.False(t, a.IsRunning())
}

func TestSysfsAdaptorStandbyResumeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p1 := writeTempFile(t, dir, "in_accel_x")

	proc := &countingProcessor{}
	a := New("accel", IntervalMode, false, 50, proc, zap.NewNop().Sugar(), 0)
	a.AddPath(p1, 1)

	require.NoError(t, a.StartAdaptor())
	require.True(t, a.Standby())
	require.True(t, a.Standby())
	require.True(t, a.Resume())
	require.True(t, a.Resume())
	require.NoError(t, a.StopAdaptor())
}
