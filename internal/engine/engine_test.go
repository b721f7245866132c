package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sensord-project/sensord/config"
	"github.com/sensord-project/sensord/internal/sample"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEngineEndToEndScalarChannel(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "in_accel_x_raw", "42\n")

	cfg := config.DefaultConfig()
	cfg.Adaptors = []config.AdaptorConfig{
		{
			Name:       "accel",
			Mode:       "interval",
			IntervalMs: 20,
			Paths:      []config.PathConfig{{Path: path, PathID: 0}},
		},
	}
	cfg.Channels = []config.ChannelConfig{
		{
			Name:           "accel-x",
			Adaptor:        "accel",
			PathID:         0,
			RingBufferSize: "4KB",
			Description:    "accelerometer X axis",
		},
	}

	eng, err := New(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.NoError(t, eng.Start(1, "accel-x"))
	defer eng.Stop(1, "accel-x")

	require.Eventually(t, func() bool {
		_, valid, err := eng.CurrentValue("accel-x")
		return err == nil && valid
	}, time.Second, 10*time.Millisecond)

	value, valid, err := eng.CurrentValue("accel-x")
	require.NoError(t, err)
	require.True(t, valid)
	require.Equal(t, uint32(42), value.Value)
}

func TestEngineUnknownChannelReturnsError(t *testing.T) {
	cfg := config.DefaultConfig()
	eng, err := New(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.Error(t, eng.Start(1, "missing"))
	_, _, err = eng.CurrentValue("missing")
	require.Error(t, err)
}

func TestEngineSessionTeardownStopsChannel(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "in_accel_x_raw", "7\n")

	cfg := config.DefaultConfig()
	cfg.Adaptors = []config.AdaptorConfig{
		{Name: "accel", Mode: "interval", IntervalMs: 20, Paths: []config.PathConfig{{Path: path, PathID: 0}}},
	}
	cfg.Channels = []config.ChannelConfig{
		{Name: "accel-x", Adaptor: "accel", PathID: 0, RingBufferSize: "4KB"},
	}

	eng, err := New(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.NoError(t, eng.Start(1, "accel-x"))
	c, err := eng.Channel("accel-x")
	require.NoError(t, err)

	eng.TeardownSession(1)
	require.False(t, eng.adaptors["accel"].IsRunning())

	require.NoError(t, eng.Start(2, "accel-x"))
	_ = c
	require.NoError(t, eng.Stop(2, "accel-x"))
}

func TestEnginePoseChannelInterpretsOrientation(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "in_accel_xyz_raw", "0,0,1200\n")

	cfg := config.DefaultConfig()
	cfg.Adaptors = []config.AdaptorConfig{
		{
			Name:       "accel3d",
			Mode:       "interval",
			IntervalMs: 20,
			Seek:       true,
			Paths:      []config.PathConfig{{Path: path, PathID: 0}},
		},
	}
	cfg.Channels = []config.ChannelConfig{
		{
			Name:                   "pose",
			Adaptor:                "accel3d",
			PathID:                 0,
			RingBufferSize:         "4KB",
			Kind:                   "pose",
			OrientationThresholdMg: 800,
		},
	}

	eng, err := New(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.NoError(t, eng.Start(1, "pose"))
	defer eng.Stop(1, "pose")

	require.Eventually(t, func() bool {
		_, valid, err := eng.CurrentPose("pose")
		return err == nil && valid
	}, time.Second, 10*time.Millisecond)

	value, valid, err := eng.CurrentPose("pose")
	require.NoError(t, err)
	require.True(t, valid)
	require.Equal(t, sample.OrientationFaceUp, value.Orientation)
}
