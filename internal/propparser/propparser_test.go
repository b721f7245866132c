package propparser

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// S4: getPropertyMap("accel;interval=50,range=8G,bogus") returns
// {interval: "50", range: "8G"} and emits one warning for "bogus".
func TestGetPropertyMapScenarioS4(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core).Sugar()

	got := GetPropertyMap("accel;interval=50,range=8G,bogus", log)

	require.Equal(t, map[string]string{"interval": "50", "range": "8G"}, got)
	require.Equal(t, 1, logs.Len())
	require.Contains(t, logs.All()[0].Message, "malformed")
}

// Property 5: getPropertyMap(concat(base, ";", encode(M))) == M for any
// well-formed M with unique keys.
func TestGetPropertyMapRoundTrip(t *testing.T) {
	m := map[string]string{"interval": "100", "range": "4G", "std": "on"}
	keys := []string{"interval", "range", "std"}

	encoded := BaseID("gyro") + string(TypeSeparator) + Encode(keys, m)
	got := GetPropertyMap(encoded, nil)

	require.Equal(t, m, got)
}

func TestGetPropertyMapNoSeparatorReturnsEmpty(t *testing.T) {
	require.Empty(t, GetPropertyMap("accel", nil))
}

func TestBaseID(t *testing.T) {
	require.Equal(t, "accel", BaseID("accel;interval=50"))
	require.Equal(t, "accel", BaseID("accel"))
}
