package session

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTarget struct {
	tornDown []int
}

func (f *fakeTarget) Teardown(sessionID int) {
	f.tornDown = append(f.tornDown, sessionID)
}

func TestRegistryTeardownReachesEveryTouchedTarget(t *testing.T) {
	r := New(zap.NewNop().Sugar())
	a := &fakeTarget{}
	b := &fakeTarget{}

	r.Touch(7, a)
	r.Touch(7, b)
	require.True(t, r.Active(7))

	r.Teardown(7)

	require.Equal(t, []int{7}, a.tornDown)
	require.Equal(t, []int{7}, b.tornDown)
	require.False(t, r.Active(7))
}

func TestRegistryTeardownOfUnknownSessionIsNoop(t *testing.T) {
	r := New(zap.NewNop().Sugar())
	require.NotPanics(t, func() { r.Teardown(42) })
}

func TestRegistryTouchIsIdempotentPerTarget(t *testing.T) {
	r := New(zap.NewNop().Sugar())
	a := &fakeTarget{}

	r.Touch(1, a)
	r.Touch(1, a)
	r.Teardown(1)

	require.Equal(t, []int{1}, a.tornDown)
}

func TestRegistryCountTracksDistinctSessions(t *testing.T) {
	r := New(zap.NewNop().Sugar())
	a := &fakeTarget{}

	r.Touch(1, a)
	r.Touch(2, a)
	require.Equal(t, 2, r.Count())

	r.Teardown(1)
	require.Equal(t, 1, r.Count())
}
