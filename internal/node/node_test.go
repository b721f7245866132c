package node

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// Property 2: requesting then removing distinct-id ranges in reverse order
// restores the default (first available) range.
func TestDataRangeRequestThenRemoveRestoresDefault(t *testing.T) {
	n := New("accel", nil, nil, nil, testLogger())
	ranges := []DataRange{{0, 2, 0.01}, {0, 8, 0.01}, {0, 16, 0.01}}
	for _, r := range ranges {
		n.AddAvailableDataRange(r)
	}

	ids := []int{1, 2, 3}
	for i, id := range ids {
		require.NoError(t, n.RequestDataRange(id, ranges[i]))
	}
	for i := len(ids) - 1; i >= 0; i-- {
		require.NoError(t, n.RemoveDataRangeRequest(ids[i]))
	}

	require.Equal(t, ranges[0], n.CurrentDataRange().Range)
	require.Equal(t, -1, n.CurrentDataRange().SessionID)
}

// Property 3: requesting then clearing standby override for the same
// session leaves the standby set empty.
func TestStandbyOverrideRequestRoundTrip(t *testing.T) {
	applied := false
	n := New("gyro", nil, nil, func(override bool) bool {
		applied = override
		return true
	}, testLogger())

	require.True(t, n.SetStandbyOverrideRequest(7, true))
	require.True(t, applied)
	require.True(t, n.StandbyOverride())

	require.True(t, n.SetStandbyOverrideRequest(7, false))
	require.False(t, applied)
	require.False(t, n.StandbyOverride())
}

// S2: two sessions request intervals 50 and 100; effective interval is the
// faster one. The faster session disconnects; the effective interval
// becomes the remaining one.
func TestIntervalArbitrationScenarioS2(t *testing.T) {
	var applied uint32
	n := New("accel", nil, func(ms uint32, sessionID int) bool {
		applied = ms
		return true
	}, nil, testLogger())

	require.NoError(t, n.RequestInterval(1, 50))
	require.NoError(t, n.RequestInterval(2, 100))
	require.Equal(t, uint32(50), n.CurrentInterval().IntervalMs)
	require.Equal(t, uint32(50), applied)

	require.NoError(t, n.RemoveIntervalRequest(1))
	require.Equal(t, uint32(100), n.CurrentInterval().IntervalMs)
	require.Equal(t, uint32(100), applied)
}

// S5: session A requests range (0,2,0.01), session B requests (0,8,0.01);
// head is A's by insertion order. A disconnects; head becomes B's;
// setDataRange is invoked exactly once for that transition.
func TestDataRangeArbitrationScenarioS5(t *testing.T) {
	calls := 0
	var lastApplied DataRange
	n := New("accel", func(r DataRange, sessionID int) bool {
		calls++
		lastApplied = r
		return true
	}, nil, nil, testLogger())

	rangeA := DataRange{0, 2, 0.01}
	rangeB := DataRange{0, 8, 0.01}
	n.AddAvailableDataRange(rangeA)
	n.AddAvailableDataRange(rangeB)

	require.NoError(t, n.RequestDataRange(1, rangeA))
	require.NoError(t, n.RequestDataRange(2, rangeB))
	require.Equal(t, rangeA, n.CurrentDataRange().Range)
	require.Equal(t, 1, calls)

	callsBefore := calls
	require.NoError(t, n.RemoveDataRangeRequest(1))
	require.Equal(t, rangeB, n.CurrentDataRange().Range)
	require.Equal(t, callsBefore+1, calls)
	require.Equal(t, rangeB, lastApplied)
}

// Unavailable ranges are silently ignored (spec.md §9 open question,
// resolved per the original source's observed behavior).
func TestRequestDataRangeIgnoresUnavailableRange(t *testing.T) {
	n := New("accel", nil, nil, nil, testLogger())
	n.AddAvailableDataRange(DataRange{0, 2, 0.01})

	require.NoError(t, n.RequestDataRange(1, DataRange{99, 100, 1}))
	require.Equal(t, -1, n.CurrentDataRange().SessionID)
}

// S6: standby cascade where one of two upstream sources fails; the net
// effect reverts both to false and the call reports failure.
func TestStandbyCascadeScenarioS6(t *testing.T) {
	u1Applied := true
	u2Applied := true

	u1 := New("u1", nil, nil, func(override bool) bool {
		u1Applied = override
		return true
	}, testLogger())
	u2 := New("u2", nil, nil, func(override bool) bool {
		u2Applied = override
		return false // u2 always refuses to enter standby override
	}, testLogger())

	n := New("n", nil, nil, nil, testLogger())
	n.AddStandbyOverrideSource(u1)
	n.AddStandbyOverrideSource(u2)

	ok := n.SetStandbyOverrideRequest(5, true)
	require.False(t, ok)
	require.False(t, u1Applied)
	require.False(t, u2Applied)
}

func TestRangeDelegatesToUpstreamSource(t *testing.T) {
	upstream := New("device", func(r DataRange, sessionID int) bool { return true }, nil, nil, testLogger())
	upstream.AddAvailableDataRange(DataRange{0, 4, 0.1})

	delegate := New("session-view", nil, nil, nil, testLogger())
	delegate.SetRangeSource(upstream)

	require.NoError(t, delegate.RequestDataRange(3, DataRange{0, 4, 0.1}))
	require.Equal(t, DataRange{0, 4, 0.1}, upstream.CurrentDataRange().Range)
	require.Equal(t, upstream.CurrentDataRange(), delegate.CurrentDataRange())
}

func TestAddAvailableDataRangeAfterRangeSourcePanics(t *testing.T) {
	upstream := New("device", nil, nil, nil, testLogger())
	delegate := New("session-view", nil, nil, nil, testLogger())
	delegate.SetRangeSource(upstream)

	require.Panics(t, func() {
		delegate.AddAvailableDataRange(DataRange{0, 1, 0.1})
	})
}
