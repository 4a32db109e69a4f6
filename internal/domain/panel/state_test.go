package panel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStateFromStatus_Total verifies the mapping covers every remote status
// and rejects values outside the remote domain.
func TestStateFromStatus_Total(t *testing.T) {
	t.Parallel()

	expected := map[Status]State{
		StatusOff:       StateDisarmed,
		StatusAway:      StateArmedAway,
		StatusHome:      StateArmedHome,
		StatusNight:     StateArmedNight,
		StatusArming:    StateArming,
		StatusDisarming: StateDisarming,
	}

	for status, want := range expected {
		require.True(t, status.Valid())

		got, ok := StateFromStatus(status)
		require.True(t, ok)
		require.Equal(t, want, got)
	}

	_, ok := StateFromStatus(Status("panic"))
	require.False(t, ok)
	require.False(t, Status("panic").Valid())
}

// TestCanArm checks the opened/tripped zone precondition.
func TestCanArm(t *testing.T) {
	t.Parallel()

	require.True(t, CanArm(nil))
	require.True(t, CanArm([]Zone{{ID: 1, Name: "Front Door"}}))
	require.False(t, CanArm([]Zone{{ID: 1}, {ID: 2, Open: true}}))
	require.False(t, CanArm([]Zone{{ID: 3, Tripped: true}}))

	// Trouble alone does not block arming.
	require.True(t, CanArm([]Zone{{ID: 4, Trouble: true}}))
}

// TestSnapshotClone ensures cloned snapshots do not share the zone slice.
func TestSnapshotClone(t *testing.T) {
	t.Parallel()

	var nilSnapshot *Snapshot
	require.Nil(t, nilSnapshot.Clone())
	require.True(t, nilSnapshot.Empty())

	original := &Snapshot{
		AlarmChanged:   true,
		ChangedZoneIDs: []int{1, 3},
	}

	cloned := original.Clone()
	require.Equal(t, original, cloned)

	cloned.ChangedZoneIDs[0] = 42
	require.Equal(t, 1, original.ChangedZoneIDs[0])
	require.False(t, original.Empty())
}
