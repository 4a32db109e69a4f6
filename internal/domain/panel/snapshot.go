package panel

// Snapshot is the per-cycle diff produced by a successful update: which
// observable facets changed since the previous cycle. It is immutable once
// produced; observers must treat it as read-only.
type Snapshot struct {
	// AlarmChanged indicates the alarm status changed this cycle.
	AlarmChanged bool
	// ChangedZoneIDs lists the zones whose state changed this cycle.
	ChangedZoneIDs []int
}

// Clone returns a copy of the snapshot to avoid leaking internal references.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	cloned := &Snapshot{
		AlarmChanged: s.AlarmChanged,
	}

	if s.ChangedZoneIDs != nil {
		cloned.ChangedZoneIDs = make([]int, len(s.ChangedZoneIDs))
		copy(cloned.ChangedZoneIDs, s.ChangedZoneIDs)
	}

	return cloned
}

// Empty reports whether the snapshot carries no changes.
func (s *Snapshot) Empty() bool {
	return s == nil || (!s.AlarmChanged && len(s.ChangedZoneIDs) == 0)
}
