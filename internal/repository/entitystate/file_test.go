package entitystate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestFileRepository_RoundTrip saves two records and loads them back.
func TestFileRepository_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "entities.json")
	repo := NewFileRepository(path)
	ctx := context.Background()

	// Empty file.
	_, err := repo.Load(ctx, "alarm_site_1")
	require.ErrorIs(t, err, ErrNotFound)

	first := &Record{
		State:      "armed_away",
		Attributes: map[string]any{"alarm_state": "away"},
		UpdatedAt:  time.Unix(1000, 0).UTC(),
	}
	require.NoError(t, repo.Save(ctx, "alarm_site_1", first))

	second := &Record{
		State:     "disarmed",
		UpdatedAt: time.Unix(2000, 0).UTC(),
	}
	require.NoError(t, repo.Save(ctx, "alarm_site_2", second))

	loaded, err := repo.Load(ctx, "alarm_site_1")
	require.NoError(t, err)
	require.Equal(t, first.State, loaded.State)
	require.Equal(t, first.UpdatedAt, loaded.UpdatedAt)

	// Saving one entity must not drop the other.
	loaded, err = repo.Load(ctx, "alarm_site_2")
	require.NoError(t, err)
	require.Equal(t, second.State, loaded.State)

	// Unknown entity.
	_, err = repo.Load(ctx, "alarm_site_3")
	require.ErrorIs(t, err, ErrNotFound)
}

// TestFileRepository_Overwrite ensures a second save replaces the record.
func TestFileRepository_Overwrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "entities.json")
	repo := NewFileRepository(path)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "alarm_site_1", &Record{State: "arming"}))
	require.NoError(t, repo.Save(ctx, "alarm_site_1", &Record{State: "armed_home"}))

	loaded, err := repo.Load(ctx, "alarm_site_1")
	require.NoError(t, err)
	require.Equal(t, "armed_home", loaded.State)
}
