package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/lakeshift/internal/sequencer"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "plans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SaveAndGet(t *testing.T) {
	store := openStore(t)
	plan := Plan{
		Root: "/workspace/etl",
		Steps: []sequencer.MigrationStep{
			{StepID: 1, ObjectType: sequencer.ObjectJob, ObjectID: "1234", ObjectName: "nightly", StepNumber: 1},
			{StepID: 2, ObjectType: sequencer.ObjectTask, ObjectID: "1234/ingest", StepNumber: 2, RequiredStepIDs: []int{1}},
		},
	}

	id, err := store.Save(plan)
	require.NoError(t, err)
	assert.Equal(t, "00000001", id)

	loaded, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, loaded.ID)
	assert.Equal(t, "/workspace/etl", loaded.Root)
	assert.False(t, loaded.CreatedAt.IsZero())
	assert.Equal(t, plan.Steps, loaded.Steps)
}

func TestStore_GetUnknownPlan(t *testing.T) {
	store := openStore(t)

	_, err := store.Get("00000042")

	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestStore_ListOldestFirst(t *testing.T) {
	store := openStore(t)
	for _, root := range []string{"/a", "/b", "/c"} {
		_, err := store.Save(Plan{Root: root, Steps: []sequencer.MigrationStep{{StepID: 1}}})
		require.NoError(t, err)
	}

	summaries, err := store.List()

	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "/a", summaries[0].Root)
	assert.Equal(t, "/c", summaries[2].Root)
	assert.Equal(t, 1, summaries[0].StepCount)
}
