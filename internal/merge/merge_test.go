package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/laguz/internal/models"
)

func note(id string, updated time.Time, title string) models.Note {
	return models.Note{ID: id, Title: title, UpdatedAt: updated}
}

func TestMergeDisjointSides(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	local := []models.Note{note("a", t0, "local-only")}
	remote := []models.Note{note("b", t0, "remote-only")}

	result, winners := Merge(local, remote)

	require.Len(t, result, 2)
	assert.Empty(t, winners)
	assert.Equal(t, "a", result[0].ID)
	assert.Equal(t, "b", result[1].ID)
}

func TestMergeNewerLocalWins(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	local := []models.Note{note("a", t0.Add(time.Minute), "local")}
	remote := []models.Note{note("a", t0, "remote")}

	result, winners := Merge(local, remote)

	require.Len(t, result, 1)
	assert.Equal(t, "local", result[0].Title)
	require.Len(t, winners, 1)
	assert.Equal(t, "a", winners[0].ID)
}

func TestMergeNewerRemoteWins(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	local := []models.Note{note("a", t0, "local")}
	remote := []models.Note{note("a", t0.Add(time.Minute), "remote")}

	result, winners := Merge(local, remote)

	require.Len(t, result, 1)
	assert.Equal(t, "remote", result[0].Title)
	assert.Empty(t, winners, "remote win must not trigger a re-push")
}

func TestMergeTieGoesToRemote(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	local := []models.Note{note("a", t0, "local")}
	remote := []models.Note{note("a", t0, "remote")}

	result, winners := Merge(local, remote)

	require.Len(t, result, 1)
	assert.Equal(t, "remote", result[0].Title)
	assert.Empty(t, winners)
}

func TestMergeLocalOnlyEntityIsNotAWinner(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// An entity the remote never saw stays in the result but is not a
	// winner; the pending queue, not the merge, carries its upload.
	local := []models.Note{note("a", t0, "unsynced draft")}

	result, winners := Merge(local, nil)

	require.Len(t, result, 1)
	assert.Empty(t, winners)
}

func TestMergeDeterministic(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	local := []models.Note{
		note("a", t0.Add(2*time.Minute), "a-local"),
		note("b", t0, "b-local"),
		note("c", t0, "c-local"),
	}
	remote := []models.Note{
		note("b", t0.Add(time.Minute), "b-remote"),
		note("a", t0, "a-remote"),
		note("d", t0, "d-remote"),
	}

	first, firstWinners := Merge(local, remote)
	for i := 0; i < 10; i++ {
		again, againWinners := Merge(local, remote)
		assert.Equal(t, first, again)
		assert.Equal(t, firstWinners, againWinners)
	}
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	local := []models.Note{note("a", t0, "local"), note("b", t0, "b")}
	remote := []models.Note{note("a", t0.Add(time.Minute), "remote")}

	_, _ = Merge(local, remote)

	assert.Equal(t, "local", local[0].Title)
	assert.Equal(t, "remote", remote[0].Title)
}

func TestSortByUpdatedAtDesc(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	notes := []models.Note{
		note("b", t0, "old"),
		note("c", t0.Add(time.Hour), "new"),
		note("a", t0, "old-tie"),
	}
	SortByUpdatedAtDesc(notes)

	assert.Equal(t, "c", notes[0].ID)
	// Equal timestamps fall back to id order.
	assert.Equal(t, "a", notes[1].ID)
	assert.Equal(t, "b", notes[2].ID)
}

func TestSortByName(t *testing.T) {
	labels := []models.Label{
		{ID: "1", Name: "work"},
		{ID: "2", Name: "errands"},
		{ID: "3", Name: "ideas"},
	}
	SortByName(labels, func(l models.Label) string { return l.Name })

	assert.Equal(t, "errands", labels[0].Name)
	assert.Equal(t, "ideas", labels[1].Name)
	assert.Equal(t, "work", labels[2].Name)
}
