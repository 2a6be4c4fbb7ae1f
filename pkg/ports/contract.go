package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a RunStore implementation
// adheres to the defined interface contract.
func RunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	suffix := time.Now().Format("20060102150405.000000")
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	record := func(id string, offset time.Duration) domain.RunRecord {
		return domain.RunRecord{
			ID:              id,
			Concept:         "Pythagorean theorem",
			Language:        "en-US",
			Status:          domain.StatusFailed,
			Category:        domain.CategoryBudgetExhausted,
			Message:         "budget_exhausted: evaluation revision budget exhausted after 2 revisions",
			Counters:        domain.Counters{EvaluationRevisions: 2, RenderRevisions: 1},
			Steps:           11,
			Trail:           []string{"setup", "plan"},
			StartedAt:       base.Add(offset),
			FinishedAt:      base.Add(offset + time.Minute),
			OutputReference: "",
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		id := "contract-save-" + suffix
		want := record(id, 0)
		require.NoError(t, store.Save(ctx, want))

		got, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.Category, got.Category)
		assert.Equal(t, want.Message, got.Message)
		assert.Equal(t, want.Counters, got.Counters)
		assert.Equal(t, want.Trail, got.Trail)
		assert.True(t, want.StartedAt.Equal(got.StartedAt))
	})

	t.Run("Save replaces", func(t *testing.T) {
		id := "contract-replace-" + suffix
		r := record(id, 0)
		r.Status = domain.StatusRunning
		require.NoError(t, store.Save(ctx, r))

		r.Status = domain.StatusSuccess
		r.OutputReference = "/static/videos/x_final.mp4"
		require.NoError(t, store.Save(ctx, r))

		got, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSuccess, got.Status)
		assert.Equal(t, "/static/videos/x_final.mp4", got.OutputReference)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+suffix)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("List newest first", func(t *testing.T) {
		older := "contract-list-a-" + suffix
		newer := "contract-list-b-" + suffix
		require.NoError(t, store.Save(ctx, record(older, time.Hour)))
		require.NoError(t, store.Save(ctx, record(newer, 2*time.Hour)))

		list, err := store.List(ctx, 0)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(list), 2)
		assert.Equal(t, newer, list[0].ID)
		assert.Equal(t, older, list[1].ID)

		limited, err := store.List(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("Delete", func(t *testing.T) {
		id := "contract-delete-" + suffix
		require.NoError(t, store.Save(ctx, record(id, 0)))
		require.NoError(t, store.Delete(ctx, id))

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)

		assert.NoError(t, store.Delete(ctx, id), "deleting twice is not an error")
	})
}
