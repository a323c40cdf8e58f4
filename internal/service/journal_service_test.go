package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

func TestJournalLifecycle(t *testing.T) {
	trades := newMemTrades(
		domain.Trade{ID: "t1", UserID: "u1"},
		domain.Trade{ID: "t2", UserID: "u1"},
		domain.Trade{ID: "theirs", UserID: "u2"},
	)
	entries := newMemJournal()
	svc := NewJournalService(entries, trades, &memAudit{}, discardLogger())
	ctx := context.Background()

	e, err := svc.Create(ctx, "u1", JournalInput{
		Title:    " Patience ",
		Content:  "Waited for the retest.",
		TradeIDs: []string{"t2", "t1", "t2", ""},
		Tags:     []string{"discipline"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Patience", e.Title)
	assert.Equal(t, []string{"t1", "t2"}, e.TradeIDs)
	assert.False(t, e.EntryDate.IsZero())

	_, err = svc.Create(ctx, "u1", JournalInput{Title: "x", TradeIDs: []string{"theirs"}})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Create(ctx, "u1", JournalInput{Title: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	updated, err := svc.Update(ctx, "u1", e.ID, JournalInput{Title: "Patience pays", Mood: "calm"})
	require.NoError(t, err)
	assert.Equal(t, "calm", updated.Mood)
	assert.Empty(t, updated.TradeIDs)
	assert.Equal(t, e.CreatedAt, updated.CreatedAt)

	_, err = svc.Get(ctx, "u2", e.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := svc.List(ctx, "u1", domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, "u1", e.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "u1", e.ID), domain.ErrNotFound)
}
