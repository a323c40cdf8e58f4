package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/ingest"
)

type tradeFixture struct {
	svc    *TradeService
	trades *memTrades
	bus    *fakeBus
	cache  *fakeCache
}

func newTradeFixture() tradeFixture {
	f := tradeFixture{
		trades: newMemTrades(),
		bus:    &fakeBus{},
		cache:  newFakeCache(),
	}
	accounts := newMemAccounts(
		domain.Account{ID: "a1", UserID: "u1"},
		domain.Account{ID: "a2", UserID: "u1"},
		domain.Account{ID: "x1", UserID: "u2"},
	)
	f.svc = NewTradeService(f.trades, accounts, f.bus, &memAudit{}, f.cache, discardLogger())
	return f
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 14, 30, 0, 0, time.UTC)
}

func TestTradeCreateComputesPnL(t *testing.T) {
	f := newTradeFixture()
	exit := day(2)
	tr, err := f.svc.Create(context.Background(), "u1", TradeInput{
		AccountID:  "a1",
		Symbol:     " AAPL ",
		Direction:  "long",
		Quantity:   10,
		EntryPrice: 100,
		EntryDate:  day(1),
		ExitPrice:  ptr(110.0),
		ExitDate:   &exit,
		Fees:       5,
		Tags:       []string{" breakout ", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", tr.Symbol)
	assert.Equal(t, domain.DirectionLong, tr.Direction)
	require.NotNil(t, tr.PnL)
	assert.Equal(t, 95.0, *tr.PnL)
	assert.Equal(t, []string{"breakout"}, tr.Tags)
	assert.Equal(t, 1, f.cache.invalidations)

	require.Len(t, f.bus.published, 1)
	var evt Event
	require.NoError(t, json.Unmarshal(f.bus.published[0].Payload, &evt))
	assert.Equal(t, EventTradeCreated, evt.Type)
}

func TestTradeCreateRejects(t *testing.T) {
	f := newTradeFixture()
	ctx := context.Background()
	base := TradeInput{AccountID: "a1", Symbol: "AAPL", Direction: "SHORT", Quantity: 1, EntryPrice: 1, EntryDate: day(1)}

	foreign := base
	foreign.AccountID = "x1"
	_, err := f.svc.Create(ctx, "u1", foreign)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	bad := base
	bad.Direction = "BUY"
	_, err = f.svc.Create(ctx, "u1", bad)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	halfClosed := base
	halfClosed.ExitPrice = ptr(2.0)
	_, err = f.svc.Create(ctx, "u1", halfClosed)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Empty(t, f.trades.trades)
}

func TestTradeUpdateClosesAndReopens(t *testing.T) {
	f := newTradeFixture()
	ctx := context.Background()
	tr, err := f.svc.Create(ctx, "u1", TradeInput{
		AccountID: "a1", Symbol: "TSLA", Direction: "SHORT", Quantity: 2, EntryPrice: 200, EntryDate: day(1),
	})
	require.NoError(t, err)
	assert.Nil(t, tr.PnL)

	exit := day(3)
	tr, err = f.svc.Update(ctx, "u1", tr.ID, domain.TradePatch{ExitPrice: ptr(190.0), ExitDate: &exit})
	require.NoError(t, err)
	require.NotNil(t, tr.PnL)
	assert.Equal(t, 20.0, *tr.PnL)

	tr, err = f.svc.Update(ctx, "u1", tr.ID, domain.TradePatch{Quantity: ptr(3.0)})
	require.NoError(t, err)
	assert.Equal(t, 30.0, *tr.PnL)

	tr, err = f.svc.Update(ctx, "u1", tr.ID, domain.TradePatch{ClearExit: true})
	require.NoError(t, err)
	assert.Nil(t, tr.PnL)
	assert.Nil(t, tr.ExitDate)

	_, err = f.svc.Update(ctx, "u1", tr.ID, domain.TradePatch{AccountID: ptr("x1")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Update(ctx, "u2", tr.ID, domain.TradePatch{Quantity: ptr(1.0)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTradeDelete(t *testing.T) {
	f := newTradeFixture()
	ctx := context.Background()
	tr, err := f.svc.Create(ctx, "u1", TradeInput{
		AccountID: "a1", Symbol: "TSLA", Direction: "LONG", Quantity: 2, EntryPrice: 200, EntryDate: day(1),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, "u2", tr.ID), domain.ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, "u1", tr.ID))
	_, err = f.svc.Get(ctx, "u1", tr.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExportCSVRoundTrips(t *testing.T) {
	f := newTradeFixture()
	ctx := context.Background()
	exit := day(2)
	_, err := f.svc.Create(ctx, "u1", TradeInput{
		AccountID: "a1", Symbol: "AAPL", Direction: "LONG", Quantity: 10, EntryPrice: 100,
		EntryDate: day(1), ExitPrice: ptr(110.0), ExitDate: &exit, Fees: 5,
		Strategy: "Breakout", Tags: []string{"a", "b"},
	})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "u1", TradeInput{
		AccountID: "a1", Symbol: "MSFT", Direction: "SHORT", Quantity: 1, EntryPrice: 300, EntryDate: day(3),
	})
	require.NoError(t, err)

	out, err := f.svc.ExportCSV(ctx, domain.TradeFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Contains(t, string(out), "symbol,direction,quantity,entry_price")

	res, err := ingest.NewParser(ingest.Options{}).Parse(string(out), "a2", "u1")
	require.NoError(t, err)
	require.True(t, res.OK(), "row errors: %v", res.RowErrors)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, "AAPL", res.Trades[0].Symbol)
	assert.Equal(t, 95.0, *res.Trades[0].PnL)
	assert.Equal(t, []string{"a", "b"}, res.Trades[0].Tags)
	assert.False(t, res.Trades[1].IsClosed())
}

func TestListClampsLimit(t *testing.T) {
	f := newTradeFixture()
	trades, err := f.svc.List(context.Background(), domain.TradeFilter{UserID: "u1", Limit: 5000})
	require.NoError(t, err)
	assert.Empty(t, trades)
}
