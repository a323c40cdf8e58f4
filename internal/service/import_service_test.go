package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradejournal/internal/domain"
	"github.com/alanyoungcy/tradejournal/internal/ingest"
	"github.com/alanyoungcy/tradejournal/internal/notify"
)

const validCSV = `symbol,direction,entry_price,exit_price,quantity,entry_date,exit_date,fees
AAPL,LONG,100,110,10,2024-01-02,2024-01-03,5
MSFT,short,300,290,2,2024-01-04,2024-01-05,0
TSLA,LONG,200,,1,2024-01-06,,
`

type importFixture struct {
	svc      *ImportService
	trades   *memTrades
	locks    *fakeLocks
	blobs    *memBlobs
	audit    *memAudit
	cache    *fakeCache
	bus      *fakeBus
	notifier *recordingNotifier
}

func newImportFixture(cfg ImportConfig) importFixture {
	f := importFixture{
		trades:   newMemTrades(),
		locks:    newFakeLocks(),
		blobs:    newMemBlobs(),
		audit:    &memAudit{},
		cache:    newFakeCache(),
		bus:      &fakeBus{},
		notifier: &recordingNotifier{},
	}
	f.svc = NewImportService(ImportDeps{
		Accounts: newMemAccounts(domain.Account{ID: "a1", UserID: "u1"}, domain.Account{ID: "x1", UserID: "u2"}),
		Trades:   f.trades,
		Locks:    f.locks,
		Parser:   ingest.NewParser(ingest.Options{MaxRows: 100}),
		Blobs:    f.blobs,
		Archive:  f.blobs,
		Bus:      f.bus,
		Audit:    f.audit,
		Cache:    f.cache,
		Notifier: f.notifier,
	}, cfg, discardLogger())
	return f
}

func TestImportAllValid(t *testing.T) {
	f := newImportFixture(ImportConfig{Archive: true})
	ctx := context.Background()

	res, err := f.svc.Import(ctx, "u1", "a1", validCSV)
	require.NoError(t, err)
	assert.False(t, res.Rejected())
	assert.Equal(t, int64(3), res.InsertedCount)
	assert.Len(t, f.trades.trades, 3)

	require.NotEmpty(t, res.ArchivePath)
	assert.True(t, strings.HasPrefix(res.ArchivePath, "imports/u1/"))
	assert.True(t, strings.HasSuffix(res.ArchivePath, res.ImportID+".csv"))
	assert.Equal(t, validCSV, f.blobs.objects[res.ArchivePath])

	assert.True(t, f.audit.has("trades.imported"))
	assert.Equal(t, 1, f.cache.invalidations)
	assert.Len(t, f.bus.published, 1)
	assert.Equal(t, []string{notify.EventImportCompleted}, f.notifier.events)
	assert.Empty(t, f.locks.held)

	archives, err := f.svc.ListArchives(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, archives, 1)
}

func TestImportRejectsWholeBatch(t *testing.T) {
	f := newImportFixture(ImportConfig{Archive: true})
	text := `symbol,direction,entry_price,quantity,entry_date
AAPL,LONG,100,10,2024-01-02
AAPL,BUY,100,10,2024-01-02
MSFT,SHORT,300,2,2024-01-04
`
	res, err := f.svc.Import(context.Background(), "u1", "a1", text)
	require.NoError(t, err)
	assert.True(t, res.Rejected())
	assert.Zero(t, res.InsertedCount)
	require.Len(t, res.RowErrors, 1)
	assert.Equal(t, 3, res.RowErrors[0].Row)
	assert.Contains(t, res.RowErrors[0].Message, "direction must be LONG or SHORT")

	assert.Empty(t, f.trades.trades)
	assert.Empty(t, f.blobs.objects)
	assert.Zero(t, f.cache.invalidations)
	assert.Equal(t, []string{notify.EventImportRejected}, f.notifier.events)
}

func TestImportErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("foreign account", func(t *testing.T) {
		f := newImportFixture(ImportConfig{})
		_, err := f.svc.Import(ctx, "u1", "x1", validCSV)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
	t.Run("unknown account", func(t *testing.T) {
		f := newImportFixture(ImportConfig{})
		_, err := f.svc.Import(ctx, "u1", "nope", "not even csv")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
	t.Run("header only", func(t *testing.T) {
		f := newImportFixture(ImportConfig{})
		_, err := f.svc.Import(ctx, "u1", "a1", "symbol,direction\n")
		assert.ErrorIs(t, err, domain.ErrEmptyImport)
	})
	t.Run("too large", func(t *testing.T) {
		f := newImportFixture(ImportConfig{MaxBytes: 10})
		_, err := f.svc.Import(ctx, "u1", "a1", validCSV)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
	t.Run("import in progress", func(t *testing.T) {
		f := newImportFixture(ImportConfig{})
		f.locks.held["import:a1"] = true
		_, err := f.svc.Import(ctx, "u1", "a1", validCSV)
		assert.ErrorIs(t, err, domain.ErrImportInProgress)
	})
	t.Run("insert failure releases lock", func(t *testing.T) {
		f := newImportFixture(ImportConfig{})
		f.trades.insertErr = errors.New("tx aborted")
		_, err := f.svc.Import(ctx, "u1", "a1", validCSV)
		require.Error(t, err)
		assert.Empty(t, f.locks.held)
	})
}

func TestImportWithoutArchive(t *testing.T) {
	f := newImportFixture(ImportConfig{Archive: false})
	res, err := f.svc.Import(context.Background(), "u1", "a1", validCSV)
	require.NoError(t, err)
	assert.Empty(t, res.ArchivePath)
	assert.Empty(t, f.blobs.objects)
}
