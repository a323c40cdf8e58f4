package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/tradejournal/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memUsers struct {
	mu       sync.Mutex
	users    map[string]domain.User
	accounts *memAccounts
}

func newMemUsers(accounts *memAccounts) *memUsers {
	return &memUsers{users: map[string]domain.User{}, accounts: accounts}
}

func (m *memUsers) CreateWithAccount(_ context.Context, u domain.User, a domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrAlreadyExists
		}
	}
	m.users[u.ID] = u
	if m.accounts != nil {
		m.accounts.put(a)
	}
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *memUsers) ListIDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
}

func newMemAccounts(accounts ...domain.Account) *memAccounts {
	m := &memAccounts{accounts: map[string]domain.Account{}}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *memAccounts) put(a domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
}

func (m *memAccounts) Create(_ context.Context, a domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.IsDefault {
		m.clearDefault(a.UserID)
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *memAccounts) Update(_ context.Context, a domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.accounts[a.ID]
	if !ok || cur.UserID != a.UserID {
		return domain.ErrNotFound
	}
	cur.Name, cur.Color, cur.InitialBalance = a.Name, a.Color, a.InitialBalance
	m.accounts[a.ID] = cur
	return nil
}

func (m *memAccounts) FindOwnedBy(_ context.Context, accountID, userID string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok || a.UserID != userID {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, nil
}

func (m *memAccounts) ListByUser(_ context.Context, userID string) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Account
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAccounts) SetDefault(_ context.Context, accountID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok || a.UserID != userID {
		return domain.ErrNotFound
	}
	m.clearDefault(userID)
	a.IsDefault = true
	m.accounts[accountID] = a
	return nil
}

func (m *memAccounts) Delete(_ context.Context, accountID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok || a.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.accounts, accountID)
	return nil
}

func (m *memAccounts) clearDefault(userID string) {
	for id, a := range m.accounts {
		if a.UserID == userID && a.IsDefault {
			a.IsDefault = false
			m.accounts[id] = a
		}
	}
}

type memTrades struct {
	mu        sync.Mutex
	trades    map[string]domain.Trade
	finds     int
	insertErr error
	onFind    func()
}

func newMemTrades(trades ...domain.Trade) *memTrades {
	m := &memTrades{trades: map[string]domain.Trade{}}
	for _, t := range trades {
		m.trades[t.ID] = t
	}
	return m
}

func (m *memTrades) Create(_ context.Context, t domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[t.ID] = t
	return nil
}

func (m *memTrades) InsertAtomic(_ context.Context, trades []domain.Trade) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	for _, t := range trades {
		m.trades[t.ID] = t
	}
	return int64(len(trades)), nil
}

func (m *memTrades) Get(_ context.Context, id, userID string) (domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok || t.UserID != userID {
		return domain.Trade{}, domain.ErrNotFound
	}
	return t, nil
}

func (m *memTrades) Update(_ context.Context, t domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.trades[t.ID]
	if !ok || cur.UserID != t.UserID {
		return domain.ErrNotFound
	}
	m.trades[t.ID] = t
	return nil
}

func (m *memTrades) Delete(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok || t.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.trades, id)
	return nil
}

func (m *memTrades) Find(_ context.Context, f domain.TradeFilter) ([]domain.Trade, error) {
	if m.onFind != nil {
		m.onFind()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	var out []domain.Trade
	for _, t := range m.trades {
		if t.UserID != f.UserID {
			continue
		}
		if f.AccountID != "" && t.AccountID != f.AccountID {
			continue
		}
		if f.Symbol != "" && !strings.EqualFold(t.Symbol, f.Symbol) {
			continue
		}
		if f.Status != "" && t.Status() != f.Status {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryDate.Before(out[j].EntryDate) })
	return out, nil
}

func (m *memTrades) CountByAccount(_ context.Context, accountID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.trades {
		if t.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (m *memTrades) CountOwned(_ context.Context, userID string, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if t, ok := m.trades[id]; ok && t.UserID == userID {
			n++
		}
	}
	return n, nil
}

type memJournal struct {
	mu      sync.Mutex
	entries map[string]domain.JournalEntry
}

func newMemJournal() *memJournal {
	return &memJournal{entries: map[string]domain.JournalEntry{}}
}

func (m *memJournal) Create(_ context.Context, e domain.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *memJournal) Update(_ context.Context, e domain.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *memJournal) Get(_ context.Context, id, userID string) (domain.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.UserID != userID {
		return domain.JournalEntry{}, domain.ErrNotFound
	}
	return e, nil
}

func (m *memJournal) List(_ context.Context, userID string, _ domain.ListOpts) ([]domain.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.JournalEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memJournal) Delete(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

type memAudit struct {
	mu     sync.Mutex
	events []string
}

func (m *memAudit) Log(_ context.Context, _ string, event string, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memAudit) List(context.Context, string, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (m *memAudit) has(event string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Contains(m.events, event)
}

type fakeLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: map[string]bool{}}
}

func (f *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return nil, domain.ErrLockHeld
	}
	f.held[key] = true
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.held, key)
	}, nil
}

type fakeBus struct {
	mu        sync.Mutex
	published []domain.Message
}

func (f *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, domain.Message{Channel: channel, Payload: payload})
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string) (<-chan domain.Message, error) {
	return make(chan domain.Message), nil
}

type fakeCache struct {
	mu            sync.Mutex
	versions      map[string]int64
	data          map[string][]byte
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{versions: map[string]int64{}, data: map[string][]byte{}}
}

func fakeCacheKey(userID string, version int64, key string) string {
	return fmt.Sprintf("%s|%d|%s", userID, version, key)
}

func (f *fakeCache) Get(_ context.Context, userID, key string) ([]byte, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.versions[userID]
	d, ok := f.data[fakeCacheKey(userID, v, key)]
	if !ok {
		return nil, v, domain.ErrNotFound
	}
	return d, v, nil
}

func (f *fakeCache) Set(_ context.Context, userID, key string, version int64, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[fakeCacheKey(userID, version, key)] = data
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidations++
	f.versions[userID]++
	return nil
}

type fakeLimiter struct {
	allow bool
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, nil
}

type fakeRevoker struct {
	revoked map[string]time.Time
}

func (f *fakeRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if f.revoked == nil {
		f.revoked = map[string]time.Time{}
	}
	f.revoked[tokenID] = until
	return nil
}

func (f *fakeRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := f.revoked[tokenID]
	return ok, nil
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string]string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string]string{}}
}

func (m *memBlobs) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = string(b)
	return nil
}

func (m *memBlobs) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return m.Put(ctx, path, data, "")
}

func (m *memBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(s)), nil
}

func (m *memBlobs) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BlobInfo
	for p, s := range m.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, domain.BlobInfo{Path: p, Size: int64(len(s))})
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) Notify(_ context.Context, event, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func ptr[T any](v T) *T { return &v }
