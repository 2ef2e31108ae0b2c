package repositorycache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-catalog-cache/errs"
	"github.com/goliatone/go-catalog-cache/query"
	"github.com/goliatone/go-catalog-cache/uow"
)

// TestRecord represents a test entity
type TestRecord struct {
	ID    string `msgpack:"id"`
	Name  string `msgpack:"name"`
	Group string `msgpack:"group"`
}

func (r TestRecord) EntityID() string { return r.ID }

func recordID(i int) string {
	return fmt.Sprintf("00000000-0000-7000-8000-%012d", i)
}

func seedRecords(n int) []TestRecord {
	out := make([]TestRecord, n)
	for i := range out {
		group := "a"
		if i%2 == 1 {
			group = "b"
		}
		out[i] = TestRecord{ID: recordID(i + 1), Name: fmt.Sprintf("record %d", i+1), Group: group}
	}
	return out
}

// mockSource is an in-memory Source that tracks method calls for testing
type mockSource struct {
	mu        sync.Mutex
	calls     []string
	records   []TestRecord
	failIDs   map[string]error
	findErr   error
	idsErr    error
	countErr  error
	lastLimit int
}

func newMockSource(records []TestRecord) *mockSource {
	sorted := append([]TestRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &mockSource{records: sorted, failIDs: map[string]error{}}
}

// Helper method to record method calls
func (m *mockSource) recordCall(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, method)
}

// Helper method to get recorded calls
func (m *mockSource) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Helper method to clear recorded calls
func (m *mockSource) clearCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *mockSource) countCalls(method string) int {
	n := 0
	for _, c := range m.getCalls() {
		if c == method {
			n++
		}
	}
	return n
}

func (m *mockSource) matching(filter query.Filter) ([]TestRecord, error) {
	var out []TestRecord
	for _, r := range m.records {
		get := func(field string) (any, bool) {
			switch field {
			case "id":
				return r.ID, true
			case "name":
				return r.Name, true
			case "group":
				return r.Group, true
			}
			return nil, false
		}
		ok, err := query.Match(filter, get)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockSource) FindIDs(ctx context.Context, filter query.Filter, limit int) ([]string, error) {
	m.recordCall("FindIDs")
	if m.idsErr != nil {
		return nil, m.idsErr
	}
	m.mu.Lock()
	m.lastLimit = limit
	m.mu.Unlock()

	matches, err := m.matching(filter)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, r := range matches {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (m *mockSource) FindByID(ctx context.Context, id string) (TestRecord, error) {
	m.recordCall("FindByID")
	m.mu.Lock()
	failure := m.failIDs[id]
	m.mu.Unlock()
	if failure != nil {
		return TestRecord{}, failure
	}
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return TestRecord{}, errs.NotFound("test_record", id)
}

func (m *mockSource) Find(ctx context.Context, filter query.Filter, skip, limit int) ([]TestRecord, error) {
	m.recordCall("Find")
	if m.findErr != nil {
		return nil, m.findErr
	}
	matches, err := m.matching(filter)
	if err != nil {
		return nil, err
	}
	if skip >= len(matches) {
		return []TestRecord{}, nil
	}
	matches = matches[skip:]
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *mockSource) Count(ctx context.Context, filter query.Filter) (int, error) {
	m.recordCall("Count")
	if m.countErr != nil {
		return 0, m.countErr
	}
	matches, err := m.matching(filter)
	return len(matches), err
}

// mockBackend is a map-backed cache.Backend with error injection
type mockBackend struct {
	mu        sync.Mutex
	calls     []string
	data      map[string][]byte
	ttls      map[string]time.Duration
	getErr    error
	setErr    error
	deleteErr error
}

func newMockBackend() *mockBackend {
	return &mockBackend{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (b *mockBackend) recordCall(method string) {
	b.calls = append(b.calls, method)
}

func (b *mockBackend) getCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func (b *mockBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordCall("Get")
	if b.getErr != nil {
		return nil, false, b.getErr
	}
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *mockBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordCall("Set")
	if b.setErr != nil {
		return b.setErr
	}
	b.data[key] = value
	b.ttls[key] = ttl
	return nil
}

func (b *mockBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordCall("Delete")
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.data, key)
	return nil
}

func (b *mockBackend) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[key]
	return ok
}

// prefixBackend adds range deletes to mockBackend
type prefixBackend struct {
	*mockBackend
}

func (b prefixBackend) DeletePrefix(ctx context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordCall("DeletePrefix")
	for key := range b.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(b.data, key)
		}
	}
	return nil
}

func syncSpawner(fn func()) { fn() }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Namespace = "test"
	cfg.SlowQueryThreshold = 0
	return cfg
}

func newTestSource(src *mockSource, backend *mockBackend) *CachedSource[TestRecord] {
	return New[TestRecord](src, backend, testConfig(), WithSpawner(syncSpawner))
}

type nopSession struct{}

func (nopSession) Commit(context.Context) error { return nil }
func (nopSession) Abort(context.Context) error  { return nil }

type nopTransactor struct{}

func (nopTransactor) Begin(context.Context) (uow.Session, error) { return nopSession{}, nil }

// inTransaction runs fn inside a unit of work.
func inTransaction(fn func(ctx context.Context) error) error {
	return uow.New(nopTransactor{}).Run(context.Background(), fn)
}
