package bus

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store, suitable for single-process tests and
// demos. It is not a production backend — only the Redis-backed Store is
// meant to run in production, and this type is used only from tests.
type MemStore struct {
	mu      sync.Mutex
	streams map[string][]Entry
	groups  map[string]map[string]*groupCursor
	kv      map[string]kvEntry
	seq     int64
}

type groupCursor struct {
	// pending holds ids handed to each consumer that have not yet been
	// acked — mirrors Redis's per-group pending-entries list (PEL).
	pending map[string]map[string]Entry // consumer -> id -> entry
	last    string                      // last-delivered id, for fresh reads
}

type kvEntry struct {
	value   string
	expires time.Time // zero means no expiry
}

// NewMemStore constructs an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		streams: make(map[string][]Entry),
		groups:  make(map[string]map[string]*groupCursor),
		kv:      make(map[string]kvEntry),
	}
}

func (m *MemStore) nextID() string {
	m.seq++
	return entryIDSeq(time.Now().UnixMilli(), m.seq)
}

func (m *MemStore) Append(_ context.Context, stream string, fields map[string]string, approxMaxLen int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID()
	entry := Entry{ID: id, Fields: cloneFields(fields)}
	m.streams[stream] = append(m.streams[stream], entry)

	if approxMaxLen > 0 && int64(len(m.streams[stream])) > approxMaxLen {
		// Approximate trim: drop from the front down to the cap.
		excess := int64(len(m.streams[stream])) - approxMaxLen
		m.streams[stream] = append([]Entry{}, m.streams[stream][excess:]...)
	}
	return id, nil
}

// ReadRange ignores start and end: it returns up to count entries from the
// beginning of stream, oldest first.
func (m *MemStore) ReadRange(_ context.Context, stream, _, _ string, count int64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.streams[stream]
	if count > 0 && int64(len(all)) > count {
		all = all[:count]
	}
	return cloneEntries(all), nil
}

func (m *MemStore) ReadRecent(_ context.Context, stream string, count int64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.streams[stream]
	n := int64(len(all))
	start := n - count
	if start < 0 || count <= 0 {
		start = 0
	}
	out := make([]Entry, 0, n-start)
	for i := n - 1; i >= start; i-- {
		out = append(out, all[i])
	}
	return cloneEntries(out), nil
}

func (m *MemStore) CreateGroup(_ context.Context, stream, group string, startAtTail bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.groups[stream] == nil {
		m.groups[stream] = make(map[string]*groupCursor)
	}
	if _, exists := m.groups[stream][group]; exists {
		return nil // idempotent create, mirrors BUSYGROUP swallow
	}
	last := ""
	if startAtTail {
		if entries := m.streams[stream]; len(entries) > 0 {
			last = entries[len(entries)-1].ID
		}
	}
	m.groups[stream][group] = &groupCursor{
		pending: make(map[string]map[string]Entry),
		last:    last,
	}
	return nil
}

func (m *MemStore) ReadGroup(_ context.Context, stream, group, consumer string, count int64, _ int64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cursor := m.groups[stream][group]
	if cursor == nil {
		return nil, nil
	}
	if cursor.pending[consumer] == nil {
		cursor.pending[consumer] = make(map[string]Entry)
	}

	out := make([]Entry, 0, count)
	// Re-deliver this consumer's own unacked entries first (PEL re-read).
	for _, e := range cursor.pending[consumer] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if int64(len(out)) > count {
		out = out[:count]
	}
	if int64(len(out)) >= count {
		return cloneEntries(out), nil
	}

	for _, entry := range m.streams[stream] {
		if int64(len(out)) >= count {
			break
		}
		if entry.ID <= cursor.last {
			continue
		}
		cursor.last = entry.ID
		cursor.pending[consumer][entry.ID] = entry
		out = append(out, entry)
	}
	return cloneEntries(out), nil
}

func (m *MemStore) Ack(_ context.Context, stream, group string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cursor := m.groups[stream][group]
	if cursor == nil {
		return nil
	}
	for _, perConsumer := range cursor.pending {
		for _, id := range ids {
			delete(perConsumer, id)
		}
	}
	return nil
}

func (m *MemStore) SetIfAbsentWithTTL(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.kv[key]; ok && !expired(existing) {
		return false, nil
	}
	m.kv[key] = m.makeEntry(value, ttl)
	return true, nil
}

func (m *MemStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := int64(0)
	if existing, ok := m.kv[key]; ok && !expired(existing) {
		cur = parseInt(existing.value)
	}
	cur++
	entry := m.kv[key]
	entry.value = formatInt(cur)
	m.kv[key] = entry
	return cur, nil
}

func (m *MemStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.kv[key]; ok {
		existing.expires = time.Now().Add(ttl)
		m.kv[key] = existing
	}
	return nil
}

func (m *MemStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, key)
	return nil
}

func (m *MemStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.kv[key]
	if !ok || expired(existing) {
		return "", false, nil
	}
	return existing.value, true, nil
}

func (m *MemStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = m.makeEntry(value, ttl)
	return nil
}

func (m *MemStore) makeEntry(value string, ttl time.Duration) kvEntry {
	e := kvEntry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	return e
}

func expired(e kvEntry) bool {
	return !e.expires.IsZero() && time.Now().After(e.expires)
}

func cloneFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = Entry{ID: e.ID, Fields: cloneFields(e.Fields)}
	}
	return out
}

func parseInt(s string) int64 {
	var n int64
	neg := false
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n
}

func formatInt(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
