package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/abhisek/socratic/internal/session"
)

// MemoryStore keeps sessions in process memory. Stored values are cloned
// on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	events   []LLMRequestEvent
	now      func() time.Time
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*session.Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, code string) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[code]
	if !ok {
		return nil, notFound(code)
	}
	return live(s.Clone(), code, m.now())
}

func (m *MemoryStore) Create(_ context.Context, s *session.Session) error {
	if err := checkWrite(s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.sessions[s.Code]; ok && !cur.Expired(m.now()) {
		return codeTaken(s.Code)
	}
	m.sessions[s.Code] = s.Clone()
	return nil
}

func (m *MemoryStore) Put(_ context.Context, s *session.Session) error {
	if err := checkWrite(s); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.Code] = s.Clone()
	return nil
}

func (m *MemoryStore) Update(_ context.Context, code string, p session.Patch) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[code]
	if !ok || cur.Expired(m.now()) {
		return nil, notFound(code)
	}
	next := cur.Clone()
	next.Apply(p)
	if err := checkWrite(next); err != nil {
		return nil, err
	}
	m.sessions[code] = next
	return next.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[code]; !ok {
		return notFound(code)
	}
	delete(m.sessions, code)
	return nil
}

func (m *MemoryStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for code, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, code)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }

// EventRepo returns the in-memory LLM request log.
func (m *MemoryStore) EventRepo() EventRepo { return m }

func (m *MemoryStore) AppendLLMRequest(_ context.Context, data LLMRequestEventData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, LLMRequestEvent{
		ID:                  int64(len(m.events) + 1),
		Timestamp:           m.now(),
		LLMRequestEventData: data,
	})
	return nil
}

func (m *MemoryStore) QueryLLMEvents(_ context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []LLMRequestEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		ev := m.events[i]
		switch {
		case opts.After > 0 && ev.ID <= opts.After,
			opts.Before > 0 && ev.ID >= opts.Before,
			!opts.From.IsZero() && ev.Timestamp.Before(opts.From),
			!opts.To.IsZero() && ev.Timestamp.After(opts.To),
			opts.Purpose != "" && ev.Purpose != opts.Purpose:
			continue
		}
		out = append(out, ev)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) GetLLMEvent(_ context.Context, id int64) (*LLMRequestEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id < 1 || id > int64(len(m.events)) {
		return nil, &session.NotFoundError{Resource: "llm event", Key: strconv.FormatInt(id, 10)}
	}
	ev := m.events[id-1]
	return &ev, nil
}

func (m *MemoryStore) LLMUsageByPurpose(_ context.Context) ([]PurposeUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byPurpose := make(map[string]*PurposeUsage)
	latency := make(map[string]int64)
	for _, ev := range m.events {
		u, ok := byPurpose[ev.Purpose]
		if !ok {
			u = &PurposeUsage{Purpose: ev.Purpose}
			byPurpose[ev.Purpose] = u
		}
		u.Calls++
		u.InputTokens += ev.InputTokens
		u.OutputTokens += ev.OutputTokens
		latency[ev.Purpose] += ev.LatencyMs
	}

	out := make([]PurposeUsage, 0, len(byPurpose))
	for p, u := range byPurpose {
		u.AvgLatencyMs = latency[p] / int64(u.Calls)
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Purpose < out[j].Purpose })
	return out, nil
}

func (m *MemoryStore) LLMUsageByModel(_ context.Context) ([]ModelUsage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byModel := make(map[string]*ModelUsage)
	for _, ev := range m.events {
		u, ok := byModel[ev.Model]
		if !ok {
			u = &ModelUsage{Model: ev.Model}
			byModel[ev.Model] = u
		}
		u.Calls++
		u.InputTokens += ev.InputTokens
		u.OutputTokens += ev.OutputTokens
	}

	out := make([]ModelUsage, 0, len(byModel))
	for _, u := range byModel {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}
