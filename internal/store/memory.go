package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/antigravity-dev/ticketdep/internal/ticketref"
)

// Memory is a map-backed ticket store with the same contract as SQL.
// Referencing scans every ticket.
type Memory struct {
	mu      sync.RWMutex
	tickets map[int64]*Ticket
	nextID  int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tickets: make(map[int64]*Ticket),
		nextID:  1,
	}
}

// Exists returns nil when the ticket exists and a *NotFoundError otherwise.
func (m *Memory) Exists(_ context.Context, id int64) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.tickets[id]; !ok {
		return &NotFoundError{ID: id}
	}
	return nil
}

// Get returns a copy of the ticket.
func (m *Memory) Get(_ context.Context, id int64) (Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[id]
	if !ok {
		return Ticket{}, &NotFoundError{ID: id}
	}
	return cloneTicket(*t), nil
}

// List returns copies of every ticket, ordered by id.
func (m *Memory) List(_ context.Context) ([]Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		out = append(out, cloneTicket(*t))
	}
	slices.SortFunc(out, func(a, b Ticket) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// Save inserts a new ticket (ID 0, which is then assigned) or updates an
// existing one. Custom fields are merged like the SQL store does.
func (m *Memory) Save(_ context.Context, t *Ticket) error {
	if t == nil {
		return fmt.Errorf("store: ticket is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	t.Status = normalizeStatus(t.Status)
	t.Changed = now

	if t.ID == 0 {
		t.ID = m.nextID
		m.nextID++
		t.Created = now
		stored := cloneTicket(*t)
		if stored.Custom == nil {
			stored.Custom = make(map[string]string)
		}
		m.tickets[t.ID] = &stored
		return nil
	}

	existing, ok := m.tickets[t.ID]
	if !ok {
		return &NotFoundError{ID: t.ID}
	}
	existing.Summary = t.Summary
	existing.Status = t.Status
	existing.Changed = now
	for name, value := range t.Custom {
		existing.Custom[name] = value
	}
	if t.Created.IsZero() {
		t.Created = existing.Created
	}
	if t.ID >= m.nextID {
		m.nextID = t.ID + 1
	}
	return nil
}

// Referencing returns the ids of all tickets other than id whose dependency
// field lists id, ascending.
func (m *Memory) Referencing(_ context.Context, id int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []int64
	for ticketID, t := range m.tickets {
		if ticketID == id {
			continue
		}
		if ticketref.References(t.Custom[ticketref.FieldName], id) {
			out = append(out, ticketID)
		}
	}
	slices.Sort(out)
	return out, nil
}
