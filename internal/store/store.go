// Package store implements the ticket store collaborators used by the
// dependency plugin: a SQL store over the host's ticket tables and an
// in-memory store.
package store

import (
	"errors"
	"fmt"
	"maps"
	"time"
)

// ErrTicketNotFound is matched by errors reporting a missing ticket.
var ErrTicketNotFound = errors.New("ticket not found")

// NotFoundError reports that a ticket id does not exist.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ticket %d does not exist", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrTicketNotFound
}

// Ticket is the subset of a host ticket the plugin reads and writes.
type Ticket struct {
	ID      int64 // 0 until the ticket is first saved
	Summary string
	Status  string
	Custom  map[string]string
	Created time.Time
	Changed time.Time
}

// Field returns the value of a custom field, or "" when unset.
func (t *Ticket) Field(name string) string {
	if t == nil {
		return ""
	}
	return t.Custom[name]
}

// SetField sets a custom field value.
func (t *Ticket) SetField(name, value string) {
	if t.Custom == nil {
		t.Custom = make(map[string]string)
	}
	t.Custom[name] = value
}

func cloneTicket(t Ticket) Ticket {
	t.Custom = maps.Clone(t.Custom)
	return t
}

const defaultStatus = "new"

func normalizeStatus(status string) string {
	if status == "" {
		return defaultStatus
	}
	return status
}
