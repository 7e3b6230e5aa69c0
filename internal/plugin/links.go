package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antigravity-dev/ticketdep/internal/i18n"
	"github.com/antigravity-dev/ticketdep/internal/store"
	"github.com/antigravity-dev/ticketdep/internal/ticketref"
)

const (
	arrowDependency  = "►"
	arrowSuperticket = "◄"

	maxTitleLen = 75
)

// Link is what a view needs to render a hyperlink to a ticket.
type Link struct {
	ID      int64
	Summary string
	Status  string
	Text    string
}

// TicketView holds the links shown in the dependency field of a ticket.
type TicketView struct {
	Dependencies []Link // tickets this ticket depends on
	Supertickets []Link // tickets depending on this ticket
}

// Empty reports whether there is nothing to render.
func (v TicketView) Empty() bool {
	return len(v.Dependencies) == 0 && len(v.Supertickets) == 0
}

// Change describes a modification of the dependency field in the ticket's
// change history.
type Change struct {
	Added   []Link
	Removed []Link
}

// Empty reports whether the change links no existing ticket.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// Span renders the change on one line, the way the change history shows it:
// "#1, #2 added, #3 removed".
func (c Change) Span(translate i18n.Translator) string {
	return strings.Join(c.Lines(translate), ", ")
}

// Lines renders added and removed tickets as separate lines, "#1, #2 added"
// then "#3 removed", for line-oriented output such as the CLI. Span joins
// them into the single change history span.
func (c Change) Lines(translate i18n.Translator) []string {
	if translate == nil {
		translate = i18n.Identity
	}
	var lines []string
	if len(c.Added) > 0 {
		lines = append(lines, joinLinks(c.Added)+" "+translate(i18n.KeyAdded))
	}
	if len(c.Removed) > 0 {
		lines = append(lines, joinLinks(c.Removed)+" "+translate(i18n.KeyRemoved))
	}
	return lines
}

func joinLinks(links []Link) string {
	parts := make([]string, len(links))
	for i, l := range links {
		parts[i] = l.Text
	}
	return strings.Join(parts, ", ")
}

// TicketLinks returns the dependency and superticket links of t. A new
// ticket (ID 0) has no supertickets. Referenced tickets that no longer exist
// are skipped.
func (p *Plugin) TicketLinks(ctx context.Context, t *store.Ticket) (TicketView, error) {
	var view TicketView
	if t == nil {
		return view, nil
	}

	deps, err := p.links(ctx, ticketref.IDs(t.Field(ticketref.FieldName)), withTitle(arrowDependency))
	if err != nil {
		return TicketView{}, err
	}
	view.Dependencies = deps

	if t.ID == 0 {
		return view, nil
	}
	superIDs, err := p.store.Referencing(ctx, t.ID)
	if err != nil {
		return TicketView{}, fmt.Errorf("plugin: supertickets of %d: %w", t.ID, err)
	}
	supers, err := p.links(ctx, superIDs, withTitle(arrowSuperticket))
	if err != nil {
		return TicketView{}, err
	}
	view.Supertickets = supers
	return view, nil
}

// ChangeSummary returns the tickets added to and removed from the
// dependency field between two values. Render it with Change.Span for the
// change history, or Change.Lines for one line per direction.
func (p *Plugin) ChangeSummary(ctx context.Context, oldValue, newValue string) (Change, error) {
	added, removed := ticketref.Diff(oldValue, newValue)

	addedLinks, err := p.links(ctx, added, idOnly)
	if err != nil {
		return Change{}, err
	}
	removedLinks, err := p.links(ctx, removed, idOnly)
	if err != nil {
		return Change{}, err
	}
	return Change{Added: addedLinks, Removed: removedLinks}, nil
}

type linkText func(id int64, title string) string

func withTitle(arrow string) linkText {
	return func(id int64, title string) string {
		return fmt.Sprintf("%s #%d - %s", arrow, id, title)
	}
}

func idOnly(id int64, _ string) string {
	return fmt.Sprintf("#%d", id)
}

// links loads ids in order and builds a Link for each ticket that exists.
func (p *Plugin) links(ctx context.Context, ids []int64, text linkText) ([]Link, error) {
	var out []Link
	for _, id := range ids {
		t, err := p.store.Get(ctx, id)
		if errors.Is(err, store.ErrTicketNotFound) {
			p.logger.Warn("ticket not found (ignored)", "ticket", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("plugin: load ticket %d: %w", id, err)
		}

		title := shortenLine(t.Summary, maxTitleLen)
		out = append(out, Link{ID: id, Summary: title, Status: t.Status, Text: text(id, title)})
	}
	return out, nil
}

// shortenLine keeps the first line of text and cuts it at a word boundary
// so it is at most maxLen runes long, marking the cut with " ...".
func shortenLine(text string, maxLen int) string {
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		text = text[:i]
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	cut := string(runes[:maxLen-4])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + " ..."
}
