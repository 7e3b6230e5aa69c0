package plugin

import (
	"github.com/antigravity-dev/ticketdep/internal/config"
	"github.com/antigravity-dev/ticketdep/internal/ticketref"
)

// QueryColumn returns the localized label the query view shows for the
// dependency field in filters, column choices and result headers.
// addColumn is true when the host leaves the field out of its result column
// list, which it does for textarea fields.
func (p *Plugin) QueryColumn(field config.CustomField) (label string, addColumn bool) {
	return p.Label(), field.Type == "textarea"
}

// QueryColumns appends the dependency field to the host's result columns when
// the configured field needs it. columns is returned unchanged when the field
// is not defined or already listed.
func (p *Plugin) QueryColumns(columns []string) []string {
	cfg := p.cfg.Get()
	if !cfg.HasCustomField(ticketref.FieldName) {
		return columns
	}
	_, addColumn := p.QueryColumn(cfg.TicketCustom[ticketref.FieldName])
	if !addColumn {
		return columns
	}
	for _, c := range columns {
		if c == ticketref.FieldName {
			return columns
		}
	}
	return append(columns, ticketref.FieldName)
}
