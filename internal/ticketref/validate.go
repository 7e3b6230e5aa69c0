package ticketref

import (
	"context"
	"strconv"
	"strings"
)

// Message keys passed to the translator.
const (
	MsgInvalidToken = "not a decimal ticket ID: {token}"
	MsgSelfRef      = "ticket must not depend on itself"
)

// Problem is a save-blocking validation error for a ticket field.
type Problem struct {
	Field   string
	Message string
}

// ExistsFunc reports nil when the ticket exists. Any other error is shown to
// the user as the reason the reference is rejected.
type ExistsFunc func(ctx context.Context, id ID) error

// Validate checks a proposed dependency field value for the ticket selfID
// (0 for a ticket that has not been created yet). It returns the value in
// canonical form together with every problem found. The canonical value
// keeps all ids that parsed, including a self reference or a missing ticket;
// only invalid tokens are dropped.
//
// field is used as Problem.Field. translate may be nil.
func Validate(ctx context.Context, selfID ID, value string, exists ExistsFunc, field string, translate func(string) string) (string, []Problem) {
	if translate == nil {
		translate = func(key string) string { return key }
	}

	parsed := Parse(value)
	var problems []Problem

	for _, tok := range parsed.SortedInvalid() {
		msg := strings.ReplaceAll(translate(MsgInvalidToken), "{token}", strconv.Quote(tok))
		problems = append(problems, Problem{Field: field, Message: msg})
	}

	if selfID != 0 && parsed.Has(selfID) {
		problems = append(problems, Problem{Field: field, Message: translate(MsgSelfRef)})
	}

	if exists != nil {
		for _, id := range parsed.SortedIDs() {
			if err := exists(ctx, id); err != nil {
				problems = append(problems, Problem{Field: field, Message: err.Error()})
			}
		}
	}

	return FormatSet(parsed.IDs), problems
}
