// Package ticketref parses, formats and matches the ticket dependency field.
//
// The field holds the ids of the tickets a ticket depends on as decimal
// numbers separated by runs of spaces and/or commas. Canonical form is a
// space separated, ascending, duplicate-free list.
package ticketref

import (
	"slices"
	"strconv"
	"strings"
)

// FieldName is the name of the custom ticket field holding dependencies.
const FieldName = "ticketref"

// DefaultLabel is the untranslated label of the dependency field.
const DefaultLabel = "Dependencies"

// ID identifies a ticket in the host tracker.
type ID = int64

// Parsed is the result of parsing a field value.
type Parsed struct {
	IDs     map[ID]struct{}
	Invalid map[string]struct{}
}

// SortedIDs returns the parsed ids in ascending order.
func (p Parsed) SortedIDs() []ID {
	return sortedKeys(p.IDs)
}

// SortedInvalid returns the invalid tokens in string order.
func (p Parsed) SortedInvalid() []string {
	return sortedKeys(p.Invalid)
}

// Has reports whether id was parsed from the value.
func (p Parsed) Has(id ID) bool {
	_, ok := p.IDs[id]
	return ok
}

func isSeparator(r rune) bool {
	return r == ',' || r == ' '
}

// Tokenize returns the set of maximal substrings of value containing neither
// a space nor a comma.
func Tokenize(value string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(value, isSeparator) {
		tokens[tok] = struct{}{}
	}
	return tokens
}

// Parse splits value into ticket ids and tokens that are not decimal integers.
// Tokens are converted as-is; a token with an embedded tab or newline is invalid.
func Parse(value string) Parsed {
	p := Parsed{
		IDs:     make(map[ID]struct{}),
		Invalid: make(map[string]struct{}),
	}
	for tok := range Tokenize(value) {
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			p.Invalid[tok] = struct{}{}
			continue
		}
		p.IDs[id] = struct{}{}
	}
	return p
}

// IDs returns the ticket ids in value, ignoring invalid tokens.
func IDs(value string) []ID {
	return Parse(value).SortedIDs()
}

// Format renders ids in canonical form.
func Format(ids []ID) string {
	if len(ids) == 0 {
		return ""
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, " ")
}

// FormatSet renders a set of ids in canonical form.
func FormatSet(ids map[ID]struct{}) string {
	return Format(sortedKeys(ids))
}

// References reports whether value lists id as a whole token in canonical
// decimal form. "12" references 12; "123" and "212" do not.
func References(value string, id ID) bool {
	_, ok := Tokenize(value)[strconv.FormatInt(id, 10)]
	return ok
}

// LikePattern returns the SQL LIKE pattern matching id inside a field value
// whose commas were replaced by spaces and which was padded with one space
// on each side.
func LikePattern(id ID) string {
	return "% " + strconv.FormatInt(id, 10) + " %"
}

// Diff returns the ids present in newValue but not in oldValue, and the ids
// present in oldValue but not in newValue, both ascending.
func Diff(oldValue, newValue string) (added, removed []ID) {
	oldIDs := Parse(oldValue).IDs
	newIDs := Parse(newValue).IDs
	for id := range newIDs {
		if _, ok := oldIDs[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range oldIDs {
		if _, ok := newIDs[id]; !ok {
			removed = append(removed, id)
		}
	}
	slices.Sort(added)
	slices.Sort(removed)
	return added, removed
}

func sortedKeys[K int64 | string](m map[K]struct{}) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
