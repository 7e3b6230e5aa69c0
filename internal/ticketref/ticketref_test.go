package ticketref

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func idSet(ids ...ID) map[ID]struct{} {
	m := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func tokenSet(tokens ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		m[tok] = struct{}{}
	}
	return m
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  map[string]struct{}
	}{
		{name: "empty", value: "", want: tokenSet()},
		{name: "blank", value: "  ,, ,", want: tokenSet()},
		{name: "single", value: "12", want: tokenSet("12")},
		{name: "mixed separators", value: " 1,2 ,, 3 ", want: tokenSet("1", "2", "3")},
		{name: "duplicates collapse", value: "4 4,4", want: tokenSet("4")},
		{name: "tab is not a separator", value: "a\tb c", want: tokenSet("a\tb", "c")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.value)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.value, diff)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		wantIDs     map[ID]struct{}
		wantInvalid map[string]struct{}
	}{
		{name: "empty", value: "", wantIDs: idSet(), wantInvalid: tokenSet()},
		{name: "whitespace only", value: "   ", wantIDs: idSet(), wantInvalid: tokenSet()},
		{
			name:        "mixed",
			value:       "5, , a, b, c\td\n  123, , 0123, 0x123   ",
			wantIDs:     idSet(5, 123),
			wantInvalid: tokenSet("a", "b", "c\td\n", "0x123"),
		},
		{
			name:        "leading garbage separators",
			value:       "   5   ,,a,b, c\td\n  123,,, 0123, 0x123   ",
			wantIDs:     idSet(5, 123),
			wantInvalid: tokenSet("a", "b", "c\td\n", "0x123"),
		},
		{name: "trailing newline is invalid", value: "7\n", wantIDs: idSet(), wantInvalid: tokenSet("7\n")},
		{name: "overflow is invalid", value: "99999999999999999999", wantIDs: idSet(), wantInvalid: tokenSet("99999999999999999999")},
		{name: "zero", value: "0", wantIDs: idSet(0), wantInvalid: tokenSet()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.value)
			if diff := cmp.Diff(tt.wantIDs, got.IDs); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantInvalid, got.Invalid); diff != "" {
				t.Errorf("invalid tokens mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTokenInOneSetOnly(t *testing.T) {
	p := Parse("1 x 1 x 2,y")
	for tok := range p.Invalid {
		for id := range p.IDs {
			if fmt.Sprint(id) == tok {
				t.Fatalf("token %q is both valid and invalid", tok)
			}
		}
	}
	if len(p.IDs) != 2 || len(p.Invalid) != 2 {
		t.Fatalf("got %d ids and %d invalid tokens, want 2 and 2", len(p.IDs), len(p.Invalid))
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		ids  []ID
		want string
	}{
		{ids: nil, want: ""},
		{ids: []ID{}, want: ""},
		{ids: []ID{0, 1, 234}, want: "0 1 234"},
		{ids: []ID{234, 1, 0, 1}, want: "0 1 234"},
		{ids: []ID{42}, want: "42"},
	}
	for _, tt := range tests {
		if got := Format(tt.ids); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.ids, got, tt.want)
		}
	}
}

func TestFormatDoesNotMutateInput(t *testing.T) {
	ids := []ID{3, 1, 2}
	Format(ids)
	if diff := cmp.Diff([]ID{3, 1, 2}, ids); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
}

func TestNormalizeCommaSeparated(t *testing.T) {
	if got := Format(IDs("0,1 234")); got != "0 1 234" {
		t.Fatalf("got %q, want %q", got, "0 1 234")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		n := rng.Intn(12)
		set := make(map[ID]struct{}, n)
		for j := 0; j < n; j++ {
			set[rng.Int63n(100000)+1] = struct{}{}
		}

		formatted := FormatSet(set)
		parsed := Parse(formatted)
		if diff := cmp.Diff(set, parsed.IDs); diff != "" {
			t.Fatalf("round trip of %q lost ids (-want +got):\n%s", formatted, diff)
		}
		if len(parsed.Invalid) != 0 {
			t.Fatalf("round trip of %q produced invalid tokens %v", formatted, parsed.Invalid)
		}
		if again := Format(IDs(formatted)); again != formatted {
			t.Fatalf("Format not idempotent: %q -> %q", formatted, again)
		}
	}
}

func TestReferences(t *testing.T) {
	tests := []struct {
		value string
		id    ID
		want  bool
	}{
		{value: "12", id: 12, want: true},
		{value: "1 12,5", id: 12, want: true},
		{value: "5,12", id: 12, want: true},
		{value: "123", id: 12, want: false},
		{value: "212", id: 12, want: false},
		{value: "1212", id: 12, want: false},
		{value: "x12 12x", id: 12, want: false},
		{value: "", id: 12, want: false},
	}
	for _, tt := range tests {
		if got := References(tt.value, tt.id); got != tt.want {
			t.Errorf("References(%q, %d) = %v, want %v", tt.value, tt.id, got, tt.want)
		}
	}
}

func TestLikePattern(t *testing.T) {
	if got := LikePattern(12); got != "% 12 %" {
		t.Fatalf("LikePattern(12) = %q", got)
	}
}

func TestDiff(t *testing.T) {
	added, removed := Diff("1 2 3", "3,4 5 x")
	if diff := cmp.Diff([]ID{4, 5}, added); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ID{1, 2}, removed); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}

	added, removed = Diff("", "")
	if len(added) != 0 || len(removed) != 0 {
		t.Errorf("Diff of empty values = %v, %v", added, removed)
	}
}

var errMissing = errors.New("missing")

func existing(ids ...ID) ExistsFunc {
	known := idSet(ids...)
	return func(_ context.Context, id ID) error {
		if _, ok := known[id]; ok {
			return nil
		}
		return fmt.Errorf("ticket %d does not exist: %w", id, errMissing)
	}
}

func TestValidateSelfReferenceAndInvalidToken(t *testing.T) {
	normalized, problems := Validate(context.Background(), 7, "7 8 a", existing(7, 8), "Dependencies", nil)

	want := []Problem{
		{Field: "Dependencies", Message: `not a decimal ticket ID: "a"`},
		{Field: "Dependencies", Message: "ticket must not depend on itself"},
	}
	if diff := cmp.Diff(want, problems); diff != "" {
		t.Errorf("problems mismatch (-want +got):\n%s", diff)
	}
	if normalized != "7 8" {
		t.Errorf("normalized = %q, want %q", normalized, "7 8")
	}
}

func TestValidateOrdering(t *testing.T) {
	_, problems := Validate(context.Background(), 0, "b 30 a 4 , 100", existing(), "F", nil)

	want := []Problem{
		{Field: "F", Message: `not a decimal ticket ID: "a"`},
		{Field: "F", Message: `not a decimal ticket ID: "b"`},
		{Field: "F", Message: "ticket 4 does not exist: missing"},
		{Field: "F", Message: "ticket 30 does not exist: missing"},
		{Field: "F", Message: "ticket 100 does not exist: missing"},
	}
	if diff := cmp.Diff(want, problems); diff != "" {
		t.Errorf("problems mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateNewTicketSkipsSelfCheck(t *testing.T) {
	normalized, problems := Validate(context.Background(), 0, "0,3", existing(0, 3), "F", nil)
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if normalized != "0 3" {
		t.Fatalf("normalized = %q", normalized)
	}
}

func TestValidateEmpty(t *testing.T) {
	calls := 0
	exists := func(context.Context, ID) error {
		calls++
		return nil
	}
	normalized, problems := Validate(context.Background(), 3, "  , ", exists, "F", nil)
	if normalized != "" || len(problems) != 0 || calls != 0 {
		t.Fatalf("got %q, %v, %d lookups", normalized, problems, calls)
	}
}

func TestValidateTranslatesMessages(t *testing.T) {
	translate := func(key string) string {
		switch key {
		case MsgInvalidToken:
			return "keine Ticket-ID: {token}"
		case MsgSelfRef:
			return "selbst"
		}
		return key
	}
	_, problems := Validate(context.Background(), 2, "2 q", nil, "F", translate)
	want := []Problem{
		{Field: "F", Message: `keine Ticket-ID: "q"`},
		{Field: "F", Message: "selbst"},
	}
	if diff := cmp.Diff(want, problems); diff != "" {
		t.Errorf("problems mismatch (-want +got):\n%s", diff)
	}
}
