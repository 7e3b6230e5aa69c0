// Package i18n provides the translation function handed to every component
// that produces user-facing text.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/antigravity-dev/ticketdep/internal/ticketref"
)

// Message keys shared across packages.
const (
	KeyLabel   = ticketref.DefaultLabel
	KeyLegend  = "(A ► B: A depends on B)"
	KeyAdded   = "added"
	KeyRemoved = "removed"

	KeyNotFound = "ticket {id} does not exist"
)

// Translator maps a message key to localized text. Keys without a
// translation are returned unchanged.
type Translator func(key string) string

// Identity returns every key unchanged.
func Identity(key string) string { return key }

var translations = map[language.Tag]map[string]string{
	language.German: {
		KeyLabel:                  "Abhängigkeiten",
		KeyLegend:                 "(A ► B: A hängt von B ab)",
		KeyAdded:                  "hinzugefügt",
		KeyRemoved:                "entfernt",
		KeyNotFound:               "Ticket {id} existiert nicht",
		ticketref.MsgInvalidToken: "keine (dezimale) Ticket-ID: {token}",
		ticketref.MsgSelfRef:      "Ticket darf nicht von sich selbst abhängen",
	},
}

func newCatalog() (*catalog.Builder, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range translations {
		for key, text := range msgs {
			if err := b.SetString(tag, key, text); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

// New builds a Translator for the given BCP 47 locale. An empty or
// unrecognised locale yields English.
func New(locale string) (Translator, error) {
	cat, err := newCatalog()
	if err != nil {
		return nil, err
	}

	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			supported := append([]language.Tag{language.English}, cat.Languages()...)
			_, idx, conf := language.NewMatcher(supported).Match(parsed)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}

	p := message.NewPrinter(tag, message.Catalog(cat))
	return func(key string) string {
		return p.Sprintf(key)
	}, nil
}
