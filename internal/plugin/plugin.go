// Package plugin wires the dependency field into the host tracker's
// extension points: environment setup, ticket validation and the data the
// ticket and change-history views render.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/antigravity-dev/ticketdep/internal/config"
	"github.com/antigravity-dev/ticketdep/internal/i18n"
	"github.com/antigravity-dev/ticketdep/internal/store"
	"github.com/antigravity-dev/ticketdep/internal/ticketref"
)

// EnvironmentSetupParticipant is called by the host when an environment is
// created or checked for upgrades.
type EnvironmentSetupParticipant interface {
	EnvironmentCreated(ctx context.Context) error
	EnvironmentNeedsUpgrade(ctx context.Context) (bool, error)
	UpgradeEnvironment(ctx context.Context) error
}

// TicketManipulator is called by the host before a ticket is saved.
// Problems returned by ValidateTicket block the save.
type TicketManipulator interface {
	PrepareTicket(ctx context.Context, t *store.Ticket)
	ValidateTicket(ctx context.Context, t *store.Ticket) []ticketref.Problem
}

// TicketStore is the host storage the plugin reads from.
type TicketStore interface {
	Exists(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (store.Ticket, error)
	Referencing(ctx context.Context, id int64) ([]int64, error)
}

// Field is the definition registered for the dependency field.
var Field = config.CustomField{
	Type:  "textarea",
	Label: ticketref.DefaultLabel,
	Cols:  68,
	Rows:  1,
}

// Plugin implements the dependency relationship between tickets.
type Plugin struct {
	cfg       config.ConfigManager
	store     TicketStore
	translate i18n.Translator
	logger    *slog.Logger
}

// New creates the plugin. translate and logger may be nil.
func New(cfg config.ConfigManager, st TicketStore, translate i18n.Translator, logger *slog.Logger) *Plugin {
	if translate == nil {
		translate = i18n.Identity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{
		cfg:       cfg,
		store:     st,
		translate: translate,
		logger:    logger,
	}
}

// EnvironmentCreated registers the dependency field in a new environment.
func (p *Plugin) EnvironmentCreated(ctx context.Context) error {
	return p.UpgradeEnvironment(ctx)
}

// EnvironmentNeedsUpgrade reports whether the dependency field is missing.
func (p *Plugin) EnvironmentNeedsUpgrade(_ context.Context) (bool, error) {
	cfg := p.cfg.Get()
	if cfg == nil {
		return false, fmt.Errorf("plugin: config not loaded")
	}
	return !cfg.HasCustomField(ticketref.FieldName), nil
}

// UpgradeEnvironment adds the dependency field definition and saves the
// configuration. An existing definition is left untouched.
func (p *Plugin) UpgradeEnvironment(ctx context.Context) error {
	needed, err := p.EnvironmentNeedsUpgrade(ctx)
	if err != nil {
		return err
	}
	if !needed {
		p.logger.Debug("custom field already defined", "field", ticketref.FieldName)
		return nil
	}

	cfg := p.cfg.Get().Clone()
	cfg.TicketCustom[ticketref.FieldName] = Field
	p.cfg.Set(cfg)
	if err := p.cfg.Save(); err != nil {
		return fmt.Errorf("plugin: save config: %w", err)
	}

	p.logger.Info("custom field added", "field", ticketref.FieldName, "config", p.cfg.Path())
	return nil
}

// PrepareTicket does nothing; the field needs no preparation.
func (p *Plugin) PrepareTicket(context.Context, *store.Ticket) {}

// ValidateTicket checks the ticket's dependency field and rewrites it in
// canonical form, whether or not problems were found.
func (p *Plugin) ValidateTicket(ctx context.Context, t *store.Ticket) []ticketref.Problem {
	if t == nil {
		return nil
	}
	normalized, problems := ticketref.Validate(ctx, t.ID, t.Field(ticketref.FieldName), p.exists, p.fieldLabel(), p.translate)
	t.SetField(ticketref.FieldName, normalized)

	if len(problems) > 0 {
		p.logger.Debug("ticket rejected", "ticket", t.ID, "problems", len(problems))
	}
	return problems
}

// Label returns the localized label of the dependency field.
func (p *Plugin) Label() string {
	return p.translate(i18n.KeyLabel)
}

// Legend returns the localized explanation of the link arrows.
func (p *Plugin) Legend() string {
	return p.translate(i18n.KeyLegend)
}

// fieldLabel is the configured label used to attribute problems.
func (p *Plugin) fieldLabel() string {
	if label := p.cfg.Get().FieldLabel(ticketref.FieldName); label != "" {
		return label
	}
	return p.Label()
}

func (p *Plugin) exists(ctx context.Context, id int64) error {
	err := p.store.Exists(ctx, id)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrTicketNotFound) {
		msg := strings.ReplaceAll(p.translate(i18n.KeyNotFound), "{id}", strconv.FormatInt(id, 10))
		return errors.New(msg)
	}
	p.logger.Warn("ticket lookup failed", "ticket", id, "error", err)
	return err
}

var (
	_ EnvironmentSetupParticipant = (*Plugin)(nil)
	_ TicketManipulator           = (*Plugin)(nil)
)
