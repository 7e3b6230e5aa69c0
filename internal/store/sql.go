package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/antigravity-dev/ticketdep/internal/ticketref"
)

// dialect captures the statements that differ between database engines.
type dialect struct {
	name   string
	schema []string
	// referencingSQL selects candidate rows with the LIKE prefilter.
	referencingSQL string
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS ticket (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			summary TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'new',
			time INTEGER NOT NULL DEFAULT 0,
			changetime INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS ticket_custom (
			ticket INTEGER NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (ticket, name)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ticket_custom_name ON ticket_custom(name);`,
	},
	referencingSQL: `SELECT ticket, COALESCE(value, '') FROM ticket_custom
		WHERE name = ?
		  AND ticket != ?
		  AND ' ' || replace(COALESCE(value, ''), ',', ' ') || ' ' LIKE ?;`,
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS ticket (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			summary VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(64) NOT NULL DEFAULT 'new',
			time BIGINT NOT NULL DEFAULT 0,
			changetime BIGINT NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS ticket_custom (
			ticket BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (ticket, name),
			KEY idx_ticket_custom_name (name)
		);`,
	},
	referencingSQL: `SELECT ticket, COALESCE(value, '') FROM ticket_custom
		WHERE name = ?
		  AND ticket != ?
		  AND CONCAT(' ', REPLACE(COALESCE(value, ''), ',', ' '), ' ') LIKE ?;`,
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		return sqliteDialect, nil
	case "mysql":
		return mysqlDialect, nil
	default:
		return dialect{}, fmt.Errorf("store: unsupported driver %q", driver)
	}
}

// Reads coalesce nullable columns: host tracker tables allow NULL where the
// schema created here does not.
const (
	existsSQL       = `SELECT 1 FROM ticket WHERE id = ?;`
	getTicketSQL    = `SELECT id, COALESCE(summary, ''), COALESCE(status, ''), COALESCE(time, 0), COALESCE(changetime, 0) FROM ticket WHERE id = ?;`
	getCustomSQL    = `SELECT name, COALESCE(value, '') FROM ticket_custom WHERE ticket = ?;`
	insertTicketSQL = `INSERT INTO ticket (summary, status, time, changetime) VALUES (?, ?, ?, ?);`
	updateTicketSQL = `UPDATE ticket SET summary = ?, status = ?, changetime = ? WHERE id = ?;`
	deleteCustomSQL = `DELETE FROM ticket_custom WHERE ticket = ? AND name = ?;`
	insertCustomSQL = `INSERT INTO ticket_custom (ticket, name, value) VALUES (?, ?, ?);`
	listTicketsSQL  = `SELECT id, COALESCE(summary, ''), COALESCE(status, ''), COALESCE(time, 0), COALESCE(changetime, 0) FROM ticket ORDER BY id;`
	listCustomSQL   = `SELECT ticket, name, COALESCE(value, '') FROM ticket_custom;`
)

// SQL is a ticket store over the host's ticket and ticket_custom tables.
type SQL struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, driver, dsn string) (*SQL, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	source := dsn
	if d.name == "sqlite" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		source = dsn + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open(d.name, source)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dsn, err)
	}
	if d.name == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	s := &SQL{db: db, dialect: d}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle. The schema is not created.
func New(db *sql.DB, driver string) (*SQL, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQL{db: db, dialect: d}, nil
}

// Close closes the underlying database.
func (s *SQL) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle.
func (s *SQL) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates the ticket tables when they do not exist.
func (s *SQL) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store: not initialized")
	}
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(sanitizeContext(ctx), stmt); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}
	return nil
}

// Exists returns nil when the ticket exists and a *NotFoundError otherwise.
func (s *SQL) Exists(ctx context.Context, id int64) error {
	var marker int
	err := s.db.QueryRowContext(sanitizeContext(ctx), existsSQL, id).Scan(&marker)
	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{ID: id}
	}
	if err != nil {
		return fmt.Errorf("store: lookup ticket %d: %w", id, err)
	}
	return nil
}

// Get loads a ticket with its custom fields.
func (s *SQL) Get(ctx context.Context, id int64) (Ticket, error) {
	ctx = sanitizeContext(ctx)

	var t Ticket
	var created, changed int64
	err := s.db.QueryRowContext(ctx, getTicketSQL, id).Scan(&t.ID, &t.Summary, &t.Status, &created, &changed)
	if errors.Is(err, sql.ErrNoRows) {
		return Ticket{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return Ticket{}, fmt.Errorf("store: get ticket %d: %w", id, err)
	}
	t.Created = time.UnixMicro(created).UTC()
	t.Changed = time.UnixMicro(changed).UTC()

	rows, err := s.db.QueryContext(ctx, getCustomSQL, id)
	if err != nil {
		return Ticket{}, fmt.Errorf("store: get ticket %d fields: %w", id, err)
	}
	defer rows.Close()

	t.Custom = make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Ticket{}, fmt.Errorf("store: scan ticket %d field: %w", id, err)
		}
		t.Custom[name] = value
	}
	if err := rows.Err(); err != nil {
		return Ticket{}, fmt.Errorf("store: get ticket %d fields: %w", id, err)
	}
	return t, nil
}

// List returns every ticket with its custom fields, ordered by id.
func (s *SQL) List(ctx context.Context) ([]Ticket, error) {
	ctx = sanitizeContext(ctx)

	rows, err := s.db.QueryContext(ctx, listTicketsSQL)
	if err != nil {
		return nil, fmt.Errorf("store: list tickets: %w", err)
	}
	var tickets []Ticket
	index := make(map[int64]int)
	for rows.Next() {
		var t Ticket
		var created, changed int64
		if err := rows.Scan(&t.ID, &t.Summary, &t.Status, &created, &changed); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan ticket: %w", err)
		}
		t.Created = time.UnixMicro(created).UTC()
		t.Changed = time.UnixMicro(changed).UTC()
		t.Custom = make(map[string]string)
		index[t.ID] = len(tickets)
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("store: list tickets: %w", err)
	}
	rows.Close()

	custom, err := s.db.QueryContext(ctx, listCustomSQL)
	if err != nil {
		return nil, fmt.Errorf("store: list ticket fields: %w", err)
	}
	defer custom.Close()
	for custom.Next() {
		var id int64
		var name, value string
		if err := custom.Scan(&id, &name, &value); err != nil {
			return nil, fmt.Errorf("store: scan ticket field: %w", err)
		}
		if i, ok := index[id]; ok {
			tickets[i].Custom[name] = value
		}
	}
	if err := custom.Err(); err != nil {
		return nil, fmt.Errorf("store: list ticket fields: %w", err)
	}
	return tickets, nil
}

// Save inserts a new ticket (ID 0, which is then assigned) or updates an
// existing one, writing every custom field in t.
func (s *SQL) Save(ctx context.Context, t *Ticket) error {
	if t == nil {
		return fmt.Errorf("store: ticket is nil")
	}
	ctx = sanitizeContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	status := normalizeStatus(t.Status)

	id := t.ID
	created := t.Created
	if id == 0 {
		res, err := tx.ExecContext(ctx, insertTicketSQL, t.Summary, status, now.UnixMicro(), now.UnixMicro())
		if err != nil {
			return fmt.Errorf("store: insert ticket: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("store: insert ticket: %w", err)
		}
		created = now
	} else {
		res, err := tx.ExecContext(ctx, updateTicketSQL, t.Summary, status, now.UnixMicro(), id)
		if err != nil {
			return fmt.Errorf("store: update ticket %d: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("store: update ticket %d: %w", id, err)
		}
		if affected == 0 {
			return &NotFoundError{ID: id}
		}
	}

	names := make([]string, 0, len(t.Custom))
	for name := range t.Custom {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, deleteCustomSQL, id, name); err != nil {
			return fmt.Errorf("store: write ticket %d field %s: %w", id, name, err)
		}
		if _, err := tx.ExecContext(ctx, insertCustomSQL, id, name, t.Custom[name]); err != nil {
			return fmt.Errorf("store: write ticket %d field %s: %w", id, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit ticket %d: %w", id, err)
	}

	t.ID = id
	t.Status = status
	t.Changed = now
	if t.Created.IsZero() {
		t.Created = created
	}
	return nil
}

// Referencing returns the ids of all tickets other than id whose dependency
// field lists id, ascending. The LIKE prefilter narrows the scan and every
// candidate is re-checked with ticketref.References.
func (s *SQL) Referencing(ctx context.Context, id int64) ([]int64, error) {
	rows, err := s.db.QueryContext(sanitizeContext(ctx), s.dialect.referencingSQL,
		ticketref.FieldName, id, ticketref.LikePattern(id))
	if err != nil {
		return nil, fmt.Errorf("store: query referencing tickets of %d: %w", id, err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var ticket int64
		var value string
		if err := rows.Scan(&ticket, &value); err != nil {
			return nil, fmt.Errorf("store: scan referencing ticket: %w", err)
		}
		if ticketref.References(value, id) {
			out = append(out, ticket)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: query referencing tickets of %d: %w", id, err)
	}

	slices.Sort(out)
	return slices.Compact(out), nil
}

func sanitizeContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
