package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/dialect/sql/sqlgraph"
	"entgo.io/ent/schema/field"

	"github.com/abhisek/socratic/internal/session"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

const (
	sessionsTable    = "sessions"
	llmRequestsTable = "llm_requests"
)

// SQLStore keeps each session as a JSON document in a single row and the
// LLM request log in its own table. Statements are built with ent's SQL
// builder so the same code serves SQLite and Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// conn is the subset of *sql.DB and *sql.Tx the store uses.
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open creates a SQLStore backed by the SQLite database at dsn.
func Open(dsn string) (*SQLStore, error) {
	return OpenSQL(DriverSQLite, dsn)
}

// OpenSQL opens dsn with the given driver, applies SQLite pragmas when
// relevant and creates missing tables.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("open %s: empty dsn", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if d == dialect.SQLite {
		// One connection keeps per-connection pragmas and in-memory
		// databases consistent.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	s := &SQLStore{db: db, dialect: d, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return s, nil
}

func dialectFor(driver string) (string, error) {
	switch driver {
	case DriverSQLite:
		return dialect.SQLite, nil
	case DriverPostgres:
		return dialect.Postgres, nil
	}
	return "", fmt.Errorf("unsupported sql driver %q", driver)
}

// applyPragmas configures SQLite for a single-process server.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// tables describes the store's schema for ent's migrator. Text columns
// are unbounded on Postgres; SQLite maps every string to TEXT.
func tables() []*schema.Table {
	text := func(name string) *schema.Column {
		return &schema.Column{Name: name, Type: field.TypeString, SchemaType: map[string]string{dialect.Postgres: "text"}}
	}
	str := func(name string, size int64) *schema.Column {
		return &schema.Column{Name: name, Type: field.TypeString, Size: size}
	}
	i64 := func(name string) *schema.Column {
		return &schema.Column{Name: name, Type: field.TypeInt64}
	}

	sessions := schema.NewTable(sessionsTable).
		AddPrimary(str("code", 16)).
		AddColumn(text("data")).
		AddColumn(i64("created_at")).
		AddColumn(i64("expires_at")).
		AddColumn(i64("updated_at"))
	sessions.AddIndex("sessions_expires_at", false, []string{"expires_at"})

	requests := schema.NewTable(llmRequestsTable).
		AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt64, Increment: true}).
		AddColumn(i64("created_at")).
		AddColumn(str("provider", 32)).
		AddColumn(str("model", 128)).
		AddColumn(str("purpose", 64)).
		AddColumn(&schema.Column{Name: "input_tokens", Type: field.TypeInt}).
		AddColumn(&schema.Column{Name: "output_tokens", Type: field.TypeInt}).
		AddColumn(i64("latency_ms")).
		AddColumn(&schema.Column{Name: "success", Type: field.TypeBool}).
		AddColumn(text("error_message")).
		AddColumn(text("request_body")).
		AddColumn(text("response_body"))
	requests.AddIndex("llm_requests_purpose", false, []string{"purpose"})

	return []*schema.Table{sessions, requests}
}

// migrate creates missing tables and columns. It never drops anything.
func (s *SQLStore) migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(entsql.OpenDB(s.dialect, s.db), schema.WithForeignKeys(false))
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, tables()...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// EventRepo returns the LLM request log backed by this store.
func (s *SQLStore) EventRepo() EventRepo {
	return &sqlEventRepo{store: s}
}

func (s *SQLStore) Get(ctx context.Context, code string) (*session.Session, error) {
	return s.load(ctx, s.db, code, false)
}

func (s *SQLStore) load(ctx context.Context, c conn, code string, forUpdate bool) (*session.Session, error) {
	b := s.builder()
	sel := b.Select("data").From(b.Table(sessionsTable)).Where(entsql.EQ("code", code))
	if forUpdate && s.dialect == dialect.Postgres {
		sel.ForUpdate()
	}
	query, args := sel.Query()

	var data string
	if err := c.QueryRowContext(ctx, query, args...).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(code)
		}
		return nil, fmt.Errorf("load session %s: %w", code, err)
	}

	var out session.Session
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", code, err)
	}
	return live(&out, code, s.now())
}

func (s *SQLStore) Create(ctx context.Context, sess *session.Session) error {
	if err := checkWrite(sess); err != nil {
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		// An expired row no longer owns its code.
		del, args := s.builder().Delete(sessionsTable).
			Where(entsql.And(
				entsql.EQ("code", sess.Code),
				entsql.GT("expires_at", 0),
				entsql.LTE("expires_at", s.now().Unix()),
			)).Query()
		if _, err := tx.ExecContext(ctx, del, args...); err != nil {
			return fmt.Errorf("clear expired session: %w", err)
		}

		now := s.now().Unix()
		ins, args := s.builder().Insert(sessionsTable).
			Columns("code", "data", "created_at", "expires_at", "updated_at").
			Values(sess.Code, string(data), sess.CreatedAt.Unix(), expiresUnix(sess), now).
			Query()
		if _, err := tx.ExecContext(ctx, ins, args...); err != nil {
			if sqlgraph.IsUniqueConstraintError(err) {
				return codeTaken(sess.Code)
			}
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) Put(ctx context.Context, sess *session.Session) error {
	if err := checkWrite(sess); err != nil {
		return err
	}
	return s.write(ctx, s.db, sess)
}

// write upserts sess. Callers validate first.
func (s *SQLStore) write(ctx context.Context, c conn, sess *session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	query, args := s.builder().Insert(sessionsTable).
		Columns("code", "data", "created_at", "expires_at", "updated_at").
		Values(sess.Code, string(data), sess.CreatedAt.Unix(), expiresUnix(sess), s.now().Unix()).
		OnConflict(entsql.ConflictColumns("code"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := c.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("write session %s: %w", sess.Code, err)
	}
	return nil
}

// Update reads, merges and writes the session inside one transaction. On
// Postgres the row is locked with SELECT ... FOR UPDATE; SQLite serializes
// writers on its own.
func (s *SQLStore) Update(ctx context.Context, code string, p session.Patch) (*session.Session, error) {
	var out *session.Session
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := s.load(ctx, tx, code, true)
		if err != nil {
			return err
		}
		cur.Apply(p)
		if err := checkWrite(cur); err != nil {
			return err
		}
		if err := s.write(ctx, tx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) Delete(ctx context.Context, code string) error {
	query, args := s.builder().Delete(sessionsTable).Where(entsql.EQ("code", code)).Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", code, err)
	}
	if n == 0 {
		return notFound(code)
	}
	return nil
}

func (s *SQLStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	query, args := s.builder().Delete(sessionsTable).
		Where(entsql.And(
			entsql.GT("expires_at", 0),
			entsql.LTE("expires_at", now.Unix()),
		)).Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	return int(n), nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func expiresUnix(s *session.Session) int64 {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	return s.ExpiresAt.Unix()
}
