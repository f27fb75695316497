package state

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/leapstack-labs/dark/internal/fields"
	"github.com/leapstack-labs/dark/internal/graph"
	"github.com/leapstack-labs/dark/pkg/core"
)

// dialect captures the differences between supported SQL databases.
type dialect struct {
	name       string
	driver     string
	goose      string
	dir        string
	dollarArgs bool
}

var (
	sqliteDialect   = dialect{name: DriverSQLite, driver: "sqlite", goose: "sqlite3", dir: "sqlite"}
	postgresDialect = dialect{name: DriverPostgres, driver: "pgx", goose: "postgres", dir: "postgres", dollarArgs: true}
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return sqliteDialect, nil
	case DriverPostgres:
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported SQL driver %q", driver)
	}
}

// rebind rewrites ? placeholders for dialects that number their arguments.
func (d dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore keeps snapshots in SQLite or PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	keep    int
	fields  *fields.Registry
	logger  *slog.Logger
}

// OpenSQL opens the database named by cfg and migrates it.
func OpenSQL(ctx context.Context, cfg Config) (*SQLStore, error) {
	cfg.applyDefaults()

	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.DSN
	if d.name == DriverSQLite {
		if dsn, err = sqliteDSN(cfg.DSN); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.name, err)
	}
	if d.name == DriverSQLite {
		// One connection: in-memory databases are per connection and
		// commits are serialized anyway.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.name, err)
	}

	s := NewSQLStore(db, d.name, cfg)
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	cfg.Logger.Debug("opened snapshot store", slog.String("driver", d.name))
	return s, nil
}

// NewSQLStore wraps an open database. It does not run migrations.
func NewSQLStore(db *sql.DB, driver string, cfg Config) *SQLStore {
	cfg.applyDefaults()
	d, err := dialectFor(driver)
	if err != nil {
		d = sqliteDialect
	}
	return &SQLStore{
		db:      db,
		dialect: d,
		keep:    cfg.KeepSnapshots,
		fields:  cfg.Fields,
		logger:  cfg.Logger,
	}
}

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// sqliteDSN creates the database's directory and appends the connection
// pragmas. Plain paths and file: URIs are accepted, with or without a query.
func sqliteDSN(dsn string) (string, error) {
	if dsn == "" || dsn == ":memory:" {
		return ":memory:", nil
	}

	path, _, hasQuery := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if path != "" && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return "", fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	sep := "?"
	if hasQuery {
		sep = "&"
	}
	return dsn + sep + sqlitePragmas, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save writes g as a new snapshot in a single transaction.
func (s *SQLStore) Save(ctx context.Context, g *graph.Graph) (SnapshotInfo, error) {
	doc := Encode(g)
	doc.ID = uuid.New().String()
	doc.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	if err := s.insert(ctx, doc); err != nil {
		return SnapshotInfo{}, core.Wrap(core.KindPersistenceError, err, "save snapshot")
	}

	s.logger.Debug("saved snapshot", slog.String("id", doc.ID), slog.Int("nodes", len(doc.Nodes)))

	if s.keep > 0 {
		if removed, err := s.Prune(ctx, s.keep); err != nil {
			s.logger.Warn("failed to prune snapshots", slog.String("error", err.Error()))
		} else if removed > 0 {
			s.logger.Debug("pruned snapshots", slog.Int("removed", removed))
		}
	}

	return summarize(doc), nil
}

func (s *SQLStore) insert(ctx context.Context, doc Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	err = tx.QueryRowContext(ctx, s.dialect.rebind(
		`INSERT INTO snapshots (id, format_version, created_at) VALUES (?, ?, ?) RETURNING seq`),
		doc.ID, doc.Version, doc.CreatedAt.UnixMicro(),
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	for _, n := range doc.Nodes {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(
			`INSERT INTO snapshot_nodes (snapshot_seq, name, role, x, y) VALUES (?, ?, ?, ?, ?)`),
			seq, n.Name, n.Role, n.X, n.Y,
		); err != nil {
			return fmt.Errorf("insert node %s: %w", n.Name, err)
		}
	}

	for _, ds := range doc.Datastores {
		for i, f := range ds.Fields {
			if _, err := tx.ExecContext(ctx, s.dialect.rebind(
				`INSERT INTO snapshot_fields (snapshot_seq, datastore, position, name, type) VALUES (?, ?, ?, ?, ?)`),
				seq, ds.Name, i, f.Name, f.Type,
			); err != nil {
				return fmt.Errorf("insert field %s.%s: %w", ds.Name, f.Name, err)
			}
		}
		for i, rec := range ds.Records {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode record %s[%d]: %w", ds.Name, i, err)
			}
			if _, err := tx.ExecContext(ctx, s.dialect.rebind(
				`INSERT INTO snapshot_records (snapshot_seq, datastore, position, data) VALUES (?, ?, ?, ?)`),
				seq, ds.Name, i, string(data),
			); err != nil {
				return fmt.Errorf("insert record %s[%d]: %w", ds.Name, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Load returns the graph stored in the newest snapshot.
func (s *SQLStore) Load(ctx context.Context) (*graph.Graph, error) {
	var (
		seq       int64
		id        string
		version   int
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT seq, id, format_version, created_at FROM snapshots ORDER BY seq DESC LIMIT 1`,
	).Scan(&seq, &id, &version, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.New(), nil
	}
	if err != nil {
		return nil, core.Wrap(core.KindPersistenceError, err, "get latest snapshot")
	}

	doc := Document{Version: version, ID: id, CreatedAt: time.UnixMicro(createdAt).UTC()}
	if err := s.readDocument(ctx, seq, &doc); err != nil {
		return nil, core.Wrap(core.KindPersistenceError, err, fmt.Sprintf("read snapshot %s", id))
	}

	g, err := Decode(doc, s.fields)
	if err != nil {
		return nil, corrupt(id, err)
	}
	return g, nil
}

func (s *SQLStore) readDocument(ctx context.Context, seq int64, doc *Document) error {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT name, role, x, y FROM snapshot_nodes WHERE snapshot_seq = ? ORDER BY name`), seq)
	if err != nil {
		return fmt.Errorf("query nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	index := make(map[string]int)
	for rows.Next() {
		var n NodeDoc
		if err := rows.Scan(&n.Name, &n.Role, &n.X, &n.Y); err != nil {
			return fmt.Errorf("scan node: %w", err)
		}
		doc.Nodes = append(doc.Nodes, n)
		if n.Role == graph.RoleDatastore.String() {
			index[n.Name] = len(doc.Datastores)
			doc.Datastores = append(doc.Datastores, DatastoreDoc{Name: n.Name, Fields: []fields.Field{}})
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	fieldRows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT datastore, name, type FROM snapshot_fields WHERE snapshot_seq = ? ORDER BY datastore, position`), seq)
	if err != nil {
		return fmt.Errorf("query fields: %w", err)
	}
	defer func() { _ = fieldRows.Close() }()

	for fieldRows.Next() {
		var ds string
		var f fields.Field
		if err := fieldRows.Scan(&ds, &f.Name, &f.Type); err != nil {
			return fmt.Errorf("scan field: %w", err)
		}
		i, ok := index[ds]
		if !ok {
			return fmt.Errorf("field %q belongs to unknown datastore %q", f.Name, ds)
		}
		doc.Datastores[i].Fields = append(doc.Datastores[i].Fields, f)
	}
	if err := fieldRows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	recordRows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT datastore, data FROM snapshot_records WHERE snapshot_seq = ? ORDER BY datastore, position`), seq)
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = recordRows.Close() }()

	for recordRows.Next() {
		var ds, data string
		if err := recordRows.Scan(&ds, &data); err != nil {
			return fmt.Errorf("scan record: %w", err)
		}
		i, ok := index[ds]
		if !ok {
			return fmt.Errorf("record belongs to unknown datastore %q", ds)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return fmt.Errorf("decode record of %q: %w", ds, err)
		}
		doc.Datastores[i].Records = append(doc.Datastores[i].Records, rec)
	}
	return recordRows.Err()
}

// decodeRecord keeps numbers as json.Number so integers beyond 2^53 survive.
func decodeRecord(data string) (fields.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var rec fields.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Snapshots lists stored snapshots, newest first.
func (s *SQLStore) Snapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.created_at,
		       (SELECT COUNT(*) FROM snapshot_nodes n WHERE n.snapshot_seq = s.seq),
		       (SELECT COUNT(*) FROM snapshot_nodes n WHERE n.snapshot_seq = s.seq AND n.role = 'datastore')
		FROM snapshots s
		ORDER BY s.seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var createdAt int64
		if err := rows.Scan(&info.ID, &createdAt, &info.Nodes, &info.Datastores); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		info.CreatedAt = time.UnixMicro(createdAt).UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// Prune removes all but the newest keep snapshots.
func (s *SQLStore) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("keep must be at least 1, got %d", keep)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const stale = `snapshot_seq NOT IN (SELECT seq FROM snapshots ORDER BY seq DESC LIMIT ?)`
	for _, table := range []string{"snapshot_records", "snapshot_fields", "snapshot_nodes"} {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM `+table+` WHERE `+stale), keep); err != nil {
			return 0, fmt.Errorf("prune %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM snapshots WHERE seq NOT IN (SELECT seq FROM snapshots ORDER BY seq DESC LIMIT ?)`), keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	removed, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return int(removed), nil
}
