package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bid-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS bids (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	difficulty        TEXT NOT NULL,
	difficulty_factor REAL NOT NULL,
	items             TEXT NOT NULL,
	locked            INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS recaps (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	bid_id     TEXT NOT NULL REFERENCES bids(id),
	sell_price REAL NOT NULL,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS history (
	id             TEXT PRIMARY KEY,
	client         TEXT NOT NULL,
	job_type       TEXT NOT NULL,
	value          REAL NOT NULL,
	margin_percent REAL NOT NULL,
	outcome        TEXT NOT NULL CHECK (outcome IN ('WON', 'LOST')),
	competitor     TEXT,
	recorded_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS assemblies (
	sku                TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	material_unit_cost REAL NOT NULL,
	labor_unit_hours   REAL NOT NULL,
	category           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_recaps_bid_id ON recaps(bid_id);
CREATE INDEX IF NOT EXISTS idx_history_client ON history(client);
CREATE INDEX IF NOT EXISTS idx_history_competitor ON history(competitor);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBid inserts the bid or replaces a previously saved version.
func (s *SQLiteStore) SaveBid(ctx context.Context, bid *model.Bid) error {
	itemsJSON, err := json.Marshal(bid.Lines())
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal items")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bids (id, name, difficulty, difficulty_factor, items, locked, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   difficulty = excluded.difficulty,
		   difficulty_factor = excluded.difficulty_factor,
		   items = excluded.items,
		   locked = excluded.locked,
		   updated_at = excluded.updated_at`,
		bid.ID, bid.Name, string(bid.Difficulty), bid.DifficultyFactor, string(itemsJSON),
		bid.Locked, bid.CreatedAt.UTC(), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save bid %s", bid.ID)
}

// GetBid loads a bid by id.
func (s *SQLiteStore) GetBid(ctx context.Context, id string) (*model.Bid, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, difficulty, difficulty_factor, items, locked, created_at FROM bids WHERE id = ?`,
		id,
	)

	var b model.Bid
	var itemsJSON string
	err := row.Scan(&b.ID, &b.Name, &b.Difficulty, &b.DifficultyFactor, &itemsJSON, &b.Locked, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: bid %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get bid %s", id)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &b.Items); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal items")
	}
	return &b, nil
}

// SaveRecap appends a recap for its bid.
func (s *SQLiteStore) SaveRecap(ctx context.Context, recap model.Recap) error {
	data, err := json.Marshal(recap)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal recap")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO recaps (bid_id, sell_price, data, created_at) VALUES (?, ?, ?, ?)`,
		recap.BidID, recap.SellPrice, string(data), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save recap for %s", recap.BidID)
}

// ListRecaps returns the recaps of a bid, oldest first.
func (s *SQLiteStore) ListRecaps(ctx context.Context, bidID string) ([]model.Recap, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM recaps WHERE bid_id = ? ORDER BY id`,
		bidID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list recaps")
	}
	defer rows.Close() //nolint:errcheck

	var recaps []model.Recap
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recap")
		}
		var r model.Recap
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal recap")
		}
		recaps = append(recaps, r)
	}
	return recaps, eris.Wrap(rows.Err(), "sqlite: list recaps iterate")
}

const sqliteInsertHistory = `INSERT INTO history (id, client, job_type, value, margin_percent, outcome, competitor, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// AppendHistory stores one historical bid.
func (s *SQLiteStore) AppendHistory(ctx context.Context, rec model.HistoricalBid) error {
	_, err := s.db.ExecContext(ctx, sqliteInsertHistory, historyArgs(rec)...)
	return eris.Wrapf(err, "sqlite: append history %s", rec.ID)
}

// ListHistory returns every historical bid in recording order.
func (s *SQLiteStore) ListHistory(ctx context.Context) ([]model.HistoricalBid, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client, job_type, value, margin_percent, outcome, competitor, recorded_at
		 FROM history ORDER BY recorded_at, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list history")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.HistoricalBid
	for rows.Next() {
		var h model.HistoricalBid
		var competitor sql.NullString
		if err := rows.Scan(&h.ID, &h.Client, &h.JobType, &h.Value, &h.MarginPercent, &h.Outcome, &competitor, &h.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history")
		}
		if competitor.Valid {
			name := competitor.String
			h.Competitor = &name
		}
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list history iterate")
}

// ImportHistory inserts records in a single transaction. Either every
// record is stored or none is.
func (s *SQLiteStore) ImportHistory(ctx context.Context, recs []model.HistoricalBid) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import history: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsertHistory)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import history: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, historyArgs(rec)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: import history %s", rec.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import history: commit")
	}
	return int64(len(recs)), nil
}

// ListAssemblies returns every stored assembly ordered by SKU.
func (s *SQLiteStore) ListAssemblies(ctx context.Context) ([]model.Assembly, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sku, name, description, material_unit_cost, labor_unit_hours, category FROM assemblies ORDER BY sku`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assemblies")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Assembly
	for rows.Next() {
		var a model.Assembly
		if err := rows.Scan(&a.SKU, &a.Name, &a.Description, &a.MaterialUnitCost, &a.LaborUnitHours, &a.Category); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assembly")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list assemblies iterate")
}

// GetAssembly returns the assembly for sku, or (nil, nil) when unknown.
func (s *SQLiteStore) GetAssembly(ctx context.Context, sku string) (*model.Assembly, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT sku, name, description, material_unit_cost, labor_unit_hours, category FROM assemblies WHERE sku = ?`,
		sku,
	)
	var a model.Assembly
	err := row.Scan(&a.SKU, &a.Name, &a.Description, &a.MaterialUnitCost, &a.LaborUnitHours, &a.Category)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get assembly %s", sku)
	}
	return &a, nil
}

// UpsertAssemblies inserts or updates assemblies by SKU in one transaction.
func (s *SQLiteStore) UpsertAssemblies(ctx context.Context, assemblies []model.Assembly) (int64, error) {
	if len(assemblies) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert assemblies: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO assemblies (sku, name, description, material_unit_cost, labor_unit_hours, category)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (sku) DO UPDATE SET
		   name = excluded.name,
		   description = excluded.description,
		   material_unit_cost = excluded.material_unit_cost,
		   labor_unit_hours = excluded.labor_unit_hours,
		   category = excluded.category`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert assemblies: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, a := range assemblies {
		res, err := stmt.ExecContext(ctx, assemblyArgs(a)...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert assembly %s", a.SKU)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert assemblies: commit")
	}
	return n, nil
}

// helpers

func historyArgs(rec model.HistoricalBid) []any {
	var competitor any
	if rec.Competitor != nil {
		competitor = *rec.Competitor
	}
	return []any{
		rec.ID, rec.Client, rec.JobType, rec.Value, rec.MarginPercent,
		string(rec.Outcome), competitor, rec.RecordedAt.UTC(),
	}
}

func assemblyArgs(a model.Assembly) []any {
	return []any{a.SKU, a.Name, a.Description, a.MaterialUnitCost, a.LaborUnitHours, a.Category}
}
