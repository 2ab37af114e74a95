package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/db"
	"github.com/sells-group/bid-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	pgSaveBid = `INSERT INTO bids (id, name, difficulty, difficulty_factor, items, locked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
		  name = EXCLUDED.name,
		  difficulty = EXCLUDED.difficulty,
		  difficulty_factor = EXCLUDED.difficulty_factor,
		  items = EXCLUDED.items,
		  locked = EXCLUDED.locked,
		  updated_at = EXCLUDED.updated_at`
	pgGetBid         = `SELECT id, name, difficulty, difficulty_factor, items, locked, created_at FROM bids WHERE id = $1`
	pgSaveRecap      = `INSERT INTO recaps (bid_id, sell_price, data, created_at) VALUES ($1, $2, $3, $4)`
	pgListRecaps     = `SELECT data FROM recaps WHERE bid_id = $1 ORDER BY id`
	pgAppendHistory  = `INSERT INTO history (id, client, job_type, value, margin_percent, outcome, competitor, recorded_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	pgListHistory    = `SELECT id, client, job_type, value, margin_percent, outcome, competitor, recorded_at FROM history ORDER BY recorded_at, id`
	pgListAssemblies = `SELECT sku, name, description, material_unit_cost, labor_unit_hours, category FROM assemblies ORDER BY sku`
	pgGetAssembly    = `SELECT sku, name, description, material_unit_cost, labor_unit_hours, category FROM assemblies WHERE sku = $1`
)

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"save_bid":       pgSaveBid,
	"get_bid":        pgGetBid,
	"save_recap":     pgSaveRecap,
	"list_recaps":    pgListRecaps,
	"append_history": pgAppendHistory,
	"list_history":   pgListHistory,
	"get_assembly":   pgGetAssembly,
}

var (
	historyColumns  = []string{"id", "client", "job_type", "value", "margin_percent", "outcome", "competitor", "recorded_at"}
	assemblyColumns = []string{"sku", "name", "description", "material_unit_cost", "labor_unit_hours", "category"}
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	zap.L().Info("postgres: connected", zap.Int32("max_conns", maxConns), zap.Int32("min_conns", minConns))
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS bids (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	difficulty        TEXT NOT NULL,
	difficulty_factor DOUBLE PRECISION NOT NULL,
	items             JSONB NOT NULL,
	locked            BOOLEAN NOT NULL DEFAULT false,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS recaps (
	id         BIGSERIAL PRIMARY KEY,
	bid_id     TEXT NOT NULL REFERENCES bids(id),
	sell_price DOUBLE PRECISION NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS history (
	id             TEXT PRIMARY KEY,
	client         TEXT NOT NULL,
	job_type       TEXT NOT NULL,
	value          DOUBLE PRECISION NOT NULL,
	margin_percent DOUBLE PRECISION NOT NULL,
	outcome        TEXT NOT NULL CHECK (outcome IN ('WON', 'LOST')),
	competitor     TEXT,
	recorded_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assemblies (
	sku                TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	material_unit_cost DOUBLE PRECISION NOT NULL,
	labor_unit_hours   DOUBLE PRECISION NOT NULL,
	category           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_recaps_bid_id ON recaps(bid_id);
CREATE INDEX IF NOT EXISTS idx_history_client ON history(client);
CREATE INDEX IF NOT EXISTS idx_history_competitor ON history(lower(competitor));
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveBid inserts the bid or replaces a previously saved version.
func (s *PostgresStore) SaveBid(ctx context.Context, bid *model.Bid) error {
	itemsJSON, err := json.Marshal(bid.Lines())
	if err != nil {
		return eris.Wrap(err, "postgres: marshal items")
	}
	_, err = s.pool.Exec(ctx, pgSaveBid,
		bid.ID, bid.Name, string(bid.Difficulty), bid.DifficultyFactor, itemsJSON,
		bid.Locked, bid.CreatedAt.UTC(), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save bid %s", bid.ID)
}

// GetBid loads a bid by id.
func (s *PostgresStore) GetBid(ctx context.Context, id string) (*model.Bid, error) {
	var b model.Bid
	var difficulty string
	var itemsJSON []byte
	err := s.pool.QueryRow(ctx, pgGetBid, id).
		Scan(&b.ID, &b.Name, &difficulty, &b.DifficultyFactor, &itemsJSON, &b.Locked, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: bid %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get bid %s", id)
	}
	b.Difficulty = model.DifficultyCategory(difficulty)
	if err := json.Unmarshal(itemsJSON, &b.Items); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal items")
	}
	return &b, nil
}

// SaveRecap appends a recap for its bid.
func (s *PostgresStore) SaveRecap(ctx context.Context, recap model.Recap) error {
	data, err := json.Marshal(recap)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal recap")
	}
	_, err = s.pool.Exec(ctx, pgSaveRecap, recap.BidID, recap.SellPrice, data, time.Now().UTC())
	return eris.Wrapf(err, "postgres: save recap for %s", recap.BidID)
}

// ListRecaps returns the recaps of a bid, oldest first.
func (s *PostgresStore) ListRecaps(ctx context.Context, bidID string) ([]model.Recap, error) {
	rows, err := s.pool.Query(ctx, pgListRecaps, bidID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list recaps")
	}
	defer rows.Close()

	var recaps []model.Recap
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan recap")
		}
		var r model.Recap
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal recap")
		}
		recaps = append(recaps, r)
	}
	return recaps, eris.Wrap(rows.Err(), "postgres: list recaps iterate")
}

// AppendHistory stores one historical bid.
func (s *PostgresStore) AppendHistory(ctx context.Context, rec model.HistoricalBid) error {
	_, err := s.pool.Exec(ctx, pgAppendHistory, historyArgs(rec)...)
	return eris.Wrapf(err, "postgres: append history %s", rec.ID)
}

// ListHistory returns every historical bid in recording order.
func (s *PostgresStore) ListHistory(ctx context.Context) ([]model.HistoricalBid, error) {
	rows, err := s.pool.Query(ctx, pgListHistory)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list history")
	}
	defer rows.Close()

	var out []model.HistoricalBid
	for rows.Next() {
		var h model.HistoricalBid
		var outcome string
		if err := rows.Scan(&h.ID, &h.Client, &h.JobType, &h.Value, &h.MarginPercent, &outcome, &h.Competitor, &h.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan history")
		}
		h.Outcome = model.Outcome(outcome)
		out = append(out, h)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list history iterate")
}

// ImportHistory bulk loads records with COPY.
func (s *PostgresStore) ImportHistory(ctx context.Context, recs []model.HistoricalBid) (int64, error) {
	rows := make([][]any, len(recs))
	for i, rec := range recs {
		rows[i] = historyArgs(rec)
	}
	n, err := db.CopyFrom(ctx, s.pool, "history", historyColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import history")
	}
	zap.L().Info("postgres: history imported", zap.Int64("rows", n))
	return n, nil
}

// ListAssemblies returns every stored assembly ordered by SKU.
func (s *PostgresStore) ListAssemblies(ctx context.Context) ([]model.Assembly, error) {
	rows, err := s.pool.Query(ctx, pgListAssemblies)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assemblies")
	}
	defer rows.Close()

	var out []model.Assembly
	for rows.Next() {
		var a model.Assembly
		if err := rows.Scan(&a.SKU, &a.Name, &a.Description, &a.MaterialUnitCost, &a.LaborUnitHours, &a.Category); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assembly")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list assemblies iterate")
}

// GetAssembly returns the assembly for sku, or (nil, nil) when unknown.
func (s *PostgresStore) GetAssembly(ctx context.Context, sku string) (*model.Assembly, error) {
	var a model.Assembly
	err := s.pool.QueryRow(ctx, pgGetAssembly, sku).
		Scan(&a.SKU, &a.Name, &a.Description, &a.MaterialUnitCost, &a.LaborUnitHours, &a.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get assembly %s", sku)
	}
	return &a, nil
}

// UpsertAssemblies merges assemblies by SKU through a temp-table COPY.
func (s *PostgresStore) UpsertAssemblies(ctx context.Context, assemblies []model.Assembly) (int64, error) {
	rows := make([][]any, len(assemblies))
	for i, a := range assemblies {
		rows[i] = assemblyArgs(a)
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "assemblies",
		Columns:      assemblyColumns,
		ConflictKeys: []string{"sku"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert assemblies")
	}
	return n, nil
}
