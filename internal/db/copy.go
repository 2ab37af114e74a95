package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// CopyFrom streams rows into table over the COPY protocol. COPY is
// all-or-nothing, so a bad row fails the whole import. The table may be
// schema-qualified ("bids.history").
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, identifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	zap.L().Debug("db: copy complete", zap.String("table", table), zap.Int64("rows", n))
	return n, nil
}

// identifier splits "schema.table" into a pgx identifier.
func identifier(table string) pgx.Identifier {
	schema, name, ok := strings.Cut(table, ".")
	if !ok {
		return pgx.Identifier{table}
	}
	return pgx.Identifier{schema, name}
}
