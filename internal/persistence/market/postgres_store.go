package marketpersist

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"stonks-api/pkg/market"
)

// Schema creates the instrument state table.
const Schema = `
CREATE TABLE IF NOT EXISTS public.instruments (
    symbol      TEXT PRIMARY KEY,
    price       DOUBLE PRECISION NOT NULL,
    ceiling     DOUBLE PRECISION NOT NULL,
    volatility  TEXT NOT NULL DEFAULT 'medium',
    last_change DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_update TIMESTAMPTZ,
    terms       TEXT[] NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const loadInstrumentsQuery = `
SELECT symbol, price, ceiling, volatility, last_change, last_update, terms
FROM public.instruments
ORDER BY symbol`

const upsertInstrumentStmt = `
INSERT INTO public.instruments (
    symbol, price, ceiling, volatility, last_change, last_update, terms, created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
)
ON CONFLICT (symbol) DO UPDATE SET
    price = EXCLUDED.price,
    ceiling = EXCLUDED.ceiling,
    volatility = EXCLUDED.volatility,
    last_change = EXCLUDED.last_change,
    last_update = EXCLUDED.last_update,
    terms = EXCLUDED.terms,
    updated_at = NOW();`

// PostgresStore keeps instrument state in Postgres. A batch is written in one transaction.
type PostgresStore struct {
	conn sqlx.SqlConn
}

// NewPostgresStore returns nil when conn is nil.
func NewPostgresStore(conn sqlx.SqlConn) *PostgresStore {
	if conn == nil {
		return nil
	}
	return &PostgresStore{conn: conn}
}

// EnsureSchema creates the instruments table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.conn.ExecCtx(ctx, Schema); err != nil {
		return fmt.Errorf("marketpersist: ensure schema: %w", err)
	}
	return nil
}

// Load implements market.Store.
func (s *PostgresStore) Load(ctx context.Context) ([]market.Instrument, error) {
	var rows []instrumentRow
	if err := s.conn.QueryRowsCtx(ctx, &rows, loadInstrumentsQuery); err != nil {
		return nil, fmt.Errorf("marketpersist: load instruments: %w", err)
	}
	out := make([]market.Instrument, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.instrument())
	}
	return out, nil
}

// SaveBatch implements market.Store.
func (s *PostgresStore) SaveBatch(ctx context.Context, batch []market.Instrument) error {
	if err := market.ValidateBatch(batch); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	return s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		for _, inst := range batch {
			if _, err := session.ExecCtx(ctx, upsertInstrumentStmt, upsertArgs(inst)...); err != nil {
				return fmt.Errorf("marketpersist: upsert %s: %w", inst.Symbol, err)
			}
		}
		return nil
	})
}

type instrumentRow struct {
	Symbol     string         `db:"symbol"`
	Price      float64        `db:"price"`
	Ceiling    float64        `db:"ceiling"`
	Volatility string         `db:"volatility"`
	LastChange float64        `db:"last_change"`
	LastUpdate sql.NullTime   `db:"last_update"`
	Terms      pq.StringArray `db:"terms"`
}

func (r instrumentRow) instrument() market.Instrument {
	class, err := market.ParseVolatilityClass(r.Volatility)
	if err != nil {
		class = market.VolatilityMedium
	}
	inst := market.Instrument{
		Symbol:     r.Symbol,
		Price:      r.Price,
		Ceiling:    r.Ceiling,
		Volatility: class,
		LastChange: r.LastChange,
	}
	if r.LastUpdate.Valid {
		inst.LastUpdate = r.LastUpdate.Time.UTC()
	}
	if len(r.Terms) > 0 {
		inst.Terms = append([]string(nil), r.Terms...)
	}
	return inst
}

func upsertArgs(inst market.Instrument) []any {
	volatility := string(inst.Volatility)
	if volatility == "" {
		volatility = string(market.VolatilityMedium)
	}
	terms := inst.Terms
	if terms == nil {
		terms = []string{}
	}
	return []any{
		inst.Symbol,
		inst.Price,
		inst.Ceiling,
		volatility,
		inst.LastChange,
		sql.NullTime{Time: inst.LastUpdate, Valid: !inst.LastUpdate.IsZero()},
		pq.Array(terms),
	}
}
