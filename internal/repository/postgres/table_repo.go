package postgres

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/banking/fraud-analysis/internal/config"
	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/banking/fraud-analysis/internal/repository/tabular"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TableRepository reads the customer risk table from PostgreSQL
type TableRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewTableRepository creates a pool and a repository over the named table
func NewTableRepository(ctx context.Context, cfg config.DatabaseConfig, table string) (*TableRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	return &TableRepository{
		pool:  pool,
		table: table,
	}, nil
}

// Describe returns the quoted table name
func (r *TableRepository) Describe() string {
	return "postgres:" + selectAll(r.table)
}

// Read loads every row of the table, rendering each value as text
func (r *TableRepository) Read(ctx context.Context) (*tabular.Table, error) {
	rows, err := r.pool.Query(ctx, selectAll(r.table))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query %s: %w", domain.ErrDataSource, r.table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	t := &tabular.Table{Columns: make([]string, len(fields))}
	for i, f := range fields {
		t.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %w", domain.ErrDataSource, err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", domain.ErrDataSource, r.table, err)
	}

	return t, nil
}

// Close closes the database connection pool
func (r *TableRepository) Close() {
	r.pool.Close()
}

func selectAll(table string) string {
	return "SELECT * FROM " + pgx.Identifier{table}.Sanitize()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case pgtype.Numeric:
		if !val.Valid {
			return ""
		}
		if val.Exp == 0 {
			return val.Int.String()
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return new(big.Int).Set(val.Int).String()
		}
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
