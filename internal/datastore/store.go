// Package datastore owns the cached customer risk table and its typed records.
package datastore

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/banking/fraud-analysis/internal/repository/tabular"
	"go.uber.org/zap"
)

// Store loads the customer table once and serves lookups from the cached snapshot.
// Reload is the only writer; it swaps the snapshot under the write lock.
type Store struct {
	source tabular.Source
	logger *zap.Logger

	loadMu sync.Mutex // serializes loads
	mu     sync.RWMutex
	snap   *snapshot
}

type snapshot struct {
	table    *tabular.Table
	idColumn string
	records  map[string]*domain.CustomerRecord
	order    []string
	loadedAt time.Time
}

// NewStore creates a store over a table source. Nothing is read until first use.
func NewStore(source tabular.Source, logger *zap.Logger) *Store {
	return &Store{source: source, logger: logger}
}

// Load reads the table if it is not cached yet, or unconditionally when forceReload is set
func (s *Store) Load(ctx context.Context, forceReload bool) error {
	if !forceReload && s.current() != nil {
		return nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if !forceReload && s.current() != nil {
		return nil
	}

	table, err := s.source.Read(ctx)
	if err != nil {
		return err
	}

	snap, err := buildSnapshot(table)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	s.logger.Info("Customer data loaded",
		zap.String("source", s.source.Describe()),
		zap.Int("rows", len(table.Rows)),
		zap.Int("customers", len(snap.order)),
		zap.String("id_column", snap.idColumn),
	)
	return nil
}

// Reload re-reads the source and replaces the cached snapshot
func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx, true)
}

// Lookup returns the record for a customer identifier. The identifier is trimmed
// and compared exactly.
func (s *Store) Lookup(ctx context.Context, customerID string) (*domain.CustomerRecord, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, fmt.Errorf("%w: customer ID is required", domain.ErrValidation)
	}

	snap, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}

	rec, ok := snap.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: customer %s not found in data", domain.ErrNotFound, id)
	}
	return rec, nil
}

// ListIDs returns distinct identifiers in order of first appearance
func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	snap, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(snap.order))
	copy(ids, snap.order)
	return ids, nil
}

// Summarize returns the stable projection of a customer's record
func (s *Store) Summarize(ctx context.Context, customerID string) (*domain.CustomerSummary, error) {
	rec, err := s.Lookup(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return Summarize(rec), nil
}

// Summarize projects a record; absent values render as "N/A"
func Summarize(rec *domain.CustomerRecord) *domain.CustomerSummary {
	return &domain.CustomerSummary{
		CustomerID: rec.CustomerID,
		AccountDetails: domain.AccountDetails{
			BSB:     orNA(rec.Account.BSB),
			Account: orNA(rec.Account.Account),
		},
		RiskFlags: domain.SummaryFlags{
			BioCatch: orNA(rec.Flags.BioCatch.Raw),
			GroupIB:  orNA(rec.Flags.GroupIB.Raw),
			SASFM:    orNA(rec.Flags.SASFM.Raw),
			ISOD:     orNA(rec.Flags.ISOD.Raw),
		},
		FraudHistory: domain.FraudHistory{CasesPast30Days: rec.FraudCases30d},
		RawData:      rec.Rows,
	}
}

// Info describes the loaded table
func (s *Store) Info(ctx context.Context) (*domain.DataInfo, error) {
	snap, err := s.loaded(ctx)
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(snap.table.Columns))
	copy(columns, snap.table.Columns)

	types := make(map[string]string, len(columns))
	for i, col := range columns {
		types[col] = inferType(snap.table.Rows, i)
	}

	return &domain.DataInfo{
		FilePath:       s.source.Describe(),
		Shape:          [2]int{len(snap.table.Rows), len(columns)},
		Columns:        columns,
		TotalCustomers: len(snap.order),
		DataTypes:      types,
	}, nil
}

// LoadedAt returns when the current snapshot was built, zero if never loaded
func (s *Store) LoadedAt() time.Time {
	if snap := s.current(); snap != nil {
		return snap.loadedAt
	}
	return time.Time{}
}

func (s *Store) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) loaded(ctx context.Context) (*snapshot, error) {
	if err := s.Load(ctx, false); err != nil {
		return nil, err
	}
	return s.current(), nil
}

// ResolveIDColumn returns the first identifier alias present in columns
func ResolveIDColumn(columns []string) (string, error) {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	for _, candidate := range domain.CustomerIDColumns {
		if _, ok := present[candidate]; ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no customer ID column found, available columns: %v", domain.ErrSchema, columns)
}

func buildSnapshot(table *tabular.Table) (*snapshot, error) {
	idColumn, err := ResolveIDColumn(table.Columns)
	if err != nil {
		return nil, err
	}
	if table.Index(domain.ColumnFraudCases) < 0 {
		return nil, fmt.Errorf("%w: required column %s is missing", domain.ErrSchema, domain.ColumnFraudCases)
	}

	idIdx := table.Index(idColumn)
	snap := &snapshot{
		table:    table,
		idColumn: idColumn,
		records:  make(map[string]*domain.CustomerRecord),
		loadedAt: time.Now().UTC(),
	}

	for i, values := range table.Rows {
		id := strings.TrimSpace(values[idIdx])
		if id == "" {
			continue
		}

		row := make(domain.Row, len(table.Columns))
		for j, col := range table.Columns {
			row[col] = values[j]
		}

		if rec, ok := snap.records[id]; ok {
			rec.Rows = append(rec.Rows, row)
			continue
		}

		// header is line 1
		rec, err := mapRecord(id, row, i+2)
		if err != nil {
			return nil, err
		}
		snap.records[id] = rec
		snap.order = append(snap.order, id)
	}

	return snap, nil
}

// mapRecord builds the typed record from the first row seen for a customer
func mapRecord(id string, row domain.Row, line int) (*domain.CustomerRecord, error) {
	cases, err := parseCount(row[domain.ColumnFraudCases])
	if err != nil {
		return nil, fmt.Errorf("%w: line %d: %s: %w", domain.ErrSchema, line, domain.ColumnFraudCases, err)
	}

	return &domain.CustomerRecord{
		CustomerID: id,
		Account: domain.AccountDetails{
			BSB:     strings.TrimSpace(row[domain.ColumnBSB]),
			Account: strings.TrimSpace(row[domain.ColumnAccount]),
		},
		Flags: domain.RiskFlags{
			BioCatch: domain.NewRiskFlag(row[domain.ColumnBioCatch]),
			GroupIB:  domain.NewRiskFlag(row[domain.ColumnGroupIB]),
			SASFM:    domain.NewRiskFlag(row[domain.ColumnSASFM]),
			ISOD:     domain.NewRiskFlag(row[domain.ColumnISOD]),
		},
		FraudCases30d: cases,
		Rows:          []domain.Row{row},
	}, nil
}

// parseCount accepts blank (0), integers and integral floats such as "2.0"
func parseCount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("invalid count %q", raw)
		}
		if f >= math.MaxInt || f <= math.MinInt {
			return 0, fmt.Errorf("count %q out of range", raw)
		}
		n = int(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

func inferType(rows [][]string, col int) string {
	kind := "int64"
	for _, r := range rows {
		v := strings.TrimSpace(r[col])
		if v == "" {
			// a gap makes an integer column float64
			if kind == "int64" {
				kind = "float64"
			}
			continue
		}
		if _, err := strconv.ParseInt(v, 10, 64); err == nil {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			kind = "float64"
			continue
		}
		return "object"
	}
	return kind
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}
