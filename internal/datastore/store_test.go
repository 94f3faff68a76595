package datastore

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/banking/fraud-analysis/internal/repository/tabular"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySource struct {
	table *tabular.Table
	err   error
	reads int
}

func (m *memorySource) Read(_ context.Context) (*tabular.Table, error) {
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	return m.table, nil
}

func (m *memorySource) Describe() string { return "memory://fraud_data.xlsx" }

var standardColumns = []string{
	"Customer_CGID", "BSB", "ACCOUNT",
	"BIOCATCH_FLAG", "GROUP_IB_FLAG", "SASFM_FLAG", "ISOD_FLAG",
	"Fraud_Cases_Linked_Past_30_Days",
}

func fixtureTable() *tabular.Table {
	return &tabular.Table{
		Columns: standardColumns,
		Rows: [][]string{
			{"12345", "062-000", "11112222", "high risk", "high risk", "medium risk", "low risk", "1"},
			{"67890", "062-001", "33334444", "low risk", "low risk", "", "", "0"},
			{" 24680 ", "062-002", "55556666", "", "", "", "", ""},
			{"12345", "062-000", "11112222", "high risk", "high risk", "medium risk", "low risk", "1"},
		},
	}
}

func newTestStore(table *tabular.Table) (*Store, *memorySource) {
	src := &memorySource{table: table}
	return NewStore(src, zap.NewNop()), src
}

func TestStore_LoadIsCachedUntilForced(t *testing.T) {
	store, src := newTestStore(fixtureTable())
	ctx := context.Background()

	require.NoError(t, store.Load(ctx, false))
	require.NoError(t, store.Load(ctx, false))
	_, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, src.reads)
	assert.False(t, store.LoadedAt().IsZero())

	require.NoError(t, store.Reload(ctx))
	assert.Equal(t, 2, src.reads)
}

func TestStore_ReloadSwapsSnapshot(t *testing.T) {
	store, src := newTestStore(fixtureTable())
	ctx := context.Background()

	_, err := store.Lookup(ctx, "99999")
	require.ErrorIs(t, err, domain.ErrNotFound)

	src.table = &tabular.Table{
		Columns: standardColumns,
		Rows:    [][]string{{"99999", "", "", "", "", "", "", "0"}},
	}
	require.NoError(t, store.Reload(ctx))

	rec, err := store.Lookup(ctx, "99999")
	require.NoError(t, err)
	assert.Equal(t, "99999", rec.CustomerID)
}

func TestStore_ReloadDuringLookups(t *testing.T) {
	store, _ := newTestStore(fixtureTable())
	ctx := context.Background()
	require.NoError(t, store.Load(ctx, false))

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				rec, err := store.Lookup(ctx, "12345")
				if err != nil {
					errs <- err
					return
				}
				if rec.FraudCases30d != 1 {
					errs <- errors.New("unexpected record")
					return
				}
				ids, err := store.ListIDs(ctx)
				if err != nil {
					errs <- err
					return
				}
				if len(ids) != 3 {
					errs <- errors.New("unexpected id count")
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			if err := store.Reload(ctx); err != nil {
				errs <- err
				return
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestStore_LoadSourceError(t *testing.T) {
	src := &memorySource{err: errors.New("disk on fire")}
	store := NewStore(src, zap.NewNop())

	_, err := store.Lookup(context.Background(), "12345")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestStore_Lookup(t *testing.T) {
	store, _ := newTestStore(fixtureTable())
	ctx := context.Background()

	t.Run("typed record", func(t *testing.T) {
		rec, err := store.Lookup(ctx, "12345")
		require.NoError(t, err)

		assert.Equal(t, domain.AccountDetails{BSB: "062-000", Account: "11112222"}, rec.Account)
		assert.Equal(t, domain.FlagHigh, rec.Flags.BioCatch.Level)
		assert.Equal(t, "high risk", rec.Flags.GroupIB.Raw)
		assert.Equal(t, domain.FlagMedium, rec.Flags.SASFM.Level)
		assert.Equal(t, domain.FlagLow, rec.Flags.ISOD.Level)
		assert.Equal(t, 1, rec.FraudCases30d)
		assert.Len(t, rec.Rows, 2)
	})

	t.Run("trimmed identifier", func(t *testing.T) {
		rec, err := store.Lookup(ctx, "  12345\t")
		require.NoError(t, err)
		assert.Equal(t, "12345", rec.CustomerID)

		rec, err = store.Lookup(ctx, "24680")
		require.NoError(t, err)
		assert.Equal(t, 0, rec.FraudCases30d, "blank count is zero")
		assert.False(t, rec.Flags.BioCatch.Known())
	})

	t.Run("blank identifier", func(t *testing.T) {
		for _, id := range []string{"", "   "} {
			_, err := store.Lookup(ctx, id)
			assert.ErrorIs(t, err, domain.ErrValidation)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := store.Lookup(ctx, "99999")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("case sensitive", func(t *testing.T) {
		s, _ := newTestStore(&tabular.Table{
			Columns: standardColumns,
			Rows:    [][]string{{"AbC1", "", "", "", "", "", "", "0"}},
		})
		_, err := s.Lookup(ctx, "abc1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = s.Lookup(ctx, "AbC1")
		assert.NoError(t, err)
	})
}

func TestStore_IdentifierAliases(t *testing.T) {
	ctx := context.Background()

	t.Run("alias column", func(t *testing.T) {
		store, _ := newTestStore(&tabular.Table{
			Columns: []string{"CUSTOMER_ID", "Fraud_Cases_Linked_Past_30_Days"},
			Rows:    [][]string{{"C-1", "2"}},
		})
		rec, err := store.Lookup(ctx, "C-1")
		require.NoError(t, err)
		assert.Equal(t, 2, rec.FraudCases30d)
		assert.Equal(t, "", rec.Account.BSB)
	})

	t.Run("priority order", func(t *testing.T) {
		col, err := ResolveIDColumn([]string{"CustomerID", "customer_id", "Customer_CGID"})
		require.NoError(t, err)
		assert.Equal(t, "Customer_CGID", col)

		col, err = ResolveIDColumn([]string{"CustomerID", "Customer_ID"})
		require.NoError(t, err)
		assert.Equal(t, "Customer_ID", col)
	})

	t.Run("no identifier column", func(t *testing.T) {
		store, _ := newTestStore(&tabular.Table{
			Columns: []string{"Name", "Fraud_Cases_Linked_Past_30_Days"},
			Rows:    [][]string{{"x", "0"}},
		})
		_, err := store.Lookup(ctx, "x")
		assert.ErrorIs(t, err, domain.ErrSchema)
	})
}

func TestStore_SchemaErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		table *tabular.Table
	}{
		{
			name:  "missing fraud case column",
			table: &tabular.Table{Columns: []string{"Customer_CGID"}, Rows: [][]string{{"1"}}},
		},
		{
			name: "non integer count",
			table: &tabular.Table{
				Columns: []string{"Customer_CGID", "Fraud_Cases_Linked_Past_30_Days"},
				Rows:    [][]string{{"1", "several"}},
			},
		},
		{
			name: "negative count",
			table: &tabular.Table{
				Columns: []string{"Customer_CGID", "Fraud_Cases_Linked_Past_30_Days"},
				Rows:    [][]string{{"1", "-1"}},
			},
		},
		{
			name: "fractional count",
			table: &tabular.Table{
				Columns: []string{"Customer_CGID", "Fraud_Cases_Linked_Past_30_Days"},
				Rows:    [][]string{{"1", "1.5"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(tt.table)
			err := store.Load(ctx, false)
			assert.ErrorIs(t, err, domain.ErrSchema)
		})
	}
}

func TestParseCount(t *testing.T) {
	n, err := parseCount(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = parseCount("2.0")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, raw := range []string{"1e30", "-1e30", "1.5", "-2", "many"} {
		_, err := parseCount(raw)
		assert.Error(t, err, raw)
	}

	_, err = parseCount("1e30")
	assert.Contains(t, err.Error(), "out of range")
}

func TestStore_ListIDs(t *testing.T) {
	store, _ := newTestStore(fixtureTable())

	ids, err := store.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"12345", "67890", "24680"}, ids)

	ids[0] = "mutated"
	again, err := store.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "12345", again[0])
}

func TestStore_Summarize(t *testing.T) {
	store, _ := newTestStore(fixtureTable())

	summary, err := store.Summarize(context.Background(), "67890")
	require.NoError(t, err)

	want := &domain.CustomerSummary{
		CustomerID:     "67890",
		AccountDetails: domain.AccountDetails{BSB: "062-001", Account: "33334444"},
		RiskFlags: domain.SummaryFlags{
			BioCatch: "low risk",
			GroupIB:  "low risk",
			SASFM:    "N/A",
			ISOD:     "N/A",
		},
		FraudHistory: domain.FraudHistory{CasesPast30Days: 0},
		RawData: []domain.Row{{
			"Customer_CGID":                   "67890",
			"BSB":                             "062-001",
			"ACCOUNT":                         "33334444",
			"BIOCATCH_FLAG":                   "low risk",
			"GROUP_IB_FLAG":                   "low risk",
			"SASFM_FLAG":                      "",
			"ISOD_FLAG":                       "",
			"Fraud_Cases_Linked_Past_30_Days": "0",
		}},
	}
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	_, err = store.Summarize(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Info(t *testing.T) {
	store, _ := newTestStore(fixtureTable())

	info, err := store.Info(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "memory://fraud_data.xlsx", info.FilePath)
	assert.Equal(t, [2]int{4, 8}, info.Shape)
	assert.Equal(t, standardColumns, info.Columns)
	assert.Equal(t, 3, info.TotalCustomers)
	assert.Equal(t, "object", info.DataTypes["BIOCATCH_FLAG"])
	assert.Equal(t, "int64", info.DataTypes["ACCOUNT"])
	assert.Equal(t, "float64", info.DataTypes["Fraud_Cases_Linked_Past_30_Days"])
}

func TestFormatForAnalysis(t *testing.T) {
	store, _ := newTestStore(fixtureTable())
	ctx := context.Background()

	rec, err := store.Lookup(ctx, "12345")
	require.NoError(t, err)

	text, err := FormatForAnalysis(rec)
	require.NoError(t, err)

	assert.Contains(t, text, "Customer ID: 12345")
	assert.Contains(t, text, "Account Details: BSB 062-000, Account 11112222")
	assert.Contains(t, text, "Total Risk Indicators Detected: 4")
	assert.Contains(t, text, "Risk Levels Found: High Risk Indicator, High Risk Indicator, Medium Risk Indicator, Low Risk Indicator")
	assert.Contains(t, text, "Previous Fraud Cases: 1 in past 30 days")
	assert.Contains(t, text, "Customer has multiple risk indicators")
	assert.Contains(t, text, "Previous fraud activity detected.")
	assert.Contains(t, strings.ToLower(text), "high risk")

	for _, name := range []string{"BIOCATCH", "BioCatch", "GROUP_IB", "Group IB", "SASFM", "ISOD"} {
		assert.NotContains(t, text, name)
	}
}

func TestFormatForAnalysis_Posture(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(fixtureTable())

	some, err := store.Lookup(ctx, "67890")
	require.NoError(t, err)
	text, err := FormatForAnalysis(some)
	require.NoError(t, err)
	assert.Contains(t, text, "Customer has some risk indicators")
	assert.Contains(t, text, "No previous fraud cases on record.")

	minimal, err := store.Lookup(ctx, "24680")
	require.NoError(t, err)
	text, err = FormatForAnalysis(minimal)
	require.NoError(t, err)
	assert.Contains(t, text, "Total Risk Indicators Detected: 0")
	assert.Contains(t, text, "Risk Levels Found: None")
	assert.Contains(t, text, "Customer has minimal risk indicators")

	text, err = FormatForAnalysis(&domain.CustomerRecord{CustomerID: "x"})
	require.NoError(t, err)
	assert.Equal(t, "No customer data available", text)

	_, err = FormatForAnalysis(nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
