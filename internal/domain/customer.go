package domain

import "strings"

// FlagLevel is the normalized value of a single risk flag
type FlagLevel string

const (
	FlagLow     FlagLevel = "low"
	FlagMedium  FlagLevel = "medium"
	FlagHigh    FlagLevel = "high"
	FlagUnknown FlagLevel = "unknown"
)

// ParseFlagLevel maps a raw spreadsheet cell ("high risk", "Very High Risk", "N/A", ...)
// to a FlagLevel. Levels are matched by substring, highest first.
func ParseFlagLevel(raw string) FlagLevel {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(v, "high"):
		return FlagHigh
	case strings.Contains(v, "medium"):
		return FlagMedium
	case strings.Contains(v, "low"):
		return FlagLow
	default:
		return FlagUnknown
	}
}

// RiskFlag is one categorical fraud-risk indicator attached to a customer.
// Raw keeps the cell text as loaded; some downstream rules match on it verbatim.
type RiskFlag struct {
	Level FlagLevel `json:"level"`
	Raw   string    `json:"raw"`
}

// NewRiskFlag builds a flag from its raw cell text
func NewRiskFlag(raw string) RiskFlag {
	raw = strings.TrimSpace(raw)
	return RiskFlag{Level: ParseFlagLevel(raw), Raw: raw}
}

// Known reports whether the flag carries a value other than unknown
func (f RiskFlag) Known() bool {
	return f.Level != FlagUnknown
}

// AccountDetails is display-only account reference data
type AccountDetails struct {
	BSB     string `json:"bsb"`     // Branch code
	Account string `json:"account"` // Account number
}

// RiskFlags groups the four independent screening indicators
type RiskFlags struct {
	BioCatch RiskFlag `json:"biocatch_flag"`
	GroupIB  RiskFlag `json:"group_ib_flag"`
	SASFM    RiskFlag `json:"sasfm_flag"`
	ISOD     RiskFlag `json:"isod_flag"`
}

// NamedFlag pairs a flag with the spreadsheet column it was read from
type NamedFlag struct {
	Column string
	Flag   RiskFlag
}

// Ordered returns the flags in column order
func (r RiskFlags) Ordered() []NamedFlag {
	return []NamedFlag{
		{Column: ColumnBioCatch, Flag: r.BioCatch},
		{Column: ColumnGroupIB, Flag: r.GroupIB},
		{Column: ColumnSASFM, Flag: r.SASFM},
		{Column: ColumnISOD, Flag: r.ISOD},
	}
}

// Source column names in the customer risk extract
const (
	ColumnBSB        = "BSB"
	ColumnAccount    = "ACCOUNT"
	ColumnBioCatch   = "BIOCATCH_FLAG"
	ColumnGroupIB    = "GROUP_IB_FLAG"
	ColumnSASFM      = "SASFM_FLAG"
	ColumnISOD       = "ISOD_FLAG"
	ColumnFraudCases = "Fraud_Cases_Linked_Past_30_Days"
)

// CustomerIDColumns lists accepted identifier headers in resolution priority order
var CustomerIDColumns = []string{"Customer_CGID", "customer_id", "Customer_ID", "CUSTOMER_ID", "CustomerID"}

// Row is one raw spreadsheet row keyed by column header
type Row map[string]string

// CustomerRecord is the typed view of every row for one customer identifier.
// Records are built once per load and never mutated.
type CustomerRecord struct {
	CustomerID    string         `json:"customer_id"`
	Account       AccountDetails `json:"account_details"`
	Flags         RiskFlags      `json:"risk_flags"`
	FraudCases30d int            `json:"fraud_cases_past_30_days"`
	Rows          []Row          `json:"raw_data"`
}

// IsEmpty reports whether the record carries no underlying rows
func (r *CustomerRecord) IsEmpty() bool {
	return r == nil || len(r.Rows) == 0
}

// FraudHistory is the fraud-case section of a summary
type FraudHistory struct {
	CasesPast30Days int `json:"cases_past_30_days"`
}

// SummaryFlags renders the four flags as their raw cell text
type SummaryFlags struct {
	BioCatch string `json:"biocatch_flag"`
	GroupIB  string `json:"group_ib_flag"`
	SASFM    string `json:"sasfm_flag"`
	ISOD     string `json:"isod_flag"`
}

// CustomerSummary is the stable projection returned by the summary endpoint
type CustomerSummary struct {
	CustomerID     string         `json:"customer_id"`
	AccountDetails AccountDetails `json:"account_details"`
	RiskFlags      SummaryFlags   `json:"risk_flags"`
	FraudHistory   FraudHistory   `json:"fraud_history"`
	RawData        []Row          `json:"raw_data"`
}

// DataInfo describes the loaded customer table
type DataInfo struct {
	FilePath       string            `json:"file_path"`
	Shape          [2]int            `json:"shape"` // rows, columns
	Columns        []string          `json:"columns"`
	TotalCustomers int               `json:"total_customers"`
	DataTypes      map[string]string `json:"data_types"`
}

// CustomerList is the response body of the customer listing endpoint
type CustomerList struct {
	Customers  []string `json:"customers"`
	TotalCount int      `json:"total_count"`
}
