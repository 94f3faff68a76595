package crypto

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() *domain.AnalysisReport {
	return &domain.AnalysisReport{
		ReportID:        uuid.MustParse("0b7d1c8e-3f6a-4b59-9a1e-5c2d7e8f9a10"),
		CustomerID:      "12345",
		RiskLevel:       domain.RiskHigh,
		ConfidenceScore: 1.0,
		KeyFindings:     []string{"High risk flags detected: Biocatch"},
		Summary:         "summary",
		CreatedAt:       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestReportSigner_SignAndVerify(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	signer, err := NewReportSigner(secret)
	require.NoError(t, err)

	report := testReport()
	require.NoError(t, signer.Sign(report))
	assert.Len(t, report.Signature, 64)

	ok, err := signer.Verify(report)
	require.NoError(t, err)
	assert.True(t, ok)

	report.RiskLevel = domain.RiskLow
	ok, err = signer.Verify(report)
	require.NoError(t, err)
	assert.False(t, ok, "tampered report must not verify")
}

func TestNewReportSigner(t *testing.T) {
	signer, err := NewReportSigner("")
	require.NoError(t, err)
	assert.Nil(t, signer)

	report := testReport()
	require.NoError(t, signer.Sign(report), "nil signer is a no-op")
	assert.Empty(t, report.Signature)

	_, err = NewReportSigner("%%%not-base64")
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = NewReportSigner(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestMaskAccount(t *testing.T) {
	assert.Equal(t, "****2222", MaskAccount("11112222"))
	assert.Equal(t, "****", MaskAccount("12"))
}
