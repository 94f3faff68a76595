package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/banking/fraud-analysis/internal/domain"
)

// ReportSigner attaches an HMAC-SHA256 signature to analysis reports so a
// downstream case system can detect tampering.
type ReportSigner struct {
	secret []byte
}

// NewReportSigner decodes a base64 secret. An empty secret returns a nil
// signer, which leaves reports unsigned.
func NewReportSigner(secretBase64 string) (*ReportSigner, error) {
	if secretBase64 == "" {
		return nil, nil
	}
	secret, err := base64.StdEncoding.DecodeString(secretBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode report HMAC secret: %w", domain.ErrConfig, err)
	}
	if len(secret) < 16 {
		return nil, fmt.Errorf("%w: report HMAC secret must be at least 16 bytes", domain.ErrConfig)
	}
	return &ReportSigner{secret: secret}, nil
}

// Sign sets report.Signature. Safe to call on a nil signer.
func (s *ReportSigner) Sign(report *domain.AnalysisReport) error {
	if s == nil {
		return nil
	}
	payload, err := report.SigningPayload()
	if err != nil {
		return fmt.Errorf("failed to encode report for signing: %w", err)
	}
	report.Signature = s.mac(payload)
	return nil
}

// Verify checks report.Signature against the report body
func (s *ReportSigner) Verify(report *domain.AnalysisReport) (bool, error) {
	if s == nil {
		return false, errors.New("report signing is not configured")
	}
	payload, err := report.SigningPayload()
	if err != nil {
		return false, fmt.Errorf("failed to encode report for verification: %w", err)
	}
	return hmac.Equal([]byte(s.mac(payload)), []byte(report.Signature)), nil
}

func (s *ReportSigner) mac(data []byte) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MaskAccount keeps the last four characters of an account number for logging
func MaskAccount(account string) string {
	if len(account) < 4 {
		return "****"
	}
	return "****" + account[len(account)-4:]
}
