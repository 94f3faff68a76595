package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/banking/fraud-analysis/internal/config"
	"github.com/banking/fraud-analysis/internal/domain"
	"github.com/banking/fraud-analysis/internal/repository/s3"
	"github.com/banking/fraud-analysis/internal/repository/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fraud_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"Customer_CGID,BSB,ACCOUNT,BIOCATCH_FLAG,GROUP_IB_FLAG,SASFM_FLAG,ISOD_FLAG,Fraud_Cases_Linked_Past_30_Days\n"+
			"12345,062-000,11112222,high risk,low risk,low risk,low risk,0\n",
	), 0o600))

	return &config.Config{
		Data:   config.DataConfig{Source: config.SourceFile, FilePath: path},
		OpenAI: config.OpenAIConfig{APIKey: config.PlaceholderAPIKey, Model: "gpt-3.5-turbo"},
		S3:     config.S3Config{Region: "ap-southeast-2", Bucket: "default-bucket", Key: "default.xlsx"},
	}
}

func TestNew_WithoutCredentialUsesLocalAnalysis(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.LLM)

	report, err := a.Analysis.AnalyzeCustomer(context.Background(), "12345", "")
	require.NoError(t, err)
	assert.Equal(t, "12345", report.CustomerID)
	assert.Empty(t, report.Signature)

	health, err := a.Analysis.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not_configured", health.AIService)
}

func TestNew_SignsWhenSecretConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.ReportHMACSecret = "c2lnbmluZy1zZWNyZXQtZm9yLXRlc3Rz"

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Analysis.AnalyzeCustomer(context.Background(), "12345", "")
	require.NoError(t, err)
	assert.NotEmpty(t, report.Signature)
}

func TestNew_BadSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.ReportHMACSecret = "%%%"

	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestNewSource(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		cfg := testConfig(t)
		src, closeFn, err := NewSource(ctx, cfg)
		require.NoError(t, err)
		assert.Nil(t, closeFn)
		assert.IsType(t, &tabular.FileSource{}, src)
	})

	t.Run("s3 uri overrides bucket and key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Data.Source = config.SourceS3
		cfg.Data.FilePath = "s3://extracts/2024/fraud_data.xlsx"
		cfg.S3.AccessKey, cfg.S3.SecretKey = "test", "test"

		src, _, err := NewSource(ctx, cfg)
		require.NoError(t, err)
		require.IsType(t, &s3.SheetSource{}, src)
		assert.Equal(t, "s3://extracts/2024/fraud_data.xlsx", src.Describe())
	})

	t.Run("s3 from config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Data.Source = config.SourceS3
		cfg.S3.AccessKey, cfg.S3.SecretKey = "test", "test"

		src, _, err := NewSource(ctx, cfg)
		require.NoError(t, err)
		assert.Equal(t, "s3://default-bucket/default.xlsx", src.Describe())
	})

	t.Run("unsupported", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Data.Source = "ftp"
		_, _, err := NewSource(ctx, cfg)
		assert.ErrorIs(t, err, domain.ErrConfig)
	})
}
