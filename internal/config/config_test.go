package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spazos-ar/etl-ssn/internal/coerce"
	"github.com/spazos-ar/etl-ssn/internal/config"
	"github.com/spazos-ar/etl-ssn/internal/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "base_url: https://ri.ssn.gob.ar/api\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://ri.ssn.gob.ar/api", cfg.BaseURL)
	assert.Equal(t, "/login", cfg.Endpoints.Login)
	assert.Equal(t, "/inv/entregaSemanal", cfg.Endpoints.Entrega(types.Weekly))
	assert.Equal(t, "/inv/confirmarEntregaMensual", cfg.Endpoints.Confirm(types.Monthly))
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, ".", cfg.DecimalSeparator)
	assert.Equal(t, "DDMMYYYY", cfg.DateFormat)
	assert.Equal(t, "data", cfg.OutputDir)
	assert.Equal(t, "prod", cfg.Environment)
	assert.True(t, cfg.VerifyTLS())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "info", cfg.LogLevel())
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
environment: test
base_url: https://testri.ssn.gob.ar/api/
endpoints:
  entrega_semanal: /v2/entregaSemanal
retries: 5
retry_delay: 2s
debug: true
ssl:
  verify: false
  cafile: certs/ssn.pem
decimal_separator: ","
date_format: yyyymmdd
output_dir: out
pase:
  instrument_types: [TP]
  valuation_type: V
holdings:
  bounded_quantity_types: [FC]
log:
  format: json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "/v2/entregaSemanal", cfg.Endpoints.EntregaSemanal)
	assert.Equal(t, "/inv/entregaMensual", cfg.Endpoints.EntregaMensual)
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.False(t, cfg.VerifyTLS())
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout())
	assert.Equal(t, filepath.Join(filepath.Dir(path), "certs", "ssn.pem"), cfg.CAFilePath())
	assert.Equal(t, "debug", cfg.LogLevel())
	assert.Equal(t, "json", cfg.Log.Format)

	opts := cfg.MapperOptions()
	assert.Equal(t, coerce.YYYYMMDD, opts.DateFormat)
	assert.Equal(t, ",", opts.DecimalSeparator)
	assert.Equal(t, []string{"TP"}, opts.PaseInstrumentTypes)
	assert.Equal(t, "V", opts.PaseValuationType)
	assert.Equal(t, []string{"FC"}, opts.BoundedQuantityTypes)
}

func TestLoad_ExplicitTimeout(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "timeout: 45s\n"))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bad separator", body: "decimal_separator: ';'\n", want: "DecimalSeparator"},
		{name: "bad date format", body: "date_format: DDYYYYMM\n", want: "DateFormat"},
		{name: "no retries", body: "retries: 0\n", want: "Retries"},
		{name: "relative endpoint", body: "endpoints:\n  login: login\n", want: "Login"},
		{name: "bad url", body: "base_url: not a url\n", want: "BaseURL"},
		{name: "not yaml", body: "base_url: [\n", want: "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))

			var cfgErr *config.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCredentials_FromEnvironment(t *testing.T) {
	t.Setenv("SSN_USER", "user")
	t.Setenv("SSN_PASSWORD", "secret")
	t.Setenv("SSN_COMPANY", "0540")

	cfg, err := config.Load(writeConfig(t, "retries: 3\n"))
	require.NoError(t, err)

	creds, err := cfg.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, config.Credentials{User: "user", Password: "secret", Company: "0540"}, creds)
	assert.Equal(t, "0540", cfg.CompanyFromEnv())
}

func TestLoadCredentials_FromDotEnv(t *testing.T) {
	// Registered so the values loaded from .env are cleared afterwards.
	t.Setenv("SSN_USER", "")
	t.Setenv("SSN_PASSWORD", "")
	t.Setenv("SSN_COMPANY", "")
	for _, key := range []string{"SSN_USER", "SSN_PASSWORD", "SSN_COMPANY"} {
		require.NoError(t, os.Unsetenv(key))
	}

	path := writeConfig(t, "retries: 3\n")
	env := "SSN_USER=file-user\nSSN_PASSWORD=file-secret\nSSN_COMPANY=0999\n"
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte(env), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	creds, err := cfg.LoadCredentials()
	require.NoError(t, err)
	assert.Equal(t, "file-user", creds.User)
	assert.Equal(t, "0999", creds.Company)
}

func TestLoadCredentials_Missing(t *testing.T) {
	t.Setenv("SSN_USER", "user")
	t.Setenv("SSN_PASSWORD", "")
	t.Setenv("SSN_COMPANY", "")
	require.NoError(t, os.Unsetenv("SSN_PASSWORD"))
	require.NoError(t, os.Unsetenv("SSN_COMPANY"))

	cfg, err := config.Load(writeConfig(t, "retries: 3\n"))
	require.NoError(t, err)

	_, err = cfg.LoadCredentials()
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "SSN_PASSWORD")
}

func TestExtractCompany(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "company: \"0540\"\n"))
	require.NoError(t, err)

	t.Setenv("SSN_COMPANY", "")
	assert.Equal(t, "0540", cfg.ExtractCompany())

	t.Setenv("SSN_COMPANY", "0777")
	assert.Equal(t, "0777", cfg.ExtractCompany())
}
