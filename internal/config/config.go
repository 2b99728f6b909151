// =============================================================================
// SSN ETL - Configuration Module
// =============================================================================
//
// This module loads the settings shared by the extract and upload commands.
//
// CONFIGURATION SOURCES:
//   1. config.yaml: regulator endpoints, retries, TLS, number/date formats
//   2. Environment: SSN_USER, SSN_PASSWORD and SSN_COMPANY credentials
//   3. .env file next to config.yaml, loaded into the environment first
//      (variables already set in the environment win)
//
// Every problem found while loading is reported as a *ConfigurationError,
// which the commands treat as fatal and never retry.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/spazos-ar/etl-ssn/internal/coerce"
	"github.com/spazos-ar/etl-ssn/internal/mapper"
	"github.com/spazos-ar/etl-ssn/internal/types"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration loaded from config.yaml.
type Config struct {
	// =========================================================================
	// REGULATOR API
	// =========================================================================

	// Environment labels the target in the startup banner (prod, test).
	Environment string `yaml:"environment"`

	// Company is the CODIGOCOMPANIA written by extraction when SSN_COMPANY
	// is unset.
	Company string `yaml:"company"`

	// BaseURL is the API root; endpoint paths are appended to it.
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// Endpoints holds the path of every API operation.
	Endpoints Endpoints `yaml:"endpoints"`

	// Retries bounds the attempts of every state-changing call.
	Retries int `yaml:"retries" validate:"gte=1,lte=20"`

	// RetryDelay is the pause between attempts. Zero retries at once.
	RetryDelay time.Duration `yaml:"retry_delay" validate:"gte=0"`

	// Timeout overrides the per-request timeout. Zero selects 30s with TLS
	// verification and 15s without.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// Debug lowers the log level to debug.
	Debug bool `yaml:"debug"`

	SSL SSL `yaml:"ssl"`

	// =========================================================================
	// SPREADSHEET EXTRACTION
	// =========================================================================

	// DecimalSeparator is the separator used by text numbers in the
	// workbooks: "." or ",".
	DecimalSeparator string `yaml:"decimal_separator" validate:"oneof=. ,"`

	// DateFormat is the 8-digit date order sent to the regulator.
	DateFormat string `yaml:"date_format" validate:"oneof=DDMMYYYY YYYYMMDD MMDDYYYY"`

	// OutputDir receives the generated delivery documents.
	OutputDir string `yaml:"output_dir" validate:"required"`

	Pase     Pase     `yaml:"pase"`
	Holdings Holdings `yaml:"holdings"`
	Log      Log      `yaml:"log"`

	// path is the file the configuration was read from.
	path string
}

// Endpoints holds the API paths, relative to BaseURL.
type Endpoints struct {
	Login                   string `yaml:"login" validate:"required,startswith=/"`
	EntregaMensual          string `yaml:"entrega_mensual" validate:"required,startswith=/"`
	EntregaSemanal          string `yaml:"entrega_semanal" validate:"required,startswith=/"`
	ConfirmarEntregaMensual string `yaml:"confirmar_entrega_mensual" validate:"required,startswith=/"`
	ConfirmarEntregaSemanal string `yaml:"confirmar_entrega_semanal" validate:"required,startswith=/"`
}

// Entrega returns the delivery path for kind.
func (e Endpoints) Entrega(kind types.DeliveryKind) string {
	if kind == types.Monthly {
		return e.EntregaMensual
	}
	return e.EntregaSemanal
}

// Confirm returns the confirmation path for kind.
func (e Endpoints) Confirm(kind types.DeliveryKind) string {
	if kind == types.Monthly {
		return e.ConfirmarEntregaMensual
	}
	return e.ConfirmarEntregaSemanal
}

// SSL configures server certificate verification.
type SSL struct {
	// Verify enables certificate verification. Defaults to true.
	Verify *bool `yaml:"verify"`

	// CAFile is an extra PEM bundle trusted in addition to the system
	// roots. Relative paths are resolved against the config file.
	CAFile string `yaml:"cafile"`
}

// Pase selects the rows whose pase date and price are reported.
type Pase struct {
	InstrumentTypes []string `yaml:"instrument_types"`
	ValuationType   string   `yaml:"valuation_type"`
}

// Holdings lists instrument types whose monthly quantities are bounded.
type Holdings struct {
	BoundedQuantityTypes []string `yaml:"bounded_quantity_types"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ConfigurationError reports a missing or invalid setting or credential.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns the configuration used for unset keys.
func Default() *Config {
	verify := true
	return &Config{
		Environment: "prod",
		BaseURL:     "https://testri.ssn.gob.ar/api",
		Endpoints: Endpoints{
			Login:                   "/login",
			EntregaMensual:          "/inv/entregaMensual",
			EntregaSemanal:          "/inv/entregaSemanal",
			ConfirmarEntregaMensual: "/inv/confirmarEntregaMensual",
			ConfirmarEntregaSemanal: "/inv/confirmarEntregaSemanal",
		},
		Retries:          3,
		SSL:              SSL{Verify: &verify},
		DecimalSeparator: ".",
		DateFormat:       string(coerce.DDMMYYYY),
		OutputDir:        "data",
		Pase: Pase{
			InstrumentTypes: []string{"TP", "ON"},
			ValuationType:   "T",
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads the configuration file at path, applies defaults to unset keys
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Path: path, Err: fmt.Errorf("failed to read config file: %w", err)}
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigurationError{Path: path, Err: fmt.Errorf("failed to parse config file: %w", err)}
	}
	cfg.path = path

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigurationError{Path: path, Err: err}
	}
	return cfg, nil
}

// applyDefaults restores defaults for keys present but left empty.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Environment == "" {
		cfg.Environment = def.Environment
	}
	if cfg.SSL.Verify == nil {
		cfg.SSL.Verify = def.SSL.Verify
	}
	if cfg.DecimalSeparator == "" {
		cfg.DecimalSeparator = def.DecimalSeparator
	}
	cfg.DateFormat = strings.ToUpper(strings.TrimSpace(cfg.DateFormat))
	if cfg.DateFormat == "" {
		cfg.DateFormat = def.DateFormat
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = def.OutputDir
	}
	if cfg.Pase.ValuationType == "" {
		cfg.Pase.ValuationType = def.Pase.ValuationType
	}
	if cfg.Pase.InstrumentTypes == nil {
		cfg.Pase.InstrumentTypes = def.Pase.InstrumentTypes
	}
}

// Validate checks every setting.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the directory holding the configuration file.
func (c *Config) Dir() string {
	if c.path == "" {
		return "."
	}
	return filepath.Dir(c.path)
}

// VerifyTLS reports whether server certificates are verified.
func (c *Config) VerifyTLS() bool {
	return c.SSL.Verify == nil || *c.SSL.Verify
}

// CAFilePath returns the resolved CA bundle path, or "" when unset.
func (c *Config) CAFilePath() string {
	if c.SSL.CAFile == "" || filepath.IsAbs(c.SSL.CAFile) {
		return c.SSL.CAFile
	}
	return filepath.Join(c.Dir(), c.SSL.CAFile)
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	switch {
	case c.Timeout > 0:
		return c.Timeout
	case c.VerifyTLS():
		return 30 * time.Second
	default:
		return 15 * time.Second
	}
}

// MapperOptions returns the record mapper settings.
func (c *Config) MapperOptions() mapper.Options {
	return mapper.Options{
		DateFormat:           coerce.DateFormat(c.DateFormat),
		DecimalSeparator:     c.DecimalSeparator,
		PaseInstrumentTypes:  c.Pase.InstrumentTypes,
		PaseValuationType:    c.Pase.ValuationType,
		BoundedQuantityTypes: c.Holdings.BoundedQuantityTypes,
	}
}

// LogLevel returns the configured level, forced to debug by Debug.
func (c *Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Log.Level
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// Credentials identify the reporting company against the regulator API.
type Credentials struct {
	User     string `envconfig:"SSN_USER" required:"true"`
	Password string `envconfig:"SSN_PASSWORD" required:"true"`
	Company  string `envconfig:"SSN_COMPANY" required:"true"`
}

// LoadCredentials reads the credentials from the environment after loading
// the optional .env file next to the configuration.
func (c *Config) LoadCredentials() (Credentials, error) {
	envFile := filepath.Join(c.Dir(), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Credentials{}, &ConfigurationError{Path: envFile, Err: err}
		}
	}

	var creds Credentials
	if err := envconfig.Process("", &creds); err != nil {
		return Credentials{}, &ConfigurationError{Err: fmt.Errorf("missing credentials: %w", err)}
	}
	return creds, nil
}

// CompanyFromEnv returns SSN_COMPANY, loading the .env file first. It is
// used where only the company code is needed, as during extraction.
func (c *Config) CompanyFromEnv() string {
	_ = godotenv.Load(filepath.Join(c.Dir(), ".env"))
	return strings.TrimSpace(os.Getenv("SSN_COMPANY"))
}

// ExtractCompany returns the company code for generated documents:
// SSN_COMPANY when set, else the company key.
func (c *Config) ExtractCompany() string {
	if company := c.CompanyFromEnv(); company != "" {
		return company
	}
	return strings.TrimSpace(c.Company)
}
