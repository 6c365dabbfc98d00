package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/sheets"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LEDGER_DATABASE_PATH.
const EnvPrefix = "LEDGER"

// Config holds application configuration.
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Categories CategoriesConfig `mapstructure:"categories"`
	Server     ServerConfig     `mapstructure:"server"`
	Import     ImportConfig     `mapstructure:"import"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Sheets     SheetsConfig     `mapstructure:"sheets"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// CategoriesConfig points at the category definition file used by seeding.
type CategoriesConfig struct {
	File string `mapstructure:"file"`
}

// ServerConfig holds the HTTP adapter settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// ImportConfig holds bulk import defaults.
type ImportConfig struct {
	DefaultType string `mapstructure:"default_type"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SheetsConfig holds Google Sheets credentials and target.
type SheetsConfig struct {
	ServiceAccountPath string        `mapstructure:"service_account_path"`
	ClientID           string        `mapstructure:"client_id"`
	ClientSecret       string        `mapstructure:"client_secret"`
	RefreshToken       string        `mapstructure:"refresh_token"`
	SpreadsheetID      string        `mapstructure:"spreadsheet_id"`
	SpreadsheetName    string        `mapstructure:"spreadsheet_name"`
	TimeZone           string        `mapstructure:"timezone"`
	RetryAttempts      int           `mapstructure:"retry_attempts"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay      time.Duration `mapstructure:"max_retry_delay"`
}

// DefaultDatabasePath is where the ledger lives when nothing is configured.
func DefaultDatabasePath() string {
	return filepath.Join("~", ".local", "share", "ledger", "ledger.db")
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("categories.file", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("import.default_type", string(model.TypeExpense))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	sheetDefaults := sheets.DefaultConfig()
	v.SetDefault("sheets.service_account_path", "")
	v.SetDefault("sheets.client_id", "")
	v.SetDefault("sheets.client_secret", "")
	v.SetDefault("sheets.refresh_token", "")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.spreadsheet_name", sheetDefaults.SpreadsheetName)
	v.SetDefault("sheets.timezone", sheetDefaults.TimeZone)
	v.SetDefault("sheets.retry_attempts", sheetDefaults.RetryAttempts)
	v.SetDefault("sheets.retry_delay", sheetDefaults.RetryDelay)
	v.SetDefault("sheets.max_retry_delay", sheetDefaults.MaxRetryDelay)
}

// NewViper returns a viper instance with defaults and LEDGER_ environment
// overrides. When file is empty the standard locations are searched.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(ExpandPath(file))
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".config", "ledger"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || file != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes v into a Config, expands paths and validates the result.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	c.Database.Path = ExpandPath(c.Database.Path)
	c.Categories.File = ExpandPath(c.Categories.File)
	c.Sheets.ServiceAccountPath = ExpandPath(c.Sheets.ServiceAccountPath)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values that every command depends on. Sheets settings are
// only checked when a sheets export is requested.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr", common.ErrMissingConfig)
	}
	if c.Import.DefaultType != "" {
		if _, err := ledger.ParseTransactionType(c.Import.DefaultType); err != nil {
			return fmt.Errorf("%w: import.default_type %q", common.ErrInvalidConfig, c.Import.DefaultType)
		}
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// DefaultImportType returns the configured import type, defaulting to expense.
func (c Config) DefaultImportType() model.TransactionType {
	if c.Import.DefaultType == "" {
		return model.TypeExpense
	}
	t, err := ledger.ParseTransactionType(c.Import.DefaultType)
	if err != nil {
		return model.TypeExpense
	}
	return t
}

// SheetsWriterConfig builds a validated sheets writer configuration. Values
// missing from the config fall back to the GOOGLE_SHEETS_* variables.
func (c Config) SheetsWriterConfig() (sheets.Config, error) {
	cfg := sheets.DefaultConfig()

	cfg.ServiceAccountPath = firstNonEmpty(c.Sheets.ServiceAccountPath, ExpandPath(os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")))
	cfg.ClientID = firstNonEmpty(c.Sheets.ClientID, os.Getenv("GOOGLE_SHEETS_CLIENT_ID"))
	cfg.ClientSecret = firstNonEmpty(c.Sheets.ClientSecret, os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"))
	cfg.RefreshToken = firstNonEmpty(c.Sheets.RefreshToken, os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN"))
	cfg.SpreadsheetID = firstNonEmpty(c.Sheets.SpreadsheetID, os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"))
	cfg.SpreadsheetName = firstNonEmpty(c.Sheets.SpreadsheetName, cfg.SpreadsheetName)
	cfg.TimeZone = firstNonEmpty(c.Sheets.TimeZone, cfg.TimeZone)
	if c.Sheets.RetryAttempts > 0 {
		cfg.RetryAttempts = c.Sheets.RetryAttempts
	}
	if c.Sheets.RetryDelay != 0 {
		cfg.RetryDelay = c.Sheets.RetryDelay
	}
	if c.Sheets.MaxRetryDelay != 0 {
		cfg.MaxRetryDelay = c.Sheets.MaxRetryDelay
	}

	if err := cfg.Validate(); err != nil {
		return sheets.Config{}, err
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
