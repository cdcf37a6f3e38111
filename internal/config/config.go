package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/meterbook-dev/meterbook/internal/model"
)

// FileName is the config file created by `meterbook init`.
const FileName = "meterbook.yaml"

// EnvPrefix prefixes environment overrides, e.g. METERBOOK_STORAGE_DATA_FILE.
const EnvPrefix = "METERBOOK"

// Config represents the top-level meterbook.yaml configuration.
type Config struct {
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Git        GitConfig        `yaml:"git" mapstructure:"git"`
	Metrics    []model.Metric   `yaml:"metrics,omitempty" mapstructure:"metrics" validate:"dive"`

	// Dir is the directory relative paths resolve against.
	Dir string `yaml:"-" mapstructure:"-"`
}

// StorageConfig locates the data files.
type StorageConfig struct {
	DataFile         string `yaml:"data_file" mapstructure:"data_file" validate:"required"`
	Delimiter        string `yaml:"delimiter" mapstructure:"delimiter" validate:"required,len=1"`
	DecimalSeparator string `yaml:"decimal_separator" mapstructure:"decimal_separator" validate:"required,len=1,nefield=Delimiter"`
	MeterChangesFile string `yaml:"meter_changes_file" mapstructure:"meter_changes_file"`
	AuditLog         string `yaml:"audit_log" mapstructure:"audit_log"`
	ImportDir        string `yaml:"import_dir" mapstructure:"import_dir"`
}

// ValidationConfig bounds user input.
type ValidationConfig struct {
	MinYear int `yaml:"min_year" mapstructure:"min_year" validate:"gte=1900,lte=9999"`
}

// ServerConfig configures `meterbook serve`.
type ServerConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr" validate:"required"`
	WriteRPS       float64  `yaml:"write_rps" mapstructure:"write_rps" validate:"gte=0"`
	WriteBurst     int      `yaml:"write_burst" mapstructure:"write_burst" validate:"gte=0"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" mapstructure:"allowed_origins"`
}

// LogConfig configures the global zap logger.
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
	File       string `yaml:"file,omitempty" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups" validate:"gte=0"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit" mapstructure:"auto_commit"`
	AuthorName  string `yaml:"author_name" mapstructure:"author_name" validate:"required_if=AutoCommit true"`
	AuthorEmail string `yaml:"author_email" mapstructure:"author_email" validate:"omitempty,email"`
}

// Default returns a Config with sensible defaults for a new data directory.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DataFile:         "energy_data.csv",
			Delimiter:        ";",
			DecimalSeparator: ",",
			MeterChangesFile: "meter_changes.yaml",
			AuditLog:         "logs/audit.csv",
			ImportDir:        "import",
		},
		Validation: ValidationConfig{
			MinYear: 2000,
		},
		Server: ServerConfig{
			Addr:       "127.0.0.1:5000",
			WriteRPS:   5,
			WriteBurst: 10,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Git: GitConfig{
			AutoCommit:  false,
			AuthorName:  "Meterbook",
			AuthorEmail: "meterbook@localhost",
		},
	}
}

// Load reads the config file at path, applies defaults for unset keys and
// METERBOOK_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrap(err, "config: stat")
	}
	return load(path)
}

// LoadOrDefault behaves like Load but falls back to defaults (still
// subject to environment overrides) when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg, err := load("")
		if err != nil {
			return nil, err
		}
		cfg.Dir = filepath.Dir(path)
		return cfg, nil
	case err != nil:
		return nil, eris.Wrap(err, "config: stat")
	}
	return load(path)
}

func load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if path != "" {
		cfg.Dir = filepath.Dir(path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("storage.data_file", d.Storage.DataFile)
	v.SetDefault("storage.delimiter", d.Storage.Delimiter)
	v.SetDefault("storage.decimal_separator", d.Storage.DecimalSeparator)
	v.SetDefault("storage.meter_changes_file", d.Storage.MeterChangesFile)
	v.SetDefault("storage.audit_log", d.Storage.AuditLog)
	v.SetDefault("storage.import_dir", d.Storage.ImportDir)
	v.SetDefault("validation.min_year", d.Validation.MinYear)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.write_rps", d.Server.WriteRPS)
	v.SetDefault("server.write_burst", d.Server.WriteBurst)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("git.auto_commit", d.Git.AutoCommit)
	v.SetDefault("git.author_name", d.Git.AuthorName)
	v.SetDefault("git.author_email", d.Git.AuthorEmail)
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return eris.Wrap(err, "config: invalid")
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "config: marshal")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "config: write")
	}
	return nil
}

// Path resolves p against the config directory. Empty stays empty.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// DelimiterRune returns the field delimiter as a rune.
func (s StorageConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(s.Delimiter)
	return r
}
