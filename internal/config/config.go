// Package config loads the deployment settings of the update service.
//
// Settings come from, in increasing precedence: built-in defaults, an
// optional YAML file, RECORDUPDATE_* environment variables and command-line
// flags bound onto the same keys. Nested keys map to environment variables
// with dots replaced by underscores, so queue.priority.max is read from
// RECORDUPDATE_QUEUE_PRIORITY_MAX.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/recordupdate/internal/update"
)

// EnvPrefix prefixes the environment variables read by Load.
const EnvPrefix = "RECORDUPDATE"

// Configuration keys.
const (
	KeyDatabaseDriver      = "database.driver"
	KeyDatabaseDSN         = "database.dsn"
	KeyProduction          = "instance.production"
	KeyProviderDBC         = "queue.provider.dbc"
	KeyProviderFBS         = "queue.provider.fbs"
	KeyProviderPH          = "queue.provider.ph"
	KeyProviderPHHoldings  = "queue.provider.phholdings"
	KeyProviders           = "queue.providers"
	KeyPriorityDefault     = "queue.priority.default"
	KeyPriorityMax         = "queue.priority.max"
	KeyRulesFile           = "rules.file"
	KeyTemplatesDir        = "templates.dir"
	KeySearchURL           = "search.url"
	KeySearchTimeout       = "search.timeout"
	KeyDoubleRecordURL     = "doublerecord.url"
	KeyDoubleRecordTimeout = "doublerecord.timeout"
	KeyDoubleRecordKeyTTL  = "doublerecord.key_ttl"
	KeyMessagesFile        = "messages.file"
	KeyMetricsAddr         = "metrics.addr"
	KeyMetricsNamespace    = "metrics.namespace"
)

// Drivers accepted in database.driver.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Config is the decoded configuration.
type Config struct {
	Database     Database     `mapstructure:"database"`
	Instance     Instance     `mapstructure:"instance"`
	Queue        Queue        `mapstructure:"queue"`
	Rules        Rules        `mapstructure:"rules"`
	Templates    Templates    `mapstructure:"templates"`
	Search       Search       `mapstructure:"search"`
	DoubleRecord DoubleRecord `mapstructure:"doublerecord"`
	Messages     Messages     `mapstructure:"messages"`
	Metrics      Metrics      `mapstructure:"metrics"`
}

// Database selects the record store.
type Database struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Instance describes the deployment.
type Instance struct {
	Production bool `mapstructure:"production"`
}

// Queue holds the queue providers and priorities.
type Queue struct {
	Provider  Providers `mapstructure:"provider"`
	Providers []string  `mapstructure:"providers"`
	Priority  Priority  `mapstructure:"priority"`
}

// Providers are the queue providers per library group.
type Providers struct {
	DBC        string `mapstructure:"dbc"`
	FBS        string `mapstructure:"fbs"`
	PH         string `mapstructure:"ph"`
	PHHoldings string `mapstructure:"phholdings"`
}

// Priority bounds the queue priorities.
type Priority struct {
	Default int `mapstructure:"default"`
	Max     int `mapstructure:"max"`
}

// Rules points at the library rules catalog. Empty uses the built-in one.
type Rules struct {
	File string `mapstructure:"file"`
}

// Templates points at a directory of validation templates. Empty uses the
// built-in ones.
type Templates struct {
	Dir string `mapstructure:"dir"`
}

// Search configures the search index. An empty URL searches the local
// store.
type Search struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DoubleRecord configures the duplicate check. An empty URL checks
// against the local search index.
type DoubleRecord struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	KeyTTL  time.Duration `mapstructure:"key_ttl"`
}

// Messages points at a message catalog overlay. Empty uses the built-in
// catalog.
type Messages struct {
	File string `mapstructure:"file"`
}

// Metrics configures the metrics endpoint of serve.
type Metrics struct {
	Addr      string `mapstructure:"addr"`
	Namespace string `mapstructure:"namespace"`
}

// New returns a viper instance with the defaults set and the environment
// bound.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults sets the defaults of a development instance.
func SetDefaults(v *viper.Viper) {
	d := update.DefaultSettings()
	v.SetDefault(KeyDatabaseDriver, DriverSQLite)
	v.SetDefault(KeyDatabaseDSN, "recordupdate.db")
	v.SetDefault(KeyProduction, d.Production)
	v.SetDefault(KeyProviderDBC, d.ProviderDBC)
	v.SetDefault(KeyProviderFBS, d.ProviderFBS)
	v.SetDefault(KeyProviderPH, d.ProviderPH)
	v.SetDefault(KeyProviderPHHoldings, d.ProviderPHHoldings)
	v.SetDefault(KeyProviders, d.Providers)
	v.SetDefault(KeyPriorityDefault, d.DefaultPriority)
	v.SetDefault(KeyPriorityMax, d.MaxPriority)
	v.SetDefault(KeyRulesFile, "")
	v.SetDefault(KeyTemplatesDir, "")
	v.SetDefault(KeySearchURL, "")
	v.SetDefault(KeySearchTimeout, 10*time.Second)
	v.SetDefault(KeyDoubleRecordURL, "")
	v.SetDefault(KeyDoubleRecordTimeout, 30*time.Second)
	v.SetDefault(KeyDoubleRecordKeyTTL, 24*time.Hour)
	v.SetDefault(KeyMessagesFile, "")
	v.SetDefault(KeyMetricsAddr, ":8080")
	v.SetDefault(KeyMetricsNamespace, "recordupdate")
}

// Load reads file, when set, into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("%s: unsupported driver %q", KeyDatabaseDriver, c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyDatabaseDSN))
	}
	if c.Queue.Priority.Default <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyPriorityDefault))
	}
	if c.Queue.Priority.Max < c.Queue.Priority.Default {
		errs = append(errs, fmt.Errorf("%s must be at least %s", KeyPriorityMax, KeyPriorityDefault))
	}
	if c.DoubleRecord.KeyTTL < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyDoubleRecordKeyTTL))
	}
	return errors.Join(errs...)
}

// FileBacked reports whether the store is a local SQLite file.
func (c *Config) FileBacked() bool {
	return c.Database.Driver == DriverSQLite && c.Database.DSN != ":memory:" &&
		!strings.HasPrefix(c.Database.DSN, "file::memory:")
}

// UpdateSettings returns the settings the update actions read.
func (c *Config) UpdateSettings() update.Settings {
	return update.Settings{
		Production:         c.Instance.Production,
		ProviderDBC:        c.Queue.Provider.DBC,
		ProviderFBS:        c.Queue.Provider.FBS,
		ProviderPH:         c.Queue.Provider.PH,
		ProviderPHHoldings: c.Queue.Provider.PHHoldings,
		DefaultPriority:    c.Queue.Priority.Default,
		MaxPriority:        c.Queue.Priority.Max,
		Providers:          append([]string(nil), c.Queue.Providers...),
	}
}
