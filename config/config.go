// ABOUTME: Application configuration loaded from YAML, .env and LEADSYNC_ environment variables
// ABOUTME: Uses viper for layering and gookit/validate for structural checks
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName names the config and data directories.
	AppName = "leadsync"

	// ConfigFileName is the default config file inside the config directory.
	ConfigFileName = "config.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "LEADSYNC"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type UserConfig struct {
	Name string `mapstructure:"name"`
	Role string `mapstructure:"role" validate:"in:admin,member"`
}

type TeamMember struct {
	Name string `mapstructure:"name"`
	Role string `mapstructure:"role"`
}

type FirebaseConfig struct {
	URL             string `mapstructure:"url"`
	Path            string `mapstructure:"path"`
	CredentialsFile string `mapstructure:"credentialsFile"`
	Secret          string `mapstructure:"secret"`
}

type CharmConfig struct {
	Host         string        `mapstructure:"host"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

type RemoteConfig struct {
	Backend  string         `mapstructure:"backend" validate:"required|in:memory,firebase,charm"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	Charm    CharmConfig    `mapstructure:"charm"`
}

type PlacesConfig struct {
	Backend       string        `mapstructure:"backend" validate:"required|in:google,static"`
	APIKey        string        `mapstructure:"apiKey"`
	FixtureFile   string        `mapstructure:"fixtureFile"`
	BatchSize     int           `mapstructure:"batchSize" validate:"required|min:1"`
	BatchDelay    time.Duration `mapstructure:"batchDelay"`
	Stagger       time.Duration `mapstructure:"stagger"`
	DetailCache   int           `mapstructure:"detailCacheBytes"`
	DetailTTL     time.Duration `mapstructure:"detailTTL"`
	DefaultRadius int           `mapstructure:"defaultRadius" validate:"required|min:1"`
}

type CacheConfig struct {
	Backend string `mapstructure:"backend" validate:"required|in:badger,sqlite,memory"`
	Path    string `mapstructure:"path"`
}

type SyncConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	TombstoneGrace time.Duration `mapstructure:"tombstoneGrace"`
}

type ExportConfig struct {
	WebhookURL       string `mapstructure:"webhookUrl"`
	SheetID          string `mapstructure:"sheetId"`
	SheetRange       string `mapstructure:"sheetRange"`
	SheetCredentials string `mapstructure:"sheetCredentials"`
	AMQPURL          string `mapstructure:"amqpUrl"`
	AMQPExchange     string `mapstructure:"amqpExchange"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"required|in:trace,debug,info,warn,error"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type Config struct {
	User   UserConfig   `mapstructure:"user"`
	Team   []TeamMember `mapstructure:"team"`
	Remote RemoteConfig `mapstructure:"remote"`
	Places PlacesConfig `mapstructure:"places"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Export ExportConfig `mapstructure:"export"`
	Log    LogConfig    `mapstructure:"log"`
	Server ServerConfig `mapstructure:"server"`

	// Path is the file the config was read from, empty when only defaults applied.
	Path string `mapstructure:"-"`
}

// DefaultPath returns $XDG_CONFIG_HOME/leadsync/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// DataDir returns $XDG_DATA_HOME/leadsync, creating it if needed.
func DataDir() (string, error) {
	dir := filepath.Join(xdg.DataHome, AppName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	return dir, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("user.name", "")
	v.SetDefault("user.role", RoleAdmin)
	v.SetDefault("remote.backend", "memory")
	v.SetDefault("remote.firebase.url", "")
	v.SetDefault("remote.firebase.path", "leads")
	v.SetDefault("remote.firebase.credentialsFile", "")
	v.SetDefault("remote.firebase.secret", "")
	v.SetDefault("remote.charm.host", "charm.2389.dev")
	v.SetDefault("remote.charm.pollInterval", 10*time.Second)
	v.SetDefault("places.backend", "google")
	v.SetDefault("places.apiKey", "")
	v.SetDefault("places.fixtureFile", "")
	v.SetDefault("places.batchSize", 10)
	v.SetDefault("places.batchDelay", 100*time.Millisecond)
	v.SetDefault("places.stagger", 150*time.Millisecond)
	v.SetDefault("places.detailCacheBytes", 8*1024*1024)
	v.SetDefault("places.detailTTL", 24*time.Hour)
	v.SetDefault("places.defaultRadius", 5000)
	v.SetDefault("cache.backend", "badger")
	v.SetDefault("cache.path", "")
	v.SetDefault("sync.debounce", 500*time.Millisecond)
	v.SetDefault("sync.tombstoneGrace", 5*time.Second)
	v.SetDefault("export.webhookUrl", "")
	v.SetDefault("export.sheetId", "")
	v.SetDefault("export.sheetRange", "Leads!A1")
	v.SetDefault("export.sheetCredentials", "")
	v.SetDefault("export.amqpUrl", "")
	v.SetDefault("export.amqpExchange", "leadsync.leads")
	v.SetDefault("log.level", "info")
	v.SetDefault("server.addr", ":8080")
}

// Load reads config from path (DefaultPath when empty). A missing file is not
// an error; defaults and environment overrides still apply.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Common secrets also accepted under their conventional names.
	_ = v.BindEnv("places.apiKey", EnvPrefix+"_PLACES_APIKEY", "GOOGLE_PLACES_API_KEY")
	_ = v.BindEnv("remote.firebase.url", EnvPrefix+"_REMOTE_FIREBASE_URL", "FIREBASE_DATABASE_URL")

	loadedFrom := ""
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		loadedFrom = path
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	cfg.Path = loadedFrom

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}

	for _, m := range c.Team {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("invalid config: team member without a name")
		}
		if m.Role != RoleAdmin && m.Role != RoleMember {
			return fmt.Errorf("invalid config: team member %q has unknown role %q", m.Name, m.Role)
		}
	}

	if c.Remote.Backend == "firebase" && c.Remote.Firebase.URL == "" {
		return fmt.Errorf("invalid config: remote.firebase.url is required for the firebase backend")
	}
	if c.Places.Backend == "static" && c.Places.FixtureFile == "" {
		return fmt.Errorf("invalid config: places.fixtureFile is required for the static backend")
	}
	return nil
}

// RoleOf returns the configured role for a team member name, or member when unknown.
func (c *Config) RoleOf(name string) string {
	if strings.EqualFold(name, c.User.Name) && c.User.Role != "" {
		return c.User.Role
	}
	for _, m := range c.Team {
		if strings.EqualFold(m.Name, name) {
			return m.Role
		}
	}
	return RoleMember
}

// WriteDefault writes a starter config file to path, refusing to overwrite.
func WriteDefault(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Chmod(path, 0600)
}
