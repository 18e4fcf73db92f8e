package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const configDir = ".gurubase"
const configFile = "config.json"

const (
	defaultFirstChunkDelay = 300 * time.Millisecond
	defaultErrorBanner     = 5 * time.Second
)

type Config struct {
	Server     string `json:"server" mapstructure:"server"`
	Frontend   string `json:"frontend,omitempty" mapstructure:"frontend"`
	Token      string `json:"token,omitempty" mapstructure:"token"`
	SelfHosted bool   `json:"self_hosted,omitempty" mapstructure:"self_hosted"`
	CSRFToken  string `json:"csrf_token,omitempty" mapstructure:"csrf_token"`
	SessionID  string `json:"session_id,omitempty" mapstructure:"session_id"`
	GuruType   string `json:"guru_type,omitempty" mapstructure:"guru_type"`

	// Thread linkage carried between invocations.
	LastSlug       string `json:"last_slug,omitempty" mapstructure:"last_slug"`
	LastParentSlug string `json:"last_parent_slug,omitempty" mapstructure:"last_parent_slug"`
	LastBingeID    string `json:"last_binge_id,omitempty" mapstructure:"last_binge_id"`
	LastRootSlug   string `json:"last_root_slug,omitempty" mapstructure:"last_root_slug"`

	FirstChunkDelayMS int    `json:"first_chunk_delay_ms,omitempty" mapstructure:"first_chunk_delay_ms"`
	ErrorBannerMS     int    `json:"error_banner_ms,omitempty" mapstructure:"error_banner_ms"`
	LogFile           string `json:"log_file,omitempty" mapstructure:"log_file"`
	Debug             bool   `json:"debug,omitempty" mapstructure:"debug"`

	Profile string `json:"-" mapstructure:"-"`
}

// Dir returns the directory holding config, cookies and logs.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot find home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

func configPath(profile string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	filename := configFile
	if profile != "" {
		filename = fmt.Sprintf("config-%s.json", profile)
	}
	return filepath.Join(dir, filename), nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("GURUBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only overrides keys viper already knows about.
	for _, key := range []string{
		"server", "frontend", "token", "csrf_token", "session_id", "guru_type",
		"last_slug", "last_parent_slug", "last_binge_id", "last_root_slug", "log_file",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("self_hosted", false)
	v.SetDefault("debug", false)
	v.SetDefault("first_chunk_delay_ms", int(defaultFirstChunkDelay/time.Millisecond))
	v.SetDefault("error_banner_ms", int(defaultErrorBanner/time.Millisecond))
	return v
}

// Load reads the profile's config file, then applies GURUBASE_* environment
// overrides. A missing file yields an empty (env-only) config.
func Load(profile string) (*Config, error) {
	path, err := configPath(profile)
	if err != nil {
		return nil, err
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Profile = profile
	return &cfg, nil
}

func (c *Config) Save() error {
	path, err := configPath(c.Profile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) profileFlag() string {
	if c.Profile == "" {
		return ""
	}
	return " --profile " + c.Profile
}

func (c *Config) Validate() error {
	pf := c.profileFlag()
	if c.Server == "" {
		return fmt.Errorf("not logged in. Run: gurubase%s login <server-url> --token <api-key>", pf)
	}
	if c.SelfHosted {
		if c.CSRFToken == "" || c.SessionID == "" {
			return fmt.Errorf("self-hosted session missing. Run: gurubase%s login <server-url> --self-hosted --csrf <token> --session <id>", pf)
		}
		return nil
	}
	if c.Token == "" {
		return fmt.Errorf("not authenticated. Run: gurubase%s login <server-url> --token <api-key>", pf)
	}
	return nil
}

func (c *Config) ValidateGuru() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.GuruType == "" {
		return fmt.Errorf("guru not set. Run: gurubase%s set guru <guru-type>", c.profileFlag())
	}
	return nil
}

// FirstChunkDelay is how long the previous answer stays visible after the
// first chunk of a new one arrives.
func (c *Config) FirstChunkDelay() time.Duration {
	if c.FirstChunkDelayMS <= 0 {
		return defaultFirstChunkDelay
	}
	return time.Duration(c.FirstChunkDelayMS) * time.Millisecond
}

// ErrorBanner is how long a transport error classification stays set.
func (c *Config) ErrorBanner() time.Duration {
	if c.ErrorBannerMS <= 0 {
		return defaultErrorBanner
	}
	return time.Duration(c.ErrorBannerMS) * time.Millisecond
}

// WebBase is the web UI origin used when printing links.
func (c *Config) WebBase() string {
	if c.Frontend != "" {
		return strings.TrimRight(c.Frontend, "/")
	}
	return strings.TrimSuffix(strings.TrimRight(c.Server, "/"), "/api")
}

// RememberThread records the slug linkage of the last answered question.
func (c *Config) RememberThread(current, parent, bingeID, rootSlug string) {
	c.LastSlug = current
	c.LastParentSlug = parent
	c.LastBingeID = bingeID
	c.LastRootSlug = rootSlug
}

// ForgetThread drops the binge so the next question starts a fresh thread.
func (c *Config) ForgetThread() {
	c.LastParentSlug = ""
	c.LastBingeID = ""
	c.LastRootSlug = ""
}

func ListProfiles() ([]string, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config directory: %w", err)
	}
	var profiles []string
	for _, e := range entries {
		name := e.Name()
		if name == configFile {
			profiles = append(profiles, "default")
			continue
		}
		if strings.HasPrefix(name, "config-") && strings.HasSuffix(name, ".json") {
			profiles = append(profiles, strings.TrimSuffix(strings.TrimPrefix(name, "config-"), ".json"))
		}
	}
	return profiles, nil
}

func ProfileName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}
