// Package config loads the settings of an EVE SSO application from an
// optional YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	eveoauth2 "github.com/blackrose-eve/eve-oauth2"
	"github.com/blackrose-eve/eve-oauth2/validator"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "EVE_SSO"

// Settings configures an SSO and the example server.
type Settings struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`

	// ApplicationDomain is host:port of the application, e.g. localhost:8000.
	// It provides the defaults of RedirectURL and ListenAddr.
	ApplicationDomain string   `mapstructure:"application_domain"`
	RedirectURL       string   `mapstructure:"redirect_url"`
	ListenAddr        string   `mapstructure:"listen_addr"`
	Scopes            []string `mapstructure:"scopes"`
	PKCE              bool     `mapstructure:"pkce"`

	DiscoveryURL     string        `mapstructure:"discovery_url"`
	AuthURL          string        `mapstructure:"auth_url"`
	TokenURL         string        `mapstructure:"token_url"`
	KeySetTTL        time.Duration `mapstructure:"key_set_ttl"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	AllowedClockSkew time.Duration `mapstructure:"allowed_clock_skew"`

	Redis RedisSettings `mapstructure:"redis"`
	Log   LogSettings   `mapstructure:"log"`
}

// RedisSettings configures the shared key set store. An empty Addr disables it.
type RedisSettings struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// LogSettings selects the logging backend.
type LogSettings struct {
	// Backend is one of zap, zerolog or logrus.
	Backend string `mapstructure:"backend"`
	Level   string `mapstructure:"level"`
}

// env lists every settings key with the variables it is read from, in order
// of precedence. The unprefixed names are the ones used by EVE's examples.
var env = map[string][]string{
	"client_id":          {EnvPrefix + "_CLIENT_ID", "ESI_CLIENT_ID"},
	"client_secret":      {EnvPrefix + "_CLIENT_SECRET", "ESI_CLIENT_SECRET"},
	"application_domain": {EnvPrefix + "_APPLICATION_DOMAIN", "APPLICATION_DOMAIN"},
	"redirect_url":       {EnvPrefix + "_REDIRECT_URL"},
	"listen_addr":        {EnvPrefix + "_LISTEN_ADDR"},
	"scopes":             {EnvPrefix + "_SCOPES"},
	"pkce":               {EnvPrefix + "_PKCE"},
	"discovery_url":      {EnvPrefix + "_DISCOVERY_URL"},
	"auth_url":           {EnvPrefix + "_AUTH_URL"},
	"token_url":          {EnvPrefix + "_TOKEN_URL"},
	"key_set_ttl":        {EnvPrefix + "_KEY_SET_TTL"},
	"fetch_timeout":      {EnvPrefix + "_FETCH_TIMEOUT"},
	"allowed_clock_skew": {EnvPrefix + "_ALLOWED_CLOCK_SKEW"},
	"redis.addr":         {EnvPrefix + "_REDIS_ADDR"},
	"redis.password":     {EnvPrefix + "_REDIS_PASSWORD"},
	"redis.db":           {EnvPrefix + "_REDIS_DB"},
	"redis.key_prefix":   {EnvPrefix + "_REDIS_KEY_PREFIX"},
	"log.backend":        {EnvPrefix + "_LOG_BACKEND"},
	"log.level":          {EnvPrefix + "_LOG_LEVEL"},
}

type loader struct {
	configFile string
	envFile    string
}

// LoaderOption configures Load.
type LoaderOption func(*loader)

// WithConfigFile reads a YAML file first. A missing file is an error.
func WithConfigFile(path string) LoaderOption {
	return func(l *loader) { l.configFile = path }
}

// WithEnvFile loads a dotenv file instead of ./.env. A missing file is an
// error; a missing ./.env is not.
func WithEnvFile(path string) LoaderOption {
	return func(l *loader) { l.envFile = path }
}

// Load reads Settings, applies defaults and validates them. Environment
// variables override the config file; variables from the dotenv file never
// override ones already set.
func Load(opts ...LoaderOption) (*Settings, error) {
	var l loader
	for _, opt := range opts {
		opt(&l)
	}

	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", l.envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	for key, names := range env {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// ApplyDefaults fills unset fields.
func (s *Settings) ApplyDefaults() {
	if s.ApplicationDomain == "" {
		s.ApplicationDomain = "localhost:8000"
	}
	if s.RedirectURL == "" {
		s.RedirectURL = "http://" + s.ApplicationDomain + "/callback"
	}
	if s.ListenAddr == "" {
		s.ListenAddr = s.ApplicationDomain
	}
	if len(s.Scopes) == 0 {
		s.Scopes = []string{"publicData"}
	}
	if s.Log.Backend == "" {
		s.Log.Backend = "zap"
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
}

// Validate reports the first invalid setting.
func (s *Settings) Validate() error {
	if s.ClientID == "" {
		return errors.New("client_id is required (ESI_CLIENT_ID)")
	}
	if s.ClientSecret == "" {
		return errors.New("client_secret is required (ESI_CLIENT_SECRET)")
	}
	if !absoluteURL(s.RedirectURL) {
		return fmt.Errorf("redirect_url %q is not an absolute URL", s.RedirectURL)
	}
	for name, u := range map[string]string{"discovery_url": s.DiscoveryURL, "auth_url": s.AuthURL, "token_url": s.TokenURL} {
		if u != "" && !absoluteURL(u) {
			return fmt.Errorf("%s %q is not an absolute URL", name, u)
		}
	}
	if (s.AuthURL == "") != (s.TokenURL == "") {
		return errors.New("auth_url and token_url must be set together")
	}
	if s.KeySetTTL < 0 {
		return errors.New("key_set_ttl cannot be negative")
	}
	if s.FetchTimeout < 0 {
		return errors.New("fetch_timeout cannot be negative")
	}
	if s.AllowedClockSkew < 0 || s.AllowedClockSkew > validator.MaxAllowedClockSkew {
		return fmt.Errorf("allowed_clock_skew must be between 0 and %s", validator.MaxAllowedClockSkew)
	}
	if _, err := s.Logger(io.Discard); err != nil {
		return fmt.Errorf("invalid log settings: %w", err)
	}
	return nil
}

// Options returns the SSO options described by s. The shared key set store
// is not included; see KeySetStore.
func (s *Settings) Options() []eveoauth2.Option {
	opts := []eveoauth2.Option{
		eveoauth2.WithClientCredentials(s.ClientID, s.ClientSecret),
		eveoauth2.WithRedirectURL(s.RedirectURL),
		eveoauth2.WithScopes(s.Scopes...),
	}
	if s.PKCE {
		opts = append(opts, eveoauth2.WithPKCE())
	}
	if s.DiscoveryURL != "" {
		opts = append(opts, eveoauth2.WithDiscoveryURL(s.DiscoveryURL))
	}
	if s.AuthURL != "" {
		opts = append(opts, eveoauth2.WithEndpoint(s.AuthURL, s.TokenURL))
	}
	if s.KeySetTTL > 0 {
		opts = append(opts, eveoauth2.WithKeySetTTL(s.KeySetTTL))
	}
	if s.FetchTimeout > 0 {
		opts = append(opts, eveoauth2.WithFetchTimeout(s.FetchTimeout))
	}
	if s.AllowedClockSkew > 0 {
		opts = append(opts, eveoauth2.WithAllowedClockSkew(s.AllowedClockSkew))
	}
	return opts
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
