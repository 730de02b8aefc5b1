package config

import (
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/formkite/formkite/log"
)

type Config struct {
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	BaseURL     string `mapstructure:"base_url"`
	DBUrl       string `mapstructure:"db_url"`
	TokenSecret string `mapstructure:"token_secret"`
	TokenTTL    uint   `mapstructure:"token_ttl"`
	AdminEmail  string `mapstructure:"admin_email"`
	AdminPass   string `mapstructure:"admin_password"`
	MockForms   bool   `mapstructure:"mock_forms"`
	Debug       bool   `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "8080")
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("db_url", "formkite.sqlite")
	// empty defaults register the keys so environment overrides bind
	v.SetDefault("token_secret", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("token_ttl", 28800) // seconds
	v.SetDefault("admin_email", "admin@formkite.local")
	v.SetDefault("mock_forms", false)
	v.SetDefault("debug", false)
}

// Load reads config.yaml from the working directory, if present, then lets
// FORMKITE_* environment variables override it. The file is watched so edits
// apply without a restart; the token secret is the one setting that has no
// safe default.
func Load() (cfg Config, err error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("FORMKITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, errors.Wrap(err, "read config file")
		}
	}

	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "decode config")
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Infof("config file changed, reloading: %s", e.Name)
		if err := v.Unmarshal(&cfg); err != nil {
			log.Errorf("config reload: %s", err)
		}
	})

	if cfg.TokenSecret == "" {
		return cfg, errors.New("missing setting token_secret (FORMKITE_TOKEN_SECRET)")
	}
	return cfg, nil
}

func (cfg Config) Addr() string {
	return net.JoinHostPort(cfg.Host, cfg.Port)
}

func (cfg Config) TTL() time.Duration {
	return time.Duration(cfg.TokenTTL) * time.Second
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr()
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
