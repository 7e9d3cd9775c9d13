package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the server configuration. Every key can be set in encuesta.yaml
// or overridden by an ENCUESTA_<KEY> environment variable.
type Config struct {
	Addr          string   `mapstructure:"addr"`
	DBDriver      string   `mapstructure:"db_driver"`
	DBDSN         string   `mapstructure:"db_dsn"`
	DBLogLevel    string   `mapstructure:"db_log_level"`
	MigrationsDir string   `mapstructure:"migrations_dir"`
	SchemaPath    string   `mapstructure:"schema_path"`
	StaticDir     string   `mapstructure:"static_dir"`
	CORS          []string `mapstructure:"cors"`

	SessionBackend string        `mapstructure:"session_backend"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	SessionSecret  string        `mapstructure:"session_secret"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password"`
	RedisDB        int           `mapstructure:"redis_db"`

	ScoreMild    int `mapstructure:"score_mild"`
	ScoreIntense int `mapstructure:"score_intense"`
}

var keys = map[string]any{
	"addr":            ":8080",
	"db_driver":       "sqlite",
	"db_dsn":          "file:encuesta.db",
	"db_log_level":    "warn",
	"migrations_dir":  "",
	"schema_path":     "",
	"static_dir":      "",
	"cors":            "*",
	"session_backend": "memory",
	"session_ttl":     "2h",
	"session_secret":  "",
	"redis_addr":      "localhost:6379",
	"redis_password":  "",
	"redis_db":        0,
	"score_mild":      22,
	"score_intense":   47,
}

// Load reads .env (when present), an optional encuesta.yaml from the working
// directory or ./config, and ENCUESTA_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}

	v := viper.New()
	v.SetConfigName("encuesta")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("ENCUESTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, def := range keys {
		v.SetDefault(k, def)
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORS = splitList(v.GetString("cors"))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) validate() error {
	switch strings.ToLower(c.DBDriver) {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("db_driver %q: want sqlite or postgres", c.DBDriver)
	}
	switch c.SessionBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("session_backend %q: want memory or redis", c.SessionBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if c.ScoreMild < 0 || c.ScoreIntense <= c.ScoreMild {
		return fmt.Errorf("score thresholds must satisfy 0 <= mild < intense (got %d, %d)", c.ScoreMild, c.ScoreIntense)
	}
	return nil
}
