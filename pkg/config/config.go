package config

import (
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Supported database drivers.
const (
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
)

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/lendshelf.yaml"
)

// listKeys are read from the environment as comma separated values.
var listKeys = map[string]bool{
	"kafka_brokers": true,
}

type Config struct {
	Environment string `koanf:"environment" default:"development"`

	DatabaseDriver            string        `koanf:"database_driver" default:"sqlite" validate:"oneof=sqlite postgres"`
	DatabaseFilePath          string        `koanf:"database_file_path" validate:"required_if=DatabaseDriver sqlite"`
	DatabaseURL               string        `koanf:"database_url" validate:"required_if=DatabaseDriver postgres"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`

	ServerHost string `koanf:"server_host" default:"0.0.0.0"`
	ServerPort int    `koanf:"server_port" default:"3689"`

	JWTSecret string `koanf:"jwt_secret" validate:"required"`

	// Optional. Order creation idempotency keys live in memory when unset.
	RedisAddr      string        `koanf:"redis_addr"`
	IdempotencyTTL time.Duration `koanf:"idempotency_ttl" default:"24h"`

	// Optional. Loan events are dropped when no brokers are configured.
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic" default:"library.orders"`
}

// New loads the config from the YAML file named by CONFIG_FILE (if it
// exists), then from environment variables, which take precedence.
func New() (*Config, error) {
	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
		}
	}

	err := k.Load(env.ProviderWithValue("", ".", envValue), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config backed by an in-memory SQLite database.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.Environment = "test"
	cfg.DatabaseFilePath = ":memory:"
	cfg.DatabaseConnectRetryCount = 1
	cfg.DatabaseConnectRetryDelay = 0
	cfg.ServerHost = "127.0.0.1"
	cfg.JWTSecret = "test-secret"
	return cfg
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return errors.WithStack(err)
	}

	fe := errs[0]
	key := toSnakeCase(fe.StructField())
	switch fe.Tag() {
	case "required", "required_if":
		return errors.Errorf("missing required config: set %s or %s in the config file", strings.ToUpper(key), key)
	default:
		return errors.Errorf("invalid config value for %s (%s): %v", strings.ToUpper(key), key, fe.Value())
	}
}

// envValue lowercases the variable name and splits list keys on commas.
func envValue(key, value string) (string, interface{}) {
	key = strings.ToLower(key)
	if !listKeys[key] {
		return key, value
	}
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

func toSnakeCase(field string) string {
	return strcase.ToSnake(field)
}
