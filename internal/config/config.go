// Package config loads the biolink server configuration.
//
// Values are merged from, in increasing priority: built-in defaults,
// a JSON file named by -c or CONFIG, environment variables (a .env file is
// loaded first when present) and command line flags. The result is validated
// before it is returned.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"reflect"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/thoas/go-funk"
)

// Config holds every setting of the server.
type Config struct {
	RunAddr  string `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	LogLevel string `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`

	DBFileName          string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"storagepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"db_connection_timeout"`

	MongoURI      string `env:"MONGO_URI" json:"mongo_uri"`
	MongoDatabase string `env:"MONGO_DATABASE" json:"mongo_database"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT" json:"minio_endpoint"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY" json:"minio_access_key"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY" json:"minio_secret_key"`
	MinIOBucket    string `env:"MINIO_BUCKET" json:"minio_bucket"`
	MinIOObject    string `env:"MINIO_OBJECT" json:"minio_object"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL" json:"minio_use_ssl"`

	AdminPassword              string        `env:"ADMIN_PASSWORD" json:"admin_password" validate:"required"`
	AuthCookieName             string        `env:"AUTH_COOKIE_NAME" json:"auth_cookie_name" validate:"required"`
	AuthCookieSigningSecretKey string        `env:"AUTH_COOKIE_SIGNING_SECRET_KEY" json:"auth_cookie_signing_secret_key" validate:"base64url"`
	SessionTTL                 time.Duration `env:"SESSION_TTL" json:"session_ttl" validate:"gt=0"`
	RedisAddr                  string        `env:"REDIS_ADDR" json:"redis_addr" validate:"omitempty,hostname_port"`

	LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT" json:"login_rate_limit" validate:"gt=0"`
	LoginRateBurst int     `env:"LOGIN_RATE_BURST" json:"login_rate_burst" validate:"gt=0"`
	TrustedSubnet  string  `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`

	// TrustedProxies lists the CIDRs of reverse proxies whose X-Real-IP and
	// X-Forwarded-For headers name the client. Empty means no proxy is believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," json:"trusted_proxies" validate:"omitempty,dive,cidr"`

	ConfigFile string `env:"CONFIG" json:"-"`
}

// fileConfig is the JSON file layout. Durations are written as strings such as "10s".
type fileConfig struct {
	Config
	DBConnectionTimeout string `json:"db_connection_timeout"`
	SessionTTL          string `json:"session_ttl"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	LogLevel:            "info",
	DBFileName:          "database.json",
	DBConnectionTimeout: 10 * time.Second,
	MongoDatabase:       "biolink",
	MinIOBucket:         "biolink",
	MinIOObject:         "biolink.json",
	AuthCookieName:      "biolink_session",
	SessionTTL:          24 * time.Hour,
	LoginRateLimit:      1,
	LoginRateBurst:      5,
}

var allowedLogLevels = []string{"debug", "info", "warn", "error", "fatal"}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing makes New ignore os.Args.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds the configuration from all sources.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	var valuesFromFlags Config
	if !options.disableFlagsParsing {
		if err := parseFlags(&valuesFromFlags, os.Args[1:]); err != nil {
			return nil, err
		}
	}

	var valuesFromEnv Config
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := valuesFromEnv.ConfigFile
	if valuesFromFlags.ConfigFile != "" {
		configFile = valuesFromFlags.ConfigFile
	}
	if configFile != "" {
		valuesFromFile, err := loadFile(configFile)
		if err != nil {
			return nil, err
		}
		applyOverrides(values, valuesFromFile)
	}

	applyOverrides(values, valuesFromEnv)
	applyOverrides(values, valuesFromFlags)

	if values.AuthCookieSigningSecretKey == "" {
		values.AuthCookieSigningSecretKey, err = generateSigningKey()
		if err != nil {
			return nil, err
		}
		log.Printf("AUTH_COOKIE_SIGNING_SECRET_KEY is not set, sessions will not survive a restart")
	}

	if err := validate(values); err != nil {
		return nil, err
	}

	return values, nil
}

// SigningKey returns the decoded cookie signing key.
func (c *Config) SigningKey() ([]byte, error) {
	return base64.URLEncoding.DecodeString(c.AuthCookieSigningSecretKey)
}

func parseFlags(values *Config, args []string) error {
	flags := flag.NewFlagSet("biolink", flag.ContinueOnError)
	flags.StringVar(&values.RunAddr, "a", "", "address and port to run server")
	flags.StringVar(&values.LogLevel, "l", "", "logger level")
	flags.StringVar(&values.DBFileName, "f", "", "JSON file holding the biolink document")
	flags.StringVar(&values.DatabaseDSN, "d", "", "PostgreSQL connection string")
	flags.StringVar(&values.MongoURI, "m", "", "MongoDB connection URI")
	flags.StringVar(&values.MinIOEndpoint, "s", "", "MinIO (S3) endpoint")
	flags.StringVar(&values.RedisAddr, "r", "", "Redis address for the session store")
	flags.StringVar(&values.TrustedSubnet, "t", "", "CIDR allowed to read /metrics")
	flags.StringVar(&values.ConfigFile, "c", "", "JSON configuration file")

	return flags.Parse(args)
}

func loadFile(fileName string) (Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}

	var fromFile fileConfig
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return Config{}, fmt.Errorf("error parsing config file: %w", err)
	}

	result := fromFile.Config
	if fromFile.DBConnectionTimeout != "" {
		result.DBConnectionTimeout, err = time.ParseDuration(fromFile.DBConnectionTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("db_connection_timeout: %w", err)
		}
	}
	if fromFile.SessionTTL != "" {
		result.SessionTTL, err = time.ParseDuration(fromFile.SessionTTL)
		if err != nil {
			return Config{}, fmt.Errorf("session_ttl: %w", err)
		}
	}

	return result, nil
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

// applyOverrides copies every non-zero field of src into dst.
func applyOverrides(dst *Config, src Config) {
	dstValue := reflect.ValueOf(dst).Elem()
	srcValue := reflect.ValueOf(src)
	for i := 0; i < srcValue.NumField(); i++ {
		if !srcValue.Field(i).IsZero() {
			dstValue.Field(i).Set(srcValue.Field(i))
		}
	}
}

func generateSigningKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(key), nil
}

func validateStoragePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return true
	}

	return err == nil && !info.IsDir()
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	return funk.ContainsString(allowedLogLevels, fieldLevel.Field().String())
}

func validate(values *Config) error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("storagepath", validateStoragePath)
	if err != nil {
		return err
	}

	return validate.Struct(values)
}
