package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "KIGALIBN"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv    = "KIGALIBN_APP_ENV"
	EnvPort      = "KIGALIBN_APP_PORT"
	EnvDBDSN     = "KIGALIBN_DB_DSN"
	EnvDBHost    = "KIGALIBN_DB_HOST"
	EnvDBUser    = "KIGALIBN_DB_USER"
	EnvDBName    = "KIGALIBN_DB_NAME"
	EnvRedisURL  = "KIGALIBN_REDIS_URL"
	EnvJWTSecret = "KIGALIBN_JWT_SECRET"
	EnvJWTIssuer = "KIGALIBN_JWT_ISSUER"
	EnvJWTExp    = "KIGALIBN_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KIGALIBN_APP_ENV" required:"true"`
	Port         string `envconfig:"KIGALIBN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KIGALIBN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KIGALIBN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"KIGALIBN_DB_DSN"`

	LegacyHost     string `envconfig:"KIGALIBN_DB_HOST"`
	LegacyPort     int    `envconfig:"KIGALIBN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KIGALIBN_DB_USER"`
	LegacyPassword string `envconfig:"KIGALIBN_DB_PASSWORD"`
	LegacyName     string `envconfig:"KIGALIBN_DB_NAME"`
	LegacySSLMode  string `envconfig:"KIGALIBN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KIGALIBN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KIGALIBN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KIGALIBN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KIGALIBN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KIGALIBN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KIGALIBN_REDIS_ADDR"`
	Password     string        `envconfig:"KIGALIBN_REDIS_PASSWORD"`
	DB           int           `envconfig:"KIGALIBN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KIGALIBN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KIGALIBN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KIGALIBN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KIGALIBN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KIGALIBN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KIGALIBN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KIGALIBN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KIGALIBN_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"KIGALIBN_SESSION_TTL_MINUTES" default:"1440"`
}

// SessionTTL returns the server-side session lifetime.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KIGALIBN_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KIGALIBN_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KIGALIBN_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KIGALIBN_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KIGALIBN_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"KIGALIBN_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"KIGALIBN_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"KIGALIBN_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"KIGALIBN_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"KIGALIBN_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"KIGALIBN_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"KIGALIBN_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
