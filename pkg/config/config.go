package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Verification  VerificationConfig
	AuthRateLimit AuthRateLimitConfig
	Mail          MailConfig
	Uploads       UploadsConfig
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
	Env          string   `envconfig:"SHOPLANE_APP_ENV" required:"true"`
	Port         string   `envconfig:"SHOPLANE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"SHOPLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"SHOPLANE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"SHOPLANE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPLANE_DB_DSN"`
	Driver string `envconfig:"SHOPLANE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPLANE_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPLANE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPLANE_DB_USER"`
	LegacyPassword string `envconfig:"SHOPLANE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPLANE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPLANE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPLANE_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig carries distinct secrets per token kind so a leaked access secret
// cannot forge refresh tokens (or the reverse).
type JWTConfig struct {
	Issuer            string `envconfig:"SHOPLANE_JWT_ISSUER" required:"true"`
	AccessSecret      string `envconfig:"SHOPLANE_JWT_ACCESS_SECRET" required:"true"`
	RefreshSecret     string `envconfig:"SHOPLANE_JWT_REFRESH_SECRET" required:"true"`
	AccessTTLMinutes  int    `envconfig:"SHOPLANE_JWT_ACCESS_TTL_MINUTES" default:"15"`
	RefreshTTLMinutes int    `envconfig:"SHOPLANE_JWT_REFRESH_TTL_MINUTES" default:"10080"`
	ResetTTLMinutes   int    `envconfig:"SHOPLANE_JWT_RESET_TTL_MINUTES" default:"60"`
}

func (j JWTConfig) AccessTTL() time.Duration {
	if j.AccessTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.AccessTTLMinutes) * time.Minute
}

func (j JWTConfig) RefreshTTL() time.Duration {
	if j.RefreshTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTTLMinutes) * time.Minute
}

func (j JWTConfig) ResetTTL() time.Duration {
	if j.ResetTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ResetTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SHOPLANE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SHOPLANE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SHOPLANE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SHOPLANE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SHOPLANE_ARGON_KEY_LEN" default:"32"`
}

// VerificationConfig bounds the email verification code lifecycle.
type VerificationConfig struct {
	CodeTTL     time.Duration `envconfig:"SHOPLANE_VERIFICATION_CODE_TTL" default:"15m"`
	CodeLength  int           `envconfig:"SHOPLANE_VERIFICATION_CODE_LENGTH" default:"6"`
	MaxAttempts int           `envconfig:"SHOPLANE_VERIFICATION_MAX_ATTEMPTS" default:"5"`
	IssueWindow time.Duration `envconfig:"SHOPLANE_VERIFICATION_ISSUE_WINDOW" default:"1h"`
	IssueLimit  int           `envconfig:"SHOPLANE_VERIFICATION_ISSUE_LIMIT" default:"5"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SHOPLANE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SHOPLANE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SHOPLANE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SHOPLANE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SHOPLANE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SHOPLANE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type MailConfig struct {
	Host     string `envconfig:"SHOPLANE_SMTP_HOST"`
	Port     int    `envconfig:"SHOPLANE_SMTP_PORT" default:"587"`
	Username string `envconfig:"SHOPLANE_SMTP_USERNAME"`
	Password string `envconfig:"SHOPLANE_SMTP_PASSWORD"`
	From     string `envconfig:"SHOPLANE_SMTP_FROM"`
}

// Enabled reports whether outbound mail is configured; when false the mailer
// logs instead of dialing, which keeps dev environments self-contained.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.From != ""
}

type UploadsConfig struct {
	Dir         string `envconfig:"SHOPLANE_UPLOADS_DIR" default:"uploads"`
	BaseURL     string `envconfig:"SHOPLANE_UPLOADS_BASE_URL" default:"/uploads"`
	MaxUploadMB int    `envconfig:"SHOPLANE_UPLOADS_MAX_MB" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHOPLANE_AUTO_MIGRATE" default:"false"`
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
