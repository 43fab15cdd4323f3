package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Eventing EventingConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Tables   TablesConfig
	Notify   NotifyConfig
	Twilio   TwilioConfig
	Outbox   OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Notify.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ARMORY_APP_ENV" required:"true"`
	Port         string `envconfig:"ARMORY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ARMORY_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"ARMORY_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"ARMORY_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"ARMORY_AUTO_MIGRATE" default:"false"`
	// CORSOrigins is a comma separated list of admin UI origins.
	CORSOrigins []string `envconfig:"ARMORY_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"ARMORY_DB_DSN"`

	LegacyHost     string `envconfig:"ARMORY_DB_HOST"`
	LegacyPort     int    `envconfig:"ARMORY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ARMORY_DB_USER"`
	LegacyPassword string `envconfig:"ARMORY_DB_PASSWORD"`
	LegacyName     string `envconfig:"ARMORY_DB_NAME"`
	LegacySSLMode  string `envconfig:"ARMORY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ARMORY_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"ARMORY_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"ARMORY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ARMORY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ARMORY_REDIS_URL"`
	Address      string        `envconfig:"ARMORY_REDIS_ADDR"`
	Password     string        `envconfig:"ARMORY_REDIS_PASSWORD"`
	DB           int           `envconfig:"ARMORY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ARMORY_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"ARMORY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ARMORY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ARMORY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies admin bearer tokens. Tokens are minted by the identity
// provider that fronts the site; this service only checks them.
type JWTConfig struct {
	Secret     string `envconfig:"ARMORY_JWT_SECRET" required:"true"`
	Issuer     string `envconfig:"ARMORY_JWT_ISSUER" required:"true"`
	AdminGroup string `envconfig:"ARMORY_JWT_ADMIN_GROUP" default:"admin"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"ARMORY_EVENTING_IDEMPOTENCY_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ARMORY_GCP_PROJECT_ID" required:"true"`
}

type PubSubConfig struct {
	AmmoChangesTopic         string `envconfig:"ARMORY_PUBSUB_AMMO_CHANGES_TOPIC" default:"ammo-changes"`
	AmmoChangesSubscription  string `envconfig:"ARMORY_PUBSUB_AMMO_CHANGES_SUBSCRIPTION" default:"ammo-changes-threshold"`
	NotificationTopic        string `envconfig:"ARMORY_PUBSUB_NOTIFICATION_TOPIC" default:"notification-requests"`
	NotificationSubscription string `envconfig:"ARMORY_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"notification-requests-sender"`
}

// TablesConfig names the backing collections read by the evaluator.
type TablesConfig struct {
	Ammo       string `envconfig:"ARMORY_TABLE_AMMO" default:"ammo_lots"`
	Thresholds string `envconfig:"ARMORY_TABLE_THRESHOLDS" default:"threshold_rules"`
	Persons    string `envconfig:"ARMORY_TABLE_PERSONS" default:"persons"`
}

// NotifyConfig selects how the evaluator hands alerts to the dispatcher.
// Target is the topic the pubsub mode publishes to; it falls back to the
// configured notification topic.
type NotifyConfig struct {
	Mode     string `envconfig:"ARMORY_NOTIFY_MODE" default:"pubsub"`
	Target   string `envconfig:"ARMORY_NOTIFY_TARGET"`
	PageSize int    `envconfig:"ARMORY_NOTIFY_PAGE_SIZE" default:"100"`
}

func (n NotifyConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(n.Mode)) {
	case NotifyModePubSub, NotifyModeInline:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvNotifyMode, NotifyModePubSub, NotifyModeInline, n.Mode)
	}
}

// IsInline reports whether alerts are sent from the evaluator process.
func (n NotifyConfig) IsInline() bool {
	return strings.EqualFold(strings.TrimSpace(n.Mode), NotifyModeInline)
}

// TargetTopic resolves the dispatch target, defaulting to the notification topic.
func (n NotifyConfig) TargetTopic(ps PubSubConfig) string {
	if target := strings.TrimSpace(n.Target); target != "" {
		return target
	}
	return ps.NotificationTopic
}

// TwilioConfig holds the messaging transport credentials. Missing values are
// not a load error: the dispatcher reports them per send.
type TwilioConfig struct {
	AccountSID   string `envconfig:"ARMORY_TWILIO_ACCOUNT_SID"`
	AuthToken    string `envconfig:"ARMORY_TWILIO_AUTH_TOKEN"`
	SMSFrom      string `envconfig:"ARMORY_TWILIO_SMS_FROM"`
	WhatsAppFrom string `envconfig:"ARMORY_TWILIO_WHATSAPP_FROM"`
}

// HasCredentials reports whether both halves of the account credential pair are set.
func (t TwilioConfig) HasCredentials() bool {
	return strings.TrimSpace(t.AccountSID) != "" && strings.TrimSpace(t.AuthToken) != ""
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ARMORY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ARMORY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ARMORY_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
