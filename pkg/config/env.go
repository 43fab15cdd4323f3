package config

const (
	EnvPrefix = "ARMORY"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	NotifyModePubSub = "pubsub"
	NotifyModeInline = "inline"
)

const (
	EnvAppEnv   = "ARMORY_APP_ENV"
	EnvPort     = "ARMORY_APP_PORT"
	EnvLogLevel = "ARMORY_LOG_LEVEL"

	EnvDBDSN  = "ARMORY_DB_DSN"
	EnvDBHost = "ARMORY_DB_HOST"
	EnvDBUser = "ARMORY_DB_USER"
	EnvDBName = "ARMORY_DB_NAME"

	EnvRedisURL = "ARMORY_REDIS_URL"

	EnvJWTSecret     = "ARMORY_JWT_SECRET"
	EnvJWTIssuer     = "ARMORY_JWT_ISSUER"
	EnvJWTAdminGroup = "ARMORY_JWT_ADMIN_GROUP"

	EnvGCPProjectID = "ARMORY_GCP_PROJECT_ID"

	EnvPubSubAmmoTopic   = "ARMORY_PUBSUB_AMMO_CHANGES_TOPIC"
	EnvPubSubAmmoSub     = "ARMORY_PUBSUB_AMMO_CHANGES_SUBSCRIPTION"
	EnvPubSubNotifyTopic = "ARMORY_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotifySub   = "ARMORY_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvTableAmmo       = "ARMORY_TABLE_AMMO"
	EnvTableThresholds = "ARMORY_TABLE_THRESHOLDS"
	EnvTablePersons    = "ARMORY_TABLE_PERSONS"

	EnvNotifyMode   = "ARMORY_NOTIFY_MODE"
	EnvNotifyTarget = "ARMORY_NOTIFY_TARGET"

	EnvTwilioAccountSID   = "ARMORY_TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken    = "ARMORY_TWILIO_AUTH_TOKEN"
	EnvTwilioSMSFrom      = "ARMORY_TWILIO_SMS_FROM"
	EnvTwilioWhatsAppFrom = "ARMORY_TWILIO_WHATSAPP_FROM"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
