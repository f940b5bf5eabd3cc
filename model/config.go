package model

import "time"

// EnvConfig holds the process settings read from the environment.
type EnvConfig struct {
	BotToken                 string        `env:"BOT_TOKEN,required"`
	GuildID                  string        `env:"GUILD_ID,required"`
	LogChannelID             string        `env:"LOG_CHANNEL_ID"`
	DataDir                  string        `env:"DATA_DIR" envDefault:"data"`
	StoreBackend             string        `env:"STORE_BACKEND" envDefault:"sqlite"`
	HTTPAddr                 string        `env:"HTTP_ADDR" envDefault:":8080"`
	APIToken                 string        `env:"API_TOKEN"`
	ModerationConfigPath     string        `env:"MODERATION_CONFIG" envDefault:"data/moderation.yaml"`
	LogLevel                 string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat                string        `env:"LOG_FORMAT" envDefault:"text"`
	DisableCommandUnregister bool          `env:"DISABLE_COMMAND_UNREGISTER"`
	ReportInterval           time.Duration `env:"REPORT_INTERVAL" envDefault:"24h"`
}

// AutoPunishConfig is the punishment applied when warnings reach the threshold.
// Kind "mute" with a zero Duration is a standing mute with no expiry.
type AutoPunishConfig struct {
	Kind     TimedActionKind `mapstructure:"kind" json:"kind"`
	Duration time.Duration   `mapstructure:"duration" json:"duration"`
}

// ModerationConfig is the moderation policy table.
type ModerationConfig struct {
	ProtectedRoles               []string         `mapstructure:"protected_roles" json:"protected_roles"`
	ModeratorRoles               []string         `mapstructure:"moderator_roles" json:"moderator_roles"`
	WarningThreshold             int              `mapstructure:"warning_threshold" json:"warning_threshold"`
	AutoPunish                   AutoPunishConfig `mapstructure:"auto_punish" json:"auto_punish"`
	ActorMuteDuration            time.Duration    `mapstructure:"actor_mute_duration" json:"actor_mute_duration"`
	EscalationRespectsProtection bool             `mapstructure:"escalation_respects_protection" json:"escalation_respects_protection"`
	PersistTimeout               time.Duration    `mapstructure:"persist_timeout" json:"persist_timeout"`
	MutedRoleName                string           `mapstructure:"muted_role_name" json:"muted_role_name"`
}

// MaxTimeout is the longest communication timeout the platform accepts.
const MaxTimeout = 28 * 24 * time.Hour

// DefaultModerationConfig returns the policy used when no file overrides it.
func DefaultModerationConfig() ModerationConfig {
	return ModerationConfig{
		ProtectedRoles:   []string{"Owner", "Co-Owner"},
		ModeratorRoles:   []string{"Owner", "Co-Owner", "Senior Moderator"},
		WarningThreshold: 3,
		AutoPunish: AutoPunishConfig{
			Kind:     KindTimeout,
			Duration: MaxTimeout,
		},
		ActorMuteDuration: 5 * time.Minute,
		PersistTimeout:    5 * time.Second,
		MutedRoleName:     "muted",
	}
}

// Config stores the application configuration.
type Config struct {
	EnvConfig
	Moderation ModerationConfig
}
