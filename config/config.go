package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"eclipse-warden/model"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load loads the process settings from the environment (and .env when
// present) and the moderation policy from its file.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	var envCfg model.EnvConfig
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if envCfg.LogChannelID == "" {
		log.Println("Warning: LOG_CHANNEL_ID not set, mod-log posting will be disabled")
	}

	modCfg, err := LoadModeration(envCfg.ModerationConfigPath)
	if err != nil {
		return nil, err
	}

	return &model.Config{EnvConfig: envCfg, Moderation: modCfg}, nil
}

// LoadModeration reads the policy file at path. A missing file yields the
// defaults; MOD_ prefixed environment variables override either.
func LoadModeration(path string) (model.ModerationConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return model.ModerationConfig{}, fmt.Errorf("failed to read moderation config %s: %w", path, err)
			}
			log.Printf("Loaded moderation policy from %s", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return model.ModerationConfig{}, fmt.Errorf("failed to stat moderation config %s: %w", path, err)
		} else {
			log.Printf("Info: %s not found, using the default moderation policy", path)
		}
	}

	var cfg model.ModerationConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return model.ModerationConfig{}, fmt.Errorf("failed to decode moderation config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return model.ModerationConfig{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := model.DefaultModerationConfig()
	v.SetDefault("protected_roles", d.ProtectedRoles)
	v.SetDefault("moderator_roles", d.ModeratorRoles)
	v.SetDefault("warning_threshold", d.WarningThreshold)
	v.SetDefault("auto_punish.kind", string(d.AutoPunish.Kind))
	v.SetDefault("auto_punish.duration", d.AutoPunish.Duration)
	v.SetDefault("actor_mute_duration", d.ActorMuteDuration)
	v.SetDefault("escalation_respects_protection", d.EscalationRespectsProtection)
	v.SetDefault("persist_timeout", d.PersistTimeout)
	v.SetDefault("muted_role_name", d.MutedRoleName)
}

// Validate rejects policies the engine cannot run with.
func Validate(cfg model.ModerationConfig) error {
	var errs []error
	if cfg.WarningThreshold < 1 {
		errs = append(errs, fmt.Errorf("warning_threshold must be at least 1, got %d", cfg.WarningThreshold))
	}
	switch cfg.AutoPunish.Kind {
	case model.KindMute:
		if cfg.AutoPunish.Duration < 0 {
			errs = append(errs, errors.New("auto_punish.duration cannot be negative"))
		}
	case model.KindTimeout:
		if cfg.AutoPunish.Duration <= 0 || cfg.AutoPunish.Duration > model.MaxTimeout {
			errs = append(errs, fmt.Errorf("auto_punish.duration for a timeout must be in (0, %s]", model.MaxTimeout))
		}
	default:
		errs = append(errs, fmt.Errorf("auto_punish.kind must be mute or timeout, got %q", cfg.AutoPunish.Kind))
	}
	if cfg.ActorMuteDuration <= 0 {
		errs = append(errs, errors.New("actor_mute_duration must be positive"))
	}
	if cfg.PersistTimeout <= 0 {
		errs = append(errs, errors.New("persist_timeout must be positive"))
	}
	if len(cfg.ModeratorRoles) == 0 {
		errs = append(errs, errors.New("moderator_roles cannot be empty"))
	}
	return errors.Join(errs...)
}
