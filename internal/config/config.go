package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config is the typed view over configs/config.yml plus ESPRESSO_* env overrides.
type Config struct {
	Port     string
	LogLevel string
	DBPath   string

	SettingsBackend string
	SettingsPath    string

	ShotLogDir       string
	ShotLogSuffix    string
	ShotLogAutoFlush bool

	Tick          time.Duration
	ShotDuration  time.Duration
	AngleStep     int
	BandHalfWidth float64
	PumpScale     float64

	SimulatorEnabled bool
	SimulatorTick    time.Duration

	SigningKey string
	TokenTTL   time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "espresso.db")
	v.SetDefault("settings.backend", BackendFile)
	v.SetDefault("settings.path", "Settings.json")
	v.SetDefault("shotlog.dir", "logs")
	v.SetDefault("shotlog.suffix", "shot")
	v.SetDefault("shotlog.auto_flush", false)
	v.SetDefault("brew.tick", 100*time.Millisecond)
	v.SetDefault("brew.shot_duration", 30*time.Second)
	v.SetDefault("brew.angle_step", 6)
	v.SetDefault("brew.band_half_width", 10.0)
	v.SetDefault("brew.pump_scale", 10.0)
	v.SetDefault("simulator.enabled", true)
	v.SetDefault("simulator.tick", 500*time.Millisecond)
	v.SetDefault("auth.signing_key", "espresso-dev-key")
	v.SetDefault("auth.token_ttl", time.Hour)
}

// Load reads config.yml from the given search paths. A missing file is not an
// error: defaults and environment variables still apply.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("espresso")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Port:             v.GetString("port"),
		LogLevel:         v.GetString("log.level"),
		DBPath:           v.GetString("db.path"),
		SettingsBackend:  strings.ToLower(v.GetString("settings.backend")),
		SettingsPath:     v.GetString("settings.path"),
		ShotLogDir:       v.GetString("shotlog.dir"),
		ShotLogSuffix:    v.GetString("shotlog.suffix"),
		ShotLogAutoFlush: v.GetBool("shotlog.auto_flush"),
		Tick:             v.GetDuration("brew.tick"),
		ShotDuration:     v.GetDuration("brew.shot_duration"),
		AngleStep:        v.GetInt("brew.angle_step"),
		BandHalfWidth:    v.GetFloat64("brew.band_half_width"),
		PumpScale:        v.GetFloat64("brew.pump_scale"),
		SimulatorEnabled: v.GetBool("simulator.enabled"),
		SimulatorTick:    v.GetDuration("simulator.tick"),
		SigningKey:       v.GetString("auth.signing_key"),
		TokenTTL:         v.GetDuration("auth.token_ttl"),
	}
}

// Validate rejects values the coordinator cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Tick < time.Millisecond:
		return fmt.Errorf("brew.tick must be at least 1ms, got %s", c.Tick)
	case c.ShotDuration < c.Tick:
		return fmt.Errorf("brew.shot_duration %s is shorter than one tick", c.ShotDuration)
	case c.AngleStep <= 0 || c.AngleStep > 360:
		return fmt.Errorf("brew.angle_step must be in (0, 360], got %d", c.AngleStep)
	case c.PumpScale <= 0:
		return fmt.Errorf("brew.pump_scale must be positive, got %v", c.PumpScale)
	case c.SettingsBackend != BackendFile && c.SettingsBackend != BackendSQLite:
		return fmt.Errorf("settings.backend must be %q or %q, got %q", BackendFile, BackendSQLite, c.SettingsBackend)
	case strings.TrimSpace(c.SigningKey) == "":
		return errors.New("auth.signing_key is empty")
	}
	return nil
}
