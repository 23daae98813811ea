package elodin

import (
	jlconfig "github.com/JeremyLoy/config"
)

// WorldConfig carries the environment-driven settings of a world. Every
// field has a working default so an empty environment yields a usable
// config.
type WorldConfig struct {
	LogLevel      string  `config:"ELODIN_LOG_LEVEL"`
	LogPretty     bool    `config:"ELODIN_LOG_PRETTY"`
	StatsdAddress string  `config:"ELODIN_STATSD_ADDRESS"`
	TimeStep      float64 `config:"ELODIN_TIME_STEP"`
	SnapshotRedis string  `config:"ELODIN_SNAPSHOT_REDIS_ADDRESS"`
}

// defaultTimeStep is 1/120 s, the simulation rate used when neither the
// environment nor a compile option sets one.
const defaultTimeStep = 1.0 / 120.0

func defaultWorldConfig() WorldConfig {
	return WorldConfig{
		LogLevel: "info",
		TimeStep: defaultTimeStep,
	}
}

// LoadWorldConfig reads ELODIN_* environment variables over the defaults.
func LoadWorldConfig() (WorldConfig, error) {
	cfg := defaultWorldConfig()
	if err := jlconfig.FromEnv().To(&cfg); err != nil {
		return WorldConfig{}, err
	}
	if cfg.TimeStep <= 0 {
		cfg.TimeStep = defaultTimeStep
	}
	return cfg, nil
}
