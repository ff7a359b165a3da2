package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.CacheDatabasePath == "" {
		cfg.Storage.CacheDatabasePath = "/usr/local/var/dentsearch/data/cache.db"
	}
	if cfg.Storage.TelemetryDatabasePath == "" {
		cfg.Storage.TelemetryDatabasePath = "/usr/local/var/dentsearch/data/telemetry.db"
	}
	if cfg.Cache.TTLHours == 0 {
		cfg.Cache.TTLHours = 24
	}
	if cfg.Cache.SweepSchedule == "" {
		cfg.Cache.SweepSchedule = "@hourly"
	}
}
