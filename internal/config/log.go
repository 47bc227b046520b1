package config

import (
	"github.com/damoang/angple-qualitygate/pkg/logger"
)

// LogResolved logs the effective configuration with secrets masked
func LogResolved(cfg *Config) {
	logger.GetLogger().Info().
		Str("env", cfg.Server.Env).
		Int("port", cfg.Server.Port).
		Str("db_host", cfg.Database.Host).
		Int("db_port", cfg.Database.Port).
		Str("db_name", cfg.Database.DBName).
		Str("db_password", mask(cfg.Database.Password)).
		Str("redis", cfg.Redis.Host).
		Str("jwt_secret", mask(cfg.JWT.Secret)).
		Int("auto_approve", cfg.Quality.Thresholds.AutoApprove).
		Int("min_publish", cfg.Quality.Thresholds.MinPublish).
		Dur("analyzer_timeout", cfg.Quality.AnalyzerTimeout).
		Dur("review_window", cfg.Quality.ReviewWindow).
		Bool("llm_enabled", cfg.Quality.LLM.Enabled).
		Msg("config resolved")
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}
