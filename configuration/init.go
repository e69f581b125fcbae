// Package configuration bootstraps logging and carries the service
// configuration for daemons built on the messaging layer
package configuration

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type config struct {
	log      *zap.SugaredLogger
	humanLog *zap.SugaredLogger
}

var cfg config

var configFile string

func init() {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if str, ok := os.LookupEnv("WIREBUS_LOG_LEVEL"); ok {
		if parsed, err := zapcore.ParseLevel(str); err == nil {
			level = zap.NewAtomicLevelAt(parsed)
		}
	}

	logCfg := zap.NewProductionConfig()
	logCfg.DisableStacktrace = true
	logCfg.Level = level

	log, _ := logCfg.Build()
	cfg.log = log.Sugar()

	humanCfg := zap.NewProductionConfig()
	humanCfg.DisableStacktrace = true
	humanCfg.Level = level
	humanCfg.Encoding = "console"
	humanCfg.EncoderConfig.LevelKey = ""
	humanCfg.EncoderConfig.CallerKey = ""
	humanCfg.EncoderConfig.EncodeTime = func(t time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(t.Format(time.RFC3339))
	}

	humanLog, _ := humanCfg.Build()
	cfg.humanLog = humanLog.Sugar()

	configFile, _ = os.LookupEnv("WIREBUS_CONFIG")
}

// GetLogger service logger
func GetLogger() *zap.SugaredLogger {
	return cfg.log
}

// GetHumanLogger console logger for startup messages
func GetHumanLogger() *zap.SugaredLogger {
	return cfg.humanLog
}
