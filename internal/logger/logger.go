package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Init builds the process logger for the given environment and installs it
// as the zap global, so packages log through zap.L().
func Init(environment, lvl string) error {
	var conf zap.Config
	if environment == "production" {
		conf = zap.NewProductionConfig()
	} else {
		conf = zap.NewDevelopmentConfig()
	}

	if err := SetLevel(lvl); err != nil {
		return err
	}
	conf.Level = level

	l, err := conf.Build()
	if err != nil {
		return fmt.Errorf("conf.Build -> %w", err)
	}
	zap.ReplaceGlobals(l)

	return nil
}

// SetLevel changes the level of the global logger in place.
func SetLevel(lvl string) error {
	if lvl == "" {
		return nil
	}

	if err := level.UnmarshalText([]byte(lvl)); err != nil {
		return fmt.Errorf("invalid log level %q -> %w", lvl, err)
	}

	return nil
}

// Level returns the current level of the global logger.
func Level() zapcore.Level {
	return level.Level()
}
