package logger

import (
	"go.uber.org/zap"
)

var log *zap.Logger

// Init инициализирует глобальный логгер. В dev-режиме — человекочитаемый вывод.
func Init(isDev bool) error {
	var err error
	if isDev {
		cfg := zap.NewDevelopmentConfig()
		log, err = cfg.Build()
	} else {
		cfg := zap.NewProductionConfig()
		log, err = cfg.Build()
	}
	return err
}

// L возвращает глобальный логгер (после Init).
func L() *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}
