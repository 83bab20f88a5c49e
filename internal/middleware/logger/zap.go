package logger

import (
	"go.uber.org/zap"
)

// NewLogger 创建服务共享的 zap.Logger 实例
func NewLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("service", "recall-watch")), nil
}
