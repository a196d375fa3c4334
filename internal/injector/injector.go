//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/zeusync/worldstore/internal/observability/log"
)

func ProvideLogger() *zap.Logger {
	wire.Build(log.Provide)
	return log.New("debug")
}
