//go:build wireinject
// +build wireinject

package main

import (
	"luma-live/stagepass/ticket-queue-server/pkg/clock"
	"luma-live/stagepass/ticket-queue-server/pkg/config"
	"luma-live/stagepass/ticket-queue-server/pkg/engine"
	"luma-live/stagepass/ticket-queue-server/pkg/infra"
	"luma-live/stagepass/ticket-queue-server/pkg/notify"
	"luma-live/stagepass/ticket-queue-server/pkg/txlog"

	"github.com/google/wire"
)

func Setup() (*Server, error) {
	wire.Build(wire.NewSet(
		ProvideServer,
		ProvideApplication,
		ProvideHub,
		clock.NewSystem,
		config.ProvideLiveConfig,
		engine.ProvideEngine,
		infra.ProvideLoggerFactory,
		infra.ProvideRedisClient,
		notify.ProvideNotifier,
		txlog.ProvideWriter,
	))
	return nil, nil
}
