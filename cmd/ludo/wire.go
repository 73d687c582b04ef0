//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"context"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"github.com/yola1107/ludo/internal/biz"
	"github.com/yola1107/ludo/internal/conf"
	"github.com/yola1107/ludo/internal/data"
	"github.com/yola1107/ludo/internal/server"
	"github.com/yola1107/ludo/library/event"
)

// wireApp init kratos application.
func wireApp(context.Context, *conf.Data, *conf.Room, *server.Options, *event.Bus, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, biz.ProviderSet, newApp))
}
