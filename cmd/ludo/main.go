package main

import (
	"context"
	"flag"
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/yola1107/ludo/internal/conf"
	"github.com/yola1107/ludo/internal/server"
	"github.com/yola1107/ludo/library/event"
	"github.com/yola1107/ludo/library/log/zap"
)

var (
	Name       = conf.Name
	Version    = conf.Version
	flagconf   string // -conf path
	flagresume string // -resume game id
	id, _      = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs", "config path, e.g. -conf config.yaml")
	flag.StringVar(&flagresume, "resume", "", "resume a saved game by id")
}

func newApp(ctx context.Context, logger log.Logger, con *server.Console) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Context(ctx),
		kratos.Logger(logger),
		kratos.Server(
			con,
		),
	)
}

func main() {
	flag.Parse()

	c, bc, lc, err := conf.LoadConfig(flagconf)
	if err != nil {
		panic(err)
	}
	defer c.Close()

	logger := zap.NewLogger(lc)
	log.SetLogger(logger)
	defer logger.Close()

	bus := event.NewEventBus()
	if err := conf.WatchConfig(c, bc, lc, logger, bus); err != nil {
		panic(err)
	}

	// 控制台输入结束时停止 App
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opts := &server.Options{Resume: flagresume, Quit: cancel}

	app, cleanup, err := wireApp(ctx, bc.Data, bc.Room, opts, bus, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		log.Errorf("app exit: %v", err)
	}
}
