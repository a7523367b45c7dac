// Desktop robot companion firmware: animated face, synthesized speech,
// cloud chat and an HTTP control surface.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/stackchan/go-stackchan/internal/log"
	"github.com/stackchan/go-stackchan/pkg/behavior"
	"github.com/stackchan/go-stackchan/pkg/chat"
	"github.com/stackchan/go-stackchan/pkg/face"
	"github.com/stackchan/go-stackchan/pkg/settings"
	"github.com/stackchan/go-stackchan/pkg/voice"
	"github.com/stackchan/go-stackchan/pkg/web"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	settingsPath := flag.String("settings", "", "settings file (default $STACKCHAN_SETTINGS or ./settings.json)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	// Optional; API keys may come from the settings file instead.
	_ = godotenv.Load()

	log.Init(*logLevel)
	logger := log.L()

	path := *settingsPath
	if path == "" {
		path = os.Getenv("STACKCHAN_SETTINGS")
	}
	if path == "" {
		path = "settings.json"
	}
	store, err := settings.New(path)
	if err != nil {
		logger.Error("load settings", "path", path, "error", err)
		os.Exit(1)
	}
	logger.Info("settings loaded", "path", path)

	sink, err := voice.NewOtoSink(logger)
	if err != nil {
		logger.Error("open audio output", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	player := voice.NewPlayer(store, sink, logger)
	actuator := face.NewActuator(nil)
	engine := chat.NewEngine(store, player, actuator, logger)
	coordinator := behavior.NewCoordinator(store, engine, player, actuator, logger)
	gazer := face.NewGazer(store, servoMover{logger}, face.NewRandomGaze(), player, logger)
	server := web.NewServer(store, player, engine, coordinator, gazer, actuator, logger)
	status := web.NewStatusPublisher(server)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go player.Run(ctx)
	go coordinator.Run(ctx)
	go gazer.Run(ctx)
	go status.Run(ctx)

	errc := make(chan error, 1)
	go func() { errc <- server.Listen(*addr) }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	case err := <-errc:
		if err != nil {
			logger.Error("serve", "error", err)
			os.Exit(1)
		}
	}
}

// servoMover stands in for the pan/tilt servo driver. Target angles are
// logged so the motion loop can be observed without hardware attached.
type servoMover struct {
	logger *slog.Logger
}

func (m servoMover) MoveTo(x, y int) {
	m.logger.Debug("servo move", "x", x, "y", y)
}
