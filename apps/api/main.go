package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"log"
	"net/http"
	_ "net/http/pprof"

	"go.uber.org/dig"

	"github.com/trezcool/academia/apps/api/di"
	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
	appfs "github.com/trezcool/academia/fs"
	"github.com/trezcool/academia/services/eventbus"
	logsvc "github.com/trezcool/academia/services/logger"
)

type app struct {
	dig.In
	Conf     *core.Config
	Logger   core.Logger
	DBLogger core.Logger `name:"dbLogger"`
	Rollbar  *logsvc.RollbarLogger
	DB       io.Closer `name:"db"`
	Bus      *eventbus.Bus
	Notifier *notification.Notifier
	Server   echoapi.Server
}

func main() {
	conf := core.NewConfig()
	c := di.New(conf)

	if err := c.Invoke(run); err != nil {
		log.Fatal(err)
	}
}

func run(a app) {
	logger := a.Logger
	defer a.Rollbar.Sync()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", a.Conf.Build))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(a.Conf, appfs.FS, appfs.EmailTemplatesDir, logger)

	defer func() {
		if err := a.DB.Close(); err != nil {
			a.DBLogger.Error("Failed to close", err)
		}
	}()
	// drain pending events before the DB goes away
	defer a.Bus.Close()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(a.Conf.Build)
	expvar.NewString("env").Set(a.Conf.Env)

	go func() {
		if err := http.ListenAndServe(a.Conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	go a.Server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err := <-a.Server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-a.Server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), a.Conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := a.Server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = a.Server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
