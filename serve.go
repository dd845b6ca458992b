package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudfinch-harshad/rampart/api"
	"github.com/cloudfinch-harshad/rampart/apiexternal"
	"github.com/cloudfinch-harshad/rampart/config"
	"github.com/cloudfinch-harshad/rampart/database"
	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/cloudfinch-harshad/rampart/scheduler"
	"github.com/cloudfinch-harshad/rampart/session"
	"github.com/pkg/errors"
	"github.com/recoilme/pudge"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the api server and the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, configFile)
		},
	}
}

func openDatabase(cfg config.DatabaseConfig) error {
	logger.Log.Infoln("Initialize Database")
	if err := database.InitDb(cfg.Path); err != nil {
		return err
	}
	logger.Log.Infoln("Check Database for Upgrades")
	if err := database.UpgradeDB(); err != nil {
		database.CloseDb()
		return err
	}
	return nil
}

func serve(ctx context.Context, configfile string) error {
	cfg := config.Get()
	logger.Log.Infoln("Starting rampart")
	logger.Log.Infoln("Hint: Set Loglevel to Debug to see possible API Paths")

	if err := openDatabase(cfg.Database); err != nil {
		return err
	}
	defer database.CloseDb()
	defer func() {
		if err := pudge.CloseAll(); err != nil {
			logger.Log.Errorln("Session store shutdown: ", err)
		}
	}()

	store, err := session.OpenPudgeStore(cfg.Session.StorePath)
	if err != nil {
		return errors.Wrap(err, "open session store")
	}
	sessions := session.NewManager(store, session.DatabaseUsers{}, cfg.Session)
	notifier := apiexternal.NewNotifier(cfg.Notification)

	logger.Log.Infoln("Starting Scheduler")
	sched, err := scheduler.InitScheduler(scheduler.Deps{
		Scheduler: cfg.Scheduler,
		Database:  cfg.Database,
		Sessions:  sessions,
		Notifier:  notifier,
	})
	if err != nil {
		return err
	}
	defer sched.Stop()

	if cfg.General.WatchConfig {
		_, f, err := config.LoadCfg(configfile)
		if err == nil {
			config.Watch(f, func(c config.MainConfig) {
				logger.Log.SetLevel(logger.ParseLevel(c.General.LogLevel))
			})
		}
	}

	logger.Log.Infoln("Starting API Webserver on port", cfg.General.WebPort)
	server := &http.Server{
		Addr:    ":" + cfg.General.WebPort,
		Handler: api.NewRouter(&api.Server{
			Sessions:  sessions,
			Scheduler: sched,
			Notifier:  notifier,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Infoln("receive interrupt signal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Wrap(server.Shutdown(shutdownCtx), "server shutdown")
	})
	err = g.Wait()
	logger.Log.Infoln("Server exiting")
	return err
}
