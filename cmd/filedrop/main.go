package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/gops/agent"
	"github.com/nicolagi/filedrop/drop"
	"github.com/nicolagi/filedrop/middleware"
	"github.com/nicolagi/filedrop/static"
	"github.com/nicolagi/filedrop/storage"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func main() {
	defaultConfigFile := os.ExpandEnv("$HOME/lib/filedrop/filedrop.config")
	configFile := flag.String("config", defaultConfigFile, "location of configuration file")
	flag.Parse()

	config, err := loadConfig(*configFile)
	if err != nil {
		log.WithFields(log.Fields{
			"err":  err,
			"path": *configFile,
		}).Fatal("Could not load configuration")
	}

	config.applyDefaultsForMissingProperties()

	if config.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := agent.Listen(agent.Options{
		ShutdownCleanup: true,
	}); err != nil {
		log.WithField("err", err).Warn("Could not start gops agent")
	} else {
		defer agent.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := buildStore(ctx, config.Store)
	if err != nil {
		log.WithFields(log.Fields{
			"err":  err,
			"type": config.Store.Type,
		}).Fatal("Could not build store")
	}
	defer closeStore()
	log.WithField("type", config.Store.Type).Info("Store ready")

	if config.CacheTTLSeconds > 0 {
		store = storage.NewPaired(
			storage.NewInMemoryStore(),
			store,
			time.Duration(config.CacheTTLSeconds)*time.Second,
		)
	}
	if sw, ok := store.(storage.Sweeper); ok {
		stop := storage.StartSweeping(ctx, sw, time.Duration(config.SweepIntervalSeconds)*time.Second)
		defer stop()
	}

	siteRoot := os.ExpandEnv(config.SiteRoot)
	site := static.New(osfs.New(siteRoot), config.staticOptions())
	log.WithField("root", siteRoot).Info("Serving static site")

	isUpload := func(r *http.Request) bool {
		return r.Method == http.MethodPost && r.URL.Path == drop.UploadPath
	}
	handler := middleware.Wrap(
		drop.NewHandler(store, site, config.dropConfig()),
		middleware.AccessLog(),
		middleware.RateLimit(rate.Limit(config.UploadRate), config.UploadBurst, isUpload),
	)

	srv := &http.Server{
		Addr:              config.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Before we call srv.ListenAndServe(), which never returns unless
	// srv.Shutdown() is called, we need to install a signal handler to call
	// srv.Shutdown().
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		sig := <-c
		log.WithField("signal", sig).Info("Shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithField("err", err).Warn("Could not shut down the server cleanly")
		}
	}()

	log.WithField("addr", config.Listen).Info("Listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithField("err", err).Error("Could not listen and serve")
	}
}
