package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/gops/agent"
	"github.com/nicolagi/filedrop/middleware"
	"github.com/nicolagi/filedrop/storage"
	log "github.com/sirupsen/logrus"
)

func main() {
	defaultConfigFile := os.ExpandEnv("$HOME/lib/filedrop/kvserver.config")
	configFile := flag.String("config", defaultConfigFile, "location of configuration file")
	flag.Parse()

	opts, err := loadConfig(*configFile)
	if err != nil {
		log.WithFields(log.Fields{
			"err":  err,
			"path": *configFile,
		}).Fatal("Could not load configuration")
	}
	opts.applyDefaultsForMissingProperties()

	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := agent.Listen(agent.Options{
		ShutdownCleanup: true,
	}); err != nil {
		log.WithField("err", err).Warn("Could not start gops agent")
	} else {
		defer agent.Close()
	}

	path := os.ExpandEnv(opts.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		log.Fatalf("Could not ensure directory for %q exists: %v", path, err)
	}
	var store interface {
		storage.Store
		storage.Sweeper
	}
	switch opts.Backend {
	case "bolt":
		db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
		if err != nil {
			log.Fatalf("Could not open database %q: %v", path, err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Warnf("Could not close boltdb database: %v", err)
			}
		}()
		if store, err = storage.NewBoltStore(db); err != nil {
			log.Fatalf("Could not instantiate boltdb store at %q: %v", path, err)
		}
		log.Infof("Will use a Bolt database at %s", path)
	case "disk":
		store = storage.NewDiskStore(path)
		log.Infof("Will use a disk-based backend storing data at %s", path)
	default:
		log.Fatalf("%q: unknown backend, expecting bolt or disk", opts.Backend)
	}

	stop := storage.StartSweeping(context.Background(), store, time.Duration(opts.SweepIntervalSeconds)*time.Second)
	defer stop()

	handler := middleware.Wrap(storage.RemoteHandler(store), middleware.AccessLog())
	log.WithField("addr", opts.Listen).Info("Listening")
	if err := http.ListenAndServe(opts.Listen, handler); err != nil {
		log.WithField("err", err).Fatal("Could not listen and serve")
	}
}
