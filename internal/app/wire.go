package app

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"veilchat/internal/cache"
	"veilchat/internal/directory"
	"veilchat/internal/domain"
	"veilchat/internal/identity"
	"veilchat/internal/replica"
)

// Wire bundles the stores, clients, and services for the CLI.
type Wire struct {
	Log       *logrus.Logger
	Cache     *cache.Cache
	Replica   domain.Replica
	Directory domain.Directory
	Identity  *identity.Service
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, err
	}
	c, err := cache.Open(cache.Config{
		Dir:        filepath.Join(cfg.Home, "cache"),
		QuotaBytes: cfg.CacheQuotaBytes,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	var rep domain.Replica
	if cfg.RelayURL != "" {
		rep = replica.NewClient(cfg.RelayURL, http.DefaultClient, log)
	} else {
		log.Warn("no relay configured; using in-process replica, nothing leaves this machine")
		rep = replica.NewMemory()
	}

	dir := directory.New(rep, directory.DefaultRetryPolicy, log)

	return &Wire{
		Log:       log,
		Cache:     c,
		Replica:   rep,
		Directory: dir,
		Identity:  identity.New(c, dir, log),
	}, nil
}

// Close releases the durable cache.
func (w *Wire) Close() {
	if w.Cache != nil {
		_ = w.Cache.Close()
	}
}
