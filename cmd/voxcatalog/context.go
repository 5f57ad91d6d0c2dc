package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/xeb/voxcatalog/internal/catalog"
	"github.com/xeb/voxcatalog/internal/config"
	"github.com/xeb/voxcatalog/internal/fetch"
	"github.com/xeb/voxcatalog/internal/logging"
	"github.com/xeb/voxcatalog/internal/pipeline"
	"github.com/xeb/voxcatalog/internal/services"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// environment is everything a processing command needs: validated config, a
// logger, the opened catalog store, and a run-scoped context.
type environment struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
	store  *catalog.Store
}

// withEnvironment acquires the run lock, opens the catalog, and hands control
// to fn. Only one voxcatalog process may touch the data dir at a time; a held
// lock fails fast instead of corrupting the snapshot.
func (c *commandContext) withEnvironment(fn func(env *environment) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another voxcatalog process is already running (lock held at %s)", cfg.LockPath())
	}
	defer lock.Unlock()

	store, err := catalog.Open(cfg.SnapshotPath(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = services.WithRunID(ctx, uuid.NewString())

	return fn(&environment{ctx: ctx, cfg: cfg, logger: logger, store: store})
}

func (e *environment) pageClient() *fetch.Client {
	return fetch.NewClient(fetch.Options{
		UserAgent: e.cfg.Source.UserAgent,
		Timeout:   time.Duration(e.cfg.Source.RequestTimeout) * time.Second,
		Delay:     time.Duration(e.cfg.Source.RequestDelay) * time.Second,
		Logger:    e.logger,
	})
}

func (e *environment) downloadClient() *fetch.Client {
	return fetch.NewClient(fetch.Options{
		UserAgent: e.cfg.Source.UserAgent,
		Timeout:   time.Duration(e.cfg.Source.RequestTimeout) * time.Second,
		Delay:     time.Duration(e.cfg.Source.DownloadDelay) * time.Second,
		Logger:    e.logger,
	})
}

func (e *environment) runner() *pipeline.Runner {
	return pipeline.NewRunner(e.store, e.logger, pipeline.Options{
		MaxRetries:   e.cfg.Pipeline.MaxRetries,
		RetryBackoff: time.Duration(e.cfg.Pipeline.RetryBackoff) * time.Second,
		Progress:     true,
	})
}
