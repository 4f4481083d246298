package videos

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// AssetCleanerConfig controls the concurrency characteristics of the cleaner.
type AssetCleanerConfig struct {
	QueueSize int
	Workers   int
	// Timeout bounds a single delete call.
	Timeout time.Duration
}

// AssetCleaner deletes stored media in the background once the records that
// referenced it are gone or have been pointed at a new upload.
type AssetCleaner struct {
	storage AssetStorage
	logger  *slog.Logger
	timeout time.Duration

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var errCleanerClosed = errors.New("asset cleaner closed")

// NewAssetCleaner starts cfg.Workers goroutines draining a queue of locations.
func NewAssetCleaner(storage AssetStorage, cfg AssetCleanerConfig, logger *slog.Logger) *AssetCleaner {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &AssetCleaner{
		storage: storage,
		logger:  logger,
		timeout: cfg.Timeout,
		jobs:    make(chan string, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	c.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go c.worker()
	}

	return c
}

// Enqueue schedules deletion of every non-empty location.
func (c *AssetCleaner) Enqueue(ctx context.Context, locations ...string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return errCleanerClosed
	}

	for _, location := range locations {
		if strings.TrimSpace(location) == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return errCleanerClosed
		case c.jobs <- location:
		}
	}
	return nil
}

// Shutdown stops accepting work and waits for queued deletions to finish.
// When ctx expires first, in-flight deletions are cancelled.
func (c *AssetCleaner) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.jobs)
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		c.cancel()
		return ctx.Err()
	case <-done:
		c.cancel()
		return nil
	}
}

func (c *AssetCleaner) worker() {
	defer c.wg.Done()

	for location := range c.jobs {
		if c.ctx.Err() != nil {
			return
		}
		c.handle(location)
	}
}

func (c *AssetCleaner) handle(location string) {
	if c.storage == nil {
		c.logger.Warn("asset cleaner has no storage configured", "location", location)
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	if err := c.storage.Delete(ctx, location); err != nil {
		c.logger.Error("asset cleanup failed", "location", location, "error", err)
		return
	}
	c.logger.Debug("asset removed", "location", location)
}
