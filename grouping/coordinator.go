package grouping

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"echopost/config"
	"echopost/mediastore"
	"echopost/types"
)

// Downloader fetches a message's media attachments into the group directory
// and returns the stored file paths.
type Downloader interface {
	Download(ctx context.Context, msg *types.RawMessage, destDir string, idx int) ([]string, error)
}

// GroupWork is the finalized unit handed to the processing pipeline.
type GroupWork struct {
	Key        string
	Dir        string
	Text       string
	MediaPaths []string
	Messages   []*types.RawMessage
}

// Handler runs the duplicate-check / filter / generate / post pipeline for one
// finalized group. It must respect ctx cancellation.
type Handler func(ctx context.Context, work *GroupWork) error

// CoordinatorConfig wires the coordinator's collaborators. Zero values for
// Timeout, MaxConcurrent and SettleDelay fall back to the defaults.
type CoordinatorConfig struct {
	Media         *mediastore.Store
	Downloader    Downloader
	Handler       Handler
	Timeout       time.Duration
	MaxConcurrent int64
	// SettleDelay is how long an album group waits after its first message
	// before snapshotting, so the rest of the burst can land in the buffer.
	SettleDelay time.Duration
}

// Coordinator buffers inbound messages into groups and schedules bounded,
// timeout-guarded processing for each group exactly once.
type Coordinator struct {
	groups     *Store
	media      *mediastore.Store
	downloader Downloader
	handler    Handler
	timeout    time.Duration
	settle     time.Duration
	sem        *semaphore.Weighted
	wg         sync.WaitGroup
}

// NewCoordinator creates a coordinator with its own group store.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.GroupProcessingTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = config.MaxConcurrentGroups
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = config.GroupSettleDelay
	}
	return &Coordinator{
		groups:     NewStore(),
		media:      cfg.Media,
		downloader: cfg.Downloader,
		handler:    cfg.Handler,
		timeout:    cfg.Timeout,
		settle:     cfg.SettleDelay,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrent),
	}
}

// OnMessage ingests one inbound message. It never blocks on group processing
// and never lets an error or panic escape to the listener: one bad message
// must not take down the subscription.
func (c *Coordinator) OnMessage(msg *types.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic in message handler: %v", r)
		}
	}()
	if msg == nil {
		return
	}

	key := msg.GroupKey(time.Now())
	count := c.groups.Append(key, msg)
	log.Printf("📥 Buffered message %d for group %s (%d message(s))", msg.ID, key, count)

	if c.groups.TryBegin(key, time.Now()) {
		log.Printf("Starting processing for group %s", key)
		c.wg.Add(1)
		go c.run(key)
	}
}

// InFlight returns the keys currently being processed, for observability.
func (c *Coordinator) InFlight() []string {
	return c.groups.InFlight()
}

// Wait blocks until all scheduled group-processing tasks have finished or
// timed out. Used on shutdown and in tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// run supervises one group: bounded concurrency, hard wall-clock timeout, and
// cleanup of in-memory state on every exit path so a group can never block
// future reprocessing or leak memory.
func (c *Coordinator) run(key string) {
	defer c.wg.Done()
	defer c.groups.Remove(key)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic processing group %s: %v", key, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		log.Printf("Group %s timed out waiting for a processing slot", key)
		return
	}
	defer c.sem.Release(1)

	// Album parts arrive as a burst of individual events; give the rest of
	// the burst time to land before snapshotting the buffer.
	if !strings.Contains(key, "_single") {
		select {
		case <-time.After(c.settle):
		case <-ctx.Done():
			return
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- c.processGroup(ctx, key)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Printf("❌ Error processing group %s: %v", key, err)
			return
		}
		log.Printf("✅ Group %s processing completed", key)
	case <-ctx.Done():
		// The group is abandoned; partial artifacts stay on disk for
		// inspection while the in-memory state is reclaimed.
		log.Printf("Processing group %s timed out after %s", key, c.timeout)
	}
}

func (c *Coordinator) processGroup(ctx context.Context, key string) error {
	msgs := c.groups.Snapshot(key)
	if len(msgs) == 0 {
		return nil
	}

	earliest := msgs[0]
	for _, m := range msgs[1:] {
		if m.Date.Before(earliest.Date) {
			earliest = m
		}
	}
	text := earliest.Text
	log.Printf("Processing group %s with %d message(s)", key, len(msgs))

	dir, err := c.media.GroupDir(key)
	if err != nil {
		return fmt.Errorf("failed to create group directory: %w", err)
	}

	var mediaPaths []string
	for idx, msg := range msgs {
		if len(msg.Media) == 0 {
			continue
		}
		paths, err := c.downloader.Download(ctx, msg, dir, idx)
		if err != nil {
			log.Printf("Warning: failed to download media for message %d in group %s: %v", msg.ID, key, err)
			continue
		}
		mediaPaths = append(mediaPaths, paths...)
	}

	if _, err := mediastore.SaveOriginalText(dir, text); err != nil {
		return err
	}

	return c.handler(ctx, &GroupWork{
		Key:        key,
		Dir:        dir,
		Text:       text,
		MediaPaths: mediaPaths,
		Messages:   msgs,
	})
}

// StartWatchdog launches the background task that force-cleans groups whose
// per-group timeout guard somehow missed them. It is an idempotent safety net,
// not the primary timeout mechanism.
func (c *Coordinator) StartWatchdog(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = config.WatchdogInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				stuck := c.groups.Expired(c.timeout, now)
				for _, key := range stuck {
					log.Printf("Watchdog: group %s exceeded %s, cleaning up", key, c.timeout)
					c.groups.Remove(key)
				}
				log.Printf("Watchdog heartbeat: %d group(s) in flight", len(c.groups.InFlight()))
			}
		}
	}()
}
