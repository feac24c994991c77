package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ResyncProcessorConfig holds configuration for the resync processor
type ResyncProcessorConfig struct {
	// Interval is how often every transaction is mirrored again (default: 1h)
	Interval time.Duration

	// OnStart runs a resync immediately when the processor starts (default: true)
	OnStart bool
}

// DefaultResyncProcessorConfig returns sensible defaults
func DefaultResyncProcessorConfig() ResyncProcessorConfig {
	return ResyncProcessorConfig{
		Interval: time.Hour,
		OnStart:  true,
	}
}

// Resyncer mirrors the whole ledger once.
type Resyncer interface {
	ResyncAll(ctx context.Context) (int, error)
}

// ResyncProcessor periodically mirrors the whole ledger as a backup for
// lost change events.
type ResyncProcessor struct {
	resyncer Resyncer
	config   ResyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	runs    int
}

func NewResyncProcessor(resyncer Resyncer, config ResyncProcessorConfig) *ResyncProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultResyncProcessorConfig().Interval
	}
	return &ResyncProcessor{
		resyncer: resyncer,
		config:   config,
	}
}

// Start begins the processing loop. Returns an error if already running or
// if a previous loop has not finished stopping.
func (p *ResyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("resync processor is already running")
	}
	if p.doneCh != nil {
		select {
		case <-p.doneCh:
		default:
			p.mu.Unlock()
			return fmt.Errorf("resync processor is still stopping")
		}
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Resync processor started",
		"interval", p.config.Interval,
		"on_start", p.config.OnStart)
	return nil
}

// Stop signals the loop to end and waits for it until ctx is done. Calling
// Stop again after a timeout keeps waiting for the same loop.
func (p *ResyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.doneCh == nil {
		p.mu.Unlock()
		return nil
	}
	if p.running {
		p.running = false
		close(p.stopCh)
	}
	doneCh := p.doneCh
	p.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Resync processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Resync processor stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *ResyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Runs returns how many resyncs have completed.
func (p *ResyncProcessor) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func (p *ResyncProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	if p.config.OnStart {
		p.resync(ctx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.resync(ctx)
		}
	}
}

func (p *ResyncProcessor) resync(ctx context.Context) {
	n, err := p.resyncer.ResyncAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Resync failed", "synced", n, "error", err)
	}
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()
}
