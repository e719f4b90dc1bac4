package loadgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/shell"
)

const (
	scenarioLending   = "lending"
	scenarioReserving = "reserving"
)

var (
	// ErrInvalidConfig is returned by NewGenerator.
	ErrInvalidConfig = errors.New("invalid load generator configuration")

	// ErrShutdownTimeout is returned by Stop when in-flight scenarios did not finish in time.
	ErrShutdownTimeout = errors.New("load generator shutdown timeout exceeded")
)

// Operations is the part of the loan coordinator the generator drives.
type Operations interface {
	Checkout(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (core.Borrow, error)
	Return(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (core.Borrow, error)
	Reserve(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (core.Reserve, error)
	Cancel(ctx context.Context, copyID core.CopyID, readerID core.ReaderID) (core.Reserve, error)
	RegisterReader(ctx context.Context, name, address, phone string) (core.Reader, error)
	AddCopy(ctx context.Context, bookID, branchID uuid.UUID) (core.Copy, error)
}

// Config controls rate and population of a run.
type Config struct {
	Rate             int
	Readers          int
	Copies           int
	LendingWeight    int // percent of scenarios that check out or return, the rest reserve or cancel
	OperationTimeout time.Duration
	StatsInterval    time.Duration
}

// DefaultConfig returns a moderate configuration.
func DefaultConfig() Config {
	return Config{
		Rate:             30,
		Readers:          100,
		Copies:           200,
		LendingWeight:    70,
		OperationTimeout: 5 * time.Second,
		StatsInterval:    10 * time.Second,
	}
}

func (cfg Config) validate() error {
	switch {
	case cfg.Rate <= 0:
		return fmt.Errorf("%w: rate must be positive, got %d", ErrInvalidConfig, cfg.Rate)
	case cfg.Readers <= 0 || cfg.Copies <= 0:
		return fmt.Errorf("%w: readers and copies must be positive", ErrInvalidConfig)
	case cfg.LendingWeight < 0 || cfg.LendingWeight > 100:
		return fmt.Errorf("%w: lending weight must be within [0, 100], got %d", ErrInvalidConfig, cfg.LendingWeight)
	case cfg.OperationTimeout <= 0:
		return fmt.Errorf("%w: operation timeout must be positive", ErrInvalidConfig)
	}

	return nil
}

// Stats is a snapshot of the counters of a run.
type Stats struct {
	Requests   int64
	Rejections int64
	Errors     int64
	Elapsed    time.Duration
}

// Generator issues one scenario per tick.
type Generator struct {
	ops    Operations
	config Config
	logger shell.Logger

	readers []core.ReaderID
	copies  []core.CopyID

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup

	mu         sync.RWMutex
	startTime  time.Time
	requests   int64
	rejections int64
	failures   int64
}

// NewGenerator validates the configuration. logger may be nil.
func NewGenerator(ops Operations, config Config, logger shell.Logger) (*Generator, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &Generator{
		ops:      ops,
		config:   config,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Seed registers the readers and adds the copies the scenarios pick from.
func (g *Generator) Seed(ctx context.Context) error {
	branchID := uuid.New()

	for i := range g.config.Readers {
		reader, err := g.ops.RegisterReader(ctx, fmt.Sprintf("Load Reader %d", i+1), "Load Street 1", "+12024561111")
		if err != nil {
			return fmt.Errorf("failed to register reader %d: %w", i+1, err)
		}

		g.readers = append(g.readers, reader.ID)
	}

	for i := range g.config.Copies {
		bookID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("book-%d", i%50)))

		added, err := g.ops.AddCopy(ctx, bookID, branchID)
		if err != nil {
			return fmt.Errorf("failed to add copy %d: %w", i+1, err)
		}

		g.copies = append(g.copies, added.ID)
	}

	g.info("load generator seeded", "readers", len(g.readers), "copies", len(g.copies))

	return nil
}

// Start runs scenarios at the configured rate until ctx is done or Stop is called.
// It returns after all in-flight scenarios finished. Seed must have been called before.
func (g *Generator) Start(ctx context.Context) error {
	if len(g.readers) == 0 || len(g.copies) == 0 {
		return fmt.Errorf("%w: generator was not seeded", ErrInvalidConfig)
	}

	defer close(g.done)
	defer g.wg.Wait()

	g.mu.Lock()
	g.startTime = time.Now()
	g.mu.Unlock()

	interval := time.Second / time.Duration(g.config.Rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	g.info("load generator starting", "rate", g.config.Rate, "interval", interval.String(), "goroutines", runtime.NumGoroutine())

	if g.config.StatsInterval > 0 {
		g.wg.Add(1)
		go g.statsReporter(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-g.stopChan:
			return nil

		case <-ticker.C:
			g.wg.Add(1)
			go g.executeScenario(ctx)
		}
	}
}

// Stop ends the run started by Start and waits until Start has returned.
func (g *Generator) Stop(ctx context.Context) error {
	g.stopOnce.Do(func() { close(g.stopChan) })

	select {
	case <-g.done:
		g.logStats("load generator final stats")
		return nil
	case <-ctx.Done():
		g.logStats("load generator final stats")
		return ErrShutdownTimeout
	}
}

// Stats returns the current counters.
func (g *Generator) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := Stats{Requests: g.requests, Rejections: g.rejections, Errors: g.failures}
	if !g.startTime.IsZero() {
		stats.Elapsed = time.Since(g.startTime)
	}

	return stats
}

func (g *Generator) executeScenario(ctx context.Context) {
	defer g.wg.Done()

	// in-flight operations outlive the run context so that stopping never counts as a failure
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.config.OperationTimeout)
	defer cancel()

	scenario := g.selectScenario()
	err := g.runScenario(opCtx, scenario)

	g.mu.Lock()
	g.requests++
	switch {
	case err == nil:
	case core.IsBusinessRejection(err):
		g.rejections++
	default:
		g.failures++
	}
	g.mu.Unlock()

	if err != nil && !core.IsBusinessRejection(err) && g.logger != nil {
		g.logger.Error("load scenario failed", "scenario", scenario, shell.LogAttrError, err.Error())
	}
}

func (g *Generator) selectScenario() string {
	if rand.IntN(100) < g.config.LendingWeight { //nolint:gosec // load traffic, weak random is fine
		return scenarioLending
	}

	return scenarioReserving
}

func (g *Generator) runScenario(ctx context.Context, scenario string) error {
	readerID := g.readers[rand.IntN(len(g.readers))] //nolint:gosec
	copyID := g.copies[rand.IntN(len(g.copies))]     //nolint:gosec
	first := rand.IntN(2) == 0                       //nolint:gosec

	var err error

	switch {
	case scenario == scenarioLending && first:
		_, err = g.ops.Checkout(ctx, copyID, readerID)
	case scenario == scenarioLending:
		_, err = g.ops.Return(ctx, copyID, readerID)
	case first:
		_, err = g.ops.Reserve(ctx, copyID, readerID)
	default:
		_, err = g.ops.Cancel(ctx, copyID, readerID)
	}

	return err
}

func (g *Generator) statsReporter(ctx context.Context) {
	defer g.wg.Done()

	ticker := time.NewTicker(g.config.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-g.stopChan:
			return
		case <-ticker.C:
			g.logStats("load generator stats")
		}
	}
}

func (g *Generator) logStats(msg string) {
	stats := g.Stats()
	if stats.Elapsed <= 0 {
		return
	}

	g.info(msg,
		"requests", stats.Requests,
		"rejections", stats.Rejections,
		"errors", stats.Errors,
		"requests_per_second", float64(stats.Requests)/stats.Elapsed.Seconds(),
		"goroutines", runtime.NumGoroutine(),
	)
}

func (g *Generator) info(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Info(msg, args...)
	}
}
