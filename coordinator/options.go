package coordinator

import (
	"time"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/shell"
)

// Option configures a LoanCoordinator.
type Option func(*LoanCoordinator)

// WithPolicy sets the per-reader limits. The default is core.DefaultLoanPolicy.
func WithPolicy(policy core.LoanPolicy) Option {
	return func(c *LoanCoordinator) {
		c.policy = policy
	}
}

// WithClock replaces time.Now as the source of event times.
func WithClock(clock func() time.Time) Option {
	return func(c *LoanCoordinator) {
		c.clock = clock
	}
}

// WithPublisher sets where committed loan events go. The default discards them.
func WithPublisher(publisher core.LoanEventPublisher) Option {
	return func(c *LoanCoordinator) {
		c.publisher = publisher
	}
}

// WithRetryOptions configures how the command handlers retry concurrency conflicts.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(c *LoanCoordinator) {
		c.retryOptions = opts
	}
}

// WithMetrics sets the metrics collector for all handlers and for event publishing.
func WithMetrics(collector shell.MetricsCollector) Option {
	return func(c *LoanCoordinator) {
		c.metricsCollector = collector
	}
}

// WithTracing sets the tracing collector for all handlers.
func WithTracing(collector shell.TracingCollector) Option {
	return func(c *LoanCoordinator) {
		c.tracingCollector = collector
	}
}

// WithLogger sets a basic logger.
func WithLogger(logger shell.Logger) Option {
	return func(c *LoanCoordinator) {
		c.logger = logger
	}
}

// WithContextualLogger sets a context-aware logger. It takes precedence over WithLogger.
func WithContextualLogger(logger shell.ContextualLogger) Option {
	return func(c *LoanCoordinator) {
		c.contextualLogger = logger
	}
}
