// Package observable wraps command and query handlers with metrics, tracing and logging
// while the handlers themselves stay free of observability concerns.
//
// The wrappers are applied at wiring time, not hidden inside factory functions:
//
//	coreHandler := checkoutcopy.NewCommandHandler(store)
//
//	handler, err := observable.NewCommandWrapper[checkoutcopy.Command, core.Borrow](
//		coreHandler,
//		observable.WithCommandMetrics[checkoutcopy.Command, core.Borrow](metricsCollector),
//		observable.WithCommandTracing[checkoutcopy.Command, core.Borrow](tracingCollector),
//		observable.WithCommandContextualLogging[checkoutcopy.Command, core.Borrow](contextualLogger),
//	)
//
// A business rejection is reported with status "rejected" and logged at Info. Store failures,
// cancellations, timeouts and exhausted conflict retries each get their own status and are logged at Error.
package observable
