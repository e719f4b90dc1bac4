package shell

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/AntonStoeckl/library-loans/loanstore"
)

// Metric names. Durations are in seconds, counters end in _total.
const (
	CommandHandlerDurationMetric           = "commandhandler_handle_duration_seconds"
	CommandHandlerCallsMetric              = "commandhandler_handle_calls_total"
	CommandHandlerBusinessRejectionsMetric = "commandhandler_business_rejections_total"
	CommandHandlerCanceledMetric           = "commandhandler_canceled_operations_total"
	CommandHandlerTimeoutMetric            = "commandhandler_timeout_operations_total"

	// CommandHandlerConcurrencyConflictMetric counts commands that still lost a conflict after all retries.
	CommandHandlerConcurrencyConflictMetric = "commandhandler_concurrency_conflicts_total"

	// CommandHandlerRetriesMetric is labelled with command_type, attempt_number and error_type.
	// Alert on rate(commandhandler_retries_total[5m]) when copies are contended.
	CommandHandlerRetriesMetric           = "commandhandler_retries_total"
	CommandHandlerRetryDelayMetric        = "commandhandler_retry_delay_seconds"
	CommandHandlerMaxRetriesReachedMetric = "commandhandler_max_retries_reached_total"

	QueryHandlerDurationMetric = "queryhandler_handle_duration_seconds"
	QueryHandlerCallsMetric    = "queryhandler_handle_calls_total"
	QueryHandlerCanceledMetric = "queryhandler_canceled_operations_total"
	QueryHandlerTimeoutMetric  = "queryhandler_timeout_operations_total"

	// LoanEventsPublishedMetric counts loan events handed to the publisher after commit.
	LoanEventsPublishedMetric = "loanevents_published_total"
)

// Values of the status label and the business_outcome log attribute.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusError    = "error"
	StatusCanceled = "canceled"
	StatusTimeout  = "timeout"

	// StatusConcurrencyConflict means a parallel unit of work on the same copy won.
	StatusConcurrencyConflict = "concurrency_conflict"
)

// Log messages.
const (
	LogMsgCommandStarted   = "command handler started"
	LogMsgCommandCompleted = "command handler completed"
	LogMsgCommandRejected  = "command handler rejected"
	LogMsgCommandFailed    = "command handler failed"

	LogMsgQueryStarted   = "query handler started"
	LogMsgQueryCompleted = "query handler completed"
	LogMsgQueryFailed    = "query handler failed"

	// LogMsgLoanEventPublishFailed is logged when a committed loan event could not be published.
	LogMsgLoanEventPublishFailed = "loan event publishing failed"
)

// Log, metric and span attribute keys.
const (
	LogAttrCommandType     = "command_type"
	LogAttrQueryType       = "query_type"
	LogAttrEventType       = "event_type"
	LogAttrStatus          = "status"
	LogAttrDurationMS      = "duration_ms"
	LogAttrBusinessOutcome = "business_outcome"
	LogAttrReason          = "reason"
	LogAttrError           = "error"
)

// Span names.
const (
	SpanNameCommandHandle = "commandhandler.handle"
	SpanNameQueryHandle   = "queryhandler.handle"
)

// The handlers observe through the same interfaces the store does.
type (
	MetricsCollector           = loanstore.MetricsCollector
	ContextualMetricsCollector = loanstore.ContextualMetricsCollector
	TracingCollector           = loanstore.TracingCollector
	SpanContext                = loanstore.SpanContext
	ContextualLogger           = loanstore.ContextualLogger
	Logger                     = loanstore.Logger
)

// BuildCommandLabels labels a command metric.
func BuildCommandLabels(commandType, status string) map[string]string {
	return map[string]string{
		LogAttrCommandType: commandType,
		LogAttrStatus:      status,
	}
}

// BuildQueryLabels labels a query metric.
func BuildQueryLabels(queryType, status string) map[string]string {
	return map[string]string{
		LogAttrQueryType: queryType,
		LogAttrStatus:    status,
	}
}

// BuildRetryLabels labels one retry of a command.
func BuildRetryLabels(commandType string, attemptNumber int, errorType string) map[string]string {
	return map[string]string{
		LogAttrCommandType: commandType,
		"attempt_number":   strconv.Itoa(attemptNumber),
		"error_type":       errorType,
	}
}

// ToMilliseconds is the duration_ms value logged for d.
func ToMilliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// RecordCommandMetrics records duration and call count of a command, plus the counter matching a special status.
func RecordCommandMetrics(
	ctx context.Context,
	collector MetricsCollector,
	commandType string,
	status string,
	duration time.Duration,
) {
	if collector == nil {
		return
	}

	labels := BuildCommandLabels(commandType, status)

	recordDuration(ctx, collector, CommandHandlerDurationMetric, duration, labels)
	incrementCounter(ctx, collector, CommandHandlerCallsMetric, labels)

	if metric, ok := commandStatusCounters[status]; ok {
		incrementCounter(ctx, collector, metric, labels)
	}
}

var commandStatusCounters = map[string]string{
	StatusRejected:            CommandHandlerBusinessRejectionsMetric,
	StatusCanceled:            CommandHandlerCanceledMetric,
	StatusTimeout:             CommandHandlerTimeoutMetric,
	StatusConcurrencyConflict: CommandHandlerConcurrencyConflictMetric,
}

var queryStatusCounters = map[string]string{
	StatusCanceled: QueryHandlerCanceledMetric,
	StatusTimeout:  QueryHandlerTimeoutMetric,
}

// RecordQueryMetrics records duration and call count of a query, plus the counter matching a special status.
func RecordQueryMetrics(
	ctx context.Context,
	collector MetricsCollector,
	queryType string,
	status string,
	duration time.Duration,
) {
	if collector == nil {
		return
	}

	labels := BuildQueryLabels(queryType, status)

	recordDuration(ctx, collector, QueryHandlerDurationMetric, duration, labels)
	incrementCounter(ctx, collector, QueryHandlerCallsMetric, labels)

	if metric, ok := queryStatusCounters[status]; ok {
		incrementCounter(ctx, collector, metric, labels)
	}
}

// RecordLoanEventPublished counts one loan event handed to the publisher with its outcome.
func RecordLoanEventPublished(ctx context.Context, collector MetricsCollector, eventType, status string) {
	if collector == nil {
		return
	}

	incrementCounter(ctx, collector, LoanEventsPublishedMetric, map[string]string{
		LogAttrEventType: eventType,
		LogAttrStatus:    status,
	})
}

func recordDuration(
	ctx context.Context,
	collector MetricsCollector,
	metric string,
	duration time.Duration,
	labels map[string]string,
) {
	if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	collector.RecordDuration(metric, duration, labels)
}

func incrementCounter(ctx context.Context, collector MetricsCollector, metric string, labels map[string]string) {
	if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	collector.IncrementCounter(metric, labels)
}

// StartCommandSpan opens the span of one command. Without a tracer it returns ctx and a nil span.
func StartCommandSpan(ctx context.Context, tracer TracingCollector, commandType string) (context.Context, SpanContext) {
	return startSpan(ctx, tracer, SpanNameCommandHandle, LogAttrCommandType, commandType)
}

// StartQuerySpan opens the span of one query.
func StartQuerySpan(ctx context.Context, tracer TracingCollector, queryType string) (context.Context, SpanContext) {
	return startSpan(ctx, tracer, SpanNameQueryHandle, LogAttrQueryType, queryType)
}

// FinishCommandSpan closes a span opened by StartCommandSpan.
func FinishCommandSpan(tracer TracingCollector, span SpanContext, status string, duration time.Duration, err error) {
	finishSpan(tracer, span, status, duration, err)
}

// FinishQuerySpan closes a span opened by StartQuerySpan.
func FinishQuerySpan(tracer TracingCollector, span SpanContext, status string, duration time.Duration, err error) {
	finishSpan(tracer, span, status, duration, err)
}

func startSpan(ctx context.Context, tracer TracingCollector, name, typeKey, typeValue string) (context.Context, SpanContext) {
	if tracer == nil {
		return ctx, nil
	}

	return tracer.StartSpan(ctx, name, map[string]string{typeKey: typeValue})
}

func finishSpan(tracer TracingCollector, span SpanContext, status string, duration time.Duration, err error) {
	if tracer == nil || span == nil {
		return
	}

	attrs := map[string]string{
		LogAttrStatus:     status,
		LogAttrDurationMS: strconv.FormatFloat(ToMilliseconds(duration), 'f', 2, 64),
	}

	if err != nil {
		attrs[LogAttrError] = err.Error()
	}

	tracer.FinishSpan(span, status, attrs)
}

// LogCommandStart logs the beginning of command processing.
func LogCommandStart(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	commandType string,
) {
	logInfo(ctx, logger, contextualLogger, LogMsgCommandStarted, LogAttrCommandType, commandType)
}

// LogCommandSuccess logs successful command completion.
func LogCommandSuccess(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	commandType string,
	duration time.Duration,
) {
	logInfo(ctx, logger, contextualLogger, LogMsgCommandCompleted,
		LogAttrCommandType, commandType,
		LogAttrBusinessOutcome, StatusSuccess,
		LogAttrDurationMS, ToMilliseconds(duration),
	)
}

// LogCommandRejected logs a business rejection. It is an expected outcome, so it goes to Info.
func LogCommandRejected(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	commandType string,
	reason error,
	duration time.Duration,
) {
	logInfo(ctx, logger, contextualLogger, LogMsgCommandRejected,
		LogAttrCommandType, commandType,
		LogAttrBusinessOutcome, StatusRejected,
		LogAttrReason, reason.Error(),
		LogAttrDurationMS, ToMilliseconds(duration),
	)
}

// LogCommandError logs command processing errors.
func LogCommandError(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	commandType string,
	err error,
) {
	logError(ctx, logger, contextualLogger, LogMsgCommandFailed,
		LogAttrCommandType, commandType,
		LogAttrError, err.Error(),
	)
}

// LogQueryStart logs the beginning of query processing.
func LogQueryStart(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	queryType string,
) {
	logInfo(ctx, logger, contextualLogger, LogMsgQueryStarted, LogAttrQueryType, queryType)
}

// LogQuerySuccess logs successful query completion.
func LogQuerySuccess(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	queryType string,
	duration time.Duration,
) {
	logInfo(ctx, logger, contextualLogger, LogMsgQueryCompleted,
		LogAttrQueryType, queryType,
		LogAttrBusinessOutcome, StatusSuccess,
		LogAttrDurationMS, ToMilliseconds(duration),
	)
}

// LogQueryError logs query processing errors.
func LogQueryError(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	queryType string,
	err error,
) {
	logError(ctx, logger, contextualLogger, LogMsgQueryFailed,
		LogAttrQueryType, queryType,
		LogAttrError, err.Error(),
	)
}

// LogLoanEventPublishFailed logs a publish failure. The operation itself is already committed.
func LogLoanEventPublishFailed(
	ctx context.Context,
	logger Logger,
	contextualLogger ContextualLogger,
	eventType string,
	err error,
) {
	logError(ctx, logger, contextualLogger, LogMsgLoanEventPublishFailed,
		LogAttrEventType, eventType,
		LogAttrError, err.Error(),
	)
}

func logInfo(ctx context.Context, logger Logger, contextualLogger ContextualLogger, msg string, args ...any) {
	if contextualLogger != nil {
		contextualLogger.InfoContext(ctx, msg, args...)
	} else if logger != nil {
		logger.Info(msg, args...)
	}
}

func logError(ctx context.Context, logger Logger, contextualLogger ContextualLogger, msg string, args ...any) {
	if contextualLogger != nil {
		contextualLogger.ErrorContext(ctx, msg, args...)
	} else if logger != nil {
		logger.Error(msg, args...)
	}
}

// IsCancellationError reports whether the caller canceled.
func IsCancellationError(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsTimeoutError reports whether the deadline passed.
func IsTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// IsConcurrencyConflictError reports whether a parallel unit of work won the race for the copy.
func IsConcurrencyConflictError(err error) bool {
	return errors.Is(err, loanstore.ErrConcurrencyConflict)
}
