package sqlengine

import (
	"context"
	"math"
	"time"

	"github.com/AntonStoeckl/library-loans/core"
	"github.com/AntonStoeckl/library-loans/loanstore"
)

const (
	metricUnitOfWorkDuration   = "loanstore_unit_of_work_duration_seconds"
	metricReadDuration         = "loanstore_read_duration_seconds"
	metricDatabaseErrors       = "loanstore_database_errors_total"
	metricConcurrencyConflicts = "loanstore_concurrency_conflicts_total"

	spanNameUnitOfWork = "loanstore.unit_of_work"
	spanNameRead       = "loanstore.read"

	spanAttrOperation = "operation"
	spanAttrCopyID    = "copy_id"
	spanAttrReaderID  = "reader_id"
	spanAttrErrorType = "error_type"
	spanAttrDialect   = "dialect"

	labelStatus = "status"

	statusSuccess  = "success"
	statusRejected = "rejected"
	statusError    = "error"

	logMsgSQLExecuted          = "executed sql for: "
	logMsgUnitOfWorkCommitted  = "unit of work committed"
	logMsgUnitOfWorkRolledBack = "unit of work rolled back"
	logMsgOperationFailed      = "loanstore operation failed: "
	logMsgRollbackFailed       = "rollback failed"
	logMsgMigrated             = "schema migrated"
	logAttrError               = "error"
	logAttrQuery               = "query"
	logAttrDurationMS          = "duration_ms"
	logAttrStatements          = "statements"
)

// logQueryWithDuration logs SQL statements with execution time at debug level if a logger is configured.
func (s *Store) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	} else if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (s *Store) logOperation(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, msg, args...)
	} else if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (s *Store) logError(ctx context.Context, action string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, logMsgOperationFailed+action, allArgs...)
	} else if s.logger != nil {
		s.logger.Error(logMsgOperationFailed+action, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordDuration records a duration metric, using the context-aware method if available.
func (s *Store) recordDuration(ctx context.Context, metric string, duration time.Duration, operation, status string) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       status,
		spanAttrDialect:   s.dialect.name,
	}

	if contextualCollector, ok := s.metricsCollector.(loanstore.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
	} else {
		s.metricsCollector.RecordDuration(metric, duration, labels)
	}
}

// recordError counts store failures, and concurrency conflicts separately.
func (s *Store) recordError(ctx context.Context, operation string, err error) {
	if s.metricsCollector == nil {
		return
	}

	errType := errorType(err)
	metric := metricDatabaseErrors
	if errType == errorTypeConflict {
		metric = metricConcurrencyConflicts
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrErrorType: errType,
		spanAttrDialect:   s.dialect.name,
	}

	if contextualCollector, ok := s.metricsCollector.(loanstore.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
	} else {
		s.metricsCollector.IncrementCounter(metric, labels)
	}
}

// startSpan starts a tracing span if a tracing collector is configured.
func (s *Store) startSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, loanstore.SpanContext) {
	if s.tracingCollector == nil {
		return ctx, nil
	}

	attrs[spanAttrDialect] = s.dialect.name

	return s.tracingCollector.StartSpan(ctx, name, attrs)
}

// finishSpan finishes a tracing span if a tracing collector is configured.
func (s *Store) finishSpan(span loanstore.SpanContext, status string, err error) {
	if s.tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{}
	if err != nil {
		attrs[spanAttrErrorType] = errorType(err)
	}

	s.tracingCollector.FinishSpan(span, status, attrs)
}

// outcomeStatus distinguishes business rejections from failures, both roll back.
func outcomeStatus(err error) string {
	switch {
	case err == nil:
		return statusSuccess
	case core.IsBusinessRejection(err):
		return statusRejected
	default:
		return statusError
	}
}
