package shell

import "context"

// Command represents the contract for all loan command types.
// The CommandType method enables polymorphic handling and observability instrumentation.
type Command interface {
	CommandType() string
}

// CoreCommandHandler defines the contract for components that process commands with pure business logic.
// Handlers orchestrate the complete command workflow: load the copy and reader state, decide, apply.
// R is the record the command produced, e.g. the created borrow.
// Implementations should not care about observability, the observable.CommandWrapper adds it.
type CoreCommandHandler[C Command, R any] interface {
	Handle(ctx context.Context, command C) (HandlerResult[R], error)
}

// Query represents the contract for all loan query types.
type Query interface {
	QueryType() string
}

// CoreQueryHandler defines the contract for components that answer queries from point-in-time reads.
type CoreQueryHandler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}
