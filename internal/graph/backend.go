package graph

import "context"

// Executor is the query surface the CRUD store and ripple engine are
// built on. *Conn implements it; tests substitute a fake.
type Executor interface {
	// Query runs a read-only query and returns its rows.
	Query(ctx context.Context, cypher string, params map[string]any) ([]Row, error)
	// Mutate runs a write query and returns the parsed mutation stats.
	Mutate(ctx context.Context, cypher string, params map[string]any) (MutationStats, error)
}

// Commander extends Executor with raw store commands; needed only by
// the schema bootstrap for constraint management.
type Commander interface {
	Executor
	Command(ctx context.Context, args ...any) (any, error)
	GraphName() string
}
