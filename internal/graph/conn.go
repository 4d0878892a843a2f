package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	falkordb "github.com/FalkorDB/falkordb-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/almoner/almoner/internal/config"
	apperrors "github.com/almoner/almoner/internal/errors"
)

// State is the connection lifecycle position.
type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unconnected"
	}
}

// Conn owns the single logical connection to the FalkorDB graph store,
// managed through the official falkordb client. One Conn is constructed
// at process start and injected into every component that needs it;
// nothing in this package holds a hidden global. The client's underlying
// go-redis transport does its own pooling, so all query traffic after
// Connect runs with unbounded concurrency.
type Conn struct {
	mu    sync.RWMutex
	state State
	db    *falkordb.FalkorDB
	graph *falkordb.Graph

	cfg    config.GraphConfig
	logger *slog.Logger

	// collapses concurrent Connect calls into one dial attempt
	connecting singleflight.Group

	// test seam; defaults to establishStore
	establish func(ctx context.Context) error
}

// New creates an unconnected Conn from configuration. Connect must be
// called before any query.
func New(cfg config.GraphConfig) *Conn {
	c := &Conn{
		cfg:    cfg,
		logger: slog.Default().With("component", "graph"),
	}
	c.establish = c.establishStore
	return c
}

// GraphName returns the configured graph name within the store.
func (c *Conn) GraphName() string {
	return c.cfg.Name
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Connect establishes the transport and verifies it with a ping. Calling
// Connect while already connected is a no-op; concurrent calls serialize
// through a single in-flight dial rather than racing to create two
// transports. A failed attempt leaves the Conn unconnected - it is never
// silently masked.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.RLock()
	if c.state == StateConnected {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	_, err, _ := c.connecting.Do("connect", func() (any, error) {
		return nil, c.dial(ctx)
	})
	return err
}

func (c *Conn) dial(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.mu.Unlock()

	if err := c.establish(ctx); err != nil {
		c.setState(StateUnconnected)
		return err
	}

	c.setState(StateConnected)
	c.logger.Info("graph store connected", "graph", c.cfg.Name)
	return nil
}

// establishStore opens the falkordb client and verifies it with a ping.
func (c *Conn) establishStore(ctx context.Context) error {
	opts, err := c.redisOptions()
	if err != nil {
		return err
	}

	db, err := falkordb.FalkorDBNew(opts)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindConnection,
			fmt.Sprintf("failed to connect to graph store at %s", opts.Addr))
	}

	// Verify connectivity (fail fast rather than on first query)
	if err := db.Conn.Ping(ctx).Err(); err != nil {
		db.Conn.Close()
		return apperrors.Wrap(err, apperrors.KindConnection,
			fmt.Sprintf("failed to connect to graph store at %s", opts.Addr))
	}

	c.mu.Lock()
	c.db = db
	c.graph = db.SelectGraph(c.cfg.Name)
	c.mu.Unlock()
	return nil
}

// redisOptions translates configuration into client options. A single
// URL, when present, takes precedence over the discrete fields.
func (c *Conn) redisOptions() (*falkordb.ConnectionOption, error) {
	if c.cfg.URL != "" {
		opts, err := redis.ParseURL(c.cfg.URL)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.KindConfig,
				fmt.Sprintf("invalid graph store URL %q", c.cfg.URL))
		}
		return opts, nil
	}
	return &falkordb.ConnectionOption{
		Addr:     fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port),
		Password: c.cfg.Password,
	}, nil
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Disconnect releases the underlying transport. In-flight queries
// complete or fail on the closed client; they never observe partial
// state. A Disconnect on an unconnected Conn is a no-op.
func (c *Conn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		c.state = StateUnconnected
		return nil
	}
	err := c.db.Conn.Close()
	c.db = nil
	c.graph = nil
	c.state = StateDisconnected
	c.logger.Info("graph store disconnected")
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindConnection, "failed to close graph transport")
	}
	return nil
}

// Ping verifies store connectivity; used by health checks.
func (c *Conn) Ping(ctx context.Context) error {
	db, _, err := c.active()
	if err != nil {
		return err
	}
	if err := db.Conn.Ping(ctx).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.KindConnection, "graph store ping failed")
	}
	return nil
}

func (c *Conn) active() (*falkordb.FalkorDB, *falkordb.Graph, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateConnected || c.db == nil {
		return nil, nil, apperrors.ConnectionErrorf("graph store not connected (state=%s)", c.state)
	}
	return c.db, c.graph, nil
}

// Query executes a read-only query and returns its rows. Fails with a
// connection error when not connected and a query error (carrying the
// query text and parameters) on store-level rejection.
func (c *Conn) Query(ctx context.Context, cypher string, params map[string]any) ([]Row, error) {
	_, g, err := c.active()
	if err != nil {
		return nil, err
	}

	res, err := g.ROQuery(cypher, normalizeParams(params), queryOptions(ctx))
	if err != nil {
		return nil, apperrors.QueryError(err, cypher, params)
	}

	rows := rowsFrom(res)
	c.logger.Debug("query executed", "rows", len(rows))
	return rows, nil
}

// Mutate executes a write query and returns the parsed mutation stats.
// Same failure modes as Query; a no-op write returns zero stats, not an
// error.
func (c *Conn) Mutate(ctx context.Context, cypher string, params map[string]any) (MutationStats, error) {
	_, g, err := c.active()
	if err != nil {
		return MutationStats{}, err
	}

	res, err := g.Query(cypher, normalizeParams(params), queryOptions(ctx))
	if err != nil {
		return MutationStats{}, apperrors.QueryError(err, cypher, params)
	}

	stats := statsFrom(res)
	c.logger.Debug("mutation executed",
		"nodes_created", stats.NodesCreated,
		"relationships_created", stats.RelationshipsCreated,
		"properties_set", stats.PropertiesSet)
	return stats, nil
}

// Command issues a raw store command sharing the managed transport; the
// schema bootstrap uses it for constraint management, which has no
// Cypher form.
func (c *Conn) Command(ctx context.Context, args ...any) (any, error) {
	db, _, err := c.active()
	if err != nil {
		return nil, err
	}
	raw, err := db.Conn.Do(ctx, args...).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindQuery, "graph command failed").
			WithContext("command", fmt.Sprint(args...))
	}
	return raw, nil
}

// queryOptions maps a context deadline onto the store-side query
// timeout (milliseconds); without a deadline the store default applies.
func queryOptions(ctx context.Context) *falkordb.QueryOptions {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := int(time.Until(deadline).Milliseconds())
	if ms <= 0 {
		ms = 1
	}
	return falkordb.NewQueryOptions().SetTimeout(ms)
}

// normalizeParams widens parameter values into the shapes the client's
// serializer covers: typed string slices become generic slices and
// timestamps become RFC 3339 strings (matching the property codec).
func normalizeParams(params map[string]any) map[string]any {
	if len(params) == 0 {
		return params
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch t := v.(type) {
		case []string:
			generic := make([]any, len(t))
			for i, s := range t {
				generic[i] = s
			}
			out[k] = generic
		case time.Time:
			out[k] = t.UTC().Format(time.RFC3339Nano)
		default:
			out[k] = v
		}
	}
	return out
}
