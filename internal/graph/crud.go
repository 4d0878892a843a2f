package graph

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/almoner/almoner/internal/codec"
	apperrors "github.com/almoner/almoner/internal/errors"
)

// Store provides generic, label-parameterized node and edge operations
// over an Executor. Properties cross the store boundary through the
// codec: flattened on write, reconstructed on read.
type Store struct {
	exec   Executor
	logger *slog.Logger

	// test seam; defaults to time.Now
	now func() time.Time
}

// NewStore creates a Store over the given executor.
func NewStore(exec Executor) *Store {
	return &Store{
		exec:   exec,
		logger: slog.Default().With("component", "store"),
		now:    time.Now,
	}
}

// CreateNode creates a node with the caller-supplied id property (the
// sole stable identity handle). A uniqueness violation on id surfaces
// as a duplicate-id error, never swallowed.
func (s *Store) CreateNode(ctx context.Context, label string, props map[string]any) (string, error) {
	id, ok := props["id"].(string)
	if !ok || id == "" {
		return "", apperrors.ValidationErrorf("createNode %s: props must carry a non-empty string id", label)
	}

	builder := NewBuilder()
	cypher, err := builder.BuildCreateNode(label, codec.Encode(props))
	if err != nil {
		return "", apperrors.ValidationErrorf("createNode %s: %v", label, err)
	}

	if _, err := s.exec.Mutate(ctx, cypher, builder.Params()); err != nil {
		if isUniqueViolation(err) {
			return "", apperrors.DuplicateIDError(err, id)
		}
		return "", err
	}
	s.logger.Debug("node created", "label", label, "id", id)
	return id, nil
}

// UpdateNode partially updates a node by id; only supplied properties
// are touched. Zero nodes matched is surfaced as not-found, distinctly
// from success - including when every supplied property encodes away
// (nil values), where the update degrades to an existence check.
func (s *Store) UpdateNode(ctx context.Context, id string, props map[string]any) error {
	flat := codec.Encode(props)
	if len(flat) == 0 {
		_, found, err := s.GetNode(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return apperrors.NotFoundErrorf("node %q not found", id)
		}
		return nil
	}

	builder := NewBuilder()
	cypher, err := builder.BuildUpdateNode(id, flat)
	if err != nil {
		return apperrors.ValidationErrorf("updateNode %s: %v", id, err)
	}

	stats, err := s.exec.Mutate(ctx, cypher, builder.Params())
	if err != nil {
		return err
	}
	if stats.PropertiesSet == 0 {
		return apperrors.NotFoundErrorf("node %q not found", id)
	}
	return nil
}

// UpsertNode creates the node if absent and merges the supplied
/// properties if present, in one atomic store-side query: at most one
// node per id even under concurrent upserts. Reports whether a node was
// created.
func (s *Store) UpsertNode(ctx context.Context, label, id string, props map[string]any) (string, bool, error) {
	if id == "" {
		return "", false, apperrors.ValidationErrorf("upsertNode %s: empty id", label)
	}
	flat := codec.Encode(props)
	flat["id"] = id

	builder := NewBuilder()
	cypher, err := builder.BuildMergeNode(label, id, flat)
	if err != nil {
		return "", false, apperrors.ValidationErrorf("upsertNode %s: %v", label, err)
	}

	stats, err := s.exec.Mutate(ctx, cypher, builder.Params())
	if err != nil {
		return "", false, err
	}
	created := stats.NodesCreated > 0
	s.logger.Debug("node upserted", "label", label, "id", id, "created", created)
	return id, created, nil
}

// GetNode fetches a node's decoded properties by id. Absence is a
// valid, non-error outcome (found == false).
func (s *Store) GetNode(ctx context.Context, id string) (map[string]any, bool, error) {
	builder := NewBuilder()
	cypher := "MATCH (n {id: " + builder.AddParam(id) + "}) RETURN n LIMIT 1"

	rows, err := s.exec.Query(ctx, cypher, builder.Params())
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	node, ok := rows[0]["n"].(Node)
	if !ok {
		return nil, false, apperrors.QueryError(nil, cypher, builder.Params()).
			WithContext("reason", "result column n is not a node")
	}
	return codec.Decode(node.Properties), true, nil
}

// CreateEdge merges a typed directed relationship between two existing
// nodes. Missing endpoints surface as not-found. An updatedAt stamp is
// always set so the mutation stats distinguish "matched but unchanged"
// from "no endpoints matched".
func (s *Store) CreateEdge(ctx context.Context, fromID, toID, relType string, props map[string]any) error {
	flat := codec.Encode(props)
	flat["updatedAt"] = s.now().UTC().Format(time.RFC3339)

	builder := NewBuilder()
	cypher, err := builder.BuildMergeEdge(fromID, toID, relType, flat)
	if err != nil {
		return apperrors.ValidationErrorf("createEdge %s: %v", relType, err)
	}

	stats, err := s.exec.Mutate(ctx, cypher, builder.Params())
	if err != nil {
		return err
	}
	if stats.PropertiesSet == 0 && stats.RelationshipsCreated == 0 {
		return apperrors.NotFoundErrorf("edge %s: endpoint %q or %q not found", relType, fromID, toID)
	}
	return nil
}

// Counts reports node and relationship totals for the graph.
func (s *Store) Counts(ctx context.Context) (nodes, relationships int64, err error) {
	rows, err := s.exec.Query(ctx, "MATCH (n) RETURN count(n) AS c", nil)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) > 0 {
		nodes = toInt64(rows[0]["c"])
	}
	rows, err = s.exec.Query(ctx, "MATCH ()-[r]->() RETURN count(r) AS c", nil)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) > 0 {
		relationships = toInt64(rows[0]["c"])
	}
	return nodes, relationships, nil
}

// isUniqueViolation sniffs the store's uniqueness-constraint rejection.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint")
}
