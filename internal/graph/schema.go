package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Schema bootstrap: a declarative list of desired property indexes,
// full-text indexes, and uniqueness constraints, each idempotently
// ensured. Shares the Connection Manager contract; nothing else in the
// core depends on it.

// IndexSpec is a desired range index on one property.
type IndexSpec struct {
	Label    string
	Property string
}

// FullTextSpec is a desired full-text index over one or more
// properties.
type FullTextSpec struct {
	Label      string
	Properties []string
}

// ConstraintSpec is a desired uniqueness constraint on one property.
type ConstraintSpec struct {
	Label    string
	Property string
}

// Schema is the declarative target state.
type Schema struct {
	Indexes     []IndexSpec
	FullText    []FullTextSpec
	Constraints []ConstraintSpec
}

// DefaultSchema returns the indexes and constraints the grant graph
// relies on: id lookups on every entity label, name/title search, and
// id uniqueness on the labels resolution upserts into.
func DefaultSchema() Schema {
	labels := []string{"Funder", "Grant", "Organization", "Person", "Contribution"}
	s := Schema{}
	for _, label := range labels {
		s.Indexes = append(s.Indexes, IndexSpec{Label: label, Property: "id"})
		s.Constraints = append(s.Constraints, ConstraintSpec{Label: label, Property: "id"})
	}
	s.Indexes = append(s.Indexes,
		IndexSpec{Label: "Funder", Property: "name"},
		IndexSpec{Label: "Organization", Property: "name"},
		IndexSpec{Label: "Grant", Property: "opportunityId"},
	)
	s.FullText = append(s.FullText,
		FullTextSpec{Label: "Grant", Properties: []string{"title", "description"}},
		FullTextSpec{Label: "Organization", Properties: []string{"name", "mission"}},
	)
	return s
}

// EnsureSchema brings the store to the desired schema. Each element is
// existence-checked before creation; "already exists" replies from
// racing bootstrappers are tolerated, any other failure propagates.
func EnsureSchema(ctx context.Context, conn Commander, schema Schema) error {
	logger := slog.Default().With("component", "schema")

	existing, err := existingIndexes(ctx, conn)
	if err != nil {
		return err
	}

	for _, idx := range schema.Indexes {
		if existing[indexKey(idx.Label, idx.Property)] {
			continue
		}
		cypher := fmt.Sprintf("CREATE INDEX FOR (n:%s) ON (n.%s)", idx.Label, idx.Property)
		if _, err := conn.Mutate(ctx, cypher, nil); err != nil {
			if isAlreadyExists(err) {
				continue
			}
			return err
		}
		logger.Info("index created", "label", idx.Label, "property", idx.Property)
	}

	for _, ft := range schema.FullText {
		args := make([]string, 0, len(ft.Properties)+1)
		args = append(args, fmt.Sprintf("'%s'", ft.Label))
		for _, p := range ft.Properties {
			args = append(args, fmt.Sprintf("'%s'", p))
		}
		cypher := fmt.Sprintf("CALL db.idx.fulltext.createNodeIndex(%s)", strings.Join(args, ", "))
		if _, err := conn.Mutate(ctx, cypher, nil); err != nil {
			if isAlreadyExists(err) {
				continue
			}
			return err
		}
		logger.Info("full-text index created", "label", ft.Label, "properties", ft.Properties)
	}

	for _, c := range schema.Constraints {
		// Constraint management has no Cypher form; it is a raw store
		// command on the shared transport.
		_, err := conn.Command(ctx, "GRAPH.CONSTRAINT", "CREATE", conn.GraphName(),
			"UNIQUE", "NODE", c.Label, "PROPERTIES", "1", c.Property)
		if err != nil {
			if isAlreadyExists(err) {
				continue
			}
			return err
		}
		logger.Info("unique constraint created", "label", c.Label, "property", c.Property)
	}

	return nil
}

// existingIndexes lists (label, property) pairs already indexed.
func existingIndexes(ctx context.Context, exec Executor) (map[string]bool, error) {
	rows, err := exec.Query(ctx, "CALL db.indexes() YIELD label, properties RETURN label, properties", nil)
	if err != nil {
		// Stores predating db.indexes(): fall back to create-and-tolerate.
		return map[string]bool{}, nil
	}
	existing := make(map[string]bool)
	for _, row := range rows {
		label, _ := row["label"].(string)
		for _, prop := range anyToStrings(row["properties"]) {
			existing[indexKey(label, prop)] = true
		}
	}
	return existing, nil
}

func anyToStrings(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{items}
	default:
		return nil
	}
}

func indexKey(label, property string) string {
	return label + "." + property
}

func isAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already indexed") ||
		strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "constraint already")
}
