package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommander struct {
	fakeExecutor
	commands  [][]any
	commandFn func(args ...any) (any, error)
}

func (f *fakeCommander) Command(_ context.Context, args ...any) (any, error) {
	f.commands = append(f.commands, args)
	if f.commandFn == nil {
		return "OK", nil
	}
	return f.commandFn(args...)
}

func (f *fakeCommander) GraphName() string { return "almoner" }

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema()

	assert.Len(t, s.Constraints, 5, "every entity label gets id uniqueness")
	assert.Len(t, s.FullText, 2)
	for _, c := range s.Constraints {
		assert.Equal(t, "id", c.Property)
	}
}

func TestEnsureSchema_CreatesEverything(t *testing.T) {
	conn := &fakeCommander{}

	schema := Schema{
		Indexes:     []IndexSpec{{Label: "Funder", Property: "id"}},
		FullText:    []FullTextSpec{{Label: "Grant", Properties: []string{"title", "description"}}},
		Constraints: []ConstraintSpec{{Label: "Funder", Property: "id"}},
	}
	require.NoError(t, EnsureSchema(context.Background(), conn, schema))

	var mutations []string
	for _, call := range conn.calls {
		if call.cypher != "CALL db.indexes() YIELD label, properties RETURN label, properties" {
			mutations = append(mutations, call.cypher)
		}
	}
	require.Len(t, mutations, 2)
	assert.Equal(t, "CREATE INDEX FOR (n:Funder) ON (n.id)", mutations[0])
	assert.Equal(t, "CALL db.idx.fulltext.createNodeIndex('Grant', 'title', 'description')", mutations[1])

	require.Len(t, conn.commands, 1)
	assert.Equal(t, []any{
		"GRAPH.CONSTRAINT", "CREATE", "almoner",
		"UNIQUE", "NODE", "Funder", "PROPERTIES", "1", "id",
	}, conn.commands[0])
}

func TestEnsureSchema_SkipsExistingIndexes(t *testing.T) {
	conn := &fakeCommander{}
	conn.queryFn = func(cypher string, _ map[string]any) ([]Row, error) {
		return []Row{{"label": "Funder", "properties": []any{"id"}}}, nil
	}

	schema := Schema{Indexes: []IndexSpec{{Label: "Funder", Property: "id"}}}
	require.NoError(t, EnsureSchema(context.Background(), conn, schema))

	for _, call := range conn.calls {
		assert.NotContains(t, call.cypher, "CREATE INDEX")
	}
}

func TestEnsureSchema_ToleratesAlreadyExists(t *testing.T) {
	conn := &fakeCommander{}
	conn.mutateFn = func(string, map[string]any) (MutationStats, error) {
		return MutationStats{}, errors.New("Attribute 'id' is already indexed")
	}
	conn.commandFn = func(...any) (any, error) {
		return nil, errors.New("constraint already exists")
	}

	require.NoError(t, EnsureSchema(context.Background(), conn, DefaultSchema()))
}

func TestEnsureSchema_PropagatesFailures(t *testing.T) {
	conn := &fakeCommander{}
	conn.mutateFn = func(string, map[string]any) (MutationStats, error) {
		return MutationStats{}, errors.New("out of memory")
	}

	assert.Error(t, EnsureSchema(context.Background(), conn, DefaultSchema()))
}
