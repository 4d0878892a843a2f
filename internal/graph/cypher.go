package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Builder assembles parameterized Cypher with validated identifiers, so
// labels, relationship types, and property keys can never smuggle query
// text. All values travel as $pN parameters.
type Builder struct {
	params  map[string]any
	counter int
}

// NewBuilder creates a query builder
func NewBuilder() *Builder {
	return &Builder{params: make(map[string]any)}
}

// AddParam adds a parameter and returns its placeholder
func (b *Builder) AddParam(value any) string {
	name := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[name] = value
	return "$" + name
}

// Params returns all parameters for the query
func (b *Builder) Params() map[string]any {
	return b.params
}

// BuildCreateNode builds a CREATE with an inline property map. The id
// property must be among props; property order is deterministic.
func (b *Builder) BuildCreateNode(label string, props map[string]any) (string, error) {
	if !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label: %s (must be alphanumeric + underscore)", label)
	}
	assigns, err := b.propertyPairs(props)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE (n:%s {%s}) RETURN n.id AS id", label, strings.Join(assigns, ", ")), nil
}

// BuildMergeNode builds a single-query create-or-merge keyed on the id
// property; supplied properties are merged, not overwritten wholesale.
func (b *Builder) BuildMergeNode(label, id string, props map[string]any) (string, error) {
	if !isValidIdentifier(label) {
		return "", fmt.Errorf("invalid node label: %s (must be alphanumeric + underscore)", label)
	}
	idParam := b.AddParam(id)
	sets, err := b.setClauses("n", props)
	if err != nil {
		return "", err
	}
	q := fmt.Sprintf("MERGE (n:%s {id: %s})", label, idParam)
	if len(sets) > 0 {
		q += " SET " + strings.Join(sets, ", ")
	}
	return q, nil
}

// BuildUpdateNode builds a partial SET on an existing node matched by
// id; only supplied properties are touched.
func (b *Builder) BuildUpdateNode(id string, props map[string]any) (string, error) {
	idParam := b.AddParam(id)
	sets, err := b.setClauses("n", props)
	if err != nil {
		return "", err
	}
	if len(sets) == 0 {
		return "", fmt.Errorf("update requires at least one property")
	}
	return fmt.Sprintf("MATCH (n {id: %s}) SET %s", idParam, strings.Join(sets, ", ")), nil
}

// BuildMergeEdge builds a MERGE relationship between two nodes matched
// by their id properties.
func (b *Builder) BuildMergeEdge(fromID, toID, relType string, props map[string]any) (string, error) {
	if !isValidIdentifier(relType) {
		return "", fmt.Errorf("invalid relationship type: %s", relType)
	}
	fromParam := b.AddParam(fromID)
	toParam := b.AddParam(toID)
	sets, err := b.setClauses("r", props)
	if err != nil {
		return "", err
	}
	q := fmt.Sprintf("MATCH (from {id: %s}) MATCH (to {id: %s}) MERGE (from)-[r:%s]->(to)",
		fromParam, toParam, relType)
	if len(sets) > 0 {
		q += " SET " + strings.Join(sets, ", ")
	}
	return q, nil
}

// propertyPairs renders "key: $pN" fragments in sorted key order.
func (b *Builder) propertyPairs(props map[string]any) ([]string, error) {
	keys, err := sortedValidKeys(props)
	if err != nil {
		return nil, err
	}
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s: %s", key, b.AddParam(props[key])))
	}
	return pairs, nil
}

// setClauses renders "alias.key = $pN" fragments in sorted key order.
func (b *Builder) setClauses(alias string, props map[string]any) ([]string, error) {
	keys, err := sortedValidKeys(props)
	if err != nil {
		return nil, err
	}
	clauses := make([]string, 0, len(keys))
	for _, key := range keys {
		clauses = append(clauses, fmt.Sprintf("%s.%s = %s", alias, key, b.AddParam(props[key])))
	}
	return clauses, nil
}

func sortedValidKeys(props map[string]any) ([]string, error) {
	keys := make([]string, 0, len(props))
	for key := range props {
		if !isValidIdentifier(key) {
			return nil, fmt.Errorf("invalid property key: %s (must be alphanumeric + underscore)", key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// isValidIdentifier validates that a string can be safely interpolated
// as a Cypher identifier (label, relationship type, property key).
func isValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}
