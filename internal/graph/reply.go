package graph

import (
	"strconv"

	falkordb "github.com/FalkorDB/falkordb-go"
)

// The falkordb client decodes the wire protocol; this file narrows its
// result model to the package's own small surface so nothing downstream
// (CRUD, ripple) imports client types or branches on client shapes.

// Row is one result row keyed by the query's RETURN column names.
type Row map[string]any

// Node is a graph entity as returned by the store. EntityID is the
// store's internal identifier; it stays inside this package's consumers
// (path stitching) and is never the caller-visible identity - that is
// the "id" property.
type Node struct {
	EntityID   int64
	Labels     []string
	Properties map[string]any
}

// Relationship is a typed directed edge between two store nodes.
type Relationship struct {
	EntityID   int64
	Type       string
	SrcID      int64
	DestID     int64
	Properties map[string]any
}

// Path is an ordered traversal: len(Relationships) == len(Nodes)-1.
type Path struct {
	Nodes         []Node
	Relationships []Relationship
}

// rowsFrom drains a query result into rows of converted values.
func rowsFrom(res *falkordb.QueryResult) []Row {
	var rows []Row
	for res.Next() {
		record := res.Record()
		keys := record.Keys()
		values := record.Values()
		row := make(Row, len(values))
		for i, value := range values {
			row[columnName(keys, i)] = convertValue(value)
		}
		rows = append(rows, row)
	}
	return rows
}

func columnName(columns []string, i int) string {
	if i < len(columns) {
		return columns[i]
	}
	return "column" + strconv.Itoa(i)
}

// convertValue maps a client result value onto this package's types;
// scalars pass through.
func convertValue(value any) any {
	switch t := value.(type) {
	case *falkordb.Node:
		return convertNode(t)
	case falkordb.Node:
		return convertNode(&t)
	case *falkordb.Edge:
		return convertEdge(t)
	case falkordb.Edge:
		return convertEdge(&t)
	case *falkordb.Path:
		return convertPath(*t)
	case falkordb.Path:
		return convertPath(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = convertValue(item)
		}
		return out
	default:
		return value
	}
}

func convertNode(n *falkordb.Node) Node {
	return Node{
		EntityID:   int64(n.ID),
		Labels:     n.Labels,
		Properties: properties(n.Properties),
	}
}

func convertEdge(e *falkordb.Edge) Relationship {
	return Relationship{
		EntityID:   int64(e.ID),
		Type:       e.Relation,
		SrcID:      int64(e.SourceNodeID()),
		DestID:     int64(e.DestNodeID()),
		Properties: properties(e.Properties),
	}
}

func convertPath(p falkordb.Path) Path {
	path := Path{
		Nodes:         make([]Node, 0, len(p.Nodes)),
		Relationships: make([]Relationship, 0, len(p.Edges)),
	}
	for _, item := range p.Nodes {
		if item != nil {
			path.Nodes = append(path.Nodes, convertNode(item))
		}
	}
	for _, item := range p.Edges {
		if item != nil {
			path.Relationships = append(path.Relationships, convertEdge(item))
		}
	}
	return path
}

func properties(props map[string]any) map[string]any {
	if props == nil {
		return map[string]any{}
	}
	return props
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}
