package graph

import falkordb "github.com/FalkorDB/falkordb-go"

// MutationStats summarizes the effect of one write query. All counts are
// non-negative; a successful no-op write yields the zero value.
type MutationStats struct {
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	RelationshipsDeleted int
	PropertiesSet        int
	LabelsAdded          int
	IndicesCreated       int
	ExecutionTimeMs      float64
}

// Empty reports an all-zero stats object (no graph elements touched).
func (s MutationStats) Empty() bool {
	return s.NodesCreated == 0 && s.NodesDeleted == 0 &&
		s.RelationshipsCreated == 0 && s.RelationshipsDeleted == 0 &&
		s.PropertiesSet == 0 && s.LabelsAdded == 0 && s.IndicesCreated == 0
}

// statsFrom reads the client's metadata accessors into one value.
// Missing metrics report zero, never an error.
func statsFrom(res *falkordb.QueryResult) MutationStats {
	return MutationStats{
		NodesCreated:         res.NodesCreated(),
		NodesDeleted:         res.NodesDeleted(),
		RelationshipsCreated: res.RelationshipsCreated(),
		RelationshipsDeleted: res.RelationshipsDeleted(),
		PropertiesSet:        res.PropertiesSet(),
		LabelsAdded:          res.LabelsAdded(),
		IndicesCreated:       res.IndicesCreated(),
		ExecutionTimeMs:      res.InternalExecutionTime(),
	}
}
