// Package ripple reconstructs bounded-depth directed traversals from
// the graph's native path representation and aggregates them into
// impact summaries: what did this entity cause, directly and
// indirectly, in both causal directions.
package ripple

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	apperrors "github.com/almoner/almoner/internal/errors"
	"github.com/almoner/almoner/internal/graph"
	"github.com/almoner/almoner/internal/models"
)

// Direction selects which traversal(s) to run.
type Direction string

const (
	// Upstream follows incoming relationships: causal predecessors.
	Upstream Direction = "upstream"
	// Downstream follows outgoing relationships: causal successors.
	Downstream Direction = "downstream"
	// Both runs the two traversals and returns their union.
	Both Direction = "both"
)

const (
	defaultMaxDepth = 3
	// maxPaths bounds response size and latency per direction.
	maxPaths = 100
	// impactDepth is the fixed depth for the derived impact views.
	impactDepth = 3
)

// Options tunes a trace.
type Options struct {
	MaxDepth  int
	Direction Direction
}

// NodeSummary is the caller-facing view of a traversed node.
type NodeSummary struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// EdgeSummary is the caller-facing view of a traversed relationship.
type EdgeSummary struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// Step is one hop of a traversal. Steps are always oriented cause to
// effect - From is the causal predecessor regardless of which direction
// the traversal ran - so callers can tell nothing about traversal
// direction from step shape, by construction. Depth is the hop distance
// from the origin, starting at 1.
type Step struct {
	From  NodeSummary `json:"from"`
	Edge  EdgeSummary `json:"edge"`
	To    NodeSummary `json:"to"`
	Depth int         `json:"depth"`
}

// Summary aggregates a trace in one pass over its steps.
type Summary struct {
	NodesReached int            `json:"nodesReached"`
	MaxDepth     int            `json:"maxDepth"`
	NodesByType  map[string]int `json:"nodesByType"`
}

// Trace is an origin plus the reconstructed paths and their summary.
// Traces are request-scoped and never persisted.
type Trace struct {
	Origin  NodeSummary `json:"origin"`
	Paths   [][]Step    `json:"paths"`
	Summary Summary     `json:"summary"`
}

// Impact buckets first-time-seen downstream nodes by type.
type Impact struct {
	ActivitiesEnabled      int `json:"activitiesEnabled"`
	GrantsEnabled          int `json:"grantsEnabled"`
	OrganizationsSupported int `json:"organizationsSupported"`
	PeopleReached          int `json:"peopleReached"`
	OtherEffects           int `json:"otherEffects"`
}

// GrantImpact combines a grant's originating funder (when its immediate
// causal predecessor is one) with its full downstream impact.
type GrantImpact struct {
	GrantID string       `json:"grantId"`
	Funder  *NodeSummary `json:"funder,omitempty"`
	Impact  Impact       `json:"impact"`
}

// Engine runs traversals over the graph executor directly - it needs
// raw path results, which the generic CRUD layer does not surface.
type Engine struct {
	exec   graph.Executor
	logger *slog.Logger
}

// NewEngine creates a ripple engine over the given executor.
func NewEngine(exec graph.Executor) *Engine {
	return &Engine{
		exec:   exec,
		logger: slog.Default().With("component", "ripple"),
	}
}

var labelRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// TraceRipples traverses from the origin node up to MaxDepth hops in
// the selected direction(s) and reconstructs the store's raw paths into
// ordered step sequences. The origin must exist; an existing origin
// with no paths yields an empty, valid trace.
func (e *Engine) TraceRipples(ctx context.Context, nodeID, label string, opts Options) (*Trace, error) {
	if !labelRe.MatchString(label) {
		return nil, apperrors.ValidationErrorf("traceRipples: invalid label %q", label)
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	if opts.Direction == "" {
		opts.Direction = Both
	}

	origin, err := e.fetchOrigin(ctx, nodeID, label)
	if err != nil {
		return nil, err
	}

	trace := &Trace{
		Origin: origin,
		Paths:  [][]Step{},
	}

	if opts.Direction == Downstream || opts.Direction == Both {
		paths, err := e.tracePaths(ctx, nodeID, label, opts.MaxDepth, Downstream)
		if err != nil {
			return nil, err
		}
		trace.Paths = append(trace.Paths, paths...)
	}
	if opts.Direction == Upstream || opts.Direction == Both {
		paths, err := e.tracePaths(ctx, nodeID, label, opts.MaxDepth, Upstream)
		if err != nil {
			return nil, err
		}
		trace.Paths = append(trace.Paths, paths...)
	}

	trace.Summary = summarize(trace.Paths)
	e.logger.Debug("ripples traced",
		"origin", nodeID,
		"paths", len(trace.Paths),
		"nodes_reached", trace.Summary.NodesReached)
	return trace, nil
}

func (e *Engine) fetchOrigin(ctx context.Context, nodeID, label string) (NodeSummary, error) {
	builder := graph.NewBuilder()
	cypher := fmt.Sprintf("MATCH (n:%s {id: %s}) RETURN n LIMIT 1", label, builder.AddParam(nodeID))
	rows, err := e.exec.Query(ctx, cypher, builder.Params())
	if err != nil {
		return NodeSummary{}, err
	}
	if len(rows) == 0 {
		return NodeSummary{}, apperrors.NotFoundErrorf("origin node %q (%s) not found", nodeID, label)
	}
	node, ok := rows[0]["n"].(graph.Node)
	if !ok {
		return NodeSummary{}, apperrors.QueryError(nil, cypher, builder.Params()).
			WithContext("reason", "result column n is not a node")
	}
	return summarizeNode(node), nil
}

// tracePaths issues one bounded-length path query for a direction and
// reconstructs each raw path into steps.
func (e *Engine) tracePaths(ctx context.Context, nodeID, label string, maxDepth int, dir Direction) ([][]Step, error) {
	builder := graph.NewBuilder()
	idParam := builder.AddParam(nodeID)

	pattern := fmt.Sprintf("(origin:%s {id: %s})-[*1..%d]->()", label, idParam, maxDepth)
	if dir == Upstream {
		pattern = fmt.Sprintf("(origin:%s {id: %s})<-[*1..%d]-()", label, idParam, maxDepth)
	}
	cypher := fmt.Sprintf("MATCH p = %s RETURN p LIMIT %d", pattern, maxPaths)

	rows, err := e.exec.Query(ctx, cypher, builder.Params())
	if err != nil {
		return nil, err
	}

	paths := make([][]Step, 0, len(rows))
	for _, row := range rows {
		path, ok := row["p"].(graph.Path)
		if !ok {
			continue
		}
		steps := reconstruct(path)
		if len(steps) == 0 {
			// origin-only path; nothing was traversed
			continue
		}
		paths = append(paths, steps)
	}
	return paths, nil
}

// reconstruct maps nodes[i] -rels[i]-> nodes[i+1] into a step per
// consecutive pair. Each step is oriented by the relationship's own
// source and destination, so upstream and downstream traversals produce
// identically shaped, cause-to-effect steps.
func reconstruct(path graph.Path) []Step {
	if len(path.Nodes) < 2 || len(path.Relationships) != len(path.Nodes)-1 {
		return nil
	}
	steps := make([]Step, 0, len(path.Relationships))
	for i, rel := range path.Relationships {
		a, b := path.Nodes[i], path.Nodes[i+1]
		from, to := a, b
		if rel.SrcID == b.EntityID && rel.DestID == a.EntityID {
			from, to = b, a
		}
		steps = append(steps, Step{
			From:  summarizeNode(from),
			Edge:  EdgeSummary{Type: rel.Type, Properties: rel.Properties},
			To:    summarizeNode(to),
			Depth: i + 1,
		})
	}
	return steps
}

// summarize scans every step of every path once.
func summarize(paths [][]Step) Summary {
	summary := Summary{NodesByType: map[string]int{}}
	seen := map[string]bool{}
	byType := map[string]map[string]bool{}

	record := func(n NodeSummary) {
		if !seen[n.ID] {
			seen[n.ID] = true
		}
		if byType[n.Type] == nil {
			byType[n.Type] = map[string]bool{}
		}
		byType[n.Type][n.ID] = true
	}

	for _, steps := range paths {
		for _, step := range steps {
			record(step.From)
			record(step.To)
			if step.Depth > summary.MaxDepth {
				summary.MaxDepth = step.Depth
			}
		}
	}

	summary.NodesReached = len(seen)
	for typ, ids := range byType {
		summary.NodesByType[typ] = len(ids)
	}
	return summary
}

// summarizeNode maps a raw store node to its caller-facing view: the id
// property (or "unknown"), a display label from name/title/id (or
// "Unknown"), and the first graph label as the type (or "Node").
func summarizeNode(n graph.Node) NodeSummary {
	s := NodeSummary{
		ID:         "unknown",
		Label:      "Unknown",
		Type:       "Node",
		Properties: n.Properties,
	}
	if id, ok := n.Properties["id"].(string); ok && id != "" {
		s.ID = id
	}
	for _, key := range []string{"name", "title", "id"} {
		if v, ok := n.Properties[key].(string); ok && v != "" {
			s.Label = v
			break
		}
	}
	if len(n.Labels) > 0 {
		s.Type = n.Labels[0]
	}
	return s
}

// DownstreamImpact runs a fixed-depth downstream trace and buckets
// first-time-seen target nodes by type - first occurrence only, so a
// node reached by multiple paths is never double-counted.
func (e *Engine) DownstreamImpact(ctx context.Context, nodeID, label string) (Impact, error) {
	trace, err := e.TraceRipples(ctx, nodeID, label, Options{
		MaxDepth:  impactDepth,
		Direction: Downstream,
	})
	if err != nil {
		return Impact{}, err
	}

	var impact Impact
	seen := map[string]bool{trace.Origin.ID: true}
	for _, steps := range trace.Paths {
		for _, step := range steps {
			if seen[step.To.ID] {
				continue
			}
			seen[step.To.ID] = true
			switch step.To.Type {
			case models.LabelContribution:
				impact.ActivitiesEnabled++
			case models.LabelGrant:
				impact.GrantsEnabled++
			case models.LabelOrganization:
				impact.OrganizationsSupported++
			case models.LabelPerson:
				impact.PeopleReached++
			default:
				impact.OtherEffects++
			}
		}
	}
	return impact, nil
}

// GrantImpactReport composes a 1-hop upstream trace (to find the
// originating funder, if the immediate predecessor is one) with the
// grant's full downstream impact.
func (e *Engine) GrantImpactReport(ctx context.Context, grantID string) (GrantImpact, error) {
	upstream, err := e.TraceRipples(ctx, grantID, models.LabelGrant, Options{
		MaxDepth:  1,
		Direction: Upstream,
	})
	if err != nil {
		return GrantImpact{}, err
	}

	report := GrantImpact{GrantID: grantID}
	for _, steps := range upstream.Paths {
		for _, step := range steps {
			// cause-to-effect orientation: the predecessor is From
			if step.Depth == 1 && step.From.Type == models.LabelFunder {
				funder := step.From
				report.Funder = &funder
				break
			}
		}
		if report.Funder != nil {
			break
		}
	}

	impact, err := e.DownstreamImpact(ctx, grantID, models.LabelGrant)
	if err != nil {
		return GrantImpact{}, err
	}
	report.Impact = impact
	return report, nil
}
