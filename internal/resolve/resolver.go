// Package resolve decides whether an incoming record refers to an
// existing graph entity or a new one, and picks a stable, deterministic
// identifier. This is identity resolution, not just persistence: the
// same logical record fed through twice never creates two nodes when a
// stable key exists.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	apperrors "github.com/almoner/almoner/internal/errors"
	"github.com/almoner/almoner/internal/graph"
	"github.com/almoner/almoner/internal/models"
)

// Rule names which identity rule decided a resolution.
type Rule string

const (
	// RuleSourceID - the record carried a source-stable identifier
	RuleSourceID Rule = "source_id"
	// RuleCompositeKey - identity derived from normalized key fields
	RuleCompositeKey Rule = "composite_key"
	// RuleSynthesized - no stable key; a fresh id was synthesized
	RuleSynthesized Rule = "synthesized"
)

// Record is a loosely-typed record extracted from an external source.
type Record struct {
	// Label is the entity kind (node label); required.
	Label string
	// SourceID is an externally issued stable identifier, when the
	// source provides one (an opportunity id, an EIN).
	SourceID string
	// KeyParts are the components of a deterministic composite key
	// (e.g. title + issuing organization name), used when no SourceID
	// exists. Every part must be non-empty to qualify.
	KeyParts []string
	// Properties are the record's non-key properties.
	Properties map[string]any
}

// Resolution is the outcome: the graph id, the rule that produced it,
// and whether a new node was created.
type Resolution struct {
	ID      string
	Rule    Rule
	Created bool
}

// Resolver resolves records against the graph through the CRUD store.
type Resolver struct {
	store  *graph.Store
	logger *slog.Logger

	// test seams
	now    func() time.Time
	suffix func() string
}

// NewResolver creates a resolver over the given store.
func NewResolver(store *graph.Store) *Resolver {
	return &Resolver{
		store:  store,
		logger: slog.Default().With("component", "resolver"),
		now:    time.Now,
		suffix: func() string { return uuid.NewString()[:8] },
	}
}

// Resolve applies the identity rules in priority order; the first
// matching rule wins, evaluated once per call:
//
//  1. A source-stable identifier IS the graph id; merge-or-create.
//  2. A composite key (normalized, joined parts) becomes the id;
//     merge-or-create.
//  3. Otherwise synthesize an id from the entity kind plus a creation
//     timestamp and create unconditionally - no merge lookup, so this
//     rule is deliberately not idempotent.
//
// Rules 1-2 are idempotent: re-feeding the same logical record (even
// with updated non-key properties) merges into the existing node.
// Missing optional fields never error; rule 3 is the safety net that
// keeps a keyless record from failing resolution.
func (r *Resolver) Resolve(ctx context.Context, rec Record) (Resolution, error) {
	if rec.Label == "" {
		return Resolution{}, apperrors.ValidationErrorf("resolve: record missing label")
	}

	if rec.SourceID != "" {
		return r.mergeOrCreate(ctx, rec, rec.SourceID, RuleSourceID)
	}

	if id, ok := compositeID(rec.KeyParts); ok {
		return r.mergeOrCreate(ctx, rec, id, RuleCompositeKey)
	}

	id := fmt.Sprintf("%s-%d-%s", strings.ToLower(rec.Label), r.now().UnixMilli(), r.suffix())
	props := withID(rec.Properties, id)
	if _, err := r.store.CreateNode(ctx, rec.Label, props); err != nil {
		return Resolution{}, err
	}
	r.logger.Debug("entity synthesized", "label", rec.Label, "id", id)
	return Resolution{ID: id, Rule: RuleSynthesized, Created: true}, nil
}

func (r *Resolver) mergeOrCreate(ctx context.Context, rec Record, id string, rule Rule) (Resolution, error) {
	_, created, err := r.store.UpsertNode(ctx, rec.Label, id, rec.Properties)
	if err != nil {
		return Resolution{}, err
	}
	r.logger.Debug("entity resolved",
		"label", rec.Label, "id", id, "rule", string(rule), "created", created)
	return Resolution{ID: id, Rule: rule, Created: created}, nil
}

// compositeID builds a deterministic id from key parts: each part is
// lowercased with every non-alphanumeric run collapsed to a single
// separator, then parts are joined with the separator. Varied casing
// and punctuation in the source fields resolve to the same id.
func compositeID(parts []string) (string, bool) {
	if len(parts) == 0 {
		return "", false
	}
	slugs := make([]string, 0, len(parts))
	for _, part := range parts {
		slug := slugify(part)
		if slug == "" {
			return "", false
		}
		slugs = append(slugs, slug)
	}
	return strings.Join(slugs, "-"), true
}

func slugify(s string) string {
	var sb strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingSep = false
			sb.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return sb.String()
}

func withID(props map[string]any, id string) map[string]any {
	out := make(map[string]any, len(props)+1)
	for k, v := range props {
		out[k] = v
	}
	out["id"] = id
	return out
}

// Typed wrappers for the ingestion records.

// ResolveFunder resolves by EIN when present, else by normalized name.
func (r *Resolver) ResolveFunder(ctx context.Context, f models.Funder) (Resolution, error) {
	return r.Resolve(ctx, Record{
		Label:      models.LabelFunder,
		SourceID:   f.EIN,
		KeyParts:   []string{f.Name},
		Properties: f.Properties(),
	})
}

// ResolveGrant resolves by the externally issued opportunity id when
// present, else by normalized title + issuing agency name.
func (r *Resolver) ResolveGrant(ctx context.Context, g models.Grant) (Resolution, error) {
	return r.Resolve(ctx, Record{
		Label:      models.LabelGrant,
		SourceID:   g.OpportunityID,
		KeyParts:   []string{g.Title, g.AgencyName},
		Properties: g.Properties(),
	})
}

// ResolveOrganization resolves by EIN when present, else by normalized
// name.
func (r *Resolver) ResolveOrganization(ctx context.Context, o models.Organization) (Resolution, error) {
	return r.Resolve(ctx, Record{
		Label:      models.LabelOrganization,
		SourceID:   o.EIN,
		KeyParts:   []string{o.Name},
		Properties: o.Properties(),
	})
}

// ResolvePerson resolves by email when present, else by normalized
// name.
func (r *Resolver) ResolvePerson(ctx context.Context, p models.Person) (Resolution, error) {
	return r.Resolve(ctx, Record{
		Label:      models.LabelPerson,
		SourceID:   p.Email,
		KeyParts:   []string{p.Name},
		Properties: p.Properties(),
	})
}

// ResolveContribution always synthesizes: contributions carry no stable
// key, so every record is a new node by design.
func (r *Resolver) ResolveContribution(ctx context.Context, c models.Contribution) (Resolution, error) {
	return r.Resolve(ctx, Record{
		Label:      models.LabelContribution,
		Properties: c.Properties(),
	})
}
