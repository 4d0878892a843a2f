package resolve

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/almoner/almoner/internal/errors"
	"github.com/almoner/almoner/internal/graph"
	"github.com/almoner/almoner/internal/models"
)

// fakeGraph implements graph.Executor with just enough store semantics
// for resolution: MERGE creates a node the first time an id is seen and
// merges afterwards, CREATE always creates.
type fakeGraph struct {
	ids     map[string]bool
	queries []string
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{ids: make(map[string]bool)}
}

func (f *fakeGraph) Query(_ context.Context, cypher string, _ map[string]any) ([]graph.Row, error) {
	f.queries = append(f.queries, cypher)
	return nil, nil
}

func (f *fakeGraph) Mutate(_ context.Context, cypher string, params map[string]any) (graph.MutationStats, error) {
	f.queries = append(f.queries, cypher)
	id := idParam(cypher, params)

	if strings.HasPrefix(cypher, "CREATE ") {
		f.ids[id] = true
		return graph.MutationStats{NodesCreated: 1, PropertiesSet: len(params)}, nil
	}
	if f.ids[id] {
		return graph.MutationStats{PropertiesSet: len(params) - 1}, nil
	}
	f.ids[id] = true
	return graph.MutationStats{NodesCreated: 1, PropertiesSet: len(params)}, nil
}

// idParam extracts the value bound to the id property, which travels as
// "id: $pN" in both CREATE and MERGE queries.
func idParam(cypher string, params map[string]any) string {
	i := strings.Index(cypher, "id: $")
	if i < 0 {
		return ""
	}
	name := cypher[i+len("id: $"):]
	if j := strings.IndexAny(name, ",}) "); j >= 0 {
		name = name[:j]
	}
	s, _ := params[name].(string)
	return s
}

func newTestResolver(fake *fakeGraph) *Resolver {
	r := NewResolver(graph.NewStore(fake))
	r.now = func() time.Time { return time.UnixMilli(1700000000000) }
	r.suffix = func() string { return "ab12cd34" }
	return r
}

func TestResolve_SourceIDIsTheGraphID(t *testing.T) {
	fake := newFakeGraph()
	r := newTestResolver(fake)

	res, err := r.Resolve(context.Background(), Record{
		Label:      models.LabelGrant,
		SourceID:   "X1",
		KeyParts:   []string{"ignored", "also ignored"},
		Properties: map[string]any{"title": "Housing"},
	})

	require.NoError(t, err)
	assert.Equal(t, "X1", res.ID)
	assert.Equal(t, RuleSourceID, res.Rule)
	assert.True(t, res.Created)
}

func TestResolve_SourceIDStableAcrossCalls(t *testing.T) {
	fake := newFakeGraph()
	r := newTestResolver(fake)
	rec := Record{
		Label:      models.LabelGrant,
		SourceID:   "X1",
		Properties: map[string]any{"title": "Housing"},
	}

	first, err := r.Resolve(context.Background(), rec)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.Created)
	assert.False(t, second.Created, "second pass merges into the existing node")
	assert.Len(t, fake.ids, 1)
}

func TestResolve_CompositeKeyDeterminism(t *testing.T) {
	fake := newFakeGraph()
	r := newTestResolver(fake)

	variants := []Record{
		{Label: models.LabelGrant, KeyParts: []string{"Community Fund", "City Hall"}},
		{Label: models.LabelGrant, KeyParts: []string{"community fund", "CITY HALL"}},
		{Label: models.LabelGrant, KeyParts: []string{"Community  Fund!", "City-Hall"}},
	}

	for _, rec := range variants {
		res, err := r.Resolve(context.Background(), rec)
		require.NoError(t, err)
		assert.Equal(t, "community-fund-city-hall", res.ID)
		assert.Equal(t, RuleCompositeKey, res.Rule)
	}
	assert.Len(t, fake.ids, 1, "all casing/punctuation variants resolve to one node")
}

func TestResolve_EmptyKeyPartDisqualifiesComposite(t *testing.T) {
	fake := newFakeGraph()
	r := newTestResolver(fake)

	res, err := r.Resolve(context.Background(), Record{
		Label:    models.LabelGrant,
		KeyParts: []string{"Housing", "   "},
	})

	require.NoError(t, err)
	assert.Equal(t, RuleSynthesized, res.Rule,
		"a blank key part falls through to synthesis, never a partial key")
}

func TestResolve_SynthesizedIDShape(t *testing.T) {
	fake := newFakeGraph()
	r := newTestResolver(fake)

	res, err := r.Resolve(context.Background(), Record{Label: models.LabelContribution})

	require.NoError(t, err)
	assert.Equal(t, "contribution-1700000000000-ab12cd34", res.ID)
	assert.Equal(t, RuleSynthesized, res.Rule)
	assert.True(t, res.Created)
}

func TestResolve_SynthesizedNeverMerges(t *testing.T) {
	fake := newFakeGraph()
	r := newTestResolver(fake)
	suffixes := []string{"aaaa0000", "bbbb1111"}
	r.suffix = func() string {
		s := suffixes[0]
		suffixes = suffixes[1:]
		return s
	}

	rec := Record{Label: models.LabelContribution, Properties: map[string]any{"amount": 50.0}}
	first, err := r.Resolve(context.Background(), rec)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), rec)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID, "keyless records always create new nodes")
	assert.Len(t, fake.ids, 2)
}

func TestResolve_MissingLabel(t *testing.T) {
	r := newTestResolver(newFakeGraph())

	_, err := r.Resolve(context.Background(), Record{SourceID: "X1"})

	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestResolveFunder_EINBeatsName(t *testing.T) {
	fake := newFakeGraph()
	r := newTestResolver(fake)

	res, err := r.ResolveFunder(context.Background(), models.Funder{
		Name: "Gates Foundation",
		EIN:  "56-2618866",
	})

	require.NoError(t, err)
	assert.Equal(t, "56-2618866", res.ID)
	assert.Equal(t, RuleSourceID, res.Rule)
}

func TestResolveFunder_FallsBackToName(t *testing.T) {
	r := newTestResolver(newFakeGraph())

	res, err := r.ResolveFunder(context.Background(), models.Funder{Name: "Gates Foundation"})

	require.NoError(t, err)
	assert.Equal(t, "gates-foundation", res.ID)
	assert.Equal(t, RuleCompositeKey, res.Rule)
}

func TestResolveGrant_TitleAgencyComposite(t *testing.T) {
	r := newTestResolver(newFakeGraph())

	res, err := r.ResolveGrant(context.Background(), models.Grant{
		Title:      "Affordable Housing 2026",
		AgencyName: "HUD",
	})

	require.NoError(t, err)
	assert.Equal(t, "affordable-housing-2026-hud", res.ID)
	assert.Equal(t, RuleCompositeKey, res.Rule)
}

func TestResolveContribution_AlwaysSynthesizes(t *testing.T) {
	r := newTestResolver(newFakeGraph())

	res, err := r.ResolveContribution(context.Background(), models.Contribution{Amount: 250})

	require.NoError(t, err)
	assert.Equal(t, RuleSynthesized, res.Rule)
	assert.True(t, strings.HasPrefix(res.ID, "contribution-"))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Community Fund", "community-fund"},
		{"City--Hall!!", "city-hall"},
		{"  Trimmed  ", "trimmed"},
		{"Éducation & Santé", "éducation-santé"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), "slugify(%q)", tt.in)
	}
}
