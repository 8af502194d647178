package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tfta-mcp-server/internal/domain"
	"github.com/tfta-mcp-server/internal/repository/repotest"
)

func newTestResolver(t *testing.T, expander domain.FamilyExpander) *Resolver {
	t.Helper()
	logger := repotest.QuietLogger()
	f := repotest.New(t, repotest.LookupSchema).
		Regulation("STAT3", "TRRUST", "FOS", "JUN").
		MiRNA("hsa-miR-20b-5p", "Functional MTI", "STAT3").
		MiRNA("hsa-miR-20a-5p", "Functional MTI (Weak)", "MYC").
		MiRNA("hsa-let-7a-5p", "Functional MTI", "KRAS")
	store := f.LookupStore(logger)
	return NewResolver(store, expander, NewSymbolIndex("", store, 0, logger), logger)
}

func TestNormalizeMiRNA(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "MIR20B", want: "miR-20b"},
		{raw: "miR-20b-5p", want: "miR-20b-5p"},
		{raw: "hsa-mir-21-5P", want: "hsa-miR-21-5p"},
		{raw: "LET7A", want: "let-7a"},
		{raw: "microRNA 21", want: "miR-21"},
		{raw: "  STAT3 ", want: "STAT3"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMiRNA(tt.raw))
		})
	}
}

func TestResolver_ResolveGene(t *testing.T) {
	r := newTestResolver(t, StaticExpander{
		"AKT":       {"AKT1", "AKT2", "AKT3"},
		"FPLX:AP1":  {"FOS", "JUN"},
		"UNUSED:ID": {"X"},
	})
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     domain.EntityRef
		want    domain.ResolvedEntity
		wantErr domain.Reason
	}{
		{
			name: "bare known symbol",
			ref:  domain.EntityRef{Name: "stat3"},
			want: domain.ResolvedEntity{Kind: domain.KindSingleGene, Name: "stat3", Symbol: "STAT3"},
		},
		{
			name: "bare family name",
			ref:  domain.EntityRef{Name: "AKT"},
			want: domain.ResolvedEntity{Kind: domain.KindFamily, Name: "AKT", Members: []string{"AKT1", "AKT2", "AKT3"}},
		},
		{
			name: "bare unknown name stays a gene",
			ref:  domain.EntityRef{Name: "NOTAGENE"},
			want: domain.ResolvedEntity{Kind: domain.KindSingleGene, Name: "NOTAGENE", Symbol: "NOTAGENE"},
		},
		{
			name: "gene grounding",
			ref: domain.EntityRef{Name: "Stat3", Groundings: []domain.Grounding{
				{Namespace: "HGNC", ID: "11364", Name: "STAT3"},
			}},
			want: domain.ResolvedEntity{Kind: domain.KindSingleGene, Name: "Stat3", Symbol: "STAT3"},
		},
		{
			name: "family grounding",
			ref: domain.EntityRef{Name: "AP-1", Groundings: []domain.Grounding{
				{Namespace: "FPLX", ID: "FPLX:AP1", Name: "AP1"},
			}},
			want: domain.ResolvedEntity{Kind: domain.KindFamily, Name: "AP1", Members: []string{"FOS", "JUN"}},
		},
		{
			name: "several gene groundings are ambiguous",
			ref: domain.EntityRef{Name: "p53", Groundings: []domain.Grounding{
				{Namespace: "HGNC", ID: "11998", Name: "TP53"},
				{Namespace: "UP", ID: "P04637", Name: "TP53"},
				{Namespace: "HGNC", ID: "11999", Name: "TP53BP1"},
			}},
			want: domain.ResolvedEntity{Kind: domain.KindAmbiguous, Name: "p53", Candidates: []string{"TP53", "TP53BP1"}},
		},
		{
			name:    "empty reference",
			ref:     domain.EntityRef{Name: "  "},
			wantErr: domain.ReasonNoTFName,
		},
		{
			name: "groundings without a gene",
			ref: domain.EntityRef{Name: "aspirin", Groundings: []domain.Grounding{
				{Namespace: "CHEBI", ID: "15365"},
			}},
			wantErr: domain.ReasonNoTFName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveGene(ctx, tt.ref, domain.ReasonNoTFName)
			if tt.wantErr != "" {
				assert.True(t, domain.IsFailure(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_ExpansionErrorFallsBackToGene(t *testing.T) {
	r := newTestResolver(t, failingExpander{err: errors.New("hgnc down")})

	got, err := r.ResolveGene(context.Background(), domain.EntityRef{Name: "AKT"}, domain.ReasonNoGeneName)
	require.NoError(t, err)
	assert.Equal(t, domain.KindSingleGene, got.Kind)
	assert.Equal(t, "AKT", got.Symbol)
}

func TestResolver_ResolveMiRNA(t *testing.T) {
	r := newTestResolver(t, nil)
	ctx := context.Background()

	t.Run("species prefix added", func(t *testing.T) {
		got, err := r.ResolveMiRNA(ctx, "MIR20B-5P")
		require.NoError(t, err)
		assert.Equal(t, domain.KindMiRNA, got.Kind)
		assert.Equal(t, "hsa-miR-20b-5p", got.Symbol)
	})

	t.Run("let family", func(t *testing.T) {
		got, err := r.ResolveMiRNA(ctx, "let-7a-5p")
		require.NoError(t, err)
		assert.Equal(t, "hsa-let-7a-5p", got.Symbol)
	})

	t.Run("prefix variants offered", func(t *testing.T) {
		_, err := r.ResolveMiRNA(ctx, "miR-20")
		failure, ok := domain.AsFailure(err)
		require.True(t, ok)
		assert.Equal(t, domain.ReasonMiRNANotFound, failure.Reason)
		require.NotNil(t, failure.Clarification)
		assert.ElementsMatch(t, []string{"hsa-miR-20b-5p", "hsa-miR-20a-5p"}, failure.Clarification.As)
	})

	t.Run("nothing similar", func(t *testing.T) {
		_, err := r.ResolveMiRNA(ctx, "miR-999")
		failure, ok := domain.AsFailure(err)
		require.True(t, ok)
		assert.Equal(t, domain.ReasonNoSimilarMiRNA, failure.Reason)
		assert.Nil(t, failure.Clarification)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := r.ResolveMiRNA(ctx, "")
		assert.True(t, domain.IsFailure(err, domain.ReasonNoMiRNAName))
	})
}

type failingExpander struct{ err error }

func (f failingExpander) Expand(ctx context.Context, ref domain.EntityRef) ([]string, error) {
	return nil, f.err
}

// MockFamilyExpander is a testify mock of domain.FamilyExpander.
type MockFamilyExpander struct {
	mock.Mock
}

func (m *MockFamilyExpander) Expand(ctx context.Context, ref domain.EntityRef) ([]string, error) {
	args := m.Called(ctx, ref)
	members, _ := args.Get(0).([]string)
	return members, args.Error(1)
}

func TestCachingExpander(t *testing.T) {
	ctx := context.Background()
	next := new(MockFamilyExpander)
	next.On("Expand", mock.Anything, mock.Anything).Return([]string{"AKT1", "AKT2"}, nil)
	c := NewCachingExpander(next, 10, time.Hour)

	for i := 0; i < 3; i++ {
		members, err := c.Expand(ctx, domain.EntityRef{Name: "akt"})
		require.NoError(t, err)
		assert.Equal(t, []string{"AKT1", "AKT2"}, members)
	}
	next.AssertNumberOfCalls(t, "Expand", 1)
	assert.Equal(t, 1, c.Len())

	_, err := c.Expand(ctx, domain.EntityRef{Name: "AKT", Groundings: []domain.Grounding{{Namespace: "hgnc_group", ID: "1101"}}})
	require.NoError(t, err)
	next.AssertNumberOfCalls(t, "Expand", 2)

	c.Refresh()
	assert.Equal(t, 0, c.Len())
}

func TestCachingExpander_ErrorsNotCached(t *testing.T) {
	next := new(MockFamilyExpander)
	next.On("Expand", mock.Anything, domain.EntityRef{Name: "AKT"}).Return(nil, errors.New("timeout"))
	c := NewCachingExpander(next, 0, time.Hour)

	_, err := c.Expand(context.Background(), domain.EntityRef{Name: "AKT"})
	assert.Error(t, err)
	_, err = c.Expand(context.Background(), domain.EntityRef{Name: "AKT"})
	assert.Error(t, err)
	next.AssertNumberOfCalls(t, "Expand", 2)
	next.AssertExpectations(t)
	assert.Equal(t, 0, c.Len())
}

func TestSymbolIndex_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hgnc_symbols.tsv")
	require.NoError(t, os.WriteFile(path, []byte("symbol\thgnc_id\n# withdrawn symbols omitted\nSTAT3\tHGNC:11364\nFOS\t3796\nGENEQ\n"), 0644))

	idx := NewSymbolIndex(path, nil, 0, repotest.QuietLogger())
	ctx := context.Background()

	assert.True(t, idx.Known(ctx, "STAT3"))
	assert.True(t, idx.Known(ctx, "GENEQ"))
	assert.False(t, idx.Known(ctx, "symbol"))
	assert.False(t, idx.Known(ctx, "NOTAGENE"))

	id, ok := idx.HGNCID(ctx, "STAT3")
	assert.True(t, ok)
	assert.Equal(t, "11364", id)
	_, ok = idx.HGNCID(ctx, "GENEQ")
	assert.False(t, ok)

	symbols, err := idx.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"FOS", "GENEQ", "STAT3"}, symbols)
}
