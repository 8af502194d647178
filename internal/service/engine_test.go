package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfta-mcp-server/internal/domain"
	"github.com/tfta-mcp-server/internal/repository/repotest"
)

// fakeLiterature serves a fixed statement list, matching on agents only.
type fakeLiterature struct {
	mu         sync.Mutex
	statements []domain.Statement
	down       bool
	queries    []domain.StatementQuery
}

func (f *fakeLiterature) Fetch(ctx context.Context, q domain.StatementQuery) ([]domain.Statement, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.down {
		return nil, false
	}
	var out []domain.Statement
	for _, s := range f.statements {
		if (q.Subject == "" || s.Subject == q.Subject) && (q.Object == "" || s.Object == q.Object) {
			out = append(out, s)
		}
	}
	return out, true
}

func seedLookup(f *repotest.Fixture) {
	f.Regulation("STAT3", "ENCODE,TRRUST", "FOS", "JUN", "MYC").
		Regulation("JUN", "TRRUST", "FOS", "MYC").
		Regulation("STAT5A", "ENCODE", "BCL2").
		MiRNA("hsa-miR-20b-5p", "Functional MTI", "STAT3", "MYC").
		MiRNA("hsa-miR-20a-5p", "Functional MTI (Weak)", "MYC").
		MiRNA("hsa-miR-21-5p", "Functional MTI", "FOS").
		Pathway(1, "JAK-STAT signaling pathway", "KEGG", "STAT3", "STAT5A", "JUN", "MYC").
		Pathway(2, "MAPK signaling pathway", "KEGG", "FOS", "JUN", "MYC").
		Pathway(3, "Apoptosis", "Reactome", "BCL2", "MYC").
		Tissue("FOS", "Liver - Adult", 2.0).
		Tissue("JUN", "Liver - Adult", 1.5).
		Tissue("MYC", "Liver - Adult", 1.6).
		Tissue("MYC", "Brain", 3.0).
		Tissue("BCL2", "Brain", 2.5).
		Tissue("GENEY", "Kidney", 1.0).
		Tissue("GENEZ", "Kidney", 0.5).
		GO(1, "GO:0006955", "immune response", "biological_process", "STAT3", "STAT5A", "JUN").
		GO(2, "GO:0008283", "cell population proliferation", "biological_process", "MYC", "FOS").
		Kinase("MAPK1", "increase", "FOS").
		Kinase("MAPK1", "decrease", "MYC").
		Kinase("AKT1", "bind", "MYC")
}

func seedPerturbation(f *repotest.Fixture) {
	f.Exec(`INSERT INTO diseaseName (diseaseId, name) VALUES (1, 'pancreatic adenocarcinoma')`).
		Exec(`INSERT INTO diseaseGene (diseaseId, geneSymbol, direction) VALUES (1, 'KRAS', 'increase'), (1, 'TP53', 'decrease')`).
		Exec(`INSERT INTO drugName (drugId, name) VALUES (1, 'erlotinib')`).
		Exec(`INSERT INTO drugGene (drugId, geneSymbol, direction) VALUES (1, 'EGFR', 'decrease')`).
		Exec(`INSERT INTO mirnaDisease (mirna, disease, pmid) VALUES
			('hsa-miR-21-5p', 'pancreatic cancer', '111'), ('hsa-miR-21-5p', 'pancreatic cancer', '112'), ('hsa-miR-21-5p', 'glioma', '222'),
			('hsa-miR-155-5p', 'asthma', '333')`)
}

func testConfig(t *testing.T) domain.Config {
	return domain.Config{
		Cache: domain.CacheConfig{DataDir: t.TempDir()},
		Enrichment: domain.EnrichmentConfig{
			Correction: "bonferroni",
			Limit:      30,
			Alpha:      0.01,
		},
	}
}

func newTestEngine(t *testing.T, literature domain.LiteratureSource) *Engine {
	t.Helper()
	logger := repotest.QuietLogger()
	lookup := repotest.New(t, repotest.LookupSchema)
	seedLookup(lookup)
	perturbation := repotest.New(t, repotest.PerturbationSchema)
	seedPerturbation(perturbation)

	deps := Dependencies{
		Store:        lookup.LookupStore(logger),
		Perturbation: perturbation.PerturbationStore(logger),
		Expander:     StaticExpander{"STAT": {"STAT3", "STAT5A"}},
		Literature:   literature,
		Logger:       logger,
	}
	e, err := NewEngine(deps, testConfig(t))
	require.NoError(t, err)
	return e
}

func refs(names ...string) []domain.EntityRef {
	out := make([]domain.EntityRef, len(names))
	for i, n := range names {
		out[i] = domain.EntityRef{Name: n}
	}
	return out
}

func requireFailure(t *testing.T, err error, reason domain.Reason) *domain.Failure {
	t.Helper()
	failure, ok := domain.AsFailure(err)
	require.True(t, ok, "expected %s failure, got %v", reason, err)
	require.Equal(t, reason, failure.Reason)
	return failure
}

func TestNewEngine_InvalidCorrection(t *testing.T) {
	_, err := NewEngine(Dependencies{Logger: repotest.QuietLogger()}, domain.Config{
		Enrichment: domain.EnrichmentConfig{Correction: "sidak"},
	})
	assert.Error(t, err)
}

func TestEngine_UnavailableStoreAnswersEmpty(t *testing.T) {
	e, err := NewEngine(Dependencies{Logger: repotest.QuietLogger()}, testConfig(t))
	require.NoError(t, err)
	assert.False(t, e.StoreAvailable())

	_, err = e.FindTargets(context.Background(), refs("STAT3"), Qualifiers{})
	requireFailure(t, err, domain.ReasonTFNotFound)
}

func TestEngine_FindTargets(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	answer, err := e.FindTargets(ctx, refs("STAT3"), Qualifiers{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"FOS", "JUN", "MYC"}, answer.Items)
	assert.Nil(t, answer.Partitions)

	joint, err := e.FindTargets(ctx, refs("STAT3", "JUN"), Qualifiers{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"FOS", "MYC"}, joint.Items)

	restricted, err := e.FindTargets(ctx, refs("STAT3"), Qualifiers{OfThose: []string{"myc", "BCL2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"MYC"}, restricted.Items)

	_, err = e.FindTargets(ctx, nil, Qualifiers{})
	requireFailure(t, err, domain.ReasonNoTFName)
}

func TestEngine_FindTFs_FirstEmptyTargetFails(t *testing.T) {
	e := newTestEngine(t, nil)

	_, err := e.FindTFs(context.Background(), refs("FOS", "GENEY", "GENEZ"), Qualifiers{})
	failure := requireFailure(t, err, domain.ReasonTargetNotFound)
	assert.Equal(t, "GENEY", failure.Entity)
}

func TestEngine_FindTFs_Commutative(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	ab, err := e.FindTFs(ctx, refs("FOS", "MYC"), Qualifiers{})
	require.NoError(t, err)
	ba, err := e.FindTFs(ctx, refs("MYC", "FOS"), Qualifiers{})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"STAT3", "JUN"}, ab.Items)
	assert.ElementsMatch(t, ab.Items, ba.Items)
}

func TestEngine_FindTFs_UnknownSymbols(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	dropped, err := e.FindTFs(ctx, refs("FOS", "NOTAGENE"), Qualifiers{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"STAT3", "JUN"}, dropped.Items)

	_, err = e.FindTFs(ctx, refs("NOTAGENE"), Qualifiers{})
	failure := requireFailure(t, err, domain.ReasonTargetNotFound)
	assert.Equal(t, "NOTAGENE", failure.Entity)
}

func TestEngine_FamilyPolicies(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	member, err := e.FindTargets(ctx, refs("STAT5A"), Qualifiers{})
	require.NoError(t, err)
	fam, err := e.FindTargets(ctx, refs("STAT"), Qualifiers{})
	require.NoError(t, err)
	assert.Subset(t, fam.Items, member.Items)
	assert.ElementsMatch(t, []string{"FOS", "JUN", "MYC", "BCL2"}, fam.Items)

	_, err = e.FindTargets(ctx, refs("STAT"), Qualifiers{Families: FamilyReject})
	requireFailure(t, err, domain.ReasonFamilyNameNotAllowed)

	_, err = e.IsRegulation(ctx, domain.EntityRef{Name: "STAT"}, domain.EntityRef{Name: "FOS"}, Qualifiers{})
	failure := requireFailure(t, err, domain.ReasonFamilyName)
	require.NotNil(t, failure.Clarification)
	assert.Equal(t, []string{"STAT3", "STAT5A"}, failure.Clarification.As)
}

func TestEngine_AmbiguousReferenceClarifies(t *testing.T) {
	e := newTestEngine(t, nil)

	ref := domain.EntityRef{Name: "p53", Groundings: []domain.Grounding{
		{Namespace: "HGNC", ID: "11998", Name: "TP53"},
		{Namespace: "HGNC", ID: "11999", Name: "TP53BP1"},
	}}
	_, err := e.FindTFs(context.Background(), []domain.EntityRef{ref}, Qualifiers{})
	failure := requireFailure(t, err, domain.ReasonNoTargetName)
	require.NotNil(t, failure.Clarification)
	assert.Equal(t, []string{"TP53", "TP53BP1"}, failure.Clarification.As)
}

func TestEngine_TissueQualifier(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	liver, err := e.FindTargets(ctx, refs("STAT3"), Qualifiers{Tissue: "liver"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"FOS", "MYC"}, liver.Items)

	_, err = e.FindTargets(ctx, refs("STAT3"), Qualifiers{Tissue: "zzz-no-such-tissue"})
	requireFailure(t, err, domain.ReasonInvalidTissue)

	_, err = e.FindTargets(ctx, refs("STAT3"), Qualifiers{Tissue: "livr - adult"})
	failure := requireFailure(t, err, domain.ReasonInvalidTissue)
	require.NotNil(t, failure.Clarification)
	assert.Contains(t, failure.Clarification.As, "Liver - Adult")
}

func TestEngine_IsRegulation(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	yes, err := e.IsRegulation(ctx, domain.EntityRef{Name: "STAT3"}, domain.EntityRef{Name: "FOS"}, Qualifiers{})
	require.NoError(t, err)
	assert.True(t, yes.Result)
	assert.ElementsMatch(t, []string{"ENCODE", "TRRUST"}, yes.Sources)

	no, err := e.IsRegulation(ctx, domain.EntityRef{Name: "STAT5A"}, domain.EntityRef{Name: "FOS"}, Qualifiers{})
	require.NoError(t, err)
	assert.False(t, no.Result)

	_, err = e.IsRegulation(ctx, domain.EntityRef{Name: "FOS"}, domain.EntityRef{Name: "JUN"}, Qualifiers{})
	requireFailure(t, err, domain.ReasonTFNotFound)

	notExpressed, err := e.IsRegulation(ctx, domain.EntityRef{Name: "STAT3"}, domain.EntityRef{Name: "JUN"}, Qualifiers{Tissue: "liver"})
	require.NoError(t, err)
	assert.False(t, notExpressed.Result)
}

func TestEngine_IsRegulation_Literature(t *testing.T) {
	lit := &fakeLiterature{statements: []domain.Statement{
		{Hash: "-101", Type: "IncreaseAmount", Subject: "STAT5A", Object: "FOS"},
	}}
	e := newTestEngine(t, lit)

	answer, err := e.IsRegulation(context.Background(), domain.EntityRef{Name: "STAT5A"}, domain.EntityRef{Name: "FOS"}, Qualifiers{Source: SourceBoth})
	require.NoError(t, err)
	assert.True(t, answer.Result)
	assert.Equal(t, []domain.Partition{
		{Source: "db", Items: nil},
		{Source: "literature", Items: []string{"-101"}},
	}, answer.Evidence)
	assert.Equal(t, []string{"literature"}, answer.Sources)
}

func TestEngine_FindTargets_LiteraturePartitions(t *testing.T) {
	lit := &fakeLiterature{statements: []domain.Statement{
		{Hash: "1", Type: "IncreaseAmount", Subject: "STAT3", Object: "MYC"},
		{Hash: "2", Type: "IncreaseAmount", Subject: "STAT3", Object: "SOCS3"},
		{Hash: "3", Type: "DecreaseAmount", Subject: "JUN", Object: "SOCS3"},
	}}
	e := newTestEngine(t, lit)
	ctx := context.Background()

	answer, err := e.FindTargets(ctx, refs("STAT3"), Qualifiers{Source: SourceBoth})
	require.NoError(t, err)
	require.Len(t, answer.Partitions, 2)
	assert.Equal(t, "target-db", answer.Partitions[0].Source)
	assert.ElementsMatch(t, []string{"FOS", "JUN", "MYC"}, answer.Partitions[0].Items)
	assert.Equal(t, domain.Partition{Source: "target-literature", Items: []string{"MYC", "SOCS3"}}, answer.Partitions[1])
	assert.False(t, answer.LiteratureUnavailable)

	tfs, err := e.FindTFs(ctx, refs("SOCS3"), Qualifiers{Source: SourceBoth})
	require.NoError(t, err, "literature hits suppress the database miss")
	assert.Empty(t, tfs.Partitions[0].Items)
	assert.Equal(t, domain.Partition{Source: "tf-literature", Items: []string{"STAT3", "JUN"}}, tfs.Partitions[1])

	only, err := e.FindTFs(ctx, refs("SOCS3"), Qualifiers{Source: SourceLiterature})
	require.NoError(t, err)
	assert.Equal(t, []string{"STAT3", "JUN"}, only.Items)
	assert.Len(t, only.Partitions, 1)
}

func TestEngine_LiteratureUnavailable(t *testing.T) {
	e := newTestEngine(t, &fakeLiterature{down: true})
	ctx := context.Background()

	answer, err := e.FindTargets(ctx, refs("STAT3"), Qualifiers{Source: SourceBoth})
	require.NoError(t, err)
	assert.True(t, answer.LiteratureUnavailable)
	assert.ElementsMatch(t, []string{"FOS", "JUN", "MYC"}, answer.Partitions[0].Items)
	assert.Empty(t, answer.Partitions[1].Items)

	_, err = e.FindTFs(ctx, refs("SOCS3"), Qualifiers{Source: SourceBoth})
	requireFailure(t, err, domain.ReasonTargetNotFound)

	disabled := newTestEngine(t, nil)
	answer, err = disabled.FindTargets(ctx, refs("STAT3"), Qualifiers{Source: SourceLiterature})
	require.NoError(t, err)
	assert.True(t, answer.LiteratureUnavailable)
	assert.Empty(t, answer.Items)
}

func TestEngine_FindRegulation(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	answer, err := e.FindRegulation(ctx, domain.EntityRef{Name: "FOS"}, Qualifiers{})
	require.NoError(t, err)
	require.Len(t, answer.Partitions, 3)
	assert.Equal(t, "tf-db", answer.Partitions[0].Source)
	assert.ElementsMatch(t, []string{"STAT3", "JUN"}, answer.Partitions[0].Items)
	assert.Equal(t, domain.Partition{Source: "kinase-db", Items: []string{"MAPK1"}}, answer.Partitions[1])
	assert.Equal(t, domain.Partition{Source: "mirna-db", Items: []string{"hsa-miR-21-5p"}}, answer.Partitions[2])

	_, err = e.FindRegulation(ctx, domain.EntityRef{Name: "GENEY"}, Qualifiers{})
	requireFailure(t, err, domain.ReasonTargetNotFound)
}

func TestEngine_Kinases(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	kinases, err := e.FindKinaseRegulation(ctx, refs("MYC"), Qualifiers{})
	require.NoError(t, err)
	assert.Equal(t, []string{"MAPK1"}, kinases)

	binders, err := e.FindKinaseRegulation(ctx, refs("MYC"), Qualifiers{Direction: domain.DirectionBind})
	require.NoError(t, err)
	assert.Equal(t, []string{"AKT1"}, binders)

	targets, err := e.FindKinaseTargets(ctx, refs("MAPK1"), Qualifiers{Direction: domain.DirectionIncrease})
	require.NoError(t, err)
	assert.Equal(t, []string{"FOS"}, targets)

	_, err = e.FindKinaseTargets(ctx, refs("AKT1"), Qualifiers{})
	requireFailure(t, err, domain.ReasonKinaseNotFound)
}

func TestEngine_Counts(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	targets, err := e.FindTargetCount(ctx, refs("STAT3", "JUN"), Qualifiers{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.RankedItem{{Name: "FOS", Count: 2}, {Name: "MYC", Count: 2}}, targets)

	tfs, err := e.FindTFCount(ctx, refs("FOS", "MYC", "BCL2"), Qualifiers{OfThose: []string{"JUN"}})
	require.NoError(t, err)
	assert.Equal(t, []domain.RankedItem{{Name: "JUN", Count: 2}}, tfs)

	_, err = e.FindTFCount(ctx, refs("GENEY", "GENEZ"), Qualifiers{})
	failure := requireFailure(t, err, domain.ReasonTargetNotFound)
	assert.Equal(t, "GENEY", failure.Entity)
}

func TestEngine_MiRNA(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	targets, err := e.FindMiRNATargets(ctx, refs("miR-20b-5p"), Qualifiers{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"STAT3", "MYC"}, targets)

	mirnas, err := e.FindMiRNAs(ctx, refs("MYC"), Qualifiers{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hsa-miR-20b-5p", "hsa-miR-20a-5p"}, mirnas)

	weak, err := e.FindMiRNAs(ctx, refs("MYC"), Qualifiers{Strength: domain.StrengthWeak})
	require.NoError(t, err)
	assert.Equal(t, []string{"hsa-miR-20a-5p"}, weak)

	increase, err := e.FindMiRNAs(ctx, refs("MYC"), Qualifiers{Direction: domain.DirectionIncrease})
	require.NoError(t, err)
	assert.Empty(t, increase)

	_, err = e.FindMiRNATargets(ctx, refs("miR-20"), Qualifiers{})
	requireFailure(t, err, domain.ReasonMiRNANotFound)

	strong, err := e.IsMiRNATarget(ctx, domain.EntityRef{Name: "miR-20a-5p"}, domain.EntityRef{Name: "MYC"}, Qualifiers{Strength: domain.StrengthStrong})
	require.NoError(t, err)
	assert.False(t, strong.Result)

	unfiltered, err := e.IsMiRNATarget(ctx, domain.EntityRef{Name: "miR-20a-5p"}, domain.EntityRef{Name: "MYC"}, Qualifiers{})
	require.NoError(t, err)
	assert.True(t, unfiltered.Result)

	evidence, err := e.MiRNATargetEvidence(ctx, domain.EntityRef{Name: "hsa-miR-20b-5p"}, domain.EntityRef{Name: "STAT3"}, Qualifiers{})
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, "Functional MTI", evidence[0].SupportType)

	genes, err := e.FindGeneCountMiRNA(ctx, refs("miR-20b-5p", "miR-20a-5p"), Qualifiers{})
	require.NoError(t, err)
	assert.Equal(t, []domain.RankedItem{{Name: "MYC", Count: 2}}, genes)

	ranked, err := e.FindMiRNACountGene(ctx, refs("STAT3", "MYC"), Qualifiers{})
	require.NoError(t, err)
	assert.Equal(t, []domain.RankedItem{{Name: "hsa-miR-20b-5p", Count: 2}}, ranked)
}

func TestEngine_JoinKeepsGenesOutsideRegulationTables(t *testing.T) {
	logger := repotest.QuietLogger()
	f := repotest.New(t, repotest.LookupSchema).
		Regulation("STAT3", "TRRUST", "MYC").
		MiRNA("hsa-miR-20b-5p", "Functional MTI", "MYC").
		MiRNA("hsa-miR-21-5p", "Functional MTI", "GENEQ").
		Kinase("MAPK1", "increase", "MYC").
		Kinase("PRKCA", "increase", "GENEK")
	e, err := NewEngine(Dependencies{Store: f.LookupStore(logger), Logger: logger}, testConfig(t))
	require.NoError(t, err)
	ctx := context.Background()

	only, err := e.FindMiRNAs(ctx, refs("GENEQ"), Qualifiers{})
	require.NoError(t, err)
	assert.Equal(t, []string{"hsa-miR-21-5p"}, only)

	mirnas, err := e.FindMiRNAs(ctx, refs("GENEQ", "MYC"), Qualifiers{})
	require.NoError(t, err)
	assert.Empty(t, mirnas)

	kinases, err := e.FindKinaseRegulation(ctx, refs("GENEK", "MYC"), Qualifiers{})
	require.NoError(t, err)
	assert.Empty(t, kinases)

	dropped, err := e.FindMiRNAs(ctx, refs("NOTAGENE", "MYC"), Qualifiers{})
	require.NoError(t, err)
	assert.Equal(t, []string{"hsa-miR-20b-5p"}, dropped)
}

func TestEngine_Pathways(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	shared, err := e.FindPathways(ctx, refs("JUN", "MYC"), Qualifiers{})
	require.NoError(t, err)
	var names []string
	for _, p := range shared {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"JAK-STAT signaling pathway", "MAPK signaling pathway"}, names)

	_, err = e.FindPathways(ctx, refs("JUN", "MYC"), Qualifiers{Database: "reactome"})
	failure := requireFailure(t, err, domain.ReasonPathwayNotFound)
	assert.Equal(t, "JUN", failure.Entity)

	genePathways, err := e.FindGenePathway(ctx, "apoptosis", Qualifiers{OfThose: []string{"bcl2"}})
	require.NoError(t, err)
	require.Len(t, genePathways, 1)
	assert.Equal(t, []string{"BCL2"}, genePathways[0].Genes)

	tfPathways, err := e.FindTFPathway(ctx, "signaling", Qualifiers{})
	require.NoError(t, err)
	require.Len(t, tfPathways, 2)
	for _, p := range tfPathways {
		switch p.ID {
		case 1:
			assert.ElementsMatch(t, []string{"STAT3", "STAT5A", "JUN"}, p.Genes)
		case 2:
			assert.Equal(t, []string{"JUN"}, p.Genes)
		}
	}

	_, err = e.FindGenePathway(ctx, " ", Qualifiers{})
	requireFailure(t, err, domain.ReasonNoPathwayName)
	_, err = e.FindTFPathway(ctx, "glycolysis", Qualifiers{})
	requireFailure(t, err, domain.ReasonPathwayNotFound)
}

func TestEngine_FindCommonPathwayGenes(t *testing.T) {
	e := newTestEngine(t, nil)

	common, err := e.FindCommonPathwayGenes(context.Background(), refs("FOS", "JUN", "MYC", "BCL2"), Qualifiers{})
	require.NoError(t, err)
	require.Len(t, common, 3)
	assert.Equal(t, 2, common[0].ID)
	assert.Equal(t, []string{"FOS", "JUN", "MYC"}, common[0].Genes)
	assert.ElementsMatch(t, []int{1, 3}, []int{common[1].ID, common[2].ID})

	_, err = e.FindCommonPathwayGenes(context.Background(), refs("FOS", "BCL2"), Qualifiers{})
	requireFailure(t, err, domain.ReasonPathwayNotFound)
}

func TestEngine_Tissues(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	tissues, err := e.FindTissue(ctx, domain.EntityRef{Name: "MYC"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Liver - Adult", "Brain"}, tissues)

	_, err = e.FindTissue(ctx, domain.EntityRef{Name: "GENEZ"})
	requireFailure(t, err, domain.ReasonTissueNotFound)

	expressed, err := e.IsGeneTissue(ctx, domain.EntityRef{Name: "FOS"}, "liver")
	require.NoError(t, err)
	assert.True(t, expressed.Result)

	absent, err := e.IsGeneTissue(ctx, domain.EntityRef{Name: "BCL2"}, "liver")
	require.NoError(t, err)
	assert.False(t, absent.Result)

	brain, err := e.FindGeneTissue(ctx, "brain", Qualifiers{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"MYC", "BCL2"}, brain)

	_, err = e.FindGeneTissue(ctx, "", Qualifiers{})
	requireFailure(t, err, domain.ReasonNoTissueName)
}

func TestEngine_TissueExclusiveGenes(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	liver, err := e.FindTissueExclusiveGenes(ctx, "liver", Qualifiers{})
	require.NoError(t, err)
	assert.Equal(t, []string{"FOS"}, liver)

	brain, err := e.FindTissueExclusiveGenes(ctx, "BRAIN", Qualifiers{})
	require.NoError(t, err)
	assert.Equal(t, []string{"BCL2"}, brain)

	kidney, err := e.FindTissueExclusiveGenes(ctx, "kidney", Qualifiers{})
	require.NoError(t, err)
	assert.Empty(t, kidney)

	before, err := e.exclusivity.Get(ctx)
	require.NoError(t, err)
	e.Refresh()
	after, err := e.exclusivity.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBuildExclusivity(t *testing.T) {
	expressed := map[string][]string{
		"Liver": {"FOS", "MYC", "ALB", "ALB"},
		"Brain": {"MYC", "GFAP"},
		"Heart": {"MYC"},
	}

	index := BuildExclusivity(expressed)
	assert.Equal(t, map[string][]string{
		"Liver": {"ALB", "FOS"},
		"Brain": {"GFAP"},
	}, index)
	assert.Equal(t, index, BuildExclusivity(expressed))
}

func TestEngine_GeneOntology(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	yes, err := e.IsGeneOnto(ctx, domain.EntityRef{Name: "STAT3"}, "immune")
	require.NoError(t, err)
	assert.True(t, yes.Result)

	no, err := e.IsGeneOnto(ctx, domain.EntityRef{Name: "MYC"}, "immune")
	require.NoError(t, err)
	assert.False(t, no.Result)

	byID, err := e.FindGeneOnto(ctx, "go:0008283", Qualifiers{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"MYC", "FOS"}, byID)

	inLiver, err := e.FindGeneGOTissue(ctx, "proliferation", "liver", Qualifiers{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"MYC", "FOS"}, inLiver)

	_, err = e.FindGeneOnto(ctx, "photosynthesis", Qualifiers{})
	requireFailure(t, err, domain.ReasonGONotFound)
	_, err = e.FindGeneOnto(ctx, "", Qualifiers{})
	requireFailure(t, err, domain.ReasonNoGOName)
}

func TestEngine_Perturbations(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	genes, err := e.FindPerturbedGenes(ctx, domain.PerturbationDisease, "pancreatic", Qualifiers{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"KRAS", "TP53"}, genes)

	up, err := e.FindPerturbedGenes(ctx, domain.PerturbationDisease, "pancreatic", Qualifiers{Direction: domain.DirectionIncrease})
	require.NoError(t, err)
	assert.Equal(t, []string{"KRAS"}, up)

	_, err = e.FindPerturbedGenes(ctx, domain.PerturbationDisease, "scurvy", Qualifiers{})
	requireFailure(t, err, domain.ReasonDiseaseNotFound)
	_, err = e.FindPerturbedGenes(ctx, domain.PerturbationLigand, "", Qualifiers{})
	requireFailure(t, err, domain.ReasonNoLigandName)

	drugs, err := e.FindGenePerturbations(ctx, domain.PerturbationDrug, domain.EntityRef{Name: "egfr"})
	require.NoError(t, err)
	require.Len(t, drugs, 1)
	assert.Equal(t, "erlotinib", drugs[0].Name)

	_, err = e.FindGenePerturbations(ctx, domain.PerturbationDrug, domain.EntityRef{Name: "KRAS"})
	requireFailure(t, err, domain.ReasonDrugNotFound)
}

func TestEngine_MiRNADisease(t *testing.T) {
	e := newTestEngine(t, nil)
	ctx := context.Background()

	answer, err := e.IsMiRNADisease(ctx, domain.EntityRef{Name: "miR-21-5p"}, "pancreatic")
	require.NoError(t, err)
	assert.True(t, answer.Result)
	assert.ElementsMatch(t, []string{"111", "112"}, answer.Sources)

	no, err := e.IsMiRNADisease(ctx, domain.EntityRef{Name: "miR-21-5p"}, "melanoma")
	require.NoError(t, err)
	assert.False(t, no.Result)

	diseases, err := e.FindDiseaseMiRNA(ctx, domain.EntityRef{Name: "hsa-miR-21-5p"})
	require.NoError(t, err)
	assert.Len(t, diseases, 3)

	_, err = e.FindDiseaseMiRNA(ctx, domain.EntityRef{Name: "miR-20b-5p"})
	requireFailure(t, err, domain.ReasonDiseaseNotFound)
	// listed only in the association table
	only, err := e.FindDiseaseMiRNA(ctx, domain.EntityRef{Name: "MIR155-5P"})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "asthma", only[0].Disease)

	asthma, err := e.IsMiRNADisease(ctx, domain.EntityRef{Name: "hsa-miR-155-5p"}, "asthma")
	require.NoError(t, err)
	assert.True(t, asthma.Result)

	_, err = e.IsMiRNADisease(ctx, domain.EntityRef{Name: "miR-9999"}, "asthma")
	requireFailure(t, err, domain.ReasonNoSimilarMiRNA)
}

func newEnrichmentEngine(t *testing.T) *Engine {
	t.Helper()
	logger := repotest.QuietLogger()
	f := repotest.New(t, repotest.LookupSchema)

	big := make([]string, 20)
	for i := range big {
		big[i] = fmt.Sprintf("G%d", i)
	}
	other := make([]string, 40)
	for i := range other {
		other[i] = fmt.Sprintf("G%d", 100+i)
	}
	f.Pathway(10, "Big pathway", "KEGG", big...).
		Pathway(11, "Other pathway", "KEGG", other...).
		GO(1, "GO:0000001", "big process", "biological_process", big...).
		GO(2, "GO:0000002", "other process", "biological_process", other...)
	for i := 0; i < 300; i++ {
		f.Tissue(fmt.Sprintf("G%d", i), "Liver", 2.0)
	}

	e, err := NewEngine(Dependencies{Store: f.LookupStore(logger), Logger: logger}, testConfig(t))
	require.NoError(t, err)
	return e
}

func TestEngine_PathwayEnrichment(t *testing.T) {
	e := newEnrichmentEngine(t)
	ctx := context.Background()
	study := refs("G0", "G1", "G2", "G3", "G4", "G5", "G6", "G7", "G8", "G9")

	results, err := e.PathwayEnrichment(ctx, study, Qualifiers{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "10", results[0].TermID)
	assert.Equal(t, 10, results[0].StudyCount)
	assert.Equal(t, 300, results[0].PopSize)
	assert.LessOrEqual(t, results[0].PCorrected, 0.01)

	_, err = e.PathwayEnrichment(ctx, study, Qualifiers{Database: "wikipathways"})
	requireFailure(t, err, domain.ReasonPathwayNotFound)
}

func TestEngine_GOEnrichment(t *testing.T) {
	e := newEnrichmentEngine(t)
	study := refs("G0", "G1", "G2", "G3", "G4", "G5", "G6", "G7", "G8", "G9")

	results, err := e.GOEnrichment(context.Background(), study, Qualifiers{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "GO:0000001", results[0].TermID)
	assert.True(t, results[0].Enriched)
	assert.Equal(t, "big process", results[0].TermName)
	for _, r := range results {
		assert.LessOrEqual(t, r.PCorrected, 0.01)
	}
}
