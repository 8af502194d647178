package agent

import (
	"context"

	"github.com/tfta-mcp-server/internal/domain"
	"github.com/tfta-mcp-server/internal/service"
)

// ArgSpec documents one argument of an operation.
type ArgSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
}

// Operation is one question type the agent answers.
type Operation struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Args        []ArgSpec `json:"args"`
	handler     func(ctx context.Context, args Args) (result, error)
}

type result struct {
	values                map[string]interface{}
	literatureUnavailable bool
}

func single(key string, value interface{}) result {
	return result{values: map[string]interface{}{key: value}}
}

// Shared argument descriptions
var (
	argTissue     = ArgSpec{Name: "tissue", Description: "Restrict results to genes expressed in this tissue"}
	argOfThose    = ArgSpec{Name: "of-those", Description: "Candidate genes the answer is restricted to"}
	argKeyword    = ArgSpec{Name: "keyword", Description: "Regulation direction: increase, decrease, bind or regulate"}
	argLiterature = ArgSpec{Name: "literature", Description: "Literature use: db (default), literature or both"}
	argCount      = ArgSpec{Name: "count", Description: "Maximum number of ranked results"}
	argStrength   = ArgSpec{Name: "strength", Description: "miRNA-target evidence strength: strong or weak"}
	argDatabase   = ArgSpec{Name: "database", Description: "Pathway database, e.g. KEGG or Reactome"}
)

func required(name, description string) ArgSpec {
	return ArgSpec{Name: name, Description: description, Required: true}
}

// qualifiers reads the optional arguments shared by the question types.
func qualifiers(args Args) (service.Qualifiers, error) {
	ofThose, err := args.Names("of-those")
	if err != nil {
		return service.Qualifiers{}, err
	}
	return service.Qualifiers{
		Direction: domain.ParseDirection(args.String("keyword")),
		Tissue:    args.String("tissue"),
		OfThose:   ofThose,
		Strength:  domain.ParseStrength(args.String("strength")),
		Source:    service.ParseSource(args.String(args.First("literature", "source"))),
		Database:  args.String("database"),
		Limit:     args.Int("count"),
	}, nil
}

// entities reads the first present of keys as an entity list.
func entities(args Args, keys ...string) ([]domain.EntityRef, error) {
	return args.Entities(args.First(keys...))
}

func entity(args Args, keys ...string) (domain.EntityRef, error) {
	return args.Entity(args.First(keys...))
}

func listValue[T any](items []T) interface{} {
	if len(items) == 0 {
		return NIL
	}
	return items
}

func boolValue(b bool) string {
	if b {
		return True
	}
	return False
}

func setValue(answer service.SetAnswer) interface{} {
	if answer.Empty() {
		return NIL
	}
	if len(answer.Partitions) > 0 {
		return answer.Partitions
	}
	return answer.Items
}

func boolResult(answer service.BoolAnswer) result {
	r := result{
		values:                map[string]interface{}{"result": boolValue(answer.Result)},
		literatureUnavailable: answer.LiteratureUnavailable,
	}
	if len(answer.Sources) > 0 {
		r.values["sources"] = answer.Sources
	}
	if len(answer.Evidence) > 0 {
		r.values["evidence"] = answer.Evidence
	}
	return r
}

func setResult(key string, answer service.SetAnswer) result {
	r := single(key, setValue(answer))
	r.literatureUnavailable = answer.LiteratureUnavailable
	return r
}

func (a *Agent) operationTable() []Operation {
	e := a.engine
	return []Operation{
		{
			Name:        "IS-REGULATION",
			Description: "Does a transcription factor regulate a target gene?",
			Args:        []ArgSpec{required("tf", "Transcription factor"), required("target", "Target gene"), argTissue, argKeyword, argLiterature},
			handler: func(ctx context.Context, args Args) (result, error) {
				tf, err := entity(args, "tf", "regulator")
				if err != nil {
					return result{}, err
				}
				target, err := entity(args, "target")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				answer, err := e.IsRegulation(ctx, tf, target, q)
				if err != nil {
					return result{}, err
				}
				return boolResult(answer), nil
			},
		},
		{
			Name:        "FIND-TARGET",
			Description: "Targets regulated by all of the given transcription factors",
			Args:        []ArgSpec{required("tf", "Transcription factors"), argKeyword, argTissue, argOfThose, argLiterature},
			handler: func(ctx context.Context, args Args) (result, error) {
				tfs, err := entities(args, "tf", "regulator")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				answer, err := e.FindTargets(ctx, tfs, q)
				if err != nil {
					return result{}, err
				}
				return setResult("targets", answer), nil
			},
		},
		{
			Name:        "FIND-TF",
			Description: "Transcription factors regulating all of the given targets",
			Args:        []ArgSpec{required("target", "Target genes"), argKeyword, argTissue, argOfThose, argLiterature},
			handler: func(ctx context.Context, args Args) (result, error) {
				targets, err := entities(args, "target", "gene")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				answer, err := e.FindTFs(ctx, targets, q)
				if err != nil {
					return result{}, err
				}
				return setResult("tfs", answer), nil
			},
		},
		{
			Name:        "FIND-TARGET-COUNT",
			Description: "Targets ranked by how many of the given transcription factors regulate them",
			Args:        []ArgSpec{required("tf", "Transcription factors"), argCount, argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				tfs, err := entities(args, "tf", "regulator")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				ranked, err := e.FindTargetCount(ctx, tfs, q)
				if err != nil {
					return result{}, err
				}
				return single("targets", listValue(ranked)), nil
			},
		},
		{
			Name:        "FIND-TF-COUNT",
			Description: "Transcription factors ranked by how many of the given targets they regulate",
			Args:        []ArgSpec{required("target", "Target genes"), argCount, argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				targets, err := entities(args, "target", "gene")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				ranked, err := e.FindTFCount(ctx, targets, q)
				if err != nil {
					return result{}, err
				}
				return single("tfs", listValue(ranked)), nil
			},
		},
		{
			Name:        "FIND-REGULATION",
			Description: "All known regulators of a gene, partitioned by source",
			Args:        []ArgSpec{required("target", "Target gene"), argKeyword, argLiterature},
			handler: func(ctx context.Context, args Args) (result, error) {
				target, err := entity(args, "target", "gene")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				answer, err := e.FindRegulation(ctx, target, q)
				if err != nil {
					return result{}, err
				}
				r := single("regulators", answer.Partitions)
				r.literatureUnavailable = answer.LiteratureUnavailable
				return r, nil
			},
		},
		{
			Name:        "FIND-TF-PATHWAY",
			Description: "Pathways matching a keyword with the transcription factors they contain",
			Args:        []ArgSpec{required("pathway", "Pathway name keyword"), argDatabase, argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				pathways, err := e.FindTFPathway(ctx, args.String(args.First("pathway", "keyword")), q)
				if err != nil {
					return result{}, err
				}
				return single("pathways", listValue(pathways)), nil
			},
		},
		{
			Name:        "FIND-PATHWAY",
			Description: "Pathways containing all of the given genes",
			Args: []ArgSpec{
				required("gene", "Genes"),
				{Name: "keyword", Description: "Pathway name keyword"},
				argDatabase,
			},
			handler: func(ctx context.Context, args Args) (result, error) {
				genes, err := entities(args, "gene", "target", "regulator")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				q.Keyword = args.String("keyword")
				pathways, err := e.FindPathways(ctx, genes, q)
				if err != nil {
					return result{}, err
				}
				return single("pathways", listValue(pathways)), nil
			},
		},
		{
			Name:        "FIND-GENE-PATHWAY",
			Description: "Pathways matching a keyword with their member genes",
			Args:        []ArgSpec{required("pathway", "Pathway name keyword"), argDatabase, argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				pathways, err := e.FindGenePathway(ctx, args.String(args.First("pathway", "keyword")), q)
				if err != nil {
					return result{}, err
				}
				return single("pathways", listValue(pathways)), nil
			},
		},
		{
			Name:        "FIND-COMMON-PATHWAY-GENES",
			Description: "Pathways shared by at least half of the given genes",
			Args: []ArgSpec{
				required("gene", "Genes"),
				{Name: "keyword", Description: "Pathway name keyword"},
				argDatabase,
			},
			handler: func(ctx context.Context, args Args) (result, error) {
				genes, err := entities(args, "gene", "target")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				q.Keyword = args.String("keyword")
				pathways, err := e.FindCommonPathwayGenes(ctx, genes, q)
				if err != nil {
					return result{}, err
				}
				return single("pathways", listValue(pathways)), nil
			},
		},
		{
			Name:        "FIND-TARGET-MIRNA",
			Description: "Targets of all of the given miRNAs",
			Args:        []ArgSpec{required("mirna", "miRNAs"), argStrength, argKeyword, argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				mirnas, err := entities(args, "mirna", "regulator")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				targets, err := e.FindMiRNATargets(ctx, mirnas, q)
				if err != nil {
					return result{}, err
				}
				return single("targets", listValue(targets)), nil
			},
		},
		{
			Name:        "FIND-MIRNA",
			Description: "miRNAs targeting all of the given genes",
			Args:        []ArgSpec{required("target", "Target genes"), argStrength, argKeyword, argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				targets, err := entities(args, "target", "gene")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				mirnas, err := e.FindMiRNAs(ctx, targets, q)
				if err != nil {
					return result{}, err
				}
				return single("miRNAs", listValue(mirnas)), nil
			},
		},
		{
			Name:        "IS-MIRNA-TARGET",
			Description: "Does a miRNA target a gene?",
			Args:        []ArgSpec{required("mirna", "miRNA"), required("target", "Target gene"), argStrength},
			handler: func(ctx context.Context, args Args) (result, error) {
				mirna, err := entity(args, "mirna", "regulator")
				if err != nil {
					return result{}, err
				}
				target, err := entity(args, "target")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				answer, err := e.IsMiRNATarget(ctx, mirna, target, q)
				if err != nil {
					return result{}, err
				}
				return boolResult(answer), nil
			},
		},
		{
			Name:        "FIND-EVIDENCE-MIRNA-TARGET",
			Description: "Experimental evidence for a miRNA-target pair",
			Args:        []ArgSpec{required("mirna", "miRNA"), required("target", "Target gene"), argStrength},
			handler: func(ctx context.Context, args Args) (result, error) {
				mirna, err := entity(args, "mirna", "regulator")
				if err != nil {
					return result{}, err
				}
				target, err := entity(args, "target")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				evidence, err := e.MiRNATargetEvidence(ctx, mirna, target, q)
				if err != nil {
					return result{}, err
				}
				return single("evidence", listValue(evidence)), nil
			},
		},
		{
			Name:        "FIND-MIRNA-COUNT-GENE",
			Description: "miRNAs ranked by how many of the given genes they target",
			Args:        []ArgSpec{required("gene", "Genes"), argStrength, argCount, argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				genes, err := entities(args, "gene", "target")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				ranked, err := e.FindMiRNACountGene(ctx, genes, q)
				if err != nil {
					return result{}, err
				}
				return single("miRNAs", listValue(ranked)), nil
			},
		},
		{
			Name:        "FIND-GENE-COUNT-MIRNA",
			Description: "Genes ranked by how many of the given miRNAs target them",
			Args:        []ArgSpec{required("mirna", "miRNAs"), argStrength, argCount, argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				mirnas, err := entities(args, "mirna", "regulator")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				ranked, err := e.FindGeneCountMiRNA(ctx, mirnas, q)
				if err != nil {
					return result{}, err
				}
				return single("genes", listValue(ranked)), nil
			},
		},
		{
			Name:        "FIND-KINASE-REGULATION",
			Description: "Kinases acting on all of the given targets",
			Args:        []ArgSpec{required("target", "Target genes"), argKeyword, argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				targets, err := entities(args, "target", "gene")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				kinases, err := e.FindKinaseRegulation(ctx, targets, q)
				if err != nil {
					return result{}, err
				}
				return single("kinase", listValue(kinases)), nil
			},
		},
		{
			Name:        "FIND-KINASE-TARGET",
			Description: "Targets of all of the given kinases",
			Args:        []ArgSpec{required("kinase", "Kinases"), argKeyword, argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				kinases, err := entities(args, "kinase", "regulator")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				targets, err := e.FindKinaseTargets(ctx, kinases, q)
				if err != nil {
					return result{}, err
				}
				return single("targets", listValue(targets)), nil
			},
		},
		{
			Name:        "IS-GENE-TISSUE",
			Description: "Is a gene expressed in a tissue?",
			Args:        []ArgSpec{required("gene", "Gene"), required("tissue", "Tissue")},
			handler: func(ctx context.Context, args Args) (result, error) {
				gene, err := entity(args, "gene", "target")
				if err != nil {
					return result{}, err
				}
				answer, err := e.IsGeneTissue(ctx, gene, args.String("tissue"))
				if err != nil {
					return result{}, err
				}
				return boolResult(answer), nil
			},
		},
		{
			Name:        "FIND-GENE-TISSUE",
			Description: "Genes expressed in a tissue",
			Args:        []ArgSpec{required("tissue", "Tissue"), argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				genes, err := e.FindGeneTissue(ctx, args.String("tissue"), q)
				if err != nil {
					return result{}, err
				}
				return single("genes", listValue(genes)), nil
			},
		},
		{
			Name:        "FIND-TISSUE",
			Description: "Tissues a gene is expressed in",
			Args:        []ArgSpec{required("gene", "Gene")},
			handler: func(ctx context.Context, args Args) (result, error) {
				gene, err := entity(args, "gene", "target")
				if err != nil {
					return result{}, err
				}
				tissues, err := e.FindTissue(ctx, gene)
				if err != nil {
					return result{}, err
				}
				return single("tissue", listValue(tissues)), nil
			},
		},
		{
			Name:        "FIND-TISSUE-EXCLUSIVE-GENE",
			Description: "Genes expressed only in a tissue",
			Args:        []ArgSpec{required("tissue", "Tissue"), argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				genes, err := e.FindTissueExclusiveGenes(ctx, args.String("tissue"), q)
				if err != nil {
					return result{}, err
				}
				return single("genes", listValue(genes)), nil
			},
		},
		{
			Name:        "IS-GENE-ONTO",
			Description: "Is a gene annotated to a GO category?",
			Args:        []ArgSpec{required("gene", "Gene"), required("goterm", "GO category name or id")},
			handler: func(ctx context.Context, args Args) (result, error) {
				gene, err := entity(args, "gene", "target")
				if err != nil {
					return result{}, err
				}
				answer, err := e.IsGeneOnto(ctx, gene, args.String("goterm"))
				if err != nil {
					return result{}, err
				}
				return boolResult(answer), nil
			},
		},
		{
			Name:        "FIND-GENE-ONTO",
			Description: "Genes annotated to a GO category",
			Args:        []ArgSpec{required("goterm", "GO category name or id"), argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				genes, err := e.FindGeneOnto(ctx, args.String("goterm"), q)
				if err != nil {
					return result{}, err
				}
				return single("genes", listValue(genes)), nil
			},
		},
		{
			Name:        "FIND-GENE-GO-TISSUE",
			Description: "Genes of a GO category expressed in a tissue",
			Args:        []ArgSpec{required("goterm", "GO category name or id"), required("tissue", "Tissue"), argOfThose},
			handler: func(ctx context.Context, args Args) (result, error) {
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				genes, err := e.FindGeneGOTissue(ctx, args.String("goterm"), args.String("tissue"), q)
				if err != nil {
					return result{}, err
				}
				return single("genes", listValue(genes)), nil
			},
		},
		{
			Name:        "GO-ENRICHMENT",
			Description: "GO categories enriched in a gene list",
			Args:        []ArgSpec{required("gene", "Genes"), argCount},
			handler: func(ctx context.Context, args Args) (result, error) {
				genes, err := entities(args, "gene", "target")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				results, err := e.GOEnrichment(ctx, genes, q)
				if err != nil {
					return result{}, err
				}
				return single("results", listValue(results)), nil
			},
		},
		{
			Name:        "PATHWAY-ENRICHMENT",
			Description: "Pathways over-represented in a gene list",
			Args:        []ArgSpec{required("gene", "Genes"), argDatabase, argCount},
			handler: func(ctx context.Context, args Args) (result, error) {
				genes, err := entities(args, "gene", "target")
				if err != nil {
					return result{}, err
				}
				q, err := qualifiers(args)
				if err != nil {
					return result{}, err
				}
				results, err := e.PathwayEnrichment(ctx, genes, q)
				if err != nil {
					return result{}, err
				}
				return single("results", listValue(results)), nil
			},
		},
		a.perturbedGenes("FIND-GENE-DISEASE", "disease", domain.PerturbationDisease, "Genes perturbed in a disease"),
		a.perturbedGenes("FIND-GENE-LIGAND", "ligand", domain.PerturbationLigand, "Genes perturbed by a ligand"),
		a.perturbedGenes("FIND-GENE-DRUG", "drug", domain.PerturbationDrug, "Genes perturbed by a drug"),
		a.genePerturbations("FIND-DISEASE-GENE", domain.PerturbationDisease, "Diseases in which a gene is perturbed"),
		a.genePerturbations("FIND-LIGAND-GENE", domain.PerturbationLigand, "Ligands perturbing a gene"),
		a.genePerturbations("FIND-DRUG-GENE", domain.PerturbationDrug, "Drugs perturbing a gene"),
		{
			Name:        "IS-MIRNA-DISEASE",
			Description: "Is a miRNA associated with a disease?",
			Args:        []ArgSpec{required("mirna", "miRNA"), required("disease", "Disease name")},
			handler: func(ctx context.Context, args Args) (result, error) {
				mirna, err := entity(args, "mirna", "regulator")
				if err != nil {
					return result{}, err
				}
				answer, err := e.IsMiRNADisease(ctx, mirna, args.String("disease"))
				if err != nil {
					return result{}, err
				}
				return boolResult(answer), nil
			},
		},
		{
			Name:        "FIND-DISEASE-MIRNA",
			Description: "Diseases associated with a miRNA",
			Args:        []ArgSpec{required("mirna", "miRNA")},
			handler: func(ctx context.Context, args Args) (result, error) {
				mirna, err := entity(args, "mirna", "regulator")
				if err != nil {
					return result{}, err
				}
				diseases, err := e.FindDiseaseMiRNA(ctx, mirna)
				if err != nil {
					return result{}, err
				}
				return single("results", listValue(diseases)), nil
			},
		},
	}
}

func (a *Agent) perturbedGenes(name, key string, kind domain.PerturbationKind, description string) Operation {
	return Operation{
		Name:        name,
		Description: description,
		Args:        []ArgSpec{required(key, "Name or name keyword"), argKeyword, argOfThose},
		handler: func(ctx context.Context, args Args) (result, error) {
			q, err := qualifiers(args)
			if err != nil {
				return result{}, err
			}
			genes, err := a.engine.FindPerturbedGenes(ctx, kind, args.String(key), q)
			if err != nil {
				return result{}, err
			}
			return single("genes", listValue(genes)), nil
		},
	}
}

func (a *Agent) genePerturbations(name string, kind domain.PerturbationKind, description string) Operation {
	return Operation{
		Name:        name,
		Description: description,
		Args:        []ArgSpec{required("gene", "Gene")},
		handler: func(ctx context.Context, args Args) (result, error) {
			gene, err := entity(args, "gene", "target")
			if err != nil {
				return result{}, err
			}
			rows, err := a.engine.FindGenePerturbations(ctx, kind, gene)
			if err != nil {
				return result{}, err
			}
			return single("results", listValue(rows)), nil
		},
	}
}
