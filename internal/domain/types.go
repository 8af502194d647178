// Package domain contains the core entities of the TFTA question-answering
// agent: resolved entity references, regulation edges between transcription
// factors, miRNAs, kinases and their targets, pathway and tissue records, and
// enrichment results.
//
// All values are read-only views over the lookup stores or over the request
// being served; none of them outlives the request except the process-wide
// caches owned by the service layer.
package domain

import "strings"

// ExpressionThreshold is the tissue enrichment score a gene must strictly
// exceed to count as expressed in that tissue.
const ExpressionThreshold = 1.5

// IsExpressed reports whether an enrichment score passes ExpressionThreshold.
func IsExpressed(enrichment float64) bool {
	return enrichment > ExpressionThreshold
}

// NilResult is the sentinel returned for a valid query with no results.
const NilResult = "NIL"

// Direction qualifies a regulation question.
type Direction string

const (
	DirectionRegulate Direction = "regulate"
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
	DirectionBind     Direction = "bind"
)

// ParseDirection maps a free keyword to a Direction. Unknown or empty
// keywords mean the generic "regulate".
func ParseDirection(keyword string) Direction {
	switch strings.ToLower(strings.TrimSpace(keyword)) {
	case "increase", "activate", "upregulate", "increaseamount", "activation":
		return DirectionIncrease
	case "decrease", "inhibit", "downregulate", "decreaseamount", "inhibition":
		return DirectionDecrease
	case "bind", "binding", "complex":
		return DirectionBind
	}
	return DirectionRegulate
}

// Strength filters miRNA-target rows by support type.
type Strength string

const (
	StrengthAny    Strength = ""
	StrengthStrong Strength = "strong"
	StrengthWeak   Strength = "weak"
)

// ParseStrength maps a free keyword to a Strength.
func ParseStrength(s string) Strength {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strong":
		return StrengthStrong
	case "weak":
		return StrengthWeak
	}
	return StrengthAny
}

// RegulationEdge is a TF -> target row of the combined TF-target table.
type RegulationEdge struct {
	Regulator string   `json:"regulator"`
	Target    string   `json:"target"`
	DBNames   []string `json:"db_names"`
}

// MiRNATarget is a miRNA -> target row with its supporting evidence.
type MiRNATarget struct {
	MiRNA       string   `json:"mirna"`
	Target      string   `json:"target"`
	SupportType string   `json:"support_type"`
	Experiments []string `json:"experiments,omitempty"`
	PMID        string   `json:"pmid,omitempty"`
}

// KinaseEdge is a kinase -> target row.
type KinaseEdge struct {
	Kinase    string `json:"kinase"`
	Target    string `json:"target"`
	Direction string `json:"direction"`
}

// PathwayRecord is a pathway with its member genes.
type PathwayRecord struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Source string   `json:"source"`
	Link   string   `json:"dblink,omitempty"`
	Genes  []string `json:"genes,omitempty"`
}

// TissueExpression is a gene-tissue enrichment row.
type TissueExpression struct {
	Gene       string  `json:"gene"`
	Tissue     string  `json:"tissue"`
	Enrichment float64 `json:"enrichment"`
}

// GOTerm is a Gene Ontology category.
type GOTerm struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

// EnrichmentResult is one ranked term of an enrichment analysis.
type EnrichmentResult struct {
	TermID     string   `json:"term_id"`
	TermName   string   `json:"term_name"`
	Namespace  string   `json:"namespace,omitempty"`
	PValue     float64  `json:"p_value"`
	PCorrected float64  `json:"p_corrected"`
	StudyCount int      `json:"study_count"`
	StudySize  int      `json:"study_size"`
	PopCount   int      `json:"pop_count"`
	PopSize    int      `json:"pop_size"`
	Enriched   bool     `json:"enriched"`
	Genes      []string `json:"genes"`
}

// RankedItem is an item with the number of panel members it was seen with.
type RankedItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Evidence is a single supporting observation of a literature statement.
type Evidence struct {
	Source string `json:"source_api"`
	PMID   string `json:"pmid,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Statement is a literature-derived relation between two agents.
type Statement struct {
	Hash     string     `json:"hash"`
	Type     string     `json:"type"`
	Subject  string     `json:"subject"`
	Object   string     `json:"object"`
	Evidence []Evidence `json:"evidence,omitempty"`
}

// Partition is a provenance-labelled result list (e.g. "tf-db", "tf-literature").
type Partition struct {
	Source string   `json:"source"`
	Items  []string `json:"items"`
}

// PerturbationKind names the perturbation tables of the disease store.
type PerturbationKind string

const (
	PerturbationDisease PerturbationKind = "disease"
	PerturbationLigand  PerturbationKind = "ligand"
	PerturbationDrug    PerturbationKind = "drug"
)

// Perturbation is a gene perturbed by a disease, ligand or drug.
type Perturbation struct {
	Kind      PerturbationKind `json:"kind"`
	Name      string           `json:"name"`
	Gene      string           `json:"gene"`
	Direction string           `json:"direction,omitempty"`
}

// MiRNADisease associates a miRNA with a disease.
type MiRNADisease struct {
	MiRNA   string `json:"mirna"`
	Disease string `json:"disease"`
	PMID    string `json:"pmid,omitempty"`
}
