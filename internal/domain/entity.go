package domain

import "strings"

// EntityKind classifies a resolved name reference.
type EntityKind string

const (
	KindSingleGene EntityKind = "SINGLE_GENE"
	KindFamily     EntityKind = "FAMILY"
	KindMiRNA      EntityKind = "MIRNA"
	KindAmbiguous  EntityKind = "AMBIGUOUS"
)

// Grounding namespaces recognised by the resolver
const (
	NamespaceHGNC      = "HGNC"
	NamespaceUniProt   = "UP"
	NamespaceFamPlex   = "FPLX"
	NamespaceHGNCGroup = "HGNC_GROUP"
	NamespaceMiRBase   = "MIRBASE"
)

// Grounding is one candidate identifier an upstream NLP step attached to a term.
type Grounding struct {
	Namespace string `json:"namespace"`
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
}

// IsFamily reports whether the grounding names a protein family or gene group.
func (g Grounding) IsFamily() bool {
	switch strings.ToUpper(g.Namespace) {
	case NamespaceFamPlex, NamespaceHGNCGroup:
		return true
	}
	return false
}

// IsGene reports whether the grounding names an individual gene.
func (g Grounding) IsGene() bool {
	switch strings.ToUpper(g.Namespace) {
	case NamespaceHGNC, NamespaceUniProt:
		return true
	}
	return false
}

// EntityRef is a reference to a named entity as delivered by the caller:
// either pre-grounded or a bare name.
type EntityRef struct {
	Name       string      `json:"name"`
	Groundings []Grounding `json:"groundings,omitempty"`
}

// ResolvedEntity is the outcome of resolving one EntityRef. It lives for a
// single request.
type ResolvedEntity struct {
	Kind       EntityKind `json:"kind"`
	Name       string     `json:"name"`
	Symbol     string     `json:"symbol,omitempty"`
	Members    []string   `json:"members,omitempty"`
	Candidates []string   `json:"candidates,omitempty"`
}

// Genes returns the gene symbols the entity stands for: the symbol of a
// single gene or the members of a family.
func (e ResolvedEntity) Genes() []string {
	switch e.Kind {
	case KindSingleGene, KindMiRNA:
		return []string{e.Symbol}
	case KindFamily:
		return e.Members
	}
	return nil
}

// Label is the name used when reporting on the entity.
func (e ResolvedEntity) Label() string {
	if e.Symbol != "" {
		return e.Symbol
	}
	return e.Name
}

// Candidate converts the entity to a clarification candidate.
func (e ResolvedEntity) Candidate() Candidate {
	return Candidate{Name: e.Name, Members: e.Members}
}
