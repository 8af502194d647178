package enrichment

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/tfta-mcp-server/internal/domain"
)

const oboScannerBufferSize = 1 << 20

// DAG is the GO term hierarchy. Edges point from a term to its parents.
type DAG struct {
	g     *simple.DirectedGraph
	ids   map[string]int64
	terms map[int64]domain.GOTerm
	alt   map[string]string
}

func newDAG() *DAG {
	return &DAG{
		g:     simple.NewDirectedGraph(),
		ids:   make(map[string]int64),
		terms: make(map[int64]domain.GOTerm),
		alt:   make(map[string]string),
	}
}

// LoadOBO reads a GO OBO file from path.
func LoadOBO(path string, withPartOf bool) (*DAG, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBO file: %w", err)
	}
	defer f.Close()
	return ParseOBO(f, withPartOf)
}

// ParseOBO builds a DAG from the [Term] stanzas of an OBO document. Parents
// come from is_a lines and, when withPartOf is set, part_of relationships.
// Obsolete terms are skipped.
func ParseOBO(r io.Reader, withPartOf bool) (*DAG, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, oboScannerBufferSize), oboScannerBufferSize)

	d := newDAG()
	parents := make(map[string][]string)

	for scanner.Scan() {
		if scanner.Text() != "[Term]" {
			continue
		}
		term, ps, alts, obsolete := parseOBOTerm(scanner, withPartOf)
		if obsolete || term.ID == "" {
			continue
		}
		d.node(term.ID)
		d.terms[d.ids[term.ID]] = term
		parents[term.ID] = ps
		for _, a := range alts {
			d.alt[a] = term.ID
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning OBO: %w", err)
	}

	for child, ps := range parents {
		for _, parent := range ps {
			if parent == child {
				continue
			}
			d.g.SetEdge(d.g.NewEdge(d.node(child), d.node(parent)))
		}
	}
	return d, nil
}

func parseOBOTerm(scanner *bufio.Scanner, withPartOf bool) (term domain.GOTerm, parents, alts []string, obsolete bool) {
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		key, val, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		switch key {
		case "id":
			term.ID = val
		case "name":
			term.Name = val
		case "namespace":
			term.Namespace = val
		case "alt_id":
			alts = append(alts, val)
		case "is_a":
			id, _, _ := strings.Cut(val, " ! ")
			parents = append(parents, strings.TrimSpace(id))
		case "relationship":
			if !withPartOf {
				continue
			}
			fields := strings.Fields(val)
			if len(fields) >= 2 && fields[0] == "part_of" {
				parents = append(parents, fields[1])
			}
		case "is_obsolete":
			obsolete = val == "true"
		}
	}
	return term, parents, alts, obsolete
}

func (d *DAG) node(id string) graph.Node {
	if n, ok := d.ids[id]; ok {
		return d.g.Node(n)
	}
	n := d.g.NewNode()
	d.g.AddNode(n)
	d.ids[id] = n.ID()
	return n
}

// Len returns the number of terms
func (d *DAG) Len() int {
	return len(d.terms)
}

// Term returns a term by id or alternative id.
func (d *DAG) Term(id string) (domain.GOTerm, bool) {
	if primary, ok := d.alt[id]; ok {
		id = primary
	}
	n, ok := d.ids[id]
	if !ok {
		return domain.GOTerm{}, false
	}
	t, ok := d.terms[n]
	return t, ok
}

// Ancestors returns every term reachable through parent edges from id,
// excluding id itself.
func (d *DAG) Ancestors(id string) []string {
	if primary, ok := d.alt[id]; ok {
		id = primary
	}
	start, ok := d.ids[id]
	if !ok {
		return nil
	}

	var ancestors []string
	bf := traverse.BreadthFirst{}
	bf.Walk(d.g, d.g.Node(start), func(n graph.Node, depth int) bool {
		if depth > 0 {
			if t, ok := d.terms[n.ID()]; ok {
				ancestors = append(ancestors, t.ID)
			}
		}
		return false
	})
	return ancestors
}

// Propagate adds every ancestor of a gene's terms to its annotations.
// Unknown term ids are kept as they are.
func (d *DAG) Propagate(assoc map[string][]string) map[string][]string {
	out := make(map[string][]string, len(assoc))
	memo := make(map[string][]string)
	for gene, ids := range assoc {
		seen := make(map[string]bool)
		var all []string
		add := func(id string) {
			if !seen[id] {
				seen[id] = true
				all = append(all, id)
			}
		}
		for _, id := range ids {
			add(id)
			anc, ok := memo[id]
			if !ok {
				anc = d.Ancestors(id)
				memo[id] = anc
			}
			for _, a := range anc {
				add(a)
			}
		}
		out[gene] = all
	}
	return out
}
