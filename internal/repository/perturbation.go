package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tfta-mcp-server/internal/database"
	"github.com/tfta-mcp-server/internal/domain"
)

// perturbationTables names the name/gene table pair and id column of a kind.
var perturbationTables = map[domain.PerturbationKind]struct {
	names, genes, id string
}{
	domain.PerturbationDisease: {"diseaseName", "diseaseGene", "diseaseId"},
	domain.PerturbationLigand:  {"ligandName", "ligandGene", "ligandId"},
	domain.PerturbationDrug:    {"drugName", "drugGene", "drugId"},
}

// PerturbationStore queries the disease, ligand and drug perturbation tables
// and the miRNA-disease association table. Like LookupStore, an unopened store
// answers every query with an empty result.
type PerturbationStore struct {
	reader
}

// NewPerturbationStore creates a perturbation store over an open pool
func NewPerturbationStore(db *database.DB, logger *logrus.Logger) *PerturbationStore {
	return &PerturbationStore{reader{db: db, log: logger}}
}

// OpenPerturbationStore opens the store file, degrading to an unavailable store.
func OpenPerturbationStore(ctx context.Context, config database.Config, logger *logrus.Logger) *PerturbationStore {
	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"path":  config.Path,
			"error": err,
		}).Warn("Perturbation store unavailable, all queries will return empty results")
		return NewPerturbationStore(nil, logger)
	}
	return NewPerturbationStore(db, logger)
}

// NamesMatching returns the perturbagen names of a kind containing keyword
func (s *PerturbationStore) NamesMatching(ctx context.Context, kind domain.PerturbationKind, keyword string) ([]string, error) {
	t, ok := perturbationTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown perturbation kind %q", kind)
	}
	// Table names come from the fixed map above, never from input.
	query := fmt.Sprintf(`SELECT DISTINCT name FROM %s WHERE name LIKE ? ESCAPE '\'`, t.names)
	return s.queryStrings(ctx, "perturbation_names", query, "%"+likeEscape(keyword)+"%")
}

// GenesPerturbedBy returns the genes perturbed by perturbagens whose name
// contains keyword. An empty direction means any direction.
func (s *PerturbationStore) GenesPerturbedBy(ctx context.Context, kind domain.PerturbationKind, keyword, direction string) ([]domain.Perturbation, error) {
	t, ok := perturbationTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown perturbation kind %q", kind)
	}
	if !s.Available() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT DISTINCT n.name, g.geneSymbol, g.direction
		FROM %s n JOIN %s g ON g.%s = n.%s
		WHERE n.name LIKE ? ESCAPE '\'`, t.names, t.genes, t.id, t.id)
	args := []interface{}{"%" + likeEscape(keyword) + "%"}
	if direction != "" {
		query += ` AND g.direction = ?`
		args = append(args, direction)
	}
	return s.queryPerturbations(ctx, kind, "genes_perturbed_by", query, args...)
}

// PerturbationsOfGene returns the perturbagens of a kind affecting gene
func (s *PerturbationStore) PerturbationsOfGene(ctx context.Context, kind domain.PerturbationKind, gene string) ([]domain.Perturbation, error) {
	t, ok := perturbationTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown perturbation kind %q", kind)
	}
	if !s.Available() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT DISTINCT n.name, g.geneSymbol, g.direction
		FROM %s n JOIN %s g ON g.%s = n.%s
		WHERE g.geneSymbol = ?`, t.names, t.genes, t.id, t.id)
	return s.queryPerturbations(ctx, kind, "perturbations_of_gene", query, gene)
}

// MiRNAExact returns the stored spelling of a miRNA in the association table,
// matched case-insensitively.
func (s *PerturbationStore) MiRNAExact(ctx context.Context, name string) (string, bool, error) {
	rows, err := s.queryStrings(ctx, "disease_mirna_exact",
		`SELECT DISTINCT mirna FROM mirnaDisease WHERE UPPER(mirna) = UPPER(?) LIMIT 1`, name)
	if err != nil || len(rows) == 0 {
		return "", false, err
	}
	return rows[0], true, nil
}

// MiRNADiseases returns the diseases associated with a miRNA
func (s *PerturbationStore) MiRNADiseases(ctx context.Context, mirna string) ([]domain.MiRNADisease, error) {
	return s.queryMiRNADiseases(ctx, "mirna_diseases",
		`SELECT DISTINCT mirna, disease, pmid FROM mirnaDisease WHERE UPPER(mirna) = UPPER(?)`, mirna)
}

// IsMiRNADisease returns the associations of a miRNA with diseases whose name
// contains keyword.
func (s *PerturbationStore) IsMiRNADisease(ctx context.Context, mirna, keyword string) ([]domain.MiRNADisease, error) {
	return s.queryMiRNADiseases(ctx, "is_mirna_disease",
		`SELECT DISTINCT mirna, disease, pmid FROM mirnaDisease
		WHERE UPPER(mirna) = UPPER(?) AND disease LIKE ? ESCAPE '\'`,
		mirna, "%"+likeEscape(keyword)+"%")
}

func (s *PerturbationStore) queryPerturbations(ctx context.Context, kind domain.PerturbationKind, op, query string, args ...interface{}) ([]domain.Perturbation, error) {
	rows, err := s.db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.queryError(op, err)
	}
	defer rows.Close()

	var result []domain.Perturbation
	for rows.Next() {
		p := domain.Perturbation{Kind: kind}
		var direction sql.NullString
		if err := rows.Scan(&p.Name, &p.Gene, &direction); err != nil {
			return nil, s.queryError(op, err)
		}
		p.Direction = direction.String
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *PerturbationStore) queryMiRNADiseases(ctx context.Context, op, query string, args ...interface{}) ([]domain.MiRNADisease, error) {
	if !s.Available() {
		return nil, nil
	}
	rows, err := s.db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.queryError(op, err)
	}
	defer rows.Close()

	var result []domain.MiRNADisease
	for rows.Next() {
		var d domain.MiRNADisease
		var pmid sql.NullString
		if err := rows.Scan(&d.MiRNA, &d.Disease, &pmid); err != nil {
			return nil, s.queryError(op, err)
		}
		d.PMID = pmid.String
		result = append(result, d)
	}
	return result, rows.Err()
}
