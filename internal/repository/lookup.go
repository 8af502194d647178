package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tfta-mcp-server/internal/database"
	"github.com/tfta-mcp-server/internal/domain"
)

// miRTarBase support types used by the strength filter
const (
	SupportStrong = "Functional MTI"
	SupportWeak   = "Functional MTI (Weak)"
)

// LookupStore runs read-only queries against the TF-target, miRNA-target,
// pathway, tissue, GO and kinase tables.
//
// A store whose database could not be opened is unavailable: every query
// returns an empty result and no error. Query failures on an available store
// are returned as errors.
type LookupStore struct {
	reader
}

// NewLookupStore creates a lookup store over an open pool. A nil pool gives an
// unavailable store.
func NewLookupStore(db *database.DB, logger *logrus.Logger) *LookupStore {
	return &LookupStore{reader{db: db, log: logger}}
}

// OpenLookupStore opens the store file. Failure to open is logged once and
// yields an unavailable store rather than an error.
func OpenLookupStore(ctx context.Context, config database.Config, logger *logrus.Logger) *LookupStore {
	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"path":  config.Path,
			"error": err,
		}).Warn("Lookup store unavailable, all queries will return empty results")
		return NewLookupStore(nil, logger)
	}
	return NewLookupStore(db, logger)
}

// TargetsOfTF returns the targets regulated by a transcription factor
func (s *LookupStore) TargetsOfTF(ctx context.Context, tf string) ([]string, error) {
	return s.queryStrings(ctx, "targets_of_tf",
		`SELECT DISTINCT Target FROM CombinedDB WHERE TF = ?`, tf)
}

// TFsOfTarget returns the transcription factors regulating a target
func (s *LookupStore) TFsOfTarget(ctx context.Context, target string) ([]string, error) {
	return s.queryStrings(ctx, "tfs_of_target",
		`SELECT DISTINCT TF FROM CombinedDB WHERE Target = ?`, target)
}

// RegulationDBs returns the source databases supporting tf -> target.
// An empty result means the pair is not in the table.
func (s *LookupStore) RegulationDBs(ctx context.Context, tf, target string) ([]string, error) {
	rows, err := s.queryStrings(ctx, "regulation_dbs",
		`SELECT DISTINCT dbnames FROM CombinedDB WHERE TF = ? AND Target = ?`, tf, target)
	if err != nil {
		return nil, err
	}
	var dbs []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, name := range strings.Split(row, ",") {
			name = strings.TrimSpace(name)
			if name != "" && !seen[name] {
				seen[name] = true
				dbs = append(dbs, name)
			}
		}
	}
	return dbs, nil
}

// AllTFs returns every known transcription factor
func (s *LookupStore) AllTFs(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "all_tfs", `SELECT DISTINCT tf FROM transFactor`)
}

// AllMiRNAs returns every miRNA of the miRNA-target table
func (s *LookupStore) AllMiRNAs(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "all_mirnas", `SELECT DISTINCT mirna FROM mirnaInfo`)
}

// MiRNAExact returns the stored spelling of a miRNA, matched case-insensitively.
func (s *LookupStore) MiRNAExact(ctx context.Context, name string) (string, bool, error) {
	rows, err := s.queryStrings(ctx, "mirna_exact",
		`SELECT DISTINCT mirna FROM mirnaInfo WHERE UPPER(mirna) = UPPER(?) LIMIT 1`, name)
	if err != nil || len(rows) == 0 {
		return "", false, err
	}
	return rows[0], true, nil
}

// MiRNAPrefix returns stored miRNAs starting with name, or with name followed
// by an arm/variant suffix, in store order.
func (s *LookupStore) MiRNAPrefix(ctx context.Context, name string) ([]string, error) {
	p := likeEscape(name)
	return s.queryStrings(ctx, "mirna_prefix",
		`SELECT DISTINCT mirna FROM mirnaInfo WHERE mirna LIKE ? ESCAPE '\' OR mirna LIKE ? ESCAPE '\'`,
		p+"%", p+"-%")
}

// TargetsOfMiRNA returns the targets of a miRNA, optionally restricted by support strength
func (s *LookupStore) TargetsOfMiRNA(ctx context.Context, mirna string, strength domain.Strength) ([]string, error) {
	query := `SELECT DISTINCT target FROM mirnaInfo WHERE mirna = ?`
	args := []interface{}{mirna}
	query, args = withStrength(query, args, strength)
	return s.queryStrings(ctx, "targets_of_mirna", query, args...)
}

// MiRNAsOfTarget returns the miRNAs targeting a gene, optionally restricted by support strength
func (s *LookupStore) MiRNAsOfTarget(ctx context.Context, target string, strength domain.Strength) ([]string, error) {
	query := `SELECT DISTINCT mirna FROM mirnaInfo WHERE target = ?`
	args := []interface{}{target}
	query, args = withStrength(query, args, strength)
	return s.queryStrings(ctx, "mirnas_of_target", query, args...)
}

func withStrength(query string, args []interface{}, strength domain.Strength) (string, []interface{}) {
	switch strength {
	case domain.StrengthStrong:
		return query + ` AND supportType = ?`, append(args, SupportStrong)
	case domain.StrengthWeak:
		return query + ` AND supportType = ?`, append(args, SupportWeak)
	}
	return query, args
}

// MiRNAEvidence returns the evidence rows for a miRNA-target pair
func (s *LookupStore) MiRNAEvidence(ctx context.Context, mirna, target string) ([]domain.MiRNATarget, error) {
	if !s.Available() {
		return nil, nil
	}
	rows, err := s.db.Pool.QueryContext(ctx,
		`SELECT mirna, target, supportType, experiments, pmid FROM mirnaInfo WHERE mirna = ? AND target = ?`,
		mirna, target)
	if err != nil {
		return nil, s.queryError("mirna_evidence", err)
	}
	defer rows.Close()

	var result []domain.MiRNATarget
	for rows.Next() {
		var m domain.MiRNATarget
		var support, experiments, pmid sql.NullString
		if err := rows.Scan(&m.MiRNA, &m.Target, &support, &experiments, &pmid); err != nil {
			return nil, s.queryError("mirna_evidence", err)
		}
		m.SupportType = support.String
		m.Experiments = splitExperiments(experiments.String)
		m.PMID = pmid.String
		result = append(result, m)
	}
	return result, rows.Err()
}

func splitExperiments(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '/' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// PathwaysOfGene returns the pathways containing gene. source restricts the
// pathway database (exact, case-insensitive) and keyword the pathway name
// (substring); both are optional.
func (s *LookupStore) PathwaysOfGene(ctx context.Context, gene, source, keyword string) ([]domain.PathwayRecord, error) {
	query := `SELECT DISTINCT p.Id, p.pathwayName, p.source, p.dblink
		FROM pathwayInfo p JOIN pathway2Genes g ON g.pathwayID = p.Id
		WHERE g.genesymbol = ?`
	args := []interface{}{gene}
	if source != "" {
		query += ` AND UPPER(p.source) = UPPER(?)`
		args = append(args, source)
	}
	if keyword != "" {
		query += ` AND p.pathwayName LIKE ? ESCAPE '\'`
		args = append(args, "%"+likeEscape(keyword)+"%")
	}
	return s.queryPathways(ctx, "pathways_of_gene", query, args...)
}

// PathwaysByKeyword returns pathways whose name contains keyword
func (s *LookupStore) PathwaysByKeyword(ctx context.Context, keyword, source string) ([]domain.PathwayRecord, error) {
	query := `SELECT DISTINCT Id, pathwayName, source, dblink FROM pathwayInfo
		WHERE pathwayName LIKE ? ESCAPE '\'`
	args := []interface{}{"%" + likeEscape(keyword) + "%"}
	if source != "" {
		query += ` AND UPPER(source) = UPPER(?)`
		args = append(args, source)
	}
	return s.queryPathways(ctx, "pathways_by_keyword", query, args...)
}

// GenesOfPathway returns the member genes of a pathway
func (s *LookupStore) GenesOfPathway(ctx context.Context, pathwayID int) ([]string, error) {
	return s.queryStrings(ctx, "genes_of_pathway",
		`SELECT DISTINCT genesymbol FROM pathway2Genes WHERE pathwayID = ?`, pathwayID)
}

// PathwayGeneSets returns every pathway of a database with its member genes
func (s *LookupStore) PathwayGeneSets(ctx context.Context, source string) ([]domain.PathwayRecord, error) {
	if !s.Available() {
		return nil, nil
	}
	rows, err := s.db.Pool.QueryContext(ctx,
		`SELECT p.Id, p.pathwayName, p.source, p.dblink, g.genesymbol
		FROM pathwayInfo p JOIN pathway2Genes g ON g.pathwayID = p.Id
		WHERE UPPER(p.source) = UPPER(?)
		ORDER BY p.Id`, source)
	if err != nil {
		return nil, s.queryError("pathway_gene_sets", err)
	}
	defer rows.Close()

	var result []domain.PathwayRecord
	index := make(map[int]int)
	for rows.Next() {
		var rec domain.PathwayRecord
		var link sql.NullString
		var gene string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Source, &link, &gene); err != nil {
			return nil, s.queryError("pathway_gene_sets", err)
		}
		i, ok := index[rec.ID]
		if !ok {
			rec.Link = link.String
			result = append(result, rec)
			i = len(result) - 1
			index[rec.ID] = i
		}
		result[i].Genes = appendUnique(result[i].Genes, gene)
	}
	return result, rows.Err()
}

// PathwaySources returns the distinct pathway databases
func (s *LookupStore) PathwaySources(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "pathway_sources", `SELECT DISTINCT source FROM pathwayInfo`)
}

// GenesInTissue returns genes expressed (enrichment > threshold) in tissues
// whose name contains tissue.
func (s *LookupStore) GenesInTissue(ctx context.Context, tissue string) ([]string, error) {
	return s.queryStrings(ctx, "genes_in_tissue",
		`SELECT DISTINCT genesymbol FROM geneTissue WHERE tissue LIKE ? ESCAPE '\' AND enrichment > ?`,
		"%"+likeEscape(tissue)+"%", domain.ExpressionThreshold)
}

// TissueExists reports whether any row of the tissue column contains tissue
func (s *LookupStore) TissueExists(ctx context.Context, tissue string) (bool, error) {
	rows, err := s.queryStrings(ctx, "tissue_exists",
		`SELECT tissue FROM geneTissue WHERE tissue LIKE ? ESCAPE '\' LIMIT 1`,
		"%"+likeEscape(tissue)+"%")
	return len(rows) > 0, err
}

// TissuesOfGene returns the tissues a gene is expressed in
func (s *LookupStore) TissuesOfGene(ctx context.Context, gene string) ([]string, error) {
	return s.queryStrings(ctx, "tissues_of_gene",
		`SELECT DISTINCT tissue FROM geneTissue WHERE genesymbol = ? AND enrichment > ?`,
		gene, domain.ExpressionThreshold)
}

// AllTissues returns every tissue name of the tissue table
func (s *LookupStore) AllTissues(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "all_tissues", `SELECT DISTINCT tissue FROM geneTissue`)
}

// ExpressedByTissue maps every tissue to the genes expressed in it, in a
// single scan of the tissue table.
func (s *LookupStore) ExpressedByTissue(ctx context.Context) (map[string][]string, error) {
	if !s.Available() {
		return map[string][]string{}, nil
	}
	rows, err := s.db.Pool.QueryContext(ctx,
		`SELECT DISTINCT tissue, genesymbol FROM geneTissue WHERE enrichment > ?`,
		domain.ExpressionThreshold)
	if err != nil {
		return nil, s.queryError("expressed_by_tissue", err)
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var tissue, gene string
		if err := rows.Scan(&tissue, &gene); err != nil {
			return nil, s.queryError("expressed_by_tissue", err)
		}
		result[tissue] = append(result[tissue], gene)
	}
	return result, rows.Err()
}

// GOTermsByKeyword returns GO categories whose name contains keyword or
// whose id equals it.
func (s *LookupStore) GOTermsByKeyword(ctx context.Context, keyword string) ([]domain.GOTerm, error) {
	return s.queryGOTerms(ctx, "go_terms_by_keyword",
		`SELECT DISTINCT goId, goName, goType FROM goInfo
		WHERE goName LIKE ? ESCAPE '\' OR UPPER(goId) = UPPER(?)`,
		"%"+likeEscape(keyword)+"%", keyword)
}

// GenesOfGO returns genes annotated to GO categories matching keyword
func (s *LookupStore) GenesOfGO(ctx context.Context, keyword string) ([]string, error) {
	return s.queryStrings(ctx, "genes_of_go",
		`SELECT DISTINCT g.geneSymbol FROM go2Genes g JOIN goInfo i ON g.termId = i.recordId
		WHERE i.goName LIKE ? ESCAPE '\' OR UPPER(i.goId) = UPPER(?)`,
		"%"+likeEscape(keyword)+"%", keyword)
}

// GOTermsOfGene returns the GO categories a gene is annotated to
func (s *LookupStore) GOTermsOfGene(ctx context.Context, gene string) ([]domain.GOTerm, error) {
	return s.queryGOTerms(ctx, "go_terms_of_gene",
		`SELECT DISTINCT i.goId, i.goName, i.goType FROM go2Genes g JOIN goInfo i ON g.termId = i.recordId
		WHERE g.geneSymbol = ?`, gene)
}

// AllGOTerms returns every GO category keyed by GO id
func (s *LookupStore) AllGOTerms(ctx context.Context) (map[string]domain.GOTerm, error) {
	terms, err := s.queryGOTerms(ctx, "all_go_terms", `SELECT DISTINCT goId, goName, goType FROM goInfo`)
	if err != nil {
		return nil, err
	}
	result := make(map[string]domain.GOTerm, len(terms))
	for _, t := range terms {
		result[t.ID] = t
	}
	return result, nil
}

// GOAssociations maps every annotated gene to its GO ids
func (s *LookupStore) GOAssociations(ctx context.Context) (map[string][]string, error) {
	if !s.Available() {
		return map[string][]string{}, nil
	}
	rows, err := s.db.Pool.QueryContext(ctx,
		`SELECT DISTINCT g.geneSymbol, i.goId FROM go2Genes g JOIN goInfo i ON g.termId = i.recordId`)
	if err != nil {
		return nil, s.queryError("go_associations", err)
	}
	defer rows.Close()

	result := make(map[string][]string)
	for rows.Next() {
		var gene, goID string
		if err := rows.Scan(&gene, &goID); err != nil {
			return nil, s.queryError("go_associations", err)
		}
		result[gene] = append(result[gene], goID)
	}
	return result, rows.Err()
}

// KinasesOfTarget returns kinases acting on target. An empty directions list
// means any direction; otherwise direction must equal one of them.
func (s *LookupStore) KinasesOfTarget(ctx context.Context, target string, directions []string) ([]string, error) {
	query, args := withDirections(`SELECT DISTINCT kinase FROM kinaseReg WHERE target = ?`,
		[]interface{}{target}, directions)
	return s.queryStrings(ctx, "kinases_of_target", query, args...)
}

// TargetsOfKinase returns the targets of a kinase, filtered like KinasesOfTarget
func (s *LookupStore) TargetsOfKinase(ctx context.Context, kinase string, directions []string) ([]string, error) {
	query, args := withDirections(`SELECT DISTINCT target FROM kinaseReg WHERE kinase = ?`,
		[]interface{}{kinase}, directions)
	return s.queryStrings(ctx, "targets_of_kinase", query, args...)
}

func withDirections(query string, args []interface{}, directions []string) (string, []interface{}) {
	if len(directions) == 0 {
		return query, args
	}
	query += ` AND direction IN (?` + strings.Repeat(`, ?`, len(directions)-1) + `)`
	for _, d := range directions {
		args = append(args, d)
	}
	return query, args
}

// DistinctGenes returns every gene symbol mentioned by any gene column of
// the store.
func (s *LookupStore) DistinctGenes(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "distinct_genes",
		`SELECT TF FROM CombinedDB UNION SELECT Target FROM CombinedDB
		UNION SELECT tf FROM transFactor
		UNION SELECT target FROM mirnaInfo
		UNION SELECT kinase FROM kinaseReg UNION SELECT target FROM kinaseReg
		UNION SELECT genesymbol FROM pathway2Genes
		UNION SELECT genesymbol FROM geneTissue
		UNION SELECT geneSymbol FROM go2Genes`)
}

func (s *LookupStore) queryPathways(ctx context.Context, op, query string, args ...interface{}) ([]domain.PathwayRecord, error) {
	if !s.Available() {
		return nil, nil
	}
	rows, err := s.db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.queryError(op, err)
	}
	defer rows.Close()

	var result []domain.PathwayRecord
	for rows.Next() {
		var rec domain.PathwayRecord
		var link sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Source, &link); err != nil {
			return nil, s.queryError(op, err)
		}
		rec.Link = link.String
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *LookupStore) queryGOTerms(ctx context.Context, op, query string, args ...interface{}) ([]domain.GOTerm, error) {
	if !s.Available() {
		return nil, nil
	}
	rows, err := s.db.Pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.queryError(op, err)
	}
	defer rows.Close()

	var result []domain.GOTerm
	for rows.Next() {
		var term domain.GOTerm
		var namespace sql.NullString
		if err := rows.Scan(&term.ID, &term.Name, &namespace); err != nil {
			return nil, s.queryError(op, err)
		}
		term.Namespace = namespace.String
		result = append(result, term)
	}
	return result, rows.Err()
}
