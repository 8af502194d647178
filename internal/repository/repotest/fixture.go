// Package repotest builds temporary SQLite lookup stores for tests.
package repotest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/tfta-mcp-server/internal/database"
	"github.com/tfta-mcp-server/internal/repository"
)

// LookupSchema creates the TF-target store tables.
const LookupSchema = `
CREATE TABLE CombinedDB (TF TEXT, Target TEXT, dbnames TEXT);
CREATE TABLE transFactor (tf TEXT);
CREATE TABLE mirnaInfo (id INTEGER PRIMARY KEY, mirna TEXT, target TEXT, expr TEXT, supportType TEXT, pmid TEXT, experiments TEXT);
CREATE TABLE pathwayInfo (Id INTEGER PRIMARY KEY, pathwayName TEXT, source TEXT, dblink TEXT, numGenes INTEGER);
CREATE TABLE pathway2Genes (pathwayID INTEGER, genesymbol TEXT);
CREATE TABLE geneTissue (genesymbol TEXT, tissue TEXT, enrichment REAL);
CREATE TABLE goInfo (recordId INTEGER PRIMARY KEY, goId TEXT, goName TEXT, goType TEXT);
CREATE TABLE go2Genes (termId INTEGER, geneSymbol TEXT);
CREATE TABLE kinaseReg (kinase TEXT, target TEXT, direction TEXT);
`

// PerturbationSchema creates the disease perturbation store tables.
const PerturbationSchema = `
CREATE TABLE diseaseName (diseaseId INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE diseaseGene (diseaseId INTEGER, geneSymbol TEXT, direction TEXT);
CREATE TABLE ligandName (ligandId INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE ligandGene (ligandId INTEGER, geneSymbol TEXT, direction TEXT);
CREATE TABLE drugName (drugId INTEGER PRIMARY KEY, name TEXT);
CREATE TABLE drugGene (drugId INTEGER, geneSymbol TEXT, direction TEXT);
CREATE TABLE mirnaDisease (mirna TEXT, disease TEXT, pmid TEXT);
`

// Fixture is a writable SQLite file populated by a test and then reopened
// read-only through the production connection code.
type Fixture struct {
	t    *testing.T
	path string
	db   *sql.DB
}

// New creates a fixture file with the given schema.
func New(t *testing.T, schema string) *Fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(schema)
	require.NoError(t, err)
	return &Fixture{t: t, path: path, db: db}
}

// Exec runs a write statement against the fixture.
func (f *Fixture) Exec(query string, args ...interface{}) *Fixture {
	f.t.Helper()
	_, err := f.db.Exec(query, args...)
	require.NoError(f.t, err)
	return f
}

// Regulation inserts TF -> target rows sharing the same source databases.
func (f *Fixture) Regulation(tf string, dbnames string, targets ...string) *Fixture {
	f.t.Helper()
	f.Exec(`INSERT INTO transFactor (tf) VALUES (?)`, tf)
	for _, target := range targets {
		f.Exec(`INSERT INTO CombinedDB (TF, Target, dbnames) VALUES (?, ?, ?)`, tf, target, dbnames)
	}
	return f
}

// MiRNA inserts miRNA -> target rows with one support type.
func (f *Fixture) MiRNA(mirna, supportType string, targets ...string) *Fixture {
	f.t.Helper()
	for _, target := range targets {
		f.Exec(`INSERT INTO mirnaInfo (mirna, target, supportType, pmid, experiments) VALUES (?, ?, ?, ?, ?)`,
			mirna, target, supportType, "12345", "Luciferase reporter assay//Western blot")
	}
	return f
}

// Pathway inserts a pathway with its member genes.
func (f *Fixture) Pathway(id int, name, source string, genes ...string) *Fixture {
	f.t.Helper()
	f.Exec(`INSERT INTO pathwayInfo (Id, pathwayName, source, dblink, numGenes) VALUES (?, ?, ?, ?, ?)`,
		id, name, source, "http://pathways.example/"+name, len(genes))
	for _, g := range genes {
		f.Exec(`INSERT INTO pathway2Genes (pathwayID, genesymbol) VALUES (?, ?)`, id, g)
	}
	return f
}

// Tissue inserts a gene-tissue enrichment row.
func (f *Fixture) Tissue(gene, tissue string, enrichment float64) *Fixture {
	f.t.Helper()
	return f.Exec(`INSERT INTO geneTissue (genesymbol, tissue, enrichment) VALUES (?, ?, ?)`, gene, tissue, enrichment)
}

// GO inserts a GO category with its annotated genes.
func (f *Fixture) GO(recordID int, goID, name, namespace string, genes ...string) *Fixture {
	f.t.Helper()
	f.Exec(`INSERT INTO goInfo (recordId, goId, goName, goType) VALUES (?, ?, ?, ?)`, recordID, goID, name, namespace)
	for _, g := range genes {
		f.Exec(`INSERT INTO go2Genes (termId, geneSymbol) VALUES (?, ?)`, recordID, g)
	}
	return f
}

// Kinase inserts kinase -> target rows with one direction.
func (f *Fixture) Kinase(kinase, direction string, targets ...string) *Fixture {
	f.t.Helper()
	for _, target := range targets {
		f.Exec(`INSERT INTO kinaseReg (kinase, target, direction) VALUES (?, ?, ?)`, kinase, target, direction)
	}
	return f
}

// Path returns the fixture file path.
func (f *Fixture) Path() string {
	return f.path
}

// Open reopens the fixture read-only through database.NewConnection.
func (f *Fixture) Open(logger *logrus.Logger) *database.DB {
	f.t.Helper()
	db, err := database.NewConnection(context.Background(), database.Config{Path: f.path, MaxConns: 4}, logger)
	require.NoError(f.t, err)
	f.t.Cleanup(db.Close)
	return db
}

// LookupStore opens the fixture as a lookup store.
func (f *Fixture) LookupStore(logger *logrus.Logger) *repository.LookupStore {
	return repository.NewLookupStore(f.Open(logger), logger)
}

// PerturbationStore opens the fixture as a perturbation store.
func (f *Fixture) PerturbationStore(logger *logrus.Logger) *repository.PerturbationStore {
	return repository.NewPerturbationStore(f.Open(logger), logger)
}

// QuietLogger returns a logger that drops everything below fatal.
func QuietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}
