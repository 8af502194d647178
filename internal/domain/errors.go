package domain

import (
	"errors"
	"fmt"
	"time"
)

// Reason is a stable machine-readable failure code returned to the caller.
type Reason string

// Failure reasons for entity resolution and lookup outcomes
const (
	ReasonTFNotFound      Reason = "TF_NOT_FOUND"
	ReasonTargetNotFound  Reason = "TARGET_NOT_FOUND"
	ReasonPathwayNotFound Reason = "PATHWAY_NOT_FOUND"
	ReasonGONotFound      Reason = "GO_NOT_FOUND"
	ReasonTissueNotFound  Reason = "TISSUE_NOT_FOUND"
	ReasonKinaseNotFound  Reason = "KINASE_NOT_FOUND"
	ReasonDiseaseNotFound Reason = "DISEASE_NOT_FOUND"
	ReasonLigandNotFound  Reason = "LIGAND_NOT_FOUND"
	ReasonDrugNotFound    Reason = "DRUG_NOT_FOUND"
	ReasonMiRNANotFound   Reason = "MIRNA_NOT_FOUND"
	ReasonNoSimilarMiRNA  Reason = "NO_SIMILAR_MIRNA"

	ReasonFamilyName           Reason = "FAMILY_NAME"
	ReasonFamilyNameNotAllowed Reason = "FAMILY_NAME_NOT_ALLOWED"
	ReasonInvalidTissue        Reason = "INVALID_TISSUE"

	ReasonNoPathwayName   Reason = "NO_PATHWAY_NAME"
	ReasonNoGeneName      Reason = "NO_GENE_NAME"
	ReasonNoTargetName    Reason = "NO_TARGET_NAME"
	ReasonNoTFName        Reason = "NO_TF_NAME"
	ReasonNoRegulatorName Reason = "NO_REGULATOR_NAME"
	ReasonNoMiRNAName     Reason = "NO_MIRNA_NAME"
	ReasonNoKinaseName    Reason = "NO_KINASE_NAME"
	ReasonNoGOName        Reason = "NO_GO_NAME"
	ReasonNoTissueName    Reason = "NO_TISSUE_NAME"
	ReasonNoDiseaseName   Reason = "NO_DISEASE_NAME"
	ReasonNoLigandName    Reason = "NO_LIGAND_NAME"
	ReasonNoDrugName      Reason = "NO_DRUG_NAME"

	ReasonNoCapability    Reason = "NO-CAPABILITY"
	ReasonInvalidArgument Reason = "INVALID_ARGUMENT"
	ReasonInternal        Reason = "INTERNAL_ERROR"
)

// Clarification enumerates alternatives the caller can choose from.
type Clarification struct {
	Type   string      `json:"type"`
	As     []string    `json:"as,omitempty"`
	Agents []Candidate `json:"agents,omitempty"`
}

// Candidate is a structured alternative offered in a clarification.
type Candidate struct {
	Name      string   `json:"name"`
	Namespace string   `json:"namespace,omitempty"`
	ID        string   `json:"id,omitempty"`
	Members   []string `json:"members,omitempty"`
}

// Failure is an expected, enumerable domain outcome. It is returned as an
// error value and mapped to a reply by the request boundary.
type Failure struct {
	Reason        Reason         `json:"reason"`
	Entity        string         `json:"entity,omitempty"`
	Message       string         `json:"message,omitempty"`
	Clarification *Clarification `json:"clarification,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Error implements the error interface
func (f *Failure) Error() string {
	if f.Entity != "" {
		return fmt.Sprintf("%s: %s", f.Reason, f.Entity)
	}
	return string(f.Reason)
}

// NewFailure creates a Failure for the given reason and entity.
func NewFailure(reason Reason, entity string) *Failure {
	return &Failure{
		Reason:    reason,
		Entity:    entity,
		Timestamp: time.Now().UTC(),
	}
}

// WithMessage sets a human readable message and returns the failure.
func (f *Failure) WithMessage(format string, args ...interface{}) *Failure {
	f.Message = fmt.Sprintf(format, args...)
	return f
}

// WithClarification attaches alternatives and returns the failure.
func (f *Failure) WithClarification(c *Clarification) *Failure {
	f.Clarification = c
	return f
}

// AsFailure unwraps err to a *Failure if it is one.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsFailure reports whether err is a Failure with the given reason.
func IsFailure(err error, reason Reason) bool {
	f, ok := AsFailure(err)
	return ok && f.Reason == reason
}
