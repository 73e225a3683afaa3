package services

// FinalStatusCode is the first workflow status code of a signed-off report.
// Anything below it is rendered as a draft.
const FinalStatusCode = 9

// NABL indicator values.
const (
	NABLNone = 0
	NABLYes  = 1
	NABLQAI  = 3
)

// Placeholder is shown wherever a value is missing.
const Placeholder = "—"

// ReportRenderModel is the single shape consumed by every document variant.
// It is built fresh for each export and never mutated afterwards.
type ReportRenderModel struct {
	Identity     Identity
	Customer     Customer
	Sample       Sample
	Dates        Dates
	ResultRows   []ResultRow
	RemarksLines []string
	Signatories  []Signatory
	Flags        Flags

	// NABLLogo is the resolved accreditation logo reference, or "" when none is shown.
	NABLLogo string
}

type Identity struct {
	ULR           string
	LRN           string
	BRN           string
	KTRCReference string
	NABLStatus    int
}

type Customer struct {
	Name          string
	Address       string
	ContactPerson string
	ShowContact   bool
	Reference     string
}

type Sample struct {
	ProductName             string
	Description             string
	Grade                   string
	BatchNumber             string
	QuantityReceivedSummary string
}

type Dates struct {
	Receipt        string
	ConditionLabel string
	PackingLabel   string
	TestStart      string
	TestEnd        string
	Reporting      string
}

// ResultRow is one line of the results table.
type ResultRow struct {
	SNo           string
	ParameterName string
	UnitDisplay   string
	ResultDisplay string
	MethodName    string
	Specification string
	// ComplianceStyle is the server-supplied CSS declaration string, if any.
	ComplianceStyle string
}

type Signatory struct {
	Title               string
	DisplayName         string
	IsSigned            bool
	SignatureImageRef   string
	DigitalSignatureRef string
	AuthorizeFor        string
}

type Flags struct {
	HasSpecificationColumn bool
	IsDraft                bool
}

// ReportIdentifier is the identifier used in export filenames:
// LRN, then BRN, then the literal "report".
func (m ReportRenderModel) ReportIdentifier() string {
	if m.Identity.LRN != "" {
		return m.Identity.LRN
	}
	if m.Identity.BRN != "" {
		return m.Identity.BRN
	}
	return "report"
}
