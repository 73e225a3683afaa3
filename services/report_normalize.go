package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NormalizeOptions carries the default logo references used when the payload
// does not supply its own.
type NormalizeOptions struct {
	NABLLogo string
	QAILogo  string
}

var htmlBreak = regexp.MustCompile(`(?i)<br\s*/?>`)

// specPlaceholders are specification values that do not count as a real specification.
var specPlaceholders = map[string]bool{
	"":    true,
	"-":   true,
	"--":  true,
	"—":   true,
	"–":   true,
	"na":  true,
	"n/a": true,
}

// Normalize converts a decoded payload into the render model. It never fails:
// missing or malformed fields become placeholders so partially filled drafts
// still render.
func Normalize(raw RawReport, opts NormalizeOptions) ReportRenderModel {
	m := ReportRenderModel{
		Identity: Identity{
			ULR:           strings.TrimSpace(raw.ULR),
			LRN:           strings.TrimSpace(raw.LRN),
			BRN:           strings.TrimSpace(raw.BRN),
			KTRCReference: strings.TrimSpace(raw.KTRCReference),
			NABLStatus:    raw.NABL.Status,
		},
		Customer: Customer{
			Name:          orPlaceholder(raw.Customer.Name),
			Address:       orPlaceholder(raw.Customer.Address),
			ContactPerson: strings.TrimSpace(raw.Customer.ContactPerson),
			ShowContact:   raw.Customer.ShowContact,
			Reference:     orPlaceholder(raw.Customer.Reference),
		},
		Sample: Sample{
			ProductName:             orPlaceholder(raw.ProductName),
			Description:             orPlaceholder(raw.SampleDescription),
			Grade:                   orPlaceholder(raw.Grade),
			BatchNumber:             orPlaceholder(StripHTMLBreaks(raw.BatchNumber)),
			QuantityReceivedSummary: QuantitySummary(raw.ReceivedItems),
		},
		Dates: Dates{
			Receipt:        FormatReportDate(raw.ReceiptDate),
			ConditionLabel: orPlaceholder(raw.SampleCondition),
			PackingLabel:   orPlaceholder(raw.Packing),
			TestStart:      FormatReportDate(raw.TestStartDate),
			TestEnd:        FormatReportDate(raw.TestEndDate),
			Reporting:      FormatReportDate(raw.ReportingDate),
		},
		ResultRows:   normalizeResults(raw.Results),
		RemarksLines: RemarksLines(raw),
		Signatories:  normalizeSignatories(raw.Signatories),
		NABLLogo:     resolveNABLLogo(raw.NABL, opts),
	}

	m.Flags = Flags{
		HasSpecificationColumn: raw.HasSpecs || anyRealSpecification(m.ResultRows),
		IsDraft:                raw.Status.Code < FinalStatusCode,
	}

	return m
}

// StripHTMLBreaks replaces each literal <br>, <br/> or <br /> with a single space.
func StripHTMLBreaks(s string) string {
	return strings.TrimSpace(htmlBreak.ReplaceAllString(s, " "))
}

// QuantitySummary renders received quantities as "2 Nos, NA". Rows with
// nothing received are skipped; a unit of NA is printed alone.
func QuantitySummary(items []RawReceivedItem) string {
	var parts []string
	for _, item := range items {
		if item.Received <= 0 {
			continue
		}
		unit := strings.TrimSpace(item.UnitName)
		if strings.EqualFold(unit, "NA") {
			parts = append(parts, "NA")
			continue
		}
		parts = append(parts, strings.TrimSpace(fmt.Sprintf("%s %s", formatAmount(item.Received), unit)))
	}
	if len(parts) == 0 {
		return Placeholder
	}
	return strings.Join(parts, ", ")
}

// RemarksLines builds the ordered remark lines: HOD, witness, BDL, ADL.
func RemarksLines(raw RawReport) []string {
	var lines []string

	if hod := strings.TrimSpace(raw.HODRemark); hod != "" {
		lines = append(lines, hod)
	}

	detail := strings.TrimSpace(raw.WitnessDetail)
	if strings.TrimSpace(raw.WitnessFlag) == raw.Source.WitnessSentinel() && detail != "" {
		lines = append(lines, "The test was witnessed by "+detail)
	}

	if strings.TrimSpace(raw.BDLRemark) != "" {
		lines = append(lines, raw.BDLRemark)
	}
	if strings.TrimSpace(raw.ADLRemark) != "" {
		lines = append(lines, raw.ADLRemark)
	}

	return lines
}

// IsPlaceholderSpecification reports whether spec carries no real specification.
func IsPlaceholderSpecification(spec string) bool {
	return specPlaceholders[strings.ToLower(strings.TrimSpace(spec))]
}

func normalizeResults(results []RawResult) []ResultRow {
	rows := make([]ResultRow, 0, len(results))
	for i, r := range results {
		sno := strings.TrimSpace(r.SNo)
		if sno == "" {
			sno = strconv.Itoa(i + 1)
		}
		rows = append(rows, ResultRow{
			SNo:             sno,
			ParameterName:   orPlaceholder(r.ParameterName),
			UnitDisplay:     orPlaceholder(r.UnitName),
			ResultDisplay:   orPlaceholder(r.Result),
			MethodName:      orPlaceholder(r.MethodName),
			Specification:   strings.TrimSpace(r.Specification),
			ComplianceStyle: strings.TrimSpace(r.Style),
		})
	}
	return rows
}

func normalizeSignatories(raw []RawSignatory) []Signatory {
	out := make([]Signatory, 0, len(raw))
	for _, s := range raw {
		sig := Signatory{
			Title:        strings.TrimSpace(s.Title),
			DisplayName:  firstNonBlank(strings.TrimSpace(s.Name), strings.TrimSpace(s.AuthorizeFor)),
			IsSigned:     s.IsSigned,
			AuthorizeFor: strings.TrimSpace(s.AuthorizeFor),
		}
		// Image fields are only read for signed entries.
		if s.IsSigned {
			sig.SignatureImageRef = strings.TrimSpace(s.SignatureImage)
			sig.DigitalSignatureRef = strings.TrimSpace(s.DigitalSignatureRef)
		}
		out = append(out, sig)
	}
	return out
}

func resolveNABLLogo(n NABLIndicator, opts NormalizeOptions) string {
	switch n.Status {
	case NABLYes:
		if logo := strings.TrimSpace(n.Logo); logo != "" {
			return logo
		}
		return opts.NABLLogo
	case NABLQAI:
		return opts.QAILogo
	default:
		return ""
	}
}

func anyRealSpecification(rows []ResultRow) bool {
	for _, r := range rows {
		if !IsPlaceholderSpecification(r.Specification) {
			return true
		}
	}
	return false
}

func orPlaceholder(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Placeholder
	}
	return s
}
