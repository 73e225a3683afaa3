// Package templates renders the HTML pages of the report service.
// Components are written in .templ files; run `templ generate` after editing them.
package templates

import (
	"fmt"
	"strings"

	"labreports/services"
)

// ReportListItem is one row of the report list.
type ReportListItem struct {
	ID         string
	LRN        string
	BRN        string
	Customer   string
	Stage      string
	StatusCode int
	Created    string
}

// IsDraft reports whether the item renders with a draft watermark.
func (r ReportListItem) IsDraft() bool {
	return r.StatusCode < services.FinalStatusCode
}

// ReportPreviewData is everything the preview page shows.
type ReportPreviewData struct {
	ID    string
	Model services.ReportRenderModel
}

var variantLabels = map[services.Variant]string{
	services.WithLetterhead:           "PDF (Letterhead)",
	services.WithoutLetterhead:        "PDF (Plain)",
	services.WithoutLetterheadTwoSign: "PDF (Two Signatures)",
}

// ExportURL is the download route for a report and variant.
func ExportURL(id string, v services.Variant) string {
	return fmt.Sprintf("/reports/%s/export/%s", id, v.Suffix())
}

// ExcelURL is the XLSX download route for a report.
func ExcelURL(id string) string {
	return fmt.Sprintf("/reports/%s/export/xlsx", id)
}

type infoRow struct {
	Label string
	Value string
}

func sampleInfo(m services.ReportRenderModel) []infoRow {
	return []infoRow{
		{"ULR", orDash(m.Identity.ULR)},
		{"BRN", orDash(m.Identity.BRN)},
		{"Customer", m.Customer.Name},
		{"Address", m.Customer.Address},
		{"Customer Reference", m.Customer.Reference},
		{"Product Name", m.Sample.ProductName},
		{"Sample Description", m.Sample.Description},
		{"Grade", m.Sample.Grade},
		{"Batch No.", m.Sample.BatchNumber},
		{"Quantity Received", m.Sample.QuantityReceivedSummary},
		{"Date of Receipt", m.Dates.Receipt},
		{"Date of Reporting", m.Dates.Reporting},
	}
}

// resultColumns is the colspan of the empty results row.
func resultColumns(m services.ReportRenderModel) string {
	if m.Flags.HasSpecificationColumn {
		return "6"
	}
	return "5"
}

func specificationText(spec string) string {
	if services.IsPlaceholderSpecification(spec) {
		return services.Placeholder
	}
	return spec
}

func signatoryLine(signatories []services.Signatory) string {
	names := make([]string, 0, len(signatories))
	for _, s := range signatories {
		status := "unsigned"
		if s.IsSigned {
			status = "signed"
		}
		names = append(names, fmt.Sprintf("%s, %s (%s)", s.DisplayName, s.Title, status))
	}
	return strings.Join(names, "; ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return services.Placeholder
	}
	return s
}
