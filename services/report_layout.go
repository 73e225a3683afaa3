package services

import (
	"fmt"
	"strings"

	"labreports/config"
)

// Variant is one of the fixed certificate layouts.
type Variant int

const (
	WithLetterhead Variant = iota
	WithoutLetterhead
	WithoutLetterheadTwoSign
)

// Variants lists every variant in button order.
var Variants = []Variant{WithLetterhead, WithoutLetterhead, WithoutLetterheadTwoSign}

func (v Variant) String() string {
	switch v {
	case WithLetterhead:
		return "WithLetterhead"
	case WithoutLetterhead:
		return "WithoutLetterhead"
	case WithoutLetterheadTwoSign:
		return "WithoutLetterheadTwoSign"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Suffix is the short name used in export filenames and URLs.
func (v Variant) Suffix() string {
	switch v {
	case WithLetterhead:
		return "WithLH"
	case WithoutLetterhead:
		return "WoLH"
	case WithoutLetterheadTwoSign:
		return "WoLH_2Sign"
	default:
		return "Unknown"
	}
}

// Orientation of the rendered page.
func (v Variant) Orientation() Orientation {
	if v == WithoutLetterheadTwoSign {
		return Landscape
	}
	return Portrait
}

// SupportsWatermark reports whether drafts of this variant carry a watermark.
func (v Variant) SupportsWatermark() bool {
	return v == WithLetterhead || v == WithoutLetterheadTwoSign
}

// ParseVariant accepts a variant name or its filename suffix, case-insensitively.
func ParseVariant(s string) (Variant, error) {
	s = strings.TrimSpace(s)
	for _, v := range Variants {
		if strings.EqualFold(s, v.String()) || strings.EqualFold(s, v.Suffix()) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown report variant %q", s)
}

// Orientation is the page orientation of a document.
type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	if o == Landscape {
		return "landscape"
	}
	return "portrait"
}

// GridSize is the number of grid units in a full-width row; cell widths are percentages.
const GridSize = 100

// SectionKind names a sub-block of a certificate.
type SectionKind string

const (
	SectionLetterhead   SectionKind = "letterhead"
	SectionTitle        SectionKind = "title"
	SectionStamp        SectionKind = "stamp"
	SectionReference    SectionKind = "reference"
	SectionCustomerInfo SectionKind = "customer_info"
	SectionResults      SectionKind = "results"
	SectionRemarks      SectionKind = "remarks"
	SectionEndOfReport  SectionKind = "end_of_report"
	SectionSignatures   SectionKind = "signatures"
	SectionFooter       SectionKind = "footer"
)

// Align is horizontal text alignment within a cell.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// CellStyle is the renderer-neutral look of a cell.
type CellStyle struct {
	Size       float64
	Bold       bool
	Italic     bool
	Align      Align
	Color      *RGB
	Background *RGB
	Border     bool
}

// Cell is one column of a row. Width is in grid units of GridSize.
type Cell struct {
	Width int
	Text  string
	// Image is an asset reference drawn instead of Text when set.
	Image string
	// Vertical text is drawn rotated by 90 degrees.
	Vertical bool
	Style    CellStyle
}

// Row is a horizontal band of cells. A zero Height sizes the row to its content.
type Row struct {
	Height float64
	Cells  []Cell
}

// Section is a named group of rows.
type Section struct {
	Kind SectionKind
	Rows []Row
}

// PageTree is the complete, renderer-neutral description of a certificate.
type PageTree struct {
	Variant       Variant
	Orientation   Orientation
	Watermark     bool
	WatermarkText string
	// Header and Footer repeat on every page.
	Header []Section
	Footer []Section
	Body   []Section
}

// Section returns the first body, header or footer section of the given kind.
func (t PageTree) Section(kind SectionKind) (Section, bool) {
	for _, group := range [][]Section{t.Header, t.Body, t.Footer} {
		for _, s := range group {
			if s.Kind == kind {
				return s, true
			}
		}
	}
	return Section{}, false
}

// Images returns every distinct asset reference used by the tree, in order of appearance.
func (t PageTree) Images() []string {
	seen := map[string]bool{}
	var refs []string
	t.eachCell(func(c Cell) {
		if c.Image != "" && !seen[c.Image] {
			seen[c.Image] = true
			refs = append(refs, c.Image)
		}
	})
	return refs
}

// eachCell visits every cell of the header, body and footer.
func (t PageTree) eachCell(fn func(Cell)) {
	for _, group := range [][]Section{t.Header, t.Body, t.Footer} {
		for _, s := range group {
			for _, rw := range s.Rows {
				for _, c := range rw.Cells {
					fn(c)
				}
			}
		}
	}
}

// Texts flattens the text of every cell of the section, row by row.
func (s Section) Texts() [][]string {
	out := make([][]string, 0, len(s.Rows))
	for _, r := range s.Rows {
		var line []string
		for _, c := range r.Cells {
			line = append(line, c.Text)
		}
		out = append(out, line)
	}
	return out
}

// Column presets in percent. Portrait and landscape differ; letterhead does not.
// When the specification column is absent the alternate preset is used as is.
var (
	portraitWithSpec  = []int{5, 30, 8, 12, 22, 18}
	portraitNoSpec    = []int{5, 33, 9, 15, 33}
	landscapeWithSpec = []int{4, 28, 8, 12, 28, 20}
	landscapeNoSpec   = []int{4, 34, 10, 16, 36}
)

// ColumnWidths returns the results-table widths for an orientation.
func ColumnWidths(o Orientation, withSpec bool) []int {
	var preset []int
	switch {
	case o == Landscape && withSpec:
		preset = landscapeWithSpec
	case o == Landscape:
		preset = landscapeNoSpec
	case withSpec:
		preset = portraitWithSpec
	default:
		preset = portraitNoSpec
	}
	return append([]int(nil), preset...)
}

// NoResultsText fills the results body when a report has no rows.
const NoResultsText = "No test results found."

// EndOfReportText marks the end of the certificate body.
const EndOfReportText = "*** End of Report ***"

// DraftWatermarkText is overlaid on draft certificates.
const DraftWatermarkText = "DRAFT"

var (
	headerGray = RGB{R: 230, G: 230, B: 230}
	mutedText  = RGB{R: 90, G: 90, B: 90}
)

// BuildDocument composes the page tree for a variant. It reads the model and
// letterhead only; calling it twice yields equal trees.
func BuildDocument(model ReportRenderModel, variant Variant, lh config.Letterhead) PageTree {
	tree := PageTree{
		Variant:     variant,
		Orientation: variant.Orientation(),
		Watermark:   variant.SupportsWatermark() && model.Flags.IsDraft,
	}
	if tree.Watermark {
		tree.WatermarkText = DraftWatermarkText
	}

	if variant == WithLetterhead {
		tree.Header = []Section{letterheadSection(lh)}
		tree.Footer = []Section{footerSection(lh)}
	}

	if variant == WithoutLetterheadTwoSign {
		tree.Body = append(tree.Body, stampSection(model))
	} else {
		tree.Body = append(tree.Body, titleSection(model))
	}

	tree.Body = append(tree.Body,
		referenceSection(model),
		customerInfoSection(model),
		resultsSection(model, tree.Orientation),
	)

	if len(model.RemarksLines) > 0 {
		tree.Body = append(tree.Body, remarksSection(model.RemarksLines))
	}

	tree.Body = append(tree.Body, Section{
		Kind: SectionEndOfReport,
		Rows: []Row{{Height: 8, Cells: []Cell{{
			Width: GridSize,
			Text:  EndOfReportText,
			Style: CellStyle{Size: 8, Bold: true, Align: AlignCenter},
		}}}},
	})

	if variant == WithoutLetterheadTwoSign {
		tree.Body = append(tree.Body, twoSignSection(PartitionForTwoSign(model.Signatories)))
	} else {
		tree.Body = append(tree.Body, signaturesSection(model.Signatories))
	}

	return tree
}

// letterheadSection holds the three company logos and the rotated ISO label.
func letterheadSection(lh config.Letterhead) Section {
	center := Cell{Width: 56, Image: lh.CenterLogo}
	if lh.CenterLogo == "" {
		center = Cell{
			Width: 56,
			Text:  lh.CompanyName,
			Style: CellStyle{Size: 14, Bold: true, Align: AlignCenter},
		}
	}

	cells := []Cell{
		{Width: 20, Image: lh.LeftLogo},
		center,
		{Width: 20, Image: lh.RightLogo},
	}
	if lh.ISOLabel != "" {
		cells = append(cells, Cell{
			Width:    4,
			Text:     lh.ISOLabel,
			Vertical: true,
			Style:    CellStyle{Size: 6, Color: &mutedText},
		})
	}

	return Section{
		Kind: SectionLetterhead,
		Rows: []Row{
			{Height: 22, Cells: cells},
			{Height: 3},
		},
	}
}

// footerSection holds the company contact block and the terms paragraph.
func footerSection(lh config.Letterhead) Section {
	var contact []string
	if lh.CompanyName != "" {
		contact = append(contact, lh.CompanyName)
	}
	contact = append(contact, lh.AddressLines...)
	for _, s := range []string{lh.Phone, lh.Email, lh.Website} {
		if s != "" {
			contact = append(contact, s)
		}
	}

	return Section{
		Kind: SectionFooter,
		Rows: []Row{
			{Height: 6, Cells: []Cell{{
				Width: GridSize,
				Text:  strings.Join(contact, " | "),
				Style: CellStyle{Size: 7, Bold: true, Align: AlignCenter},
			}}},
			{Height: 12, Cells: []Cell{{
				Width: GridSize,
				Text:  lh.Terms,
				Style: CellStyle{Size: 6, Color: &mutedText},
			}}},
		},
	}
}

func titleSection(model ReportRenderModel) Section {
	titleWidth := GridSize
	var logo []Cell
	if model.NABLLogo != "" {
		titleWidth = 80
		logo = []Cell{{Width: 20, Image: model.NABLLogo}}
	}

	title := Cell{
		Width: titleWidth,
		Text:  "TEST REPORT",
		Style: CellStyle{Size: 14, Bold: true, Align: AlignCenter},
	}

	return Section{
		Kind: SectionTitle,
		Rows: []Row{
			{Height: 12, Cells: append([]Cell{title}, logo...)},
			{Height: 6, Cells: []Cell{
				{Width: 50, Text: "LRN: " + orPlaceholder(model.Identity.LRN), Style: CellStyle{Size: 9, Bold: true}},
				{Width: 50, Text: "BRN: " + orPlaceholder(model.Identity.BRN), Style: CellStyle{Size: 9, Bold: true, Align: AlignRight}},
			}},
		},
	}
}

// stampSection is the landscape top band: centered certification stamp, LRN on the right.
func stampSection(model ReportRenderModel) Section {
	return Section{
		Kind: SectionStamp,
		Rows: []Row{{Height: 16, Cells: []Cell{
			{Width: 35},
			{Width: 30, Image: model.NABLLogo},
			{Width: 35, Text: "LRN: " + orPlaceholder(model.Identity.LRN), Style: CellStyle{Size: 9, Bold: true, Align: AlignRight}},
		}}},
	}
}

func referenceSection(model ReportRenderModel) Section {
	return Section{
		Kind: SectionReference,
		Rows: []Row{{Height: 6, Cells: []Cell{
			{Width: 50, Text: "ULR: " + orPlaceholder(model.Identity.ULR), Style: CellStyle{Size: 8}},
			{Width: 50, Text: "Ref: " + orPlaceholder(model.Identity.KTRCReference), Style: CellStyle{Size: 8, Align: AlignRight}},
		}}},
	}
}

func customerInfoSection(model ReportRenderModel) Section {
	type pair struct{ label, value string }

	customer := model.Customer.Name
	if model.Customer.Address != Placeholder {
		customer += ", " + model.Customer.Address
	}

	pairs := []pair{{"Customer Name & Address", customer}}
	if model.Customer.ShowContact && model.Customer.ContactPerson != "" {
		pairs = append(pairs, pair{"Contact Person", model.Customer.ContactPerson})
	}
	pairs = append(pairs,
		pair{"Customer Reference", model.Customer.Reference},
		pair{"Product Name", model.Sample.ProductName},
		pair{"Sample Description", model.Sample.Description},
		pair{"Grade", model.Sample.Grade},
		pair{"Batch No.", model.Sample.BatchNumber},
		pair{"Quantity Received", model.Sample.QuantityReceivedSummary},
		pair{"Date of Receipt", model.Dates.Receipt},
		pair{"Sample Condition", model.Dates.ConditionLabel},
		pair{"Packing", model.Dates.PackingLabel},
		pair{"Date of Start of Test", model.Dates.TestStart},
		pair{"Date of Completion of Test", model.Dates.TestEnd},
		pair{"Date of Reporting", model.Dates.Reporting},
	)

	rows := make([]Row, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, Row{Cells: []Cell{
			{Width: 30, Text: p.label, Style: CellStyle{Size: 8, Bold: true, Border: true}},
			{Width: 70, Text: p.value, Style: CellStyle{Size: 8, Border: true}},
		}})
	}
	return Section{Kind: SectionCustomerInfo, Rows: append([]Row{{Height: 3}}, rows...)}
}

func resultsSection(model ReportRenderModel, o Orientation) Section {
	withSpec := model.Flags.HasSpecificationColumn
	widths := ColumnWidths(o, withSpec)

	headers := []string{"S.No", "Parameter", "Unit", "Result", "Method"}
	if withSpec {
		headers = append(headers, "Specification")
	}

	header := Row{Height: 7}
	for i, h := range headers {
		header.Cells = append(header.Cells, Cell{
			Width: widths[i],
			Text:  h,
			Style: CellStyle{Size: 8, Bold: true, Align: AlignCenter, Background: &headerGray, Border: true},
		})
	}

	rows := []Row{{Height: 4}, header}

	if len(model.ResultRows) == 0 {
		rows = append(rows, Row{Height: 7, Cells: []Cell{{
			Width: GridSize,
			Text:  NoResultsText,
			Style: CellStyle{Size: 8, Align: AlignCenter, Border: true},
		}}})
		return Section{Kind: SectionResults, Rows: rows}
	}

	for _, r := range model.ResultRows {
		rows = append(rows, resultRow(r, widths, withSpec))
	}
	return Section{Kind: SectionResults, Rows: rows}
}

func resultRow(r ResultRow, widths []int, withSpec bool) Row {
	body := CellStyle{Size: 8, Border: true}
	centered := body
	centered.Align = AlignCenter

	rs := ResolveRowStyle(r)
	result := centered
	if rs.Align != "" {
		result.Align = Align(rs.Align)
	}
	result.Bold = rs.Bold
	result.Background = rs.Background
	result.Color = rs.Text

	cells := []Cell{
		{Width: widths[0], Text: r.SNo, Style: centered},
		{Width: widths[1], Text: r.ParameterName, Style: body},
		{Width: widths[2], Text: r.UnitDisplay, Style: centered},
		{Width: widths[3], Text: rs.DisplayValue, Style: result},
		{Width: widths[4], Text: r.MethodName, Style: body},
	}
	if withSpec {
		spec := r.Specification
		if IsPlaceholderSpecification(spec) {
			spec = Placeholder
		}
		cells = append(cells, Cell{Width: widths[5], Text: spec, Style: centered})
	}
	return Row{Cells: cells}
}

func remarksSection(lines []string) Section {
	rows := []Row{
		{Height: 3},
		{Height: 6, Cells: []Cell{{Width: GridSize, Text: "Remarks:", Style: CellStyle{Size: 9, Bold: true}}}},
	}
	for _, line := range lines {
		rows = append(rows, Row{Cells: []Cell{{Width: GridSize, Text: line, Style: CellStyle{Size: 8}}}})
	}
	return Section{Kind: SectionRemarks, Rows: rows}
}

// maxSignaturesPerRow bounds how many portrait signature blocks share a row.
const maxSignaturesPerRow = 4

func signaturesSection(signatories []Signatory) Section {
	rows := []Row{{Height: 6}}
	for start := 0; start < len(signatories); start += maxSignaturesPerRow {
		end := min(start+maxSignaturesPerRow, len(signatories))
		chunk := signatories[start:end]
		width := GridSize / len(chunk)

		slots := make([]*Signatory, len(chunk))
		for i := range chunk {
			slots[i] = &chunk[i]
		}
		rows = append(rows, signatureRows(slots, width, nil)...)
	}
	return Section{Kind: SectionSignatures, Rows: rows}
}

func twoSignSection(slots TwoSignSlots) Section {
	rows := []Row{{Height: 6}}
	roles := []string{RoleReviewed.Label(), RoleAuthorized.Label()}
	rows = append(rows, signatureRows([]*Signatory{slots.Reviewed, slots.Authorized}, GridSize/2, roles)...)
	return Section{Kind: SectionSignatures, Rows: rows}
}

// signatureRows lays out signature blocks side by side: image, name, title, authorization.
// Unsigned or empty slots keep their width with a blank image band. A blank
// title falls back to the matching entry of roles, when given.
func signatureRows(slots []*Signatory, width int, roles []string) []Row {
	image := Row{Height: 16}
	name := Row{Height: 5}
	title := Row{Height: 5}
	authz := Row{Height: 5}
	hasAuthz := false

	for i, s := range slots {
		if s == nil {
			image.Cells = append(image.Cells, Cell{Width: width})
			name.Cells = append(name.Cells, Cell{Width: width})
			title.Cells = append(title.Cells, Cell{Width: width})
			authz.Cells = append(authz.Cells, Cell{Width: width})
			continue
		}

		img := Cell{Width: width}
		if s.IsSigned {
			img.Image = firstNonBlank(s.SignatureImageRef, s.DigitalSignatureRef)
		}
		image.Cells = append(image.Cells, img)

		name.Cells = append(name.Cells, Cell{
			Width: width,
			Text:  s.DisplayName,
			Style: CellStyle{Size: 8, Bold: true, Align: AlignCenter},
		})
		label := s.Title
		if strings.TrimSpace(label) == "" && i < len(roles) {
			label = roles[i]
		}
		title.Cells = append(title.Cells, Cell{
			Width: width,
			Text:  label,
			Style: CellStyle{Size: 8, Align: AlignCenter},
		})

		var note string
		if s.AuthorizeFor != "" && s.AuthorizeFor != s.DisplayName {
			note = "Authorized for: " + s.AuthorizeFor
			hasAuthz = true
		}
		authz.Cells = append(authz.Cells, Cell{
			Width: width,
			Text:  note,
			Style: CellStyle{Size: 7, Italic: true, Align: AlignCenter, Color: &mutedText},
		})
	}

	rows := []Row{image, name, title}
	if hasAuthz {
		rows = append(rows, authz)
	}
	return rows
}
