package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// ErrNotJSONObject is returned when a report payload is not a JSON object.
var ErrNotJSONObject = errors.New("report payload is not a JSON object")

// Source identifies which backend endpoint produced a report payload.
// The endpoints differ slightly in shape and in the witness sentinel.
type Source int

const (
	SourceDraftView Source = iota
	SourceReviewView
)

// ParseSource maps a stored stage name to a Source. Unknown names are treated
// as the draft view.
func ParseSource(stage string) Source {
	switch strings.ToLower(strings.TrimSpace(stage)) {
	case "review", "hod", "qa", "hod_review", "qa_review":
		return SourceReviewView
	default:
		return SourceDraftView
	}
}

func (s Source) String() string {
	if s == SourceReviewView {
		return "review"
	}
	return "draft"
}

// WitnessSentinel is the witness flag value that means "witnessed" for this source.
func (s Source) WitnessSentinel() string {
	if s == SourceReviewView {
		return "2"
	}
	return "1"
}

// Shape records which wire form a polymorphic field arrived in.
type Shape int

const (
	ShapeAbsent Shape = iota
	ShapeNumber
	ShapeObject
)

// NABLIndicator is the accreditation indicator, sent either as {status, logo}
// or as a bare number.
type NABLIndicator struct {
	Shape  Shape
	Status int
	Logo   string
}

// StatusIndicator is the workflow status, sent either as {code} or as a bare number.
type StatusIndicator struct {
	Shape Shape
	Code  int
}

// RawCustomer is the customer block as found in the payload.
type RawCustomer struct {
	Name          string
	Address       string
	ContactPerson string
	ShowContact   bool
	Reference     string
}

// RawReceivedItem is one received-quantity row.
type RawReceivedItem struct {
	Received float64
	UnitName string
}

// RawResult is one test-result row.
type RawResult struct {
	SNo           string
	ParameterName string
	UnitName      string
	Result        string
	MethodName    string
	Specification string
	Style         string
}

// RawSignatory is one signatory entry.
type RawSignatory struct {
	Title               string
	Name                string
	AuthorizeFor        string
	IsSigned            bool
	SignatureImage      string
	DigitalSignatureRef string
}

// RawReport is a decoded report payload with every polymorphic field resolved.
// Downstream code never looks at the wire shapes again.
type RawReport struct {
	Source Source

	ULR           string
	LRN           string
	BRN           string
	KTRCReference string
	NABL          NABLIndicator
	Status        StatusIndicator

	Customer RawCustomer

	ProductName       string
	SampleDescription string
	Grade             string
	BatchNumber       string
	ReceivedItems     []RawReceivedItem

	ReceiptDate     string
	SampleCondition string
	Packing         string
	TestStartDate   string
	TestEndDate     string
	ReportingDate   string

	Results []RawResult

	HODRemark     string
	WitnessFlag   string
	WitnessDetail string
	BDLRemark     string
	ADLRemark     string

	Signatories []RawSignatory

	HasSpecs bool
}

// DecodeReport decodes a backend report payload. It fails only when data is
// not a JSON object; individual fields of the wrong type decode as zero values.
func DecodeReport(data []byte, source Source) (RawReport, error) {
	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return RawReport{}, fmt.Errorf("decode report payload: %w", err)
	}
	f, ok := top.(map[string]any)
	if !ok {
		return RawReport{}, ErrNotJSONObject
	}
	// Some endpoints wrap the report in a {"data": {...}} envelope.
	if inner, ok := f["data"].(map[string]any); ok && len(f) <= 3 {
		f = inner
	}
	return decodeFields(fields(f), source), nil
}

func decodeFields(f fields, source Source) RawReport {
	raw := RawReport{
		Source:        source,
		ULR:           f.str("ulr", "ulr_no"),
		LRN:           f.str("lrn", "lrn_no"),
		BRN:           f.str("brn", "brn_no"),
		KTRCReference: f.str("ktrc_ref", "ktrc_reference"),
		NABL:          decodeNABL(f),
		Status:        decodeStatus(f),

		ProductName:       f.str("product_name"),
		SampleDescription: f.str("sample_description", "description"),
		Grade:             f.str("grade"),
		BatchNumber:       f.str("batch_no", "batchNo", "BatchNo"),

		ReceiptDate:     f.str("receipt_date", "date_of_receipt"),
		SampleCondition: f.str("sample_condition", "condition"),
		Packing:         f.str("packing", "packing_details"),
		TestStartDate:   f.str("test_start_date", "start_date"),
		TestEndDate:     f.str("test_end_date", "end_date"),
		ReportingDate:   f.str("reporting_date", "report_date"),

		HODRemark:     f.str("hod_remark", "hod_remarks"),
		WitnessFlag:   f.str("witness"),
		WitnessDetail: f.str("witness_detail", "witness_details"),
		BDLRemark:     f.str("bdl_remark"),
		ADLRemark:     f.str("adl_remark"),

		HasSpecs: f.flag("has_specs", "hasSpecs"),
	}

	c := f.obj("customer")
	raw.Customer = RawCustomer{
		Name:          firstNonBlank(c.str("name"), f.str("customer_name")),
		Address:       firstNonBlank(c.str("address"), f.str("customer_address")),
		ContactPerson: firstNonBlank(c.str("contact_person"), f.str("contact_person")),
		ShowContact:   c.flag("show_contact") || f.flag("show_contact"),
		Reference:     firstNonBlank(c.str("reference"), f.str("customer_reference", "customer_ref")),
	}

	for _, item := range f.list("received_items", "quantity_received") {
		raw.ReceivedItems = append(raw.ReceivedItems, RawReceivedItem{
			Received: item.num("received"),
			UnitName: item.str("unit_name", "unit"),
		})
	}

	for _, r := range f.list("test_results", "results") {
		raw.Results = append(raw.Results, RawResult{
			SNo:           r.str("sno", "s_no"),
			ParameterName: r.str("parameter_name", "parameter"),
			UnitName:      r.str("unit_name", "unit"),
			Result:        r.str("result"),
			MethodName:    r.str("method_name", "method"),
			Specification: r.str("specification", "spec"),
			Style:         r.str("style"),
		})
	}

	for _, s := range f.list("signatories", "signatures") {
		raw.Signatories = append(raw.Signatories, RawSignatory{
			Title:               s.str("title", "designation"),
			Name:                s.str("name"),
			AuthorizeFor:        s.str("authorize_for"),
			IsSigned:            s.flag("is_signed", "signed"),
			SignatureImage:      s.str("signature", "signature_image"),
			DigitalSignatureRef: s.str("digital_signature"),
		})
	}

	return raw
}

func decodeNABL(f fields) NABLIndicator {
	v, ok := f.lookup("nabl", "nabl_status")
	if !ok {
		return NABLIndicator{}
	}
	if m, ok := v.(map[string]any); ok {
		o := fields(m)
		return NABLIndicator{Shape: ShapeObject, Status: int(o.num("status")), Logo: o.str("logo")}
	}
	status, err := toCode(v)
	if err != nil {
		return NABLIndicator{}
	}
	return NABLIndicator{Shape: ShapeNumber, Status: status}
}

func decodeStatus(f fields) StatusIndicator {
	v, ok := f.lookup("report_status", "status")
	if !ok {
		return StatusIndicator{}
	}
	if m, ok := v.(map[string]any); ok {
		return StatusIndicator{Shape: ShapeObject, Code: int(fields(m).num("code"))}
	}
	code, err := toCode(v)
	if err != nil {
		return StatusIndicator{}
	}
	return StatusIndicator{Shape: ShapeNumber, Code: code}
}

// toCode reads a numeric code. Strings are read as decimal, so a
// zero-padded "09" is 9 rather than a malformed octal literal.
func toCode(v any) (int, error) {
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	n, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// fields is a lenient view over a decoded JSON object.
type fields map[string]any

// lookup returns the first present, non-null value among keys.
func (f fields) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// str returns the first non-blank scalar among keys as a string.
func (f fields) str(keys ...string) string {
	for _, k := range keys {
		v, ok := f[k]
		if !ok || v == nil {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil || strings.TrimSpace(s) == "" {
			continue
		}
		return s
	}
	return ""
}

// num returns the first numeric value among keys, or 0.
func (f fields) num(keys ...string) float64 {
	for _, k := range keys {
		v, ok := f[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr {
			v = strings.TrimSpace(s)
		}
		n, err := cast.ToFloat64E(v)
		if err == nil {
			return n
		}
	}
	return 0
}

// flag interprets bools, 1/0 and "true"/"yes" style strings.
func (f fields) flag(keys ...string) bool {
	v, ok := f.lookup(keys...)
	if !ok {
		return false
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	switch strings.ToLower(strings.TrimSpace(cast.ToString(v))) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func (f fields) obj(keys ...string) fields {
	for _, k := range keys {
		if m, ok := f[k].(map[string]any); ok {
			return fields(m)
		}
	}
	return fields{}
}

func (f fields) list(keys ...string) []fields {
	for _, k := range keys {
		items, ok := f[k].([]any)
		if !ok {
			continue
		}
		out := make([]fields, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, fields(m))
			}
		}
		return out
	}
	return nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
