package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// RGB is a renderer-neutral color.
type RGB struct {
	R, G, B int
}

// Hex returns the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Fixed pass/fail treatments shared by the PDF, XLSX and HTML paths.
var (
	PassBackground = RGB{R: 0, G: 141, B: 76}  // #008d4c
	FailBackground = RGB{R: 221, G: 75, B: 57} // #dd4b39
	VerdictText    = RGB{R: 255, G: 255, B: 255}
)

// CSS classes emitted by the HTML preview.
const (
	ClassPass = "result-pass"
	ClassFail = "result-fail"
)

// Verdict is the outcome of checking a result against its specification.
type Verdict int

const (
	VerdictNeutral Verdict = iota
	VerdictPass
	VerdictFail
)

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "pass"
	case VerdictFail:
		return "fail"
	default:
		return "neutral"
	}
}

var (
	maxSpec   = regexp.MustCompile(`(?i)^\s*max\.?\s*([\d.]+)`)
	minSpec   = regexp.MustCompile(`(?i)^\s*min\.?\s*([\d.]+)`)
	rangeSpec = regexp.MustCompile(`(?i)^\s*([\d.]+)\s*(?:to|-)\s*([\d.]+)`)

	importantFlag = regexp.MustCompile(`(?i)!\s*important`)
	rgbFunc       = regexp.MustCompile(`(?i)^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})`)
)

var namedColors = map[string]RGB{
	"white":  {255, 255, 255},
	"black":  {0, 0, 0},
	"red":    {255, 0, 0},
	"green":  {0, 128, 0},
	"blue":   {0, 0, 255},
	"yellow": {255, 255, 0},
	"orange": {255, 165, 0},
	"gray":   {128, 128, 128},
	"grey":   {128, 128, 128},
}

// EvaluateSpecification checks a numeric result against "max. N", "min. N",
// "A to B" or "A-B". Non-numeric results and unknown patterns are neutral.
func EvaluateSpecification(result, specification string) Verdict {
	value, ok := parseNumber(result)
	if !ok {
		return VerdictNeutral
	}

	if m := maxSpec.FindStringSubmatch(specification); m != nil {
		limit, ok := parseNumber(m[1])
		if !ok {
			return VerdictNeutral
		}
		return verdictOf(value.LessThanOrEqual(limit))
	}

	if m := minSpec.FindStringSubmatch(specification); m != nil {
		limit, ok := parseNumber(m[1])
		if !ok {
			return VerdictNeutral
		}
		return verdictOf(value.GreaterThanOrEqual(limit))
	}

	if m := rangeSpec.FindStringSubmatch(specification); m != nil {
		low, okLow := parseNumber(m[1])
		high, okHigh := parseNumber(m[2])
		if !okLow || !okHigh {
			return VerdictNeutral
		}
		return verdictOf(value.GreaterThanOrEqual(low) && value.LessThanOrEqual(high))
	}

	return VerdictNeutral
}

// ResolveRowClass is the HTML-view counterpart of EvaluateSpecification.
func ResolveRowClass(result, specification string) string {
	switch EvaluateSpecification(result, specification) {
	case VerdictPass:
		return ClassPass
	case VerdictFail:
		return ClassFail
	default:
		return ""
	}
}

// RowStyle is the resolved display treatment of one result cell.
type RowStyle struct {
	DisplayValue string
	Background   *RGB
	Text         *RGB
	Align        string
	Bold         bool
}

// VerdictStyle returns the fixed treatment for a verdict.
func VerdictStyle(v Verdict, display string) RowStyle {
	st := RowStyle{DisplayValue: display}
	switch v {
	case VerdictPass:
		bg, fg := PassBackground, VerdictText
		st.Background, st.Text = &bg, &fg
	case VerdictFail:
		bg, fg := FailBackground, VerdictText
		st.Background, st.Text = &bg, &fg
	}
	return st
}

// ResolveRowStyle applies the server-supplied style string of a row.
// Missing or unparseable declarations leave the cell unstyled.
func ResolveRowStyle(row ResultRow) RowStyle {
	st := RowStyle{DisplayValue: row.ResultDisplay}
	decl := ParseStyleString(row.ComplianceStyle)

	// backgroundColor wins over the background shorthand.
	for _, name := range []string{"background", "backgroundColor"} {
		if c, ok := ParseColor(decl[name]); ok {
			st.Background = &c
		}
	}
	if c, ok := ParseColor(decl["color"]); ok {
		st.Text = &c
	}
	switch strings.ToLower(decl["textAlign"]) {
	case "left", "center", "right":
		st.Align = strings.ToLower(decl["textAlign"])
	}
	switch strings.ToLower(decl["fontWeight"]) {
	case "bold", "bolder", "600", "700", "800", "900":
		st.Bold = true
	}
	return st
}

// ParseStyleString splits a CSS declaration string into camelCased
// property/value pairs, dropping !important. It never fails.
func ParseStyleString(s string) map[string]string {
	out := map[string]string{}
	for _, clause := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(clause, ":")
		if !ok {
			continue
		}
		name = cssToCamel(strings.ToLower(strings.TrimSpace(name)))
		value = strings.TrimSpace(importantFlag.ReplaceAllString(value, ""))
		if name == "" || value == "" {
			continue
		}
		out[name] = value
	}
	return out
}

// ParseColor understands #rgb, #rrggbb, rgb()/rgba() and a few named colors.
// For shorthand values like "#008d4c url(x.png)" the first token is used.
func ParseColor(value string) (RGB, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return RGB{}, false
	}
	if m := rgbFunc.FindStringSubmatch(value); m != nil {
		r, _ := strconv.Atoi(m[1])
		g, _ := strconv.Atoi(m[2])
		b, _ := strconv.Atoi(m[3])
		if r > 255 || g > 255 || b > 255 {
			return RGB{}, false
		}
		return RGB{R: r, G: g, B: b}, true
	}

	token := strings.ToLower(strings.Fields(value)[0])
	if c, ok := namedColors[token]; ok {
		return c, true
	}
	if !strings.HasPrefix(token, "#") {
		return RGB{}, false
	}
	hex := token[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return RGB{}, false
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: int(n >> 16 & 0xff), G: int(n >> 8 & 0xff), B: int(n & 0xff)}, true
}

func cssToCamel(name string) string {
	parts := strings.Split(name, "-")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			b.WriteString(strings.ToUpper(p[:1]) + p[1:])
			continue
		}
		b.WriteString(p)
	}
	return b.String()
}

func parseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func verdictOf(pass bool) Verdict {
	if pass {
		return VerdictPass
	}
	return VerdictFail
}
