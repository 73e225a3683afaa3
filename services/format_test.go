package services

import "testing"

func TestFormatReportDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"blank", "", Placeholder},
		{"whitespace", "   ", Placeholder},
		{"iso date", "2024-09-07", "07/09/2024"},
		{"iso datetime", "2024-09-07T10:15:00", "07/09/2024"},
		{"rfc3339", "2024-09-07T10:15:00+05:30", "07/09/2024"},
		{"sql datetime", "2024-09-07 10:15:00", "07/09/2024"},
		{"dashed dmy", "07-09-2024", "07/09/2024"},
		{"already formatted", "07/09/2024", "07/09/2024"},
		{"unknown layout", "Sept 7th", "Sept 7th"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatReportDate(tt.input)
			if got != tt.expect {
				t.Errorf("FormatReportDate(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		input  float64
		expect string
	}{
		{2, "2"},
		{2.5, "2.5"},
		{0.125, "0.125"},
		{100, "100"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.input); got != tt.expect {
			t.Errorf("formatAmount(%v) = %q, want %q", tt.input, got, tt.expect)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"KTRC/24/0917", "KTRC-24-0917"},
		{"a b", "a-b"},
		{`x\y:z`, "x-y-z"},
		{"report", "report"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.expect {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expect)
		}
	}
}
