package format_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-listbind/internal/format"
)

func TestFormatEarnings(t *testing.T) {
	cases := map[any]string{
		999:       "$999",
		1500:      "$1k+",
		2_300_000: "$2M+",
		"1000":    "$1k+",
		"n/a":     "n/a",
	}
	for value, want := range cases {
		if got := format.Format(value, format.Earnings); got != want {
			t.Fatalf("Format(%v, earnings) = %q, want %q", value, got, want)
		}
	}
}

func TestFormatSpecifiers(t *testing.T) {
	long := strings.Repeat("é", 120)
	cases := []struct {
		value any
		spec  string
		want  string
	}{
		{float64(1500), format.Currency, "$1,500"},
		{12.5, format.Currency, "$12.50"},
		{"abc", format.Currency, "abc"},
		{float64(40), format.Rate, "$40/hr"},
		{nil, format.Rate, "Rate on request"},
		{float64(0), format.Rate, "Rate on request"},
		{4.26, format.Rating, "4.3"},
		{float64(4), format.Rating, "4.0"},
		{float64(1234567), format.Number, "1,234,567"},
		{long, format.Truncate, strings.Repeat("é", 100) + "..."},
		{"short", format.Truncate, "short"},
		{true, format.Boolean, "Yes"},
		{"false", format.Boolean, "No"},
		{float64(0), format.Boolean, "No"},
		{true, format.Availability, "Available"},
		{false, format.Availability, "Not Available"},
		{"maybe", format.Availability, "maybe"},
		{"Berlin", "unknown", "Berlin"},
		{float64(7), "", "7"},
		{nil, format.Currency, ""},
		{float64(40), " RATE ", "$40/hr"},
	}
	for _, tc := range cases {
		if got := format.Format(tc.value, tc.spec); got != tc.want {
			t.Fatalf("Format(%v, %q) = %q, want %q", tc.value, tc.spec, got, tc.want)
		}
	}
}

func TestRenderStars(t *testing.T) {
	cases := map[float64]format.Stars{
		4.0: {Full: 4, Half: 0, Empty: 1},
		4.5: {Full: 4, Half: 1, Empty: 0},
		0.3: {Full: 0, Half: 0, Empty: 5},
		4.7: {Full: 4, Half: 1, Empty: 0},
		7:   {Full: 5, Half: 0, Empty: 0},
		-1:  {Full: 0, Half: 0, Empty: 5},
	}
	for score, want := range cases {
		if diff := cmp.Diff(want, format.RenderStars(score)); diff != "" {
			t.Fatalf("RenderStars(%v) mismatch (-want +got):\n%s", score, diff)
		}
	}
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out, err := format.RenderMarkdown("**Go** developer <script>alert(1)</script>")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<strong>Go</strong>") {
		t.Fatalf("expected emphasis, got %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected script to be stripped, got %q", out)
	}
}
