package media

import (
	"strings"
	"testing"
)

func TestDecodePDFString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Hello", want: "Hello"},
		{name: "escaped parens", in: `a\(b\)c`, want: "a(b)c"},
		{name: "newline escape", in: `a\nb`, want: "a\nb"},
		{name: "octal escape", in: `\101BC`, want: "ABC"},
		{name: "short octal", in: `\75`, want: "="},
		{name: "backslash", in: `a\\b`, want: `a\b`},
		{name: "trailing backslash", in: `a\`, want: `a\`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := decodePDFString([]byte(tc.in)); got != tc.want {
				t.Fatalf("decodePDFString(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCollapsePDFText(t *testing.T) {
	t.Parallel()

	got := collapsePDFText("  User \n\n manual\t\tfor   watches ")
	if got != "User manual for watches" {
		t.Fatalf("unexpected collapsed text: %q", got)
	}
}

func TestParseContentStreamExtractsTextAndFontRuns(t *testing.T) {
	t.Parallel()

	stream := strings.Join([]string{
		"BT",
		"/F1 24 Tf",
		"(User Manual) Tj",
		"/F1 10 Tf",
		"(Model WR100 water resistance) Tj",
		"T*",
		"(Do not open the case) Tj",
		"ET",
	}, "\n")

	content := parseContentStream([]byte(stream))
	if !strings.Contains(content.text, "User Manual") || !strings.Contains(content.text, "Model WR100") {
		t.Fatalf("unexpected page text: %q", content.text)
	}
	if got := content.largestFontRun(); got != "User Manual" {
		t.Fatalf("expected largest-font run as title, got %q", got)
	}
}

func TestLargestFontRunIgnoresBlankRuns(t *testing.T) {
	t.Parallel()

	content := pageContent{runs: []fontRun{
		{size: 30, text: "   "},
		{size: 12, text: "Quick start guide"},
	}}
	if got := content.largestFontRun(); got != "Quick start guide" {
		t.Fatalf("expected blank run skipped, got %q", got)
	}
}

func TestTruncateTitle(t *testing.T) {
	t.Parallel()

	if got := truncateTitle("  padded  "); got != "padded" {
		t.Fatalf("expected trimmed title, got %q", got)
	}
	long := strings.Repeat("x", 300)
	if got := truncateTitle(long); len(got) != 200 {
		t.Fatalf("expected 200 char cap, got %d", len(got))
	}
}
