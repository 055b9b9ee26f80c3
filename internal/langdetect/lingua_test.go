package langdetect

import "testing"

func TestClassifyConfidences(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		values       []languageConfidence
		wantCode     string
		multilingual bool
	}{
		{
			name:     "single dominant language",
			values:   []languageConfidence{{code: "fr", value: 0.92}, {code: "en", value: 0.05}},
			wantCode: "fr",
		},
		{
			name:         "two languages above floor",
			values:       []languageConfidence{{code: "en", value: 0.55}, {code: "de", value: 0.40}},
			wantCode:     "en",
			multilingual: true,
		},
		{
			name:     "floor is inclusive",
			values:   []languageConfidence{{code: "it", value: 0.20}},
			wantCode: "it",
		},
		{
			name:   "all below floor",
			values: []languageConfidence{{code: "nl", value: 0.10}, {code: "sv", value: 0.05}},
		},
		{
			name: "empty input",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			code, multilingual := classifyConfidences(tc.values)
			if code != tc.wantCode {
				t.Fatalf("expected code %q, got %q", tc.wantCode, code)
			}
			if multilingual != tc.multilingual {
				t.Fatalf("expected multilingual=%v, got %v", tc.multilingual, multilingual)
			}
		})
	}
}

func TestDetectISO6391RejectsShortSamples(t *testing.T) {
	t.Parallel()

	if got := DetectISO6391(""); got != "" {
		t.Fatalf("expected empty result for empty input, got %q", got)
	}
	if got := DetectISO6391("12345 67"); got != "" {
		t.Fatalf("expected empty result for letterless input, got %q", got)
	}
	if got := DetectISO6391("ab cd"); got != "" {
		t.Fatalf("expected empty result below letter minimum, got %q", got)
	}
}
