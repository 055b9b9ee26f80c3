package httpapi

import "testing"

func TestValidateObservationPayload(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		valid   bool
	}{
		{
			name:    "minimal valid",
			payload: `{"gtin": 4006381333931, "source": "shopA"}`,
			valid:   true,
		},
		{
			name: "full valid",
			payload: `{
				"gtin": 4006381333931,
				"source": "shopA",
				"url": "https://shopA.example/p/1",
				"fetched_at": "2026-08-28T10:00:00Z",
				"attributes": {"COLOR": "black"},
				"price": {"amount": 49.9, "currency": "EUR"},
				"media_urls": [{"url": "https://img.example/a.png", "primary": true}]
			}`,
			valid: true,
		},
		{
			name:    "missing source",
			payload: `{"gtin": 1}`,
			valid:   false,
		},
		{
			name:    "zero gtin",
			payload: `{"gtin": 0, "source": "shopA"}`,
			valid:   false,
		},
		{
			name:    "unknown field",
			payload: `{"gtin": 1, "source": "shopA", "extra": true}`,
			valid:   false,
		},
		{
			name:    "negative price",
			payload: `{"gtin": 1, "source": "shopA", "price": {"amount": -1}}`,
			valid:   false,
		},
		{
			name:    "bad currency",
			payload: `{"gtin": 1, "source": "shopA", "price": {"amount": 1, "currency": "EURO"}}`,
			valid:   false,
		},
		{
			name:    "media url without url",
			payload: `{"gtin": 1, "source": "shopA", "media_urls": [{"primary": true}]}`,
			valid:   false,
		},
		{
			name:    "empty body",
			payload: ``,
			valid:   false,
		},
		{
			name:    "trailing content",
			payload: `{"gtin": 1, "source": "shopA"} {}`,
			valid:   false,
		},
		{
			name:    "not an object",
			payload: `[1, 2]`,
			valid:   false,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := validateObservationPayload([]byte(tc.payload))
			if tc.valid && err != nil {
				t.Fatalf("expected payload accepted, got %v", err)
			}
			if !tc.valid && err == nil {
				t.Fatalf("expected payload rejected")
			}
		})
	}
}
