package referentiel

import (
	"reflect"
	"testing"
)

func TestExtractUIDs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want []string
	}{
		{name: "single uid", in: "WR100", want: []string{"WR100"}},
		{name: "dash separator", in: "WR-100", want: []string{"WR-100"}},
		{name: "slash separator", in: "KD-55/X80", want: []string{"KD-55/X80"}},
		{name: "no digits rejected", in: "PREMIUM", want: []string{}},
		{name: "multiple uids", in: "WR100 DW5600", want: []string{"WR100", "DW5600"}},
		{name: "empty", in: "  ", want: nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractUIDs(tc.in, 3, 24)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractUIDs(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestCanonicalUID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{in: "WR-100", want: "WR100"},
		{in: "KD-55/X80", want: "KD55X80"},
		{in: "WR100", want: "WR100"},
	}
	for _, tc := range cases {
		if got := CanonicalUID(tc.in); got != tc.want {
			t.Fatalf("CanonicalUID(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractUIDsLengthBounds(t *testing.T) {
	t.Parallel()

	if got := ExtractUIDs("A1", 3, 24); len(got) != 0 {
		t.Fatalf("expected too-short token rejected, got %v", got)
	}
	if got := ExtractUIDs("A12345678901234567890123456789", 3, 24); len(got) != 0 {
		t.Fatalf("expected too-long token rejected, got %v", got)
	}
}
