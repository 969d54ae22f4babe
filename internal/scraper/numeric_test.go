package scraper

import "testing"

func TestCleanText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "Vinho Tinto", want: "Vinho Tinto"},
		{name: "collapses runs", in: "Vinho   de \t Mesa", want: "Vinho de Mesa"},
		{name: "non-breaking space", in: "Vinho Tinto", want: "Vinho Tinto"},
		{name: "trims", in: "  Total  ", want: "Total"},
		{name: "empty", in: "", want: ""},
		{name: "only whitespace", in: "  \t ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Fatalf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want any
	}{
		{name: "integer", in: "12345", want: int64(12345)},
		{name: "negative integer", in: "-42", want: int64(-42)},
		{name: "comma decimal", in: "156,43", want: 156.43},
		{name: "negative comma decimal", in: "-3,5", want: -3.5},
		{name: "dot decimal", in: "156.43", want: 156.43},
		{name: "plain text unchanged", in: "abc", want: "abc"},
		{name: "grouped thousands unchanged", in: "156.789,43", want: "156.789,43"},
		{name: "empty unchanged", in: "", want: ""},
		{name: "mixed unchanged", in: "12abc", want: "12abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Coerce(tt.in); got != tt.want {
				t.Fatalf("Coerce(%q) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestSafeFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want float64
	}{
		{name: "grouped comma decimal", in: "156.789,43", want: 156789.43},
		{name: "grouped integer", in: "156.789.431", want: 156789431},
		{name: "plain integer string", in: "1234", want: 1234},
		{name: "int64", in: int64(7), want: 7},
		{name: "float64", in: 3.25, want: 3.25},
		{name: "nil", in: nil, want: 0},
		{name: "empty string", in: "", want: 0},
		{name: "pure punctuation", in: "--..,,", want: 0},
		{name: "unicode garbage", in: "«‹›» ☂", want: 0},
		{name: "text", in: "Vinho", want: 0},
		{name: "currency residue", in: "US$ 1.234,50", want: 1234.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeFloat(tt.in, 0); got != tt.want {
				t.Fatalf("SafeFloat(%v, 0) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSafeFloatDefault(t *testing.T) {
	t.Parallel()

	if got := SafeFloat("not a number", 99.5); got != 99.5 {
		t.Fatalf("expected default 99.5, got %v", got)
	}
}
