package model

import "testing"

func TestParseCitation(t *testing.T) {
	tests := []struct {
		in      string
		want    Citation
		wantErr bool
	}{
		{"1.1.1", Citation{1, 1, 1}, false},
		{"10.25.3", Citation{10, 25, 3}, false},
		{"1.1", Citation{}, true},
		{"1.1.1.1", Citation{}, true},
		{"1.a.1", Citation{}, true},
		{"", Citation{}, true},
		{"1.-2.1", Citation{}, true},
	}

	for _, tt := range tests {
		got, err := ParseCitation(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCitation(%q): expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCitation(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCitation(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCitationString_RoundTrip(t *testing.T) {
	c := Citation{Book: 2, Chapter: 14, Section: 9}
	parsed, err := ParseCitation(c.String())
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if parsed != c {
		t.Errorf("round trip changed value: %v != %v", parsed, c)
	}
}

func TestCitationLess_NumericNotLexicographic(t *testing.T) {
	// "10.1.1" < "2.1.1" lexically, but 2 precedes 10 numerically
	a := Citation{Book: 2, Chapter: 1, Section: 1}
	b := Citation{Book: 10, Chapter: 1, Section: 1}
	if !a.Less(b) {
		t.Error("2.1.1 must precede 10.1.1")
	}
	if b.Less(a) {
		t.Error("10.1.1 must not precede 2.1.1")
	}

	c := Citation{Book: 1, Chapter: 2, Section: 9}
	d := Citation{Book: 1, Chapter: 10, Section: 1}
	if !c.Less(d) {
		t.Error("1.2.9 must precede 1.10.1")
	}

	e := Citation{Book: 1, Chapter: 1, Section: 1}
	if e.Less(e) {
		t.Error("a citation must not precede itself")
	}
}

func TestCitationUnmarshalText(t *testing.T) {
	var c Citation
	if err := c.UnmarshalText([]byte("3.7.2")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c != (Citation{Book: 3, Chapter: 7, Section: 2}) {
		t.Errorf("unexpected citation: %v", c)
	}
	if err := c.UnmarshalText([]byte("bad")); err == nil {
		t.Error("expected error for malformed citation")
	}
}
