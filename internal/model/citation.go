package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Citation is a hierarchical passage key: book.chapter.section.
// Citations define the strict total order used for resumption logic,
// so ordering must be numeric per component, never lexicographic
// ("2.1.1" sorts before "10.1.1").
type Citation struct {
	Book    int `json:"book"`
	Chapter int `json:"chapter"`
	Section int `json:"section"`
}

// ParseCitation parses a "book.chapter.section" key
func ParseCitation(s string) (Citation, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Citation{}, fmt.Errorf("invalid citation %q: want book.chapter.section", s)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Citation{}, fmt.Errorf("invalid citation %q: component %q is not a number", s, part)
		}
		nums[i] = n
	}

	return Citation{Book: nums[0], Chapter: nums[1], Section: nums[2]}, nil
}

// String renders the citation in its canonical "book.chapter.section" form
func (c Citation) String() string {
	return fmt.Sprintf("%d.%d.%d", c.Book, c.Chapter, c.Section)
}

// Less reports whether c precedes other in citation order
func (c Citation) Less(other Citation) bool {
	if c.Book != other.Book {
		return c.Book < other.Book
	}
	if c.Chapter != other.Chapter {
		return c.Chapter < other.Chapter
	}
	return c.Section < other.Section
}

// MarshalText implements encoding.TextMarshaler
func (c Citation) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Citation) UnmarshalText(text []byte) error {
	parsed, err := ParseCitation(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
