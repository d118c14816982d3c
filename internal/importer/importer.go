// Package importer splits a citation-marked source text into passage
// records. Passages are delimited by #book.chapter.section# markers.
package importer

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/kmatzaris/periegete/internal/model"
	"github.com/kmatzaris/periegete/internal/store"
)

var (
	markerRe     = regexp.MustCompile(`#(\d+\.\d+\.\d+)#`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Parsed is one passage cut from the source file
type Parsed struct {
	Citation model.Citation
	Text     string
}

// ParseText splits the marked-up source into citation-addressed passages.
// Text before the first marker is ignored; empty passages are dropped.
func ParseText(content string) ([]Parsed, error) {
	markers := markerRe.FindAllStringSubmatchIndex(content, -1)

	var passages []Parsed
	for i, m := range markers {
		citation, err := model.ParseCitation(content[m[2]:m[3]])
		if err != nil {
			return nil, err
		}

		end := len(content)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}

		text := strings.TrimSpace(content[m[1]:end])
		text = whitespaceRe.ReplaceAllString(text, " ")
		if text == "" {
			continue
		}

		passages = append(passages, Parsed{Citation: citation, Text: text})
	}

	return passages, nil
}

// ImportFile parses the source file and inserts its passages into the
// store. A duplicate citation key aborts the import: it indicates
// corrupted input, and partial state is preferable to silently merged
// passages.
func ImportFile(st *store.Store, path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read source file: %w", err)
	}

	passages, err := ParseText(string(content))
	if err != nil {
		return 0, err
	}

	for i, p := range passages {
		if err := st.InsertPassage(p.Citation, p.Text); err != nil {
			return i, err
		}
	}
	return len(passages), nil
}
