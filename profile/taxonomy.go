package profile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
)

// taxonomyHeader is the required first line of a mapping file.
const taxonomyHeader = "accession\ttaxonomy"

// ErrBadTaxonomy reports an unusable taxonomy mapping file.
type ErrBadTaxonomy struct {
	Path   string
	Line   int
	Reason string
}

func (e *ErrBadTaxonomy) Error() string {
	return fmt.Sprintf("taxonomy %s line %d: %s", e.Path, e.Line, e.Reason)
}

// Taxonomy maps genome accessions to clade labels. A nil Taxonomy is
// usable and maps nothing.
type Taxonomy map[string]string

// LoadTaxonomy reads a two-column tab-separated mapping file with an
// `accession<TAB>taxonomy` header line.
func LoadTaxonomy(path string) (Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy: %w", err)
	}
	defer f.Close()

	tax, err := ReadTaxonomy(f)
	if err != nil {
		var bad *ErrBadTaxonomy
		if errors.As(err, &bad) {
			bad.Path = path
		}
		return nil, err
	}
	return tax, nil
}

// ReadTaxonomy parses a taxonomy mapping. Blank lines are skipped;
// every other line must carry an accession, a tab, and a label.
func ReadTaxonomy(r io.Reader) (Taxonomy, error) {
	sc := bufio.NewScanner(r)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read taxonomy: %w", err)
		}
		return nil, &ErrBadTaxonomy{Line: 1, Reason: "empty file"}
	}
	if sc.Text() != taxonomyHeader {
		return nil, &ErrBadTaxonomy{Line: 1, Reason: fmt.Sprintf("missing %q header", taxonomyHeader)}
	}

	tax := make(Taxonomy)
	line := 1
	for sc.Scan() {
		line++
		text := sc.Text()
		if text == "" {
			continue
		}
		acc, label, ok := strings.Cut(text, "\t")
		if !ok || acc == "" {
			return nil, &ErrBadTaxonomy{Line: line, Reason: "expected accession<TAB>taxonomy"}
		}
		tax[acc] = label
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	return tax, nil
}

// Label resolves a genome name to its clade label. The accession is
// the name's first whitespace-delimited token; genomes without a
// mapping keep their full name, so they aggregate only with
// themselves.
func (t Taxonomy) Label(genome string) string {
	acc := genome
	if i := strings.IndexFunc(genome, unicode.IsSpace); i >= 0 {
		acc = genome[:i]
	}
	if label, ok := t[acc]; ok {
		return label
	}
	return genome
}
