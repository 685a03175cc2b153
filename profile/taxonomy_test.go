package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTaxonomy(t *testing.T) {
	in := "accession\ttaxonomy\n" +
		"GCF_000005845.2\td__Bacteria;s__Escherichia coli\n" +
		"\n" +
		"GCF_000009045.1\td__Bacteria;s__Bacillus subtilis\n"
	tax, err := ReadTaxonomy(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, tax, 2)

	assert.Equal(t, "d__Bacteria;s__Escherichia coli", tax.Label("GCF_000005845.2"))
	assert.Equal(t, "d__Bacteria;s__Escherichia coli",
		tax.Label("GCF_000005845.2 Escherichia coli str. K-12"),
		"accession is the name's first token")
	assert.Equal(t, "GCF_unmapped", tax.Label("GCF_unmapped"))

	var none Taxonomy
	assert.Equal(t, "GCF_1", none.Label("GCF_1"), "nil taxonomy maps nothing")
}

func TestReadTaxonomyRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line int
	}{
		{name: "empty file", in: "", line: 1},
		{name: "wrong header", in: "acc\ttax\nGCF_1\tx\n", line: 1},
		{name: "missing tab", in: "accession\ttaxonomy\nGCF_1 x\n", line: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTaxonomy(strings.NewReader(tt.in))
			var bad *ErrBadTaxonomy
			require.ErrorAs(t, err, &bad)
			assert.Equal(t, tt.line, bad.Line)
		})
	}
}

func TestLoadTaxonomy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.tsv")
	require.NoError(t, os.WriteFile(path, []byte("accession\ttaxonomy\nGCF_1\ts__X\n"), 0o600))

	tax, err := LoadTaxonomy(path)
	require.NoError(t, err)
	assert.Equal(t, "s__X", tax.Label("GCF_1"))

	_, err = LoadTaxonomy(filepath.Join(t.TempDir(), "missing.tsv"))
	assert.Error(t, err)
}

func TestLoadTaxonomyNamesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tsv")
	require.NoError(t, os.WriteFile(path, []byte("accession\ttaxonomy\nbroken\n"), 0o600))

	_, err := LoadTaxonomy(path)
	var bad *ErrBadTaxonomy
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, path, bad.Path)
	assert.Equal(t, 2, bad.Line)
}
