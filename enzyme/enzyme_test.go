package enzyme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tagseek/internal/nuc"
)

func TestProfileWidths(t *testing.T) {
	widths := map[string]int{
		"CspCI": 33, "AloI": 27, "BsaXI": 27, "BaeI": 28,
		"BcgI": 32, "CjeI": 28, "PpiI": 27, "PsrI": 27,
		"BplI": 27, "FalI": 27, "Bsp24I": 27, "HaeIV": 27,
		"CjePI": 27, "Hin4I": 27, "AlfI": 32, "BslFI": 25,
	}
	require.Len(t, Names(), len(widths))
	for name, want := range widths {
		p, err := Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, p.TagLen, name)
		for _, pat := range p.Patterns() {
			assert.Equal(t, want, pat.Width(), name)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("EcoRI")
	require.Error(t, err)
	var unknown *ErrUnknownEnzyme
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "EcoRI", unknown.Name)
}

func TestIUPACTruthTable(t *testing.T) {
	allowed := map[byte]string{
		'A': "A", 'C': "C", 'G': "G", 'T': "T",
		'R': "AG", 'Y': "CT", 'S': "CG", 'W': "AT",
		'K': "GT", 'M': "AC",
		'B': "CGT", 'D': "AGT", 'H': "ACT", 'V': "ACG",
		'N': "ACGT",
	}
	require.Len(t, iupacBits, len(allowed))

	for code, bases := range allowed {
		mask := iupacBits[code]
		for _, base := range []byte("ACGT") {
			want := strings.ContainsRune(bases, rune(base))
			assert.Equal(t, want, mask&baseBits[base] != 0, "%c vs %c", code, base)

			lower := base + 'a' - 'A'
			assert.Equal(t, want, mask&baseBits[lower] != 0, "%c vs %c", code, lower)
		}
	}

	// Ambiguous input bytes carry no bits and fail every mask.
	assert.Zero(t, baseBits['N'])
	assert.Zero(t, baseBits['X'])
}

// bcgISite builds a BcgI window with the given flank filler.
func bcgISite(fill byte) string {
	f := strings.Repeat(string(fill), 10)
	return f + "CGA" + strings.Repeat(string(fill), 6) + "TGC" + f
}

func TestScanForwardAndReverse(t *testing.T) {
	p, err := Lookup("BcgI")
	require.NoError(t, err)

	site := bcgISite('A')
	require.Len(t, site, 32)

	t.Run("forward strand", func(t *testing.T) {
		hits := p.Scan([]byte(site))
		assert.Equal(t, []int{0}, hits)
	})

	t.Run("reverse strand", func(t *testing.T) {
		hits := p.Scan(nuc.RevComp([]byte(site)))
		assert.Equal(t, []int{0}, hits)
	})

	t.Run("embedded", func(t *testing.T) {
		seq := "TTTT" + site + "TTTT"
		hits := p.Scan([]byte(seq))
		assert.Equal(t, []int{4}, hits)
	})

	t.Run("tandem sites", func(t *testing.T) {
		seq := site + site
		hits := p.Scan([]byte(seq))
		assert.Equal(t, []int{0, 32}, hits)
	})
}

func TestScanRejectsAmbiguousBases(t *testing.T) {
	p, err := Lookup("BcgI")
	require.NoError(t, err)

	site := []byte(bcgISite('A'))
	site[0] = 'N' // flank positions still demand a real base
	assert.Empty(t, p.Scan(site))

	site = []byte(bcgISite('A'))
	site[11] = 'N' // core position
	assert.Empty(t, p.Scan(site))
}

func TestScanDegeneratePositions(t *testing.T) {
	p, err := Lookup("BaeI")
	require.NoError(t, err)

	// N10 AC N4 GTAYC N7: Y admits C and T only.
	build := func(y byte) []byte {
		return []byte(strings.Repeat("A", 10) + "AC" + "AAAA" + "GTA" + string(y) + "C" + strings.Repeat("A", 7))
	}

	tests := []struct {
		name string
		base byte
		hit  bool
	}{
		{name: "Y matches C", base: 'C', hit: true},
		{name: "Y matches T", base: 'T', hit: true},
		{name: "Y rejects G", base: 'G', hit: false},
		{name: "Y rejects A", base: 'A', hit: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := p.Scan(build(tt.base))
			if tt.hit {
				assert.Equal(t, []int{0}, hits)
			} else {
				assert.Empty(t, hits)
			}
		})
	}
}

func TestScanShortSequence(t *testing.T) {
	p, err := Lookup("BcgI")
	require.NoError(t, err)
	assert.Nil(t, p.Scan([]byte("ACGT")))
}

func TestScanLowercase(t *testing.T) {
	p, err := Lookup("BcgI")
	require.NoError(t, err)
	hits := p.Scan([]byte(strings.ToLower(bcgISite('A'))))
	assert.Equal(t, []int{0}, hits)
}
