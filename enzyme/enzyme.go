// Package enzyme defines the Type IIB restriction enzyme profiles used
// for tag extraction.
//
// A profile carries one recognition pattern per strand (palindromic
// enzymes need only one) expressed over IUPAC codes, plus the fixed tag
// width the enzyme excises. Patterns are compiled to 4-bit masks per
// position; a window matches when every base's bit is set in the
// corresponding mask. Ambiguous input bases (N and friends) never match,
// so windows straddling undetermined sequence yield no tags.
package enzyme

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Default is the enzyme assumed when none is configured.
const Default = "BcgI"

// baseBits maps an input byte to its one-hot base bit. Bytes outside
// ACGT/acgt map to zero and fail every mask, including the wildcard.
var baseBits = func() [256]uint8 {
	var t [256]uint8
	t['A'], t['a'] = 1, 1
	t['C'], t['c'] = 2, 2
	t['G'], t['g'] = 4, 4
	t['T'], t['t'] = 8, 8
	return t
}()

var iupacBits = map[byte]uint8{
	'A': 1, 'C': 2, 'G': 4, 'T': 8,
	'R': 1 | 4, 'Y': 2 | 8, 'S': 2 | 4, 'W': 1 | 8,
	'K': 4 | 8, 'M': 1 | 2,
	'B': 2 | 4 | 8, 'D': 1 | 4 | 8, 'H': 1 | 2 | 8, 'V': 1 | 2 | 4,
	'N': 1 | 2 | 4 | 8,
}

// Pattern is one compiled recognition pattern. The core span covers the
// literal recognition positions; flank positions only require an
// unambiguous base.
type Pattern struct {
	masks     []uint8
	coreStart int
	coreEnd   int
}

// Width returns the window width the pattern matches.
func (p *Pattern) Width() int { return len(p.masks) }

// MatchAt reports whether seq[i:i+Width] matches. The selective core is
// tested before the flanks so mismatches bail out early.
func (p *Pattern) MatchAt(seq []byte, i int) bool {
	if i < 0 || i+len(p.masks) > len(seq) {
		return false
	}
	for k := p.coreStart; k < p.coreEnd; k++ {
		if p.masks[k]&baseBits[seq[i+k]] == 0 {
			return false
		}
	}
	for k := 0; k < p.coreStart; k++ {
		if baseBits[seq[i+k]] == 0 {
			return false
		}
	}
	for k := p.coreEnd; k < len(p.masks); k++ {
		if baseBits[seq[i+k]] == 0 {
			return false
		}
	}
	return true
}

// Profile describes one enzyme: its recognition patterns and the fixed
// width of the excised tag.
type Profile struct {
	Name   string
	TagLen int

	// AnchorOffset is where the recognition core begins within the tag
	// window, in the forward orientation. Stored in sketch headers so
	// readers can verify two sketches cut the same way.
	AnchorOffset int

	patterns []Pattern
}

// Patterns exposes the compiled per-strand patterns.
func (p *Profile) Patterns() []Pattern { return p.patterns }

// Scan returns the start positions of all recognition windows in seq,
// sorted ascending. Occurrences of one pattern do not overlap each
// other (a hit suppresses the same pattern until the window ends);
// distinct patterns hitting the same position collapse to one site.
func (p *Profile) Scan(seq []byte) []int {
	if len(seq) < p.TagLen {
		return nil
	}
	var hits []int
	next := make([]int, len(p.patterns))
	for i := 0; i+p.TagLen <= len(seq); i++ {
		for j := range p.patterns {
			if i < next[j] {
				continue
			}
			if p.patterns[j].MatchAt(seq, i) {
				if len(hits) == 0 || hits[len(hits)-1] != i {
					hits = append(hits, i)
				}
				next[j] = i + p.TagLen
			}
		}
	}
	return hits
}

// ErrUnknownEnzyme is returned when a name has no registered profile.
type ErrUnknownEnzyme struct {
	Name string
}

func (e *ErrUnknownEnzyme) Error() string {
	return fmt.Sprintf("unknown enzyme %q (known: %s)", e.Name, strings.Join(Names(), ", "))
}

// The recognition table. Each spec is segments separated by spaces:
// N<k> is a run of k unambiguous-any positions, anything else a run of
// IUPAC codes. Both strand orientations are listed unless the site is
// palindromic.
var definitions = []struct {
	name  string
	specs []string
}{
	{"CspCI", []string{"N11 CAA N5 GTGG N10", "N10 CCAC N5 TTG N11"}},
	{"AloI", []string{"N7 GAAC N6 TCC N7", "N7 GGA N6 GTTC N7"}},
	{"BsaXI", []string{"N9 AC N5 CTCC N7", "N7 GGAG N5 GT N9"}},
	{"BaeI", []string{"N10 AC N4 GTAYC N7", "N7 GRTAC N4 GT N10"}},
	{"BcgI", []string{"N10 CGA N6 TGC N10", "N10 GCA N6 TCG N10"}},
	{"CjeI", []string{"N8 CCA N6 GT N9", "N9 AC N6 TGG N8"}},
	{"PpiI", []string{"N7 GAAC N5 CTC N8", "N8 GAG N5 GTTC N7"}},
	{"PsrI", []string{"N7 GAAC N6 TAC N7", "N7 GTA N6 GTTC N7"}},
	{"BplI", []string{"N8 GAG N5 CTC N8"}},
	{"FalI", []string{"N8 AAG N5 CTT N8"}},
	{"Bsp24I", []string{"N8 GAC N6 TGG N7", "N7 CCA N6 GTC N8"}},
	{"HaeIV", []string{"N7 GAY N5 RTC N9", "N9 GAY N5 RTC N7"}},
	{"CjePI", []string{"N7 CCA N7 TC N8", "N8 GA N7 TGG N7"}},
	{"Hin4I", []string{"N8 GAY N5 VTC N8", "N8 GAB N5 RTC N8"}},
	{"AlfI", []string{"N10 GCA N6 TGC N10"}},
	{"BslFI", []string{"N6 GGGAC N14", "N14 GTCCC N6"}},
}

var profiles = func() map[string]*Profile {
	m := make(map[string]*Profile, len(definitions))
	for _, def := range definitions {
		p, err := compile(def.name, def.specs)
		if err != nil {
			panic(fmt.Sprintf("enzyme: bad builtin definition %s: %v", def.name, err))
		}
		m[def.name] = p
	}
	return m
}()

func compile(name string, specs []string) (*Profile, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("no patterns")
	}
	p := &Profile{Name: name}
	for pi, spec := range specs {
		pat, err := compileSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", spec, err)
		}
		if pi == 0 {
			p.TagLen = pat.Width()
			p.AnchorOffset = pat.coreStart
		} else if pat.Width() != p.TagLen {
			return nil, fmt.Errorf("pattern widths differ: %d vs %d", pat.Width(), p.TagLen)
		}
		p.patterns = append(p.patterns, pat)
	}
	return p, nil
}

func compileSpec(spec string) (Pattern, error) {
	var masks []uint8
	coreStart, coreEnd := -1, -1
	for _, seg := range strings.Fields(spec) {
		if seg[0] == 'N' && len(seg) > 1 {
			n, err := strconv.Atoi(seg[1:])
			if err != nil {
				return Pattern{}, fmt.Errorf("bad run length %q", seg)
			}
			for range n {
				masks = append(masks, iupacBits['N'])
			}
			continue
		}
		for i := 0; i < len(seg); i++ {
			b, ok := iupacBits[seg[i]]
			if !ok {
				return Pattern{}, fmt.Errorf("invalid IUPAC code %q", seg[i])
			}
			if coreStart < 0 {
				coreStart = len(masks)
			}
			masks = append(masks, b)
			coreEnd = len(masks)
		}
	}
	if coreStart < 0 {
		return Pattern{}, fmt.Errorf("pattern has no recognition core")
	}
	return Pattern{masks: masks, coreStart: coreStart, coreEnd: coreEnd}, nil
}

// Lookup returns the profile registered under name.
func Lookup(name string) (*Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return nil, &ErrUnknownEnzyme{Name: name}
	}
	return p, nil
}

// Names lists all registered enzyme names, sorted.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
