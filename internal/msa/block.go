// Package msa loads multi-species per-exon protein alignments and answers
// column, row and composition queries over them.
package msa

import "strings"

// Gap is the symbol stored in place of gaps, ambiguous codes, rare amino
// acids and stop codons.
const Gap = '-'

// AminoAcids is the alphabet used by composition and transition counts.
// Count slices are indexed by position in this string.
const AminoAcids = "ACDEFGHIKLMNPQRSTVWY"

var aaIndex [256]int8

func init() {
	for i := range aaIndex {
		aaIndex[i] = -1
	}
	for i := 0; i < len(AminoAcids); i++ {
		aaIndex[AminoAcids[i]] = int8(i)
	}
}

// AAIndex returns the position of c in AminoAcids, or -1 for gaps and
// symbols outside the alphabet.
func AAIndex(c byte) int {
	return int(aaIndex[c])
}

var normalizer = strings.NewReplacer(
	"B", "-", "Z", "-", "J", "-", "X", "-", // ambiguous
	"U", "-", "O", "-", // rare
	"*", "-", // stop
)

// Normalize rewrites ambiguous, rare and stop symbols to Gap.
func Normalize(seq string) string {
	return normalizer.Replace(seq)
}

// Block is the alignment of one exon (or transcript) across all species.
// Seqs[i] is the row of species i; every row has the same width.
type Block struct {
	ID     string
	Chrom  string
	Start  int64 // 1-based, inclusive
	End    int64 // 1-based, inclusive
	Strand byte  // '+', '-', or 0 when the header carries no strand
	Seqs   []string
}

// Width returns the number of alignment columns.
func (b *Block) Width() int {
	if len(b.Seqs) == 0 {
		return 0
	}
	return len(b.Seqs[0])
}

// Contains reports whether pos lies within the block's genomic span.
func (b *Block) Contains(pos int64) bool {
	return pos >= b.Start && pos <= b.End
}

// Column returns the symbols at column idx, one per species in species
// order. ok is false when idx is outside the alignment.
func (b *Block) Column(idx int) (col string, ok bool) {
	if idx < 0 || idx >= b.Width() {
		return "", false
	}
	buf := make([]byte, len(b.Seqs))
	for i, s := range b.Seqs {
		buf[i] = s[idx]
	}
	return string(buf), true
}

func (b *Block) countAA(counts []int64) {
	for i := range b.Seqs {
		b.countAAForSpecies(i, counts)
	}
}

func (b *Block) countAAForSpecies(i int, counts []int64) {
	if i < 0 || i >= len(b.Seqs) {
		return
	}
	s := b.Seqs[i]
	for k := 0; k < len(s); k++ {
		if a := AAIndex(s[k]); a >= 0 {
			counts[a]++
		}
	}
}

func (b *Block) countTransitions(i, j int, counts [][]int64) {
	if i < 0 || j < 0 || i >= len(b.Seqs) || j >= len(b.Seqs) {
		return
	}
	s1, s2 := b.Seqs[i], b.Seqs[j]
	for k := 0; k < len(s1) && k < len(s2); k++ {
		a1, a2 := AAIndex(s1[k]), AAIndex(s2[k])
		if a1 < 0 || a2 < 0 {
			continue
		}
		counts[a1][a2]++
	}
}
