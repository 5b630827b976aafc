package msa

import (
	"fmt"
	"strings"
)

// Set is an ordered collection of alignment blocks sharing one species
// order. It is built once by the parser and read-only afterwards, so
// queries are safe for concurrent use.
type Set struct {
	blocks  []*Block
	species []string
	byID    map[string][]*Block
	byChrom map[string]*blockIndex
}

// NewSet builds a set from blocks already in memory. Every block must carry
// one row per species and rows of equal width.
func NewSet(species []string, blocks []*Block) (*Set, error) {
	for _, b := range blocks {
		if len(b.Seqs) != len(species) {
			return nil, fmt.Errorf("block %s: %d rows, expecting %d species", b.ID, len(b.Seqs), len(species))
		}
		for i, s := range b.Seqs {
			if len(s) != b.Width() {
				return nil, fmt.Errorf("block %s: row %d has length %d, expecting %d", b.ID, i, len(s), b.Width())
			}
		}
	}
	s := &Set{species: species}
	for _, b := range blocks {
		b.Chrom = NormalizeChrom(b.Chrom)
		s.blocks = append(s.blocks, b)
	}
	s.buildIndex()
	return s, nil
}

func (s *Set) buildIndex() {
	s.byID = make(map[string][]*Block)
	perChrom := make(map[string][]*Block)
	for _, b := range s.blocks {
		key := StripVersion(b.ID)
		s.byID[key] = append(s.byID[key], b)
		perChrom[b.Chrom] = append(perChrom[b.Chrom], b)
	}
	s.byChrom = make(map[string]*blockIndex, len(perChrom))
	for chrom, bs := range perChrom {
		s.byChrom[chrom] = buildBlockIndex(bs)
	}
}

// Blocks returns all blocks in file order.
func (s *Set) Blocks() []*Block { return s.blocks }

// Species returns the species names in row order.
func (s *Set) Species() []string { return s.species }

// Len returns the number of blocks.
func (s *Set) Len() int { return len(s.blocks) }

// Get returns every block aligned for a transcript id, in file order.
// Version suffixes are ignored.
func (s *Set) Get(id string) []*Block {
	return s.byID[StripVersion(id)]
}

// FindRowSequence returns the reference-species row for a transcript on a
// chromosome. When the transcript spans several blocks (one per exon), the
// rows are concatenated in file order.
func (s *Set) FindRowSequence(id, chrom string) (string, bool) {
	chrom = NormalizeChrom(chrom)
	var sb strings.Builder
	found := false
	for _, b := range s.Get(id) {
		if b.Chrom != chrom || len(b.Seqs) == 0 {
			continue
		}
		sb.WriteString(b.Seqs[0])
		found = true
	}
	return sb.String(), found
}

// FindByPosition returns the blocks on chrom whose span contains pos, in
// file order.
func (s *Set) FindByPosition(chrom string, pos int64) []*Block {
	return s.byChrom[NormalizeChrom(chrom)].find(pos)
}

// CountAA counts amino acids over every row of every block.
func (s *Set) CountAA() []int64 {
	counts := make([]int64, len(AminoAcids))
	for _, b := range s.blocks {
		b.countAA(counts)
	}
	return counts
}

// CountAAForSpecies counts amino acids in the rows of species i.
func (s *Set) CountAAForSpecies(i int) []int64 {
	counts := make([]int64, len(AminoAcids))
	for _, b := range s.blocks {
		b.countAAForSpecies(i, counts)
	}
	return counts
}

// CountTransitions counts, over all columns where both species carry an
// amino acid, how often species i has a while species j has b.
// counts[a][b] is indexed by AAIndex.
func (s *Set) CountTransitions(i, j int) [][]int64 {
	n := len(AminoAcids)
	counts := make([][]int64, n)
	for k := range counts {
		counts[k] = make([]int64, n)
	}
	for _, b := range s.blocks {
		b.countTransitions(i, j, counts)
	}
	return counts
}

// NormalizeChrom removes a "chr" prefix so that alignment headers and
// genome annotation agree on chromosome names.
func NormalizeChrom(chrom string) string {
	return strings.TrimPrefix(chrom, "chr")
}

// StripVersion removes a trailing ".N" version from a transcript id.
func StripVersion(id string) string {
	if i := strings.LastIndexByte(id, '.'); i > 0 {
		return id[:i]
	}
	return id
}
