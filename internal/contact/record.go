// Package contact models residue pairs that are close in a protein
// structure, together with the genomic and alignment data attached to them
// as they are cross-referenced.
package contact

import (
	"fmt"
	"sort"
	"strings"
)

// Record is one structural contact between two residues of a chain.
// AAPos1 and AAPos2 are 0-based residue indices (PDB residue number - 1).
// The remaining fields are filled in as the record is mapped; empty strings,
// zero positions and MSAIdx of -1 mean "not resolved".
type Record struct {
	PDBID    string
	Chain    string
	AAPos1   int
	AAPos2   int
	AA1      byte
	AA2      byte
	Distance float64

	Chr1 string
	Pos1 int64
	Chr2 string
	Pos2 int64

	TranscriptID string
	MSA1         string
	MSAIdx1      int
	MSA2         string
	MSAIdx2      int
	AASeq1       string
	AASeq2       string

	Annotations1 string
	Annotations2 string
}

// New returns an unmapped contact.
func New(pdbID, chain string, aaPos1, aaPos2 int, aa1, aa2 byte, distance float64) *Record {
	return &Record{
		PDBID:    pdbID,
		Chain:    chain,
		AAPos1:   aaPos1,
		AAPos2:   aaPos2,
		AA1:      aa1,
		AA2:      aa2,
		Distance: distance,
		MSAIdx1:  -1,
		MSAIdx2:  -1,
	}
}

// Mapped reports whether both alignment columns were resolved.
func (r *Record) Mapped() bool {
	return r.AASeq1 != "" && r.AASeq2 != ""
}

// PosKey identifies the genomic position pair of a mapped contact.
func (r *Record) PosKey() string {
	return fmt.Sprintf("%s:%d-%s:%d", r.Chr1, r.Pos1, r.Chr2, r.Pos2)
}

// AAPair returns the reference amino acids of both alignment columns,
// ordered so that X-Y and Y-X count as the same pair.
func (r *Record) AAPair() string {
	if !r.Mapped() {
		return ""
	}
	a, b := r.AASeq1[:1], r.AASeq2[:1]
	if b < a {
		a, b = b, a
	}
	return a + "-" + b
}

// AnnotationPairs returns every pairing of an annotation at the first
// position with one at the second, each pair ordered and tab-joined.
// The result is sorted and free of duplicates.
func (r *Record) AnnotationPairs() []string {
	if r.Annotations1 == "" || r.Annotations2 == "" {
		return nil
	}
	seen := make(map[string]bool)
	for _, a := range strings.Split(r.Annotations1, ";") {
		for _, b := range strings.Split(r.Annotations2, ";") {
			if a == "" || b == "" {
				continue
			}
			if b < a {
				seen[b+"\t"+a] = true
			} else {
				seen[a+"\t"+b] = true
			}
		}
	}
	pairs := make([]string, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)
	return pairs
}

// MinByPosition keeps, for every genomic position pair, the mapped record
// with the smallest distance. Unmapped records are dropped. The result is
// ordered by position key.
func MinByPosition(recs []*Record) []*Record {
	best := make(map[string]*Record)
	for _, r := range recs {
		if !r.Mapped() {
			continue
		}
		k := r.PosKey()
		if cur, ok := best[k]; !ok || r.Distance < cur.Distance {
			best[k] = r
		}
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*Record, len(keys))
	for i, k := range keys {
		out[i] = best[k]
	}
	return out
}
