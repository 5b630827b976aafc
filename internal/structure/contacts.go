package structure

import "github.com/inodb/vibe-epistasis/internal/contact"

// Contacts returns every pair of residues within the same chain whose
// alpha carbons are at most threshold Angstroms apart and whose residue
// numbers differ by at least minSeparation. Residues without an alpha
// carbon or with a residue number below 1 are ignored. Pairs are ordered
// by chain, then by first and second residue.
func Contacts(s *Structure, threshold float64, minSeparation int) []*contact.Record {
	var out []*contact.Record
	for _, c := range s.Chains {
		for i := range c.Residues {
			r1 := &c.Residues[i]
			if !r1.HasCA || r1.SeqNum < 1 {
				continue
			}
			for j := i + 1; j < len(c.Residues); j++ {
				r2 := &c.Residues[j]
				if !r2.HasCA || r2.SeqNum < 1 {
					continue
				}
				if abs(r2.SeqNum-r1.SeqNum) < minSeparation {
					continue
				}
				d := r1.CA.Distance(r2.CA)
				if d > threshold {
					continue
				}
				out = append(out, contact.New(s.ID, c.ID, r1.SeqNum-1, r2.SeqNum-1, r1.AA, r2.AA, d))
			}
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
