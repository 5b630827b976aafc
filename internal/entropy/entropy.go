// Package entropy computes information measures over alignment columns.
// A column is a string with one amino acid per species. Gap symbols are
// skipped; for two-column measures a species is used only when neither
// column has a gap. Values are in nats.
package entropy

import (
	"gonum.org/v1/gonum/stat"

	"github.com/inodb/vibe-epistasis/internal/msa"
)

const numAA = len(msa.AminoAcids)

// Entropy returns the Shannon entropy of a column.
func Entropy(a string) float64 {
	var counts [numAA]float64
	n := 0.0
	for i := 0; i < len(a); i++ {
		if k := msa.AAIndex(a[i]); k >= 0 {
			counts[k]++
			n++
		}
	}
	return entropyOf(counts[:], n)
}

// JointEntropy returns H(a, b).
func JointEntropy(a, b string) float64 {
	joint, _, _, n := tally(a, b)
	return entropyOf(joint, n)
}

// CondEntropy returns H(a | b) = H(a, b) - H(b).
func CondEntropy(a, b string) float64 {
	joint, _, pb, n := tally(a, b)
	return entropyOf(joint, n) - entropyOf(pb, n)
}

// MutualInformation returns I(a; b) = H(a) + H(b) - H(a, b).
func MutualInformation(a, b string) float64 {
	joint, pa, pb, n := tally(a, b)
	mi := entropyOf(pa, n) + entropyOf(pb, n) - entropyOf(joint, n)
	if mi < 0 {
		// Rounding can push an independent pair slightly below zero.
		return 0
	}
	return mi
}

// Conservation returns the fraction of non-gap symbols equal to the most
// frequent amino acid: 1 for a fully conserved column, 0 for an empty one.
func Conservation(a string) float64 {
	var counts [numAA]int
	n, best := 0, 0
	for i := 0; i < len(a); i++ {
		if k := msa.AAIndex(a[i]); k >= 0 {
			counts[k]++
			n++
			best = max(best, counts[k])
		}
	}
	if n == 0 {
		return 0
	}
	return float64(best) / float64(n)
}

func tally(a, b string) (joint, pa, pb []float64, n float64) {
	joint = make([]float64, numAA*numAA)
	pa = make([]float64, numAA)
	pb = make([]float64, numAA)
	for i := 0; i < min(len(a), len(b)); i++ {
		ka, kb := msa.AAIndex(a[i]), msa.AAIndex(b[i])
		if ka < 0 || kb < 0 {
			continue
		}
		joint[ka*numAA+kb]++
		pa[ka]++
		pb[kb]++
		n++
	}
	return joint, pa, pb, n
}

// entropyOf normalizes counts in place and returns their entropy.
func entropyOf(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	for i := range counts {
		counts[i] /= n
	}
	return stat.Entropy(counts)
}

// WordMutualInformation is MutualInformation over multi-column windows:
// a[i] and b[i] hold species i's residues across each window. A species is
// skipped when either word contains a gap or unknown symbol.
func WordMutualInformation(a, b []string) float64 {
	joint := make(map[[2]string]float64)
	pa := make(map[string]float64)
	pb := make(map[string]float64)
	n := 0.0
	for i := 0; i < min(len(a), len(b)); i++ {
		if !isWord(a[i]) || !isWord(b[i]) {
			continue
		}
		joint[[2]string{a[i], b[i]}]++
		pa[a[i]]++
		pb[b[i]]++
		n++
	}
	mi := mapEntropy(pa, n) + mapEntropy(pb, n) - mapEntropy(joint, n)
	if mi < 0 {
		return 0
	}
	return mi
}

func isWord(w string) bool {
	if w == "" {
		return false
	}
	for i := 0; i < len(w); i++ {
		if msa.AAIndex(w[i]) < 0 {
			return false
		}
	}
	return true
}

func mapEntropy[K comparable](counts map[K]float64, n float64) float64 {
	p := make([]float64, 0, len(counts))
	for _, c := range counts {
		p = append(p, c)
	}
	return entropyOf(p, n)
}
