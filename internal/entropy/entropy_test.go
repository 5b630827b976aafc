package entropy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntropy(t *testing.T) {
	tests := []struct {
		name string
		col  string
		want float64
	}{
		{"conserved", "AAAA", 0},
		{"two equal halves", "AACC", math.Log(2)},
		{"four symbols", "ACDE", math.Log(4)},
		{"gaps skipped", "A-C-", math.Log(2)},
		{"all gaps", "----", 0},
		{"empty", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Entropy(tt.col), 1e-12)
		})
	}
}

func TestMutualInformation(t *testing.T) {
	// Perfectly coupled columns share all their information.
	assert.InDelta(t, math.Log(2), MutualInformation("AACC", "WWYY"), 1e-12)

	// Independent columns share none.
	assert.InDelta(t, 0, MutualInformation("AACC", "WYWY"), 1e-12)

	// A conserved column carries no information.
	assert.InDelta(t, 0, MutualInformation("AAAA", "WYWY"), 1e-12)

	// Pairs with a gap on either side are dropped: only A/W and C/Y remain.
	assert.InDelta(t, math.Log(2), MutualInformation("AC-C", "WYY-"), 1e-12)
}

func TestJointAndConditionalEntropy(t *testing.T) {
	a, b := "AACC", "WYWY"
	assert.InDelta(t, math.Log(4), JointEntropy(a, b), 1e-12)
	assert.InDelta(t, math.Log(2), CondEntropy(a, b), 1e-12)

	// H(a|b) = H(a) - I(a;b)
	a, b = "AACCDD", "WWYYYW"
	assert.InDelta(t, Entropy(a)-MutualInformation(a, b), CondEntropy(a, b), 1e-12)
	assert.InDelta(t, Entropy(a)+Entropy(b)-MutualInformation(a, b), JointEntropy(a, b), 1e-12)
}

func TestConservation(t *testing.T) {
	assert.Equal(t, 1.0, Conservation("MMMM"))
	assert.Equal(t, 0.75, Conservation("MMMK"))
	assert.Equal(t, 0.5, Conservation("MK--"))
	assert.Equal(t, 0.0, Conservation("---"))
}

func TestWordMutualInformation(t *testing.T) {
	// Single-residue words agree with the column measure.
	assert.InDelta(t, MutualInformation("AACC", "WWYY"),
		WordMutualInformation([]string{"A", "A", "C", "C"}, []string{"W", "W", "Y", "Y"}), 1e-12)

	// Two-residue windows: four distinct words perfectly coupled.
	a := []string{"AK", "AR", "CK", "CR"}
	b := []string{"WD", "WE", "YD", "YE"}
	assert.InDelta(t, math.Log(4), WordMutualInformation(a, b), 1e-12)

	// Words with a gap drop the species.
	a = []string{"AK", "A-", "CK", "CR"}
	assert.InDelta(t, math.Log(3), WordMutualInformation(a, b), 1e-12)

	assert.Zero(t, WordMutualInformation(nil, nil))
}
