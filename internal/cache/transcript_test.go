package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// forwardTranscript has one coding exon 100-132: 10 amino acids and a stop.
func forwardTranscript() *Transcript {
	return &Transcript{
		ID: "NM_000001", Chrom: "1", Start: 100, End: 132, Strand: 1,
		CDSStart: 100, CDSEnd: 132,
		Exons:       []Exon{{Number: 1, Start: 100, End: 132, CDSStart: 100, CDSEnd: 132, Frame: 0}},
		CDSSequence: "ATGAAAACCGCTTATATTGCTAAACAGCGTTAA",
	}
}

// reverseTranscript has two coding exons; the second starts at phase 1.
func reverseTranscript() *Transcript {
	return &Transcript{
		ID: "ENST00000000002", Chrom: "2", Start: 490, End: 620, Strand: -1,
		CDSStart: 500, CDSEnd: 610,
		Exons: []Exon{
			{Number: 2, Start: 490, End: 509, CDSStart: 500, CDSEnd: 509, Frame: 1},
			{Number: 1, Start: 600, End: 620, CDSStart: 600, CDSEnd: 610, Frame: 0},
		},
		CDSSequence: "ATGAAATGGGACGAATGCTAG",
	}
}

func TestTranscript_AAPositionsForward(t *testing.T) {
	tr := forwardTranscript()
	pos := tr.AAPositions()
	require.Len(t, pos, 11)
	assert.Equal(t, int64(100), pos[0])
	assert.Equal(t, int64(106), pos[2])
	assert.Equal(t, int64(115), pos[5])
	assert.Equal(t, int64(130), pos[10])
}

func TestTranscript_AAPositionsReverse(t *testing.T) {
	tr := reverseTranscript()
	assert.Equal(t, []int64{610, 607, 604, 601, 508, 505, 502}, tr.AAPositions())
}

func TestTranscript_AAPositionsNonCoding(t *testing.T) {
	tr := &Transcript{ID: "x", Exons: []Exon{{Start: 1, End: 10, Frame: -1}}}
	pos := tr.AAPositions()
	require.NotNil(t, pos)
	assert.Empty(t, pos)
}

func TestTranscript_IncompleteStart(t *testing.T) {
	// The CDS starts mid-codon: the first base belongs to an upstream codon.
	tr := &Transcript{
		ID: "x", Strand: 1, CDSStart: 10, CDSEnd: 16,
		Exons:       []Exon{{Start: 1, End: 20, CDSStart: 10, CDSEnd: 16, Frame: 1}},
		CDSSequence: "GATGAAA",
	}
	assert.Equal(t, []int64{11, 14}, tr.AAPositions())
	assert.Equal(t, "MK", tr.Protein())
}

func TestTranscript_Finalize(t *testing.T) {
	tr := reverseTranscript()
	tr.Finalize()
	assert.Equal(t, "MKWDEC*", tr.ProteinSequence)
	assert.Equal(t, tr.CodonStarts, tr.AAPositions())

	// Explicit protein wins over translation.
	tr2 := forwardTranscript()
	tr2.ProteinSequence = "MKTAYIAKQR"
	tr2.Finalize()
	assert.Equal(t, "MKTAYIAKQR", tr2.Protein())
}

func TestTranscript_FindExon(t *testing.T) {
	tr := reverseTranscript()

	e := tr.FindExon(505)
	require.NotNil(t, e)
	assert.Equal(t, 2, e.Number)
	assert.Equal(t, 1, e.Frame)

	e = tr.FindExon(610)
	require.NotNil(t, e)
	assert.Equal(t, 1, e.Number)

	assert.Nil(t, tr.FindExon(550))
	assert.Nil(t, tr.FindExon(700))
}

func TestCache_Lookup(t *testing.T) {
	c := New()
	c.AddTranscript(forwardTranscript())
	c.AddTranscript(reverseTranscript())

	assert.Equal(t, 2, c.TranscriptCount())
	assert.Equal(t, []string{"1", "2"}, c.Chromosomes())
	assert.NotNil(t, c.GetTranscript("NM_000001.3"))
	assert.Nil(t, c.GetTranscript("NM_999999"))
	assert.Len(t, c.FindTranscriptsByChrom("chr2"), 1)

	c.Finalize()
	assert.Equal(t, "MKTAYIAKQR*", c.GetTranscript("NM_000001").ProteinSequence)
}
