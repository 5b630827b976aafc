package msa

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeSpecies = `>T1_hg19_1_1 10 0 0 chr1:100-130+
MKTAYIAKQR
>T1_panTro4_1_1 10 0 0 chr1:100-130+
MKTAYIAKQR
>T1_mm10_1_1 10 0 0 chr1:100-130+
MKSAYLAKQ-

>T2_hg19_1_2 4 0 0 chr2:500-511-
ACDE
>T2_panTro4_1_2 4 0 0 chr2:500-511-
ACDX
>T2_mm10_1_2 4 0 0 chr2:500-511-
AC*E
`

func parseString(t *testing.T, s string, opts ParseOptions) (*Set, error) {
	t.Helper()
	return Parse(strings.NewReader(s), "test.fa", opts)
}

func TestParse_Basic(t *testing.T) {
	set, err := parseString(t, threeSpecies, ParseOptions{NumSpecies: 3})
	require.NoError(t, err)

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"hg19", "panTro4", "mm10"}, set.Species())

	b := set.Blocks()[0]
	assert.Equal(t, "T1", b.ID)
	assert.Equal(t, "1", b.Chrom)
	assert.Equal(t, int64(100), b.Start)
	assert.Equal(t, int64(130), b.End)
	assert.Equal(t, byte('+'), b.Strand)
	assert.Equal(t, 10, b.Width())

	b2 := set.Blocks()[1]
	assert.Equal(t, byte('-'), b2.Strand)
	assert.Equal(t, int64(511), b2.End)
	assert.Equal(t, []string{"ACDE", "ACD-", "AC-E"}, b2.Seqs)
}

func TestParse_InferSpeciesCount(t *testing.T) {
	set, err := parseString(t, threeSpecies, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	for _, b := range set.Blocks() {
		assert.Len(t, b.Seqs, len(set.Species()))
	}
}

func TestParse_LeadingBlankLines(t *testing.T) {
	set, err := parseString(t, "\n\n"+threeSpecies, ParseOptions{NumSpecies: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
}

func TestParse_NormalizationIsIdempotent(t *testing.T) {
	in := "ACDEFGHIKLMNPQRSTVWY-"
	assert.Equal(t, in, Normalize(in))
	assert.Equal(t, "-------A", Normalize("BZJXUO*A"))
	assert.Equal(t, Normalize("MKBZ*"), Normalize(Normalize("MKBZ*")))
}

func TestParse_SpeciesMismatch(t *testing.T) {
	in := `>T1_hg19_1_1 chr1:100-130+
MKTA
>T1_mm10_1_1 chr1:100-130+
MKTA

>T2_hg19_1_1 chr1:200-211+
ACDE
>T2_rn5_1_1 chr1:200-211+
ACDE
`
	_, err := parseString(t, in, ParseOptions{NumSpecies: 2})
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "test.fa", pe.File)
	assert.Equal(t, 8, pe.Line)
	assert.Contains(t, pe.Error(), "line 8")
}

func TestParse_SpeciesMismatchSecondHeader(t *testing.T) {
	// Species order is fixed by the first block; the second block's second
	// header declares a different species at index 1.
	in := ">T1_hg19_1_1 chr1:1-12+\nMKTA\n>T1_mm10_1_1 chr1:1-12+\nMKTA\n\n" +
		">T2_hg19_1_1 chr1:1-12+\nMKTA\n>T2_canFam3_1_1 chr1:1-12+\nMKTA\n"
	_, err := parseString(t, in, ParseOptions{})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 8, pe.Line)
	assert.Contains(t, pe.Msg, "mm10")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		line int
		msg  string
	}{
		{
			name: "missing header sentinel",
			in:   "T1_hg19_1 chr1:1-3+\nM\n",
			line: 1,
			msg:  "expecting header",
		},
		{
			name: "length mismatch",
			in:   ">T1_hg19_1 chr1:1-9+\nMKT\n>T1_mm10_1 chr1:1-9+\nMK\n",
			line: 4,
			msg:  "length 3",
		},
		{
			name: "no blank separator",
			in:   ">T1_hg19_1 chr1:1-9+\nMKT\n>T1_mm10_1 chr1:1-9+\nMKT\n>T2_hg19_1 chr1:1-9+\n",
			line: 5,
			msg:  "empty line",
		},
		{
			name: "truncated sequence",
			in:   ">T1_hg19_1 chr1:1-9+\nMKT\n>T1_mm10_1 chr1:1-9+\n",
			line: 3,
			msg:  "end of file",
		},
		{
			name: "too few species",
			in:   ">T1_hg19_1 chr1:1-9+\nMKT\n\n",
			line: 3,
			msg:  "expecting 2",
		},
		{
			name: "missing species token",
			in:   ">T1 chr1:1-9+\nMKT\n>T1 chr1:1-9+\nMKT\n",
			line: 1,
			msg:  "missing species",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseString(t, tt.in, ParseOptions{NumSpecies: 2})
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.line, pe.Line)
			assert.Contains(t, pe.Msg, tt.msg)
		})
	}
}

func TestParse_LenientVsStrictGeometry(t *testing.T) {
	in := ">T1_hg19_1 chr1:1x0-13+\nMKTA\n"

	set, err := parseString(t, in, ParseOptions{NumSpecies: 1})
	require.NoError(t, err)
	b := set.Blocks()[0]
	assert.Equal(t, int64(0), b.Start)
	assert.Equal(t, int64(13), b.End)

	_, err = parseString(t, in, ParseOptions{NumSpecies: 1, Strict: true})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Line)

	_, err = parseString(t, ">T1_hg19_1 nowhere\nMKTA\n", ParseOptions{NumSpecies: 1, Strict: true})
	assert.ErrorAs(t, err, &pe)
}

func TestParse_NoStrand(t *testing.T) {
	set, err := parseString(t, ">T1_hg19_1 chr1:100-130\nMKTA\n", ParseOptions{NumSpecies: 1})
	require.NoError(t, err)
	b := set.Blocks()[0]
	assert.Equal(t, byte(0), b.Strand)
	assert.Equal(t, int64(130), b.End)
}

func TestLoad_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aln.fa.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(threeSpecies))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	set, err := Load(path, ParseOptions{NumSpecies: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.fa"), ParseOptions{})
	assert.Error(t, err)
}

func TestLoad_RefSeqIDs(t *testing.T) {
	set, err := Load(filepath.Join("..", "..", "testdata", "sample_msa.fa"), ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"hg19", "panTro4", "mm10"}, set.Species())
	require.Len(t, set.Get("NM_000001"), 1)
	assert.Len(t, set.Get("ENST00000000002.1"), 2)

	row, ok := set.FindRowSequence("NM_000001", "chr1")
	require.True(t, ok)
	assert.Equal(t, "MKTAYIAKQR", row)
}
