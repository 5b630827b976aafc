package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const krasGTF = `##description: Test GTF
chr12	HAVANA	gene	25205246	25250929	.	-	.	gene_id "ENSG00000133703"; gene_type "protein_coding"; gene_name "KRAS";
chr12	HAVANA	transcript	25205246	25250929	.	-	.	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; gene_name "KRAS"; transcript_type "protein_coding";
chr12	HAVANA	exon	25250751	25250929	.	-	.	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; exon_number "1";
chr12	HAVANA	exon	25245274	25245395	.	-	.	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; exon_number "2";
chr12	HAVANA	CDS	25250751	25250808	.	-	0	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; exon_number "1";
chr12	HAVANA	CDS	25245277	25245395	.	-	2	gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; exon_number "2";
chr12	HAVANA	start_codon	25250806	25250808	.	-	0	gene_id "ENSG00000133703"; transcript_id "ENST00000311936";
chr12	HAVANA	stop_codon	25245274	25245276	.	-	0	gene_id "ENSG00000133703"; transcript_id "ENST00000311936";
chr1	HAVANA	transcript	100000	200000	.	+	.	gene_id "ENSG00000000001"; transcript_id "ENST00000000001"; transcript_type "lncRNA";
chr1	HAVANA	exon	100000	100100	.	+	.	gene_id "ENSG00000000001"; transcript_id "ENST00000000001"; exon_number "1";
chr1	HAVANA	transcript	300000	300100	.	+	.	gene_id "ENSG00000000003"; transcript_id "ENST00000000003";
chr1	broken line
`

func TestParseAttributes(t *testing.T) {
	attrs := parseAttributes(`gene_id "ENSG00000133703"; transcript_id "ENST00000311936"; tag "basic"; tag "MANE_Select";`)
	assert.Equal(t, "ENSG00000133703", attrs["gene_id"])
	assert.Equal(t, "ENST00000311936", attrs["transcript_id"])
	assert.Equal(t, "MANE_Select", attrs["tag"], "last value wins")
	assert.Empty(t, parseAttributes("  ;;"))
}

func TestParseGTFLine(t *testing.T) {
	f, ok := parseGTFLine("chr2\tX\tCDS\t503\t509\t.\t-\t1\tgene_id \"G\"; transcript_id \"T2.1\";")
	require.True(t, ok)
	assert.Equal(t, "2", f.chrom)
	assert.Equal(t, "CDS", f.kind)
	assert.Equal(t, int8(-1), f.strand)
	assert.Equal(t, 1, f.phase)
	assert.Equal(t, "T2.1", f.attrs["transcript_id"])

	f, ok = parseGTFLine("1\tX\texon\t1\t9\t.\t+\t.\tgene_id \"G\";")
	require.True(t, ok)
	assert.Equal(t, -1, f.phase)

	for _, line := range []string{"chr1\tbroken", "1\tX\texon\tabc\t9\t.\t+\t.\tx \"y\";"} {
		_, ok := parseGTFLine(line)
		assert.False(t, ok, line)
	}
}

func TestReadGTF(t *testing.T) {
	transcripts, err := ReadGTF(strings.NewReader(krasGTF), "")
	require.NoError(t, err)
	require.Len(t, transcripts, 2, "transcripts without exons are dropped")

	tr := transcripts["ENST00000311936"]
	require.NotNil(t, tr)
	assert.Equal(t, "KRAS", tr.GeneName)
	assert.Equal(t, "12", tr.Chrom)
	assert.Equal(t, int8(-1), tr.Strand)
	assert.Equal(t, "protein_coding", tr.Biotype)
	require.Len(t, tr.Exons, 2)

	// The stop codon extends the CDS past the last CDS feature.
	assert.Equal(t, int64(25245274), tr.CDSStart)
	assert.Equal(t, int64(25250808), tr.CDSEnd)

	// Exons are sorted by start; the first one is the 3' exon.
	assert.Equal(t, 0, tr.Exons[1].Frame)
	assert.Equal(t, 2, tr.Exons[0].Frame)

	lnc := transcripts["ENST00000000001"]
	require.NotNil(t, lnc)
	assert.False(t, lnc.IsProteinCoding())
	assert.Equal(t, -1, lnc.Exons[0].Frame)
}

func TestReadGTF_Chromosome(t *testing.T) {
	transcripts, err := ReadGTF(strings.NewReader(krasGTF), "chr12")
	require.NoError(t, err)
	require.Len(t, transcripts, 1)
	assert.Contains(t, transcripts, "ENST00000311936")
}

func TestReadGTF_PhaseFallback(t *testing.T) {
	// No phase column: phases derive from the 11 upstream coding bases.
	gtf := `chr2	X	transcript	490	620	.	-	.	gene_id "G"; transcript_id "T2";
chr2	X	exon	600	620	.	-	.	gene_id "G"; transcript_id "T2"; exon_number "1";
chr2	X	exon	490	509	.	-	.	gene_id "G"; transcript_id "T2"; exon_number "2";
chr2	X	CDS	600	610	.	-	.	gene_id "G"; transcript_id "T2";
chr2	X	CDS	500	509	.	-	.	gene_id "G"; transcript_id "T2";
`
	transcripts, err := ReadGTF(strings.NewReader(gtf), "")
	require.NoError(t, err)

	tr := transcripts["T2"]
	require.NotNil(t, tr)
	assert.Equal(t, 1, tr.Exons[0].Frame)
	assert.Equal(t, 0, tr.Exons[1].Frame)
	assert.Equal(t, int64(500), tr.Exons[0].CDSStart)
	assert.Equal(t, int64(509), tr.Exons[0].CDSEnd)
}

func TestReadGTF_RefSeqWithoutTranscriptLine(t *testing.T) {
	gtf := `chr1	refGene	exon	100	132	.	+	.	gene_id "GENEA"; transcript_id "NM_000001.1"; exon_number "1";
chr1	refGene	exon	200	260	.	+	.	gene_id "GENEA"; transcript_id "NM_000001.1"; exon_number "2";
chr1	refGene	CDS	100	129	.	+	0	gene_id "GENEA"; transcript_id "NM_000001.1"; exon_number "1";
chr1	refGene	stop_codon	130	132	.	+	0	gene_id "GENEA"; transcript_id "NM_000001.1"; exon_number "1";
`
	transcripts, err := ReadGTF(strings.NewReader(gtf), "")
	require.NoError(t, err)

	tr := transcripts["NM_000001"]
	require.NotNil(t, tr)
	assert.Equal(t, "GENEA", tr.GeneName, "gene id stands in for a missing name")
	assert.Equal(t, int64(100), tr.Start)
	assert.Equal(t, int64(260), tr.End)
	assert.Equal(t, int64(100), tr.CDSStart)
	assert.Equal(t, int64(132), tr.CDSEnd)
	assert.True(t, tr.Exons[0].IsCoding())
	assert.False(t, tr.Exons[1].IsCoding())
}

func TestLoadGTF(t *testing.T) {
	c := New()
	require.NoError(t, LoadGTF(c, "../../testdata/sample.gtf"))
	assert.Equal(t, []string{"ENST00000000002", "NM_000001"}, c.TranscriptIDs())

	rev := c.GetTranscript("ENST00000000002.1")
	require.NotNil(t, rev)
	assert.Len(t, rev.Exons, 2)
	assert.Equal(t, int64(500), rev.CDSStart)
	assert.Equal(t, int64(610), rev.CDSEnd)

	assert.Error(t, LoadGTF(New(), "../../testdata/missing.gtf"))
}

func TestLoad(t *testing.T) {
	c := New()
	require.NoError(t, Load(c, "../../testdata/sample.gtf", "../../testdata/sample_cds.fa"))

	tr := c.GetTranscript("NM_000001")
	require.NotNil(t, tr)
	assert.Equal(t, "MKTAYIAKQR*", tr.ProteinSequence)
	assert.Len(t, tr.CodonStarts, 11)

	rev := c.GetTranscript("ENST00000000002")
	require.NotNil(t, rev)
	assert.Equal(t, "MKWDEC*", rev.ProteinSequence)
	assert.Equal(t, []int64{610, 607, 604, 601, 508, 505, 502}, rev.CodonStarts)
}

func TestLoad_WithoutSequences(t *testing.T) {
	c := New()
	require.NoError(t, Load(c, "../../testdata/sample.gtf", ""))
	tr := c.GetTranscript("NM_000001")
	require.NotNil(t, tr)
	assert.Empty(t, tr.ProteinSequence)
	assert.Len(t, tr.CodonStarts, 11, "codon positions come from the GTF alone")
}
