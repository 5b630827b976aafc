package duckdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-epistasis/internal/cache"
	"github.com/inodb/vibe-epistasis/internal/contact"
)

func openInMemory(t *testing.T, driver string) *Store {
	t.Helper()
	s, err := OpenDriver(driver, "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleContacts() []*contact.Record {
	mapped := contact.New("1ABC", "A", 2, 5, 'T', 'I', 5.408)
	mapped.Chr1, mapped.Pos1 = "1", 106
	mapped.Chr2, mapped.Pos2 = "1", 115
	mapped.TranscriptID = "NM_000001"
	mapped.MSA1, mapped.MSAIdx1 = "NM_000001", 2
	mapped.MSA2, mapped.MSAIdx2 = "NM_000001", 5
	mapped.AASeq1, mapped.AASeq2 = "TTT", "IIF"
	mapped.Annotations1 = "Domain_kinase"

	unmapped := contact.New("2XYZ", "B", 0, 9, 'M', 'R', 7.25)
	return []*contact.Record{mapped, unmapped}
}

// --- Contact result tests ---

func TestOpenClose(t *testing.T) {
	s := openInMemory(t, DriverDuckDB)
	assert.NotNil(t, s.DB())
	assert.Equal(t, DriverDuckDB, s.Driver())
}

func TestOpenDriver_Unsupported(t *testing.T) {
	_, err := OpenDriver("postgres", "")
	assert.Error(t, err)
}

func TestWriteAndReadContacts(t *testing.T) {
	for _, driver := range []string{DriverDuckDB, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			s := openInMemory(t, driver)
			recs := sampleContacts()

			runID := NewRunID()
			// The duplicate is dropped before writing.
			require.NoError(t, s.WriteContacts(runID, append(recs, recs[0])))

			got, err := s.ContactsByRun(runID)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, recs[0], got[0])
			assert.Equal(t, recs[1], got[1])
			assert.Equal(t, -1, got[1].MSAIdx1)

			byTr, err := s.ContactsByTranscript("NM_000001")
			require.NoError(t, err)
			require.Len(t, byTr, 1)
			assert.Equal(t, "1ABC", byTr[0].PDBID)

			none, err := s.ContactsByRun(NewRunID())
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestRunsAndClear(t *testing.T) {
	s := openInMemory(t, DriverDuckDB)

	run1, run2 := NewRunID(), NewRunID()
	require.NotEqual(t, run1, run2)
	require.NoError(t, s.WriteContacts(run1, sampleContacts()))
	require.NoError(t, s.WriteContacts(run2, sampleContacts()[:1]))
	require.NoError(t, s.WriteContacts(run2, nil))

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{run1, run2}, runs)

	require.NoError(t, s.ClearContacts())
	runs, err = s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "contacts.db")
	s, err := OpenDriver(DriverSQLite, path)
	require.NoError(t, err)
	runID := NewRunID()
	require.NoError(t, s.WriteContacts(runID, sampleContacts()))
	require.NoError(t, s.Close())

	s, err = OpenDriver(DriverSQLite, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.ContactsByRun(runID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

// --- Transcript cache tests (gob) ---

func TestTranscriptCacheWriteAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	tc := NewTranscriptCache(dir)

	c := cache.New()
	c.AddTranscript(&cache.Transcript{
		ID: "NM_000001", GeneID: "GENEA", GeneName: "GENEA",
		Chrom: "1", Start: 100, End: 132, Strand: 1,
		CDSStart: 100, CDSEnd: 132,
		CDSSequence: "ATGAAAACCGCTTATATTGCTAAACAGCGTTAA",
		Exons: []cache.Exon{
			{Number: 1, Start: 100, End: 132, CDSStart: 100, CDSEnd: 132, Frame: 0},
		},
	})
	c.AddTranscript(&cache.Transcript{
		ID: "ENST00000000003", GeneID: "ENSG00000000003", GeneName: "GENEC",
		Chrom: "2", Start: 10, End: 50, Strand: -1, Biotype: "lncRNA",
		Exons: []cache.Exon{{Number: 1, Start: 10, End: 50, Frame: -1}},
	})
	c.Finalize()

	fp := FileFingerprint{Size: 1000, ModTime: time.Now()}
	require.NoError(t, tc.Write(c, fp, fp))

	c2 := cache.New()
	require.NoError(t, tc.Load(c2))

	assert.Equal(t, 2, c2.TranscriptCount())
	assert.Equal(t, []string{"1", "2"}, c2.Chromosomes())

	tr := c2.GetTranscript("NM_000001.1")
	require.NotNil(t, tr)
	assert.Equal(t, "GENEA", tr.GeneName)
	assert.Equal(t, "MKTAYIAKQR*", tr.ProteinSequence)
	assert.Equal(t, []int64{100, 103, 106, 109, 112, 115, 118, 121, 124, 127, 130}, tr.CodonStarts)
	require.Len(t, tr.Exons, 1)
	assert.Equal(t, 0, tr.Exons[0].Frame)

	nc := c2.GetTranscript("ENST00000000003")
	require.NotNil(t, nc)
	assert.Equal(t, int8(-1), nc.Strand)
	assert.False(t, nc.IsProteinCoding())
}

func TestTranscriptCacheValidation(t *testing.T) {
	tc := NewTranscriptCache(t.TempDir())

	now := time.Now()
	gtf := FileFingerprint{Size: 1000, ModTime: now}
	fasta := FileFingerprint{Size: 2000, ModTime: now}

	// No cache yet → invalid
	assert.False(t, tc.Valid(gtf, fasta))

	c := cache.New()
	c.AddTranscript(&cache.Transcript{
		ID: "ENST00000001", Chrom: "1", Start: 100, End: 200, Strand: 1,
	})
	require.NoError(t, tc.Write(c, gtf, fasta))

	// Same fingerprints → valid
	assert.True(t, tc.Valid(gtf, fasta))

	// Different size → stale
	gtfChanged := gtf
	gtfChanged.Size = 9999
	assert.False(t, tc.Valid(gtfChanged, fasta))

	// Different modtime → stale
	fastaChanged := fasta
	fastaChanged.ModTime = now.Add(time.Hour)
	assert.False(t, tc.Valid(gtf, fastaChanged))

	// Different source list → stale
	assert.False(t, tc.Valid(gtf))
}

func TestTranscriptCacheClear(t *testing.T) {
	tc := NewTranscriptCache(t.TempDir())
	fp := FileFingerprint{Size: 100, ModTime: time.Now()}

	c := cache.New()
	c.AddTranscript(&cache.Transcript{
		ID: "ENST00000001", Chrom: "1", Start: 100, End: 200, Strand: 1,
	})
	require.NoError(t, tc.Write(c, fp))
	assert.True(t, tc.Valid(fp))

	tc.Clear()
	assert.False(t, tc.Valid(fp))
}

func TestStatFile(t *testing.T) {
	fp, err := StatFile("")
	require.NoError(t, err)
	assert.Equal(t, FileFingerprint{}, fp)

	path := filepath.Join(t.TempDir(), "x.gtf")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))
	fp, err = StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fp.Size)

	_, err = StatFile(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
