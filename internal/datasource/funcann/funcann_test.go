package funcann

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTSV = `#chrom	start	end	transcript_id	name
chr1	100	111	ENST00000000001.3	Domain_kinase
chr1	112	132	ENST00000000001.3	Helix
1	100	132	ENST00000000099	Unrelated
chr2	500	620	ENST00000000002	Repeat
`

func writeTSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "funcann.tsv")
	require.NoError(t, os.WriteFile(path, []byte(testTSV), 0644))
	return path
}

func names(recs []Record) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}

func TestLoadAndQuery(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	assert.False(t, store.Loaded(), "should be empty before load")
	require.NoError(t, store.Load(writeTSV(t)))
	assert.True(t, store.Loaded())

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	recs, err := store.Query("chr1", 105)
	require.NoError(t, err)
	assert.Equal(t, []string{"Domain_kinase", "Unrelated"}, names(recs))
	assert.Equal(t, "1", recs[0].Chrom)
	assert.Equal(t, "ENST00000000001", recs[0].TranscriptID, "version stripped")

	recs, err = store.Query("1", 120)
	require.NoError(t, err)
	assert.Equal(t, []string{"Unrelated", "Helix"}, names(recs))

	// Boundaries are inclusive.
	recs, err = store.Query("1", 111)
	require.NoError(t, err)
	assert.Equal(t, []string{"Domain_kinase", "Unrelated"}, names(recs))

	recs, err = store.Query("1", 99)
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = store.Query("X", 100)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestLoadReplaces(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	path := writeTSV(t)
	require.NoError(t, store.Load(path))
	require.NoError(t, store.Load(path))

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestPreloadMatchesQuery(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Load(writeTSV(t)))

	positions := []int64{99, 100, 111, 112, 125, 132, 133}
	want := make(map[int64][]string)
	for _, pos := range positions {
		recs, err := store.Query("1", pos)
		require.NoError(t, err)
		want[pos] = names(recs)
	}

	require.NoError(t, store.PreloadToMemory())
	for _, pos := range positions {
		recs, err := store.Query("chr1", pos)
		require.NoError(t, err)
		assert.Equal(t, want[pos], names(recs), "pos %d", pos)
	}
}

func TestAdd(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "sub", "funcann.duckdb"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Add([]Record{
		{Chrom: "chr7", Start: 10, End: 20, TranscriptID: "ENST1", Name: "Site"},
	}))

	recs, err := store.Query("7", 15)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, Record{Chrom: "7", Start: 10, End: 20, TranscriptID: "ENST1", Name: "Site"}, recs[0])
}

func TestLoadMissingFile(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	assert.Error(t, store.Load(filepath.Join(t.TempDir(), "absent.tsv")))
}
