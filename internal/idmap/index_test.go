package idmap

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_RoundTrip(t *testing.T) {
	entries := []Entry{
		{GeneID: "ENSG01", TranscriptID: "ENST01", GeneName: "KRAS", RefSeqID: "NM_004985", PDBID: "4OBE"},
		{GeneID: "ENSG02", GeneName: "TP53", PDBID: "1TUP"},
		{TranscriptID: "ENST03"},
	}

	idx := New()
	for _, e := range entries {
		idx.Add(e)
	}

	keysOf := func(e Entry) map[Kind]string {
		return map[Kind]string{
			GeneID: e.GeneID, TranscriptID: e.TranscriptID, GeneName: e.GeneName,
			RefSeqID: e.RefSeqID, PDBID: e.PDBID,
		}
	}

	for _, e := range entries {
		for kind, key := range keysOf(e) {
			if key == "" {
				continue
			}
			got := idx.Get(kind, key)
			found := false
			for _, g := range got {
				if *g == e {
					found = true
				}
			}
			assert.True(t, found, "entry %v not reachable via %s=%q", e, kind, key)
		}
	}
}

func TestIndex_AbsentKeyIsEmptyNotNil(t *testing.T) {
	idx := New()
	got := idx.Get(PDBID, "XXXX")
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = idx.Get(Kind(99), "x")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestIndex_GetAppendDoesNotLeak(t *testing.T) {
	idx := New()
	for _, id := range []string{"4OBE", "6GOD", "4LPK"} {
		idx.Add(Entry{GeneName: "KRAS", PDBID: id})
	}

	got := idx.Get(GeneName, "KRAS")
	assert.Equal(t, len(got), cap(got))
	extra := append(got, &Entry{GeneName: "KRAS", PDBID: "XXXX"})
	all := append(idx.Entries(), &Entry{PDBID: "YYYY"})
	idx.Add(Entry{GeneName: "KRAS", PDBID: "5P21"})

	assert.Equal(t, "XXXX", extra[3].PDBID)
	assert.Equal(t, "YYYY", all[3].PDBID)
	kras := idx.Get(GeneName, "KRAS")
	require.Len(t, kras, 4)
	assert.Equal(t, "5P21", kras[3].PDBID)
	assert.Equal(t, 4, idx.Len())
}

func TestIndex_Dedup(t *testing.T) {
	idx := New()
	e := Entry{GeneID: "G", PDBID: "1ABC"}
	idx.Add(e)
	idx.Add(e)

	assert.Equal(t, 1, idx.Len())
	assert.Len(t, idx.Get(PDBID, "1ABC"), 1)
}

func TestIndex_SharedOwnership(t *testing.T) {
	idx := New()
	idx.Add(Entry{GeneID: "G", RefSeqID: "NM_1", PDBID: "1ABC"})

	byGene := idx.Get(GeneID, "G")
	byPdb := idx.Get(PDBID, "1ABC")
	require.Len(t, byGene, 1)
	require.Len(t, byPdb, 1)
	assert.Same(t, byGene[0], byPdb[0])
}

func TestIndex_GetByPDBChain(t *testing.T) {
	idx := New()
	idx.Add(Entry{RefSeqID: "NM_1", PDBID: "1ABC", PDBChainID: "A"})
	idx.Add(Entry{RefSeqID: "NM_2", PDBID: "1ABC", PDBChainID: "B"})
	idx.Add(Entry{RefSeqID: "NM_3", PDBID: "1ABC"})

	assert.Len(t, idx.GetByPDBChain("1ABC", ""), 3)
	got := idx.GetByPDBChain("1ABC", "A")
	ids := DistinctIDs(got, SelectRefSeqID)
	assert.Equal(t, []string{"NM_1", "NM_3"}, ids)
	assert.Empty(t, idx.GetByPDBChain("9ZZZ", "A"))
}

func TestJoinIDs(t *testing.T) {
	entries := []*Entry{
		{RefSeqID: "NM_3"},
		{RefSeqID: "NM_1"},
		{RefSeqID: "NM_3"},
		{RefSeqID: ""},
	}

	ids, ok := JoinIDs(entries, SelectRefSeqID)
	assert.True(t, ok)
	assert.Equal(t, "NM_1,NM_3", ids)

	ids, ok = JoinIDs(nil, SelectRefSeqID)
	assert.False(t, ok)
	assert.Empty(t, ids)

	ids, ok = JoinIDs([]*Entry{}, SelectRefSeqID)
	assert.True(t, ok)
	assert.Empty(t, ids)
}

func TestTranscriptKey(t *testing.T) {
	assert.Equal(t, "NM_004985", TranscriptKey(&Entry{RefSeqID: "NM_004985.4", TranscriptID: "ENST1"}))
	assert.Equal(t, "ENST1", TranscriptKey(&Entry{TranscriptID: "ENST1.2"}))
	assert.Equal(t, "", TranscriptKey(&Entry{}))
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Entry
		wantErr bool
	}{
		{
			name: "basic",
			line: "ENSG01\tENST01\tKRAS\tNM_004985\t4OBE",
			want: Entry{GeneID: "ENSG01", TranscriptID: "ENST01", GeneName: "KRAS", RefSeqID: "NM_004985", PDBID: "4OBE"},
		},
		{
			name: "absent fields",
			line: "ENSG01\t.\tKRAS\t\t4OBE\tA",
			want: Entry{GeneID: "ENSG01", GeneName: "KRAS", PDBID: "4OBE", PDBChainID: "A"},
		},
		{
			name: "confirmed",
			line: "ENSG01\tENST01\tKRAS\tNM_004985\t4OBE\tA\t169\t189",
			want: Entry{GeneID: "ENSG01", TranscriptID: "ENST01", GeneName: "KRAS", RefSeqID: "NM_004985",
				PDBID: "4OBE", PDBChainID: "A", Confirmed: true, ChainLength: 169, TranscriptAALength: 189},
		},
		{name: "too few fields", line: "a\tb", wantErr: true},
		{name: "bad length", line: "a\tb\tc\td\te\tA\tx\t1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntry(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEntry_StringRoundTrip(t *testing.T) {
	e := Entry{GeneID: "G", RefSeqID: "NM_1", PDBID: "1ABC"}.WithChain("B", 120, 300)
	got, err := ParseEntry(e.String())
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestLoad(t *testing.T) {
	content := `# comment line
ENSG01	ENST01	KRAS	NM_004985	4OBE

ENSG02	ENST02	TP53	NM_000546	1TUP
`
	path := filepath.Join(t.TempDir(), "idmap.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	idx, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Len(t, idx.Get(GeneName, "TP53"), 1)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestRead_ParseErrorHasLine(t *testing.T) {
	idx := New()
	err := idx.Read(strings.NewReader("#h\nG\tT\tN\tR\tP\nbroken\n"))
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
}

func TestIndex_Write(t *testing.T) {
	idx := New()
	idx.Add(Entry{GeneID: "G2", PDBID: "2XYZ"})
	idx.Add(Entry{GeneID: "G1", RefSeqID: "NM_1", PDBID: "1ABC"}.WithChain("A", 10, 12))

	var buf bytes.Buffer
	require.NoError(t, idx.Write(&buf))

	reloaded := New()
	require.NoError(t, reloaded.Read(&buf))
	assert.Equal(t, 2, reloaded.Len())

	got := reloaded.Get(PDBID, "1ABC")
	require.Len(t, got, 1)
	assert.True(t, got[0].Confirmed)
	assert.Equal(t, 10, got[0].ChainLength)
}
