package idmap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
)

// Kind names an identifier vocabulary.
type Kind int

const (
	GeneID Kind = iota
	TranscriptID
	GeneName
	RefSeqID
	PDBID
	numKinds
)

func (k Kind) String() string {
	switch k {
	case GeneID:
		return "gene_id"
	case TranscriptID:
		return "transcript_id"
	case GeneName:
		return "gene_name"
	case RefSeqID:
		return "refseq_id"
	case PDBID:
		return "pdb_id"
	default:
		return "unknown"
	}
}

// Index is a multi-key lookup table over id-map entries. An entry is shared
// by every bucket it appears in. Index is not safe for concurrent writes;
// it is built once and read afterwards.
type Index struct {
	buckets [numKinds]map[string][]*Entry
	entries map[Entry]*Entry
	order   []*Entry
}

// New creates an empty index.
func New() *Index {
	idx := &Index{entries: make(map[Entry]*Entry)}
	for k := range idx.buckets {
		idx.buckets[k] = make(map[string][]*Entry)
	}
	return idx
}

// Add inserts e into every bucket for which it declares a key.
// Adding an entry equal to one already present is a no-op.
func (idx *Index) Add(e Entry) {
	if _, ok := idx.entries[e]; ok {
		return
	}
	p := &e
	idx.entries[e] = p
	idx.order = append(idx.order, p)

	keys := [numKinds]string{
		GeneID:       e.GeneID,
		TranscriptID: e.TranscriptID,
		GeneName:     e.GeneName,
		RefSeqID:     e.RefSeqID,
		PDBID:        e.PDBID,
	}
	for k, key := range keys {
		if key == "" {
			continue
		}
		idx.buckets[k][key] = append(idx.buckets[k][key], p)
	}
}

// AddAll inserts every entry.
func (idx *Index) AddAll(entries []Entry) {
	for _, e := range entries {
		idx.Add(e)
	}
}

// Get returns the entries keyed by key in the given vocabulary.
// The result is never nil.
func (idx *Index) Get(kind Kind, key string) []*Entry {
	if kind < 0 || kind >= numKinds {
		return []*Entry{}
	}
	if l, ok := idx.buckets[kind][key]; ok {
		return slices.Clip(l)
	}
	return []*Entry{}
}

// GetByPDBChain returns the entries for a PDB id restricted to one chain.
// An empty chain matches every entry of the PDB id, and entries without a
// chain match any chain.
func (idx *Index) GetByPDBChain(pdbID, chain string) []*Entry {
	all := idx.Get(PDBID, pdbID)
	if chain == "" {
		return all
	}
	out := []*Entry{}
	for _, e := range all {
		if e.PDBChainID == "" || e.PDBChainID == chain {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns all distinct entries in insertion order.
func (idx *Index) Entries() []*Entry {
	return slices.Clip(idx.order)
}

// Len returns the number of distinct entries.
func (idx *Index) Len() int {
	return len(idx.order)
}

// JoinIDs applies sel to every entry and returns the distinct non-empty
// results, sorted and comma-joined. ok is false when entries is nil.
func JoinIDs(entries []*Entry, sel Selector) (ids string, ok bool) {
	if entries == nil {
		return "", false
	}
	return strings.Join(DistinctIDs(entries, sel), ","), true
}

// DistinctIDs is JoinIDs without the join.
func DistinctIDs(entries []*Entry, sel Selector) []string {
	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		id := sel(e)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Load reads an id-map file into a new index.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open id map: %w", err)
	}
	defer f.Close()

	idx := New()
	if err := idx.read(f, path); err != nil {
		return nil, err
	}
	return idx, nil
}

// Read parses id-map lines from r into the index. Lines starting with '#'
// and blank lines are skipped.
func (idx *Index) Read(r io.Reader) error {
	return idx.read(r, "<reader>")
}

func (idx *Index) read(r io.Reader, name string) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		e, err := ParseEntry(line)
		if err != nil {
			return &ParseError{File: name, Line: lineNum, Msg: err.Error()}
		}
		idx.Add(e)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read id map %s: %w", name, err)
	}
	return nil
}

// Write writes all entries as id-map lines, sorted for stable output.
func (idx *Index) Write(w io.Writer) error {
	lines := make([]string, 0, len(idx.order))
	for _, e := range idx.order {
		lines = append(lines, e.String())
	}
	sort.Strings(lines)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("#gene_id\ttranscript_id\tgene_name\trefseq_id\tpdb_id\tpdb_chain\tchain_len\ttr_aa_len\n"); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := bw.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
