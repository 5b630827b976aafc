package cache

import "sort"

// Cache holds transcripts indexed by chromosome and by ID. It is filled by
// the loaders and read-only afterwards.
type Cache struct {
	transcripts map[string][]*Transcript // by chromosome
	byID        map[string]*Transcript
}

// New creates a new empty cache.
func New() *Cache {
	return &Cache{
		transcripts: make(map[string][]*Transcript),
		byID:        make(map[string]*Transcript),
	}
}

// AddTranscript adds a transcript to the cache. A transcript with the same
// ID replaces the earlier one in the ID index.
func (c *Cache) AddTranscript(t *Transcript) {
	c.transcripts[t.Chrom] = append(c.transcripts[t.Chrom], t)
	c.byID[stripVersion(t.ID)] = t
}

// GetTranscript returns a transcript by ID (version suffix ignored), or nil.
func (c *Cache) GetTranscript(id string) *Transcript {
	return c.byID[stripVersion(id)]
}

// TranscriptIDs returns all transcript IDs, sorted.
func (c *Cache) TranscriptIDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TranscriptCount returns the total number of transcripts in the cache.
func (c *Cache) TranscriptCount() int {
	return len(c.byID)
}

// Chromosomes returns a sorted list of chromosomes in the cache.
func (c *Cache) Chromosomes() []string {
	chroms := make([]string, 0, len(c.transcripts))
	for chrom := range c.transcripts {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	return chroms
}

// FindTranscriptsByChrom returns all transcripts for a chromosome.
func (c *Cache) FindTranscriptsByChrom(chrom string) []*Transcript {
	return c.transcripts[normalizeChrom(chrom)]
}

// Finalize translates proteins and precomputes codon tables for every
// transcript.
func (c *Cache) Finalize() {
	for _, t := range c.byID {
		t.Finalize()
	}
}
