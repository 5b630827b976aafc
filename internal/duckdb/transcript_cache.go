package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/vibe-epistasis/internal/cache"
)

// TranscriptCache manages gob-serialized transcript data on disk:
//
//	{dir}/transcripts.gob       (serialized transcripts, proteins included)
//	{dir}/transcripts.gob.meta  (source file fingerprints)
//
// The cache is valid only for the exact list of source files it was
// written from.
type TranscriptCache struct {
	dir string
}

// NewTranscriptCache creates a transcript cache for the given directory.
func NewTranscriptCache(dir string) *TranscriptCache {
	return &TranscriptCache{dir: dir}
}

func (tc *TranscriptCache) gobPath() string {
	return filepath.Join(tc.dir, "transcripts.gob")
}

func (tc *TranscriptCache) metaPath() string {
	return filepath.Join(tc.dir, "transcripts.gob.meta")
}

// Valid checks whether the cached transcripts match the given sources.
func (tc *TranscriptCache) Valid(sources ...FileFingerprint) bool {
	meta, err := tc.readMeta()
	if err != nil {
		return false
	}
	if meta["sources"] != strconv.Itoa(len(sources)) {
		return false
	}

	for i, src := range sources {
		for _, line := range src.metaLines("source" + strconv.Itoa(i)) {
			k, v, _ := strings.Cut(line, "=")
			if meta[k] != v {
				return false
			}
		}
	}

	if _, err := os.Stat(tc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads serialized transcripts from disk into the cache.
func (tc *TranscriptCache) Load(c *cache.Cache) error {
	f, err := os.Open(tc.gobPath())
	if err != nil {
		return fmt.Errorf("open transcript cache: %w", err)
	}
	defer f.Close()

	var data map[string][]*cache.Transcript
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return fmt.Errorf("decode transcript cache: %w", err)
	}

	for _, chrom := range sortedKeys(data) {
		for _, t := range data[chrom] {
			c.AddTranscript(t)
		}
	}
	c.Finalize()
	return nil
}

// Write serializes all transcripts from the cache to disk and records the
// source fingerprints.
func (tc *TranscriptCache) Write(c *cache.Cache, sources ...FileFingerprint) error {
	if err := os.MkdirAll(tc.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	data := make(map[string][]*cache.Transcript)
	for _, chrom := range c.Chromosomes() {
		data[chrom] = c.FindTranscriptsByChrom(chrom)
	}

	f, err := os.Create(tc.gobPath())
	if err != nil {
		return fmt.Errorf("create transcript cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(data); err != nil {
		f.Close()
		os.Remove(tc.gobPath())
		return fmt.Errorf("encode transcript cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close transcript cache: %w", err)
	}

	return tc.writeMeta(sources)
}

// Clear removes the cached transcript files.
func (tc *TranscriptCache) Clear() {
	os.Remove(tc.gobPath())
	os.Remove(tc.metaPath())
}

func (tc *TranscriptCache) writeMeta(sources []FileFingerprint) error {
	lines := []string{"sources=" + strconv.Itoa(len(sources))}
	for i, src := range sources {
		lines = append(lines, src.metaLines("source"+strconv.Itoa(i))...)
	}
	lines = append(lines, "created_at="+time.Now().UTC().Format(time.RFC3339), "")
	return os.WriteFile(tc.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (tc *TranscriptCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(tc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}

func sortedKeys(m map[string][]*cache.Transcript) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
