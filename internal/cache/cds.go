package cache

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CDSSet holds coding sequences keyed by transcript id without version.
// It reads GENCODE pc_transcripts FASTA, where the CDS range in the header
// cuts the UTRs, and plain CDS FASTA keyed by RefSeq or Ensembl ids.
type CDSSet struct {
	seqs       map[string]string
	duplicates int
}

// LoadCDS reads a coding-sequence FASTA file. Files ending in .gz are
// decompressed.
func LoadCDS(path string) (*CDSSet, error) {
	rc, err := openInput(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}
	defer rc.Close()
	return ReadCDS(rc)
}

// ReadCDS reads coding sequences from r. Sequences are upper-cased so that
// soft-masked bases translate. A repeated id keeps its first sequence.
func ReadCDS(r io.Reader) (*CDSSet, error) {
	s := &CDSSet{seqs: make(map[string]string)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var header string
	var seq strings.Builder
	flush := func() {
		if header == "" || seq.Len() == 0 {
			return
		}
		id := fastaID(header)
		if _, dup := s.seqs[id]; dup {
			s.duplicates++
			return
		}
		full := seq.String()
		if start, end, ok := cdsRange(header); ok && start >= 1 && start <= end && end <= len(full) {
			full = full[start-1 : end]
		}
		s.seqs[id] = full
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, ">") {
			flush()
			header = line[1:]
			seq.Reset()
			continue
		}
		seq.WriteString(strings.ToUpper(line))
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}
	return s, nil
}

// fastaID is the versionless id before the first '|' or space.
func fastaID(header string) string {
	header = strings.TrimPrefix(header, ">")
	if i := strings.IndexAny(header, "| \t"); i >= 0 {
		header = header[:i]
	}
	return stripVersion(header)
}

// cdsRange returns the 1-based inclusive "CDS:start-end" field of a
// GENCODE header.
func cdsRange(header string) (start, end int, ok bool) {
	for field := range strings.SplitSeq(header, "|") {
		rng, found := strings.CutPrefix(strings.TrimSpace(field), "CDS:")
		if !found {
			continue
		}
		a, b, found := strings.Cut(rng, "-")
		if !found {
			return 0, 0, false
		}
		s, err1 := strconv.Atoi(a)
		e, err2 := strconv.Atoi(b)
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return s, e, true
	}
	return 0, 0, false
}

// Sequence returns the coding sequence of a transcript, with or without
// version suffix, or "".
func (s *CDSSet) Sequence(transcriptID string) string {
	return s.seqs[stripVersion(transcriptID)]
}

// Len returns the number of sequences.
func (s *CDSSet) Len() int { return len(s.seqs) }

// Duplicates returns how many repeated ids were ignored.
func (s *CDSSet) Duplicates() int { return s.duplicates }

// Attach sets the coding sequence of every cached transcript found in the
// set and returns how many were set.
func (s *CDSSet) Attach(c *Cache) int {
	n := 0
	for _, id := range c.TranscriptIDs() {
		if seq := s.seqs[id]; seq != "" {
			c.GetTranscript(id).CDSSequence = seq
			n++
		}
	}
	return n
}
