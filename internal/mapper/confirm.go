package mapper

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/vibe-epistasis/internal/idmap"
	"github.com/inodb/vibe-epistasis/internal/structure"
)

// ChainMismatch compares a chain's residues with a protein sequence,
// residue number n against protein position n-1. Residues with a negative
// position are skipped and residues past the end of the protein count as
// mismatches. It returns the mismatch rate and the number of residues
// compared.
func ChainMismatch(ch *structure.Chain, protein string) (rate float64, compared int) {
	var match, mismatch int
	for _, r := range ch.Residues {
		aaPos := r.SeqNum - 1
		if aaPos < 0 {
			continue
		}
		if aaPos < len(protein) && protein[aaPos] == r.AA {
			match++
		} else {
			mismatch++
		}
	}
	compared = match + mismatch
	if compared == 0 {
		return 0, 0
	}
	return float64(mismatch) / float64(compared), compared
}

// ConfirmChain reports whether a chain matches a protein closely enough
// for its identifier mapping to be trusted: at least one residue compared
// and a mismatch rate strictly below Options.MaxMismatchRate.
func (m *Mapper) ConfirmChain(ch *structure.Chain, protein string) bool {
	rate, n := ChainMismatch(ch, protein)
	return n > 0 && rate < m.opts.MaxMismatchRate
}

// ConfirmStructure checks every chain of a structure against each
// transcript its PDB id maps to and returns the confirmed entries, bound to
// their chain. Structures above Options.MaxResolution yield nothing.
func (m *Mapper) ConfirmStructure(s *structure.Structure) []idmap.Entry {
	entries := m.idx.Get(idmap.PDBID, s.ID)
	var out []idmap.Entry
	for _, trID := range idmap.DistinctIDs(entries, idmap.TranscriptKey) {
		out = append(out, m.confirmTranscript(s, trID, entries)...)
	}
	return out
}

func (m *Mapper) confirmTranscript(s *structure.Structure, trID string, entries []*idmap.Entry) []idmap.Entry {
	tr := m.genome.Transcript(trID)
	if tr == nil {
		m.warn.Warn(WarnNoTranscript, "transcript not found", zap.String("transcript", trID))
		return nil
	}
	if s.Resolution > m.opts.MaxResolution {
		m.counts.Inc(KeyResolution)
		return nil
	}

	protein := tr.Protein()
	var out []idmap.Entry
	for _, ch := range s.Chains {
		rate, n := ChainMismatch(ch, protein)
		if n == 0 {
			continue
		}
		if rate >= m.opts.MaxMismatchRate {
			m.logger.Debug("chain rejected",
				zap.String("pdb_id", s.ID), zap.String("chain", ch.ID),
				zap.String("transcript", trID), zap.Float64("mismatch_rate", rate))
			continue
		}
		if e := firstEntry(entries, trID, s.ID); e != nil {
			out = append(out, e.WithChain(ch.ID, len(ch.Residues), len(protein)))
			m.logger.Debug("chain confirmed",
				zap.String("pdb_id", s.ID), zap.String("chain", ch.ID),
				zap.String("transcript", trID), zap.Float64("mismatch_rate", rate))
		}
	}
	return out
}

func firstEntry(entries []*idmap.Entry, trID, pdbID string) *idmap.Entry {
	for _, e := range entries {
		if idmap.TranscriptKey(e) == trID && e.PDBID == pdbID {
			return e
		}
	}
	return nil
}

// ConfirmDirectory reads every structure file in dir, confirms it in
// parallel and returns an index holding only the confirmed entries.
// Unreadable structure files abort the run.
func (m *Mapper) ConfirmDirectory(dir string, reader structure.Reader) (*idmap.Index, error) {
	files, err := StructureFiles(dir)
	if err != nil {
		return nil, err
	}

	paths := make(chan string)
	go func() {
		defer close(paths)
		for _, f := range files {
			paths <- f
		}
	}()

	var (
		mu       sync.Mutex
		firstErr error
		perFile  = make(map[string][]idmap.Entry, len(files))
		wg       sync.WaitGroup
	)
	wg.Add(m.opts.Workers)
	for range m.opts.Workers {
		go func() {
			defer wg.Done()
			for path := range paths {
				s, err := reader.Read(path)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("read structure %s: %w", path, err)
					}
					mu.Unlock()
					continue
				}
				confirmed := m.ConfirmStructure(s)
				mu.Lock()
				perFile[path] = confirmed
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	idx := idmap.New()
	for _, f := range files {
		idx.AddAll(perFile[f])
	}
	m.logger.Info("confirmed structure mappings",
		zap.Int("files", len(files)), zap.Int("entries", idx.Len()))
	return idx, nil
}

// StructureFiles lists the structure files of a directory, sorted.
func StructureFiles(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read structure directory: %w", err)
	}
	var files []string
	for _, de := range dirEntries {
		if de.IsDir() || !structure.IsStructureFile(de.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, de.Name()))
	}
	sort.Strings(files)
	return files, nil
}
