// Package mapper cross-references structural contacts with the genome
// annotation and the multi-species alignments. It resolves PDB residues to
// transcripts, genomic positions and alignment columns, and confirms
// PDB-to-transcript identifier mappings against structure sequences.
package mapper

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-epistasis/internal/cache"
	"github.com/inodb/vibe-epistasis/internal/contact"
	"github.com/inodb/vibe-epistasis/internal/datasource/funcann"
	"github.com/inodb/vibe-epistasis/internal/idmap"
	"github.com/inodb/vibe-epistasis/internal/msa"
	"github.com/inodb/vibe-epistasis/internal/stats"
)

// Defaults for Options.
const (
	DefaultMaxMismatchRate = 0.1
	DefaultMaxResolution   = 3.0 // Angstroms
)

// Counter keys.
const (
	KeyProteinOK    = "PROTEIN_MSA_VS_TR:OK"
	KeyProteinError = "PROTEIN_MSA_VS_TR:ERROR"
	KeyTotalOK      = "_TOTAL_OK___"
	KeyTotalError   = "_TOTAL_ERROR"
	KeyTrMsaError   = "_Total_ERROR_TR-MSA"
	KeyResolution   = "PDB_RESOLUTION:SKIP"
)

// Warning categories.
const (
	WarnNoMapping    = "no_mapping"
	WarnNoTranscript = "no_transcript"
	WarnNoExon       = "no_exon"
	WarnResidue      = "residue_mismatch"
)

// GenomeAnnotationProvider exposes the transcripts and functional
// annotations of a genome.
type GenomeAnnotationProvider interface {
	Transcript(id string) *cache.Transcript
	TranscriptIDs() []string
	FunctionalAnnotations(chrom string, pos int64) ([]funcann.Record, error)
}

// Options tunes a Mapper. Zero values fall back to the defaults.
type Options struct {
	MaxWarnings     int     // messages per warning category
	MaxMismatchRate float64 // chains at or above this rate are rejected
	MaxResolution   float64 // structures above this resolution are skipped
	Debug           bool    // per-PDB and per-strand/frame counters
	Workers         int     // worker pool size, 0 for runtime.NumCPU()
}

func (o Options) withDefaults() Options {
	if o.MaxWarnings <= 0 {
		o.MaxWarnings = stats.DefaultMaxWarnings
	}
	if o.MaxMismatchRate <= 0 {
		o.MaxMismatchRate = DefaultMaxMismatchRate
	}
	if o.MaxResolution <= 0 {
		o.MaxResolution = DefaultMaxResolution
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

// Column is an alignment column resolved for a genomic position.
type Column struct {
	Seq     string // one residue per species, reference species first
	BlockID string
	Index   int
}

// Mapper resolves contacts against the identifier index, the alignment
// set and the genome. Loaded data is read-only; counters and warnings are
// safe for concurrent use, so one Mapper serves all workers.
type Mapper struct {
	idx    *idmap.Index
	msas   *msa.Set
	genome GenomeAnnotationProvider
	opts   Options

	counts *stats.Counter
	warn   *stats.Warner
	logger *zap.Logger
}

// New creates a mapper over loaded data.
func New(idx *idmap.Index, msas *msa.Set, genome GenomeAnnotationProvider, opts Options) *Mapper {
	opts = opts.withDefaults()
	logger := zap.NewNop()
	return &Mapper{
		idx:    idx,
		msas:   msas,
		genome: genome,
		opts:   opts,
		counts: stats.NewCounter(),
		warn:   stats.NewWarner(logger, opts.MaxWarnings),
		logger: logger,
	}
}

// SetLogger sets the logger for diagnostics and warnings.
func (m *Mapper) SetLogger(l *zap.Logger) {
	m.logger = l
	m.warn.SetLogger(l)
}

// Options returns the effective options.
func (m *Mapper) Options() Options {
	return m.opts
}

// Counts returns the match and mismatch tallies.
func (m *Mapper) Counts() *stats.Counter {
	return m.counts
}

// Warnings returns the warning tallies per category.
func (m *Mapper) Warnings() *stats.Counter {
	return m.warn.Counts()
}

// ResetStats clears the match and mismatch tallies.
func (m *Mapper) ResetStats() {
	m.counts.Reset()
}

// CheckSequenceMsaTr reports whether the protein translated from the
// transcript equals the reference row of its alignment blocks. One
// trailing stop or gap is ignored on both sides.
func (m *Mapper) CheckSequenceMsaTr(trID string) bool {
	tr := m.genome.Transcript(trID)
	if tr == nil {
		m.warn.Warn(WarnNoTranscript, "transcript not found", zap.String("transcript", trID))
		return false
	}

	protein := removeAAStop(tr.Protein())
	row, ok := m.msas.FindRowSequence(trID, tr.Chrom)
	if protein == "" || !ok {
		return false
	}
	row = removeAAStop(row)

	if protein != row {
		m.counts.Inc(KeyProteinError)
		m.logger.Debug("transcript protein differs from alignment",
			zap.String("transcript", trID),
			zap.String("protein", protein),
			zap.String("msa", row))
		return false
	}
	m.counts.Inc(KeyProteinOK)
	return true
}

func removeAAStop(seq string) string {
	if strings.HasSuffix(seq, "*") || strings.HasSuffix(seq, "-") {
		return seq[:len(seq)-1]
	}
	return seq
}

// FindColumnSequence returns the alignment column holding the amino acid
// encoded at genomic position pos. The first block for the transcript on
// its chromosome whose span contains pos is used.
func (m *Mapper) FindColumnSequence(trID string, pos int64) (Column, bool) {
	tr := m.genome.Transcript(trID)
	if tr == nil {
		return Column{}, false
	}
	chrom := msa.NormalizeChrom(tr.Chrom)

	key := msa.StripVersion(trID)
	for _, b := range m.msas.FindByPosition(chrom, pos) {
		if msa.StripVersion(b.ID) != key {
			continue
		}

		exon := tr.FindExon(pos)
		if exon == nil {
			m.warn.Warn(WarnNoExon, "no exon at position",
				zap.String("transcript", tr.ID), zap.Int64("pos", pos))
			return Column{}, false
		}

		var idxBase int64
		if tr.IsForwardStrand() {
			idxBase = pos - b.Start
		} else {
			idxBase = b.End - pos
		}
		idx := int(idxBase / 3)
		// Blocks of exons with phase 1 start with the amino acid split
		// across the preceding intron.
		if exon.Frame == 1 {
			idx++
		}

		col, ok := b.Column(idx)
		if !ok {
			return Column{}, false
		}
		return Column{Seq: col, BlockID: b.ID, Index: idx}, true
	}
	return Column{}, false
}

// MapToMsa resolves a contact to genomic positions and alignment columns.
// The record is enriched only when the contact's amino acids match the
// reference residues of both columns. Misses are tallied, never returned.
func (m *Mapper) MapToMsa(rec *contact.Record) {
	entries := m.idx.GetByPDBChain(rec.PDBID, rec.Chain)
	if len(entries) == 0 {
		m.warn.Warn(WarnNoMapping, "no mapping found for PDB id",
			zap.String("pdb_id", rec.PDBID), zap.String("chain", rec.Chain))
		return
	}

	for _, e := range entries {
		trID := idmap.TranscriptKey(e)

		if !m.CheckSequenceMsaTr(trID) {
			m.counts.Inc(KeyTrMsaError)
			return
		}

		tr := m.genome.Transcript(trID)
		if tr == nil {
			m.warn.Warn(WarnNoTranscript, "transcript not found", zap.String("transcript", trID))
			return
		}

		aa2pos := tr.AAPositions()
		if rec.AAPos1 < 0 || rec.AAPos2 < 0 || rec.AAPos1 >= len(aa2pos) || rec.AAPos2 >= len(aa2pos) {
			continue
		}
		pos1, pos2 := aa2pos[rec.AAPos1], aa2pos[rec.AAPos2]

		col1, ok1 := m.FindColumnSequence(trID, pos1)
		col2, ok2 := m.FindColumnSequence(trID, pos2)
		if !ok1 || !ok2 || col1.Seq == "" || col2.Seq == "" {
			continue
		}

		match1 := rec.AA1 == col1.Seq[0]
		match2 := rec.AA2 == col2.Seq[0]
		ok := match1 && match2
		m.counts.Inc("_TOTAL_" + okString(ok))

		if m.opts.Debug {
			m.counts.Inc(rec.PDBID + "_" + okString(match1))
			m.counts.Inc(rec.PDBID + "_" + okString(match2))
			m.counts.Inc(strandFrameKey(tr, pos1, match1))
			m.counts.Inc(strandFrameKey(tr, pos2, match2))
		}

		if !ok {
			m.warn.Warn(WarnResidue, "contact residues differ from alignment",
				zap.String("pdb_id", rec.PDBID),
				zap.String("transcript", tr.ID),
				zap.Float64("distance", rec.Distance),
				zap.String("aa1", string(rec.AA1)), zap.Int("aa_pos1", rec.AAPos1),
				zap.String("pos1", fmt.Sprintf("%s:%d", tr.Chrom, pos1)), zap.String("col1", col1.Seq),
				zap.String("aa2", string(rec.AA2)), zap.Int("aa_pos2", rec.AAPos2),
				zap.String("pos2", fmt.Sprintf("%s:%d", tr.Chrom, pos2)), zap.String("col2", col2.Seq))
			continue
		}

		rec.Chr1, rec.Pos1, rec.AASeq1 = tr.Chrom, pos1, col1.Seq
		rec.Chr2, rec.Pos2, rec.AASeq2 = tr.Chrom, pos2, col2.Seq
		rec.TranscriptID = tr.ID
		rec.MSA1, rec.MSAIdx1 = col1.BlockID, col1.Index
		rec.MSA2, rec.MSAIdx2 = col2.BlockID, col2.Index
	}
}

func okString(ok bool) string {
	if ok {
		return "OK___"
	}
	return "ERROR"
}

func strandFrameKey(tr *cache.Transcript, pos int64, ok bool) string {
	strand := "+"
	if !tr.IsForwardStrand() {
		strand = "-"
	}
	frame := -1
	if e := tr.FindExon(pos); e != nil {
		frame = e.Frame
	}
	return fmt.Sprintf("_TOTAL_%s_Strand:%s_Frame:%d", okString(ok), strand, frame)
}

// Annotate fills both annotation fields of a mapped contact with the
// functional annotations at its genomic positions. Only annotations of
// transcripts linked to the contact's transcript are kept. Unmapped
// contacts are left untouched.
func (m *Mapper) Annotate(rec *contact.Record) error {
	if rec.TranscriptID == "" {
		return nil
	}
	trIDs := m.linkedTranscripts(rec.TranscriptID)

	var err error
	if rec.Annotations1, err = m.annotations(rec.Chr1, rec.Pos1, trIDs); err != nil {
		return err
	}
	rec.Annotations2, err = m.annotations(rec.Chr2, rec.Pos2, trIDs)
	return err
}

// linkedTranscripts returns the Ensembl transcript ids mapped from a
// RefSeq id, plus the id itself.
func (m *Mapper) linkedTranscripts(trID string) map[string]bool {
	key := idmap.StripVersion(trID)
	ids := map[string]bool{key: true}
	for _, id := range idmap.DistinctIDs(m.idx.Get(idmap.RefSeqID, key), idmap.SelectTranscriptID) {
		ids[idmap.StripVersion(id)] = true
	}
	return ids
}

func (m *Mapper) annotations(chrom string, pos int64, trIDs map[string]bool) (string, error) {
	if chrom == "" || pos <= 0 {
		return "", nil
	}
	recs, err := m.genome.FunctionalAnnotations(chrom, pos)
	if err != nil {
		return "", fmt.Errorf("functional annotations at %s:%d: %w", chrom, pos, err)
	}

	seen := make(map[string]bool)
	var names []string
	for _, r := range recs {
		if !trIDs[idmap.StripVersion(r.TranscriptID)] || seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return strings.Join(names, ";"), nil
}
