package analysis

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-epistasis/internal/contact"
	"github.com/inodb/vibe-epistasis/internal/entropy"
	"github.com/inodb/vibe-epistasis/internal/output"
	"github.com/inodb/vibe-epistasis/internal/stats"
)

// MapSummary describes an add-msa-seqs run.
type MapSummary struct {
	Contacts int
	Mapped   int
	RunID    string // "" when results were not persisted
}

// AddMsaSeqs maps every contact to genomic positions and alignment
// columns. It first checks transcript proteins against the alignments,
// reports both tallies, writes the mapped contacts and optionally stores
// them.
func (d *Driver) AddMsaSeqs() (MapSummary, error) {
	_, msas, err := d.loadTreeAndMSAs()
	if err != nil {
		return MapSummary{}, err
	}
	idx, err := d.loadIDMap()
	if err != nil {
		return MapSummary{}, err
	}
	recs, err := d.loadContacts()
	if err != nil {
		return MapSummary{}, err
	}
	g, err := d.loadGenome()
	if err != nil {
		return MapSummary{}, err
	}
	defer g.Close()

	m := d.newMapper(idx, msas, g)

	d.logger.Info("checking alignment proteins against transcript proteins")
	matched := m.CheckAllSequenceMsaTr()
	d.logger.Info("protein check done", zap.Int("matched", matched))
	if err := output.WriteCounts(d.report, "Totals", m.Counts()); err != nil {
		return MapSummary{}, err
	}
	m.ResetStats()

	d.logger.Info("mapping contacts to alignments", zap.Int("contacts", len(recs)))
	m.MapAll(recs)
	if err := output.WriteCounts(d.report, "Totals", m.Counts()); err != nil {
		return MapSummary{}, err
	}
	if w := m.Warnings(); w.Len() > 0 {
		if err := output.WriteCounts(d.report, "Warnings", w); err != nil {
			return MapSummary{}, err
		}
	}

	var mapped []*contact.Record
	for _, r := range recs {
		if r.Mapped() {
			mapped = append(mapped, r)
		}
	}
	if err := d.writeContacts(mapped); err != nil {
		return MapSummary{}, err
	}

	runID, err := d.persist(mapped)
	if err != nil {
		return MapSummary{}, err
	}
	return MapSummary{Contacts: len(recs), Mapped: len(mapped), RunID: runID}, nil
}

// NextProt annotates contacts with the functional annotations at both of
// their genomic positions and writes them.
func (d *Driver) NextProt() error {
	if d.cfg.Genome.FuncAnnPath == "" {
		return errors.New("no functional annotation file configured")
	}
	idx, err := d.loadIDMap()
	if err != nil {
		return err
	}
	recs, err := d.loadContacts()
	if err != nil {
		return err
	}
	g, err := d.loadGenome()
	if err != nil {
		return err
	}
	defer g.Close()

	m := d.newMapper(idx, nil, g)
	if err := m.AnnotateAll(recs); err != nil {
		return err
	}
	return d.writeContacts(recs)
}

func (d *Driver) writeContacts(recs []*contact.Record) error {
	w := output.NewContactWriter(d.out)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			return fmt.Errorf("write contact: %w", err)
		}
	}
	return w.Flush()
}

// ContactMetrics computes the information measures of a mapped contact.
func ContactMetrics(r *contact.Record) output.Metrics {
	return output.Metrics{
		MutualInformation: entropy.MutualInformation(r.AASeq1, r.AASeq2),
		CondEntropy:       entropy.CondEntropy(r.AASeq1, r.AASeq2),
		JointEntropy:      entropy.JointEntropy(r.AASeq1, r.AASeq2),
		Conservation1:     entropy.Conservation(r.AASeq1),
		Conservation2:     entropy.Conservation(r.AASeq2),
	}
}

// MIScores holds mutual information sums per amino-acid pair and per
// annotation pair. Fully conserved contacts are left out of both.
type MIScores struct {
	ByAAPair         *stats.Counter
	ByAnnotationPair *stats.Counter
}

// AAContactMI keeps the closest contact per pair of genomic positions,
// writes each with its information measures and reports mutual
// information sums per amino-acid pair and per annotation pair.
func (d *Driver) AAContactMI() (MIScores, error) {
	recs, err := d.loadContacts()
	if err != nil {
		return MIScores{}, err
	}

	uniq := contact.MinByPosition(recs)
	d.logger.Info("grouped contacts by genomic position",
		zap.Int("contacts", len(recs)), zap.Int("unique", len(uniq)))

	scores := MIScores{ByAAPair: stats.NewCounter(), ByAnnotationPair: stats.NewCounter()}
	w := output.NewMIWriter(d.out)
	if err := w.WriteHeader(); err != nil {
		return MIScores{}, err
	}
	for _, r := range uniq {
		mt := ContactMetrics(r)
		if err := w.Write(r, mt); err != nil {
			return MIScores{}, fmt.Errorf("write contact: %w", err)
		}

		// Conserved columns have zero entropy and tell nothing.
		if mt.Conservation1 >= 1 || mt.Conservation2 >= 1 {
			continue
		}
		scores.ByAAPair.AddScore(r.AAPair(), mt.MutualInformation)
		if r.Annotations1 != "" && r.Annotations2 != "" {
			for _, ap := range r.AnnotationPairs() {
				scores.ByAnnotationPair.AddScore(ap, mt.MutualInformation)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return MIScores{}, err
	}

	if err := output.WriteScores(d.report, "MI by AA pair", scores.ByAAPair); err != nil {
		return MIScores{}, err
	}
	if err := output.WriteScores(d.report, "MI by annotation pair", scores.ByAnnotationPair); err != nil {
		return MIScores{}, err
	}
	return scores, nil
}
