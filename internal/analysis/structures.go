package analysis

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-epistasis/internal/contact"
	"github.com/inodb/vibe-epistasis/internal/idmap"
	"github.com/inodb/vibe-epistasis/internal/mapper"
	"github.com/inodb/vibe-epistasis/internal/output"
	"github.com/inodb/vibe-epistasis/internal/stats"
	"github.com/inodb/vibe-epistasis/internal/structure"
)

// MapPDBGenome confirms the id map against the structures in PDBDir and
// writes the confirmed entries, bound to their chains, as a new id map.
func (d *Driver) MapPDBGenome() (*idmap.Index, error) {
	if d.cfg.PDBDir == "" {
		return nil, errors.New("no structure directory configured")
	}
	idx, err := d.loadIDMap()
	if err != nil {
		return nil, err
	}
	g, err := d.loadGenome()
	if err != nil {
		return nil, err
	}
	defer g.Close()

	m := d.newMapper(idx, nil, g)
	confirmed, err := m.ConfirmDirectory(d.cfg.PDBDir, structure.PDBReader{})
	if err != nil {
		return nil, err
	}
	if err := confirmed.Write(d.out); err != nil {
		return nil, fmt.Errorf("write confirmed id map: %w", err)
	}
	if err := output.WriteCounts(d.report, "Totals", m.Counts()); err != nil {
		return nil, err
	}
	return confirmed, nil
}

// Counter keys reported by PDBDist.
const (
	KeyStructures   = "structures"
	KeyUnmapped     = "skipped:unmapped"
	KeyLowRes       = "skipped:resolution"
	KeyContacts     = "contacts"
	KeyChainSkipped = "contacts:chain_unmapped"
)

// PDBDist extracts residue contacts closer than threshold Angstroms, at
// least minSeparation residues apart, from every structure in PDBDir whose
// PDB id appears in the id map. Structures above the mapper's resolution
// cutoff are skipped. Contacts are written in file order.
func (d *Driver) PDBDist(threshold float64, minSeparation int) ([]*contact.Record, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("distance must be a positive number: %g", threshold)
	}
	if d.cfg.PDBDir == "" {
		return nil, errors.New("no structure directory configured")
	}
	idx, err := d.loadIDMap()
	if err != nil {
		return nil, err
	}
	files, err := mapper.StructureFiles(d.cfg.PDBDir)
	if err != nil {
		return nil, err
	}

	maxRes := d.cfg.Mapper.MaxResolution
	if maxRes <= 0 {
		maxRes = mapper.DefaultMaxResolution
	}

	counts := stats.NewCounter()
	reader := structure.PDBReader{}
	var all []*contact.Record
	for _, path := range files {
		s, err := reader.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read structure %s: %w", path, err)
		}
		counts.Inc(KeyStructures)

		if len(idx.Get(idmap.PDBID, s.ID)) == 0 {
			counts.Inc(KeyUnmapped)
			continue
		}
		if s.Resolution > maxRes {
			counts.Inc(KeyLowRes)
			continue
		}

		for _, r := range structure.Contacts(s, threshold, minSeparation) {
			if len(idx.GetByPDBChain(s.ID, r.Chain)) == 0 {
				counts.Inc(KeyChainSkipped)
				continue
			}
			counts.Inc(KeyContacts)
			all = append(all, r)
		}
		d.logger.Debug("structure processed", zap.String("pdb_id", s.ID), zap.String("path", path))
	}

	if err := d.writeContacts(all); err != nil {
		return nil, err
	}
	if err := output.WriteCounts(d.report, "Totals", counts); err != nil {
		return nil, err
	}
	return all, nil
}
