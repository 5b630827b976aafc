// Package analysis implements the batch workflows: mapping contacts to
// alignments, co-evolution scoring, background distributions, structure
// confirmation, functional annotation and rate-matrix estimation.
package analysis

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/vibe-epistasis/internal/contact"
	"github.com/inodb/vibe-epistasis/internal/duckdb"
	"github.com/inodb/vibe-epistasis/internal/genome"
	"github.com/inodb/vibe-epistasis/internal/idmap"
	"github.com/inodb/vibe-epistasis/internal/mapper"
	"github.com/inodb/vibe-epistasis/internal/msa"
	"github.com/inodb/vibe-epistasis/internal/tree"
)

// Config names the inputs of every workflow. Each workflow reads only the
// fields it needs.
type Config struct {
	TreePath     string
	MSAPath      string
	IDMapPath    string
	ContactsPath string
	PDBDir       string
	QMatrixPath  string

	Genome genome.Options
	Mapper mapper.Options
	// Strict turns malformed numbers in alignment headers and matrix
	// files into errors.
	Strict bool

	// Result store. An empty ResultsPath disables persistence.
	ResultsDriver string
	ResultsPath   string
	// RunID selects contacts from the result store instead of ContactsPath.
	RunID string
}

// Driver runs workflows. Primary results go to out, summaries to report.
type Driver struct {
	cfg    Config
	out    io.Writer
	report io.Writer
	logger *zap.Logger
}

// New creates a driver.
func New(cfg Config, out, report io.Writer) *Driver {
	return &Driver{
		cfg:    cfg,
		out:    out,
		report: report,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for progress messages.
func (d *Driver) SetLogger(l *zap.Logger) {
	d.logger = l
}

func (d *Driver) loadTree() (*tree.Tree, error) {
	if d.cfg.TreePath == "" {
		return nil, errors.New("no phylogenetic tree configured")
	}
	start := time.Now()
	t, err := tree.Load(d.cfg.TreePath)
	if err != nil {
		return nil, err
	}
	d.logger.Info("loaded phylogenetic tree",
		zap.String("path", d.cfg.TreePath),
		zap.Int("leaves", len(t.Leaves())),
		zap.Duration("elapsed", time.Since(start)))
	return t, nil
}

// loadMSAs loads the alignments. The tree, when given, fixes the number of
// species per block.
func (d *Driver) loadMSAs(t *tree.Tree) (*msa.Set, error) {
	if d.cfg.MSAPath == "" {
		return nil, errors.New("no multiple alignment file configured")
	}
	opts := msa.ParseOptions{Strict: d.cfg.Strict, Logger: d.logger}
	if t != nil {
		opts.NumSpecies = len(t.Leaves())
	}
	start := time.Now()
	set, err := msa.Load(d.cfg.MSAPath, opts)
	if err != nil {
		return nil, err
	}
	d.logger.Info("loaded multiple alignments",
		zap.String("path", d.cfg.MSAPath),
		zap.Int("species", len(set.Species())),
		zap.Int("blocks", set.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return set, nil
}

// loadTreeAndMSAs loads the tree when configured, then the alignments.
func (d *Driver) loadTreeAndMSAs() (*tree.Tree, *msa.Set, error) {
	var t *tree.Tree
	if d.cfg.TreePath != "" {
		var err error
		if t, err = d.loadTree(); err != nil {
			return nil, nil, err
		}
	}
	set, err := d.loadMSAs(t)
	return t, set, err
}

func (d *Driver) loadIDMap() (*idmap.Index, error) {
	if d.cfg.IDMapPath == "" {
		return nil, errors.New("no id map configured")
	}
	idx, err := idmap.Load(d.cfg.IDMapPath)
	if err != nil {
		return nil, err
	}
	d.logger.Info("loaded id map",
		zap.String("path", d.cfg.IDMapPath),
		zap.Int("entries", idx.Len()))
	return idx, nil
}

func (d *Driver) loadGenome() (*genome.Provider, error) {
	return genome.Load(d.cfg.Genome, d.logger)
}

// loadContacts reads contacts from the result store when a run id is
// configured, otherwise from the contacts file.
func (d *Driver) loadContacts() ([]*contact.Record, error) {
	if d.cfg.RunID != "" {
		store, err := d.openStore()
		if err != nil {
			return nil, err
		}
		defer store.Close()
		recs, err := store.ContactsByRun(d.cfg.RunID)
		if err != nil {
			return nil, err
		}
		d.logger.Info("loaded contacts from result store",
			zap.String("run_id", d.cfg.RunID),
			zap.Int("contacts", len(recs)))
		return recs, nil
	}

	if d.cfg.ContactsPath == "" {
		return nil, errors.New("no contact file configured")
	}
	recs, err := contact.Load(d.cfg.ContactsPath)
	if err != nil {
		return nil, err
	}
	d.logger.Info("loaded contacts",
		zap.String("path", d.cfg.ContactsPath),
		zap.Int("contacts", len(recs)))
	return recs, nil
}

func (d *Driver) openStore() (*duckdb.Store, error) {
	if d.cfg.ResultsPath == "" {
		return nil, errors.New("no result store configured")
	}
	driver := d.cfg.ResultsDriver
	if driver == "" {
		driver = duckdb.DriverDuckDB
	}
	return duckdb.OpenDriver(driver, d.cfg.ResultsPath)
}

// persist writes contacts to the result store under a fresh run id. It
// returns "" when no store is configured.
func (d *Driver) persist(recs []*contact.Record) (string, error) {
	if d.cfg.ResultsPath == "" {
		return "", nil
	}
	store, err := d.openStore()
	if err != nil {
		return "", err
	}
	defer store.Close()

	runID := duckdb.NewRunID()
	if err := store.WriteContacts(runID, recs); err != nil {
		return "", fmt.Errorf("persist contacts: %w", err)
	}
	d.logger.Info("stored contacts",
		zap.String("driver", store.Driver()),
		zap.String("path", d.cfg.ResultsPath),
		zap.String("run_id", runID),
		zap.Int("contacts", len(recs)))
	return runID, nil
}

func (d *Driver) newMapper(idx *idmap.Index, msas *msa.Set, g mapper.GenomeAnnotationProvider) *mapper.Mapper {
	m := mapper.New(idx, msas, g, d.cfg.Mapper)
	m.SetLogger(d.logger)
	return m
}
