// Package genome combines the transcript model and functional annotations
// into the genome view used when mapping structures to alignments.
package genome

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/vibe-epistasis/internal/cache"
	"github.com/inodb/vibe-epistasis/internal/datasource/funcann"
	"github.com/inodb/vibe-epistasis/internal/duckdb"
)

// Options locates the genome annotation inputs.
type Options struct {
	GTFPath   string // transcript models (GENCODE or RefSeq GTF)
	FASTAPath string // coding sequences, optional
	CacheDir  string // gob transcript cache directory, optional

	FuncAnnPath string // functional annotation TSV, optional
	FuncAnnDB   string // DuckDB file for functional annotations, "" for in-memory
}

// Provider answers transcript and functional-annotation queries. It is
// read-only once loaded and safe for concurrent use.
type Provider struct {
	cache *cache.Cache
	ann   *funcann.Store
}

// New wraps an already loaded transcript cache and an optional annotation
// store.
func New(c *cache.Cache, ann *funcann.Store) *Provider {
	return &Provider{cache: c, ann: ann}
}

// Load builds a provider from files. Transcripts come from the gob cache
// when it matches the GTF and FASTA files, and the cache is refreshed
// otherwise. Functional annotations are loaded into DuckDB and preloaded
// into memory.
func Load(opts Options, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	c, err := loadTranscripts(opts, logger)
	if err != nil {
		return nil, err
	}

	var ann *funcann.Store
	if opts.FuncAnnPath != "" {
		ann, err = loadFuncAnn(opts, logger)
		if err != nil {
			return nil, err
		}
	}

	return New(c, ann), nil
}

func loadTranscripts(opts Options, logger *zap.Logger) (*cache.Cache, error) {
	if opts.GTFPath == "" {
		return nil, fmt.Errorf("no GTF file configured")
	}
	c := cache.New()

	var tc *duckdb.TranscriptCache
	var gtfFP, fastaFP duckdb.FileFingerprint
	if opts.CacheDir != "" {
		var err error
		if gtfFP, err = duckdb.StatFile(opts.GTFPath); err != nil {
			return nil, fmt.Errorf("stat GTF: %w", err)
		}
		if fastaFP, err = duckdb.StatFile(opts.FASTAPath); err != nil {
			return nil, fmt.Errorf("stat FASTA: %w", err)
		}
		tc = duckdb.NewTranscriptCache(opts.CacheDir)
		if tc.Valid(gtfFP, fastaFP) {
			start := time.Now()
			err := tc.Load(c)
			if err == nil {
				logger.Info("loaded transcripts from cache",
					zap.Int("transcripts", c.TranscriptCount()),
					zap.Duration("elapsed", time.Since(start)))
				return c, nil
			}
			logger.Warn("transcript cache unreadable, reloading", zap.Error(err))
			c = cache.New()
		}
	}

	start := time.Now()
	if err := cache.Load(c, opts.GTFPath, opts.FASTAPath); err != nil {
		return nil, err
	}
	logger.Info("loaded transcripts",
		zap.String("gtf", opts.GTFPath),
		zap.Int("transcripts", c.TranscriptCount()),
		zap.Duration("elapsed", time.Since(start)))

	if tc != nil {
		if err := tc.Write(c, gtfFP, fastaFP); err != nil {
			logger.Warn("could not write transcript cache", zap.Error(err))
		}
	}
	return c, nil
}

func loadFuncAnn(opts Options, logger *zap.Logger) (*funcann.Store, error) {
	store, err := funcann.Open(opts.FuncAnnDB)
	if err != nil {
		return nil, fmt.Errorf("open functional annotations: %w", err)
	}

	if !store.Loaded() || opts.FuncAnnDB == "" {
		if err := store.Load(opts.FuncAnnPath); err != nil {
			store.Close()
			return nil, err
		}
	}
	if err := store.PreloadToMemory(); err != nil {
		store.Close()
		return nil, err
	}

	n, _ := store.Count()
	logger.Info("loaded functional annotations",
		zap.String("path", opts.FuncAnnPath),
		zap.Int64("records", n))
	return store, nil
}

// Transcript returns a transcript by id (version ignored), or nil.
func (p *Provider) Transcript(id string) *cache.Transcript {
	return p.cache.GetTranscript(id)
}

// TranscriptIDs returns all transcript ids, sorted.
func (p *Provider) TranscriptIDs() []string {
	return p.cache.TranscriptIDs()
}

// Cache returns the underlying transcript cache.
func (p *Provider) Cache() *cache.Cache {
	return p.cache
}

// FunctionalAnnotations returns the annotations covering a genomic
// position. Without an annotation store it returns nothing.
func (p *Provider) FunctionalAnnotations(chrom string, pos int64) ([]funcann.Record, error) {
	if p.ann == nil {
		return nil, nil
	}
	return p.ann.Query(chrom, pos)
}

// Close releases the annotation store.
func (p *Provider) Close() error {
	if p.ann == nil {
		return nil
	}
	return p.ann.Close()
}
