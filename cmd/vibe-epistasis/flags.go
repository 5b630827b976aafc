package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-epistasis/internal/analysis"
	"github.com/inodb/vibe-epistasis/internal/duckdb"
	"github.com/inodb/vibe-epistasis/internal/genome"
	"github.com/inodb/vibe-epistasis/internal/mapper"
	"github.com/inodb/vibe-epistasis/internal/stats"
)

// Config keys. Flags, the config file and environment variables all set
// the same keys: --genome-gtf, genome.gtf and VIBE_EPISTASIS_GENOME_GTF.
const (
	keyVerbose  = "verbose"
	keyOutput   = "output"
	keyStrict   = "strict"
	keyAssembly = "assembly"

	keyTree     = "tree"
	keyMSA      = "msa"
	keyIDMap    = "idmap"
	keyContacts = "contacts"
	keyPDBDir   = "pdb-dir"
	keyQMatrix  = "qmatrix"

	keyGTF         = "genome.gtf"
	keyFASTA       = "genome.fasta"
	keyCacheDir    = "genome.cache-dir"
	keyFuncAnn     = "funcann.file"
	keyFuncAnnDB   = "funcann.db"
	keyMaxWarnings = "mapper.max-warnings"
	keyMismatch    = "mapper.max-mismatch-rate"
	keyResolution  = "mapper.max-resolution"
	keyWorkers     = "mapper.workers"
	keyDebug       = "mapper.debug"

	keyResultsDriver = "results.driver"
	keyResultsPath   = "results.path"
	keyRunID         = "run-id"
)

type flagSpec struct {
	key   string
	name  string
	short string
	def   any
	usage string
}

var inputFlags = []flagSpec{
	{keyVerbose, "verbose", "v", false, "Log debug messages"},
	{keyOutput, "output", "o", "", "Output file (default: stdout)"},
	{keyStrict, "strict", "", false, "Fail on malformed numbers in alignment headers and matrix files"},
	{keyAssembly, "assembly", "", "GRCh38", "Genome assembly of downloaded GENCODE files: GRCh37 or GRCh38"},

	{keyTree, "tree", "", "", "Phylogenetic tree (Newick)"},
	{keyMSA, "msa", "", "", "Multiple alignment FASTA (.gz accepted)"},
	{keyIDMap, "idmap", "", "", "Identifier map (gene, transcript, RefSeq, PDB)"},
	{keyContacts, "contacts", "", "", "Contact file"},
	{keyPDBDir, "pdb-dir", "", "", "Directory of PDB structure files"},
	{keyQMatrix, "qmatrix", "", "", "Rate matrix file written by qhat"},

	{keyGTF, "genome-gtf", "", "", "Transcript models GTF (default: downloaded GENCODE)"},
	{keyFASTA, "genome-fasta", "", "", "Coding sequence FASTA (default: downloaded GENCODE)"},
	{keyCacheDir, "genome-cache-dir", "", "", "Transcript cache directory"},
	{keyFuncAnn, "funcann", "", "", "Functional annotation TSV"},
	{keyFuncAnnDB, "funcann-db", "", "", "DuckDB file for functional annotations (default: in-memory)"},
	{keyMaxWarnings, "max-warnings", "", stats.DefaultMaxWarnings, "Warnings logged per category"},
	{keyMismatch, "max-mismatch-rate", "", mapper.DefaultMaxMismatchRate, "Chain residues allowed to differ from the transcript protein"},
	{keyResolution, "max-resolution", "", mapper.DefaultMaxResolution, "Structures above this resolution (Angstrom) are skipped"},
	{keyWorkers, "workers", "", 0, "Worker goroutines (default: number of CPUs)"},
	{keyDebug, "debug-counts", "", false, "Tally matches per PDB id, strand and frame"},

	{keyResultsDriver, "results-driver", "", duckdb.DriverDuckDB, "Result store driver: duckdb or sqlite"},
	{keyResultsPath, "results", "", "", "Result store file; mapped contacts are stored when set"},
	{keyRunID, "run-id", "", "", "Read contacts of this stored run instead of the contact file"},
}

// addInputFlags registers the shared flags on cmd and binds them to viper.
func addInputFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	for _, f := range inputFlags {
		switch def := f.def.(type) {
		case string:
			fs.StringP(f.name, f.short, def, f.usage)
		case bool:
			fs.BoolP(f.name, f.short, def, f.usage)
		case int:
			fs.IntP(f.name, f.short, def, f.usage)
		case float64:
			fs.Float64P(f.name, f.short, def, f.usage)
		default:
			panic(fmt.Sprintf("flag %s: unsupported default %T", f.name, def))
		}
		viper.BindPFlag(f.key, fs.Lookup(f.name)) //nolint:errcheck
	}
}

// driverConfig copies the configured values into an analysis config.
// Genome files default to the downloaded GENCODE release.
func driverConfig() analysis.Config {
	cfg := analysis.Config{
		TreePath:     viper.GetString(keyTree),
		MSAPath:      viper.GetString(keyMSA),
		IDMapPath:    viper.GetString(keyIDMap),
		ContactsPath: viper.GetString(keyContacts),
		PDBDir:       viper.GetString(keyPDBDir),
		QMatrixPath:  viper.GetString(keyQMatrix),
		Genome: genome.Options{
			GTFPath:     viper.GetString(keyGTF),
			FASTAPath:   viper.GetString(keyFASTA),
			CacheDir:    viper.GetString(keyCacheDir),
			FuncAnnPath: viper.GetString(keyFuncAnn),
			FuncAnnDB:   viper.GetString(keyFuncAnnDB),
		},
		Mapper: mapper.Options{
			MaxWarnings:     viper.GetInt(keyMaxWarnings),
			MaxMismatchRate: viper.GetFloat64(keyMismatch),
			MaxResolution:   viper.GetFloat64(keyResolution),
			Debug:           viper.GetBool(keyDebug),
			Workers:         viper.GetInt(keyWorkers),
		},
		Strict:        viper.GetBool(keyStrict),
		ResultsDriver: viper.GetString(keyResultsDriver),
		ResultsPath:   viper.GetString(keyResultsPath),
		RunID:         viper.GetString(keyRunID),
	}

	if cfg.Genome.GTFPath == "" {
		if gtf, fasta, found := FindGENCODEFiles(viper.GetString(keyAssembly)); found {
			cfg.Genome.GTFPath = gtf
			if cfg.Genome.FASTAPath == "" {
				cfg.Genome.FASTAPath = fasta
			}
		}
	}
	return cfg
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns the configured output file, or stdout.
func openOutput(cmd *cobra.Command) (io.WriteCloser, error) {
	path := viper.GetString(keyOutput)
	if path == "" || path == "-" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}
