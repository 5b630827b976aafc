package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-epistasis/internal/analysis"
)

// withDriver runs fn on a driver writing results to the configured output
// and summaries to stderr.
func (a *app) withDriver(cmd *cobra.Command, fn func(d *analysis.Driver) error) error {
	out, err := openOutput(cmd)
	if err != nil {
		return err
	}
	d := analysis.New(driverConfig(), out, cmd.ErrOrStderr())
	d.SetLogger(a.logger)

	if err := fn(d); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func newAddMsaSeqsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-msa-seqs",
		Short: "Map contacts to genomic positions and alignment columns",
		Long: `Map every contact to the genomic positions of its two residues and the
alignment columns encoding them. Transcript proteins are first checked
against the alignment rows. Mapped contacts are written to the output and,
when --results is set, stored under a new run id.`,
		Example: `  vibe-epistasis add-msa-seqs --tree tree.nwk --msa knownCanonical.exonAA.fa.gz \
    --idmap idmap.txt --contacts contacts.txt -o mapped.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDriver(cmd, func(d *analysis.Driver) error {
				sum, err := d.AddMsaSeqs()
				if err != nil {
					return err
				}
				a.logger.Info("mapped contacts",
					zap.Int("contacts", sum.Contacts),
					zap.Int("mapped", sum.Mapped),
					zap.String("run_id", sum.RunID))
				return nil
			})
		},
	}
}

func newAAContactMICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "aa-contact-mi",
		Short: "Score co-evolution of mapped contacts",
		Long: `Keep the closest contact per pair of genomic positions and write it with
the mutual information, conditional entropy, joint entropy and
conservation of its two alignment columns. Mutual information sums per
amino-acid pair and per annotation pair go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDriver(cmd, func(d *analysis.Driver) error {
				_, err := d.AAContactMI()
				return err
			})
		},
	}
}

func newBackgroundCmd(a *app) *cobra.Command {
	var opts analysis.BackgroundOptions
	cmd := &cobra.Command{
		Use:   "background",
		Short: "Sample the mutual information of random alignment windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDriver(cmd, func(d *analysis.Driver) error {
				_, err := d.Background(opts)
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&opts.NumBases, "bases", "n", 1, "Columns per window")
	cmd.Flags().IntVar(&opts.NumSamples, "samples", 10000, "Window pairs to draw")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&opts.Bins, "bins", analysis.DefaultHistogramBins, "Histogram bins")
	return cmd
}

func newMapPDBGenomeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "map-pdb-genome",
		Short: "Confirm id-map entries against structure chains",
		Long: `Compare every chain of the structures in --pdb-dir with the proteins of
the transcripts the id map links them to, and write the confirmed entries,
bound to their chains, as a new id map.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDriver(cmd, func(d *analysis.Driver) error {
				idx, err := d.MapPDBGenome()
				if err != nil {
					return err
				}
				a.logger.Info("confirmed id map entries", zap.Int("entries", idx.Len()))
				return nil
			})
		},
	}
}

func newNextProtCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "nextprot",
		Short: "Annotate contacts with functional annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDriver(cmd, func(d *analysis.Driver) error {
				return d.NextProt()
			})
		},
	}
}

func newPDBDistCmd(a *app) *cobra.Command {
	var (
		distance      float64
		minSeparation int
	)
	cmd := &cobra.Command{
		Use:   "pdb-dist",
		Short: "Extract residue contacts from structures",
		Long: `Write every pair of residues of a chain whose alpha carbons are closer than
--distance Angstrom, for the structures in --pdb-dir whose PDB id appears
in the id map.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if distance <= 0 {
				return fmt.Errorf("--distance must be a positive number, got %g", distance)
			}
			return a.withDriver(cmd, func(d *analysis.Driver) error {
				_, err := d.PDBDist(distance, minSeparation)
				return err
			})
		},
	}
	cmd.Flags().Float64VarP(&distance, "distance", "d", 6.0, "Contact distance threshold (Angstrom)")
	cmd.Flags().IntVar(&minSeparation, "min-separation", 3, "Minimum residue separation within the chain")
	return cmd
}

func newQHatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "qhat",
		Short: "Estimate an amino-acid substitution rate matrix",
		Long: `Estimate the rate matrix Q from transition counts between every pair of
alignment species and their distance in the tree. Tree leaves and
alignment species must agree in order. The matrix is saved to --qmatrix
when set and printed with its eigenvalues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDriver(cmd, func(d *analysis.Driver) error {
				_, err := d.QHat()
				return err
			})
		},
	}
}
