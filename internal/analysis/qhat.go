package analysis

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/inodb/vibe-epistasis/internal/msa"
	"github.com/inodb/vibe-epistasis/internal/ratematrix"
	"github.com/inodb/vibe-epistasis/internal/tree"
)

// ErrSpeciesMismatch is returned when the alignment and tree species differ.
var ErrSpeciesMismatch = errors.New("species from alignment and tree do not match")

// CheckSpecies verifies that the alignment rows and the tree leaves name
// the same species in the same order.
func CheckSpecies(t *tree.Tree, msas *msa.Set) error {
	treeSp := strings.Join(t.Leaves(), " ")
	msaSp := strings.Join(msas.Species(), " ")
	if treeSp != msaSp {
		return fmt.Errorf("%w:\n\tMSA : %s\n\tTree: %s", ErrSpeciesMismatch, msaSp, treeSp)
	}
	return nil
}

// EstimateQ estimates a rate matrix from every pair of species: the
// transition counts between their rows and their distance in the tree
// give one estimate each, and the estimates are averaged. Pairs at zero
// distance or whose estimate fails are skipped.
func EstimateQ(t *tree.Tree, msas *msa.Set, logger *zap.Logger) (*mat.Dense, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	species := msas.Species()

	var estimates []*mat.Dense
	for i := range species {
		for j := i + 1; j < len(species); j++ {
			dist, err := t.Distance(species[i], species[j])
			if err != nil {
				return nil, err
			}
			if dist <= 0 {
				logger.Warn("species at zero distance, skipped",
					zap.String("species1", species[i]), zap.String("species2", species[j]))
				continue
			}
			q, err := ratematrix.EstimateRate(msas.CountTransitions(i, j), dist)
			if err != nil {
				logger.Warn("rate estimate failed, skipped",
					zap.String("species1", species[i]), zap.String("species2", species[j]),
					zap.Error(err))
				continue
			}
			logger.Debug("rate estimated",
				zap.String("species1", species[i]), zap.String("species2", species[j]),
				zap.Float64("distance", dist))
			estimates = append(estimates, q)
		}
	}
	if len(estimates) == 0 {
		return nil, errors.New("no species pair yielded a rate estimate")
	}
	return ratematrix.Average(estimates)
}

// QHat estimates the rate matrix Q from the alignments and the tree, saves
// it to QMatrixPath when set and prints it with its eigenvalues.
func (d *Driver) QHat() (*ratematrix.TransitionMatrix, error) {
	t, err := d.loadTree()
	if err != nil {
		return nil, err
	}
	msas, err := d.loadMSAs(t)
	if err != nil {
		return nil, err
	}
	if err := CheckSpecies(t, msas); err != nil {
		return nil, err
	}
	fmt.Fprintf(d.report, "Species [%d]: %s\n", len(msas.Species()), strings.Join(msas.Species(), " "))
	if err := writeComposition(d.report, msas); err != nil {
		return nil, err
	}

	q, err := EstimateQ(t, msas, d.logger)
	if err != nil {
		return nil, err
	}
	tm, err := ratematrix.New(q, ratematrix.Options{Strict: d.cfg.Strict})
	if err != nil {
		return nil, err
	}

	if d.cfg.QMatrixPath != "" {
		if err := tm.Save(d.cfg.QMatrixPath); err != nil {
			return nil, err
		}
		d.logger.Info("saved Q matrix", zap.String("path", d.cfg.QMatrixPath))
	}

	if _, err := fmt.Fprintf(d.out, "Q matrix:\n%s\n", tm); err != nil {
		return nil, err
	}
	lambda, err := tm.Eigenvalues()
	if err != nil {
		return nil, err
	}
	vals := make([]string, len(lambda))
	for i, v := range lambda {
		vals[i] = strconv.FormatFloat(v, 'g', 6, 64)
	}
	if _, err := fmt.Fprintf(d.out, "Eigenvalues:\t%s\n", strings.Join(vals, "\t")); err != nil {
		return nil, err
	}
	return tm, nil
}

// writeComposition prints the amino-acid counts of every species and of
// the whole alignment, one column per amino acid.
func writeComposition(w io.Writer, msas *msa.Set) error {
	row := func(name string, counts []int64) string {
		cells := make([]string, len(counts))
		for i, n := range counts {
			cells[i] = strconv.FormatInt(n, 10)
		}
		return name + "\t" + strings.Join(cells, "\t") + "\n"
	}

	var sb strings.Builder
	sb.WriteString("Composition:\n#species\t" + strings.Join(strings.Split(msa.AminoAcids, ""), "\t") + "\n")
	for i, sp := range msas.Species() {
		sb.WriteString(row(sp, msas.CountAAForSpecies(i)))
	}
	sb.WriteString(row("all", msas.CountAA()))
	_, err := io.WriteString(w, sb.String())
	return err
}
