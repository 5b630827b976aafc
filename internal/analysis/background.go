package analysis

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/inodb/vibe-epistasis/internal/entropy"
	"github.com/inodb/vibe-epistasis/internal/msa"
	"github.com/inodb/vibe-epistasis/internal/output"
)

// DefaultHistogramBins is the number of bins of the background histogram.
const DefaultHistogramBins = 20

// maxResample bounds the attempts at drawing two distinct windows.
const maxResample = 100

// BackgroundOptions controls the background sampling.
type BackgroundOptions struct {
	NumBases   int    // columns per window, at least 1
	NumSamples int    // window pairs to draw
	Seed       uint64 // random seed; equal seeds draw equal samples
	Bins       int    // histogram bins, 0 for DefaultHistogramBins
}

// Background draws random pairs of alignment windows and reports the
// distribution of their mutual information: the histogram goes to out,
// the mean and standard deviation to report. It returns the sampled
// scores.
func (d *Driver) Background(opts BackgroundOptions) ([]float64, error) {
	if opts.NumBases <= 0 {
		return nil, errors.New("number of bases must be a positive number")
	}
	if opts.NumSamples <= 0 {
		return nil, errors.New("number of samples must be a positive number")
	}

	_, msas, err := d.loadTreeAndMSAs()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	scores, err := SampleBackground(msas, opts.NumBases, opts.NumSamples, rng)
	if err != nil {
		return nil, err
	}

	bins := opts.Bins
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	if err := output.WriteHistogram(d.out, Histogram(scores, bins)); err != nil {
		return nil, err
	}
	mean, sd := stat.MeanStdDev(scores, nil)
	d.logger.Info("background distribution",
		zap.Int("samples", len(scores)),
		zap.Float64("mean", mean),
		zap.Float64("stddev", sd))
	if _, err := fmt.Fprintf(d.report, "samples\t%d\nmean\t%g\nstddev\t%g\n", len(scores), mean, sd); err != nil {
		return nil, err
	}
	return scores, nil
}

// window is numBases consecutive columns of one block.
type window struct {
	block *msa.Block
	col   int
}

// SampleBackground returns the mutual information of numSamples random
// pairs of distinct, non-overlapping windows of numBases columns. Windows
// are drawn uniformly over blocks wide enough to hold them.
func SampleBackground(msas *msa.Set, numBases, numSamples int, rng *rand.Rand) ([]float64, error) {
	var eligible []*msa.Block
	for _, b := range msas.Blocks() {
		if b.Width() >= numBases {
			eligible = append(eligible, b)
		}
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("no alignment block has %d columns", numBases)
	}

	draw := func() window {
		b := eligible[rng.IntN(len(eligible))]
		return window{block: b, col: rng.IntN(b.Width() - numBases + 1)}
	}

	scores := make([]float64, 0, numSamples)
	for range numSamples {
		w1 := draw()
		w2 := draw()
		for attempt := 0; overlaps(w1, w2, numBases); attempt++ {
			if attempt == maxResample {
				return nil, errors.New("alignments too small to draw two distinct windows")
			}
			w2 = draw()
		}
		scores = append(scores, windowMI(w1, w2, numBases))
	}
	return scores, nil
}

func overlaps(a, b window, n int) bool {
	return a.block == b.block && a.col < b.col+n && b.col < a.col+n
}

func windowMI(a, b window, n int) float64 {
	if n == 1 {
		col1, _ := a.block.Column(a.col)
		col2, _ := b.block.Column(b.col)
		return entropy.MutualInformation(col1, col2)
	}
	return entropy.WordMutualInformation(words(a, n), words(b, n))
}

// words returns each species' residues across the window.
func words(w window, n int) []string {
	out := make([]string, len(w.block.Seqs))
	for i, s := range w.block.Seqs {
		out[i] = s[w.col : w.col+n]
	}
	return out
}

// Histogram bins scores into equal-width bins spanning their range.
func Histogram(scores []float64, bins int) []output.Bin {
	if len(scores) == 0 || bins <= 0 {
		return nil
	}
	x := append([]float64(nil), scores...)
	sort.Float64s(x)

	lo, hi := x[0], x[len(x)-1]
	// The last divider is exclusive; widen it so the maximum is counted.
	hi += max((hi-lo)*1e-9, 1e-12)
	dividers := make([]float64, bins+1)
	floats.Span(dividers, lo, hi)

	counts := stat.Histogram(nil, dividers, x, nil)
	out := make([]output.Bin, bins)
	for i := range out {
		out[i] = output.Bin{Lo: dividers[i], Hi: dividers[i+1], Count: counts[i]}
	}
	return out
}
