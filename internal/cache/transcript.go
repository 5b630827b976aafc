// Package cache holds the genome annotation model (transcripts, exons and
// their coding sequences) and the GTF/FASTA loaders that build it.
package cache

// Transcript represents a specific gene isoform.
type Transcript struct {
	ID              string // Transcript ID without version (e.g., ENST00000311936, NM_004985)
	GeneID          string // Parent gene ID
	GeneName        string // Parent gene symbol
	Chrom           string // Chromosome, without "chr" prefix
	Start           int64  // Transcript start (1-based)
	End             int64  // Transcript end (1-based, inclusive)
	Strand          int8   // +1 or -1
	Biotype         string // Transcript biotype
	Exons           []Exon // Exons sorted by genomic start
	CDSStart        int64  // CDS start (genomic, 1-based), 0 if non-coding
	CDSEnd          int64  // CDS end (genomic, 1-based), 0 if non-coding
	CDSSequence     string // Coding DNA sequence, stop codon included
	ProteinSequence string // Translation of CDSSequence
	// CodonStarts[i] is the genomic position of the first base, in
	// transcript order, of the codon encoding amino acid i (0-based).
	CodonStarts []int64
}

// Exon represents a single exon within a transcript.
type Exon struct {
	Number   int   // Exon number (1-based)
	Start    int64 // Genomic start (1-based)
	End      int64 // Genomic end (1-based, inclusive)
	CDSStart int64 // CDS portion start, 0 if entirely non-coding
	CDSEnd   int64 // CDS portion end, 0 if entirely non-coding
	// Frame is the GTF phase of the coding portion: the number of bases
	// to skip before the first complete codon (0, 1 or 2), -1 if non-coding.
	Frame int
}

// IsProteinCoding returns true if the transcript has a coding sequence.
func (t *Transcript) IsProteinCoding() bool {
	return t.CDSStart > 0 && t.CDSEnd > 0
}

// IsForwardStrand returns true if the transcript is on the forward strand.
func (t *Transcript) IsForwardStrand() bool {
	return t.Strand == 1
}

// IsReverseStrand returns true if the transcript is on the reverse strand.
func (t *Transcript) IsReverseStrand() bool {
	return t.Strand == -1
}

// Contains returns true if the given position is within the transcript boundaries.
func (t *Transcript) Contains(pos int64) bool {
	return pos >= t.Start && pos <= t.End
}

// ContainsCDS returns true if the given position is within the CDS boundaries.
func (t *Transcript) ContainsCDS(pos int64) bool {
	if !t.IsProteinCoding() {
		return false
	}
	return pos >= t.CDSStart && pos <= t.CDSEnd
}

// FindExon returns the exon containing the given genomic position, or nil
// if not in an exon. Uses binary search over either exon ordering.
func (t *Transcript) FindExon(pos int64) *Exon {
	n := len(t.Exons)
	if n == 0 {
		return nil
	}
	ascending := n < 2 || t.Exons[0].Start <= t.Exons[n-1].Start
	lo, hi := 0, n-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		e := &t.Exons[mid]
		if pos >= e.Start && pos <= e.End {
			return e
		}
		if ascending {
			if pos < e.Start {
				hi = mid - 1
			} else {
				lo = mid + 1
			}
		} else {
			if pos > e.End {
				hi = mid - 1
			} else {
				lo = mid + 1
			}
		}
	}
	return nil
}

// Protein returns the translated protein, translating the CDS when the
// protein has not been set.
func (t *Transcript) Protein() string {
	if t.ProteinSequence != "" || t.CDSSequence == "" {
		return t.ProteinSequence
	}
	return TranslateSequence(t.CDSSequence[min(t.startPhase(), len(t.CDSSequence)):])
}

// AAPositions returns the amino acid to genomic position table. It uses
// CodonStarts when precomputed and builds a fresh table otherwise.
func (t *Transcript) AAPositions() []int64 {
	if t.CodonStarts != nil {
		return t.CodonStarts
	}
	return t.codonStarts()
}

// Finalize translates the protein and precomputes codon starts. The
// transcript must not be modified afterwards.
func (t *Transcript) Finalize() {
	if t.ProteinSequence == "" {
		t.ProteinSequence = t.Protein()
	}
	if t.CodonStarts == nil && t.IsProteinCoding() {
		t.CodonStarts = t.codonStarts()
	}
}

// codingExons returns indexes of exons with a coding portion, in
// transcript order.
func (t *Transcript) codingExons() []int {
	var idx []int
	for i := range t.Exons {
		if t.Exons[i].IsCoding() {
			idx = append(idx, i)
		}
	}
	if t.IsReverseStrand() {
		for l, r := 0, len(idx)-1; l < r; l, r = l+1, r-1 {
			idx[l], idx[r] = idx[r], idx[l]
		}
	}
	return idx
}

// startPhase is the phase of the first coding exon (incomplete 5' CDS).
func (t *Transcript) startPhase() int {
	idx := t.codingExons()
	if len(idx) == 0 || t.Exons[idx[0]].Frame <= 0 {
		return 0
	}
	return t.Exons[idx[0]].Frame
}

func (t *Transcript) codonStarts() []int64 {
	if !t.IsProteinCoding() {
		return []int64{}
	}
	var starts []int64
	cdsBase := -t.startPhase()
	for _, i := range t.codingExons() {
		e := &t.Exons[i]
		if t.IsReverseStrand() {
			for pos := e.CDSEnd; pos >= e.CDSStart; pos-- {
				if cdsBase >= 0 && cdsBase%3 == 0 {
					starts = append(starts, pos)
				}
				cdsBase++
			}
		} else {
			for pos := e.CDSStart; pos <= e.CDSEnd; pos++ {
				if cdsBase >= 0 && cdsBase%3 == 0 {
					starts = append(starts, pos)
				}
				cdsBase++
			}
		}
	}
	if starts == nil {
		return []int64{}
	}
	return starts
}

// IsCoding returns true if the exon contains coding sequence.
func (e *Exon) IsCoding() bool {
	return e.CDSStart > 0 && e.CDSEnd > 0
}
