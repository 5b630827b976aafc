package cache

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// LoadGTF adds the transcripts of a GENCODE or RefSeq GTF file to c, in id
// order. Files ending in .gz are decompressed.
func LoadGTF(c *Cache, path string) error {
	rc, err := openInput(path)
	if err != nil {
		return fmt.Errorf("open GTF file: %w", err)
	}
	defer rc.Close()

	transcripts, err := ReadGTF(rc, "")
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(transcripts))
	for id := range transcripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c.AddTranscript(transcripts[id])
	}
	return nil
}

// ReadGTF returns the transcripts of a GTF stream keyed by versionless id.
// When chrom is set only that chromosome is kept. Malformed lines and
// transcripts without exons are skipped. Transcripts without a
// "transcript" line (UCSC RefSeq GTFs) are built from their exons.
func ReadGTF(r io.Reader, chrom string) (map[string]*Transcript, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	chrom = normalizeChrom(chrom)
	b := newGTFBuilder()
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		feat, ok := parseGTFLine(line)
		if !ok || (chrom != "" && feat.chrom != chrom) {
			continue
		}
		b.add(feat)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}
	return b.finish(), nil
}

type gtfFeature struct {
	chrom      string
	kind       string
	start, end int64
	strand     int8
	phase      int // -1 when absent
	attrs      map[string]string
}

// parseGTFLine parses the nine tab-separated GTF columns.
func parseGTFLine(line string) (gtfFeature, bool) {
	fields := strings.SplitN(line, "\t", 9)
	if len(fields) < 9 {
		return gtfFeature{}, false
	}
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return gtfFeature{}, false
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return gtfFeature{}, false
	}
	phase, err := strconv.Atoi(fields[7])
	if err != nil || phase < 0 || phase > 2 {
		phase = -1
	}
	return gtfFeature{
		chrom:  normalizeChrom(fields[0]),
		kind:   fields[2],
		start:  start,
		end:    end,
		strand: parseStrand(fields[6]),
		phase:  phase,
		attrs:  parseAttributes(fields[8]),
	}, true
}

// parseAttributes parses `key "value"; key "value";`. A repeated key keeps
// its last value.
func parseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for part := range strings.SplitSeq(s, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), " ")
		if !ok {
			continue
		}
		attrs[key] = strings.Trim(strings.TrimSpace(value), "\"")
	}
	return attrs
}

func parseStrand(s string) int8 {
	if s == "-" {
		return -1
	}
	return 1
}

// cdsRegion is one CDS feature with its GTF phase (-1 when absent).
type cdsRegion struct {
	start, end int64
	phase      int
}

// gtfBuilder accumulates features per transcript.
type gtfBuilder struct {
	transcripts map[string]*Transcript
	fromExons   map[string]bool // no "transcript" line seen yet
	exons       map[string][]Exon
	cds         map[string][]cdsRegion
}

func newGTFBuilder() *gtfBuilder {
	return &gtfBuilder{
		transcripts: make(map[string]*Transcript),
		fromExons:   make(map[string]bool),
		exons:       make(map[string][]Exon),
		cds:         make(map[string][]cdsRegion),
	}
}

func (b *gtfBuilder) transcript(id string, f gtfFeature) *Transcript {
	if t, ok := b.transcripts[id]; ok {
		return t
	}
	t := &Transcript{
		ID:       id,
		GeneID:   stripVersion(f.attrs["gene_id"]),
		GeneName: f.attrs["gene_name"],
		Chrom:    f.chrom,
		Start:    f.start,
		End:      f.end,
		Strand:   f.strand,
	}
	if t.GeneName == "" {
		t.GeneName = t.GeneID
	}
	b.transcripts[id] = t
	b.fromExons[id] = true
	return t
}

func (b *gtfBuilder) add(f gtfFeature) {
	id := stripVersion(f.attrs["transcript_id"])
	if id == "" {
		return
	}

	switch f.kind {
	case "transcript", "mRNA":
		t := b.transcript(id, f)
		t.Start, t.End = f.start, f.end
		t.Biotype = f.attrs["transcript_type"]
		if t.Biotype == "" {
			t.Biotype = f.attrs["transcript_biotype"]
		}
		b.fromExons[id] = false

	case "exon":
		t := b.transcript(id, f)
		if b.fromExons[id] {
			t.Start = min(t.Start, f.start)
			t.End = max(t.End, f.end)
		}
		num, _ := strconv.Atoi(f.attrs["exon_number"])
		b.exons[id] = append(b.exons[id], Exon{Number: num, Start: f.start, End: f.end, Frame: -1})

	case "CDS":
		b.transcript(id, f)
		b.cds[id] = append(b.cds[id], cdsRegion{start: f.start, end: f.end, phase: f.phase})

	case "start_codon", "stop_codon":
		t := b.transcript(id, f)
		// start codon on + and stop codon on - extend the CDS leftwards.
		if (f.kind == "start_codon") == (t.Strand == 1) {
			if t.CDSStart == 0 || f.start < t.CDSStart {
				t.CDSStart = f.start
			}
		} else if f.end > t.CDSEnd {
			t.CDSEnd = f.end
		}
	}
}

// finish sorts exons, settles CDS bounds and assigns exon phases.
func (b *gtfBuilder) finish() map[string]*Transcript {
	for id, t := range b.transcripts {
		exons := b.exons[id]
		if len(exons) == 0 {
			delete(b.transcripts, id)
			continue
		}
		sort.Slice(exons, func(i, j int) bool { return exons[i].Start < exons[j].Start })

		regions := b.cds[id]
		for _, r := range regions {
			if t.CDSStart == 0 || r.start < t.CDSStart {
				t.CDSStart = r.start
			}
			t.CDSEnd = max(t.CDSEnd, r.end)
		}
		if t.IsProteinCoding() {
			assignFrames(t, exons, regions)
		}
		t.Exons = exons
	}
	return b.transcripts
}

// assignFrames sets the CDS portion and phase of every coding exon. The
// phase comes from the overlapping CDS feature when present, and is
// otherwise derived from the number of coding bases upstream.
func assignFrames(t *Transcript, exons []Exon, regions []cdsRegion) {
	order := make([]int, len(exons))
	for i := range order {
		order[i] = i
		if t.Strand == -1 {
			order[i] = len(exons) - 1 - i
		}
	}

	var upstream int64
	for _, i := range order {
		e := &exons[i]
		if e.End < t.CDSStart || e.Start > t.CDSEnd {
			continue
		}
		e.CDSStart = max(e.Start, t.CDSStart)
		e.CDSEnd = min(e.End, t.CDSEnd)

		e.Frame = int((3 - upstream%3) % 3)
		for _, r := range regions {
			if r.phase >= 0 && r.start <= e.CDSEnd && r.end >= e.CDSStart {
				e.Frame = r.phase
				break
			}
		}
		upstream += e.CDSEnd - e.CDSStart + 1
	}
}
