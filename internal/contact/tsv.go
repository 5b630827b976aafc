package contact

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Columns of the contact TSV format. Only the first seven are required.
var Columns = []string{
	"#pdb_id",
	"chain",
	"aa_pos1",
	"aa_pos2",
	"aa1",
	"aa2",
	"distance",
	"chr1",
	"pos1",
	"chr2",
	"pos2",
	"transcript_id",
	"msa1",
	"msa_idx1",
	"msa2",
	"msa_idx2",
	"aa_seq1",
	"aa_seq2",
	"annotations1",
	"annotations2",
}

const requiredColumns = 7

// Header returns the header line (without newline).
func Header() string {
	return strings.Join(Columns, "\t")
}

// Fields formats the record as one value per column. Unresolved values are
// written as empty fields.
func (r *Record) Fields() []string {
	return []string{
		r.PDBID,
		r.Chain,
		strconv.Itoa(r.AAPos1),
		strconv.Itoa(r.AAPos2),
		aaString(r.AA1),
		aaString(r.AA2),
		strconv.FormatFloat(r.Distance, 'g', -1, 64),
		r.Chr1,
		posString(r.Pos1),
		r.Chr2,
		posString(r.Pos2),
		r.TranscriptID,
		r.MSA1,
		idxString(r.MSAIdx1),
		r.MSA2,
		idxString(r.MSAIdx2),
		r.AASeq1,
		r.AASeq2,
		r.Annotations1,
		r.Annotations2,
	}
}

// String formats the record as a TSV line (without newline).
func (r *Record) String() string {
	return strings.Join(r.Fields(), "\t")
}

func aaString(aa byte) string {
	if aa == 0 {
		return ""
	}
	return string(aa)
}

func posString(pos int64) string {
	if pos <= 0 {
		return ""
	}
	return strconv.FormatInt(pos, 10)
}

func idxString(idx int) string {
	if idx < 0 {
		return ""
	}
	return strconv.Itoa(idx)
}

// Parse parses one TSV line produced by Record.String.
func Parse(line string) (*Record, error) {
	f := strings.Split(line, "\t")
	if len(f) < requiredColumns {
		return nil, fmt.Errorf("expected at least %d fields, got %d", requiredColumns, len(f))
	}
	get := func(i int) string {
		if i < len(f) {
			return f[i]
		}
		return ""
	}

	aaPos1, err := strconv.Atoi(f[2])
	if err != nil {
		return nil, fmt.Errorf("parse aa_pos1: %w", err)
	}
	aaPos2, err := strconv.Atoi(f[3])
	if err != nil {
		return nil, fmt.Errorf("parse aa_pos2: %w", err)
	}
	dist, err := strconv.ParseFloat(f[6], 64)
	if err != nil {
		return nil, fmt.Errorf("parse distance: %w", err)
	}

	r := New(f[0], f[1], aaPos1, aaPos2, firstByte(f[4]), firstByte(f[5]), dist)
	r.Chr1 = get(7)
	r.Chr2 = get(9)
	r.TranscriptID = get(11)
	r.MSA1 = get(12)
	r.MSA2 = get(14)
	r.AASeq1 = get(16)
	r.AASeq2 = get(17)
	r.Annotations1 = get(18)
	r.Annotations2 = get(19)

	if r.Pos1, err = parseOptionalInt(get(8)); err != nil {
		return nil, fmt.Errorf("parse pos1: %w", err)
	}
	if r.Pos2, err = parseOptionalInt(get(10)); err != nil {
		return nil, fmt.Errorf("parse pos2: %w", err)
	}
	idx1, err := parseOptionalInt(get(13))
	if err != nil || get(13) == "" {
		idx1 = -1
	}
	idx2, err := parseOptionalInt(get(15))
	if err != nil || get(15) == "" {
		idx2 = -1
	}
	r.MSAIdx1, r.MSAIdx2 = int(idx1), int(idx2)

	return r, nil
}

func firstByte(s string) byte {
	if s == "" {
		return 0
	}
	return s[0]
}

func parseOptionalInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// Load reads contacts from a TSV file, which may be gzipped.
func Load(path string) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open contacts file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	recs, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// Read reads contacts from TSV. Lines starting with '#' and blank lines
// are skipped.
func Read(r io.Reader) ([]*Record, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	var recs []*Record
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		rec, err := Parse(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read contacts: %w", err)
	}
	return recs, nil
}
