package msa

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ParseOptions controls alignment parsing.
type ParseOptions struct {
	// NumSpecies is the number of rows per block. Zero infers it from the
	// first block.
	NumSpecies int
	// Strict turns malformed header coordinates into errors. By default
	// they parse as 0.
	Strict bool
	Logger *zap.Logger
}

// ParseError reports a structural problem in an alignment file.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("alignment file '%s', line %d: %s", e.File, e.Line, e.Msg)
}

// Load parses an alignment file. Files ending in .gz are decompressed.
func Load(path string, opts ParseOptions) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open alignment file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return Parse(reader, path, opts)
}

// Parse reads alignment blocks from r. Each block is, for every species,
// a header line
//
//	>{id}_{species}_{...} ... {chr}:{start}-{end}[+|-]
//
// followed by a sequence line, then a single blank line or end of input.
// name is used in error messages.
func Parse(r io.Reader, name string, opts ParseOptions) (*Set, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	p := &parser{
		scanner:    scanner,
		name:       name,
		numSpecies: opts.NumSpecies,
		strict:     opts.Strict,
	}

	var blocks []*Block
	for {
		line, ok := p.next()
		for ok && line == "" {
			line, ok = p.next()
		}
		if !ok {
			break
		}

		b, err := p.parseBlock(line)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
		logger.Debug("alignment block",
			zap.String("id", b.ID),
			zap.String("chrom", b.Chrom),
			zap.Int64("start", b.Start),
			zap.Int64("end", b.End))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read alignment file %s: %w", name, err)
	}

	s := &Set{species: p.species, blocks: blocks}
	s.buildIndex()

	logger.Info("loaded alignments",
		zap.String("file", name),
		zap.Int("blocks", len(blocks)),
		zap.Int("species", len(p.species)))
	return s, nil
}

type parser struct {
	scanner    *bufio.Scanner
	name       string
	line       int
	numSpecies int
	strict     bool
	species    []string
}

func (p *parser) next() (string, bool) {
	if !p.scanner.Scan() {
		return "", false
	}
	p.line++
	return strings.TrimRight(p.scanner.Text(), "\r"), true
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{File: p.name, Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

// parseBlock parses one block whose first header line has already been read.
func (p *parser) parseBlock(header string) (*Block, error) {
	var b *Block
	for i := 0; ; i++ {
		if !strings.HasPrefix(header, ">") {
			return nil, p.errorf("expecting header line, got '%s'", header)
		}

		id, species, err := p.parseName(header)
		if err != nil {
			return nil, err
		}
		if i < len(p.species) {
			if species != p.species[i] {
				return nil, p.errorf("expecting species '%s', got '%s'", p.species[i], species)
			}
		} else {
			p.species = append(p.species, species)
		}

		if b == nil {
			b = &Block{ID: id}
			if err := p.parseGeometry(header, b); err != nil {
				return nil, err
			}
		}

		seq, ok := p.next()
		if !ok {
			return nil, p.errorf("unexpected end of file, expecting sequence for species '%s'", species)
		}
		if len(b.Seqs) > 0 && len(seq) != b.Width() {
			return nil, p.errorf("expecting sequence of length %d, got %d", b.Width(), len(seq))
		}
		b.Seqs = append(b.Seqs, Normalize(seq))

		if p.numSpecies > 0 && len(b.Seqs) == p.numSpecies {
			break
		}

		line, ok := p.next()
		if !ok || line == "" {
			if p.numSpecies == 0 {
				// First block ends here and fixes the species count.
				p.numSpecies = len(b.Seqs)
				return b, nil
			}
			return nil, p.errorf("block '%s' has %d species, expecting %d", b.ID, len(b.Seqs), p.numSpecies)
		}
		header = line
	}

	line, ok := p.next()
	if ok && line != "" {
		return nil, p.errorf("expecting an empty line, got '%s'", line)
	}
	return b, nil
}

// parseName extracts the block id (before the first '_') and the species
// token (between the first and second '_'). RefSeq accessions such as
// NM_000014 are kept whole as the id.
func (p *parser) parseName(header string) (id, species string, err error) {
	first := strings.IndexByte(header, '_')
	if first < 0 {
		return "", "", p.errorf("missing species in header '%s'", header)
	}
	if isRefSeqPrefix(header[1:first]) && first+1 < len(header) && isDigit(header[first+1]) {
		next := strings.IndexByte(header[first+1:], '_')
		if next < 0 {
			return "", "", p.errorf("missing species in header '%s'", header)
		}
		first += 1 + next
	}
	second := strings.IndexByte(header[first+1:], '_')
	if second < 0 {
		return "", "", p.errorf("missing species in header '%s'", header)
	}
	return header[1:first], header[first+1 : first+1+second], nil
}

// parseGeometry reads "chr:start-end" with an optional strand suffix from
// the last space-delimited token of the header.
func (p *parser) parseGeometry(header string, b *Block) error {
	token := header[strings.LastIndexByte(header, ' ')+1:]
	if n := len(token); n > 0 && (token[n-1] == '+' || token[n-1] == '-') {
		b.Strand = token[n-1]
		token = token[:n-1]
	}

	colon := strings.IndexByte(token, ':')
	dash := strings.LastIndexByte(token, '-')
	if colon < 0 || dash < colon {
		if p.strict {
			return p.errorf("malformed coordinates '%s'", token)
		}
		b.Chrom = NormalizeChrom(token)
		return nil
	}

	b.Chrom = NormalizeChrom(token[:colon])
	var err error
	if b.Start, err = p.parseCoord(token[colon+1 : dash]); err != nil {
		return err
	}
	if b.End, err = p.parseCoord(token[dash+1:]); err != nil {
		return err
	}
	return nil
}

func (p *parser) parseCoord(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if p.strict {
			return 0, p.errorf("malformed coordinate '%s'", s)
		}
		return 0, nil
	}
	return v, nil
}

// isRefSeqPrefix reports whether s is a RefSeq accession prefix (NM, NR,
// XM, XR, NP, XP and friends): two upper case letters.
func isRefSeqPrefix(s string) bool {
	return len(s) == 2 && s[0] >= 'A' && s[0] <= 'Z' && s[1] >= 'A' && s[1] <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
