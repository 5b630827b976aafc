package structure

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Reader loads a structure from a file.
type Reader interface {
	Read(path string) (*Structure, error)
}

// PDBReader reads the PDB text format. Only the first model is kept, and
// for atoms with alternate locations only the first location is used.
type PDBReader struct{}

// Read reads a PDB file. Files ending in ".gz" are decompressed.
func (PDBReader) Read(path string) (*Structure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open PDB file: %w", err)
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

	s, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	if s.ID == "" {
		s.ID = idFromFileName(path)
	}
	return s, nil
}

// IsStructureFile reports whether a file name looks like a PDB file.
func IsStructureFile(name string) bool {
	for _, ext := range []string{".pdb", ".pdb.gz", ".ent", ".ent.gz"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return true
		}
	}
	return false
}

// idFromFileName derives an id code from names like "1abc.pdb" or
// "pdb1abc.ent.gz".
func idFromFileName(path string) string {
	name := strings.ToLower(filepath.Base(path))
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if len(name) == 7 && strings.HasPrefix(name, "pdb") {
		name = name[3:]
	}
	return strings.ToUpper(name)
}

// Parse reads PDB records from r.
func Parse(r io.Reader) (*Structure, error) {
	s := &Structure{Resolution: UnknownResolution}
	chains := make(map[string]*Chain)

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if len(line) < 80 {
			line += strings.Repeat(" ", 80-len(line))
		}

		switch strings.TrimSpace(line[0:6]) {
		case "HEADER":
			s.ID = strings.TrimSpace(line[62:66])

		case "REMARK":
			if res, ok := parseResolution(line); ok {
				s.Resolution = res
			}

		case "ATOM", "HETATM":
			name := strings.TrimSpace(line[17:20])
			aa, ok := AminoThreeToOne[name]
			if !ok {
				continue
			}
			if line[0:6] == "HETATM" && name != "MSE" {
				continue
			}
			if alt := line[16]; alt != ' ' && alt != 'A' {
				continue
			}

			seqNum, err := strconv.Atoi(strings.TrimSpace(line[22:26]))
			if err != nil {
				return nil, fmt.Errorf("line %d: bad residue number %q", lineNum, line[22:26])
			}
			chainID := string(line[21])
			if chainID == " " {
				chainID = "_"
			}
			iCode := line[26]

			c, ok := chains[chainID]
			if !ok {
				c = &Chain{ID: chainID}
				chains[chainID] = c
				s.Chains = append(s.Chains, c)
			}
			last := lastResidue(c)
			if last == nil || last.SeqNum != seqNum || last.InsertionCode != iCode {
				c.Residues = append(c.Residues, Residue{
					Name:          name,
					AA:            aa,
					SeqNum:        seqNum,
					InsertionCode: iCode,
				})
				last = lastResidue(c)
			}

			if strings.TrimSpace(line[12:16]) == "CA" && !last.HasCA {
				xyz, err := parseCoords(line)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNum, err)
				}
				last.CA = xyz
				last.HasCA = true
			}

		case "ENDMDL":
			return s, scanErr(scanner)
		}
	}
	return s, scanErr(scanner)
}

func scanErr(scanner *bufio.Scanner) error {
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan PDB: %w", err)
	}
	return nil
}

func lastResidue(c *Chain) *Residue {
	if len(c.Residues) == 0 {
		return nil
	}
	return &c.Residues[len(c.Residues)-1]
}

// parseResolution reads "REMARK   2 RESOLUTION.    2.00 ANGSTROMS.".
func parseResolution(line string) (float64, bool) {
	if strings.TrimSpace(line[6:10]) != "2" {
		return 0, false
	}
	rest := strings.TrimSpace(line[10:])
	if !strings.HasPrefix(rest, "RESOLUTION.") {
		return 0, false
	}
	fields := strings.Fields(strings.TrimPrefix(rest, "RESOLUTION."))
	if len(fields) == 0 {
		return 0, false
	}
	res, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, false
	}
	return res, true
}

func parseCoords(line string) (Coords, error) {
	var xyz [3]float64
	for i, col := range [][2]int{{30, 38}, {38, 46}, {46, 54}} {
		v, err := strconv.ParseFloat(strings.TrimSpace(line[col[0]:col[1]]), 64)
		if err != nil {
			return Coords{}, fmt.Errorf("bad coordinate %q", line[col[0]:col[1]])
		}
		xyz[i] = v
	}
	return Coords{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
