// Package structure reads protein structures from PDB files and extracts
// residue contacts from them.
package structure

import (
	"math"
	"strings"
)

// UnknownResolution is reported for structures without a resolution
// record (NMR models, theoretical models). It is larger than any useful
// resolution cutoff.
const UnknownResolution = 99.0

// Structure is the first model of a PDB entry.
type Structure struct {
	ID         string
	Path       string
	Resolution float64 // Angstroms
	Chains     []*Chain
}

// Chain is a polypeptide chain: its amino acid residues in file order.
type Chain struct {
	ID       string
	Residues []Residue
}

// Residue is one amino acid of a chain.
type Residue struct {
	Name          string // three-letter code
	AA            byte   // one-letter code
	SeqNum        int    // author residue number, may be negative
	InsertionCode byte
	CA            Coords
	HasCA         bool
}

// Coords is a point in Angstroms.
type Coords struct {
	X, Y, Z float64
}

// Distance returns the Euclidean distance between two points.
func (c Coords) Distance(o Coords) float64 {
	dx, dy, dz := c.X-o.X, c.Y-o.Y, c.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Chain returns the chain with the given identifier, or nil.
func (s *Structure) Chain(id string) *Chain {
	for _, c := range s.Chains {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Sequence returns the one-letter sequence of the chain's residues.
func (c *Chain) Sequence() string {
	var sb strings.Builder
	sb.Grow(len(c.Residues))
	for _, r := range c.Residues {
		sb.WriteByte(r.AA)
	}
	return sb.String()
}

// AminoThreeToOne maps residue names to one-letter codes. Modified residues
// that keep their parent's identity map to the parent.
var AminoThreeToOne = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLU": 'E', "GLN": 'Q', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
	"SEC": 'U', "PYL": 'O',
	"MSE": 'M',
	"UNK": 'X', "ASX": 'X', "GLX": 'X',
}
