// Package idmap cross-links gene, transcript, RefSeq and PDB identifiers.
package idmap

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry is one identifier-equivalence record. Any field may be empty.
// Entries are values: two entries with equal fields are the same entry.
type Entry struct {
	GeneID       string
	TranscriptID string
	GeneName     string
	RefSeqID     string
	PDBID        string
	PDBChainID   string

	// Set on entries confirmed against a structure.
	Confirmed          bool
	ChainLength        int
	TranscriptAALength int
}

// ParseError reports a malformed id-map line.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("id map %s, line %d: %s", e.File, e.Line, e.Msg)
}

// ParseEntry parses a tab-delimited id-map line:
//
//	geneId  trId  geneName  refSeqId  pdbId  [pdbChainId  [chainLen  trAaLen]]
//
// Empty fields and "." are treated as absent.
func ParseEntry(line string) (Entry, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 5 {
		return Entry{}, fmt.Errorf("expected at least 5 fields, got %d", len(fields))
	}

	e := Entry{
		GeneID:       field(fields, 0),
		TranscriptID: field(fields, 1),
		GeneName:     field(fields, 2),
		RefSeqID:     field(fields, 3),
		PDBID:        field(fields, 4),
		PDBChainID:   field(fields, 5),
	}

	if len(fields) >= 8 {
		chainLen, err := strconv.Atoi(strings.TrimSpace(fields[6]))
		if err != nil {
			return Entry{}, fmt.Errorf("parse chain length: %w", err)
		}
		trLen, err := strconv.Atoi(strings.TrimSpace(fields[7]))
		if err != nil {
			return Entry{}, fmt.Errorf("parse transcript length: %w", err)
		}
		e.Confirmed = true
		e.ChainLength = chainLen
		e.TranscriptAALength = trLen
	}

	return e, nil
}

func field(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	f := strings.TrimSpace(fields[i])
	if f == "." {
		return ""
	}
	return f
}

// WithChain returns a confirmed copy of e bound to a structure chain.
func (e Entry) WithChain(chainID string, chainLength, transcriptAALength int) Entry {
	e.PDBChainID = chainID
	e.Confirmed = true
	e.ChainLength = chainLength
	e.TranscriptAALength = transcriptAALength
	return e
}

// String formats the entry as an id-map line (see ParseEntry).
func (e Entry) String() string {
	cols := []string{
		orDot(e.GeneID),
		orDot(e.TranscriptID),
		orDot(e.GeneName),
		orDot(e.RefSeqID),
		orDot(e.PDBID),
	}
	if e.PDBChainID != "" || e.Confirmed {
		cols = append(cols, orDot(e.PDBChainID))
	}
	if e.Confirmed {
		cols = append(cols, strconv.Itoa(e.ChainLength), strconv.Itoa(e.TranscriptAALength))
	}
	return strings.Join(cols, "\t")
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

// Selector extracts one identifier from an entry.
type Selector func(e *Entry) string

// Identifier selectors.
var (
	SelectGeneID       Selector = func(e *Entry) string { return e.GeneID }
	SelectTranscriptID Selector = func(e *Entry) string { return e.TranscriptID }
	SelectGeneName     Selector = func(e *Entry) string { return e.GeneName }
	SelectRefSeqID     Selector = func(e *Entry) string { return e.RefSeqID }
	SelectPDBID        Selector = func(e *Entry) string { return e.PDBID }
)

// TranscriptKey is the identifier used to look up an entry's transcript in
// the genome annotation: the RefSeq id without its version suffix, or the
// transcript id when no RefSeq id is present.
func TranscriptKey(e *Entry) string {
	if e.RefSeqID != "" {
		return StripVersion(e.RefSeqID)
	}
	return StripVersion(e.TranscriptID)
}

// StripVersion removes a trailing ".N" version from an accession.
func StripVersion(id string) string {
	if i := strings.IndexByte(id, '.'); i > 0 {
		return id[:i]
	}
	return id
}
