package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-epistasis/internal/contact"
)

// resultKey is the composite key for deduplicating contacts before writing.
type resultKey struct {
	pdbID, chain   string
	aaPos1, aaPos2 int
}

const contactColumns = `pdb_id, chain, aa_pos1, aa_pos2, aa1, aa2, distance,
		chr1, pos1, chr2, pos2, transcript_id,
		msa1, msa_idx1, msa2, msa_idx2, aa_seq1, aa_seq2,
		annotations1, annotations2`

// WriteContacts inserts contacts under runID. Duplicate
// (pdb_id, chain, aa_pos1, aa_pos2) entries keep the first occurrence.
func (s *Store) WriteContacts(runID string, recs []*contact.Record) error {
	if len(recs) == 0 {
		return nil
	}

	seen := make(map[resultKey]bool, len(recs))
	deduped := make([]*contact.Record, 0, len(recs))
	for _, r := range recs {
		k := resultKey{r.PDBID, r.Chain, r.AAPos1, r.AAPos2}
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, r)
		}
	}

	if s.driver == DriverDuckDB {
		return s.appendContacts(runID, deduped)
	}
	return s.insertContacts(runID, deduped)
}

func contactRow(runID string, r *contact.Record) []driver.Value {
	return []driver.Value{
		runID, r.PDBID, r.Chain, int64(r.AAPos1), int64(r.AAPos2),
		byteString(r.AA1), byteString(r.AA2), r.Distance,
		r.Chr1, r.Pos1, r.Chr2, r.Pos2, r.TranscriptID,
		r.MSA1, int64(r.MSAIdx1), r.MSA2, int64(r.MSAIdx2), r.AASeq1, r.AASeq2,
		r.Annotations1, r.Annotations2,
	}
}

// appendContacts batch-inserts with the DuckDB Appender API.
func (s *Store) appendContacts(runID string, recs []*contact.Record) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "contact_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range recs {
		if err := appender.AppendRow(contactRow(runID, r)...); err != nil {
			return fmt.Errorf("append contact %s %s %d-%d: %w", r.PDBID, r.Chain, r.AAPos1, r.AAPos2, err)
		}
	}
	return appender.Flush()
}

// insertContacts writes rows in one transaction with a prepared statement.
func (s *Store) insertContacts(runID string, recs []*contact.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO contact_results (run_id, ` + contactColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		row := contactRow(runID, r)
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert contact %s %s %d-%d: %w", r.PDBID, r.Chain, r.AAPos1, r.AAPos2, err)
		}
	}
	return tx.Commit()
}

func byteString(b byte) string {
	if b == 0 {
		return ""
	}
	return string(b)
}

// ContactsByRun returns the contacts written under runID.
func (s *Store) ContactsByRun(runID string) ([]*contact.Record, error) {
	rows, err := s.db.Query(`SELECT `+contactColumns+` FROM contact_results
		WHERE run_id=? ORDER BY pdb_id, chain, aa_pos1, aa_pos2`, runID)
	if err != nil {
		return nil, fmt.Errorf("query contacts by run: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}

// ContactsByTranscript returns all mapped contacts for a transcript across
// runs.
func (s *Store) ContactsByTranscript(transcriptID string) ([]*contact.Record, error) {
	rows, err := s.db.Query(`SELECT `+contactColumns+` FROM contact_results
		WHERE transcript_id=? ORDER BY pdb_id, chain, aa_pos1, aa_pos2`, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("query contacts by transcript: %w", err)
	}
	defer rows.Close()
	return scanContacts(rows)
}

// Runs returns the distinct run ids, sorted.
func (s *Store) Runs() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT run_id FROM contact_results ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// ClearContacts removes all stored contacts.
func (s *Store) ClearContacts() error {
	_, err := s.db.Exec("DELETE FROM contact_results")
	return err
}

// scanContacts scans rows into contact records.
func scanContacts(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*contact.Record, error) {
	var recs []*contact.Record
	for rows.Next() {
		var r contact.Record
		var aaPos1, aaPos2, idx1, idx2 int64
		var aa1, aa2 string
		if err := rows.Scan(
			&r.PDBID, &r.Chain, &aaPos1, &aaPos2, &aa1, &aa2, &r.Distance,
			&r.Chr1, &r.Pos1, &r.Chr2, &r.Pos2, &r.TranscriptID,
			&r.MSA1, &idx1, &r.MSA2, &idx2, &r.AASeq1, &r.AASeq2,
			&r.Annotations1, &r.Annotations2,
		); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		r.AAPos1, r.AAPos2 = int(aaPos1), int(aaPos2)
		r.MSAIdx1, r.MSAIdx2 = int(idx1), int(idx2)
		if aa1 != "" {
			r.AA1 = aa1[0]
		}
		if aa2 != "" {
			r.AA2 = aa2[0]
		}
		recs = append(recs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return recs, nil
}
