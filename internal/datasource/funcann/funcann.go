// Package funcann provides functional-annotation lookups (NextProt-style
// domains, sites and regions mapped to genomic intervals) backed by DuckDB.
package funcann

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
)

// Record is one functional annotation over a genomic interval of a
// transcript. Coordinates are 1-based and inclusive.
type Record struct {
	Chrom        string
	Start        int64
	End          int64
	TranscriptID string
	Name         string
}

// chromIndex answers containment queries with a start-sorted slice and a
// suffix max-end array.
type chromIndex struct {
	recs   []Record
	maxEnd []int64
}

// Store provides functional-annotation lookups backed by DuckDB.
type Store struct {
	db      *sql.DB
	queryPS *sql.Stmt

	// In-memory index per chromosome, set by PreloadToMemory.
	memCache map[string]*chromIndex
}

// Open opens or creates a DuckDB database at dbPath. An empty path opens an
// in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != "" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	ps, err := db.Prepare(`SELECT chrom, start_pos, end_pos, transcript_id, name FROM funcann
		WHERE chrom = ? AND start_pos <= ? AND end_pos >= ?
		ORDER BY start_pos, name`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare lookup: %w", err)
	}
	s.queryPS = ps

	return s, nil
}

func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS funcann (
		chrom VARCHAR,
		start_pos BIGINT,
		end_pos BIGINT,
		transcript_id VARCHAR,
		name VARCHAR
	)`); err != nil {
		return err
	}
	s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_funcann_chrom ON funcann (chrom, start_pos)`)
	return nil
}

// Loaded returns true if the table has data.
func (s *Store) Loaded() bool {
	n, err := s.Count()
	return err == nil && n > 0
}

// Count returns the number of annotation rows.
func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM funcann").Scan(&count); err != nil {
		return 0, fmt.Errorf("count funcann rows: %w", err)
	}
	return count, nil
}

// Load replaces the table contents with a tab-separated file (optionally
// gzipped) with columns
//
//	chrom  start  end  transcript_id  name
//
// Lines starting with '#' are skipped. Chromosome "chr" prefixes and
// transcript versions are removed.
func (s *Store) Load(tsvPath string) error {
	s.db.Exec(`DELETE FROM funcann`)

	query := fmt.Sprintf(`INSERT INTO funcann
		SELECT regexp_replace(column0, '^chr', ''), column1, column2,
			regexp_replace(column3, '\.[0-9]+$', ''), column4
		FROM read_csv('%s', delim='\t', header=false, comment='#',
			columns={
				'column0': 'VARCHAR',
				'column1': 'BIGINT',
				'column2': 'BIGINT',
				'column3': 'VARCHAR',
				'column4': 'VARCHAR'
			})`, strings.ReplaceAll(tsvPath, "'", "''"))

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("loading functional annotations: %w", err)
	}
	s.memCache = nil
	return nil
}

// Add inserts records in one transaction.
func (s *Store) Add(recs []Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO funcann VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.Exec(strings.TrimPrefix(r.Chrom, "chr"), r.Start, r.End, r.TranscriptID, r.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", r.Name, err)
		}
	}
	s.memCache = nil
	return tx.Commit()
}

// PreloadToMemory copies all records into per-chromosome in-memory indexes
// so that Query avoids database round trips.
func (s *Store) PreloadToMemory() error {
	rows, err := s.db.Query(`SELECT chrom, start_pos, end_pos, transcript_id, name FROM funcann
		ORDER BY chrom, start_pos, name`)
	if err != nil {
		return fmt.Errorf("query funcann for preload: %w", err)
	}
	defer rows.Close()

	byChrom := make(map[string][]Record)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Chrom, &r.Start, &r.End, &r.TranscriptID, &r.Name); err != nil {
			return fmt.Errorf("scan preload row: %w", err)
		}
		byChrom[r.Chrom] = append(byChrom[r.Chrom], r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("preload rows: %w", err)
	}

	cache := make(map[string]*chromIndex, len(byChrom))
	for chrom, recs := range byChrom {
		maxEnd := make([]int64, len(recs))
		maxEnd[len(recs)-1] = recs[len(recs)-1].End
		for i := len(recs) - 2; i >= 0; i-- {
			maxEnd[i] = max(recs[i].End, maxEnd[i+1])
		}
		cache[chrom] = &chromIndex{recs: recs, maxEnd: maxEnd}
	}
	s.memCache = cache
	return nil
}

// Query returns all records whose interval contains pos, ordered by start
// and name.
func (s *Store) Query(chrom string, pos int64) ([]Record, error) {
	chrom = strings.TrimPrefix(chrom, "chr")

	if s.memCache != nil {
		return s.memCache[chrom].find(pos), nil
	}

	rows, err := s.queryPS.Query(chrom, pos, pos)
	if err != nil {
		return nil, fmt.Errorf("query funcann: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Chrom, &r.Start, &r.End, &r.TranscriptID, &r.Name); err != nil {
			return nil, fmt.Errorf("scan funcann row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (x *chromIndex) find(pos int64) []Record {
	if x == nil {
		return nil
	}
	hi := sort.Search(len(x.recs), func(i int) bool {
		return x.recs[i].Start > pos
	})
	var out []Record
	for i := hi - 1; i >= 0; i-- {
		if x.maxEnd[i] < pos {
			break
		}
		if x.recs[i].End >= pos {
			out = append(out, x.recs[i])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.queryPS != nil {
		s.queryPS.Close()
	}
	return s.db.Close()
}
