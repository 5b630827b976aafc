package cache

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load reads transcript models from a GTF file and, when cdsPath is set,
// their coding sequences from a FASTA file, then finalizes the cache.
// Transcripts without a sequence in the FASTA keep an empty protein.
func Load(c *Cache, gtfPath, cdsPath string) error {
	if err := LoadGTF(c, gtfPath); err != nil {
		return fmt.Errorf("load GTF: %w", err)
	}
	if cdsPath != "" {
		cds, err := LoadCDS(cdsPath)
		if err != nil {
			return fmt.Errorf("load FASTA: %w", err)
		}
		cds.Attach(c)
	}
	c.Finalize()
	return nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g gzipFile) Close() error {
	g.Reader.Close()
	return g.f.Close()
}

// openInput opens path for reading, decompressing files ending in .gz.
func openInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	return gzipFile{Reader: gz, f: f}, nil
}

// stripVersion removes the version suffix from an accession.
// e.g., "ENST00000456328.2" -> "ENST00000456328", "NM_004985.5" -> "NM_004985"
func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}

// normalizeChrom removes the "chr" prefix so that GTF, alignment headers and
// annotation tables agree on chromosome names.
func normalizeChrom(chrom string) string {
	return strings.TrimPrefix(chrom, "chr")
}
