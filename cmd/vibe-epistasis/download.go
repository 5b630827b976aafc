package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-epistasis/internal/idmap"
)

// GENCODE FTP URLs
const (
	gencodeBaseURL = "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_human/release_46"
	gencodeVersion = "v46"
)

// rcsbURL is the PDB file download template, keyed by PDB id.
const rcsbURL = "https://files.rcsb.org/download/%s.pdb.gz"

// getGENCODEURLs returns the GTF and CDS FASTA URLs for the given assembly.
func getGENCODEURLs(assembly string) (gtfURL, fastaURL string) {
	switch strings.ToUpper(assembly) {
	case "GRCH37":
		gtfURL = fmt.Sprintf("%s/GRCh37_mapping/gencode.%slift37.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
		fastaURL = fmt.Sprintf("%s/GRCh37_mapping/gencode.%slift37.pc_transcripts.fa.gz", gencodeBaseURL, gencodeVersion)
	default:
		gtfURL = fmt.Sprintf("%s/gencode.%s.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
		fastaURL = fmt.Sprintf("%s/gencode.%s.pc_transcripts.fa.gz", gencodeBaseURL, gencodeVersion)
	}
	return
}

func newDownloadCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download GENCODE annotations or PDB structures",
	}
	cmd.AddCommand(newDownloadGENCODECmd())
	cmd.AddCommand(newDownloadPDBCmd(a))
	return cmd
}

func newDownloadGENCODECmd() *cobra.Command {
	var (
		outputDir string
		gtfOnly   bool
	)
	cmd := &cobra.Command{
		Use:   "gencode",
		Short: "Download GENCODE transcript models and coding sequences",
		Long: `Download the GENCODE GTF and protein-coding transcript FASTA for
--assembly. Commands that need transcripts use these files when
--genome-gtf is not set.`,
		Example: `  vibe-epistasis download gencode
  vibe-epistasis download gencode --assembly GRCh37
  vibe-epistasis download gencode --dir /data/gencode`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assembly := viper.GetString(keyAssembly)
			w := cmd.OutOrStdout()

			if outputDir == "" {
				outputDir = DefaultGENCODEPath(assembly)
				if outputDir == "" {
					return fmt.Errorf("cannot determine home directory")
				}
			} else {
				outputDir = filepath.Join(outputDir, strings.ToLower(assembly))
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", outputDir, err)
			}

			gtfURL, fastaURL := getGENCODEURLs(assembly)
			fmt.Fprintf(w, "Downloading GENCODE %s annotations for %s...\n", gencodeVersion, assembly)
			fmt.Fprintf(w, "Destination: %s\n\n", outputDir)

			if err := downloadFile(w, gtfURL, filepath.Join(outputDir, filepath.Base(gtfURL))); err != nil {
				return fmt.Errorf("downloading GTF: %w", err)
			}
			if !gtfOnly {
				if err := downloadFile(w, fastaURL, filepath.Join(outputDir, filepath.Base(fastaURL))); err != nil {
					return fmt.Errorf("downloading FASTA: %w", err)
				}
			}
			fmt.Fprintf(w, "\nDownload complete!\n")
			return nil
		},
	}
	cmd.Flags().StringVar(&outputDir, "dir", "", "Output directory (default: ~/.vibe-epistasis/<assembly>)")
	cmd.Flags().BoolVar(&gtfOnly, "gtf-only", false, "Only download GTF annotations (skip FASTA sequences)")
	return cmd
}

func newDownloadPDBCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pdb",
		Short: "Download the structures named in the id map into --pdb-dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idPath := viper.GetString(keyIDMap)
			dir := viper.GetString(keyPDBDir)
			if idPath == "" || dir == "" {
				return fmt.Errorf("--idmap and --pdb-dir are required")
			}
			idx, err := idmap.Load(idPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("cannot create directory %s: %w", dir, err)
			}

			ids := idmap.DistinctIDs(idx.Entries(), idmap.SelectPDBID)
			w := cmd.OutOrStdout()
			failed := 0
			for _, id := range ids {
				url := fmt.Sprintf(rcsbURL, strings.ToUpper(id))
				dest := filepath.Join(dir, strings.ToUpper(id)+".pdb.gz")
				if err := downloadFile(w, url, dest); err != nil {
					a.logger.Warn("download failed", zap.String("pdb_id", id), zap.Error(err))
					failed++
				}
			}
			a.logger.Info("downloaded structures",
				zap.Int("requested", len(ids)), zap.Int("failed", failed))
			return nil
		},
	}
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(w io.Writer, url, destPath string) error {
	if info, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(w, "  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(w, "  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 30 * time.Minute,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	// Write to a temp file so an interrupted download is never mistaken
	// for a complete one.
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	pw := &progressWriter{
		w:         w,
		total:     resp.ContentLength,
		lastPrint: time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Fprintf(w, "    Done: %s\n", formatSize(pw.downloaded))
	return nil
}

// progressWriter prints download progress at most once a second.
type progressWriter struct {
	w          io.Writer
	total      int64
	downloaded int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.w, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.w, "\r    Progress: %s  ", formatSize(pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// DefaultGENCODEPath returns the default directory for GENCODE files.
func DefaultGENCODEPath(assembly string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".vibe-epistasis", strings.ToLower(assembly))
}

// FindGENCODEFiles looks for downloaded GENCODE files in the default
// location. The FASTA path is empty when only the GTF was downloaded.
func FindGENCODEFiles(assembly string) (gtfPath, fastaPath string, found bool) {
	dir := DefaultGENCODEPath(assembly)
	if dir == "" {
		return "", "", false
	}

	lift := ""
	if strings.ToLower(assembly) == "grch37" {
		lift = "lift37"
	}

	matches, err := filepath.Glob(filepath.Join(dir, "gencode.v*"+lift+".annotation.gtf.gz"))
	if err != nil || len(matches) == 0 {
		return "", "", false
	}
	gtfPath = matches[0]

	matches, err = filepath.Glob(filepath.Join(dir, "gencode.v*"+lift+".pc_transcripts.fa.gz"))
	if err == nil && len(matches) > 0 {
		fastaPath = matches[0]
	}
	return gtfPath, fastaPath, true
}
