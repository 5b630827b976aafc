package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inodb/vibe-epistasis/internal/contact"
)

const testdata = "../../testdata"

// execute runs the root command with args in a clean config environment.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	viper.Reset()
	t.Setenv("HOME", t.TempDir())

	var out, errOut bytes.Buffer
	root := newRootCmd(&app{})
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func TestPDBDistCommand(t *testing.T) {
	stdout, stderr, err := execute(t, "pdb-dist",
		"--idmap", filepath.Join(testdata, "idmap.txt"),
		"--pdb-dir", testdata,
		"--distance", "6")
	require.NoError(t, err)

	recs, err := contact.Read(strings.NewReader(stdout))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "1ABC", recs[0].PDBID)
	assert.Contains(t, stderr, "Totals:")
}

func TestPDBDistCommand_InvalidDistance(t *testing.T) {
	_, _, err := execute(t, "pdb-dist", "--distance", "0")
	assert.ErrorContains(t, err, "--distance")
}

func TestAddMsaSeqsCommand_OutputFile(t *testing.T) {
	contacts := filepath.Join(t.TempDir(), "contacts.txt")
	body := contact.Header() + "\n" + contact.New("1ABC", "A", 2, 5, 'T', 'I', 5.4).String() + "\n"
	require.NoError(t, os.WriteFile(contacts, []byte(body), 0644))
	outPath := filepath.Join(t.TempDir(), "mapped.txt")

	_, _, err := execute(t, "add-msa-seqs",
		"--tree", filepath.Join(testdata, "tree.nwk"),
		"--msa", filepath.Join(testdata, "sample_msa.fa"),
		"--idmap", filepath.Join(testdata, "idmap.txt"),
		"--contacts", contacts,
		"--genome-gtf", filepath.Join(testdata, "sample.gtf"),
		"--genome-fasta", filepath.Join(testdata, "sample_cds.fa"),
		"-o", outPath)
	require.NoError(t, err)

	recs, err := contact.Load(outPath)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "TTT", recs[0].AASeq1)
}

func TestMissingInput(t *testing.T) {
	_, _, err := execute(t, "qhat")
	assert.Error(t, err)
}

func TestEnvironmentConfig(t *testing.T) {
	t.Setenv("VIBE_EPISTASIS_MAPPER_MAX_RESOLUTION", "2.5")
	t.Setenv("VIBE_EPISTASIS_TREE", "/data/tree.nwk")
	_, _, err := execute(t, "config", "get", "tree")
	require.NoError(t, err)

	cfg := driverConfig()
	assert.Equal(t, "/data/tree.nwk", cfg.TreePath)
	assert.Equal(t, 2.5, cfg.Mapper.MaxResolution)
}

func TestDotenvConfig(t *testing.T) {
	dir := t.TempDir()
	env := "VIBE_EPISTASIS_VERBOSE=true\nVIBE_EPISTASIS_IDMAP=/data/idmap.txt\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644))
	t.Chdir(dir)
	t.Cleanup(func() {
		os.Unsetenv("VIBE_EPISTASIS_VERBOSE")
		os.Unsetenv("VIBE_EPISTASIS_IDMAP")
	})
	viper.Reset()
	t.Setenv("HOME", t.TempDir())

	a := &app{}
	var out bytes.Buffer
	root := newRootCmd(a)
	root.SetOut(&out)
	root.SetArgs([]string{"config", "get", "idmap"})
	require.NoError(t, root.Execute())

	assert.Equal(t, "/data/idmap.txt\n", out.String())
	require.NotNil(t, a.logger)
	assert.True(t, a.logger.Core().Enabled(zap.DebugLevel))
}

func TestConfigSetGet(t *testing.T) {
	viper.Reset()
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")

	var out bytes.Buffer
	require.NoError(t, runConfigSet(&out, cfgFile, "mapper.workers", "4"))
	assert.Contains(t, out.String(), "Set mapper.workers = 4")

	out.Reset()
	require.NoError(t, runConfigGet(&out, "mapper.workers"))
	assert.Equal(t, "4\n", out.String())

	data, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "workers: 4")

	assert.Error(t, runConfigGet(&out, "not.set"))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"off", false},
		{"12", 12},
		{"0.05", 0.05},
		{"duckdb", "duckdb"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.in))
		})
	}
}

func TestGetGENCODEURLs(t *testing.T) {
	gtf, fasta := getGENCODEURLs("GRCh37")
	assert.Contains(t, gtf, "GRCh37_mapping/gencode.v46lift37.annotation.gtf.gz")
	assert.Contains(t, fasta, "pc_transcripts.fa.gz")

	gtf, _ = getGENCODEURLs("grch38")
	assert.True(t, strings.HasSuffix(gtf, "/gencode.v46.annotation.gtf.gz"))
}

func TestFindGENCODEFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, _, found := FindGENCODEFiles("GRCh38")
	assert.False(t, found)

	dir := DefaultGENCODEPath("GRCh38")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gencode.v46.annotation.gtf.gz"), nil, 0644))

	gtf, fasta, found := FindGENCODEFiles("GRCh38")
	assert.True(t, found)
	assert.Equal(t, filepath.Join(dir, "gencode.v46.annotation.gtf.gz"), gtf)
	assert.Empty(t, fasta)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2*1024*1024))
}
