// Package main provides the vibe-epistasis command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".vibe-epistasis"

func main() {
	os.Exit(run())
}

func run() int {
	a := &app{logger: zap.NewNop()}
	root := newRootCmd(a)
	err := root.Execute()
	a.logger.Sync() //nolint:errcheck
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

// app carries state shared by all commands.
type app struct {
	logger *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "vibe-epistasis",
		Short: "Cross-reference protein contacts with genome annotation and multi-species alignments",
		Long: `vibe-epistasis maps residue contacts from protein structures onto genomic
positions and columns of multi-species protein alignments, scores their
co-evolution and estimates amino-acid substitution rate matrices.

Inputs are configured with flags, ~/.vibe-epistasis.yaml or
VIBE_EPISTASIS_* environment variables (a .env file is read when present).`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(viper.GetBool("verbose"))
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			a.logger = logger
			if dotenvErr != nil {
				logger.Debug("No .env found, using local environment")
			}
			if f := viper.ConfigFileUsed(); f != "" {
				logger.Debug("using config file", zap.String("path", f))
			}
			return nil
		},
	}

	addInputFlags(root)

	root.AddCommand(newAddMsaSeqsCmd(a))
	root.AddCommand(newAAContactMICmd(a))
	root.AddCommand(newBackgroundCmd(a))
	root.AddCommand(newMapPDBGenomeCmd(a))
	root.AddCommand(newNextProtCmd(a))
	root.AddCommand(newPDBDistCmd(a))
	root.AddCommand(newQHatCmd(a))
	root.AddCommand(newDownloadCmd(a))
	root.AddCommand(newConfigCmd())

	cobra.OnInitialize(initConfig)
	return root
}

// dotenvErr records why .env could not be loaded, for logging once the
// logger exists.
var dotenvErr error

// initConfig loads .env, then reads ~/.vibe-epistasis.yaml and
// VIBE_EPISTASIS_* variables. A missing config file is not an error.
func initConfig() {
	dotenvErr = godotenv.Load()

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("VIBE_EPISTASIS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: could not read config: %v\n", err)
		}
	}
}

// defaultConfigPath is where config set writes when no file was read.
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName+".yaml"), nil
}
