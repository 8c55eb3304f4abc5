// Package cmd provides the command-line interface of cachesim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// envPrefix prefixes the environment variables that provide flag defaults.
const envPrefix = "CACHESIM_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cachesim",
	Short: "cachesim simulates a set-associative cache driven by a trace.",
	Long: `cachesim simulates a single set-associative cache level driven by ` +
		`a trace of reads and writes and reports the hit and miss counters ` +
		`and the average access time. Flags not given on the command line ` +
		`are taken from CACHESIM_* environment variables, which may be ` +
		`set in a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return applyEnvDefaults(cmd.Flags(), os.LookupEnv)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := loadDotEnv(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	err = rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadDotEnv(filename string) error {
	err := godotenv.Load(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("loading %s: %w", filename, err)
	}

	return nil
}

// envName returns the environment variable that provides the default of a
// flag, e.g. CACHESIM_MONITOR_PORT for --monitor-port.
func envName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// applyEnvDefaults sets every flag that was not given on the command line
// from its environment variable, if the variable exists.
func applyEnvDefaults(
	flags *pflag.FlagSet,
	lookup func(string) (string, bool),
) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}

		value, ok := lookup(envName(f.Name))
		if !ok {
			return
		}

		if setErr := flags.Set(f.Name, value); setErr != nil {
			err = fmt.Errorf("%s: %w", envName(f.Name), setErr)
		}
	})

	return err
}
