package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose bool
	cfgPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "schsync",
	Short: "Synchronize KiCad schematics with a declared circuit",
	Long: `schsync patches KiCad schematic files (.kicad_sch) so they reflect a
declarative circuit description while leaving everything a human placed or
drew untouched.

Examples:
  schsync sync board.ckt board.kicad_sch      # Patch the schematic in place
  schsync check board.ckt board.kicad_sch     # Report pending changes only
  schsync info board.kicad_sch                # Show schematic summary`,
	Version: "0.9.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = zap.NewNop()
		if verbose {
			l, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			logger = l
		}
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "schsync.yaml", "configuration file")
}
