package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <circuit.ckt> <schematic.kicad_sch>",
	Short: "Report pending changes without writing",
	Long: `Run the full comparison between the circuit description and the
schematic and print what a sync would change, leaving every file untouched.
Exits with status 1 when changes are pending, so it works as a CI gate.`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	report, err := runPlan(args[0], args[1], "", true)
	if err != nil {
		return err
	}
	fmt.Println(report.Summary())
	if !report.Empty() {
		return fmt.Errorf("schematic is out of date")
	}
	return nil
}
