package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
	"github.com/OpenTraceLab/kicadsync/pkg/circuit/netlist"
	"github.com/OpenTraceLab/kicadsync/pkg/config"
	"github.com/OpenTraceLab/kicadsync/pkg/sync"
)

var syncOut string

var syncCmd = &cobra.Command{
	Use:   "sync <circuit.ckt> <schematic.kicad_sch>",
	Short: "Patch a schematic to match a circuit description",
	Long: `Parse the circuit description, compare it with the schematic, and patch
the schematic in place. Entities absent from the description are removed,
new ones are placed below the existing drawing, and changed fields are
rewritten; everything else stays byte-identical.

A missing schematic file is created from scratch. Hierarchical child sheets
are resolved relative to the schematic's directory and patched in the same
run; either every file is replaced or none is.`,
	Args: cobra.ExactArgs(2),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVarP(&syncOut, "out", "o", "", "output schematic path (default: patch in place)")
}

func runSync(cmd *cobra.Command, args []string) error {
	report, err := runPlan(args[0], args[1], syncOut, false)
	if err != nil {
		return err
	}
	fmt.Println(report.Summary())
	return nil
}

// runPlan wires config, circuit description, and engine together for the
// sync and check commands. dryRun plans without writing.
func runPlan(cktPath, schPath, outPath string, dryRun bool) (*sync.Report, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	parser, err := netlist.NewParser()
	if err != nil {
		return nil, err
	}
	file, err := parser.ParseFile(cktPath)
	if err != nil {
		return nil, err
	}

	decl, err := file.Circuit()
	if err != nil {
		return nil, err
	}
	lib := file.Library()
	snapshot, err := circuit.NewBuilder(lib).Build(decl)
	if err != nil {
		return nil, err
	}
	logger.Info("circuit description loaded",
		zap.String("path", cktPath),
		zap.Int("components", len(snapshot.Components)),
		zap.Int("nets", len(snapshot.Nets)),
		zap.Int("children", len(snapshot.Children)))

	if outPath == "" {
		outPath = schPath
	}
	opts := sync.Options{
		Lookup: lib,
		Placer: &sync.GridPlacer{
			StepX:   cfg.Placement.StepX,
			StepY:   cfg.Placement.StepY,
			Columns: cfg.Placement.Columns,
			Margin:  cfg.Placement.Margin,
			MaxRows: cfg.Placement.MaxRows,
		},
		Classifier: sync.NewClassifier(cfg.ExtraRails...),
		Project:    cfg.Project,
		DryRun:     dryRun,
	}

	report, err := sync.Synchronize(schPath, snapshot, outPath, opts)
	if err != nil {
		return nil, err
	}
	for _, s := range report.Sheets {
		logger.Info("sheet planned",
			zap.String("sheet", s.Name),
			zap.Int("components_added", len(s.ComponentsAdded)),
			zap.Int("components_removed", len(s.ComponentsRemoved)),
			zap.Int("components_changed", len(s.ComponentsChanged)),
			zap.Int("nets_added", len(s.NetsAdded)),
			zap.Int("nets_removed", len(s.NetsRemoved)),
			zap.Int("nets_changed", len(s.NetsChanged)))
	}
	return report, nil
}
