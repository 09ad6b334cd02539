package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/kicadsync/pkg/kicad/schematic"
)

var infoCmd = &cobra.Command{
	Use:   "info <schematic_file> [component]",
	Short: "Show schematic information",
	Long: `Display information about a KiCad schematic file.

Without component argument: shows schematic summary
With component argument: shows details for that specific component`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]
	doc, err := schematic.Load(filename)
	if err != nil {
		return fmt.Errorf("error parsing schematic: %w", err)
	}
	if doc.Fresh {
		return fmt.Errorf("no such schematic: %s", filename)
	}

	if len(args) >= 2 {
		return showComponentDetails(doc, args[1])
	}

	showSummary(doc, filename)
	return nil
}

func showSummary(doc *schematic.Document, filename string) {
	fmt.Printf("Schematic: %s\n", filename)
	fmt.Printf("Version: %d\n", doc.Version)
	fmt.Printf("Generator: %s", doc.Generator)
	if doc.GeneratorVersion != "" {
		fmt.Printf(" v%s", doc.GeneratorVersion)
	}
	fmt.Println()
	fmt.Printf("Paper: %s\n", doc.Paper)
	fmt.Println()

	refs := doc.ComponentRefs()
	nets := doc.NetNames()
	sheets := doc.SheetNames()

	fmt.Println("Statistics:")
	fmt.Printf("  Components: %d\n", len(refs))
	fmt.Printf("  Nets: %d\n", len(nets))
	fmt.Printf("  Sheets: %d\n", len(sheets))
	fmt.Println()

	if len(refs) > 0 {
		sort.Strings(refs)
		fmt.Printf("Components: %s\n", strings.Join(refs, ", "))
	}
	if len(nets) > 0 {
		sort.Strings(nets)
		fmt.Printf("Nets: %s\n", strings.Join(nets, ", "))
	}
	if len(sheets) > 0 {
		fmt.Printf("Child sheets: %s\n", strings.Join(sheets, ", "))
	}
}

func showComponentDetails(doc *schematic.Document, ref string) error {
	comp := doc.FindComponent(ref)
	if comp == nil {
		return fmt.Errorf("component %s not found", ref)
	}

	fmt.Printf("Component: %s\n", comp.Ref)
	fmt.Printf("  Library: %s\n", comp.LibID)
	fmt.Printf("  Value: %s\n", comp.Value)
	if comp.Footprint != "" {
		fmt.Printf("  Footprint: %s\n", comp.Footprint)
	}
	fmt.Printf("  Position: (%.2f, %.2f) rotation %.0f\n", comp.Pos.X, comp.Pos.Y, float64(comp.Angle))
	fmt.Printf("  UUID: %s\n", comp.UUID)

	var extra []string
	for _, p := range comp.Props {
		switch p.Key {
		case "Reference", "Value", "Footprint":
		default:
			extra = append(extra, fmt.Sprintf("%s=%s", p.Key, p.Value))
		}
	}
	if len(extra) > 0 {
		fmt.Printf("  Properties: %s\n", strings.Join(extra, ", "))
	}
	return nil
}
