// sexp-dump is a debugging aid: it cross-checks a schematic file against an
// independent S-expression parser and prints structural statistics, which is
// useful when a file fails to load and the question is whether the file or
// the document model is at fault.
package main

import (
	"fmt"
	"os"

	"github.com/chewxy/sexp"

	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp/kicadsexp"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: sexp-dump <schematic_file>")
		os.Exit(1)
	}

	filename := os.Args[1]
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("File size: %d bytes\n", len(data))

	fmt.Println("\nReference parser (chewxy/sexp):")
	file, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open: %v\n", err)
		os.Exit(1)
	}
	sexps, err := sexp.Parse(file)
	file.Close()
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
	} else {
		fmt.Printf("  Parsed %d s-expressions\n", len(sexps))
		for i, s := range sexps {
			if i >= 3 {
				break
			}
			fmt.Printf("  #%d leaf=%v leaves=%d\n", i, s.IsLeaf(), s.LeafCount())
		}
	}

	fmt.Println("\nDocument parser:")
	nodes, err := kicadsexp.ParseBytes(data)
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
		os.Exit(1)
	}
	if len(nodes) == 0 {
		fmt.Println("  Empty file")
		os.Exit(1)
	}
	root := nodes[0]
	fmt.Printf("  Root: %s with %d children\n", root.Name(), len(root.Children))

	counts := make(map[string]int)
	var order []string
	for _, child := range root.Children {
		name := child.Name()
		if name == "" {
			name = "<atom>"
		}
		if counts[name] == 0 {
			order = append(order, name)
		}
		counts[name]++
	}
	for _, name := range order {
		fmt.Printf("  %-22s %d\n", name, counts[name])
	}

	fmt.Printf("\nRoot span: [%d, %d) of %d bytes\n", root.Span.Start, root.Span.End, len(data))
}
