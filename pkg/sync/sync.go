package sync

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/schematic"
)

// Options configures one synchronization run.
type Options struct {
	// Lookup resolves library symbol identifiers to pin definitions.
	// Required.
	Lookup circuit.SymbolLookup
	// Placer positions newly added entities. Nil selects a GridPlacer
	// with default geometry.
	Placer Placer
	// Classifier decides power-net rendering. Nil selects the default
	// rail registry.
	Classifier *Classifier
	// Project names the KiCad project in hidden instance bookkeeping.
	// Empty derives it from the output file name.
	Project string
	// DryRun plans the full patch and builds the report without writing
	// anything to disk.
	DryRun bool
}

// Synchronize patches the schematic at oldPath so it reflects the snapshot
// and writes the result to outPath. An empty oldPath starts from outPath; a
// missing input file yields a complete freshly generated schematic. Child
// sheet files resolve relative to the input and output directories.
//
// All changed documents are rendered in memory first and flushed together
// through temporary files; any error leaves every file on disk untouched.
func Synchronize(oldPath string, root *circuit.Sheet, outPath string, opts Options) (*Report, error) {
	if opts.Lookup == nil {
		return nil, errors.New("sync: symbol lookup is required")
	}
	if opts.Placer == nil {
		opts.Placer = NewGridPlacer()
	}
	if opts.Classifier == nil {
		opts.Classifier = NewClassifier()
	}
	if opts.Project == "" {
		opts.Project = strings.TrimSuffix(filepath.Base(outPath), ".kicad_sch")
	}
	if oldPath == "" {
		oldPath = outPath
	}
	inDir := filepath.Dir(oldPath)
	outDir := filepath.Dir(outPath)

	// Children are patched before their parents so a parent's sheet
	// symbols always describe the final port set of each child.
	order := sheetOrder(root)

	docs := make(map[*circuit.Sheet]*schematic.Document, len(order))
	for _, sheet := range order {
		path := filepath.Join(inDir, sheet.File)
		if sheet == root {
			path = oldPath
		}
		doc, err := schematic.Load(path)
		if err != nil {
			return nil, err
		}
		docs[sheet] = doc
	}
	rootUUID := docs[root].UUID

	matcher := NewMatcher(opts.Lookup)
	planner := NewPlanner(opts.Lookup, opts.Placer, opts.Classifier, opts.Project)

	report := &Report{}
	for i := len(order) - 1; i >= 0; i-- {
		sheet := order[i]
		doc := docs[sheet]
		match := matcher.Match(doc, sheet)
		sheetReport, err := planner.Plan(doc, sheet, match, sheet == root, rootUUID)
		if err != nil {
			return nil, err
		}
		report.Sheets = append(report.Sheets, sheetReport)
	}

	if opts.DryRun {
		return report, nil
	}

	var writes []fileWrite
	for i := len(order) - 1; i >= 0; i-- {
		sheet := order[i]
		doc := docs[sheet]
		path := filepath.Join(outDir, sheet.File)
		if sheet == root {
			path = outPath
		}
		// Untouched sheets written back to their own file are already
		// byte-identical on disk; skip them to keep timestamps stable.
		if path == doc.Path && !doc.Fresh && report.Sheets[len(order)-1-i].Empty() {
			continue
		}
		writes = append(writes, fileWrite{path: path, data: doc.Bytes()})
	}
	if err := flushAll(writes); err != nil {
		return nil, err
	}

	return report, nil
}

// sheetOrder returns the hierarchy in an order where every parent precedes
// its children, children in declaration order. Iterating it backwards visits
// children first.
func sheetOrder(root *circuit.Sheet) []*circuit.Sheet {
	var order []*circuit.Sheet
	stack := []*circuit.Sheet{root}
	for len(stack) > 0 {
		sheet := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, sheet)
		for i := len(sheet.Children) - 1; i >= 0; i-- {
			stack = append(stack, sheet.Children[i])
		}
	}
	return order
}

type fileWrite struct {
	path string
	data []byte
}

// flushAll commits every rendered document with a temp-file-plus-rename per
// target. Temporaries are all written and synced before the first rename, so
// failures during the write phase leave the originals untouched.
func flushAll(writes []fileWrite) error {
	tmps := make([]string, 0, len(writes))
	cleanup := func() {
		for _, tmp := range tmps {
			os.Remove(tmp)
		}
	}

	for _, w := range writes {
		dir := filepath.Dir(w.path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			cleanup()
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
		f, err := os.CreateTemp(dir, filepath.Base(w.path)+".tmp-")
		if err != nil {
			cleanup()
			return fmt.Errorf("creating temporary file in %s: %w", dir, err)
		}
		tmps = append(tmps, f.Name())
		if _, err := f.Write(w.data); err != nil {
			f.Close()
			cleanup()
			return fmt.Errorf("writing %s: %w", w.path, err)
		}
		if err := f.Close(); err != nil {
			cleanup()
			return fmt.Errorf("writing %s: %w", w.path, err)
		}
	}

	for i, w := range writes {
		if err := os.Rename(tmps[i], w.path); err != nil {
			cleanup()
			return fmt.Errorf("replacing %s: %w", w.path, err)
		}
	}
	return nil
}
