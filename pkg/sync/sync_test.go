package sync

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/kicadsync/pkg/circuit"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/schematic"
	"github.com/OpenTraceLab/kicadsync/pkg/kicad/sexp"
)

func testLibrary() *circuit.StaticLibrary {
	lib := circuit.NewStaticLibrary()
	lib.Add("Device:R", circuit.TwoPinPassive())
	lib.Add("Device:C", circuit.TwoPinPassive())
	return lib
}

func testOptions() Options {
	return Options{Lookup: testLibrary(), Project: "testproj"}
}

func dividerSnapshot() *circuit.Sheet {
	return &circuit.Sheet{
		Name: "main",
		File: "main.kicad_sch",
		Components: []circuit.Component{
			{Ref: "R1", LibID: "Device:R", Value: "10k", Footprint: "Resistor_SMD:R_0603"},
			{Ref: "R2", LibID: "Device:R", Value: "22k"},
		},
		Nets: []circuit.Net{
			{Name: "VCC", Endpoints: []circuit.Endpoint{{Ref: "R1", Pin: "1"}}},
			{Name: "DIV", Endpoints: []circuit.Endpoint{{Ref: "R1", Pin: "2"}, {Ref: "R2", Pin: "1"}}},
			{Name: "GND", Endpoints: []circuit.Endpoint{{Ref: "R2", Pin: "2"}}},
		},
	}
}

func TestSynchronizeFreshGeneration(t *testing.T) {
	out := filepath.Join(t.TempDir(), "main.kicad_sch")

	report, err := Synchronize("", dividerSnapshot(), out, testOptions())
	require.NoError(t, err)
	require.Len(t, report.Sheets, 1)

	sheet := report.Sheets[0]
	assert.Equal(t, []string{"R1", "R2"}, sheet.ComponentsAdded)
	assert.Equal(t, []string{"VCC", "DIV", "GND"}, sheet.NetsAdded)
	assert.Empty(t, sheet.ComponentsRemoved)

	doc, err := schematic.Load(out)
	require.NoError(t, err)
	require.False(t, doc.Fresh)

	r1 := doc.FindComponent("R1")
	require.NotNil(t, r1)
	assert.Equal(t, "10k", r1.Value)
	assert.Equal(t, "Resistor_SMD:R_0603", r1.Footprint)
	assert.NotEmpty(t, r1.UUID)

	assert.ElementsMatch(t, []string{"VCC", "DIV", "GND"}, doc.NetNames())

	// VCC and GND are rails, DIV is a local label
	vcc := doc.NetVisuals("VCC")
	require.Len(t, vcc, 1)
	assert.Equal(t, schematic.VisualPower, vcc[0].Kind)
	assert.Equal(t, "power:VCC", vcc[0].LibID)
	assert.True(t, strings.HasPrefix(vcc[0].Ref, "#PWR"))

	div := doc.NetVisuals("DIV")
	require.Len(t, div, 2)
	assert.Equal(t, schematic.VisualLabel, div[0].Kind)

	// Labels anchor at computed pin positions
	pins, _ := testLibrary().Pins("Device:R")
	want := sexp.Translate(r1.Pos, sexp.Rotate(pins[1].Offset, r1.Angle))
	assert.True(t, sexp.SamePosition(div[0].Pos, want), "label at %+v, want %+v", div[0].Pos, want)

	// Embedded library entries for both the symbol and the rails
	assert.True(t, doc.HasLibSymbol("Device:R"))
	assert.True(t, doc.HasLibSymbol("power:VCC"))
	assert.True(t, doc.HasLibSymbol("power:GND"))
}

func TestSynchronizeIdempotent(t *testing.T) {
	out := filepath.Join(t.TempDir(), "main.kicad_sch")

	_, err := Synchronize("", dividerSnapshot(), out, testOptions())
	require.NoError(t, err)
	first, err := os.ReadFile(out)
	require.NoError(t, err)
	info1, _ := os.Stat(out)

	report, err := Synchronize("", dividerSnapshot(), out, testOptions())
	require.NoError(t, err)
	assert.True(t, report.Empty(), "second run must be a no-op: %s", report.Summary())

	second, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, first, second, "second run must leave bytes identical")

	// An untouched file is not rewritten at all
	info2, _ := os.Stat(out)
	assert.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestSynchronizeValueUpdatePreservesPosition(t *testing.T) {
	out := filepath.Join(t.TempDir(), "main.kicad_sch")

	_, err := Synchronize("", dividerSnapshot(), out, testOptions())
	require.NoError(t, err)

	before, err := schematic.Load(out)
	require.NoError(t, err)
	oldPos := before.FindComponent("R1").Pos
	oldUUID := before.FindComponent("R1").UUID

	snap := dividerSnapshot()
	snap.Components[0].Value = "47k"

	report, err := Synchronize("", snap, out, testOptions())
	require.NoError(t, err)
	require.Len(t, report.Sheets[0].ComponentsChanged, 1)
	assert.Equal(t, "R1", report.Sheets[0].ComponentsChanged[0].Ref)
	assert.Equal(t, FieldDiff{"value"}, report.Sheets[0].ComponentsChanged[0].Fields)

	after, err := schematic.Load(out)
	require.NoError(t, err)
	r1 := after.FindComponent("R1")
	assert.Equal(t, "47k", r1.Value)
	assert.Equal(t, oldPos, r1.Pos, "update must not move the component")
	assert.Equal(t, oldUUID, r1.UUID, "update must not reissue the UUID")
}

func TestSynchronizeRenameIsDeleteAndAdd(t *testing.T) {
	out := filepath.Join(t.TempDir(), "main.kicad_sch")

	_, err := Synchronize("", dividerSnapshot(), out, testOptions())
	require.NoError(t, err)
	before, _ := schematic.Load(out)
	oldPos := before.FindComponent("R2").Pos

	snap := dividerSnapshot()
	snap.Components[1].Ref = "R10"
	snap.Nets[1].Endpoints[1].Ref = "R10"
	snap.Nets[2].Endpoints[0].Ref = "R10"

	report, err := Synchronize("", snap, out, testOptions())
	require.NoError(t, err)
	sheet := report.Sheets[0]
	assert.Equal(t, []string{"R10"}, sheet.ComponentsAdded)
	assert.Equal(t, []string{"R2"}, sheet.ComponentsRemoved)

	after, _ := schematic.Load(out)
	assert.Nil(t, after.FindComponent("R2"))
	r10 := after.FindComponent("R10")
	require.NotNil(t, r10)
	assert.NotEqual(t, oldPos, r10.Pos, "renamed component placement starts fresh")
}

func TestSynchronizeStandalonePowerNet(t *testing.T) {
	out := filepath.Join(t.TempDir(), "main.kicad_sch")

	snap := &circuit.Sheet{
		Name: "main",
		File: "main.kicad_sch",
		Nets: []circuit.Net{{Name: "VBATT", Power: boolPtr(true)}},
	}

	_, err := Synchronize("", snap, out, testOptions())
	require.NoError(t, err)

	doc, _ := schematic.Load(out)
	vis := doc.NetVisuals("VBATT")
	require.Len(t, vis, 1, "standalone power net renders exactly one symbol")
	assert.Equal(t, schematic.VisualPower, vis[0].Kind)
	assert.Equal(t, "power:VBATT", vis[0].LibID)
}

func TestSynchronizeNetRemovalIsIsolated(t *testing.T) {
	out := filepath.Join(t.TempDir(), "main.kicad_sch")

	_, err := Synchronize("", dividerSnapshot(), out, testOptions())
	require.NoError(t, err)
	before, _ := os.ReadFile(out)
	divBlock := extractLabelBlock(t, string(before), "DIV")

	snap := dividerSnapshot()
	snap.Nets = snap.Nets[:2] // drop GND

	report, err := Synchronize("", snap, out, testOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"GND"}, report.Sheets[0].NetsRemoved)

	doc, err := schematic.Load(out)
	require.NoError(t, err)
	assert.False(t, doc.HasNet("GND"))
	assert.Empty(t, doc.NetVisuals("GND"))
	assert.NotNil(t, doc.FindComponent("R2"), "net removal must not touch components")

	after, _ := os.ReadFile(out)
	assert.Contains(t, string(after), divBlock, "surviving net visuals must stay byte-identical")
}

func TestSynchronizeMembershipChange(t *testing.T) {
	out := filepath.Join(t.TempDir(), "main.kicad_sch")

	_, err := Synchronize("", dividerSnapshot(), out, testOptions())
	require.NoError(t, err)

	snap := dividerSnapshot()
	snap.Nets[1].Endpoints = snap.Nets[1].Endpoints[:1] // DIV loses R2.1

	report, err := Synchronize("", snap, out, testOptions())
	require.NoError(t, err)
	assert.Contains(t, report.Sheets[0].NetsChanged, "DIV")

	doc, _ := schematic.Load(out)
	assert.Len(t, doc.NetVisuals("DIV"), 1, "stale label at removed endpoint must go")
}

func TestSynchronizeHierarchy(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "main.kicad_sch")

	child := &circuit.Sheet{
		Name: "analog",
		File: "analog.kicad_sch",
		Components: []circuit.Component{
			{Ref: "R3", LibID: "Device:R", Value: "1k"},
		},
		Nets: []circuit.Net{
			{Name: "SENSE", Endpoints: []circuit.Endpoint{{Ref: "R3", Pin: "1"}}},
			{Name: "GND", Endpoints: []circuit.Endpoint{{Ref: "R3", Pin: "2"}}},
		},
		// GND is a rail; it must not become a sheet pin.
		Ports: []circuit.Port{{Name: "SENSE", Dir: "output"}, {Name: "GND", Dir: "bidirectional"}},
	}
	snap := dividerSnapshot()
	snap.Children = []*circuit.Sheet{child}

	report, err := Synchronize("", snap, out, testOptions())
	require.NoError(t, err)
	require.Len(t, report.Sheets, 2)

	// Bottom-up: the child is planned before the root
	assert.Equal(t, "analog", report.Sheets[0].Name)
	assert.Equal(t, "main", report.Sheets[1].Name)
	assert.Equal(t, []string{"analog"}, report.Sheets[1].SheetsAdded)

	childDoc, err := schematic.Load(filepath.Join(dir, "analog.kicad_sch"))
	require.NoError(t, err)
	require.False(t, childDoc.Fresh)

	// The exposed net renders as a hierarchical label in the child
	sense := childDoc.NetVisuals("SENSE")
	require.Len(t, sense, 1)
	assert.Equal(t, schematic.VisualHierLabel, sense[0].Kind)
	assert.Equal(t, "output", sense[0].Shape)

	// Components on non-root sheets carry instance bookkeeping
	r3 := childDoc.FindComponent("R3")
	require.NotNil(t, r3)
	require.NotNil(t, r3.Instances)
	assert.Equal(t, "testproj", r3.Instances.Project)

	rootDoc, err := schematic.Load(out)
	require.NoError(t, err)
	sheet := rootDoc.FindSheet("analog")
	require.NotNil(t, sheet)
	assert.Equal(t, "analog.kicad_sch", sheet.File)

	// The sheet symbol carries a pin for SENSE but not for the global GND
	require.Len(t, sheet.Pins, 1)
	assert.Equal(t, "SENSE", sheet.Pins[0].Name)
	assert.Equal(t, "output", sheet.Pins[0].Shape)

	// Root components carry no instance block
	assert.Nil(t, rootDoc.FindComponent("R1").Instances)

	// The whole hierarchy is idempotent
	report, err = Synchronize("", snap, out, testOptions())
	require.NoError(t, err)
	assert.True(t, report.Empty(), report.Summary())
}

func TestSynchronizeAtomicOnError(t *testing.T) {
	out := filepath.Join(t.TempDir(), "main.kicad_sch")

	_, err := Synchronize("", dividerSnapshot(), out, testOptions())
	require.NoError(t, err)
	before, _ := os.ReadFile(out)

	snap := dividerSnapshot()
	snap.Components = append(snap.Components, circuit.Component{Ref: "U1", LibID: "MCU:STM32"})

	_, err = Synchronize("", snap, out, testOptions())
	var uerr *circuit.UnknownSymbolError
	require.ErrorAs(t, err, &uerr)

	after, _ := os.ReadFile(out)
	assert.Equal(t, before, after, "failed run must leave the file untouched")

	// No temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(out))
	assert.Len(t, entries, 1)
}

type failingPlacer struct{}

func (failingPlacer) Place(doc *schematic.Document, ref string) (sexp.Position, sexp.Angle, error) {
	return sexp.Position{}, 0, errors.New("no room")
}

func TestSynchronizeUnplaceable(t *testing.T) {
	out := filepath.Join(t.TempDir(), "main.kicad_sch")

	opts := testOptions()
	opts.Placer = failingPlacer{}

	_, err := Synchronize("", dividerSnapshot(), out, opts)
	var perr *UnplaceableComponentError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "R1", perr.Ref)
	assert.Equal(t, "main", perr.Sheet)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "aborted run must write nothing")
}

func TestSynchronizeDryRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "main.kicad_sch")

	opts := testOptions()
	opts.DryRun = true

	report, err := Synchronize("", dividerSnapshot(), out, opts)
	require.NoError(t, err)
	assert.False(t, report.Empty())

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "dry run must write nothing")
}

func TestSynchronizeRequiresLookup(t *testing.T) {
	_, err := Synchronize("", dividerSnapshot(), "out.kicad_sch", Options{})
	require.Error(t, err)
}

func boolPtr(v bool) *bool { return &v }

// extractLabelBlock returns the full source line of a label with the given
// net name, used to assert byte-level preservation.
func extractLabelBlock(t *testing.T, source, name string) string {
	t.Helper()
	idx := strings.Index(source, `(label "`+name+`"`)
	require.GreaterOrEqual(t, idx, 0, "label %q not found", name)
	end := strings.Index(source[idx:], "\n\t(")
	if end < 0 {
		end = len(source) - idx
	}
	return source[idx : idx+end]
}
