package schematic

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const sampleSch = `(kicad_sch
	(version 20250114)
	(generator "eeschema")
	(generator_version "9.0")
	(uuid "862335ee-c981-4fe1-9eb9-84db19301dd4")
	(paper "A4")
	(lib_symbols)
	(wire
		(pts
			(xy 100 50) (xy 120 50)
		)
		(uuid "w1")
	)
	(symbol
		(lib_id "Device:R")
		(at 127 63.5 0)
		(unit 1)
		(in_bom yes)
		(on_board yes)
		(uuid "r1-uuid")
		(property "Reference" "R1"
			(at 127 60.96 0)
		)
		(property "Value" "10k"
			(at 127 66.04 0)
		)
		(property "Footprint" "Resistor_SMD:R_0603"
			(at 127 68.58 0)
			(effects
				(font
					(size 1.27 1.27)
				)
				(hide yes)
			)
		)
		(pin "1"
			(uuid "r1-p1")
		)
		(pin "2"
			(uuid "r1-p2")
		)
	)
	(symbol
		(lib_id "power:GND")
		(at 127 67.31 0)
		(unit 1)
		(in_bom yes)
		(on_board yes)
		(uuid "pwr-uuid")
		(property "Reference" "#PWR03"
			(at 127 70 0)
			(effects
				(font
					(size 1.27 1.27)
				)
				(hide yes)
			)
		)
		(property "Value" "GND"
			(at 127 72 0)
		)
		(pin "1"
			(uuid "pwr-p1")
		)
	)
	(label "SENSE"
		(at 127 59.69 0)
		(effects
			(font
				(size 1.27 1.27)
			)
		)
		(uuid "lbl-1")
	)
	(sheet_instances
		(path "/"
			(page "1")
		)
	)
)
`

func TestParseDocument(t *testing.T) {
	doc, err := Parse("test.kicad_sch", []byte(sampleSch))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	if doc.Version != 20250114 {
		t.Errorf("Expected version 20250114, got %d", doc.Version)
	}
	if doc.Generator != "eeschema" {
		t.Errorf("Expected generator 'eeschema', got %q", doc.Generator)
	}
	if doc.Paper != "A4" {
		t.Errorf("Expected paper 'A4', got %q", doc.Paper)
	}

	comp := doc.FindComponent("R1")
	if comp == nil {
		t.Fatal("R1 not found")
	}
	if comp.LibID != "Device:R" || comp.Value != "10k" {
		t.Errorf("Unexpected component: %+v", comp)
	}
	if comp.Footprint != "Resistor_SMD:R_0603" {
		t.Errorf("Unexpected footprint: %q", comp.Footprint)
	}
	if comp.Pos.X != 127 || comp.Pos.Y != 63.5 {
		t.Errorf("Unexpected position: %+v", comp.Pos)
	}
	if len(comp.Pins) != 2 {
		t.Errorf("Expected 2 pins, got %d", len(comp.Pins))
	}

	// The power symbol is a net visual, not a component
	if doc.FindComponent("#PWR03") != nil {
		t.Error("Power symbol must not appear as component")
	}
	refs := doc.ComponentRefs()
	if len(refs) != 1 || refs[0] != "R1" {
		t.Errorf("Expected [R1], got %v", refs)
	}

	nets := doc.NetNames()
	if len(nets) != 2 {
		t.Fatalf("Expected 2 nets, got %v", nets)
	}
	if nets[0] != "GND" || nets[1] != "SENSE" {
		t.Errorf("Expected [GND SENSE], got %v", nets)
	}

	gnd := doc.NetVisuals("GND")
	if len(gnd) != 1 || gnd[0].Kind != VisualPower || gnd[0].LibID != "power:GND" {
		t.Errorf("Unexpected GND visuals: %+v", gnd)
	}
	sense := doc.NetVisuals("SENSE")
	if len(sense) != 1 || sense[0].Kind != VisualLabel {
		t.Errorf("Unexpected SENSE visuals: %+v", sense)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not a schematic", "(kicad_pcb\n\t(version 1)\n)"},
		{"empty", ""},
		{"missing version", "(kicad_sch\n\t(generator \"x\")\n\t(paper \"A4\")\n)"},
		{"missing generator", "(kicad_sch\n\t(version 20250114)\n\t(paper \"A4\")\n)"},
		{"missing paper", "(kicad_sch\n\t(version 20250114)\n\t(generator \"x\")\n)"},
		{"malformed", "(kicad_sch (version 20250114"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.kicad_sch", []byte(tt.input))
			if err == nil {
				t.Fatal("Expected error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("Expected *ParseError, got %T", err)
			}
		})
	}
}

func TestParseDuplicateReference(t *testing.T) {
	input := `(kicad_sch
	(version 20250114)
	(generator "eeschema")
	(paper "A4")
	(symbol
		(lib_id "Device:R")
		(at 10 10 0)
		(uuid "u1")
		(property "Reference" "R1"
			(at 0 0 0)
		)
	)
	(symbol
		(lib_id "Device:C")
		(at 20 20 0)
		(uuid "u2")
		(property "Reference" "R1"
			(at 0 0 0)
		)
	)
)
`
	_, err := Parse("dup.kicad_sch", []byte(input))
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("Expected duplicate reference error, got %v", err)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	doc, err := Parse("test.kicad_sch", []byte(sampleSch))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if got := doc.Bytes(); !bytes.Equal(got, []byte(sampleSch)) {
		t.Errorf("Untouched document must re-emit byte-identical:\n got: %q\nwant: %q", got, sampleSch)
	}
}

func TestUpdateTouchesOnlyTargetNode(t *testing.T) {
	doc, err := Parse("test.kicad_sch", []byte(sampleSch))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	err = doc.UpsertComponent(Component{Ref: "R1", Value: "22k"}, []string{"value"})
	if err != nil {
		t.Fatalf("UpsertComponent failed: %v", err)
	}

	if doc.FindComponent("R1").Value != "22k" {
		t.Error("Value not updated")
	}

	out := string(doc.Bytes())
	if !strings.Contains(out, `(property "Value" "22k"`) {
		t.Error("Rendered output missing new value")
	}
	if strings.Contains(out, `"10k"`) {
		t.Error("Old value still present")
	}
	// Untouched siblings keep their verbatim source text
	if !strings.Contains(out, "(xy 100 50) (xy 120 50)") {
		t.Error("Wire passthrough lost")
	}
	if !strings.Contains(out, "(label \"SENSE\"\n\t\t(at 127 59.69 0)") {
		t.Error("Label source text lost")
	}
	// Position and UUID survive the update
	if !strings.Contains(out, "(at 127 63.5 0)") {
		t.Error("Component position lost")
	}
	if !strings.Contains(out, `(uuid "r1-uuid")`) {
		t.Error("Component UUID lost")
	}
	// Hidden footprint effects block survives untouched
	if !strings.Contains(out, "(hide yes)") {
		t.Error("Footprint effects lost")
	}
}

func TestRemoveComponent(t *testing.T) {
	doc, _ := Parse("test.kicad_sch", []byte(sampleSch))
	doc.RemoveComponent("R1")

	if doc.FindComponent("R1") != nil {
		t.Error("R1 still present after removal")
	}
	out := string(doc.Bytes())
	if strings.Contains(out, "Device:R") {
		t.Error("Removed component still rendered")
	}
	if !strings.Contains(out, `(label "SENSE"`) {
		t.Error("Unrelated label removed")
	}
}

func TestUpsertAndRemoveNet(t *testing.T) {
	doc, _ := Parse("test.kicad_sch", []byte(sampleSch))

	added, _ := doc.UpsertNet("CLK", []Visual{{
		Kind: VisualLabel,
		Pos:  Position{X: 50, Y: 50},
		UUID: "clk-1",
	}}, nil)
	if added != 1 {
		t.Fatalf("Expected 1 added, got %d", added)
	}
	if !doc.HasNet("CLK") {
		t.Error("CLK not found after upsert")
	}
	if !strings.Contains(string(doc.Bytes()), `(label "CLK"`) {
		t.Error("CLK label not rendered")
	}

	removed := doc.RemoveNet("SENSE")
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}
	out := string(doc.Bytes())
	if strings.Contains(out, `"SENSE"`) {
		t.Error("SENSE still rendered")
	}
	if !strings.Contains(out, `"GND"`) {
		t.Error("Removing one net must not touch another")
	}
}

func TestFreshDocument(t *testing.T) {
	doc := NewDocument("new.kicad_sch")
	if !doc.Fresh {
		t.Error("Expected fresh document")
	}

	out := string(doc.Bytes())
	for _, want := range []string{
		"(kicad_sch\n",
		"(version 20250114)",
		`(generator "schsync")`,
		`(paper "A4")`,
		"(lib_symbols)",
		"(sheet_instances",
		`(page "1")`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Fresh document missing %q", want)
		}
	}

	// A fresh document round-trips through its own parser
	doc2, err := Parse("new.kicad_sch", doc.Bytes())
	if err != nil {
		t.Fatalf("Fresh document does not reparse: %v", err)
	}
	if doc2.Version != CurrentVersion {
		t.Errorf("Expected version %d, got %d", CurrentVersion, doc2.Version)
	}
}

func TestNextPowerRef(t *testing.T) {
	doc, _ := Parse("test.kicad_sch", []byte(sampleSch))
	// Sample already contains #PWR03
	if ref := doc.NextPowerRef(); ref != "#PWR04" {
		t.Errorf("Expected #PWR04, got %q", ref)
	}
	if ref := doc.NextPowerRef(); ref != "#PWR05" {
		t.Errorf("Expected #PWR05, got %q", ref)
	}
}

func TestEnsureLibSymbol(t *testing.T) {
	doc, _ := Parse("test.kicad_sch", []byte(sampleSch))

	if doc.HasLibSymbol("Device:C") {
		t.Error("Device:C unexpectedly present")
	}
	doc.EnsureLibSymbol("Device:C", RenderLibSymbol("Device:C", []LibPin{
		{Number: "1", Name: "~", Type: "passive", Offset: Position{X: 0, Y: -3.81}, Angle: 270, Length: 1.27},
		{Number: "2", Name: "~", Type: "passive", Offset: Position{X: 0, Y: 3.81}, Angle: 90, Length: 1.27},
	}))
	if !doc.HasLibSymbol("Device:C") {
		t.Error("Device:C missing after EnsureLibSymbol")
	}

	out := string(doc.Bytes())
	if !strings.Contains(out, `(symbol "Device:C"`) {
		t.Error("lib_symbols entry not rendered")
	}

	// Idempotent
	before := doc.Bytes()
	doc.EnsureLibSymbol("Device:C", "(symbol \"Device:C\")")
	if !bytes.Equal(before, doc.Bytes()) {
		t.Error("Duplicate EnsureLibSymbol changed output")
	}
}

func TestSetSheetPins(t *testing.T) {
	doc := NewDocument("root.kicad_sch")
	doc.InsertSheet(SheetRef{
		Name: "power",
		File: "power.kicad_sch",
		Pos:  Position{X: 100, Y: 100},
		Size: Size{Width: 25.4, Height: 15.24},
		UUID: "sheet-1",
		Pins: []SheetPin{
			{Name: "VIN", Shape: "input", Pos: Position{X: 100, Y: 102.54}, Angle: 180, UUID: "pin-1"},
		},
	})

	// Same set: no change
	if doc.SetSheetPins("power", []SheetPin{
		{Name: "VIN", Shape: "input", Pos: Position{X: 0, Y: 0}, UUID: "ignored"},
	}) {
		t.Error("Unchanged pin set reported as changed")
	}
	// Surviving pins keep their position and UUID
	sheet := doc.FindSheet("power")
	if sheet.Pins[0].UUID != "pin-1" || sheet.Pins[0].Pos.Y != 102.54 {
		t.Errorf("Pin identity not preserved: %+v", sheet.Pins[0])
	}

	// Adding a pin and dropping none
	if !doc.SetSheetPins("power", []SheetPin{
		{Name: "VIN", Shape: "input", Pos: Position{X: 0, Y: 0}},
		{Name: "EN", Shape: "input", Pos: Position{X: 100, Y: 105.08}, UUID: "pin-2"},
	}) {
		t.Error("Added pin not reported as change")
	}
	sheet = doc.FindSheet("power")
	if len(sheet.Pins) != 2 {
		t.Fatalf("Expected 2 pins, got %d", len(sheet.Pins))
	}
	if sheet.Pins[0].UUID != "pin-1" {
		t.Error("Surviving pin lost its UUID")
	}

	// Dropping a pin
	if !doc.SetSheetPins("power", []SheetPin{
		{Name: "EN", Shape: "input"},
	}) {
		t.Error("Dropped pin not reported as change")
	}
	if len(doc.FindSheet("power").Pins) != 1 {
		t.Error("Pin not dropped")
	}
}
