package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRegistry(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name    string
		isPower bool
		symbol  string
	}{
		{"GND", true, "power:GND"},
		{"GNDA", true, "power:GNDA"},
		{"GNDD", true, "power:GNDD"},
		{"GNDREF", true, "power:GNDREF"},
		{"GNDPWR", true, "power:GNDPWR"},
		{"VCC", true, "power:VCC"},
		{"VDD", true, "power:VDD"},
		{"VBUS", true, "power:VBUS"},

		// Matching is exact and case-sensitive
		{"gnd", false, ""},
		{"GND_SENSE", false, ""},
		{"AGND2", false, ""},
		{"DATA", false, ""},
		{"CLK", false, ""},
		{"USB_DP", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Classify(tt.name, nil)
			assert.Equal(t, tt.isPower, d.IsPower)
			assert.Equal(t, tt.symbol, d.SymbolID)
		})
	}
}

func TestClassifyVoltageRails(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name    string
		isPower bool
		symbol  string
	}{
		{"+3V3", true, "power:+3V3"},
		{"3.3V", true, "power:+3V3"},
		{"+5V", true, "power:+5V"},
		{"5V", true, "power:+5V"},
		{"-12V", true, "power:-12V"},
		{"+1V8", true, "power:+1V8"},
		{"1.8V", true, "power:+1V8"},
		{"12V", true, "power:+12V"},

		// Lowercase v and malformed spellings are not rails
		{"3.3v", false, ""},
		{"+3V3A", false, ""},
		{"V33", false, ""},
		{"3.3", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Classify(tt.name, nil)
			assert.Equal(t, tt.isPower, d.IsPower, "IsPower for %q", tt.name)
			assert.Equal(t, tt.symbol, d.SymbolID)
		})
	}
}

func TestClassifyExplicitOverride(t *testing.T) {
	c := NewClassifier()
	yes, no := true, false

	// Override forces power even for arbitrary names
	d := c.Classify("CHARGE_PUMP", &yes)
	assert.True(t, d.IsPower)
	assert.Equal(t, "power:CHARGE_PUMP", d.SymbolID)

	// Override forces signal even for registry rails
	d = c.Classify("GND", &no)
	assert.False(t, d.IsPower)
	assert.Empty(t, d.SymbolID)

	// Overridden rails still normalize
	d = c.Classify("3.3V", &yes)
	assert.Equal(t, "power:+3V3", d.SymbolID)
}

func TestClassifyExtraRails(t *testing.T) {
	c := NewClassifier("VSYS", "VBATT")

	assert.True(t, c.Classify("VSYS", nil).IsPower)
	assert.True(t, c.Classify("VBATT", nil).IsPower)
	assert.Equal(t, "power:VSYS", c.Classify("VSYS", nil).SymbolID)

	// The default registry still applies
	assert.True(t, c.Classify("GND", nil).IsPower)
	// Extras are exact too
	assert.False(t, c.Classify("VSYS2", nil).IsPower)
}

func TestClassifyDeterministic(t *testing.T) {
	c := NewClassifier()
	first := c.Classify("VCC", nil)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify("VCC", nil))
	}
}
