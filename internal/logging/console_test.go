package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConsoleFormatterSetWidthsFloorsAtFallback mirrors spec.md §4.2.2:
// widths never shrink below the built-in fallbacks (9, 18), only grow to
// fit a longer configured label.
func TestConsoleFormatterSetWidthsFloorsAtFallback(t *testing.T) {
	f := newConsoleFormatter()
	f.setWidths([]string{"DEBUG"}, []string{"X"})
	assert.Equal(t, 9, f.priorityWidth)
	assert.Equal(t, 18, f.subsystemWidth)

	f.setWidths([]string{"DEBUG"}, []string{"AVeryLongSubsystemName"})
	assert.Equal(t, 9, f.priorityWidth)
	assert.Equal(t, len("AVeryLongSubsystemName"), f.subsystemWidth)
}

// TestSetConfigRecomputesSubsystemWidthFromDestinationTables exercises the
// wiring through Pipeline.SetConfig: a subsystem name configured on any
// destination widens the console's subsystem column.
func TestSetConfigRecomputesSubsystemWidthFromDestinationTables(t *testing.T) {
	var out bytes.Buffer
	p, err := NewPipeline(PipelineOptions{ConsoleOutput: &out})
	require.NoError(t, err)

	longName := "AVeryLongConfiguredSubsystemName"
	cfg := DefaultStaticConfig()
	cfg.FileConfig.Subsystems = map[string]Priority{longName: Debug}
	p.SetConfig(cfg)

	assert.Equal(t, len(longName), p.console.fmtr.subsystemWidth)
}
