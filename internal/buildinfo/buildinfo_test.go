package buildinfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBuildData(t *testing.T) {
	origV, origD, origC := buildVersion, buildDate, buildCommit
	t.Cleanup(func() { buildVersion, buildDate, buildCommit = origV, origD, origC })

	buildVersion, buildDate, buildCommit = "v1.0.0", "2026-01-02", ""

	var buf bytes.Buffer
	PrintBuildData(&buf)
	assert.Equal(t, "Build version: v1.0.0\nBuild date: 2026-01-02\nBuild commit: N/A\n", buf.String())
}
