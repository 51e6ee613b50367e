package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMultiWriterTracksIndependentLines(t *testing.T) {
	var buf bytes.Buffer
	m := NewMulti(&buf)

	hello := m.Track("hello")
	world := m.Track("world")

	hello(Update{BytesRead: 50, TotalBytes: 100})
	require.Contains(t, buf.String(), "hello")
	require.Contains(t, buf.String(), "world")

	buf.Reset()
	world(Update{BytesRead: 100, TotalBytes: 100, Terminal: true})
	out := buf.String()
	require.Contains(t, out, "done")
	require.True(t, strings.Contains(out, "100.0%") || strings.Contains(out, "100.0 %"))
}

func TestRenderLineShowsUnknownTotal(t *testing.T) {
	line := renderLine("partial", Update{BytesRead: 1024})
	require.Contains(t, line, "partial")
	require.Contains(t, line, "1.0KB")
	require.NotContains(t, line, "%")
}
