package progress

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Update mirrors one step of a tracked operation's progress. It is kept
// independent of any specific transport's own progress type so this
// package stays an out-of-scope collaborator any downloader can drive.
type Update struct {
	BytesRead  int64
	TotalBytes int64
	Terminal   bool
}

// MultiWriter coordinates several concurrently updating progress lines
// (spec.md §5: "Progress bars (one per active download) are coordinated
// through a multi-progress renderer so interleaved updates do not corrupt
// terminal output"). Each tracked name owns one terminal line; every
// update repaints the whole block under one mutex, so interleaved
// arrivals from concurrent goroutines never interleave partial escape
// sequences the way writing straight to os.Stdout from each goroutine
// would.
type MultiWriter struct {
	mu     sync.Mutex
	out    io.Writer
	order  []string
	lines  map[string]Update
	height int
}

// NewMulti returns a MultiWriter rendering to out.
func NewMulti(out io.Writer) *MultiWriter {
	return &MultiWriter{out: out, lines: make(map[string]Update)}
}

// Track registers name as a tracked line and returns the function that
// updates it. Calling the returned function is safe from any goroutine.
func (m *MultiWriter) Track(name string) func(Update) {
	m.mu.Lock()
	if _, ok := m.lines[name]; !ok {
		m.order = append(m.order, name)
	}
	m.lines[name] = Update{}
	m.mu.Unlock()

	return func(u Update) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.lines[name] = u
		m.repaint()
	}
}

// repaint rewrites every tracked line in place, moving the cursor back up
// over the block it last painted before redrawing. Callers must hold mu.
func (m *MultiWriter) repaint() {
	if m.height > 0 {
		fmt.Fprintf(m.out, "\x1b[%dA", m.height)
	}

	names := make([]string, len(m.order))
	copy(names, m.order)
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(m.out, "\r\x1b[K%s\n", renderLine(name, m.lines[name]))
	}
	m.height = len(names)
}

func renderLine(name string, u Update) string {
	status := "downloading"
	if u.Terminal {
		status = "done"
	}
	if u.TotalBytes > 0 {
		percent := float64(u.BytesRead) / float64(u.TotalBytes) * 100
		return fmt.Sprintf("%-24s %6.1f%% (%s/%s) %s", name, percent, formatBytes(u.BytesRead), formatBytes(u.TotalBytes), status)
	}
	return fmt.Sprintf("%-24s %s %s", name, formatBytes(u.BytesRead), status)
}
