package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressBar displays the progress of a counted run such as a benchmark.
// It redraws only when the whole percentage changes.
type ProgressBar struct {
	w       io.Writer
	title   string
	unit    string
	total   int64
	current int64
	width   int
	shown   int
	mu      sync.Mutex
}

// NewProgressBar creates a new progress bar counting unit.
func NewProgressBar(w io.Writer, title, unit string) *ProgressBar {
	return &ProgressBar{
		w:     w,
		title: title,
		unit:  unit,
		width: 40,
		shown: -1,
	}
}

// SetTotal sets the total count.
func (p *ProgressBar) SetTotal(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

// Update sets the progress.
func (p *ProgressBar) Update(current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.total = total
	p.render(false)
}

// Increment adds to the current progress. It is safe for concurrent use.
func (p *ProgressBar) Increment(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	p.render(false)
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total > 0 {
		p.current = p.total
	}
	p.render(true)
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) render(force bool) {
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %d %s", p.title, p.current, p.unit)
		return
	}

	current := min(p.current, p.total)
	whole := int(current * 100 / p.total)
	if whole == p.shown && !force {
		return
	}
	p.shown = whole

	filled := int(current * int64(p.width) / p.total)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)

	fmt.Fprintf(p.w, "\r%s [%s] %3d%% (%d/%d %s)",
		p.title,
		bar,
		whole,
		p.current,
		p.total,
		p.unit,
	)
}
