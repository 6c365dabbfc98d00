package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// Progress reports committed import rows. The total is unknown up front, so
// the bar runs as a counter.
type Progress struct {
	bar  *progressbar.ProgressBar
	last int
}

// NewProgress starts a progress counter writing to w.
func NewProgress(w io.Writer, description string) *Progress {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][bold]%s[reset]", description)),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return &Progress{bar: bar}
}

// Update moves the counter to n. It matches importer.Options.Progress.
func (p *Progress) Update(n int) {
	if n <= p.last {
		return
	}
	if err := p.bar.Add(n - p.last); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
	p.last = n
}

// Count returns the last reported value.
func (p *Progress) Count() int {
	return p.last
}

// Finish completes the bar.
func (p *Progress) Finish() {
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}
