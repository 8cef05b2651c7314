package batch

import (
	"fmt"
	"io"
	"sync"
)

// Progress receives the two batch counters. Admitted is called from the
// dispatching goroutine and Completed from the consuming goroutine, so
// implementations must be safe for concurrent use.
type Progress interface {
	Admitted(n, total int)
	Completed(n, total int)
}

type nopProgress struct{}

func (nopProgress) Admitted(int, int)  {}
func (nopProgress) Completed(int, int) {}

// WriterProgress prints a single status line, rewritten in place with a
// carriage return, to W. Call Done to terminate the line.
type WriterProgress struct {
	W io.Writer

	mu        sync.Mutex
	admitted  int
	completed int
	total     int
}

// NewWriterProgress returns a progress reporter writing to w.
func NewWriterProgress(w io.Writer) *WriterProgress {
	return &WriterProgress{W: w}
}

func (p *WriterProgress) Admitted(n, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.admitted, p.total = n, total
	p.print()
}

func (p *WriterProgress) Completed(n, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed, p.total = n, total
	p.print()
}

// Done ends the status line.
func (p *WriterProgress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total > 0 {
		fmt.Fprintln(p.W)
	}
}

func (p *WriterProgress) print() {
	fmt.Fprintf(p.W, "\rresolving: %d/%d started, %d/%d done", p.admitted, p.total, p.completed, p.total)
}
