// Package render holds the display collaborators that receive the sheet's
// render callbacks.
package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/vogtb/cellcore"
)

// Multi fans one render call out to several renderers in order
type Multi []cellcore.Renderer

func (m Multi) Render(pos cellcore.Position, text string) {
	for _, r := range m {
		r.Render(pos, text)
	}
}

// Writer prints one line per render call, e.g. "B3 <- 8.0"
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) Render(pos cellcore.Position, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s <- %s\n", pos, text)
}
