package cellcore

import "time"

// Renderer is the display collaborator. it is called after every mutation of
// a cell, including clears (with an empty string) and propagated updates.
type Renderer interface {
	Render(pos Position, text string)
}

// RendererFunc adapts a function to the Renderer interface
type RendererFunc func(pos Position, text string)

func (f RendererFunc) Render(pos Position, text string) {
	f(pos, text)
}

type nopRenderer struct{}

func (nopRenderer) Render(Position, string) {}

// Observer receives instrumentation events from the sheet
type Observer interface {
	CellEvaluated(pos Position, result Value, elapsed time.Duration)
	CellRendered(pos Position)
	CellsChanged(count int)
}

// NopObserver ignores every event
type NopObserver struct{}

func (NopObserver) CellEvaluated(Position, Value, time.Duration) {}
func (NopObserver) CellRendered(Position)                        {}
func (NopObserver) CellsChanged(int)                             {}
