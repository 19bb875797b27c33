package cellcore

import (
	"fmt"
	"log/slog"
)

// Sheet combines the cell store, dependency tracking and formula evaluation
// behind the editor-facing API. a Sheet is single-threaded; callers that
// share one across goroutines serialize access themselves.
type Sheet struct {
	store    *Store
	renderer Renderer
	observer Observer
	logger   *slog.Logger
	buckets  int
	maxDepth int
}

// Option configures a Sheet
type Option func(*Sheet)

// WithRenderer sets the display collaborator
func WithRenderer(r Renderer) Option {
	return func(s *Sheet) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithLogger sets the logger used for evaluation and lookup diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(s *Sheet) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver sets the instrumentation sink
func WithObserver(o Observer) Option {
	return func(s *Sheet) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithBuckets sets the store's bucket count. non-positive values select
// DefaultBuckets.
func WithBuckets(n int) Option {
	return func(s *Sheet) {
		s.buckets = n
	}
}

// WithMaxDepth bounds nested formula evaluation
func WithMaxDepth(n int) Option {
	return func(s *Sheet) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// New creates an initialized, empty sheet
func New(opts ...Option) *Sheet {
	s := &Sheet{
		renderer: nopRenderer{},
		observer: NopObserver{},
		logger:   slog.New(slog.DiscardHandler),
		buckets:  DefaultBuckets,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Init()
	return s
}

// Init establishes an empty store. calling it on a live sheet discards every
// cell without rendering.
func (s *Sheet) Init() {
	s.store = NewStore(s.buckets)
	s.observer.CellsChanged(0)
}

// Destroy releases every cell. no render calls are made. the sheet refuses
// further operations until Init is called.
func (s *Sheet) Destroy() {
	if s.store == nil {
		return
	}
	s.store.destroyAll()
	s.store = nil
	s.observer.CellsChanged(0)
	s.logger.Debug("sheet destroyed")
}

// Len returns the number of stored cells, including cleared ones
func (s *Sheet) Len() int {
	if s.store == nil {
		return 0
	}
	return s.store.Len()
}

func (s *Sheet) checkPosition(pos Position) error {
	if s.store == nil {
		return ErrDestroyed
	}
	if pos.Row < 0 || pos.Col < 0 {
		return fmt.Errorf("position %s: %w", pos.Key(), ErrInvalidAddress)
	}
	return nil
}

// Set stores text at pos, evaluates it if it is a formula, renders the
// result and re-evaluates the cell's direct dependents.
func (s *Sheet) Set(pos Position, text string) error {
	if err := s.checkPosition(pos); err != nil {
		return err
	}

	h, ok := s.store.findHandle(pos)
	var cell *Cell
	if ok {
		cell = s.store.resolve(h)
		cell.OriginalInput = text
	} else {
		cell, h = s.store.create(pos, text)
		s.observer.CellsChanged(s.store.Len())
	}

	s.assign(h, cell)
	s.propagate(h, cell)
	return nil
}

// SetAddress is Set with an A1-style address
func (s *Sheet) SetAddress(address, text string) error {
	pos, err := ParseAddress(address)
	if err != nil {
		return err
	}
	return s.Set(pos, text)
}

// assign derives the cell's content from its original input and renders it
func (s *Sheet) assign(h Handle, cell *Cell) {
	if cell.IsFormula() {
		cell.Content = Formula(cell.Source())
		s.settle(cell, s.evaluate(h, cell, 0))
		return
	}
	cell.Content = classifyLiteral(cell.OriginalInput)
	cell.Computed = 0
	s.render(cell)
}

// settle stores an evaluation result into the cell and renders it
func (s *Sheet) settle(cell *Cell, result Value) {
	cell.Content = result
	if n, ok := result.(Number); ok {
		cell.Computed = float64(n)
	}
	s.render(cell)
}

func (s *Sheet) render(cell *Cell) {
	s.renderer.Render(cell.Position, cell.Display())
	s.observer.CellRendered(cell.Position)
}

// propagate re-evaluates the direct dependents of cell. dependents of those
// dependents are not revisited; a later edit to them refreshes the chain.
func (s *Sheet) propagate(h Handle, cell *Cell) {
	for _, dh := range dependentsOf(cell) {
		if dh == h {
			s.logger.Warn("cell depends on itself", "cell", cell.Position.String())
			s.settle(cell, NewEvalError(ErrorCodeCircular))
			continue
		}
		dep := s.store.resolve(dh)
		if dep == nil || dep.Content == nil {
			// freed or cleared since the edge was recorded
			continue
		}
		s.assign(dh, dep)
	}
}

func (s *Sheet) lookup(pos Position) (*Cell, error) {
	if err := s.checkPosition(pos); err != nil {
		return nil, err
	}
	cell := s.store.find(pos)
	if cell == nil {
		s.logger.Warn("cell does not exist", "row", pos.Row, "col", pos.Col)
		return nil, fmt.Errorf("%s: %w", pos, ErrCellNotFound)
	}
	return cell, nil
}

// GetTextualValue returns the text an editor shows when the cell is opened:
// the string for text content, otherwise the original input verbatim.
func (s *Sheet) GetTextualValue(pos Position) (string, error) {
	cell, err := s.lookup(pos)
	if err != nil {
		return "", err
	}
	if t, ok := cell.Content.(Text); ok {
		return string(t), nil
	}
	return cell.OriginalInput, nil
}

// Display returns the text last rendered for the cell
func (s *Sheet) Display(pos Position) (string, error) {
	cell, err := s.lookup(pos)
	if err != nil {
		return "", err
	}
	return cell.Display(), nil
}

// Value returns the cell's current content, nil for a cleared cell
func (s *Sheet) Value(pos Position) (Value, error) {
	cell, err := s.lookup(pos)
	if err != nil {
		return nil, err
	}
	return cell.Content, nil
}

// Dependents returns the positions of the cells recorded as depending on pos
func (s *Sheet) Dependents(pos Position) ([]Position, error) {
	cell, err := s.lookup(pos)
	if err != nil {
		return nil, err
	}
	return s.store.dependentPositions(cell), nil
}

// Clear empties the cell at pos and renders an empty string. the cell stays
// in the store; its dependents are forgotten and not re-evaluated.
func (s *Sheet) Clear(pos Position) error {
	cell, err := s.lookup(pos)
	if err != nil {
		return err
	}
	s.store.clear(pos)
	s.render(cell)
	return nil
}

// Free removes the cell at pos from the store and renders an empty string.
// edges held by other cells become stale and are skipped from then on.
func (s *Sheet) Free(pos Position) error {
	cell, err := s.lookup(pos)
	if err != nil {
		return err
	}
	s.store.remove(pos)
	cell.Content = nil
	s.render(cell)
	s.observer.CellsChanged(s.store.Len())
	return nil
}

// Stats describes the store's shape
type Stats struct {
	Cells        int
	Buckets      int
	LongestChain int
	Edges        int
}

// Stats returns the current store statistics
func (s *Sheet) Stats() Stats {
	if s.store == nil {
		return Stats{}
	}
	return Stats{
		Cells:        s.store.Len(),
		Buckets:      s.store.BucketCount(),
		LongestChain: s.store.LongestChain(),
		Edges:        s.store.edgeCount(),
	}
}

// Range calls fn for every stored cell with its current display text
func (s *Sheet) Range(fn func(pos Position, display string)) {
	if s.store == nil {
		return
	}
	s.store.forEach(func(_ Handle, cell *Cell) {
		fn(cell.Position, cell.Display())
	})
}
