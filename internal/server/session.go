package server

import (
	"sort"
	"sync"

	"github.com/vogtb/cellcore"
)

// Session serializes access to a sheet shared by concurrent requests
type Session struct {
	mu    sync.Mutex
	sheet *cellcore.Sheet
}

func NewSession(sheet *cellcore.Sheet) *Session {
	return &Session{sheet: sheet}
}

// CellView is the API representation of a cell
type CellView struct {
	Ref     string `json:"ref"`
	Value   string `json:"value"`
	Display string `json:"display"`
	Kind    string `json:"kind"`
}

func (s *Session) view(pos cellcore.Position) (CellView, error) {
	value, err := s.sheet.GetTextualValue(pos)
	if err != nil {
		return CellView{}, err
	}
	display, err := s.sheet.Display(pos)
	if err != nil {
		return CellView{}, err
	}
	content, err := s.sheet.Value(pos)
	if err != nil {
		return CellView{}, err
	}
	kind := cellcore.KindEmpty
	if content != nil {
		kind = content.Kind()
	}
	return CellView{
		Ref:     pos.String(),
		Value:   value,
		Display: display,
		Kind:    kind.String(),
	}, nil
}

// Get returns the current view of the cell at pos
func (s *Session) Get(pos cellcore.Position) (CellView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(pos)
}

// Set stores text and returns the resulting view
func (s *Session) Set(pos cellcore.Position, text string) (CellView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sheet.Set(pos, text); err != nil {
		return CellView{}, err
	}
	return s.view(pos)
}

func (s *Session) Clear(pos cellcore.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheet.Clear(pos)
}

func (s *Session) Free(pos cellcore.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheet.Free(pos)
}

// Dependents returns the A1 names of the cells that reference pos
func (s *Session) Dependents(pos cellcore.Position) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deps, err := s.sheet.Dependents(pos)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(deps))
	for i, d := range deps {
		names[i] = d.String()
	}
	sort.Strings(names)
	return names, nil
}

// List returns every stored cell ordered by row, then column
func (s *Session) List() []CellView {
	s.mu.Lock()
	defer s.mu.Unlock()

	var positions []cellcore.Position
	s.sheet.Range(func(pos cellcore.Position, _ string) {
		positions = append(positions, pos)
	})
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Row != positions[j].Row {
			return positions[i].Row < positions[j].Row
		}
		return positions[i].Col < positions[j].Col
	})

	result := make([]CellView, 0, len(positions))
	for _, pos := range positions {
		if v, err := s.view(pos); err == nil {
			result = append(result, v)
		}
	}
	return result
}
