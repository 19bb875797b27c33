package cellcore

// the dependency graph is not a separate structure: each cell carries the
// handles of the cells whose formulas reference it. edges are only ever
// added during evaluation and are dropped when the source cell is cleared,
// freed or destroyed. a formula that stops referencing a cell leaves a
// stale edge behind; re-evaluating through it is idempotent.

// link records dependent as a dependent of source. returns false if the
// edge already existed.
func link(source *Cell, dependent Handle) bool {
	for _, h := range source.dependents {
		if h == dependent {
			return false
		}
	}
	source.dependents = append(source.dependents, dependent)
	return true
}

// dependentsOf returns a snapshot of the cell's dependents. evaluation may
// add edges while the snapshot is walked.
func dependentsOf(cell *Cell) []Handle {
	if len(cell.dependents) == 0 {
		return nil
	}
	result := make([]Handle, len(cell.dependents))
	copy(result, cell.dependents)
	return result
}

// dependentPositions resolves the cell's dependents through the store,
// skipping edges whose cell has been freed
func (s *Store) dependentPositions(cell *Cell) []Position {
	result := make([]Position, 0, len(cell.dependents))
	for _, h := range cell.dependents {
		if dep := s.resolve(h); dep != nil {
			result = append(result, dep.Position)
		}
	}
	return result
}

// edgeCount returns the total number of live dependency edges
func (s *Store) edgeCount() int {
	total := 0
	s.forEach(func(_ Handle, cell *Cell) {
		for _, h := range cell.dependents {
			if s.resolve(h) != nil {
				total++
			}
		}
	})
	return total
}
