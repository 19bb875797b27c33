package render

import (
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vogtb/cellcore"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("241")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
)

// Grid keeps the last text rendered for every position, the in-memory
// equivalent of a painted screen. empty text removes the position.
type Grid struct {
	mu    sync.RWMutex
	cells map[cellcore.Position]string
}

func NewGrid() *Grid {
	return &Grid{cells: make(map[cellcore.Position]string)}
}

func (g *Grid) Render(pos cellcore.Position, text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if text == "" {
		delete(g.cells, pos)
		return
	}
	g.cells[pos] = text
}

// Text returns the text painted at pos
func (g *Grid) Text(pos cellcore.Position) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cells[pos]
}

// Len returns the number of painted positions
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cells)
}

// Reset forgets everything painted
func (g *Grid) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cells = make(map[cellcore.Position]string)
}

// bounds returns the bottom-right corner of the painted area
func (g *Grid) bounds() (rows, cols int) {
	for pos := range g.cells {
		if pos.Row+1 > rows {
			rows = pos.Row + 1
		}
		if pos.Col+1 > cols {
			cols = pos.Col + 1
		}
	}
	return rows, cols
}

// View draws the painted area from A1 to the furthest painted cell as a
// bordered table. an empty grid renders as an empty string.
func (g *Grid) View() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rows, cols := g.bounds()
	if rows == 0 {
		return ""
	}

	headers := make([]string, cols+1)
	for c := 0; c < cols; c++ {
		// column letters are the row-zero address minus its row digit
		name := cellcore.Position{Col: c}.String()
		headers[c+1] = name[:len(name)-1]
	}

	data := make([][]string, rows)
	for r := 0; r < rows; r++ {
		row := make([]string, cols+1)
		row[0] = strconv.Itoa(r + 1)
		for c := 0; c < cols; c++ {
			row[c+1] = g.cells[cellcore.Position{Row: r, Col: c}]
		}
		data[r] = row
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow || col == 0 {
				return headerStyle
			}
			if row < len(data) && strings.HasPrefix(data[row][col], "ERROR:") {
				return errorStyle
			}
			return cellStyle
		})
	return t.Render()
}
