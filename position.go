package cellcore

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a zero-based (row, column) address. it is the store's unique
// key and never changes for the lifetime of a cell.
type Position struct {
	Row int
	Col int
}

// Key encodes the position as "row,col", the string hashed into the store
func (p Position) Key() string {
	return strconv.Itoa(p.Row) + "," + strconv.Itoa(p.Col)
}

// String renders the position in A1 notation (column letters, 1-based row)
func (p Position) String() string {
	return columnName(p.Col) + strconv.Itoa(p.Row+1)
}

// columnName converts a zero-based column to base-26 letters (0 -> A, 26 -> AA)
func columnName(col int) string {
	if col < 0 {
		return "?"
	}
	var name []byte
	for col >= 0 {
		name = append([]byte{byte('A' + col%26)}, name...)
		col = col/26 - 1
	}
	return string(name)
}

// djb2 over the key bytes, reduced to the bucket count
func hashKey(key string, buckets int) int {
	var h uint64 = 5381
	for i := 0; i < len(key); i++ {
		h = (h << 5) + h + uint64(key[i])
	}
	return int(h % uint64(buckets))
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func toUpper(ch byte) byte {
	if ch >= 'a' && ch <= 'z' {
		return ch - 32
	}
	return ch
}

// parseRow parses a 1-based row made only of digits and returns it zero-based
func parseRow(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
	}
	row, err := strconv.Atoi(s)
	if err != nil || row < 1 {
		return 0, false
	}
	return row - 1, true
}

// parseReference applies the formula reference rule: exactly one letter
// naming the column followed by the row digits. "B3" is row 2, column 1.
func parseReference(token string) (Position, bool) {
	if len(token) < 2 || !isAlpha(token[0]) {
		return Position{}, false
	}
	row, ok := parseRow(token[1:])
	if !ok {
		return Position{}, false
	}
	return Position{Row: row, Col: int(toUpper(token[0]) - 'A')}, true
}

// ParseAddress parses an external address such as "B3" or "AA10". unlike
// formula references, the column may span several letters.
func ParseAddress(address string) (Position, error) {
	letterEnd := 0
	for letterEnd < len(address) && isAlpha(address[letterEnd]) {
		letterEnd++
	}
	if letterEnd == 0 {
		return Position{}, fmt.Errorf("%q: %w", address, ErrInvalidAddress)
	}

	col := 0
	for i := 0; i < letterEnd; i++ {
		col = col*26 + int(toUpper(address[i])-'A') + 1
		if col > 1<<20 {
			return Position{}, fmt.Errorf("%q: column out of range: %w", address, ErrInvalidAddress)
		}
	}

	row, ok := parseRow(address[letterEnd:])
	if !ok {
		return Position{}, fmt.Errorf("%q: %w", address, ErrInvalidAddress)
	}
	return Position{Row: row, Col: col - 1}, nil
}

// MustParseAddress is ParseAddress for literals known to be valid
func MustParseAddress(address string) Position {
	pos, err := ParseAddress(strings.TrimSpace(address))
	if err != nil {
		panic(err)
	}
	return pos
}
