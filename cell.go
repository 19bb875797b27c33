package cellcore

import (
	"errors"
	"strconv"
	"strings"
)

// FormulaPrefix marks an input as a formula
const FormulaPrefix = "="

// Kind identifies the variant held in a cell
type Kind uint8

const (
	KindEmpty   Kind = 0
	KindNumber  Kind = 1
	KindText    Kind = 2
	KindFormula Kind = 3
	KindError   Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindFormula:
		return "formula"
	case KindError:
		return "error"
	default:
		return "empty"
	}
}

// Value is the content of a cell. the variants are Number, Text, Formula
// and *EvalError; a nil Value is an empty (cleared) cell.
type Value interface {
	Kind() Kind
	String() string
}

// Number is a numeric cell value
type Number float64

func (Number) Kind() Kind { return KindNumber }

// String formats with exactly one fractional digit, the display convention
// for computed results
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', 1, 64)
}

// Text is a literal or computed string
type Text string

func (Text) Kind() Kind       { return KindText }
func (t Text) String() string { return string(t) }

// Formula holds a formula source with the leading marker stripped. a cell
// only holds this variant while it is being evaluated.
type Formula string

func (Formula) Kind() Kind       { return KindFormula }
func (f Formula) String() string { return FormulaPrefix + string(f) }

// ErrorCode classifies formula evaluation failures
type ErrorCode uint8

const (
	ErrorCodeRef      ErrorCode = 1 // token is not a number or names a missing cell
	ErrorCodeCircular ErrorCode = 2 // reference chain revisits a cell under evaluation
	ErrorCodeValue    ErrorCode = 3 // non-zero numbers mixed with text
	ErrorCodeDepth    ErrorCode = 4 // formula chain deeper than the configured limit
)

// ErrorMapper maps error codes to the message displayed in the cell
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeRef:      "ERROR: invalid cell reference",
	ErrorCodeCircular: "ERROR: circular dependency",
	ErrorCodeValue:    "ERROR: incompatible types",
	ErrorCodeDepth:    "ERROR: formula chain too deep",
}

// EvalError is an evaluation failure stored in a cell. it is a value, not a
// Go error returned to callers.
type EvalError struct {
	Code    ErrorCode
	Message string
}

func NewEvalError(code ErrorCode) *EvalError {
	return &EvalError{Code: code, Message: ErrorMapper[code]}
}

func (*EvalError) Kind() Kind { return KindError }

func (e *EvalError) String() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrorMapper[e.Code]
}

func (e *EvalError) Error() string {
	return e.String()
}

type visitation uint8

const (
	unvisited visitation = iota
	visiting
)

// Cell is the mutable record stored for an occupied position
type Cell struct {
	Position      Position
	Content       Value   // nil once cleared
	Computed      float64 // last numeric formula result; valid while Content is a Number produced by a formula
	OriginalInput string  // text last supplied by the editor, verbatim

	dependents []Handle // cells whose formulas reference this one (set semantics)
	state      visitation
}

// IsFormula reports whether the cell's input is a formula
func (c *Cell) IsFormula() bool {
	return strings.HasPrefix(c.OriginalInput, FormulaPrefix)
}

// Source returns the formula source with the marker stripped
func (c *Cell) Source() string {
	return strings.TrimPrefix(c.OriginalInput, FormulaPrefix)
}

// Kind returns the kind of the current content
func (c *Cell) Kind() Kind {
	if c.Content == nil {
		return KindEmpty
	}
	return c.Content.Kind()
}

// Display returns the text shown for the cell's current content: computed
// numbers use one decimal place, literals show their original input.
func (c *Cell) Display() string {
	switch v := c.Content.(type) {
	case nil:
		return ""
	case Number:
		if c.IsFormula() {
			return v.String()
		}
		return c.OriginalInput
	default:
		return v.String()
	}
}

// parseNumber parses the whole string as a float. out-of-range magnitudes are
// accepted and saturate to ±Inf.
func parseNumber(text string) (float64, bool) {
	n, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return n, true
}

// classifyLiteral decides between Number and Text for non-formula input. the
// whole string must parse as a number.
func classifyLiteral(text string) Value {
	if n, ok := parseNumber(text); ok {
		return Number(n)
	}
	return Text(text)
}
