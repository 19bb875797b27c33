package cellcore

import (
	"strings"
	"time"
)

// DefaultMaxDepth bounds how many nested formula references one evaluation
// may follow before failing with ErrorCodeDepth
const DefaultMaxDepth = 512

const charPlus = '+'

// tokenize splits a formula source on '+'. empty fields are dropped, so an
// empty formula has no tokens and evaluates to zero.
func tokenize(source string) []string {
	return strings.FieldsFunc(source, func(r rune) bool {
		return r == charPlus
	})
}

// accumulator folds token contributions. numbers and text are tracked
// separately and only reconciled once all tokens are processed.
type accumulator struct {
	number  float64
	text    string
	hasText bool
}

func (a *accumulator) addText(s string) {
	if !a.hasText {
		a.text = s
		a.hasText = true
		return
	}
	a.text += s
}

// fold adds a resolved (non-error) value
func (a *accumulator) fold(v Value) {
	switch v := v.(type) {
	case Number:
		a.number += float64(v)
	case Text:
		a.addText(string(v))
	}
}

// result applies the coercion policy: text and a non-zero number cannot be
// summed, text alone overrides, otherwise the number (zero when empty)
func (a *accumulator) result() Value {
	if a.hasText && a.number != 0 {
		return NewEvalError(ErrorCodeValue)
	}
	if a.hasText {
		return Text(a.text)
	}
	return Number(a.number)
}

// evaluate computes the formula held by cell. the result is a Number, a
// Text override or an *EvalError; the caller settles it into the cell.
// referenced cells contribute their settled content; only a reference still
// holding its formula source is evaluated (and settled) on the way.
func (s *Sheet) evaluate(h Handle, cell *Cell, depth int) Value {
	if depth > s.maxDepth {
		return NewEvalError(ErrorCodeDepth)
	}

	start := time.Now()
	cell.state = visiting
	result := s.evaluateTokens(h, cell, depth)
	cell.state = unvisited

	s.observer.CellEvaluated(cell.Position, result, time.Since(start))
	s.logger.Debug("cell evaluated",
		"cell", cell.Position.String(),
		"formula", cell.Source(),
		"kind", result.Kind().String(),
		"depth", depth,
	)
	return result
}

func (s *Sheet) evaluateTokens(h Handle, cell *Cell, depth int) Value {
	var acc accumulator

	for _, token := range tokenize(cell.Source()) {
		if !isAlpha(token[0]) {
			// not a reference, must be a numeric literal
			n, ok := parseNumber(token)
			if !ok {
				return NewEvalError(ErrorCodeRef)
			}
			acc.number += n
			continue
		}

		pos, ok := parseReference(token)
		if !ok {
			return NewEvalError(ErrorCodeRef)
		}

		refHandle, found := s.store.findHandle(pos)
		if !found {
			return NewEvalError(ErrorCodeRef)
		}
		ref := s.store.resolve(refHandle)
		if ref == nil {
			return NewEvalError(ErrorCodeRef)
		}
		if ref.state == visiting {
			return NewEvalError(ErrorCodeCircular)
		}
		if ref.Content == nil {
			// cleared cells are not valid references, but setting them again
			// should refresh this formula
			link(ref, h)
			return NewEvalError(ErrorCodeRef)
		}

		stop := false
		switch v := ref.Content.(type) {
		case Formula:
			// only reachable for a cell whose evaluation has not settled yet;
			// settled formula cells hold their result and are read as is
			nested := s.evaluate(refHandle, ref, depth+1)
			s.settle(ref, nested)
			link(ref, h)
			if evalErr, isErr := nested.(*EvalError); isErr {
				return evalErr
			}
			acc.fold(nested)
			continue
		case Number:
			acc.number += float64(v)
		case Text:
			acc.addText(string(v))
		case *EvalError:
			// an error replaces any text gathered so far and ends the pass
			acc.text = v.String()
			acc.hasText = true
			stop = true
		}
		link(ref, h)
		if stop {
			break
		}
	}

	return acc.result()
}
