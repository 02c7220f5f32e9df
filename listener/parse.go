package listener

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// width of a line when fixed width submissions are required
const FixedWidth = 9

// reasons a submission line is rejected, also used as metric labels
const (
	ReasonEmpty     = "empty"
	ReasonWidth     = "width"
	ReasonNotNumber = "not_a_number"
	ReasonRange     = "out_of_range"
	ReasonTooLong   = "too_long"
)

type ParseError struct {
	Reason string
	Line   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bad submission (%s): %q", e.Reason, e.Line)
}

// ParseLine converts one submission line into a value in [0, maxValue).
// The trailing newline (and carriage return) is optional, signs are not allowed, leading zeros are.
func ParseLine(line string, maxValue uint32, fixedWidth bool) (uint32, error) {
	token := strings.TrimSuffix(line, "\n")
	token = strings.TrimSuffix(token, "\r")
	if len(token) == 0 {
		return 0, &ParseError{Reason: ReasonEmpty, Line: line}
	}
	if fixedWidth && len(token) != FixedWidth {
		return 0, &ParseError{Reason: ReasonWidth, Line: line}
	}
	v, err := strconv.ParseUint(token, 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, &ParseError{Reason: ReasonRange, Line: line}
		}
		return 0, &ParseError{Reason: ReasonNotNumber, Line: line}
	}
	if uint32(v) >= maxValue {
		return 0, &ParseError{Reason: ReasonRange, Line: line}
	}
	return uint32(v), nil
}
