package model

import "errors"

var (
	// ErrDivideByZero is returned when a divisor (scalar, vector component or
	// point count) is exactly zero.
	ErrDivideByZero = errors.New("cannot divide by zero")

	// ErrZeroLengthVector is returned when normalizing the zero vector.
	ErrZeroLengthVector = errors.New("cannot normalize zero-length vector")

	// ErrInvalidOperand is returned when a value cannot be converted to a vector.
	ErrInvalidOperand = errors.New("invalid vector operand")
)
