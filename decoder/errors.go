package decoder

import "errors"

var (
	// ErrMalformedInput is returned when distributions reference labels outside
	// the alphabet, a position has no distribution, a score is negative or not
	// finite, or companion sequences disagree in length.
	ErrMalformedInput = errors.New("decoder: malformed input")

	// ErrDecodingInfeasible is returned when the grammar admits no complete
	// label sequence of the requested length.
	ErrDecodingInfeasible = errors.New("decoder: no feasible label sequence")

	// ErrInvalidGrammar is returned by Grammar.Validate.
	ErrInvalidGrammar = errors.New("decoder: invalid grammar")

	// ErrInfeasibleSequence is returned by Grammar.Check for a sequence that
	// violates the grammar.
	ErrInfeasibleSequence = errors.New("decoder: sequence violates grammar")

	// ErrUnknownStrategy is returned by NewDecoder for an unrecognized name.
	ErrUnknownStrategy = errors.New("decoder: unknown strategy")
)
