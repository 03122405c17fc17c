package data

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrConfiguration marks invalid options such as a bad split fraction or column mapping.
	ErrConfiguration = errors.New("configuration error")
	// ErrDataFormat marks input that cannot be parsed into records.
	ErrDataFormat = errors.New("data format error")
	// ErrResource marks a dataset that cannot be opened or read.
	ErrResource = errors.New("resource error")
)

// DataFormatError describes a single malformed input line.
type DataFormatError struct {
	Line   int
	Text   string
	Reason string
}

func (e *DataFormatError) Error() string {
	if e.Line <= 0 {
		return fmt.Sprintf("%v: %s", ErrDataFormat, e.Reason)
	}
	return fmt.Sprintf("%v: line %d: %s: %q", ErrDataFormat, e.Line, e.Reason, e.Text)
}

func (e *DataFormatError) Unwrap() error {
	return ErrDataFormat
}

func configurationError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}
