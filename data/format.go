package data

import (
	"strings"
)

// Format writes r back in the two column layout read by DefaultLoadOptions.
// Text that contains the delimiter or a line break cannot be represented.
func Format(r Record, delimiter string) (string, error) {
	if delimiter == "" {
		return "", configurationError("delimiter is required")
	}
	if strings.Contains(r.Text, delimiter) || strings.ContainsAny(r.Text, "\r\n") {
		return "", &DataFormatError{Text: r.Text, Reason: "text contains the delimiter or a line break"}
	}
	label, ok := r.Labeled()
	if !ok {
		return r.Text, nil
	}
	if label {
		return r.Text + delimiter + "1", nil
	}
	return r.Text + delimiter + "0", nil
}
