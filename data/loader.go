package data

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

const maxLineBytes = 1 << 20

type LoadOptions struct {
	Delimiter    string `yaml:"delimiter"`
	TextColumn   int    `yaml:"text_column"`
	LabelColumn  int    `yaml:"label_column"`
	HasHeader    bool   `yaml:"has_header"`
	Encoding     string `yaml:"encoding"`
	RequireLabel bool   `yaml:"require_label"`
}

// DefaultLoadOptions matches the labelled sentiment files: tab separated,
// no header, text in column 0 and a 0/1 label in column 1.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Delimiter:    "\t",
		TextColumn:   0,
		LabelColumn:  1,
		Encoding:     "utf-8",
		RequireLabel: true,
	}
}

func (o LoadOptions) Validate() error {
	if o.Delimiter == "" {
		return configurationError("delimiter is required")
	}
	if o.TextColumn < 0 || o.LabelColumn < 0 {
		return configurationError("column index must not be negative (text=%d label=%d)", o.TextColumn, o.LabelColumn)
	}
	if o.TextColumn == o.LabelColumn {
		return configurationError("text and label columns must differ (both %d)", o.TextColumn)
	}
	if _, err := lookupEncoding(o.Encoding); err != nil {
		return err
	}
	return nil
}

func (o LoadOptions) columns() int {
	if o.TextColumn > o.LabelColumn {
		return o.TextColumn + 1
	}
	return o.LabelColumn + 1
}

// Load reads every record of the file at path. Any malformed line aborts the load.
func Load(path string, opts LoadOptions) ([]Record, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrResource, "open dataset %s: %v", path, err)
	}
	defer file.Close()

	records, err := Read(file, opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "load %s", path)
	}
	return records, nil
}

func Read(r io.Reader, opts LoadOptions) ([]Record, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	enc, _ := lookupEncoding(opts.Encoding)
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	records := make([]Record, 0)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
			if opts.HasHeader {
				continue
			}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		record, err := ParseLine(line, lineNo, opts)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(ErrResource, "read dataset at line %d: %v", lineNo+1, err)
	}
	return records, nil
}

// ParseLine converts one delimited line into a Record. lineNo is only used for error reporting.
func ParseLine(line string, lineNo int, opts LoadOptions) (Record, error) {
	fields := strings.Split(line, opts.Delimiter)
	want := opts.columns()

	if len(fields) > want {
		return Record{}, columnCountError(line, lineNo, want, len(fields))
	}
	if len(fields) < want {
		unlabeled := !opts.RequireLabel && len(fields) == opts.TextColumn+1 && opts.LabelColumn > opts.TextColumn
		if !unlabeled {
			return Record{}, columnCountError(line, lineNo, want, len(fields))
		}
		return Unlabeled(fields[opts.TextColumn]), nil
	}

	label, err := ParseLabel(fields[opts.LabelColumn])
	if err != nil {
		return Record{}, &DataFormatError{Line: lineNo, Text: line, Reason: err.Error()}
	}
	return NewRecord(fields[opts.TextColumn], label), nil
}

func columnCountError(line string, lineNo, want, got int) error {
	return &DataFormatError{Line: lineNo, Text: line, Reason: fmt.Sprintf("expected %d columns, got %d", want, got)}
}

// ParseLabel accepts 0/1 and true/false.
func ParseLabel(value string) (bool, error) {
	trimmed := strings.TrimSpace(value)
	switch strings.ToLower(trimmed) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, errors.Errorf("unparseable label %q", trimmed)
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "gbk":
		return simplifiedchinese.GBK, nil
	default:
		return nil, configurationError("unsupported encoding %q", name)
	}
}
