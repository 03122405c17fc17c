package data

// Record is one row of the sentiment dataset. Label is nil for inference-only input.
type Record struct {
	Text  string
	Label *bool
}

func NewRecord(text string, label bool) Record {
	return Record{Text: text, Label: &label}
}

func Unlabeled(text string) Record {
	return Record{Text: text}
}

// Labeled returns the label and whether the record carries one.
func (r Record) Labeled() (bool, bool) {
	if r.Label == nil {
		return false, false
	}
	return *r.Label, true
}

// Summary counts records by label.
type Summary struct {
	Total     int `json:"total"`
	Positive  int `json:"positive"`
	Negative  int `json:"negative"`
	Unlabeled int `json:"unlabeled"`
}

func Stats(records []Record) Summary {
	summary := Summary{Total: len(records)}
	for _, record := range records {
		label, ok := record.Labeled()
		switch {
		case !ok:
			summary.Unlabeled++
		case label:
			summary.Positive++
		default:
			summary.Negative++
		}
	}
	return summary
}

// Texts returns the text column in input order.
func Texts(records []Record) []string {
	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.Text
	}
	return texts
}
