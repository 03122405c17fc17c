package ml

import (
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

type FeaturizerOptions struct {
	HashBits   int `json:"hash_bits" yaml:"hash_bits"`
	WordNgrams int `json:"word_ngrams" yaml:"word_ngrams"`
	CharNgrams int `json:"char_ngrams" yaml:"char_ngrams"`
}

func DefaultFeaturizerOptions() FeaturizerOptions {
	return FeaturizerOptions{
		HashBits:   16,
		WordNgrams: 2,
		CharNgrams: 3,
	}
}

// TextFeaturizer maps text to L2 normalized counts of hashed word and
// character n-grams. It holds no mutable state and is safe for concurrent use.
type TextFeaturizer struct {
	opts FeaturizerOptions
	dim  int
}

func NewTextFeaturizer(opts FeaturizerOptions) (*TextFeaturizer, error) {
	if opts.HashBits < 8 || opts.HashBits > 24 {
		return nil, errors.Errorf("hash bits must be in [8,24], got %d", opts.HashBits)
	}
	if opts.WordNgrams < 1 || opts.WordNgrams > 3 {
		return nil, errors.Errorf("word n-gram length must be in [1,3], got %d", opts.WordNgrams)
	}
	if opts.CharNgrams < 0 || opts.CharNgrams > 5 {
		return nil, errors.Errorf("char n-gram length must be in [0,5], got %d", opts.CharNgrams)
	}
	return &TextFeaturizer{opts: opts, dim: 1 << opts.HashBits}, nil
}

func (f *TextFeaturizer) Options() FeaturizerOptions {
	return f.opts
}

func (f *TextFeaturizer) Dim() int {
	return f.dim
}

func (f *TextFeaturizer) Featurize(text string) SparseVector {
	normalized := NormalizeText(text)
	tokens := Tokenize(normalized)
	counts := make(map[int]float64)

	for n := 1; n <= f.opts.WordNgrams; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			counts[f.bucket(byte('w'+n), strings.Join(tokens[i:i+n], " "))]++
		}
	}

	if f.opts.CharNgrams > 0 && len(tokens) > 0 {
		padded := []rune(" " + strings.Join(tokens, " ") + " ")
		n := f.opts.CharNgrams
		for i := 0; i+n <= len(padded); i++ {
			counts[f.bucket('c', string(padded[i:i+n]))]++
		}
	}

	vector := newSparseVector(counts, f.dim)
	vector.NormalizeL2()
	return vector
}

func (f *TextFeaturizer) bucket(namespace byte, gram string) int {
	h := fnv.New32a()
	h.Write([]byte{namespace})
	h.Write([]byte(gram))
	return int(h.Sum32() & uint32(f.dim-1))
}

// NormalizeText applies NFKC normalization and Unicode case folding.
func NormalizeText(text string) string {
	return cases.Fold().String(norm.NFKC.String(text))
}

// Tokenize splits normalized text into runs of letters, digits and apostrophes.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'')
	})
}
