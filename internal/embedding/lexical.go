package embedding

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexical is the TF-IDF embedder. Vectors are relative to the batch they were
// computed in: vectors from different calls are not comparable.
type Lexical struct{}

func NewLexical() *Lexical { return &Lexical{} }

func (*Lexical) Method() string { return MethodTFIDF }

func (*Lexical) Embed(_ context.Context, texts []string) (*Result, error) {
	return &Result{Vectors: TFIDF(texts), Method: MethodTFIDF}, nil
}

// Tokenize lowercases text, strips non-word characters and drops tokens of
// two characters or fewer.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, text)

	fields := strings.Fields(cleaned)
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// TFIDF returns one vector per text over the batch vocabulary in sorted
// token order. Weights are raw term count times ln(N/df); a token present in
// every text therefore weighs 0. An empty vocabulary yields empty vectors.
func TFIDF(texts []string) [][]float64 {
	if len(texts) == 0 {
		return nil
	}
	v, docs := buildVocabulary(texts)
	vectors := make([][]float64, len(docs))
	for i, tokens := range docs {
		vectors[i] = v.weigh(tokens)
	}
	return vectors
}

// Vocabulary is the token index and IDF weights of one TF-IDF batch.
type Vocabulary struct {
	index map[string]int
	idf   []float64
}

// NewVocabulary builds the vocabulary of texts as TFIDF would.
func NewVocabulary(texts []string) *Vocabulary {
	v, _ := buildVocabulary(texts)
	return v
}

// Size is the vector dimension.
func (v *Vocabulary) Size() int { return len(v.idf) }

// Vector weighs text against the batch vocabulary. Tokens outside it are
// ignored, so the result is comparable with the batch's own vectors.
func (v *Vocabulary) Vector(text string) []float64 {
	return v.weigh(Tokenize(text))
}

func (v *Vocabulary) weigh(tokens []string) []float64 {
	vec := make([]float64, len(v.idf))
	for _, tok := range tokens {
		if j, ok := v.index[tok]; ok {
			vec[j]++
		}
	}
	for j := range vec {
		vec[j] *= v.idf[j]
	}
	return vec
}

func buildVocabulary(texts []string) (*Vocabulary, [][]string) {
	docs := make([][]string, len(texts))
	df := make(map[string]int)
	for i, t := range texts {
		docs[i] = Tokenize(t)
		seen := make(map[string]struct{}, len(docs[i]))
		for _, tok := range docs[i] {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	vocab := make([]string, 0, len(df))
	for tok := range df {
		vocab = append(vocab, tok)
	}
	sort.Strings(vocab)

	v := &Vocabulary{index: make(map[string]int, len(vocab)), idf: make([]float64, len(vocab))}
	n := float64(len(texts))
	for i, tok := range vocab {
		v.index[tok] = i
		v.idf[i] = math.Log(n / float64(df[tok]))
	}
	return v, docs
}
