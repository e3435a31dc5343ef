package preprocess

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// english stopwords pruned from the vocabulary before ranking.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true, "has": true,
	"have": true, "he": true, "her": true, "his": true, "i": true, "if": true,
	"in": true, "is": true, "it": true, "its": true, "not": true, "of": true, "on": true, "or": true, "she": true, "that": true,
	"the": true, "their": true, "they": true, "this": true, "to": true,
	"was": true, "we": true, "were": true, "will": true, "with": true,
	"you": true, "your": true,
}

// TfidfVectorizer is a bag-of-n-grams TF-IDF vectorizer with a bounded
// vocabulary, fitted on training text only.
type TfidfVectorizer struct {
	MaxFeatures int
	NGramMin    int
	NGramMax    int
	MinDF       int
	MaxDFRatio  float64

	Vocabulary []string
	IDF        []float64

	index map[string]int
}

// NewTfidfVectorizer returns a vectorizer with the platform defaults:
// unigrams and bigrams, vocabulary capped at 5000 terms, terms kept when
// they appear in at least 2 and at most 95% of training documents.
func NewTfidfVectorizer() *TfidfVectorizer {
	return &TfidfVectorizer{
		MaxFeatures: 5000,
		NGramMin:    1,
		NGramMax:    2,
		MinDF:       2,
		MaxDFRatio:  0.95,
	}
}

func tokenize(doc string) []string {
	doc = strings.ToLower(doc)
	fields := strings.FieldsFunc(doc, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := fields[:0]
	for _, tok := range fields {
		if !stopwords[tok] {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func (v *TfidfVectorizer) ngrams(doc string) []string {
	tokens := tokenize(doc)
	var grams []string
	for n := v.NGramMin; n <= v.NGramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// Fit learns the vocabulary and inverse document frequencies from the
// training documents.
func (v *TfidfVectorizer) Fit(docs []string) {
	df := make(map[string]int)
	totalFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, gram := range v.ngrams(doc) {
			totalFreq[gram]++
			if !seen[gram] {
				seen[gram] = true
				df[gram]++
			}
		}
	}

	maxDF := int(math.Ceil(v.MaxDFRatio * float64(len(docs))))
	var terms []string
	for term, d := range df {
		if d >= v.MinDF && d <= maxDF {
			terms = append(terms, term)
		}
	}
	// Rank by collection frequency, keep the most frequent MaxFeatures.
	sort.Slice(terms, func(i, j int) bool {
		if totalFreq[terms[i]] != totalFreq[terms[j]] {
			return totalFreq[terms[i]] > totalFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	v.Vocabulary = terms
	v.IDF = make([]float64, len(terms))
	v.index = nil
	n := float64(len(docs))
	for i, term := range terms {
		// Smoothed idf, never zero.
		v.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
}

func (v *TfidfVectorizer) termIndex(term string) (int, bool) {
	if v.index == nil {
		v.index = make(map[string]int, len(v.Vocabulary))
		for i, t := range v.Vocabulary {
			v.index[t] = i
		}
	}
	i, ok := v.index[term]
	return i, ok
}

// Transform maps documents onto the fitted vocabulary with l2-normalized
// tf-idf weights.
func (v *TfidfVectorizer) Transform(docs []string) [][]float64 {
	X := make([][]float64, len(docs))
	for d, doc := range docs {
		row := make([]float64, len(v.Vocabulary))
		for _, gram := range v.ngrams(doc) {
			if i, ok := v.termIndex(gram); ok {
				row[i]++
			}
		}
		var norm float64
		for i := range row {
			row[i] *= v.IDF[i]
			norm += row[i] * row[i]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for i := range row {
				row[i] /= norm
			}
		}
		X[d] = row
	}
	return X
}

// FeatureNames returns the vocabulary terms in column order.
func (v *TfidfVectorizer) FeatureNames() []string {
	return v.Vocabulary
}
