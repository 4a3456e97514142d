package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// Two independent cleaners live here. CleanResume feeds the category
// classifier and keeps the original word forms; NormalizeForEmbedding feeds
// the embedding model and reduces text to lowercase content words. They are
// not interchangeable.

var (
	urlPattern         = regexp.MustCompile(`http\S+\s*`)
	retweetCCPattern   = regexp.MustCompile(`RT|cc`)
	hashtagPattern     = regexp.MustCompile(`#\S+`)
	mentionPattern     = regexp.MustCompile(`@\S+`)
	punctuationPattern = regexp.MustCompile("[!\"#$%&'()*+,\\-./:;<=>?@\\[\\]^_`{|}~]")
	nonASCIIPattern    = regexp.MustCompile(`[^\x00-\x7f]`)
	whitespacePattern  = regexp.MustCompile(`[\t\n\v\f\r \x1c-\x1f]+`)
)

// extraStopWords completes bleve's English list to NLTK's english corpus,
// including the contraction stems left behind once apostrophes are stripped.
var extraStopWords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves",
	"you", "your", "yours", "yourself", "yourselves",
	"he", "him", "his", "himself", "she", "her", "hers", "herself",
	"it", "its", "itself", "they", "them", "their", "theirs", "themselves",
	"what", "which", "who", "whom", "this", "that", "these", "those",
	"am", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "having", "do", "does", "did", "doing",
	"a", "an", "the", "and", "but", "if", "or", "because", "as", "until", "while",
	"of", "at", "by", "for", "with", "about", "against", "between", "into",
	"through", "during", "before", "after", "above", "below", "to", "from",
	"up", "down", "in", "out", "on", "off", "over", "under",
	"again", "further", "then", "once", "here", "there", "when", "where",
	"why", "how", "all", "any", "both", "each", "few", "more", "most",
	"other", "some", "such", "no", "nor", "not", "only", "own", "same",
	"so", "than", "too", "very", "s", "t", "can", "will", "just", "don",
	"should", "now", "d", "ll", "m", "o", "re", "ve", "y", "ain",
	"aren", "couldn", "didn", "doesn", "hadn", "hasn", "haven", "isn",
	"ma", "mightn", "mustn", "needn", "shan", "shouldn", "wasn", "weren",
	"won", "wouldn",
}

// CleanResume prepares resume text for the category classifier. Steps run
// in a fixed order: URLs, "RT"/"cc", hashtags, mentions, punctuation,
// non-ASCII, whitespace runs.
func CleanResume(text string) string {
	text = urlPattern.ReplaceAllString(text, " ")
	text = retweetCCPattern.ReplaceAllString(text, " ")
	text = hashtagPattern.ReplaceAllString(text, "")
	text = mentionPattern.ReplaceAllString(text, "  ")
	text = punctuationPattern.ReplaceAllString(text, " ")
	text = nonASCIIPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return text
}

// Normalizer produces the embedding-model input from raw document text.
type Normalizer struct {
	tokenizer *bleveunicode.UnicodeTokenizer
	stopWords analysis.TokenMap
}

func NewNormalizer() (*Normalizer, error) {
	stopWords := analysis.NewTokenMap()
	if err := stopWords.LoadBytes(en.EnglishStopWords); err != nil {
		return nil, err
	}
	for _, word := range extraStopWords {
		stopWords.AddToken(word)
	}

	return &Normalizer{
		tokenizer: bleveunicode.NewUnicodeTokenizer(),
		stopWords: stopWords,
	}, nil
}

// NormalizeForEmbedding tokenizes, lowercases, strips ASCII punctuation,
// keeps alphabetic tokens only, drops English stopwords and joins the rest
// with single spaces. Applying it twice gives the same result as once.
func (n *Normalizer) NormalizeForEmbedding(text string) string {
	// extracted text sometimes carries escaped newlines
	text = strings.ReplaceAll(text, `\n`, " ")

	tokens := n.tokenizer.Tokenize([]byte(text))
	words := make([]string, 0, len(tokens))

	for _, token := range tokens {
		word := strings.ToLower(string(token.Term))
		word = strings.Map(dropASCIIPunctuation, word)
		if !isAlpha(word) {
			continue
		}
		if _, stop := n.stopWords[word]; stop {
			continue
		}
		words = append(words, word)
	}

	return strings.Join(words, " ")
}

func dropASCIIPunctuation(r rune) rune {
	if r <= unicode.MaxASCII && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
		return -1
	}
	return r
}

func isAlpha(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
