package keywords

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// English stop words removed before candidates are formed.
var stopWords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true, "all": true,
	"also": true, "am": true, "an": true, "and": true, "any": true, "are": true,
	"as": true, "at": true, "be": true, "because": true, "been": true, "before": true,
	"being": true, "between": true, "both": true, "but": true, "by": true, "can": true,
	"could": true, "did": true, "do": true, "does": true, "doing": true, "don": true,
	"down": true, "during": true, "each": true, "even": true, "few": true, "for": true,
	"from": true, "further": true, "get": true, "go": true, "going": true, "got": true,
	"had": true, "has": true, "have": true, "having": true, "he": true, "her": true,
	"here": true, "hers": true, "him": true, "his": true, "how": true, "if": true,
	"in": true, "into": true, "is": true, "it": true, "its": true, "just": true,
	"know": true, "like": true, "ll": true, "me": true, "more": true, "most": true,
	"my": true, "no": true, "nor": true, "not": true, "now": true, "of": true,
	"off": true, "ok": true, "okay": true, "on": true, "once": true, "one": true,
	"only": true, "or": true, "other": true, "our": true, "out": true, "over": true,
	"own": true, "re": true, "really": true, "right": true, "same": true, "she": true,
	"should": true, "so": true, "some": true, "such": true, "than": true, "that": true,
	"the": true, "their": true, "them": true, "then": true, "there": true, "these": true,
	"they": true, "thing": true, "things": true, "think": true, "this": true, "those": true,
	"through": true, "to": true, "too": true, "uh": true, "um": true, "under": true,
	"until": true, "up": true, "us": true, "ve": true, "very": true, "want": true,
	"was": true, "way": true, "we": true, "well": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "while": true, "who": true, "whom": true,
	"why": true, "will": true, "with": true, "would": true, "yeah": true, "you": true,
	"your": true, "yours": true,
}

// tokenize splits text into lowercase words of two or more letters or digits.
// Stop words are replaced by "" so callers can tell where phrases break.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, word := range words {
		if utf8.RuneCountInString(word) < 2 || stopWords[word] {
			words[i] = ""
		}
	}
	return words
}

// candidate is a keyword phrase and how often it occurs.
type candidate struct {
	term  string
	count int
}

// candidates collects words and adjacent word pairs that contain no stop word,
// most frequent first. Ties keep the order of first appearance.
func candidates(text string, limit int) []string {
	tokens := tokenize(text)
	seen := make(map[string]*candidate)
	var order []*candidate

	add := func(term string) {
		if c, ok := seen[term]; ok {
			c.count++
			return
		}
		c := &candidate{term: term, count: 1}
		seen[term] = c
		order = append(order, c)
	}

	for i, tok := range tokens {
		if tok == "" {
			continue
		}
		add(tok)
		if i+1 < len(tokens) && tokens[i+1] != "" {
			add(tok + " " + tokens[i+1])
		}
	}

	slices.SortStableFunc(order, func(a, b *candidate) int {
		return b.count - a.count
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	terms := make([]string, len(order))
	for i, c := range order {
		terms[i] = c.term
	}
	return terms
}

// collapseSpace joins all whitespace runs into single spaces.
func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
