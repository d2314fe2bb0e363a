package quiz

import (
	"regexp"
	"strings"

	"github.com/poiesic/vidrag/core"
)

// Rejection reasons.
const (
	ReasonNoPrompt        = "no question prompt"
	ReasonTooFewOptions   = "fewer than four options"
	ReasonNoCorrectLetter = "no correct answer letter"
)

var (
	markerPattern  = regexp.MustCompile(`^\s*\d+\.\s`)
	optionPattern  = regexp.MustCompile(`^\s*([A-D])[).]\s*(.*)$`)
	correctPattern = regexp.MustCompile(`([A-D])\)`)
)

// Rejection describes a candidate question that could not be used.
type Rejection struct {
	// Index is the zero-based position of the candidate in the input.
	Index  int    `json:"index"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

// Result holds the questions extracted from a reply and the candidates that were dropped.
type Result struct {
	Questions []core.QuizQuestion `json:"questions"`
	Rejected  []Rejection         `json:"rejected,omitempty"`
}

// Parse extracts numbered multiple-choice questions from free text.
//
// A question starts at a line beginning with a number and a period. Text
// before the first such line is ignored. The first non-empty line is the
// prompt, the first four lines starting with A-D followed by ")" or "." are
// the options, and the first line mentioning "correct" names the answer as
// a letter followed by ")". Duplicate option letters are accepted.
func Parse(text string) Result {
	var result Result
	for i, span := range splitSpans(text) {
		q, reason := parseSpan(span)
		if reason != "" {
			result.Rejected = append(result.Rejected, Rejection{
				Index:  i,
				Raw:    strings.Join(span, "\n"),
				Reason: reason,
			})
			continue
		}
		result.Questions = append(result.Questions, q)
	}
	return result
}

// splitSpans groups lines into candidates, dropping the preamble.
// The numbering marker is stripped from each candidate's first line.
func splitSpans(text string) [][]string {
	var spans [][]string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if loc := markerPattern.FindStringIndex(line); loc != nil {
			spans = append(spans, []string{line[loc[1]:]})
			continue
		}
		if len(spans) == 0 {
			continue
		}
		last := len(spans) - 1
		spans[last] = append(spans[last], line)
	}
	return spans
}

func parseSpan(lines []string) (core.QuizQuestion, string) {
	var q core.QuizQuestion

	promptAt := -1
	for i, line := range lines {
		if s := strings.TrimSpace(line); s != "" {
			q.Prompt = s
			promptAt = i
			break
		}
	}
	if promptAt < 0 {
		return q, ReasonNoPrompt
	}

	found := 0
	for _, line := range lines[promptAt+1:] {
		m := optionPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		q.Options[found] = strings.TrimSpace(m[2])
		found++
		if found == len(q.Options) {
			break
		}
	}
	if found < len(q.Options) {
		return q, ReasonTooFewOptions
	}

	for _, line := range lines {
		if !strings.Contains(strings.ToLower(line), "correct") {
			continue
		}
		if m := correctPattern.FindStringSubmatch(line); m != nil {
			q.Correct = m[1]
		}
		break
	}
	if q.Correct == "" {
		return q, ReasonNoCorrectLetter
	}

	return q, ""
}
