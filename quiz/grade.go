package quiz

import (
	"strings"

	"github.com/poiesic/vidrag/core"
)

// Mark is the outcome for one question.
type Mark struct {
	Index    int    `json:"index"`
	Given    string `json:"given"`
	Expected string `json:"expected"`
	Correct  bool   `json:"correct"`
}

// Score summarizes a graded quiz.
type Score struct {
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
	Marks   []Mark `json:"marks"`
}

// Grade compares answers to the questions position by position.
// Letters are matched case-insensitively. Missing answers count as wrong.
func Grade(questions []core.QuizQuestion, answers []string) Score {
	score := Score{Total: len(questions), Marks: make([]Mark, len(questions))}
	for i, q := range questions {
		var given string
		if i < len(answers) {
			given = strings.ToUpper(strings.TrimSpace(answers[i]))
		}
		ok := given != "" && given == q.Correct
		if ok {
			score.Correct++
		}
		score.Marks[i] = Mark{Index: i, Given: given, Expected: q.Correct, Correct: ok}
	}
	return score
}
