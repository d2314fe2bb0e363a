package quiz

import (
	"testing"

	"github.com/poiesic/vidrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleQuestion(t *testing.T) {
	result := Parse("1. Q?\nA) x\nB) y\nC) z\nD) w\nCorrect answer: B)\n")

	require.Len(t, result.Questions, 1)
	assert.Empty(t, result.Rejected)
	q := result.Questions[0]
	assert.Equal(t, "Q?", q.Prompt)
	assert.Equal(t, [4]string{"x", "y", "z", "w"}, q.Options)
	assert.Equal(t, "B", q.Correct)
	assert.Equal(t, "y", q.CorrectOption())
}

func TestParse_ThreeOptionsRejected(t *testing.T) {
	result := Parse("1. Q?\nA) x\nB) y\nC) z\nCorrect answer: B)\n")

	assert.Empty(t, result.Questions)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, ReasonTooFewOptions, result.Rejected[0].Reason)
	assert.Equal(t, 0, result.Rejected[0].Index)
}

func TestParse_MixedBatch(t *testing.T) {
	text := `Here is your quiz:

1. What is the capital of France?
A) Berlin
B) Paris
C) Rome
D) Madrid
Correct answer: B) Paris

2.  What colour is the sky?
A. Green
B. Blue
C. Red
D. Yellow
Correct: B

3. Which planet is largest?
   A) Mars
   B) Venus
   C) Jupiter
   D) Mercury
   The correct answer is C) Jupiter.
`
	result := Parse(text)

	require.Len(t, result.Questions, 2)
	assert.Equal(t, "What is the capital of France?", result.Questions[0].Prompt)
	assert.Equal(t, "B", result.Questions[0].Correct)
	assert.Equal(t, "Which planet is largest?", result.Questions[1].Prompt)
	assert.Equal(t, [4]string{"Mars", "Venus", "Jupiter", "Mercury"}, result.Questions[1].Options)
	assert.Equal(t, "C", result.Questions[1].Correct)

	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 1, result.Rejected[0].Index)
	assert.Equal(t, ReasonNoCorrectLetter, result.Rejected[0].Reason)
	assert.Contains(t, result.Rejected[0].Raw, "What colour is the sky?")
}

func TestParse_EdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		questions int
		reason    string
	}{
		{
			name:   "no correct line",
			text:   "1. Q?\nA) a\nB) b\nC) c\nD) d\n",
			reason: ReasonNoCorrectLetter,
		},
		{
			name:   "correct letter without parenthesis",
			text:   "1. Q?\nA) a\nB) b\nC) c\nD) d\nCorrect answer: C.\n",
			reason: ReasonNoCorrectLetter,
		},
		{
			name:      "uppercase correct keyword",
			text:      "1. Q?\nA) a\nB) b\nC) c\nD) d\nCORRECT: D)\n",
			questions: 1,
		},
		{
			name:      "trailing content ignored",
			text:      "1. Q?\nA) a\nB) b\nC) c\nD) d\nE) e\nAnswer explanation follows.\nCorrect answer: A)\nSome closing remark.",
			questions: 1,
		},
		{
			name:      "duplicate letters accepted",
			text:      "1. Q?\nA) a\nA) b\nB) c\nB) d\nCorrect answer: A)\n",
			questions: 1,
		},
		{
			name: "only a preamble",
			text: "I could not generate a quiz for this transcript.",
		},
		{
			name: "empty",
			text: "",
		},
		{
			name:   "blank prompt",
			text:   "1. \n\n",
			reason: ReasonNoPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.text)
			assert.Len(t, result.Questions, tt.questions)
			if tt.reason != "" {
				require.Len(t, result.Rejected, 1)
				assert.Equal(t, tt.reason, result.Rejected[0].Reason)
			}
		})
	}
}

func TestParse_FirstFourOptionsKept(t *testing.T) {
	result := Parse("1. Q?\nA) a\nB) b\nC) c\nD) d\nD) extra\nCorrect answer: D)\n")

	require.Len(t, result.Questions, 1)
	assert.Equal(t, [4]string{"a", "b", "c", "d"}, result.Questions[0].Options)
}

func TestParse_WindowsLineEndings(t *testing.T) {
	result := Parse("1. Q?\r\nA) a\r\nB) b\r\nC) c\r\nD) d\r\nCorrect answer: A)\r\n")

	require.Len(t, result.Questions, 1)
	assert.Equal(t, "a", result.Questions[0].Options[0])
}

func TestGrade(t *testing.T) {
	questions := []core.QuizQuestion{
		{Prompt: "one", Options: [4]string{"a", "b", "c", "d"}, Correct: "A"},
		{Prompt: "two", Options: [4]string{"a", "b", "c", "d"}, Correct: "C"},
		{Prompt: "three", Options: [4]string{"a", "b", "c", "d"}, Correct: "D"},
	}

	score := Grade(questions, []string{"a", " B "})

	assert.Equal(t, 3, score.Total)
	assert.Equal(t, 1, score.Correct)
	require.Len(t, score.Marks, 3)
	assert.True(t, score.Marks[0].Correct)
	assert.Equal(t, "B", score.Marks[1].Given)
	assert.Equal(t, "C", score.Marks[1].Expected)
	assert.False(t, score.Marks[2].Correct)
	assert.Empty(t, score.Marks[2].Given)
}
