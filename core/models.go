package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Namespace is the canonical partition key isolating one video's indexed content.
// Use Normalize to derive one from a title.
type Namespace string

// String returns the namespace as a plain string.
func (n Namespace) String() string {
	return string(n)
}

// VideoMetadata describes the source video of a transcript.
// All fields are optional.
type VideoMetadata struct {
	Title       string        `json:"title,omitempty" toml:"title"`
	Description string        `json:"description,omitempty" toml:"description"`
	Uploader    string        `json:"uploader,omitempty" toml:"uploader"`
	UploadDate  string        `json:"upload_date,omitempty" toml:"upload_date"`
	Duration    time.Duration `json:"duration,omitempty" toml:"duration"`
	ViewCount   int64         `json:"view_count,omitempty" toml:"view_count"`
	LikeCount   int64         `json:"like_count,omitempty" toml:"like_count"`
	Categories  []string      `json:"categories,omitempty" toml:"categories"`
	Tags        []string      `json:"tags,omitempty" toml:"tags"`
	URL         string        `json:"url,omitempty" toml:"url"`
}

// Transcript is the raw text of a video plus its source title.
// A transcript is immutable once created; re-ingesting the same title replaces it.
type Transcript struct {
	Namespace   Namespace
	Title       string
	Text        string
	Fingerprint ID // IDFromContent(Text)
	Metadata    *VideoMetadata
	CreatedAt   time.Time
}

// NewTranscript builds a Transcript, deriving the namespace and fingerprint.
func NewTranscript(title, text string) *Transcript {
	return &Transcript{
		Namespace:   Normalize(title),
		Title:       title,
		Text:        text,
		Fingerprint: IDFromContent(text),
		CreatedAt:   time.Now().UTC(),
	}
}

// Chunk is a contiguous span of a transcript.
// Start and End are rune offsets into the transcript text.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// ChunkID returns the vector id used for the chunk at index i.
func ChunkID(i int) string {
	return fmt.Sprintf("chunk-%d", i)
}

// VectorRecord is one embedded chunk stored under (namespace, ID).
type VectorRecord struct {
	ID     string
	Vector []float32
	Text   string
}

// Match is a VectorRecord returned from a similarity query.
type Match struct {
	ID    string
	Text  string
	Score float32
}

// Option letters, in order.
var OptionLetters = [4]string{"A", "B", "C", "D"}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Prompt  string    `json:"question"`
	Options [4]string `json:"options"`
	Correct string    `json:"correct"`
}

// CorrectOption returns the text of the correct option, or "" if Correct is invalid.
func (q *QuizQuestion) CorrectOption() string {
	for i, l := range OptionLetters {
		if l == q.Correct {
			return q.Options[i]
		}
	}
	return ""
}

// Turn is one question and answer exchange in a conversation.
type Turn struct {
	Question string
	Answer   string
}

// Session names the namespace produced by an ingestion run.
// It is passed explicitly to every downstream consumer.
type Session struct {
	Namespace  Namespace
	Title      string
	ChunkCount int
	IngestedAt time.Time
}
