package content

import "github.com/google/uuid"

// BlockType discriminates the ContentBlock union.
type BlockType string

const (
	BlockHeading     BlockType = "heading"
	BlockParagraph   BlockType = "paragraph"
	BlockImage       BlockType = "image"
	BlockError       BlockType = "error"
	BlockQuizHeading BlockType = "quizHeading"
	BlockMCQ         BlockType = "multipleChoiceQuestion"
)

// QuizOption is one answer choice of a multiple-choice question. IDs are
// synthetic and unique per question; ordering is the encounter order in the
// source text.
type QuizOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Block is one structural unit of a rendered document. The ID addresses the
// block client-side; ordering is positional in the containing slice.
type Block struct {
	ID      string    `json:"id"`
	Type    BlockType `json:"type"`
	Content string    `json:"content,omitempty"`

	// Image blocks.
	URL string `json:"url,omitempty"`
	Alt string `json:"alt,omitempty"`

	// Multiple-choice question blocks.
	Options         []QuizOption `json:"options,omitempty"`
	CorrectAnswerID string       `json:"correctAnswerID,omitempty"`
	Explanation     string       `json:"explanation,omitempty"`
}

func NewHeading(text string) Block {
	return Block{ID: uuid.NewString(), Type: BlockHeading, Content: text}
}

func NewParagraph(text string) Block {
	return Block{ID: uuid.NewString(), Type: BlockParagraph, Content: text}
}

func NewImage(url, alt string) Block {
	return Block{ID: uuid.NewString(), Type: BlockImage, URL: url, Alt: alt}
}

func NewError(message string) Block {
	return Block{ID: uuid.NewString(), Type: BlockError, Content: message}
}

func NewQuizHeading(text string) Block {
	return Block{ID: uuid.NewString(), Type: BlockQuizHeading, Content: text}
}

func NewMCQ(question string, options []QuizOption, correctID, explanation string) Block {
	return Block{
		ID:              uuid.NewString(),
		Type:            BlockMCQ,
		Content:         question,
		Options:         options,
		CorrectAnswerID: correctID,
		Explanation:     explanation,
	}
}
