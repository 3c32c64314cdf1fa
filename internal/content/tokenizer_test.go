package content

import (
	"strings"
	"testing"
)

func TestTokenizeHeadingsAndParagraphs(t *testing.T) {
	blocks := Tokenize("**Photosynthesis**\nPlants make food from light.\nIt happens in leaves.\n\nA second paragraph.")
	if len(blocks) != 3 {
		t.Fatalf("block count: want=3 got=%d", len(blocks))
	}
	if blocks[0].Type != BlockHeading || blocks[0].Content != "Photosynthesis" {
		t.Fatalf("heading: %+v", blocks[0])
	}
	if blocks[1].Type != BlockParagraph || !strings.Contains(blocks[1].Content, "It happens in leaves.") {
		t.Fatalf("paragraph: %+v", blocks[1])
	}
	if blocks[2].Type != BlockParagraph || blocks[2].Content != "A second paragraph." {
		t.Fatalf("second paragraph: %+v", blocks[2])
	}
}

func TestTokenizeWellFormedQuestion(t *testing.T) {
	input := strings.Join([]string{
		"**Quiz Time!**",
		"1. What do plants need?",
		"a) Light",
		"b) Darkness",
		"Correct Answer: a",
		"Explanation: Light drives photosynthesis.",
	}, "\n")

	blocks := Tokenize(input)
	if len(blocks) != 2 {
		t.Fatalf("block count: want=2 got=%d", len(blocks))
	}
	if blocks[0].Type != BlockQuizHeading {
		t.Fatalf("first block type: got=%q", blocks[0].Type)
	}
	q := blocks[1]
	if q.Type != BlockMCQ {
		t.Fatalf("second block type: got=%q", q.Type)
	}
	if q.Content != "What do plants need?" {
		t.Fatalf("question text: got=%q", q.Content)
	}
	if len(q.Options) != 2 {
		t.Fatalf("option count: want=2 got=%d", len(q.Options))
	}
	if q.CorrectAnswerID != q.Options[0].ID {
		t.Fatalf("correct answer id: want=%q got=%q", q.Options[0].ID, q.CorrectAnswerID)
	}
	if q.Explanation != "Light drives photosynthesis." {
		t.Fatalf("explanation: got=%q", q.Explanation)
	}
}

func TestTokenizeQuestionWithoutAnswerDemotesToParagraph(t *testing.T) {
	input := strings.Join([]string{
		"1. What do plants need?",
		"a) Light",
		"b) Darkness",
		"Just some trailing prose.",
	}, "\n")

	blocks := Tokenize(input)
	for _, b := range blocks {
		if b.Type == BlockMCQ {
			t.Fatal("question without an answer line must not produce an MCQ block")
		}
	}
	joined := ""
	for _, b := range blocks {
		joined += b.Content + "\n"
	}
	if !strings.Contains(joined, "What do plants need?") {
		t.Fatalf("demoted question text lost: %q", joined)
	}
}

func TestTokenizeAnswerLetterMatchingNoOptionFails(t *testing.T) {
	input := strings.Join([]string{
		"1. Pick one.",
		"a) First",
		"b) Second",
		"Correct Answer: c",
	}, "\n")

	for _, b := range Tokenize(input) {
		if b.Type == BlockMCQ {
			t.Fatal("answer letter with no matching option must demote the question")
		}
	}
}

func TestTokenizeToleratesOneBlankBeforeAnswer(t *testing.T) {
	input := strings.Join([]string{
		"1. Pick one.",
		"a) First",
		"b) Second",
		"",
		"Correct Answer: b",
	}, "\n")

	blocks := Tokenize(input)
	if len(blocks) != 1 || blocks[0].Type != BlockMCQ {
		t.Fatalf("expected a single MCQ block, got %+v", blocks)
	}
	if blocks[0].CorrectAnswerID != blocks[0].Options[1].ID {
		t.Fatal("correct answer must resolve to option b")
	}
}

func TestTokenizeTwoBlanksBeforeAnswerDemotes(t *testing.T) {
	input := strings.Join([]string{
		"1. Pick one.",
		"a) First",
		"",
		"",
		"Correct Answer: a",
	}, "\n")

	for _, b := range Tokenize(input) {
		if b.Type == BlockMCQ {
			t.Fatal("two blank lines before the answer must demote the question")
		}
	}
}

func TestTokenizeBlanksBetweenOptionsStillParse(t *testing.T) {
	input := strings.Join([]string{
		"1. Pick one.",
		"a) First",
		"",
		"",
		"b) Second",
		"",
		"Correct Answer: b",
	}, "\n")

	blocks := Tokenize(input)
	if len(blocks) != 1 || blocks[0].Type != BlockMCQ {
		t.Fatalf("expected a single MCQ block, got %+v", blocks)
	}
	if blocks[0].CorrectAnswerID != blocks[0].Options[1].ID {
		t.Fatal("correct answer must resolve to option b")
	}
}

func TestTokenizeDuplicateOptionLettersKeepAllResolveLast(t *testing.T) {
	input := strings.Join([]string{
		"1. Pick one.",
		"a) First",
		"a) Repeat",
		"b) Other",
		"Correct Answer: a",
	}, "\n")

	blocks := Tokenize(input)
	if len(blocks) != 1 || blocks[0].Type != BlockMCQ {
		t.Fatalf("expected a single MCQ block, got %+v", blocks)
	}
	q := blocks[0]
	if len(q.Options) != 3 {
		t.Fatalf("option count: want=3 got=%d", len(q.Options))
	}
	if q.CorrectAnswerID != q.Options[1].ID {
		t.Fatal("duplicate letter must resolve to the last occurrence")
	}
}

func TestTokenizeQuizHeadingVariants(t *testing.T) {
	for _, heading := range []string{"**Quiz Time!**", "**quiz time**", "**Test Your Knowledge!**"} {
		blocks := Tokenize(heading)
		if len(blocks) != 1 || blocks[0].Type != BlockQuizHeading {
			t.Fatalf("%q: expected a quiz heading block, got %+v", heading, blocks)
		}
	}
}

func TestTokenizeExplanationIsOptional(t *testing.T) {
	input := strings.Join([]string{
		"1. Pick one.",
		"a) First",
		"b) Second",
		"Correct Answer: b",
		"",
		"Next paragraph.",
	}, "\n")

	blocks := Tokenize(input)
	if len(blocks) != 2 {
		t.Fatalf("block count: want=2 got=%d", len(blocks))
	}
	if blocks[0].Type != BlockMCQ || blocks[0].Explanation != "" {
		t.Fatalf("first block: %+v", blocks[0])
	}
	if blocks[1].Type != BlockParagraph || blocks[1].Content != "Next paragraph." {
		t.Fatalf("second block: %+v", blocks[1])
	}
}
