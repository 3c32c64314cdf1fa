package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	quizHeadingRE = regexp.MustCompile(`(?i)^\*\*(quiz time!?|test your knowledge[!?]?)\*\*$`)
	headingRE     = regexp.MustCompile(`^\*\*(.+?)\*\*$`)
	questionRE    = regexp.MustCompile(`^\d+\.\s*(.+)$`)
	optionRE      = regexp.MustCompile(`(?i)^([a-z])\)\s*(.+)$`)
	answerRE      = regexp.MustCompile(`(?i)^correct answer:\s*([a-z])$`)
	explanationRE = regexp.MustCompile(`(?i)^explanation:\s*(.+)$`)
)

// Tokenize converts one placeholder-free text fragment into structured blocks.
// Malformed quiz markup never fails: a numbered line whose lookahead cannot
// complete the question contract is demoted to paragraph text.
func Tokenize(fragment string) []Block {
	tk := &tokenizer{lines: strings.Split(fragment, "\n")}
	return tk.run()
}

// tokenizer is a line-cursor state machine. The main loop handles one line at
// a time; question parsing runs a bounded lookahead through collectQuestion
// and only commits the cursor when the question contract holds.
type tokenizer struct {
	lines  []string
	cursor int

	paragraph []string
	blocks    []Block
}

func (tk *tokenizer) run() []Block {
	for tk.cursor < len(tk.lines) {
		line := strings.TrimSpace(tk.lines[tk.cursor])

		switch {
		case line == "":
			tk.flushParagraph()
			tk.cursor++

		case quizHeadingRE.MatchString(line):
			tk.flushParagraph()
			tk.blocks = append(tk.blocks, NewQuizHeading(strings.Trim(line, "*!? ")))
			tk.cursor++

		case questionRE.MatchString(line):
			q, next, ok := tk.collectQuestion(line)
			if ok {
				tk.flushParagraph()
				tk.blocks = append(tk.blocks, q)
				tk.cursor = next
			} else {
				// Contract failed: keep the line as prose and re-evaluate the
				// partially scanned lines on subsequent iterations.
				tk.paragraph = append(tk.paragraph, line)
				tk.cursor++
			}

		case headingRE.MatchString(line):
			tk.flushParagraph()
			tk.blocks = append(tk.blocks, NewHeading(strings.TrimSpace(headingRE.FindStringSubmatch(line)[1])))
			tk.cursor++

		default:
			tk.paragraph = append(tk.paragraph, line)
			tk.cursor++
		}
	}
	tk.flushParagraph()
	return tk.blocks
}

func (tk *tokenizer) flushParagraph() {
	if len(tk.paragraph) == 0 {
		return
	}
	text := strings.TrimSpace(strings.Join(tk.paragraph, "\n"))
	tk.paragraph = tk.paragraph[:0]
	if text == "" {
		return
	}
	tk.blocks = append(tk.blocks, NewParagraph(text))
}

// collectQuestion runs the question lookahead starting at the line after the
// cursor. It returns the assembled question block and the cursor position
// past everything it consumed. ok is false when the contract is not met: no
// options, no correct-answer line, or an answer letter that matches no
// collected option.
func (tk *tokenizer) collectQuestion(questionLine string) (Block, int, bool) {
	questionText := strings.TrimSpace(questionRE.FindStringSubmatch(questionLine)[1])
	if questionText == "" {
		return Block{}, 0, false
	}

	var (
		options  []QuizOption
		idByChar = map[string]string{}
	)

	idx := tk.cursor + 1

	// CollectingOptions: blank lines between options are tolerated, but the
	// blank run trailing the last option is bounded by the answer tolerance.
	blankRun := 0
	for idx < len(tk.lines) {
		line := strings.TrimSpace(tk.lines[idx])
		if line == "" {
			blankRun++
			idx++
			continue
		}
		m := optionRE.FindStringSubmatch(line)
		if m == nil {
			break
		}
		blankRun = 0
		char := strings.ToLower(m[1])
		id := fmt.Sprintf("opt-%s-%s", char, shortID())
		options = append(options, QuizOption{ID: id, Text: strings.TrimSpace(m[2])})
		// Duplicate letters keep every option in output; the answer lookup
		// resolves to the last occurrence.
		idByChar[char] = id
		idx++
	}
	if len(options) == 0 {
		return Block{}, 0, false
	}

	// AwaitingAnswer: at most one blank line before the answer.
	if blankRun > 1 || idx >= len(tk.lines) {
		return Block{}, 0, false
	}
	m := answerRE.FindStringSubmatch(strings.TrimSpace(tk.lines[idx]))
	if m == nil {
		return Block{}, 0, false
	}
	correctID, ok := idByChar[strings.ToLower(m[1])]
	if !ok {
		return Block{}, 0, false
	}
	idx++

	// AwaitingExplanation: optional, same blank-line tolerance.
	explanation := ""
	next := skipOneBlank(tk.lines, idx)
	if next < len(tk.lines) {
		if em := explanationRE.FindStringSubmatch(strings.TrimSpace(tk.lines[next])); em != nil {
			explanation = strings.TrimSpace(em[1])
			idx = next + 1
		}
	}

	return NewMCQ(questionText, options, correctID, explanation), idx, true
}

func skipOneBlank(lines []string, idx int) int {
	if idx < len(lines) && strings.TrimSpace(lines[idx]) == "" && idx+1 < len(lines) {
		return idx + 1
	}
	return idx
}

func shortID() string {
	u := uuid.New()
	return fmt.Sprintf("%x", u[:3])
}
