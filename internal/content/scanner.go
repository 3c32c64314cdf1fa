package content

import (
	"regexp"
	"strings"
)

// PlaceholderKind distinguishes the two inline image directives.
type PlaceholderKind string

const (
	PlaceholderImage  PlaceholderKind = "image"
	PlaceholderGhibli PlaceholderKind = "ghibliImage"
)

// Fragment is one span of the scanned document: either literal text or a
// recognized placeholder. Fragments cover the input in order with no gaps.
type Fragment struct {
	Kind   PlaceholderKind // empty for text fragments
	Text   string          // literal content for text fragments
	Prompt string          // extracted prompt for placeholder fragments
	Start  int             // byte offsets into the scanned text
	End    int
}

func (f Fragment) IsText() bool { return f.Kind == "" }

var (
	ghibliRE = regexp.MustCompile(`(?i)^\[GhibliImage:\s*(.*?)\s*\]\n?`)
	imageRE  = regexp.MustCompile(`(?i)\[Image:\s*(.*?)\s*\]`)
)

// Scan splits raw model output into an ordered fragment sequence.
//
// A [GhibliImage: ...] directive is honored only when it is the first
// non-whitespace content of the document; it is emitted as a leading
// placeholder and stripped before regular scanning. Any later occurrence is
// not a placeholder and passes through as literal text. [Image: ...]
// directives are recognized anywhere, case-insensitively, up to the first
// closing bracket.
func Scan(text string) []Fragment {
	var frags []Fragment

	rest := text
	offset := 0
	leading := len(text) - len(strings.TrimLeft(text, " \t\r\n"))
	if m := ghibliRE.FindStringSubmatchIndex(text[leading:]); m != nil && m[0] == 0 {
		if leading > 0 {
			frags = append(frags, Fragment{Text: text[:leading], Start: 0, End: leading})
		}
		start := leading + m[0]
		end := leading + m[1]
		frags = append(frags, Fragment{
			Kind:   PlaceholderGhibli,
			Prompt: text[leading+m[2] : leading+m[3]],
			Start:  start,
			End:    end,
		})
		rest = text[end:]
		offset = end
	}

	last := 0
	for _, m := range imageRE.FindAllStringSubmatchIndex(rest, -1) {
		if m[0] > last {
			frags = append(frags, Fragment{
				Text:  rest[last:m[0]],
				Start: offset + last,
				End:   offset + m[0],
			})
		}
		frags = append(frags, Fragment{
			Kind:   PlaceholderImage,
			Prompt: strings.TrimSpace(rest[m[2]:m[3]]),
			Start:  offset + m[0],
			End:    offset + m[1],
		})
		last = m[1]
	}
	if last < len(rest) {
		frags = append(frags, Fragment{
			Text:  rest[last:],
			Start: offset + last,
			End:   offset + len(rest),
		})
	}
	return frags
}
