package recovery

import (
	"fmt"
	"strings"
	"testing"
)

type card struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

func cardValid(c card) bool { return c.Front != "" && c.Back != "" }

func synthCard(i int) card {
	return card{Front: fmt.Sprintf("Card %d", i+1), Back: "Content unavailable"}
}

func TestArrayParsesFencedJSON(t *testing.T) {
	raw := "```json\n[{\"front\":\"Q1\",\"back\":\"A1\"},{\"front\":\"Q2\",\"back\":\"A2\"}]\n```"
	res := Array(raw, ArraySpec[card]{Valid: cardValid, Min: 1, Synthesize: synthCard})
	if res.Tier != TierParsed {
		t.Fatalf("tier = %q, want %q", res.Tier, TierParsed)
	}
	if len(res.Value) != 2 || res.Value[0].Front != "Q1" || res.Value[1].Back != "A2" {
		t.Fatalf("unexpected value: %+v", res.Value)
	}
	if res.Dropped != 0 {
		t.Fatalf("dropped = %d, want 0", res.Dropped)
	}
}

func TestArrayIgnoresSurroundingProse(t *testing.T) {
	raw := "Sure! Here are your flashcards:\n[{\"front\":\"Q\",\"back\":\"A\"}]\nLet me know if you need more."
	res := Array(raw, ArraySpec[card]{Valid: cardValid})
	if res.Tier != TierParsed {
		t.Fatalf("tier = %q, want %q", res.Tier, TierParsed)
	}
	if len(res.Value) != 1 || res.Value[0].Front != "Q" {
		t.Fatalf("unexpected value: %+v", res.Value)
	}
}

func TestArrayRecoversTruncatedTail(t *testing.T) {
	raw := `[{"front":"Q1","back":"A1"},{"front":"Q2","back":"A2"},{"front":"Q3","ba`
	res := Array(raw, ArraySpec[card]{Valid: cardValid, Min: 1, Synthesize: synthCard})
	if res.Tier != TierPartiallyRecovered {
		t.Fatalf("tier = %q, want %q", res.Tier, TierPartiallyRecovered)
	}
	if len(res.Value) != 2 {
		t.Fatalf("len = %d, want 2; value: %+v", len(res.Value), res.Value)
	}
	if res.Value[1].Front != "Q2" {
		t.Fatalf("unexpected second element: %+v", res.Value[1])
	}
}

func TestArraySalvagesObjectsOutsideJSONSlice(t *testing.T) {
	raw := "[]\nActually, here it is: {\"front\":\"Q1\",\"back\":\"A1\"}"
	res := Array(raw, ArraySpec[card]{Valid: cardValid, Min: 1, Synthesize: synthCard})
	if res.Tier != TierPartiallyRecovered {
		t.Fatalf("tier = %q, want %q", res.Tier, TierPartiallyRecovered)
	}
	if len(res.Value) != 1 || res.Value[0].Front != "Q1" {
		t.Fatalf("unexpected value: %+v", res.Value)
	}
}

func TestArrayDropsInvalidElements(t *testing.T) {
	raw := `[{"front":"Q1","back":"A1"},{"front":"","back":"A2"}]`
	res := Array(raw, ArraySpec[card]{Valid: cardValid, Min: 1, Synthesize: synthCard})
	if len(res.Value) != 1 {
		t.Fatalf("len = %d, want 1", len(res.Value))
	}
	if res.Dropped != 1 {
		t.Fatalf("dropped = %d, want 1", res.Dropped)
	}
}

func TestArrayPadsToMinimum(t *testing.T) {
	raw := `[{"front":"Q1","back":"A1"}]`
	res := Array(raw, ArraySpec[card]{Valid: cardValid, Min: 3, Synthesize: synthCard})
	if len(res.Value) != 3 {
		t.Fatalf("len = %d, want 3", len(res.Value))
	}
	if res.Tier != TierPartiallyRecovered {
		t.Fatalf("tier = %q, want %q after padding", res.Tier, TierPartiallyRecovered)
	}
	if res.Value[0].Front != "Q1" {
		t.Fatalf("real element must come first, got %+v", res.Value[0])
	}
	if res.Value[2].Front != "Card 3" {
		t.Fatalf("unexpected synthetic element: %+v", res.Value[2])
	}
}

func TestArraySynthesizesOnGarbage(t *testing.T) {
	res := Array("I could not produce the cards you asked for.", ArraySpec[card]{
		Valid: cardValid, Min: 2, Synthesize: synthCard,
	})
	if res.Tier != TierFallback {
		t.Fatalf("tier = %q, want %q", res.Tier, TierFallback)
	}
	if len(res.Value) != 2 {
		t.Fatalf("len = %d, want 2", len(res.Value))
	}
}

type storyShape struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func TestObjectParsesDirectly(t *testing.T) {
	res := Object(`{"title":"The River","content":"Once upon a time."}`, ObjectSpec[storyShape]{
		Valid:    func(s storyShape) bool { return s.Content != "" },
		Fallback: func() storyShape { return storyShape{Title: "Story", Content: "unavailable"} },
	})
	if res.Tier != TierParsed || res.Value.Title != "The River" {
		t.Fatalf("tier=%q value=%+v", res.Tier, res.Value)
	}
}

func TestObjectSurvivesEmbeddedNewlines(t *testing.T) {
	raw := "{\"title\":\n\n\"Broken\",\n\"content\"\n:\n\"Body text\"}"
	res := Object(raw, ObjectSpec[storyShape]{
		Valid:    func(s storyShape) bool { return s.Content != "" },
		Fallback: func() storyShape { return storyShape{} },
	})
	if res.Value.Content != "Body text" {
		t.Fatalf("unexpected value: %+v", res.Value)
	}
}

func TestObjectBalancesTruncatedClosers(t *testing.T) {
	raw := `{"title":"Cut","content":"The text just stops here"`
	res := Object(raw, ObjectSpec[storyShape]{
		Valid:    func(s storyShape) bool { return s.Content != "" },
		Fallback: func() storyShape { return storyShape{} },
	})
	if res.Tier != TierPartiallyRecovered {
		t.Fatalf("tier = %q, want %q", res.Tier, TierPartiallyRecovered)
	}
	if res.Value.Title != "Cut" {
		t.Fatalf("unexpected value: %+v", res.Value)
	}
}

func TestObjectPartialFieldExtraction(t *testing.T) {
	raw := `junk "title": "Salvage Me" more junk "content": "Recovered body" trailing {{{`
	res := Object(raw, ObjectSpec[storyShape]{
		Valid:  func(s storyShape) bool { return s.Title != "" && s.Content != "" },
		Fields: []string{"title", "content"},
		Assemble: func(f map[string]string) (storyShape, bool) {
			if f["content"] == "" {
				return storyShape{}, false
			}
			return storyShape{Title: f["title"], Content: f["content"]}, true
		},
		Fallback: func() storyShape { return storyShape{Title: "fallback"} },
	})
	if res.Tier != TierPartiallyRecovered {
		t.Fatalf("tier = %q, want %q", res.Tier, TierPartiallyRecovered)
	}
	if res.Value.Title != "Salvage Me" || res.Value.Content != "Recovered body" {
		t.Fatalf("unexpected value: %+v", res.Value)
	}
}

func TestObjectFallsBackOnHopelessInput(t *testing.T) {
	res := Object("no structure here at all", ObjectSpec[storyShape]{
		Valid:    func(s storyShape) bool { return s.Content != "" },
		Fallback: func() storyShape { return storyShape{Title: "Story", Content: "unavailable"} },
	})
	if res.Tier != TierFallback || res.Value.Title != "Story" {
		t.Fatalf("tier=%q value=%+v", res.Tier, res.Value)
	}
}

func TestCleanKeepsInnerFences(t *testing.T) {
	raw := "```json\n{\"title\":\"x\",\"content\":\"uses ``` inside\"}\n```"
	cleaned := Clean(raw)
	if !strings.HasPrefix(cleaned, "{") || !strings.HasSuffix(cleaned, "}") {
		t.Fatalf("clean mangled payload: %q", cleaned)
	}
}

func TestExtractObjectsIsStringAware(t *testing.T) {
	s := `[{"scene":"a } inside a string","panel_id":1},{"scene":"b","panel_id":2}]`
	objs := extractObjects(s)
	if len(objs) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(objs), objs)
	}
}
