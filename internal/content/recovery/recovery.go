// Package recovery coerces unreliable model output into valid structured
// values. Parsing degrades through an ordered ladder: direct parse after
// fence stripping, whitespace normalization, truncation repair, partial
// extraction, and finally a caller-supplied synthetic fallback. The top-level
// calls never fail; they always return a value satisfying the caller's
// minimum contract.
package recovery

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Tier reports how aggressively a value had to be recovered.
type Tier string

const (
	TierParsed             Tier = "parsed"
	TierPartiallyRecovered Tier = "partially_recovered"
	TierFallback           Tier = "fallback"
)

// Result carries the recovered value and how it was obtained. Dropped counts
// elements that were present in the raw text but could not be salvaged.
type Result[T any] struct {
	Value   T
	Tier    Tier
	Dropped int
}

// ArraySpec configures recovery of a JSON array of record-shaped elements.
type ArraySpec[T any] struct {
	// Valid reports whether one decoded element satisfies the required-field
	// contract. Nil accepts everything.
	Valid func(T) bool
	// Min is the minimum element count of the returned slice. Shortfalls are
	// padded with Synthesize output.
	Min int
	// Synthesize builds the i-th synthetic padding element. Required when
	// Min > 0.
	Synthesize func(i int) T
}

// ObjectSpec configures recovery of a single JSON object.
type ObjectSpec[T any] struct {
	Valid func(T) bool
	// Fields names string fields to pull out of structurally broken text,
	// e.g. "title". Extraction results feed Assemble.
	Fields []string
	// Assemble builds a value from partially extracted fields. Returning
	// false rejects the extraction and falls through to Fallback.
	Assemble func(fields map[string]string) (T, bool)
	// Fallback builds the minimal valid value. Required.
	Fallback func() T
}

var (
	fenceOpenRE  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceCloseRE = regexp.MustCompile("\\s*```\\s*$")
	spaceRE      = regexp.MustCompile(`\s+`)
)

// Clean strips markdown code fences and trims the text down to the outermost
// JSON value, dropping any prose the model wrapped around it.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = fenceOpenRE.ReplaceAllString(s, "")
	s = fenceCloseRE.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	var closer byte
	if s[start] == '{' {
		closer = '}'
	} else {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end > start {
		return s[start : end+1]
	}
	return s[start:]
}

// Array recovers a slice of T from raw model text. The result always has at
// least spec.Min elements.
func Array[T any](raw string, spec ArraySpec[T]) Result[[]T] {
	valid := spec.Valid
	if valid == nil {
		valid = func(T) bool { return true }
	}
	cleaned := Clean(raw)

	attempt := func(s string) ([]T, int, bool) {
		var decoded []T
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, 0, false
		}
		var kept []T
		dropped := 0
		for _, el := range decoded {
			if valid(el) {
				kept = append(kept, el)
			} else {
				dropped++
			}
		}
		if len(kept) == 0 {
			return nil, 0, false
		}
		return kept, dropped, true
	}

	if v, dropped, ok := attempt(cleaned); ok {
		return padArray(Result[[]T]{Value: v, Tier: TierParsed, Dropped: dropped}, spec)
	}
	if v, dropped, ok := attempt(normalizeWhitespace(cleaned)); ok {
		return padArray(Result[[]T]{Value: v, Tier: TierPartiallyRecovered, Dropped: dropped}, spec)
	}
	if v, dropped, ok := attempt(balanceClosers(cleaned)); ok {
		return padArray(Result[[]T]{Value: v, Tier: TierPartiallyRecovered, Dropped: dropped}, spec)
	}

	// Truncated mid-record. Pull balanced objects out of the raw text, not
	// the cleaned slice, which may have trimmed past salvageable records.
	var salvaged []T
	dropped := 0
	for _, obj := range extractObjects(raw) {
		var el T
		if err := json.Unmarshal([]byte(obj), &el); err != nil || !valid(el) {
			dropped++
			continue
		}
		salvaged = append(salvaged, el)
	}
	if len(salvaged) > 0 {
		return padArray(Result[[]T]{Value: salvaged, Tier: TierPartiallyRecovered, Dropped: dropped}, spec)
	}

	out := make([]T, 0, spec.Min)
	for i := 0; i < spec.Min; i++ {
		out = append(out, spec.Synthesize(i))
	}
	return Result[[]T]{Value: out, Tier: TierFallback}
}

// Object recovers a single value of T from raw model text.
func Object[T any](raw string, spec ObjectSpec[T]) Result[T] {
	valid := spec.Valid
	if valid == nil {
		valid = func(T) bool { return true }
	}
	cleaned := Clean(raw)

	attempt := func(s string) (T, bool) {
		var out T
		if err := json.Unmarshal([]byte(s), &out); err != nil || !valid(out) {
			var zero T
			return zero, false
		}
		return out, true
	}

	if v, ok := attempt(cleaned); ok {
		return Result[T]{Value: v, Tier: TierParsed}
	}
	if v, ok := attempt(normalizeWhitespace(cleaned)); ok {
		return Result[T]{Value: v, Tier: TierPartiallyRecovered}
	}
	if v, ok := attempt(balanceClosers(cleaned)); ok {
		return Result[T]{Value: v, Tier: TierPartiallyRecovered}
	}

	if len(spec.Fields) > 0 && spec.Assemble != nil {
		// Field extraction works on the raw text: cleaning trims to the
		// outermost braces, which can cut away fields stranded in prose.
		fields := map[string]string{}
		for _, name := range spec.Fields {
			if val, ok := extractStringField(raw, name); ok {
				fields[name] = val
			}
		}
		if len(fields) > 0 {
			if v, ok := spec.Assemble(fields); ok {
				return Result[T]{Value: v, Tier: TierPartiallyRecovered}
			}
		}
	}

	return Result[T]{Value: spec.Fallback(), Tier: TierFallback}
}

func padArray[T any](res Result[[]T], spec ArraySpec[T]) Result[[]T] {
	if len(res.Value) >= spec.Min {
		return res
	}
	for i := len(res.Value); i < spec.Min; i++ {
		res.Value = append(res.Value, spec.Synthesize(i))
	}
	if res.Tier == TierParsed {
		res.Tier = TierPartiallyRecovered
	}
	return res
}

// normalizeWhitespace collapses all runs of whitespace to a single space.
// Recovers JSON the model broke with stray newlines inside tokens.
func normalizeWhitespace(s string) string {
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}

// balanceClosers appends the closing braces and brackets a truncated payload
// is missing. Counting is string-aware so braces inside values don't skew
// the balance.
func balanceClosers(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			stack = append(stack, c)
		case c == '}' || c == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) == 0 && !inString {
		return s
	}
	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// extractObjects returns every balanced top-level object literal in s,
// where top-level means brace depth zero at the opening brace. Objects
// nested inside other objects are not returned separately.
func extractObjects(s string) []string {
	var (
		out      []string
		depth    int
		start    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case c == '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					out = append(out, s[start:i+1])
				}
			}
		}
	}
	return out
}

// extractStringField pulls a double-quoted string field value out of broken
// JSON text by name.
func extractStringField(s, name string) (string, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(name) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	var decoded string
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &decoded); err != nil {
		return m[1], true
	}
	return decoded, true
}
