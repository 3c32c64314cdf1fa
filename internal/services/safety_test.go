package services

import "testing"

func TestSafePromptBlocksListedTerms(t *testing.T) {
	cases := []string{
		"a bloody battle scene",
		"character holding a WEAPON",
		"Explicit content please",
	}
	for _, prompt := range cases {
		if SafePrompt(prompt, LevelModerate) {
			t.Fatalf("prompt %q must be rejected", prompt)
		}
	}
}

func TestSafePromptAllowsCleanPrompts(t *testing.T) {
	if !SafePrompt("a friendly fox reading a book", LevelModerate) {
		t.Fatal("clean prompt must be accepted")
	}
}

func TestSafePromptBeginnerRejectsFrighteningThemes(t *testing.T) {
	if SafePrompt("a scary forest at night", LevelBeginner) {
		t.Fatal("beginner level must reject frightening themes")
	}
	if !SafePrompt("a scary forest at night", LevelModerate) {
		t.Fatal("moderate level tolerates frightening themes")
	}
}
