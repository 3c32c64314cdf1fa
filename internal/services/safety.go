package services

import "strings"

var blockedPromptTerms = []string{
	"violence", "gore", "explicit", "nude", "naked", "blood", "weapon",
	"drug", "alcohol", "tobacco", "gambling", "hate", "discrimination",
}

var beginnerBlockedTerms = []string{"scary", "frightening", "horror"}

// SafePrompt screens an image prompt before generation. Beginner-level
// requests additionally reject frightening themes.
func SafePrompt(prompt, level string) bool {
	lower := strings.ToLower(prompt)
	for _, term := range blockedPromptTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	if level == LevelBeginner {
		for _, term := range beginnerBlockedTerms {
			if strings.Contains(lower, term) {
				return false
			}
		}
	}
	return true
}
