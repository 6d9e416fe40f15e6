package quiz

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Canonical difficulty levels.
const (
	Basico     = "basico"
	Intermedio = "intermedio"
	Avanzado   = "avanzado"
)

// DefaultDifficulty applies when the request names no valid level.
const DefaultDifficulty = Intermedio

// difficultyLevels is the closed allow-list of accepted spellings.
var difficultyLevels = map[string]string{
	"basico":       Basico,
	"básico":       Basico,
	"basic":        Basico,
	"intermedio":   Intermedio,
	"intermediate": Intermedio,
	"avanzado":     Avanzado,
	"advanced":     Avanzado,
}

// CanonicalDifficulty maps an allowed spelling, in any case, to its canonical
// level. ok is false for anything outside the allow-list.
func CanonicalDifficulty(s string) (level string, ok bool) {
	level, ok = difficultyLevels[norm.NFC.String(strings.ToLower(s))]
	return level, ok
}

// DifficultyOrDefault returns the canonical level of s, or DefaultDifficulty.
func DifficultyOrDefault(s string) string {
	if level, ok := CanonicalDifficulty(s); ok {
		return level
	}
	return DefaultDifficulty
}
