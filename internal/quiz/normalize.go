// Package quiz turns free-form model output into well-formed quizzes.
//
// Parsing and normalising are split: Parse is the only step that can fail,
// Normalize is total and always yields exactly model.QuestionsPerQuiz
// questions with model.OptionsPerQuestion options each.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mentoria/mentoria-go/internal/model"
)

// ErrUnparseable is returned when no JSON document can be recovered from the text.
var ErrUnparseable = errors.New("unparseable quiz payload")

var fencedBlock = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// Raw is a decoded but unvalidated quiz document.
type Raw map[string]any

// Parse recovers a JSON object from model output. The whole text is tried
// first, then the interior of a fenced code block (or the text itself) cut
// from the first '{' to the last '}'. One level of double encoding (a JSON
// string whose content is JSON) is unwrapped. Valid JSON that is not an
// object yields an empty Raw, which normalises to placeholders.
func Parse(text string) (Raw, error) {
	trimmed := strings.TrimSpace(text)
	if v, ok := decode(trimmed); ok {
		return asRaw(v), nil
	}
	if v, ok := decode(ExtractJSON(text)); ok {
		return asRaw(v), nil
	}
	return nil, ErrUnparseable
}

// ExtractJSON returns the most likely JSON span of text.
func ExtractJSON(text string) string {
	candidate := text
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}
	candidate = strings.TrimSpace(candidate)

	first := strings.Index(candidate, "{")
	last := strings.LastIndex(candidate, "}")
	if first != -1 && last > first {
		return candidate[first : last+1]
	}
	return candidate
}

func decode(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	if inner, ok := v.(string); ok {
		var nested any
		if err := json.Unmarshal([]byte(inner), &nested); err != nil {
			return nil, false
		}
		v = nested
	}
	return v, true
}

func asRaw(v any) Raw {
	if m, ok := v.(map[string]any); ok {
		return Raw(m)
	}
	return Raw{}
}

// Defaults supplies the values used when the model omits them.
type Defaults struct {
	Topic      string
	Difficulty string
}

// Normalized is the repaired quiz content, ready to persist.
type Normalized struct {
	Topic      string
	Difficulty string
	Questions  []model.Question
}

// Normalize repairs raw into exactly model.QuestionsPerQuiz questions with ids q1..q10.
func Normalize(raw Raw, d Defaults) Normalized {
	out := Normalized{
		Topic:      nonEmptyString(raw["topic"], d.Topic),
		Difficulty: nonEmptyString(raw["difficulty"], d.Difficulty),
		Questions:  make([]model.Question, 0, model.QuestionsPerQuiz),
	}

	source, _ := raw["questions"].([]any)
	for i := 0; i < len(source) && i < model.QuestionsPerQuiz; i++ {
		item, _ := source[i].(map[string]any)
		out.Questions = append(out.Questions, repairQuestion(item, len(out.Questions)+1, d.Topic))
	}
	for len(out.Questions) < model.QuestionsPerQuiz {
		out.Questions = append(out.Questions, Placeholder(len(out.Questions)+1, d.Topic))
	}

	for i := range out.Questions {
		out.Questions[i].ID = fmt.Sprintf("q%d", i+1)
	}
	return out
}

// NormalizeText parses and normalises in one step.
func NormalizeText(text string, d Defaults) (Normalized, error) {
	raw, err := Parse(text)
	if err != nil {
		return Normalized{}, err
	}
	return Normalize(raw, d), nil
}

// Placeholder is the question used to pad short quizzes.
func Placeholder(n int, topic string) model.Question {
	options := make([]string, 0, model.OptionsPerQuestion)
	for len(options) < model.OptionsPerQuestion {
		options = append(options, optionLabel(len(options)))
	}
	return model.Question{
		ID:           fmt.Sprintf("q%d", n),
		Question:     placeholderText(n, topic),
		Options:      options,
		CorrectIndex: 0,
		Explanation:  "",
	}
}

func repairQuestion(q map[string]any, n int, topic string) model.Question {
	options := []string{}
	if src, ok := q["options"].([]any); ok {
		for i := 0; i < len(src) && i < model.OptionsPerQuestion; i++ {
			options = append(options, stringify(src[i]))
		}
	}
	for len(options) < model.OptionsPerQuestion {
		options = append(options, optionLabel(len(options)))
	}

	text := stringify(q["question"])
	if !truthy(q["question"]) {
		text = placeholderText(n, topic)
	}

	explanation := ""
	if truthy(q["explanation"]) {
		explanation = stringify(q["explanation"])
	}

	return model.Question{
		ID:           fmt.Sprintf("q%d", n),
		Question:     text,
		Options:      options,
		CorrectIndex: correctIndex(q["correctIndex"]),
		Explanation:  explanation,
	}
}

func placeholderText(n int, topic string) string {
	return fmt.Sprintf("Pregunta %d sobre %s", n, topic)
}

func optionLabel(i int) string {
	return "Opción " + string(rune('A'+i))
}

// correctIndex accepts integral numbers and numeric strings (leading integer
// prefix, as parseInt reads them) in [0,3]; anything else becomes 0.
func correctIndex(v any) int {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case string:
		parsed, ok := parseIntPrefix(t)
		if !ok {
			return 0
		}
		n = float64(parsed)
	default:
		return 0
	}
	if n != math.Trunc(n) || n < 0 || n > model.OptionsPerQuestion-1 {
		return 0
	}
	return int(n)
}

func parseIntPrefix(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// truthy mirrors the loose truthiness model output is usually checked with:
// null, false, 0 and "" are falsy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	default:
		return true
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func nonEmptyString(v any, fallback string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return fallback
}
