package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/mentoria/mentoria-go/internal/llm"
	"github.com/mentoria/mentoria-go/internal/model"
)

const (
	titleInstruction = "Crea un título muy breve (máximo 6 palabras) en español que resuma el tema de esta conversación de estudio. Devuelve solo el título, sin comillas ni puntuación extra."

	titleContextLimit = 1000
	titleMaxWords     = 6
	titleMaxLength    = 60
)

var (
	placeholderName = regexp.MustCompile(`(?i)^nueva convers`)
	titleNoise      = regexp.MustCompile("[`*_#>\\-]")
)

func needsTitle(name string) bool {
	return strings.TrimSpace(name) == "" || placeholderName.MatchString(name)
}

// autoTitle names a session that still carries the placeholder name and
// returns the name the session ends up with. Failures are logged and the
// current name is kept.
func (s *ChatService) autoTitle(ctx context.Context, session model.ChatSession, prompt, reply string) string {
	if !needsTitle(session.SessionName) {
		return session.SessionName
	}

	title := s.generateTitle(ctx, prompt, reply)
	if err := s.store.Rename(ctx, session.UserID, session.ID, title); err != nil {
		s.logger.Warn("storing chat title failed", "chat_session_id", session.ID, "error", err)
		return session.SessionName
	}
	return title
}

// generateTitle asks the model for a short title, falling back to the prompt.
func (s *ChatService) generateTitle(ctx context.Context, prompt, reply string) string {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TitleTimeout)
	defer cancel()

	exchange := truncateRunes("Usuario: "+prompt+"\nAsistente: "+reply, titleContextLimit)
	text, err := s.llm.Complete(ctx, llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Text: titleInstruction + "\n\n" + exchange}},
		Temperature: llm.Float32(0.2),
	})
	if err != nil {
		s.logger.Warn("chat title generation failed", "error", err)
		text = ""
	}

	if title := cleanTitle(text); title != "" {
		return title
	}
	if title := cleanTitle(prompt); title != "" {
		return title
	}
	return model.DefaultChatSessionName
}

// cleanTitle strips markdown noise and keeps at most titleMaxWords words and
// titleMaxLength characters.
func cleanTitle(s string) string {
	words := strings.Fields(titleNoise.ReplaceAllString(s, ""))
	if len(words) > titleMaxWords {
		words = words[:titleMaxWords]
	}
	return strings.TrimSpace(truncateRunes(strings.Join(words, " "), titleMaxLength))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
