package model

import "time"

// DefaultChatSessionName is the placeholder name of a chat session before it gets a title.
const DefaultChatSessionName = "Nueva conversación"

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession groups the messages of one conversation.
type ChatSession struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	SessionName  string    `json:"session_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ChatMessage is one stored turn. Content is kept as the raw markdown.
type ChatMessage struct {
	ID            int64     `json:"id"`
	ChatSessionID int64     `json:"chat_session_id"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Prompt        string `json:"prompt" validate:"required"`
	ChatSessionID *int64 `json:"chatSessionId"`
	Stream        bool   `json:"stream"`
}

// ChatResponse is the buffered (non-streaming) reply.
type ChatResponse struct {
	Reply         string `json:"reply"`
	ChatSessionID int64  `json:"chatSessionId"`
	SessionName   string `json:"sessionName"`
}

// Stream event types.
const (
	StreamStart = "start"
	StreamChunk = "chunk"
	StreamEnd   = "end"
	StreamError = "error"
)

// StreamEvent is one `data:` frame of a streamed chat reply.
type StreamEvent struct {
	Type          string `json:"type"`
	ChatSessionID int64  `json:"chatSessionId,omitempty"`
	SessionName   string `json:"sessionName,omitempty"`
	Text          string `json:"text,omitempty"`
	FullText      string `json:"fullText,omitempty"`
	Error         string `json:"error,omitempty"`
}

// CreateChatSessionRequest is the optional body of POST /chats/sessions.
type CreateChatSessionRequest struct {
	Name string `json:"name"`
}

// RenameChatSessionRequest is the body of PATCH /chats/{id}.
type RenameChatSessionRequest struct {
	Name string `json:"name"`
}

// ChatSessionResponse wraps a single session.
type ChatSessionResponse struct {
	Session ChatSession `json:"session"`
}

// ChatSessionsResponse lists a user's sessions, most recently active first.
type ChatSessionsResponse struct {
	Sessions []ChatSession `json:"sessions"`
}

// ChatMessagesResponse is a session together with its recent messages.
type ChatMessagesResponse struct {
	Session  ChatSession   `json:"session"`
	Messages []ChatMessage `json:"messages"`
}

// DeleteChatsResponse reports how many sessions DELETE /chats removed.
type DeleteChatsResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}
