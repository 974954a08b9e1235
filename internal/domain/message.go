package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// MessageType identifies an envelope on the wire and a record in storage.
type MessageType string

const (
	// Persisted message types
	MessageTypePlain   MessageType = "message"
	MessageTypeAI      MessageType = "ai_message"
	MessageTypeMovie   MessageType = "movie_message"
	MessageTypeMusic   MessageType = "music_message"
	MessageTypeNewsPDF MessageType = "news_pdf_message"
	MessageTypeSystem  MessageType = "system_message"

	// Ephemeral server→client envelopes
	MessageTypeLoginResponse  MessageType = "login_response"
	MessageTypeHistory        MessageType = "history"
	MessageTypeUserJoined     MessageType = "user_joined"
	MessageTypeUserLeft       MessageType = "user_left"
	MessageTypeSpecialCommand MessageType = "special_command"
	MessageTypeFileResponse   MessageType = "file_response"

	// Client→server envelopes
	MessageTypeLogin       MessageType = "login"
	MessageTypeChat        MessageType = "message"
	MessageTypeFileRequest MessageType = "file_request"
)

// Inbound is the single client→server envelope shape. Unused fields stay
// empty depending on Type.
type Inbound struct {
	Type     MessageType `json:"type"`
	Username string      `json:"username,omitempty"`
	Password string      `json:"password,omitempty"`
	Content  string      `json:"content,omitempty"`
}

// ChatEnvelope carries plain chat text, AI replies and system notices.
type ChatEnvelope struct {
	Type      MessageType `json:"type"`
	Username  string      `json:"username"`
	Content   string      `json:"content"`
	Timestamp string      `json:"timestamp"`
}

// PresenceEnvelope announces a user joining or leaving, with the full
// online-user list so clients can redraw their roster.
type PresenceEnvelope struct {
	Type        MessageType `json:"type"`
	Username    string      `json:"username"`
	OnlineUsers []string    `json:"online_users"`
	Message     string      `json:"message"`
	Timestamp   string      `json:"timestamp"`
}

// LoginResponse is sent only to the connection that attempted the login.
type LoginResponse struct {
	Type        MessageType `json:"type"`
	Success     bool        `json:"success"`
	Message     string      `json:"message"`
	Username    string      `json:"username,omitempty"`
	OnlineUsers []string    `json:"online_users,omitempty"`
}

// HistoryEnvelope replays persisted messages to a freshly logged-in client.
type HistoryEnvelope struct {
	Type     MessageType      `json:"type"`
	Messages []HistoryMessage `json:"messages"`
}

// HistoryMessage is one replayed record. Extra holds the type-specific
// payload (iframe descriptor, music card, news list) exactly as persisted.
type HistoryMessage struct {
	Username  string          `json:"username"`
	Type      MessageType     `json:"type"`
	Content   string          `json:"content"`
	Timestamp string          `json:"timestamp"`
	Extra     json.RawMessage `json:"additional_data,omitempty"`
}

// MovieEnvelope carries a playback-embed descriptor built from a URL fragment.
type MovieEnvelope struct {
	Type         MessageType `json:"type"`
	Username     string      `json:"username"`
	Content      string      `json:"content"`
	IframeSrc    string      `json:"iframe_src"`
	IframeWidth  int         `json:"iframe_width"`
	IframeHeight int         `json:"iframe_height"`
	Timestamp    string      `json:"timestamp"`
}

// MusicInfo is the music card shown to clients. For restricted (VIP) tracks
// URL is cleared before broadcast so no playable link reaches clients.
type MusicInfo struct {
	Name   string `json:"name"`
	Singer string `json:"singer"`
	URL    string `json:"url"`
	Image  string `json:"image,omitempty"`
	IsVIP  bool   `json:"is_vip,omitempty"`
}

// MusicEnvelope broadcasts a music card.
type MusicEnvelope struct {
	Type      MessageType `json:"type"`
	Username  string      `json:"username"`
	Content   string      `json:"content"`
	MusicInfo MusicInfo   `json:"music_info"`
	Timestamp string      `json:"timestamp"`
}

// NewsItem is one hot-list entry.
type NewsItem struct {
	Rank  string `json:"rank"`
	Title string `json:"title"`
	Heat  string `json:"heat"`
}

// NewsEnvelope broadcasts a formatted hot-list together with the optional
// PDF artifact reference. PDFPath is empty when rendering failed.
type NewsEnvelope struct {
	Type        MessageType `json:"type"`
	Username    string      `json:"username"`
	Content     string      `json:"content"`
	NewsList    []NewsItem  `json:"news_list"`
	PDFPath     string      `json:"pdf_path"`
	PDFFilename string      `json:"pdf_filename"`
	Timestamp   string      `json:"timestamp"`
}

// CommandAck is the per-command acknowledgement delivered only to the sender.
type CommandAck struct {
	Type        MessageType `json:"type"`
	Command     string      `json:"command"`
	Content     string      `json:"content"`
	Message     string      `json:"message"`
	PDFPath     string      `json:"pdf_path,omitempty"`
	PDFFilename string      `json:"pdf_filename,omitempty"`
}

// FileResponse answers a file_request; uploads are not implemented yet.
type FileResponse struct {
	Type    MessageType `json:"type"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
}

// Clock returns the current wall-clock string used in envelopes.
func Clock() string {
	return time.Now().Format(TimeLayout)
}

// IsForbiddenName reports whether a username collides with the reserved
// persona identity, including its transliteration.
func IsForbiddenName(username string) bool {
	if strings.Contains(username, PersonaName) {
		return true
	}
	return strings.Contains(strings.ToLower(username), PersonaTransliteration)
}
