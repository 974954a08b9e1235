package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"zbchat/internal/domain"
	"zbchat/internal/provider"
	"zbchat/internal/report"
	"zbchat/internal/repository"
)

// Hub routes inbound envelopes to the login, chat and file paths and owns
// the broadcast plumbing. Command handlers live in commands.go.
type Hub struct {
	registry *Registry
	presence *Presence

	users    *repository.UserRepository
	sessions *repository.SessionRepository
	messages *repository.MessageRepository

	ai      provider.AIProvider
	weather provider.WeatherProvider
	music   provider.MusicProvider
	news    provider.NewsProvider
	movie   provider.MovieEmbed
	pdf     *report.NewsPDF

	commands []commandRoute
	log      *slog.Logger
}

// HubDeps bundles everything the hub needs; all fields are required
// except AI, which may be nil when the model is not configured.
type HubDeps struct {
	Users    *repository.UserRepository
	Sessions *repository.SessionRepository
	Messages *repository.MessageRepository

	AI      provider.AIProvider
	Weather provider.WeatherProvider
	Music   provider.MusicProvider
	News    provider.NewsProvider
	Movie   provider.MovieEmbed
	PDF     *report.NewsPDF

	Log *slog.Logger
}

// NewHub creates a new Hub
func NewHub(deps HubDeps) *Hub {
	h := &Hub{
		registry: NewRegistry(),
		presence: NewPresence(),
		users:    deps.Users,
		sessions: deps.Sessions,
		messages: deps.Messages,
		ai:       deps.AI,
		weather:  deps.Weather,
		music:    deps.Music,
		news:     deps.News,
		movie:    deps.Movie,
		pdf:      deps.PDF,
		log:      deps.Log,
	}
	h.commands = commandTable(h)
	return h
}

// Register adds a freshly upgraded connection.
func (h *Hub) Register(c *Client) {
	h.registry.Add(c)
	h.log.Debug("connection opened", "conn", c.ID)
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	return h.registry.Count()
}

// OnlineUsers returns the authenticated roster.
func (h *Hub) OnlineUsers() []string {
	return h.presence.OnlineUsers()
}

// IsOnline reports whether a username currently holds a connection.
func (h *Hub) IsOnline(username string) bool {
	return h.presence.IsOnline(username)
}

// HandleInbound parses one client frame and routes it. Malformed frames
// are dropped.
func (h *Hub) HandleInbound(c *Client, raw []byte) {
	var in domain.Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		h.log.Debug("malformed frame", "conn", c.ID)
		return
	}

	switch in.Type {
	case domain.MessageTypeLogin:
		h.handleLogin(c, in)
	case domain.MessageTypeChat:
		h.handleChat(c, in)
	case domain.MessageTypeFileRequest:
		h.sendJSON(c, domain.FileResponse{
			Type:    domain.MessageTypeFileResponse,
			Status:  "success",
			Message: "文件上传功能将在后续版本实现",
		})
	}
}

// handleLogin runs the authentication gate: non-empty credentials, no
// reserved identity, username not already online, then stored credentials.
// The presence reservation happens before the credential check so two
// racing logins for one name cannot both pass; a failed check releases it.
func (h *Hub) handleLogin(c *Client, in domain.Inbound) {
	if current, ok := h.presence.Username(c.ID); ok {
		// One identity per connection; switching users means reconnecting.
		h.log.Debug("repeat login rejected", "conn", c.ID, "username", current)
		h.rejectLogin(c, "当前连接已登录，请勿重复登录")
		return
	}

	username := strings.TrimSpace(in.Username)
	password := strings.TrimSpace(in.Password)

	if username == "" || password == "" {
		h.rejectLogin(c, domain.ErrEmptyCredentials.Error())
		return
	}
	if domain.IsForbiddenName(username) {
		h.rejectLogin(c, domain.ErrForbiddenName.Error())
		return
	}
	if err := h.presence.Login(c.ID, username); err != nil {
		h.rejectLogin(c, err.Error())
		return
	}

	user, err := h.users.VerifyCredentials(username, password)
	if err != nil {
		h.presence.Logout(c.ID)
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.rejectLogin(c, err.Error())
		} else {
			h.log.Error("credential check failed", "username", username, "error", err)
			h.rejectLogin(c, "登录失败，请稍后重试")
		}
		return
	}

	if err := h.users.SetOnline(username, true); err != nil {
		h.log.Error("set online failed", "username", username, "error", err)
	}
	if err := h.sessions.Open(c.SessionID, user.ID); err != nil {
		h.log.Error("open session failed", "username", username, "error", err)
	}

	roster := h.presence.OnlineUsers()
	h.sendJSON(c, domain.LoginResponse{
		Type:        domain.MessageTypeLoginResponse,
		Success:     true,
		Message:     fmt.Sprintf("欢迎 %s！", username),
		Username:    username,
		OnlineUsers: roster,
	})

	joinNotice := fmt.Sprintf("%s 加入了聊天室", username)
	h.broadcastExcept(domain.PresenceEnvelope{
		Type:        domain.MessageTypeUserJoined,
		Username:    username,
		OnlineUsers: roster,
		Message:     joinNotice,
		Timestamp:   domain.Clock(),
	}, c.ID)
	h.persist(domain.SystemAuthor, domain.MessageTypeSystem, joinNotice, nil)

	h.sendHistory(c)
	h.log.Info("user logged in", "username", username, "conn", c.ID)
}

func (h *Hub) rejectLogin(c *Client, message string) {
	h.sendJSON(c, domain.LoginResponse{
		Type:    domain.MessageTypeLoginResponse,
		Success: false,
		Message: message,
	})
}

// handleChat drops frames from unauthenticated connections, then either
// dispatches a command or broadcasts plain chat.
func (h *Hub) handleChat(c *Client, in domain.Inbound) {
	username, ok := h.presence.Username(c.ID)
	if !ok {
		h.log.Debug("chat frame dropped", "conn", c.ID, "error", domain.ErrNotAuthenticated)
		return
	}
	content := in.Content

	if route, args, matched := classify(h.commands, content); matched {
		route.handle(c, username, content, args)
		return
	}

	h.broadcast(domain.ChatEnvelope{
		Type:      domain.MessageTypePlain,
		Username:  username,
		Content:   content,
		Timestamp: domain.Clock(),
	})
	h.persist(username, domain.MessageTypePlain, content, nil)
}

// HandleClose tears a connection down. Removing from the registry first
// makes a double close a no-op; presence is released before persistence
// so the username frees up even if storage stalls.
func (h *Hub) HandleClose(c *Client) {
	if !h.registry.Remove(c.ID) {
		return
	}

	username, wasOnline := h.presence.Logout(c.ID)
	close(c.send)

	if wasOnline {
		leaveNotice := fmt.Sprintf("%s 离开了聊天室", username)
		h.broadcast(domain.PresenceEnvelope{
			Type:        domain.MessageTypeUserLeft,
			Username:    username,
			OnlineUsers: h.presence.OnlineUsers(),
			Message:     leaveNotice,
			Timestamp:   domain.Clock(),
		})
		h.persist(domain.SystemAuthor, domain.MessageTypeSystem, leaveNotice, nil)

		if err := h.users.SetOnline(username, false); err != nil {
			h.log.Error("set offline failed", "username", username, "error", err)
		}
		if err := h.sessions.End(c.SessionID); err != nil {
			h.log.Error("end session failed", "username", username, "error", err)
		}
	}
	h.log.Debug("connection closed", "conn", c.ID, "username", username)
}

// sendHistory replays the most recent persisted messages to one client.
func (h *Hub) sendHistory(c *Client) {
	records, err := h.messages.History(repository.HistoryQuery{Limit: domain.HistoryPushLimit})
	if err != nil {
		h.log.Error("history load failed", "error", err)
		return
	}

	messages := make([]domain.HistoryMessage, 0, len(records))
	for _, rec := range records {
		messages = append(messages, domain.HistoryMessage{
			Username:  rec.Username,
			Type:      rec.Type,
			Content:   rec.Content,
			Timestamp: rec.At.Format(domain.TimeLayout),
			Extra:     rec.Extra,
		})
	}
	h.sendJSON(c, domain.HistoryEnvelope{
		Type:     domain.MessageTypeHistory,
		Messages: messages,
	})
}

// sendJSON marshals an envelope and queues it on one connection.
func (h *Hub) sendJSON(c *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal envelope failed", "error", err)
		return
	}
	c.Send(data)
}

// broadcast marshals an envelope and fans it out to every connection.
func (h *Hub) broadcast(v any) {
	h.broadcastExcept(v, "")
}

func (h *Hub) broadcastExcept(v any, excludeID string) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal envelope failed", "error", err)
		return
	}
	h.registry.BroadcastExcept(data, excludeID)
}

// persist appends one message record; a storage error never interrupts
// delivery, it is logged and dropped.
func (h *Hub) persist(username string, msgType domain.MessageType, content string, extra any) {
	var raw json.RawMessage
	if extra != nil {
		data, err := json.Marshal(extra)
		if err != nil {
			h.log.Error("marshal extra failed", "error", err)
		} else {
			raw = data
		}
	}

	err := h.messages.Store(repository.Record{
		Username: username,
		Type:     msgType,
		Content:  content,
		Extra:    raw,
	})
	if err != nil {
		h.log.Error("persist message failed", "type", msgType, "error", err)
	}
}
