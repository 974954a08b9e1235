package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"zbchat/internal/auth"
	"zbchat/internal/config"
	"zbchat/internal/delivery/ws"
	"zbchat/internal/domain"
	"zbchat/internal/repository"
)

// Handler carries the REST surface: account endpoints, history queries,
// the server config echo and the WebSocket upgrade.
type Handler struct {
	hub      *ws.Hub
	users    *repository.UserRepository
	messages *repository.MessageRepository
	cfg      *config.Config
	validate *validator.Validate
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewHandler(hub *ws.Hub, users *repository.UserRepository, messages *repository.MessageRepository, cfg *config.Config, log *slog.Logger) *Handler {
	h := &Handler{
		hub:      hub,
		users:    users,
		messages: messages,
		cfg:      cfg,
		validate: validator.New(),
		log:      log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return h.isOriginAllowed(r.Header.Get("Origin"))
		},
	}
	return h
}

// isOriginAllowed checks the Origin header against the configured list.
// Same-origin requests carry no Origin header and always pass.
func (h *Handler) isOriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins() {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	return false
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Password string `json:"password" validate:"required,min=6"`
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HandleRegister creates an account. Validation failures come back as
// success=false with a human-readable message, matching what the login
// page renders inline.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "请求格式错误"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Password = strings.TrimSpace(req.Password)

	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusOK, statusResponse{Message: domain.ErrEmptyCredentials.Error()})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusOK, statusResponse{Message: validationMessage(err)})
		return
	}
	if domain.IsForbiddenName(req.Username) {
		writeJSON(w, http.StatusOK, statusResponse{Message: "用户名包含禁止内容"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error("password hash failed", "error", err)
		writeJSON(w, http.StatusOK, statusResponse{Message: "注册失败，请稍后重试"})
		return
	}

	if _, err := h.users.Create(req.Username, hash); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			writeJSON(w, http.StatusOK, statusResponse{Message: domain.ErrUserExists.Error()})
			return
		}
		h.log.Error("account creation failed", "username", req.Username, "error", err)
		writeJSON(w, http.StatusOK, statusResponse{Message: "注册失败，请稍后重试"})
		return
	}

	h.log.Info("account registered", "username", req.Username)
	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "注册成功"})
}

// validationMessage maps the first failed rule to the message the
// original form shows.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "请求格式错误"
	}
	switch fieldErrs[0].Field() {
	case "Username":
		return "用户名长度应在3-20个字符之间"
	case "Password":
		return "密码长度至少为6个字符"
	}
	return "请求格式错误"
}

// HandleLogin is the REST credential pre-check used by the login page.
// The authoritative login still happens over the WebSocket.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Message: "请求格式错误"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Password = strings.TrimSpace(req.Password)

	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusOK, statusResponse{Message: domain.ErrEmptyCredentials.Error()})
		return
	}

	if _, err := h.users.VerifyCredentials(req.Username, req.Password); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeJSON(w, http.StatusOK, statusResponse{Message: err.Error()})
			return
		}
		h.log.Error("login check failed", "username", req.Username, "error", err)
		writeJSON(w, http.StatusOK, statusResponse{Message: "登录失败，请稍后重试"})
		return
	}

	if h.hub.IsOnline(req.Username) {
		writeJSON(w, http.StatusOK, statusResponse{Message: domain.ErrAlreadyOnline.Error()})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Success: true, Message: "登录成功"})
}

// HandleHistory pages through persisted messages. The type-specific
// extra payload is flattened into each message object, the shape the
// chat page expects.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	page := queryInt(r, "page", 0)

	records, err := h.messages.History(repository.HistoryQuery{
		Limit:    limit,
		Offset:   page * limit,
		Search:   r.URL.Query().Get("search"),
		Username: r.URL.Query().Get("username"),
	})
	if err != nil {
		h.log.Error("history query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"messages": []any{}})
		return
	}

	messages := lo.Map(records, func(rec repository.Record, _ int) map[string]any {
		msg := map[string]any{}
		if len(rec.Extra) > 0 {
			if err := json.Unmarshal(rec.Extra, &msg); err != nil {
				h.log.Warn("history extra unreadable", "id", rec.ID, "error", err)
			}
		}
		msg["username"] = rec.Username
		msg["type"] = rec.Type
		msg["content"] = rec.Content
		msg["timestamp"] = rec.At.Format(domain.TimeLayout)
		return msg
	})

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}

// HandleConfig echoes the connection info the login page needs.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"servers": []map[string]any{
			{
				"name": "默认服务器",
				"host": h.cfg.Host,
				"port": h.cfg.Port,
			},
		},
	})
}

// HandleWebSocket upgrades the connection and starts the pumps. The
// connection is unauthenticated until a login frame arrives.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
