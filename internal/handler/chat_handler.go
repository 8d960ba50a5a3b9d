package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"aizeeno/internal/service"
)

// ChatHandler handles chat completion and conversation log endpoints.
type ChatHandler struct {
	chatService         service.ChatService
	conversationService service.ConversationService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatService service.ChatService, conversationService service.ConversationService) *ChatHandler {
	return &ChatHandler{chatService: chatService, conversationService: conversationService}
}

// ChatRequest represents a chat message.
type ChatRequest struct {
	Message        string `json:"message" validate:"required"`
	ConversationID string `json:"conversation_id"`
}

// Chat produces a completion for the message and appends the exchange to the
// conversation log.
func (h *ChatHandler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	reply, err := h.chatService.Reply(c.Request().Context(), req.Message)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"success": false, "error": "chat backend unavailable"})
	}

	item, err := h.conversationService.Append(c.Request().Context(), req.ConversationID, "", req.Message, reply)
	if err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":         true,
		"response":        reply,
		"conversation_id": item.ID,
	})
}

// AppendRequest records an exchange directly, without invoking the
// completion backend. Used by clients that buffer exchanges locally.
type AppendRequest struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	UserText string `json:"user_text"`
	AIText   string `json:"ai_text"`
}

// Append stores an exchange in the conversation log.
func (h *ChatHandler) Append(c echo.Context) error {
	var req AppendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	item, err := h.conversationService.Append(c.Request().Context(), req.ID, req.Title, req.UserText, req.AIText)
	if err != nil {
		if errors.Is(err, service.ErrEmptyConversation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "conversation": item})
}

// Init creates a fresh conversation draft.
func (h *ChatHandler) Init(c echo.Context) error {
	draft, err := h.conversationService.NewDraft(c.Request().Context())
	if err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "conversation": draft})
}

// List returns all conversations, newest first.
func (h *ChatHandler) List(c echo.Context) error {
	items, err := h.conversationService.List(c.Request().Context())
	if err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "conversations": items})
}

// Get returns a single conversation by id.
func (h *ChatHandler) Get(c echo.Context) error {
	item, err := h.conversationService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "conversation": item})
}
