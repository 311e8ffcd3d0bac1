package handler

import (
	"craftex/internal/usecase"
	"craftex/pkg/errors"
	"craftex/pkg/response"
	"craftex/pkg/utils"

	"github.com/labstack/echo/v4"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
	}
}

type createConversationRequest struct {
	RecipientID  string `json:"recipient_id" validate:"required"`
	FirstMessage string `json:"first_message" validate:"required"`
}

func (h *ConversationHandler) CreateConversation(c echo.Context) error {
	userID := c.Get("uid").(string)

	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.conversationUseCase.CreateOrGetConversation(c.Request().Context(), userID, usecase.CreateConversationInput{
		RecipientID:  req.RecipientID,
		FirstMessage: req.FirstMessage,
	})
	if err != nil {
		// The duplicate case still carries the existing conversation so the
		// client can open it instead of showing a dead end.
		if errors.Is(err, "DUPLICATE_CONVERSATION") && result != nil {
			return response.ErrorWithData(c, err, result)
		}
		return response.Error(c, err)
	}

	return response.Created(c, result)
}

func (h *ConversationHandler) GetUserConversations(c echo.Context) error {
	userID := c.Get("uid").(string)
	pagination := utils.GetPaginationParams(c)

	conversations, total, err := h.conversationUseCase.GetUserConversations(c.Request().Context(), userID, pagination.Limit, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, conversations, total, pagination.Limit, pagination.Offset)
}

func (h *ConversationHandler) GetConversationByID(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	result, err := h.conversationUseCase.GetConversationByID(c.Request().Context(), userID, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *ConversationHandler) DeleteConversation(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	if err := h.conversationUseCase.DeleteConversation(c.Request().Context(), userID, conversationID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message": "Conversation deleted successfully",
	})
}

type sendMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

func (h *ConversationHandler) SendMessage(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.conversationUseCase.SendMessage(c.Request().Context(), userID, conversationID, req.Body)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, result)
}

func (h *ConversationHandler) GetConversationMessages(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")
	pagination := utils.GetPaginationParams(c)

	messages, total, err := h.conversationUseCase.GetConversationMessages(c.Request().Context(), userID, conversationID, pagination.Limit, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, messages, total, pagination.Limit, pagination.Offset)
}

func (h *ConversationHandler) MarkMessageSeen(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")
	messageID := c.Param("messageId")

	if err := h.conversationUseCase.MarkMessageSeen(c.Request().Context(), userID, conversationID, messageID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message": "Message marked as seen",
	})
}
