// Package service provides application business logic (chat, orders, catalog, accounts).
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"atelier/internal/models"
	"atelier/internal/observability"
	"atelier/internal/repository"
)

const (
	maxMessageTextLen = 4000
	previewMaxRunes   = 160

	supportThreadTitle = "Concierge support"
	welcomeNoteText    = "The concierge team is online 24/7 for post-purchase support."
	orderPlacedText    = "We've received your order."
	paymentOKText      = "Payment confirmed."

	defaultThreadPageSize = 40
	maxThreadPageSize     = 100
)

// ChatService implements the conversation engine: per-user threads tied to
// orders or support, append-only messages, and denormalized unread counters
// kept consistent with per-message read state.
type ChatService struct {
	chatRepo repository.ChatRepository
}

// NewChatService returns a new ChatService.
func NewChatService(chatRepo repository.ChatRepository) *ChatService {
	return &ChatService{chatRepo: chatRepo}
}

// AppendMessageInput is the input for appending a message to a thread.
type AppendMessageInput struct {
	SenderType models.SenderType
	Kind       models.MessageKind
	Text       string
	Payload    json.RawMessage
	SenderID   *uint
}

// ThreadPage is one page of a thread's messages, oldest first. NextCursor
// points at the oldest returned message when an older page exists.
type ThreadPage struct {
	Messages   []models.Message `json:"messages"`
	NextCursor *uint            `json:"next_cursor"`
}

// derivePreview computes the one-line thread preview for a message.
// Priority: code payloads, order status updates, plain text, fallback.
func derivePreview(msg *models.Message) string {
	if code, ok := msg.DecodeCodePayload(); ok {
		return "Code " + code.Code
	}
	if msg.Kind == models.KindOrderStatus {
		if msg.Text != "" {
			return truncatePreview(msg.Text)
		}
		return "Order update"
	}
	if msg.Text != "" {
		return truncatePreview(msg.Text)
	}
	return "New message"
}

func truncatePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewMaxRunes {
		return text
	}
	return string(runes[:previewMaxRunes-3]) + "…"
}

// AppendMessage appends a message to a conversation and updates the parent
// thread's preview, timestamp and unread counter in one transaction.
// Messages from the user side raise the admin counter; admin and system
// messages raise the user counter.
func (s *ChatService) AppendMessage(ctx context.Context, conversationID uint, in AppendMessageInput) (*models.Message, error) {
	switch in.SenderType {
	case models.SenderUser, models.SenderAdmin, models.SenderSystem:
	default:
		return nil, models.NewValidationError("Invalid sender type")
	}
	if in.Kind == "" {
		in.Kind = models.KindText
	}
	switch in.Kind {
	case models.KindText, models.KindOrderStatus, models.KindCode, models.KindNote:
	default:
		return nil, models.NewValidationError("Invalid message kind")
	}
	if in.Kind == models.KindText && strings.TrimSpace(in.Text) == "" {
		return nil, models.NewValidationError("Message text is required")
	}
	if len([]rune(in.Text)) > maxMessageTextLen {
		return nil, models.NewValidationError("Message text too long (max 4000 characters)")
	}

	now := time.Now().UTC()
	msg := &models.Message{
		ConversationID: conversationID,
		SenderType:     in.SenderType,
		Kind:           in.Kind,
		Text:           in.Text,
		Payload:        in.Payload,
		SenderID:       in.SenderID,
		CreatedAt:      now,
	}

	// The author's own side has read the message by definition.
	incUser := false
	incAdmin := false
	switch in.SenderType {
	case models.SenderUser:
		msg.ReadByUser = &now
		incAdmin = true
	default:
		msg.ReadByAdmin = &now
		incUser = true
	}

	preview := derivePreview(msg)
	if err := s.chatRepo.AppendMessage(ctx, msg, preview, incUser, incAdmin); err != nil {
		return nil, err
	}

	observability.MessagesAppended.WithLabelValues(string(msg.SenderType), string(msg.Kind)).Inc()
	return msg, nil
}

// SendUserMessage appends a TEXT message from the thread's owner.
func (s *ChatService) SendUserMessage(ctx context.Context, userID, conversationID uint, text string) (*models.Message, error) {
	conv, err := s.chatRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, models.NewForbiddenError("You do not have access to this conversation")
	}
	return s.AppendMessage(ctx, conversationID, AppendMessageInput{
		SenderType: models.SenderUser,
		Kind:       models.KindText,
		Text:       text,
		SenderID:   &userID,
	})
}

// SendAdminMessage appends a message from the concierge side. Kind defaults
// to TEXT; CODE messages carry a code payload.
func (s *ChatService) SendAdminMessage(ctx context.Context, adminID, conversationID uint, text string, kind models.MessageKind, payload json.RawMessage) (*models.Message, error) {
	if _, err := s.chatRepo.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.AppendMessage(ctx, conversationID, AppendMessageInput{
		SenderType: models.SenderAdmin,
		Kind:       kind,
		Text:       text,
		Payload:    payload,
		SenderID:   &adminID,
	})
}

// EnsureSupportConversation returns the user's standing support thread,
// creating it on first use. Creation is race-safe: a partial unique index
// guarantees at most one support thread per user, and the welcome note is
// appended only by the caller that actually created the row.
func (s *ChatService) EnsureSupportConversation(ctx context.Context, userID uint) (*models.Conversation, error) {
	if existing, err := s.chatRepo.FindSupportConversation(ctx, userID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	conv := &models.Conversation{
		UserID:        userID,
		IsSupport:     true,
		Title:         supportThreadTitle,
		LastMessageAt: time.Now().UTC(),
	}
	created, err := s.chatRepo.CreateConversationIfAbsent(ctx, conv)
	if err != nil {
		return nil, err
	}
	if created {
		_, err = s.AppendMessage(ctx, conv.ID, AppendMessageInput{
			SenderType: models.SenderAdmin,
			Kind:       models.KindNote,
			Text:       welcomeNoteText,
		})
		if err != nil {
			return nil, err
		}
	}
	return s.chatRepo.GetConversation(ctx, conv.ID)
}

// orderThreadTitle derives the thread title from the order reference and
// its first line item, falling back to the bare reference handle.
func orderThreadTitle(order *models.Order) string {
	title := "Order " + models.FormatOrderReference(order.Reference)
	if len(order.Items) > 0 && order.Items[0].Product != nil && order.Items[0].Product.Name != "" {
		title = fmt.Sprintf("%s · %s", title, order.Items[0].Product.Name)
	}
	return title
}

// EnsureOrderConversation returns the thread tied to the given order,
// creating it on first use. Same race-safety as the support thread, keyed
// on (user_id, order_id).
func (s *ChatService) EnsureOrderConversation(ctx context.Context, order *models.Order) (*models.Conversation, bool, error) {
	if existing, err := s.chatRepo.FindOrderConversation(ctx, order.UserID, order.ID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	orderID := order.ID
	conv := &models.Conversation{
		UserID:        order.UserID,
		OrderID:       &orderID,
		Title:         orderThreadTitle(order),
		LastMessageAt: time.Now().UTC(),
	}
	created, err := s.chatRepo.CreateConversationIfAbsent(ctx, conv)
	if err != nil {
		return nil, false, err
	}
	return conv, created, nil
}

// BootstrapOrderConversation ensures the order's thread exists and, on
// first creation, seeds it with the two system status messages in order:
// order placed, then payment confirmed.
func (s *ChatService) BootstrapOrderConversation(ctx context.Context, order *models.Order) (*models.Conversation, error) {
	conv, created, err := s.EnsureOrderConversation(ctx, order)
	if err != nil {
		return nil, err
	}
	if !created {
		return conv, nil
	}

	seeds := []struct {
		event string
		text  string
	}{
		{models.EventOrderPlaced, orderPlacedText},
		{models.EventPaymentConfirmed, paymentOKText},
	}
	for _, seed := range seeds {
		payload := models.MarshalPayload(models.OrderStatusPayload{
			Event:   seed.event,
			OrderID: order.ID,
			Status:  order.Status,
		})
		_, err := s.AppendMessage(ctx, conv.ID, AppendMessageInput{
			SenderType: models.SenderSystem,
			Kind:       models.KindOrderStatus,
			Text:       seed.text,
			Payload:    payload,
		})
		if err != nil {
			return nil, err
		}
	}
	return s.chatRepo.GetConversation(ctx, conv.ID)
}

// MarkConversationAsReadForUser clears the owner's unread state. Idempotent.
func (s *ChatService) MarkConversationAsReadForUser(ctx context.Context, userID, conversationID uint) error {
	conv, err := s.chatRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.UserID != userID {
		return models.NewForbiddenError("You do not have access to this conversation")
	}
	return s.chatRepo.MarkReadForUser(ctx, conversationID)
}

// MarkConversationAsReadForAdmin clears the concierge unread state. Idempotent.
func (s *ChatService) MarkConversationAsReadForAdmin(ctx context.Context, conversationID uint) error {
	if _, err := s.chatRepo.GetConversation(ctx, conversationID); err != nil {
		return err
	}
	return s.chatRepo.MarkReadForAdmin(ctx, conversationID)
}

func clampPageSize(limit int) int {
	if limit <= 0 {
		return defaultThreadPageSize
	}
	if limit > maxThreadPageSize {
		return maxThreadPageSize
	}
	return limit
}

// GetThreadMessagesForUser returns one page of the thread, owner-checked.
func (s *ChatService) GetThreadMessagesForUser(ctx context.Context, userID, conversationID uint, limit int, cursor *uint) (*ThreadPage, error) {
	conv, err := s.chatRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, models.NewForbiddenError("You do not have access to this conversation")
	}
	return s.threadPage(ctx, conversationID, limit, cursor)
}

// GetThreadMessages returns one page of the thread without an ownership
// check. Admin surface only.
func (s *ChatService) GetThreadMessages(ctx context.Context, conversationID uint, limit int, cursor *uint) (*ThreadPage, error) {
	if _, err := s.chatRepo.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.threadPage(ctx, conversationID, limit, cursor)
}

func (s *ChatService) threadPage(ctx context.Context, conversationID uint, limit int, cursor *uint) (*ThreadPage, error) {
	limit = clampPageSize(limit)
	messages, nextCursor, err := s.chatRepo.Messages(ctx, conversationID, limit, cursor)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return &ThreadPage{Messages: messages, NextCursor: nextCursor}, nil
}

// ListThreadsForUser returns the user's threads, most recent activity first.
func (s *ChatService) ListThreadsForUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	return s.chatRepo.ListForUser(ctx, userID)
}

// ListAdminThreads returns the concierge inbox, optionally filtered to
// threads with unread customer messages or to a single order status.
func (s *ChatService) ListAdminThreads(ctx context.Context, status models.OrderStatus, unreadOnly bool, limit, offset int) ([]models.Conversation, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if status != "" {
		switch status {
		case models.OrderPlaced, models.OrderProcessing, models.OrderShipped, models.OrderDelivered, models.OrderCancelled:
		default:
			return nil, 0, models.NewValidationError("Invalid order status filter")
		}
	}
	return s.chatRepo.ListAdmin(ctx, status, unreadOnly, limit, offset)
}
