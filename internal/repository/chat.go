package repository

import (
	"context"
	"errors"
	"time"

	"atelier/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the storage primitives under the conversation
// engine. Multi-step invariants (counter bookkeeping, read receipts) run
// inside transactions here; orchestration and access control live in the
// chat service.
type ChatRepository interface {
	GetConversation(ctx context.Context, id uint) (*models.Conversation, error)
	FindSupportConversation(ctx context.Context, userID uint) (*models.Conversation, error)
	FindOrderConversation(ctx context.Context, userID, orderID uint) (*models.Conversation, error)
	// CreateConversationIfAbsent inserts conv unless a row already satisfies
	// the partial unique indexes, in which case it loads the winning row into
	// conv. Returns true only when this call created the row.
	CreateConversationIfAbsent(ctx context.Context, conv *models.Conversation) (bool, error)
	// AppendMessage atomically inserts the message and updates the parent
	// conversation's preview, timestamp, and unread counters.
	AppendMessage(ctx context.Context, msg *models.Message, preview string, incUser, incAdmin bool) error
	MarkReadForUser(ctx context.Context, convID uint) error
	MarkReadForAdmin(ctx context.Context, convID uint) error
	Messages(ctx context.Context, convID uint, limit int, cursor *uint) ([]models.Message, *uint, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error)
	ListAdmin(ctx context.Context, status models.OrderStatus, unreadOnly bool, limit, offset int) ([]models.Conversation, int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) GetConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).First(&conv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Conversation", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &conv, nil
}

func (r *chatRepository) FindSupportConversation(ctx context.Context, userID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_support = ?", userID, true).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &conv, nil
}

func (r *chatRepository) FindOrderConversation(ctx context.Context, userID, orderID uint) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND order_id = ?", userID, orderID).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &conv, nil
}

func (r *chatRepository) CreateConversationIfAbsent(ctx context.Context, conv *models.Conversation) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(conv)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// Lost the race: load the row the winner created.
	q := r.db.WithContext(ctx).Where("user_id = ?", conv.UserID)
	if conv.IsSupport {
		q = q.Where("is_support = ?", true)
	} else {
		q = q.Where("order_id = ?", conv.OrderID)
	}
	if err := q.First(conv).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return false, nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, msg *models.Message, preview string, incUser, incAdmin bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		if err := tx.First(&conv, msg.ConversationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Conversation", msg.ConversationID)
			}
			return err
		}

		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"last_message_preview": preview,
			"last_message_at":      msg.CreatedAt,
		}
		if incUser {
			updates["unread_for_user"] = gorm.Expr("unread_for_user + 1")
		}
		if incAdmin {
			updates["unread_for_admin"] = gorm.Expr("unread_for_admin + 1")
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Updates(updates).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *chatRepository) MarkReadForUser(ctx context.Context, convID uint) error {
	return r.markRead(ctx, convID, "unread_for_user", "read_by_user", models.SenderUser)
}

func (r *chatRepository) MarkReadForAdmin(ctx context.Context, convID uint) error {
	return r.markRead(ctx, convID, "unread_for_admin", "read_by_admin", models.SenderAdmin)
}

// markRead zeroes one unread counter and stamps the matching read receipt on
// every unread message not authored by the reading side. Receipts are
// monotonic: a NULL check keeps earlier timestamps intact.
func (r *chatRepository) markRead(ctx context.Context, convID uint, counterCol, receiptCol string, ownSender models.SenderType) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Conversation{}).
			Where("id = ?", convID).
			Update(counterCol, 0)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Conversation", convID)
		}

		return tx.Model(&models.Message{}).
			Where("conversation_id = ? AND "+receiptCol+" IS NULL AND sender_type <> ?", convID, ownSender).
			Update(receiptCol, time.Now().UTC()).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *chatRepository) Messages(ctx context.Context, convID uint, limit int, cursor *uint) ([]models.Message, *uint, error) {
	q := r.db.WithContext(ctx).Where("conversation_id = ?", convID)

	if cursor != nil {
		var anchor models.Message
		err := r.db.WithContext(ctx).
			Where("id = ? AND conversation_id = ?", *cursor, convID).
			First(&anchor).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, models.NewValidationError("Invalid pagination cursor")
			}
			return nil, nil, models.NewInternalError(err)
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)",
			anchor.CreatedAt, anchor.CreatedAt, anchor.ID)
	}

	// Fetch one extra row to learn whether an older page exists.
	var messages []models.Message
	err := q.Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&messages).Error
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}

	var nextCursor *uint
	if len(messages) > limit {
		messages = messages[:limit]
		id := messages[len(messages)-1].ID
		nextCursor = &id
	}

	// Oldest first for the client.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nextCursor, nil
}

func (r *chatRepository) ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_message_at DESC, id DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return conversations, nil
}

func (r *chatRepository) ListAdmin(ctx context.Context, status models.OrderStatus, unreadOnly bool, limit, offset int) ([]models.Conversation, int64, error) {
	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Conversation{})
		if unreadOnly {
			q = q.Where("unread_for_admin > 0")
		}
		if status != "" {
			q = q.Joins("JOIN orders ON orders.id = conversations.order_id").
				Where("orders.status = ?", status)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var conversations []models.Conversation
	err := filtered().
		Preload("User").
		Preload("Order").
		Order("unread_for_admin DESC, last_message_at DESC, conversations.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&conversations).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return conversations, total, nil
}
