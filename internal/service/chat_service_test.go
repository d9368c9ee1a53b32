package service

import (
	"context"
	"strings"
	"testing"

	"atelier/internal/database"
	"atelier/internal/models"
	"atelier/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newChatFixture(t *testing.T) (*ChatService, repository.ChatRepository, *gorm.DB, *models.User) {
	t.Helper()
	db := newServiceTestDB(t)
	repo := repository.NewChatRepository(db)
	svc := NewChatService(repo)

	user := &models.User{Name: "Maya", Email: "maya@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	return svc, repo, db, user
}

func TestChatService_AppendMessage_Validation(t *testing.T) {
	svc, _, db, user := newChatFixture(t)
	ctx := context.Background()

	conv := &models.Conversation{UserID: user.ID, IsSupport: true, Title: "Support"}
	require.NoError(t, db.Create(conv).Error)

	t.Run("Invalid sender", func(t *testing.T) {
		_, err := svc.AppendMessage(ctx, conv.ID, AppendMessageInput{
			SenderType: "ROBOT",
			Text:       "hi",
		})
		assert.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", err.(*models.AppError).Code)
	})

	t.Run("Blank text", func(t *testing.T) {
		_, err := svc.AppendMessage(ctx, conv.ID, AppendMessageInput{
			SenderType: models.SenderUser,
			Text:       "   ",
		})
		assert.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", err.(*models.AppError).Code)
	})

	t.Run("Text too long", func(t *testing.T) {
		_, err := svc.AppendMessage(ctx, conv.ID, AppendMessageInput{
			SenderType: models.SenderUser,
			Text:       strings.Repeat("a", maxMessageTextLen+1),
		})
		assert.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", err.(*models.AppError).Code)
	})

	t.Run("Missing conversation", func(t *testing.T) {
		_, err := svc.AppendMessage(ctx, 9999, AppendMessageInput{
			SenderType: models.SenderUser,
			Text:       "hello",
		})
		assert.Error(t, err)
		assert.Equal(t, "NOT_FOUND", err.(*models.AppError).Code)
	})
}

func TestChatService_UnreadCounters(t *testing.T) {
	svc, _, db, user := newChatFixture(t)
	ctx := context.Background()

	conv := &models.Conversation{UserID: user.ID, IsSupport: true, Title: "Support"}
	require.NoError(t, db.Create(conv).Error)

	// A user message raises the admin counter and arrives pre-read on the
	// user side.
	msg, err := svc.AppendMessage(ctx, conv.ID, AppendMessageInput{
		SenderType: models.SenderUser,
		Text:       "Where is my parcel?",
		SenderID:   &user.ID,
	})
	require.NoError(t, err)
	assert.NotNil(t, msg.ReadByUser)
	assert.Nil(t, msg.ReadByAdmin)

	// An admin reply raises the user counter.
	_, err = svc.AppendMessage(ctx, conv.ID, AppendMessageInput{
		SenderType: models.SenderAdmin,
		Text:       "On its way!",
	})
	require.NoError(t, err)

	var reloaded models.Conversation
	require.NoError(t, db.First(&reloaded, conv.ID).Error)
	assert.Equal(t, 1, reloaded.UnreadForAdmin)
	assert.Equal(t, 1, reloaded.UnreadForUser)
	assert.Equal(t, "On its way!", reloaded.LastMessagePreview)

	// Reading clears the counter and stamps receipts; reading again is a
	// no-op.
	require.NoError(t, svc.MarkConversationAsReadForUser(ctx, user.ID, conv.ID))
	require.NoError(t, svc.MarkConversationAsReadForUser(ctx, user.ID, conv.ID))

	require.NoError(t, db.First(&reloaded, conv.ID).Error)
	assert.Equal(t, 0, reloaded.UnreadForUser)
	assert.Equal(t, 1, reloaded.UnreadForAdmin)

	var adminMsg models.Message
	require.NoError(t, db.Where("conversation_id = ? AND sender_type = ?", conv.ID, models.SenderAdmin).First(&adminMsg).Error)
	assert.NotNil(t, adminMsg.ReadByUser)
}

func TestChatService_MarkRead_Forbidden(t *testing.T) {
	svc, _, db, user := newChatFixture(t)
	ctx := context.Background()

	conv := &models.Conversation{UserID: user.ID, IsSupport: true, Title: "Support"}
	require.NoError(t, db.Create(conv).Error)

	err := svc.MarkConversationAsReadForUser(ctx, user.ID+1, conv.ID)
	assert.Error(t, err)
	assert.Equal(t, "FORBIDDEN", err.(*models.AppError).Code)
}

func TestChatService_PreviewRules(t *testing.T) {
	t.Run("Code payload", func(t *testing.T) {
		msg := &models.Message{
			Kind:    models.KindCode,
			Text:    "Here is your discount",
			Payload: models.MarshalPayload(models.CodePayload{Code: "WELCOME10"}),
		}
		assert.Equal(t, "Code WELCOME10", derivePreview(msg))
	})

	t.Run("Order status with text", func(t *testing.T) {
		msg := &models.Message{Kind: models.KindOrderStatus, Text: "We've received your order."}
		assert.Equal(t, "We've received your order.", derivePreview(msg))
	})

	t.Run("Order status without text", func(t *testing.T) {
		msg := &models.Message{Kind: models.KindOrderStatus}
		assert.Equal(t, "Order update", derivePreview(msg))
	})

	t.Run("Long text truncated", func(t *testing.T) {
		msg := &models.Message{Kind: models.KindText, Text: strings.Repeat("x", 500)}
		preview := derivePreview(msg)
		// 157 kept runes plus the ellipsis rune.
		assert.Equal(t, 158, len([]rune(preview)))
		assert.True(t, strings.HasSuffix(preview, "…"))
	})

	t.Run("Text at the limit kept verbatim", func(t *testing.T) {
		text := strings.Repeat("y", previewMaxRunes)
		msg := &models.Message{Kind: models.KindText, Text: text}
		assert.Equal(t, text, derivePreview(msg))
	})

	t.Run("Short text kept verbatim", func(t *testing.T) {
		msg := &models.Message{Kind: models.KindText, Text: "thanks!"}
		assert.Equal(t, "thanks!", derivePreview(msg))
	})

	t.Run("Empty note", func(t *testing.T) {
		msg := &models.Message{Kind: models.KindNote}
		assert.Equal(t, "New message", derivePreview(msg))
	})
}

func TestChatService_EnsureSupportConversation_Idempotent(t *testing.T) {
	svc, _, db, user := newChatFixture(t)
	ctx := context.Background()

	first, err := svc.EnsureSupportConversation(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, first.IsSupport)
	assert.Equal(t, "Concierge support", first.Title)

	second, err := svc.EnsureSupportConversation(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Exactly one thread and one welcome note regardless of repeat calls.
	var convCount, msgCount int64
	require.NoError(t, db.Model(&models.Conversation{}).Where("user_id = ?", user.ID).Count(&convCount).Error)
	require.NoError(t, db.Model(&models.Message{}).Where("conversation_id = ?", first.ID).Count(&msgCount).Error)
	assert.EqualValues(t, 1, convCount)
	assert.EqualValues(t, 1, msgCount)
}

func TestChatService_SendUserMessage_OwnerOnly(t *testing.T) {
	svc, _, db, user := newChatFixture(t)
	ctx := context.Background()

	other := &models.User{Name: "Lena", Email: "lena@example.com", Password: "x"}
	require.NoError(t, db.Create(other).Error)

	conv, err := svc.EnsureSupportConversation(ctx, user.ID)
	require.NoError(t, err)

	_, err = svc.SendUserMessage(ctx, other.ID, conv.ID, "let me in")
	assert.Error(t, err)
	assert.Equal(t, "FORBIDDEN", err.(*models.AppError).Code)

	msg, err := svc.SendUserMessage(ctx, user.ID, conv.ID, "hello there")
	require.NoError(t, err)
	assert.Equal(t, models.SenderUser, msg.SenderType)
}

func TestChatService_CursorPagination(t *testing.T) {
	svc, _, db, user := newChatFixture(t)
	ctx := context.Background()

	conv := &models.Conversation{UserID: user.ID, IsSupport: true, Title: "Support"}
	require.NoError(t, db.Create(conv).Error)

	texts := []string{"one", "two", "three", "four", "five"}
	for _, text := range texts {
		_, err := svc.AppendMessage(ctx, conv.ID, AppendMessageInput{
			SenderType: models.SenderUser,
			Text:       text,
		})
		require.NoError(t, err)
	}

	// Page 1: the two newest, oldest first within the page.
	page, err := svc.GetThreadMessagesForUser(ctx, user.ID, conv.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "four", page.Messages[0].Text)
	assert.Equal(t, "five", page.Messages[1].Text)
	require.NotNil(t, page.NextCursor)

	// Page 2.
	page, err = svc.GetThreadMessagesForUser(ctx, user.ID, conv.ID, 2, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "two", page.Messages[0].Text)
	assert.Equal(t, "three", page.Messages[1].Text)
	require.NotNil(t, page.NextCursor)

	// Final page has the oldest message and no further cursor.
	page, err = svc.GetThreadMessagesForUser(ctx, user.ID, conv.ID, 2, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "one", page.Messages[0].Text)
	assert.Nil(t, page.NextCursor)

	t.Run("Invalid cursor", func(t *testing.T) {
		bogus := uint(424242)
		_, err := svc.GetThreadMessagesForUser(ctx, user.ID, conv.ID, 2, &bogus)
		assert.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", err.(*models.AppError).Code)
	})
}

func TestChatService_ListAdminThreads(t *testing.T) {
	svc, _, db, user := newChatFixture(t)
	ctx := context.Background()

	conv, err := svc.EnsureSupportConversation(ctx, user.ID)
	require.NoError(t, err)

	_, err = svc.SendUserMessage(ctx, user.ID, conv.ID, "need help with sizing")
	require.NoError(t, err)

	quiet := &models.Conversation{UserID: user.ID, Title: "Quiet thread"}
	orderID := seedOrderForThread(t, db, user.ID)
	quiet.OrderID = &orderID
	require.NoError(t, db.Create(quiet).Error)

	threads, total, err := svc.ListAdminThreads(ctx, "", false, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.NotEmpty(t, threads)
	// Unread threads sort first.
	assert.Equal(t, conv.ID, threads[0].ID)

	unread, total, err := svc.ListAdminThreads(ctx, "", true, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, unread, 1)
	assert.Equal(t, conv.ID, unread[0].ID)

	t.Run("Status filter", func(t *testing.T) {
		placed, total, err := svc.ListAdminThreads(ctx, models.OrderPlaced, false, 20, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, placed, 1)
		assert.Equal(t, quiet.ID, placed[0].ID)
	})

	t.Run("Unknown status rejected", func(t *testing.T) {
		_, _, err := svc.ListAdminThreads(ctx, "TELEPORTED", false, 20, 0)
		assert.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", err.(*models.AppError).Code)
	})
}

func seedOrderForThread(t *testing.T, db *gorm.DB, userID uint) uint {
	t.Helper()
	order := models.Order{
		UserID:    userID,
		Reference: "ref-" + t.Name(),
		Total:     10,
		Status:    models.OrderPlaced,
	}
	require.NoError(t, db.Create(&order).Error)
	return order.ID
}
