package models

import (
	"encoding/json"
	"time"
)

// SenderType identifies who authored a message.
type SenderType string

const (
	SenderUser   SenderType = "USER"
	SenderAdmin  SenderType = "ADMIN"
	SenderSystem SenderType = "SYSTEM"
)

// MessageKind discriminates the payload shape carried by a message.
type MessageKind string

const (
	KindText        MessageKind = "TEXT"
	KindOrderStatus MessageKind = "ORDER_STATUS"
	KindCode        MessageKind = "CODE"
	KindNote        MessageKind = "NOTE"
)

// Conversation is a per-user message thread, either tied to one order or
// marked as the user's standing support channel. The unread counters are
// denormalized from per-message read state and must only be touched through
// the chat service's transactional operations.
type Conversation struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;index" json:"user_id"`
	User               *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OrderID            *uint     `gorm:"index" json:"order_id"`
	Order              *Order    `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	IsSupport          bool      `gorm:"default:false" json:"is_support"`
	Title              string    `json:"title"`
	LastMessagePreview string    `json:"last_message_preview"`
	LastMessageAt      time.Time `json:"last_message_at"`
	UnreadForUser      int       `gorm:"default:0" json:"unread_for_user"`
	UnreadForAdmin     int       `gorm:"default:0" json:"unread_for_admin"`
	Messages           []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Message is one entry in a conversation. Rows are immutable after creation
// except for the two read-receipt timestamps, which are monotonic: once set
// they are never cleared.
type Message struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ConversationID uint            `gorm:"not null;index" json:"conversation_id"`
	SenderType     SenderType      `gorm:"type:varchar(16);not null" json:"sender_type"`
	Kind           MessageKind     `gorm:"type:varchar(16);default:'TEXT'" json:"kind"`
	Text           string          `gorm:"type:text" json:"text"`
	Payload        json.RawMessage `gorm:"type:text" json:"payload,omitempty"`
	SenderID       *uint           `gorm:"index" json:"sender_id"`
	ReadByUser     *time.Time      `json:"read_by_user"`
	ReadByAdmin    *time.Time      `json:"read_by_admin"`
	CreatedAt      time.Time       `json:"created_at"`
}

// OrderStatusPayload is the machine-readable body of ORDER_STATUS messages.
type OrderStatusPayload struct {
	Event   string      `json:"event"`
	OrderID uint        `json:"orderId"`
	Status  OrderStatus `json:"status"`
}

// CodePayload is the body of CODE messages (discount or pickup codes).
type CodePayload struct {
	Code         string `json:"code"`
	Instructions string `json:"instructions,omitempty"`
}

// Order status conversation events.
const (
	EventOrderPlaced      = "ORDER_PLACED"
	EventPaymentConfirmed = "PAYMENT_CONFIRMED"
	EventStatusChanged    = "STATUS_CHANGED"
)

// MarshalPayload encodes a typed payload for storage on a message row.
// A nil input stays nil so the column remains NULL.
func MarshalPayload(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// DecodeCodePayload extracts the CODE payload from a message, if present.
func (m *Message) DecodeCodePayload() (CodePayload, bool) {
	if m.Kind != KindCode || len(m.Payload) == 0 {
		return CodePayload{}, false
	}
	var p CodePayload
	if err := json.Unmarshal(m.Payload, &p); err != nil || p.Code == "" {
		return CodePayload{}, false
	}
	return p, true
}
