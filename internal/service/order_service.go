package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"atelier/internal/models"
	"atelier/internal/observability"
	"atelier/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// OrderService implements checkout and order lifecycle operations.
type OrderService struct {
	db        *gorm.DB
	cartRepo  repository.CartRepository
	orderRepo repository.OrderRepository
	chat      *ChatService
}

// NewOrderService returns a new OrderService.
func NewOrderService(db *gorm.DB, cartRepo repository.CartRepository, orderRepo repository.OrderRepository, chat *ChatService) *OrderService {
	return &OrderService{db: db, cartRepo: cartRepo, orderRepo: orderRepo, chat: chat}
}

// CheckoutInput is the input for placing an order.
type CheckoutInput struct {
	PaymentMethod string                  `json:"payment_method"`
	Shipping      models.ShippingSnapshot `json:"shipping"`
}

func roundToCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Checkout converts the user's cart into an order in a single transaction:
// total from current prices, copied unit prices, conditional inventory
// decrements, cart cleared. After commit the support thread is ensured and
// the order's thread is bootstrapped with its two status messages.
func (s *OrderService) Checkout(ctx context.Context, userID uint, in CheckoutInput) (*models.Order, error) {
	span, ctx := observability.NewSpan(ctx, "OrderService.Checkout")
	defer span.End()
	span.AddAttributes(attribute.Int64("user.id", int64(userID)))

	cart, err := s.cartRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		observability.CheckoutFailures.WithLabelValues("empty_cart").Inc()
		return nil, models.NewValidationError("Cart is empty")
	}

	if strings.TrimSpace(in.Shipping.FullName) == "" || strings.TrimSpace(in.Shipping.Address) == "" {
		observability.CheckoutFailures.WithLabelValues("invalid_shipping").Inc()
		return nil, models.NewValidationError("Shipping name and address are required")
	}
	paymentMethod := strings.ToUpper(strings.TrimSpace(in.PaymentMethod))
	if paymentMethod == "" {
		paymentMethod = "CARD"
	}

	var orderID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total float64
		items := make([]models.OrderItem, 0, len(cart.Items))

		for _, item := range cart.Items {
			var product models.Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					observability.CheckoutFailures.WithLabelValues("missing_product").Inc()
					return models.NewValidationError(fmt.Sprintf("Product %d is no longer available", item.ProductID))
				}
				return err
			}

			// Conditional decrement: zero rows means not enough stock, and
			// the whole transaction rolls back.
			res := tx.Model(&models.Inventory{}).
				Where("product_id = ? AND quantity >= ?", product.ID, item.Quantity).
				Update("quantity", gorm.Expr("quantity - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				observability.CheckoutFailures.WithLabelValues("insufficient_stock").Inc()
				return models.NewValidationError(fmt.Sprintf("Insufficient stock for %s", product.Name))
			}

			total += product.Price * float64(item.Quantity)
			items = append(items, models.OrderItem{
				ProductID:     product.ID,
				Quantity:      item.Quantity,
				UnitPrice:     product.Price,
				SelectedSize:  item.SelectedSize,
				SelectedColor: item.SelectedColor,
			})
		}

		order := models.Order{
			UserID:          userID,
			Reference:       uuid.NewString(),
			Total:           roundToCents(total),
			Status:          models.OrderPlaced,
			PaymentMethod:   paymentMethod,
			ShippingAddress: in.Shipping,
			Items:           items,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		orderID = order.ID

		return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		span.SetError(err)
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, models.NewInternalError(err)
	}

	span.AddAttributes(attribute.Int64("order.id", int64(orderID)))
	observability.OrdersPlaced.Inc()

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if _, err := s.chat.EnsureSupportConversation(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.chat.BootstrapOrderConversation(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID uint, limit, offset int) ([]models.Order, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.orderRepo.ListForUser(ctx, userID, limit, offset)
}

// GetOrderForUser returns the order if it belongs to the user.
func (s *OrderService) GetOrderForUser(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, models.NewNotFoundError("Order", orderID)
	}
	return order, nil
}

// ListAllOrders returns orders across all users. Admin surface only.
func (s *OrderService) ListAllOrders(ctx context.Context, status models.OrderStatus, limit, offset int) ([]models.Order, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.orderRepo.ListAll(ctx, status, limit, offset)
}

// UpdateOrderStatus moves an order to a new status and posts a system
// status message into the order's thread. Admin surface only.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uint, status models.OrderStatus) (*models.Order, error) {
	switch status {
	case models.OrderPlaced, models.OrderProcessing, models.OrderShipped, models.OrderDelivered, models.OrderCancelled:
	default:
		return nil, models.NewValidationError("Invalid order status")
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	conv, _, err := s.chat.EnsureOrderConversation(ctx, order)
	if err != nil {
		return nil, err
	}
	payload := models.MarshalPayload(models.OrderStatusPayload{
		Event:   models.EventStatusChanged,
		OrderID: order.ID,
		Status:  order.Status,
	})
	_, err = s.chat.AppendMessage(ctx, conv.ID, AppendMessageInput{
		SenderType: models.SenderSystem,
		Kind:       models.KindOrderStatus,
		Text:       fmt.Sprintf("Order %s is now %s.", models.FormatOrderReference(order.Reference), strings.ToLower(string(order.Status))),
		Payload:    payload,
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
