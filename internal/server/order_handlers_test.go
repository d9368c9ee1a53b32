package server

import (
	"fmt"
	"net/http"
	"testing"

	"atelier/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedStorefront(t *testing.T, db *gorm.DB) models.Product {
	t.Helper()
	product := models.Product{Name: "Wrap Coat", SKU: "OUT-1", Price: 189.90}
	require.NoError(t, db.Create(&product).Error)
	require.NoError(t, db.Create(&models.Inventory{ProductID: product.ID, Quantity: 5}).Error)
	return product
}

func TestCartAndCheckoutFlow(t *testing.T) {
	_, app, db := newTestServer(t)
	token, _ := registerUser(t, app, "maya@example.com")
	product := seedStorefront(t, db)

	t.Run("Empty cart on first read", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/api/cart", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		cart := body["cart"].(map[string]any)
		assert.Empty(t, cart["items"])
	})

	t.Run("Put replaces the cart", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPut, "/api/cart", token, map[string]any{
			"items": []map[string]any{
				{"product_id": product.ID, "quantity": 2, "selected_size": "m"},
			},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		cart := body["cart"].(map[string]any)
		items := cart["items"].([]any)
		require.Len(t, items, 1)
		assert.EqualValues(t, 2, items[0].(map[string]any)["quantity"].(float64))
	})

	t.Run("Missing product id rejected", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPut, "/api/cart", token, map[string]any{
			"items": []map[string]any{{"quantity": 1}},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Checkout", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/api/orders/checkout", token, map[string]any{
			"payment_method": "card",
			"shipping": map[string]string{
				"full_name":   "Maya Lindqvist",
				"address":     "12 Atelier Row",
				"city":        "Stockholm",
				"postal_code": "111 22",
			},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		order := body["order"].(map[string]any)
		assert.Equal(t, "PLACED", order["status"])
		assert.InDelta(t, 379.80, order["total"].(float64), 0.001)
	})

	t.Run("Checkout again with empty cart fails", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPost, "/api/orders/checkout", token, map[string]any{
			"shipping": map[string]string{
				"full_name": "Maya Lindqvist", "address": "12 Atelier Row",
			},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Order history", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/api/orders", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 1, body["total"].(float64))
		orders := body["orders"].([]any)
		require.Len(t, orders, 1)
	})

	t.Run("Account order carries its thread id", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/api/account/orders", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		orders := body["orders"].([]any)
		require.Len(t, orders, 1)
		assert.NotNil(t, orders[0].(map[string]any)["conversation_id"])
	})
}

func TestAdminOrderStatus(t *testing.T) {
	_, app, db := newTestServer(t)
	userToken, _ := registerUser(t, app, "maya@example.com")
	adminToken, adminID := registerUser(t, app, "admin@example.com")
	promoteToAdmin(t, db, adminID)

	product := seedStorefront(t, db)
	_, _ = doJSON(t, app, http.MethodPut, "/api/cart", userToken, map[string]any{
		"items": []map[string]any{{"product_id": product.ID, "quantity": 1}},
	})
	resp, body := doJSON(t, app, http.MethodPost, "/api/orders/checkout", userToken, map[string]any{
		"shipping": map[string]string{"full_name": "Maya Lindqvist", "address": "12 Atelier Row"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := uint(body["order"].(map[string]any)["id"].(float64))

	t.Run("List all orders", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodGet, "/api/admin/orders", adminToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 1, body["total"].(float64))
	})

	t.Run("Update status", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPut,
			fmt.Sprintf("/api/admin/orders/%d/status", orderID), adminToken,
			map[string]string{"status": "SHIPPED"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "SHIPPED", body["order"].(map[string]any)["status"])
	})

	t.Run("Invalid status", func(t *testing.T) {
		resp, _ := doJSON(t, app, http.MethodPut,
			fmt.Sprintf("/api/admin/orders/%d/status", orderID), adminToken,
			map[string]string{"status": "TELEPORTED"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Status update posts into the order thread", func(t *testing.T) {
		var conv models.Conversation
		require.NoError(t, db.Where("order_id = ?", orderID).First(&conv).Error)

		var count int64
		require.NoError(t, db.Model(&models.Message{}).
			Where("conversation_id = ? AND kind = ?", conv.ID, models.KindOrderStatus).
			Count(&count).Error)
		assert.EqualValues(t, 3, count)
	})
}
