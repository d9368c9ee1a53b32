package service

import (
	"context"
	"testing"
	"time"

	"atelier/internal/models"
	"atelier/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newAccountFixture(t *testing.T) (*AccountService, *gorm.DB, *models.User) {
	t.Helper()
	db := newServiceTestDB(t)
	svc := NewAccountService(
		repository.NewUserRepository(db),
		repository.NewAccountRepository(db),
		repository.NewOrderRepository(db),
		repository.NewChatRepository(db),
	)

	hash, err := bcrypt.GenerateFromPassword([]byte("original-pw"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{Name: "Maya", Email: "maya@example.com", Password: string(hash)}
	require.NoError(t, db.Create(user).Error)
	return svc, db, user
}

func TestAccountService_SingleDefaultAddress(t *testing.T) {
	svc, db, user := newAccountFixture(t)
	ctx := context.Background()

	first, err := svc.CreateAddress(ctx, user.ID, AddressInput{
		Label: "Home", Line1: "12 Atelier Row", City: "Stockholm",
		PostalCode: "111 22", Country: "SE", IsDefaultShipping: true,
	})
	require.NoError(t, err)
	assert.True(t, first.IsDefaultShipping)

	second, err := svc.CreateAddress(ctx, user.ID, AddressInput{
		Label: "Studio", Line1: "4 Loom Lane", City: "Stockholm",
		PostalCode: "111 23", Country: "SE", IsDefaultShipping: true,
	})
	require.NoError(t, err)
	assert.True(t, second.IsDefaultShipping)

	// Promoting the second demotes the first inside the same transaction.
	var defaults int64
	require.NoError(t, db.Model(&models.Address{}).
		Where("user_id = ? AND is_default_shipping = ?", user.ID, true).
		Count(&defaults).Error)
	assert.EqualValues(t, 1, defaults)

	addresses, err := svc.ListAddresses(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, addresses, 2)

	t.Run("Validation", func(t *testing.T) {
		_, err := svc.CreateAddress(ctx, user.ID, AddressInput{Label: "Empty"})
		assert.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", err.(*models.AppError).Code)
	})

	t.Run("Foreign address not found", func(t *testing.T) {
		_, err := svc.UpdateAddress(ctx, user.ID+1, first.ID, AddressInput{
			Label: "Home", Line1: "12 Atelier Row", City: "Stockholm", Country: "SE",
		})
		assert.Error(t, err)
		assert.Equal(t, "NOT_FOUND", err.(*models.AppError).Code)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, svc.DeleteAddress(ctx, user.ID, second.ID))
		err := svc.DeleteAddress(ctx, user.ID, second.ID)
		assert.Error(t, err)
		assert.Equal(t, "NOT_FOUND", err.(*models.AppError).Code)
	})
}

func TestAccountService_ChangePassword(t *testing.T) {
	svc, db, user := newAccountFixture(t)
	ctx := context.Background()

	t.Run("Wrong current password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user.ID, "not-the-password", "new-password")
		assert.Error(t, err)
		assert.Equal(t, "UNAUTHORIZED", err.(*models.AppError).Code)
	})

	t.Run("Weak new password", func(t *testing.T) {
		err := svc.ChangePassword(ctx, user.ID, "original-pw", "abc")
		assert.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", err.(*models.AppError).Code)
	})

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "original-pw", "fresh-password"))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(reloaded.Password), []byte("fresh-password")))
}

func TestAccountService_PaymentInstruments(t *testing.T) {
	svc, _, user := newAccountFixture(t)
	ctx := context.Background()
	nextYear := time.Now().Year() + 1

	t.Run("Expired card rejected", func(t *testing.T) {
		_, err := svc.CreatePaymentInstrument(ctx, user.ID, PaymentInstrumentInput{
			Provider: "stripe", Last4: "4242",
			ExpiresMonth: 1, ExpiresYear: time.Now().Year() - 1,
			ProviderPaymentMethodID: "pm_x",
		})
		assert.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", err.(*models.AppError).Code)
	})

	t.Run("Bad last4 rejected", func(t *testing.T) {
		_, err := svc.CreatePaymentInstrument(ctx, user.ID, PaymentInstrumentInput{
			Provider: "stripe", Last4: "42",
			ExpiresMonth: 6, ExpiresYear: nextYear,
			ProviderPaymentMethodID: "pm_x",
		})
		assert.Error(t, err)
		assert.Equal(t, "VALIDATION_ERROR", err.(*models.AppError).Code)
	})

	pi, err := svc.CreatePaymentInstrument(ctx, user.ID, PaymentInstrumentInput{
		Provider: "stripe", Brand: "visa", Last4: "4242",
		ExpiresMonth: 6, ExpiresYear: nextYear,
		ProviderPaymentMethodID: "pm_123", IsDefault: true,
	})
	require.NoError(t, err)
	assert.True(t, pi.IsDefault)

	instruments, err := svc.ListPaymentInstruments(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, instruments, 1)

	require.NoError(t, svc.DeletePaymentInstrument(ctx, user.ID, pi.ID))
}

func TestAccountService_Preferences(t *testing.T) {
	svc, _, user := newAccountFixture(t)
	ctx := context.Background()

	// Lazily created with order updates on and promotions off.
	prefs, err := svc.GetPreferences(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, prefs.Notifications.OrderUpdatesEmail)
	assert.False(t, prefs.Notifications.PromotionsEmail)
	assert.Equal(t, "en", prefs.Profile.Language)
	assert.Equal(t, "USD", prefs.Profile.Currency)

	off := false
	lang := "SV"
	currency := "sek"
	updated, err := svc.UpdatePreferences(ctx, user.ID, PreferencesInput{
		OrderUpdatesEmail: &off,
		Language:          &lang,
		Currency:          &currency,
	})
	require.NoError(t, err)
	assert.False(t, updated.Notifications.OrderUpdatesEmail)
	assert.True(t, updated.Notifications.OrderUpdatesPush)
	assert.Equal(t, "sv", updated.Profile.Language)
	assert.Equal(t, "SEK", updated.Profile.Currency)
}

func TestAccountService_Overview(t *testing.T) {
	svc, db, user := newAccountFixture(t)
	ctx := context.Background()

	_, err := svc.CreateAddress(ctx, user.ID, AddressInput{
		Label: "Home", Line1: "12 Atelier Row", City: "Stockholm",
		PostalCode: "111 22", Country: "SE", IsDefaultShipping: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Order{
		UserID: user.ID, Reference: "ref-overview", Total: 50, Status: models.OrderPlaced,
	}).Error)

	overview, err := svc.GetOverview(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, overview.User.ID)
	assert.EqualValues(t, 1, overview.OrderCount)
	require.NotNil(t, overview.DefaultAddress)
	assert.Equal(t, "Home", overview.DefaultAddress.Label)
}
