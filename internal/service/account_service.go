package service

import (
	"context"
	"strings"
	"time"

	"atelier/internal/models"
	"atelier/internal/repository"
	"atelier/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// AccountService implements the signed-in account surface: profile,
// address book, payment methods, preferences and order history.
type AccountService struct {
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
	orderRepo   repository.OrderRepository
	chatRepo    repository.ChatRepository
}

// NewAccountService returns a new AccountService.
func NewAccountService(
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	orderRepo repository.OrderRepository,
	chatRepo repository.ChatRepository,
) *AccountService {
	return &AccountService{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		orderRepo:   orderRepo,
		chatRepo:    chatRepo,
	}
}

// AccountOverview is the GET /account/me payload.
type AccountOverview struct {
	User           *models.User    `json:"user"`
	OrderCount     int64           `json:"order_count"`
	DefaultAddress *models.Address `json:"default_address"`
}

// GetOverview returns the account dashboard summary.
func (s *AccountService) GetOverview(ctx context.Context, userID uint) (*AccountOverview, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, orderCount, err := s.orderRepo.ListForUser(ctx, userID, 1, 0)
	if err != nil {
		return nil, err
	}

	addresses, err := s.accountRepo.ListAddresses(ctx, userID)
	if err != nil {
		return nil, err
	}
	var defaultAddr *models.Address
	for i := range addresses {
		if addresses[i].IsDefaultShipping {
			defaultAddr = &addresses[i]
			break
		}
	}

	return &AccountOverview{User: user, OrderCount: orderCount, DefaultAddress: defaultAddr}, nil
}

// UpdateProfileInput is the input for profile updates. Nil fields keep
// their current value.
type UpdateProfileInput struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// UpdateProfile updates mutable profile fields.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := validation.ValidateName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Name = name
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword verifies the current password and stores the new hash.
func (s *AccountService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)) != nil {
		return models.NewUnauthorizedError("Current password is incorrect")
	}
	if err := validation.ValidatePassword(next); err != nil {
		return models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	user.Password = string(hash)
	return s.userRepo.Update(ctx, user)
}

// AddressInput is the input for creating or updating an address.
type AddressInput struct {
	Label             string `json:"label"`
	Line1             string `json:"line1"`
	Line2             string `json:"line2"`
	City              string `json:"city"`
	PostalCode        string `json:"postal_code"`
	Country           string `json:"country"`
	IsDefaultShipping bool   `json:"is_default_shipping"`
}

func (in *AddressInput) validate() error {
	if strings.TrimSpace(in.Label) == "" {
		return models.NewValidationError("Address label is required")
	}
	if strings.TrimSpace(in.Line1) == "" || strings.TrimSpace(in.City) == "" {
		return models.NewValidationError("Address line and city are required")
	}
	if strings.TrimSpace(in.Country) == "" {
		return models.NewValidationError("Address country is required")
	}
	return nil
}

// ListAddresses returns the user's address book, default first.
func (s *AccountService) ListAddresses(ctx context.Context, userID uint) ([]models.Address, error) {
	return s.accountRepo.ListAddresses(ctx, userID)
}

// CreateAddress adds an address. The single-default invariant is enforced
// by the repository transaction.
func (s *AccountService) CreateAddress(ctx context.Context, userID uint, in AddressInput) (*models.Address, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	addr := models.Address{
		UserID:            userID,
		Label:             strings.TrimSpace(in.Label),
		Line1:             strings.TrimSpace(in.Line1),
		Line2:             strings.TrimSpace(in.Line2),
		City:              strings.TrimSpace(in.City),
		PostalCode:        strings.TrimSpace(in.PostalCode),
		Country:           strings.TrimSpace(in.Country),
		IsDefaultShipping: in.IsDefaultShipping,
	}
	if err := s.accountRepo.SaveAddress(ctx, &addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

// UpdateAddress replaces an owned address's fields.
func (s *AccountService) UpdateAddress(ctx context.Context, userID, id uint, in AddressInput) (*models.Address, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	addr, err := s.accountRepo.GetAddress(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	addr.Label = strings.TrimSpace(in.Label)
	addr.Line1 = strings.TrimSpace(in.Line1)
	addr.Line2 = strings.TrimSpace(in.Line2)
	addr.City = strings.TrimSpace(in.City)
	addr.PostalCode = strings.TrimSpace(in.PostalCode)
	addr.Country = strings.TrimSpace(in.Country)
	addr.IsDefaultShipping = in.IsDefaultShipping
	if err := s.accountRepo.SaveAddress(ctx, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// DeleteAddress removes an owned address.
func (s *AccountService) DeleteAddress(ctx context.Context, userID, id uint) error {
	return s.accountRepo.DeleteAddress(ctx, userID, id)
}

// PaymentInstrumentInput is the input for saving a tokenized payment method.
type PaymentInstrumentInput struct {
	Provider                string `json:"provider"`
	Brand                   string `json:"brand"`
	Last4                   string `json:"last4"`
	ExpiresMonth            int    `json:"expires_month"`
	ExpiresYear             int    `json:"expires_year"`
	ProviderPaymentMethodID string `json:"provider_payment_method_id"`
	IsDefault               bool   `json:"is_default"`
}

func (in *PaymentInstrumentInput) validate() error {
	if strings.TrimSpace(in.Provider) == "" || strings.TrimSpace(in.ProviderPaymentMethodID) == "" {
		return models.NewValidationError("Payment provider and token are required")
	}
	if len(in.Last4) != 4 {
		return models.NewValidationError("Card last4 must be exactly 4 digits")
	}
	if in.ExpiresMonth < 1 || in.ExpiresMonth > 12 {
		return models.NewValidationError("Invalid expiry month")
	}
	now := time.Now()
	if in.ExpiresYear < now.Year() ||
		(in.ExpiresYear == now.Year() && in.ExpiresMonth < int(now.Month())) {
		return models.NewValidationError("Card is expired")
	}
	return nil
}

// ListPaymentInstruments returns the user's saved payment methods.
func (s *AccountService) ListPaymentInstruments(ctx context.Context, userID uint) ([]models.PaymentInstrument, error) {
	return s.accountRepo.ListPaymentInstruments(ctx, userID)
}

// CreatePaymentInstrument saves a tokenized payment method.
func (s *AccountService) CreatePaymentInstrument(ctx context.Context, userID uint, in PaymentInstrumentInput) (*models.PaymentInstrument, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	pi := models.PaymentInstrument{
		UserID:                  userID,
		Provider:                strings.TrimSpace(in.Provider),
		Brand:                   strings.TrimSpace(in.Brand),
		Last4:                   in.Last4,
		ExpiresMonth:            in.ExpiresMonth,
		ExpiresYear:             in.ExpiresYear,
		ProviderPaymentMethodID: strings.TrimSpace(in.ProviderPaymentMethodID),
		IsDefault:               in.IsDefault,
	}
	if err := s.accountRepo.SavePaymentInstrument(ctx, &pi); err != nil {
		return nil, err
	}
	return &pi, nil
}

// DeletePaymentInstrument removes an owned payment method.
func (s *AccountService) DeletePaymentInstrument(ctx context.Context, userID, id uint) error {
	return s.accountRepo.DeletePaymentInstrument(ctx, userID, id)
}

// Preferences bundles the two lazily created per-user settings rows.
type Preferences struct {
	Notifications *models.NotificationPreference `json:"notifications"`
	Profile       *models.ProfileSetting         `json:"profile"`
}

// GetPreferences returns (and lazily creates) the user's settings.
func (s *AccountService) GetPreferences(ctx context.Context, userID uint) (*Preferences, error) {
	notif, err := s.accountRepo.GetNotificationPreference(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.accountRepo.GetProfileSetting(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Preferences{Notifications: notif, Profile: profile}, nil
}

// PreferencesInput carries partial updates; nil fields keep their value.
type PreferencesInput struct {
	OrderUpdatesEmail *bool   `json:"order_updates_email"`
	OrderUpdatesPush  *bool   `json:"order_updates_push"`
	PromotionsEmail   *bool   `json:"promotions_email"`
	PromotionsPush    *bool   `json:"promotions_push"`
	Language          *string `json:"language"`
	Currency          *string `json:"currency"`
	Region            *string `json:"region"`
}

// UpdatePreferences applies a partial update to the user's settings.
func (s *AccountService) UpdatePreferences(ctx context.Context, userID uint, in PreferencesInput) (*Preferences, error) {
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.OrderUpdatesEmail != nil {
		prefs.Notifications.OrderUpdatesEmail = *in.OrderUpdatesEmail
	}
	if in.OrderUpdatesPush != nil {
		prefs.Notifications.OrderUpdatesPush = *in.OrderUpdatesPush
	}
	if in.PromotionsEmail != nil {
		prefs.Notifications.PromotionsEmail = *in.PromotionsEmail
	}
	if in.PromotionsPush != nil {
		prefs.Notifications.PromotionsPush = *in.PromotionsPush
	}
	if err := s.accountRepo.SaveNotificationPreference(ctx, prefs.Notifications); err != nil {
		return nil, err
	}

	if in.Language != nil {
		prefs.Profile.Language = strings.ToLower(strings.TrimSpace(*in.Language))
	}
	if in.Currency != nil {
		prefs.Profile.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.Region != nil {
		prefs.Profile.Region = strings.ToUpper(strings.TrimSpace(*in.Region))
	}
	if err := s.accountRepo.SaveProfileSetting(ctx, prefs.Profile); err != nil {
		return nil, err
	}
	return prefs, nil
}

// OrderWithThread pairs an order with its conversation id, when one exists.
type OrderWithThread struct {
	models.Order
	ConversationID *uint `json:"conversation_id"`
}

// ListOrdersWithThreads returns the user's orders annotated with their
// thread ids for the account order history screen.
func (s *AccountService) ListOrdersWithThreads(ctx context.Context, userID uint, limit, offset int) ([]OrderWithThread, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	orders, total, err := s.orderRepo.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	out := make([]OrderWithThread, 0, len(orders))
	for _, order := range orders {
		entry := OrderWithThread{Order: order}
		conv, err := s.chatRepo.FindOrderConversation(ctx, userID, order.ID)
		if err != nil {
			return nil, 0, err
		}
		if conv != nil {
			id := conv.ID
			entry.ConversationID = &id
		}
		out = append(out, entry)
	}
	return out, total, nil
}

// GetOrderWithThread returns one owned order with its thread id.
func (s *AccountService) GetOrderWithThread(ctx context.Context, userID, orderID uint) (*OrderWithThread, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, models.NewNotFoundError("Order", orderID)
	}

	entry := OrderWithThread{Order: *order}
	conv, err := s.chatRepo.FindOrderConversation(ctx, userID, order.ID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		id := conv.ID
		entry.ConversationID = &id
	}
	return &entry, nil
}
