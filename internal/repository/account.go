package repository

import (
	"context"
	"errors"

	"atelier/internal/models"

	"gorm.io/gorm"
)

// AccountRepository defines persistence operations for the account surface:
// address book, payment instruments, notification and profile settings.
type AccountRepository interface {
	ListAddresses(ctx context.Context, userID uint) ([]models.Address, error)
	GetAddress(ctx context.Context, userID, id uint) (*models.Address, error)
	// SaveAddress inserts or updates an address. When the address is flagged
	// as default shipping, every other address of the user is demoted in the
	// same transaction.
	SaveAddress(ctx context.Context, addr *models.Address) error
	DeleteAddress(ctx context.Context, userID, id uint) error

	ListPaymentInstruments(ctx context.Context, userID uint) ([]models.PaymentInstrument, error)
	SavePaymentInstrument(ctx context.Context, pi *models.PaymentInstrument) error
	DeletePaymentInstrument(ctx context.Context, userID, id uint) error

	GetNotificationPreference(ctx context.Context, userID uint) (*models.NotificationPreference, error)
	SaveNotificationPreference(ctx context.Context, pref *models.NotificationPreference) error

	GetProfileSetting(ctx context.Context, userID uint) (*models.ProfileSetting, error)
	SaveProfileSetting(ctx context.Context, setting *models.ProfileSetting) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository returns a new AccountRepository implementation.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) ListAddresses(ctx context.Context, userID uint) ([]models.Address, error) {
	var addresses []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default_shipping DESC, id ASC").
		Find(&addresses).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return addresses, nil
}

func (r *accountRepository) GetAddress(ctx context.Context, userID, id uint) (*models.Address, error) {
	var addr models.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Address", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &addr, nil
}

func (r *accountRepository) SaveAddress(ctx context.Context, addr *models.Address) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if addr.IsDefaultShipping {
			err := tx.Model(&models.Address{}).
				Where("user_id = ? AND id <> ?", addr.UserID, addr.ID).
				Update("is_default_shipping", false).Error
			if err != nil {
				return err
			}
		}
		return tx.Save(addr).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *accountRepository) DeleteAddress(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Address{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Address", id)
	}
	return nil
}

func (r *accountRepository) ListPaymentInstruments(ctx context.Context, userID uint) ([]models.PaymentInstrument, error) {
	var instruments []models.PaymentInstrument
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, id ASC").
		Find(&instruments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return instruments, nil
}

func (r *accountRepository) SavePaymentInstrument(ctx context.Context, pi *models.PaymentInstrument) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if pi.IsDefault {
			err := tx.Model(&models.PaymentInstrument{}).
				Where("user_id = ? AND id <> ?", pi.UserID, pi.ID).
				Update("is_default", false).Error
			if err != nil {
				return err
			}
		}
		return tx.Save(pi).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *accountRepository) DeletePaymentInstrument(ctx context.Context, userID, id uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.PaymentInstrument{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Payment method", id)
	}
	return nil
}

func (r *accountRepository) GetNotificationPreference(ctx context.Context, userID uint) (*models.NotificationPreference, error) {
	pref := models.NotificationPreference{
		UserID:            userID,
		OrderUpdatesEmail: true,
		OrderUpdatesPush:  true,
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		FirstOrCreate(&pref).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &pref, nil
}

func (r *accountRepository) SaveNotificationPreference(ctx context.Context, pref *models.NotificationPreference) error {
	if err := r.db.WithContext(ctx).Save(pref).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *accountRepository) GetProfileSetting(ctx context.Context, userID uint) (*models.ProfileSetting, error) {
	setting := models.ProfileSetting{
		UserID:   userID,
		Language: "en",
		Currency: "USD",
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		FirstOrCreate(&setting).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &setting, nil
}

func (r *accountRepository) SaveProfileSetting(ctx context.Context, setting *models.ProfileSetting) error {
	if err := r.db.WithContext(ctx).Save(setting).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
