package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"task-tracker/internal/model"
)

// TelegramUsernamePrefix prefixes the generated usernames of Telegram users.
const TelegramUsernamePrefix = "tg_"

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateWithCategories inserts the user and one category per name in a single
// transaction: either both exist afterwards or neither does.
func (r *UserRepository) CreateWithCategories(ctx context.Context, user *model.User, categories []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return createDefaultCategories(tx, user.ID, categories)
	})
}

// UpsertFromTelegram finds or creates a user based on TelegramID and updates
// basic profile info. New users get the given default categories.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName string, categories []string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{
			Username:   TelegramUsernamePrefix + strconv.FormatInt(telegramID, 10),
			TelegramID: &telegramID,
			FirstName:  firstName,
			LastName:   lastName,
		}
		if err := r.CreateWithCategories(ctx, &user, categories); err != nil {
			return nil, err
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTelegramUsers returns every user linked to a Telegram account.
func (r *UserRepository) ListTelegramUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("telegram_id IS NOT NULL").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
