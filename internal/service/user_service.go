package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"spendwise/internal/cache"
	"spendwise/internal/errors"
	applog "spendwise/internal/log"
	"spendwise/internal/model"
	"spendwise/internal/repository"
	"spendwise/internal/storage"
)

const (
	userCacheTTL = 5 * time.Minute
	// DefaultMaxUploadBytes caps profile picture uploads.
	DefaultMaxUploadBytes int64 = 5 * 1024 * 1024
)

var allowedPictureTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// UserService exposes profile operations of the authenticated user.
type UserService interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*model.User, error)
	UploadProfilePicture(ctx context.Context, id uuid.UUID, data []byte) (*model.User, error)
	UpdateNotificationPreference(ctx context.Context, id uuid.UUID, enabled bool) (*model.User, error)
}

type userService struct {
	repo     repository.UserRepository
	cache    cache.Store
	store    storage.Store
	maxBytes int64
	now      func() time.Time
	logger   *slog.Logger
}

// NewUserService builds a UserService with repository, cache and upload storage.
func NewUserService(repo repository.UserRepository, cache cache.Store, store storage.Store, maxBytes int64) UserService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &userService{
		repo:     repo,
		cache:    cache,
		store:    store,
		maxBytes: maxBytes,
		now:      time.Now,
		logger:   applog.Component(applog.ComponentStorage),
	}
}

func (s *userService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id.String())
}

func (s *userService) GetProfile(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if data, _ := s.cache.Get(ctx, s.cacheKey(id)); data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if payload, err := json.Marshal(user); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(id), payload, userCacheTTL)
	}
	return user, nil
}

// FileTooLargeMessage is the validation message for uploads over maxBytes.
func FileTooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("File too large. Maximum size is %dMB", maxBytes/(1024*1024))
}

// UploadProfilePicture validates and stores an image, then points the profile at it.
// The stored path is left unchanged on any failure.
func (s *userService) UploadProfilePicture(ctx context.Context, id uuid.UUID, data []byte) (*model.User, error) {
	if len(data) == 0 {
		return nil, errors.Validation("No file uploaded")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, errors.Validation(FileTooLargeMessage(s.maxBytes))
	}
	ext, ok := allowedPictureTypes[mimetype.Detect(data).String()]
	if !ok {
		return nil, errors.Validation("Only JPEG and PNG images are allowed")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	name := fmt.Sprintf("%s-%d%s", id, s.now().UnixNano(), ext)
	publicPath, err := s.store.Save(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"profile_picture": publicPath}); err != nil {
		_ = s.store.Remove(ctx, publicPath)
		return nil, fmt.Errorf("update profile picture: %w", err)
	}
	if user.ProfilePicture != "" {
		if err := s.store.Remove(ctx, user.ProfilePicture); err != nil {
			s.logger.WarnContext(ctx, "failed to remove previous profile picture", applog.FieldUserID, id, applog.FieldError, err)
		}
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))

	user.ProfilePicture = publicPath
	return user, nil
}

func (s *userService) UpdateNotificationPreference(ctx context.Context, id uuid.UUID, enabled bool) (*model.User, error) {
	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"email_notifications": enabled}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("update notification preference: %w", err)
	}
	_ = s.cache.Delete(ctx, s.cacheKey(id))
	return s.GetProfile(ctx, id)
}
