package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"freshops/api/internal/model"
)

// AuthService handles authentication business logic
type AuthService struct {
	db *gorm.DB
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// Authenticate validates user credentials and records the attempt
func (s *AuthService) Authenticate(ctx context.Context, username, password, ip, userAgent string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordLogin(0, username, ip, userAgent, false, "user not found")
			return nil, errors.New("invalid credentials")
		}
		return nil, err
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.recordLogin(int(user.ID), username, ip, userAgent, false, "wrong password")
		return nil, errors.New("invalid credentials")
	}

	// Check if user is active
	if user.Status != 1 {
		s.recordLogin(int(user.ID), username, ip, userAgent, false, "user inactive")
		return nil, errors.New("user is inactive")
	}

	s.recordLogin(int(user.ID), username, ip, userAgent, true, "")
	return &user, nil
}

// CreateUser creates a new user
func (s *AuthService) CreateUser(ctx context.Context, user *model.User) error {
	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashedPassword)

	return s.db.WithContext(ctx).Create(user).Error
}

func (s *AuthService) recordLogin(userID int, username, ip, userAgent string, success bool, errMsg string) {
	s.db.Create(&model.LoginLog{
		UserID:    userID,
		Username:  username,
		Action:    "login",
		IP:        ip,
		UserAgent: userAgent,
		Success:   success,
		ErrorMsg:  errMsg,
	})
}
