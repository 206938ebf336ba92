package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

const tokenIssuer = "foodgram"

type AuthService struct {
	db        *gorm.DB
	jwtSecret []byte
	tokenTTL  time.Duration
	hashCost  int
	log       *zap.Logger
}

func NewAuthService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		hashCost:  bcrypt.DefaultCost,
		log:       log.Named("auth"),
	}
}

// WithHashCost sets the bcrypt cost used for new passwords.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.hashCost = cost
	return s
}

// Register creates a user. A taken email or username is reported as a
// validation error on that field.
func (s *AuthService) Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	var taken []models.User
	err := s.db.WithContext(ctx).
		Select("email", "username").
		Where("email = ? OR username = ?", email, username).
		Find(&taken).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	for _, u := range taken {
		if u.Email == email {
			return nil, NewValidationError("email", "a user with this email already exists")
		}
		if u.Username == username {
			return nil, NewValidationError("username", "a user with this username already exists")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("a user with this email or username already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// PromoteSuperuser grants superuser rights to the user with the given email.
// Superusers may change and delete any recipe.
func (s *AuthService) PromoteSuperuser(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("is_superuser", true)
	if result.Error != nil {
		return fmt.Errorf("failed to promote user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("user %s not found", email)
	}
	s.log.Info("user promoted to superuser", zap.String("email", email))
	return nil
}

// Login checks the credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.GenerateToken(&user)
}

func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := types.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		UserID:   user.ID,
		Username: user.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*types.TokenClaims, error) {
	claims := &types.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	return claims, nil
}

// LookupActor resolves the user named by a validated token. Tokens of
// deleted users are rejected.
func (s *AuthService) LookupActor(ctx context.Context, claims *types.TokenClaims) (*types.Actor, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "is_superuser").First(&user, "id = ?", claims.UserID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &types.Actor{UserID: user.ID, IsSuperuser: user.IsSuperuser}, nil
}

// SetPassword replaces the password of user after checking the current one.
func (s *AuthService) SetPassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("user %s", userID)
		}
		return fmt.Errorf("failed to load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return NewValidationError("current_password", "wrong password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&user).Update("password_hash", string(hash)).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.log.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}
