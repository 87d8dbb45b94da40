// Package service contains the application's business logic, between the
// HTTP handlers and the repositories.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"artfeed/internal/middleware"
	"artfeed/internal/models"
	"artfeed/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "artfeed-api"
	tokenAudience = "artfeed-client"
	tokenLifetime = 7 * 24 * time.Hour
)

// Session is the identity state carried by a token: who the user is and
// whether they hold the admin role.
type Session struct {
	UserID   uint
	Username string
	IsAdmin  bool
	JTI      string
	Expires  time.Time
}

// AuthService implements registration, credential verification and the
// session token lifecycle.
type AuthService struct {
	userRepo repository.UserRepository
	redis    *redis.Client
	secret   string
}

// NewAuthService returns an AuthService signing tokens with secret and
// recording revoked sessions in redis (nil disables revocation).
func NewAuthService(userRepo repository.UserRepository, redis *redis.Client, secret string) *AuthService {
	return &AuthService{userRepo: userRepo, redis: redis, secret: secret}
}

// Register creates an account with a bcrypt-hashed password. Both fields are
// required after trimming whitespace; a taken username yields a CONFLICT.
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, models.NewValidationError("Username and password are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Password: string(hashed),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies the credentials and returns the full user record.
// A missing user and a failed hash comparison produce the same error so the
// response does not reveal which usernames exist.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid username or password")
	}
	return user, nil
}

// StartSession issues a fresh token binding the user's id, username and
// admin flag. Every call mints a new jti, so no prior session identifier is
// ever reused for a browser context.
func (s *AuthService) StartSession(user *models.User) (string, error) {
	if s.secret == "" {
		return "", models.NewInternalError(fmt.Errorf("session secret not configured"))
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"adm":      user.IsAdmin,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      now.Add(tokenLifetime).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      newJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// EndSession revokes the session unconditionally by blacklisting its jti
// until the token would have expired.
func (s *AuthService) EndSession(ctx context.Context, sess Session) error {
	if s.redis == nil {
		middleware.Logger.WarnContext(ctx, "no revocation store, session token remains valid until expiry",
			"user_id", sess.UserID)
		return nil
	}
	ttl := time.Until(sess.Expires)
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, "blacklist:"+sess.JTI, "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// IsRevoked reports whether the session's jti has been blacklisted.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) bool {
	if s.redis == nil || jti == "" {
		return false
	}
	n, err := s.redis.Exists(ctx, "blacklist:"+jti).Result()
	return err == nil && n > 0
}

// ParseSession validates a raw token and extracts the session it carries.
func (s *AuthService) ParseSession(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid user ID in token")
	}

	sess := &Session{UserID: uint(userID)}
	if username, ok := claims["username"].(string); ok {
		sess.Username = username
	}
	if adm, ok := claims["adm"].(bool); ok {
		sess.IsAdmin = adm
	}
	if jti, ok := claims["jti"].(string); ok {
		sess.JTI = jti
	}
	if exp, ok := claims["exp"].(float64); ok {
		sess.Expires = time.Unix(int64(exp), 0)
	}
	return sess, nil
}

// newJTI creates a unique token identifier so individual sessions can be revoked.
func newJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
