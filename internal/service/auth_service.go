package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"medident/internal/cache"
	"medident/internal/config"
	"medident/internal/dto"
	"medident/internal/model"
	"medident/internal/repository"
	"medident/internal/worker"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is used for every stored password hash.
const BcryptCost = 12

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error

	Profile(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req dto.UpdateProfileRequest) (*dto.UserResponse, error)

	CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error)
	ListUsers(ctx context.Context) ([]dto.UserResponse, error)
	GetUser(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	DeactivateUser(ctx context.Context, id uuid.UUID) error
}

type authService struct {
	repo   repository.UserRepository
	cfg    *config.Config
	tokens cache.ResetTokenStore
	emails worker.EmailEnqueuer
	now    func() time.Time
}

func NewAuthService(repo repository.UserRepository, cfg *config.Config, tokens cache.ResetTokenStore, emails worker.EmailEnqueuer) AuthService {
	return &authService{repo: repo, cfg: cfg, tokens: tokens, emails: emails, now: time.Now}
}

var errBadCredentials = unauthorized("invalid email or password")

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if repository.IsNotFound(err) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errBadCredentials
	}
	if !user.IsActive {
		return nil, forbidden("account is deactivated")
	}
	log.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return s.issueTokens(user)
}

// Register creates a self-service account; the role is always assistant.
func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.LoginResponse, error) {
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, model.RoleAssistant)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, unauthorized("invalid or expired refresh token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["token_type"] != tokenTypeRefresh {
		return nil, unauthorized("invalid or expired refresh token")
	}
	userIDStr, _ := claims["user_id"].(string)
	uid, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, unauthorized("malformed token")
	}

	user, err := s.repo.FindByID(ctx, uid)
	if err != nil || !user.IsActive {
		return nil, unauthorized("user not found or inactive")
	}
	return s.issueTokens(user)
}

// ForgotPassword never reveals whether the address exists.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil || !user.IsActive {
		if err != nil && !repository.IsNotFound(err) {
			log.Error().Err(err).Msg("forgot password: user lookup failed")
		}
		return nil
	}

	token, err := randomToken()
	if err != nil {
		return err
	}
	ttl := time.Duration(s.cfg.PasswordResetTTLMinutes) * time.Minute
	if err := s.tokens.Save(ctx, token, user.ID, ttl); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.FrontendURL, "/"), token)
	body := fmt.Sprintf("Hello %s,\n\nUse the link below to reset your password. It expires in %d minutes.\n\n%s\n\nIf you did not ask for this, ignore this email.\n",
		user.Name, s.cfg.PasswordResetTTLMinutes, link)
	if err := s.emails.EnqueueEmail(ctx, worker.EmailJobPayload{
		To:      []string{user.Email},
		Subject: "Password reset",
		Body:    body,
	}); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("forgot password: enqueue email failed")
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error {
	uid, err := s.tokens.Consume(ctx, req.Token)
	if errors.Is(err, cache.ErrTokenNotFound) {
		return invalid("reset token is invalid or expired")
	}
	if err != nil {
		return err
	}
	user, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		if repository.IsNotFound(err) {
			return invalid("reset token is invalid or expired")
		}
		return err
	}
	if err := setPassword(user, req.Password); err != nil {
		return err
	}
	return s.repo.Update(ctx, user)
}

// ── Profile ──────────────────────────────────────────────────────────────────

func (s *authService) Profile(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	return s.GetUser(ctx, userID)
}

func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, req dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.NewPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
			return nil, invalid("current password is incorrect")
		}
		if err := setPassword(user, req.NewPassword); err != nil {
			return nil, err
		}
	}
	return s.saveUser(ctx, user)
}

// ── User administration ──────────────────────────────────────────────────────

func (s *authService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) ListUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.UserResponse, len(users))
	for i := range users {
		resp[i] = toUserResponse(&users[i])
	}
	return resp, nil
}

func (s *authService) GetUser(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) UpdateUser(ctx context.Context, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Role != nil {
		if !validRole(*req.Role) {
			return nil, invalid("unknown role %q", *req.Role)
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Password != nil {
		if err := setPassword(user, *req.Password); err != nil {
			return nil, err
		}
	}
	return s.saveUser(ctx, user)
}

func (s *authService) DeactivateUser(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Deactivate(ctx, id)
	if repository.IsNotFound(err) {
		return notFound("user not found")
	}
	return err
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (s *authService) createUser(ctx context.Context, name, email, password, role string) (*model.User, error) {
	if !validRole(role) {
		return nil, invalid("unknown role %q", role)
	}
	user := &model.User{
		Name:     strings.TrimSpace(name),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Role:     role,
		IsActive: true,
	}
	if err := setPassword(user, password); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("email %s is already registered", user.Email)
		}
		return nil, err
	}
	log.Info().Str("user_id", user.ID.String()).Str("role", role).Msg("user created")
	return user, nil
}

func (s *authService) findUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, notFound("user not found")
	}
	return user, err
}

func (s *authService) saveUser(ctx context.Context, user *model.User) (*dto.UserResponse, error) {
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("email %s is already registered", user.Email)
		}
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) issueTokens(user *model.User) (*dto.LoginResponse, error) {
	accessTTL := time.Duration(s.cfg.JWTExpirationHours) * time.Hour
	access, err := s.generateToken(user, tokenTypeAccess, accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.generateToken(user, tokenTypeRefresh, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(accessTTL.Seconds()),
		User:         toUserResponse(user),
	}, nil
}

func (s *authService) generateToken(user *model.User, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id":    user.ID.String(),
		"email":      user.Email,
		"role":       user.Role,
		"token_type": tokenType,
		"exp":        now.Add(ttl).Unix(),
		"iat":        now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func setPassword(user *model.User, password string) error {
	if len(password) < 8 {
		return invalid("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	return nil
}

func validRole(role string) bool {
	switch role {
	case model.RoleAdmin, model.RoleManager, model.RoleAssistant:
		return true
	}
	return false
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
