package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"accommodation-portal/config"
	"accommodation-portal/internal/dto"
	"accommodation-portal/internal/event"
	"accommodation-portal/internal/model"
	"accommodation-portal/internal/repository"
	pkgerrors "accommodation-portal/pkg/errors"
	"accommodation-portal/pkg/jwt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("refresh token is invalid or revoked")
	ErrUserNotFound        = fmt.Errorf("%w: user not found", pkgerrors.ErrNotFound)
	ErrAccountDisabled     = fmt.Errorf("%w: account is disabled", pkgerrors.ErrForbidden)
	ErrWrongPassword       = fmt.Errorf("%w: current password is incorrect", pkgerrors.ErrValidation)
	ErrSamePassword        = fmt.Errorf("%w: new password must differ from the current one", pkgerrors.ErrValidation)
)

// AuthService authentication interface
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, userID, jti string, expiresAt time.Time) error
	GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
}

type authService struct {
	cfg     *config.Config
	repo    *repository.Repository
	jwtMgr  *jwt.Manager
	tokens  TokenStore
	emitter event.Emitter
	logger  *zap.Logger
}

// NewAuthService creates an AuthService. tokens may be nil, in which case
// logout and refresh revocation are not enforced.
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	tokens TokenStore,
	emitter event.Emitter,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:     cfg,
		repo:    repo,
		jwtMgr:  jwtMgr,
		tokens:  tokens,
		emitter: emitter,
		logger:  logger,
	}
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	email := strings.TrimSpace(req.Email)
	user, err := s.repo.User.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.loginFailed(ctx, "", email, ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("get user by email failed", zap.Error(err))
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.loginFailed(ctx, user.UserID, email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.loginFailed(ctx, user.UserID, email, ErrAccountDisabled)
		return nil, ErrAccountDisabled
	}

	resp, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(ctx, event.Event{
		Kind:       event.KindLogin,
		ActorID:    user.UserID,
		SubjectIDs: map[string]string{event.SubjectUser: user.UserID},
		Metadata:   map[string]any{"role": user.Role},
	})

	return resp, nil
}

// loginFailed records a rejected attempt; userID is empty for unknown emails
func (s *authService) loginFailed(ctx context.Context, userID, email string, reason error) {
	e := event.Event{
		Kind:     event.KindLogin,
		ActorID:  userID,
		Metadata: map[string]any{"email": email},
		Error:    reason.Error(),
	}
	if userID != "" {
		e.SubjectIDs = map[string]string{event.SubjectUser: userID}
	}
	s.emitter.Emit(ctx, e)
}

// ────────────────────── RefreshToken ──────────────────────

// RefreshToken exchanges a refresh token for a new pair and revokes the old one.
// Role and service unit are re-read so changes take effect on refresh.
func (s *authService) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(req.RefreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	if s.tokens != nil {
		revoked, err := s.tokens.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("check token blacklist failed", zap.Error(err))
			return nil, err
		}
		if revoked {
			return nil, ErrInvalidRefreshToken
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error("get user failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if claims.ExpiresAt != nil {
		if err := s.revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			return nil, err
		}
	}

	return s.issueTokens(user)
}

// ────────────────────── Logout ──────────────────────

// Logout revokes the caller's access token and records the logout
func (s *authService) Logout(ctx context.Context, userID, jti string, expiresAt time.Time) error {
	if err := s.revoke(ctx, jti, expiresAt); err != nil {
		return err
	}
	if userID != "" {
		s.emitter.Emit(ctx, event.Event{
			Kind:       event.KindLogout,
			ActorID:    userID,
			SubjectIDs: map[string]string{event.SubjectUser: userID},
		})
	}
	return nil
}

// revoke blacklists jti until the token would have expired anyway
func (s *authService) revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.tokens == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.tokens.BlacklistToken(ctx, jti, ttl); err != nil {
		s.logger.Error("blacklist token failed", zap.String("jti", jti), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── GetCurrentUser ──────────────────────

func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("get user failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrWrongPassword
	}
	if req.OldPassword == req.NewPassword {
		return ErrSamePassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("hash password failed", zap.Error(err))
		return err
	}

	user.PasswordHash = string(hash)
	user.MustChangePassword = false
	user.UpdatedBy = &userID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("change password failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.emitter.Emit(ctx, event.Event{
		Kind:       event.KindPasswordChange,
		ActorID:    userID,
		SubjectIDs: map[string]string{event.SubjectUser: userID},
	})
	return nil
}

// ── helpers ──

func (s *authService) issueTokens(user *model.User) (*dto.TokenResponse, error) {
	unitID := ""
	if user.ServiceUnitID != nil {
		unitID = *user.ServiceUnitID
	}

	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role, unitID)
	if err != nil {
		s.logger.Error("generate access token failed", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role, unitID)
	if err != nil {
		s.logger.Error("generate refresh token failed", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.Auth.AccessTokenTTL.Seconds()),
		User:         *toUserResponse(user),
	}, nil
}
