// Package services holds the server use cases behind the gRPC surface:
// users and sessions, file upload/list/download/delete over the pooled
// accounts, and account linking with storage statistics.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"github.com/dmitrijs2005/cloudpool/internal/dbx"
	"github.com/dmitrijs2005/cloudpool/internal/server/auth"
	"github.com/dmitrijs2005/cloudpool/internal/server/config"
	"github.com/dmitrijs2005/cloudpool/internal/server/models"
	"github.com/dmitrijs2005/cloudpool/internal/server/repositories/repomanager"
)

const (
	saltSize         = 32
	refreshTokenSize = 32
	maxUserNameLen   = 254
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// sessionIssuer mints access JWTs and persists the matching refresh token
// through whichever DBTX it is handed.
type sessionIssuer struct {
	repomanager    repomanager.RepositoryManager
	secret         []byte
	accessTTL      time.Duration
	refreshTTL     time.Duration
	newRefreshCode func(int) (string, error)
}

func (i *sessionIssuer) issue(ctx context.Context, db dbx.DBTX, userID string) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, i.secret, i.accessTTL)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := i.newRefreshCode(refreshTokenSize)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := i.repomanager.RefreshTokens(db).Create(ctx, userID, refresh, i.refreshTTL); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// UserService registers CloudPool users and manages their sessions. The
// password never reaches the server: clients send a salt and a verifier
// derived from it at registration, and the verifier again at login.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sessions    *sessionIssuer
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		sessions: &sessionIssuer{
			repomanager:    m,
			secret:         []byte(cfg.SecretKey),
			accessTTL:      cfg.AccessTokenValidityDuration,
			refreshTTL:     cfg.RefreshTokenValidityDuration,
			newRefreshCode: common.MakeRandHexString,
		},
	}
}

func normalizeUserName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *UserService) Register(ctx context.Context, username string, salt, verifier []byte) (*models.User, error) {
	username = normalizeUserName(username)
	switch {
	case username == "" || len(salt) == 0 || len(verifier) == 0:
		return nil, fmt.Errorf("%w: username, salt and verifier are required", common.ErrorValidation)
	case len(username) > maxUserNameLen:
		return nil, fmt.Errorf("%w: username longer than %d characters", common.ErrorValidation, maxUserNameLen)
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{UserName: username, Salt: salt, Verifier: verifier})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// GetSalt returns the stored salt, or a fresh random one for unknown users
// so the response does not reveal whether an account exists.
func (s *UserService) GetSalt(ctx context.Context, username string) ([]byte, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, normalizeUserName(username))
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return common.GenerateRandByteArray(saltSize), nil
	case err != nil:
		return nil, common.ErrorInternal
	}
	return user.Salt, nil
}

func (s *UserService) Login(ctx context.Context, username string, verifierCandidate []byte) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, normalizeUserName(username))
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil, common.ErrorUnauthorized
	case err != nil:
		return nil, common.ErrorInternal
	}

	if subtle.ConstantTimeCompare(user.Verifier, verifierCandidate) != 1 {
		return nil, common.ErrorUnauthorized
	}
	return s.sessions.issue(ctx, s.db, user.ID)
}

// RefreshToken exchanges a refresh token for a new pair. The old token is
// consumed and the new one stored in the same transaction.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return nil, common.ErrorUnauthorized
	case err != nil:
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	case stored.Expired(time.Now()):
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return common.ErrorUnauthorized
		case err != nil:
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		pair, err = s.sessions.issue(ctx, tx, stored.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}
