// Package services contains server-side business logic. UserService is the
// credential service: registration, login and session resolution over the
// user repository, the password hasher and the token codec.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/google/uuid"
)

// Input bounds, shared by registration and login.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxFullNameLength = 100
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
	NeedsRehash(encoded string) bool
}

// TokenCodec issues and decodes bearer tokens.
type TokenCodec interface {
	Issue(subject string, ttl ...time.Duration) (string, error)
	Decode(token string) (*auth.TokenPayload, error)
}

// RegisterInput is the payload of a registration request.
type RegisterInput struct {
	Username string
	Password string
	FullName *string
}

// Token is returned by a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserService holds no state of its own; everything durable lives in repo.
type UserService struct {
	repo   users.Repository
	hasher PasswordHasher
	tokens TokenCodec
	logger logging.Logger
	now    func() time.Time
	newID  func() string

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(repo users.Repository, hasher PasswordHasher, tokens TokenCodec, logger logging.Logger) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: logger.With("module", "user_service"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Register creates a user. It fails with common.ErrValidation for
// out-of-bounds input and common.ErrUserAlreadyExists for a taken username.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	// Fast path: skip the hashing cost for an obvious conflict. The repository
	// re-checks atomically on Create.
	if _, err := s.repo.GetUserByLogin(ctx, in.Username); err == nil {
		return nil, common.ErrUserAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		s.logger.Error(ctx, "lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error(ctx, "hash failed", "error", err)
		return nil, common.ErrorInternal
	}

	user := &models.User{
		ID:           s.newID(),
		UserName:     in.Username,
		PasswordHash: hash,
		FullName:     in.FullName,
		CreatedAt:    s.now().UTC(),
	}

	if _, err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrUserAlreadyExists) {
			return nil, common.ErrUserAlreadyExists
		}
		s.logger.Error(ctx, "create user failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID, "username", user.UserName)
	return user.Public(), nil
}

// Login checks credentials and issues an access token. Unknown username and
// wrong password are indistinguishable: both yield common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, username, password string) (*Token, error) {
	if !validLoginInput(username, password) {
		return nil, common.ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// same hashing cost as for a known user
			s.hasher.Verify(password, s.dummyPasswordHash())
			return nil, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.logger.Warn(ctx, "password hash uses an outdated scheme", "user_id", user.ID)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		if errors.Is(err, common.ErrMissingSecretKey) {
			return nil, err
		}
		s.logger.Error(ctx, "issue token failed", "error", err)
		return nil, common.ErrorInternal
	}

	return &Token{AccessToken: token, TokenType: common.TokenTypeBearer}, nil
}

// ResolveSession returns the user a bearer token was issued to.
func (s *UserService) ResolveSession(ctx context.Context, token string) (*models.PublicUser, error) {
	payload, err := s.tokens.Decode(token)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, payload.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	return user.Public(), nil
}

// ListUsers returns every user in insertion order.
func (s *UserService) ListUsers(ctx context.Context) ([]*models.PublicUser, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.PublicUser, 0, len(all))
	for _, u := range all {
		out = append(out, u.Public())
	}
	return out, nil
}

// DeleteUser removes username. Maintenance only.
func (s *UserService) DeleteUser(ctx context.Context, username string) error {
	if err := s.repo.DeleteByUsername(ctx, username); err != nil {
		return err
	}
	s.logger.Info(ctx, "user deleted", "username", username)
	return nil
}

// dummyPasswordHash is a hash with the current parameters that no password
// entered at login can match, since it is built from random bytes.
func (s *UserService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		seed, err := common.MakeRandHexString(32)
		if err != nil {
			return
		}
		s.dummyHash, _ = s.hasher.Hash(seed)
	})
	return s.dummyHash
}

func validateRegistration(in RegisterInput) error {
	if !between(in.Username, MinUsernameLength, MaxUsernameLength) || strings.TrimSpace(in.Username) != in.Username {
		return common.ErrValidation
	}
	if !between(in.Password, MinPasswordLength, MaxPasswordLength) {
		return common.ErrValidation
	}
	if in.FullName != nil && utf8.RuneCountInString(*in.FullName) > MaxFullNameLength {
		return common.ErrValidation
	}
	return nil
}

func validLoginInput(username, password string) bool {
	return between(username, MinUsernameLength, MaxUsernameLength) &&
		between(password, MinPasswordLength, MaxPasswordLength)
}

func between(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}
