package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerly/ledgerly-api/internal/crypto"
	"github.com/ledgerly/ledgerly-api/internal/model"
	"github.com/ledgerly/ledgerly-api/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// UserStore is the persistence the auth flows need.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// AuthService handles registration, login and identity resolution.
type AuthService struct {
	users  UserStore
	hasher *crypto.PasswordHasher
	tokens *crypto.TokenIssuer
	now    func() time.Time

	// dummyHash is verified against when the email is unknown.
	dummyHash string
}

// NewAuthService creates a new AuthService. It fails when the hasher cannot
// produce the hash used to time unknown-email logins.
func NewAuthService(users UserStore, hasher *crypto.PasswordHasher, tokens *crypto.TokenIssuer) (*AuthService, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("preparing login hash: %w", err)
	}

	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// Register hashes the password and stores a new user. A taken email yields
// ErrEmailTaken; the plaintext is never stored.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.UserResponse, error) {
	if req.Email == "" {
		return model.UserResponse{}, ErrEmailRequired
	}
	if req.Password == "" {
		return model.UserResponse{}, ErrPasswordRequired
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.UserResponse{}, err
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.UserResponse{}, ErrEmailTaken
		}
		return model.UserResponse{}, fmt.Errorf("creating user: %w", err)
	}

	return model.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}, nil
}

// Login checks the credentials and issues an access token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Spend the same hashing work as a real check.
			s.hasher.Verify(req.Password, s.dummyHash)
			return model.TokenResponse{}, ErrInvalidCredentials
		}
		return model.TokenResponse{}, fmt.Errorf("looking up user: %w", err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return model.TokenResponse{}, ErrInvalidCredentials
	}

	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

// ResolveIdentity maps a verified token subject to the current user row.
// A missing row is ErrUserNotFound; datastore failures are returned wrapped.
func (s *AuthService) ResolveIdentity(ctx context.Context, userID int64) (model.Identity, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.Identity{}, ErrUserNotFound
		}
		return model.Identity{}, fmt.Errorf("resolving identity: %w", err)
	}

	return model.Identity{ID: user.ID, Email: user.Email}, nil
}
