// Package authpw provides email/password accounts with code-based
// email verification.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"guestbook/api/internal/auth"
	"guestbook/api/internal/store"
	"guestbook/api/internal/util"
	"guestbook/api/internal/verify"
)

var (
	// ErrEmailTaken is returned when the sign-up email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrBadCredentials is returned for unknown emails and wrong passwords alike.
	ErrBadCredentials = errors.New("invalid email or password")
	// ErrCodeInvalid is returned when a submitted verification code does
	// not match or has expired. The account stays unverified.
	ErrCodeInvalid = errors.New("invalid or expired verification code")
)

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
	MarkUserVerified(ctx context.Context, userID string) error
	SaveVerificationCode(ctx context.Context, userID, codeHash string, expiresAt time.Time) error
	ConsumeVerificationCode(ctx context.Context, userID, codeHash string) (bool, error)
}

// Service provides email/password authentication
type Service struct {
	store      UserStore
	codeDigits int
	codeTTL    time.Duration
}

// NewService creates a new auth service
func NewService(userStore UserStore, codeDigits int, codeTTL time.Duration) *Service {
	if codeDigits <= 0 {
		codeDigits = 6
	}
	if codeTTL <= 0 {
		codeTTL = 15 * time.Minute
	}
	return &Service{
		store:      userStore,
		codeDigits: codeDigits,
		codeTTL:    codeTTL,
	}
}

// SignUpRequest contains sign-up parameters
type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
	Handle      string
	RealName    string
}

// SignUpResponse contains sign-up result. Code is the plaintext
// verification code for delivery; only its hash is stored.
type SignUpResponse struct {
	User store.User
	Code string
}

// SignUp creates a new user account. The account starts unverified;
// signing in works immediately but posting stays gated until the
// verification code is accepted.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*SignUpResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	displayName := strings.TrimSpace(req.DisplayName)
	handle := strings.TrimSpace(req.Handle)
	realName := strings.TrimSpace(req.RealName)

	if email == "" || req.Password == "" {
		return nil, errors.New("email and password are required")
	}
	if displayName == "" && handle == "" && realName == "" {
		return nil, errors.New("a display name, handle, or real name is required")
	}
	if len(req.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !store.IsNotFound(err) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:              util.NewID("user"),
		Email:           email,
		DisplayName:     displayName,
		Handle:          handle,
		RealName:        realName,
		PasswordHash:    string(hash),
		IsEmailVerified: false,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	code, err := s.issueCode(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &SignUpResponse{User: user, Code: code}, nil
}

// SignInRequest contains sign-in parameters
type SignInRequest struct {
	Email    string
	Password string
}

// SignIn authenticates a user. Unverified accounts sign in normally;
// verification state only gates posting.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return store.User{}, ErrBadCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return store.User{}, ErrBadCredentials
		}
		return store.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return store.User{}, ErrBadCredentials
	}

	return user, nil
}

// RequestVerificationCode issues a fresh code for an unverified user,
// replacing any earlier one. Returns verify.ErrAlreadyVerified for
// accounts that already passed verification.
func (s *Service) RequestVerificationCode(ctx context.Context, userID string) (string, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}

	state := verify.FromFlag(user.IsEmailVerified)
	if _, err := verify.Next(state, verify.EventCodeRequested); err != nil {
		return "", err
	}

	return s.issueCode(ctx, userID)
}

// SubmitVerificationCode checks a code against the stored hash. On a
// match the account becomes verified, a terminal state. On a mismatch
// nothing changes and the same code may be retried until it expires.
func (s *Service) SubmitVerificationCode(ctx context.Context, userID, code string) error {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	state := verify.FromFlag(user.IsEmailVerified)
	if state == verify.StateVerified {
		// Verified is terminal; accepting another code changes nothing.
		return nil
	}
	if _, err := verify.Next(state, verify.EventCodeAccepted); err != nil {
		return err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return ErrCodeInvalid
	}

	ok, err := s.store.ConsumeVerificationCode(ctx, userID, auth.HashToken(code))
	if err != nil {
		return fmt.Errorf("consume verification code: %w", err)
	}
	if !ok {
		return ErrCodeInvalid
	}

	if err := s.store.MarkUserVerified(ctx, userID); err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	return nil
}

func (s *Service) issueCode(ctx context.Context, userID string) (string, error) {
	code := util.NewCode(s.codeDigits)
	expiresAt := time.Now().Add(s.codeTTL)
	if err := s.store.SaveVerificationCode(ctx, userID, auth.HashToken(code), expiresAt); err != nil {
		return "", fmt.Errorf("save verification code: %w", err)
	}
	return code, nil
}
