package authpw

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"guestbook/api/internal/store"
	"guestbook/api/internal/verify"
)

// mockUserStore is a mock implementation of UserStore for testing
type mockUserStore struct {
	users      map[string]store.User
	emailIndex map[string]string // email -> userID
	codes      map[string]struct {
		hash      string
		expiresAt time.Time
	}
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:      make(map[string]store.User),
		emailIndex: make(map[string]string),
		codes: make(map[string]struct {
			hash      string
			expiresAt time.Time
		}),
	}
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if userID, ok := m.emailIndex[email]; ok {
		return m.users[userID], nil
	}
	return store.User{}, sql.ErrNoRows
}

func (m *mockUserStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if user, ok := m.users[userID]; ok {
		return user, nil
	}
	return store.User{}, sql.ErrNoRows
}

func (m *mockUserStore) CreateUser(ctx context.Context, user store.User) error {
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	return nil
}

func (m *mockUserStore) MarkUserVerified(ctx context.Context, userID string) error {
	user, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	user.IsEmailVerified = true
	m.users[userID] = user
	return nil
}

func (m *mockUserStore) SaveVerificationCode(ctx context.Context, userID, codeHash string, expiresAt time.Time) error {
	m.codes[userID] = struct {
		hash      string
		expiresAt time.Time
	}{hash: codeHash, expiresAt: expiresAt}
	return nil
}

func (m *mockUserStore) ConsumeVerificationCode(ctx context.Context, userID, codeHash string) (bool, error) {
	entry, ok := m.codes[userID]
	if !ok || entry.hash != codeHash || time.Now().After(entry.expiresAt) {
		return false, nil
	}
	delete(m.codes, userID)
	return true, nil
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	mockStore := newMockUserStore()
	svc := NewService(mockStore, 6, 15*time.Minute)

	t.Run("successful sign up", func(t *testing.T) {
		req := SignUpRequest{
			Email:       "test@example.com",
			Password:    "password123",
			DisplayName: "Test User",
		}

		resp, err := svc.SignUp(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if resp.User.ID == "" {
			t.Error("expected user ID to be set")
		}
		if resp.User.IsEmailVerified {
			t.Error("new accounts must start unverified")
		}
		if len(resp.Code) != 6 {
			t.Errorf("expected a 6-digit code, got %q", resp.Code)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		req := SignUpRequest{
			Email:       "test@example.com",
			Password:    "password123",
			DisplayName: "Test User 2",
		}

		_, err := svc.SignUp(ctx, req)
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("short password", func(t *testing.T) {
		req := SignUpRequest{
			Email:       "test2@example.com",
			Password:    "short",
			DisplayName: "Test User",
		}

		_, err := svc.SignUp(ctx, req)
		if err == nil {
			t.Error("expected error for short password")
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{})
		if err == nil {
			t.Error("expected error for missing fields")
		}
	})

	t.Run("handle alone suffices as label", func(t *testing.T) {
		req := SignUpRequest{
			Email:    "handle-only@example.com",
			Password: "password123",
			Handle:   "wanderer",
		}

		resp, err := svc.SignUp(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.User.Label() != "wanderer" {
			t.Errorf("expected label wanderer, got %q", resp.User.Label())
		}
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	mockStore := newMockUserStore()
	svc := NewService(mockStore, 6, 15*time.Minute)

	resp, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "test@example.com",
		Password:    "password123",
		DisplayName: "Test User",
	})
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}

	t.Run("unverified accounts may sign in", func(t *testing.T) {
		user, err := svc.SignIn(ctx, SignInRequest{
			Email:    "test@example.com",
			Password: "password123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.IsEmailVerified {
			t.Error("expected the account to still be unverified")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "test@example.com",
			Password: "wrongpassword",
		})
		if !errors.Is(err, ErrBadCredentials) {
			t.Errorf("expected ErrBadCredentials, got %v", err)
		}
	})

	t.Run("non-existent user", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "nonexistent@example.com",
			Password: "password123",
		})
		if !errors.Is(err, ErrBadCredentials) {
			t.Errorf("expected ErrBadCredentials, got %v", err)
		}
	})

	t.Run("email is case-insensitive", func(t *testing.T) {
		user, err := svc.SignIn(ctx, SignInRequest{
			Email:    "TEST@Example.COM",
			Password: "password123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != resp.User.ID {
			t.Errorf("expected user %s, got %s", resp.User.ID, user.ID)
		}
	})
}

func TestVerificationCodes(t *testing.T) {
	ctx := context.Background()
	mockStore := newMockUserStore()
	svc := NewService(mockStore, 6, 15*time.Minute)

	resp, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "test@example.com",
		Password:    "password123",
		DisplayName: "Test User",
	})
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	userID := resp.User.ID

	t.Run("rejected code leaves the account unverified", func(t *testing.T) {
		err := svc.SubmitVerificationCode(ctx, userID, "000000")
		if !errors.Is(err, ErrCodeInvalid) {
			t.Fatalf("expected ErrCodeInvalid, got %v", err)
		}

		user, _ := mockStore.GetUserByID(ctx, userID)
		if user.IsEmailVerified {
			t.Error("a rejected code must not verify the account")
		}
	})

	t.Run("the original code still works after a rejection", func(t *testing.T) {
		if err := svc.SubmitVerificationCode(ctx, userID, resp.Code); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		user, _ := mockStore.GetUserByID(ctx, userID)
		if !user.IsEmailVerified {
			t.Error("expected the account to be verified")
		}
	})

	t.Run("verified is terminal", func(t *testing.T) {
		if err := svc.SubmitVerificationCode(ctx, userID, "whatever"); err != nil {
			t.Errorf("submitting a code once verified must be a no-op, got %v", err)
		}
		if _, err := svc.RequestVerificationCode(ctx, userID); !errors.Is(err, verify.ErrAlreadyVerified) {
			t.Errorf("expected ErrAlreadyVerified, got %v", err)
		}
	})
}

func TestRequestVerificationCodeReplacesEarlierCode(t *testing.T) {
	ctx := context.Background()
	mockStore := newMockUserStore()
	svc := NewService(mockStore, 6, 15*time.Minute)

	resp, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "test@example.com",
		Password:    "password123",
		DisplayName: "Test User",
	})
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}
	userID := resp.User.ID

	code, err := svc.RequestVerificationCode(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code == resp.Code {
		t.Fatal("expected a fresh code on resend")
	}

	// The replaced code no longer verifies
	if err := svc.SubmitVerificationCode(ctx, userID, resp.Code); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid for the replaced code, got %v", err)
	}
	if err := svc.SubmitVerificationCode(ctx, userID, code); err != nil {
		t.Fatalf("unexpected error for the fresh code: %v", err)
	}
}

func TestExpiredCodeIsRejected(t *testing.T) {
	ctx := context.Background()
	mockStore := newMockUserStore()
	svc := NewService(mockStore, 6, 15*time.Minute)
	svc.codeTTL = -1 * time.Minute // force immediate expiry

	resp, err := svc.SignUp(ctx, SignUpRequest{
		Email:       "test@example.com",
		Password:    "password123",
		DisplayName: "Test User",
	})
	if err != nil {
		t.Fatalf("sign up failed: %v", err)
	}

	err = svc.SubmitVerificationCode(ctx, resp.User.ID, resp.Code)
	if !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid for an expired code, got %v", err)
	}
}
