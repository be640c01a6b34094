// Package app wires the guestbook services behind a single HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"guestbook/api/internal/auth"
	"guestbook/api/internal/authpw"
	"guestbook/api/internal/config"
	"guestbook/api/internal/content"
	"guestbook/api/internal/email"
	"guestbook/api/internal/export"
	"guestbook/api/internal/feed"
	"guestbook/api/internal/search"
	"guestbook/api/internal/store"
	"guestbook/api/internal/util"
	"guestbook/api/internal/verify"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Verified     bool
	JTI          string
	ExpiresAt    time.Time
}

type PostMessageInput struct {
	Text      string  `json:"text"`
	ReplyToID *string `json:"replyToId"`
}

type dataStore interface {
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	CreateUser(context.Context, store.User) error
	MarkUserVerified(context.Context, string) error
	SaveVerificationCode(context.Context, string, string, time.Time) error
	ConsumeVerificationCode(context.Context, string, string) (bool, error)
	InsertMessage(context.Context, store.Message) (store.Message, error)
	GetMessage(context.Context, string) (store.Message, error)
	ListMessagesPage(context.Context, int, int) ([]store.Message, error)
	ListMessagesByAuthor(context.Context, string, int, int) ([]store.Message, error)
	CountMessages(context.Context) (int, error)
	CountMessagesByAuthor(context.Context, string) (int, error)
	MessageExists(context.Context, string) (bool, error)
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)
	Ping(ctx context.Context) error
}

type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	Ping(ctx context.Context) error
}

type prefsStore interface {
	GetIgnored(ctx context.Context, viewerID string) ([]string, error)
	SetIgnored(ctx context.Context, viewerID string, labels []string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	prefs    prefsStore
	accounts *authpw.Service
	mailer   *email.Service
	searcher *search.Service
	composer *feed.Composer
	exporter *export.Service
}

// New assembles the application service. searcher may be nil when
// Meilisearch and the Postgres fallback are both unavailable.
func New(cfg config.Config, dataStore dataStore, sessions sessionStore, prefs prefsStore, mailer *email.Service, searcher *search.Service) *Service {
	composer := feed.NewComposer(dataStore, cfg.CreatorLabel)
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		prefs:    prefs,
		accounts: authpw.NewService(dataStore, cfg.CodeDigits, cfg.CodeTTL),
		mailer:   mailer,
		searcher: searcher,
		composer: composer,
		exporter: export.NewService(composer),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) PingSessions(ctx context.Context) error {
	return s.sessions.Ping(ctx)
}

func (s *Service) SMTPConfigured() bool {
	return s.mailer != nil && s.mailer.IsConfigured()
}

// SignUpResult carries the new session plus the verification code for
// the dev bypass when SMTP is not configured.
type SignUpResult struct {
	Session Session
	Code    string
}

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (SignUpResult, error) {
	resp, err := s.accounts.SignUp(ctx, req)
	if err != nil {
		return SignUpResult{}, err
	}

	s.deliverCode(resp.User, resp.Code)

	session, err := s.issueSession(ctx, resp.User)
	if err != nil {
		return SignUpResult{}, err
	}
	return SignUpResult{Session: session, Code: resp.Code}, nil
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.accounts.SignIn(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:    user.ID,
		Name:   user.Label(),
		Handle: user.Handle,
		JTI:    jti,
		Exp:    expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.Label(),
		Verified:     user.IsEmailVerified,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken rebuilds the session from an access token. The
// verification flag is read fresh from the user row on every call so a
// just-verified guest can post without re-authenticating.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.Label(),
		Verified:  user.IsEmailVerified,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// RequestVerification issues a fresh code for the session's account and
// mails it. The returned code feeds the dev bypass only.
func (s *Service) RequestVerification(ctx context.Context, session Session) (string, error) {
	code, err := s.accounts.RequestVerificationCode(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, verify.ErrAlreadyVerified) {
			return "", errAlreadyVerified()
		}
		return "", err
	}

	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return "", err
	}
	s.deliverCode(user, code)
	return code, nil
}

func (s *Service) SubmitVerification(ctx context.Context, session Session, code string) error {
	if err := s.accounts.SubmitVerificationCode(ctx, session.UserID, code); err != nil {
		if errors.Is(err, authpw.ErrCodeInvalid) {
			return errCodeInvalid()
		}
		return err
	}
	return nil
}

func (s *Service) deliverCode(user store.User, code string) {
	if !s.SMTPConfigured() {
		return
	}
	go func() {
		if err := s.mailer.SendVerificationCodeEmail(user.Email, user.Label(), code, int(s.cfg.CodeTTL.Minutes())); err != nil {
			log.Printf("email: send verification code to %s: %v", user.Email, err)
		}
	}()
}

// PostMessage runs the posting gate in a fixed order: verification
// first, then content validation, then the reply target check. An
// unverified session never reaches validation, and a rejected message
// never reaches the store.
func (s *Service) PostMessage(ctx context.Context, session Session, input PostMessageInput) (feed.Entry, error) {
	if !verify.CanPost(verify.FromFlag(session.Verified)) {
		return feed.Entry{}, errNotVerified()
	}

	constraints := content.Constraints{
		MaxLength:  s.cfg.RootMaxLen,
		MinLength:  s.cfg.MinLen,
		AllowLinks: s.cfg.AllowLinks,
	}
	if input.ReplyToID != nil {
		constraints.MaxLength = s.cfg.ReplyMaxLen
	}

	sanitized, reasons := content.Validate(input.Text, constraints)
	if len(reasons) > 0 {
		codes := make([]string, 0, len(reasons))
		for _, reason := range reasons {
			codes = append(codes, string(reason))
		}
		return feed.Entry{}, errValidationFailed(codes)
	}

	if input.ReplyToID != nil {
		exists, err := s.store.MessageExists(ctx, *input.ReplyToID)
		if err != nil {
			return feed.Entry{}, fmt.Errorf("check reply target: %w", err)
		}
		if !exists {
			return feed.Entry{}, errNotFound("Reply target does not exist")
		}
	}

	message, err := s.store.InsertMessage(ctx, store.Message{
		ID:        util.NewID("msg"),
		AuthorID:  session.UserID,
		Body:      sanitized,
		ReplyToID: input.ReplyToID,
	})
	if err != nil {
		return feed.Entry{}, fmt.Errorf("insert message: %w", err)
	}

	if s.searcher != nil {
		s.searcher.IndexMessage(search.MessageRecord{
			ID:          message.ID,
			Body:        message.Body,
			AuthorLabel: session.UserName,
			AuthorID:    session.UserID,
			CreatedAt:   message.CreatedAt.Unix(),
		})
	}

	// Render through the composer so the response carries the creator
	// flag and resolved parent exactly as the feed will.
	message.AuthorLabel = session.UserName
	entry, err := s.composer.ComposeEntry(ctx, message)
	if err != nil {
		return feed.Entry{}, fmt.Errorf("compose entry: %w", err)
	}
	return entry, nil
}

// Feed returns one page of the shared feed. The page is identical for
// every viewer; ignore lists are applied client-side.
func (s *Service) Feed(ctx context.Context, page, pageSize int) (feed.Page, error) {
	result, err := s.composer.ComposePage(ctx, page, pageSize)
	if err != nil {
		if errors.Is(err, feed.ErrInvalidPage) || errors.Is(err, feed.ErrInvalidPageSize) {
			return feed.Page{}, errValidationFailed([]string{"INVALID_PAGE"})
		}
		return feed.Page{}, err
	}
	return result, nil
}

// AuthorFeed returns one page of a single author's messages.
func (s *Service) AuthorFeed(ctx context.Context, authorID string, page, pageSize int) (feed.Page, error) {
	result, err := s.composer.ComposeAuthorPage(ctx, authorID, page, pageSize)
	if err != nil {
		if errors.Is(err, feed.ErrInvalidPage) || errors.Is(err, feed.ErrInvalidPageSize) {
			return feed.Page{}, errValidationFailed([]string{"INVALID_PAGE"})
		}
		return feed.Page{}, err
	}
	return result, nil
}

func (s *Service) IgnoredLabels(ctx context.Context, session Session) ([]string, error) {
	return s.prefs.GetIgnored(ctx, session.UserID)
}

// SetIgnoredLabels replaces the viewer's entire ignore list. Labels are
// opaque; they are never checked against real authors.
func (s *Service) SetIgnoredLabels(ctx context.Context, session Session, labels []string) ([]string, error) {
	if err := s.prefs.SetIgnored(ctx, session.UserID, labels); err != nil {
		return nil, err
	}
	return s.prefs.GetIgnored(ctx, session.UserID)
}

func (s *Service) Search(q search.Query) search.Response {
	if s.searcher == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.searcher.Search(q)
}

func (s *Service) ExportFeed(ctx context.Context, req export.Request) (*export.Result, error) {
	return s.exporter.Export(ctx, req)
}
