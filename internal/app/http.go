package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"guestbook/api/internal/auth"
	"guestbook/api/internal/authpw"
	"guestbook/api/internal/export"
	"guestbook/api/internal/feed"
	"guestbook/api/internal/search"
	"guestbook/api/internal/verify"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	pageSize   int
}

func NewHTTPServer(service *Service, corsOrigin string, defaultPageSize int) *HTTPServer {
	if defaultPageSize <= 0 {
		defaultPageSize = 10
	}
	return &HTTPServer{service: service, corsOrigin: corsOrigin, pageSize: defaultPageSize}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		// Preflight: headers only, a 204 carries no body
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleAuthSignUp(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleAuthSignIn(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/verify/request" {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		code, err := s.service.RequestVerification(r.Context(), session)
		if err != nil {
			status, errCode, message, details := mapError(err)
			writeError(w, status, errCode, message, details)
			return
		}
		response := map[string]any{"message": "Verification code sent"}
		// Dev bypass: surface the code when email is not configured
		if !s.service.SMTPConfigured() {
			response["devVerificationCode"] = code
		}
		writeJSON(w, http.StatusOK, response)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/verify" {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			Code string `json:"code"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.SubmitVerification(r.Context(), session, body.Code); err != nil {
			status, errCode, message, details := mapError(err)
			writeError(w, status, errCode, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"verified": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated":     true,
			"userName":          session.UserName,
			"userId":            session.UserID,
			"verified":          session.Verified,
			"verificationState": verify.FromFlag(session.Verified),
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Refresh token invalid", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":  session.Token,
			"refreshToken": session.RefreshToken,
			"userName":     session.UserName,
			"verified":     session.Verified,
			"expiresAt":    session.ExpiresAt.Unix(),
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		session := Session{}
		if token := bearerToken(r); token != "" {
			if parsed, err := s.service.SessionFromToken(r.Context(), token); err == nil {
				session = parsed
			}
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), session, body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/feed" {
		s.handleFeed(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/messages" {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body PostMessageInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		entry, err := s.service.PostMessage(r.Context(), session, body)
		if err != nil {
			status, errCode, message, details := mapError(err)
			writeError(w, status, errCode, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
		return
	}

	if r.URL.Path == "/api/ignores" {
		switch r.Method {
		case http.MethodGet:
			session, ok := s.requireSession(w, r)
			if !ok {
				return
			}
			labels, err := s.service.IgnoredLabels(r.Context(), session)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Failed to load ignore list", nil)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"labels": labels})
			return
		case http.MethodPut:
			session, ok := s.requireSession(w, r)
			if !ok {
				return
			}
			var body struct {
				Labels []string `json:"labels"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			labels, err := s.service.SetIgnoredLabels(r.Context(), session, body.Labels)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Failed to save ignore list", nil)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"labels": labels})
			return
		}
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/export/feed" {
		s.handleExportFeed(w, r)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
		"redis":    map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}
	if err := s.service.PingSessions(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["redis"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleAuthSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
		Handle      string `json:"handle"`
		RealName    string `json:"realName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	result, err := s.service.SignUp(r.Context(), authpw.SignUpRequest{
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
		Handle:      body.Handle,
		RealName:    body.RealName,
	})
	if err != nil {
		if errors.Is(err, authpw.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "SIGNUP_FAILED", err.Error(), nil)
		return
	}

	response := map[string]any{
		"accessToken":  result.Session.Token,
		"refreshToken": result.Session.RefreshToken,
		"userId":       result.Session.UserID,
		"userName":     result.Session.UserName,
		"verified":     false,
		"message":      "Check your email for a verification code",
	}
	// Dev bypass: include the code in the response when email not configured
	if !s.service.SMTPConfigured() {
		response["devVerificationCode"] = result.Code
	}

	writeJSON(w, http.StatusCreated, response)
}

func (s *HTTPServer) handleAuthSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	session, err := s.service.SignIn(r.Context(), authpw.SignInRequest{
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		if errors.Is(err, authpw.ErrBadCredentials) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Sign in failed", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":       session.Token,
		"refreshToken":      session.RefreshToken,
		"userId":            session.UserID,
		"userName":          session.UserName,
		"verified":          session.Verified,
		"verificationState": verify.FromFlag(session.Verified),
		"expiresAt":         session.ExpiresAt.Unix(),
	})
}

func (s *HTTPServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", s.pageSize)
	if limit < 1 {
		limit = s.pageSize
	}
	if limit > 100 {
		limit = 100
	}

	var result feed.Page
	var err error
	if author := strings.TrimSpace(r.URL.Query().Get("author")); author != "" {
		result, err = s.service.AuthorFeed(r.Context(), author, page, limit)
	} else {
		result, err = s.service.Feed(r.Context(), page, limit)
	}
	if err != nil {
		status, errCode, message, details := mapError(err)
		writeError(w, status, errCode, message, details)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages":   result.Entries,
		"pagination": result.Pagination,
	})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := search.Query{
		Text:           strings.TrimSpace(r.URL.Query().Get("q")),
		FilterAuthorID: strings.TrimSpace(r.URL.Query().Get("author")),
		Limit:          queryInt(r, "limit", 20),
		Offset:         queryInt(r, "offset", 0),
	}
	if q.Text == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "Query text is required",
			map[string]any{"reasons": []string{"QUERY_REQUIRED"}})
		return
	}
	writeJSON(w, http.StatusOK, s.service.Search(q))
}

func (s *HTTPServer) handleExportFeed(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", s.pageSize)
	if limit < 1 {
		limit = s.pageSize
	}

	format := export.Format(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))))
	if format == "" {
		format = export.FormatHTML
	}

	result, err := s.service.ExportFeed(r.Context(), export.Request{
		Page:     page,
		PageSize: limit,
		Format:   format,
	})
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			writeError(w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available", nil)
			return
		}
		status, errCode, message, details := mapError(err)
		writeError(w, status, errCode, message, details)
		return
	}

	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeDomainError(w, errUnauthenticated())
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, sql.ErrNoRows) {
			writeDomainError(w, errUnauthenticated())
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDomainError(w http.ResponseWriter, err *DomainError) {
	writeError(w, err.Status, err.Code, err.Message, err.Details)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
