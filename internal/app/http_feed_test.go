package app

import (
	"fmt"
	"net/http"
	"testing"
)

func postMessageHTTP(t *testing.T, handler http.Handler, token, text string, replyToID *string) map[string]any {
	t.Helper()
	payload := map[string]any{"text": text}
	if replyToID != nil {
		payload["replyToId"] = *replyToID
	}
	rec, body := doJSON(t, handler, http.MethodPost, "/api/messages", token, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("post status = %d, body %v", rec.Code, body)
	}
	return body
}

func TestFeedPaginationShape(t *testing.T) {
	handler, _ := newTestHandler(t)
	token, code := signUpHTTP(t, handler, "guest@example.com", "Blair")
	verifyHTTP(t, handler, token, code)

	for i := 0; i < 5; i++ {
		postMessageHTTP(t, handler, token, fmt.Sprintf("message %d", i), nil)
	}

	rec, body := doJSON(t, handler, http.MethodGet, "/api/feed?page=1&limit=2", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed status = %d, body %v", rec.Code, body)
	}

	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages on page 1, got %d", len(messages))
	}
	// Newest first
	first, _ := messages[0].(map[string]any)
	if first["text"] != "message 4" {
		t.Errorf("expected newest message first, got %v", first["text"])
	}

	pagination, _ := body["pagination"].(map[string]any)
	if pagination["page"] != float64(1) || pagination["limit"] != float64(2) {
		t.Errorf("unexpected page/limit: %v", pagination)
	}
	if pagination["total"] != float64(5) || pagination["totalPages"] != float64(3) {
		t.Errorf("unexpected totals: %v", pagination)
	}
	if pagination["hasNext"] != true || pagination["hasPrev"] != false {
		t.Errorf("unexpected cursors: %v", pagination)
	}

	rec, body = doJSON(t, handler, http.MethodGet, "/api/feed?page=3&limit=2", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed status = %d", rec.Code)
	}
	messages, _ = body["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message on the last page, got %d", len(messages))
	}
	pagination, _ = body["pagination"].(map[string]any)
	if pagination["hasNext"] != false || pagination["hasPrev"] != true {
		t.Errorf("unexpected cursors on last page: %v", pagination)
	}
}

func TestFeedEnrichesReplies(t *testing.T) {
	handler, _ := newTestHandler(t)
	token, code := signUpHTTP(t, handler, "guest@example.com", "Blair")
	verifyHTTP(t, handler, token, code)

	root := postMessageHTTP(t, handler, token, "root message", nil)
	rootID, _ := root["id"].(string)
	if rootID == "" {
		t.Fatalf("root post missing id: %v", root)
	}
	postMessageHTTP(t, handler, token, "a reply", &rootID)

	rec, body := doJSON(t, handler, http.MethodGet, "/api/feed", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed status = %d", rec.Code)
	}
	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}

	reply, _ := messages[0].(map[string]any)
	if reply["replyToId"] != rootID {
		t.Errorf("reply lost its marker: %v", reply)
	}
	if reply["replyToText"] != "root message" || reply["replyToAuthorLabel"] != "Blair" {
		t.Errorf("reply not enriched with its parent: %v", reply)
	}
	if _, present := messages[1].(map[string]any)["replyToId"]; present {
		t.Error("root message must not carry reply fields")
	}
}

func TestFeedMarksCreator(t *testing.T) {
	handler, _ := newTestHandler(t)

	// The test config names the creator "Avery"
	creatorToken, creatorCode := signUpHTTP(t, handler, "avery@example.com", "Avery")
	verifyHTTP(t, handler, creatorToken, creatorCode)
	guestToken, guestCode := signUpHTTP(t, handler, "guest@example.com", "Blair")
	verifyHTTP(t, handler, guestToken, guestCode)

	postMessageHTTP(t, handler, creatorToken, "welcome", nil)
	postMessageHTTP(t, handler, guestToken, "thanks for having me", nil)

	rec, body := doJSON(t, handler, http.MethodGet, "/api/feed", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed status = %d", rec.Code)
	}
	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	guestEntry, _ := messages[0].(map[string]any)
	creatorEntry, _ := messages[1].(map[string]any)
	if guestEntry["isCreator"] != false {
		t.Error("guest entry must not carry the creator flag")
	}
	if creatorEntry["isCreator"] != true {
		t.Error("creator entry must carry the creator flag")
	}
}

func TestPostResponseCarriesCreatorFlagAndParent(t *testing.T) {
	handler, _ := newTestHandler(t)

	creatorToken, creatorCode := signUpHTTP(t, handler, "avery@example.com", "Avery")
	verifyHTTP(t, handler, creatorToken, creatorCode)
	guestToken, guestCode := signUpHTTP(t, handler, "guest@example.com", "Blair")
	verifyHTTP(t, handler, guestToken, guestCode)

	root := postMessageHTTP(t, handler, creatorToken, "welcome", nil)
	if root["isCreator"] != true {
		t.Error("creator's post response must report isCreator: true")
	}

	rootID, _ := root["id"].(string)
	reply := postMessageHTTP(t, handler, guestToken, "thanks", &rootID)
	if reply["isCreator"] != false {
		t.Error("guest's post response must report isCreator: false")
	}
	if reply["replyToText"] != "welcome" || reply["replyToAuthorLabel"] != "Avery" {
		t.Fatalf("reply response missing resolved parent: %v", reply)
	}
}

func TestFeedFiltersByAuthor(t *testing.T) {
	handler, _ := newTestHandler(t)
	token, code := signUpHTTP(t, handler, "guest@example.com", "Blair")
	verifyHTTP(t, handler, token, code)
	otherToken, otherCode := signUpHTTP(t, handler, "other@example.com", "Casey")
	verifyHTTP(t, handler, otherToken, otherCode)

	postMessageHTTP(t, handler, token, "from blair", nil)
	entry := postMessageHTTP(t, handler, otherToken, "from casey", nil)
	authorID, _ := entry["authorId"].(string)
	if authorID == "" {
		t.Fatalf("post response missing authorId: %v", entry)
	}

	rec, body := doJSON(t, handler, http.MethodGet, "/api/feed?author="+authorID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed status = %d, body %v", rec.Code, body)
	}
	messages, _ := body["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message for the author, got %d", len(messages))
	}
	if messages[0].(map[string]any)["text"] != "from casey" {
		t.Fatalf("unexpected entry: %v", messages[0])
	}
	pagination, _ := body["pagination"].(map[string]any)
	if pagination["total"] != float64(1) {
		t.Fatalf("author totals must scope to the author, got %v", pagination)
	}
}

func TestPreflightHasNoBody(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec, _ := doJSON(t, handler, http.MethodOptions, "/api/feed", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("preflight must not carry a body, got %q", rec.Body.String())
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("preflight must carry CORS headers")
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec, body := doJSON(t, handler, http.MethodGet, "/api/search?q=", "", nil)
	if rec.Code != http.StatusUnprocessableEntity || body["code"] != "VALIDATION_FAILED" {
		t.Fatalf("status = %d, body %v", rec.Code, body)
	}

	// Without a configured searcher the endpoint degrades to empty results
	rec, body = doJSON(t, handler, http.MethodGet, "/api/search?q=hello", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %v", rec.Code, body)
	}
	results, _ := body["results"].([]any)
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %v", results)
	}
}
