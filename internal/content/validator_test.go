package content

import (
	"strings"
	"testing"
)

func TestValidateAcceptsPlainText(t *testing.T) {
	sanitized, reasons := Validate("  hello there  ", Constraints{MaxLength: 200, MinLength: 1})
	if len(reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", reasons)
	}
	if sanitized != "hello there" {
		t.Fatalf("expected trimmed text, got %q", sanitized)
	}
}

func TestValidateWhitespaceOnlyAlwaysTooShort(t *testing.T) {
	// Even with a configured minimum of zero.
	_, reasons := Validate("   \t\n  ", Constraints{MaxLength: 200, MinLength: 0})
	if len(reasons) != 1 || reasons[0] != ReasonTooShort {
		t.Fatalf("expected [TOO_SHORT], got %v", reasons)
	}
}

func TestValidateReportsAllViolations(t *testing.T) {
	text := strings.Repeat("x", 250) + " https://spam.example fuck"
	_, reasons := Validate(text, Constraints{MaxLength: 200, MinLength: 1})

	want := []ReasonCode{ReasonTooLong, ReasonLinkNotAllowed, ReasonProfanity}
	if len(reasons) != len(want) {
		t.Fatalf("expected %v, got %v", want, reasons)
	}
	for i, code := range want {
		if reasons[i] != code {
			t.Fatalf("expected reason %d to be %s, got %s", i, code, reasons[i])
		}
	}
}

func TestValidateLengthBudgetDiffersByConstraints(t *testing.T) {
	text := strings.Repeat("a", 250)

	_, asRoot := Validate(text, Constraints{MaxLength: 200, MinLength: 1})
	if len(asRoot) != 1 || asRoot[0] != ReasonTooLong {
		t.Fatalf("expected root-budget rejection, got %v", asRoot)
	}

	_, asReply := Validate(text, Constraints{MaxLength: 1000, MinLength: 1})
	if len(asReply) != 0 {
		t.Fatalf("expected reply budget to accept, got %v", asReply)
	}
}

func TestValidateAllowLinksPermitsURLs(t *testing.T) {
	_, reasons := Validate("see https://example.com", Constraints{MaxLength: 200, MinLength: 1, AllowLinks: true})
	if len(reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", reasons)
	}
}

func TestSanitizeStripsControlCharacters(t *testing.T) {
	sanitized := Sanitize("hi\x00 there\r\nfriend\x1b")
	if sanitized != "hi there\nfriend" {
		t.Fatalf("unexpected sanitized text %q", sanitized)
	}
}

func TestValidateCountsRunesNotBytes(t *testing.T) {
	// 10 multi-byte runes must pass a 10-rune budget.
	_, reasons := Validate(strings.Repeat("ü", 10), Constraints{MaxLength: 10, MinLength: 1})
	if len(reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", reasons)
	}
}
