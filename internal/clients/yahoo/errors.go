package yahoo

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// FetchError is the typed failure returned for any upstream problem: blocked
// transport, malformed payload, structured chart error, or timeout. NotFound
// marks failures that should let symbol resolution move on to the next
// candidate ticker.
type FetchError struct {
	Symbol   string
	Message  string
	Status   int
	NotFound bool
}

func (e *FetchError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s: %s", e.Symbol, e.Message)
	}
	return e.Message
}

// IsNotFound reports whether err is a FetchError classified as not-found.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.NotFound
}

// Upstream error descriptions carrying these phrases mean the ticker has no
// data rather than a transport problem.
var notFoundPhrases = []string{
	"delisted",
	"no data",
	"no ticker",
	"not found",
}

func isNotFoundMessage(message string) bool {
	lowered := strings.ToLower(message)
	for _, phrase := range notFoundPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

var htmlDocumentMarkers = []string{"<!doctype", "<html", "<body", "<script"}

// looksLikeHTMLDocument reports whether a response body is an HTML page
// rather than chart JSON.
func looksLikeHTMLDocument(body string) bool {
	lowered := strings.ToLower(body)
	for _, marker := range htmlDocumentMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// DefaultMessageLimit caps normalized upstream error messages.
const DefaultMessageLimit = 180

const (
	fallbackUnavailable = "quote source unavailable"
	fallbackHTMLBlocked = "quote source unavailable (upstream returned an error page)"
)

// NormalizeOptions configures NormalizeErrorMessage. Zero values select the
// package defaults.
type NormalizeOptions struct {
	Fallback     string
	HTMLFallback string
	MaxLength    int
}

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleBlockPattern  = regexp.MustCompile(`(?is)<style.*?</style>`)
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
	spacePattern       = regexp.MustCompile(`\s+`)
)

// NormalizeErrorMessage turns an arbitrary upstream failure string into a
// short, safe, user-facing message. HTML error pages are replaced with a
// fixed fallback rather than stripped, since the stripped text carries no
// signal.
func NormalizeErrorMessage(raw string, opts NormalizeOptions) string {
	fallback := opts.Fallback
	if fallback == "" {
		fallback = fallbackUnavailable
	}
	htmlFallback := opts.HTMLFallback
	if htmlFallback == "" {
		htmlFallback = fallbackHTMLBlocked
	}
	limit := opts.MaxLength
	if limit <= 0 {
		limit = DefaultMessageLimit
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "unknown error") {
		return fallback
	}
	if looksLikeHTMLDocument(trimmed) {
		return htmlFallback
	}

	cleaned := scriptBlockPattern.ReplaceAllString(trimmed, " ")
	cleaned = styleBlockPattern.ReplaceAllString(cleaned, " ")
	cleaned = tagPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(spacePattern.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return fallback
	}

	runes := []rune(cleaned)
	if len(runes) > limit {
		cut := limit - 3
		if cut < 0 {
			cut = 0
		}
		cleaned = string(runes[:cut]) + "..."
	}
	return cleaned
}
