package yahoo

import "strings"

// relayContentMarker precedes the mirrored body in a relay response.
const relayContentMarker = "Markdown Content:"

// unwrapRelayBody extracts the chart JSON from a relay response. The relay
// wraps the original body in markdown; the payload sits after the content
// marker, starting at the first opening brace. Responses without the marker
// get the same brace scan applied to the raw body.
func unwrapRelayBody(body []byte) []byte {
	text := string(body)
	if idx := strings.Index(text, relayContentMarker); idx >= 0 {
		text = text[idx+len(relayContentMarker):]
	}
	if idx := strings.Index(text, "{"); idx >= 0 {
		return []byte(text[idx:])
	}
	return []byte(text)
}

// stripScheme removes the http(s) scheme so the URL can be appended to the
// relay prefix.
func stripScheme(rawURL string) string {
	trimmed := strings.TrimPrefix(rawURL, "https://")
	return strings.TrimPrefix(trimmed, "http://")
}
