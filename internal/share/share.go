// Package share builds the links and snippets that point back at a card.
package share

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/vukan322/gitcard/internal/core"
)

// Payload is what a share link carries.
type Payload struct {
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// Link returns {base}/share?data=<payload> for the given user.
func Link(baseURL, username string, at time.Time) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: empty username", core.ErrInvalidInput)
	}

	raw, err := json.Marshal(Payload{Username: username, Timestamp: at.UTC()})
	if err != nil {
		return "", fmt.Errorf("share: encode payload: %w", err)
	}

	q := url.Values{}
	q.Set("data", base64.RawURLEncoding.EncodeToString(raw))
	return strings.TrimRight(baseURL, "/") + "/share?" + q.Encode(), nil
}

// Parse decodes the data parameter of a share link. Plain JSON payloads
// are accepted too.
func Parse(data string) (Payload, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return Payload{}, fmt.Errorf("%w: empty share payload", core.ErrInvalidInput)
	}

	raw := []byte(data)
	if !strings.HasPrefix(data, "{") {
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return Payload{}, fmt.Errorf("%w: malformed share payload: %v", core.ErrInvalidInput, err)
		}
		raw = decoded
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: malformed share payload: %v", core.ErrInvalidInput, err)
	}
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" {
		return Payload{}, fmt.Errorf("%w: share payload without username", core.ErrInvalidInput)
	}
	return p, nil
}

// EmbedURL is where the SVG rendition of a user's card is served.
func EmbedURL(baseURL, username string) string {
	return strings.TrimRight(baseURL, "/") + "/embed/" + url.PathEscape(username) + ".svg"
}

func Embed(baseURL, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: empty username", core.ErrInvalidInput)
	}
	src := html.EscapeString(EmbedURL(baseURL, username))
	alt := html.EscapeString("Cartão GitHub de " + username)
	return fmt.Sprintf(`<img src="%s" alt="%s" width="800" height="260">`, src, alt), nil
}

func Markdown(baseURL, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: empty username", core.ErrInvalidInput)
	}
	return fmt.Sprintf("![Cartão GitHub de %s](%s)", username, EmbedURL(baseURL, username)), nil
}
