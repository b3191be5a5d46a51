package share

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vukan322/gitcard/internal/core"
)

func TestLink_RoundTrip(t *testing.T) {
	at := time.Date(2024, time.March, 3, 12, 30, 0, 0, time.UTC)

	link, err := Link("http://localhost:8080/", "octocat", at)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "http://localhost:8080/share?data="))

	u, err := url.Parse(link)
	require.NoError(t, err)

	got, err := Parse(u.Query().Get("data"))
	require.NoError(t, err)
	if diff := cmp.Diff(Payload{Username: "octocat", Timestamp: at}, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestLink_EmptyUsername(t *testing.T) {
	_, err := Link("http://x", "  ", time.Now())
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestParse_PlainJSON(t *testing.T) {
	raw, err := json.Marshal(map[string]string{"username": "torvalds", "timestamp": "2024-01-02T03:04:05Z"})
	require.NoError(t, err)

	got, err := Parse(string(raw))
	require.NoError(t, err)
	assert.Equal(t, "torvalds", got.Username)
	assert.Equal(t, 2024, got.Timestamp.Year())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not base64", "%%%"},
		{"not json", "bm90IGpzb24"},
		{"no username", "eyJ1c2VybmFtZSI6IiJ9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
}

func TestEmbed(t *testing.T) {
	got, err := Embed("https://cards.example", "octocat")
	require.NoError(t, err)
	assert.Equal(t, `<img src="https://cards.example/embed/octocat.svg" alt="Cartão GitHub de octocat" width="800" height="260">`, got)

	_, err = Embed("https://cards.example", "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestMarkdown(t *testing.T) {
	got, err := Markdown("https://cards.example/", "octocat")
	require.NoError(t, err)
	assert.Equal(t, "![Cartão GitHub de octocat](https://cards.example/embed/octocat.svg)", got)

	_, err = Markdown("https://cards.example", " ")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
