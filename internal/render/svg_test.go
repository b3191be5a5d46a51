package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vukan322/gitcard/internal/core"
)

func TestRenderSVG(t *testing.T) {
	out, err := RenderSVG(Card{
		Profile: core.Profile{Login: "octocat", Name: "The Octocat", Followers: 4000},
		Repositories: []core.Repository{
			{Name: "low", Stars: 1},
			{Name: "high", Stars: 900},
		},
	})
	require.NoError(t, err)

	svg := string(out)
	assert.True(t, strings.HasPrefix(svg, "<svg "))
	assert.Contains(t, svg, `width="800"`)
	assert.Contains(t, svg, "octocat (The Octocat)")
	assert.Contains(t, svg, "4.000 Seguidores")
	assert.Less(t, strings.Index(svg, "1. high"), strings.Index(svg, "2. low"))
	assert.Contains(t, svg, "★ 900")
	assert.NotContains(t, svg, "<image")
}

func TestRenderSVG_EscapesUserText(t *testing.T) {
	out, err := RenderSVG(Card{
		Profile: core.Profile{Login: "x", Bio: `<script>alert("hi")</script>`},
	})
	require.NoError(t, err)

	assert.NotContains(t, string(out), "<script>")
	assert.Contains(t, string(out), "&lt;script&gt;")
}

func TestRenderSVG_NoRepositories(t *testing.T) {
	out, err := RenderSVG(Card{Profile: core.Profile{Login: "empty"}})
	require.NoError(t, err)

	assert.Contains(t, string(out), "Nenhum repositório público")
}

func TestRenderSVG_WithAvatar(t *testing.T) {
	uri := AvatarDataURI(solidPNG(t, colorPrimary))

	out, err := RenderSVG(Card{Profile: core.Profile{Login: "octocat"}, AvatarDataURI: uri})
	require.NoError(t, err)

	assert.Contains(t, string(out), `<image href="data:image/png;base64,`)
}

func TestRenderSVG_RequiresLogin(t *testing.T) {
	_, err := RenderSVG(Card{})
	assert.ErrorIs(t, err, core.ErrNoProfile)
}

func TestAvatarDataURI(t *testing.T) {
	assert.Equal(t, "", AvatarDataURI(nil))
	assert.True(t, strings.HasPrefix(AvatarDataURI(solidPNG(t, colorAccent)), "data:image/png;base64,"))
}
