package github

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vukan322/gitcard/internal/core"
)

type mockHTTPClient struct {
	calls  []*http.Request
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.calls = append(m.calls, req)
	return m.doFunc(req)
}

func respond(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
			Header:     make(http.Header),
		}, nil
	}
}

const octocatJSON = `{
	"id": 583231,
	"login": "octocat",
	"name": "The Octocat",
	"bio": null,
	"avatar_url": "https://avatars.githubusercontent.com/u/583231?v=4",
	"html_url": "https://github.com/octocat",
	"company": "@github",
	"email": null,
	"blog": "https://github.blog",
	"location": "San Francisco",
	"public_repos": 8,
	"followers": 9000,
	"following": 9,
	"created_at": "2011-01-25T18:44:36Z",
	"updated_at": "2024-01-22T12:00:00Z"
}`

func TestFetchProfile(t *testing.T) {
	mock := &mockHTTPClient{doFunc: respond(http.StatusOK, octocatJSON)}
	p := New(Config{BaseURL: "https://api.example.com/"}, mock)

	profile, err := p.FetchProfile(context.Background(), "  octocat ")

	require.NoError(t, err)
	require.Len(t, mock.calls, 1)

	req := mock.calls[0]
	assert.Equal(t, "https://api.example.com/users/octocat", req.URL.String())
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "application/vnd.github+json", req.Header.Get("Accept"))
	assert.Equal(t, defaultUserAgent, req.Header.Get("User-Agent"))
	assert.Empty(t, req.Header.Get("Authorization"))

	assert.Equal(t, "octocat", profile.Login)
	assert.Equal(t, "The Octocat", profile.Name)
	assert.Equal(t, "", profile.Bio)
	assert.Equal(t, "", profile.Email)
	assert.Equal(t, 8, profile.PublicRepos)
	assert.Equal(t, 9000, profile.Followers)
	require.NotNil(t, profile.CreatedAt)
	assert.Equal(t, 2011, profile.CreatedAt.Year())
}

func TestFetchProfile_NotFound(t *testing.T) {
	mock := &mockHTTPClient{doFunc: respond(http.StatusNotFound, `{"message":"Not Found"}`)}
	p := New(Config{}, mock)

	_, err := p.FetchProfile(context.Background(), "this-user-should-not-exist-xyz123")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NotErrorIs(t, err, core.ErrService)
	assert.Equal(t, "Usuário não encontrado", core.Message(err))
	assert.Len(t, mock.calls, 1)
}

func TestFetchProfile_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		doFunc func(*http.Request) (*http.Response, error)
	}{
		{"server error", respond(http.StatusInternalServerError, `oops`)},
		{"rate limited", respond(http.StatusForbidden, `{"message":"API rate limit exceeded"}`)},
		{"malformed json", respond(http.StatusOK, `{"login":`)},
		{"missing login", respond(http.StatusOK, `{"name":"nobody"}`)},
		{"transport", func(*http.Request) (*http.Response, error) { return nil, errors.New("connection refused") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockHTTPClient{doFunc: tt.doFunc}
			p := New(Config{}, mock)

			_, err := p.FetchProfile(context.Background(), "octocat")

			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrService)
			assert.NotErrorIs(t, err, core.ErrNotFound)
			assert.Len(t, mock.calls, 1, "no retries")
		})
	}
}

func TestFetchProfile_EmptyInputMakesNoCall(t *testing.T) {
	mock := &mockHTTPClient{doFunc: respond(http.StatusOK, octocatJSON)}
	p := New(Config{}, mock)

	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := p.FetchProfile(context.Background(), in)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	}
	assert.Empty(t, mock.calls)
}

func TestFetchRepositories(t *testing.T) {
	body := `[
		{"id": 1, "name": "hello-world", "html_url": "https://github.com/octocat/hello-world", "stargazers_count": 2500},
		{"id": 2, "name": "Spoon-Knife", "html_url": "https://github.com/octocat/Spoon-Knife", "stargazers_count": 12000},
		{"id": 3, "name": "linguist", "html_url": "https://github.com/octocat/linguist", "stargazers_count": 500},
		{"id": 4, "name": "git-consortium", "html_url": "https://github.com/octocat/git-consortium", "stargazers_count": 30},
		{"id": 5, "name": "octocat.github.io", "html_url": "https://github.com/octocat/octocat.github.io", "stargazers_count": 800},
		{"id": 6, "name": "test-repo1", "html_url": "https://github.com/octocat/test-repo1", "stargazers_count": 1}
	]`
	mock := &mockHTTPClient{doFunc: respond(http.StatusOK, body)}
	p := New(Config{}, mock)

	repos, err := p.FetchRepositories(context.Background(), "octocat")

	require.NoError(t, err)
	require.Len(t, mock.calls, 1)
	assert.Equal(t, "https://api.github.com/users/octocat/repos?sort=stars&per_page=5", mock.calls[0].URL.String())

	require.Len(t, repos, core.MaxRepositories)
	for i := 1; i < len(repos); i++ {
		assert.GreaterOrEqual(t, repos[i-1].Stars, repos[i].Stars)
	}
	assert.Equal(t, "Spoon-Knife", repos[0].Name)
	assert.Equal(t, "https://github.com/octocat/Spoon-Knife", repos[0].HTMLURL)
}

func TestFetchRepositories_EmptyIsNotAnError(t *testing.T) {
	mock := &mockHTTPClient{doFunc: respond(http.StatusOK, `[]`)}
	p := New(Config{}, mock)

	repos, err := p.FetchRepositories(context.Background(), "octocat")

	require.NoError(t, err)
	assert.Empty(t, repos)
}

func TestFetchRepositories_AnyFailureIsServiceError(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusBadGateway} {
		mock := &mockHTTPClient{doFunc: respond(status, `{}`)}
		p := New(Config{}, mock)

		_, err := p.FetchRepositories(context.Background(), "octocat")

		assert.ErrorIs(t, err, core.ErrService)
		assert.NotErrorIs(t, err, core.ErrNotFound)
	}
}

func TestFetchAvatar(t *testing.T) {
	mock := &mockHTTPClient{doFunc: respond(http.StatusOK, "\x89PNG....")}
	p := New(Config{}, mock)

	data, err := p.FetchAvatar(context.Background(), "https://avatars.example.com/u/1")

	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG...."), data)

	_, err = p.FetchAvatar(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
