package git

import (
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// TokenUsername is the username paired with access tokens. GitHub, GitLab
// and Bitbucket all accept it for HTTPS token auth.
const TokenUsername = "oauth2"

// BasicAuth creates HTTP basic authentication.
func BasicAuth(username, password string) Auth {
	return &http.BasicAuth{
		Username: username,
		Password: password,
	}
}

// TokenAuth creates HTTP authentication for a personal access token.
// An empty token yields nil, meaning anonymous access.
//
// Example:
//
//	repo, err := git.Clone(ctx, url, dir, git.WithAuth(git.TokenAuth(os.Getenv("GITHUB_TOKEN"))))
func TokenAuth(token string) Auth {
	if token == "" {
		return nil
	}
	return BasicAuth(TokenUsername, token)
}

var _ Auth = (transport.AuthMethod)(nil)
