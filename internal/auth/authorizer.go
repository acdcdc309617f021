// Package auth decorates outbound API requests with credentials.
package auth

import (
	"net/http"

	jira "github.com/andygrunwald/go-jira"
	"golang.org/x/oauth2"
)

// Scheme identifies how an Authorizer authenticates requests.
type Scheme int

const (
	// SchemeBasic sends HTTP Basic credentials (username + API token).
	SchemeBasic Scheme = iota
	// SchemeBearer sends an "Authorization: Bearer <token>" header.
	SchemeBearer
)

// String returns the scheme name.
func (s Scheme) String() string {
	switch s {
	case SchemeBasic:
		return "basic"
	case SchemeBearer:
		return "bearer"
	default:
		return "unknown"
	}
}

// Authorizer adds exactly one authentication header to outbound requests.
// The scheme is fixed at construction; the zero value is not usable.
// Authorizers are immutable and safe to share between goroutines.
type Authorizer struct {
	scheme   Scheme
	username string
	token    string
}

// Basic returns an Authorizer that sets HTTP Basic credentials.
func Basic(username, token string) Authorizer {
	return Authorizer{scheme: SchemeBasic, username: username, token: token}
}

// Bearer returns an Authorizer that sets a bearer token.
func Bearer(token string) Authorizer {
	return Authorizer{scheme: SchemeBearer, token: token}
}

// Scheme reports which authentication scheme a is using.
func (a Authorizer) Scheme() Scheme {
	return a.scheme
}

// Authorize sets the authentication header on req and returns it.
func (a Authorizer) Authorize(req *http.Request) *http.Request {
	switch a.scheme {
	case SchemeBasic:
		req.SetBasicAuth(a.username, a.token)
	case SchemeBearer:
		a.oauthToken().SetAuthHeader(req)
	}
	return req
}

// Transport wraps base so that every request it carries is authorized.
// A nil base means http.DefaultTransport.
func (a Authorizer) Transport(base http.RoundTripper) http.RoundTripper {
	switch a.scheme {
	case SchemeBearer:
		return &oauth2.Transport{
			Source: oauth2.StaticTokenSource(a.oauthToken()),
			Base:   base,
		}
	default:
		return &jira.BasicAuthTransport{
			Username:  a.username,
			Password:  a.token,
			Transport: base,
		}
	}
}

func (a Authorizer) oauthToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: a.token, TokenType: "Bearer"}
}
