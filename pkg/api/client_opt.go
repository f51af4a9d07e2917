package api

import (
	"net/http"
)

type oauth2Opt struct {
	prefix string
	token  string
}

// OAuth2 sets the Authorization header to "<prefix> <token>". An empty token
// leaves the request unauthenticated.
func OAuth2(prefix, token string) *oauth2Opt {
	return &oauth2Opt{prefix: prefix, token: token}
}

func (opt *oauth2Opt) Do(req *http.Request) {
	if opt.token == "" {
		return
	}

	req.Header.Set("Authorization", opt.prefix+" "+opt.token)
}
