package codec

import (
	"net/url"
	"strings"

	"github.com/yndnr/tagurl-go/internal/core/domain"
)

const (
	// DefaultBaseURL is the prefix the tag firmware writes in front of the
	// token.
	DefaultBaseURL = "http://nfc-smart-tag.appspot.com/nfc?nv="

	// TokenParam is the query parameter carrying the token.
	TokenParam = "nv"
)

// URL joins base and token. An empty base selects DefaultBaseURL.
func URL(base, token string) string {
	if base == "" {
		base = DefaultBaseURL
	}
	return base + token
}

// TokenFromURL returns the token carried by s. s may be a full tag URL, a
// query string or a bare token.
func TokenFromURL(s string) (string, error) {
	s = strings.TrimSpace(s)
	// Padded tokens may end in "nv=", so only a query separator or a
	// leading parameter name marks a URL.
	if !strings.ContainsAny(s, "?&") && !strings.HasPrefix(s, TokenParam+"=") {
		return s, nil
	}

	query := s
	if i := strings.IndexByte(s, '?'); i >= 0 {
		query = s[i+1:]
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", domain.ErrMalformedInput.WithDetails("invalid query").WithCause(err)
	}
	token := values.Get(TokenParam)
	if token == "" {
		return "", domain.ErrMalformedInput.WithDetails("missing " + TokenParam + " parameter")
	}
	return token, nil
}
