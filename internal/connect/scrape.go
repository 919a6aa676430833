package connect

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// The login page markup is not a stable contract. Everything that knows about
// it lives in this file, with saved snapshots under testdata/.

// loginTokenFields are the hidden input names that have carried the one-time
// login token, newest last.
var loginTokenFields = []string{"lt", "_csrf"}

// loginToken is a hidden form field that must be echoed back with the credentials.
type loginToken struct {
	Field string
	Value string
}

var (
	errNoLoginToken    = errors.New("no hidden login token input")
	errNoServiceTicket = errors.New("no response_url ticket assignment")
)

// extractLoginToken finds the first hidden <input> whose name is one of
// loginTokenFields and returns its value.
func extractLoginToken(body []byte) (loginToken, error) {
	z := html.NewTokenizer(bytes.NewReader(body))

	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return loginToken{}, errNoLoginToken
			}

			return loginToken{}, z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "input" {
				continue
			}

			if tk, ok := hiddenTokenInput(tok.Attr); ok {
				return tk, nil
			}
		}
	}
}

func hiddenTokenInput(attrs []html.Attribute) (loginToken, bool) {
	var typ, name, value string

	for _, a := range attrs {
		switch strings.ToLower(a.Key) {
		case "type":
			typ = strings.ToLower(a.Val)
		case "name":
			name = a.Val
		case "value":
			value = a.Val
		}
	}

	if typ != "hidden" || value == "" {
		return loginToken{}, false
	}

	for _, field := range loginTokenFields {
		if name == field {
			return loginToken{Field: field, Value: value}, true
		}
	}

	return loginToken{}, false
}

// serviceTicketRe matches the JavaScript redirect assignment in the login
// response, e.g. var response_url = 'https://connect.../post-auth/login?ticket=ST-1-abc';
var serviceTicketRe = regexp.MustCompile(`response_url\s*=\s*["'][^"']*?ticket=([\w\-]+)`)

// extractServiceTicket returns the service ticket embedded in the login response.
func extractServiceTicket(body []byte) (string, error) {
	m := serviceTicketRe.FindSubmatch(body)
	if m == nil {
		return "", errNoServiceTicket
	}

	return string(m[1]), nil
}
