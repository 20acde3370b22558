package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// sessionStateKey marks the last parameter Entra ID appends to the redirect.
const sessionStateKey = "session_state="

// Errors returned by ParseRedirect.
var (
	ErrNoQuery = errors.New("auth: redirect URL has no query string")
	ErrNoCode  = errors.New("auth: redirect URL has no authorization code")
)

// AuthResponse holds the redirect parameters. They are forwarded verbatim;
// only Code and State are interpreted.
type AuthResponse struct {
	Code         string
	ClientInfo   string
	State        string
	SessionState string
}

// AuthorizationError is an error=... redirect from the authority (consent
// declined, bad redirect URI, and so on).
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description == "" {
		return "auth: authorization failed: " + e.Code
	}

	return fmt.Sprintf("auth: authorization failed: %s: %s", e.Code, e.Description)
}

// ParseRedirect extracts the authorization response from the URL the browser
// was redirected to. Parameters are looked up by name, so their order does
// not matter. The fragment is cut at the first '#' after session_state;
// a '#' inside an earlier value stays part of that value.
func ParseRedirect(raw string) (AuthResponse, error) {
	_, query, ok := strings.Cut(raw, "?")
	if !ok {
		return AuthResponse{}, ErrNoQuery
	}

	values, err := url.ParseQuery(stripFragment(query))
	if err != nil {
		return AuthResponse{}, fmt.Errorf("auth: parsing redirect query: %w", err)
	}

	if code := values.Get("error"); code != "" {
		return AuthResponse{}, &AuthorizationError{Code: code, Description: values.Get("error_description")}
	}

	resp := AuthResponse{
		Code:         values.Get("code"),
		ClientInfo:   values.Get("client_info"),
		State:        values.Get("state"),
		SessionState: values.Get("session_state"),
	}

	if resp.Code == "" {
		return AuthResponse{}, ErrNoCode
	}

	return resp, nil
}

func stripFragment(query string) string {
	start := 0
	if i := strings.Index(query, sessionStateKey); i >= 0 {
		start = i
	}

	if j := strings.IndexByte(query[start:], '#'); j >= 0 {
		return query[:start+j]
	}

	return query
}

// ClientInfo is the decoded client_info parameter: the account's object ID
// and home tenant ID.
type ClientInfo struct {
	UID  string `json:"uid"`
	UTID string `json:"utid"`
}

// DecodeClientInfo decodes the base64url JSON carried in client_info.
func DecodeClientInfo(raw string) (ClientInfo, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return ClientInfo{}, fmt.Errorf("auth: decoding client_info: %w", err)
	}

	var ci ClientInfo
	if err := json.Unmarshal(data, &ci); err != nil {
		return ClientInfo{}, fmt.Errorf("auth: decoding client_info: %w", err)
	}

	return ci, nil
}
