package log

import "net/url"

// SanitizeURL removes user info and the query string from a URL so that
// tokens embedded in download links never reach the log. Strings that do
// not parse are returned unchanged.
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
