package env

import (
	"net/url"
	"strings"
)

// RedactSecret masks a secret, showing only the first 4 and
// last 4 characters of long values.
func RedactSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}

// RedactURL masks credentials in a URL string, such as the
// password or token part of a notification URL.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	if password, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), RedactSecret(password))
	} else if name := u.User.Username(); name != "" {
		u.User = url.User(RedactSecret(name))
	}
	return u.String()
}

// RedactURLs applies RedactURL to every element.
func RedactURLs(urls []string) []string {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = RedactURL(u)
	}
	return out
}
