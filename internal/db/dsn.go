package db

import (
	"net/url"
	"strings"
)

// Redact returns dsn with any password masked, for logging. Key/value DSNs
// and unparsable input are replaced entirely.
func Redact(dsn string) string {
	if !strings.Contains(dsn, "://") {
		return "<redacted>"
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "<redacted>"
	}
	return u.Redacted()
}
