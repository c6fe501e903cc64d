package domain

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

// Encode renders the cursor as base64url("<unixnano>|<id>").
func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.Time.UnixNano(), 10) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor is the inverse of Encode. An empty string yields nil.
func ParseCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, pkgError.ValidationError("invalid cursor")
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, pkgError.ValidationError("invalid cursor")
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, pkgError.ValidationError("invalid cursor")
	}
	return &Cursor{Time: time.Unix(0, nanos).UTC(), ID: id}, nil
}
