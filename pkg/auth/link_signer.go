package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSignatureExpired = errors.New("signature expired")
)

// downloadSegment marks storage backend links that accept a sign parameter
const downloadSegment = "/d/"

var urlPath = regexp.MustCompile(`^https?://[^/]+(/[^?#]*)`)

// Sign computes the token for path with an absolute expiry in epoch seconds.
// An expiry of 0 never expires.
func Sign(path, secret string, expiry int64) string {
	data := fmt.Sprintf("%s:%d", path, expiry)
	return fmt.Sprintf("%s:%d", digest(data, []byte(secret)), expiry)
}

// digest returns the HMAC-SHA256 of data, base64 URL encoded with padding kept
func digest(data string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// LinkSigner issues time limited storage backend links
type LinkSigner struct {
	secret      []byte
	expireHours int
	now         func() time.Time
}

// NewLinkSigner creates a signer; expireHours of 0 issues links that never expire
func NewLinkSigner(secret string, expireHours int) *LinkSigner {
	return &LinkSigner{
		secret:      []byte(secret),
		expireHours: expireHours,
		now:         time.Now,
	}
}

// expiry returns the epoch second a link signed now expires at
func (s *LinkSigner) expiry() int64 {
	if s.expireHours == 0 {
		return 0
	}
	return s.now().Unix() + int64(s.expireHours)*3600
}

// Sign returns the token for a storage path such as /movies/a.mkv
func (s *LinkSigner) Sign(path string) string {
	return Sign(path, string(s.secret), s.expiry())
}

// SignURL appends sign={digest}:{expiry} to a download link. Links that already
// carry a sign parameter or do not address the download route are returned as is.
func (s *LinkSigner) SignURL(link string) string {
	if strings.Contains(link, "sign=") {
		return link
	}
	path, ok := SignPath(link)
	if !ok {
		return link
	}

	sep := "?"
	if strings.Contains(link, "?") {
		sep = "&"
	}
	return link + sep + "sign=" + s.Sign(path)
}

// Verify checks a token issued for path
func (s *LinkSigner) Verify(path, token string) error {
	i := strings.LastIndex(token, ":")
	if i == -1 {
		return ErrInvalidSignature
	}
	expiry, err := strconv.ParseInt(token[i+1:], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad expiry", ErrInvalidSignature)
	}

	expected := digest(fmt.Sprintf("%s:%d", path, expiry), s.secret)
	if !hmac.Equal([]byte(expected), []byte(token[:i])) {
		return ErrInvalidSignature
	}

	if expiry != 0 && s.now().Unix() > expiry {
		return ErrSignatureExpired
	}
	return nil
}

// SignPath extracts the canonical signed path from a download link: the part after
// the /d prefix, percent decoded, with duplicate slashes collapsed.
func SignPath(link string) (string, bool) {
	m := urlPath.FindStringSubmatch(link)
	if m == nil {
		return "", false
	}
	path := m[1]
	i := strings.Index(path, downloadSegment)
	if i == -1 {
		return "", false
	}
	path = path[i+len(downloadSegment)-1:]
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}
	return path, true
}
