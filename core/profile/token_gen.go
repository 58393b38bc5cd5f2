package profile

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	salt    = []byte("monguri.core.profile.token_gen")
	nowFunc = time.Now // mockable

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// EncodeUID base64 encodes the ID of `p`.
func EncodeUID(p Profile) string {
	return base64.RawURLEncoding.EncodeToString([]byte(p.ID))
}

func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// makeToken generates a password reset token for `p`.
// The token is invalidated by any password change or login.
func (svc *Service) makeToken(p Profile) (string, error) {
	return svc.makeTokenWithTimestamp(p, numDaysSince2001(nowFunc()))
}

// verifyToken checks that a password reset token for `p` is valid.
func (svc *Service) verifyToken(p Profile, token string) error {
	if token == "" {
		return errInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}

	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	newToken, err := svc.makeTokenWithTimestamp(p, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return errInvalidToken
	}

	// check that the timestamp is within limit
	if (numDaysSince2001(nowFunc()) - ts) > int(svc.conf.PasswordResetTimeoutDelta/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func (svc *Service) makeTokenWithTimestamp(p Profile, ts int) (string, error) {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.Itoa(ts)))
	sig, err := svc.sign(hashValue(p, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", tsB32, sig), nil
}

func (svc *Service) sign(val []byte) (string, error) {
	key := sha256.Sum256(append(salt, svc.conf.SecretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(p Profile, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(p.ID)
	val.Write(p.PasswordHash)
	if p.LastLogin != nil {
		val.WriteString(p.LastLogin.UTC().Format(time.RFC3339))
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
