package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	return token
}

func TestFromAccessToken(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(expiry),
	})

	sess, err := FromAccessToken(token, "refresh-1")
	if err != nil {
		t.Fatalf("FromAccessToken failed: %v", err)
	}
	if sess.Subject != "u1" || sess.RefreshToken != "refresh-1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if !sess.ExpiresAt.Equal(expiry) {
		t.Fatalf("ExpiresAt = %v, want %v", sess.ExpiresAt, expiry)
	}
}

func TestFromAccessTokenRejectsGarbage(t *testing.T) {
	if _, err := FromAccessToken("not-a-jwt", ""); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("err = %v, want ErrMalformedToken", err)
	}
}

func TestFromAccessTokenMissingClaims(t *testing.T) {
	noSubject := signedToken(t, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	if _, err := FromAccessToken(noSubject, ""); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("err = %v, want ErrMissingSubject", err)
	}

	noExpiry := signedToken(t, jwt.RegisteredClaims{Subject: "u1"})
	if _, err := FromAccessToken(noExpiry, ""); !errors.Is(err, ErrMissingExpiry) {
		t.Fatalf("err = %v, want ErrMissingExpiry", err)
	}
}

func TestNormalizeFillsMissingFields(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(expiry),
	})

	filled, err := Normalize(&Session{AccessToken: token, RefreshToken: "r1"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if filled.Subject != "u1" || !filled.ExpiresAt.Equal(expiry) {
		t.Fatalf("unexpected normalized session: %+v", filled)
	}
}

func TestNormalizeLeavesCompleteSessionAlone(t *testing.T) {
	sess := &Session{
		AccessToken: "opaque-token",
		Subject:     "u1",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	out, err := Normalize(sess)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if out != sess {
		t.Fatal("complete sessions must pass through untouched")
	}
}

func TestSessionValidity(t *testing.T) {
	now := time.Now()
	sess := &Session{Subject: "u1", ExpiresAt: now.Add(time.Minute)}
	if !sess.Valid(now) {
		t.Fatal("expected session valid before expiry")
	}
	if sess.Valid(now.Add(2 * time.Minute)) {
		t.Fatal("expected session invalid after expiry")
	}

	var nilSess *Session
	if nilSess.Valid(now) {
		t.Fatal("nil session must not be valid")
	}
}
