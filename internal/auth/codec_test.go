package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

var (
	keyOnce sync.Once
	keyPool []*rsa.PrivateKey
)

// testKeys returns n distinct RSA keys shared across tests.
func testKeys(t *testing.T, n int) []*rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		for i := 0; i < 4; i++ {
			k, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			keyPool = append(keyPool, k)
		}
	})
	if n > len(keyPool) {
		t.Fatalf("only %d test keys available", len(keyPool))
	}
	return keyPool[:n]
}

func newTestCodec(t *testing.T, opts ...CodecOption) *Codec {
	t.Helper()
	keys := testKeys(t, 2)
	c, err := NewCodec(
		KeyPair{KeyID: "sig-1", Private: keys[0]},
		KeyPair{KeyID: "enc-1", Private: keys[1]},
		opts...,
	)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestCodecRoundTrip(t *testing.T) {
	c := newTestCodec(t)
	token, exp, err := c.Issue(42, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if strings.Count(token, ".") != 4 {
		t.Fatalf("expected compact JWE with five segments, got %q", token)
	}
	if d := time.Until(exp); d < 59*time.Minute || d > time.Hour+time.Second {
		t.Fatalf("unexpected expiry %s", exp)
	}
	id, err := c.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected principal 42, got %d", id)
	}
}

func TestCodecHeadersCarryKeyIDs(t *testing.T) {
	c := newTestCodec(t)
	token, _, err := c.Issue(7, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	obj, err := jose.ParseEncrypted(token, []jose.KeyAlgorithm{jose.RSA_OAEP_256}, []jose.ContentEncryption{jose.A256GCM})
	if err != nil {
		t.Fatalf("ParseEncrypted: %v", err)
	}
	if obj.Header.KeyID != "enc-1" {
		t.Fatalf("outer kid=%q", obj.Header.KeyID)
	}
	inner, err := obj.Decrypt(testKeys(t, 2)[1])
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(string(inner), &jwt.RegisteredClaims{})
	if err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if parsed.Header["kid"] != "sig-1" || parsed.Header["alg"] != "RS512" {
		t.Fatalf("unexpected inner header %v", parsed.Header)
	}
	claims := parsed.Claims.(*jwt.RegisteredClaims)
	if claims.Issuer != "invizible" || claims.Subject != "7" || claims.ID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestCodecTokensAreUnique(t *testing.T) {
	c := newTestCodec(t)
	a, _, err := c.Issue(1, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	b, _, err := c.Issue(1, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if a == b {
		t.Fatal("two issuances produced the same token")
	}
}

func TestCodecRejectsBadIssueInput(t *testing.T) {
	c := newTestCodec(t)
	if _, _, err := c.Issue(0, time.Minute); err == nil {
		t.Fatal("expected error for zero principal")
	}
	if _, _, err := c.Issue(1, 0); err == nil {
		t.Fatal("expected error for zero ttl")
	}
	if _, _, err := c.Issue(1, -time.Minute); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}

func TestCodecExpired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	issuer := newTestCodec(t, WithCodecClock(func() time.Time { return past }))
	token, _, err := issuer.Issue(5, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = newTestCodec(t).Resolve(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestCodecTampered(t *testing.T) {
	c := newTestCodec(t)
	token, _, err := c.Issue(5, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	parts := strings.Split(token, ".")
	ct := []byte(parts[3])
	if ct[0] == 'A' {
		ct[0] = 'B'
	} else {
		ct[0] = 'A'
	}
	parts[3] = string(ct)
	_, err = c.Resolve(strings.Join(parts, "."))
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}

	if _, err := c.Resolve("not-a-token"); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed for garbage, got %v", err)
	}
	if _, err := c.Resolve("   "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty, got %v", err)
	}
}

func TestCodecWrongEncryptionKey(t *testing.T) {
	keys := testKeys(t, 3)
	c := newTestCodec(t)
	token, _, err := c.Issue(5, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other, err := NewCodec(KeyPair{KeyID: "sig-1", Private: keys[0]}, KeyPair{KeyID: "enc-2", Private: keys[2]})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	if _, err := other.Resolve(token); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestCodecWrongSigningKey(t *testing.T) {
	keys := testKeys(t, 3)
	forger, err := NewCodec(KeyPair{KeyID: "sig-1", Private: keys[2]}, KeyPair{KeyID: "enc-1", Private: keys[1]})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, _, err := forger.Issue(5, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := newTestCodec(t).Resolve(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCodecRejectsMissingSubjectAndIssuer(t *testing.T) {
	c := newTestCodec(t)
	now := time.Now()
	noSub, err := c.seal(jwt.RegisteredClaims{
		Issuer:    "invizible",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := c.Resolve(noSub); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for missing subject, got %v", err)
	}

	badSub, err := c.seal(jwt.RegisteredClaims{
		Issuer:    "invizible",
		Subject:   "abc",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := c.Resolve(badSub); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed subject, got %v", err)
	}

	noExp, err := c.seal(jwt.RegisteredClaims{Issuer: "invizible", Subject: "3"})
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := c.Resolve(noExp); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for missing exp, got %v", err)
	}

	foreign := newTestCodec(t, WithIssuer("someone-else"))
	token, _, err := foreign.Issue(3, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := c.Resolve(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign issuer, got %v", err)
	}
}

func TestCodecRetiredKeys(t *testing.T) {
	keys := testKeys(t, 4)
	old, err := NewCodec(KeyPair{KeyID: "sig-old", Private: keys[2]}, KeyPair{KeyID: "enc-old", Private: keys[3]})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, _, err := old.Issue(9, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rotated := newTestCodec(t,
		WithRetiredSigningKey("sig-old", &keys[2].PublicKey),
		WithRetiredEncryptionKey("enc-old", keys[3]),
	)
	id, err := rotated.Resolve(token)
	if err != nil {
		t.Fatalf("Resolve with retired keys: %v", err)
	}
	if id != 9 {
		t.Fatalf("expected 9, got %d", id)
	}

	if _, err := newTestCodec(t).Resolve(token); err == nil {
		t.Fatal("expected failure without retired keys")
	}
}

func TestNewCodecFromPEM(t *testing.T) {
	keys := testKeys(t, 2)
	privPEM := func(k *rsa.PrivateKey) string {
		return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)}))
	}
	pubPEM := func(k *rsa.PrivateKey) string {
		der, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
		if err != nil {
			t.Fatalf("marshal public key: %v", err)
		}
		return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	}
	escaped := strings.ReplaceAll(privPEM(keys[0]), "\n", `\n`)

	c, err := NewCodecFromPEM(PEMKeys{
		SignPrivate: escaped,
		SignPublic:  pubPEM(keys[0]),
		SignKeyID:   "sig-1",
		EncPrivate:  privPEM(keys[1]),
		EncPublic:   pubPEM(keys[1]),
		EncKeyID:    "enc-1",
	})
	if err != nil {
		t.Fatalf("NewCodecFromPEM: %v", err)
	}
	token, _, err := c.Issue(11, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if id, err := newTestCodec(t).Resolve(token); err != nil || id != 11 {
		t.Fatalf("Resolve=%d,%v", id, err)
	}

	if _, err := NewCodecFromPEM(PEMKeys{SignPrivate: "garbage"}); err == nil {
		t.Fatal("expected parse error")
	}
}
