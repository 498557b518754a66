package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "invizible"

// KeyPair is one RSA key pair with the identifier carried in token headers.
type KeyPair struct {
	KeyID   string
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// PEMKeys is the textual form of the signing and encryption key pairs.
type PEMKeys struct {
	SignPrivate string
	SignPublic  string
	SignKeyID   string
	EncPrivate  string
	EncPublic   string
	EncKeyID    string
}

// Codec turns a principal id into an opaque bearer token and back. Tokens are
// RS512-signed JWTs nested inside an RSA-OAEP-256/A256GCM compact JWE. The two
// layers use independent key pairs so either can rotate on its own.
type Codec struct {
	sign   KeyPair
	enc    KeyPair
	issuer string
	now    func() time.Time

	encrypter  jose.Encrypter
	verifyKeys map[string]*rsa.PublicKey
	decryptKey map[string]*rsa.PrivateKey
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec) error

// WithIssuer overrides the issuer claim written and required by the codec.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) error {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			c.issuer = issuer
		}
		return nil
	}
}

// WithCodecClock overrides the time source (useful for tests).
func WithCodecClock(fn func() time.Time) CodecOption {
	return func(c *Codec) error {
		if fn != nil {
			c.now = fn
		}
		return nil
	}
}

// WithRetiredSigningKey keeps verifying tokens signed by a previous key.
func WithRetiredSigningKey(kid string, pub *rsa.PublicKey) CodecOption {
	return func(c *Codec) error {
		if kid == "" || pub == nil {
			return errors.New("auth: retired signing key needs kid and public key")
		}
		c.verifyKeys[kid] = pub
		return nil
	}
}

// WithRetiredEncryptionKey keeps decrypting tokens encrypted to a previous key.
func WithRetiredEncryptionKey(kid string, priv *rsa.PrivateKey) CodecOption {
	return func(c *Codec) error {
		if kid == "" || priv == nil {
			return errors.New("auth: retired encryption key needs kid and private key")
		}
		c.decryptKey[kid] = priv
		return nil
	}
}

// NewCodec builds a codec from pre-loaded key material.
func NewCodec(sign, enc KeyPair, opts ...CodecOption) (*Codec, error) {
	if sign.Private == nil || enc.Private == nil {
		return nil, errors.New("auth: signing and encryption private keys are required")
	}
	if sign.Public == nil {
		sign.Public = &sign.Private.PublicKey
	}
	if enc.Public == nil {
		enc.Public = &enc.Private.PublicKey
	}
	c := &Codec{
		sign:       sign,
		enc:        enc,
		issuer:     defaultIssuer,
		now:        time.Now,
		verifyKeys: map[string]*rsa.PublicKey{sign.KeyID: sign.Public},
		decryptKey: map[string]*rsa.PrivateKey{enc.KeyID: enc.Private},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	encrypter, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.RSA_OAEP_256, Key: enc.Public, KeyID: enc.KeyID},
		(&jose.EncrypterOptions{}).WithContentType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: build encrypter: %w", err)
	}
	c.encrypter = encrypter
	return c, nil
}

// NewCodecFromPEM parses the four PEM keys and builds a codec.
func NewCodecFromPEM(keys PEMKeys, opts ...CodecOption) (*Codec, error) {
	signPriv, err := ParseRSAPrivateKey(keys.SignPrivate)
	if err != nil {
		return nil, fmt.Errorf("auth: parse signing private key: %w", err)
	}
	signPub, err := ParseRSAPublicKey(keys.SignPublic)
	if err != nil {
		return nil, fmt.Errorf("auth: parse signing public key: %w", err)
	}
	encPriv, err := ParseRSAPrivateKey(keys.EncPrivate)
	if err != nil {
		return nil, fmt.Errorf("auth: parse encryption private key: %w", err)
	}
	encPub, err := ParseRSAPublicKey(keys.EncPublic)
	if err != nil {
		return nil, fmt.Errorf("auth: parse encryption public key: %w", err)
	}
	return NewCodec(
		KeyPair{KeyID: strings.TrimSpace(keys.SignKeyID), Private: signPriv, Public: signPub},
		KeyPair{KeyID: strings.TrimSpace(keys.EncKeyID), Private: encPriv, Public: encPub},
		opts...,
	)
}

// Issue signs an assertion for principalID valid for ttl and encrypts it.
func (c *Codec) Issue(principalID int64, ttl time.Duration) (string, time.Time, error) {
	if principalID <= 0 {
		return "", time.Time{}, errors.New("auth: principal id must be positive")
	}
	if ttl <= 0 {
		return "", time.Time{}, errors.New("auth: ttl must be greater than zero")
	}
	now := c.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   strconv.FormatInt(principalID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	token, err := c.seal(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

func (c *Codec) seal(claims jwt.RegisteredClaims) (string, error) {
	jws := jwt.NewWithClaims(jwt.SigningMethodRS512, claims)
	if c.sign.KeyID != "" {
		jws.Header["kid"] = c.sign.KeyID
	}
	signed, err := jws.SignedString(c.sign.Private)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	obj, err := c.encrypter.Encrypt([]byte(signed))
	if err != nil {
		return "", fmt.Errorf("auth: encrypt token: %w", err)
	}
	compact, err := obj.CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("auth: serialize token: %w", err)
	}
	return compact, nil
}

// Resolve decrypts and verifies token and returns the principal id it names.
// Errors wrap ErrDecryptionFailed, ErrTokenExpired or ErrInvalidToken.
func (c *Codec) Resolve(token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrInvalidToken
	}

	obj, err := jose.ParseEncrypted(token,
		[]jose.KeyAlgorithm{jose.RSA_OAEP_256},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	key, ok := c.decryptKey[obj.Header.KeyID]
	if !ok {
		key = c.enc.Private
	}
	plaintext, err := obj.Decrypt(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(string(plaintext), &claims, c.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS512.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return 0, ErrInvalidToken
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return 0, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: malformed subject", ErrInvalidToken)
	}
	return id, nil
}

func (c *Codec) verificationKey(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if key, ok := c.verifyKeys[kid]; ok {
		return key, nil
	}
	if kid == "" {
		return c.sign.Public, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}
