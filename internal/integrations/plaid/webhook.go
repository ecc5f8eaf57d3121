package plaid

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// webhookMaxAge is how old a verification token may be
const webhookMaxAge = 5 * time.Minute

// ErrInvalidWebhook is returned when a webhook fails verification
var ErrInvalidWebhook = errors.New("invalid plaid webhook")

type verificationKey struct {
	Alg       string `json:"alg"`
	Crv       string `json:"crv"`
	Kid       string `json:"kid"`
	Kty       string `json:"kty"`
	Use       string `json:"use"`
	X         string `json:"x"`
	Y         string `json:"y"`
	CreatedAt int64  `json:"created_at"`
	ExpiredAt *int64 `json:"expired_at"`

	public *ecdsa.PublicKey
}

type webhookClaims struct {
	RequestBodySHA256 string `json:"request_body_sha256"`
	jwt.RegisteredClaims
}

// VerifyWebhook checks the Plaid-Verification header against body. The
// header is an ES256 JWT signed with a key fetched from Plaid by key id.
func (c *Client) VerifyWebhook(ctx context.Context, body []byte, header string) error {
	if header == "" {
		return fmt.Errorf("%w: missing verification header", ErrInvalidWebhook)
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(header, &webhookClaims{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	if alg, _ := unverified.Header["alg"].(string); alg != jwt.SigningMethodES256.Alg() {
		return fmt.Errorf("%w: unexpected alg %q", ErrInvalidWebhook, alg)
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return fmt.Errorf("%w: missing kid", ErrInvalidWebhook)
	}

	key, err := c.verificationKey(ctx, kid)
	if err != nil {
		return err
	}
	if key.ExpiredAt != nil {
		return fmt.Errorf("%w: key %s expired", ErrInvalidWebhook, kid)
	}

	claims := &webhookClaims{}
	_, err = jwt.ParseWithClaims(header, claims, func(*jwt.Token) (interface{}, error) {
		return key.public, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}), jwt.WithTimeFunc(c.now), jwt.WithIssuedAt())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	if claims.IssuedAt == nil || c.now().Sub(claims.IssuedAt.Time) > webhookMaxAge {
		return fmt.Errorf("%w: token too old", ErrInvalidWebhook)
	}

	sum := sha256.Sum256(body)
	expected := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(expected), []byte(claims.RequestBodySHA256)) != 1 {
		return fmt.Errorf("%w: body hash mismatch", ErrInvalidWebhook)
	}
	return nil
}

// verificationKey returns the cached key for kid, fetching it on a miss
func (c *Client) verificationKey(ctx context.Context, kid string) (*verificationKey, error) {
	c.keysMu.Lock()
	cached, ok := c.keys[kid]
	c.keysMu.Unlock()
	if ok && cached.ExpiredAt == nil {
		return cached, nil
	}

	var out struct {
		Key verificationKey `json:"key"`
	}
	if err := c.post(ctx, "/webhook_verification_key/get", map[string]string{"key_id": kid}, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch webhook key %s: %w", kid, err)
	}

	key := out.Key
	pub, err := key.publicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	key.public = pub

	c.keysMu.Lock()
	c.keys[kid] = &key
	c.keysMu.Unlock()
	return &key, nil
}

// publicKey builds the P-256 public key described by the JWK
func (k *verificationKey) publicKey() (*ecdsa.PublicKey, error) {
	if k.Kty != "EC" || k.Crv != "P-256" {
		return nil, fmt.Errorf("unsupported key type %s/%s", k.Kty, k.Crv)
	}
	x, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("bad x coordinate: %w", err)
	}
	y, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return nil, fmt.Errorf("bad y coordinate: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, nil
}
