// Package session provides Valkey-backed bearer-token authentication.
// A login issues an opaque token that clients send in the
// Authorization header; token payloads are stored as JSON in Valkey
// with automatic TTL expiry. A per-user index supports revoking every
// token at once, which account deletion relies on.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a token lives in Valkey before automatic expiry.
	DefaultTTL = 24 * time.Hour

	// keyPrefix namespaces token keys in Valkey to avoid collisions.
	keyPrefix = "token:"

	// userKeyPrefix namespaces the per-user token index.
	userKeyPrefix = "user_tokens:"

	// idLength is the byte length of the random token (32 bytes = 64 hex chars).
	idLength = 32
)

// Data holds the token payload stored in Valkey: the authenticated
// user's identity and 2FA completion status.
type Data struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	TwoFADone bool      `json:"two_fa_done"`
	CreatedAt time.Time `json:"created_at"`
}

// Store manages bearer-token lifecycle in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect creates a Valkey client and verifies the connection with a ping.
func Connect(host, port, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("valkey ping: %w", err)
	}
	return client, nil
}

// NewStore creates a token store backed by the given Valkey client.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		ttl:    DefaultTTL,
	}
}

// Create issues a new bearer token for the given payload and records
// it in the user's token index. Returns the token string.
func (s *Store) Create(ctx context.Context, data *Data) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("token create: %w", err)
	}

	data.CreatedAt = time.Now()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("token marshal: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+token, payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("token store: %w", err)
	}

	// Index the token under its user so RevokeAll can find it. A token
	// missing from the index would survive revocation, so an indexing
	// failure fails the whole login rather than issuing the token.
	userKey := userKeyPrefix + data.UserID.String()
	if err := s.client.SAdd(ctx, userKey, token).Err(); err != nil {
		s.client.Del(ctx, keyPrefix+token)
		return "", fmt.Errorf("token index: %w", err)
	}
	if err := s.client.Expire(ctx, userKey, s.ttl).Err(); err != nil {
		s.client.Del(ctx, keyPrefix+token)
		return "", fmt.Errorf("token index expire: %w", err)
	}

	return token, nil
}

// Get retrieves the payload for the bearer token on the request.
// Returns nil if the request carries no token or the token is expired
// or revoked — absence of a session is not an error.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, nil
	}

	payload, err := s.client.Get(ctx, keyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("token get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("token unmarshal: %w", err)
	}

	return &data, nil
}

// Update replaces the payload of the request's token without changing
// the token itself. Resets the TTL.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	token := bearerToken(r)
	if token == "" {
		return fmt.Errorf("token update: no bearer token")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("token marshal: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+token, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("token update: %w", err)
	}
	return nil
}

// Destroy revokes the request's token. A request without a token is a no-op.
func (s *Store) Destroy(ctx context.Context, r *http.Request) error {
	token := bearerToken(r)
	if token == "" {
		return nil
	}
	s.client.Del(ctx, keyPrefix+token)
	return nil
}

// RevokeAll deletes every live token of the given user. Used when an
// account is deleted.
func (s *Store) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	userKey := userKeyPrefix + userID.String()
	tokens, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("token index read: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, keyPrefix+t)
	}
	keys = append(keys, userKey)

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("token revoke: %w", err)
	}
	return nil
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// generateToken creates a cryptographically random token string.
func generateToken() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
