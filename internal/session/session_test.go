// session_test.go covers the bearer-token lifecycle against a real
// Valkey instance. Tests are skipped if Valkey is not available.
package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// testValkeyClient returns a Redis client connected to the test Valkey.
// Skips the test if Valkey is unavailable.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15, // Use DB 15 for tests to isolate from dev data.
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		// Clean up test keys.
		for _, pattern := range []string{keyPrefix + "*", userKeyPrefix + "*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// requestWithToken builds a request carrying the bearer token.
func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestTokenCreateAndGet(t *testing.T) {
	store := NewStore(testValkeyClient(t))
	ctx := context.Background()

	userID := uuid.New()
	token, err := store.Create(ctx, &Data{
		UserID:    userID,
		Email:     "token@boxden.local",
		TwoFADone: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	got, err := store.Get(ctx, requestWithToken(token))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("token payload missing")
	}
	if got.UserID != userID || got.Email != "token@boxden.local" || !got.TwoFADone {
		t.Errorf("payload: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at not recorded")
	}
}

func TestTokenGetWithoutHeader(t *testing.T) {
	store := NewStore(testValkeyClient(t))

	got, err := store.Get(context.Background(), requestWithToken(""))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing header, got %+v", got)
	}
}

func TestTokenGetUnknownToken(t *testing.T) {
	store := NewStore(testValkeyClient(t))

	got, err := store.Get(context.Background(), requestWithToken("deadbeef"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown token, got %+v", got)
	}
}

func TestTokenUpdate(t *testing.T) {
	store := NewStore(testValkeyClient(t))
	ctx := context.Background()

	token, err := store.Create(ctx, &Data{UserID: uuid.New(), Email: "upd@boxden.local"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := requestWithToken(token)
	data, err := store.Get(ctx, req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data.TwoFADone = true
	if err := store.Update(ctx, req, data); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.Get(ctx, req)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got == nil || !got.TwoFADone {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestTokenDestroy(t *testing.T) {
	store := NewStore(testValkeyClient(t))
	ctx := context.Background()

	token, err := store.Create(ctx, &Data{UserID: uuid.New(), Email: "bye@boxden.local"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := requestWithToken(token)
	if err := store.Destroy(ctx, req); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	got, err := store.Get(ctx, req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("destroyed token must not resolve")
	}
}

func TestTokenRevokeAll(t *testing.T) {
	store := NewStore(testValkeyClient(t))
	ctx := context.Background()

	userID := uuid.New()
	var tokens []string
	for i := 0; i < 3; i++ {
		token, err := store.Create(ctx, &Data{UserID: userID, Email: "multi@boxden.local"})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		tokens = append(tokens, token)
	}
	// Another user's token must survive the sweep.
	otherToken, err := store.Create(ctx, &Data{UserID: uuid.New(), Email: "other@boxden.local"})
	if err != nil {
		t.Fatalf("create other: %v", err)
	}

	if err := store.RevokeAll(ctx, userID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}

	for i, token := range tokens {
		got, err := store.Get(ctx, requestWithToken(token))
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if got != nil {
			t.Errorf("token %d still valid after RevokeAll", i)
		}
	}

	got, err := store.Get(ctx, requestWithToken(otherToken))
	if err != nil {
		t.Fatalf("get other: %v", err)
	}
	if got == nil {
		t.Error("other user's token must survive")
	}
}

func TestTokenCreateIndexesEveryToken(t *testing.T) {
	client := testValkeyClient(t)
	store := NewStore(client)
	ctx := context.Background()
	userID := uuid.New()

	// RevokeAll discovers tokens through the per-user index; a token
	// missing from it would keep authenticating after account deletion.
	issued := make(map[string]bool)
	for i := 0; i < 3; i++ {
		token, err := store.Create(ctx, &Data{UserID: userID, Email: "idx@test.local"})
		if err != nil {
			t.Fatalf("create token: %v", err)
		}
		issued[token] = true
	}

	indexed, err := client.SMembers(ctx, userKeyPrefix+userID.String()).Result()
	if err != nil {
		t.Fatalf("read token index: %v", err)
	}
	if len(indexed) != len(issued) {
		t.Fatalf("index holds %d tokens, want %d", len(indexed), len(issued))
	}
	for _, token := range indexed {
		if !issued[token] {
			t.Errorf("index holds unknown token %q", token)
		}
	}

	ttl, err := client.TTL(ctx, userKeyPrefix+userID.String()).Result()
	if err != nil {
		t.Fatalf("index ttl: %v", err)
	}
	if ttl <= 0 {
		t.Errorf("token index has no expiry (ttl %v)", ttl)
	}
}
