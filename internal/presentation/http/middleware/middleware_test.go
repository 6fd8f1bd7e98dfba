package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/canteen-kiosk/internal/config"
	"github.com/sangkips/canteen-kiosk/internal/domain/entity"
	"github.com/sangkips/canteen-kiosk/pkg/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memoryKeys struct {
	mu   sync.Mutex
	keys map[string]*entity.IdempotencyKey
}

func newMemoryKeys() *memoryKeys {
	return &memoryKeys{keys: make(map[string]*entity.IdempotencyKey)}
}

func scopeKey(key string, userID uuid.UUID, endpoint string) string {
	return userID.String() + "/" + endpoint + "/" + key
}

func (m *memoryKeys) GetByKey(ctx context.Context, key string, userID uuid.UUID, endpoint string) (*entity.IdempotencyKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[scopeKey(key, userID, endpoint)], nil
}

func (m *memoryKeys) Create(ctx context.Context, ikey *entity.IdempotencyKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[scopeKey(ikey.Key, ikey.UserID, ikey.Endpoint)] = ikey
	return nil
}

func (m *memoryKeys) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for k, v := range m.keys {
		if v.IsExpired() {
			delete(m.keys, k)
			removed++
		}
	}
	return removed, nil
}

type memoryUnits map[uuid.UUID]*entity.Unit

func (m memoryUnits) Create(ctx context.Context, unit *entity.Unit) error {
	m[unit.ID] = unit
	return nil
}

func (m memoryUnits) GetByID(ctx context.Context, id uuid.UUID) (*entity.Unit, error) {
	return m[id], nil
}

func withUser(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("user_role", role)
		c.Next()
	}
}

func TestAuthMiddleware(t *testing.T) {
	jwtManager := utils.NewJWTManager("test-secret", time.Hour, "canteen-kiosk")
	other := utils.NewJWTManager("other-secret", time.Hour, "canteen-kiosk")
	userID := uuid.New()
	unitID := uuid.New()

	token, err := jwtManager.GenerateAccessToken(userID, utils.RoleUser, &unitID)
	if err != nil {
		t.Fatal(err)
	}
	forged, _ := other.GenerateAccessToken(userID, utils.RoleAdmin, nil)

	router := gin.New()
	router.Use(AuthMiddleware(jwtManager))
	router.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.MustGet("user_id").(uuid.UUID).String(),
			"role":    c.GetString("user_role"),
			"unit_id": GetUnitID(c).String(),
		})
	})

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"bearer header", "/me", "Bearer " + token, http.StatusOK},
		{"query token", "/me?access_token=" + token, "", http.StatusOK},
		{"missing token", "/me", "", http.StatusUnauthorized},
		{"malformed header", "/me", "Token " + token, http.StatusUnauthorized},
		{"wrong secret", "/me", "Bearer " + forged, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK && !strings.Contains(w.Body.String(), unitID.String()) {
				t.Fatalf("unit not propagated: %s", w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	for _, tt := range []struct {
		role string
		want int
	}{
		{utils.RoleAdmin, http.StatusOK},
		{utils.RoleUser, http.StatusForbidden},
	} {
		router := gin.New()
		router.Use(withUser(uuid.New(), tt.role), RequireRole(utils.RoleAdmin))
		router.GET("/bills", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bills", nil))
		if w.Code != tt.want {
			t.Errorf("role %s: status = %d, want %d", tt.role, w.Code, tt.want)
		}
	}
}

func TestRequireUnit(t *testing.T) {
	active := &entity.Unit{ID: uuid.New(), Name: "Main Canteen", IsActive: true}
	closed := &entity.Unit{ID: uuid.New(), Name: "Annex", IsActive: false}
	units := memoryUnits{active.ID: active, closed.ID: closed}

	tests := []struct {
		name   string
		role   string
		unitID *uuid.UUID
		want   int
	}{
		{"active unit", utils.RoleUser, &active.ID, http.StatusOK},
		{"inactive unit", utils.RoleUser, &closed.ID, http.StatusNotFound},
		{"no unit", utils.RoleUser, nil, http.StatusBadRequest},
		{"admin without unit", utils.RoleAdmin, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(withUser(uuid.New(), tt.role), func(c *gin.Context) {
				if tt.unitID != nil {
					c.Set("unit_id", *tt.unitID)
				}
				c.Next()
			}, RequireUnit(units))
			router.GET("/orders", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestIdempotencyReplay(t *testing.T) {
	keys := newMemoryKeys()
	userID := uuid.New()
	calls := 0

	router := gin.New()
	router.Use(withUser(userID, utils.RoleUser))
	router.POST("/orders/:id/pay-cash", Idempotency(IdempotencyConfig{Repo: keys}), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"printed": calls})
	})
	router.POST("/orders/:id/pay-free", Idempotency(IdempotencyConfig{Repo: keys}), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})

	send := func(path, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send("/orders/1/pay-cash", "key-1")
	second := send("/orders/1/pay-cash", "key-1")
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if second.Header().Get("X-Idempotency-Replayed") != "true" || second.Body.String() != first.Body.String() {
		t.Fatalf("replay = %q %q", second.Header().Get("X-Idempotency-Replayed"), second.Body.String())
	}

	send("/orders/1/pay-cash", "")
	send("/orders/1/pay-cash", "")
	if calls != 3 {
		t.Fatalf("requests without a key ran %d times, want 3 total", calls)
	}

	send("/orders/1/pay-free", "key-2")
	send("/orders/1/pay-free", "key-2")
	if calls != 5 {
		t.Fatal("server errors must not be replayed")
	}

	stored := keys.keys[scopeKey("key-1", userID, "POST /orders/:id/pay-cash")]
	if stored == nil || stored.ResponseCode != http.StatusOK {
		t.Fatalf("stored key = %+v", stored)
	}

	// the same key on another route is a different request
	send("/orders/1/pay-free", "key-1")
	if calls != 6 {
		t.Fatal("key reused across routes was replayed")
	}
}

func TestPurgeExpiredKeys(t *testing.T) {
	keys := newMemoryKeys()
	keys.Create(context.Background(), &entity.IdempotencyKey{Key: "old", UserID: uuid.New(), ExpiresAt: time.Now().Add(-time.Minute)})
	keys.Create(context.Background(), &entity.IdempotencyKey{Key: "fresh", UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- PurgeExpiredKeys(ctx, keys, time.Millisecond, zap.NewNop()) }()

	deadline := time.After(2 * time.Second)
	for {
		keys.mu.Lock()
		n := len(keys.keys)
		keys.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expired key not purged")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("PurgeExpiredKeys() error = %v", err)
	}
}

func TestUserRateLimiter(t *testing.T) {
	rl := NewUserRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         2,
		CleanupInterval:   time.Minute,
		EntryTTL:          time.Minute,
	})
	alice, bob := uuid.New(), uuid.New()

	newRouter := func(id uuid.UUID) *gin.Engine {
		r := gin.New()
		r.Use(withUser(id, utils.RoleUser), rl.Middleware())
		r.GET("/orders", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}
	hit := func(r *gin.Engine) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))
		return w
	}

	ra, rb := newRouter(alice), newRouter(bob)
	for i := 0; i < 2; i++ {
		if w := hit(ra); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	w := hit(ra)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1000" {
		t.Fatalf("third request: status = %d, Retry-After = %q", w.Code, w.Header().Get("Retry-After"))
	}
	if hit(rb).Code != http.StatusOK {
		t.Fatal("limit leaked across users")
	}
	if got := rl.ActiveCallers(); got != 2 {
		t.Fatalf("ActiveCallers() = %d, want 2", got)
	}
	rl.forgetIdle(time.Now().Add(time.Second))
	if got := rl.ActiveCallers(); got != 0 {
		t.Fatalf("ActiveCallers() after forgetIdle = %d", got)
	}
}

func TestRateLimiterConfigFrom(t *testing.T) {
	cfg := RateLimiterConfigFrom(120, 60)
	if cfg.RequestsPerSecond != 2 || cfg.BurstSize != 120 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if RateLimiterConfigFrom(0, 60) != DefaultRateLimiterConfig() {
		t.Fatal("zero budget should fall back to defaults")
	}
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.Use(LoggerMiddleware(zap.New(core)))
	router.GET("/printer/events", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/printer/events?access_token=secret", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("request id header = %q", w.Header().Get("X-Request-ID"))
	}
	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-42" || fields["path"] != "/printer/events" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestCORSConfig(t *testing.T) {
	cfg := corsConfig(&config.CORSConfig{})
	if len(cfg.AllowOrigins) != len(defaultOrigins) || !slices.Contains(cfg.AllowHeaders, IdempotencyKeyHeader) {
		t.Fatalf("defaults = %+v", cfg)
	}
	if len(defaultHeaders) != 5 {
		t.Fatal("default headers mutated")
	}

	custom := corsConfig(&config.CORSConfig{
		AllowedOrigins: []string{"https://kiosk.example.com"},
		AllowedHeaders: []string{"Authorization", IdempotencyKeyHeader},
	})
	if custom.AllowOrigins[0] != "https://kiosk.example.com" || len(custom.AllowHeaders) != 2 {
		t.Fatalf("custom = %+v", custom)
	}
	if !slices.Contains(custom.ExposeHeaders, "X-Idempotency-Replayed") {
		t.Fatal("replay marker not exposed")
	}
}
