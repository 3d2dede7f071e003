package services

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"cmm-stock/internal/adapters/persistence/repositories"
	"cmm-stock/internal/config"
	"cmm-stock/internal/pkg/clock"
	"cmm-stock/internal/pkg/metrics"
	"cmm-stock/internal/pkg/password"
	"cmm-stock/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	password.Cost = bcrypt.MinCost
	os.Exit(m.Run())
}

var jan1 = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

// memCache is an in-process ListCache
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	return keys
}

// manualClock is a clock tests can move
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:        "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     5 * time.Minute,
			RefreshTTL:    24 * time.Hour,
		},
	}
}

type fixture struct {
	db       *gorm.DB
	cache    *memCache
	metrics  *metrics.Recorder
	clock    *manualClock
	txns     *TransactionService
	auth     *AuthService
	users    *UserService
	userRepo repositories.UserRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.OpenDB(t)
	clk := &manualClock{now: jan1}
	rec := metrics.New(prometheus.NewRegistry())
	mc := newMemCache()

	userRepo := repositories.NewUserRepository(db)
	tokenRepo := repositories.NewRefreshTokenRepository(db)

	return &fixture{
		db:       db,
		cache:    mc,
		metrics:  rec,
		clock:    clk,
		txns:     NewTransactionService(repositories.NewTransactionRepository(db), mc, time.Minute, clk, rec),
		auth:     NewAuthService(userRepo, tokenRepo, testConfig(), clk),
		users:    NewUserService(userRepo, tokenRepo, clk),
		userRepo: userRepo,
	}
}

var _ clock.Clock = (*manualClock)(nil)
