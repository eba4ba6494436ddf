package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Constituent/internal/individual"
	"Constituent/internal/model"
	"Constituent/internal/model/dto"
	"Constituent/internal/repository"
	"Constituent/pkg/token"
	"Constituent/pkg/tokenfmt"
	"Constituent/storage/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// memCache 内存版 Cache，按 JSON 存取
type memCache struct {
	mu      sync.Mutex
	data    map[string]string
	gets    int
	failGet error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]string)}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) (bool, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++
	if c.failGet != nil {
		return false, false, c.failGet
	}

	v, ok := c.data[key]
	if !ok {
		return false, false, nil
	}
	if v == "" {
		return true, true, nil
	}
	return true, false, json.Unmarshal([]byte(v), dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value == nil {
		c.data[key] = ""
		return nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = string(b)
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.data[key]
	return ok
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishNameRebuild(ctx context.Context, msg model.NameRebuildMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockLocker) Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, token, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockLocker) Unlock(ctx context.Context, key, token string) error {
	return m.Called(ctx, key, token).Error(0)
}

// countingOptionStore 记录回源次数
type countingOptionStore struct {
	*repository.OptionValueRepository
	mu    sync.Mutex
	calls int
}

func (s *countingOptionStore) ListByGroup(ctx context.Context, group string) ([]model.OptionValue, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.OptionValueRepository.ListByGroup(ctx, group)
}

type testEnv struct {
	db        *gorm.DB
	options   *OptionService
	settings  *SettingService
	contacts  *ContactService
	publisher *mockPublisher
	locker    *mockLocker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	ctx := context.Background()

	options := NewOptionService(repository.NewOptionValueRepository(db), newMemCache())
	require.NoError(t, options.EnsureDefaults(ctx))

	publisher := new(mockPublisher)
	settings := NewSettingService(repository.NewSettingRepository(db), newMemCache(), publisher)

	repo := repository.NewContactRepository(db)
	formatter := individual.NewFormatter(options, repo, token.Default(), settings, tokenfmt.New())
	locker := new(mockLocker)

	return &testEnv{
		db:        db,
		options:   options,
		settings:  settings,
		contacts:  NewContactService(repo, formatter, locker),
		publisher: publisher,
		locker:    locker,
	}
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func flagPtr(b bool) *dto.Flag {
	f := dto.Flag(b)
	return &f
}
