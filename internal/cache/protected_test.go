package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type labels struct {
	Items map[int]string `json:"items"`
}

func newTestCache(t *testing.T) (*ProtectedCache, redismock.ClientMock) {
	t.Helper()

	db, mock := redismock.NewClientMock()
	pc := NewProtectedCache("option", time.Hour).WithClient(db).WithMaxDelay(0)
	return pc, mock
}

func TestProtectedCache_SetAndGet(t *testing.T) {
	pc, mock := newTestCache(t)
	ctx := context.Background()

	value := labels{Items: map[int]string{1: "Mrs.", 4: "Dr."}}
	data, err := json.Marshal(value)
	require.NoError(t, err)

	mock.ExpectSet(pc.Key("individual_prefix"), string(data), time.Hour).SetVal("OK")
	mock.ExpectGet(pc.Key("individual_prefix")).SetVal(string(data))

	require.NoError(t, pc.Set(ctx, "individual_prefix", value))

	var got labels
	hit, empty, err := pc.Get(ctx, "individual_prefix", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.False(t, empty)
	assert.Equal(t, "Dr.", got.Items[4])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProtectedCache_Miss(t *testing.T) {
	pc, mock := newTestCache(t)

	mock.ExpectGet(pc.Key("missing")).RedisNil()

	var got labels
	hit, empty, err := pc.Get(context.Background(), "missing", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProtectedCache_EmptyValue(t *testing.T) {
	pc, mock := newTestCache(t)
	ctx := context.Background()

	mock.ExpectSet(pc.Key("none"), emptyValueFlag, emptyValueTTL).SetVal("OK")
	mock.ExpectGet(pc.Key("none")).SetVal(emptyValueFlag)

	require.NoError(t, pc.Set(ctx, "none", nil))

	var got labels
	hit, empty, err := pc.Get(ctx, "none", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProtectedCache_Delete(t *testing.T) {
	pc, mock := newTestCache(t)

	mock.ExpectDel(pc.Key("individual_suffix")).SetVal(1)

	require.NoError(t, pc.Delete(context.Background(), "individual_suffix"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProtectedCache_BreakerOpensOnRedisErrors(t *testing.T) {
	pc, mock := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		mock.ExpectGet(pc.Key("individual_prefix")).SetErr(errors.New("connection refused"))
	}

	var got labels
	for i := 0; i < 5; i++ {
		_, _, err := pc.Get(ctx, "individual_prefix", &got)
		require.Error(t, err)
	}

	_, _, err := pc.Get(ctx, "individual_prefix", &got)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db)
	locker.newToken = func() string { return "token-a" }
	ctx := context.Background()

	key := "name_rebuild"
	fullKey := "cst:lock:name_rebuild"

	mock.ExpectSetNX(fullKey, "token-a", time.Minute).SetVal(true)
	mock.ExpectSetNX(fullKey, "token-a", time.Minute).SetVal(false)
	mock.ExpectEval(refreshScript, []string{fullKey}, "token-a", int64(60000)).SetVal(int64(1))
	mock.ExpectEval(unlockScript, []string{fullKey}, "token-a").SetVal(int64(1))

	token, ok, err := locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token-a", token)

	token, ok, err = locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)

	ok, err = locker.Refresh(ctx, key, "token-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, locker.Unlock(ctx, key, "token-a"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 锁过期后被别人拿到，旧持有者既不能续期也不能删掉新锁
func TestLocker_ForeignHolder(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db)
	ctx := context.Background()

	fullKey := "cst:lock:name_rebuild"

	mock.ExpectEval(refreshScript, []string{fullKey}, "stale", int64(1000)).SetVal(int64(0))
	mock.ExpectEval(unlockScript, []string{fullKey}, "stale").SetVal(int64(0))

	ok, err := locker.Refresh(ctx, "name_rebuild", "stale", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	err = locker.Unlock(ctx, "name_rebuild", "stale")
	assert.ErrorIs(t, err, ErrLockNotHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_TokensAreUnique(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db)

	a, b := locker.newToken(), locker.newToken()
	assert.NotEqual(t, a, b)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_MessageMarks(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db)
	ctx := context.Background()

	fullKey := "cst:mq:processed:42"

	mock.ExpectSetNX(fullKey, "processing", processedTTL).SetVal(true)
	mock.ExpectSet(fullKey, "completed", 48*time.Hour).SetVal("OK")
	mock.ExpectSetNX(fullKey, "processing", processedTTL).SetVal(false)
	mock.ExpectDel(fullKey).SetVal(1)

	ok, err := locker.TryMarkProcessing(ctx, "42", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, locker.MarkProcessed(ctx, "42", 48*time.Hour))

	ok, err = locker.TryMarkProcessing(ctx, "42", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.UnmarkProcessing(ctx, "42"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
