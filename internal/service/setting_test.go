package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"Constituent/config"
	"Constituent/internal/model"
	"Constituent/internal/repository"
	pkgerrors "Constituent/pkg/errors"
)

func TestSettingService_GetDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	got, err := env.settings.Get(ctx, model.SettingSortNameFormat)
	require.NoError(t, err)
	assert.Equal(t, config.Cfg.SortNameFormat, got)

	formats, err := env.settings.NameFormats(ctx)
	require.NoError(t, err)
	assert.Equal(t, config.Cfg.DisplayNameFormat, formats.DisplayNameFormat)

	_, err = env.settings.Get(ctx, "greeting_format")
	assert.ErrorIs(t, err, pkgerrors.SettingUnknown)
}

func TestSettingService_SetPublishesRebuild(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 先读一次让默认值进缓存
	_, err := env.settings.Get(ctx, model.SettingSortNameFormat)
	require.NoError(t, err)

	env.publisher.On("PublishNameRebuild", ctx, model.NameRebuildMessage{Setting: model.SettingSortNameFormat}).
		Return(nil).Once()

	require.NoError(t, env.settings.Set(ctx, model.SettingSortNameFormat, "  {contact.first_name}{ }{contact.last_name} "))

	got, err := env.settings.Get(ctx, model.SettingSortNameFormat)
	require.NoError(t, err)
	assert.Equal(t, "{contact.first_name}{ }{contact.last_name}", got)
	env.publisher.AssertExpectations(t)
}

func TestSettingService_SetPublishFailureKeepsValue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.publisher.On("PublishNameRebuild", ctx, mock.Anything).Return(errors.New("amqp closed"))

	require.NoError(t, env.settings.Set(ctx, model.SettingDisplayNameFormat, "{contact.first_name}"))

	got, err := env.settings.Get(ctx, model.SettingDisplayNameFormat)
	require.NoError(t, err)
	assert.Equal(t, "{contact.first_name}", got)
}

func TestSettingService_SetValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.ErrorIs(t, env.settings.Set(ctx, "greeting_format", "x"), pkgerrors.SettingUnknown)
	assert.ErrorIs(t, env.settings.Set(ctx, model.SettingSortNameFormat, "   "), pkgerrors.SettingInvalid)
	env.publisher.AssertNotCalled(t, "PublishNameRebuild", mock.Anything, mock.Anything)
}

func TestSettingService_CacheFailureFallsBackToDatabase(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	repo := repository.NewSettingRepository(db)
	require.NoError(t, repo.Upsert(ctx, model.SettingSortNameFormat, "{contact.last_name}"))

	c := newMemCache()
	c.failGet = errors.New("redis down")
	svc := NewSettingService(repo, c, new(mockPublisher))

	got, err := svc.Get(ctx, model.SettingSortNameFormat)
	require.NoError(t, err)
	assert.Equal(t, "{contact.last_name}", got)
}
