package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"Constituent/internal/model/dto"
	"Constituent/internal/service"
	"Constituent/pkg/response"
)

// GetNameFormats 查询当前生效的姓名格式
// GET /v1/settings/name-format
func GetNameFormats(ctx context.Context, c *app.RequestContext) {
	resp, err := service.Setting().NameFormats(ctx)
	if err != nil {
		logError(c, "Failed to get name formats", err)
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, resp)
}

// UpdateNameFormat 更新姓名格式，触发后台重建
// PUT /v1/settings/name-format/:name
func UpdateNameFormat(ctx context.Context, c *app.RequestContext) {
	name := c.Param("name")

	var req dto.UpdateSettingRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Setting().Set(ctx, name, req.Value); err != nil {
		logError(c, "Failed to update name format", err, zap.String("setting", name))
		response.Error(ctx, c, err)
		return
	}

	resp, err := service.Setting().NameFormats(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, resp)
}
