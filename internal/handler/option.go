package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"Constituent/internal/middleware"
	"Constituent/internal/service"
	"Constituent/pkg/logger"
	"Constituent/pkg/response"
)

// ListOptions 列出前缀/后缀选项
// GET /v1/options/:group
func ListOptions(ctx context.Context, c *app.RequestContext) {
	group := c.Param("group")

	items, err := service.Option().List(ctx, group)
	if err != nil {
		logError(c, "Failed to list options", err, zap.String("group", group))
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, items, map[string]interface{}{
		"group": group,
		"total": len(items),
	})
}

// logError 5xx 记 Error，业务错误记 Info
func logError(c *app.RequestContext, msg string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Error(err),
	)

	if response.StatusOf(err) >= 500 {
		logger.Logger.Error(msg, fields...)
		return
	}
	logger.Logger.Info(msg, fields...)
}
