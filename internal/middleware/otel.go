package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/config"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"Constituent/pkg/metrics"
)

// NewServerTracer 返回 hertz server 的追踪选项和中间件
// 选项在创建 server 时传入，中间件要排在其他中间件前面
func NewServerTracer(opts ...hertztracing.Option) (config.Option, app.HandlerFunc) {
	tracer, cfg := hertztracing.NewServerTracer(opts...)
	return tracer, hertztracing.ServerMiddleware(cfg)
}

// MetricsMiddleware 按路由模板记录请求数和耗时
func MetricsMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()

		c.Next(ctx)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequest(ctx, string(c.Method()), route, c.Response.StatusCode(), time.Since(start))
	}
}
