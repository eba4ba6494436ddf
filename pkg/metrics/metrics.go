package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 重建结果
const (
	RebuildSuccess = "success"
	RebuildBusy    = "busy"
	RebuildFailed  = "failed"
)

var (
	rebuildUpdatedTotal metric.Int64Counter
	rebuildRunsTotal    metric.Int64Counter
	nameFormattedTotal  metric.Int64Counter
	severePanicsTotal   metric.Int64Counter
	httpRequestsTotal   metric.Int64Counter
	httpDuration        metric.Float64Histogram
)

func init() {
	// 全局 MeterProvider 设置前创建的指标会自动委托过去
	_ = Init(otel.Meter("constituent"))
}

// Init 用给定的 meter 重新创建所有指标，测试里传入 ManualReader 对应的 meter
func Init(meter metric.Meter) error {
	var err error

	rebuildUpdatedTotal, err = meter.Int64Counter(
		"contact.name_rebuild.updated",
		metric.WithDescription("Contacts whose sort/display name changed during a rebuild"),
		metric.WithUnit("{contact}"),
	)
	if err != nil {
		return err
	}

	rebuildRunsTotal, err = meter.Int64Counter(
		"contact.name_rebuild.runs",
		metric.WithDescription("Name rebuild messages handled, by result"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return err
	}

	nameFormattedTotal, err = meter.Int64Counter(
		"contact.name.formatted",
		metric.WithDescription("Individual contacts run through the name formatter"),
		metric.WithUnit("{contact}"),
	)
	if err != nil {
		return err
	}

	severePanicsTotal, err = meter.Int64Counter(
		"http.server.severe_panics",
		metric.WithDescription("Recovered panics classified as severe"),
		metric.WithUnit("{panic}"),
	)
	if err != nil {
		return err
	}

	httpRequestsTotal, err = meter.Int64Counter(
		"http.server.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	httpDuration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return err
	}

	return nil
}

// RebuildUpdated 记录重建中实际改名的联系人数
func RebuildUpdated(ctx context.Context, n int) {
	rebuildUpdatedTotal.Add(ctx, int64(n))
}

// RebuildRun 记录一次重建消息的处理结果
func RebuildRun(ctx context.Context, result string) {
	rebuildRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// NameFormatted 记录一次姓名格式化
func NameFormatted(ctx context.Context, fallback string) {
	nameFormattedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("fallback", fallback)))
}

// SeverePanic 记录一次严重 panic
func SeverePanic(ctx context.Context, route string) {
	severePanicsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("http.route", route)))
}

// HTTPRequest 记录一次 HTTP 请求
func HTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	httpRequestsTotal.Add(ctx, 1, attrs)
	httpDuration.Record(ctx, elapsed.Seconds(), attrs)
}
