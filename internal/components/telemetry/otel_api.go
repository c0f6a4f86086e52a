package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OtelAPI forwards every report to `inner` and additionally records counts
// and breakages as otel metrics.
type OtelAPI struct {
	inner  API
	counts metric.Int64Gauge
	broken metric.Int64Counter
}

func NewOtelAPI(inner API) (OtelAPI, error) {
	meter := otel.Meter("steam-provider")
	counts, err := meter.Int64Gauge("report_count")
	if err != nil {
		return OtelAPI{}, err
	}
	broken, err := meter.Int64Counter("report_broken")
	if err != nil {
		return OtelAPI{}, err
	}
	return OtelAPI{inner: inner, counts: counts, broken: broken}, nil
}

func (o OtelAPI) ReportBroken(id string, params ...any) {
	o.broken.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	o.inner.ReportBroken(id, params...)
}

func (o OtelAPI) ReportWarning(id string, params ...any) {
	o.inner.ReportWarning(id, params...)
}

func (o OtelAPI) ReportDebug(msg string, params ...any) {
	o.inner.ReportDebug(msg, params...)
}

func (o OtelAPI) ReportCount(id string, count int64) {
	o.counts.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	o.inner.ReportCount(id, count)
}
