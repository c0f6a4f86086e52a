package telemetry

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

// MessageOutput receives the full rendering of an http exchange.
type MessageOutput interface {
	Write(id string, contents string)
}

type RestyOptions struct {
	// Dump receives every completed exchange when it is not nil.
	Dump MessageOutput
	// Redact names the cookies, form fields, query parameters and json
	// string fields whose values are masked in dumps.
	Redact []string
}

type exchangeKeyType int

var exchangeKey exchangeKeyType

// exchange follows one request through the resty middleware.
type exchange struct {
	id      uint64
	started time.Time
	span    trace.Span
}

func (e exchange) elapsed() time.Duration {
	return time.Since(e.started)
}

type restyInstrumentation struct {
	tel     API
	tracer  trace.Tracer
	opts    RestyOptions
	counter *atomic.Uint64
}

// InstrumentResty reports every request made by client to tel and wraps
// each one in a span.
func InstrumentResty(client *resty.Client, tel API, opts RestyOptions) {
	i := restyInstrumentation{
		tel:     tel,
		tracer:  otel.Tracer("steam-provider/http"),
		opts:    opts,
		counter: &atomic.Uint64{},
	}
	client.OnBeforeRequest(i.before)
	client.OnAfterResponse(i.after)
	client.OnError(i.failed)
}

func (i restyInstrumentation) before(_ *resty.Client, req *resty.Request) error {
	ex := exchange{
		id:      i.counter.Add(1),
		started: time.Now(),
	}
	ctx, span := i.tracer.Start(req.Context(), "http "+req.Method)
	ex.span = span
	req.SetContext(context.WithValue(ctx, exchangeKey, ex))

	i.tel.ReportDebug(report_resty_request, ex.id, req.Method, redact(req.URL, i.opts.Redact))
	return nil
}

func (i restyInstrumentation) after(_ *resty.Client, res *resty.Response) error {
	ex, ok := res.Request.Context().Value(exchangeKey).(exchange)
	if !ok {
		i.tel.ReportWarning(report_resty_response, "response without exchange", res.Request.URL)
		return nil
	}
	defer ex.span.End()

	// the raw request only exists once the request has been sent
	if res.Request.RawRequest != nil {
		ex.span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}
	if res.RawResponse != nil {
		ex.span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	if res.StatusCode() >= 500 {
		ex.span.SetStatus(codes.Error, res.Status())
	}

	i.tel.ReportDebug(report_resty_response, ex.id, ex.elapsed().String(), res.Status())

	if i.opts.Dump != nil && res.Request.RawRequest != nil {
		i.opts.Dump.Write(strconv.FormatUint(ex.id, 10), redact(renderExchange(res), i.opts.Redact))
	}
	return nil
}

func (i restyInstrumentation) failed(req *resty.Request, err error) {
	var elapsed time.Duration
	ex, ok := req.Context().Value(exchangeKey).(exchange)
	if ok {
		elapsed = ex.elapsed()
		ex.span.RecordError(err)
		ex.span.SetStatus(codes.Error, "request failed")
		ex.span.End()
	}
	i.tel.ReportBroken(report_resty_response, err, req.Method, redact(req.URL, i.opts.Redact), elapsed)
}
