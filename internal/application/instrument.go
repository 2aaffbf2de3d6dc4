package application

import (
	"context"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	SpanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// Instruments holds the logger, tracer and RED metrics every use case reports to.
type Instruments struct {
	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

// NewInstruments binds the RED metrics and a service-scoped logger.
func NewInstruments(tel observability.Observability, service string) Instruments {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return Instruments{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// Execution tracks one use case execution from begin to end.
type Execution struct {
	in      *Instruments
	ctx     context.Context
	useCase string
	span    trace.Span
	logger  observability.Logger
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
}

func (in *Instruments) Logger() observability.Logger { return in.log }

// Begin starts a span and a use-case scoped logger. Callers must defer End.
func (in *Instruments) Begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Execution) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := in.tracer.Start(ctx, SpanPrefix+spanName, attrs...)
	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", useCase))
	ctx = logctx.With(ctx, logger)

	return ctx, &Execution{
		in:      in,
		ctx:     ctx,
		useCase: useCase,
		span:    span,
		logger:  logger,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
	}
}

// Fail marks the execution as failed with a machine-readable status.
func (p *Execution) Fail(status string) {
	p.outcome, p.status = "error", status
}

// Note changes the status text without turning the outcome into an error.
func (p *Execution) Note(status string) {
	p.status = status
}

func (p *Execution) With(fields ...observability.Field) {
	p.fields = append(p.fields, fields...)
}

func (p *Execution) Span() trace.Span { return p.span }

func (p *Execution) Logger() observability.Logger { return p.logger }

func (p *Execution) End(err error) {
	lat := time.Since(p.start).Seconds()
	if err != nil && p.outcome == "success" {
		p.outcome = "error"
		if p.status == "OK" {
			p.status = "ERROR"
		}
	}

	if p.span != nil {
		if err != nil {
			p.span.RecordError(err)
			p.span.SetStatus(codes.Error, p.status)
		} else {
			p.span.SetStatus(codes.Ok, p.status)
		}
		p.span.End()
	}

	p.in.reqCounter.Add(1,
		observability.L("use_case", p.useCase),
		observability.L("outcome", p.outcome),
	)
	p.in.durHistogram.Observe(lat,
		observability.L("use_case", p.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", p.outcome),
		observability.F("status", p.status),
		observability.F("latency_seconds", lat),
	}
	fields = append(fields, observability.TraceFields(p.ctx)...)
	fields = append(fields, p.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	p.logger.Info("use_case_done", fields...)
}

// Publish emits e best-effort. A failure is recorded on the execution but never
// fails the use case: the state change is already persisted.
func (in *Instruments) Publish(ctx context.Context, pub domoutbox.Publisher, p *Execution, e domoutbox.Event) {
	if pub == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	err := pub.Publish(pubCtx, e)
	if err != nil {
		outcome = "error"
		p.Note("EVENT_PUBLISH_FAILED")
		p.With(observability.F("event_publish_error", err.Error()))
		p.span.RecordError(err)
		p.logger.Warn("event_publish_failed", observability.F("event", e.EventName()))
	} else {
		p.span.AddEvent(e.EventName())
	}

	in.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", outcome),
	)
	in.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
	)
}
