package database

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/amadile/Shopping-site-sub001/pkg/database"

type queryStateKey struct{}

type queryState struct {
	span    trace.Span
	sql     string
	started time.Time
}

// QueryTracer implements pgx.QueryTracer. It opens a client span per
// statement and logs statements slower than the configured threshold.
type QueryTracer struct {
	tracer trace.Tracer
	slow   time.Duration
	logger *slog.Logger
	now    func() time.Time
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

// NewQueryTracer creates a tracer bound to the global OpenTelemetry provider.
// A zero slow threshold or nil logger disables slow query logging.
func NewQueryTracer(slow time.Duration, logger *slog.Logger) *QueryTracer {
	return &QueryTracer{
		tracer: otel.Tracer(tracerName),
		slow:   slow,
		logger: logger,
		now:    time.Now,
	}
}

// TraceQueryStart is called by pgx before a statement is sent.
func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	op := operationName(data.SQL)
	ctx, span := t.tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", op),
			attribute.String("db.statement", data.SQL),
		),
	)
	return context.WithValue(ctx, queryStateKey{}, &queryState{span: span, sql: data.SQL, started: t.now()})
}

// TraceQueryEnd is called by pgx once a statement has completed.
func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	state, ok := ctx.Value(queryStateKey{}).(*queryState)
	if !ok {
		return
	}

	if data.Err != nil {
		state.span.RecordError(data.Err)
		state.span.SetStatus(codes.Error, data.Err.Error())
	} else {
		state.span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
	state.span.End()

	if t.slow <= 0 || t.logger == nil {
		return
	}
	elapsed := t.now().Sub(state.started)
	if elapsed < t.slow {
		return
	}
	attrs := []any{
		slog.String("statement", state.sql),
		slog.Duration("duration", elapsed),
	}
	if data.Err != nil {
		attrs = append(attrs, slog.String("error", data.Err.Error()))
	}
	t.logger.WarnContext(ctx, "slow query", attrs...)
}

// operationName returns the upper-cased leading keyword of a statement.
func operationName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "QUERY"
	}
	return strings.ToUpper(fields[0])
}
