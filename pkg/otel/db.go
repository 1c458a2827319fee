package otel

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DBSpan 为数据库查询创建 span，返回的函数在查询结束时调用
func DBSpan(ctx context.Context, sql string) (context.Context, func(error)) {
	operation := "query"
	if fields := strings.Fields(sql); len(fields) > 0 {
		operation = strings.ToLower(fields[0])
	}

	ctx, span := Tracer().Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", sql),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// ClientSpan wraps an outbound call (LLM, search) in a span.
func ClientSpan(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := Tracer().Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
