package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys shared across the coordination core.
var (
	AttrEntityID     = attribute.Key("legion.entity_id")
	AttrGroupID      = attribute.Key("legion.group_id")
	AttrClaimID      = attribute.Key("legion.claim_id")
	AttrMessageKind  = attribute.Key("legion.message_kind")
	AttrCoordinator  = attribute.Key("legion.coordinator")
	AttrPhase        = attribute.Key("legion.phase")
	AttrBossID       = attribute.Key("legion.boss_id")
	AttrCorpseID     = attribute.Key("legion.corpse_id")
)

// StartSpan starts an internal span, the default kind for in-process
// coordination work (claim resolution, phase transitions, plan building).
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
}

// StartServerSpan starts a span for work triggered by an inbound message
// (router dispatch, bus delivery).
func StartServerSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(attrs...))
}

// StartClientSpan starts a span for work that emits a command to agents
// (pull execution, pull orders, bloodlust calls).
func StartClientSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}
