package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the coordination core's named instruments. Instantiated
// once per Provider. The router, bus, resolver and coordinators do not
// import this package; cmd/legiond's recordMetrics loop polls their stats
// and records router queue depth, dropped messages, granted and denied
// claims, and tracked corpses. Nothing records to the other instruments.
type Metrics struct {
	MessagesRouted     metric.Int64Counter
	MessagesDropped    metric.Int64Counter
	RouterQueueDepth    metric.Int64UpDownCounter
	ClaimsGranted      metric.Int64Counter
	ClaimsDenied       metric.Int64Counter
	ClaimResolutionMs   metric.Float64Histogram
	ActiveGroups       metric.Int64UpDownCounter
	GroupsExpired      metric.Int64Counter
	BurstWindowsOpened metric.Int64Counter
	BurstWindowsSuccess metric.Int64Counter
	CorpsesTracked     metric.Int64UpDownCounter
	CorpsesReaped      metric.Int64Counter
	CorpseRemovalDenied metric.Int64Counter
	CoordinatorTickMs   metric.Float64Histogram
}

// NewMetrics builds every instrument off meter, returning the first error
// encountered.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var err error
	m := &Metrics{}

	if m.MessagesRouted, err = meter.Int64Counter("legion.router.messages_routed",
		metric.WithDescription("messages successfully routed to a handler")); err != nil {
		return nil, fmt.Errorf("messages_routed: %w", err)
	}
	if m.MessagesDropped, err = meter.Int64Counter("legion.router.messages_dropped",
		metric.WithDescription("messages dropped due to queue overflow")); err != nil {
		return nil, fmt.Errorf("messages_dropped: %w", err)
	}
	if m.RouterQueueDepth, err = meter.Int64UpDownCounter("legion.router.queue_depth",
		metric.WithDescription("current depth of the router's event queue")); err != nil {
		return nil, fmt.Errorf("queue_depth: %w", err)
	}
	if m.ClaimsGranted, err = meter.Int64Counter("legion.claims.granted",
		metric.WithDescription("claim requests granted by the resolver")); err != nil {
		return nil, fmt.Errorf("claims_granted: %w", err)
	}
	if m.ClaimsDenied, err = meter.Int64Counter("legion.claims.denied",
		metric.WithDescription("claim requests denied by the resolver")); err != nil {
		return nil, fmt.Errorf("claims_denied: %w", err)
	}
	if m.ClaimResolutionMs, err = meter.Float64Histogram("legion.claims.resolution_duration_ms",
		metric.WithDescription("time from claim request to resolution"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("claim_resolution_ms: %w", err)
	}
	if m.ActiveGroups, err = meter.Int64UpDownCounter("legion.bus.active_groups",
		metric.WithDescription("number of coordination groups currently tracked by the bus")); err != nil {
		return nil, fmt.Errorf("active_groups: %w", err)
	}
	if m.GroupsExpired, err = meter.Int64Counter("legion.bus.groups_expired",
		metric.WithDescription("coordination groups reaped for inactivity")); err != nil {
		return nil, fmt.Errorf("groups_expired: %w", err)
	}
	if m.BurstWindowsOpened, err = meter.Int64Counter("legion.arena.burst_windows_opened",
		metric.WithDescription("burst windows opened by the arena coordinator")); err != nil {
		return nil, fmt.Errorf("burst_windows_opened: %w", err)
	}
	if m.BurstWindowsSuccess, err = meter.Int64Counter("legion.arena.burst_windows_succeeded",
		metric.WithDescription("burst windows whose target died or fell below 30% health while executing")); err != nil {
		return nil, fmt.Errorf("burst_windows_succeeded: %w", err)
	}
	if m.CorpsesTracked, err = meter.Int64UpDownCounter("legion.deathsafety.corpses_tracked",
		metric.WithDescription("corpses currently held by the death-safety tracker")); err != nil {
		return nil, fmt.Errorf("corpses_tracked: %w", err)
	}
	if m.CorpsesReaped, err = meter.Int64Counter("legion.deathsafety.corpses_reaped",
		metric.WithDescription("corpses reaped past the expiry bound")); err != nil {
		return nil, fmt.Errorf("corpses_reaped: %w", err)
	}
	if m.CorpseRemovalDenied, err = meter.Int64Counter("legion.deathsafety.removal_denied",
		metric.WithDescription("pre-remove hook denials due to an outstanding reference or unsafe state")); err != nil {
		return nil, fmt.Errorf("removal_denied: %w", err)
	}
	if m.CoordinatorTickMs, err = meter.Float64Histogram("legion.coordinator.tick_duration_ms",
		metric.WithDescription("wall time spent in a coordinator's tick"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("tick_duration_ms: %w", err)
	}

	return m, nil
}
