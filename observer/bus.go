package observer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"

	strix "github.com/nevindra/strix"
)

// Attach subscribes the instruments to a scan event bus so that scan
// lifecycle, task outcomes, and discoveries flow into OTEL. Returns a
// detach function that removes every subscription.
func Attach(bus *strix.Bus, inst *Instruments) (detach func()) {
	ctx := context.Background()
	var unsubs []func()

	sub := func(t strix.EventType, h strix.EventHandler) {
		unsubs = append(unsubs, bus.Subscribe(t, h))
	}

	sub(strix.EventScanStarted, func(e strix.Event) {
		inst.ScansStarted.Add(ctx, 1,
			metric.WithAttributes(attribute.String("target", str(e.Data["target"]))))
	})

	sub(strix.EventScanCompleted, func(e strix.Event) {
		inst.ScansCompleted.Add(ctx, 1,
			metric.WithAttributes(attribute.String("target", str(e.Data["target"]))))
	})

	sub(strix.EventTaskCompleted, func(e strix.Event) {
		attrs := metric.WithAttributes(
			attribute.String("tool", str(e.Data["tool"])),
			attribute.String("outcome", "completed"),
		)
		inst.TaskExecutions.Add(ctx, 1, attrs)
		if ms, ok := e.Data["duration_ms"].(float64); ok {
			inst.TaskDuration.Record(ctx, ms,
				metric.WithAttributes(attribute.String("tool", str(e.Data["tool"]))))
		}
	})

	sub(strix.EventTaskFailed, func(e strix.Event) {
		inst.TaskExecutions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", str(e.Data["tool"])),
			attribute.String("outcome", "failed"),
		))
	})

	sub(strix.EventAssetDiscovered, func(e strix.Event) {
		inst.AssetsFound.Add(ctx, 1,
			metric.WithAttributes(attribute.String("type", str(e.Data["type"]))))
	})

	sub(strix.EventFindingDiscovered, func(e strix.Event) {
		severity := str(e.Data["severity"])
		inst.FindingsFound.Add(ctx, 1,
			metric.WithAttributes(attribute.String("severity", severity)))

		var rec otellog.Record
		rec.SetBody(otellog.StringValue(str(e.Data["title"])))
		rec.SetSeverity(otelSeverity(severity))
		rec.AddAttributes(
			otellog.String("host", str(e.Data["host"])),
			otellog.String("discovered_by", e.Source),
		)
		inst.Logger.Emit(ctx, rec)
	})

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func otelSeverity(s string) otellog.Severity {
	switch strix.Severity(s) {
	case strix.SeverityCritical:
		return otellog.SeverityFatal
	case strix.SeverityHigh:
		return otellog.SeverityError
	case strix.SeverityMedium:
		return otellog.SeverityWarn
	case strix.SeverityLow:
		return otellog.SeverityInfo
	default:
		return otellog.SeverityDebug
	}
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
