package dtrace

import (
	"fmt"

	otelattr "go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	otpnoop "go.opentelemetry.io/otel/trace/noop"
)

type TracerProvider = oteltrace.TracerProvider

type Tracer = oteltrace.Tracer

type KeyValueAttr = otelattr.KeyValue

// InstrumentationName is the name given to tracers
// obtained from a caller-supplied [TracerProvider].
const InstrumentationName = "github.com/gordian-engine/eyeball"

// NopTracerProvider returns the otel no-op tracer provider.
// This is intended to use as a fallback when a nil tracer provider is given.
func NopTracerProvider() TracerProvider {
	return otpnoop.NewTracerProvider()
}

// TracerFrom returns the package tracer from tp,
// falling back to the no-op provider when tp is nil.
func TracerFrom(tp TracerProvider) Tracer {
	if tp == nil {
		tp = NopTracerProvider()
	}
	return tp.Tracer(InstrumentationName)
}

// WithAttributes is an alias to [oteltrace.WithAttributes]
// to allow consumers to only reference the dtrace package.
func WithAttributes(attrs ...KeyValueAttr) oteltrace.SpanStartEventOption {
	return oteltrace.WithAttributes(attrs...)
}

// ReceiversAttr records how many subscribers a publish fanned out to.
func ReceiversAttr(n int) KeyValueAttr {
	return otelattr.Int("eyeball.receivers", n)
}

// VersionAttr records the publish sequence number of an observable.
func VersionAttr(v uint64) KeyValueAttr {
	return otelattr.Int64("eyeball.version", int64(v))
}

// ValueAttr returns an attribute holding fmt.Sprintf("%v", val).
// The formatting happens when the attribute is built,
// so callers should only build it for a recording span.
func ValueAttr(val any) KeyValueAttr {
	return otelattr.String("eyeball.value", fmt.Sprintf("%v", val))
}
