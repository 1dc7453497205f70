package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_DisabledIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "x")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_Stdout(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: true, Exporter: "stdout", SampleRate: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	assert.True(t, p.Enabled())
	_, span := p.Tracer().Start(context.Background(), "ledger.register")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
}

func TestNewProvider_UnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, Exporter: "zipkin"})
	assert.Error(t, err)
}
