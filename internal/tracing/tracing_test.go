package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), Config{ServiceName: "wondernav", Exporter: "jaeger"})
	assert.Error(t, err)
}

func TestSetup_None(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "wondernav", Exporter: ExporterNone})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_StdoutExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Config{
		ServiceName: "wondernav",
		Version:     "test",
		Exporter:    ExporterStdout,
		Writer:      &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "chat.handle")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "chat.handle")
}
