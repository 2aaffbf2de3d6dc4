package logctx

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	fields []observability.Field
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	merged := append(append([]observability.Field(nil), l.fields...), fields...)
	return &recordingLogger{fields: merged}
}
func (l *recordingLogger) Debug(string, ...observability.Field) {}
func (l *recordingLogger) Info(string, ...observability.Field)  {}
func (l *recordingLogger) Warn(string, ...observability.Field)  {}
func (l *recordingLogger) Error(string, ...observability.Field) {}

func TestFromOr_FallsBackWhenMissing(t *testing.T) {
	fallback := &recordingLogger{}
	assert.Same(t, fallback, FromOr(context.Background(), fallback))
	assert.NotNil(t, FromOr(context.Background(), nil))
}

func TestWith_StoresLogger(t *testing.T) {
	l := &recordingLogger{}
	ctx := With(context.Background(), l)
	assert.Same(t, l, From(ctx))
}

func TestEnrich_BindsFieldsAndStoresLogger(t *testing.T) {
	base := &recordingLogger{}
	ctx, logger := Enrich(context.Background(), base, observability.F("order_id", "o-1"))

	rec, ok := logger.(*recordingLogger)
	require.True(t, ok)
	require.Len(t, rec.fields, 1)
	assert.Equal(t, "order_id", rec.fields[0].Key)
	assert.Same(t, logger, From(ctx))
}
