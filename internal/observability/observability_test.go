package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDRoundTrip(t *testing.T) {
	t.Parallel()
	id := GenerateCorrelationID()
	require.Len(t, id, 36)

	ctx := WithCorrelationID(context.Background(), id)
	assert.Equal(t, id, ExtractCorrelationID(ctx))
	assert.Empty(t, ExtractCorrelationID(context.Background()))
}

func TestSyncLoggerRollback(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(stderrWriter)

	ctx := WithCorrelationID(context.Background(), "abc")
	NewSyncLogger("engagement").LogRollback(ctx, "rec-like:7", errors.New("offline"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "mutation rolled back", entry["msg"])
	assert.Equal(t, "rec-like:7", entry["key"])
	assert.Equal(t, "abc", entry["correlation_id"])
	assert.Equal(t, "offline", entry["error"])
}

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(stderrWriter)
	defer SetLevel("warn")

	SetLevel("info")
	NewSyncLogger("engagement").LogSkip(context.Background(), "follow:bo")
	assert.Empty(t, buf.String())

	SetLevel("debug")
	NewSyncLogger("engagement").LogSkip(context.Background(), "follow:bo")
	assert.Contains(t, buf.String(), "mutation skipped")
}

func TestTrackRemoteCallCountsErrors(t *testing.T) {
	t.Parallel()
	before := testutil.ToFloat64(RemoteErrors.WithLabelValues("test_op"))

	TrackRemoteCall("test_op")(nil)
	TrackRemoteCall("test_op")(errors.New("down"))

	assert.Equal(t, before+1, testutil.ToFloat64(RemoteErrors.WithLabelValues("test_op")))
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "recs-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	span, ctx := NewSpan(context.Background(), "noop")
	span.SetError(errors.New("ignored"))
	span.End()
	assert.NotNil(t, ctx)
}
