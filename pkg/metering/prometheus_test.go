package metering_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dirbridge/pkg/metering"
)

func TestPrometheusSink_Record(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := metering.NewPrometheusSink(reg)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, metering.Event{TenantID: "acme", Operation: "getUser", Success: true, Attempts: 1, Duration: 30 * time.Millisecond}))
	require.NoError(t, sink.Record(ctx, metering.Event{TenantID: "acme", Operation: "getUser", Success: true, Attempts: 3, Duration: time.Second}))
	require.NoError(t, sink.Record(ctx, metering.Event{TenantID: "acme", Operation: "createUser", Category: "validation", Attempts: 1}))
	require.NoError(t, sink.Record(ctx, metering.Event{TenantID: "globex", Operation: "listUsers", Category: "rate_limit"}))

	expected := `
# HELP dirbridge_operations_total Number of directory operations by outcome
# TYPE dirbridge_operations_total counter
dirbridge_operations_total{operation="createUser",result="failure",tenant="acme"} 1
dirbridge_operations_total{operation="getUser",result="success",tenant="acme"} 2
dirbridge_operations_total{operation="listUsers",result="failure",tenant="globex"} 1
# HELP dirbridge_operations_errors_total Number of failed directory operations by error category
# TYPE dirbridge_operations_errors_total counter
dirbridge_operations_errors_total{category="rate_limit",tenant="globex"} 1
dirbridge_operations_errors_total{category="validation",tenant="acme"} 1
# HELP dirbridge_operations_attempts_total Number of outbound HTTP attempts, retries included
# TYPE dirbridge_operations_attempts_total counter
dirbridge_operations_attempts_total{tenant="acme"} 5
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"dirbridge_operations_total",
		"dirbridge_operations_errors_total",
		"dirbridge_operations_attempts_total",
	)
	assert.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "dirbridge_operations_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPrometheusSink_SharedRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first, err := metering.NewPrometheusSink(reg)
	require.NoError(t, err)
	second, err := metering.NewPrometheusSink(reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, first.Record(ctx, metering.Event{TenantID: "acme", Operation: "getUser", Success: true}))
	require.NoError(t, second.Record(ctx, metering.Event{TenantID: "acme", Operation: "getUser", Success: true}))

	count, err := testutil.GatherAndCount(reg, "dirbridge_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "both sinks feed the same series")
}

func TestPrometheusSink_Forget(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := metering.NewPrometheusSink(reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Record(ctx, metering.Event{TenantID: "acme", Operation: "getUser", Success: true}))
	require.NoError(t, sink.Record(ctx, metering.Event{TenantID: "globex", Operation: "getUser", Success: true}))

	sink.Forget("acme")

	count, err := testutil.GatherAndCount(reg, "dirbridge_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
