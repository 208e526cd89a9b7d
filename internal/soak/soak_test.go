package soak_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jacoelho/relaybuf"
	"github.com/jacoelho/relaybuf/internal/soak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunSlowConsumer(t *testing.T) {
	c := relaybuf.NewCollector("soak")
	report, err := soak.Run(context.Background(), soak.Config{
		Events:      500,
		Waterline:   200,
		PullLatency: time.Millisecond,
		Metrics:     c,
	})
	require.NoError(t, err)

	assert.Equal(t, 500, report.Unique)
	assert.Equal(t, 500, report.Pulled+report.Overflowed)
	assert.Positive(t, report.Overflowed)

	expected := `
# HELP soak_events_emitted_total The number of events passed to Emit.
# TYPE soak_events_emitted_total counter
soak_events_emitted_total 500
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "soak_events_emitted_total"))
}

func TestRunPaced(t *testing.T) {
	report, err := soak.Run(context.Background(), soak.Config{
		Events:       100,
		Waterline:    10,
		EmitInterval: 100 * time.Microsecond,
		PullLatency:  500 * time.Microsecond,
	})
	require.NoError(t, err)

	assert.Equal(t, 100, report.Unique)
	assert.Equal(t, 100, report.Pulled+report.Overflowed)
	assert.Positive(t, report.Elapsed)
}

func TestRunFastConsumer(t *testing.T) {
	report, err := soak.Run(context.Background(), soak.Config{
		Events:       50,
		Waterline:    0,
		EmitInterval: time.Millisecond,
	})
	require.NoError(t, err)

	assert.Equal(t, 50, report.Unique)
	assert.Equal(t, 50, report.Pulled+report.Overflowed)
}

func TestRunNoEvents(t *testing.T) {
	report, err := soak.Run(context.Background(), soak.Config{Waterline: 5})
	require.NoError(t, err)
	assert.Equal(t, soak.Report{Elapsed: report.Elapsed}, report)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := soak.Run(ctx, soak.Config{
		Events:       10000,
		Waterline:    200,
		EmitInterval: time.Millisecond,
		PullLatency:  time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  soak.Config
	}{
		{"NegativeEvents", soak.Config{Events: -1}},
		{"NegativeWaterline", soak.Config{Waterline: -1}},
		{"NegativeEmitInterval", soak.Config{EmitInterval: -time.Second}},
		{"NegativePullLatency", soak.Config{PullLatency: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)

			_, err = soak.Run(context.Background(), tt.cfg)
			assert.True(t, errors.Is(err, errors.NotValid), "got %v", err)
		})
	}

	require.NoError(t, soak.Config{Events: 1}.Validate())
}
