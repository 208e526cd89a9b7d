package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	cmd := newRootCommand(viper.New())
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), logs.String(), err
}

func TestRootCommand(t *testing.T) {
	out, logs, err := execute(t,
		"--events", "40",
		"--waterline", "5",
		"--emit-interval", "0s",
		"--pull-latency", "1ms",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "unique=40")
	assert.Contains(t, logs, "soak run finished")
}

func TestRootCommandEnvironment(t *testing.T) {
	t.Setenv("RELAYSOAK_EVENTS", "7")
	t.Setenv("RELAYSOAK_PULL_LATENCY", "0s")
	t.Setenv("RELAYSOAK_EMIT_INTERVAL", "0s")

	out, _, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "unique=7")
}

func TestRootCommandMetrics(t *testing.T) {
	out, logs, err := execute(t,
		"--events", "3",
		"--emit-interval", "0s",
		"--pull-latency", "0s",
		"--metrics-addr", "127.0.0.1:0",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "unique=3")
	assert.Contains(t, logs, "serving metrics")
}

func TestRootCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"BadLogLevel", []string{"--log-level", "loud"}, "parsing log level"},
		{"NegativeEvents", []string{"--events", "-1"}, "not valid"},
		{"ExtraArgs", []string{"extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
