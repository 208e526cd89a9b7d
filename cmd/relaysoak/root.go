package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jacoelho/relaybuf"
	"github.com/jacoelho/relaybuf/internal/soak"
)

const envPrefix = "relaysoak"

func newRootCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "relaysoak",
		Short:         "Soak a bounded relay with a consumer slower than its producer",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return errors.Annotate(err, "binding flags")
			}
			return run(cmd.Context(), v, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.Int("events", 500, "number of events to emit")
	flags.Int("waterline", relaybuf.DefaultWaterline, "events buffered before overflow listeners take over")
	flags.Duration("emit-interval", time.Millisecond, "pause before each emitted event")
	flags.Duration("pull-latency", 10*time.Millisecond, "time the consumer spends on each event")
	flags.String("log-level", logrus.InfoLevel.String(), "log level")
	flags.String("metrics-addr", "", "serve prometheus metrics on this address while running")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func run(ctx context.Context, v *viper.Viper, out, logOut io.Writer) error {
	level, err := logrus.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return errors.Annotate(err, "parsing log level")
	}
	logger := logrus.New()
	logger.SetOutput(logOut)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	collector := relaybuf.NewCollector("relaysoak")
	if addr := v.GetString("metrics-addr"); addr != "" {
		stop, err := serveMetrics(addr, collector, logger)
		if err != nil {
			return errors.Trace(err)
		}
		defer stop()
	}

	report, err := soak.Run(ctx, soak.Config{
		Events:       v.GetInt("events"),
		Waterline:    v.GetInt("waterline"),
		EmitInterval: v.GetDuration("emit-interval"),
		PullLatency:  v.GetDuration("pull-latency"),
		Logger:       logger.WithField("component", "soak"),
		Metrics:      collector,
	})
	if err != nil {
		return errors.Trace(err)
	}

	_, err = fmt.Fprintf(out, "pulled=%d overflowed=%d unique=%d elapsed=%s\n",
		report.Pulled, report.Overflowed, report.Unique, report.Elapsed.Round(time.Millisecond))
	return errors.Trace(err)
}

func serveMetrics(addr string, c prometheus.Collector, logger logrus.FieldLogger) (func(), error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return nil, errors.Annotate(err, "registering metrics")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Annotatef(err, "listening on %s", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()
	logger.WithField("addr", ln.Addr().String()).Info("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	}, nil
}
