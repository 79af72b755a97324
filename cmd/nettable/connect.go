package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nettable-dev/nettable/pkg/client"
	"github.com/nettable-dev/nettable/pkg/protocol"
)

// connect builds a client from the global flags, connects, and starts
// the metrics endpoint when requested.
func connect(ctx context.Context, h client.Handler) (*client.Client, error) {
	cfg := client.DefaultConfig()
	cfg.Address = flagServer
	cfg.Port = flagPort
	cfg.Ident = flagIdent

	var reg *prometheus.Registry
	if flagMetricsAddr != "" {
		reg = prometheus.NewRegistry()
		cfg.Registry = reg
	}

	c := client.New(cfg, h)

	if reg != nil {
		go serveMetrics(flagMetricsAddr, reg)
	}

	cctx, cancel := context.WithTimeout(ctx, flagTimeout)
	defer cancel()
	if err := c.Connect(cctx); err != nil {
		return nil, err
	}
	return c, nil
}

// serveMetrics exposes the Prometheus registry on a small chi router.
func serveMetrics(addr string, reg *prometheus.Registry) {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	slog.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("metrics server failed", "error", err)
	}
}

// parseValue coerces a command-line string into a typed entry value.
func parseValue(typ, raw string) (protocol.Value, error) {
	switch typ {
	case "boolean", "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return protocol.Value{}, fmt.Errorf("invalid boolean %q", raw)
		}
		return protocol.BooleanValue(b), nil

	case "double", "number":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return protocol.Value{}, fmt.Errorf("invalid double %q", raw)
		}
		return protocol.DoubleValue(f), nil

	case "string":
		return protocol.StringValue(raw), nil

	case "raw":
		return protocol.RawValue([]byte(raw)), nil

	case "boolean[]", "bool[]":
		parts := splitList(raw)
		arr := make([]bool, len(parts))
		for i, p := range parts {
			b, err := strconv.ParseBool(p)
			if err != nil {
				return protocol.Value{}, fmt.Errorf("invalid boolean %q", p)
			}
			arr[i] = b
		}
		return protocol.BooleanArrayValue(arr), nil

	case "double[]", "number[]":
		parts := splitList(raw)
		arr := make([]float64, len(parts))
		for i, p := range parts {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return protocol.Value{}, fmt.Errorf("invalid double %q", p)
			}
			arr[i] = f
		}
		return protocol.DoubleArrayValue(arr), nil

	case "string[]":
		return protocol.StringArrayValue(splitList(raw)), nil

	default:
		return protocol.Value{}, fmt.Errorf("unknown type %q", typ)
	}
}

// coerceValue parses raw as the given wire type, for RPC arguments.
func coerceValue(t protocol.EntryType, raw string) (protocol.Value, error) {
	switch t {
	case protocol.TypeBoolean:
		return parseValue("boolean", raw)
	case protocol.TypeDouble:
		return parseValue("double", raw)
	case protocol.TypeString:
		return parseValue("string", raw)
	case protocol.TypeRaw:
		return parseValue("raw", raw)
	case protocol.TypeBooleanArray:
		return parseValue("boolean[]", raw)
	case protocol.TypeDoubleArray:
		return parseValue("double[]", raw)
	case protocol.TypeStringArray:
		return parseValue("string[]", raw)
	default:
		return protocol.Value{}, fmt.Errorf("cannot build %s argument from %q", t, raw)
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
