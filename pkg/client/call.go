package client

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nettable-dev/nettable/pkg/protocol"
)

// Call invokes the server-defined procedure stored under name and
// blocks for its results. params must match the definition's parameter
// arity and types. The call is bounded by ctx and the configured RPC
// timeout; a response arriving after either is silently discarded.
func (c *Client) Call(ctx context.Context, name string, params []protocol.Value) ([]protocol.Value, error) {
	ctx, span := c.tracer.Start(ctx, "nettable.rpc.call",
		trace.WithAttributes(attribute.String("rpc.name", name)))
	defer span.End()

	results, err := c.call(ctx, name, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return results, err
}

func (c *Client) call(ctx context.Context, name string, params []protocol.Value) ([]protocol.Value, error) {
	c.mu.Lock()
	e, ok := c.tbl.Get(name)
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntry, name)
	}
	if e.Type != protocol.TypeRpc || e.Value.Rpc == nil || e.ID == protocol.UnassignedID {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrNotRpc, name)
	}
	def := e.Value.Rpc

	if len(params) != len(def.Params) {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %q got %d want %d",
			protocol.ErrRpcArityMismatch, name, len(params), len(def.Params))
	}
	for i, p := range params {
		if p.Type != def.Params[i].Type {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: %q param %d is %s want %s",
				protocol.ErrTypeMismatch, name, i, p.Type, def.Params[i].Type)
		}
	}

	call := c.rpcs.register(e.ID)
	c.mu.Unlock()

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("rpc.def_id", int(call.defID)),
		attribute.Int("rpc.unique_id", int(call.uniqueID)))

	data, err := encodeMessage(&protocol.RpcExecute{
		DefID:    call.defID,
		UniqueID: call.uniqueID,
		Params:   params,
	})
	if err == nil {
		err = c.send(data)
	}
	if err != nil {
		c.mu.Lock()
		c.rpcs.remove(call)
		c.mu.Unlock()
		return nil, err
	}

	start := time.Now()
	timer := time.NewTimer(c.cfg.RPCTimeout)
	defer timer.Stop()

	select {
	case out := <-call.done:
		if out.err != nil {
			return nil, out.err
		}
		c.met.rpcDuration.Observe(time.Since(start).Seconds())
		return out.results, nil

	case <-timer.C:
		if c.abandon(call) {
			return nil, ErrTimedOut
		}
		out := <-call.done
		return out.results, out.err

	case <-ctx.Done():
		if c.abandon(call) {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		out := <-call.done
		return out.results, out.err
	}
}

// abandon removes a pending call. Reports false when the call raced a
// completion, in which case its outcome is already buffered.
func (c *Client) abandon(call *rpcCall) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rpcs.remove(call)
}
