package gateway

import (
	"context"
	"log/slog"
	"sync"

	"imoperator/pkg/bus"
)

const defaultWorkers = 4

// dispatcher drains the inbound queue and hands each packet to the handler
// registered for its channel.
type dispatcher struct {
	bus     *bus.MessageBus
	workers int
	log     *slog.Logger

	wg sync.WaitGroup
}

func newDispatcher(msgBus *bus.MessageBus, workers int, log *slog.Logger) *dispatcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if log == nil {
		log = slog.Default()
	}

	return &dispatcher{
		bus:     msgBus,
		workers: workers,
		log:     log.With("component", "gateway.dispatcher"),
	}
}

// Start launches the worker pool. Workers exit when ctx ends or the bus closes.
func (d *dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(worker int) {
			defer d.wg.Done()
			d.work(ctx, worker)
		}(i)
	}
}

// Wait blocks until every worker has exited.
func (d *dispatcher) Wait() {
	d.wg.Wait()
}

func (d *dispatcher) work(ctx context.Context, worker int) {
	for {
		packet, ok := d.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}

		d.dispatch(ctx, worker, packet)
	}
}

func (d *dispatcher) dispatch(ctx context.Context, worker int, packet bus.Packet) {
	handler, ok := d.bus.GetHandler(packet.Channel)
	if !ok {
		d.log.Warn("No handler for channel", "channel", packet.Channel, "request_id", packet.ID)
		return
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			d.log.Error("Handler panicked", "channel", packet.Channel, "request_id", packet.ID, "worker", worker, "panic", recovered)
		}
	}()

	handler(ctx, packet)
}
