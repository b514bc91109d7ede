package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"imoperator/pkg/bus"
	"imoperator/pkg/channel"
	"imoperator/pkg/command"
	"imoperator/pkg/config"
	"imoperator/pkg/logger"
	"imoperator/pkg/processor"
	"imoperator/pkg/version"
)

const (
	defaultHealthHost = "0.0.0.0"
	defaultHealthPort = 18790

	eventBuffer = 256
)

// Service runs every enabled transport adapter against one shared command table.
type Service struct {
	cfg        *config.Config
	log        *slog.Logger
	bus        *bus.MessageBus
	table      *command.Table
	processors map[string]*processor.Chat
	dispatcher *dispatcher
	metrics    *metrics
	channels   []channel.Adapter

	mu            sync.RWMutex
	startedAt     time.Time
	channelStates map[string]channelState
}

type channelState struct {
	Running bool          `json:"running"`
	Error   string        `json:"error,omitempty"`
	Counts  channelCounts `json:"counts"`
}

type statusResponse struct {
	Status        string                  `json:"status"`
	Version       string                  `json:"version"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Commands      []string                `json:"commands"`
	Channels      map[string]channelState `json:"channels"`
}

// NewService builds the command table and one processor per adapter.
// A table configuration error aborts construction.
func NewService(cfg *config.Config, adapters []channel.Adapter, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if len(adapters) == 0 {
		return nil, errors.New("at least one channel adapter is required")
	}
	if log == nil {
		log = slog.Default()
	}

	table, err := command.NewTable(command.Defaults(version.Long(), time.Now)...)
	if err != nil {
		return nil, fmt.Errorf("build command table: %w", err)
	}

	msgBus := bus.NewMessageBusWithBuffer(cfg.Bot.QueueSize)
	processors := make(map[string]*processor.Chat, len(adapters))
	channelStates := make(map[string]channelState, len(adapters))

	for _, adapter := range adapters {
		name := adapter.Name()
		if _, exists := processors[name]; exists {
			return nil, fmt.Errorf("duplicate channel adapter %q", name)
		}

		limit := sendLimit(cfg, name)
		chat, err := processor.New(table, channel.Throttle(adapter, limit.PerSecond, limit.Burst), processor.Options{
			Service:    name,
			Operators:  cfg.Bot.Operators,
			DebugLevel: cfg.Bot.DebugLevel,
			Events:     msgBus,
			Logger:     log,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize %s processor: %w", name, err)
		}

		processors[name] = chat
		msgBus.RegisterHandler(name, chat.Process)
		channelStates[name] = channelState{}
	}

	return &Service{
		cfg:           cfg,
		log:           log.With("component", "gateway.service"),
		bus:           msgBus,
		table:         table,
		processors:    processors,
		dispatcher:    newDispatcher(msgBus, cfg.Bot.Workers, log),
		metrics:       newMetrics(),
		channels:      adapters,
		channelStates: channelStates,
	}, nil
}

// Run serves until ctx is cancelled (nil) or an adapter or the status server fails.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	metricEvents, unsubscribeMetrics := s.bus.SubscribeEvents(ctx, eventBuffer)
	defer unsubscribeMetrics()
	go s.metrics.consume(ctx, metricEvents)

	logEvents, unsubscribeLog := s.bus.SubscribeEvents(ctx, eventBuffer)
	defer unsubscribeLog()
	go logger.LogEvents(ctx, logEvents, s.log)

	serverErrors := make(chan error, 1)
	go s.runHealthServer(ctx, serverErrors)

	s.dispatcher.Start(ctx)
	defer func() {
		cancel()
		s.dispatcher.Wait()
		s.bus.Close()
	}()

	errCh := make(chan error, len(s.channels))
	for _, adapter := range s.channels {
		adapter := adapter
		s.setChannelRunning(adapter.Name(), true, nil)

		go func() {
			err := adapter.Run(ctx, s.deliverFor(adapter.Name()))
			s.setChannelRunning(adapter.Name(), false, err)
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("run %s channel: %w", adapter.Name(), err)
			}
		}()
	}

	s.log.Info("Gateway started", "channels", len(s.channels), "workers", s.dispatcher.workers, "commands", s.table.SortedKeywords())

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErrors:
		return err
	case err := <-errCh:
		return err
	}
}

// Processor returns the processor serving a channel.
func (s *Service) Processor(name string) (*processor.Chat, bool) {
	chat, ok := s.processors[name]
	return chat, ok
}

// deliverFor stamps packets with the adapter's channel and queues them.
func (s *Service) deliverFor(name string) channel.Deliver {
	return func(ctx context.Context, packet bus.Packet) {
		packet.Channel = name
		if !s.bus.PublishInbound(ctx, packet) {
			s.log.Warn("Dropped inbound packet", "channel", name, "from", packet.From)
		}
	}
}

func (s *Service) runHealthServer(ctx context.Context, errCh chan<- error) {
	host := strings.TrimSpace(s.cfg.Gateway.Host)
	if host == "" {
		host = defaultHealthHost
	}

	port := s.cfg.Gateway.Port
	if port <= 0 {
		port = defaultHealthPort
	}

	addr := host + ":" + strconv.Itoa(port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Gateway status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	return r
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	statusCode := http.StatusOK
	status := "ready"
	if !s.isReady() {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	s.respondStatus(w, statusCode, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.currentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

func (s *Service) currentStatus(status string) statusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	channels := make(map[string]channelState, len(s.channelStates))
	for name, state := range s.channelStates {
		if s.metrics != nil {
			state.Counts = s.metrics.snapshot(name)
		}
		channels[name] = state
	}

	commands := []string{}
	if s.table != nil {
		commands = s.table.SortedKeywords()
	}

	return statusResponse{
		Status:        status,
		Version:       version.Version,
		UptimeSeconds: uptime,
		Commands:      commands,
		Channels:      channels,
	}
}

// isReady reports whether at least one channel adapter is running.
func (s *Service) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, state := range s.channelStates {
		if state.Running {
			return true
		}
	}

	return false
}

func (s *Service) setChannelRunning(name string, running bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelStates[name] = channelState{Running: running, Error: errorString(err)}
}

// sendLimit returns the configured outbound limit for a channel.
func sendLimit(cfg *config.Config, name string) config.SendLimit {
	switch name {
	case "xmpp":
		return cfg.Channels.XMPP.SendLimit
	case "telegram":
		return cfg.Channels.Telegram.SendLimit
	case "discord":
		return cfg.Channels.Discord.SendLimit
	case "twitch":
		return cfg.Channels.Twitch.SendLimit
	default:
		return config.SendLimit{}
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
