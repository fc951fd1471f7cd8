package channel

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/argenfuego/eva/internal/logger"
	"github.com/argenfuego/eva/internal/pipeline"
)

// Processor runs one user turn and returns the reply to deliver.
type Processor interface {
	Process(ctx context.Context, userID, text string) pipeline.Result
}

// ConnectionStatus describes runtime status for one gateway connection.
type ConnectionStatus struct {
	ChannelType ChannelType `json:"channel_type"`
	Running     bool        `json:"running"`
	LastError   string      `json:"last_error,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

type inboundTask struct {
	msg InboundMessage
}

// Manager opens a connection for every registered Receiver, feeds inbound
// messages through a bounded worker pool into the Processor and sends each
// reply back through the originating adapter.
type Manager struct {
	registry  *Registry
	processor Processor
	logger    *slog.Logger

	inboundQueue   chan inboundTask
	inboundWorkers int
	replyTimeout   time.Duration
	inboundCancel  context.CancelFunc
	workers        sync.WaitGroup

	mu          sync.Mutex
	connections map[ChannelType]Connection
	status      map[ChannelType]ConnectionStatus
}

// NewManager creates a Manager with the given logger, registry and turn processor.
func NewManager(log *slog.Logger, registry *Registry, processor Processor) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Manager{
		registry:       registry,
		processor:      processor,
		logger:         log.With(slog.String("service", "channel")),
		inboundQueue:   make(chan inboundTask, 256),
		inboundWorkers: 4,
		replyTimeout:   90 * time.Second,
		connections:    map[ChannelType]Connection{},
		status:         map[ChannelType]ConnectionStatus{},
	}
}

// Registry returns the adapter registry used by this manager.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Start launches the worker pool and connects every receiver. A receiver that
// fails to connect is logged and recorded in Statuses; the others still start.
func (m *Manager) Start(ctx context.Context) {
	m.logger.Info("manager start")
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.inboundCancel = cancel
	for i := 0; i < m.inboundWorkers; i++ {
		m.workers.Add(1)
		go m.runWorker(workerCtx)
	}
	for _, recv := range m.registry.Receivers() {
		conn, err := recv.Connect(workerCtx, m.HandleInbound)
		m.markStatus(recv.Type(), err == nil, err)
		if err != nil {
			m.logger.Error("adapter start failed", slog.String("channel", recv.Type().String()), slog.Any("error", err))
			continue
		}
		m.mu.Lock()
		m.connections[recv.Type()] = conn
		m.mu.Unlock()
	}
}

// HandleInbound enqueues msg for processing. It never blocks the receiver:
// when the queue is full the message is dropped with an error.
func (m *Manager) HandleInbound(_ context.Context, msg InboundMessage) error {
	if strings.TrimSpace(msg.SessionKey()) == "" {
		return errors.New("inbound message has no sender")
	}
	select {
	case m.inboundQueue <- inboundTask{msg: msg}:
		return nil
	default:
		m.logger.Warn("inbound queue full", slog.String("channel", msg.Channel.String()))
		return errors.New("inbound queue full")
	}
}

func (m *Manager) runWorker(ctx context.Context) {
	defer m.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-m.inboundQueue:
			m.handle(ctx, task.msg)
		}
	}
}

func (m *Manager) handle(ctx context.Context, msg InboundMessage) {
	// Shutdown cancels the worker context; a turn already picked up runs to
	// completion under its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.replyTimeout)
	defer cancel()
	key := msg.SessionKey()
	res := m.processor.Process(ctx, key, msg.Text)
	sender, ok := m.registry.GetSender(msg.Channel)
	if !ok {
		m.logger.Warn("no sender for channel", slog.String("channel", msg.Channel.String()))
		return
	}
	target := msg.ChatID
	if target == "" {
		target = msg.SenderID
	}
	if err := sender.Send(ctx, OutboundMessage{Target: target, Text: res.Reply}); err != nil {
		m.logger.Error("send reply failed",
			slog.String("channel", msg.Channel.String()),
			slog.String(logger.UserIDKey, key),
			slog.Any("error", err))
	}
}

// Shutdown stops every connection and waits for in-flight turns to finish
// or ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	conns := make(map[ChannelType]Connection, len(m.connections))
	for ct, conn := range m.connections {
		conns[ct] = conn
	}
	m.connections = map[ChannelType]Connection{}
	m.mu.Unlock()

	var errs []error
	for ct, conn := range conns {
		if err := conn.Stop(ctx); err != nil && !errors.Is(err, ErrStopNotSupported) {
			m.logger.Warn("adapter stop failed", slog.String("channel", ct.String()), slog.Any("error", err))
			errs = append(errs, err)
		}
		m.markStatus(ct, false, nil)
	}
	if m.inboundCancel != nil {
		m.inboundCancel()
	}
	done := make(chan struct{})
	go func() {
		m.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	m.logger.Info("manager stop")
	return errors.Join(errs...)
}

// Statuses returns the observed connection statuses ordered by channel type.
func (m *Manager) Statuses() []ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]ConnectionStatus, 0, len(m.status))
	for _, st := range m.status {
		items = append(items, st)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ChannelType < items[j].ChannelType })
	return items
}

func (m *Manager) markStatus(ct ChannelType, running bool, err error) {
	st := ConnectionStatus{ChannelType: ct, Running: running, UpdatedAt: time.Now().UTC()}
	if err != nil {
		st.LastError = err.Error()
	}
	m.mu.Lock()
	m.status[ct] = st
	m.mu.Unlock()
}
