package gateway

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// PushChannel is a subscribe-only websocket. Every frame and state change is
// delivered on Events() in arrival order.
type PushChannel struct {
	wsURL string

	conn  *websocket.Conn
	connM sync.Mutex
	state ConnState

	events chan Event

	maxReconnectAttempts int
	reconnectDelay       time.Duration
	pingInterval         time.Duration

	kicked atomic.Bool

	stopCh    chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
	logger         *zap.Logger
}

type PushOption func(*PushChannel)

func WithPushHeaders(h HeaderProvider) PushOption {
	return func(p *PushChannel) { p.headerProvider = h }
}

func WithPingInterval(d time.Duration) PushOption {
	return func(p *PushChannel) { p.pingInterval = d }
}

func WithPushLogger(l *zap.Logger) PushOption {
	return func(p *PushChannel) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewPushChannel(wsURL string, maxReconnectAttempts int, reconnectDelay time.Duration, opts ...PushOption) *PushChannel {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	p := &PushChannel{
		wsURL:                wsURL,
		state:                StateUnsubscribed,
		events:               make(chan Event, 64),
		maxReconnectAttempts: maxReconnectAttempts,
		reconnectDelay:       reconnectDelay,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              rootCtx,
		rootCancel:           rootCancel,
		logger:               zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Events is closed once Close has returned.
func (p *PushChannel) Events() <-chan Event { return p.events }

func (p *PushChannel) State() ConnState {
	p.connM.Lock()
	defer p.connM.Unlock()
	return p.state
}

// Subscribe dials the push endpoint. A failed first dial still schedules
// background reconnects; the error is returned so the caller can log it.
func (p *PushChannel) Subscribe(ctx context.Context) error {
	p.connM.Lock()
	if p.state == StateSubscribed || p.state == StateConnecting {
		p.connM.Unlock()
		return nil
	}
	p.connM.Unlock()

	p.setState(StateConnecting)
	if err := p.dial(ctx); err != nil {
		p.setState(StateFailed)
		p.scheduleReconnect()
		return err
	}
	return nil
}

func (p *PushChannel) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, p.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      p.buildHeaders(),
	})
	if err != nil {
		return err
	}

	sessCtx, sessCancel := context.WithCancel(p.rootCtx)
	p.connM.Lock()
	p.conn = conn
	p.connM.Unlock()
	p.setState(StateSubscribed)

	p.wg.Add(2)
	go p.listen(sessCtx, sessCancel, conn)
	go p.pingLoop(sessCtx, conn)
	return nil
}

func (p *PushChannel) listen(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer p.wg.Done()
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if p.isStopping() {
				return
			}
			p.dropConn(conn, websocket.StatusGoingAway, "reconnect")
			if websocket.CloseStatus(err) == websocket.StatusPolicyViolation {
				p.kicked.Store(true)
				p.emit(EventKicked{Reason: "closed by server"})
				p.setState(StateUnsubscribed)
				return
			}
			p.logger.Warn("push_read_error", zap.Error(err))
			p.setState(StateUnsubscribed)
			p.scheduleReconnect()
			return
		}

		ev := ParseFrame(data)
		p.emit(ev)
		if _, ok := ev.(EventKicked); ok {
			// forced disconnect: do not come back on our own
			p.kicked.Store(true)
			p.dropConn(conn, websocket.StatusNormalClosure, "kicked")
			p.setState(StateUnsubscribed)
			return
		}
	}
}

func (p *PushChannel) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer p.wg.Done()
	if p.pingInterval <= 0 {
		return
	}
	t := time.NewTicker(p.pingInterval)
	defer t.Stop()
	consecutivePingFailures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				consecutivePingFailures = 0
				continue
			}
			consecutivePingFailures++
			if consecutivePingFailures >= 2 {
				// listen sees the closed conn and takes the reconnect path
				_ = conn.Close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

func (p *PushChannel) scheduleReconnect() {
	if p.maxReconnectAttempts <= 0 || p.isStopping() || p.kicked.Load() {
		return
	}
	p.setState(StateReconnecting)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for attempt := 1; attempt <= p.maxReconnectAttempts; attempt++ {
			select {
			case <-p.stopCh:
				return
			case <-time.After(p.reconnectBackoff(attempt)):
			}
			if err := p.dial(p.rootCtx); err != nil {
				p.logger.Warn("push_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			return
		}
		p.setState(StateFailed)
	}()
}

func (p *PushChannel) reconnectBackoff(attempt int) time.Duration {
	if p.reconnectDelay <= 0 {
		return backoffDuration(attempt)
	}
	if attempt > 6 {
		attempt = 6
	}
	return p.reconnectDelay * time.Duration(1<<uint(attempt-1))
}

func (p *PushChannel) setState(state ConnState) {
	p.connM.Lock()
	changed := p.state != state
	p.state = state
	p.connM.Unlock()
	if changed {
		p.logger.Info("push_state", zap.String("state", string(state)))
		p.emit(EventConnection{State: state})
	}
}

func (p *PushChannel) emit(ev Event) {
	select {
	case <-p.stopCh:
	case p.events <- ev:
	}
}

// Close stops reconnecting, closes the socket and then the event channel.
func (p *PushChannel) Close(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.connM.Lock()
	conn := p.conn
	p.conn = nil
	p.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	p.rootCancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		p.closeOnce.Do(func() { close(p.events) })
		return nil
	}
}

func (p *PushChannel) dropConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	p.connM.Lock()
	if p.conn == conn {
		p.conn = nil
	}
	p.connM.Unlock()
	if err := conn.Close(code, reason); err != nil {
		p.logger.Debug("push_close", zap.String("reason", reason), zap.Error(err))
	}
}

func (p *PushChannel) isStopping() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}

func (p *PushChannel) buildHeaders() http.Header {
	hdr := http.Header{}
	if p.headerProvider == nil {
		return hdr
	}
	for k, v := range p.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
