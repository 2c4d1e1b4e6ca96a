// Package stream maintains a WebSocket feed of live rate ticks and
// overlays them onto the rate cache between scheduled refreshes.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"valuta_go/internal/domain"
	"valuta_go/internal/infra"
)

const (
	maxRetries  = 10
	readTimeout = 60 * time.Second
	sourceName  = "stream"
)

// tickMessage is the wire format of one rate tick
type tickMessage struct {
	Type      string  `json:"type"` // tick
	Pair      string  `json:"pair"` // BTC_USD
	Rate      float64 `json:"rate"`
	Timestamp int64   `json:"timestamp"`
}

// TickSink receives validated ticks. Satisfied by service.RateCache.
type TickSink interface {
	ApplyTick(pair string, rate decimal.Decimal, source string)
}

// Worker handles the rate feed WebSocket connection
type Worker struct {
	wsURL     string
	pairs     []string
	sink      TickSink
	logger    *slog.Logger
	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewWorker creates a feed worker for the given pairs
func NewWorker(wsURL string, pairs []string, sink TickSink, logger *slog.Logger) *Worker {
	return &Worker{
		wsURL:  wsURL,
		pairs:  pairs,
		sink:   sink,
		logger: logger,
	}
}

// Connect starts the WebSocket connection
func (w *Worker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			w.logger.Warn("feed connection failed", "error", err, "retry", retryCount)
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			w.readLoop(ctx)
		}
	}
}

func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	header.Add("User-Agent", infra.DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, w.wsURL, header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return err
	}

	w.logger.Info("feed connected", "subs", len(w.pairs))
	return nil
}

func (w *Worker) subscribe() error {
	msg := map[string]interface{}{
		"op":    "subscribe",
		"pairs": w.pairs,
	}
	b, _ := json.Marshal(msg)
	return w.threadSafeWrite(websocket.TextMessage, b)
}

func (w *Worker) threadSafeWrite(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil {
		return fmt.Errorf("no conn")
	}
	return w.conn.WriteMessage(msgType, data)
}

func (w *Worker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.mu.RLock()
		if w.conn == nil {
			w.mu.RUnlock()
			return
		}
		w.conn.SetReadDeadline(time.Now().Add(readTimeout))
		w.mu.RUnlock()

		_, msg, err := w.conn.ReadMessage()
		if err != nil {
			w.closeConnection()
			return
		}
		w.handleMessage(msg)
	}
}

func (w *Worker) handleMessage(msg []byte) {
	var tick tickMessage
	if json.Unmarshal(msg, &tick) != nil || tick.Type != "tick" {
		return
	}
	if _, _, err := domain.SplitPair(tick.Pair); err != nil {
		return
	}
	if tick.Rate <= 0 {
		return
	}

	w.sink.ApplyTick(tick.Pair, decimal.NewFromFloat(tick.Rate), sourceName)
}

func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connected = false
}

// Connected reports whether a live connection is up
func (w *Worker) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
