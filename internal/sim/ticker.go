package sim

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// Tick is one streamed price quote.
type Tick struct {
	AssetID   string  `json:"asset_id"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// subscribeMsg selects the streamed asset for one connection.
type subscribeMsg struct {
	Type    string `json:"type"`
	AssetID string `json:"asset_id"`
}

// Ticker streams simulated price ticks over WebSocket. Each connection
// follows one asset at a time (switchable with a subscribe message) and
// receives ticks paced by a rate limiter.
type Ticker struct {
	logger *slog.Logger
	limit  rate.Limit

	upgrader websocket.Upgrader

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTicker creates a Ticker emitting ticksPerSecond quotes per connection.
func NewTicker(logger *slog.Logger, ticksPerSecond float64) *Ticker {
	return &Ticker{
		logger: logger.With("component", "sim_ticker"),
		limit:  rate.Limit(ticksPerSecond),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Handle upgrades the connection and streams ticks until the peer closes.
func (t *Ticker) Handle(c echo.Context) error {
	conn, err := t.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		t.logger.Warn("tick stream upgrade failed", "err", err)
		return nil
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	var assetMu sync.Mutex
	asset := "EURUSD"

	// Reader: consumes subscribe messages and detects peer close.
	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg subscribeMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type == "subscribe" && msg.AssetID != "" {
				assetMu.Lock()
				asset = msg.AssetID
				assetMu.Unlock()
			}
		}
	}()

	limiter := rate.NewLimiter(t.limit, 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		assetMu.Lock()
		id := asset
		assetMu.Unlock()

		t.mu.Lock()
		price := SpotPrice(id, t.rng)
		t.mu.Unlock()

		tick := Tick{AssetID: id, Price: price, Timestamp: time.Now().Unix()}
		if err := conn.WriteJSON(tick); err != nil {
			return nil
		}
	}
}
