package sim

import (
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const winPayout = 1.85

// Handler serves the simulated trading API.
type Handler struct {
	logger *slog.Logger
	ticker *Ticker

	mu  sync.Mutex
	rng *rand.Rand
}

// NewHandler creates a Handler with its own seeded random source.
func NewHandler(logger *slog.Logger, ticker *Ticker) *Handler {
	return &Handler{
		logger: logger.With("component", "sim"),
		ticker: ticker,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RegisterRoutes wires the simulator's routes onto the Echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", h.Health)
	e.GET("/balance", h.Balance)
	e.GET("/assets", h.ListAssets)
	e.GET("/candles/:asset", h.Candles)
	e.POST("/trade", h.PlaceTrade)
	e.GET("/trade/check/:id", h.CheckTrade)
	e.POST("/account/switch", h.SwitchAccount)
	e.GET("/price/current/:asset", h.CurrentPrice)
	e.GET("/ws", h.ticker.Handle)
}

// Health reports simulator liveness.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "tradesim",
		"mode":    "simulated",
	})
}

// Balance returns the fixed demo balance.
func (h *Handler) Balance(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"demo":    10000.00,
		"real":    0.00,
		"current": 10000.00,
		"mode":    "demo",
	})
}

// ListAssets returns all quoted instruments.
func (h *Handler) ListAssets(c echo.Context) error {
	return c.JSON(http.StatusOK, Assets)
}

// Candles returns simulated OHLCV bars for one asset.
func (h *Handler) Candles(c echo.Context) error {
	assetID := c.Param("asset")

	count := 100
	if raw := c.QueryParam("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "count must be a positive integer",
			})
		}
		count = n
	}

	h.mu.Lock()
	candles := GenerateCandles(assetID, count, time.Now(), h.rng)
	h.mu.Unlock()

	return c.JSON(http.StatusOK, candles)
}

// TradeRequest is the placement payload.
type TradeRequest struct {
	AssetID   string  `json:"asset_id"`
	Amount    float64 `json:"amount"`
	Direction string  `json:"direction"`
	Duration  int     `json:"duration"`
}

// PlaceTrade simulates trade placement and returns a generated trade id.
func (h *Handler) PlaceTrade(c echo.Context) error {
	var req TradeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid trade payload",
		})
	}

	tradeID := uuid.NewString()
	h.logger.Info("trade placed",
		"trade_id", tradeID,
		"asset_id", req.AssetID,
		"amount", req.Amount,
		"direction", req.Direction,
	)

	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"trade_id":  tradeID,
		"asset_id":  req.AssetID,
		"amount":    req.Amount,
		"direction": req.Direction,
		"duration":  req.Duration,
		"note":      "Trade simulated",
	})
}

// CheckTrade settles a trade with a slight house edge.
func (h *Handler) CheckTrade(c echo.Context) error {
	h.mu.Lock()
	win := h.rng.Float64() > 0.45
	h.mu.Unlock()

	result := "loss"
	payout := 0.0
	if win {
		result = "win"
		payout = winPayout
	}

	return c.JSON(http.StatusOK, map[string]any{
		"trade_id": c.Param("id"),
		"result":   result,
		"payout":   payout,
	})
}

// AccountSwitchRequest selects the active account type.
type AccountSwitchRequest struct {
	Type string `json:"type"`
}

// SwitchAccount acknowledges an account-type switch.
func (h *Handler) SwitchAccount(c echo.Context) error {
	var req AccountSwitchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid payload",
		})
	}
	if req.Type == "" {
		req.Type = "PRACTICE"
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"account_type": req.Type,
	})
}

// CurrentPrice returns a jittered spot quote for one asset.
func (h *Handler) CurrentPrice(c echo.Context) error {
	assetID := c.Param("asset")

	h.mu.Lock()
	price := SpotPrice(assetID, h.rng)
	h.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]any{
		"asset_id":  assetID,
		"price":     price,
		"timestamp": time.Now().Unix(),
	})
}
