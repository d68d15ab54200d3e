// Package executor submits market orders produced by the trading pipeline.
package executor

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"delta-trader/internal/config"
	"delta-trader/internal/model"
)

// Gateway is the execution side of the pipeline. Submissions are market
// orders only; signing and transport are entirely the gateway's concern.
type Gateway interface {
	Submit(ctx context.Context, intent model.OrderIntent) (model.OrderResult, error)
}

// NewGateway selects the configured execution backend.
func NewGateway(cfg config.Config, logger *zap.Logger) (Gateway, error) {
	switch cfg.Mode {
	case config.ModePaper:
		return NewPaperExecutor(logger), nil
	case config.ModeLive:
		return NewDeltaExecutor(logger, cfg.BaseURL, cfg.APIKey, cfg.APISecret, cfg.ProductID), nil
	default:
		return nil, fmt.Errorf("unknown trading mode: %s", cfg.Mode)
	}
}

const ordersPath = "/v2/orders"

// DeltaExecutor places real market orders on the Delta Exchange REST API.
type DeltaExecutor struct {
	logger    *zap.Logger
	baseURL   string
	apiKey    string
	apiSecret string
	productID int
	client    *http.Client
}

func NewDeltaExecutor(logger *zap.Logger, baseURL, apiKey, apiSecret string, productID int) *DeltaExecutor {
	return &DeltaExecutor{
		logger:    logger,
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		productID: productID,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type orderRequest struct {
	ProductID int     `json:"product_id"`
	Side      string  `json:"side"`
	OrderType string  `json:"order_type"`
	Size      float64 `json:"size"`
}

type orderResponse struct {
	Success bool `json:"success"`
}

// Submit posts a signed market order. A non-2xx status or transport failure is
// reported to the caller; the trading state has already moved on (see the
// paper-fill note in the runner).
func (e *DeltaExecutor) Submit(ctx context.Context, intent model.OrderIntent) (model.OrderResult, error) {
	size, _ := intent.Size.Float64()
	payload, err := json.Marshal(orderRequest{
		ProductID: e.productID,
		Side:      string(intent.Side),
		OrderType: "market_order",
		Size:      size,
	})
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("marshal order: %w", err)
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	signature := Sign(e.apiSecret, http.MethodPost, ts, ordersPath, "", string(payload))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+ordersPath, bytes.NewReader(payload))
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", e.apiKey)
	req.Header.Set("timestamp", ts)
	req.Header.Set("signature", signature)

	resp, err := e.client.Do(req)
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("submit order: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("read order response: %w", err)
	}

	result := model.OrderResult{Raw: string(body)}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, fmt.Errorf("order rejected with status %d: %s", resp.StatusCode, body)
	}

	var parsed orderResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return result, fmt.Errorf("decode order response: %w", err)
	}
	result.Success = parsed.Success

	e.logger.Info("order submitted",
		zap.String("side", string(intent.Side)),
		zap.String("size", intent.Size.String()),
		zap.Bool("success", result.Success))
	return result, nil
}

// Sign computes the Delta request signature:
// HMAC_SHA256(secret, method + timestamp + path + query + payload), hex encoded.
func Sign(secret, method, timestamp, path, query, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + timestamp + path + query + payload))
	return hex.EncodeToString(mac.Sum(nil))
}
