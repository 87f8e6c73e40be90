package refund

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trip-booking-system/internal/config"
	"trip-booking-system/internal/models"

	"github.com/sirupsen/logrus"
)

const refundPath = "/api/payments/refund"

// ErrRefundFailed is returned when the user platform rejects a refund without saying why
var ErrRefundFailed = errors.New("refund API failed")

// Client calls the user platform's refund endpoint. It does not retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg config.RefundConfig, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.UserPlatformURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// RequestRefund asks the user platform to refund a booking
func (c *Client) RequestRefund(ctx context.Context, req models.RefundRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode refund request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refundPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build refund request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("refund request for booking %s failed: %w", req.BookingID, err)
	}
	defer resp.Body.Close()

	log := c.logger.WithFields(logrus.Fields{
		"booking_id":          req.BookingID,
		"vendor_cancellation": req.VendorCancellation,
		"status":              resp.StatusCode,
		"latency":             time.Since(start),
	})

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Info("Refund requested")
		return nil
	}

	var errBody struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &errBody); err != nil || errBody.Error == "" {
		log.Warn("Refund rejected")
		return ErrRefundFailed
	}

	log.WithField("error", errBody.Error).Warn("Refund rejected")
	return errors.New(errBody.Error)
}
