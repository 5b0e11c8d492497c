package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/viper"
)

// QRService renders the payment QR for topup orders and keeps the pending
// payment payload in Redis until the gateway confirms or the QR expires.
type QRService struct {
	redis *redis.Client
}

func NewQRService(redisClient *redis.Client) *QRService {
	viper.SetDefault("payment.gateway_url", "https://pay.example.com/order")
	viper.SetDefault("payment.qr_ttl", "15m")
	return &QRService{redis: redisClient}
}

// GeneratePaymentQR returns the payment URL for an order plus a base64 PNG of
// its QR code.
func (s *QRService) GeneratePaymentQR(ctx context.Context, orderID string, amount float64, paymentMethod string) (string, string, error) {
	payURL := fmt.Sprintf("%s/%s?method=%s", viper.GetString("payment.gateway_url"), orderID, paymentMethod)

	if s.redis != nil {
		payload, err := json.Marshal(map[string]any{
			"order_id": orderID,
			"amount":   amount,
			"method":   paymentMethod,
			"created":  time.Now().Unix(),
		})
		if err != nil {
			return "", "", err
		}
		key := fmt.Sprintf("order_qr:%s", orderID)
		if err := s.redis.Set(ctx, key, payload, viper.GetDuration("payment.qr_ttl")).Err(); err != nil {
			return "", "", err
		}
	}

	qr, err := qrcode.New(payURL, qrcode.Medium)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return "", "", err
	}

	return payURL, base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// PendingPayment loads the stored QR payload, or nil when it expired.
func (s *QRService) PendingPayment(ctx context.Context, orderID string) (map[string]any, error) {
	if s.redis == nil {
		return nil, nil
	}

	data, err := s.redis.Get(ctx, fmt.Sprintf("order_qr:%s", orderID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ClearPayment drops the stored QR payload after confirmation.
func (s *QRService) ClearPayment(ctx context.Context, orderID string) {
	if s.redis != nil {
		s.redis.Del(ctx, fmt.Sprintf("order_qr:%s", orderID))
	}
}
