package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/R-Kotenko/ImbalanceTracker/internal/model"
)

// TelegramSink delivers trigger events through the Bot API. Metric points are
// ignored; only alerts are worth a notification.
type TelegramSink struct {
	client  *http.Client
	baseURL string
	token   string
	chatID  string
}

func NewTelegramSink(token, chatID string) *TelegramSink {
	return &TelegramSink{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://api.telegram.org",
		token:   token,
		chatID:  chatID,
	}
}

func (s *TelegramSink) OnMetric(context.Context, model.MetricPoint) error {
	return nil
}

func (s *TelegramSink) OnTrigger(ctx context.Context, ev model.TriggerEvent) error {
	payload := map[string]any{
		"chat_id":                  s.chatID,
		"text":                     BuildTriggerMessage(ev),
		"disable_web_page_preview": true,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

// BuildTriggerMessage renders the alert body sent to the notification
// channel: direction, ratio, side volumes and feed time.
func BuildTriggerMessage(ev model.TriggerEvent) string {
	bid := ev.BidVolume
	ask := ev.AskVolume
	ratio := ev.MetricValue

	direction := "BUY"
	if ratio.Sign() < 0 {
		direction = "SELL"
	}

	bidAsk := decimal.Zero
	if ask.Sign() > 0 {
		bidAsk = bid.Div(ask)
	}

	return fmt.Sprintf(
		"IMBALANCE ALERT\n"+
			"\n"+
			"Pair: %s\n"+
			"Trigger: %s\n"+
			"Direction: %s\n"+
			"\n"+
			"Metric: %s = %s\n"+
			"Imbalance: %s%% of (Bid+Ask)\n"+
			"\n"+
			"Bid: %s / Ask: %s\n"+
			"Net (Bid-Ask): %s\n"+
			"Bid/Ask: %sx\n"+
			"\n"+
			"Time (UTC): %s\n",
		ev.Pair,
		ev.TriggerName,
		direction,
		ev.Metric, ratio.StringFixed(6),
		ratio.Mul(decimal.NewFromInt(100)).StringFixed(2),
		bid.StringFixed(2), ask.StringFixed(2),
		bid.Sub(ask).StringFixed(2),
		bidAsk.StringFixed(3),
		ev.Timestamp.UTC().Format("2006-01-02 15:04:05"),
	)
}
