// Operator error sink. Punishment execution failures are reported here on a
// best-effort basis; reporters never return errors to the caller.
package errorreport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

type Reporter interface {
	// Report records a failure that occurred at `where`, for the given
	// community (and channel, when known). Must never panic or block long.
	Report(ctx context.Context, where string, err error, communityID, channelID string)
}

// LogReporter just logs; the zero-dependency default.
type LogReporter struct {
	Logger *slog.Logger
}

func (r *LogReporter) Report(ctx context.Context, where string, err error, communityID, channelID string) {
	r.Logger.Error("operator error report", "where", where, "err", err, "community", communityID, "channel", channelID)
}

// WebhookReporter posts failures to an operator "incoming webhook" channel.
type WebhookReporter struct {
	Logger     *slog.Logger
	WebhookURL string
}

type webhookBody struct {
	Text string `json:"text"`
}

func (r *WebhookReporter) Report(ctx context.Context, where string, err error, communityID, channelID string) {
	msg := fmt.Sprintf("⚠️ warden error ⚠️\nwhere: `%s`\ncommunity: `%s`", where, communityID)
	if channelID != "" {
		msg += fmt.Sprintf("\nchannel: `%s`", channelID)
	}
	msg += fmt.Sprintf("\n```%v```", err)
	if werr := r.send(ctx, msg); werr != nil {
		r.Logger.Error("sending error report webhook", "err", werr, "original", err)
	}
}

func (r *WebhookReporter) send(ctx context.Context, msg string) error {
	body, err := json.Marshal(webhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("failed error report webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}
