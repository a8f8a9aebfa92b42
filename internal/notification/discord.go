package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cyhsu/AgriGeoSpatial/internal/properties"
	"github.com/cyhsu/AgriGeoSpatial/internal/utils"
)

const (
	colorRed   = 16711680
	colorGreen = 65280
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []DiscordField `json:"fields,omitempty"`
}

type DiscordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

var client = &http.Client{Timeout: 10 * time.Second}

// SendDiscordErrorNotification reports a failed run. It does nothing when no
// error webhook is configured.
func SendDiscordErrorNotification(command string, runErr error) error {
	url := properties.DiscordErrorNotificationUrl()
	if url == "" {
		return nil
	}
	return send(url, DiscordEmbed{
		Title:       "🚨 agrigeo " + command + " failed",
		Description: runErr.Error(),
		Color:       colorRed,
	})
}

// SendDiscordSuccessNotification reports a finished run with its summary.
// It does nothing when no success webhook is configured.
func SendDiscordSuccessNotification(command string, summary map[string]string) error {
	url := properties.DiscordSuccessNotificationUrl()
	if url == "" {
		return nil
	}
	embed := DiscordEmbed{
		Title: "✅ agrigeo " + command + " finished",
		Color: colorGreen,
	}
	for _, k := range utils.SortedKeys(summary, true) {
		embed.Fields = append(embed.Fields, DiscordField{Name: k, Value: summary[k], Inline: true})
	}
	return send(url, embed)
}

func send(url string, embed DiscordEmbed) error {
	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	resp, err := client.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to send Discord notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}
