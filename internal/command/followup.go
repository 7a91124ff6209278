package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"go.uber.org/zap"
)

type embedFooter struct {
	Text string `json:"text"`
}

type embedImage struct {
	URL string `json:"url"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Image       *embedImage  `json:"image,omitempty"`
}

type button struct {
	Type  int    `json:"type"`
	Style int    `json:"style"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

type actionRow struct {
	Type       int      `json:"type"`
	Components []button `json:"components"`
}

type followupPayload struct {
	Content    string      `json:"content,omitempty"`
	Embeds     []embed     `json:"embeds,omitempty"`
	Components []actionRow `json:"components,omitempty"`
}

const (
	embedColor      = 0xd1b84b
	componentRow    = 1
	componentButton = 2
	buttonLink      = 5
)

// WebhookDeliverer posts replies as followup messages to an interaction webhook.
type WebhookDeliverer struct {
	client *http.Client
	logger *zap.Logger
}

func NewWebhookDeliverer(client *http.Client, l *zap.Logger) *WebhookDeliverer {
	return &WebhookDeliverer{client: client, logger: l}
}

// Deliver sends reply to url. Replies with an image go out as multipart with
// the card attached; text-only replies go out as JSON.
func (w *WebhookDeliverer) Deliver(ctx context.Context, url string, reply *Reply) error {
	payload := toPayload(reply)
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal followup: %w", err)
	}

	var body bytes.Buffer
	contentType := "application/json"
	if len(reply.Image) == 0 {
		body.Write(raw)
	} else {
		mw := multipart.NewWriter(&body)
		if err := mw.WriteField("payload_json", string(raw)); err != nil {
			return fmt.Errorf("write payload field: %w", err)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files[0]"; filename=%q`, reply.Filename))
		h.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(h)
		if err != nil {
			return fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(reply.Image); err != nil {
			return fmt.Errorf("write file part: %w", err)
		}
		if err := mw.Close(); err != nil {
			return fmt.Errorf("close multipart: %w", err)
		}
		contentType = mw.FormDataContentType()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("build followup request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post followup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		w.logger.Debug("followup rejected", zap.Int("status", resp.StatusCode), zap.ByteString("body", msg))
		return fmt.Errorf("post followup: HTTP %d", resp.StatusCode)
	}
	return nil
}

func toPayload(reply *Reply) followupPayload {
	if reply.Title == "" {
		return followupPayload{Content: reply.Content}
	}
	e := embed{
		Title:       reply.Title,
		URL:         reply.URL,
		Description: reply.Description,
		Color:       embedColor,
	}
	if reply.Footer != "" {
		e.Footer = &embedFooter{Text: reply.Footer}
	}
	if len(reply.Image) > 0 {
		e.Image = &embedImage{URL: "attachment://" + reply.Filename}
	}

	p := followupPayload{Content: reply.Content, Embeds: []embed{e}}
	var buttons []button
	for _, l := range reply.Links {
		if l.URL == "" {
			continue
		}
		buttons = append(buttons, button{Type: componentButton, Style: buttonLink, Label: l.Label, URL: l.URL})
	}
	if len(buttons) > 0 {
		p.Components = []actionRow{{Type: componentRow, Components: buttons}}
	}
	return p
}
