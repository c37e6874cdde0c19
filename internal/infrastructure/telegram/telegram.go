// Package telegram delivers operator notifications through the Telegram
// Bot API (sendMessage and sendDocument).
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/seat-scheduler/internal/domain/reservation"
	"github.com/example/seat-scheduler/internal/infrastructure/httpx"
	"github.com/sirupsen/logrus"
)

const DefaultBaseURL = "https://api.telegram.org"

// Options configures a Bot.
type Options struct {
	Token    string
	ChatID   string
	BaseURL  string
	Executor *httpx.Executor
	Retry    httpx.RetryPolicy
	Logger   logrus.FieldLogger
}

// Bot sends to a single chat.
type Bot struct {
	x      *httpx.Executor
	base   string
	chatID string
	retry  httpx.RetryPolicy
	log    logrus.FieldLogger
}

var _ reservation.Notifier = (*Bot)(nil)

// New returns a Bot posting to opts.ChatID. An empty BaseURL means
// DefaultBaseURL.
func New(opts Options) *Bot {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	b := &Bot{
		x:      opts.Executor,
		base:   base + "/bot" + opts.Token,
		chatID: opts.ChatID,
		retry:  opts.Retry,
		log:    opts.Logger,
	}
	if b.x == nil {
		b.x = httpx.New(httpx.Options{Logger: opts.Logger})
	}
	if b.log == nil {
		b.log = logrus.StandardLogger()
	}
	return b
}

type ack struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify sends text with Markdown formatting. It fails unless Telegram
// acknowledges the message with ok=true.
func (b *Bot) Notify(ctx context.Context, text string) error {
	q := url.Values{}
	q.Set("chat_id", b.chatID)
	q.Set("text", text)
	q.Set("parse_mode", "Markdown")

	var res ack
	err := b.x.Do(ctx, b.retry, httpx.Request{
		Method: http.MethodGet,
		URL:    b.base + "/sendMessage",
		Name:   "telegram sendMessage",
		Query:  q,
	}, &res)
	if err := b.check("sendMessage", res, err); err != nil {
		return err
	}
	b.log.Info("telegram message sent")
	return nil
}

// SendDocument uploads the file at path to the chat.
func (b *Bot) SendDocument(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", b.chatID); err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}
	part, err := mw.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}

	var res ack
	err = b.x.Do(ctx, b.retry, httpx.Request{
		Method:      http.MethodPost,
		URL:         b.base + "/sendDocument",
		Name:        "telegram sendDocument",
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	}, &res)
	if err := b.check("sendDocument", res, err); err != nil {
		return err
	}
	b.log.WithField("file", filepath.Base(path)).Info("telegram document sent")
	return nil
}

func (b *Bot) check(op string, res ack, err error) error {
	if err != nil {
		return &httpx.Error{Kind: httpx.KindDelivery, Method: op, Err: err}
	}
	if !res.OK {
		reason := "not acknowledged"
		if res.Description != "" {
			reason += ": " + res.Description
		}
		return &httpx.Error{Kind: httpx.KindDelivery, Method: op, Reason: reason}
	}
	return nil
}
