package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"golang.org/x/net/context"

	"github.com/relaykit/mailrelay/config"
	"github.com/relaykit/mailrelay/interfaces"
	er "github.com/relaykit/mailrelay/internal/errors"
	"github.com/relaykit/mailrelay/internal/models"
	"github.com/relaykit/mailrelay/internal/tracing"
)

// Telegram Bot API: https://core.telegram.org/bots/api
type telegramService struct {
	cfg    *config.TelegramConfig
	client *http.Client
}

func NewTelegramService(cfg *config.TelegramConfig) interfaces.NotificationSink {
	return &telegramService{
		cfg: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (s *telegramService) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", s.cfg.APIBase, s.cfg.BotToken, method)
}

// Validate calls getMe to confirm the bot token is usable
func (s *telegramService) Validate(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "TelegramService.Validate")
	defer span.Finish()
	tracing.TagComponentService(span)

	if s.cfg.BotToken == "" || s.cfg.ChatID == "" {
		err := errors.New("Telegram configuration is missing")
		tracing.TraceErr(span, err)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint("getMe"), nil)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "failed to call Telegram API"))
		return errors.Wrap(er.ErrDeliveryFailed, err.Error())
	}
	defer resp.Body.Close()

	return s.checkResponse(span, resp)
}

// SendText delivers one HTML-formatted message to the configured chat
func (s *telegramService) SendText(ctx context.Context, text string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "TelegramService.SendText")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.LogFields(tracingLog.Int("textLength", len(text)))

	payload := map[string]interface{}{
		"chat_id":    s.cfg.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "failed to call Telegram API"))
		return errors.Wrap(er.ErrDeliveryFailed, err.Error())
	}
	defer resp.Body.Close()

	return s.checkResponse(span, resp)
}

// SendDocument uploads one attachment to the configured chat. The
// payload comes from ContentBytes when set, otherwise from Filepath.
func (s *telegramService) SendDocument(ctx context.Context, attachment *models.AttachmentData) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "TelegramService.SendDocument")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.LogKV("filename", attachment.Filename)

	var reader io.Reader
	if len(attachment.ContentBytes) > 0 {
		reader = bytes.NewReader(attachment.ContentBytes)
	} else if attachment.Filepath != "" {
		file, err := os.Open(attachment.Filepath)
		if err != nil {
			tracing.TraceErr(span, errors.Wrap(err, "failed to open attachment file"))
			return err
		}
		defer file.Close()
		reader = file
	} else {
		err := errors.New("attachment has no content")
		tracing.TraceErr(span, err)
		return err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("chat_id", s.cfg.ChatID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	part, err := writer.CreateFormFile("document", attachment.Filename)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if _, err := io.Copy(part, reader); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if err := writer.Close(); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint("sendDocument"), &buf)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "failed to call Telegram API"))
		return errors.Wrap(er.ErrDeliveryFailed, err.Error())
	}
	defer resp.Body.Close()

	return s.checkResponse(span, resp)
}

func (s *telegramService) checkResponse(span opentracing.Span, resp *http.Response) error {
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "failed to read Telegram response"))
		return err
	}

	var result apiResponse
	if err := json.Unmarshal(responseBody, &result); err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "failed to parse Telegram response"))
		return err
	}

	if !result.OK {
		span.LogFields(tracingLog.String("responseBody", string(responseBody)))
		err := errors.Wrapf(er.ErrDeliveryFailed, "telegram API error (status %d): %s", resp.StatusCode, result.Description)
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
