package graphsource

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jaytaylor/html2text"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/enum"
	er "github.com/relaykit/mailrelay/internal/errors"
	"github.com/relaykit/mailrelay/internal/models"
	"github.com/relaykit/mailrelay/internal/tracing"
	"github.com/relaykit/mailrelay/internal/utils"
)

const (
	graphBaseURL = "https://graph.microsoft.com/v1.0"
	tokenURLFmt  = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
	graphScope   = "https://graph.microsoft.com/.default"
)

// graphSource reads one account through the Microsoft Graph REST API
// using app-only client credentials.
type graphSource struct {
	account *models.Account
	client  *http.Client
}

func NewGraphSource() interfaces.EmailSource {
	return &graphSource{}
}

func (s *graphSource) Login(ctx context.Context, account *models.Account) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GraphSource.Login")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, account.EmailAddress)

	if account.GraphTenantID == "" || account.GraphClientID == "" || account.GraphClientSecret == "" {
		err := errors.New("Graph configuration is missing")
		tracing.TraceErr(span, err)
		return err
	}

	creds := clientcredentials.Config{
		ClientID:     account.GraphClientID,
		ClientSecret: account.GraphClientSecret,
		TokenURL:     fmt.Sprintf(tokenURLFmt, account.GraphTenantID),
		Scopes:       []string{graphScope},
	}

	// Acquire a token eagerly so bad credentials fail the login, not
	// the first fetch.
	if _, err := creds.Token(ctx); err != nil {
		err = errors.Wrap(er.ErrSourceUnavailable, err.Error())
		tracing.TraceErr(span, err)
		return err
	}

	s.account = account
	s.client = creds.Client(ctx)
	s.client.Timeout = 60 * time.Second
	return nil
}

type graphMessage struct {
	ODataType        string `json:"@odata.type"`
	ID               string `json:"id"`
	Subject          string `json:"subject"`
	ReceivedDateTime string `json:"receivedDateTime"`
	HasAttachments   bool   `json:"hasAttachments"`
	From             struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
	Body struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	ContentBytes string `json:"contentBytes"`
}

// ListRecent fetches up to limit messages from the folder, newest first
func (s *graphSource) ListRecent(ctx context.Context, folder string, limit int) ([]*models.MailItem, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GraphSource.ListRecent")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagFolder, folder)
	span.LogFields(tracingLog.Int("limit", limit))

	if s.client == nil {
		return nil, er.ErrSessionClosed
	}

	query := url.Values{}
	query.Set("$top", fmt.Sprintf("%d", limit))
	query.Set("$orderby", "receivedDateTime desc")
	query.Set("$select", "id,subject,from,receivedDateTime,body,hasAttachments")

	endpoint := fmt.Sprintf(
		"%s/users/%s/mailFolders/%s/messages?%s",
		graphBaseURL,
		url.PathEscape(s.account.EmailAddress),
		url.PathEscape(wellKnownFolder(folder)),
		query.Encode(),
	)

	var listing struct {
		Value []graphMessage `json:"value"`
	}
	if err := s.getJSON(ctx, span, endpoint, &listing); err != nil {
		return nil, err
	}

	var result []*models.MailItem
	for _, msg := range listing.Value {
		item := s.buildItem(span, msg)
		if item != nil {
			result = append(result, item)
		}
	}

	span.LogFields(tracingLog.Int("fetched", len(result)))
	return result, nil
}

func (s *graphSource) buildItem(span opentracing.Span, msg graphMessage) *models.MailItem {
	item := &models.MailItem{
		ID:      msg.ID,
		Subject: msg.Subject,
		Sender:  msg.From.EmailAddress.Address,
		Kind:    classifyKind(msg.ODataType),
	}

	if msg.ReceivedDateTime != "" {
		ts, err := time.Parse(time.RFC3339, msg.ReceivedDateTime)
		if err != nil {
			tracing.TraceErr(span, errors.Wrapf(err, "bad timestamp on item %s", msg.ID))
		} else {
			item.Timestamp = ts
		}
	}

	item.Body = msg.Body.Content
	if strings.EqualFold(msg.Body.ContentType, "html") {
		text, err := html2text.FromString(msg.Body.Content, html2text.Options{TextOnly: false})
		if err == nil {
			item.Body = text
		}
	}

	if msg.HasAttachments {
		// Refs are resolved lazily in FetchAttachments
		item.Attachments = []models.AttachmentRef{{ID: msg.ID}}
	}

	return item
}

// FetchAttachments downloads the file attachments of an item. Inline
// and non-file attachments are skipped.
func (s *graphSource) FetchAttachments(ctx context.Context, item *models.MailItem) ([]*models.AttachmentData, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "GraphSource.FetchAttachments")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagItem(span, item.ID)

	if s.client == nil {
		return nil, er.ErrSessionClosed
	}

	endpoint := fmt.Sprintf(
		"%s/users/%s/messages/%s/attachments",
		graphBaseURL,
		url.PathEscape(s.account.EmailAddress),
		url.PathEscape(item.ID),
	)

	var listing struct {
		Value []graphAttachment `json:"value"`
	}
	if err := s.getJSON(ctx, span, endpoint, &listing); err != nil {
		return nil, err
	}

	var result []*models.AttachmentData
	for _, att := range listing.Value {
		if att.ODataType != "#microsoft.graph.fileAttachment" {
			continue
		}

		content, err := base64.StdEncoding.DecodeString(att.ContentBytes)
		if err != nil {
			tracing.TraceErr(span, errors.Wrapf(err, "failed to decode attachment %s", att.Name))
			continue
		}

		result = append(result, &models.AttachmentData{
			Filename:     utils.NormalizeFilename(att.Name),
			ContentBytes: content,
			MimeHint:     att.ContentType,
		})
	}

	return result, nil
}

func (s *graphSource) Logout(ctx context.Context) error {
	// Tokens are short-lived, nothing to revoke server-side
	s.client = nil
	s.account = nil
	return nil
}

func (s *graphSource) getJSON(ctx context.Context, span opentracing.Span, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		err = errors.Wrap(er.ErrSourceUnavailable, err.Error())
		tracing.TraceErr(span, err)
		return err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "failed to read Graph response"))
		return err
	}

	if resp.StatusCode != http.StatusOK {
		span.LogFields(tracingLog.String("responseBody", string(responseBody)))
		err = errors.Wrapf(er.ErrSourceUnavailable, "graph API returned status %d", resp.StatusCode)
		tracing.TraceErr(span, err)
		return err
	}

	if err := json.Unmarshal(responseBody, out); err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "failed to parse Graph response"))
		return err
	}

	return nil
}

func classifyKind(odataType string) enum.ItemKind {
	switch {
	case strings.Contains(odataType, "eventMessage"):
		return enum.ItemKindMeeting
	case odataType == "" || strings.Contains(odataType, "message"):
		return enum.ItemKindMail
	default:
		return enum.ItemKindOther
	}
}

func wellKnownFolder(folder string) string {
	switch strings.ToUpper(folder) {
	case "INBOX", "":
		return "inbox"
	case "SENT", "SENT ITEMS":
		return "sentItems"
	default:
		return folder
	}
}
