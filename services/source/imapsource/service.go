package imapsource

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/relaykit/mailrelay/interfaces"
	"github.com/relaykit/mailrelay/internal/enum"
	er "github.com/relaykit/mailrelay/internal/errors"
	"github.com/relaykit/mailrelay/internal/models"
	"github.com/relaykit/mailrelay/internal/tracing"
	"github.com/relaykit/mailrelay/internal/utils"
)

const fetchTimeout = 60 * time.Second

// imapSource reads one account over IMAP. A session covers one relay
// cycle: Login, a few ListRecent/FetchAttachments calls, Logout.
type imapSource struct {
	account   *models.Account
	client    *client.Client
	envelopes map[string]*enmime.Envelope
}

func NewIMAPSource() interfaces.EmailSource {
	return &imapSource{
		envelopes: make(map[string]*enmime.Envelope),
	}
}

func (s *imapSource) Login(ctx context.Context, account *models.Account) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "IMAPSource.Login")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, account.EmailAddress)

	if account.ImapServer == "" || account.ImapUsername == "" {
		err := errors.New("IMAP configuration is missing")
		tracing.TraceErr(span, err)
		return err
	}

	serverAddr := fmt.Sprintf("%s:%d", account.ImapServer, account.ImapPort)

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error

	if account.ImapSecurity == enum.ConnectionSecurityTLS {
		tlsConfig := &tls.Config{
			ServerName: account.ImapServer,
		}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}

	if err != nil {
		err = errors.Wrap(er.ErrSourceUnavailable, err.Error())
		tracing.TraceErr(span, err)
		return err
	}

	c.Timeout = 30 * time.Second
	if err := c.Login(account.ImapUsername, account.ImapPassword); err != nil {
		c.Logout()
		err = errors.Wrap(er.ErrSourceUnavailable, err.Error())
		tracing.TraceErr(span, err)
		return err
	}
	c.Timeout = 0

	s.account = account
	s.client = c
	return nil
}

// ListRecent fetches up to limit messages from the folder, newest
// first. Message bodies are parsed eagerly so FetchAttachments can
// serve payloads without another round trip.
func (s *imapSource) ListRecent(ctx context.Context, folder string, limit int) ([]*models.MailItem, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "IMAPSource.ListRecent")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagFolder, folder)
	span.LogFields(tracingLog.Int("limit", limit))

	if s.client == nil {
		return nil, er.ErrSessionClosed
	}

	mbox, err := s.client.Select(folder, true)
	if err != nil {
		err = errors.Wrapf(er.ErrSourceUnavailable, "failed to select folder %s: %s", folder, err.Error())
		tracing.TraceErr(span, err)
		return nil, err
	}

	if mbox.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if mbox.Messages > uint32(limit) {
		from = mbox.Messages - uint32(limit) + 1
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchUid,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)

	s.client.Timeout = fetchTimeout
	go func() {
		done <- s.client.Fetch(seqSet, items, messages)
	}()

	var result []*models.MailItem
	for msg := range messages {
		item := s.buildItem(span, msg, section)
		if item != nil {
			result = append(result, item)
		}
	}
	s.client.Timeout = 0

	if err := <-done; err != nil {
		err = errors.Wrapf(er.ErrSourceUnavailable, "fetch failed: %s", err.Error())
		tracing.TraceErr(span, err)
		return nil, err
	}

	// Newest first
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	span.LogFields(tracingLog.Int("fetched", len(result)))
	return result, nil
}

func (s *imapSource) buildItem(span opentracing.Span, msg *imap.Message, section *imap.BodySectionName) *models.MailItem {
	if msg.Envelope == nil {
		return nil
	}

	item := &models.MailItem{
		ID:        msg.Envelope.MessageId,
		Timestamp: msg.Envelope.Date,
		Subject:   msg.Envelope.Subject,
		Kind:      enum.ItemKindMail,
	}

	if len(msg.Envelope.From) > 0 {
		item.Sender = msg.Envelope.From[0].Address()
	}

	body := msg.GetBody(section)
	if body == nil {
		return item
	}

	envelope, err := enmime.ReadEnvelope(body)
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "failed to parse message body"))
		return item
	}

	item.Body = extractText(envelope)
	if hasCalendarPart(envelope) {
		item.Kind = enum.ItemKindMeeting
	}

	for i, part := range envelope.Attachments {
		item.Attachments = append(item.Attachments, models.AttachmentRef{
			ID:       fmt.Sprintf("%s/%d", item.ID, i),
			Filename: part.FileName,
			MimeHint: part.ContentType,
			Size:     len(part.Content),
		})
	}

	if item.ID != "" {
		s.envelopes[item.ID] = envelope
	}

	return item
}

// FetchAttachments returns the payloads parsed during ListRecent
func (s *imapSource) FetchAttachments(ctx context.Context, item *models.MailItem) ([]*models.AttachmentData, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "IMAPSource.FetchAttachments")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagItem(span, item.ID)

	if s.client == nil {
		return nil, er.ErrSessionClosed
	}

	envelope, ok := s.envelopes[item.ID]
	if !ok {
		err := errors.Wrapf(er.ErrItemMalformed, "no parsed body for item %s", item.ID)
		tracing.TraceErr(span, err)
		return nil, err
	}

	var result []*models.AttachmentData
	for _, part := range envelope.Attachments {
		result = append(result, &models.AttachmentData{
			Filename:     utils.NormalizeFilename(part.FileName),
			ContentBytes: part.Content,
			MimeHint:     part.ContentType,
		})
	}

	return result, nil
}

func (s *imapSource) Logout(ctx context.Context) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "IMAPSource.Logout")
	defer span.Finish()
	tracing.TagComponentService(span)

	if s.client == nil {
		return nil
	}

	s.client.Timeout = 5 * time.Second
	err := s.client.Logout()
	s.client = nil
	s.envelopes = make(map[string]*enmime.Envelope)

	if err != nil {
		tracing.TraceErr(span, err)
	}
	return nil
}

func extractText(envelope *enmime.Envelope) string {
	if strings.TrimSpace(envelope.Text) != "" {
		return envelope.Text
	}
	if envelope.HTML != "" {
		text, err := html2text.FromString(envelope.HTML, html2text.Options{TextOnly: false})
		if err == nil {
			return text
		}
	}
	return envelope.Text
}

func hasCalendarPart(envelope *enmime.Envelope) bool {
	for _, part := range envelope.OtherParts {
		if strings.HasPrefix(part.ContentType, "text/calendar") {
			return true
		}
	}
	for _, part := range envelope.Attachments {
		if strings.HasPrefix(part.ContentType, "text/calendar") {
			return true
		}
	}
	return false
}
