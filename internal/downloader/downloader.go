package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/teemow/gmail-file-downloader/internal/gmail"
	"github.com/teemow/gmail-file-downloader/internal/instrumentation"
	"github.com/teemow/gmail-file-downloader/internal/logging"
)

// MessageSource is the part of the Gmail client the download loop uses.
type MessageSource interface {
	ListMessages(ctx context.Context, query, pageToken string) (*gmail.MessagePage, error)
	GetMessage(ctx context.Context, messageID string) (*gmailapi.Message, error)
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// Store persists attachment files by name.
type Store interface {
	Exists(name string) (bool, error)
	Save(name string, data []byte) error
}

// Options select the messages of a run.
type Options struct {
	// Queries are Gmail search terms. They are combined into one query, so
	// a message has to match all of them.
	Queries []string

	// StartingPageToken resumes listing at a page logged by an earlier run.
	StartingPageToken string
}

// Query returns the Gmail search expression for the options.
func (o Options) Query() string {
	terms := make([]string, 0, len(o.Queries))
	for _, q := range o.Queries {
		if q = strings.TrimSpace(q); q != "" {
			terms = append(terms, q)
		}
	}
	return strings.Join(terms, " ")
}

// Stats summarizes a run.
type Stats struct {
	Pages    int
	Messages int
	Saved    int
	Skipped  int
}

// Downloader saves the attachments of all listed messages to a Store.
type Downloader struct {
	source  MessageSource
	store   Store
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Downloader) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics records pages, messages and attachments on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(d *Downloader) { d.metrics = m }
}

// New returns a Downloader reading from source and writing to store.
func New(source MessageSource, store Store, opts ...Option) *Downloader {
	d := &Downloader{
		source: source,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run lists the messages matching opts page by page and saves their
// attachments. It stops after the last page, on the first empty page, on the
// first error or when ctx is cancelled. The returned Stats are valid even
// when an error is returned.
func (d *Downloader) Run(ctx context.Context, opts Options) (*Stats, error) {
	query := opts.Query()

	ctx, span := instrumentation.StartSpan(ctx, "download.run",
		instrumentation.NewSpanAttributeBuilder().WithQuery(query).Build()...)
	defer span.End()

	stats := &Stats{}
	err := d.run(ctx, query, opts.StartingPageToken, stats)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return stats, err
	}

	instrumentation.SetSpanSuccess(span)
	args := []any{
		"pages", stats.Pages,
		"messages", stats.Messages,
		"saved", stats.Saved,
		"skipped", stats.Skipped,
	}
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		args = append(args, "trace_id", traceID)
	}
	d.logger.Info("download finished", args...)
	return stats, nil
}

func (d *Downloader) run(ctx context.Context, query, startToken string, stats *Stats) error {
	pageToken := startToken

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := d.source.ListMessages(ctx, query, pageToken)
		if err != nil {
			return fmt.Errorf("list messages (page %d, token %s): %w", page, tokenOrNone(pageToken), err)
		}
		stats.Pages++
		d.metrics.RecordPage(ctx)
		instrumentation.AddSpanEvent(trace.SpanFromContext(ctx), "page",
			attribute.Int("page", page),
			attribute.Int("messages", len(res.MessageIDs)))

		if len(res.MessageIDs) == 0 {
			d.logger.Warn("No messages found", logging.Page(page), logging.PageToken(pageToken))
			return nil
		}

		if page == 1 && startToken == "" {
			d.logger.Info(fmt.Sprintf("Messages (%d)", res.ResultSizeEstimate),
				"result_size_estimate", res.ResultSizeEstimate)
		}

		d.logger.Debug("begin of page", logging.Page(page), logging.PageToken(pageToken))
		for _, id := range res.MessageIDs {
			if err := d.processMessage(ctx, id, stats); err != nil {
				return err
			}
		}
		d.logger.Debug("end of page", logging.Page(page), logging.PageToken(pageToken),
			"next_page_token", tokenOrNone(res.NextPageToken))

		if res.NextPageToken == "" {
			return nil
		}
		pageToken = res.NextPageToken
	}
}

func (d *Downloader) processMessage(ctx context.Context, messageID string, stats *Stats) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger := d.logger.With(logging.MessageID(messageID))
	logger.Debug("message")

	msg, err := d.source.GetMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("get message %s: %w", messageID, err)
	}
	logger.Debug("message detail",
		"date", gmail.HeaderValue(msg, "Date"),
		"subject", gmail.HeaderValue(msg, "Subject"))

	for _, att := range gmail.ListAttachments(msg) {
		if err := d.saveAttachment(ctx, logger, messageID, att, stats); err != nil {
			return fmt.Errorf("save attachment %q of message %s: %w", att.Filename, messageID, err)
		}
	}

	stats.Messages++
	d.metrics.RecordMessage(ctx)
	return nil
}

func (d *Downloader) saveAttachment(ctx context.Context, logger *slog.Logger, messageID string, att *gmail.AttachmentInfo, stats *Stats) error {
	name := gmail.SanitizeFilename(att.Filename)
	logger = logger.With(logging.Filename(name))

	exists, err := d.store.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		logger.Warn("attachment already saved")
		stats.Skipped++
		d.metrics.RecordAttachment(ctx, instrumentation.AttachmentSkipped, 0)
		return nil
	}

	var data []byte
	if att.Inline() {
		logger.Info("saving inline attachment", "part_id", att.PartID)
		data, err = gmail.DecodeData(att.InlineData)
	} else {
		logger.Info(fmt.Sprintf("saving attachment %s", att.AttachmentID), logging.AttachmentID(att.AttachmentID))
		data, err = d.source.GetAttachment(ctx, messageID, att.AttachmentID)
	}
	if err != nil {
		return err
	}

	if err := d.store.Save(name, data); err != nil {
		return err
	}
	stats.Saved++
	d.metrics.RecordAttachment(ctx, instrumentation.AttachmentSaved, int64(len(data)))
	return nil
}

func tokenOrNone(token string) string {
	if token == "" {
		return logging.NoPageToken
	}
	return token
}
