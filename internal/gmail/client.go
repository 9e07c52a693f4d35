package gmail

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/gmail-file-downloader/internal/instrumentation"
)

// DefaultUserID addresses the mailbox of the authorized user.
const DefaultUserID = "me"

// Client wraps the Gmail Users service for one mailbox.
type Client struct {
	svc     *gmail.UsersService
	userID  string
	metrics *instrumentation.Metrics
}

type clientOptions struct {
	userID   string
	endpoint string
	metrics  *instrumentation.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

// WithUserID selects the mailbox. An empty value keeps "me".
func WithUserID(id string) ClientOption {
	return func(o *clientOptions) {
		if id != "" {
			o.userID = id
		}
	}
}

// WithEndpoint overrides the API base URL, e.g. for an httptest server.
func WithEndpoint(endpoint string) ClientOption {
	return func(o *clientOptions) { o.endpoint = endpoint }
}

// WithMetrics records every API call on m.
func WithMetrics(m *instrumentation.Metrics) ClientOption {
	return func(o *clientOptions) { o.metrics = m }
}

// NewClient creates a Gmail client that sends requests through httpClient,
// which is expected to carry the OAuth2 credentials.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...ClientOption) (*Client, error) {
	o := clientOptions{userID: DefaultUserID}
	for _, opt := range opts {
		opt(&o)
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if o.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
	}

	svc, err := gmail.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:     svc.Users,
		userID:  o.userID,
		metrics: o.metrics,
	}, nil
}

// UserID returns the mailbox this client reads.
func (c *Client) UserID() string {
	return c.userID
}

// MessagePage is one page of messages.list.
type MessagePage struct {
	MessageIDs         []string
	NextPageToken      string
	ResultSizeEstimate int64
}

// ListMessages fetches the page identified by pageToken (empty for the first
// page) of messages matching query (empty for all messages).
func (c *Client) ListMessages(ctx context.Context, query, pageToken string) (*MessagePage, error) {
	attrs := instrumentation.NewSpanAttributeBuilder().WithAccount(c.userID).WithQuery(query).Build()
	ctx, done := c.observe(ctx, instrumentation.OperationList, attrs...)

	req := c.svc.Messages.List(c.userID).Context(ctx)
	if query != "" {
		req = req.Q(query)
	}
	if pageToken != "" {
		req = req.PageToken(pageToken)
	}

	res, err := req.Do()
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	page := &MessagePage{
		MessageIDs:         make([]string, 0, len(res.Messages)),
		NextPageToken:      res.NextPageToken,
		ResultSizeEstimate: res.ResultSizeEstimate,
	}
	for _, m := range res.Messages {
		page.MessageIDs = append(page.MessageIDs, m.Id)
	}
	return page, nil
}

// GetMessage retrieves a message with its full payload.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}

	attrs := instrumentation.NewSpanAttributeBuilder().WithAccount(c.userID).WithMessage(messageID).Build()
	ctx, done := c.observe(ctx, instrumentation.OperationGet, attrs...)

	msg, err := c.svc.Messages.Get(c.userID, messageID).Format("full").Context(ctx).Do()
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// GetAttachment retrieves and decodes the content of an attachment.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	attrs := instrumentation.NewSpanAttributeBuilder().
		WithAccount(c.userID).
		WithMessage(messageID).
		WithAttachment(attachmentID).
		Build()
	ctx, done := c.observe(ctx, instrumentation.OperationAttachmentsGet, attrs...)

	body, err := c.svc.Messages.Attachments.Get(c.userID, messageID, attachmentID).Context(ctx).Do()
	done(err)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	data, err := DecodeData(body.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment %s: %w", attachmentID, err)
	}
	return data, nil
}

// observe starts a client span for operation and returns a function that
// ends it and records the call duration and status.
func (c *Client) observe(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, operation, attrs...)

	return ctx, func(err error) {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceGmail, operation, status, time.Since(start))
	}
}
