package fcm

import (
	"context"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// MulticastLimit is the hard provider ceiling on tokens per multicast request.
const MulticastLimit = 500

// Delivery failure reasons, normalized from the provider's error codes.
const (
	ReasonUnregistered    = "unregistered"
	ReasonInvalidArgument = "invalid-argument"
	ReasonQuotaExceeded   = "quota-exceeded"
	ReasonUnavailable     = "unavailable"
	ReasonInternal        = "internal"
	ReasonUnknown         = "unknown"

	// ReasonBatchSendError marks every token of a chunk whose request failed
	// as a whole (network error, auth error) rather than per token.
	ReasonBatchSendError = "batch-send-error"
)

// IsPermanent reports whether a failure reason means the token will never
// succeed again and should be evicted. Everything else is transient.
func IsPermanent(reason string) bool {
	return reason == ReasonUnregistered || reason == ReasonInvalidArgument
}

// Config contains Firebase Cloud Messaging credentials.
type Config struct {
	ProjectID       string
	CredentialsPath string
	CredentialsJSON string
}

// Notification is the shared payload for one dispatch run. Platform shaping
// (Android channel, APNS sound/priority, web-push icon) is derived from it
// once per multicast request.
type Notification struct {
	Title        string
	Body         string
	Data         map[string]string
	ChannelID    string
	HighPriority bool
}

// TokenOutcome is the per-token delivery result, in provider response order.
type TokenOutcome struct {
	Token   string
	Success bool
	Reason  string
}

// SendReport aggregates one multicast request.
type SendReport struct {
	SuccessCount int
	FailureCount int
	Outcomes     []TokenOutcome
}

// Throttled reports whether the provider signalled rate limiting for any
// token in this request.
func (r *SendReport) Throttled() bool {
	for _, o := range r.Outcomes {
		if o.Reason == ReasonQuotaExceeded {
			return true
		}
	}
	return false
}

// Client wraps Firebase Cloud Messaging.
type Client struct {
	messagingClient *messaging.Client
	log             *zap.Logger
}

// NewClient initializes the FCM client. Missing credentials are a startup
// error, not something to retry.
func NewClient(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	opts, err := clientOptions(cfg)
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize Firebase app: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("create FCM messaging client: %w", err)
	}

	log.Info("FCM client initialized", zap.String("project_id", cfg.ProjectID))
	return &Client{messagingClient: messagingClient, log: log}, nil
}

func clientOptions(cfg Config) ([]option.ClientOption, error) {
	switch {
	case cfg.CredentialsPath != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsPath)}, nil
	case cfg.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}, nil
	case os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "":
		// Application default credentials.
		return []option.ClientOption{}, nil
	default:
		return nil, fmt.Errorf("firebase credentials not provided")
	}
}

// SendBatch sends one multicast request for up to MulticastLimit tokens and
// returns the per-token outcome in input order.
func (c *Client) SendBatch(ctx context.Context, tokens []string, n Notification) (*SendReport, error) {
	if len(tokens) == 0 {
		return &SendReport{}, nil
	}
	if len(tokens) > MulticastLimit {
		return nil, fmt.Errorf("batch of %d tokens exceeds provider limit of %d", len(tokens), MulticastLimit)
	}

	resp, err := c.messagingClient.SendEachForMulticast(ctx, c.buildMessage(tokens, n))
	if err != nil {
		return nil, fmt.Errorf("fcm multicast send: %w", err)
	}

	report := &SendReport{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
		Outcomes:     make([]TokenOutcome, 0, len(tokens)),
	}
	for i, r := range resp.Responses {
		outcome := TokenOutcome{Token: tokens[i], Success: r.Success}
		if !r.Success {
			outcome.Reason = classifyError(r.Error)
			c.log.Debug("token delivery failed",
				zap.String("token_preview", tokenPreview(tokens[i])),
				zap.String("reason", outcome.Reason))
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	return report, nil
}

func (c *Client) buildMessage(tokens []string, n Notification) *messaging.MulticastMessage {
	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				ChannelID: n.ChannelID,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: n.Title,
				Body:  n.Body,
				Icon:  "/icon-192.svg",
			},
		},
	}

	if n.HighPriority {
		msg.Android.Priority = "high"
		msg.APNS.Headers = map[string]string{"apns-priority": "10"}
	}
	return msg
}

func classifyError(err error) string {
	switch {
	case err == nil:
		return ReasonUnknown
	case messaging.IsRegistrationTokenNotRegistered(err):
		return ReasonUnregistered
	case messaging.IsInvalidArgument(err):
		return ReasonInvalidArgument
	case messaging.IsQuotaExceeded(err):
		return ReasonQuotaExceeded
	case messaging.IsUnavailable(err):
		return ReasonUnavailable
	case messaging.IsInternal(err):
		return ReasonInternal
	default:
		return ReasonUnknown
	}
}

func tokenPreview(token string) string {
	if len(token) > 20 {
		return token[:20] + "..."
	}
	return token
}
