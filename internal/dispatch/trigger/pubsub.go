package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"fibrodiario-backend/internal/dispatch"
)

// triggerMessage is what Cloud Scheduler (or the report pipeline) publishes.
type triggerMessage struct {
	Category   string `json:"category"`
	TargetHour int    `json:"targetHour"`
}

// PubSubListener consumes dispatch triggers from a Pub/Sub topic and feeds
// them into the dispatch service. This is the production trigger path; the
// in-process cron scheduler covers single-node deployments.
type PubSubListener struct {
	client    *pubsub.Client
	service   *dispatch.Service
	topicName string
	subName   string
	log       *zap.Logger
}

func NewPubSubListener(ctx context.Context, projectID, topicName, credentialsFile string, service *dispatch.Service, log *zap.Logger) (*PubSubListener, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &PubSubListener{
		client:    client,
		service:   service,
		topicName: topicName,
		subName:   topicName + "-sub",
		log:       log,
	}, nil
}

// Start blocks receiving trigger messages until ctx is cancelled.
func (l *PubSubListener) Start(ctx context.Context) {
	sub := l.client.Subscription(l.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		l.log.Error("checking trigger subscription failed", zap.Error(err))
		return
	}

	if !exists {
		topic := l.client.Topic(l.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil || !topicExists {
			l.log.Error("trigger topic unavailable, pubsub triggers disabled",
				zap.String("topic", l.topicName), zap.Error(err))
			return
		}
		sub, err = l.client.CreateSubscription(ctx, l.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			l.log.Error("creating trigger subscription failed", zap.Error(err))
			return
		}
		l.log.Info("created trigger subscription", zap.String("subscription", l.subName))
	}

	l.log.Info("listening for dispatch triggers", zap.String("subscription", l.subName))
	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		l.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		l.log.Error("receiving trigger messages failed", zap.Error(err))
	}
}

func (l *PubSubListener) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var trigger triggerMessage
	if err := json.Unmarshal(msg.Data, &trigger); err != nil {
		l.log.Warn("dropping malformed trigger message", zap.Error(err))
		return
	}

	category, err := dispatch.ParseCategory(trigger.Category)
	if err != nil {
		l.log.Warn("dropping trigger with unknown category",
			zap.String("category", trigger.Category))
		return
	}

	if _, err := l.service.Run(ctx, category, trigger.TargetHour, time.Now()); err != nil {
		// Acked regardless: the next scheduled publish retries the window.
		l.log.Error("triggered dispatch failed",
			zap.String("category", trigger.Category),
			zap.Error(err))
	}
}
