// Package queue consumes video notifications from an SQS queue and feeds
// them to the processing pipeline.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/maauso/video-processing-service/internal/event"
	"github.com/maauso/video-processing-service/internal/storage"
	"github.com/maauso/video-processing-service/internal/video"
)

// Default polling parameters.
const (
	DefaultWaitTimeSeconds = 20
	DefaultMaxMessages     = 1
	DefaultRetryDelay      = 5 * time.Second
)

// SQSAPI is the subset of *sqs.Client used by Consumer.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Processor runs the pipeline for one raw video.
type Processor interface {
	Process(ctx context.Context, rawName string) (*video.Video, error)
}

// Consumer long-polls a queue and processes each message.
type Consumer struct {
	client     SQSAPI
	queueURL   string
	processor  Processor
	logger     *slog.Logger
	waitTime   int32
	maxMsgs    int32
	retryDelay time.Duration
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithWaitTime sets the long-poll wait in seconds (0..20).
func WithWaitTime(seconds int32) ConsumerOption {
	return func(c *Consumer) {
		if seconds >= 0 && seconds <= 20 {
			c.waitTime = seconds
		}
	}
}

// WithMaxMessages sets how many messages one receive may return (1..10).
func WithMaxMessages(n int32) ConsumerOption {
	return func(c *Consumer) {
		if n >= 1 && n <= 10 {
			c.maxMsgs = n
		}
	}
}

// WithRetryDelay sets the pause after a failed receive.
func WithRetryDelay(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

// NewConsumer creates a new Consumer.
func NewConsumer(client SQSAPI, queueURL string, processor Processor, logger *slog.Logger, opts ...ConsumerOption) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Consumer{
		client:     client,
		queueURL:   queueURL,
		processor:  processor,
		logger:     logger,
		waitTime:   DefaultWaitTimeSeconds,
		maxMsgs:    DefaultMaxMessages,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("queue consumer started", slog.String("queue_url", c.queueURL))
	for {
		if ctx.Err() != nil {
			c.logger.Info("queue consumer stopped")
			return nil
		}

		n, err := c.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("receive message failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
			case <-time.After(c.retryDelay):
			}
			continue
		}
		c.logger.Debug("poll finished", slog.Int("messages", n))
	}
}

// Poll receives one batch and handles every message in it. It returns the
// number of messages received.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: c.maxMsgs,
		WaitTimeSeconds:     c.waitTime,
	})
	if err != nil {
		return 0, fmt.Errorf("receive message: %w", err)
	}

	for _, m := range out.Messages {
		c.handle(ctx, m)
	}
	return len(out.Messages), nil
}

// handle processes one message. The message is deleted when it succeeded,
// can never succeed, or names a video that was already claimed. Other
// failures leave it for redelivery after the visibility timeout.
func (c *Consumer) handle(ctx context.Context, m types.Message) {
	logger := c.logger.With(slog.String("message_id", aws.ToString(m.MessageId)))

	payload, err := event.ParseQueueBody(aws.ToString(m.Body))
	if err != nil {
		logger.Error("invalid message body, discarding", slog.String("error", err.Error()))
		c.delete(ctx, logger, m)
		return
	}

	logger = logger.With(slog.String("file", payload.Name))
	_, err = c.processor.Process(ctx, payload.Name)
	switch {
	case err == nil:
		logger.Info("message processed")
	case errors.Is(err, video.ErrVideoAlreadyExists):
		logger.Warn("duplicate message, discarding")
	case errors.Is(err, storage.ErrInvalidName), errors.Is(err, video.ErrInvalidVideoID):
		logger.Error("invalid video name, discarding", slog.String("error", err.Error()))
	default:
		logger.Error("processing failed, leaving message for redelivery", slog.String("error", err.Error()))
		return
	}
	c.delete(ctx, logger, m)
}

func (c *Consumer) delete(ctx context.Context, logger *slog.Logger, m types.Message) {
	_, err := c.client.DeleteMessage(context.WithoutCancel(ctx), &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: m.ReceiptHandle,
	})
	if err != nil {
		logger.Error("delete message failed", slog.String("error", err.Error()))
	}
}
