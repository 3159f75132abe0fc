// The worker consumes audit jobs from SQS and runs them through the audit
// pipeline. Messages are deleted on success and on unrecoverable payloads;
// processing failures leave the message for redelivery so transient LLM or
// storage errors get retried after the visibility timeout.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"manuscript-backend/internal/bootstrap"
	"manuscript-backend/internal/shared/config"
	"manuscript-backend/internal/shared/metrics"
	"manuscript-backend/internal/shared/telemetry"
	"manuscript-backend/internal/workerproc"
)

const (
	defaultRegion             = "us-east-1"
	defaultVisibilitySeconds  = 1200
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
)

type pollOptions struct {
	queueURL          string
	visibilitySeconds int
	concurrency       int
	shutdownTimeout   time.Duration
}

func optionsFromEnv() pollOptions {
	return pollOptions{
		queueURL:          strings.TrimSpace(os.Getenv("MA_SQS_QUEUE_URL")),
		visibilitySeconds: envInt("MA_SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds),
		concurrency:       max(1, envInt("MA_WORKER_CONCURRENCY", defaultWorkerConcurrency)),
		shutdownTimeout:   time.Duration(envInt("MA_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second,
	}
}

func main() {
	cfg := config.Load()

	opts := optionsFromEnv()
	if opts.queueURL == "" {
		log.Fatal("MA_SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	region := strings.TrimSpace(os.Getenv("AWS_REGION"))
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	log.Printf("worker started queue=%s concurrency=%d visibility=%ds",
		opts.queueURL, opts.concurrency, opts.visibilitySeconds)
	poll(ctx, app, sqs.NewFromConfig(awsCfg), opts)
}

// poll long-polls the queue until the context is cancelled, then drains
// in-flight jobs for up to the shutdown timeout.
func poll(ctx context.Context, app *bootstrap.App, client sqsAPI, opts pollOptions) {
	sem := make(chan struct{}, opts.concurrency)
	var wg sync.WaitGroup

receive:
	for ctx.Err() == nil {
		resp, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(opts.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(opts.visibilitySeconds),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			log.Printf("receive message: %v", err)
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break receive
			case sem <- struct{}{}:
			}
			metrics.IncAuditJobsReceived()
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				handleMessage(ctx, app, client, opts.queueURL, m)
			}(msg)
		}
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight jobs", opts.shutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(opts.shutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight jobs")
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func handleMessage(ctx context.Context, app *bootstrap.App, client sqsAPI, queueURL string, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	if strings.TrimSpace(body) == "" {
		fields := baseFields(msg, "", "")
		fields["body_len"] = 0
		dropUnrecoverable(ctx, client, queueURL, msg, "worker.audit.empty_body", fields)
		return
	}

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		event := "worker.audit.decode_failed"
		fields := baseFields(msg, "", "")
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}

		var missingID workerproc.ErrMissingAuditID
		var decodeErr workerproc.ErrDecode
		switch {
		case errors.As(err, &missingID):
			event = "worker.audit.missing_id"
			if missingID.RequestID != "" {
				fields["request_id"] = missingID.RequestID
			}
		case errors.As(err, &decodeErr):
			fields["error"] = decodeErr.Err.Error()
		default:
			fields["error"] = err.Error()
		}
		dropUnrecoverable(ctx, client, queueURL, msg, event, fields)
		return
	}

	telemetry.Info("worker.audit.received", baseFields(msg, decoded.AuditID, decoded.RequestID))

	ctxWithParsed := workerproc.WithParsedMessage(ctx, decoded)
	if err := workerproc.HandleMessage(ctxWithParsed, app, body); err != nil {
		auditID, requestID := decoded.AuditID, decoded.RequestID
		var procErr workerproc.ErrProcess
		if errors.As(err, &procErr) {
			auditID, requestID = procErr.AuditID, procErr.RequestID
			err = procErr.Err
		}
		fields := baseFields(msg, auditID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.audit.failed", fields)
		metrics.IncAuditJobsFailed()
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.AuditID, decoded.RequestID) {
		telemetry.Info("worker.audit.completed", baseFields(msg, decoded.AuditID, decoded.RequestID))
		metrics.IncAuditJobsCompleted()
	}
}

// dropUnrecoverable logs a poison message and deletes it so the queue does
// not redeliver a payload that can never succeed.
func dropUnrecoverable(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, event string, fields map[string]any) {
	telemetry.Error(event, fields)
	requestID, _ := fields["request_id"].(string)
	if deleteMessage(ctx, client, queueURL, msg, "", requestID) {
		metrics.IncAuditJobsDeletedUnrecoverable()
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, auditID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, auditID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.audit.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, auditID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.audit.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, auditID, requestID string) map[string]any {
	fields := map[string]any{
		"audit_id":       auditID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
