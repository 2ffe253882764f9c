package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	JobReferralJoin       = "referral_join"
	JobCheckSubscriptions = "check_subscriptions"
	JobDirectUpdate       = "direct_update"

	DefaultStream = "gtm:jobs"
	maxStreamLen  = 100000
)

// Job is one stream entry.
type Job struct {
	ID      string
	Type    string
	Payload json.RawMessage
}

type ReferralJoinPayload struct {
	ReferralCode       string `json:"referral_code"`
	ReferredTelegramID int64  `json:"referred_telegram_id"`
}

type CheckSubscriptionsPayload struct {
	TelegramID int64 `json:"telegram_id"`
}

// Queue appends jobs to a Redis stream.
type Queue struct {
	rdb    redis.Cmdable
	stream string
}

func NewQueue(rdb redis.Cmdable, stream string) *Queue {
	if stream == "" {
		stream = DefaultStream
	}
	return &Queue{rdb: rdb, stream: stream}
}

// Enqueue returns the job id the worker will log against.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", jobType, err)
	}

	jobID := uuid.New().String()
	err = q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]interface{}{
			"job_id":  jobID,
			"type":    jobType,
			"payload": string(body),
		},
	}).Err()
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return jobID, nil
}

func jobFromMessage(msg redis.XMessage) (Job, error) {
	jobType, _ := msg.Values["type"].(string)
	if jobType == "" {
		return Job{}, fmt.Errorf("message %s has no type", msg.ID)
	}
	jobID, _ := msg.Values["job_id"].(string)
	if jobID == "" {
		jobID = msg.ID
	}
	payload, _ := msg.Values["payload"].(string)
	return Job{ID: jobID, Type: jobType, Payload: json.RawMessage(payload)}, nil
}
