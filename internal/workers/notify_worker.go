package workers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hireloop/hireloop/internal/providers/notify"
)

// Sender delivers one rendered notification email. The concrete transport
// lives outside the core; LogSender is the default.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes the email to the log instead of a mail transport.
type LogSender struct {
	Logger *logrus.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.Logger.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("notification email")
	return nil
}

// NotifyWorkerPool drains notify:stream through a Redis consumer group and
// delivers emails best-effort. A failed delivery is acked and logged; the
// stage advance it belongs to already happened.
type NotifyWorkerPool struct {
	Redis      *redis.Client
	Sender     Sender
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *NotifyWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Sender == nil {
		return errors.New("NotifyWorkerPool missing dependency: Redis/Sender must be set")
	}
	if p.Stream == "" {
		p.Stream = notify.Stream
	}
	if p.Group == "" {
		p.Group = "notify-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "n"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *NotifyWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *NotifyWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	email := getStr("candidate_email")
	stageName := getStr("stage_name")
	if email == "" || stageName == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":   msg.ID,
		"session_id": getStr("session_id"),
		"stage":      stageName,
	})

	var subject, body string
	if getStr("final") == "true" {
		subject = "Your interview is complete"
		body = "All interview stages are done. We will be in touch with the outcome."
	} else {
		subject = fmt.Sprintf("Next interview stage: %s", stageName)
		body = fmt.Sprintf("You are ready for the next stage.\n\n%s\n%s\n",
			stageName, getStr("stage_description"))
	}

	if err := p.Sender.Send(ctx, email, subject, body); err != nil {
		// best-effort: log and move on
		log.WithError(err).Warn("notification delivery failed")
		return
	}
	log.Debug("notification delivered")
}
