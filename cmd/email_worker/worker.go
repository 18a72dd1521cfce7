package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-level-upgrade/pkg/helpers"
	"github.com/oksasatya/go-level-upgrade/pkg/mailer"
	mailtpl "github.com/oksasatya/go-level-upgrade/pkg/mailer/templates"
)

type sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// outcome tells the consumer loop how to settle a delivery.
type outcome int

const (
	ack     outcome = iota
	drop            // nack without requeue: the message can never succeed
	requeue         // nack with requeue: transient send failure
)

var errEmptyJob = errors.New("job has no recipient or body")

type worker struct {
	mail        sender
	logger      *logrus.Logger
	sendTimeout time.Duration
}

func (w *worker) handle(ctx context.Context, body []byte) (outcome, error) {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return drop, fmt.Errorf("bad message: %w", err)
	}
	if job.To == "" {
		return drop, errEmptyJob
	}
	helpers.EnsureRecipientAndEmail(&job)

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return drop, fmt.Errorf("render %s: %w", job.Template, err)
		}
		subject, text, html = s, t, h
	}
	if subject == "" || (text == "" && html == "") {
		return drop, errEmptyJob
	}

	c, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()
	if err := w.mail.Send(c, job.To, subject, text, html); err != nil {
		return requeue, fmt.Errorf("send: %w", err)
	}
	if w.logger != nil {
		w.logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sent")
	}
	return ack, nil
}
