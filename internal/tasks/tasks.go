// Package tasks holds the background jobs run by the worker process.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thereayou/flasker/internal/database"
	"github.com/thereayou/flasker/internal/jobs"
	"github.com/thereayou/flasker/internal/mailer"
	"github.com/thereayou/flasker/internal/services"
	"go.uber.org/zap"
)

const exportBatchSize = 100

type Runner struct {
	db       *database.Database
	mail     mailer.Sender
	siteName string
	log      *zap.Logger
}

func NewRunner(db *database.Database, mail mailer.Sender, siteName string, log *zap.Logger) *Runner {
	return &Runner{db: db, mail: mail, siteName: siteName, log: log}
}

// Register wires every task into w.
func (r *Runner) Register(w *jobs.Worker) {
	w.Handle(services.TaskExportFollowers, r.ExportFollowers)
	w.Handle(services.TaskSendEmail, r.SendEmail)
}

type exportedFollower struct {
	PublicID string    `json:"public_id"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	LastSeen time.Time `json:"last_seen"`
}

// ExportFollowers emails the job owner a JSON file of their followers.
func (r *Runner) ExportFollowers(ctx context.Context, job *jobs.Job, progress jobs.ProgressFunc) error {
	user, err := r.db.GetUser(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", job.UserID, err)
	}

	total, err := r.db.CountFollowers(ctx, user.ID)
	if err != nil {
		return err
	}

	out := make([]exportedFollower, 0, total)
	for offset := 0; int64(offset) < total; offset += exportBatchSize {
		batch, err := r.db.ListFollowers(ctx, user.ID, offset, exportBatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}
		for _, f := range batch {
			out = append(out, exportedFollower{
				PublicID: f.PublicID,
				Username: f.Username,
				Name:     f.Name,
				LastSeen: f.LastSeen,
			})
		}
		// the email still has to go out, so stop short of 100
		if err := progress(ctx, len(out)*99/int(total)); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(map[string]any{"followers": out}, "", "  ")
	if err != nil {
		return err
	}

	return r.mail.Send(mailer.Email{
		To:      []string{user.Email},
		Subject: fmt.Sprintf("[%s] Your followers", r.siteName),
		Body:    fmt.Sprintf("Hi %s,\n\nAttached is the list of your %d followers.\n", user.Username, len(out)),
		Attachments: []mailer.Attachment{{
			Filename:    "followers.json",
			ContentType: "application/json",
			Data:        data,
		}},
	})
}

// SendEmail delivers a transactional email built from services.EmailPayload.
func (r *Runner) SendEmail(ctx context.Context, job *jobs.Job, _ jobs.ProgressFunc) error {
	var payload services.EmailPayload
	if err := job.Decode(&payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	user, err := r.db.GetUser(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", job.UserID, err)
	}

	var subject, body string
	switch payload.Template {
	case services.EmailConfirm:
		subject = fmt.Sprintf("[%s] Confirm your email", r.siteName)
		body = fmt.Sprintf("Hi %s,\n\nConfirm your email address by sending this token to /v1/confirm/:\n\n%s\n\nThe token is valid for 7 days.\n",
			user.Username, payload.Token)
	case services.EmailResetPassword:
		subject = fmt.Sprintf("[%s] Reset your password", r.siteName)
		body = fmt.Sprintf("Hi %s,\n\nReset your password by sending this token to /v1/reset_password/:\n\n%s\n\nThe token is valid for 10 minutes. If you did not ask for a reset, ignore this email.\n",
			user.Username, payload.Token)
	default:
		return fmt.Errorf("unknown email template %q", payload.Template)
	}

	r.log.Debug("sending email", zap.String("template", payload.Template), zap.Uint("user_id", user.ID))
	return r.mail.Send(mailer.Email{To: []string{user.Email}, Subject: subject, Body: body})
}
