// internal/worker/reminders.go

// Package worker runs the periodic background jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ermakplan-back/internal/logs"
	"ermakplan-back/internal/models"
	"ermakplan-back/internal/realtime"
	"ermakplan-back/pkg/email"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const dispatchBatchSize = 100

var errAlreadySent = errors.New("reminder already sent")

// ReminderDispatcher delivers due reminders as notifications, email or both.
type ReminderDispatcher struct {
	db       *gorm.DB
	mailer   email.Mailer
	hub      realtime.Publisher
	interval time.Duration
	now      func() time.Time
}

func NewReminderDispatcher(db *gorm.DB, mailer email.Mailer, hub realtime.Publisher, interval time.Duration) *ReminderDispatcher {
	return &ReminderDispatcher{
		db:       db,
		mailer:   mailer,
		hub:      hub,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run dispatches on every tick until ctx is cancelled.
func (d *ReminderDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	logs.Log.WithField("interval", d.interval.String()).Info("Starting reminder dispatcher")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sent, err := d.DispatchDue(ctx)
			if err != nil {
				logs.Log.WithError(err).Error("Reminder dispatch failed")
				continue
			}
			if sent > 0 {
				logs.Log.WithField("sent", sent).Info("Dispatched reminders")
			}
		}
	}
}

// DispatchDue delivers every unsent reminder whose date has passed and
// returns how many were delivered. A reminder that fails stays unsent and is
// retried on the next run.
func (d *ReminderDispatcher) DispatchDue(ctx context.Context) (int, error) {
	var due []models.Reminder
	err := d.db.WithContext(ctx).
		Preload("Task").
		Preload("User").
		Where("sent = ? AND reminder_date <= ?", false, d.now()).
		Order("reminder_date, id").
		Limit(dispatchBatchSize).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("load due reminders: %w", err)
	}

	sent := 0
	for i := range due {
		reminder := &due[i]
		if err := d.deliver(ctx, reminder); err != nil {
			if errors.Is(err, errAlreadySent) {
				continue
			}
			logs.Log.WithFields(logrus.Fields{
				"reminder_id": reminder.ID,
				"user_id":     reminder.UserID,
				"type":        reminder.ReminderType,
			}).WithError(err).Warn("Failed to deliver reminder")
			continue
		}
		sent++
	}
	return sent, nil
}

func (d *ReminderDispatcher) deliver(ctx context.Context, reminder *models.Reminder) error {
	wantsNotification := reminder.ReminderType != models.ReminderTypeEmail
	wantsEmail := reminder.ReminderType == models.ReminderTypeEmail || reminder.ReminderType == models.ReminderTypeBoth

	taskTitle := "task"
	var dueDate *time.Time
	if reminder.Task != nil {
		taskTitle = reminder.Task.Title
		dueDate = reminder.Task.DueDate
	}

	if wantsEmail {
		if reminder.User == nil || reminder.User.Email == "" {
			logs.Log.WithField("reminder_id", reminder.ID).Debug("Skipping reminder email, user has no address")
		} else {
			err := d.mailer.SendReminder(ctx, reminder.User.Email, email.ReminderData{
				Recipient:    reminder.User.FullName,
				TaskTitle:    taskTitle,
				Message:      reminder.Message,
				DueDate:      dueDate,
				ReminderDate: reminder.ReminderDate,
			})
			if err != nil {
				return fmt.Errorf("send reminder email: %w", err)
			}
		}
	}

	var notification *models.Notification
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Reminder{}).
			Where("id = ? AND sent = ?", reminder.ID, false).
			Update("sent", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadySent
		}

		if !wantsNotification {
			return nil
		}
		message := reminder.Message
		if message == "" {
			message = fmt.Sprintf("Reminder for task %q", taskTitle)
		}
		taskID := reminder.TaskID
		notification = &models.Notification{
			UserID:        reminder.UserID,
			Title:         "Reminder: " + taskTitle,
			Message:       message,
			Type:          models.NotificationWarning,
			RelatedTaskID: &taskID,
		}
		return tx.Create(notification).Error
	})
	if err != nil {
		return err
	}

	reminder.Sent = true
	if notification != nil {
		d.hub.SendToUser(reminder.UserID, realtime.Event{
			Type:   realtime.TypeNotification,
			Action: realtime.ActionCreate,
			Data:   notification,
		})
	}
	d.hub.SendToUser(reminder.UserID, realtime.Event{
		Type:   realtime.TypeReminder,
		Action: realtime.ActionDue,
		Data:   reminder,
	})
	return nil
}
