package wellness

import (
	"context"
	"fmt"
	"time"

	"github.com/jghoshh/bienestar/backend/models"
	"github.com/jghoshh/bienestar/backend/queue"
	storage "github.com/jghoshh/bienestar/backend/storage/persistent"
)

// ReminderNotifier turns a fired reminder into a notification addressed to
// the reminder owner's email.
type ReminderNotifier struct {
	store     storage.StorageInterface
	publisher queue.Publisher
}

func NewReminderNotifier(store storage.StorageInterface, publisher queue.Publisher) *ReminderNotifier {
	return &ReminderNotifier{store: store, publisher: publisher}
}

func (n *ReminderNotifier) NotifyReminder(ctx context.Context, userID string, reminder models.Reminder, at time.Time) error {
	user, err := n.store.FindUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading reminder owner %s: %w", userID, err)
	}
	body := fmt.Sprintf("It is %s. Time for: %s", at.Format("3:04 PM"), reminder.Title)
	msg := queue.NewNotification(queue.KindReminder, user.Email, reminder.Title, body)
	return n.publisher.PublishNotification(ctx, msg)
}
