// Package notify writes in-app notifications.
package notify

import (
	"fmt"
	"time"

	"github.com/01moynul/collabhub-golang/internal/database"
)

// Add creates a notification for userID. Pass the open *sql.Tx when the
// notification belongs to a larger change so both commit together.
func Add(db database.Execer, userID int64, message, link string) error {
	var nullLink *string
	if link != "" {
		nullLink = &link
	}

	query := `
		INSERT INTO notifications
		(user_id, message, link, is_read, created_at)
		VALUES (?, ?, ?, ?, ?)`

	if _, err := db.Exec(query, userID, message, nullLink, false, time.Now()); err != nil {
		return fmt.Errorf("failed to add notification: %w", err)
	}
	return nil
}
