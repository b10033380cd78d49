package store

import (
	"database/sql"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
)

// SendOrUpdateMessage delivers a message about a need to a supporter's inbox.
// A supporter keeps at most one message per need; sending again replaces the
// previous text.
func (s *Store) SendOrUpdateMessage(msg *models.NeedMessage) error {
	query := `
		INSERT INTO messages (receiver_username, need_name, sender_username, message, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(receiver_username, need_name)
		DO UPDATE SET sender_username = excluded.sender_username,
		              message = excluded.message,
		              created_at = CURRENT_TIMESTAMP
	`
	_, err := s.DB.Exec(query, msg.ReceiverUsername, msg.NeedName, msg.SenderUsername, msg.Message)
	return err
}

func (s *Store) GetMessages(receiverUsername string) ([]models.NeedMessage, error) {
	query := `
		SELECT receiver_username, need_name, sender_username, message, created_at
		FROM messages WHERE receiver_username = ? ORDER BY created_at DESC, need_name
	`
	rows, err := s.DB.Query(query, receiverUsername)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.NeedMessage
	for rows.Next() {
		var m models.NeedMessage
		if err := rows.Scan(&m.ReceiverUsername, &m.NeedName, &m.SenderUsername, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetMessage returns nil, nil when the supporter has no message for the need.
func (s *Store) GetMessage(receiverUsername, needName string) (*models.NeedMessage, error) {
	query := `
		SELECT receiver_username, need_name, sender_username, message, created_at
		FROM messages WHERE receiver_username = ? AND need_name = ?
	`
	var m models.NeedMessage
	err := s.DB.QueryRow(query, receiverUsername, needName).
		Scan(&m.ReceiverUsername, &m.NeedName, &m.SenderUsername, &m.Message, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMessage returns false when there was no message to delete.
func (s *Store) DeleteMessage(receiverUsername, needName string) (bool, error) {
	res, err := s.DB.Exec(
		`DELETE FROM messages WHERE receiver_username = ? AND need_name = ?`,
		receiverUsername, needName,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
