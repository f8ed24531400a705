package store

import "fmt"

// RecordConversation appends one (user, input, output) exchange. The log is
// write-only; nothing in the bot reads it back.
func (s *Store) RecordConversation(userID int64, message, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO conversations (user_id, message, response) VALUES (?, ?, ?)`,
		userID, message, response,
	)
	if err != nil {
		return fmt.Errorf("failed to record conversation: %w", err)
	}
	return nil
}
