package store

import (
	"context"
	"fmt"

	"github.com/scsonic/nexavatar/api/domain"
)

// InsertChatLog records one question/answer exchange.
func (s *Store) InsertChatLog(ctx context.Context, log *domain.ChatLog) error {
	query := `
		INSERT INTO chat_logs (id, session_id, access_code, user_message, bot_response, brand, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.conn(ctx).Exec(ctx, query,
		log.ID, log.SessionID, log.AccessCode, log.UserMessage, log.BotResponse,
		log.Brand, log.IPAddress, log.UserAgent, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}
	return nil
}

// ListChatLogs returns the most recent exchanges, newest first. An empty
// accessCode returns logs across all codes.
func (s *Store) ListChatLogs(ctx context.Context, accessCode string, limit int) ([]*domain.ChatLog, error) {
	query := `
		SELECT id, session_id, access_code, user_message, bot_response, brand, ip_address, user_agent, created_at
		FROM chat_logs
		WHERE ($1 = '' OR access_code = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.conn(ctx).Query(ctx, query, accessCode, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.ChatLog
	for rows.Next() {
		log := &domain.ChatLog{}
		if err := rows.Scan(&log.ID, &log.SessionID, &log.AccessCode, &log.UserMessage,
			&log.BotResponse, &log.Brand, &log.IPAddress, &log.UserAgent, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat log: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
