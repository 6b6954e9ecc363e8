package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"smartline-backend/internal/avito"
	"smartline-backend/internal/domain"
	"smartline-backend/internal/repository"
)

var (
	ErrAvitoNotConfigured = errors.New("avito credentials not configured")

	phonePattern = regexp.MustCompile(`[\+]?[78][\s\-\(]?\d{3}[\s\-\)]?\d{3}[\s\-]?\d{2}[\s\-]?\d{2}`)
)

// AvitoChats is the messenger API surface the sync needs.
type AvitoChats interface {
	Configured() bool
	Token(ctx context.Context) (string, error)
	SelfID(ctx context.Context, token string) (string, error)
	Chats(ctx context.Context, token, userID string) ([]avito.Chat, error)
	Messages(ctx context.Context, token, userID, chatID string) ([]avito.Message, error)
}

// AvitoLedger is the persistence surface: the synced-chat ledger plus order
// creation.
type AvitoLedger interface {
	IsSynced(ctx context.Context, chatID string) (bool, error)
	CreateOrderFromChat(ctx context.Context, in repository.SyncedChatInput) (*domain.Order, error)
	Stats(ctx context.Context) (*repository.SyncStats, error)
}

// AvitoService converts Avito messenger chats into orders. Each chat becomes
// at most one order; the ledger makes repeat runs idempotent.
type AvitoService struct {
	Client AvitoChats
	Repo   AvitoLedger
	Logger *slog.Logger
}

type SyncResult struct {
	Created int
	Skipped int
}

func (s AvitoService) Sync(ctx context.Context) (*SyncResult, error) {
	if !s.Client.Configured() {
		return nil, ErrAvitoNotConfigured
	}
	token, err := s.Client.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("get avito token: %w", err)
	}
	userID, err := s.Client.SelfID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get avito account: %w", err)
	}
	chats, err := s.Client.Chats(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{}
	for _, chat := range chats {
		if chat.ID == "" {
			continue
		}
		synced, err := s.Repo.IsSynced(ctx, chat.ID)
		if err != nil {
			return nil, err
		}
		if synced {
			res.Skipped++
			continue
		}

		clientName := "Клиент Авито"
		avitoUserID := ""
		for _, u := range chat.Users {
			if strconv.FormatInt(u.ID, 10) != userID {
				if u.Name != "" {
					clientName = u.Name
				}
				avitoUserID = strconv.FormatInt(u.ID, 10)
				break
			}
		}

		messages, err := s.Client.Messages(ctx, token, userID, chat.ID)
		if err != nil {
			return nil, err
		}

		service := chat.Context.Value.Title
		if service == "" {
			service = "Запрос с Авито"
		}

		phone := extractPhone(messages)
		if phone != "" {
			phone = domain.NormalizePhone(phone)
		}

		comment := firstClientMessage(messages, userID)
		if comment != "" {
			comment += "\n"
		}
		comment += fmt.Sprintf("[Авито чат #%s]", chat.ID)

		lastMessageID := ""
		if len(messages) > 0 {
			lastMessageID = messages[0].ID
		}

		order, err := s.Repo.CreateOrderFromChat(ctx, repository.SyncedChatInput{
			ChatID:        chat.ID,
			AvitoUserID:   avitoUserID,
			LastMessageID: lastMessageID,
			ClientName:    clientName,
			Phone:         phone,
			Service:       service,
			Comment:       comment,
		})
		if err != nil {
			return nil, err
		}
		s.Logger.Info("avito chat converted to order", "chat_id", chat.ID, "order_id", order.ID)
		res.Created++
	}
	return res, nil
}

func (s AvitoService) Stats(ctx context.Context) (*repository.SyncStats, error) {
	return s.Repo.Stats(ctx)
}

// extractPhone scans message texts for the first thing shaped like a Russian
// phone number.
func extractPhone(messages []avito.Message) string {
	for _, m := range messages {
		if match := phonePattern.FindString(m.Content.Text); match != "" {
			return match
		}
	}
	return ""
}

// firstClientMessage returns the oldest message not written by our account,
// capped at 500 characters.
func firstClientMessage(messages []avito.Message, userID string) string {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if strconv.FormatInt(m.AuthorID, 10) == userID {
			continue
		}
		text := m.Content.Text
		if len([]rune(text)) > 500 {
			text = string([]rune(text)[:500])
		}
		return text
	}
	return ""
}
