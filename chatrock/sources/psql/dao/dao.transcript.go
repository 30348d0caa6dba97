package dao

import (
	"chatrock/chatrock/sources/psql/models"
	"chatrock/chatrock/sources/transcript"
	"chatrock/chatrock/utils/types"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TranscriptDAO is the relational transcript.Store.
type TranscriptDAO struct {
	DB *gorm.DB
}

func NewTranscriptDAO(db *gorm.DB) *TranscriptDAO {
	return &TranscriptDAO{DB: db}
}

var _ transcript.Store = (*TranscriptDAO)(nil)

func (dao *TranscriptDAO) GetChat(ctx context.Context, id uuid.UUID) (*transcript.Chat, error) {
	var chat models.Chat
	err := dao.DB.WithContext(ctx).First(&chat, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c := chatFromModel(chat)
	return &c, nil
}

func (dao *TranscriptDAO) CreateChat(ctx context.Context, chat transcript.Chat) error {
	row := models.Chat{
		ID:        chat.ID,
		UserID:    chat.UserID,
		Title:     chat.Title,
		CreatedAt: chat.CreatedAt,
	}
	return dao.DB.WithContext(ctx).Omit(clause.Associations).Create(&row).Error
}

// AppendMessages inserts the batch in one transaction. Positions continue from
// the current maximum of each chat.
func (dao *TranscriptDAO) AppendMessages(ctx context.Context, msgs []transcript.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next := map[uuid.UUID]int64{}
		rows := make([]models.Message, 0, len(msgs))
		for _, m := range msgs {
			pos, ok := next[m.ChatID]
			if !ok {
				var err error
				pos, err = nextPosition(tx, m.ChatID)
				if err != nil {
					return err
				}
			}
			next[m.ChatID] = pos + 1
			rows = append(rows, models.Message{
				ID:        m.ID,
				ChatID:    m.ChatID,
				Role:      string(m.Role),
				Content:   datatypes.JSONSlice[types.ContentBlock](m.Content),
				CreatedAt: m.CreatedAt,
				Position:  pos,
			})
		}
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
}

func nextPosition(tx *gorm.DB, chatID uuid.UUID) (int64, error) {
	var chats int64
	if err := tx.Model(&models.Chat{}).Where("id = ?", chatID).Count(&chats).Error; err != nil {
		return 0, err
	}
	if chats == 0 {
		return 0, fmt.Errorf("append to %s: %w", chatID, transcript.ErrChatNotFound)
	}

	var last sql.NullInt64
	err := tx.Model(&models.Message{}).Select("MAX(position)").Where("chat_id = ?", chatID).Row().Scan(&last)
	if err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, nil
	}
	return last.Int64 + 1, nil
}

func (dao *TranscriptDAO) ListMessagesByChat(ctx context.Context, chatID uuid.UUID) ([]transcript.Message, error) {
	var rows []models.Message
	err := dao.DB.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at asc").
		Order("position asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]transcript.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, transcript.Message{
			ID:        r.ID,
			ChatID:    r.ChatID,
			Role:      types.ParseRole(r.Role),
			Content:   types.Content(r.Content),
			CreatedAt: r.CreatedAt,
			Position:  r.Position,
		})
	}
	return out, nil
}

func (dao *TranscriptDAO) ListChatsByUser(ctx context.Context, userID uuid.UUID) ([]transcript.Chat, error) {
	var rows []models.Chat
	err := dao.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]transcript.Chat, 0, len(rows))
	for _, r := range rows {
		out = append(out, chatFromModel(r))
	}
	return out, nil
}

func (dao *TranscriptDAO) DeleteChat(ctx context.Context, id uuid.UUID) error {
	return dao.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Chat{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return transcript.ErrChatNotFound
		}
		return nil
	})
}

func chatFromModel(c models.Chat) transcript.Chat {
	return transcript.Chat{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
	}
}
