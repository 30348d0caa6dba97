package storage

import (
	"bytes"
	"chatrock/chatrock/config"
	"chatrock/chatrock/sources/transcript"
	"chatrock/chatrock/utils/types"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient archives chat transcripts to an S3-compatible bucket.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

// TranscriptObject is the JSON document written for an archived chat.
type TranscriptObject struct {
	ChatID     uuid.UUID           `json:"chatId"`
	UserID     uuid.UUID           `json:"userId"`
	Title      string              `json:"title"`
	CreatedAt  time.Time           `json:"createdAt"`
	ArchivedAt time.Time           `json:"archivedAt"`
	Messages   []types.ChatMessage `json:"messages"`
}

func NewMinIOClient(ctx context.Context, cfg config.Config) (*MinIOClient, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOSecure,
	})
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIOBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &MinIOClient{client: client, bucket: cfg.MinIOBucket}, nil
}

func TranscriptKey(userID, chatID uuid.UUID) string {
	return path.Join("transcripts", userID.String(), chatID.String()+".json")
}

func NewTranscriptObject(chat transcript.Chat, msgs []transcript.Message, at time.Time) TranscriptObject {
	return TranscriptObject{
		ChatID:     chat.ID,
		UserID:     chat.UserID,
		Title:      chat.Title,
		CreatedAt:  chat.CreatedAt,
		ArchivedAt: at,
		Messages:   transcript.ToWire(msgs),
	}
}

// ArchiveTranscript writes the chat and its messages and returns the object key.
func (m *MinIOClient) ArchiveTranscript(ctx context.Context, chat transcript.Chat, msgs []transcript.Message) (string, error) {
	key := TranscriptKey(chat.UserID, chat.ID)
	data, err := json.Marshal(NewTranscriptObject(chat, msgs, time.Now().UTC()))
	if err != nil {
		return "", err
	}
	_, err = m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", key, err)
	}
	return key, nil
}

func (m *MinIOClient) GetTranscript(ctx context.Context, key string) (*TranscriptObject, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, err
	}
	var out TranscriptObject
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
