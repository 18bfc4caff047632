package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	historyTTL         = 30 * 24 * time.Hour
	defaultHistoryCap  = 200
	questionHistoryCap = 50
	upsertAttempts     = 3
)

// Rating is thumbs up or down feedback on an AI message.
type Rating string

const (
	RatingUp   Rating = "up"
	RatingDown Rating = "down"
)

type Feedback struct {
	MessageID string    `json:"messageId"`
	PatientID string    `json:"patientId"`
	Rating    Rating    `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (f Feedback) Validate() error {
	if strings.TrimSpace(f.MessageID) == "" {
		return errors.New("chat: feedback message id is required")
	}
	if f.Rating != RatingUp && f.Rating != RatingDown {
		return fmt.Errorf("chat: unsupported rating %q", f.Rating)
	}
	return nil
}

// Store keeps per user chat state: message history per patient, recent
// questions and feedback.
type Store interface {
	// Upsert appends msg or replaces the stored message with the same id.
	Upsert(ctx context.Context, userID string, msg Message) error
	History(ctx context.Context, userID, patientID string) ([]Message, error)
	ClearHistory(ctx context.Context, userID, patientID string) error
	AddQuestion(ctx context.Context, userID, question string) error
	Questions(ctx context.Context, userID string) ([]string, error)
	AddFeedback(ctx context.Context, userID string, fb Feedback) error
	Feedback(ctx context.Context, userID string) ([]Feedback, error)
}

// RedisStore persists chat state as JSON blobs and lists in Redis.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	cap    int
}

func NewRedisStore(client *redis.Client, historyCap int) *RedisStore {
	if client == nil {
		panic("chat: redis client cannot be nil")
	}
	if historyCap <= 0 {
		historyCap = defaultHistoryCap
	}
	return &RedisStore{
		redis:  client,
		tracer: otel.Tracer("clinical.internal.chat.store"),
		cap:    historyCap,
	}
}

func historyKey(userID, patientID string) string {
	return fmt.Sprintf("chat:%s:%s", userID, patientID)
}

func questionsKey(userID string) string { return fmt.Sprintf("questions:%s", userID) }

func feedbackKey(userID string) string { return fmt.Sprintf("feedback:%s", userID) }

func (s *RedisStore) Upsert(ctx context.Context, userID string, msg Message) error {
	ctx, span := s.tracer.Start(ctx, "chat.upsert_message")
	defer span.End()

	key := historyKey(userID, msg.PatientID)
	txn := func(tx *redis.Tx) error {
		history, err := decodeHistory(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		history = upsertMessage(history, msg, s.cap)
		data, err := json.Marshal(history)
		if err != nil {
			return fmt.Errorf("chat: failed to marshal history: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, historyTTL)
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < upsertAttempts; attempt++ {
		err = s.redis.Watch(ctx, txn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to persist message: %w", err)
	}
	return nil
}

func decodeHistory(data []byte, err error) ([]Message, error) {
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chat: failed to load history: %w", err)
	}
	var history []Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("chat: failed to decode history: %w", err)
	}
	return history, nil
}

func (s *RedisStore) History(ctx context.Context, userID, patientID string) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "chat.load_history")
	defer span.End()

	history, err := decodeHistory(s.redis.Get(ctx, historyKey(userID, patientID)).Bytes())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return history, nil
}

func (s *RedisStore) ClearHistory(ctx context.Context, userID, patientID string) error {
	if err := s.redis.Del(ctx, historyKey(userID, patientID)).Err(); err != nil {
		return fmt.Errorf("chat: failed to clear history: %w", err)
	}
	return nil
}

func (s *RedisStore) AddQuestion(ctx context.Context, userID, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}
	key := questionsKey(userID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, key, 0, question)
		pipe.LPush(ctx, key, question)
		pipe.LTrim(ctx, key, 0, questionHistoryCap-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("chat: failed to record question: %w", err)
	}
	return nil
}

func (s *RedisStore) Questions(ctx context.Context, userID string) ([]string, error) {
	out, err := s.redis.LRange(ctx, questionsKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("chat: failed to load questions: %w", err)
	}
	return out, nil
}

func (s *RedisStore) AddFeedback(ctx context.Context, userID string, fb Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("chat: failed to marshal feedback: %w", err)
	}
	if err := s.redis.RPush(ctx, feedbackKey(userID), data).Err(); err != nil {
		return fmt.Errorf("chat: failed to persist feedback: %w", err)
	}
	return nil
}

func (s *RedisStore) Feedback(ctx context.Context, userID string) ([]Feedback, error) {
	raw, err := s.redis.LRange(ctx, feedbackKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("chat: failed to load feedback: %w", err)
	}
	out := make([]Feedback, 0, len(raw))
	for _, item := range raw {
		var fb Feedback
		if err := json.Unmarshal([]byte(item), &fb); err != nil {
			return nil, fmt.Errorf("chat: failed to decode feedback: %w", err)
		}
		out = append(out, fb)
	}
	return out, nil
}

func upsertMessage(history []Message, msg Message, limit int) []Message {
	for i := range history {
		if history[i].ID == msg.ID {
			history[i] = msg
			return history
		}
	}
	history = append(history, msg)
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

// MemoryStore is a process local Store for development and tests.
type MemoryStore struct {
	mu        sync.Mutex
	cap       int
	histories map[string][]Message
	questions map[string][]string
	feedback  map[string][]Feedback
}

func NewMemoryStore(historyCap int) *MemoryStore {
	if historyCap <= 0 {
		historyCap = defaultHistoryCap
	}
	return &MemoryStore{
		cap:       historyCap,
		histories: make(map[string][]Message),
		questions: make(map[string][]string),
		feedback:  make(map[string][]Feedback),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, userID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := historyKey(userID, msg.PatientID)
	s.histories[key] = upsertMessage(s.histories[key], msg, s.cap)
	return nil
}

func (s *MemoryStore) History(ctx context.Context, userID, patientID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.histories[historyKey(userID, patientID)]...), nil
}

func (s *MemoryStore) ClearHistory(ctx context.Context, userID, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, historyKey(userID, patientID))
	return nil
}

func (s *MemoryStore) AddQuestion(ctx context.Context, userID, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.questions[userID]
	out := make([]string, 0, len(existing)+1)
	out = append(out, question)
	for _, q := range existing {
		if q != question {
			out = append(out, q)
		}
	}
	if len(out) > questionHistoryCap {
		out = out[:questionHistoryCap]
	}
	s.questions[userID] = out
	return nil
}

func (s *MemoryStore) Questions(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.questions[userID]...), nil
}

func (s *MemoryStore) AddFeedback(ctx context.Context, userID string, fb Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[userID] = append(s.feedback[userID], fb)
	return nil
}

func (s *MemoryStore) Feedback(ctx context.Context, userID string) ([]Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Feedback(nil), s.feedback[userID]...), nil
}
