package chat

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStores(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]Store{
		"redis":  NewRedisStore(client, 3),
		"memory": NewMemoryStore(3),
	}
}

func TestStoreUpsertReplacesLiveMessage(t *testing.T) {
	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			live := NewAIMessage("p1", &MultiSpecialistReview{Status: "in_progress"})
			live.IsLive = true
			if err := store.Upsert(ctx, "u1", live); err != nil {
				t.Fatalf("upsert: %v", err)
			}

			final := live
			final.IsLive = false
			final.Content = &MultiSpecialistReview{Status: "complete", Consensus: "agree"}
			if err := store.Upsert(ctx, "u1", final); err != nil {
				t.Fatalf("upsert final: %v", err)
			}

			history, err := store.History(ctx, "u1", "p1")
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			if len(history) != 1 {
				t.Fatalf("expected one message, got %d", len(history))
			}
			review := history[0].Content.(*MultiSpecialistReview)
			if history[0].IsLive || review.Consensus != "agree" {
				t.Fatalf("expected finalized review, got %+v", history[0])
			}

			other, _ := store.History(ctx, "u1", "p2")
			if len(other) != 0 {
				t.Fatalf("expected histories to be per patient")
			}
		})
	}
}

func TestStoreHistoryIsCapped(t *testing.T) {
	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				if err := store.Upsert(ctx, "u1", TextMessage("p1", fmt.Sprintf("m%d", i))); err != nil {
					t.Fatalf("upsert: %v", err)
				}
			}
			history, _ := store.History(ctx, "u1", "p1")
			if len(history) != 3 {
				t.Fatalf("expected capped history of 3, got %d", len(history))
			}
			if got := history[0].Content.(*Text).Text; got != "m2" {
				t.Fatalf("expected oldest kept to be m2, got %s", got)
			}
			if err := store.ClearHistory(ctx, "u1", "p1"); err != nil {
				t.Fatalf("clear: %v", err)
			}
			history, _ = store.History(ctx, "u1", "p1")
			if len(history) != 0 {
				t.Fatalf("expected cleared history")
			}
		})
	}
}

func TestStoreQuestionsAreRecentFirstAndDeduplicated(t *testing.T) {
	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, q := range []string{"show ecg", "trend labs", "show ecg", "  "} {
				if err := store.AddQuestion(ctx, "u1", q); err != nil {
					t.Fatalf("add question: %v", err)
				}
			}
			got, err := store.Questions(ctx, "u1")
			if err != nil {
				t.Fatalf("questions: %v", err)
			}
			if len(got) != 2 || got[0] != "show ecg" || got[1] != "trend labs" {
				t.Fatalf("unexpected questions %v", got)
			}
		})
	}
}

func TestStoreFeedback(t *testing.T) {
	for name, store := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.AddFeedback(ctx, "u1", Feedback{MessageID: "m1", Rating: "meh"}); err == nil {
				t.Fatalf("expected invalid rating error")
			}
			if err := store.AddFeedback(ctx, "u1", Feedback{MessageID: "m1", PatientID: "p1", Rating: RatingDown, Comment: "wrong lead"}); err != nil {
				t.Fatalf("add feedback: %v", err)
			}
			got, err := store.Feedback(ctx, "u1")
			if err != nil {
				t.Fatalf("feedback: %v", err)
			}
			if len(got) != 1 || got[0].Comment != "wrong lead" || got[0].CreatedAt.IsZero() {
				t.Fatalf("unexpected feedback %+v", got)
			}
		})
	}
}
