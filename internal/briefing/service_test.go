package briefing

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
)

var fixedNow = time.Date(2024, 5, 6, 7, 30, 0, 0, time.UTC)

func briefingPatients() []clinical.Patient {
	return []clinical.Patient{
		{ID: "p1", Name: "Margaret Chen", Age: 78, CurrentStatus: clinical.CurrentStatus{Condition: "HFrEF"}, CriticalAlerts: []string{"K 5.6"}},
		{ID: "p2", Name: "Robert Alvarez", Age: 64, CurrentStatus: clinical.CurrentStatus{Condition: "CAD"}},
	}
}

type countingClient struct {
	calls int
	reply string
	err   error
}

func (c *countingClient) Complete(context.Context, llm.Request) (llm.Response, error) {
	c.calls++
	if c.err != nil {
		return llm.Response{}, c.err
	}
	return llm.Response{Text: c.reply}, nil
}

const briefingJSON = `{"overview":"Two patients need review.","items":[{"patientId":"p1","priority":"high","summary":"Hyperkalemia."},{"patientId":"ghost","priority":"low","summary":"Unknown."}]}`

func TestGetGeneratesAndCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client := &countingClient{reply: briefingJSON}
	svc := NewService(client, NewRedisCache(rdb), WithClock(func() time.Time { return fixedNow }))

	msg, err := svc.Get(context.Background(), "u1", briefingPatients(), clinical.DefaultSettings())
	require.NoError(t, err)
	require.Equal(t, chat.TypeDailyBriefing, msg.Type())

	content, ok := msg.Content.(*chat.DailyBriefing)
	require.True(t, ok)
	assert.Equal(t, "2024-05-06", content.Date)
	assert.Equal(t, "Two patients need review.", content.Overview)
	require.Len(t, content.Items, 1)
	assert.Equal(t, "Margaret Chen", content.Items[0].PatientName)

	assert.True(t, mr.Exists("briefing:u1:2024-05-06"))
	ttl := mr.TTL("briefing:u1:2024-05-06")
	assert.Equal(t, 36*time.Hour, ttl)

	again, err := svc.Get(context.Background(), "u1", briefingPatients(), clinical.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, msg.ID, again.ID)
	assert.Equal(t, 1, client.calls)
}

func TestGetWithoutPatientsSkipsModel(t *testing.T) {
	client := &countingClient{}
	svc := NewService(client, nil, WithClock(func() time.Time { return fixedNow }))

	msg, err := svc.Get(context.Background(), "u1", nil, clinical.DefaultSettings())
	require.NoError(t, err)
	content := msg.Content.(*chat.DailyBriefing)
	assert.Equal(t, noPatientsText, content.Overview)
	assert.Empty(t, content.Items)
	assert.Zero(t, client.calls)
}

func TestGetPropagatesModelFailure(t *testing.T) {
	client := &countingClient{err: errors.New("upstream down")}
	svc := NewService(client, NewMemoryCache())

	_, err := svc.Get(context.Background(), "u1", briefingPatients(), clinical.DefaultSettings())
	require.Error(t, err)

	_, ok, _ := svc.cache.Load(context.Background(), "u1", time.Now().UTC().Format(dateLayout))
	assert.False(t, ok, "failures must not be cached")
}

func TestGetArchivesBriefing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectExec("INSERT INTO daily_briefings").
		WithArgs("u1", "2024-05-06", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	svc := NewService(&countingClient{reply: briefingJSON}, NewMemoryCache(),
		WithClock(func() time.Time { return fixedNow }),
		WithArchive(newArchiveWithExec(mock)))

	_, err = svc.Get(context.Background(), "u1", briefingPatients(), clinical.DefaultSettings())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
