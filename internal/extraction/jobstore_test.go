package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

func TestDynamoJobStore_PutPendingPersistsDefaults(t *testing.T) {
	mock := &mockDynamo{}
	store := NewDynamoJobStore(mock, "extraction_jobs", logging.Default())

	job := &JobRecord{JobID: "rep-1", PatientID: "pat-1", ReportID: "rep-1"}
	if err := store.PutPending(context.Background(), job); err != nil {
		t.Fatalf("PutPending returned error: %v", err)
	}
	if mock.putInput == nil {
		t.Fatalf("expected PutItem to be called")
	}

	var stored JobRecord
	if err := attributevalue.UnmarshalMap(mock.putInput.Item, &stored); err != nil {
		t.Fatalf("failed to unmarshal stored job: %v", err)
	}
	if stored.Status != JobStatusPending {
		t.Fatalf("expected status pending, got %s", stored.Status)
	}
	if stored.CreatedAt == "" || stored.UpdatedAt == "" {
		t.Fatal("expected timestamps to be populated")
	}
	if stored.ExpiresAt <= time.Now().Unix() {
		t.Fatal("expected TTL to be in the future")
	}
	if expr := mock.putInput.ConditionExpression; expr == nil || *expr != "attribute_not_exists(jobId)" {
		t.Fatalf("expected condition expression to prevent overwrites, got %v", expr)
	}
}

func TestDynamoJobStore_MarkFailedUsesReservedAttributeNames(t *testing.T) {
	mock := &mockDynamo{}
	store := NewDynamoJobStore(mock, "extraction_jobs", logging.Default())

	if err := store.MarkFailed(context.Background(), "rep-1", "boom"); err != nil {
		t.Fatalf("MarkFailed returned error: %v", err)
	}
	if len(mock.updateInputs) != 1 {
		t.Fatalf("expected 1 update call, got %d", len(mock.updateInputs))
	}
	update := mock.updateInputs[0]
	if update.ExpressionAttributeNames["#status"] != "status" {
		t.Fatalf("expected #status alias, got %v", update.ExpressionAttributeNames)
	}
	status, ok := update.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS)
	if !ok || status.Value != string(JobStatusFailed) {
		t.Fatalf("expected failed status value, got %#v", update.ExpressionAttributeValues[":status"])
	}
	msg, ok := update.ExpressionAttributeValues[":error"].(*types.AttributeValueMemberS)
	if !ok || msg.Value != "boom" {
		t.Fatalf("expected error message, got %#v", update.ExpressionAttributeValues[":error"])
	}
}

func TestDynamoJobStore_UpdateMissingJob(t *testing.T) {
	mock := &mockDynamo{updateErr: &types.ConditionalCheckFailedException{}}
	store := NewDynamoJobStore(mock, "extraction_jobs", logging.Default())

	err := store.MarkCompleted(context.Background(), "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestDynamoJobStore_GetJob(t *testing.T) {
	item, err := attributevalue.MarshalMap(JobRecord{JobID: "rep-1", Status: JobStatusCompleted, PatientID: "pat-1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	store := NewDynamoJobStore(&mockDynamo{getOutput: &dynamodb.GetItemOutput{Item: item}}, "extraction_jobs", nil)

	job, err := store.GetJob(context.Background(), "rep-1")
	if err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if job.Status != JobStatusCompleted || job.PatientID != "pat-1" {
		t.Fatalf("unexpected job: %+v", job)
	}

	empty := NewDynamoJobStore(&mockDynamo{}, "extraction_jobs", nil)
	if _, err := empty.GetJob(context.Background(), "rep-2"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestMemoryJobStore_Lifecycle(t *testing.T) {
	store := NewMemoryJobStore()
	ctx := context.Background()

	if err := store.PutPending(ctx, &JobRecord{JobID: "rep-1"}); err != nil {
		t.Fatalf("PutPending: %v", err)
	}
	if err := store.PutPending(ctx, &JobRecord{JobID: "rep-1"}); err == nil {
		t.Fatal("expected duplicate job to be rejected")
	}
	if err := store.MarkCompleted(ctx, "rep-1"); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	job, err := store.GetJob(ctx, "rep-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != JobStatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if err := store.MarkFailed(ctx, "nope", "x"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

type mockDynamo struct {
	putInput     *dynamodb.PutItemInput
	putErr       error
	updateInputs []*dynamodb.UpdateItemInput
	updateErr    error
	getOutput    *dynamodb.GetItemOutput
	getErr       error
}

func (m *mockDynamo) PutItem(ctx context.Context, input *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInput = input
	return &dynamodb.PutItemOutput{}, m.putErr
}

func (m *mockDynamo) UpdateItem(ctx context.Context, input *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.updateInputs = append(m.updateInputs, input)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, input *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getOutput == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return m.getOutput, nil
}
