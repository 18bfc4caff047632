// Package session tracks in-flight agent operations and provider quota state
// for the clinician UI.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	StatusRunning = "running"
	StatusStopped = "stopped"
)

var (
	// ErrOperationInProgress is returned by Begin while the patient already has a running operation.
	ErrOperationInProgress = errors.New("session: an operation is already running for this patient")
	ErrNoActiveOperation   = errors.New("session: no active operation")
)

// ActiveOperation is the client-facing snapshot of a running operation.
type ActiveOperation struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patientId"`
	Query     string    `json:"query"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}

// Operation is a handle on one running query. Stopped closes when the user
// asks the operation to stop.
type Operation struct {
	id        string
	userID    string
	patientID string
	query     string
	startedAt time.Time

	mu     sync.Mutex
	status string
	stop   chan struct{}
	once   sync.Once
}

func (op *Operation) ID() string { return op.id }

func (op *Operation) Stopped() <-chan struct{} { return op.stop }

func (op *Operation) requestStop() {
	op.once.Do(func() {
		op.mu.Lock()
		op.status = StatusStopped
		op.mu.Unlock()
		close(op.stop)
	})
}

func (op *Operation) snapshot() ActiveOperation {
	op.mu.Lock()
	defer op.mu.Unlock()
	return ActiveOperation{
		ID:        op.id,
		PatientID: op.patientID,
		Query:     op.query,
		Status:    op.status,
		StartedAt: op.startedAt,
	}
}

type opKey struct {
	userID    string
	patientID string
}

// Operations allows one running operation per user and patient.
type Operations struct {
	mu  sync.Mutex
	ops map[opKey]*Operation
	now func() time.Time
}

func NewOperations() *Operations {
	return &Operations{ops: make(map[opKey]*Operation), now: time.Now}
}

func (o *Operations) Begin(userID, patientID, query string) (*Operation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := opKey{userID: userID, patientID: patientID}
	if _, busy := o.ops[key]; busy {
		return nil, ErrOperationInProgress
	}
	op := &Operation{
		id:        uuid.NewString(),
		userID:    userID,
		patientID: patientID,
		query:     query,
		startedAt: o.now().UTC(),
		status:    StatusRunning,
		stop:      make(chan struct{}),
	}
	o.ops[key] = op
	return op, nil
}

// Stop signals the running operation for the patient. The operation stays
// listed until Finish.
func (o *Operations) Stop(userID, patientID string) (ActiveOperation, error) {
	o.mu.Lock()
	op, ok := o.ops[opKey{userID: userID, patientID: patientID}]
	o.mu.Unlock()
	if !ok {
		return ActiveOperation{}, ErrNoActiveOperation
	}
	op.requestStop()
	return op.snapshot(), nil
}

// Finish releases the slot held by op.
func (o *Operations) Finish(op *Operation) {
	if op == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	key := opKey{userID: op.userID, patientID: op.patientID}
	if current, ok := o.ops[key]; ok && current == op {
		delete(o.ops, key)
	}
}

func (o *Operations) List(userID string) []ActiveOperation {
	o.mu.Lock()
	ops := make([]*Operation, 0, len(o.ops))
	for key, op := range o.ops {
		if key.userID == userID {
			ops = append(ops, op)
		}
	}
	o.mu.Unlock()

	out := make([]ActiveOperation, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}
