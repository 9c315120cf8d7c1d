package main

import (
	"errors"
	"strings"
	"testing"

	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/kailas-cloud/docfeed/internal/config"
)

// --- queue tests ---

type fakeBroker struct {
	queue      amqp091.Queue
	passiveErr error
	declareErr error

	declares int
	deletes  int
	purges   int
	dropped  int
	purged   int
}

func (f *fakeBroker) QueueDeclare(name string, durable, _, _, _ bool, _ amqp091.Table) (amqp091.Queue, error) {
	if f.declareErr != nil {
		return amqp091.Queue{}, f.declareErr
	}
	f.declares++
	if !durable {
		return amqp091.Queue{}, errors.New("expected durable declare")
	}
	q := f.queue
	q.Name = name
	return q, nil
}

func (f *fakeBroker) QueueDeclarePassive(name string, _, _, _, _ bool, _ amqp091.Table) (amqp091.Queue, error) {
	if f.passiveErr != nil {
		return amqp091.Queue{}, f.passiveErr
	}
	q := f.queue
	q.Name = name
	return q, nil
}

func (f *fakeBroker) QueueDelete(string, bool, bool, bool) (int, error) {
	f.deletes++
	return f.dropped, nil
}

func (f *fakeBroker) QueuePurge(string, bool) (int, error) {
	f.purges++
	return f.purged, nil
}

func stubBroker(t *testing.T, fake *fakeBroker) *bool {
	t.Helper()
	closed := false
	orig := openBroker
	openBroker = func(config.Config) (brokerChannel, func(), error) {
		return fake, func() { closed = true }, nil
	}
	t.Cleanup(func() { openBroker = orig })
	return &closed
}

func TestQueueStatus(t *testing.T) {
	stubConfig(t)
	fake := &fakeBroker{queue: amqp091.Queue{Messages: 7, Consumers: 1}}
	closed := stubBroker(t, fake)

	out, err := execute(t, "queue", "status")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "embedding_tasks") {
		t.Errorf("output %q does not name the queue", out)
	}
	if !strings.Contains(out, "7") || !strings.Contains(out, "Consumers: 1") {
		t.Errorf("output %q missing counters", out)
	}
	if !*closed {
		t.Error("broker session not closed")
	}
}

func TestQueueStatus_Missing(t *testing.T) {
	stubConfig(t)
	fake := &fakeBroker{passiveErr: errors.New("NOT_FOUND")}
	stubBroker(t, fake)

	if _, err := execute(t, "queue", "status"); err == nil {
		t.Fatal("expected error for missing queue")
	}
}

func TestQueueDeclare(t *testing.T) {
	stubConfig(t)
	fake := &fakeBroker{}
	stubBroker(t, fake)

	out, err := execute(t, "queue", "declare")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if fake.declares != 1 {
		t.Errorf("declares = %d, want 1", fake.declares)
	}
	if !strings.Contains(out, "declared") {
		t.Errorf("output = %q", out)
	}
}

func TestQueueDelete(t *testing.T) {
	stubConfig(t)
	fake := &fakeBroker{dropped: 3}
	stubBroker(t, fake)

	out, err := execute(t, "queue", "delete")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if fake.deletes != 1 {
		t.Errorf("deletes = %d, want 1", fake.deletes)
	}
	if !strings.Contains(out, "3 pending messages dropped") {
		t.Errorf("output = %q", out)
	}
}

func TestQueuePurge(t *testing.T) {
	stubConfig(t)
	fake := &fakeBroker{purged: 5}
	stubBroker(t, fake)

	out, err := execute(t, "queue", "purge")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if fake.purges != 1 {
		t.Errorf("purges = %d, want 1", fake.purges)
	}
	if !strings.Contains(out, "Purged 5 messages") {
		t.Errorf("output = %q", out)
	}
}

func TestQueue_BrokerUnreachable(t *testing.T) {
	stubConfig(t)
	orig := openBroker
	openBroker = func(config.Config) (brokerChannel, func(), error) {
		return nil, nil, errors.New("dial tcp: refused")
	}
	t.Cleanup(func() { openBroker = orig })

	if _, err := execute(t, "queue", "status"); err == nil {
		t.Fatal("expected connection error to propagate")
	}
}
