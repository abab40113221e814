package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func testOptions() KafkaDispatcherOptions {
	return KafkaDispatcherOptions{
		QueueSize:   16,
		Workers:     1,
		MaxInFlight: 2,
		MaxRetry:    2,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}
}

func TestKafkaDispatcher_SendsEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var evt PushCommitted
		if err := json.Unmarshal(val, &evt); err != nil {
			return err
		}
		if evt.EventType != TypePushCommitted || evt.UserID != 42 || evt.Version != 6 {
			return fmt.Errorf("unexpected event %+v", evt)
		}
		return nil
	})

	d := NewKafkaDispatcher(producer, "sync-commits", testOptions())
	err := d.Enqueue(context.Background(), PushCommitted{
		EventType: TypePushCommitted, UserID: 42, ClientGroupID: "g1", Version: 6, Applied: 1,
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	d.Close()
	if err := producer.Close(); err != nil {
		t.Fatalf("producer close: %v", err)
	}
}

func TestKafkaDispatcher_RetriesThenSucceeds(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	producer.ExpectSendMessageAndSucceed()

	d := NewKafkaDispatcher(producer, "sync-commits", testOptions())
	if err := d.Enqueue(context.Background(), PushCommitted{UserID: 1, Version: 1}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	d.Close()
	if err := producer.Close(); err != nil {
		t.Fatalf("producer close: %v", err)
	}
}

func TestKafkaDispatcher_EnqueueAfterClose(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	d := NewKafkaDispatcher(producer, "sync-commits", testOptions())
	d.Close()
	// 重复 Close 不会 panic
	d.Close()

	err := d.Enqueue(context.Background(), PushCommitted{UserID: 1})
	if !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("Enqueue() after close = %v, want ErrDispatcherClosed", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("producer close: %v", err)
	}
}

func TestKafkaDispatcher_EnqueueRespectsContext(t *testing.T) {
	// 没有 worker 在读的时候，无缓冲队列会一直阻塞
	d := &KafkaDispatcher{queue: make(chan PushCommitted), sem: NewSemaphoreControl(1)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.Enqueue(ctx, PushCommitted{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Enqueue() = %v, want deadline exceeded", err)
	}
}

func TestSemaphoreControl(t *testing.T) {
	s := NewSemaphoreControl(1)
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if err := s.Acquire(ctx); err == nil {
		t.Fatalf("second Acquire() should time out")
	}
	if err := s.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := s.Release(); err == nil {
		t.Fatalf("Release() without Acquire should fail")
	}
}
