package eventbus

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

type batchCommitted struct {
	filename string
}

func newTestLogger(buf *bytes.Buffer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(logrus.WarnLevel)
	return log
}

func TestPublisher_NoMatchingSubscribers(t *testing.T) {
	type otherEvent struct{}
	var logBuffer bytes.Buffer
	publisher := NewEventPublisher(newTestLogger(&logBuffer))
	publisher.Subscribe(func(e *batchCommitted) {
		t.Error("should not be called")
	})

	publisher.Publish(&otherEvent{})

	if output := logBuffer.String(); !strings.Contains(output, "no matching subscribers") {
		t.Errorf("expected no-subscribers warning, got: %q", output)
	}
}

func TestPublisher_Subscribe(t *testing.T) {
	var logBuffer bytes.Buffer
	publisher := NewEventPublisher(newTestLogger(&logBuffer))

	var got string
	publisher.Subscribe(func(e *batchCommitted) {
		got = e.filename
	})
	publisher.Publish(&batchCommitted{filename: "results.csv"})

	if got != "results.csv" {
		t.Errorf("expected results.csv, got %q", got)
	}
}

func TestPublisher_StringTopicWithPayload(t *testing.T) {
	var logBuffer bytes.Buffer
	publisher := NewEventPublisher(newTestLogger(&logBuffer))

	var topic string
	publisher.Subscribe(func(name string, e *batchCommitted) {
		topic = name
	})
	publisher.Publish("import.committed", &batchCommitted{filename: "students.csv"})

	if topic != "import.committed" {
		t.Errorf("expected import.committed, got %q", topic)
	}
}

func TestPublisher_PanickingHandlerIsContained(t *testing.T) {
	var logBuffer bytes.Buffer
	publisher := NewEventPublisher(newTestLogger(&logBuffer))

	publisher.Subscribe(func(e *batchCommitted) {
		panic("boom")
	})
	publisher.Publish(&batchCommitted{filename: "results.csv"})

	if output := logBuffer.String(); !strings.Contains(output, "panicked") {
		t.Errorf("expected panic to be logged, got: %q", output)
	}
}

func TestPublisher_Unsubscribe(t *testing.T) {
	var logBuffer bytes.Buffer
	publisher := NewEventPublisher(newTestLogger(&logBuffer))

	handler := func(e *batchCommitted) {
		t.Error("should not be called after unsubscribe")
	}
	publisher.Subscribe(handler)
	if publisher.SubscribersCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", publisher.SubscribersCount())
	}
	publisher.Unsubscribe(handler)
	if publisher.SubscribersCount() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", publisher.SubscribersCount())
	}
	publisher.Publish(&batchCommitted{})
}
