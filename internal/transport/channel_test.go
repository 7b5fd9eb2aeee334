package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/san-kum/pitchctl/internal/control"
)

func TestChannelRoundTrip(t *testing.T) {
	ch := NewChannel()
	ctx := context.Background()

	want := AttitudeMsg{control.AttitudeSample{Pitch: 0.1}}
	if err := ch.Send(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := ch.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if got.Topic() != TopicAttitude {
		t.Errorf("unexpected topic %s", got.Topic())
	}
}

func TestChannelKeepsLatestCommands(t *testing.T) {
	ch := NewChannel()
	for pwm := 1; pwm <= QueueDepth+5; pwm++ {
		if err := ch.Publish(context.Background(), pwm); err != nil {
			t.Fatal(err)
		}
	}

	if n := len(ch.Commands()); n != QueueDepth {
		t.Fatalf("expected %d buffered commands, got %d", QueueDepth, n)
	}
	if first := <-ch.Commands(); first != 6 {
		t.Errorf("expected oldest commands dropped, first is %d", first)
	}
}

func TestChannelReceiveHonorsContext(t *testing.T) {
	ch := NewChannel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := ch.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestChannelClosed(t *testing.T) {
	ch := NewChannel()
	ch.Close()
	ch.Close()

	if _, err := ch.Receive(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Receive, got %v", err)
	}
	if err := ch.Publish(context.Background(), 1500); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Publish, got %v", err)
	}
	if err := ch.Send(context.Background(), TargetMsg{}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Send, got %v", err)
	}
}

func TestLogSinkCounts(t *testing.T) {
	s := NewLogSink()
	for _, pwm := range []int{1500, 1500, 1480} {
		if err := s.Publish(context.Background(), pwm); err != nil {
			t.Fatal(err)
		}
	}
	if s.Published() != 3 {
		t.Errorf("expected 3 published, got %d", s.Published())
	}
}
