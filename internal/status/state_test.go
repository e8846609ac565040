package status

import (
	"testing"
	"time"

	"github.com/olekv/tgmirror/internal/bus"
)

func TestValidTransitionSequence(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{Idle, Syncing, Degraded, Syncing, Idle}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition(%s) error = %v", s, err)
		}
	}
	if m.Current() != Idle {
		t.Errorf("Current() = %s, want IDLE", m.Current())
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)

	// Booting cannot go straight to Syncing.
	if err := m.Transition(Syncing); err == nil {
		t.Error("expected error for BOOTING -> SYNCING")
	}
	if m.Current() != Booting {
		t.Errorf("state changed on invalid transition: %s", m.Current())
	}
}

func TestTransitionPublishesEvent(t *testing.T) {
	b := bus.New()
	m := NewMachine(b)

	ch, unsub := b.Subscribe("status.", 4)
	defer unsub()

	if err := m.Transition(Idle); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-ch:
		change, ok := evt.Payload.(StatusChange)
		if !ok {
			t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
		}
		if change.From != Booting || change.To != Idle {
			t.Errorf("change = %+v, want BOOTING -> IDLE", change)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status.changed event")
	}
}
