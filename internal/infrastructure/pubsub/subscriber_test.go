package pubsub

import (
	"testing"
)

func TestStop_BeforeStartIsNoOp(t *testing.T) {
	s := NewSubscriber(nil, nil, []string{"user_registration"}, nil)

	if got := s.State(); got != StateStopped {
		t.Fatalf("expected initial state stopped, got %s", got)
	}

	// No connection exists yet; Stop must not touch one.
	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.State(); got != StateStopped {
		t.Fatalf("expected state stopped after no-op stop, got %s", got)
	}

	// Second call is equally harmless.
	if err := s.Stop(); err != nil {
		t.Fatalf("unexpected error on repeated stop: %v", err)
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateStopped:   "stopped",
		StateStarting:  "starting",
		StateListening: "listening",
		StateStopping:  "stopping",
	}
	for st, want := range cases {
		if st.String() != want {
			t.Fatalf("expected %q, got %q", want, st.String())
		}
	}
}
