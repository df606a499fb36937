package speech

import (
	"testing"

	"github.com/Oculis-Navigate/go-routesight"
)

// compile time check that Speaker satisfies the announcer capability
var _ routesight.Announcer = (*Speaker)(nil)

func TestSpeakerPreempts(t *testing.T) {

	// sleep gives an utterance long enough to still be running when the
	// next announcement preempts it
	s := NewSpeaker("sleep", "5")

	s.Speak("12")
	s.Speak("45")

	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()

	if cmd == nil {
		t.Fatal("expected an utterance in flight")
	}

	// the preempting utterance carries the new text as its last argument
	args := cmd.Args

	if args[len(args)-1] != "45" {
		t.Errorf("expected current utterance 45, got %q", args[len(args)-1])
	}

	s.Stop()
}

func TestSpeakerAbsorbsMissingBinary(t *testing.T) {

	s := NewSpeaker("routesight-no-such-tts-binary")

	// must not panic or block
	s.Speak("12")

	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()

	if cmd != nil {
		t.Error("expected no utterance after a failed start")
	}
}

func TestSpeakerIgnoresEmptyText(t *testing.T) {

	s := NewSpeaker("sleep", "5")

	s.Speak("")

	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()

	if cmd != nil {
		t.Error("expected no utterance for empty text")
	}

	s.Stop()
}

func TestDefaultCommand(t *testing.T) {

	binary, _ := DefaultCommand()

	if binary == "" {
		t.Error("expected a default text to speech binary")
	}
}
