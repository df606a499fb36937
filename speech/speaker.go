// Package speech provides the announcement sink that voices route
// identifiers through a text to speech program.
package speech

import (
	"os/exec"
	"runtime"
	"sync"
)

// Speaker announces route identifiers by shelling out to a text to speech
// binary.  Each announcement preempts the one still playing, so the most
// recent route identifier always wins the speaker.  Speak never blocks on
// speech completion and a missing or failing binary is absorbed silently,
// an announcement is best effort and never fatal to the pipeline.
type Speaker struct {
	binary string
	args   []string

	mu sync.Mutex
	// cmd is the utterance currently playing, nil when idle
	cmd *exec.Cmd
}

// NewSpeaker returns a speaker using the given text to speech binary and
// leading arguments.  The spoken text is appended as the final argument.
// An empty binary selects the platform default.
func NewSpeaker(binary string, args ...string) *Speaker {

	if binary == "" {
		binary, args = DefaultCommand()
	}

	return &Speaker{
		binary: binary,
		args:   args,
	}
}

// DefaultCommand returns the stock text to speech command for the host
// platform
func DefaultCommand() (string, []string) {

	if runtime.GOOS == "darwin" {
		return "say", nil
	}

	return "espeak-ng", nil
}

// Speak starts voicing the text, cutting off any utterance still in
// progress.  It returns as soon as the new utterance has been started.
func (s *Speaker) Speak(text string) {

	if text == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.interrupt()

	cmd := exec.Command(s.binary, append(s.args, text)...)

	if err := cmd.Start(); err != nil {
		// no speech output available, the announcement is dropped
		return
	}

	s.cmd = cmd

	// reap the process once the utterance finishes or is killed
	go func() {
		_ = cmd.Wait()
	}()
}

// Stop cuts off the current utterance, if any
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interrupt()
}

// interrupt kills the in flight utterance.  Caller must hold the mutex.
func (s *Speaker) interrupt() {

	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}

	s.cmd = nil
}
