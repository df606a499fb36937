package routesight

// Announcer is the capability that voices a winning route identifier.
// Speak must return without blocking and must preempt any utterance still
// in flight, so the most recent announcement always wins the speaker.
type Announcer interface {
	Speak(text string)
}

// Silent is an Announcer that discards all announcements.  Useful for
// headless runs and tests.
type Silent struct{}

// Speak discards the text
func (Silent) Speak(text string) {}
