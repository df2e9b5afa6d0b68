package engine

import "sort"

// Cue is one entry of the coaching schedule: once elapsed time crosses
// AfterSeconds, the text is sent to the voice agent exactly once and shown
// on screen regardless of the agent's connection state.
type Cue struct {
	AfterSeconds int    `json:"after_seconds"`
	Text         string `json:"text"`
}

// DefaultCoachingSchedule is the fixed cue list for the live teaching demo.
func DefaultCoachingSchedule() []Cue {
	return []Cue{
		{AfterSeconds: 10, Text: "Introduce yourself and name the topic you will teach."},
		{AfterSeconds: 60, Text: "State the learning goal in one sentence."},
		{AfterSeconds: 150, Text: "Work through a concrete example now."},
		{AfterSeconds: 300, Text: "Check understanding: ask your audience a question."},
		{AfterSeconds: 420, Text: "Start wrapping up: summarize the key takeaway."},
	}
}

// CoachingSchedule walks an ordered cue list against monotonically
// increasing elapsed time. Each cue fires at most once, in threshold
// order, and a reached threshold is never skipped. Not safe for
// concurrent use; callers hold the attempt lock.
type CoachingSchedule struct {
	cues []Cue
	next int
}

func NewCoachingSchedule(cues []Cue) *CoachingSchedule {
	sorted := make([]Cue, len(cues))
	copy(sorted, cues)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AfterSeconds < sorted[j].AfterSeconds
	})
	return &CoachingSchedule{cues: sorted}
}

// Due returns every not-yet-dispatched cue whose threshold has been
// reached, in increasing threshold order, and marks them dispatched.
func (s *CoachingSchedule) Due(elapsedSeconds int) []Cue {
	var out []Cue
	for s.next < len(s.cues) && s.cues[s.next].AfterSeconds <= elapsedSeconds {
		out = append(out, s.cues[s.next])
		s.next++
	}
	return out
}

// Remaining reports how many cues have not fired yet.
func (s *CoachingSchedule) Remaining() int {
	return len(s.cues) - s.next
}
