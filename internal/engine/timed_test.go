package engine

import (
	"testing"

	"github.com/hireloop/hireloop/internal/models"
	"github.com/hireloop/hireloop/internal/stage"
	"github.com/hireloop/hireloop/internal/utils"
)

func threeQuestionDef() stage.Definition {
	return stage.Definition{
		Order:            1,
		Name:             "Subject Knowledge Assessment",
		Kind:             stage.KindTimedAssessment,
		QuestionCount:    3,
		TimeLimitSeconds: 5,
		PassingScore:     60,
	}
}

func startedAttempt(t *testing.T, qs []models.Question) *TimedAttempt {
	t.Helper()
	a := NewTimedAttempt(threeQuestionDef())
	if err := a.BeginGenerating(); err != nil {
		t.Fatal(err)
	}
	if err := a.Begin(qs); err != nil {
		t.Fatal(err)
	}
	return a
}

func questions(n int) []models.Question {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{ID: string(rune('a' + i)), Prompt: "q", Type: models.QuestionFreeText}
	}
	return qs
}

func TestTimedAttemptManualAdvance(t *testing.T) {
	a := startedAttempt(t, questions(2))

	done, err := a.Advance("first answer")
	if err != nil || done {
		t.Fatalf("Advance = (%v, %v)", done, err)
	}
	if snap := a.Snapshot(); snap.QuestionIndex != 1 || snap.RemainingSeconds != 5 {
		t.Errorf("snapshot after advance = %+v, want index 1 with reset timer", snap)
	}

	done, err = a.Advance("second answer")
	if err != nil || !done {
		t.Fatalf("final Advance = (%v, %v)", done, err)
	}
	if a.Phase() != PhaseEvaluating {
		t.Errorf("phase = %v, want evaluating", a.Phase())
	}
}

func TestTimedAttemptRejectsEmptyManualAdvance(t *testing.T) {
	a := startedAttempt(t, questions(1))

	if _, err := a.Advance("   "); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT for blank answer, got %v", err)
	}
	if snap := a.Snapshot(); snap.QuestionIndex != 0 {
		t.Errorf("blank advance must not move the question index, got %d", snap.QuestionIndex)
	}
}

// Candidate answers Q1 and Q2 normally, types a partial answer for Q3 and
// lets the timer run out. The submission is [A1, A2, "draft text"].
func TestTimedAttemptTimeoutCapturesDraft(t *testing.T) {
	a := startedAttempt(t, questions(3))

	if _, err := a.Advance("A1"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Advance("A2"); err != nil {
		t.Fatal(err)
	}
	a.SetDraft("draft text")

	var done bool
	for i := 0; i < 5; i++ {
		forced, d := a.Tick()
		if i < 4 && forced {
			t.Fatalf("tick %d forced an advance before the limit", i)
		}
		done = d
	}
	if !done {
		t.Fatal("attempt should be done after the last question timed out")
	}

	got := a.Answers()
	want := []string{"A1", "A2", "draft text"}
	if len(got) != len(want) {
		t.Fatalf("answers = %v", got)
	}
	for i := range want {
		if got[i].Text != want[i] {
			t.Errorf("answer[%d] = %q, want %q", i, got[i].Text, want[i])
		}
	}
}

func TestTimedAttemptTimeoutWithNoDraftSubmitsEmpty(t *testing.T) {
	a := startedAttempt(t, questions(1))

	for i := 0; i < 5; i++ {
		a.Tick()
	}

	answers := a.Answers()
	if len(answers) != 1 || answers[0].Text != "" {
		t.Errorf("answers = %v, want one empty submission", answers)
	}
	if a.Phase() != PhaseEvaluating {
		t.Errorf("phase = %v, want evaluating", a.Phase())
	}
}

func TestTimedAttemptTicksAfterFinishAreNoOps(t *testing.T) {
	a := startedAttempt(t, questions(1))
	if _, err := a.Advance("done"); err != nil {
		t.Fatal(err)
	}

	forced, done := a.Tick()
	if forced || !done {
		t.Errorf("Tick after finish = (%v, %v), want (false, true)", forced, done)
	}
	if len(a.Answers()) != 1 {
		t.Errorf("late tick grew the answer list: %v", a.Answers())
	}
}

func TestTimedAttemptBeginRequiresGenerating(t *testing.T) {
	a := NewTimedAttempt(threeQuestionDef())
	if err := a.Begin(questions(1)); !utils.IsCode(err, utils.CodeFailedPrecondition) {
		t.Errorf("Begin before generating: got %v", err)
	}
	if err := a.BeginGenerating(); err != nil {
		t.Fatal(err)
	}
	if err := a.BeginGenerating(); !utils.IsCode(err, utils.CodeFailedPrecondition) {
		t.Errorf("double BeginGenerating: got %v", err)
	}
}

func TestTimedAttemptCompletionStampsOnlyFromEvaluating(t *testing.T) {
	a := startedAttempt(t, questions(1))

	a.MarkCompleted()
	if a.Phase() != PhaseActive {
		t.Errorf("MarkCompleted on an active attempt changed phase to %v", a.Phase())
	}

	if _, err := a.Advance("answer"); err != nil {
		t.Fatal(err)
	}
	a.MarkCompleted()
	if a.Phase() != PhaseCompleted {
		t.Errorf("phase = %v, want completed", a.Phase())
	}
}
