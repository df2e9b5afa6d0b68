package stage

// Kind is the closed set of stage types in the interview pipeline. The
// engine dispatches on Kind, never on free-form strings, so an unhandled
// stage type is a compile-time concern rather than a runtime one.
type Kind int

const (
	KindInformational Kind = iota
	KindTimedAssessment
	KindSlotBooking
	KindLiveDemo
	KindFeedbackReview
	KindDocumentReview
	KindSummary
)

func (k Kind) String() string {
	switch k {
	case KindInformational:
		return "informational"
	case KindTimedAssessment:
		return "timed_assessment"
	case KindSlotBooking:
		return "slot_booking"
	case KindLiveDemo:
		return "live_demo"
	case KindFeedbackReview:
		return "feedback_review"
	case KindDocumentReview:
		return "document_review"
	case KindSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// View names the interaction surface a stage renders.
type View string

const (
	ViewGuidance View = "guidance"  // static instructions + acknowledge
	ViewTimedQA  View = "timed_qa"  // timed question/answer sub-flow
	ViewSlotForm View = "slot_form" // booking form, no AI evaluation
	ViewLiveDemo View = "live_demo" // recording + broadcast + voice agent
	ViewReadOnly View = "read_only" // stored results, manual continue
	ViewSummary  View = "summary"   // terminal aggregation
)

// ViewFor maps a stage kind to the view the engine renders for it.
func ViewFor(k Kind) View {
	switch k {
	case KindTimedAssessment:
		return ViewTimedQA
	case KindSlotBooking:
		return ViewSlotForm
	case KindLiveDemo:
		return ViewLiveDemo
	case KindFeedbackReview, KindDocumentReview:
		return ViewReadOnly
	case KindSummary:
		return ViewSummary
	default:
		return ViewGuidance
	}
}

// Interactive reports whether the stage opens media devices.
func (k Kind) Interactive() bool {
	return k == KindTimedAssessment || k == KindLiveDemo
}

// Evaluated reports whether completing the stage calls the evaluation oracle.
func (k Kind) Evaluated() bool {
	return k == KindTimedAssessment || k == KindLiveDemo
}

// Definition is one entry of the static stage catalog. Immutable at runtime.
type Definition struct {
	Order       int    `json:"order"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        Kind   `json:"-"`
	KindLabel   string `json:"kind"`

	QuestionCount    int `json:"question_count,omitempty"`
	TimeLimitSeconds int `json:"time_limit_seconds,omitempty"` // per question
	PassingScore     int `json:"passing_score,omitempty"`

	// MinDurationSeconds gates the "end" action for live-demo stages.
	MinDurationSeconds int `json:"min_duration_seconds,omitempty"`

	RequiresSlotBooking bool `json:"requires_slot_booking,omitempty"`

	// AutoProgress suppresses the next-stage notification on completion.
	AutoProgress bool `json:"auto_progress,omitempty"`

	// ReviewStageOrder points a review stage at the prior stage whose
	// persisted result it displays.
	ReviewStageOrder int `json:"review_stage_order,omitempty"`

	// DetailedForm marks the slot-booking variant with the larger
	// location/role form.
	DetailedForm bool `json:"detailed_form,omitempty"`
}

// Catalog is the ordered, contiguous stage sequence (1..N).
type Catalog struct {
	defs []Definition
}

// NewCatalog validates ordering and returns a catalog. Orders must be
// contiguous starting at 1.
func NewCatalog(defs []Definition) *Catalog {
	for i := range defs {
		if defs[i].Order != i+1 {
			panic("stage: catalog orders must be contiguous starting at 1")
		}
		defs[i].KindLabel = defs[i].Kind.String()
	}
	return &Catalog{defs: defs}
}

func (c *Catalog) Len() int { return len(c.defs) }

// Get returns the definition for the given order.
func (c *Catalog) Get(order int) (Definition, bool) {
	if order < 1 || order > len(c.defs) {
		return Definition{}, false
	}
	return c.defs[order-1], true
}

// Next returns the definition following the given order, if any.
func (c *Catalog) Next(order int) (Definition, bool) {
	return c.Get(order + 1)
}

// All returns the full sequence in order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Default returns the fixed tutor-recruitment interview sequence.
func Default() *Catalog {
	return NewCatalog([]Definition{
		{
			Order:       1,
			Name:        "Welcome & Process Overview",
			Description: "What to expect across the interview stages and how evaluation works.",
			Kind:        KindInformational,
		},
		{
			Order:            2,
			Name:             "Subject Knowledge Assessment",
			Description:      "Timed questions on your subject area, recorded for review.",
			Kind:             KindTimedAssessment,
			QuestionCount:    5,
			TimeLimitSeconds: 120,
			PassingScore:     60,
		},
		{
			Order:               3,
			Name:                "Demo Slot Booking",
			Description:         "Pick a date and time for your live teaching demo.",
			Kind:                KindSlotBooking,
			RequiresSlotBooking: true,
			AutoProgress:        true,
		},
		{
			Order:              4,
			Name:               "Live Teaching Demo",
			Description:        "A recorded live demo with a voice coach and optional audience.",
			Kind:               KindLiveDemo,
			QuestionCount:      0,
			PassingScore:       60,
			MinDurationSeconds: 30,
		},
		{
			Order:            5,
			Name:             "Demo Feedback Review",
			Description:      "Review your demo score and the coach's written feedback.",
			Kind:             KindFeedbackReview,
			ReviewStageOrder: 4,
		},
		{
			Order:               6,
			Name:                "HR Discussion Scheduling",
			Description:         "Schedule your HR discussion and confirm location and role details.",
			Kind:                KindSlotBooking,
			RequiresSlotBooking: true,
			AutoProgress:        true,
			DetailedForm:        true,
		},
		{
			Order:       7,
			Name:        "Document & HR Review",
			Description: "HR reviews your documents; results appear here when ready.",
			Kind:        KindDocumentReview,
		},
		{
			Order:       8,
			Name:        "Final Summary",
			Description: "All stage outcomes in one place.",
			Kind:        KindSummary,
		},
	})
}
