package modal

type Status string

const (
	StatusPending        Status = "pending"
	StatusEnriching      Status = "enriching"
	StatusDrafting       Status = "drafting"
	StatusAwaitingReview Status = "awaiting_review"
	StatusDecided        Status = "decided"
	StatusFailed         Status = "failed"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{
	StatusPending,
	StatusEnriching,
	StatusDrafting,
	StatusAwaitingReview,
	StatusDecided,
	StatusFailed,
}

// Terminal reports whether the pipeline has nothing left to do for the contact.
func (s Status) Terminal() bool {
	return s == StatusDecided || s == StatusFailed
}

// Schedulable reports whether Advance should run a stage for the contact.
func (s Status) Schedulable() bool {
	return s == StatusPending || s == StatusEnriching || s == StatusDrafting
}

type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeEdited   Outcome = "edited"
	OutcomeRejected Outcome = "rejected"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeApproved, OutcomeEdited, OutcomeRejected:
		return true
	}
	return false
}

type Generator string

const (
	GeneratorAI       Generator = "ai"
	GeneratorTemplate Generator = "template"
)

type Response string

const (
	ResponseReplied Response = "replied"
	ResponseMeeting Response = "meeting"
	ResponseNone    Response = "none"
)

func (r Response) Valid() bool {
	switch r {
	case ResponseReplied, ResponseMeeting, ResponseNone:
		return true
	}
	return false
}

type Warmth string

const (
	WarmthCold     Warmth = "cold"
	WarmthWarm     Warmth = "warm"
	WarmthExisting Warmth = "existing"
)

type Style string

const (
	StyleProfessionalFriendly Style = "professional_friendly"
	StyleBriefDirect          Style = "brief_direct"
	StyleCasualConversational Style = "casual_conversational"
)

// DefaultStyles is the candidate set when configuration does not name one.
var DefaultStyles = []Style{
	StyleProfessionalFriendly,
	StyleBriefDirect,
	StyleCasualConversational,
}

type Goal string

const (
	GoalFirstMeeting Goal = "first_meeting"
	GoalDemo         Goal = "demo"
	GoalReengagement Goal = "reengagement"
	GoalPartnership  Goal = "partnership"
	GoalFollowup     Goal = "followup"
)

func (g Goal) Valid() bool {
	switch g {
	case GoalFirstMeeting, GoalDemo, GoalReengagement, GoalPartnership, GoalFollowup:
		return true
	}
	return false
}

type Length string

const (
	LengthConcise  Length = "concise"
	LengthMedium   Length = "medium"
	LengthDetailed Length = "detailed"
)

type Seniority string

const (
	SeniorityCLevel                Seniority = "c_level"
	SeniorityVPDirector            Seniority = "vp_director"
	SeniorityManager               Seniority = "manager"
	SeniorityIndividualContributor Seniority = "individual_contributor"
)
