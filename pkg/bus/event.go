// Package bus implements the in-process typed publish/subscribe substrate
// that every agent, communication pattern, and workflow stage communicates
// over.
package bus

import "time"

// EventType identifies the concrete payload carried by an Event.
type EventType string

const (
	EventTypeTaskAssignment       EventType = "task_assignment"
	EventTypeTaskResult           EventType = "task_result"
	EventTypeCognitiveStep        EventType = "cognitive_step"
	EventTypeDebateArgument       EventType = "debate_argument"
	EventTypeFeedback             EventType = "feedback"
	EventTypeRevision             EventType = "revision"
	EventTypeAnalysis             EventType = "analysis"
	EventTypeSynthesis            EventType = "synthesis"
	EventTypeWorkflowStatus       EventType = "workflow_status"
	EventTypeAssessmentPlan       EventType = "assessment_plan"
	EventTypeAssessmentStage      EventType = "assessment_stage"
	EventTypeExploitVerification  EventType = "exploit_verification"
	EventTypeRemediationPlan      EventType = "remediation_plan"
	EventTypePolicyEvaluation     EventType = "policy_evaluation"
	EventTypePolicyRecommendation EventType = "policy_recommendation"
)

// Broadcast is the reserved receiver id meaning "deliver to every subscriber
// of this event type regardless of owning agent id".
const Broadcast = "all"

// Payload is implemented by every concrete event variant. It is a tagged
// sum type: the envelope carries sender/receiver/metadata, and each variant
// supplies its own EventType via Type() rather than Payload being a subclass
// of Event. Subscribers filter by this tag, never by Go type assertion on
// the envelope itself.
type Payload interface {
	Type() EventType
}

// Event is the shared envelope for every inter-agent message.
type Event struct {
	SenderID   string
	ReceiverID string // "" = unaddressed, Broadcast = "all"
	Timestamp  time.Time
	Metadata   map[string]any
	Payload    Payload
}

// Type returns the event's variant tag, delegating to its payload.
func (e Event) Type() EventType { return e.Payload.Type() }

// TaskAssignment is delivered when an agent is handed a unit of work.
type TaskAssignment struct {
	TaskID      string
	TaskType    string
	Description string
	Parameters  map[string]any
	Priority    int
}

func (TaskAssignment) Type() EventType { return EventTypeTaskAssignment }

// TaskResult reports the outcome of a previously assigned task.
type TaskResult struct {
	TaskID string
	Status string
	Result any
}

func (TaskResult) Type() EventType { return EventTypeTaskResult }

// CognitiveStep is one step of a Chain-of-Thought run.
type CognitiveStep struct {
	ChainID      string
	StepNumber   int
	Reasoning    string
	Context      map[string]any
	IsConclusion bool
}

func (CognitiveStep) Type() EventType { return EventTypeCognitiveStep }

// DebateRole identifies a participant's role within a Debate run.
type DebateRole string

const (
	DebateRoleProponent DebateRole = "proponent"
	DebateRoleOpponent  DebateRole = "opponent"
	DebateRoleMediator  DebateRole = "mediator"
	DebateRoleSummarizer DebateRole = "summarizer"
)

// DebateArgument is one role's contribution to one round of a debate.
type DebateArgument struct {
	DebateID    string
	RoundNumber int
	Role        DebateRole
	Argument    string
	Evidence    []string
}

func (DebateArgument) Type() EventType { return EventTypeDebateArgument }

// FeedbackType classifies a Feedback event's intent.
type FeedbackType string

const (
	FeedbackTypeCorrection     FeedbackType = "correction"
	FeedbackTypeSuggestion     FeedbackType = "suggestion"
	FeedbackTypeQuestion       FeedbackType = "question"
	FeedbackTypeClarification  FeedbackType = "clarification"
	FeedbackTypeImprovement    FeedbackType = "improvement"
)

// Feedback is a reviewer's critique of content within a Feedback Loop run.
type Feedback struct {
	LoopID           string
	Iteration        int
	FeedbackType     FeedbackType
	ContentReference string
	Content          string
}

func (Feedback) Type() EventType { return EventTypeFeedback }

// Revision is a creator's response to Feedback within a Feedback Loop run.
type Revision struct {
	LoopID        string
	Iteration     int
	RevisedContent string
	ChangesMade   []string
}

func (Revision) Type() EventType { return EventTypeRevision }

// Analysis is one analyst's independent contribution to a Parallel
// Reasoning run.
type Analysis struct {
	ReasoningID string
	Reasoning   string
	Conclusion  string
	Evidence    []string
	Confidence  float64
	Priority    int
}

func (Analysis) Type() EventType { return EventTypeAnalysis }

// Synthesis is the coordinator's fused conclusion for a Parallel Reasoning
// run.
type Synthesis struct {
	ReasoningID        string
	Synthesis          string
	FinalConclusion    string
	SupportingAnalyses []string
	Confidence         float64
}

func (Synthesis) Type() EventType { return EventTypeSynthesis }

// WorkflowStatus reports a workflow's progress or terminal state.
type WorkflowStatus struct {
	WorkflowID   string
	WorkflowType string
	Status       string
	Progress     float64
	Results      map[string]any
}

func (WorkflowStatus) Type() EventType { return EventTypeWorkflowStatus }

// AssessmentPlan is GuidedAssessment's top-level plan record.
type AssessmentPlan struct {
	AssessmentID string
	RepoID       string
	Stages       []string
}

func (AssessmentPlan) Type() EventType { return EventTypeAssessmentPlan }

// AssessmentStage reports a GuidedAssessment stage transition.
type AssessmentStage struct {
	AssessmentID string
	Stage        string
	Status       string
}

func (AssessmentStage) Type() EventType { return EventTypeAssessmentStage }

// ExploitVerification carries an ExploitationVerification agent's verdict.
type ExploitVerification struct {
	FindingID  string
	Status     string
	Confidence float64
}

func (ExploitVerification) Type() EventType { return EventTypeExploitVerification }

// RemediationPlan carries a RemediationPlanning agent's plan.
type RemediationPlan struct {
	FindingID string
	Priority  string
	Complexity string
}

func (RemediationPlan) Type() EventType { return EventTypeRemediationPlan }

// PolicyEvaluation carries a SecurityPolicy agent's compliance verdict.
type PolicyEvaluation struct {
	TargetID         string
	ComplianceStatus string
}

func (PolicyEvaluation) Type() EventType { return EventTypePolicyEvaluation }

// PolicyRecommendation carries a SecurityPolicy agent's recommendation.
type PolicyRecommendation struct {
	TargetID string
	Text     string
}

func (PolicyRecommendation) Type() EventType { return EventTypePolicyRecommendation }
