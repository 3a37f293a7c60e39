package domain

import "time"

// TimelineAction identifies what happened in a timeline entry.
type TimelineAction string

const (
	ActionCreated            TimelineAction = "CREATED"
	ActionAssigned           TimelineAction = "ASSIGNED"
	ActionRejected           TimelineAction = "REJECTED"
	ActionDiagnosisSubmitted TimelineAction = "DIAGNOSIS_SUBMITTED"
	ActionStatusChanged      TimelineAction = "STATUS_CHANGED"
	ActionWorkOrderCreated   TimelineAction = "WORK_ORDER_CREATED"
	ActionWorkOrderUpdated   TimelineAction = "WORK_ORDER_UPDATED"
	ActionApproved           TimelineAction = "APPROVED"
	ActionClosed             TimelineAction = "CLOSED"
)

// RelatedStep tags a timeline entry with the workflow step it belongs to,
// so presentation never has to reconstruct progress from free text.
type RelatedStep string

const (
	StepSubmission RelatedStep = "SUBMISSION"
	StepAssignment RelatedStep = "ASSIGNMENT"
	StepDiagnosis  RelatedStep = "DIAGNOSIS"
	StepWorkOrder  RelatedStep = "WORK_ORDER"
	StepRepair     RelatedStep = "REPAIR"
	StepReview     RelatedStep = "REVIEW"
	StepClosure    RelatedStep = "CLOSURE"
)

// TimelineEntry is one record of a ticket's append-only event log.
// Entries are never mutated, deleted, or reordered.
type TimelineEntry struct {
	ID          string
	TicketID    string
	Action      TimelineAction
	ActorID     *string
	ActorRole   Role
	RelatedStep RelatedStep
	Details     map[string]any
	CreatedAt   time.Time
}
