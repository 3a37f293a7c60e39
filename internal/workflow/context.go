package workflow

import "github.com/servicedesk-io/helpdesk-service/internal/domain"

// TransitionContext carries everything a transition validator may need,
// passed by value into each state-machine operation. Services load the
// stateful facts (diagnosis, work orders) before consulting the table so
// validators stay pure.
type TransitionContext struct {
	TicketID   string
	ActorID    string
	ActiveRole domain.Role

	// Relationship of the actor to the ticket.
	IsCreator  bool
	IsAssignee bool

	// Request extras.
	Reason     string
	AssigneeID string
	Confirmed  bool

	// Preloaded diagnosis/work-order facts for repair tickets.
	DiagnosisExists    bool
	DiagnosisRepair    domain.RepairType
	WorkOrdersTerminal bool
}
