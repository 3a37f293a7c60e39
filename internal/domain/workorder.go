package domain

import "time"

// WorkOrderType identifies the kind of sub-request spawned by a diagnosis.
type WorkOrderType string

const (
	WorkOrderTypeSparepart WorkOrderType = "SPAREPART"
	WorkOrderTypeVendor    WorkOrderType = "VENDOR"
	WorkOrderTypeLicense   WorkOrderType = "LICENSE"
)

// WorkOrderStatus enumerates the delivery lifecycle of a work order.
type WorkOrderStatus string

const (
	WorkOrderStatusRequested WorkOrderStatus = "REQUESTED"
	WorkOrderStatusOrdered   WorkOrderStatus = "ORDERED"
	WorkOrderStatusDelivered WorkOrderStatus = "DELIVERED"
	WorkOrderStatusCompleted WorkOrderStatus = "COMPLETED"
	WorkOrderStatusFailed    WorkOrderStatus = "FAILED"
	WorkOrderStatusCancelled WorkOrderStatus = "CANCELLED"
)

// Terminal reports whether the work order no longer blocks ticket completion.
func (s WorkOrderStatus) Terminal() bool {
	switch s {
	case WorkOrderStatusDelivered, WorkOrderStatusCompleted, WorkOrderStatusFailed, WorkOrderStatusCancelled:
		return true
	}
	return false
}

var workOrderTransitions = map[WorkOrderStatus][]WorkOrderStatus{
	WorkOrderStatusRequested: {WorkOrderStatusOrdered, WorkOrderStatusDelivered, WorkOrderStatusFailed, WorkOrderStatusCancelled},
	WorkOrderStatusOrdered:   {WorkOrderStatusDelivered, WorkOrderStatusFailed, WorkOrderStatusCancelled},
	WorkOrderStatusDelivered: {WorkOrderStatusCompleted},
	WorkOrderStatusCompleted: {},
	WorkOrderStatusFailed:    {},
	WorkOrderStatusCancelled: {},
}

// WorkOrderTransitionValid reports whether a work order may move between statuses.
func WorkOrderTransitionValid(from, to WorkOrderStatus) bool {
	for _, candidate := range workOrderTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// WorkOrder is a procurement/vendor/license sub-request tied to a repair ticket.
type WorkOrder struct {
	ID        string
	TicketID  string
	Type      WorkOrderType
	Status    WorkOrderStatus
	Details   string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}
