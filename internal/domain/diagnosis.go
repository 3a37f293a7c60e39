package domain

import (
	"strings"
	"time"
)

// ProblemCategory classifies what kind of asset problem was found.
type ProblemCategory string

const (
	ProblemCategoryHardware ProblemCategory = "HARDWARE"
	ProblemCategorySoftware ProblemCategory = "SOFTWARE"
	ProblemCategoryOther    ProblemCategory = "OTHER"
)

// RepairType is the technician's chosen remediation path.
type RepairType string

const (
	RepairTypeDirect        RepairType = "DIRECT_REPAIR"
	RepairTypeNeedSparepart RepairType = "NEED_SPAREPART"
	RepairTypeNeedVendor    RepairType = "NEED_VENDOR"
	RepairTypeNeedLicense   RepairType = "NEED_LICENSE"
	RepairTypeUnrepairable  RepairType = "UNREPAIRABLE"
)

// RequiresWorkOrder reports whether the repair type spawns work orders.
func (r RepairType) RequiresWorkOrder() bool {
	switch r {
	case RepairTypeNeedSparepart, RepairTypeNeedVendor, RepairTypeNeedLicense:
		return true
	}
	return false
}

// WorkOrderType returns the work-order type implied by the repair type,
// or empty when none is implied.
func (r RepairType) WorkOrderType() WorkOrderType {
	switch r {
	case RepairTypeNeedSparepart:
		return WorkOrderTypeSparepart
	case RepairTypeNeedVendor:
		return WorkOrderTypeVendor
	case RepairTypeNeedLicense:
		return WorkOrderTypeLicense
	}
	return ""
}

// Diagnosis is the technician's structured assessment of a repair ticket.
// At most one exists per ticket; amendments bump Version in place.
type Diagnosis struct {
	ID                   string
	TicketID             string
	TechnicianID         string
	ProblemCategory      ProblemCategory
	RepairType           RepairType
	Description          string
	Reason               string
	Notes                string
	AssetConditionChange *string
	Version              int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Validate enforces the diagnosis field invariants.
func (d *Diagnosis) Validate() string {
	switch d.ProblemCategory {
	case ProblemCategoryHardware, ProblemCategorySoftware, ProblemCategoryOther:
	default:
		return "unknown problem category"
	}
	switch d.RepairType {
	case RepairTypeDirect:
		if strings.TrimSpace(d.Description) == "" {
			return "direct repair requires a repair description"
		}
	case RepairTypeUnrepairable:
		if strings.TrimSpace(d.Reason) == "" {
			return "unrepairable diagnosis requires a reason"
		}
	case RepairTypeNeedSparepart, RepairTypeNeedVendor, RepairTypeNeedLicense:
	default:
		return "unknown repair type"
	}
	return ""
}
