package domain

import "testing"

func TestDiagnosisValidate(t *testing.T) {
	cases := []struct {
		name string
		d    Diagnosis
		ok   bool
	}{
		{"direct with description", Diagnosis{ProblemCategory: ProblemCategoryHardware, RepairType: RepairTypeDirect, Description: "reseated RAM"}, true},
		{"direct without description", Diagnosis{ProblemCategory: ProblemCategoryHardware, RepairType: RepairTypeDirect}, false},
		{"unrepairable with reason", Diagnosis{ProblemCategory: ProblemCategoryOther, RepairType: RepairTypeUnrepairable, Reason: "water damage"}, true},
		{"unrepairable without reason", Diagnosis{ProblemCategory: ProblemCategoryOther, RepairType: RepairTypeUnrepairable}, false},
		{"sparepart needs nothing extra", Diagnosis{ProblemCategory: ProblemCategoryHardware, RepairType: RepairTypeNeedSparepart}, true},
		{"vendor needs nothing extra", Diagnosis{ProblemCategory: ProblemCategorySoftware, RepairType: RepairTypeNeedVendor}, true},
		{"license needs nothing extra", Diagnosis{ProblemCategory: ProblemCategorySoftware, RepairType: RepairTypeNeedLicense}, true},
		{"unknown category", Diagnosis{ProblemCategory: "NETWORK", RepairType: RepairTypeDirect, Description: "x"}, false},
		{"unknown repair type", Diagnosis{ProblemCategory: ProblemCategoryHardware, RepairType: "MAGIC"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason := tc.d.Validate()
			if (reason == "") != tc.ok {
				t.Fatalf("Validate()=%q, want ok=%v", reason, tc.ok)
			}
		})
	}
}

func TestRepairTypeWorkOrderMapping(t *testing.T) {
	cases := []struct {
		repair   RepairType
		requires bool
		woType   WorkOrderType
	}{
		{RepairTypeDirect, false, ""},
		{RepairTypeUnrepairable, false, ""},
		{RepairTypeNeedSparepart, true, WorkOrderTypeSparepart},
		{RepairTypeNeedVendor, true, WorkOrderTypeVendor},
		{RepairTypeNeedLicense, true, WorkOrderTypeLicense},
	}
	for _, tc := range cases {
		if got := tc.repair.RequiresWorkOrder(); got != tc.requires {
			t.Fatalf("%s RequiresWorkOrder()=%v, want %v", tc.repair, got, tc.requires)
		}
		if got := tc.repair.WorkOrderType(); got != tc.woType {
			t.Fatalf("%s WorkOrderType()=%q, want %q", tc.repair, got, tc.woType)
		}
	}
}

func TestWorkOrderTransitions(t *testing.T) {
	cases := []struct {
		from, to WorkOrderStatus
		ok       bool
	}{
		{WorkOrderStatusRequested, WorkOrderStatusOrdered, true},
		{WorkOrderStatusRequested, WorkOrderStatusCancelled, true},
		{WorkOrderStatusOrdered, WorkOrderStatusDelivered, true},
		{WorkOrderStatusDelivered, WorkOrderStatusCompleted, true},
		{WorkOrderStatusCompleted, WorkOrderStatusOrdered, false},
		{WorkOrderStatusFailed, WorkOrderStatusRequested, false},
		{WorkOrderStatusCancelled, WorkOrderStatusOrdered, false},
		{WorkOrderStatusDelivered, WorkOrderStatusOrdered, false},
	}
	for _, tc := range cases {
		if got := WorkOrderTransitionValid(tc.from, tc.to); got != tc.ok {
			t.Fatalf("WorkOrderTransitionValid(%s, %s)=%v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestWorkOrderTerminal(t *testing.T) {
	terminal := []WorkOrderStatus{WorkOrderStatusDelivered, WorkOrderStatusCompleted, WorkOrderStatusFailed, WorkOrderStatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []WorkOrderStatus{WorkOrderStatusRequested, WorkOrderStatusOrdered} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
