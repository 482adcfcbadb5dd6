package models

import "testing"

func TestRequestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    RequestStatus
		to      RequestStatus
		allowed bool
	}{
		{RequestPendingAccountant, RequestPendingAdminFinal, true},
		{RequestPendingAccountant, RequestApproved, true},
		{RequestPendingAccountant, RequestRejected, true},
		{RequestPendingAccountant, RequestPaid, false},
		{RequestApproved, RequestRejected, false},
		{RequestPendingAdminFinal, RequestPaid, true},
		{RequestPendingAdminFinal, RequestApproved, true},
		{RequestPendingAdminFinal, RequestRejected, true},
		{RequestPendingAdminFinal, RequestPendingAccountant, false},
		{RequestPaid, RequestRejected, false},
		{RequestRejected, RequestPendingAdminFinal, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Fatalf("%s -> %s: expected %v, got %v", c.from, c.to, c.allowed, got)
		}
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	for _, s := range []RequestStatus{RequestApproved, RequestPaid, RequestRejected} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []RequestStatus{RequestPendingAccountant, RequestPendingAdminFinal} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestBatchStatusTransitions(t *testing.T) {
	if !BatchPendingAdminFinal.CanTransitionTo(BatchFinalized) {
		t.Fatalf("pending batch should finalize")
	}
	if !BatchPendingAdminFinal.CanTransitionTo(BatchRejected) {
		t.Fatalf("pending batch should reject")
	}
	if BatchFinalized.CanTransitionTo(BatchRejected) {
		t.Fatalf("finalized batch must not transition")
	}
	if BatchRejected.CanTransitionTo(BatchFinalized) {
		t.Fatalf("rejected batch must not transition")
	}
}
