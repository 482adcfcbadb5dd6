package models

// RequestStatus is the review state of a deposit or withdrawal request.
// Transitions only move forward through the table below; anything else is a
// conflict the caller must surface, never overwrite.
type RequestStatus string

const (
	RequestPendingAccountant RequestStatus = "PENDING_ACCOUNTANT"
	RequestPendingAdminFinal RequestStatus = "PENDING_ADMIN_FINAL"
	RequestApproved          RequestStatus = "APPROVED"
	RequestPaid              RequestStatus = "PAID"
	RequestRejected          RequestStatus = "REJECTED"
)

// PENDING_ACCOUNTANT moves straight to APPROVED only when the payment
// provider confirms the deposit; staff review always passes through
// PENDING_ADMIN_FINAL.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPendingAccountant: {RequestPendingAdminFinal, RequestApproved, RequestRejected},
	RequestPendingAdminFinal: {RequestApproved, RequestPaid, RequestRejected},
}

func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s RequestStatus) Terminal() bool {
	return s == RequestApproved || s == RequestPaid || s == RequestRejected
}

// BatchStatus is the review state of a manual profit batch.
type BatchStatus string

const (
	BatchPendingAdminFinal BatchStatus = "PENDING_ADMIN_FINAL"
	BatchFinalized         BatchStatus = "FINALIZED"
	BatchRejected          BatchStatus = "REJECTED"
)

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchPendingAdminFinal: {BatchFinalized, BatchRejected},
}

func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BatchStatus) Terminal() bool {
	return s == BatchFinalized || s == BatchRejected
}
