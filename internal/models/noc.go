package models

import "time"

// NocStatus is the lifecycle state of a certificate request.
// PENDING is the only non-terminal state.
type NocStatus string

const (
	NocStatusPending  NocStatus = "PENDING"
	NocStatusApproved NocStatus = "APPROVED"
	NocStatusRejected NocStatus = "REJECTED"
)

// Valid reports whether s is one of the known statuses.
func (s NocStatus) Valid() bool {
	switch s {
	case NocStatusPending, NocStatusApproved, NocStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s NocStatus) Terminal() bool {
	return s == NocStatusApproved || s == NocStatusRejected
}

// NocRequest is one internship No Objection Certificate request.
// The student name is denormalized at creation time. Remarks are present
// only while the status is REJECTED. Requests are never deleted.
type NocRequest struct {
	ID          int64     `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name"`
	FacultyID   *string   `db:"faculty_id" json:"faculty_id,omitempty"`
	CompanyName string    `db:"company_name" json:"company_name"`
	RoleTitle   string    `db:"role_title" json:"role_title"`
	Duration    string    `db:"duration" json:"duration"`
	StartDate   string    `db:"start_date" json:"start_date"`
	EndDate     string    `db:"end_date" json:"end_date"`
	Status      NocStatus `db:"status" json:"status"`
	Remarks     *string   `db:"remarks" json:"remarks,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// NocSortKey selects the timestamp a listing is ordered by. Listings order
// most-recent-first; the request list uses creation time, the dashboard uses
// last-update time.
type NocSortKey string

const (
	NocSortCreatedAt NocSortKey = "created_at"
	NocSortUpdatedAt NocSortKey = "updated_at"
)

// NocFilter captures listing criteria. StudentID narrows the scope to one
// requester (student callers); empty means the full collection (faculty).
type NocFilter struct {
	StudentID string
	Status    *NocStatus
	Search    string
	Sort      NocSortKey
}

// NocStatusCounts aggregates requests per lifecycle state.
type NocStatusCounts struct {
	Total    int `db:"total" json:"total"`
	Pending  int `db:"pending" json:"pending"`
	Approved int `db:"approved" json:"approved"`
	Rejected int `db:"rejected" json:"rejected"`
}

// NocSummary is the dashboard payload: per-status counts plus the most
// recently updated requests in the caller's scope.
type NocSummary struct {
	Counts      NocStatusCounts `json:"counts"`
	Recent      []NocRequest    `json:"recent"`
	GeneratedAt time.Time       `json:"generated_at"`
}
