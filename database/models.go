package database

import (
	"database/sql"
	"time"
)

const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// Statuses lists the vendor completion states in workflow order.
var Statuses = []string{StatusPending, StatusInProgress, StatusCompleted}

type Company struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type User struct {
	ID           string    `db:"id" json:"id"`
	CompanyID    string    `db:"company_id" json:"companyId"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

type Vendor struct {
	ID               string       `db:"id"`
	CompanyID        string       `db:"company_id"`
	Fy               string       `db:"fy"`
	VendorName       string       `db:"vendor_name"`
	VendorEmail      string       `db:"vendor_email"`
	ContactName      string       `db:"contact_name"`
	ContactNumber    string       `db:"contact_number"`
	AccessCode       string       `db:"access_code"`
	DeadlineDate     time.Time    `db:"deadline_date"`
	CompletionStatus string       `db:"completion_status"`
	SubmittedDate    sql.NullTime `db:"submitted_date"`
	InvitedAt        sql.NullTime `db:"invited_at"`
	CreatedAt        time.Time    `db:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at"`
}

// VendorJson is the wire form of a vendor. Dates are yyyy-mm-dd, unset dates
// are empty.
type VendorJson struct {
	ID               string `json:"id"`
	Fy               string `json:"fy"`
	VendorName       string `json:"vendorName"`
	VendorEmail      string `json:"vendorEmail"`
	ContactName      string `json:"contactName"`
	ContactNumber    string `json:"contactNumber"`
	AccessCode       string `json:"accessCode"`
	DeadlineDate     string `json:"deadlineDate"`
	CompletionStatus string `json:"completionStatus"`
	SubmittedDate    string `json:"submittedDate"`
	InvitedAt        string `json:"invitedAt"`
}

const DateFormat = "2006-01-02"

func nullDate(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(DateFormat)
}

func (v Vendor) Json() VendorJson {
	return VendorJson{
		ID:               v.ID,
		Fy:               v.Fy,
		VendorName:       v.VendorName,
		VendorEmail:      v.VendorEmail,
		ContactName:      v.ContactName,
		ContactNumber:    v.ContactNumber,
		AccessCode:       v.AccessCode,
		DeadlineDate:     v.DeadlineDate.UTC().Format(DateFormat),
		CompletionStatus: v.CompletionStatus,
		SubmittedDate:    nullDate(v.SubmittedDate),
		InvitedAt:        nullDate(v.InvitedAt),
	}
}

// DeadlinePassed reports whether the deadline day (yyyy-mm-dd) lies before the
// UTC day of now. The deadline day itself is still open.
func DeadlinePassed(deadline string, now time.Time) bool {
	return deadline != "" && deadline < now.UTC().Format(DateFormat)
}

// Overdue reports whether the deadline day passed without a completed
// submission.
func (v Vendor) Overdue(now time.Time) bool {
	if v.CompletionStatus == StatusCompleted || v.DeadlineDate.IsZero() {
		return false
	}
	return DeadlinePassed(v.DeadlineDate.UTC().Format(DateFormat), now)
}

type BrsrSection struct {
	ID             string `db:"id"`
	SequenceNumber int    `db:"sequence_number"`
	SectionName    string `db:"section_name"`
	Description    string `db:"description"`
}

type BrsrMaster struct {
	ID             string `db:"id"`
	SectionID      string `db:"section_id"`
	SequenceNumber int    `db:"sequence_number"`
	Requirement    string `db:"requirement"`
}

type BrsrItem struct {
	ID           string    `db:"id" json:"brsrItemId"`
	BrsrMasterID string    `db:"brsr_master_id" json:"brsrMasterId"`
	VendorID     string    `db:"vendor_id" json:"vendorId"`
	Response     string    `db:"response" json:"response"`
	Notes        string    `db:"notes" json:"notes"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

// BrsrItemResponse is a questionnaire requirement joined with a vendor's
// answer. BrsrItemID and VendorID are nil when nothing was answered yet.
type BrsrItemResponse struct {
	BrsrMasterID   string  `json:"brsrMasterId"`
	SequenceNumber int     `json:"sequenceNumber"`
	Requirement    string  `json:"requirement"`
	BrsrItemID     *string `json:"brsrItemId"`
	Response       string  `json:"response"`
	Notes          string  `json:"notes"`
	VendorID       *string `json:"vendorId"`
}

// Answered reports whether the response carries more than whitespace.
func (r BrsrItemResponse) Answered() bool {
	for _, c := range r.Response {
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return true
		}
	}
	return false
}

type BrsrSectionResponse struct {
	SectionID            string             `json:"sectionId"`
	SectionName          string             `json:"sectionName"`
	Description          string             `json:"description"`
	SequenceNumber       int                `json:"sequenceNumber"`
	CompletionPercentage int                `json:"completionPercentage"`
	Items                []BrsrItemResponse `json:"getBrsrItemResponseList"`
}
