package database

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrDuplicateAccessCode = errors.New("access code already in use")

const (
	vendorColumns = "id,company_id,fy,vendor_name,vendor_email,contact_name,contact_number,access_code,deadline_date,completion_status,submitted_date,invited_at,created_at,updated_at"

	DefaultDeadline = 30 * 24 * time.Hour
)

// vendorSortFields maps the wire sort keys onto columns.
var vendorSortFields = map[string]string{
	"vendorName":       "vendor_name",
	"vendorEmail":      "vendor_email",
	"contactName":      "contact_name",
	"accessCode":       "access_code",
	"deadlineDate":     "deadline_date",
	"completionStatus": "completion_status",
	"submittedDate":    "submitted_date",
	"createdAt":        "created_at",
}

// IsVendorSortField reports whether field can be passed as VendorFilter.SortField.
func IsVendorSortField(field string) bool {
	_, ok := vendorSortFields[field]
	return ok
}

type VendorFilter struct {
	CompanyID  string
	FiscalYear string
	SearchKey  string
	Statuses   []string
	PageStart  int
	PageSize   int
	SortField  string
	SortDesc   bool
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (f VendorFilter) query() Query {
	var where []string
	var args []interface{}
	if f.FiscalYear != "" {
		where = append(where, "fy = ?")
		args = append(args, f.FiscalYear)
	}
	if f.CompanyID != "" {
		where = append(where, "company_id = ?")
		args = append(args, f.CompanyID)
	}
	if term := strings.TrimSpace(f.SearchKey); term != "" {
		like := "%" + likeEscaper.Replace(term) + "%"
		where = append(where, `(vendor_name LIKE ? ESCAPE '\' OR vendor_email LIKE ? ESCAPE '\' OR contact_name LIKE ? ESCAPE '\' OR access_code LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like, like)
	}
	if len(f.Statuses) > 0 {
		where = append(where, "completion_status IN (?"+strings.Repeat(",?", len(f.Statuses)-1)+")")
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	order := "created_at desc, vendor_name"
	if col, ok := vendorSortFields[f.SortField]; ok {
		order = col
		if f.SortDesc {
			order += " desc"
		}
		order += ", id"
	}
	return Query{Where: strings.Join(where, " AND "), WhereArgs: args, OrderBy: order}
}

// FilterVendors returns one page of the matching vendors and the number of
// matches over all pages.
func FilterVendors(f VendorFilter) ([]Vendor, int, error) {
	qu := f.query()
	total, err := CountRows("vendors", qu)
	if err != nil {
		return nil, 0, err
	}
	if f.PageSize < 1 {
		f.PageSize = 10
	}
	if f.PageStart < 0 {
		f.PageStart = 0
	}
	qu.Limit = uint64(f.PageSize)
	qu.Offset = uint64(f.PageStart)
	if total == 0 || f.PageStart >= total {
		return []Vendor{}, total, nil
	}
	rows, err := queryRows[Vendor]("vendors", vendorColumns, qu)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// NewAccessCode returns a random six digit code.
func NewAccessCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return fmt.Sprintf("%06d", time.Now().UnixNano()%900000+100000)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000)
}

func uniqueAccessCode() (string, error) {
	for i := 0; i < 10; i++ {
		code := NewAccessCode()
		counter, err := CountRows("vendors", Query{Where: "access_code = ?", WhereArgs: []interface{}{code}})
		if err != nil {
			return "", err
		}
		if counter == 0 {
			return code, nil
		}
	}
	return "", ErrDuplicateAccessCode
}

// SaveVendor inserts v when it has no id and updates it otherwise. New vendors
// get an id, an access code when none was given, a deadline 30 days out when
// none was given and the PENDING status.
func SaveVendor(v Vendor) (Vendor, error) {
	now := time.Now().UTC()
	v.AccessCode = strings.TrimSpace(v.AccessCode)
	if v.ID == "" {
		v.ID = uuid.NewString()
		if v.AccessCode == "" {
			code, err := uniqueAccessCode()
			if err != nil {
				return Vendor{}, err
			}
			v.AccessCode = code
		}
		if v.DeadlineDate.IsZero() {
			v.DeadlineDate = now.Add(DefaultDeadline).Truncate(24 * time.Hour)
		}
		v.CompletionStatus = StatusPending
		_, err := InsertArray("vendors",
			[]string{"id", "company_id", "fy", "vendor_name", "vendor_email", "contact_name", "contact_number", "access_code", "deadline_date", "completion_status", "created_at", "updated_at"},
			[]interface{}{v.ID, v.CompanyID, v.Fy, v.VendorName, v.VendorEmail, v.ContactName, v.ContactNumber, v.AccessCode, v.DeadlineDate.UTC(), v.CompletionStatus, now, now})
		if err != nil {
			if isUniqueViolation(err) {
				return Vendor{}, ErrDuplicateAccessCode
			}
			return Vendor{}, err
		}
		return GetVendor(v.ID)
	}

	existing, err := GetVendor(v.ID)
	if err != nil {
		return Vendor{}, err
	}
	if v.AccessCode == "" {
		v.AccessCode = existing.AccessCode
	}
	if v.DeadlineDate.IsZero() {
		v.DeadlineDate = existing.DeadlineDate
	}
	_, err = UpdateArray("vendors",
		[]string{"vendor_name", "vendor_email", "contact_name", "contact_number", "access_code", "deadline_date", "updated_at"},
		[]interface{}{v.VendorName, v.VendorEmail, v.ContactName, v.ContactNumber, v.AccessCode, v.DeadlineDate.UTC(), now},
		Query{Where: "id = ?", WhereArgs: []interface{}{v.ID}})
	if err != nil {
		if isUniqueViolation(err) {
			return Vendor{}, ErrDuplicateAccessCode
		}
		return Vendor{}, err
	}
	return GetVendor(v.ID)
}

func GetVendor(id string) (Vendor, error) {
	return getRow[Vendor]("vendors", vendorColumns, Query{Where: "id = ?", WhereArgs: []interface{}{id}})
}

func GetVendorByAccessCode(code string) (Vendor, error) {
	return getRow[Vendor]("vendors", vendorColumns, Query{Where: "access_code = ?", WhereArgs: []interface{}{strings.TrimSpace(code)}})
}

// DeleteVendor removes the vendor and its questionnaire answers.
func DeleteVendor(id string) error {
	result, err := DeleteRow("vendors", Query{Where: "id = ?", WhereArgs: []interface{}{id}})
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNoResult
	}
	return nil
}

// AllVendors returns the vendors of the company and fiscal year ordered by
// name. Empty arguments do not filter.
func AllVendors(companyID, fy string) ([]Vendor, error) {
	qu := VendorFilter{CompanyID: companyID, FiscalYear: fy, SortField: "vendorName"}.query()
	return queryRows[Vendor]("vendors", vendorColumns, qu)
}

// OverdueVendors returns the vendors whose deadline day passed before the day
// of now and that have not completed their questionnaire.
func OverdueVendors(now time.Time) ([]Vendor, error) {
	open, err := queryRows[Vendor]("vendors", vendorColumns, Query{
		Where:     "completion_status != ?",
		WhereArgs: []interface{}{StatusCompleted},
		OrderBy:   "deadline_date, vendor_name",
	})
	if err != nil {
		return nil, err
	}
	overdue := open[:0]
	for _, v := range open {
		if v.Overdue(now) {
			overdue = append(overdue, v)
		}
	}
	return overdue, nil
}

func MarkInvited(id string, at time.Time) error {
	result, err := UpdateColumn("vendors", "invited_at", at.UTC(), Query{Where: "id = ?", WhereArgs: []interface{}{id}})
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNoResult
	}
	return nil
}
