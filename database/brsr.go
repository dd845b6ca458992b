package database

import (
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrUnknownRequirement = errors.New("unknown brsr requirement")

// CompletionPercentage is round(answered/total*100), 0 for an empty total.
func CompletionPercentage(answered, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(answered) / float64(total) * 100))
}

type brsrJoinRow struct {
	SectionID      string         `db:"section_id"`
	BrsrMasterID   string         `db:"brsr_master_id"`
	SequenceNumber int            `db:"sequence_number"`
	Requirement    string         `db:"requirement"`
	BrsrItemID     sql.NullString `db:"brsr_item_id"`
	Response       string         `db:"response"`
	Notes          string         `db:"notes"`
	VendorID       sql.NullString `db:"vendor_id"`
}

func GetBrsrSectionList() ([]BrsrSection, error) {
	return queryRows[BrsrSection]("brsr_sections", "id,sequence_number,section_name,description", Query{OrderBy: "sequence_number"})
}

// GetBrsrSections returns every section with its requirements joined with the
// answers of vendorID. Requirements without an answer carry an empty response
// and nil item and vendor ids.
func GetBrsrSections(vendorID string) ([]BrsrSectionResponse, error) {
	sections, err := GetBrsrSectionList()
	if err != nil {
		return nil, err
	}
	var rows []brsrJoinRow
	ReadWriteMu.RLock()
	err = DB.Select(&rows, `select m.section_id, m.id as brsr_master_id, m.sequence_number, m.requirement,
		i.id as brsr_item_id, coalesce(i.response, '') as response, coalesce(i.notes, '') as notes, i.vendor_id
		from brsr_masters m left join brsr_items i on i.brsr_master_id = m.id and i.vendor_id = ?
		order by m.section_id, m.sequence_number`, vendorID)
	ReadWriteMu.RUnlock()
	if err != nil {
		return nil, errors.Wrap(err, "query brsr items")
	}

	bySection := make(map[string][]BrsrItemResponse, len(sections))
	for _, row := range rows {
		item := BrsrItemResponse{
			BrsrMasterID:   row.BrsrMasterID,
			SequenceNumber: row.SequenceNumber,
			Requirement:    row.Requirement,
			Response:       row.Response,
			Notes:          row.Notes,
		}
		if row.BrsrItemID.Valid {
			id := row.BrsrItemID.String
			item.BrsrItemID = &id
		}
		if row.VendorID.Valid {
			vid := row.VendorID.String
			item.VendorID = &vid
		}
		bySection[row.SectionID] = append(bySection[row.SectionID], item)
	}

	result := make([]BrsrSectionResponse, 0, len(sections))
	for _, s := range sections {
		items := bySection[s.ID]
		if items == nil {
			items = []BrsrItemResponse{}
		}
		answered := 0
		for _, it := range items {
			if it.Answered() {
				answered++
			}
		}
		result = append(result, BrsrSectionResponse{
			SectionID:            s.ID,
			SectionName:          s.SectionName,
			Description:          s.Description,
			SequenceNumber:       s.SequenceNumber,
			CompletionPercentage: CompletionPercentage(answered, len(items)),
			Items:                items,
		})
	}
	return result, nil
}

// OverallCompletion sums answered and total requirements over all sections.
func OverallCompletion(sections []BrsrSectionResponse) int {
	answered, total := 0, 0
	for _, s := range sections {
		for _, it := range s.Items {
			total++
			if it.Answered() {
				answered++
			}
		}
	}
	return CompletionPercentage(answered, total)
}

// SaveBrsrItem stores the vendor's answer to a requirement, replacing an
// earlier answer, and refreshes the vendor's completion status.
func SaveBrsrItem(item BrsrItem) (BrsrItem, error) {
	counter, err := CountRows("brsr_masters", Query{Where: "id = ?", WhereArgs: []interface{}{item.BrsrMasterID}})
	if err != nil {
		return BrsrItem{}, err
	}
	if counter == 0 {
		return BrsrItem{}, ErrUnknownRequirement
	}
	if _, err := GetVendor(item.VendorID); err != nil {
		return BrsrItem{}, err
	}

	now := time.Now().UTC()
	existing, err := getRow[BrsrItem]("brsr_items", "id,brsr_master_id,vendor_id,response,notes,created_at,updated_at",
		Query{Where: "brsr_master_id = ? AND vendor_id = ?", WhereArgs: []interface{}{item.BrsrMasterID, item.VendorID}})
	switch {
	case err == nil:
		item.ID = existing.ID
		item.CreatedAt = existing.CreatedAt
		_, err = UpdateArray("brsr_items", []string{"response", "notes", "updated_at"},
			[]interface{}{item.Response, item.Notes, now},
			Query{Where: "id = ?", WhereArgs: []interface{}{item.ID}})
	case errors.Is(err, ErrNoResult):
		item.ID = uuid.NewString()
		item.CreatedAt = now
		_, err = InsertArray("brsr_items", []string{"id", "brsr_master_id", "vendor_id", "response", "notes", "created_at", "updated_at"},
			[]interface{}{item.ID, item.BrsrMasterID, item.VendorID, item.Response, item.Notes, now, now})
	}
	if err != nil {
		return BrsrItem{}, err
	}
	item.UpdatedAt = now
	if _, err := RefreshCompletionStatus(item.VendorID); err != nil {
		return BrsrItem{}, err
	}
	return item, nil
}

// RefreshCompletionStatus derives the vendor's status from its answers:
// PENDING with none, IN_PROGRESS with some and COMPLETED with all of them. The
// submitted date is set the first time the vendor completes.
func RefreshCompletionStatus(vendorID string) (string, error) {
	vendor, err := GetVendor(vendorID)
	if err != nil {
		return "", err
	}
	total, err := CountRows("brsr_masters", Query{})
	if err != nil {
		return "", err
	}
	answered, err := CountRows("brsr_items", Query{
		Where:     "vendor_id = ? AND trim(response, ' ' || char(9) || char(10) || char(13)) != ''",
		WhereArgs: []interface{}{vendorID},
	})
	if err != nil {
		return "", err
	}

	status := StatusInProgress
	switch {
	case answered == 0:
		status = StatusPending
	case answered >= total:
		status = StatusCompleted
	}
	columns := []string{"completion_status"}
	values := []interface{}{status}
	if status == StatusCompleted && !vendor.SubmittedDate.Valid {
		columns = append(columns, "submitted_date")
		values = append(values, time.Now().UTC())
	}
	if status == vendor.CompletionStatus && len(columns) == 1 {
		return status, nil
	}
	columns = append(columns, "updated_at")
	values = append(values, time.Now().UTC())
	_, err = UpdateArray("vendors", columns, values, Query{Where: "id = ?", WhereArgs: []interface{}{vendorID}})
	return status, err
}
