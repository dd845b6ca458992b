package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDb(t *testing.T) {
	t.Helper()
	require.NoError(t, InitDb(filepath.Join(t.TempDir(), "rampart.db")))
	require.NoError(t, UpgradeDB())
	t.Cleanup(func() { CloseDb() })
}

func addVendor(t *testing.T, name, email, status string, deadline time.Time) Vendor {
	t.Helper()
	v, err := SaveVendor(Vendor{Fy: "2025-2026", VendorName: name, VendorEmail: email, ContactName: "Contact " + name, ContactNumber: "9876543210", DeadlineDate: deadline})
	require.NoError(t, err)
	if status != StatusPending {
		_, err = UpdateColumn("vendors", "completion_status", status, Query{Where: "id = ?", WhereArgs: []interface{}{v.ID}})
		require.NoError(t, err)
		v.CompletionStatus = status
	}
	return v
}

func TestUpgradeDB_Seeds(t *testing.T) {
	setupDb(t)
	assert.Equal(t, "2", DBVersion)
	sections, err := GetBrsrSectionList()
	require.NoError(t, err)
	require.Len(t, sections, 4)
	assert.Equal(t, "General Disclosures", sections[0].SectionName)
	assert.Equal(t, "ESG & SDG Performance Data", sections[3].SectionName)

	// running again is a no-op
	require.NoError(t, UpgradeDB())
}

func TestBuildquery(t *testing.T) {
	q := buildquery("id", "vendors", Query{Where: "fy = ?", OrderBy: "vendor_name", Limit: 10, Offset: 20}, false)
	assert.Equal(t, "select id from vendors where fy = ? order by vendor_name limit 20, 10", q)
	q = buildquery("count(*)", "vendors", Query{Where: "fy = ?", OrderBy: "vendor_name"}, true)
	assert.Equal(t, "select count(*) from vendors where fy = ?", q)
	q = buildquery("id", "vendors", Query{Limit: 5}, false)
	assert.Equal(t, "select id from vendors limit 5", q)
}

func TestSaveVendor_InsertDefaults(t *testing.T) {
	setupDb(t)
	v, err := SaveVendor(Vendor{Fy: "2025-2026", VendorName: "ACME", VendorEmail: "ops@acme.test"})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Len(t, v.AccessCode, 6)
	assert.Equal(t, StatusPending, v.CompletionStatus)
	assert.WithinDuration(t, time.Now().Add(DefaultDeadline), v.DeadlineDate, 25*time.Hour)
	assert.False(t, v.SubmittedDate.Valid)

	byCode, err := GetVendorByAccessCode(v.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, v.ID, byCode.ID)
}

func TestSaveVendor_UpdateAndDuplicateCode(t *testing.T) {
	setupDb(t)
	a, err := SaveVendor(Vendor{Fy: "2025-2026", VendorName: "ACME", AccessCode: "111111"})
	require.NoError(t, err)
	b, err := SaveVendor(Vendor{Fy: "2025-2026", VendorName: "Globex", AccessCode: "222222"})
	require.NoError(t, err)

	_, err = SaveVendor(Vendor{Fy: "2025-2026", VendorName: "Dup", AccessCode: "111111"})
	assert.ErrorIs(t, err, ErrDuplicateAccessCode)

	b.VendorName = "Globex Corp"
	b.AccessCode = ""
	updated, err := SaveVendor(b)
	require.NoError(t, err)
	assert.Equal(t, "Globex Corp", updated.VendorName)
	assert.Equal(t, "222222", updated.AccessCode)

	b.AccessCode = a.AccessCode
	_, err = SaveVendor(b)
	assert.ErrorIs(t, err, ErrDuplicateAccessCode)

	_, err = SaveVendor(Vendor{ID: "missing", VendorName: "x"})
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestFilterVendors(t *testing.T) {
	setupDb(t)
	deadline := time.Now().Add(48 * time.Hour)
	addVendor(t, "ACME", "ops@acme.test", StatusPending, deadline)
	addVendor(t, "Globex", "info@globex.test", StatusCompleted, deadline)
	addVendor(t, "Initech", "hello@initech.test", StatusInProgress, deadline)
	addVendor(t, "Acme Widgets", "w@widgets.test", StatusInProgress, deadline)
	_, err := SaveVendor(Vendor{Fy: "2024-2025", VendorName: "Old ACME"})
	require.NoError(t, err)

	rows, total, err := FilterVendors(VendorFilter{FiscalYear: "2025-2026", SearchKey: "acme", SortField: "vendorName"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "ACME", rows[0].VendorName)
	assert.Equal(t, "Acme Widgets", rows[1].VendorName)

	rows, total, err = FilterVendors(VendorFilter{FiscalYear: "2025-2026", Statuses: []string{StatusInProgress, StatusCompleted}, SortField: "vendorName", SortDesc: true})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "Initech", rows[0].VendorName)

	rows, total, err = FilterVendors(VendorFilter{FiscalYear: "2025-2026", PageStart: 2, PageSize: 2, SortField: "vendorName"})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "Globex", rows[0].VendorName)

	rows, total, err = FilterVendors(VendorFilter{FiscalYear: "2025-2026", PageStart: 40, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, rows)

	// LIKE wildcards in the search term are literal
	_, total, err = FilterVendors(VendorFilter{FiscalYear: "2025-2026", SearchKey: "%"})
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	// unknown sort fields fall back to the default order
	_, _, err = FilterVendors(VendorFilter{SortField: "vendor_name; drop table vendors"})
	require.NoError(t, err)
	assert.False(t, IsVendorSortField("vendor_name; drop table vendors"))
}

func TestOverdueAndInvited(t *testing.T) {
	setupDb(t)
	past := time.Now().Add(-72 * time.Hour)
	late := addVendor(t, "Late", "late@x.test", StatusInProgress, past)
	addVendor(t, "Done", "done@x.test", StatusCompleted, past)
	addVendor(t, "Future", "f@x.test", StatusPending, time.Now().Add(72*time.Hour))

	overdue, err := OverdueVendors(time.Now())
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)

	require.NoError(t, MarkInvited(late.ID, time.Now()))
	got, err := GetVendor(late.ID)
	require.NoError(t, err)
	assert.True(t, got.InvitedAt.Valid)
	assert.ErrorIs(t, MarkInvited("missing", time.Now()), ErrNoResult)

	all, err := AllVendors("", "2025-2026")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOverdue_DeadlineDay(t *testing.T) {
	setupDb(t)
	deadline := time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC)
	v := addVendor(t, "Initech", "ops@initech.test", StatusPending, deadline)

	morning := time.Date(2026, 11, 18, 8, 0, 0, 0, time.UTC)
	assert.False(t, v.Overdue(morning))
	assert.False(t, DeadlinePassed(v.Json().DeadlineDate, morning))
	overdue, err := OverdueVendors(morning)
	require.NoError(t, err)
	assert.Empty(t, overdue)

	// late evening in a zone ahead of UTC is still the deadline day in UTC
	kolkata := time.FixedZone("IST", 5*3600+1800)
	assert.False(t, v.Overdue(time.Date(2026, 11, 19, 5, 0, 0, 0, kolkata)))

	nextDay := time.Date(2026, 11, 19, 0, 0, 1, 0, time.UTC)
	assert.True(t, v.Overdue(nextDay))
	assert.True(t, DeadlinePassed(v.Json().DeadlineDate, nextDay))
	overdue, err = OverdueVendors(nextDay)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, v.ID, overdue[0].ID)

	assert.False(t, Vendor{CompletionStatus: StatusPending}.Overdue(nextDay))
	assert.False(t, DeadlinePassed("", nextDay))
}

func TestAllVendors_Company(t *testing.T) {
	setupDb(t)
	for _, v := range []Vendor{
		{CompanyID: "c1", Fy: "2025-2026", VendorName: "Zeta", VendorEmail: "z@c1.test"},
		{CompanyID: "c1", Fy: "2025-2026", VendorName: "Alpha", VendorEmail: "a@c1.test"},
		{CompanyID: "c1", Fy: "2024-2025", VendorName: "Old", VendorEmail: "o@c1.test"},
		{CompanyID: "c2", Fy: "2025-2026", VendorName: "Other", VendorEmail: "x@c2.test"},
	} {
		_, err := SaveVendor(v)
		require.NoError(t, err)
	}

	got, err := AllVendors("c1", "2025-2026")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha", got[0].VendorName)
	assert.Equal(t, "Zeta", got[1].VendorName)

	got, err = AllVendors("c2", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Other", got[0].VendorName)

	got, err = AllVendors("missing", "2025-2026")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBrsrCompletionFlow(t *testing.T) {
	setupDb(t)
	v := addVendor(t, "ACME", "ops@acme.test", StatusPending, time.Now().Add(time.Hour))

	sections, err := GetBrsrSections(v.ID)
	require.NoError(t, err)
	require.Len(t, sections, 4)
	first := sections[0].Items[0]
	assert.Nil(t, first.BrsrItemID)
	assert.Nil(t, first.VendorID)
	assert.Equal(t, 0, OverallCompletion(sections))

	_, err = SaveBrsrItem(BrsrItem{BrsrMasterID: "nope", VendorID: v.ID, Response: "x"})
	assert.ErrorIs(t, err, ErrUnknownRequirement)

	saved, err := SaveBrsrItem(BrsrItem{BrsrMasterID: first.BrsrMasterID, VendorID: v.ID, Response: "U12345MH2001PLC123456"})
	require.NoError(t, err)
	got, _ := GetVendor(v.ID)
	assert.Equal(t, StatusInProgress, got.CompletionStatus)

	again, err := SaveBrsrItem(BrsrItem{BrsrMasterID: first.BrsrMasterID, VendorID: v.ID, Response: "  \n"})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)
	got, _ = GetVendor(v.ID)
	assert.Equal(t, StatusPending, got.CompletionStatus)

	for _, s := range sections {
		for _, it := range s.Items {
			_, err := SaveBrsrItem(BrsrItem{BrsrMasterID: it.BrsrMasterID, VendorID: v.ID, Response: "answered"})
			require.NoError(t, err)
		}
	}
	got, _ = GetVendor(v.ID)
	assert.Equal(t, StatusCompleted, got.CompletionStatus)
	assert.True(t, got.SubmittedDate.Valid)

	sections, err = GetBrsrSections(v.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, OverallCompletion(sections))
	require.NotNil(t, sections[0].Items[0].VendorID)
	assert.Equal(t, v.ID, *sections[0].Items[0].VendorID)

	require.NoError(t, DeleteVendor(v.ID))
	counter, err := CountRows("brsr_items", Query{})
	require.NoError(t, err)
	assert.Equal(t, 0, counter)
	assert.ErrorIs(t, DeleteVendor(v.ID), ErrNoResult)
}

func TestCompletionPercentage(t *testing.T) {
	assert.Equal(t, 0, CompletionPercentage(0, 0))
	assert.Equal(t, 33, CompletionPercentage(1, 3))
	assert.Equal(t, 67, CompletionPercentage(2, 3))
	assert.Equal(t, 100, CompletionPercentage(4, 4))
}

func TestCreateCompanyUser(t *testing.T) {
	setupDb(t)
	company, user, err := CreateCompanyUser("Müller & Söhne", User{Email: "Admin@Example.com", PasswordHash: "hash", FirstName: "Ada", LastName: "Admin"})
	require.NoError(t, err)
	assert.Equal(t, "mueller-and-soehne", company.Slug)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.Equal(t, "ADMIN", user.Role)

	got, err := GetUserByEmail("ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, _, err = CreateCompanyUser("Other", User{Email: "admin@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = GetUser("missing")
	assert.ErrorIs(t, err, ErrNoResult)
	c, err := GetCompany(company.ID)
	require.NoError(t, err)
	assert.Equal(t, "Müller & Söhne", c.Name)
}

func TestBackupAndRetention(t *testing.T) {
	setupDb(t)
	dir := t.TempDir()
	for i := 1; i <= 3; i++ {
		name := BackupName(time.Date(2024, 1, i, 0, 0, 0, 0, time.UTC))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("old"), 0o600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), nil, 0o600))

	path, err := Backup(dir, 2)
	require.NoError(t, err)
	assert.FileExists(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{filepath.Base(path), BackupName(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)), "unrelated.txt"}, names)
}
