package api

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudfinch-harshad/rampart/apiexternal"
	"github.com/cloudfinch-harshad/rampart/database"
	"github.com/cloudfinch-harshad/rampart/logger"
	"github.com/cloudfinch-harshad/rampart/session"
	"github.com/cloudfinch-harshad/rampart/table"
	gin "github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func AddVendorRoutes(rg *gin.RouterGroup, s *Server) {
	rg.POST("/filter-brsr-vendors", s.apiFilterVendors)
	rg.POST("/save-brsr-vendor", s.apiSaveVendor)
	rg.POST("/get-brsr-vendor", s.apiGetVendor)
	rg.POST("/delete-brsr-vendor", s.apiDeleteVendor)
	rg.POST("/send-brsr-invitation", s.apiSendInvitation)

	routervendors := rg.Group("/vendors")
	{
		routervendors.GET("/table", s.apiVendorTable)
		routervendors.GET("/export", s.apiVendorExport)
	}
}

type FilterVendorsInput struct {
	Fy            string   `json:"fy"`
	SearchKey     string   `json:"searchKey"`
	PageStart     int      `json:"pageStart"`
	PageSize      int      `json:"pageSize"`
	Statuses      []string `json:"statuses"`
	SortField     string   `json:"sortField"`
	SortDirection string   `json:"sortDirection"`
}

type FilterVendorsResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Vendors []database.VendorJson `json:"filterBrsrVendorResponseList"`
	Total   int                   `json:"total"`
}

type VendorInput struct {
	VendorID      string `json:"vendorId"`
	Fy            string `json:"fy"`
	VendorName    string `json:"vendorName" validate:"required"`
	VendorEmail   string `json:"vendorEmail" validate:"required,email"`
	ContactName   string `json:"contactName" validate:"required"`
	ContactNumber string `json:"contactNumber" validate:"required,min=10"`
	AccessCode    string `json:"accessCode"`
	DeadlineDate  string `json:"deadlineDate" validate:"omitempty,datetime=2006-01-02"`
}

type vendorRef struct {
	VendorID   string `json:"vendorId"`
	AccessCode string `json:"accessCode"`
}

// companyVendor loads the vendor when it belongs to the session's company.
func companyVendor(sess session.Session, id string) (database.Vendor, error) {
	v, err := database.GetVendor(id)
	if err != nil {
		return database.Vendor{}, err
	}
	if v.CompanyID != sess.CompanyID {
		return database.Vendor{}, database.ErrNoResult
	}
	return v, nil
}

func (s *Server) fiscalYear(fy string) string {
	if fy = strings.TrimSpace(fy); fy != "" {
		return fy
	}
	return s.config().General.FiscalYear
}

func (s *Server) companyVendors(c *gin.Context, sess session.Session) ([]database.Vendor, bool) {
	vendors, err := database.AllVendors(sess.CompanyID, s.fiscalYear(c.Query("fy")))
	if err != nil {
		failErr(c, err)
		return nil, false
	}
	return vendors, true
}

// @Summary      Filter vendors
// @Description  Returns one page of the company's vendors for the fiscal year
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        body  body      FilterVendorsInput  true  "filter"
// @Success      200   {object}  FilterVendorsResponse
// @Failure      401   {object}  string
// @Router       /api/filter-brsr-vendors [post]
func (s *Server) apiFilterVendors(c *gin.Context) {
	sess, _, found := currentUser(c)
	if !found {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var input FilterVendorsInput
	if !bindJSON(c, &input) {
		return
	}
	if input.PageSize < 1 {
		input.PageSize = s.config().General.DefaultPageSize
	}
	if input.SortField != "" && !database.IsVendorSortField(input.SortField) {
		fail(c, http.StatusBadRequest, "Unknown sort field "+input.SortField)
		return
	}
	vendors, total, err := database.FilterVendors(database.VendorFilter{
		CompanyID:  sess.CompanyID,
		FiscalYear: s.fiscalYear(input.Fy),
		SearchKey:  input.SearchKey,
		Statuses:   input.Statuses,
		PageStart:  input.PageStart,
		PageSize:   input.PageSize,
		SortField:  input.SortField,
		SortDesc:   table.ParseSortDirection(input.SortDirection) == table.Descending,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	list := make([]database.VendorJson, len(vendors))
	for i := range vendors {
		list[i] = vendors[i].Json()
	}
	c.JSON(http.StatusOK, FilterVendorsResponse{Success: true, Message: "Vendors fetched successfully", Vendors: list, Total: total})
}

// @Summary      Vendor table
// @Description  Filters, searches and paginates the fiscal year's vendors and returns the resolved table view
// @Tags         vendors
// @Produce      json
// @Param        fy             query     string  false  "fiscal year"
// @Param        search         query     string  false  "search term"
// @Param        filter.status  query     string  false  "status filter, repeatable"
// @Param        filter.deadline  query   string  false  "overdue or upcoming"
// @Param        page           query     int     false  "page"
// @Param        pageSize       query     int     false  "page size"
// @Success      200  {object}  string
// @Failure      401  {object}  string
// @Router       /api/vendors/table [get]
func (s *Server) apiVendorTable(c *gin.Context) {
	sess, _, found := currentUser(c)
	if !found {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	vendors, ok := s.companyVendors(c, sess)
	if !ok {
		return
	}
	cfg := s.config().General
	q := ParseTableQuery(c.Request.URL.Query(), cfg.DefaultPageSize)
	t := NewVendorTable(vendors, q, s.now(), cfg.PageSizeOptions)
	success(c, "Vendors fetched successfully", gin.H{"table": t.View()})
}

// @Summary      Export vendors
// @Description  Downloads the fiscal year's vendors as CSV
// @Tags         vendors
// @Produce      text/csv
// @Param        fy  query  string  false  "fiscal year"
// @Success      200
// @Failure      401  {object}  string
// @Router       /api/vendors/export [get]
func (s *Server) apiVendorExport(c *gin.Context) {
	sess, _, found := currentUser(c)
	if !found {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	vendors, ok := s.companyVendors(c, sess)
	if !ok {
		return
	}
	fy := s.fiscalYear(c.Query("fy"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="vendors_%s.csv"`, fy))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := WriteVendorCSV(c.Writer, vendors); err != nil {
		logger.Log.WithField("fy", fy).Errorln("vendor export: ", err)
	}
}

// WriteVendorCSV writes a header and one record per vendor using the table
// columns plus the invitation date.
func WriteVendorCSV(w io.Writer, vendors []database.Vendor) error {
	columns := VendorColumns()
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(columns)+1)
	for i := range columns {
		header = append(header, columns[i].Header)
	}
	header = append(header, "Invited")
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range vendors {
		row := vendors[i].Json()
		record := make([]string, 0, len(columns)+1)
		for j := range columns {
			record = append(record, columns[j].Cell(row))
		}
		record = append(record, row.InvitedAt)
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// @Summary      Save vendor
// @Description  Creates a vendor when vendorId is empty and updates it otherwise
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        body  body      VendorInput  true  "vendor"
// @Success      200   {object}  string
// @Failure      400   {object}  string
// @Failure      409   {object}  string
// @Router       /api/save-brsr-vendor [post]
func (s *Server) apiSaveVendor(c *gin.Context) {
	sess, _, found := currentUser(c)
	if !found {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var input VendorInput
	if !bindJSON(c, &input) {
		return
	}
	input.VendorEmail = strings.ToLower(strings.TrimSpace(input.VendorEmail))
	if err := session.Validate(input); err != nil {
		failErr(c, err)
		return
	}
	v := database.Vendor{
		ID:            strings.TrimSpace(input.VendorID),
		CompanyID:     sess.CompanyID,
		Fy:            s.fiscalYear(input.Fy),
		VendorName:    strings.TrimSpace(input.VendorName),
		VendorEmail:   input.VendorEmail,
		ContactName:   strings.TrimSpace(input.ContactName),
		ContactNumber: strings.TrimSpace(input.ContactNumber),
		AccessCode:    input.AccessCode,
	}
	if input.DeadlineDate != "" {
		// validated above
		v.DeadlineDate, _ = time.Parse(database.DateFormat, input.DeadlineDate)
	}
	message := "Vendor added successfully"
	if v.ID != "" {
		if _, err := companyVendor(sess, v.ID); err != nil {
			failErr(c, err)
			return
		}
		message = "Vendor updated successfully"
	}
	saved, err := database.SaveVendor(v)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, message, gin.H{"vendorData": saved.Json()})
}

// @Summary      Get vendor by access code
// @Description  Resolves a vendor's access code. Used by the vendor submission page without a session
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        body  body      vendorRef  true  "accessCode"
// @Success      200   {object}  string
// @Failure      404   {object}  string
// @Router       /api/get-brsr-vendor [post]
func (s *Server) apiGetVendor(c *gin.Context) {
	var input vendorRef
	if !bindJSON(c, &input) {
		return
	}
	var (
		v   database.Vendor
		err error
	)
	switch {
	case strings.TrimSpace(input.AccessCode) != "":
		v, err = database.GetVendorByAccessCode(input.AccessCode)
	case input.VendorID != "":
		sess, _, found := currentUser(c)
		if !found {
			fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		v, err = companyVendor(sess, input.VendorID)
	default:
		fail(c, http.StatusBadRequest, "Access code is required")
		return
	}
	if err != nil {
		if errors.Is(err, database.ErrNoResult) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Invalid access code", "vendorData": nil})
			return
		}
		failErr(c, err)
		return
	}
	success(c, "Vendor fetched successfully", gin.H{"vendorData": v.Json()})
}

// @Summary      Delete vendor
// @Description  Deletes the vendor and its questionnaire answers
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        body  body      vendorRef  true  "vendorId"
// @Success      200   {object}  string
// @Failure      404   {object}  string
// @Router       /api/delete-brsr-vendor [post]
func (s *Server) apiDeleteVendor(c *gin.Context) {
	sess, _, found := currentUser(c)
	if !found {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var input vendorRef
	if !bindJSON(c, &input) {
		return
	}
	if _, err := companyVendor(sess, input.VendorID); err != nil {
		failErr(c, err)
		return
	}
	if err := database.DeleteVendor(input.VendorID); err != nil {
		failErr(c, err)
		return
	}
	success(c, "Vendor deleted successfully", nil)
}

// InvitationMessage is the text sent to a vendor asked to fill in the
// questionnaire.
func InvitationMessage(v database.Vendor, companyName string) string {
	return fmt.Sprintf("Dear %s, %s invites %s to complete the BRSR questionnaire for FY %s by %s. Your access code is %s.",
		v.ContactName, companyName, v.VendorName, v.Fy, v.DeadlineDate.Format(database.DateFormat), v.AccessCode)
}

func (s *Server) notifier() apiexternal.Notifier {
	if s.Notifier == nil {
		return apiexternal.LogNotifier{}
	}
	return s.Notifier
}

func (s *Server) sendInvitation(v database.Vendor, companyName string) error {
	err := s.notifier().SendMessage(context.Background(), InvitationMessage(v, companyName), "BRSR questionnaire invitation")
	if err != nil {
		return errors.Wrap(err, "send invitation")
	}
	return database.MarkInvited(v.ID, s.now())
}

// @Summary      Send invitation
// @Description  Queues the questionnaire invitation of a vendor. invitedAt is set once it was sent
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        body  body      vendorRef  true  "vendorId"
// @Success      200   {object}  string
// @Failure      404   {object}  string
// @Router       /api/send-brsr-invitation [post]
func (s *Server) apiSendInvitation(c *gin.Context) {
	sess, _, found := currentUser(c)
	if !found {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var input vendorRef
	if !bindJSON(c, &input) {
		return
	}
	v, err := companyVendor(sess, input.VendorID)
	if err != nil {
		failErr(c, err)
		return
	}
	companyName := ""
	if company, err := database.GetCompany(sess.CompanyID); err == nil {
		companyName = company.Name
	}

	if s.Scheduler == nil {
		if err := s.sendInvitation(v, companyName); err != nil {
			failErr(c, err)
			return
		}
		success(c, "Invitation sent", nil)
		return
	}
	job, err := s.Scheduler.Notify.Dispatch("invitation_"+v.ID, func() {
		if err := s.sendInvitation(v, companyName); err != nil {
			logger.Log.WithFields(logrus.Fields{"vendor": v.ID, "email": v.VendorEmail}).Errorln(err)
		}
	})
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, "Invitation queued", gin.H{"jobId": job.ID})
}
