package api

import (
	"net/http"
	"strings"

	"github.com/cloudfinch-harshad/rampart/database"
	gin "github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

func AddBrsrRoutes(rg *gin.RouterGroup, s *Server) {
	rg.POST("/get-brsr-compliance", s.apiGetCompliance)
	rg.POST("/get-brsr-items", s.apiGetCompliance)
	rg.POST("/save-brsr-item", s.apiSaveBrsrItem)
}

type ComplianceInput struct {
	Fy         string `json:"fy"`
	VendorID   string `json:"vendorId"`
	AccessCode string `json:"accessCode"`
}

type ComplianceResponse struct {
	Success              bool                           `json:"success"`
	Message              string                         `json:"message"`
	VendorID             *string                        `json:"vendorId"`
	VendorName           string                         `json:"vendorName"`
	VendorEmail          string                         `json:"vendorEmail"`
	AccessCode           string                         `json:"accessCode"`
	DeadlineDate         *string                        `json:"deadlineDate"`
	CompletionStatus     string                         `json:"completionStatus"`
	SubmittedDate        *string                        `json:"submittedDate"`
	OrganizationName     string                         `json:"organizationName"`
	CompletionPercentage int                            `json:"completionPercentage"`
	Sections             []database.BrsrSectionResponse `json:"getBrsrSectionResponseList"`
}

type SaveBrsrItemInput struct {
	BrsrMasterID string  `json:"brsrMasterId"`
	BrsrItemID   *string `json:"brsrItemId"`
	VendorID     string  `json:"vendorId"`
	AccessCode   string  `json:"accessCode"`
	Response     string  `json:"response"`
	Notes        string  `json:"notes"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// resolveVendor finds the vendor by access code, or by id when the session
// belongs to the vendor's company. found is false when neither was given.
func resolveVendor(c *gin.Context, vendorID, accessCode string) (database.Vendor, bool, error) {
	if code := strings.TrimSpace(accessCode); code != "" {
		v, err := database.GetVendorByAccessCode(code)
		return v, true, err
	}
	if vendorID == "" {
		return database.Vendor{}, false, nil
	}
	sess, _, found := currentUser(c)
	if !found {
		return database.Vendor{}, true, errors.Wrap(database.ErrNoResult, "vendor")
	}
	v, err := companyVendor(sess, vendorID)
	return v, true, err
}

// @Summary      Compliance questionnaire
// @Description  Returns the BRSR sections with the vendor's answers and completion percentages. Without a vendor the empty questionnaire is returned to logged in users
// @Tags         brsr
// @Accept       json
// @Produce      json
// @Param        body  body      ComplianceInput  true  "vendorId or accessCode"
// @Success      200   {object}  ComplianceResponse
// @Failure      401   {object}  string
// @Failure      404   {object}  string
// @Router       /api/get-brsr-compliance [post]
func (s *Server) apiGetCompliance(c *gin.Context) {
	var input ComplianceInput
	if !bindJSON(c, &input) {
		return
	}
	v, found, err := resolveVendor(c, input.VendorID, input.AccessCode)
	if err != nil {
		if errors.Is(err, database.ErrNoResult) {
			fail(c, http.StatusNotFound, "Vendor not found")
			return
		}
		failErr(c, err)
		return
	}
	resp := ComplianceResponse{Success: true, Message: "BRSR items fetched successfully"}
	if found {
		vj := v.Json()
		resp.VendorID = optional(vj.ID)
		resp.VendorName = vj.VendorName
		resp.VendorEmail = vj.VendorEmail
		resp.AccessCode = vj.AccessCode
		resp.DeadlineDate = optional(vj.DeadlineDate)
		resp.CompletionStatus = vj.CompletionStatus
		resp.SubmittedDate = optional(vj.SubmittedDate)
		if company, err := database.GetCompany(v.CompanyID); err == nil {
			resp.OrganizationName = company.Name
		}
	} else {
		sess, _, loggedIn := currentUser(c)
		if !loggedIn {
			fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if company, err := database.GetCompany(sess.CompanyID); err == nil {
			resp.OrganizationName = company.Name
		}
	}
	resp.Sections, err = database.GetBrsrSections(v.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	resp.CompletionPercentage = database.OverallCompletion(resp.Sections)
	c.JSON(http.StatusOK, resp)
}

// @Summary      Save questionnaire answer
// @Description  Stores the vendor's answer to one requirement and refreshes the vendor's completion status
// @Tags         brsr
// @Accept       json
// @Produce      json
// @Param        body  body      SaveBrsrItemInput  true  "answer"
// @Success      200   {object}  string
// @Failure      400   {object}  string
// @Failure      404   {object}  string
// @Router       /api/save-brsr-item [post]
func (s *Server) apiSaveBrsrItem(c *gin.Context) {
	var input SaveBrsrItemInput
	if !bindJSON(c, &input) {
		return
	}
	if strings.TrimSpace(input.BrsrMasterID) == "" {
		fail(c, http.StatusBadRequest, "Requirement is required")
		return
	}
	v, found, err := resolveVendor(c, input.VendorID, input.AccessCode)
	if !found {
		fail(c, http.StatusBadRequest, "Vendor or access code is required")
		return
	}
	if err != nil {
		if errors.Is(err, database.ErrNoResult) {
			fail(c, http.StatusNotFound, "Vendor not found")
			return
		}
		failErr(c, err)
		return
	}
	item, err := database.SaveBrsrItem(database.BrsrItem{
		BrsrMasterID: input.BrsrMasterID,
		VendorID:     v.ID,
		Response:     input.Response,
		Notes:        input.Notes,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	status := v.CompletionStatus
	if updated, err := database.GetVendor(v.ID); err == nil {
		status = updated.CompletionStatus
	}
	success(c, "Response saved successfully", gin.H{"brsrItemId": item.ID, "completionStatus": status})
}
