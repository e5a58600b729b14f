package handlers

import (
	"net/http"
	"slices"

	automationRepo "teemarker/database/repository/automation"
	"teemarker/models"
	"teemarker/services/normalize"
	"teemarker/utils"

	"github.com/gin-gonic/gin"
)

const defaultCheckInterval = 30

type AutomationHandler struct {
	Automations automationRepo.AutomationRepository
}

func NewAutomationHandler(automations automationRepo.AutomationRepository) *AutomationHandler {
	return &AutomationHandler{Automations: automations}
}

type automationInput struct {
	Name          *string           `json:"name"`
	Courses       *[]string         `json:"courses"`
	TimeRange     *models.TimeRange `json:"timeRange"`
	DaysOfWeek    *[]int            `json:"daysOfWeek"`
	CheckInterval *int              `json:"checkInterval"`
	BookingAction *string           `json:"bookingAction"`
	IsActive      *bool             `json:"isActive"`
}

// validate checks the fields that are present.
func (in automationInput) validate() string {
	if in.TimeRange != nil {
		start, end := normalize.ParseTime(in.TimeRange.Start), normalize.ParseTime(in.TimeRange.End)
		if !isClock(start) || !isClock(end) {
			return "timeRange start and end must be HH:MM"
		}
		if start > end {
			return "timeRange start must not be after end"
		}
	}
	if in.DaysOfWeek != nil {
		for _, d := range *in.DaysOfWeek {
			if d < 0 || d > 6 {
				return "daysOfWeek must be between 0 and 6"
			}
		}
	}
	if in.CheckInterval != nil && *in.CheckInterval < 1 {
		return "checkInterval must be at least one minute"
	}
	if in.BookingAction != nil && *in.BookingAction != models.BookingActionNotify && *in.BookingAction != models.BookingActionAutoBook {
		return "bookingAction must be notify or auto-book"
	}
	return ""
}

func isClock(s string) bool {
	return len(s) == 5 && s[2] == ':'
}

func (in automationInput) apply(a *models.Automation) {
	if in.Name != nil {
		a.Name = *in.Name
	}
	if in.Courses != nil {
		a.Courses = *in.Courses
	}
	if in.TimeRange != nil {
		a.TimeRange = models.TimeRange{
			Start: normalize.ParseTime(in.TimeRange.Start),
			End:   normalize.ParseTime(in.TimeRange.End),
		}
	}
	if in.DaysOfWeek != nil {
		days := slices.Clone(*in.DaysOfWeek)
		slices.Sort(days)
		a.DaysOfWeek = slices.Compact(days)
	}
	if in.CheckInterval != nil {
		a.CheckInterval = *in.CheckInterval
		a.NextCheck = nil
	}
	if in.BookingAction != nil {
		a.BookingAction = *in.BookingAction
	}
	if in.IsActive != nil {
		if *in.IsActive && !a.IsActive {
			a.NextCheck = nil
		}
		a.IsActive = *in.IsActive
	}
}

// owned loads the automation and enforces that the caller owns it.
func (h *AutomationHandler) owned(c *gin.Context, userID, failed string) (*models.Automation, bool) {
	a, err := h.Automations.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "Automation not found", failed)
		return nil, false
	}
	if a.UserID != userID {
		utils.JSONError(c, http.StatusForbidden, "Access denied", "")
		return nil, false
	}
	return a, true
}

func (h *AutomationHandler) ListAutomationsHandler(c *gin.Context) {
	user, found := requireUser(c)
	if !found {
		return
	}
	automations, err := h.Automations.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		storeError(c, err, "", "Failed to fetch automations")
		return
	}
	ok(c, http.StatusOK, automations)
}

func (h *AutomationHandler) GetAutomationHandler(c *gin.Context) {
	user, found := requireUser(c)
	if !found {
		return
	}
	a, allowed := h.owned(c, user.ID, "Failed to fetch automation")
	if !allowed {
		return
	}
	ok(c, http.StatusOK, a)
}

// CreateAutomationHandler creates an automation. Only auto-book automations
// start active; notify ones must be switched on explicitly.
func (h *AutomationHandler) CreateAutomationHandler(c *gin.Context) {
	user, found := requireUser(c)
	if !found {
		return
	}
	var in automationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if in.Name == nil || *in.Name == "" || in.Courses == nil || len(*in.Courses) == 0 || in.TimeRange == nil {
		utils.JSONError(c, http.StatusBadRequest, "Missing required fields", "name, courses and timeRange are required")
		return
	}
	if msg := in.validate(); msg != "" {
		utils.JSONError(c, http.StatusBadRequest, "Invalid automation", msg)
		return
	}

	a := models.Automation{
		UserID:        user.ID,
		CheckInterval: defaultCheckInterval,
		BookingAction: models.BookingActionNotify,
		DaysOfWeek:    []int{},
	}
	in.IsActive = nil
	in.apply(&a)
	a.IsActive = a.BookingAction == models.BookingActionAutoBook

	if err := h.Automations.Create(c.Request.Context(), &a); err != nil {
		storeError(c, err, "", "Failed to create automation")
		return
	}
	ok(c, http.StatusCreated, a)
}

func (h *AutomationHandler) UpdateAutomationHandler(c *gin.Context) {
	user, found := requireUser(c)
	if !found {
		return
	}
	var in automationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if msg := in.validate(); msg != "" {
		utils.JSONError(c, http.StatusBadRequest, "Invalid automation", msg)
		return
	}

	a, allowed := h.owned(c, user.ID, "Failed to update automation")
	if !allowed {
		return
	}
	in.apply(a)
	if err := h.Automations.Update(c.Request.Context(), a); err != nil {
		storeError(c, err, "Automation not found", "Failed to update automation")
		return
	}
	ok(c, http.StatusOK, a)
}

func (h *AutomationHandler) DeleteAutomationHandler(c *gin.Context) {
	user, found := requireUser(c)
	if !found {
		return
	}
	if _, allowed := h.owned(c, user.ID, "Failed to delete automation"); !allowed {
		return
	}
	if err := h.Automations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		storeError(c, err, "Automation not found", "Failed to delete automation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Automation deleted successfully"})
}

func (h *AutomationHandler) ToggleAutomationHandler(c *gin.Context) {
	user, found := requireUser(c)
	if !found {
		return
	}
	a, allowed := h.owned(c, user.ID, "Failed to toggle automation")
	if !allowed {
		return
	}
	active := !a.IsActive
	automationInput{IsActive: &active}.apply(a)
	if err := h.Automations.Update(c.Request.Context(), a); err != nil {
		storeError(c, err, "Automation not found", "Failed to toggle automation")
		return
	}
	ok(c, http.StatusOK, gin.H{"id": a.ID, "isActive": a.IsActive})
}
