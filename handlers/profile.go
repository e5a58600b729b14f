package handlers

import (
	"net/http"

	"teemarker/database"
	userRepo "teemarker/database/repository/user"
	"teemarker/models"
	"teemarker/utils"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

const defaultTimezone = "America/New_York"

type ProfileHandler struct {
	Users     userRepo.UserRepository
	JWTSecret string
}

func NewProfileHandler(users userRepo.UserRepository, jwtSecret string) *ProfileHandler {
	return &ProfileHandler{Users: users, JWTSecret: jwtSecret}
}

// GetProfileHandler returns the caller's profile, creating a default one on
// first access.
func (h *ProfileHandler) GetProfileHandler(c *gin.Context) {
	user, found := requireUser(c)
	if !found {
		return
	}
	ctx := c.Request.Context()
	profile, err := h.Users.GetByID(ctx, user.ID)
	if err == nil {
		ok(c, http.StatusOK, profile)
		return
	}
	if !errors.Is(err, database.ErrNotFound) {
		storeError(c, err, "", "Failed to fetch user profile")
		return
	}

	profile = &models.User{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Preferences: models.UserPreferences{
			Notifications: models.NotificationPreferences{Email: true, Push: true},
			Timezone:      defaultTimezone,
		},
	}
	if err := h.Users.Create(ctx, profile); err != nil {
		storeError(c, err, "", "Failed to fetch user profile")
		return
	}
	ok(c, http.StatusOK, profile)
}

type profileInput struct {
	Name        *string                 `json:"name"`
	Phone       *string                 `json:"phone"`
	Preferences *models.UserPreferences `json:"preferences"`
}

func (h *ProfileHandler) UpdateProfileHandler(c *gin.Context) {
	user, found := requireUser(c)
	if !found {
		return
	}
	var in profileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	profile, err := h.Users.UpdateProfile(c.Request.Context(), user.ID, userRepo.ProfileUpdate{
		Name:        in.Name,
		Phone:       in.Phone,
		Preferences: in.Preferences,
	})
	if err != nil {
		storeError(c, err, "User profile not found", "Failed to update user profile")
		return
	}
	ok(c, http.StatusOK, profile)
}

// VerifyTokenHandler checks a token sent in the body and echoes its identity.
func (h *ProfileHandler) VerifyTokenHandler(c *gin.Context) {
	var in struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Token == "" {
		utils.JSONError(c, http.StatusBadRequest, "Token is required", "")
		return
	}
	claims, err := utils.ValidateToken(h.JWTSecret, in.Token)
	if err != nil {
		utils.JSONError(c, http.StatusUnauthorized, "Invalid token", "")
		return
	}
	name := claims.Name
	if name == "" {
		name = emailLocalPart(claims.Email)
	}
	ok(c, http.StatusOK, gin.H{"uid": claims.Subject, "email": claims.Email, "name": name})
}

func emailLocalPart(email string) string {
	for i := range len(email) {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}
