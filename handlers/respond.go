package handlers

import (
	"net/http"

	"teemarker/database"
	"teemarker/middleware"
	"teemarker/services/adapters"
	"teemarker/utils"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// requireUser writes a 401 and returns false when the request is anonymous.
func requireUser(c *gin.Context) (middleware.AuthUser, bool) {
	user, found := middleware.CurrentUser(c)
	if !found {
		utils.JSONError(c, http.StatusUnauthorized, "User not authenticated", "")
	}
	return user, found
}

// storeError maps a repository error: not found becomes 404 with notFound,
// anything else a logged 500 with failed.
func storeError(c *gin.Context, err error, notFound, failed string) {
	if errors.Is(err, database.ErrNotFound) {
		utils.JSONError(c, http.StatusNotFound, notFound, "")
		return
	}
	getLogger(c).Error(failed, zap.Error(err))
	utils.JSONError(c, http.StatusInternalServerError, failed, "")
}

// platformError maps an adapter failure to an HTTP status.
func platformError(c *gin.Context, err error, failed string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, adapters.ErrUnsupportedPlatform):
		status = http.StatusBadRequest
	case errors.Is(err, adapters.ErrBookingRejected):
		status = http.StatusConflict
	case errors.Is(err, adapters.ErrAuthentication),
		errors.Is(err, adapters.ErrRemoteCall),
		errors.Is(err, adapters.ErrMalformedResponse):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		getLogger(c).Error(failed, zap.Error(err))
	} else {
		getLogger(c).Warn(failed, zap.Error(err))
	}
	utils.JSONError(c, status, failed, adapters.RemoteMessage(err))
}
