//go:build unit

package middleware_test

import (
	"net/http"
	"testing"

	"cinema-booking/internal/handler/middleware"
	"cinema-booking/internal/pkg/errs"
	"cinema-booking/internal/usecase"
	"cinema-booking/tests/common/httptest"
	usecasemock "cinema-booking/tests/mock/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func newAuthRouter(t *testing.T, identity usecase.Identity) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.GET("/whoami", middleware.NewAuthMiddleware(identity).RequireAuth(), func(c *gin.Context) {
		id, ok := middleware.GetUserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id.String(), "name": middleware.GetUserName(c)})
	})
	return router
}

func TestRequireAuth(t *testing.T) {
	t.Run("valid bearer token sets the caller", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		identity := usecasemock.NewMockIdentity(ctrl)
		userID := uuid.New()
		identity.EXPECT().CurrentUser("good-token").Return(usecase.User{ID: userID, DisplayName: "alice"}, nil)

		rec := httptest.PerformRequest(t, newAuthRouter(t, identity), http.MethodGet, "/whoami", nil, "good-token")

		var body map[string]string
		httptest.AssertJSONResponse(t, rec, http.StatusOK, &body)
		assert.Equal(t, userID.String(), body["id"])
		assert.Equal(t, "alice", body["name"])
	})

	t.Run("missing token is anonymous", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		identity := usecasemock.NewMockIdentity(ctrl)
		identity.EXPECT().CurrentUser("").Return(usecase.User{}, usecase.ErrAnonymous)

		rec := httptest.PerformRequest(t, newAuthRouter(t, identity), http.MethodGet, "/whoami", nil, "")
		httptest.AssertErrorResponse(t, rec, http.StatusUnauthorized, "Authentication required")
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		identity := usecasemock.NewMockIdentity(ctrl)
		identity.EXPECT().CurrentUser("expired").
			Return(usecase.User{}, errs.Mark(errs.New("token is expired"), usecase.ErrAnonymous))

		rec := httptest.PerformRequest(t, newAuthRouter(t, identity), http.MethodGet, "/whoami", nil, "expired")
		httptest.AssertErrorResponse(t, rec, http.StatusUnauthorized, "Authentication required")
	})
}
