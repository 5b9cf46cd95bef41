package middleware

import (
	"github.com/gin-gonic/gin"

	"seochat/internal/app"
	"seochat/internal/model"
	"seochat/internal/transport/http/response"
)

const ContextProfileKey = "profile"

// RequireSession re-validates the session cookie against the store on every
// request and stores the caller's profile in the context.
func RequireSession(sessions *app.SessionService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cookieName)
		if err != nil || sessionID == "" {
			response.Abort(c, app.ErrSessionInvalid)
			return
		}

		profile, err := sessions.Validate(c.Request.Context(), sessionID)
		if err != nil {
			response.Abort(c, err)
			return
		}

		c.Set(ContextProfileKey, profile)
		c.Next()
	}
}

func GetProfile(c *gin.Context) (*model.UserProfile, bool) {
	v, ok := c.Get(ContextProfileKey)
	if !ok {
		return nil, false
	}
	profile, ok := v.(*model.UserProfile)
	return profile, ok
}
