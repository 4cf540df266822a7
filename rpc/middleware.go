package rpc

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

const SessionTimeout = 60 * 20

// UserStatus is what a cookie session remembers about a caller.
type UserStatus struct {
	ConversationId string `json:"conversationId"`
	LastTime       int64  `json:"lastTime"`
}

func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
		}
	}
}

// UserSession gives every caller a session id cookie and restores their last
// conversation id into the request context while the session is fresh.
func UserSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookieName)
		if err != nil || sessionID == "" {
			sessionID = uuid.New().String()
		}
		c.SetCookie(SessionCookieName, sessionID, 3600, "/", Host, false, false)
		c.Set(SessionIdContextName, sessionID)

		sess := sessions.Default(c)
		stat := sess.Get(sessionID)
		statusStr, ok := stat.(string)
		if !ok {
			return
		}
		var status UserStatus
		if err := json.Unmarshal([]byte(statusStr), &status); err != nil {
			return
		}
		if time.Now().Unix()-status.LastTime > SessionTimeout {
			return
		}
		c.Set(LastConversationContextName, status.ConversationId)
	}
}
