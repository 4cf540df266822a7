package rpc

import (
	"bytes"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"kiwi/assistant"
	"kiwi/db"
)

const (
	LastConversationContextName = "last_conv_id"
	SessionIdContextName        = "session_id"
)

var SessionCookieName = "session_id"

// Host is the cookie domain, overridable from config.
var Host = "127.0.0.1"

const sessionMaxAge = 20 * 60 //20min

const maxErrLen = 50

const storeUnavailableDetail = "Database not configured"

// Service is the HTTP front of the conversation store. The store may be nil
// when the database was unreachable at startup; handlers surface that as a
// server error per request instead of refusing to boot.
type Service struct {
	port  string
	store db.Store
	log   *zap.SugaredLogger
}

func NewService(port string, store db.Store, log *zap.SugaredLogger) *Service {
	return &Service{port: port, store: store, log: log}
}

type ginLogger struct {
	log *zap.SugaredLogger
}

func (l *ginLogger) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if strings.Index(msg, `"/healthcheck"`) > 0 {
		return len(p), nil
	}
	l.log.Debug(msg)
	return len(p), nil
}

func (s *Service) Start() error {
	gin.DefaultWriter = &ginLogger{log: s.log}
	r := s.routes()
	address := "0.0.0.0:" + s.port
	s.log.Infow("start rpc", "address", address)
	return r.Run(address)
}

func (s *Service) routes() *gin.Engine {
	r := gin.Default()
	store := cookie.NewStore([]byte("kiwi-session-secret")) //TODO:redis session store
	store.Options(sessions.Options{
		MaxAge: sessionMaxAge,
	})
	r.Use(Cors())
	r.Use(sessions.Sessions("user", store))
	r.Use(UserSession())

	r.SetTrustedProxies(nil)
	r.GET("/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/", s.HandleRoot)
	r.GET("/api/hello", s.HandleHello)
	r.GET("/test", s.HandleDiagnostics)
	r.POST("/api/conversations", s.HandleCreateConversation)
	r.GET("/api/conversations", s.HandleListConversations)
	r.GET("/api/conversations/:id/messages", s.HandleListMessages)
	r.POST("/api/conversations/:id/messages", s.HandleSendMessage)
	r.GET("/api/session", s.HandleSession)
	r.GET("/api/refresh", s.HandleRefresh)
	return r
}

type ConversationCreate struct {
	Title string `json:"title" binding:"required"`
	Model string `json:"model"`
}

type ConversationOut struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Model string `json:"model"`
}

type MessageCreate struct {
	Role    string `json:"role" binding:"omitempty,oneof=user system"`
	Content string `json:"content" binding:"required"`
}

type MessageOut struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

func abortDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// truncateErr keeps raw driver errors out of response bodies.
func truncateErr(err error) string {
	msg := err.Error()
	if len(msg) > maxErrLen {
		msg = msg[:maxErrLen]
	}
	return msg
}

func (s *Service) HandleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello from the Kiwi backend!"})
}

func (s *Service) HandleHello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello from the backend API!"})
}

func (s *Service) HandleCreateConversation(c *gin.Context) {
	var in ConversationCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if in.Model == "" {
		in.Model = assistant.DefaultModel
	}
	if s.store == nil {
		abortDetail(c, http.StatusInternalServerError, storeUnavailableDetail)
		return
	}
	id, err := s.store.CreateConversation(c.Request.Context(), db.Conversation{
		Title: in.Title,
		Model: in.Model,
	})
	if err != nil {
		abortDetail(c, http.StatusInternalServerError, truncateErr(err))
		return
	}
	s.rememberConversation(c, id)
	c.JSON(http.StatusOK, ConversationOut{ID: id, Title: in.Title, Model: in.Model})
}

func (s *Service) HandleListConversations(c *gin.Context) {
	if s.store == nil {
		abortDetail(c, http.StatusInternalServerError, storeUnavailableDetail)
		return
	}
	convs, err := s.store.ListConversations(c.Request.Context())
	if err != nil {
		abortDetail(c, http.StatusInternalServerError, truncateErr(err))
		return
	}
	// Newest first. ObjectIDs start with the creation timestamp, so byte
	// order is creation order with the counter breaking same-second ties.
	sort.SliceStable(convs, func(i, j int) bool {
		return bytes.Compare(convs[i].ID[:], convs[j].ID[:]) > 0
	})
	out := make([]ConversationOut, 0, len(convs))
	for _, conv := range convs {
		if conv.Model == "" {
			conv.Model = assistant.DefaultModel
		}
		out = append(out, ConversationOut{ID: conv.ID.Hex(), Title: conv.Title, Model: conv.Model})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Service) HandleListMessages(c *gin.Context) {
	convID := c.Param("id")
	if _, err := primitive.ObjectIDFromHex(convID); err != nil {
		abortDetail(c, http.StatusBadRequest, "Invalid conversation id")
		return
	}
	if s.store == nil {
		abortDetail(c, http.StatusInternalServerError, storeUnavailableDetail)
		return
	}
	msgs, err := s.store.ListMessages(c.Request.Context(), convID)
	if err != nil {
		abortDetail(c, http.StatusInternalServerError, truncateErr(err))
		return
	}
	out := make([]MessageOut, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, MessageOut{ID: msg.ID.Hex(), Role: msg.Role, Content: msg.Content})
	}
	c.JSON(http.StatusOK, out)
}

// HandleSendMessage persists the inbound message and a synthesized assistant
// reply. The pair is not one write: if the reply insert fails the user message
// is deleted again so the conversation is not left half-written.
func (s *Service) HandleSendMessage(c *gin.Context) {
	convID := c.Param("id")
	if _, err := primitive.ObjectIDFromHex(convID); err != nil {
		abortDetail(c, http.StatusBadRequest, "Invalid conversation id")
		return
	}
	var in MessageCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		abortDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if in.Role == "" {
		in.Role = assistant.UserRole
	}
	if s.store == nil {
		abortDetail(c, http.StatusInternalServerError, storeUnavailableDetail)
		return
	}
	ctx := c.Request.Context()
	userID, err := s.store.CreateMessage(ctx, db.Message{
		ConversationID: convID,
		Role:           in.Role,
		Content:        in.Content,
	})
	if err != nil {
		abortDetail(c, http.StatusInternalServerError, truncateErr(err))
		return
	}
	replyText := assistant.Reply(in.Content)
	asstID, err := s.store.CreateMessage(ctx, db.Message{
		ConversationID: convID,
		Role:           assistant.AssistantRole,
		Content:        replyText,
	})
	if err != nil {
		if derr := s.store.DeleteMessage(ctx, userID); derr != nil {
			s.log.Errorw("compensating delete failed", "id", userID, "error", derr)
		}
		abortDetail(c, http.StatusInternalServerError, truncateErr(err))
		return
	}
	s.rememberConversation(c, convID)
	c.JSON(http.StatusOK, []MessageOut{
		{ID: userID, Role: in.Role, Content: in.Content},
		{ID: asstID, Role: assistant.AssistantRole, Content: replyText},
	})
}

type Diagnostics struct {
	Backend          string   `json:"backend"`
	Database         string   `json:"database"`
	DatabaseURL      string   `json:"database_url"`
	DatabaseName     string   `json:"database_name"`
	ConnectionStatus string   `json:"connection_status"`
	Collections      []string `json:"collections"`
}

func (s *Service) HandleDiagnostics(c *gin.Context) {
	resp := Diagnostics{
		Backend:          "✅ Running",
		Database:         "❌ Not Available",
		ConnectionStatus: "Not Connected",
		Collections:      []string{},
	}
	if s.store != nil {
		ctx := c.Request.Context()
		if err := s.store.Ping(ctx); err != nil {
			resp.Database = "❌ Error: " + truncateErr(err)
		} else {
			resp.ConnectionStatus = "Connected"
			names, err := s.store.CollectionNames(ctx)
			if err != nil {
				resp.Database = "⚠️  Connected but Error: " + truncateErr(err)
			} else {
				if len(names) > 10 {
					names = names[:10]
				}
				resp.Collections = names
				resp.Database = "✅ Connected & Working"
			}
		}
	}
	resp.DatabaseURL = envStatus("DATABASE_URL")
	resp.DatabaseName = envStatus("DATABASE_NAME")
	c.JSON(http.StatusOK, resp)
}

func envStatus(key string) string {
	if os.Getenv(key) != "" {
		return "✅ Set"
	}
	return "❌ Not Set"
}

// HandleSession reports the conversation this caller's session last touched,
// empty when there is none or the session expired.
func (s *Service) HandleSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"conversationId": c.GetString(LastConversationContextName),
	})
}

func (s *Service) HandleRefresh(c *gin.Context) {
	defer func() {
		c.String(http.StatusOK, "success")
	}()
	sessionID := c.GetString(SessionIdContextName)
	if sessionID == "" {
		return
	}
	sess := sessions.Default(c)
	sess.Delete(sessionID)
	sess.Save()
	s.log.Infow("session cleared", "session_id", sessionID)
}

// rememberConversation stores the conversation a caller last touched in their
// cookie session. Convenience only, it grants nothing.
func (s *Service) rememberConversation(c *gin.Context, convID string) {
	sessionID := c.GetString(SessionIdContextName)
	if sessionID == "" {
		return
	}
	data, err := json.Marshal(&UserStatus{
		ConversationId: convID,
		LastTime:       time.Now().Unix(),
	})
	if err != nil {
		return
	}
	sess := sessions.Default(c)
	sess.Set(sessionID, string(data))
	if err := sess.Save(); err != nil {
		s.log.Debugw("save session", "error", err)
	}
}
