package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/taskbridge/internal/notify"
)

const healthTimeout = 2 * time.Second

var chatIDPattern = regexp.MustCompile(`^-?\d+$`)

// secretMatches compares in constant time. An unconfigured secret never matches.
func secretMatches(configured, given string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(given)) == 1
}

// handleWebhook acknowledges every authenticated update with 200 so the
// platform does not retry; processing failures are only logged.
func (s *Server) handleWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	if !secretMatches(s.cfg.Telegram.WebhookSecret, c.Param("secret")) {
		s.logger.WarnContext(ctx, "Rejected webhook call with invalid secret", "client_ip", c.ClientIP())
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "invalid secret"})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "Panic while handling telegram update", "panic", r)
			if !c.Writer.Written() {
				c.JSON(http.StatusOK, gin.H{"ok": true})
			}
		}
	}()

	var update models.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		s.logger.ErrorContext(ctx, "Failed to decode telegram update", "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	// Handlers may reply after the response is written.
	if err := s.deps.Bridge.HandleUpdate(context.WithoutCancel(ctx), &update); err != nil {
		s.logger.ErrorContext(ctx, "Error handling telegram update", "error", err, "update_id", update.ID)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type sendMessageRequest struct {
	ProfileID  int64          `json:"profileId"  binding:"required,gt=0"`
	Task       notify.Payload `json:"task"`
	AdminEmail string         `json:"adminEmail" binding:"omitempty,email"`
	AIURL      string         `json:"aiUrl"`
}

type deliveryResponse struct {
	OK        bool   `json:"ok"`
	MessageID int    `json:"message_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

func toDeliveryResponse(res notify.DeliveryResult) deliveryResponse {
	resp := deliveryResponse{OK: res.OK, MessageID: res.MessageID, Reason: string(res.Reason)}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return resp
}

// handleSendMessage notifies a profile about a task assignment.
func (s *Server) handleSendMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request: " + err.Error()})
		return
	}

	profile, err := s.deps.Store.GetProfile(ctx, req.ProfileID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load profile", "error", err, "profile_id", req.ProfileID)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal server error"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "profile not found"})
		return
	}

	var raw string
	if profile.TelegramChatID.Valid {
		raw = strconv.FormatInt(profile.TelegramChatID.Int64, 10)
	}
	chatID := strings.Join(strings.Fields(raw), "")
	if !chatIDPattern.MatchString(chatID) {
		s.logger.WarnContext(ctx, "Profile has no usable chat id", "profile_id", profile.ID)
		c.JSON(http.StatusBadRequest, deliveryResponse{Reason: string(notify.ReasonInvalidChatIDFmt)})
		return
	}

	adminContact := req.AdminEmail
	if adminContact == "" {
		adminContact = s.cfg.Notifications.AdminContact
	}

	recipient := notify.Recipient{
		ProfileID: profile.ID,
		Name:      profile.FullName,
		ChatID:    notify.ChatID(chatID),
	}
	res := s.deps.Notifier.SendTaskAssigned(ctx, recipient, req.Task, adminContact, req.AIURL)
	c.JSON(http.StatusOK, toDeliveryResponse(res))
}

type deliveryLogResponse struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"taskId"`
	ChatID    string    `json:"chatId"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	MessageID int       `json:"messageId,omitempty"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// handleListDeliveries returns recent delivery attempts for a profile.
func (s *Server) handleListDeliveries(c *gin.Context) {
	ctx := c.Request.Context()

	profileID, err := strconv.ParseInt(c.Param("profileId"), 10, 64)
	if err != nil || profileID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid profile id"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid limit"})
		return
	}

	logs, err := s.deps.Store.ListDeliveryLogs(ctx, profileID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal server error"})
		return
	}

	out := make([]deliveryLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, deliveryLogResponse{
			ID:        l.ID,
			TaskID:    l.TaskID,
			ChatID:    l.ChatID,
			Status:    l.Status,
			Reason:    l.Reason,
			MessageID: l.MessageID,
			Summary:   l.Summary,
			CreatedAt: l.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deliveries": out})
}

// handleHealth reports bridge state and database reachability.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	inst := s.deps.Bridge.Instance()
	bridge := gin.H{
		"configured": inst.Configured(),
		"started":    inst.Started(),
		"mode":       s.deps.Bridge.Mode(),
	}

	status, dbState := http.StatusOK, "ok"
	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Database health check failed", "error", err)
		status, dbState = http.StatusServiceUnavailable, "unavailable"
	}

	c.JSON(status, gin.H{
		"status":    http.StatusText(status),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"bridge":    bridge,
		"database":  dbState,
	})
}
