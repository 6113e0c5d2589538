package handler

import (
	"context"
	"log"
	"net/http"

	"core/internal/repository"
	"core/internal/session"

	"github.com/gin-gonic/gin"
)

// terminalCallStatuses are the telephony statuses after which no further
// turn can arrive for a call.
var terminalCallStatuses = map[string]bool{
	"completed": true,
	"busy":      true,
	"failed":    true,
	"no-answer": true,
	"canceled":  true,
}

// StatusHandler handles Twilio call-status callbacks. It is the janitor for
// abandoned calls: if a caller hangs up mid-conversation, the terminal
// status callback destroys the session the dialogue never concluded.
type StatusHandler struct {
	store   *session.Store
	callLog *repository.CallLogRepository
}

// NewStatusHandler creates a new call-status handler. callLog may be nil.
func NewStatusHandler(store *session.Store, callLog *repository.CallLogRepository) *StatusHandler {
	return &StatusHandler{
		store:   store,
		callLog: callLog,
	}
}

// Callback handles POST /call-status
func (h *StatusHandler) Callback(c *gin.Context) {
	callID := c.PostForm("CallSid")
	status := c.PostForm("CallStatus")
	if callID == "" || !terminalCallStatuses[status] {
		c.Status(http.StatusNoContent)
		return
	}

	h.store.Remove(callID)
	log.Printf("Call %s: status %s, session removed", callID, status)

	if h.callLog != nil {
		go func() {
			if err := h.callLog.LogCallStatus(context.Background(), callID, status); err != nil {
				log.Printf("Failed to log status for call %s: %v", callID, err)
			}
		}()
	}

	c.Status(http.StatusNoContent)
}
