package handler

import (
	"log"
	"net/http"

	"core/internal/service"
	"core/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/twilio/twilio-go/twiml"
)

// VoiceHandler handles the Twilio voice webhooks that drive a call.
type VoiceHandler struct {
	machine *service.DialogueMachine
	store   *session.Store
}

// NewVoiceHandler creates a new voice webhook handler
func NewVoiceHandler(machine *service.DialogueMachine, store *session.Store) *VoiceHandler {
	return &VoiceHandler{
		machine: machine,
		store:   store,
	}
}

// Start handles POST /voice, the start-of-call webhook. It opens a session
// and asks the telephony layer to capture the caller's first utterance.
func (h *VoiceHandler) Start(c *gin.Context) {
	callID := callIDFromRequest(c)
	_, created := h.store.GetOrCreate(callID)
	if created {
		log.Printf("Call %s: session created", callID)
	}

	gather := &twiml.VoiceGather{
		Input:  "speech",
		Action: "/handle-intent",
		Method: "POST",
		InnerElements: []twiml.Element{
			&twiml.VoiceSay{Message: service.Greeting},
		},
	}
	respondTwiML(c, []twiml.Element{
		gather,
		&twiml.VoiceSay{Message: service.DisconnectNotice},
	})
}

// HandleIntent handles POST /handle-intent, the per-turn webhook. It runs
// one dialogue turn and either loops back with a follow-up question or
// speaks the result summary and hangs up.
func (h *VoiceHandler) HandleIntent(c *gin.Context) {
	callID := callIDFromRequest(c)
	utterance := c.PostForm("SpeechResult")
	if utterance == "" {
		utterance = c.PostForm("TranscriptionText")
	}
	contact := c.PostForm("From")

	result := h.machine.ProcessTurn(c.Request.Context(), callID, utterance, contact)

	if !result.Done {
		gather := &twiml.VoiceGather{
			Input:  "speech",
			Action: "/handle-intent",
			Method: "POST",
			InnerElements: []twiml.Element{
				&twiml.VoiceSay{Message: result.Question},
			},
		}
		respondTwiML(c, []twiml.Element{gather})
		return
	}

	log.Printf("Call %s: concluded with %d matches", callID, len(result.Matches))
	respondTwiML(c, []twiml.Element{
		&twiml.VoiceSay{Message: result.Summary},
		&twiml.VoiceSay{Message: result.Closing},
		&twiml.VoiceHangup{},
	})
}

// callIDFromRequest returns the telephony call identifier, minting a
// synthetic one when the webhook arrives without it so the conversation can
// still proceed as a fresh session.
func callIDFromRequest(c *gin.Context) string {
	if sid := c.PostForm("CallSid"); sid != "" {
		return sid
	}
	return "anon-" + uuid.NewString()
}

// respondTwiML renders verbs to TwiML. The response is always well-formed
// XML; a render failure degrades to a plain goodbye rather than an error
// the telephony layer would read to the caller.
func respondTwiML(c *gin.Context, verbs []twiml.Element) {
	doc, err := twiml.Voice(verbs)
	if err != nil {
		log.Printf("Failed to render TwiML: %v", err)
		doc = `<?xml version="1.0" encoding="UTF-8"?><Response><Say>Thank you for calling. Goodbye.</Say><Hangup/></Response>`
	}
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(doc))
}
