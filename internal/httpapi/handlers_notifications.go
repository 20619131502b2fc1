package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/objectql/objectos-sub004/internal/notify"
)

type sendNotificationRequest struct {
	Channel    string         `json:"channel"`
	Recipients []string       `json:"recipients"`
	Subject    string         `json:"subject"`
	Body       string         `json:"body"`
	Template   string         `json:"template"`
	Data       map[string]any `json:"data"`
	MaxRetries int            `json:"maxRetries"`
}

func (s *Server) chiNotifySend(w http.ResponseWriter, r *http.Request) {
	if s.deps.Notify == nil {
		writeChiError(w, http.StatusServiceUnavailable, "notification queue not configured")
		return
	}
	var req sendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeChiError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.deps.Notify.Send(r.Context(), notify.Request{
		Channel:    notify.Channel(req.Channel),
		Recipients: req.Recipients,
		Subject:    req.Subject,
		Body:       req.Body,
		Template:   req.Template,
		Data:       req.Data,
	}, req.MaxRetries)
	if err != nil {
		writeChiServiceError(w, err)
		return
	}
	writeChiJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

// knownChannels lists every transport the notification queue understands,
// independent of which handlers the running deployment has registered.
var knownChannels = []notify.Channel{
	notify.ChannelEmail, notify.ChannelSMS, notify.ChannelPush, notify.ChannelWebhook,
}

func (s *Server) chiNotifyChannels(w http.ResponseWriter, r *http.Request) {
	writeChiJSON(w, http.StatusOK, knownChannels)
}

func (s *Server) chiNotifyQueueStatus(w http.ResponseWriter, r *http.Request) {
	if s.deps.Notify == nil {
		writeChiError(w, http.StatusServiceUnavailable, "notification queue not configured")
		return
	}
	writeChiJSON(w, http.StatusOK, s.deps.Notify.Status())
}
