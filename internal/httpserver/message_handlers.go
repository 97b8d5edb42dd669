package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lingochat/internal/domain"
	"lingochat/internal/metrics"
	"lingochat/internal/service"
	"lingochat/internal/ws"
)

type messageSendRequest struct {
	Text           string `json:"text"`
	Image          string `json:"image"`
	OriginalText   string `json:"originalText"`
	TranslatedFrom string `json:"translatedFrom"`
	TranslatedTo   string `json:"translatedTo"`
}

func handleSendMessage(msgSvc *service.MessageService, hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		receiverID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
			return
		}
		var req messageSendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		msg, err := msgSvc.SendMessage(r.Context(), service.MessageSendInput{
			ReceiverID:     receiverID,
			Text:           req.Text,
			Image:          req.Image,
			OriginalText:   req.OriginalText,
			TranslatedFrom: req.TranslatedFrom,
			TranslatedTo:   req.TranslatedTo,
		}, currentUser.ID)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, domain.ErrEmptyMessage) {
				status = http.StatusUnprocessableEntity
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}

		metrics.MessagesSent.Inc()

		// Push to both participants. The sender dedups the echo against the
		// confirmed record it gets from this response.
		hub.PushMessage(msg)

		writeJSON(w, http.StatusCreated, msg)
	}
}

func handleHistory(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		otherID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}

		msgs, err := msgSvc.History(r.Context(), currentUser.ID, otherID, limit)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if msgs == nil {
			msgs = []*domain.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}
