package httpserver

import (
	"encoding/json"
	"net/http"

	"lingochat/internal/metrics"
	"lingochat/internal/service"
	"lingochat/internal/translate"
)

// The server proxies translation calls so the client never talks to the
// translation backend directly and personal API keys stay server-side.

type translateRequest struct {
	Text   string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
}

func handleTranslate(translator *translate.Client, settingsSvc *service.SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if req.Text == "" || req.Source == "" || req.Target == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q, source and target are required"})
			return
		}

		client := translator
		if settings, err := settingsSvc.GetForUser(r.Context(), currentUser.ID); err == nil {
			client = translator.WithAPIKey(settings.TranslateAPIKey)
		}

		metrics.TranslationsProxied.Inc()
		out, err := client.Translate(r.Context(), req.Text, req.Source, req.Target)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"translatedText": out})
	}
}

type detectRequest struct {
	Text string `json:"q"`
}

func handleDetect(translator *translate.Client, settingsSvc *service.SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req detectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if req.Text == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
			return
		}

		client := translator
		if settings, err := settingsSvc.GetForUser(r.Context(), currentUser.ID); err == nil {
			client = translator.WithAPIKey(settings.TranslateAPIKey)
		}

		lang, err := client.Detect(r.Context(), req.Text)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"language": lang})
	}
}
