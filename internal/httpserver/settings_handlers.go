package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"lingochat/internal/service"
)

func handleGetSettings(settingsSvc *service.SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		settings, err := settingsSvc.GetForUser(r.Context(), currentUser.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"settings": settings,
		})
	}
}

type settingsUpdateRequest struct {
	PreferredLanguage *string `json:"preferredLanguage"`
	AutoTranslate     *bool   `json:"autoTranslateEnabled"`
	SoundEnabled      *bool   `json:"soundEnabled"`
	TranslateAPIKey   *string `json:"translateApiKey"`
}

func handleUpdateSettings(settingsSvc *service.SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req settingsUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		settings, err := settingsSvc.Update(r.Context(), currentUser.ID, service.SettingsUpdateInput{
			PreferredLanguage: req.PreferredLanguage,
			AutoTranslate:     req.AutoTranslate,
			SoundEnabled:      req.SoundEnabled,
			TranslateAPIKey:   req.TranslateAPIKey,
		})
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"settings": settings,
		})
	}
}

// handleCounterpartLanguage exposes only the preferred language of another
// user, for the sender-side auto-translate decision.
func handleCounterpartLanguage(settingsSvc *service.SettingsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
			return
		}
		lang, err := settingsSvc.PreferredLanguage(r.Context(), userID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"settings": map[string]string{
				"preferredLanguage": lang,
			},
		})
	}
}
