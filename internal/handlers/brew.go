package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"espresso_panel/internal/service"
	"espresso_panel/internal/settings"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errInvalidBodyPref = "invalid body: "
	errShotsLimit      = "invalid 'limit'; use a positive integer"
)

// logAndJSONError logs err under logKey and answers with userMsg.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// statusFor maps domain errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, settings.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, settings.ErrOutOfRange), errors.Is(err, settings.ErrTypeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrStartDisabled), errors.Is(err, service.ErrResetDisabled):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondBrewError answers a failed intent. Client errors carry the cause;
// anything else is logged and reported generically.
func (h *Handler) respondBrewError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logAndJSONError(c, code, "request failed: "+err.Error(), logKey, err, kv...)
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// respondWithSnapshot answers an accepted intent with the resulting state.
func (h *Handler) respondWithSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "state": h.services.Snapshot()})
}

// ToggleRequest presses or releases the start/stop control.
type ToggleRequest struct {
	Checked *bool `json:"checked" binding:"required" example:"true"`
}

// SteamRequest switches the boiler target between brew and steam.
type SteamRequest struct {
	Enabled *bool `json:"enabled" binding:"required" example:"true"`
}

// ValueRequest carries a slider position.
type ValueRequest struct {
	Value *float64 `json:"value" binding:"required" example:"93"`
}

// SettingView is one settings entry as exposed over HTTP.
type SettingView struct {
	Type  string `json:"type" example:"float"`
	Value any    `json:"value"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Current brew session state
// @Tags         brew
// @Produce      json
// @Success      200  {object}  models.Snapshot
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/brew/state [get]
// @Security     BearerAuth
func (h *Handler) getBrewState(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Snapshot())
}

// @Summary      Press or release the start/stop control
// @Description  checked=true starts a session (Ready only); checked=false stops it and rotates the shot log
// @Tags         brew
// @Accept       json
// @Produce      json
// @Param        body  body      ToggleRequest  true  "Control state"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/brew/toggle [post]
// @Security     BearerAuth
func (h *Handler) toggleBrew(c *gin.Context) {
	var req ToggleRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	if err := h.services.Toggle(c.Request.Context(), *req.Checked); err != nil {
		h.respondBrewError(c, "brew_toggle_failed", err, "checked", *req.Checked)
		return
	}
	h.respondWithSnapshot(c)
}

// @Summary      Reset the session stopwatch
// @Tags         brew
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/brew/reset [post]
// @Security     BearerAuth
func (h *Handler) resetBrew(c *gin.Context) {
	if err := h.services.Reset(c.Request.Context()); err != nil {
		h.respondBrewError(c, "brew_reset_failed", err)
		return
	}
	h.respondWithSnapshot(c)
}

// @Summary      Switch steam mode
// @Tags         brew
// @Accept       json
// @Produce      json
// @Param        body  body      SteamRequest  true  "Steam switch"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/brew/steam [post]
// @Security     BearerAuth
func (h *Handler) setSteam(c *gin.Context) {
	var req SteamRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	if err := h.services.SetSteam(c.Request.Context(), *req.Enabled); err != nil {
		h.respondBrewError(c, "brew_steam_failed", err, "enabled", *req.Enabled)
		return
	}
	h.respondWithSnapshot(c)
}

// @Summary      Manual pump slider
// @Description  The stored ManualPumpControl is value multiplied by the configured pump scale
// @Tags         brew
// @Accept       json
// @Produce      json
// @Param        body  body      ValueRequest  true  "Slider position"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/pump/manual [post]
// @Security     BearerAuth
func (h *Handler) setManualPump(c *gin.Context) {
	var req ValueRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	if err := h.services.SetManualPump(c.Request.Context(), *req.Value); err != nil {
		h.respondBrewError(c, "pump_manual_failed", err, "value", *req.Value)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      List settings
// @Tags         settings
// @Produce      json
// @Success      200  {object}  map[string]SettingView
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/settings [get]
// @Security     BearerAuth
func (h *Handler) listSettings(c *gin.Context) {
	all := h.services.All()
	out := make(map[string]SettingView, len(all))
	for k, v := range all {
		out[k] = SettingView{Type: v.Kind().String(), Value: v.Interface()}
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      Change a numeric setting
// @Description  Slider ranges: BrewTemp 85-100, SteamTemp 120-150, BrewPressure 6-12, PID gains 1-500
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        key   path      string        true  "Setting key"  example(BrewTemp)
// @Param        body  body      ValueRequest  true  "New value"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/settings/{key} [put]
// @Security     BearerAuth
func (h *Handler) putSetting(c *gin.Context) {
	key := c.Param("key")
	var req ValueRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	if err := h.services.SetSetting(c.Request.Context(), key, *req.Value); err != nil {
		h.respondBrewError(c, "setting_update_failed", err, "key", key)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "key": key, "value": *req.Value})
}

// @Summary      Recent shots
// @Tags         history
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of shots"  example(20)
// @Success      200    {object}  map[string]interface{}  "count, shots"
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/shots [get]
// @Security     BearerAuth
func (h *Handler) listShots(c *gin.Context) {
	limit := 0
	if qs := c.Query("limit"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errShotsLimit})
			return
		}
		limit = n
	}
	shots, err := h.services.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load shots", "shots_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(shots), "shots": shots})
}
