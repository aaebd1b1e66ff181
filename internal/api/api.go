// Package api is the REST ControlAPI (C10): a thin gin layer over
// device.Controller. Handlers decode JSON, call the controller, and
// encode either a SettingsSnapshot or an ApiError — no business logic
// lives here.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"g6ctl/internal/device"
	"g6ctl/internal/discovery"
	"g6ctl/internal/protocol"
)

// ApiError is the envelope returned for every non-2xx response. Code
// is a stable, snake_case identifier derived from the underlying Go
// error's sentinel name (e.g. device.ErrNotConnected -> "not_connected")
// so automation scripts can switch on it instead of matching message
// text or the transient HTTP status.
type ApiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server wires a device.Controller to a gin router.
type Server struct {
	controller *device.Controller
	router     *gin.Engine
}

// NewServer builds a ControlAPI server bound to controller. gin runs in
// release mode; panics in a handler are recovered rather than crashing
// the process, matching the teacher's `gin.Recovery()` usage.
func NewServer(controller *device.Controller) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{controller: controller, router: router}
	s.routes()
	return s
}

// Handler returns the underlying http.Handler, for use with http.Server
// or httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	v1 := s.router.Group("/v1")
	{
		v1.GET("/state", s.handleGetState)
		v1.POST("/connect", s.handleConnect)
		v1.POST("/disconnect", s.handleDisconnect)
		v1.POST("/output/toggle", s.handleToggleOutput)
		v1.POST("/effects/:name", s.handleSetEffect)
		v1.POST("/gaming/:mode", s.handleSetGaming)
		v1.POST("/filter", s.handleSetFilter)
		v1.GET("/devices", s.handleListDevices)
	}
}

func respondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, ApiError{Code: code, Message: err.Error()})
}

// statusAndCodeFor maps a device/arbiter/transport error to an HTTP
// status and a stable ApiError.Code. ErrNotConnected and
// ValidationError are client-correctable; anything else is treated as
// a transient device-layer failure with a generic code, since its
// concrete sentinel isn't part of this package's contract.
func statusAndCodeFor(err error) (int, string) {
	switch err.(type) {
	case *device.ValidationError:
		return http.StatusBadRequest, "validation_error"
	}
	if err == device.ErrNotConnected {
		return http.StatusConflict, "not_connected"
	}
	return http.StatusBadGateway, "device_error"
}

func (s *Server) handleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.State())
}

func (s *Server) handleConnect(c *gin.Context) {
	if err := s.controller.Connect(); err != nil {
		status, code := statusAndCodeFor(err)
		respondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, s.controller.State())
}

func (s *Server) handleDisconnect(c *gin.Context) {
	if err := s.controller.Disconnect(); err != nil {
		status, code := statusAndCodeFor(err)
		respondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, s.controller.State())
}

func (s *Server) handleToggleOutput(c *gin.Context) {
	if err := s.controller.ToggleOutput(); err != nil {
		status, code := statusAndCodeFor(err)
		respondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, s.controller.State())
}

// effectRequest is the shared body shape for every effects/{name} call.
type effectRequest struct {
	Enabled bool `json:"enabled"`
	Value   int  `json:"value"`
}

func (s *Server) handleSetEffect(c *gin.Context) {
	var req effectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}

	state := protocol.EffectState(req.Enabled)
	value := protocol.EffectValue(req.Value)

	var err error
	switch c.Param("name") {
	case "surround":
		err = s.controller.SetSurround(state, value)
	case "dialogplus":
		err = s.controller.SetDialogPlus(state, value)
	case "smartvolume":
		err = s.controller.SetSmartVolume(state, value)
	case "crystalizer":
		err = s.controller.SetCrystalizer(state, value)
	case "bass":
		err = s.controller.SetBass(state, value)
	default:
		respondError(c, http.StatusNotFound, "unknown_effect", errUnknownEffect(c.Param("name")))
		return
	}

	if err != nil {
		status, code := statusAndCodeFor(err)
		respondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, s.controller.State())
}

type gamingRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetGaming(c *gin.Context) {
	var req gamingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}

	var err error
	switch c.Param("mode") {
	case "sbx":
		err = s.controller.SetSbxMode(req.Enabled)
	case "scout":
		err = s.controller.SetScoutMode(req.Enabled)
	default:
		respondError(c, http.StatusNotFound, "unknown_gaming_mode", errUnknownGamingMode(c.Param("mode")))
		return
	}

	if err != nil {
		status, code := statusAndCodeFor(err)
		respondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, s.controller.State())
}

type filterRequest struct {
	Filter int `json:"filter"`
}

func (s *Server) handleSetFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	if err := s.controller.SetDigitalFilter(protocol.DigitalFilter(req.Filter)); err != nil {
		status, code := statusAndCodeFor(err)
		respondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusOK, s.controller.State())
}

func (s *Server) handleListDevices(c *gin.Context) {
	devices, err := discovery.ListUSBDevices()
	if err != nil {
		respondError(c, http.StatusBadGateway, "device_enumeration_failed", err)
		return
	}
	c.JSON(http.StatusOK, devices)
}
