package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/casamapa/casamapa/internal/core/domain/chat"
	"github.com/casamapa/casamapa/internal/infrastructure/httpserver/helpers"
)

func (s *Server) joinZone(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Gender   string `json:"gender"`
		ZoneID   string `json:"zoneId"`
		UserID   string `json:"userId"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Gender == "" || req.ZoneID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}

	userID, members, err := s.presence.Join(c.Request().Context(), req.ZoneID, req.UserID, chat.Profile{
		Username: req.Username,
		Gender:   req.Gender,
	})
	if err != nil {
		return s.presenceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"userId":      userID,
		"usersInZone": members,
		"message":     "Joined chat zone " + req.ZoneID,
	})
}

func (s *Server) leaveZone(c echo.Context) error {
	var req struct {
		UserID string `json:"userId"`
		ZoneID string `json:"zoneId"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.ZoneID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}
	if err := s.presence.Leave(c.Request().Context(), req.ZoneID, req.UserID); err != nil {
		return s.presenceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Left chat zone " + req.ZoneID})
}

func (s *Server) postZoneMessage(c echo.Context) error {
	var req struct {
		UserID  string `json:"userId"`
		ZoneID  string `json:"zoneId"`
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.ZoneID == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}

	// Duplicate-content suppression on chat spam.
	if token, err := helpers.GetClientToken(c); err == nil {
		if dup, err := s.limiter.DuplicateCount(c.Request().Context(), token, req.Message); err == nil &&
			s.quotas.DuplicateThreshold > 0 && dup > int64(s.quotas.DuplicateThreshold) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "duplicate message detected")
		}
	}

	msg, err := s.presence.PostMessage(c.Request().Context(), req.ZoneID, req.UserID, req.Message)
	if err != nil {
		return s.presenceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message":   "Message sent",
		"messageId": msg.ID,
	})
}

func (s *Server) listZoneMessages(c echo.Context) error {
	zoneID := c.Param("zoneId")
	userID := c.QueryParam("userId")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing userId")
	}
	limit := int64(queryInt(c, "limit", 100))

	page, err := s.presence.ListMessages(c.Request().Context(), zoneID, userID, limit)
	if err != nil {
		return s.presenceError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) listZoneUsers(c echo.Context) error {
	zoneID := c.Param("zoneId")
	members, err := s.presence.ListMembers(c.Request().Context(), zoneID)
	if err != nil {
		return s.presenceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users":  members,
		"count":  len(members),
		"zoneId": zoneID,
	})
}

func (s *Server) listActiveZones(c echo.Context) error {
	zones, err := s.presence.ListActiveZones(c.Request().Context())
	if err != nil {
		return s.presenceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"zones":      zones,
		"totalZones": len(zones),
	})
}

// presenceError maps domain errors onto the HTTP statuses pollers key off.
// SessionEnded carries ended:true so clients can distinguish a torn-down
// conversation from a transient failure.
func (s *Server) presenceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, chat.ErrPresenceUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "chat service unavailable")
	case errors.Is(err, chat.ErrNotAMember):
		return echo.NewHTTPError(http.StatusForbidden, "user not in zone")
	case errors.Is(err, chat.ErrSessionExpired):
		return echo.NewHTTPError(http.StatusForbidden, "user session expired")
	case errors.Is(err, chat.ErrRoomNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "chat room not found or expired")
	case errors.Is(err, chat.ErrRoomNotAvailable):
		return echo.NewHTTPError(http.StatusBadRequest, "chat room is not available")
	case errors.Is(err, chat.ErrSessionEnded):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "Chat session has ended",
			"ended": true,
		})
	default:
		if s.logger != nil {
			s.logger.WithError(err).Error("presence operation failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "chat operation failed")
	}
}
