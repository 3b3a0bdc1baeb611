package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/casamapa/casamapa/internal/core/domain/chat"
)

func (s *Server) createPrivateRoom(c echo.Context) error {
	var req struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Lat == nil || req.Lng == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing coordinates")
	}

	room, err := s.presence.CreateRoom(c.Request().Context(), *req.Lat, *req.Lng)
	if err != nil {
		return s.presenceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"chatRoom": room,
		"message":  "Private chat room created",
	})
}

func (s *Server) createAndJoinPrivateRoom(c echo.Context) error {
	var req struct {
		Lat      *float64 `json:"lat"`
		Lng      *float64 `json:"lng"`
		Username string   `json:"username"`
		Gender   string   `json:"gender"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Lat == nil || req.Lng == nil || req.Username == "" || req.Gender == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}

	room, session, err := s.presence.CreateAndJoinRoom(c.Request().Context(), *req.Lat, *req.Lng, chat.Profile{
		Username: req.Username,
		Gender:   req.Gender,
	})
	if err != nil {
		return s.presenceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"chatRoom":    room,
		"chatSession": session,
		"message":     "Private chat room created and joined",
	})
}

func (s *Server) joinPrivateRoom(c echo.Context) error {
	var req struct {
		ChatRoomID string `json:"chatRoomId"`
		Username   string `json:"username"`
		Gender     string `json:"gender"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ChatRoomID == "" || req.Username == "" || req.Gender == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}

	session, err := s.presence.JoinRoom(c.Request().Context(), req.ChatRoomID, chat.Profile{
		Username: req.Username,
		Gender:   req.Gender,
	})
	if err != nil {
		return s.presenceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"chatSession": session,
		"userCount":   len(session.Users),
		"message":     "Joined private chat",
	})
}

func (s *Server) postPrivateMessage(c echo.Context) error {
	var req struct {
		SessionID string `json:"sessionId"`
		Username  string `json:"username"`
		Gender    string `json:"gender"`
		Message   string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" || req.Username == "" || req.Gender == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}

	msg, err := s.presence.PostPrivateMessage(c.Request().Context(), req.SessionID, chat.Profile{
		Username: req.Username,
		Gender:   req.Gender,
	}, req.Message)
	if err != nil {
		return s.presenceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message":   "Message sent",
		"messageId": msg.ID,
	})
}

func (s *Server) listPrivateMessages(c echo.Context) error {
	sessionID := c.Param("sessionId")
	messages, err := s.presence.ListPrivateMessages(c.Request().Context(), sessionID)
	if err != nil {
		return s.presenceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages":  messages,
		"sessionId": sessionID,
		"active":    true,
	})
}

func (s *Server) leavePrivateRoom(c echo.Context) error {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing session ID")
	}

	if err := s.presence.LeaveRoom(c.Request().Context(), req.SessionID); err != nil {
		return s.presenceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Left private chat - session ended for both users",
		"ended":   true,
	})
}
