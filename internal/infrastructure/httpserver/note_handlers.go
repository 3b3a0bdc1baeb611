package httpserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/casamapa/casamapa/internal/core/domain/geo"
	"github.com/casamapa/casamapa/internal/core/domain/note"
	"github.com/casamapa/casamapa/internal/infrastructure/cache"
	"github.com/casamapa/casamapa/internal/infrastructure/httpserver/helpers"
)

const defaultBoundsLimit = 200

func (s *Server) listHouses(c echo.Context) error {
	houses, err := s.notes.ListHouses(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list houses")
	}
	return c.JSON(http.StatusOK, houses)
}

// listHousesInBounds serves viewport queries through the read-through
// cache. Rounded coordinates make near-identical viewports share an entry.
func (s *Server) listHousesInBounds(c echo.Context) error {
	vp, ok := parseViewport(c)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid viewport bounds")
	}
	limit := queryInt(c, "limit", defaultBoundsLimit)

	ctx := c.Request().Context()
	key := cache.HousesBoundsKey(vp, limit)
	data, err := s.cache.GetOrSet(ctx, key, func(fctx context.Context) (any, error) {
		return s.notes.ListHousesInViewport(fctx, vp, limit)
	}, s.ttls.ViewportTTL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to query houses")
	}
	return c.JSON(http.StatusOK, data)
}

func (s *Server) listTopHouses(c echo.Context) error {
	limit := queryInt(c, "limit", 10)
	ctx := c.Request().Context()
	data, err := s.cache.GetOrSet(ctx, cache.TopHousesKey(limit), func(fctx context.Context) (any, error) {
		return s.notes.TopHouses(fctx, limit)
	}, s.ttls.TopNTTL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to query top houses")
	}
	return c.JSON(http.StatusOK, data)
}

func (s *Server) createHouse(c echo.Context) error {
	var req note.CreateHouseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Address == "" || req.Description == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing required fields")
	}

	if err := s.checkWriteQuotas(c, "house", req.Address, req.Description); err != nil {
		return err
	}

	house, err := s.notes.CreateHouse(c.Request().Context(), &req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create house")
	}
	_ = s.cache.ClearPattern(c.Request().Context(), cache.HousesPattern)
	return c.JSON(http.StatusCreated, house)
}

func (s *Server) updateHouse(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid house ID")
	}
	var req note.UpdateHouseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	house, err := s.notes.UpdateHouse(c.Request().Context(), id, &req)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "house not found")
	}
	_ = s.cache.ClearPattern(c.Request().Context(), cache.HousesPattern)
	return c.JSON(http.StatusOK, house)
}

func (s *Server) deleteHouse(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid house ID")
	}
	if err := s.notes.DeleteHouse(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "house not found")
	}
	_ = s.cache.ClearPattern(c.Request().Context(), cache.HousesPattern)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listComments(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid house ID")
	}
	comments, err := s.notes.ListComments(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list comments")
	}
	return c.JSON(http.StatusOK, comments)
}

func (s *Server) createComment(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid house ID")
	}
	var req struct {
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Comment == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "comment required")
	}

	if err := s.checkWriteQuotas(c, "comment", c.Param("id"), req.Comment); err != nil {
		return err
	}

	comment, err := s.notes.CreateComment(c.Request().Context(), id, req.Comment)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create comment")
	}
	_ = s.cache.ClearPattern(c.Request().Context(), cache.HousesPattern)
	return c.JSON(http.StatusCreated, comment)
}

// checkWriteQuotas runs the daily quota, cooldown and duplicate-content
// counters for a content mutation. The limiter only counts; the quota
// comparison and the 429 decision live here.
func (s *Server) checkWriteQuotas(c echo.Context, action string, contentFields ...string) error {
	token, err := helpers.GetClientToken(c)
	if err != nil {
		// No identity; the global throttle already passed, let it through.
		return nil
	}
	ctx := c.Request().Context()

	if daily, err := s.limiter.DailyCount(ctx, token, action); err == nil &&
		s.quotas.DailyQuota > 0 && daily > int64(s.quotas.DailyQuota) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "daily limit reached")
	}
	if cooldown, err := s.limiter.CooldownCount(ctx, token, action); err == nil && cooldown > 1 {
		return echo.NewHTTPError(http.StatusTooManyRequests, "please wait before posting again")
	}
	if dup, err := s.limiter.DuplicateCount(ctx, contentFields...); err == nil &&
		s.quotas.DuplicateThreshold > 0 && dup > int64(s.quotas.DuplicateThreshold) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "duplicate content detected")
	}
	return nil
}

func parseViewport(c echo.Context) (geo.Viewport, bool) {
	south, err1 := strconv.ParseFloat(c.QueryParam("south"), 64)
	north, err2 := strconv.ParseFloat(c.QueryParam("north"), 64)
	west, err3 := strconv.ParseFloat(c.QueryParam("west"), 64)
	east, err4 := strconv.ParseFloat(c.QueryParam("east"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return geo.Viewport{}, false
	}
	return geo.Viewport{South: south, North: north, West: west, East: east}, true
}

func queryInt(c echo.Context, name string, fallback int) int {
	if raw := c.QueryParam(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
