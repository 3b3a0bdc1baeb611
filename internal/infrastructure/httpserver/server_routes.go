package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api")

	houses := api.Group("/houses")
	houses.GET("", s.listHouses)
	houses.GET("/bounds", s.listHousesInBounds)
	houses.GET("/top", s.listTopHouses)
	houses.POST("", s.createHouse)
	houses.PUT("/:id", s.updateHouse)
	houses.DELETE("/:id", s.deleteHouse)
	houses.GET("/:id/comments", s.listComments)
	houses.POST("/:id/comments", s.createComment)

	chat := api.Group("/chat")
	chat.POST("/join", s.joinZone)
	chat.POST("/leave", s.leaveZone)
	chat.POST("/message", s.postZoneMessage)
	chat.GET("/messages/:zoneId", s.listZoneMessages)
	chat.GET("/users/:zoneId", s.listZoneUsers)
	chat.GET("/zones", s.listActiveZones)

	private := chat.Group("/private")
	private.POST("/create", s.createPrivateRoom)
	private.POST("/create-and-join", s.createAndJoinPrivateRoom)
	private.POST("/join", s.joinPrivateRoom)
	private.POST("/message", s.postPrivateMessage)
	private.GET("/messages/:sessionId", s.listPrivateMessages)
	private.POST("/leave", s.leavePrivateRoom)

	api.GET("/cache/stats", s.cacheStats)
}
