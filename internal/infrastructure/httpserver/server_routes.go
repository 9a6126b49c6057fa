package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	api.POST("/verifications", s.requestVerification)
	api.GET("/verifications/:user_id", s.checkVerification)
	api.GET("/email-logs", s.listEmailLogs)
}
