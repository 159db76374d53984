package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	s.router.POST("/predict", s.countHandler.Predict)

	heatmap := s.router.Group("/heatmap")
	{
		heatmap.GET("", s.heatmapHandler.GetHeatmap)
		heatmap.POST("/generate", s.heatmapHandler.Generate)
	}

	regions := s.router.Group("/regions")
	{
		regions.GET("", s.regionsHandler.ListRegions)
		regions.PUT("", s.regionsHandler.UpdateRegions)
	}
}
