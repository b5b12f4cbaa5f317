package handler

import "github.com/gin-gonic/gin"

// Handlers groups every handler mounted under the API prefix. Nil handlers are skipped.
type Handlers struct {
	Timetable    *TimetableHandler
	ExamBlocks   *ExamBlockHandler
	Substitution *SubstitutionHandler
	Metrics      *MetricsHandler
}

// RegisterRoutes mounts the API on group.
func RegisterRoutes(group *gin.RouterGroup, h Handlers) {
	if h.Timetable != nil {
		timetable := group.Group("/timetable")
		timetable.GET("/entries", h.Timetable.List)
		timetable.POST("/entries", h.Timetable.Place)
		timetable.GET("/entries/:id", h.Timetable.Get)
		timetable.PATCH("/entries/:id", h.Timetable.Update)
		timetable.DELETE("/entries/:id", h.Timetable.Remove)
		timetable.POST("/entries/:id/move", h.Timetable.Move)
		timetable.POST("/undo", h.Timetable.Undo)
		timetable.POST("/redo", h.Timetable.Redo)
		timetable.GET("/history", h.Timetable.History)
		timetable.GET("/conflicts", h.Timetable.Conflicts)
		timetable.GET("/teacher-loads", h.Timetable.TeacherLoads)
		timetable.POST("/save", h.Timetable.Save)
		timetable.POST("/reload", h.Timetable.Reload)
		timetable.GET("/export", h.Timetable.Export)
	}

	if h.ExamBlocks != nil {
		blocks := group.Group("/exam-blocks")
		blocks.GET("", h.ExamBlocks.List)
		blocks.GET("/check", h.ExamBlocks.Check)
		blocks.POST("/refresh", h.ExamBlocks.Refresh)
	}

	if h.Substitution != nil {
		group.GET("/absences", h.Substitution.ListAbsences)
		group.POST("/absences", h.Substitution.MarkAbsent)
		group.DELETE("/absences/:id", h.Substitution.CancelAbsence)

		subs := group.Group("/substitutions")
		subs.GET("", h.Substitution.List)
		subs.POST("", h.Substitution.Assign)
		subs.GET("/affected", h.Substitution.Affected)
		subs.GET("/available", h.Substitution.Available)
		subs.DELETE("/:id", h.Substitution.Remove)
		subs.POST("/:id/confirm", h.Substitution.Confirm)
		subs.POST("/:id/decline", h.Substitution.Decline)
	}

	if h.Metrics != nil {
		group.GET("/stats", h.Metrics.Stats)
	}
}

// RegisterProbes mounts liveness, readiness and Prometheus endpoints at the root.
func RegisterProbes(r gin.IRoutes, h *MetricsHandler) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)
}
