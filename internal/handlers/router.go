package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Al-amen/exam-system/internal/models"
	"github.com/Al-amen/exam-system/internal/repositories"
	"github.com/Al-amen/exam-system/internal/repositories/casdoor"
	"github.com/Al-amen/exam-system/internal/services"
	"github.com/Al-amen/exam-system/internal/validator"
)

// HandlerManager composes all handlers and the auth middleware
type HandlerManager struct {
	attempt  *AttemptHandler
	question *QuestionHandler
	exam     *ExamHandler
	auth     *CasdoorAuthMiddleware
}

// NewHandlerManager builds handlers from the service manager
func NewHandlerManager(sm services.ServiceManager, v *validator.Validator, casdoorCfg casdoor.CasdoorConfig, userRepo repositories.UserRepository) *HandlerManager {
	return &HandlerManager{
		attempt:  NewAttemptHandler(sm.Attempt(), sm.Grading(), v),
		question: NewQuestionHandler(sm.Question(), sm.Import(), v),
		exam:     NewExamHandler(sm.Exam(), v),
		auth:     NewCasdoorAuthMiddleware(casdoorCfg, userRepo),
	}
}

// SetupRoutes registers all routes on the router
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", healthCheck)

	api := router.Group("/api/v1")
	api.Use(hm.auth.AuthMiddleware())

	// Attempt lifecycle
	attempts := api.Group("/attempts")
	{
		attempts.POST("", hm.auth.RequireRoleMiddleware(models.RoleStudent), hm.attempt.Start)
		attempts.GET("", hm.attempt.List)
		attempts.GET("/:id", hm.attempt.GetByID)
		attempts.POST("/:id/auto-save", hm.auth.RequireRoleMiddleware(models.RoleStudent), hm.attempt.AutoSave)
		attempts.POST("/:id/submit", hm.auth.RequireRoleMiddleware(models.RoleStudent), hm.attempt.Submit)
	}

	// Manual grading
	api.POST("/answers/:id/grade", hm.auth.RequireRoleMiddleware(models.RoleTeacher), hm.attempt.GradeAnswer)

	// Question bank
	questions := api.Group("/questions")
	{
		questions.GET("", hm.question.List)
		questions.GET("/:id", hm.question.GetByID)
		questions.POST("", hm.auth.RequireRoleMiddleware(models.RoleTeacher), hm.question.Create)
		questions.PUT("/:id", hm.auth.RequireRoleMiddleware(models.RoleTeacher), hm.question.Update)
		questions.DELETE("/:id", hm.auth.RequireRoleMiddleware(models.RoleTeacher), hm.question.Delete)
		questions.POST("/import", hm.auth.RequireRoleMiddleware(models.RoleTeacher), hm.question.Import)
	}

	// Exams
	exams := api.Group("/exams")
	{
		exams.GET("", hm.exam.List)
		exams.GET("/:id", hm.exam.GetByID)
		exams.POST("", hm.auth.RequireRoleMiddleware(models.RoleTeacher), hm.exam.Create)
		exams.PUT("/:id", hm.auth.RequireRoleMiddleware(models.RoleTeacher), hm.exam.Update)
		exams.DELETE("/:id", hm.auth.RequireRoleMiddleware(models.RoleTeacher), hm.exam.Delete)
		exams.PUT("/:id/questions", hm.auth.RequireRoleMiddleware(models.RoleTeacher), hm.exam.SetQuestions)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "exam-system",
	})
}
