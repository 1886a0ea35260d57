package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vibecheck-service/internal/app"
	"vibecheck-service/internal/auth"
	"vibecheck-service/internal/logger"
)

// RouterOptions carries what NewRouter needs to build the HTTP surface.
type RouterOptions struct {
	Quizzes     *app.QuizService
	Submissions *app.SubmissionService
	Verifier    auth.TokenVerifier
	CORSOrigins []string
	Log         *logger.Logger
}

// NewRouter wires the JSON API, the generation websocket and the health check.
func NewRouter(opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(opts.Log))
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	quizzes := NewQuizHandler(opts.Quizzes, opts.Submissions)
	ws := NewWSHandler(opts.Quizzes, opts.Log)

	authed := router.Group("/")
	authed.Use(auth.Authenticate(opts.Verifier, opts.Log))

	api := authed.Group("/api/quiz")
	api.POST("/fetch", quizzes.Fetch)
	api.POST("/submission-count", quizzes.SubmissionCount)

	owned := api.Group("")
	owned.Use(auth.RequireUser())
	owned.POST("/generate", quizzes.Generate)
	owned.POST("/create", quizzes.Create)
	owned.POST("/edit", quizzes.Edit)
	owned.POST("/update", quizzes.Update)
	owned.POST("/delete", quizzes.Delete)
	owned.GET("/user-quizzes", quizzes.UserQuizzes)
	owned.POST("/submit", quizzes.Submit)
	owned.POST("/analyze-vibe", quizzes.AnalyzeVibe)
	owned.POST("/get-attempts", quizzes.Attempts)
	owned.POST("/get-attempt-answers", quizzes.AttemptAnswers)
	owned.POST("/delete-attempt", quizzes.DeleteAttempt)
	owned.POST("/progress", quizzes.RecordProgress)
	owned.POST("/progress/get", quizzes.Progress)

	authed.GET("/ws/generate", auth.RequireUser(), ws.ServeWS)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
