package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vibecheck-service/internal/app"
	"vibecheck-service/internal/auth"
	"vibecheck-service/internal/domain"
)

// QuizHandler serves the quiz JSON API.
type QuizHandler struct {
	quizzes     *app.QuizService
	submissions *app.SubmissionService
}

func NewQuizHandler(quizzes *app.QuizService, submissions *app.SubmissionService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, submissions: submissions}
}

type quizIDRequest struct {
	QuizID string `json:"quizId"`
}

type attemptIDRequest struct {
	AttemptID string `json:"attemptId"`
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, domain.Invalid("Invalid JSON body"))
		return false
	}
	return true
}

func (h *QuizHandler) Generate(c *gin.Context) {
	var params app.GenerateParams
	if !bindJSON(c, &params) {
		return
	}
	res, err := h.quizzes.Generate(c.Request.Context(), auth.UserID(c), params, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"quizId":            res.QuizID,
		"questionsInserted": res.QuestionsInserted,
		"quizType":          res.QuizType,
		"message":           "Quiz generated successfully",
	})
}

func (h *QuizHandler) Create(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondError(c, domain.Invalid("Invalid JSON body"))
		return
	}
	quiz, err := h.quizzes.CreateManual(c.Request.Context(), auth.UserID(c), body)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"quizId":            quiz.ID,
		"questionsInserted": len(quiz.Questions),
		"quizType":          quiz.Kind,
		"message":           "Quiz created successfully",
	})
}

func (h *QuizHandler) Fetch(c *gin.Context) {
	var req quizIDRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.quizzes.Fetch(c.Request.Context(), req.QuizID, auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"quiz": view})
}

func (h *QuizHandler) Edit(c *gin.Context) {
	var req quizIDRequest
	if !bindJSON(c, &req) {
		return
	}
	quiz, err := h.quizzes.Edit(c.Request.Context(), req.QuizID, auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"quiz": quiz})
}

type updateRequest struct {
	QuizID    string                `json:"quizId"`
	Questions []domain.QuestionEdit `json:"questions"`
}

func (h *QuizHandler) Update(c *gin.Context) {
	var req updateRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.quizzes.Update(c.Request.Context(), req.QuizID, auth.UserID(c), req.Questions); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "Quiz updated successfully"})
}

func (h *QuizHandler) Delete(c *gin.Context) {
	var req quizIDRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.quizzes.Delete(c.Request.Context(), req.QuizID, auth.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "Quiz deleted successfully"})
}

func (h *QuizHandler) UserQuizzes(c *gin.Context) {
	quizzes, err := h.quizzes.ListOwned(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"quizzes": quizzes})
}

func (h *QuizHandler) SubmissionCount(c *gin.Context) {
	var req quizIDRequest
	if !bindJSON(c, &req) {
		return
	}
	count, err := h.quizzes.SubmissionCount(c.Request.Context(), req.QuizID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"submission_count": count})
}

type submitResponse struct {
	Success bool `json:"success"`
	app.SubmitResult
}

func (h *QuizHandler) Submit(c *gin.Context) {
	var params app.SubmitParams
	if !bindJSON(c, &params) {
		return
	}
	res, err := h.submissions.Submit(c.Request.Context(), auth.UserID(c), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, submitResponse{Success: true, SubmitResult: res})
}

type analyzeRequest struct {
	SubmissionID string `json:"submissionId"`
	QuizID       string `json:"quizId"`
}

func (h *QuizHandler) AnalyzeVibe(c *gin.Context) {
	var req analyzeRequest
	if !bindJSON(c, &req) {
		return
	}
	analysis, err := h.submissions.AnalyzeVibe(c.Request.Context(), auth.UserID(c), req.SubmissionID, req.QuizID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"vibeAnalysis": analysis.Analysis, "vibeCategories": analysis.Categories})
}

func (h *QuizHandler) Attempts(c *gin.Context) {
	attempts, err := h.submissions.Attempts(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"attempts": attempts})
}

func (h *QuizHandler) AttemptAnswers(c *gin.Context) {
	var req attemptIDRequest
	if !bindJSON(c, &req) {
		return
	}
	answers, err := h.submissions.AttemptAnswers(c.Request.Context(), auth.UserID(c), req.AttemptID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"answers": answers})
}

func (h *QuizHandler) DeleteAttempt(c *gin.Context) {
	var req attemptIDRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.submissions.DeleteAttempt(c.Request.Context(), auth.UserID(c), req.AttemptID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"message": "Attempt deleted successfully"})
}

type progressRequest struct {
	QuizID     string `json:"quizId"`
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
}

func (h *QuizHandler) RecordProgress(c *gin.Context) {
	var req progressRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.submissions.RecordProgress(c.Request.Context(), auth.UserID(c), req.QuizID, req.QuestionID, req.OptionID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

func (h *QuizHandler) Progress(c *gin.Context) {
	var req quizIDRequest
	if !bindJSON(c, &req) {
		return
	}
	answers, err := h.submissions.Progress(c.Request.Context(), auth.UserID(c), req.QuizID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"answers": answers})
}
