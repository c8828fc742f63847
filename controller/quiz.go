package controller

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"vstep-prep-backend/dao"
	"vstep-prep-backend/model"
	"vstep-prep-backend/request"
	"vstep-prep-backend/response"
	"vstep-prep-backend/service/feedback"

	"github.com/gin-gonic/gin"
)

func CreateAttempt(c *gin.Context) {
	var req request.CreateAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	attempt := model.QuizAttempt{
		UserEmail: email,
		QuizCode:  req.QuizCode,
		QuizType:  model.QuizType(req.QuizType),
		Status:    model.AttemptInProgress,
		Sections:  req.Sections,
	}
	if err := dao.CreateQuizAttempt(&attempt); err != nil {
		slog.Error(ErrCreateAttempt.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCreateAttempt.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: attemptResponse(&attempt),
	})
}

func GetAttempt(c *gin.Context) {
	attempt, ok := loadAttempt(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: attemptResponse(attempt),
	})
}

func UpdateAnswers(c *gin.Context) {
	var req request.UpdateAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	attempt, ok := loadAttempt(c)
	if !ok {
		return
	}

	email := c.GetString("email")
	if err := dao.UpdateQuizAnswers(email, attempt.ID, req.Answers); err != nil {
		slog.Error(ErrUpdateAnswers.Error(), "attempt_id", attempt.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUpdateAnswers.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{})
}

func SubmitAttempt(c *gin.Context) {
	var req request.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	attempt, ok := loadAttempt(c)
	if !ok {
		return
	}

	email := c.GetString("email")
	if len(req.Answers) > 0 {
		if err := dao.UpdateQuizAnswers(email, attempt.ID, req.Answers); err != nil {
			slog.Error(ErrSubmitAttempt.Error(), "attempt_id", attempt.ID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
				Msg: ErrSubmitAttempt.Error(),
			})
			return
		}
	}

	if err := dao.SubmitQuizAttempt(email, attempt.ID, req.Scores, req.TotalScore); err != nil {
		slog.Error(ErrSubmitAttempt.Error(), "attempt_id", attempt.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrSubmitAttempt.Error(),
		})
		return
	}

	// Grade writing answers in the background
	if feedback.Instance != nil &&
		(attempt.QuizType == model.QuizTypeWriting || attempt.QuizType == model.QuizTypeFull) {
		feedback.Instance.RegisterTask(feedback.FeedbackTask{
			Email:     email,
			AttemptID: attempt.ID,
		})
	}

	c.JSON(http.StatusOK, response.Response{})
}

// CloneAttempt starts a fresh run of the same exam paper.
func CloneAttempt(c *gin.Context) {
	attempt, ok := loadAttempt(c)
	if !ok {
		return
	}

	email := c.GetString("email")
	clone := model.QuizAttempt{
		UserEmail: email,
		QuizCode:  attempt.QuizCode,
		QuizType:  attempt.QuizType,
		Status:    model.AttemptInProgress,
		Sections:  attempt.Sections,
	}
	if err := dao.CreateQuizAttempt(&clone); err != nil {
		slog.Error(ErrCloneAttempt.Error(), "attempt_id", attempt.ID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrCloneAttempt.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: attemptResponse(&clone),
	})
}

// ValidateAttempt reports unanswered questions before submission.
func ValidateAttempt(c *gin.Context) {
	attempt, ok := loadAttempt(c)
	if !ok {
		return
	}

	var sections []struct {
		Name      string `json:"name"`
		Questions []struct {
			ID string `json:"id"`
		} `json:"questions"`
	}
	if len(attempt.Sections) > 0 {
		_ = json.Unmarshal(attempt.Sections, &sections)
	}

	answers := make(map[string]string)
	if len(attempt.Answers) > 0 {
		_ = json.Unmarshal(attempt.Answers, &answers)
	}

	var problems []string
	for _, sec := range sections {
		missing := 0
		for _, q := range sec.Questions {
			if answers[q.ID] == "" {
				missing++
			}
		}
		if missing > 0 {
			problems = append(problems, "Phần \""+sec.Name+"\" còn "+strconv.Itoa(missing)+" câu chưa trả lời")
		}
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.ValidateAttemptResponse{
			Valid:    len(problems) == 0,
			Problems: problems,
		},
	})
}

func GetQuizHistory(c *gin.Context) {
	email := c.GetString("email")
	quizType := model.QuizType(c.Query("quiz_type"))

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	attempts, total, err := dao.GetQuizHistory(email, quizType, page, pageSize)
	if err != nil {
		slog.Error(ErrGetHistory.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetHistory.Error(),
		})
		return
	}

	resp := response.AttemptHistoryResponse{
		Pagination: response.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}
	for _, a := range attempts {
		resp.Attempts = append(resp.Attempts, response.AttemptSummaryResponse{
			ID:          a.ID,
			QuizCode:    a.QuizCode,
			QuizType:    string(a.QuizType),
			Status:      string(a.Status),
			TotalScore:  a.TotalScore,
			CreatedAt:   a.CreatedAt,
			SubmittedAt: a.SubmittedAt,
		})
	}

	c.JSON(http.StatusOK, response.Response{
		Data: resp,
	})
}

// GetLatestAttempt returns the learner's newest submitted attempt of one
// skill, for the review screens.
func GetLatestAttempt(c *gin.Context) {
	email := c.GetString("email")
	quizType := model.QuizType(c.Query("quiz_type"))

	attempt, err := dao.GetLatestAttemptByType(email, quizType)
	if err != nil {
		slog.Error(ErrGetAttempt.Error(), "quiz_type", quizType, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetAttempt.Error(),
		})
		return
	}
	if attempt == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
			Msg: ErrAttemptNotFound.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: attemptResponse(attempt),
	})
}

func loadAttempt(c *gin.Context) (*model.QuizAttempt, bool) {
	email := c.GetString("email")
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return nil, false
	}

	attempt, err := dao.GetQuizAttempt(email, uint(id))
	if err != nil {
		slog.Error(ErrGetAttempt.Error(), "attempt_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetAttempt.Error(),
		})
		return nil, false
	}
	if attempt == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, response.Response{
			Msg: ErrAttemptNotFound.Error(),
		})
		return nil, false
	}
	return attempt, true
}

func attemptResponse(a *model.QuizAttempt) response.AttemptResponse {
	return response.AttemptResponse{
		ID:          a.ID,
		QuizCode:    a.QuizCode,
		QuizType:    string(a.QuizType),
		Status:      string(a.Status),
		Sections:    a.Sections,
		Answers:     a.Answers,
		Scores:      a.Scores,
		TotalScore:  a.TotalScore,
		CreatedAt:   a.CreatedAt,
		SubmittedAt: a.SubmittedAt,
	}
}
