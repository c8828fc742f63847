package feedback

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"vstep-prep-backend/config"
	"vstep-prep-backend/dao"
	"vstep-prep-backend/model"
	"vstep-prep-backend/utils"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

	taskChanSize = 100
	workerNum    = 4

	// Answers shorter than this carry too little signal to grade
	minAnswerLength = 50
)

//go:embed prompts/writing_feedback.txt
var feedbackPrompt string

type FeedbackTask struct {
	Email     string
	AttemptID uint
}

// Feedbacker grades submitted writing answers in the background.
type Feedbacker struct {
	llm       llms.Model
	taskChan  chan FeedbackTask
	workerNum int
}

var Instance *Feedbacker

// Init builds the shared instance; call once at startup.
func Init() error {
	httpClient := utils.DefaultHTTPClient()
	llm, err := openai.New(
		openai.WithModel(config.Cfg.Model.Name),
		openai.WithToken(config.Cfg.Model.APIKey),
		openai.WithBaseURL(baseURL),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		return fmt.Errorf("failed to create feedback llm client: %v", err)
	}

	Instance = &Feedbacker{
		llm:       llm,
		taskChan:  make(chan FeedbackTask, taskChanSize),
		workerNum: workerNum,
	}
	return nil
}

func (f *Feedbacker) Run() {
	ctx := context.Background()
	for i := 1; i <= f.workerNum; i++ {
		go f.executeFeedback(ctx, i)
	}
}

// RegisterTask queues an attempt for grading. Drops the task when the
// queue is full rather than blocking submission.
func (f *Feedbacker) RegisterTask(task FeedbackTask) {
	select {
	case f.taskChan <- task:
	default:
		slog.Warn("feedback queue full, dropping task", "attempt_id", task.AttemptID)
	}
}

func (f *Feedbacker) executeFeedback(ctx context.Context, id int) {
	slog.Info("Starting feedback worker", "worker_id", id)
	defer slog.Info("Feedback worker exit", "worker_id", id)

	for task := range f.taskChan {
		select {
		case <-ctx.Done():
			slog.Info("Feedback worker shutting down", "worker_id", id)
			return
		default:
			if err := f.gradeAttempt(ctx, task); err != nil {
				slog.Error("Failed to grade attempt",
					"attempt_id", task.AttemptID,
					"err", err,
				)
			}
		}
	}
}

func (f *Feedbacker) gradeAttempt(ctx context.Context, task FeedbackTask) error {
	attempt, err := dao.GetQuizAttempt(task.Email, task.AttemptID)
	if err != nil {
		return err
	}
	if attempt == nil || attempt.Feedback != "" {
		return nil
	}

	sections, answers, err := writingSections(attempt)
	if err != nil {
		return err
	}

	var parts []string
	for _, sec := range sections {
		answer := answers[sec.ID]
		if len(answer) < minAnswerLength {
			continue
		}

		res, err := f.gradeSection(ctx, sec.Prompt, answer)
		if err != nil {
			return err
		}
		parts = append(parts, res)
	}

	if len(parts) == 0 {
		return nil
	}

	return dao.DB.Model(&model.QuizAttempt{}).
		Where("id = ?", attempt.ID).
		Update("feedback", strings.Join(parts, "\n\n")).Error
}

type writingSection struct {
	ID     string `json:"id"`
	Skill  string `json:"skill"`
	Prompt string `json:"prompt"`
}

func writingSections(attempt *model.QuizAttempt) ([]writingSection, map[string]string, error) {
	var sections []writingSection
	if len(attempt.Sections) > 0 {
		if err := json.Unmarshal(attempt.Sections, &sections); err != nil {
			return nil, nil, fmt.Errorf("failed to parse sections: %v", err)
		}
	}

	var writing []writingSection
	for _, sec := range sections {
		if strings.EqualFold(sec.Skill, "writing") {
			writing = append(writing, sec)
		}
	}

	answers := make(map[string]string)
	if len(attempt.Answers) > 0 {
		if err := json.Unmarshal(attempt.Answers, &answers); err != nil {
			return nil, nil, fmt.Errorf("failed to parse answers: %v", err)
		}
	}

	return writing, answers, nil
}

func (f *Feedbacker) gradeSection(ctx context.Context, prompt, answer string) (string, error) {
	tmpl, err := template.New("prompt").Parse(feedbackPrompt)
	if err != nil {
		return "", fmt.Errorf("failed to parse prompt template: %v", err)
	}

	var buf bytes.Buffer
	data := struct {
		Prompt string
		Answer string
	}{
		Prompt: prompt,
		Answer: answer,
	}

	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %v", err)
	}

	resp, err := llms.GenerateFromSinglePrompt(ctx, f.llm, buf.String())
	if err != nil {
		return "", fmt.Errorf("llm call error: %w", err)
	}

	return resp, nil
}
