package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/parks-gardens/fieldops-api/internal/dto"
	"github.com/sashabaranov/go-openai"
)

type AIService struct {
	client *openai.Client
	model  string
	loc    *time.Location
	now    func() time.Time
}

type generatedTask struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Location       string  `json:"location"`
	EstimatedHours float64 `json:"estimated_hours"`
	Priority       string  `json:"priority"`
	ScheduledDate  *string `json:"scheduled_date"`
}

// NewAIService creates a drafting client. baseURL may be empty to use the
// public OpenAI endpoint.
func NewAIService(apiKey, baseURL string, loc *time.Location) *AIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AIService{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.GPT4o,
		loc:    loc,
		now:    time.Now,
	}
}

// DraftTasksFromText extracts field work tasks from free text such as a
// works request or a crew briefing.
func (s *AIService) DraftTasksFromText(ctx context.Context, text string) ([]dto.TaskDraft, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	currentTime := s.now().In(s.loc).Format("2006-01-02 15:04 MST")
	prompt := fmt.Sprintf(`You turn parks and gardens works requests into field tasks.

Current time: %s

Text:
%s

Return a JSON array of tasks in this shape:
[
  {
    "title": "short task title",
    "description": "what the crew needs to do",
    "location": "park, reserve or street, empty if unknown",
    "estimated_hours": 2.5,
    "priority": "low | medium | high",
    "scheduled_date": "YYYY-MM-DD, or null when no date is given"
  }
]

Rules:
- Return [] when the text contains no tasks
- Convert relative dates such as "tomorrow" or "next Monday" into dates
- Return only JSON, no commentary`, currentTime, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var generated []generatedTask
	if err := json.Unmarshal([]byte(content), &generated); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	drafts := make([]dto.TaskDraft, 0, len(generated))
	for _, g := range generated {
		draft := dto.TaskDraft{
			Title:          strings.TrimSpace(g.Title),
			Description:    g.Description,
			Location:       g.Location,
			EstimatedHours: g.EstimatedHours,
			Priority:       normalizePriority(g.Priority),
		}
		if g.ScheduledDate != nil {
			if d, err := time.ParseInLocation(dateLayout, *g.ScheduledDate, s.loc); err == nil {
				draft.ScheduledDate = &d
			}
		}
		drafts = append(drafts, draft)
	}

	return drafts, nil
}

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
