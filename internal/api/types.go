package api

import (
	"encoding/json"
	"strings"
)

// QuestionSummary is the backend's plan for a submitted question. It must be
// obtained before the answer can be streamed.
type QuestionSummary struct {
	Question         string          `json:"question"`
	QuestionSlug     string          `json:"question_slug"`
	Description      string          `json:"description"`
	PromptTokens     int             `json:"prompt_tokens"`
	CompletionTokens int             `json:"completion_tokens"`
	UserIntent       string          `json:"user_intent"`
	AnswerLength     string          `json:"answer_length"`
	JWT              string          `json:"jwt,omitempty"`
	UserQuestion     string          `json:"user_question"`
	Times            json.RawMessage `json:"times,omitempty"`
	ParentTopics     []string        `json:"parent_topics,omitempty"`
}

// Complete reports whether every field the answer stream needs is present.
func (s *QuestionSummary) Complete() bool {
	return s != nil &&
		s.Question != "" &&
		s.Description != "" &&
		s.PromptTokens != 0 &&
		s.CompletionTokens != 0 &&
		s.AnswerLength != "" &&
		s.UserIntent != "" &&
		s.QuestionSlug != ""
}

type SummaryRequest struct {
	Question string `json:"question"`
	GuruType string `json:"-"`
	BingeID  string `json:"binge_id,omitempty"`
}

type SummaryResponse struct {
	QuestionSummary
	ValidQuestion bool        `json:"valid_question"`
	Error         interface{} `json:"error,omitempty"`
	Status        int         `json:"status,omitempty"`
}

// Failed mirrors a truthy "error" field in an otherwise successful response.
func (r *SummaryResponse) Failed() bool {
	switch v := r.Error.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		return true
	}
}

type AnswerRequest struct {
	Question           string          `json:"question"`
	QuestionSlug       string          `json:"question_slug"`
	Description        string          `json:"description"`
	RetryCount         int             `json:"retry_count"`
	CompletionTokens   int             `json:"completion_tokens"`
	AnswerLength       string          `json:"answer_length"`
	UserIntent         string          `json:"user_intent"`
	PromptTokens       int             `json:"prompt_tokens"`
	UserQuestion       string          `json:"user_question"`
	ParentQuestionSlug string          `json:"parent_question_slug,omitempty"`
	BingeID            string          `json:"binge_id,omitempty"`
	Times              json.RawMessage `json:"times,omitempty"`
}

// NewAnswerRequest copies the summary fields the answer endpoint echoes back.
func NewAnswerRequest(s *QuestionSummary, parentSlug, bingeID string) AnswerRequest {
	return AnswerRequest{
		Question:           s.Question,
		QuestionSlug:       s.QuestionSlug,
		Description:        s.Description,
		CompletionTokens:   s.CompletionTokens,
		AnswerLength:       s.AnswerLength,
		UserIntent:         s.UserIntent,
		PromptTokens:       s.PromptTokens,
		UserQuestion:       s.UserQuestion,
		ParentQuestionSlug: parentSlug,
		BingeID:            bingeID,
		Times:              s.Times,
	}
}

type Reference struct {
	Question string `json:"question"`
	Link     string `json:"link"`
	Icon     string `json:"icon,omitempty"`
}

type SimilarQuestion struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type SlugDetails struct {
	Msg               string            `json:"msg,omitempty"`
	Question          string            `json:"question"`
	Content           string            `json:"content"`
	Description       string            `json:"description"`
	References        []Reference       `json:"references"`
	SimilarQuestions  []SimilarQuestion `json:"similar_questions"`
	TrustScore        int               `json:"trust_score"`
	DateUpdated       string            `json:"date_updated"`
	FollowUpQuestions json.RawMessage   `json:"follow_up_questions"`
	Dirty             bool              `json:"dirty"`
}

// FollowUps decodes follow_up_questions, yielding an empty list for anything
// that is not a list.
func (d *SlugDetails) FollowUps() []string {
	if d == nil {
		return []string{}
	}
	return decodeQuestionList(d.FollowUpQuestions)
}

type BingeNode struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Slug     string `json:"slug"`
	ParentID *int   `json:"parent_id"`
}

type BingeData struct {
	GraphData     []BingeNode `json:"graph_data"`
	BingeOutdated bool        `json:"binge_outdated"`
}

type createBingeRequest struct {
	RootSlug string `json:"root_slug"`
}

type createBingeResponse struct {
	ID string `json:"id"`
}

type followUpRequest struct {
	BingeID      string `json:"binge_id,omitempty"`
	QuestionSlug string `json:"question_slug"`
	Question     string `json:"question"`
}

type Guru struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"intro_text,omitempty"`
}

// decodeQuestionList accepts ["q", ...] or [{"question": "q"}, ...].
func decodeQuestionList(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}

	var strs []string
	if err := json.Unmarshal(raw, &strs); err == nil {
		for _, s := range strs {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}

	var objs []struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(raw, &objs); err == nil {
		for _, o := range objs {
			if strings.TrimSpace(o.Question) != "" {
				out = append(out, o.Question)
			}
		}
	}
	return out
}
