package course

import (
	"strconv"
	"strings"
)

// pageFrontmatter is the metadata block for pages, including former web
// links, which become pages whose body is a single markdown link and whose
// target survives in ExternalURL.
type pageFrontmatter struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Published   bool     `yaml:"published"`
	Modules     []string `yaml:"modules,omitempty"`
	Position    int      `yaml:"position,omitempty"`
	ExternalURL string   `yaml:"external_url,omitempty"`
}

// assignmentFrontmatter extends the page fields with grading metadata taken
// from the assignment descriptor. Absent descriptor fields are omitted.
type assignmentFrontmatter struct {
	Name            string   `yaml:"name"`
	Type            string   `yaml:"type"`
	Published       bool     `yaml:"published"`
	Modules         []string `yaml:"modules,omitempty"`
	Position        int      `yaml:"position,omitempty"`
	PointsPossible  *float64 `yaml:"points_possible,omitempty"`
	SubmissionTypes []string `yaml:"submission_types,omitempty"`
	GradingType     string   `yaml:"grading_type,omitempty"`
}

// quizFrontmatter extends the page fields with assessment metadata. The
// numeric settings are parsed from the raw metadata strings; values that do
// not parse are dropped rather than written verbatim.
type quizFrontmatter struct {
	Name            string   `yaml:"name"`
	Type            string   `yaml:"type"`
	Published       bool     `yaml:"published"`
	Modules         []string `yaml:"modules,omitempty"`
	Position        int      `yaml:"position,omitempty"`
	Description     string   `yaml:"description,omitempty"`
	QuizType        string   `yaml:"quiz_type,omitempty"`
	QuestionCount   int      `yaml:"question_count"`
	PointsPossible  *float64 `yaml:"points_possible,omitempty"`
	TimeLimit       *int     `yaml:"time_limit,omitempty"`
	AllowedAttempts *int     `yaml:"allowed_attempts,omitempty"`
	ShuffleAnswers  *bool    `yaml:"shuffle_answers,omitempty"`
	InlineQuestions bool     `yaml:"inline_questions,omitempty"`
}

// bankFrontmatter is the metadata block for standalone question bank files.
type bankFrontmatter struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	QuestionCount int    `yaml:"question_count"`
}

// placement maps a module claim onto the frontmatter fields. Positions are
// written 1-based; unclaimed items carry neither field.
func placement(modulePath string, position int) ([]string, int) {
	if modulePath == "" {
		return nil, 0
	}
	return []string{modulePath}, position + 1
}

func parseFloatSetting(raw string) *float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil
	}
	return &value
}

func parseIntSetting(raw string) *int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if value, err := strconv.Atoi(trimmed); err == nil {
		return &value
	}
	// Some exports write integral settings with a decimal point.
	if value, err := strconv.ParseFloat(trimmed, 64); err == nil {
		rounded := int(value)
		return &rounded
	}
	return nil
}

func parseBoolSetting(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "1":
		return true, true
	case "false", "no", "0":
		return false, true
	default:
		return false, false
	}
}

func parseBoolPointer(raw string) *bool {
	value, ok := parseBoolSetting(raw)
	if !ok {
		return nil
	}
	return &value
}
