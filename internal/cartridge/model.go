package cartridge

// ItemType identifies the course document kind a content item produces.
type ItemType string

const (
	TypePage       ItemType = "page"
	TypeAssignment ItemType = "assignment"
	TypeLink       ItemType = "link"
	TypeQuiz       ItemType = "quiz"
)

// QuestionType identifies how a quiz question is answered.
type QuestionType string

const (
	QuestionMultipleChoice  QuestionType = "multiple_choice"
	QuestionMultipleAnswers QuestionType = "multiple_answers"
	QuestionTrueFalse       QuestionType = "true_false"
	QuestionShortAnswer     QuestionType = "short_answer"
	QuestionEssay           QuestionType = "essay"
	QuestionFileUpload      QuestionType = "file_upload"
)

// ResourceItem is one resource declared by the manifest. Immutable once
// parsed.
type ResourceItem struct {
	Identifier string
	Type       string
	Href       string
	Title      string
	Files      []string
}

// ModuleItem is one top-level organization item. Items holds the
// identifierref values of the content resources the module claims, in
// document order.
type ModuleItem struct {
	Identifier string
	Title      string
	Position   int
	Items      []string
}

// AssignmentDetail carries the fields parsed from an assignment descriptor.
// PointsPossible is nil when the descriptor omits the field or the value did
// not parse.
type AssignmentDetail struct {
	PointsPossible  *float64
	SubmissionTypes []string
	GradingType     string
}

// LinkDetail carries the resolved target of a web link resource.
type LinkDetail struct {
	URL string
}

// ContentItem is one transformed page, assignment, or link. Exactly one of
// Assignment and Link is set, matching Type; both are nil for pages.
type ContentItem struct {
	Identifier     string
	Title          string
	Type           ItemType
	Body           string
	ModulePath     string
	ModulePosition int
	Position       int
	Assignment     *AssignmentDetail
	Link           *LinkDetail
	Rubric         *Rubric
}

// Answer is one candidate response to a question.
type Answer struct {
	Text    string
	Correct bool
}

// Question is one parsed assessment item.
type Question struct {
	Number  int
	Stem    string
	Type    QuestionType
	Answers []Answer
	Points  float64
}

// QuizSettings carries the assessment-level metadata fields recognized in
// QTI documents. String fields hold the raw metadata values and are empty
// when the field was absent.
type QuizSettings struct {
	PointsPossible  string
	TimeLimit       string
	QuizType        string
	AllowedAttempts string
	ShuffleAnswers  string
	Published       string
	InlineQuestions bool
}

// QuizItem is an assessment placed in the content tree.
type QuizItem struct {
	Identifier     string
	Title          string
	Description    string
	Questions      []Question
	Settings       QuizSettings
	ModulePath     string
	ModulePosition int
	Position       int
}

// QuestionBankItem is an assessment that holds reusable questions rather
// than graded course content.
type QuestionBankItem struct {
	Identifier string
	Title      string
	Questions  []Question
}

// Rating is one scoring level of a rubric criterion. Points is nil when the
// source omitted it or the value did not parse.
type Rating struct {
	Description string   `yaml:"description,omitempty"`
	Points      *float64 `yaml:"points,omitempty"`
}

// Criterion is one row of a rubric.
type Criterion struct {
	Description     string   `yaml:"description,omitempty"`
	LongDescription string   `yaml:"long_description,omitempty"`
	Points          *float64 `yaml:"points,omitempty"`
	Ratings         []Rating `yaml:"ratings,omitempty"`
}

// Rubric is a scoring guide attached to an assignment. When Reference is
// non-empty the rubric content lives in the shared store under that name and
// the remaining fields are unset.
type Rubric struct {
	Title       string      `yaml:"title,omitempty"`
	Description string      `yaml:"description,omitempty"`
	Criteria    []Criterion `yaml:"criteria,omitempty"`
	Reference   string      `yaml:"-"`
}

// CartridgeImport aggregates everything one import run produced from an
// archive. Assets maps extracted source paths to their destination paths
// relative to the assets directory. SharedRubrics maps shared store names to
// the rubric content extracted there.
type CartridgeImport struct {
	Title         string
	ContentItems  []ContentItem
	Quizzes       []QuizItem
	QuestionBanks []QuestionBankItem
	Modules       []ModuleItem
	Assets        map[string]string
	SharedRubrics map[string]Rubric
}

// NewCartridgeImport returns an empty aggregate with its maps initialized.
func NewCartridgeImport(title string) *CartridgeImport {
	return &CartridgeImport{
		Title:         title,
		Assets:        make(map[string]string),
		SharedRubrics: make(map[string]Rubric),
	}
}
