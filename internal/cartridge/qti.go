package cartridge

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/wwcc-dale/zaphod/internal/markdown"
)

var errNoAssessment = errors.New("document contains no assessment element")

// assessmentDoc is the parsed form of one QTI assessment document before
// the quiz-versus-bank decision is made.
type assessmentDoc struct {
	Title           string
	DescriptionHTML string
	Settings        QuizSettings
	Questions       []Question
}

// parseAssessmentXML parses a QTI 1.2 assessment document: the assessment
// title, recognized metadata fields, an optional HTML description, and every
// item in document order. Items without a readable stem are dropped.
func parseAssessmentXML(path string) (*assessmentDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	root, err := parseXMLDocument(data)
	if err != nil {
		return nil, err
	}

	assessment := root.descendant(qtiNamespaces, "assessment")
	if assessment == nil {
		if root.XMLName.Local == "assessment" {
			assessment = root
		} else {
			return nil, errNoAssessment
		}
	}

	doc := &assessmentDoc{Title: assessment.attr("title")}
	if meta := assessment.descendant(qtiNamespaces, "qtimetadata"); meta != nil {
		doc.Settings = parseQuizSettings(meta)
	}
	if objectives := assessment.descendant(qtiNamespaces, "objectives"); objectives != nil {
		doc.DescriptionHTML = text(objectives.descendant(qtiNamespaces, "mattext"), "")
	}

	number := 0
	for _, itemElem := range assessment.descendants(qtiNamespaces, "item") {
		question, ok := parseQTIItem(itemElem, number+1)
		if !ok {
			continue
		}
		number++
		doc.Questions = append(doc.Questions, question)
	}
	return doc, nil
}

// parseQuizSettings maps recognized metadata field labels onto the closed
// settings record. Unrecognized labels are ignored.
func parseQuizSettings(meta *xmlNode) QuizSettings {
	var settings QuizSettings
	for label, entry := range metadataFields(meta) {
		switch label {
		case "zaphod_points_possible":
			settings.PointsPossible = entry
		case "qmd_timelimit":
			settings.TimeLimit = entry
		case "zaphod_quiz_type":
			settings.QuizType = entry
		case "zaphod_allowed_attempts":
			settings.AllowedAttempts = entry
		case "zaphod_shuffle_answers":
			settings.ShuffleAnswers = entry
		case "zaphod_published":
			settings.Published = entry
		case "zaphod_inline_questions":
			settings.InlineQuestions = entry == "True"
		}
	}
	return settings
}

// metadataFields collects label/entry pairs from every qtimetadatafield
// under scope. Later duplicates overwrite earlier ones.
func metadataFields(scope *xmlNode) map[string]string {
	fields := make(map[string]string)
	for _, fieldElem := range scope.descendants(qtiNamespaces, "qtimetadatafield") {
		label := text(fieldElem.descendant(qtiNamespaces, "fieldlabel"), "")
		entry := text(fieldElem.descendant(qtiNamespaces, "fieldentry"), "")
		if label != "" && entry != "" {
			fields[label] = entry
		}
	}
	return fields
}

func parseQTIItem(item *xmlNode, number int) (Question, bool) {
	stemElem := item.descendant(qtiNamespaces, "mattext")
	if stemElem == nil || strings.TrimSpace(stemElem.Text) == "" {
		return Question{}, false
	}

	question := Question{
		Number: number,
		Stem:   markdown.StripTags(stemElem.Text),
		Type:   QuestionMultipleChoice,
		Points: 1.0,
	}

	for label, entry := range metadataFields(item) {
		lowered := strings.ToLower(label)
		if strings.Contains(lowered, "cc_profile") {
			question.Type = mapQuestionType(entry)
		}
		if strings.Contains(lowered, "cc_weighting") {
			if points, err := strconv.ParseFloat(entry, 64); err == nil {
				question.Points = points
			}
		}
	}

	switch question.Type {
	case QuestionMultipleChoice, QuestionMultipleAnswers, QuestionTrueFalse:
		question.Answers = parseChoiceAnswers(item)
	case QuestionShortAnswer:
		question.Answers = parseShortAnswers(item)
	}
	return question, true
}

// mapQuestionType maps a vendor cc_profile token onto a question type by
// substring match, defaulting to multiple choice when unrecognized.
func mapQuestionType(raw string) QuestionType {
	lowered := strings.ToLower(raw)
	switch {
	case strings.Contains(lowered, "multiple_choice"):
		return QuestionMultipleChoice
	case strings.Contains(lowered, "multiple_answer"), strings.Contains(lowered, "multiple_response"):
		return QuestionMultipleAnswers
	case strings.Contains(lowered, "true_false"):
		return QuestionTrueFalse
	case strings.Contains(lowered, "short_answer"), strings.Contains(lowered, "fill_in"), strings.Contains(lowered, "fib"):
		return QuestionShortAnswer
	case strings.Contains(lowered, "essay"):
		return QuestionEssay
	case strings.Contains(lowered, "file_upload"), strings.Contains(lowered, "fileupload"):
		return QuestionFileUpload
	default:
		return QuestionMultipleChoice
	}
}

func parseChoiceAnswers(item *xmlNode) []Answer {
	var answers []Answer
	for _, label := range item.descendants(qtiNamespaces, "response_label") {
		ident := label.attr("ident")
		textElem := label.descendant(qtiNamespaces, "mattext")
		if textElem == nil || strings.TrimSpace(textElem.Text) == "" {
			continue
		}
		answers = append(answers, Answer{
			Text:    markdown.StripTags(textElem.Text),
			Correct: isCorrectResponse(item, ident),
		})
	}
	return answers
}

// isCorrectResponse scans response processing for a condition that matches
// the response ident and awards a full score.
func isCorrectResponse(item *xmlNode, ident string) bool {
	resprocessing := item.descendant(qtiNamespaces, "resprocessing")
	if resprocessing == nil {
		return false
	}
	for _, condition := range resprocessing.descendants(qtiNamespaces, "respcondition") {
		varequal := condition.descendant(qtiNamespaces, "varequal")
		setvar := condition.descendant(qtiNamespaces, "setvar")
		if varequal == nil || setvar == nil {
			continue
		}
		if strings.TrimSpace(varequal.Text) == ident && strings.Contains(setvar.Text, "100") {
			return true
		}
	}
	return false
}

// parseShortAnswers collects every accepted answer value from response
// processing. The format has no incorrect branch for short answers, so all
// values are correct by construction.
func parseShortAnswers(item *xmlNode) []Answer {
	resprocessing := item.descendant(qtiNamespaces, "resprocessing")
	if resprocessing == nil {
		return nil
	}
	var answers []Answer
	for _, varequal := range resprocessing.descendants(qtiNamespaces, "varequal") {
		if value := strings.TrimSpace(varequal.Text); value != "" {
			answers = append(answers, Answer{Text: value, Correct: true})
		}
	}
	return answers
}
