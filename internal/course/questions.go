package course

import (
	"fmt"
	"strings"

	"github.com/wwcc-dale/zaphod/internal/cartridge"
)

// RenderQuestions formats parsed questions as the markdown question block
// shared by quiz documents and bank files. Questions are numbered in
// presentation order and separated by blank lines.
func RenderQuestions(questions []cartridge.Question) string {
	var b strings.Builder
	for i, question := range questions {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, strings.TrimSpace(question.Stem))
		renderAnswers(&b, question)
		b.WriteByte('\n')
	}
	return b.String()
}

func renderAnswers(b *strings.Builder, question cartridge.Question) {
	switch question.Type {
	case cartridge.QuestionMultipleAnswers:
		for _, answer := range question.Answers {
			box := "[ ]"
			if answer.Correct {
				box = "[*]"
			}
			fmt.Fprintf(b, "%s %s\n", box, answer.Text)
		}
	case cartridge.QuestionTrueFalse:
		if trueIsCorrect(question.Answers) {
			b.WriteString("*a) True\nb) False\n")
		} else {
			b.WriteString("a) True\n*b) False\n")
		}
	case cartridge.QuestionShortAnswer:
		for _, answer := range question.Answers {
			fmt.Fprintf(b, "* %s\n", answer.Text)
		}
	case cartridge.QuestionEssay:
		b.WriteString("####\n")
	case cartridge.QuestionFileUpload:
		b.WriteString("^^^^\n")
	default:
		// Multiple choice, and anything a future profile maps onto it.
		for i, answer := range question.Answers {
			marker := ""
			if answer.Correct {
				marker = "*"
			}
			fmt.Fprintf(b, "%s%s) %s\n", marker, answerLetter(i), answer.Text)
		}
	}
}

// trueIsCorrect locates the affirmative answer by text, falling back to the
// first answer's flag when the pair uses other labels.
func trueIsCorrect(answers []cartridge.Answer) bool {
	for _, answer := range answers {
		if strings.EqualFold(strings.TrimSpace(answer.Text), "true") {
			return answer.Correct
		}
	}
	return len(answers) > 0 && answers[0].Correct
}

func answerLetter(index int) string {
	return string(rune('a' + index%26))
}
