package cartridge_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wwcc-dale/zaphod/internal/cartridge"
	"github.com/wwcc-dale/zaphod/internal/config"
	"github.com/wwcc-dale/zaphod/internal/logging"
	"github.com/wwcc-dale/zaphod/internal/markdown"
)

func writeFixture(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTransformer(t *testing.T) *cartridge.Transformer {
	t.Helper()
	return cartridge.NewTransformer(config.Default().Classifier, markdown.NewConverter(), logging.NewNop())
}

func TestTransformResources(t *testing.T) {
	dir := t.TempDir()

	writeFixture(t, dir, "wiki_content/welcome.html",
		`<html><head><title>Welcome</title></head><body><p>Hello</p></body></html>`)
	writeFixture(t, dir, "assign_1/assignment.xml", `<?xml version="1.0"?>
<assignment xmlns="http://canvas.instructure.com/xsd/cccv1p0">
  <title>Essay One</title>
  <points_possible>10</points_possible>
  <submission_types>online_text_entry</submission_types>
</assignment>`)
	writeFixture(t, dir, "assign_1/content.html", `<p>Write an essay.</p>`)
	writeFixture(t, dir, "assign_1/rubric.xml", `<rubric>
  <criteria>
    <criterion><description>Thesis</description><points>10</points></criterion>
  </criteria>
</rubric>`)
	writeFixture(t, dir, "quiz_1/assessment.xml", `<questestinterop xmlns="http://www.imsglobal.org/xsd/ims_qtiasiv1p2">
  <assessment ident="q1" title="Week 1 Checkpoint">
    <qtimetadata>
      <qtimetadatafield>
        <fieldlabel>zaphod_inline_questions</fieldlabel>
        <fieldentry>True</fieldentry>
      </qtimetadatafield>
    </qtimetadata>
    <section ident="root">
      <item ident="i1" title="Q1">
        <presentation><material><mattext>Pick one.</mattext></material>
          <response_lid ident="r1"><render_choice>
            <response_label ident="a"><material><mattext>Left</mattext></material></response_label>
            <response_label ident="b"><material><mattext>Right</mattext></material></response_label>
          </render_choice></response_lid>
        </presentation>
        <resprocessing>
          <respcondition><conditionvar><varequal respident="r1">a</varequal></conditionvar>
          <setvar action="Set" varname="SCORE">100</setvar></respcondition>
        </resprocessing>
      </item>
    </section>
  </assessment>
</questestinterop>`)
	writeFixture(t, dir, "bank_1/assessment.xml", `<questestinterop xmlns="http://www.imsglobal.org/xsd/ims_qtiasiv1p2">
  <assessment ident="b1" title="Chapter Bank">
    <section ident="root">
      <item ident="i1" title="Q1">
        <presentation><material><mattext>Recall a fact.</mattext></material></presentation>
      </item>
    </section>
  </assessment>
</questestinterop>`)
	writeFixture(t, dir, "weblink_1/weblink.xml", `<webLink xmlns="http://www.imsglobal.org/xsd/imsccv1p1/imswl_v1p1">
  <title>Language Site</title>
  <url href="https://go.dev"/>
</webLink>`)
	writeFixture(t, dir, "web_resources/assets/logo.png", "not really a png")
	writeFixture(t, dir, "assign_2/assignment.xml", `<assignment><title>Broken`)

	manifest := &cartridge.Manifest{
		Resources: []cartridge.ResourceItem{
			{Identifier: "res_page", Type: "webcontent", Href: "wiki_content/welcome.html",
				Files: []string{"wiki_content/welcome.html"}},
			{Identifier: "res_assign", Type: "associatedcontent/imscc_xmlv1p1/learning-application-resource",
				Files: []string{"assign_1/assignment.xml", "assign_1/content.html", "assign_1/rubric.xml"}},
			{Identifier: "res_quiz", Type: "imsqti_xmlv1p2/imscc_xmlv1p1/assessment",
				Files: []string{"quiz_1/assessment.xml"}},
			{Identifier: "res_bank_chapter", Type: "imsqti_xmlv1p2/imscc_xmlv1p1/assessment",
				Files: []string{"bank_1/assessment.xml"}},
			{Identifier: "res_link", Type: "imswl_xmlv1p1", Href: "weblink_1/weblink.xml",
				Files: []string{"weblink_1/weblink.xml"}},
			{Identifier: "res_media", Type: "webcontent", Href: "web_resources/assets/logo.png",
				Files: []string{"web_resources/assets/logo.png"}},
			{Identifier: "res_broken", Type: "associatedcontent/imscc_xmlv1p1/learning-application-resource",
				Files: []string{"assign_2/assignment.xml"}},
		},
		Modules: []cartridge.ModuleItem{
			{Identifier: "mod_1", Title: "Unit One", Position: 0, Items: []string{"res_page", "res_quiz"}},
		},
	}

	cart, failures := newTransformer(t).TransformResources(context.Background(), manifest, dir)

	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d: %+v", len(failures), failures)
	}
	if failures[0].Identifier != "res_broken" || failures[0].Class != cartridge.ClassAssignment {
		t.Fatalf("unexpected failure: %+v", failures[0])
	}

	// res_media is classified as a page (plain webcontent) and res_page
	// joins it, so content items are page, assignment, link, media-page.
	var page, assign, link *cartridge.ContentItem
	for i := range cart.ContentItems {
		item := &cart.ContentItems[i]
		switch item.Identifier {
		case "res_page":
			page = item
		case "res_assign":
			assign = item
		case "res_link":
			link = item
		}
	}

	if page == nil {
		t.Fatal("page item missing")
	}
	if page.Title != "Welcome" {
		t.Fatalf("page title = %q", page.Title)
	}
	if !strings.Contains(page.Body, "Hello") {
		t.Fatalf("page body = %q", page.Body)
	}
	if page.ModulePath != "Unit One" || page.ModulePosition != 0 || page.Position != 0 {
		t.Fatalf("page module placement: %+v", page)
	}

	if assign == nil {
		t.Fatal("assignment item missing")
	}
	if assign.Title != "Essay One" {
		t.Fatalf("assignment title = %q", assign.Title)
	}
	if assign.Assignment == nil || assign.Assignment.PointsPossible == nil || *assign.Assignment.PointsPossible != 10 {
		t.Fatalf("assignment detail = %+v", assign.Assignment)
	}
	if assign.Rubric == nil || len(assign.Rubric.Criteria) != 1 {
		t.Fatalf("assignment rubric = %+v", assign.Rubric)
	}
	if !strings.Contains(assign.Body, "Write an essay.") {
		t.Fatalf("assignment body = %q", assign.Body)
	}
	if assign.ModulePath != "" {
		t.Fatalf("unclaimed assignment should have no module, got %q", assign.ModulePath)
	}

	if link == nil {
		t.Fatal("link item missing")
	}
	if link.Title != "Language Site" {
		t.Fatalf("link title = %q", link.Title)
	}
	if link.Link == nil || link.Link.URL != "https://go.dev" {
		t.Fatalf("link detail = %+v", link.Link)
	}

	if len(cart.Quizzes) != 1 {
		t.Fatalf("expected 1 quiz, got %d", len(cart.Quizzes))
	}
	quiz := cart.Quizzes[0]
	if quiz.Title != "Week 1 Checkpoint" {
		t.Fatalf("quiz title = %q", quiz.Title)
	}
	if !quiz.Settings.InlineQuestions {
		t.Fatal("quiz lost its inline flag")
	}
	if quiz.ModulePath != "Unit One" || quiz.Position != 1 {
		t.Fatalf("quiz module placement: %+v", quiz)
	}
	if len(quiz.Questions) != 1 || !quiz.Questions[0].Answers[0].Correct {
		t.Fatalf("quiz questions = %+v", quiz.Questions)
	}

	if len(cart.QuestionBanks) != 1 {
		t.Fatalf("expected 1 bank, got %d", len(cart.QuestionBanks))
	}
	if cart.QuestionBanks[0].Title != "Chapter Bank" {
		t.Fatalf("bank title = %q", cart.QuestionBanks[0].Title)
	}
}

func TestTransformPageWithMissingHref(t *testing.T) {
	dir := t.TempDir()

	manifest := &cartridge.Manifest{
		Resources: []cartridge.ResourceItem{
			{Identifier: "res_ghost", Type: "webcontent", Href: "missing.html"},
		},
	}

	cart, failures := newTransformer(t).TransformResources(context.Background(), manifest, dir)
	if len(failures) != 0 {
		t.Fatalf("dangling href should not fail: %+v", failures)
	}
	if len(cart.ContentItems) != 1 {
		t.Fatalf("expected 1 item, got %d", len(cart.ContentItems))
	}
	item := cart.ContentItems[0]
	if item.Title != "res_ghost" || item.Body != "" {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestTransformTracksAssetDestinations(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "web_resources/assets/img/logo.png", "png bytes")
	writeFixture(t, dir, "web_resources/syllabus.pdf", "pdf bytes")

	manifest := &cartridge.Manifest{
		Resources: []cartridge.ResourceItem{
			{Identifier: "res_bundle", Type: "associatedcontent/imscc_xmlv1p1",
				Files: []string{"web_resources/assets/img/logo.png", "web_resources/syllabus.pdf", "web_resources/gone.png"}},
		},
	}

	cart, failures := newTransformer(t).TransformResources(context.Background(), manifest, dir)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %+v", failures)
	}
	if len(cart.Assets) != 2 {
		t.Fatalf("expected 2 tracked assets, got %d: %v", len(cart.Assets), cart.Assets)
	}

	logoSrc := filepath.Join(dir, "web_resources", "assets", "img", "logo.png")
	if dest := cart.Assets[logoSrc]; dest != "img/logo.png" {
		t.Fatalf("asset prefix not stripped: %q", dest)
	}
	pdfSrc := filepath.Join(dir, "web_resources", "syllabus.pdf")
	if dest := cart.Assets[pdfSrc]; dest != "web_resources/syllabus.pdf" {
		t.Fatalf("non-asset path altered: %q", dest)
	}
}
