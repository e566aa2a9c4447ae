// Package course renders transformed cartridge content into the on-disk
// course tree: module folders and item documents under content/, standalone
// banks under question-banks/, shared rubric documents under rubrics/, and
// copied media under assets/. All documents carry YAML frontmatter followed
// by a markdown body.
package course
