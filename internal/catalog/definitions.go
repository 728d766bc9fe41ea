package catalog

import (
	"git.home.luguber.info/inful/cvbuilder/internal/fields"
	"git.home.luguber.info/inful/cvbuilder/internal/record"
)

// Kind selects the pipeline stage sequence used for a content type.
type Kind string

const (
	// KindDirectory content is one record file per entry in a source directory.
	KindDirectory Kind = "directory"
	// KindFile content is a single record file.
	KindFile Kind = "file"
	// KindIdentity content is already typeset and copied to every format tree.
	KindIdentity Kind = "identity"
	// KindMarkdown content is a Markdown block converted to LaTeX.
	KindMarkdown Kind = "markdown"
)

// Definition is the generation rule set of one content type.
type Definition struct {
	Type   string
	Kind   Kind
	Subdir string
	Rule   fields.Rule
	// SortField orders chronological aggregates; start-date breaks ties.
	SortField string
	// MultiItem definitions load wrapper and item templates instead of one
	// record template.
	MultiItem  bool
	Separators map[fields.Format]string
	MaxItems   int
}

func chronoRule(specs ...fields.Spec) fields.Rule {
	return fields.Rule{Fields: append(specs,
		fields.Spec{Name: "start-date", Kind: fields.KindDate, Required: true},
		fields.Spec{Name: "end-date", Kind: fields.KindDate},
		fields.Spec{Name: "description", Kind: fields.KindOptional},
	)}
}

func text(name string) fields.Spec { return fields.Spec{Name: name, Kind: fields.KindText, Required: true} }

func optional(name string) fields.Spec { return fields.Spec{Name: name, Kind: fields.KindOptional} }

func itemsRule(item ...fields.Spec) fields.Rule {
	return fields.Rule{
		Fields: []fields.Spec{{Name: record.ItemsField, Kind: fields.KindItems, Required: true}},
		Item:   &fields.Rule{Fields: item},
	}
}

// builtin returns the stock content types in generation order.
func builtin() []Definition {
	education := chronoRule(
		text("degree"),
		text("title"),
		text("institution"),
		fields.Spec{Name: "comment", Kind: fields.KindComment},
		fields.Spec{Name: "grade", Kind: fields.KindGrade},
	)
	education.LineBreak = &fields.LineBreak{
		Fields:  []string{"degree", "title", "institution"},
		Target:  "institution",
		Formats: []fields.Format{fields.FormatResume},
	}

	return []Definition{
		{Type: "aboutme", Kind: KindIdentity},
		{Type: "summary", Kind: KindMarkdown},
		{
			Type:   "contact-info",
			Kind:   KindFile,
			Subdir: "contact-info",
			Rule: fields.Rule{Fields: []fields.Spec{
				text("name"),
				optional("job-title"),
				optional("email"),
				optional("phone"),
				optional("linkedin"),
				optional("github"),
				optional("stack-overflow"),
			}},
		},
		{
			Type:       "skill",
			Kind:       KindFile,
			Subdir:     "skills",
			Rule:       itemsRule(text("name"), optional("level"), optional("score")),
			MultiItem:  true,
			Separators: map[fields.Format]string{fields.FormatCV: "\n", fields.FormatResume: ","},
		},
		{
			Type:       "compact-skill",
			Kind:       KindFile,
			Subdir:     "skills",
			Rule:       itemsRule(text("name")),
			MultiItem:  true,
			Separators: map[fields.Format]string{fields.FormatCV: ", ", fields.FormatResume: ", "},
			MaxItems:   6,
		},
		{
			Type:       "language",
			Kind:       KindFile,
			Subdir:     "languages",
			Rule:       itemsRule(text("name"), optional("level"), optional("score")),
			MultiItem:  true,
			Separators: map[fields.Format]string{fields.FormatCV: "\n", fields.FormatResume: ","},
		},
		{
			Type:      "education",
			Kind:      KindDirectory,
			Subdir:    "education",
			Rule:      education,
			SortField: "end-date",
		},
		{
			Type:   "work",
			Kind:   KindDirectory,
			Subdir: "work",
			Rule: chronoRule(
				text("job-title"),
				text("company"),
				fields.Spec{Name: "comment", Kind: fields.KindComment},
			),
			SortField: "end-date",
		},
		{
			Type:   "experience",
			Kind:   KindDirectory,
			Subdir: "experience",
			Rule: chronoRule(
				text("title"),
				text("organization"),
				fields.Spec{Name: "comment", Kind: fields.KindComment},
			),
			SortField: "end-date",
		},
		{
			Type:      "course",
			Kind:      KindDirectory,
			Subdir:    "courses",
			Rule:      chronoRule(text("title"), optional("institution"), optional("link")),
			SortField: "end-date",
		},
		{
			Type:      "project",
			Kind:      KindDirectory,
			Subdir:    "projects",
			Rule:      chronoRule(text("title"), optional("role"), optional("link")),
			SortField: "end-date",
		},
		{
			Type:   "award",
			Kind:   KindDirectory,
			Subdir: "awards",
			Rule: fields.Rule{Fields: []fields.Spec{
				text("title"),
				optional("issuer"),
				{Name: "date", Kind: fields.KindDate, Required: true},
				optional("description"),
			}},
			SortField: "date",
		},
	}
}
