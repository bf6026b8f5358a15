package domain

import (
	"strings"

	"github.com/samber/lo"
)

// ResearchAreas are the areas a manuscript can be filed under.
var ResearchAreas = []string{
	"Educational Psychology",
	"Assessment and Evaluation",
	"Curriculum Development",
	"Higher Education",
	"Educational Technology",
	"Special Education",
	"Educational Leadership",
	"Teacher Education",
	"Student Development",
	"Educational Policy",
}

// ComplaintCategories are the topics a complaint can be filed under.
var ComplaintCategories = []string{
	"Editorial Process",
	"Peer Review",
	"Publication Issue",
	"Website/Technical",
	"Subscription/Access",
	"Plagiarism Concern",
	"Ethical Violation",
	"Other",
}

// Priorities are the complaint urgency levels, lowest first.
var Priorities = []string{"low", "medium", "high", "urgent"}

// DefaultPriority is used when a complaint does not pick one.
const DefaultPriority = "medium"

// JournalForm holds the editable fields of a journal. Tags and Authors are
// comma separated.
type JournalForm struct {
	Title            string `form:"title" validate:"required"`
	ShortDescription string `form:"shortDescription"`
	DownloadLink     string `form:"downloadLink"`
	Volume           string `form:"volume"`
	Content          string `form:"content" validate:"required"`
	Tags             string `form:"tags"`
	Authors          string `form:"authors"`
	Published        bool   `form:"isPublished"`
}

// NewJournalForm returns an empty form for a new journal.
func NewJournalForm() JournalForm {
	return JournalForm{Published: true}
}

// JournalFormFrom fills a form from a stored journal.
func JournalFormFrom(j Journal) JournalForm {
	return JournalForm{
		Title:            j.Title,
		ShortDescription: j.ShortDescription,
		DownloadLink:     j.DownloadLink,
		Volume:           j.Volume,
		Content:          j.Content,
		Tags:             strings.Join(j.Tags, ", "),
		Authors:          strings.Join(j.Authors, ", "),
		Published:        j.Published,
	}
}

func (f *JournalForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.ShortDescription = strings.TrimSpace(f.ShortDescription)
	f.DownloadLink = strings.TrimSpace(f.DownloadLink)
	f.Volume = strings.TrimSpace(f.Volume)
	f.Content = strings.TrimSpace(f.Content)
}

// TagList splits Tags into trimmed, non-empty entries.
func (f JournalForm) TagList() []string { return SplitList(f.Tags) }

// AuthorList splits Authors into trimmed, non-empty entries.
func (f JournalForm) AuthorList() []string { return SplitList(f.Authors) }

// AnnouncementForm holds the editable fields of an announcement.
type AnnouncementForm struct {
	Title   string `form:"title" validate:"required"`
	Content string `form:"content" validate:"required"`
	Active  bool   `form:"isActive"`
}

// AnnouncementFormFrom fills a form from a stored announcement.
func AnnouncementFormFrom(a Announcement) AnnouncementForm {
	return AnnouncementForm{Title: a.Title, Content: a.Content, Active: a.Active}
}

func (f *AnnouncementForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Content = strings.TrimSpace(f.Content)
}

// SubmissionForm is the public manuscript submission form.
type SubmissionForm struct {
	Title        string      `form:"title" validate:"required"`
	Abstract     string      `form:"abstract" validate:"required"`
	AuthorName   string      `form:"authorName" validate:"required"`
	AuthorEmail  string      `form:"authorEmail" validate:"required,email"`
	Affiliation  string      `form:"affiliation" validate:"required"`
	Keywords     string      `form:"keywords" validate:"required"`
	ResearchArea string      `form:"researchArea" validate:"required,research_area"`
	Manuscript   *Attachment `form:"manuscript" validate:"required"`
	CoverLetter  *Attachment `form:"coverLetter"`
}

func (f *SubmissionForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Abstract = strings.TrimSpace(f.Abstract)
	f.AuthorName = strings.TrimSpace(f.AuthorName)
	f.AuthorEmail = strings.TrimSpace(f.AuthorEmail)
	f.Affiliation = strings.TrimSpace(f.Affiliation)
	f.Keywords = strings.TrimSpace(f.Keywords)
	f.ResearchArea = strings.TrimSpace(f.ResearchArea)
	if f.Manuscript != nil && f.Manuscript.Name == "" {
		f.Manuscript = nil
	}
	if f.CoverLetter != nil && f.CoverLetter.Name == "" {
		f.CoverLetter = nil
	}
}

// ComplaintForm is the public complaints form.
type ComplaintForm struct {
	Name     string `form:"name" validate:"required"`
	Email    string `form:"email" validate:"required,email"`
	Phone    string `form:"phone"`
	Category string `form:"category" validate:"required,complaint_category"`
	Subject  string `form:"subject" validate:"required"`
	Message  string `form:"message" validate:"required"`
	Priority string `form:"priority" validate:"oneof=low medium high urgent"`
}

// NewComplaintForm returns an empty complaint form.
func NewComplaintForm() ComplaintForm {
	return ComplaintForm{Priority: DefaultPriority}
}

func (f *ComplaintForm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Category = strings.TrimSpace(f.Category)
	f.Subject = strings.TrimSpace(f.Subject)
	f.Message = strings.TrimSpace(f.Message)
	f.Priority = strings.ToLower(strings.TrimSpace(f.Priority))
	if f.Priority == "" {
		f.Priority = DefaultPriority
	}
}

// SplitList splits a comma separated list, dropping blanks and duplicates.
func SplitList(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	})
	return lo.Uniq(lo.Compact(parts))
}
