package content

import (
	"encoding/json"
	"fmt"

	"github.com/naeap/journal/internal/domain"
	"github.com/naeap/journal/internal/store"
)

// Stored shapes. Optional booleans are pointers so that an absent field
// can be told apart from false and defaulted.

type journalFields struct {
	Title            string   `json:"title"`
	ShortDescription string   `json:"shortDescription"`
	DownloadLink     string   `json:"downloadLink"`
	Volume           string   `json:"volume"`
	Content          string   `json:"content"`
	Tags             []string `json:"tags"`
	Authors          []string `json:"authors"`
	Published        *bool    `json:"isPublished,omitempty"`
}

type announcementFields struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Active  *bool  `json:"isActive,omitempty"`
}

type submissionFields struct {
	Title        string             `json:"title"`
	Abstract     string             `json:"abstract"`
	AuthorName   string             `json:"authorName"`
	AuthorEmail  string             `json:"authorEmail"`
	Affiliation  string             `json:"affiliation"`
	Keywords     string             `json:"keywords"`
	ResearchArea string             `json:"researchArea"`
	Manuscript   domain.Attachment  `json:"manuscript"`
	CoverLetter  *domain.Attachment `json:"coverLetter,omitempty"`
}

type complaintFields struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Category string `json:"category"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Priority string `json:"priority,omitempty"`
}

func journalFieldsOf(f domain.JournalForm) journalFields {
	published := f.Published
	return journalFields{
		Title:            f.Title,
		ShortDescription: f.ShortDescription,
		DownloadLink:     f.DownloadLink,
		Volume:           f.Volume,
		Content:          f.Content,
		Tags:             nonNil(f.TagList()),
		Authors:          nonNil(f.AuthorList()),
		Published:        &published,
	}
}

func announcementFieldsOf(f domain.AnnouncementForm) announcementFields {
	active := f.Active
	return announcementFields{Title: f.Title, Content: f.Content, Active: &active}
}

func submissionFieldsOf(f domain.SubmissionForm) submissionFields {
	out := submissionFields{
		Title:        f.Title,
		Abstract:     f.Abstract,
		AuthorName:   f.AuthorName,
		AuthorEmail:  f.AuthorEmail,
		Affiliation:  f.Affiliation,
		Keywords:     f.Keywords,
		ResearchArea: f.ResearchArea,
		CoverLetter:  f.CoverLetter,
	}
	if f.Manuscript != nil {
		out.Manuscript = *f.Manuscript
	}
	return out
}

func complaintFieldsOf(f domain.ComplaintForm) complaintFields {
	return complaintFields{
		Name:     f.Name,
		Email:    f.Email,
		Phone:    f.Phone,
		Category: f.Category,
		Subject:  f.Subject,
		Message:  f.Message,
		Priority: f.Priority,
	}
}

func decodeJournal(doc store.Document) (domain.Journal, error) {
	var f journalFields
	if err := json.Unmarshal(doc.Data, &f); err != nil {
		return domain.Journal{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return domain.Journal{
		ID:               doc.ID,
		Title:            f.Title,
		ShortDescription: f.ShortDescription,
		DownloadLink:     f.DownloadLink,
		Volume:           f.Volume,
		Content:          f.Content,
		Tags:             f.Tags,
		Authors:          f.Authors,
		Published:        f.Published == nil || *f.Published,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}, nil
}

func decodeAnnouncement(doc store.Document) (domain.Announcement, error) {
	var f announcementFields
	if err := json.Unmarshal(doc.Data, &f); err != nil {
		return domain.Announcement{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return domain.Announcement{
		ID:        doc.ID,
		Title:     f.Title,
		Content:   f.Content,
		Active:    f.Active != nil && *f.Active,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func decodeSubmission(doc store.Document) (domain.Submission, error) {
	var f submissionFields
	if err := json.Unmarshal(doc.Data, &f); err != nil {
		return domain.Submission{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return domain.Submission{
		ID:           doc.ID,
		Title:        f.Title,
		Abstract:     f.Abstract,
		AuthorName:   f.AuthorName,
		AuthorEmail:  f.AuthorEmail,
		Affiliation:  f.Affiliation,
		Keywords:     f.Keywords,
		ResearchArea: f.ResearchArea,
		Manuscript:   f.Manuscript,
		CoverLetter:  f.CoverLetter,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func decodeComplaint(doc store.Document) (domain.Complaint, error) {
	var f complaintFields
	if err := json.Unmarshal(doc.Data, &f); err != nil {
		return domain.Complaint{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if f.Priority == "" {
		f.Priority = domain.DefaultPriority
	}
	return domain.Complaint{
		ID:        doc.ID,
		Name:      f.Name,
		Email:     f.Email,
		Phone:     f.Phone,
		Category:  f.Category,
		Subject:   f.Subject,
		Message:   f.Message,
		Priority:  f.Priority,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
