package domain

import (
	"strconv"
	"time"
)

// Journal is one published issue or article of the journal.
type Journal struct {
	ID               string
	Title            string
	ShortDescription string
	DownloadLink     string
	Volume           string
	Content          string // Markdown
	Tags             []string
	Authors          []string

	// Published is false only when the record was explicitly unpublished.
	Published bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Announcement is a news item shown on the public pages while active.
type Announcement struct {
	ID      string
	Title   string
	Content string // Markdown
	Active  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attachment describes an uploaded file. Location is empty when the file
// was not shipped to object storage.
type Attachment struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Submission is a manuscript sent through the public submissions form.
type Submission struct {
	ID           string
	Title        string
	Abstract     string
	AuthorName   string
	AuthorEmail  string
	Affiliation  string
	Keywords     string
	ResearchArea string
	Manuscript   Attachment
	CoverLetter  *Attachment

	CreatedAt time.Time
}

// Complaint is a message sent through the public complaints form.
type Complaint struct {
	ID       string
	Name     string
	Email    string
	Phone    string
	Category string
	Subject  string
	Message  string
	Priority string

	CreatedAt time.Time
}

// RecordID, Created, Visible and SearchFields make journals and
// announcements listable.

func (j Journal) RecordID() string      { return j.ID }
func (j Journal) Created() time.Time    { return j.CreatedAt }
func (j Journal) Visible() bool         { return j.Published }
func (j Journal) SearchFields() []string {
	fields := make([]string, 0, 2+len(j.Tags)+len(j.Authors))
	fields = append(fields, j.Title, j.ShortDescription)
	fields = append(fields, j.Tags...)
	return append(fields, j.Authors...)
}

func (a Announcement) RecordID() string       { return a.ID }
func (a Announcement) Created() time.Time     { return a.CreatedAt }
func (a Announcement) Visible() bool          { return a.Active }
func (a Announcement) SearchFields() []string { return []string{a.Title, a.Content} }

// Year returns the publication year shown in archives.
func (j Journal) Year() int { return j.CreatedAt.UTC().Year() }

// Label is the volume caption, falling back to the creation year.
func (j Journal) Label() string {
	if j.Volume != "" {
		return j.Volume
	}
	return strconv.Itoa(j.Year())
}
