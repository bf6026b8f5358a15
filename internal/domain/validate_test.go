package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestValidateJournalForm(t *testing.T) {
	tests := []struct {
		name        string
		form        JournalForm
		wantInvalid []string
	}{
		{
			name: "minimal",
			form: JournalForm{Title: "X", Content: "Y"},
		},
		{
			name:        "missing everything",
			form:        JournalForm{},
			wantInvalid: []string{"title", "content"},
		},
		{
			name:        "whitespace only",
			form:        JournalForm{Title: "   ", Content: "\n\t"},
			wantInvalid: []string{"title", "content"},
		},
		{
			name:        "missing content",
			form:        JournalForm{Title: "X", Volume: "Vol 2"},
			wantInvalid: []string{"content"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := tt.form
			err := Validate(&form)
			checkInvalid(t, err, tt.wantInvalid)
		})
	}
}

func TestValidateTrimsInput(t *testing.T) {
	form := JournalForm{Title: "  Vol 1  ", Content: " body "}
	if err := Validate(&form); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if form.Title != "Vol 1" || form.Content != "body" {
		t.Errorf("Validate() did not trim: %+v", form)
	}
}

func TestValidateAnnouncementForm(t *testing.T) {
	checkInvalid(t, Validate(&AnnouncementForm{Title: "t"}), []string{"content"})
	checkInvalid(t, Validate(&AnnouncementForm{Title: "t", Content: "c"}), nil)
}

func TestValidateSubmissionForm(t *testing.T) {
	valid := func() SubmissionForm {
		return SubmissionForm{
			Title:        "On tests",
			Abstract:     "Short",
			AuthorName:   "A. Author",
			AuthorEmail:  "a@example.org",
			Affiliation:  "University",
			Keywords:     "testing",
			ResearchArea: "Higher Education",
			Manuscript:   &Attachment{Name: "paper.pdf", Size: 10},
		}
	}

	tests := []struct {
		name        string
		mutate      func(*SubmissionForm)
		wantInvalid []string
	}{
		{"valid", func(*SubmissionForm) {}, nil},
		{"bad email", func(f *SubmissionForm) { f.AuthorEmail = "nope" }, []string{"authorEmail"}},
		{"unknown area", func(f *SubmissionForm) { f.ResearchArea = "Astrology" }, []string{"researchArea"}},
		{"no manuscript", func(f *SubmissionForm) { f.Manuscript = nil }, []string{"manuscript"}},
		{"unnamed manuscript", func(f *SubmissionForm) { f.Manuscript = &Attachment{} }, []string{"manuscript"}},
		{"empty cover letter dropped", func(f *SubmissionForm) { f.CoverLetter = &Attachment{} }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid()
			tt.mutate(&form)
			checkInvalid(t, Validate(&form), tt.wantInvalid)
		})
	}
}

func TestValidateComplaintForm(t *testing.T) {
	form := ComplaintForm{
		Name:     "Reader",
		Email:    "reader@example.org",
		Category: "Peer Review",
		Subject:  "Slow review",
		Message:  "It took a year.",
	}
	if err := Validate(&form); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if form.Priority != DefaultPriority {
		t.Errorf("Priority = %q, want %q", form.Priority, DefaultPriority)
	}

	form.Priority = "URGENT"
	if err := Validate(&form); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if form.Priority != "urgent" {
		t.Errorf("Priority = %q, want urgent", form.Priority)
	}

	form.Priority = "whenever"
	checkInvalid(t, Validate(&form), []string{"priority"})

	form.Priority = "low"
	form.Category = "Gossip"
	checkInvalid(t, Validate(&form), []string{"category"})
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"title": "is required", "content": "is required"}}
	want := "invalid form: content is required; title is required"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"a", []string{"a"}},
		{" a , b,,a , ", []string{"a", "b"}},
	}
	for _, tt := range tests {
		got := SplitList(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJournalSearchFieldsAndLabel(t *testing.T) {
	j := Journal{
		Title:            "T",
		ShortDescription: "D",
		Tags:             []string{"tag"},
		Authors:          []string{"Ann"},
		CreatedAt:        time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if got := j.SearchFields(); !reflect.DeepEqual(got, []string{"T", "D", "tag", "Ann"}) {
		t.Errorf("SearchFields() = %v", got)
	}
	if got := j.Label(); got != "2023" {
		t.Errorf("Label() = %q, want 2023", got)
	}
	j.Volume = "Vol 3"
	if got := j.Label(); got != "Vol 3" {
		t.Errorf("Label() = %q, want Vol 3", got)
	}
}

func checkInvalid(t *testing.T, err error, want []string) {
	t.Helper()
	if len(want) == 0 {
		if err != nil {
			t.Fatalf("Validate() error = %v, want nil", err)
		}
		return
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
	if len(verr.Fields) != len(want) {
		t.Errorf("invalid fields = %v, want %v", verr.Fields, want)
	}
	for _, f := range want {
		if !verr.Has(f) {
			t.Errorf("field %q should be invalid, got %v", f, verr.Fields)
		}
	}
}
