package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/naeap/journal/internal/domain"
	"github.com/naeap/journal/internal/httpserver/deps"
	"github.com/naeap/journal/internal/httpserver/views"
	"github.com/naeap/journal/internal/logger"
	"github.com/naeap/journal/internal/uploads"
	"github.com/naeap/journal/internal/utils"
)

const (
	formSubmission = "submission"
	formComplaint  = "complaint"

	// multipart parts above this size are spooled to disk
	multipartMemory = 8 << 20
)

type submissionData struct {
	Form    domain.SubmissionForm
	Errors  map[string]string
	Areas   []string
	Success bool
	Failed  bool
}

type complaintData struct {
	Form       domain.ComplaintForm
	Errors     map[string]string
	Categories []string
	Priorities []string
	Success    bool
	Failed     bool
}

// SubmissionPage renders an empty manuscript submission form.
func SubmissionPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderSubmission(d, w, r, http.StatusOK, submissionData{})
	}
}

// Submit validates a manuscript submission, uploads its files and stores
// it. Files are only uploaded once the form is valid.
func Submit(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, d.MaxUploadBytes)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				d.Metrics.FormPosted(formSubmission, "invalid")
				renderSubmission(d, w, r, http.StatusRequestEntityTooLarge, submissionData{
					Errors: map[string]string{"manuscript": "the files are too large"},
				})
				return
			}
			d.Metrics.FormPosted(formSubmission, "invalid")
			renderError(d, w, r, http.StatusBadRequest, "The submission could not be read.")
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		form := domain.SubmissionForm{
			Title:        r.PostFormValue("title"),
			Abstract:     r.PostFormValue("abstract"),
			AuthorName:   r.PostFormValue("authorName"),
			AuthorEmail:  r.PostFormValue("authorEmail"),
			Affiliation:  r.PostFormValue("affiliation"),
			Keywords:     r.PostFormValue("keywords"),
			ResearchArea: r.PostFormValue("researchArea"),
			Manuscript:   attachmentOf(r, "manuscript"),
			CoverLetter:  attachmentOf(r, "coverLetter"),
		}

		if err := domain.Validate(&form); err != nil {
			d.Metrics.FormPosted(formSubmission, "invalid")
			renderSubmission(d, w, r, http.StatusUnprocessableEntity, submissionData{Form: form, Errors: fieldErrors(err)})
			return
		}

		uploaded, err := saveSubmission(d, r, &form)
		if err != nil {
			d.Logger.Error("failed to save submission", logger.Error(err))
			for _, location := range uploaded {
				d.Logger.Warn("uploaded file is not referenced by any submission",
					logger.String("location", location))
			}
			d.Metrics.FormPosted(formSubmission, "error")
			renderSubmission(d, w, r, http.StatusServiceUnavailable, submissionData{Form: form, Failed: true})
			return
		}

		d.Metrics.FormPosted(formSubmission, "ok")
		d.Logger.Info("manuscript submitted",
			logger.String("research_area", form.ResearchArea),
			logger.Bool("cover_letter", form.CoverLetter != nil))
		renderSubmission(d, w, r, http.StatusOK, submissionData{Success: true})
	}
}

func renderSubmission(d deps.Deps, w http.ResponseWriter, r *http.Request, status int, data submissionData) {
	data.Areas = domain.ResearchAreas
	render(d, w, r, "submissions", views.Page{Title: "Submissions", Nav: "submissions", Data: data, Status: status})
}

// saveSubmission uploads the attachments and stores the submission. It
// returns the locations of the files uploaded so far, so that a failure
// after an upload can be traced to the stored objects.
func saveSubmission(d deps.Deps, r *http.Request, form *domain.SubmissionForm) ([]string, error) {
	var uploaded []string
	track := func(att *domain.Attachment) {
		if att.Location != "" {
			uploaded = append(uploaded, att.Location)
		}
	}

	manuscript, err := upload(d, r, "manuscript")
	if err != nil {
		return uploaded, err
	}
	track(manuscript)
	form.Manuscript = manuscript

	if form.CoverLetter != nil {
		cover, err := upload(d, r, "coverLetter")
		if err != nil {
			return uploaded, err
		}
		track(cover)
		form.CoverLetter = cover
	}

	if _, err := d.Content.CreateSubmission(r.Context(), *form); err != nil {
		return uploaded, err
	}
	return uploaded, nil
}

// attachmentOf describes the file sent as field, or nil when none was.
func attachmentOf(r *http.Request, field string) *domain.Attachment {
	fh := fileHeader(r, field)
	if fh == nil {
		return nil
	}
	return &domain.Attachment{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
	}
}

func fileHeader(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	fhs := r.MultipartForm.File[field]
	if len(fhs) == 0 || fhs[0].Filename == "" {
		return nil
	}
	return fhs[0]
}

func upload(d deps.Deps, r *http.Request, field string) (*domain.Attachment, error) {
	fh := fileHeader(r, field)
	if fh == nil {
		return nil, http.ErrMissingFile
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer utils.CloseLogged(f, d.Logger, field)

	att, err := d.Uploader.Upload(r.Context(), "submissions", uploads.File{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		return nil, err
	}
	return &att, nil
}

// ComplaintPage renders an empty complaint form.
func ComplaintPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderComplaint(d, w, r, http.StatusOK, complaintData{Form: domain.NewComplaintForm()})
	}
}

// Complain validates and stores a complaint.
func Complain(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			d.Metrics.FormPosted(formComplaint, "invalid")
			renderError(d, w, r, http.StatusBadRequest, "The complaint could not be read.")
			return
		}

		form := domain.ComplaintForm{
			Name:     r.PostFormValue("name"),
			Email:    r.PostFormValue("email"),
			Phone:    r.PostFormValue("phone"),
			Category: r.PostFormValue("category"),
			Subject:  r.PostFormValue("subject"),
			Message:  r.PostFormValue("message"),
			Priority: r.PostFormValue("priority"),
		}

		_, err := d.Content.CreateComplaint(r.Context(), form)
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			d.Metrics.FormPosted(formComplaint, "invalid")
			form.Normalize()
			renderComplaint(d, w, r, http.StatusUnprocessableEntity, complaintData{Form: form, Errors: verr.Fields})
			return
		case err != nil:
			d.Logger.Error("failed to save complaint", logger.Error(err))
			d.Metrics.FormPosted(formComplaint, "error")
			renderComplaint(d, w, r, http.StatusServiceUnavailable, complaintData{Form: form, Failed: true})
			return
		}

		d.Metrics.FormPosted(formComplaint, "ok")
		renderComplaint(d, w, r, http.StatusOK, complaintData{Success: true})
	}
}

func renderComplaint(d deps.Deps, w http.ResponseWriter, r *http.Request, status int, data complaintData) {
	data.Categories = domain.ComplaintCategories
	data.Priorities = domain.Priorities
	render(d, w, r, "complaints", views.Page{Title: "Complaints", Nav: "complaints", Data: data, Status: status})
}

func fieldErrors(err error) map[string]string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return map[string]string{"": err.Error()}
}
