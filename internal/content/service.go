package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/naeap/journal/internal/domain"
	"github.com/naeap/journal/internal/logger"
	"github.com/naeap/journal/internal/metrics"
	"github.com/naeap/journal/internal/store"
)

// maxScanPages bounds how far ActiveAnnouncements and LatestJournals walk
// a collection looking for visible records.
const maxScanPages = 10

// Page is one decoded page of a collection.
type Page[T any] struct {
	Items []T
	// Next continues after the last fetched document, decoded or not.
	Next store.Cursor
	// Fetched counts the documents the store returned, including the ones
	// skipped as malformed. A page with Fetched below the requested size
	// is the last one.
	Fetched int
}

// Service is the typed entry point to the content store. Every write
// validates its form first and never reaches the store when that fails.
type Service struct {
	store   store.Store
	schemas schemaSet
	log     logger.Logger
	metrics *metrics.Metrics
}

// New creates a content service on top of st.
func New(st store.Store, log logger.Logger, m *metrics.Metrics) (*Service, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	return &Service{
		store:   st,
		schemas: schemas,
		log:     log,
		metrics: m,
	}, nil
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ─────────────────────────────────────────────────────────────────
// Journals
// ─────────────────────────────────────────────────────────────────

func (s *Service) CreateJournal(ctx context.Context, form domain.JournalForm) (domain.Journal, error) {
	if err := domain.Validate(&form); err != nil {
		return domain.Journal{}, err
	}
	doc, err := s.insert(ctx, store.Journals, journalFieldsOf(form))
	if err != nil {
		return domain.Journal{}, err
	}
	return decodeJournal(doc)
}

// UpdateJournal overwrites every editable field of a journal.
func (s *Service) UpdateJournal(ctx context.Context, id string, form domain.JournalForm) (domain.Journal, error) {
	if err := domain.Validate(&form); err != nil {
		return domain.Journal{}, err
	}
	doc, err := s.update(ctx, store.Journals, id, journalFieldsOf(form))
	if err != nil {
		return domain.Journal{}, err
	}
	return decodeJournal(doc)
}

func (s *Service) DeleteJournal(ctx context.Context, id string) error {
	return s.delete(ctx, store.Journals, id)
}

func (s *Service) Journal(ctx context.Context, id string) (domain.Journal, error) {
	return get(ctx, s, store.Journals, id, decodeJournal)
}

func (s *Service) JournalPage(ctx context.Context, after store.Cursor, limit int) (Page[domain.Journal], error) {
	return list(ctx, s, store.Journals, after, limit, decodeJournal)
}

// LatestJournals returns up to limit published journals, newest first.
func (s *Service) LatestJournals(ctx context.Context, limit int) ([]domain.Journal, error) {
	return firstVisible(ctx, s, store.Journals, limit, decodeJournal)
}

// ─────────────────────────────────────────────────────────────────
// Announcements
// ─────────────────────────────────────────────────────────────────

func (s *Service) CreateAnnouncement(ctx context.Context, form domain.AnnouncementForm) (domain.Announcement, error) {
	if err := domain.Validate(&form); err != nil {
		return domain.Announcement{}, err
	}
	doc, err := s.insert(ctx, store.Announcements, announcementFieldsOf(form))
	if err != nil {
		return domain.Announcement{}, err
	}
	return decodeAnnouncement(doc)
}

// UpdateAnnouncement overwrites every editable field of an announcement.
func (s *Service) UpdateAnnouncement(ctx context.Context, id string, form domain.AnnouncementForm) (domain.Announcement, error) {
	if err := domain.Validate(&form); err != nil {
		return domain.Announcement{}, err
	}
	doc, err := s.update(ctx, store.Announcements, id, announcementFieldsOf(form))
	if err != nil {
		return domain.Announcement{}, err
	}
	return decodeAnnouncement(doc)
}

func (s *Service) DeleteAnnouncement(ctx context.Context, id string) error {
	return s.delete(ctx, store.Announcements, id)
}

func (s *Service) Announcement(ctx context.Context, id string) (domain.Announcement, error) {
	return get(ctx, s, store.Announcements, id, decodeAnnouncement)
}

func (s *Service) AnnouncementPage(ctx context.Context, after store.Cursor, limit int) (Page[domain.Announcement], error) {
	return list(ctx, s, store.Announcements, after, limit, decodeAnnouncement)
}

// ActiveAnnouncements returns up to limit active announcements, newest first.
func (s *Service) ActiveAnnouncements(ctx context.Context, limit int) ([]domain.Announcement, error) {
	return firstVisible(ctx, s, store.Announcements, limit, decodeAnnouncement)
}

// ─────────────────────────────────────────────────────────────────
// Public forms
// ─────────────────────────────────────────────────────────────────

func (s *Service) CreateSubmission(ctx context.Context, form domain.SubmissionForm) (domain.Submission, error) {
	if err := domain.Validate(&form); err != nil {
		return domain.Submission{}, err
	}
	doc, err := s.insert(ctx, store.Submissions, submissionFieldsOf(form))
	if err != nil {
		return domain.Submission{}, err
	}
	return decodeSubmission(doc)
}

func (s *Service) CreateComplaint(ctx context.Context, form domain.ComplaintForm) (domain.Complaint, error) {
	if err := domain.Validate(&form); err != nil {
		return domain.Complaint{}, err
	}
	doc, err := s.insert(ctx, store.Complaints, complaintFieldsOf(form))
	if err != nil {
		return domain.Complaint{}, err
	}
	return decodeComplaint(doc)
}

// ─────────────────────────────────────────────────────────────────
// Store plumbing
// ─────────────────────────────────────────────────────────────────

func (s *Service) insert(ctx context.Context, c store.Collection, fields any) (store.Document, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return store.Document{}, fmt.Errorf("marshal %s fields: %w", c, err)
	}

	start := time.Now()
	doc, err := s.store.Insert(ctx, c, data)
	s.observe(c, "insert", "", start, err)
	if err != nil {
		return store.Document{}, fmt.Errorf("insert into %s: %w", c, err)
	}
	return doc, nil
}

func (s *Service) update(ctx context.Context, c store.Collection, id string, fields any) (store.Document, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return store.Document{}, fmt.Errorf("marshal %s fields: %w", c, err)
	}

	start := time.Now()
	doc, err := s.store.Update(ctx, c, id, data)
	s.observe(c, "update", id, start, err)
	if err != nil {
		return store.Document{}, fmt.Errorf("update %s/%s: %w", c, id, err)
	}
	return doc, nil
}

func (s *Service) delete(ctx context.Context, c store.Collection, id string) error {
	start := time.Now()
	err := s.store.Delete(ctx, c, id)
	s.observe(c, "delete", id, start, err)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", c, id, err)
	}
	return nil
}

func (s *Service) observe(c store.Collection, op, id string, start time.Time, err error) {
	s.metrics.ObserveStore(string(c), op, start, err)
	if err == nil {
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		s.log.Warn("document not found",
			logger.String("collection", string(c)),
			logger.String("op", op),
			logger.String("id", id))
		return
	}
	s.log.Error("store operation failed",
		logger.String("collection", string(c)),
		logger.String("op", op),
		logger.String("id", id),
		logger.Duration("elapsed", time.Since(start)),
		logger.Error(err))
}

func (s *Service) decode(c store.Collection, doc store.Document) error {
	if err := s.schemas.check(c, doc.Data); err != nil {
		s.metrics.SkippedDocument(string(c))
		s.log.Warn("skipping malformed document",
			logger.String("collection", string(c)),
			logger.String("id", doc.ID),
			logger.Error(err))
		return err
	}
	return nil
}

// Generic helpers. Methods cannot carry type parameters, so these take the
// service explicitly.

func get[T any](ctx context.Context, s *Service, c store.Collection, id string, dec func(store.Document) (T, error)) (T, error) {
	var zero T

	start := time.Now()
	doc, err := s.store.Get(ctx, c, id)
	s.observe(c, "get", id, start, err)
	if err != nil {
		return zero, fmt.Errorf("get %s/%s: %w", c, id, err)
	}
	if err := s.decode(c, doc); err != nil {
		return zero, fmt.Errorf("get %s/%s: %w", c, id, err)
	}
	return dec(doc)
}

func list[T any](ctx context.Context, s *Service, c store.Collection, after store.Cursor, limit int, dec func(store.Document) (T, error)) (Page[T], error) {
	start := time.Now()
	raw, err := s.store.List(ctx, c, after, limit)
	s.observe(c, "list", "", start, err)
	if err != nil {
		return Page[T]{}, fmt.Errorf("list %s: %w", c, err)
	}

	page := Page[T]{
		Items:   make([]T, 0, len(raw.Documents)),
		Next:    raw.Next,
		Fetched: len(raw.Documents),
	}
	for _, doc := range raw.Documents {
		if s.decode(c, doc) != nil {
			continue
		}
		item, err := dec(doc)
		if err != nil {
			s.metrics.SkippedDocument(string(c))
			s.log.Warn("skipping undecodable document",
				logger.String("collection", string(c)),
				logger.String("id", doc.ID),
				logger.Error(err))
			continue
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

type visible interface {
	Visible() bool
}

func firstVisible[T visible](ctx context.Context, s *Service, c store.Collection, limit int, dec func(store.Document) (T, error)) ([]T, error) {
	if limit < 1 {
		return nil, nil
	}
	batch := max(limit, 20)

	out := make([]T, 0, limit)
	var after store.Cursor
	for range maxScanPages {
		page, err := list(ctx, s, c, after, batch, dec)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if item.Visible() {
				out = append(out, item)
				if len(out) == limit {
					return out, nil
				}
			}
		}
		if page.Fetched < batch {
			break
		}
		after = page.Next
	}
	return out, nil
}
