// Package seed loads journals and announcements from a YAML file into the
// content store.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/naeap/journal/internal/domain"
	"github.com/naeap/journal/internal/logger"
)

// File is the layout of a seed file.
type File struct {
	Journals      []Journal      `yaml:"journals"`
	Announcements []Announcement `yaml:"announcements"`
}

type Journal struct {
	Title            string   `yaml:"title"`
	ShortDescription string   `yaml:"shortDescription"`
	DownloadLink     string   `yaml:"downloadLink"`
	Volume           string   `yaml:"volume"`
	Content          string   `yaml:"content"`
	Tags             []string `yaml:"tags"`
	Authors          []string `yaml:"authors"`
	Published        *bool    `yaml:"published"` // default true
}

type Announcement struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
	Active  *bool  `yaml:"active"` // default true
}

// Target is where seeded records are written.
type Target interface {
	CreateJournal(ctx context.Context, form domain.JournalForm) (domain.Journal, error)
	CreateAnnouncement(ctx context.Context, form domain.AnnouncementForm) (domain.Announcement, error)
}

// Result counts the records written.
type Result struct {
	Journals      int
	Announcements int
}

// Load reads and parses a seed file.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f File
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("failed to parse seed yaml: %w", err)
	}
	return f, nil
}

// Apply writes every entry of f. Entries are inserted last to first so the
// listings show them in file order. It stops at the first failing entry.
func Apply(ctx context.Context, t Target, f File, log logger.Logger) (Result, error) {
	var res Result

	for i := len(f.Journals) - 1; i >= 0; i-- {
		j, err := t.CreateJournal(ctx, f.Journals[i].form())
		if err != nil {
			return res, fmt.Errorf("journal #%d (%q): %w", i+1, f.Journals[i].Title, err)
		}
		res.Journals++
		log.Debug("seeded journal", logger.String("id", j.ID), logger.String("title", j.Title))
	}

	for i := len(f.Announcements) - 1; i >= 0; i-- {
		a, err := t.CreateAnnouncement(ctx, f.Announcements[i].form())
		if err != nil {
			return res, fmt.Errorf("announcement #%d (%q): %w", i+1, f.Announcements[i].Title, err)
		}
		res.Announcements++
		log.Debug("seeded announcement", logger.String("id", a.ID), logger.String("title", a.Title))
	}

	log.Info("seed applied",
		logger.Int("journals", res.Journals),
		logger.Int("announcements", res.Announcements))
	return res, nil
}

func (j Journal) form() domain.JournalForm {
	return domain.JournalForm{
		Title:            j.Title,
		ShortDescription: j.ShortDescription,
		DownloadLink:     j.DownloadLink,
		Volume:           j.Volume,
		Content:          j.Content,
		Tags:             strings.Join(j.Tags, ","),
		Authors:          strings.Join(j.Authors, ","),
		Published:        j.Published == nil || *j.Published,
	}
}

func (a Announcement) form() domain.AnnouncementForm {
	return domain.AnnouncementForm{
		Title:   a.Title,
		Content: a.Content,
		Active:  a.Active == nil || *a.Active,
	}
}
