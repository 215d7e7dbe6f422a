// Package intake validates picked files and keeps the pending upload queue.
package intake

import (
	"slices"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/willnicht/willnicht/internal/client/imaging"
	"github.com/willnicht/willnicht/internal/client/models"
)

const (
	DefaultMaxFiles = 10
	DefaultMaxSize  = 10 << 20
)

var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/webp"}

type Category string

const (
	UnsupportedType Category = "unsupported_type"
	TooLarge        Category = "too_large"
	MaxFiles        Category = "max_files"
)

type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Rejection describes one file that did not make it into the queue.
type Rejection struct {
	Category Category
	Level    Level
	File     string
	// Limit is the configured bound for TooLarge and MaxFiles.
	Limit int64
}

// File is a picked file before validation.
type File struct {
	Name string
	Data []byte
}

type Validator struct {
	MaxFiles     int
	MaxSize      int64
	AllowedTypes []string
}

func NewValidator() *Validator {
	return &Validator{
		MaxFiles:     DefaultMaxFiles,
		MaxSize:      DefaultMaxSize,
		AllowedTypes: DefaultAllowedTypes,
	}
}

// Validate checks files against the type and size rules, then trims the
// accepted ones so that pending plus accepted stays within MaxFiles. The
// content type is sniffed from the bytes, never taken from the name.
func (v *Validator) Validate(pending int, files []File) ([]models.PendingUpload, []Rejection) {
	var (
		accepted   []models.PendingUpload
		rejections []Rejection
	)

	for _, f := range files {
		mt := mimetype.Detect(f.Data)
		contentType := mt.String()
		if !v.allowed(mt) {
			rejections = append(rejections, Rejection{Category: UnsupportedType, Level: LevelError, File: f.Name})
			continue
		}
		if int64(len(f.Data)) > v.MaxSize {
			rejections = append(rejections, Rejection{Category: TooLarge, Level: LevelError, File: f.Name, Limit: v.MaxSize})
			continue
		}

		accepted = append(accepted, models.PendingUpload{
			ID:            uuid.NewString(),
			Name:          f.Name,
			ContentType:   contentType,
			Data:          f.Data,
			Preview:       imaging.EncodeDataURL(contentType, f.Data),
			CorrelationID: uuid.NewString(),
		})
	}

	room := max(v.MaxFiles-pending, 0)
	if len(accepted) > room {
		for _, u := range accepted[room:] {
			rejections = append(rejections, Rejection{Category: MaxFiles, Level: LevelWarning, File: u.Name, Limit: int64(v.MaxFiles)})
		}
		accepted = accepted[:room]
	}

	return accepted, rejections
}

func (v *Validator) allowed(mt *mimetype.MIME) bool {
	return slices.ContainsFunc(v.AllowedTypes, func(t string) bool {
		return mt.Is(t)
	})
}

// Queue holds the pending uploads between selection and submission.
type Queue struct {
	mu        sync.Mutex
	validator *Validator
	items     []models.PendingUpload
}

func NewQueue(v *Validator) *Queue {
	if v == nil {
		v = NewValidator()
	}
	return &Queue{validator: v}
}

// Add validates files and appends the accepted ones.
func (q *Queue) Add(files ...File) ([]models.PendingUpload, []Rejection) {
	q.mu.Lock()
	defer q.mu.Unlock()

	accepted, rejections := q.validator.Validate(len(q.items), files)
	q.items = append(q.items, accepted...)
	return accepted, rejections
}

// Remove drops the pending upload with the given id.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := slices.IndexFunc(q.items, func(u models.PendingUpload) bool { return u.ID == id })
	if i < 0 {
		return false
	}
	q.items = slices.Delete(q.items, i, i+1)
	return true
}

func (q *Queue) List() []models.PendingUpload {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain empties the queue and returns what it held.
func (q *Queue) Drain() []models.PendingUpload {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}
