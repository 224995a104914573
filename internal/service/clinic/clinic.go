package clinic

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_queue/config"
	"github.com/Alijeyrad/simorq_queue/internal/repo"
	"github.com/Alijeyrad/simorq_queue/internal/service/queue"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type PaginatedResult[T any] struct {
	Data       []T
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

type ListClinicsRequest struct {
	Page    int
	PerPage int
	Active  *bool
}

type CreateClinicRequest struct {
	ID        string
	Name      string
	Date      *time.Time
	StartTime string
	Settings  *repo.QueueSettings
}

type UpdateClinicRequest struct {
	Name   *string
	Active *bool
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	CreateClinic(ctx context.Context, req CreateClinicRequest) (*repo.Clinic, error)
	GetClinic(ctx context.Context, clinicID string) (*repo.Clinic, error)
	ListClinics(ctx context.Context, req ListClinicsRequest) (*PaginatedResult[repo.Clinic], error)
	UpdateClinic(ctx context.Context, clinicID string, req UpdateClinicRequest) (*repo.Clinic, error)
	UpdateSettings(ctx context.Context, clinicID string, req queue.SettingsUpdate) (*repo.Clinic, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type clinicService struct {
	store    repo.Store
	queue    queue.Service
	defaults config.QueueDefaultsConfig
	clock    func() time.Time
}

func New(store repo.Store, queueSvc queue.Service, defaults config.QueueDefaultsConfig) Service {
	return &clinicService{store: store, queue: queueSvc, defaults: defaults, clock: time.Now}
}

// ---------------------------------------------------------------------------
// Clinic CRUD
// ---------------------------------------------------------------------------

func (s *clinicService) CreateClinic(ctx context.Context, req CreateClinicRequest) (*repo.Clinic, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ErrNameRequired
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = slugify(req.Name)
	}
	if id == "" {
		id = uuid.NewString()
	}
	if !validID.MatchString(id) {
		return nil, ErrInvalidID
	}

	c := repo.Clinic{
		ID:          id,
		Name:        req.Name,
		Active:      true,
		StartTime:   s.defaults.StartTime,
		QueueStatus: repo.SessionClosed,
		Settings: repo.QueueSettings{
			MaxCapacity:       s.defaults.MaxCapacity,
			AvgServiceMinutes: s.defaults.AvgServiceMinutes,
			AutoClose:         s.defaults.AutoClose,
		},
		UpdatedAt: s.clock().UTC(),
	}
	if req.StartTime != "" {
		c.StartTime = strings.TrimSpace(req.StartTime)
	}
	if req.Date != nil {
		c.Date = time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), 0, 0, 0, 0, time.UTC)
	}
	if req.Settings != nil {
		c.Settings = *req.Settings
	}
	if c.Settings.MaxCapacity < 0 || c.Settings.AvgServiceMinutes < 0 {
		return nil, ErrInvalidSettings
	}

	if err := s.store.CreateClinic(ctx, c); err != nil {
		if errors.Is(err, repo.ErrClinicExists) {
			return nil, ErrClinicAlreadyExists
		}
		return nil, fmt.Errorf("create clinic: %w", err)
	}
	return &c, nil
}

func (s *clinicService) GetClinic(ctx context.Context, clinicID string) (*repo.Clinic, error) {
	c, err := s.store.FindClinic(ctx, clinicID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrClinicNotFound
		}
		return nil, fmt.Errorf("get clinic: %w", err)
	}
	return &c, nil
}

func (s *clinicService) ListClinics(ctx context.Context, req ListClinicsRequest) (*PaginatedResult[repo.Clinic], error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 100 {
		req.PerPage = 20
	}
	offset := (req.Page - 1) * req.PerPage

	all, err := s.store.ListClinics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clinics: %w", err)
	}
	if req.Active != nil {
		all = slices.DeleteFunc(all, func(c repo.Clinic) bool { return c.Active != *req.Active })
	}
	slices.SortFunc(all, func(a, b repo.Clinic) int { return strings.Compare(a.ID, b.ID) })

	total := len(all)
	page := []repo.Clinic{}
	if offset < total {
		page = all[offset:min(offset+req.PerPage, total)]
	}

	totalPages := (total + req.PerPage - 1) / req.PerPage
	return &PaginatedResult[repo.Clinic]{
		Data:       page,
		Total:      total,
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalPages: totalPages,
	}, nil
}

// UpdateClinic changes registry fields under the clinic's queue lock so it
// never interleaves with a queue operation.
func (s *clinicService) UpdateClinic(ctx context.Context, clinicID string, req UpdateClinicRequest) (*repo.Clinic, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, ErrNameRequired
	}

	var updated repo.Clinic
	err := s.store.Atomic(ctx, clinicID, func(tx repo.Tx) error {
		c := tx.Clinic()
		if req.Name != nil {
			c.Name = strings.TrimSpace(*req.Name)
		}
		if req.Active != nil {
			c.Active = *req.Active
		}
		c.UpdatedAt = s.clock().UTC()
		tx.SaveClinic(c)
		updated = c
		return nil
	})
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrClinicNotFound
		}
		return nil, fmt.Errorf("update clinic: %w", err)
	}
	return &updated, nil
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// UpdateSettings goes through the queue engine so waiting entries pick up the
// new timings.
func (s *clinicService) UpdateSettings(ctx context.Context, clinicID string, req queue.SettingsUpdate) (*repo.Clinic, error) {
	if _, err := s.queue.UpdateSettings(ctx, clinicID, req); err != nil {
		return nil, err
	}
	return s.GetClinic(ctx, clinicID)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// Clinic ids end up in store keys and NATS subjects, so they stay token-safe.
var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' {
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 64 {
		slug = strings.TrimRight(slug[:64], "-")
	}
	return slug
}
