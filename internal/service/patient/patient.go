package patient

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/Alijeyrad/simorq_queue/internal/repo"
	"github.com/Alijeyrad/simorq_queue/pkg/phone"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type RegisterPatientRequest struct {
	RefID string
	Name  string
	Email string
	Phone string
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Service manages the directory of pre-registered patients that
// AdmitRegistered admits from.
type Service interface {
	RegisterPatient(ctx context.Context, req RegisterPatientRequest) (*repo.Patient, error)
	GetPatient(ctx context.Context, refID string) (*repo.Patient, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type patientService struct {
	dir    repo.PatientDirectory
	region string
}

func New(dir repo.PatientDirectory, phoneRegion string) Service {
	if phoneRegion == "" {
		phoneRegion = phone.DefaultRegion
	}
	return &patientService{dir: dir, region: phoneRegion}
}

func (s *patientService) RegisterPatient(ctx context.Context, req RegisterPatientRequest) (*repo.Patient, error) {
	p := repo.Patient{
		RefID: strings.TrimSpace(req.RefID),
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
	}
	if p.RefID == "" {
		return nil, ErrRefIDRequired
	}
	if p.Name == "" {
		return nil, ErrNameRequired
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return nil, ErrInvalidEmail
		}
	}
	if raw := strings.TrimSpace(req.Phone); raw != "" {
		if !phone.Valid(raw, s.region) {
			return nil, ErrInvalidPhone
		}
		p.Phone = phone.Normalize(raw, s.region)
	}

	if err := s.dir.SavePatient(ctx, p); err != nil {
		return nil, fmt.Errorf("save patient: %w", err)
	}
	return &p, nil
}

func (s *patientService) GetPatient(ctx context.Context, refID string) (*repo.Patient, error) {
	p, err := s.dir.FindPatient(ctx, strings.TrimSpace(refID))
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return &p, nil
}
