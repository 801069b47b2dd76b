package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/lead-enricher/internal/dto"
	"github.com/octobees/lead-enricher/internal/enrichment"
	"github.com/octobees/lead-enricher/internal/entity"
	"github.com/octobees/lead-enricher/internal/normalize"
	"github.com/octobees/lead-enricher/internal/repository"
)

// Registrar stores placeholder records for leads.
type Registrar interface {
	Register(ctx context.Context, lead enrichment.Lead) (*entity.Company, error)
}

// Scheduler queues stored companies for background enrichment.
type Scheduler interface {
	Submit(companies ...*entity.Company) int
}

// CompaniesService exposes read/write operations for the company catalogue.
type CompaniesService struct {
	repo        repository.CompaniesRepository
	registrar   Registrar
	scheduler   Scheduler
	phoneRegion string
}

// CSVValidationError indicates that the provided CSV payload is invalid.
type CSVValidationError struct {
	Message string
}

// Error implements the error interface.
func (e CSVValidationError) Error() string {
	return e.Message
}

// ErrInvalidPhone is returned when a callback carries no usable phone number.
var ErrInvalidPhone = errors.New("invalid phone number")

// RegisterSummary reports how a batch of leads was handled.
type RegisterSummary struct {
	Registered int              `json:"registered"`
	Queued     int              `json:"queued"`
	Skipped    int              `json:"skipped"`
	Total      int              `json:"total"`
	Companies  []entity.Company `json:"companies"`
}

// NewCompaniesService creates a new instance of CompaniesService.
func NewCompaniesService(repo repository.CompaniesRepository, registrar Registrar, scheduler Scheduler, phoneRegion string) *CompaniesService {
	return &CompaniesService{repo: repo, registrar: registrar, scheduler: scheduler, phoneRegion: phoneRegion}
}

// ListCompanies returns companies respecting pagination defaults.
func (s *CompaniesService) ListCompanies(ctx context.Context, filter dto.ListFilter) ([]entity.Company, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}
	return s.repo.List(ctx, filter)
}

// GetCompany returns one stored company.
func (s *CompaniesService) GetCompany(ctx context.Context, id uuid.UUID) (*entity.Company, error) {
	return s.repo.Get(ctx, id)
}

// DeleteCompany removes one stored company.
func (s *CompaniesService) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// RegisterLeads stores a placeholder per lead and queues the stored records for enrichment.
// Leads without a valid domain are skipped. When storing fails, the leads stored before the
// failure are still queued.
func (s *CompaniesService) RegisterLeads(ctx context.Context, leads []dto.LeadRequest) (RegisterSummary, error) {
	summary := RegisterSummary{Total: len(leads), Companies: make([]entity.Company, 0, len(leads))}
	registered := make([]*entity.Company, 0, len(leads))

	var registerErr error
	for _, lead := range leads {
		company, err := s.registrar.Register(ctx, enrichment.Lead{
			Name:               lead.Name,
			Domain:             lead.Domain,
			RegistrationNumber: lead.RegistrationNumber,
			DirectoryID:        lead.DirectoryID,
			LogoURL:            lead.LogoURL,
			LinkedInURL:        lead.LinkedInURL,
		})
		if err != nil {
			if errors.Is(err, enrichment.ErrInvalidIdentifier) {
				zap.L().Warn("skipping lead", zap.String("domain", lead.Domain), zap.Error(err))
				summary.Skipped++
				continue
			}
			registerErr = err
			break
		}
		registered = append(registered, company)
		summary.Companies = append(summary.Companies, *company)
	}

	summary.Registered = len(registered)
	if s.scheduler != nil && len(registered) > 0 {
		summary.Queued = s.scheduler.Submit(registered...)
	}
	return summary, registerErr
}

// ImportCompaniesCSV registers the leads listed in a CSV reader and queues them.
func (s *CompaniesService) ImportCompaniesCSV(ctx context.Context, r io.Reader) (RegisterSummary, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return RegisterSummary{}, CSVValidationError{Message: "csv file is empty"}
		}
		return RegisterSummary{}, fmt.Errorf("read csv header: %w", err)
	}

	indexMap, valErr := buildHeaderIndex(header)
	if valErr != nil {
		return RegisterSummary{}, valErr
	}

	var leads []dto.LeadRequest
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return RegisterSummary{}, fmt.Errorf("read csv row: %w", err)
		}

		lead := dto.LeadRequest{
			Name:               column(row, indexMap, "name"),
			Domain:             column(row, indexMap, "domain"),
			RegistrationNumber: column(row, indexMap, "registration_number"),
		}
		if lead.Domain == "" {
			continue
		}
		leads = append(leads, lead)
	}

	if len(leads) == 0 {
		return RegisterSummary{}, CSVValidationError{Message: "csv file has no rows with a domain"}
	}
	return s.RegisterLeads(ctx, leads)
}

// RecordPhone stores a phone number delivered by the directory callback on the role's
// key person and returns that person's name.
func (s *CompaniesService) RecordPhone(ctx context.Context, domain string, role entity.Role, raw string) (string, error) {
	phone := normalize.Phone(raw, s.phoneRegion)
	if !normalize.IsUsable(phone) {
		return "", ErrInvalidPhone
	}
	return s.repo.UpdateKeyPersonPhone(ctx, normalize.Domain(domain), role, phone)
}

var requiredCSVHeaders = []string{"name", "domain"}

func buildHeaderIndex(header []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	missing := make([]string, 0)
	for _, required := range requiredCSVHeaders {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, CSVValidationError{Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}
	return index, nil
}

func column(row []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
