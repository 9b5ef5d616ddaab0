package service

import (
	"context"
	"sync"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

type CatalogRepository interface {
	ListServices(ctx context.Context) ([]models.Service, error)
	ListStaff(ctx context.Context) ([]models.Staff, error)
	ListStaffServices(ctx context.Context) ([]models.StaffService, error)
}

// CatalogService serves services, staff and eligibility from memory.
// The catalog is read-only at runtime; Refresh swaps in a new snapshot.
type CatalogService struct {
	repo   CatalogRepository
	policy string
	logger *zerolog.Logger

	mu          sync.RWMutex
	services    []models.Service
	servicesMap map[int64]models.Service
	staff       []models.Staff
	staffMap    map[int64]models.Staff
	eligible    map[int64]map[int64]bool
}

// NewCatalogService builds an empty catalog; call Refresh to load it.
// policy decides eligibility for staff without any staff_services rows.
func NewCatalogService(repo CatalogRepository, policy string, logger *zerolog.Logger) *CatalogService {
	if policy == "" {
		policy = models.EligibilityPermissive
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CatalogService{
		repo:        repo,
		policy:      policy,
		logger:      logger,
		servicesMap: map[int64]models.Service{},
		staffMap:    map[int64]models.Staff{},
		eligible:    map[int64]map[int64]bool{},
	}
}

func (s *CatalogService) Refresh(ctx context.Context) error {
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return err
	}
	staff, err := s.repo.ListStaff(ctx)
	if err != nil {
		return err
	}
	links, err := s.repo.ListStaffServices(ctx)
	if err != nil {
		return err
	}

	servicesMap := make(map[int64]models.Service, len(services))
	for _, svc := range services {
		servicesMap[svc.ID] = svc
	}
	staffMap := make(map[int64]models.Staff, len(staff))
	for _, st := range staff {
		staffMap[st.ID] = st
	}
	eligible := make(map[int64]map[int64]bool)
	for _, l := range links {
		if eligible[l.StaffID] == nil {
			eligible[l.StaffID] = make(map[int64]bool)
		}
		eligible[l.StaffID][l.ServiceID] = true
	}

	s.mu.Lock()
	s.services, s.servicesMap = services, servicesMap
	s.staff, s.staffMap = staff, staffMap
	s.eligible = eligible
	s.mu.Unlock()

	s.logger.Info().
		Int("services", len(services)).
		Int("staff", len(staff)).
		Str("eligibility_default", s.policy).
		Msg("Catalog loaded")
	return nil
}

func (s *CatalogService) ListServices(ctx context.Context) ([]models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Service(nil), s.services...), nil
}

func (s *CatalogService) GetService(ctx context.Context, id int64) (*models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.servicesMap[id]
	if !ok {
		return nil, domain.NotFound("service %d not found", id)
	}
	return &svc, nil
}

// ListStaff returns all staff, or only those eligible for serviceID when it is set.
func (s *CatalogService) ListStaff(ctx context.Context, serviceID *int64) ([]models.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if serviceID == nil {
		return append([]models.Staff(nil), s.staff...), nil
	}
	if _, ok := s.servicesMap[*serviceID]; !ok {
		return nil, domain.NotFound("service %d not found", *serviceID)
	}

	out := []models.Staff{}
	for _, st := range s.staff {
		if s.eligibleLocked(st.ID, *serviceID) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *CatalogService) GetStaff(ctx context.Context, id int64) (*models.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.staffMap[id]
	if !ok {
		return nil, domain.NotFound("staff member %d not found", id)
	}
	return &st, nil
}

func (s *CatalogService) IsEligible(ctx context.Context, staffID, serviceID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eligibleLocked(staffID, serviceID), nil
}

func (s *CatalogService) eligibleLocked(staffID, serviceID int64) bool {
	rows := s.eligible[staffID]
	if len(rows) == 0 {
		return s.policy == models.EligibilityPermissive
	}
	return rows[serviceID]
}

// Categories lists distinct service categories in catalog order.
func (s *CatalogService) Categories(ctx context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, svc := range s.services {
		if !seen[svc.Category] {
			seen[svc.Category] = true
			out = append(out, svc.Category)
		}
	}
	return out
}

func (s *CatalogService) ServicesByCategory(ctx context.Context, category string) []models.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Service{}
	for _, svc := range s.services {
		if svc.Category == category {
			out = append(out, svc)
		}
	}
	return out
}
