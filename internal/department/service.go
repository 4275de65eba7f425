package department

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/progreview/progreview-api/internal/actionlog"
	"github.com/progreview/progreview-api/internal/errs"
	"github.com/progreview/progreview-api/internal/models"
	"github.com/progreview/progreview-api/pkg/logger"
)

// ChairResolver turns chair ids into public user views.
type ChairResolver interface {
	PublicByIDs(ctx context.Context, ids []string) ([]models.PublicUser, error)
}

// Service holds department and program business rules.
type Service struct {
	departments    DepartmentRepository
	programs       ProgramRepository
	chairs         ChairResolver
	actions        *actionlog.Service
	maxProgramName int
}

func NewService(departments DepartmentRepository, programs ProgramRepository, chairs ChairResolver, actions *actionlog.Service, maxProgramName int) *Service {
	if maxProgramName <= 0 {
		maxProgramName = 60
	}
	return &Service{
		departments:    departments,
		programs:       programs,
		chairs:         chairs,
		actions:        actions,
		maxProgramName: maxProgramName,
	}
}

// DepartmentInput is the body of a department create or patch; nil fields are left unchanged on patch.
type DepartmentInput struct {
	Name   *string   `json:"name"`
	Chairs *[]string `json:"chairs"`
}

// ProgramInput is the body of a program create or patch.
type ProgramInput struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("name is required: %w", errs.ErrInvalidInput)
	}
	return name, nil
}

func (s *Service) populate(ctx context.Context, d *Department) (*Populated, error) {
	chairs, err := s.chairs.PublicByIDs(ctx, d.Chairs)
	if err != nil {
		return nil, fmt.Errorf("populate chairs: %w", err)
	}
	return &Populated{ID: d.ID, Name: d.Name, Chairs: chairs, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}, nil
}

func (s *Service) CreateDepartment(ctx context.Context, in DepartmentInput, actor actionlog.Actor) (*Department, error) {
	if in.Name == nil {
		return nil, fmt.Errorf("name is required: %w", errs.ErrInvalidInput)
	}
	name, err := requireName(*in.Name)
	if err != nil {
		return nil, err
	}
	d := &Department{Name: name, Chairs: []string{}}
	if in.Chairs != nil {
		d.Chairs = append(d.Chairs, (*in.Chairs)...)
	}
	if err := s.departments.Create(ctx, d); err != nil {
		logger.Infof("Failed to create department %q: %v", name, err)
		return nil, err
	}
	logger.Infof("Created department with id %s", d.ID)
	s.actions.Log(ctx, "created a new department", actor, "department", d.ID, d.Name)
	return d, nil
}

func (s *Service) GetDepartment(ctx context.Context, id string) (*Populated, error) {
	d, err := s.departments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, d)
}

func (s *Service) ListDepartments(ctx context.Context) ([]*Populated, error) {
	ds, err := s.departments.List(ctx)
	if err != nil {
		logger.Errorf("Error fetching all departments: %v", err)
		return nil, err
	}
	out := make([]*Populated, 0, len(ds))
	for _, d := range ds {
		p, err := s.populate(ctx, d)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) UpdateDepartment(ctx context.Context, id string, in DepartmentInput, actor actionlog.Actor) (*Department, error) {
	d, err := s.departments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if d.Name, err = requireName(*in.Name); err != nil {
			return nil, err
		}
	}
	if in.Chairs != nil {
		d.Chairs = append([]string{}, (*in.Chairs)...)
	}
	if err := s.departments.Update(ctx, d); err != nil {
		return nil, err
	}
	logger.Infof("Updated department with id %s", id)
	s.actions.Log(ctx, "updated a department", actor, "department", d.ID, d.Name)
	return d, nil
}

// DeleteDepartment refuses with errs.ErrHasDependents while programs reference the department.
func (s *Service) DeleteDepartment(ctx context.Context, id string, actor actionlog.Actor) error {
	n, err := s.programs.CountByDepartment(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Infof("Tried to remove department with id %s but it had dependents", id)
		return fmt.Errorf("department %s has %d programs: %w", id, n, errs.ErrHasDependents)
	}
	d, err := s.departments.Get(ctx, id)
	if err != nil {
		logger.Infof("Tried to remove nonexistent department with id %s", id)
		return err
	}
	if err := s.departments.Delete(ctx, id); err != nil {
		return err
	}
	logger.Infof("Removed department with id %s", id)
	s.actions.Log(ctx, "deleted a department", actor, "department", id, d.Name)
	return nil
}

func (s *Service) ListDepartmentPrograms(ctx context.Context, departmentID string) ([]*Program, error) {
	return s.programs.ListByDepartment(ctx, departmentID)
}

func (s *Service) checkProgramName(name string) (string, error) {
	name, err := requireName(name)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(name) > s.maxProgramName {
		return "", fmt.Errorf("program name exceeds %d characters: %w", s.maxProgramName, errs.ErrInvalidInput)
	}
	return name, nil
}

func (s *Service) checkDepartment(ctx context.Context, id string) error {
	if _, err := s.departments.Get(ctx, id); err != nil {
		if errs.IsNotFound(err) {
			return fmt.Errorf("department %s does not exist: %w", id, errs.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *Service) CreateProgram(ctx context.Context, in ProgramInput, actor actionlog.Actor) (*Program, error) {
	if in.Name == nil || in.Department == nil {
		return nil, fmt.Errorf("name and department are required: %w", errs.ErrInvalidInput)
	}
	name, err := s.checkProgramName(*in.Name)
	if err != nil {
		return nil, err
	}
	if err := s.checkDepartment(ctx, *in.Department); err != nil {
		return nil, err
	}
	p := &Program{Name: name, Department: *in.Department}
	if err := s.programs.Create(ctx, p); err != nil {
		return nil, err
	}
	logger.Infof("Created program with id %s", p.ID)
	s.actions.Log(ctx, "created a new program", actor, "program", p.ID, p.Name)
	return p, nil
}

func (s *Service) GetProgram(ctx context.Context, id string) (*Program, error) {
	return s.programs.Get(ctx, id)
}

func (s *Service) ListPrograms(ctx context.Context) ([]*Program, error) {
	return s.programs.List(ctx)
}

func (s *Service) UpdateProgram(ctx context.Context, id string, in ProgramInput, actor actionlog.Actor) (*Program, error) {
	p, err := s.programs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if p.Name, err = s.checkProgramName(*in.Name); err != nil {
			return nil, err
		}
	}
	if in.Department != nil {
		if err := s.checkDepartment(ctx, *in.Department); err != nil {
			return nil, err
		}
		p.Department = *in.Department
	}
	if err := s.programs.Update(ctx, p); err != nil {
		return nil, err
	}
	logger.Infof("Updated program with id %s", id)
	s.actions.Log(ctx, "updated a program", actor, "program", p.ID, p.Name)
	return p, nil
}

func (s *Service) DeleteProgram(ctx context.Context, id string, actor actionlog.Actor) error {
	p, err := s.programs.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.programs.Delete(ctx, id); err != nil {
		return err
	}
	logger.Infof("Removed program with id %s", id)
	s.actions.Log(ctx, "deleted a program", actor, "program", id, p.Name)
	return nil
}
