package service

import (
	"context"
	"errors"
	"strings"

	"medident/internal/dto"
	"medident/internal/model"
	"medident/internal/repository"

	"github.com/google/uuid"
)

type CategoryService interface {
	List(ctx context.Context) ([]dto.CategoryResponse, error)
	Create(ctx context.Context, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateCategoryRequest) (*dto.CategoryResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

func (s *categoryService) List(ctx context.Context) ([]dto.CategoryResponse, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CategoryResponse, len(list))
	for i := range list {
		out[i] = toCategoryResponse(&list[i])
	}
	return out, nil
}

func (s *categoryService) Create(ctx context.Context, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error) {
	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameFree(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}
	c := &model.Category{Name: name, Description: trimmedOrNil(req.Description)}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("category %q already exists", name)
		}
		return nil, err
	}
	resp := toCategoryResponse(c)
	return &resp, nil
}

func (s *categoryService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateCategoryRequest) (*dto.CategoryResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, notFound("category not found")
	}
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := s.ensureNameFree(ctx, name, id); err != nil {
			return nil, err
		}
		c.Name = name
	}
	if req.Description != nil {
		c.Description = trimmedOrNil(req.Description)
	}
	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("category %q already exists", c.Name)
		}
		return nil, err
	}
	resp := toCategoryResponse(c)
	return &resp, nil
}

func (s *categoryService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if repository.IsNotFound(err) {
		return notFound("category not found")
	}
	return err
}

// ensureNameFree rejects a name already used by a category other than self.
func (s *categoryService) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	if name == "" {
		return invalid("name is required")
	}
	existing, err := s.repo.FindByName(ctx, name)
	switch {
	case repository.IsNotFound(err):
		return nil
	case err != nil:
		return err
	case existing.ID != self:
		return conflict("category %q already exists", existing.Name)
	}
	return nil
}
