package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/roster-system/models"
	"github.com/Dosada05/roster-system/repositories"
	"github.com/Dosada05/roster-system/utils"
)

type CategoryService interface {
	CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error)
	GetAllCategories(ctx context.Context) ([]models.Category, error)
	UpdateCategory(ctx context.Context, id string, input CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	GetDelegateAssignments(ctx context.Context, userID string) ([]models.DelegateAssignment, error)
}

type CategoryInput struct {
	Name string `json:"name"`
}

type categoryService struct {
	categoryRepo repositories.CategoryRepository
	teamRepo     repositories.TeamRepository
	userRepo     repositories.UserRepository
}

func NewCategoryService(
	categoryRepo repositories.CategoryRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		teamRepo:     teamRepo,
		userRepo:     userRepo,
	}
}

func (s *categoryService) CreateCategory(ctx context.Context, input CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	category := &models.Category{
		ID:   utils.NewID(utils.PrefixCategory),
		Name: name,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repositories.ErrCategoryNameConflict) {
			return nil, ErrCategoryNameConflict
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *categoryService) GetAllCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categoryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get all categories: %w", err)
	}
	if categories == nil {
		return []models.Category{}, nil
	}
	return categories, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, id string, input CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	category := &models.Category{ID: id, Name: name}
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		switch {
		case errors.Is(err, repositories.ErrCategoryNotFound):
			return nil, ErrCategoryNotFound
		case errors.Is(err, repositories.ErrCategoryNameConflict):
			return nil, ErrCategoryNameConflict
		default:
			return nil, fmt.Errorf("failed to update category %s: %w", id, err)
		}
	}
	return category, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrCategoryNotFound):
			return ErrCategoryNotFound
		case errors.Is(err, repositories.ErrCategoryInUse):
			return ErrCategoryInUse
		default:
			return fmt.Errorf("failed to delete category %s: %w", id, err)
		}
	}
	return nil
}

// GetDelegateAssignments lists the (team, category) pairs of the teams
// assigned to a delegate.
func (s *categoryService) GetDelegateAssignments(ctx context.Context, userID string) ([]models.DelegateAssignment, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}

	if user.Role != models.RoleDelegate {
		return nil, ErrUserNotDelegate
	}

	assignments, err := s.teamRepo.ListAssignments(ctx, user.AssignedTeams)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for user %s: %w", userID, err)
	}
	if assignments == nil {
		return []models.DelegateAssignment{}, nil
	}
	return assignments, nil
}
