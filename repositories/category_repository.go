package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/roster-system/models"
)

var (
	ErrCategoryNotFound     = errors.New("category not found")
	ErrCategoryNameConflict = errors.New("category name conflict")
	ErrCategoryInUse        = errors.New("category cannot be deleted as it is in use") // FK от players / team_categories
)

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id string) (*models.Category, error)
	GetAll(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, exec SQLExecutor, id string) (bool, error)
}

type postgresCategoryRepository struct {
	db DBProvider
}

func NewPostgresCategoryRepository(db DBProvider) CategoryRepository {
	return &postgresCategoryRepository{db: db}
}

func (r *postgresCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return err
	}

	query := `INSERT INTO categories (id, name) VALUES ($1, $2)`
	if _, err := conn.ExecContext(ctx, query, category.ID, category.Name); err != nil {
		if isUniqueViolation(err, "categories_name_key") {
			return ErrCategoryNameConflict
		}
		return err
	}
	return nil
}

func (r *postgresCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, name FROM categories WHERE id = $1`

	var category models.Category
	err = conn.QueryRowContext(ctx, query, id).Scan(&category.ID, &category.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (r *postgresCategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

func (r *postgresCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return err
	}

	query := `UPDATE categories SET name = $1 WHERE id = $2`

	result, err := conn.ExecContext(ctx, query, category.Name, category.ID)
	if err != nil {
		if isUniqueViolation(err, "categories_name_key") {
			return ErrCategoryNameConflict
		}
		return err
	}

	return checkAffectedRows(result, ErrCategoryNotFound)
}

func (r *postgresCategoryRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.db.Get(ctx)
	if err != nil {
		return err
	}

	result, err := conn.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err, "") {
			return ErrCategoryInUse
		}
		return err
	}

	return checkAffectedRows(result, ErrCategoryNotFound)
}

func (r *postgresCategoryRepository) Exists(ctx context.Context, exec SQLExecutor, id string) (bool, error) {
	executor, err := getExecutor(ctx, r.db, exec)
	if err != nil {
		return false, err
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`
	if err := executor.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check category %s: %w", id, err)
	}
	return exists, nil
}
