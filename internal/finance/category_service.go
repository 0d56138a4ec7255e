package finance

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// CategoryService manages user-defined categories alongside the seeded
// defaults.
type CategoryService struct {
	store  CategoryStore
	logger *log.Logger
}

func NewCategoryService(store CategoryStore, logger *log.Logger) *CategoryService {
	return &CategoryService{
		store:  store,
		logger: logger.WithComponent(log.ComponentFinance),
	}
}

func (s *CategoryService) Create(ctx context.Context, userID int64, name, kind string) (core.Category, error) {
	k, err := core.ParseKind(kind)
	if err != nil {
		return core.Category{}, &core.ValidationError{Field: "category_type", Message: "must be income or expense"}
	}

	c := core.Category{
		Name:    strings.TrimSpace(name),
		Kind:    k,
		OwnerID: &userID,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "Category created",
		log.FieldOperation, log.OpCreate,
		log.FieldUserID, userID,
		log.FieldCategoryID, created.ID,
		log.FieldCategory, created.Name,
		log.FieldKind, string(created.Kind))
	return created, nil
}

func (s *CategoryService) Get(ctx context.Context, userID, id int64) (core.Category, error) {
	return s.store.GetCategory(ctx, id, userID)
}

// List returns the categories visible to the user: the defaults plus
// the user's own. An empty kind returns both sides.
func (s *CategoryService) List(ctx context.Context, userID int64, kind string) ([]core.Category, error) {
	var k core.Kind
	if kind != "" {
		parsed, err := core.ParseKind(kind)
		if err != nil {
			return nil, &core.ValidationError{Field: "category_type", Message: "must be income or expense"}
		}
		k = parsed
	}
	return s.store.ListCategories(ctx, userID, k)
}

// Rename changes the name of a category the user owns. Defaults are
// read-only and surface as not found.
func (s *CategoryService) Rename(ctx context.Context, userID, id int64, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, &core.ValidationError{Field: "name", Message: "cannot be blank"}
	}
	if len(name) > 100 {
		return core.Category{}, &core.ValidationError{Field: "name", Message: "too long (max 100 characters)"}
	}

	updated, err := s.store.UpdateCategory(ctx, id, userID, name)
	if err != nil {
		return core.Category{}, err
	}

	s.logger.InfoContext(ctx, "Category renamed",
		log.FieldOperation, log.OpUpdate,
		log.FieldUserID, userID,
		log.FieldCategoryID, id,
		log.FieldCategory, updated.Name)
	return updated, nil
}

func (s *CategoryService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.store.DeleteCategory(ctx, id, userID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Category deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, userID,
		log.FieldCategoryID, id)
	return nil
}
