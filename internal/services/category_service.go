package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/models"
	"crazypromo/internal/pagination"
	"crazypromo/internal/slug"
)

// categoryService handles storefront category management.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a category, optionally under a parent.
func (s *categoryService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if in.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	categorySlug := slug.Make(in.Name, slug.MaxLength)
	if categorySlug == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name must contain letters or digits")
	}

	if in.ParentID != nil && *in.ParentID != "" {
		if _, err := s.GetCategory(ctx, *in.ParentID); err != nil {
			if errors.Is(err, apperrors.ErrCategoryNotFound) {
				return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "parent category not found")
			}
			return nil, err
		}
	} else {
		in.ParentID = nil
	}

	category := &models.Category{
		Name:        in.Name,
		Slug:        categorySlug,
		Description: in.Description,
		Icon:        in.Icon,
		Image:       in.Image,
		ParentID:    in.ParentID,
		IsActive:    in.IsActive == nil || *in.IsActive,
	}

	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicateSlug
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// ListCategories returns categories ordered by name.
func (s *categoryService) ListCategories(ctx context.Context, onlyActive bool, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Category{})
	if onlyActive {
		base = base.Where("is_active = ?", true)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := base.Order("name ASC").Scopes(pagination.Paginate(page)).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page, totalItems)
	return &result, nil
}

// GetCategory finds a category by id or slug, with its direct children.
func (s *categoryService) GetCategory(ctx context.Context, idOrSlug string) (*models.Category, error) {
	var category models.Category
	db := s.db.WithContext(ctx).
		Preload("Children", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") })
	err := byIDOrSlug(db, "categories", idOrSlug).First(&category).Error
	if err != nil {
		return nil, notFound(err, apperrors.ErrCategoryNotFound)
	}
	return &category, nil
}

// UpdateCategory replaces the editable fields of a category.
func (s *categoryService) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*models.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.ParentID != nil && *in.ParentID != "" {
		if *in.ParentID == category.ID {
			return nil, apperrors.ErrSelfParentCategory
		}
		if _, err := s.GetCategory(ctx, *in.ParentID); err != nil {
			if errors.Is(err, apperrors.ErrCategoryNotFound) {
				return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "parent category not found")
			}
			return nil, err
		}
		category.ParentID = in.ParentID
	} else if in.ParentID != nil {
		category.ParentID = nil
	}

	if in.Name != "" {
		category.Name = in.Name
		category.Slug = slug.Make(in.Name, slug.MaxLength)
	}
	category.Description = in.Description
	category.Icon = in.Icon
	category.Image = in.Image
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}

	category.Children = nil
	if err := s.db.WithContext(ctx).Omit("Children", "Parent").Save(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicateSlug
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// DeleteCategory removes a category without children or products.
func (s *categoryService) DeleteCategory(ctx context.Context, id string) error {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if len(category.Children) > 0 {
		return apperrors.ErrCategoryHasChildren
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", category.ID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrCategoryInUse
	}

	if err := s.db.WithContext(ctx).Unscoped().Delete(&models.Category{}, "id = ?", category.ID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
