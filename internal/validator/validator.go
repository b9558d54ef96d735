// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"crazypromo/internal/affiliate"
	"crazypromo/internal/feeds"
	"crazypromo/internal/models"
)

// PromotionSorts lists the accepted promotion list orderings.
var PromotionSorts = []string{"deal_score", "discount", "price", "newest"}

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("feed_type", validateFeedType)
	_ = v.RegisterValidation("affiliate_type", validateAffiliateType)
	_ = v.RegisterValidation("promotion_sort", validatePromotionSort)
	_ = v.RegisterValidation("price_source", validatePriceSource)
}

func validateFeedType(fl validator.FieldLevel) bool {
	_, err := feeds.FormatOf(feeds.Provider(fl.Field().String()))
	return err == nil
}

func validateAffiliateType(fl validator.FieldLevel) bool {
	switch affiliate.LinkType(fl.Field().String()) {
	case affiliate.LinkQueryParam, affiliate.LinkPathAppend, affiliate.LinkCustom:
		return true
	}
	return false
}

func validatePromotionSort(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, sort := range PromotionSorts {
		if s == sort {
			return true
		}
	}
	return false
}

func validatePriceSource(fl validator.FieldLevel) bool {
	switch models.PriceSource(fl.Field().String()) {
	case models.PriceSourceManual, models.PriceSourceFeed, models.PriceSourceScheduled:
		return true
	}
	return false
}
