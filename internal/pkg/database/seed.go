package database

import (
	"github.com/ManuelReschke/PulseFox/app/models"
	"github.com/ManuelReschke/PulseFox/app/repository"
	"gorm.io/gorm"
)

// seedPlans upserts the immutable plan reference data at startup.
func seedPlans(db *gorm.DB) error {
	return repository.NewSubscriptionRepository(db).SeedPlans(models.DefaultPlans())
}
