package config

import (
	"log"
	"strings"

	"cmm-stock/internal/adapters/persistence/models"
	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db   *gorm.DB
	seed SeedConfig
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, seed SeedConfig) *Seeder {
	return &Seeder{db: db, seed: seed}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		return err
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser creates the bootstrap admin when the table has no Admin yet.
// Without SEED_ADMIN_EMAIL the step is skipped.
func (s *Seeder) seedAdminUser() error {
	email := strings.ToLower(strings.TrimSpace(s.seed.AdminEmail))
	if email == "" || s.seed.AdminPassword == "" {
		log.Println("⏭️ Skipping admin seed: SEED_ADMIN_EMAIL or SEED_ADMIN_PASSWORD not set")
		return nil
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", domain.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := password.Hash(s.seed.AdminPassword)
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:     "Administrator",
		Email:    email,
		Password: hashedPassword,
		Role:     domain.RoleAdmin,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Email)
	return nil
}
