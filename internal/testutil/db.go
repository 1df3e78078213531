// Package testutil provides the in-memory test database shared by
// handler and middleware tests.
package testutil

import (
	"testing"

	"github.com/openkj/songbook-api/internal/model"
	"github.com/openkj/songbook-api/pkg/database"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB opens a fresh in-memory SQLite database, migrates every
// model, and installs it as the global database for the duration of the
// test.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	// A second connection to :memory: would see an empty database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	prev := database.GetDB()
	database.SetDB(db)
	t.Cleanup(func() {
		database.SetDB(prev)
		sqlDB.Close()
	})

	return db
}

// CreateUser inserts a user with a bcrypt-hashed password and its sync
// state row, returning the user
func CreateUser(t *testing.T, db *gorm.DB, email, password string, admin bool) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user := model.User{
		Email:    email,
		Password: string(hash),
		Name:     "Test User",
		Admin:    admin,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := db.Create(&model.State{UserID: user.ID}).Error; err != nil {
		t.Fatalf("create state: %v", err)
	}
	return &user
}

// CreateVenue inserts a venue for the user
func CreateVenue(t *testing.T, db *gorm.DB, userID uint, name string) *model.Venue {
	t.Helper()

	venue := model.Venue{
		UserID:  userID,
		Name:    name,
		URLName: name,
	}
	if err := db.Create(&venue).Error; err != nil {
		t.Fatalf("create venue: %v", err)
	}
	return &venue
}

// Serial reads the user's current sync serial
func Serial(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()

	var state model.State
	if err := db.Where("user_id = ?", userID).First(&state).Error; err != nil {
		t.Fatalf("load state: %v", err)
	}
	return state.Serial
}
