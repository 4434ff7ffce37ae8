package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	authcore "github.com/sentralhq/authcore"
)

// Profile is the persisted profile row.
type Profile struct {
	SubjectID   string `gorm:"primaryKey;size:64"`
	Username    string `gorm:"uniqueIndex;size:64"`
	DisplayName string `gorm:"size:128"`
	AvatarURL   string `gorm:"size:512"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleAssignment maps a subject to at most one role name.
type RoleAssignment struct {
	SubjectID string `gorm:"primaryKey;size:64"`
	Role      string `gorm:"size:32"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store implements the Directory contract over a gorm handle.
type Store struct {
	db *gorm.DB
}

// New wraps an existing gorm handle and migrates the profile and role
// tables.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Profile{}, &RoleAssignment{}); err != nil {
		return nil, fmt.Errorf("directory migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenSQLite opens (or creates) a SQLite-backed store at path. Use
// ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("directory open: %w", err)
	}
	return New(db)
}

// FetchProfile describes the fetchprofile operation and its observable behavior.
//
// FetchProfile may return an error when input validation, dependency calls, or security checks fail.
// FetchProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) FetchProfile(ctx context.Context, subjectID string) (*authcore.UserProfile, error) {
	var row Profile
	err := s.db.WithContext(ctx).First(&row, "subject_id = ?", subjectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authcore.ErrProfileNotFound
		}
		return nil, fmt.Errorf("%w: %v", authcore.ErrProfileFetch, err)
	}
	return toUserProfile(row), nil
}

// FetchRoleAssignment describes the fetchroleassignment operation and its observable behavior.
//
// FetchRoleAssignment may return an error when input validation, dependency calls, or security checks fail.
// FetchRoleAssignment does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) FetchRoleAssignment(ctx context.Context, subjectID string) (string, error) {
	var row RoleAssignment
	err := s.db.WithContext(ctx).First(&row, "subject_id = ?", subjectID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", authcore.ErrRoleNotAssigned
		}
		return "", fmt.Errorf("%w: %v", authcore.ErrProfileFetch, err)
	}
	return row.Role, nil
}

// UpdateProfile describes the updateprofile operation and its observable behavior.
//
// UpdateProfile may return an error when input validation, dependency calls, or security checks fail.
// UpdateProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) UpdateProfile(ctx context.Context, subjectID string, update authcore.ProfileUpdate) (*authcore.UserProfile, error) {
	changes := map[string]interface{}{}
	if update.Username != nil {
		changes["username"] = *update.Username
	}
	if update.DisplayName != nil {
		changes["display_name"] = *update.DisplayName
	}
	if update.AvatarURL != nil {
		changes["avatar_url"] = *update.AvatarURL
	}

	var row Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, "subject_id = ?", subjectID).Error; err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&row).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(&row, "subject_id = ?", subjectID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authcore.ErrProfileNotFound
		}
		return nil, fmt.Errorf("%w: %v", authcore.ErrProfileFetch, err)
	}
	return toUserProfile(row), nil
}

// PutProfile inserts or replaces a profile row. Intended for seeding
// and for syncing provider sign-ups into the directory.
func (s *Store) PutProfile(ctx context.Context, profile *authcore.UserProfile) error {
	row := Profile{
		SubjectID:   profile.ID,
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("%w: %v", authcore.ErrProfileFetch, err)
	}
	return nil
}

// AssignRole inserts or replaces a subject's role assignment.
func (s *Store) AssignRole(ctx context.Context, subjectID string, role authcore.Role) error {
	row := RoleAssignment{
		SubjectID: subjectID,
		Role:      string(role),
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("%w: %v", authcore.ErrProfileFetch, err)
	}
	return nil
}

func toUserProfile(row Profile) *authcore.UserProfile {
	return &authcore.UserProfile{
		ID:          row.SubjectID,
		Username:    row.Username,
		DisplayName: row.DisplayName,
		AvatarURL:   row.AvatarURL,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
