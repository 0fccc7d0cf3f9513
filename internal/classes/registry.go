// Package classes manages classes, invite codes and memberships, and answers
// the authorization question for class-scoped operations.
package classes

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/lectern/internal/config"
	"github.com/hyperjump/lectern/internal/models"
	"github.com/hyperjump/lectern/internal/storage"
)

const (
	classIDPrefix = "class_"
	// maxCodeAttempts bounds retries on id or invite code collisions.
	maxCodeAttempts = 5
)

// Registry implements class and membership operations over a ClassStore.
type Registry struct {
	store           storage.ClassStore
	requireApproval bool
	logger          *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry. When cfg.JoinRequiresApproval is set,
// students join as pending until the teacher approves them.
func NewRegistry(store storage.ClassStore, cfg *config.ClassesConfig, opts ...Option) *Registry {
	r := &Registry{
		store:           store,
		requireApproval: cfg != nil && cfg.JoinRequiresApproval,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateClass creates a class owned by teacherID and enrolls the teacher.
func (r *Registry) CreateClass(ctx context.Context, teacherID, name, description string) (*models.Class, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: class name is required", models.ErrValidation)
	}
	description = strings.TrimSpace(description)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		id, err := randomToken(8)
		if err != nil {
			return nil, err
		}
		code, err := randomToken(16)
		if err != nil {
			return nil, err
		}
		class := &models.Class{
			ID:          classIDPrefix + id,
			Name:        name,
			Description: description,
			TeacherID:   teacherID,
			InviteCode:  code,
		}
		teacher := &models.Membership{
			ClassID: class.ID,
			UserID:  teacherID,
			Role:    models.RoleTeacher,
			Status:  models.StatusActive,
		}
		err = r.store.CreateClass(ctx, class, teacher)
		if errors.Is(err, storage.ErrInviteCodeTaken) {
			r.logger.Debug("Class id or invite code collision, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		r.logger.Info("Class created", zap.String("class_id", class.ID), zap.String("teacher_id", teacherID))
		return class, nil
	}
	return nil, fmt.Errorf("create class: %w", storage.ErrInviteCodeTaken)
}

// Join enrolls userID as a student when inviteCode matches. Nothing is
// written on a mismatch.
func (r *Registry) Join(ctx context.Context, classID, userID, inviteCode string) (*models.Membership, error) {
	inviteCode = strings.TrimSpace(inviteCode)
	if inviteCode == "" {
		return nil, fmt.Errorf("%w: invite code is required", models.ErrValidation)
	}
	class, err := r.store.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(class.InviteCode), []byte(inviteCode)) != 1 {
		return nil, models.ErrInvalidInviteCode
	}

	m := &models.Membership{
		ClassID: classID,
		UserID:  userID,
		Role:    models.RoleStudent,
		Status:  models.StatusActive,
	}
	if r.requireApproval {
		m.Status = models.StatusPending
	}
	if err := r.store.CreateMembership(ctx, m); err != nil {
		return nil, err
	}
	r.logger.Info("Joined class",
		zap.String("class_id", classID),
		zap.String("user_id", userID),
		zap.String("status", string(m.Status)))
	return m, nil
}

// Authorize returns the role of userID in classID. It fails with NotFound
// for an unknown class, NotAMember without a membership and
// MembershipPending while the membership awaits approval.
func (r *Registry) Authorize(ctx context.Context, userID, classID string) (models.Role, error) {
	if _, err := r.store.GetClass(ctx, classID); err != nil {
		return "", err
	}
	m, err := r.store.GetMembership(ctx, classID, userID)
	if errors.Is(err, models.ErrNotFound) {
		return "", models.ErrNotAMember
	}
	if err != nil {
		return "", err
	}
	if m.Status != models.StatusActive {
		return "", models.ErrMembershipPending
	}
	return m.Role, nil
}

// RequireTeacher authorizes userID and fails with Forbidden unless they
// teach the class.
func (r *Registry) RequireTeacher(ctx context.Context, userID, classID string) error {
	role, err := r.Authorize(ctx, userID, classID)
	if err != nil {
		return err
	}
	if role != models.RoleTeacher {
		return fmt.Errorf("%w: only the teacher can do this", models.ErrForbidden)
	}
	return nil
}

// EditClass updates the name and/or description. A nil field is left as is.
func (r *Registry) EditClass(ctx context.Context, classID, teacherID string, name, description *string) (*models.Class, error) {
	if name == nil && description == nil {
		return nil, fmt.Errorf("%w: nothing to update", models.ErrValidation)
	}
	class, err := r.ownedClass(ctx, classID, teacherID)
	if err != nil {
		return nil, err
	}
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" {
			return nil, fmt.Errorf("%w: class name cannot be empty", models.ErrValidation)
		}
		class.Name = n
	}
	if description != nil {
		class.Description = strings.TrimSpace(*description)
	}
	if err := r.store.UpdateClass(ctx, class); err != nil {
		return nil, err
	}
	return class, nil
}

// RegenerateInvite replaces the invite code. Old codes stop working at once.
func (r *Registry) RegenerateInvite(ctx context.Context, classID, teacherID string) (string, error) {
	if _, err := r.ownedClass(ctx, classID, teacherID); err != nil {
		return "", err
	}
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomToken(16)
		if err != nil {
			return "", err
		}
		err = r.store.SetInviteCode(ctx, classID, code)
		if errors.Is(err, storage.ErrInviteCodeTaken) {
			continue
		}
		if err != nil {
			return "", err
		}
		r.logger.Info("Invite code regenerated", zap.String("class_id", classID))
		return code, nil
	}
	return "", fmt.Errorf("regenerate invite: %w", storage.ErrInviteCodeTaken)
}

// Approve activates a pending membership.
func (r *Registry) Approve(ctx context.Context, classID, teacherID, userID string) (*models.Membership, error) {
	if _, err := r.ownedClass(ctx, classID, teacherID); err != nil {
		return nil, err
	}
	m, err := r.store.GetMembership(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: no pending membership for %s", models.ErrNotFound, userID)
	}
	if err := r.store.UpdateMembershipStatus(ctx, classID, userID, models.StatusActive); err != nil {
		return nil, err
	}
	m.Status = models.StatusActive
	return m, nil
}

// ListForUser returns the classes userID belongs to.
func (r *Registry) ListForUser(ctx context.Context, userID string) ([]*models.ClassSummary, error) {
	return r.store.ListClassesForUser(ctx, userID)
}

// Detail returns a class with its members. The invite code is only
// included for the teacher.
func (r *Registry) Detail(ctx context.Context, classID, userID string) (*models.ClassDetail, error) {
	role, err := r.Authorize(ctx, userID, classID)
	if err != nil {
		return nil, err
	}
	class, err := r.store.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	members, err := r.store.ListMembers(ctx, classID)
	if err != nil {
		return nil, err
	}

	d := &models.ClassDetail{
		Class:     *class,
		IsTeacher: role == models.RoleTeacher,
		Members:   members,
	}
	if !d.IsTeacher {
		d.InviteCode = ""
	}
	for _, m := range members {
		if m.UserID == class.TeacherID {
			d.TeacherName = m.Name
			break
		}
	}
	return d, nil
}

func (r *Registry) ownedClass(ctx context.Context, classID, teacherID string) (*models.Class, error) {
	class, err := r.store.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if class.TeacherID != teacherID {
		return nil, fmt.Errorf("%w: only the teacher can manage this class", models.ErrForbidden)
	}
	return class, nil
}

// randomToken returns n random bytes as unpadded URL-safe base64.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
