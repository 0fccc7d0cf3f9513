package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hyperjump/lectern/internal/models"
)

// ErrInviteCodeTaken is returned by CreateClass and SetInviteCode when the
// generated class id or invite code collides with an existing one.
var ErrInviteCodeTaken = fmt.Errorf("%w: invite code taken", models.ErrConflict)

// CreateClass inserts class and the teacher's membership in one transaction.
func (s *SQLiteStorage) CreateClass(ctx context.Context, class *models.Class, teacher *models.Membership) error {
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = class.CreatedAt
	if teacher.JoinedAt.IsZero() {
		teacher.JoinedAt = class.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO classes (id, name, description, teacher_id, invite_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, class.ID, class.Name, class.Description, class.TeacherID, class.InviteCode, class.CreatedAt, class.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrInviteCodeTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create class: %w", err)
	}
	if err := insertMembership(ctx, tx, teacher); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit class: %w", err)
	}
	return nil
}

// GetClass returns a class by id.
func (s *SQLiteStorage) GetClass(ctx context.Context, id string) (*models.Class, error) {
	var c models.Class
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, teacher_id, invite_code, created_at, updated_at
		FROM classes WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.TeacherID, &c.InviteCode, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: class %q", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return &c, nil
}

// UpdateClass writes name and description.
func (s *SQLiteStorage) UpdateClass(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE classes SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		class.Name, class.Description, class.UpdatedAt, class.ID)
	if err != nil {
		return fmt.Errorf("failed to update class: %w", err)
	}
	return expectOneRow(res, "class")
}

// SetInviteCode replaces the invite code of a class.
func (s *SQLiteStorage) SetInviteCode(ctx context.Context, classID, code string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE classes SET invite_code = ?, updated_at = ? WHERE id = ?`,
		code, time.Now().UTC(), classID)
	if isUniqueViolation(err) {
		return ErrInviteCodeTaken
	}
	if err != nil {
		return fmt.Errorf("failed to set invite code: %w", err)
	}
	return expectOneRow(res, "class")
}

// CreateMembership inserts m. Returns ErrAlreadyMember if the user already
// has a membership in the class.
func (s *SQLiteStorage) CreateMembership(ctx context.Context, m *models.Membership) error {
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	return insertMembership(ctx, s.db, m)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertMembership(ctx context.Context, db execer, m *models.Membership) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO memberships (class_id, user_id, role, status, joined_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ClassID, m.UserID, string(m.Role), string(m.Status), m.JoinedAt)
	if isUniqueViolation(err) {
		return models.ErrAlreadyMember
	}
	if err != nil {
		return fmt.Errorf("failed to create membership: %w", err)
	}
	return nil
}

// GetMembership returns the membership of userID in classID.
func (s *SQLiteStorage) GetMembership(ctx context.Context, classID, userID string) (*models.Membership, error) {
	var (
		m            models.Membership
		role, status string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT class_id, user_id, role, status, joined_at
		FROM memberships WHERE class_id = ? AND user_id = ?
	`, classID, userID).Scan(&m.ClassID, &m.UserID, &role, &status, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: membership", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	m.Role = models.Role(role)
	m.Status = models.MembershipStatus(status)
	return &m, nil
}

// UpdateMembershipStatus sets the status of an existing membership.
func (s *SQLiteStorage) UpdateMembershipStatus(ctx context.Context, classID, userID string, status models.MembershipStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE memberships SET status = ? WHERE class_id = ? AND user_id = ?`,
		string(status), classID, userID)
	if err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	return expectOneRow(res, "membership")
}

// ListMembers returns the members of a class, teacher first, then by join time.
func (s *SQLiteStorage) ListMembers(ctx context.Context, classID string) ([]*models.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.class_id, m.user_id, m.role, m.status, m.joined_at, COALESCE(u.email, ''), COALESCE(u.name, '')
		FROM memberships m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.class_id = ?
		ORDER BY CASE m.role WHEN 'teacher' THEN 0 ELSE 1 END, m.joined_at, m.user_id
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.Member, 0)
	for rows.Next() {
		var (
			m            models.Member
			role, status string
		)
		if err := rows.Scan(&m.ClassID, &m.UserID, &role, &status, &m.JoinedAt, &m.Email, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Role = models.Role(role)
		m.Status = models.MembershipStatus(status)
		members = append(members, &m)
	}
	return members, rows.Err()
}

// ListClassesForUser returns every class userID belongs to, newest first.
// Invite codes are not included.
func (s *SQLiteStorage) ListClassesForUser(ctx context.Context, userID string) ([]*models.ClassSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.description, c.teacher_id, c.created_at, c.updated_at,
			m.role, m.status, COALESCE(t.name, ''), COALESCE(t.email, '')
		FROM memberships m
		JOIN classes c ON c.id = m.class_id
		LEFT JOIN users t ON t.id = c.teacher_id
		WHERE m.user_id = ?
		ORDER BY c.created_at DESC, c.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer rows.Close()

	classes := make([]*models.ClassSummary, 0)
	for rows.Next() {
		var (
			cs           models.ClassSummary
			role, status string
		)
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.Description, &cs.TeacherID, &cs.CreatedAt, &cs.UpdatedAt,
			&role, &status, &cs.TeacherName, &cs.TeacherEmail); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		cs.Role = models.Role(role)
		cs.Status = models.MembershipStatus(status)
		classes = append(classes, &cs)
	}
	return classes, rows.Err()
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", models.ErrNotFound, what)
	}
	return nil
}
