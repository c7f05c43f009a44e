package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/technosupport/fleetwatch/internal/data"
)

// AddUser inserts a user record. Hashing is the users service's concern; the
// store only enforces shape and uniqueness.
func (s *Store) AddUser(ctx context.Context, u *data.User) error {
	var opErr error
	err := s.Mutate(ctx, func(st *data.State) (bool, error) {
		if u.Name == "" || u.Email == "" {
			opErr = fmt.Errorf("%w: name and email are required", ErrValidation)
			return false, nil
		}
		for _, existing := range st.Users {
			if strings.EqualFold(existing.Email, u.Email) {
				opErr = ErrEmailTaken
				return false, nil
			}
		}
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		if u.Role == "" {
			u.Role = data.RoleViewer
		}
		if u.Status == "" {
			u.Status = data.UserActive
		}
		st.Users = append(st.Users, u)
		return true, nil
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}
	s.auditAction(ctx, "user.create", "user", u.ID.String(), "success")
	return nil
}

// UpdateUser replaces mutable fields on an existing user.
func (s *Store) UpdateUser(ctx context.Context, upd *data.User) error {
	var opErr error
	err := s.Mutate(ctx, func(st *data.State) (bool, error) {
		u := st.FindUser(upd.ID)
		if u == nil {
			opErr = fmt.Errorf("%w: user %s", ErrNotFound, upd.ID)
			return false, nil
		}
		if upd.Name != "" {
			u.Name = upd.Name
		}
		if upd.Email != "" {
			u.Email = upd.Email
		}
		if upd.Role != "" {
			u.Role = upd.Role
		}
		if upd.Status != "" {
			u.Status = upd.Status
		}
		if upd.PasswordHash != "" {
			u.PasswordHash = upd.PasswordHash
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}
	s.auditAction(ctx, "user.update", "user", upd.ID.String(), "success")
	return nil
}

// RemoveUser deletes a user record.
func (s *Store) RemoveUser(ctx context.Context, id uuid.UUID) error {
	var opErr error
	err := s.Mutate(ctx, func(st *data.State) (bool, error) {
		kept := st.Users[:0]
		found := false
		for _, u := range st.Users {
			if u.ID == id {
				found = true
				continue
			}
			kept = append(kept, u)
		}
		if !found {
			opErr = fmt.Errorf("%w: user %s", ErrNotFound, id)
			return false, nil
		}
		st.Users = kept
		return true, nil
	})
	if err != nil {
		return err
	}
	if opErr != nil {
		return opErr
	}
	s.auditAction(ctx, "user.delete", "user", id.String(), "success")
	return nil
}

// FindUserByEmail returns a copy of the matching user, or nil.
func (s *Store) FindUserByEmail(email string) *data.User {
	var out *data.User
	s.View(func(st *data.State) {
		for _, u := range st.Users {
			if strings.EqualFold(u.Email, email) {
				cp := *u
				out = &cp
				return
			}
		}
	})
	return out
}

// TouchUserActivity stamps LastActiveAt (login flow).
func (s *Store) TouchUserActivity(ctx context.Context, id uuid.UUID) error {
	return s.Mutate(ctx, func(st *data.State) (bool, error) {
		u := st.FindUser(id)
		if u == nil {
			return false, nil
		}
		u.LastActiveAt = s.now()
		return true, nil
	})
}
