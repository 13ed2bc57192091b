package service

import (
	"bytes"
	"context"
	"sync"
	"time"

	"globetrackr/api/internal/models"
	"globetrackr/api/internal/repository"
)

// memStore is an in-memory UserStore with the same atomicity guarantees
// the real repository gets from conditional UPDATEs: every operation runs
// under one lock, so reset-token consumption is a proper compare-and-set.
type memStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]models.User)}
}

func (m *memStore) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return nil
}

func (m *memStore) FindByEmail(_ context.Context, email string, withHash bool) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Email == email {
			if !withHash {
				user.PasswordHash = nil
			}
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memStore) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	user.PasswordHash = nil
	return user, nil
}

func (m *memStore) GetByIDWithHash(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *memStore) List(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		user.PasswordHash = nil
		users = append(users, user)
	}
	return users, nil
}

func (m *memStore) Update(_ context.Context, updated models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.users[updated.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	for id, other := range m.users {
		if id != updated.ID && other.Email == updated.Email {
			return repository.ErrEmailTaken
		}
	}

	current.Name = updated.Name
	current.Email = updated.Email
	current.Role = updated.Role
	current.Active = updated.Active
	current.Phone = updated.Phone
	current.CreditCard = updated.CreditCard
	current.UpdatedAt = time.Now()
	m.users[updated.ID] = current
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id string, hash []byte, changedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.PasswordResetTokenHash = nil
	user.PasswordResetExpiresAt = nil
	user.UpdatedAt = time.Now()
	m.users[id] = user
	return nil
}

func (m *memStore) SetResetToken(_ context.Context, id string, tokenHash []byte, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordResetTokenHash = tokenHash
	user.PasswordResetExpiresAt = &expiresAt
	m.users[id] = user
	return nil
}

func (m *memStore) ClearResetToken(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordResetTokenHash = nil
	user.PasswordResetExpiresAt = nil
	m.users[id] = user
	return nil
}

func (m *memStore) ConsumeResetToken(_ context.Context, tokenHash []byte, newHash []byte, changedAt time.Time) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, user := range m.users {
		if !bytes.Equal(user.PasswordResetTokenHash, tokenHash) {
			continue
		}
		if user.PasswordResetExpiresAt == nil || !user.PasswordResetExpiresAt.After(time.Now()) {
			continue
		}

		user.PasswordHash = newHash
		user.PasswordChangedAt = &changedAt
		user.PasswordResetTokenHash = nil
		user.PasswordResetExpiresAt = nil
		user.UpdatedAt = time.Now()
		m.users[id] = user

		user.PasswordHash = nil
		return user, nil
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memStore) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) PurgeExpiredResetTokens(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for id, user := range m.users {
		if user.PasswordResetExpiresAt != nil && user.PasswordResetExpiresAt.Before(time.Now()) {
			user.PasswordResetTokenHash = nil
			user.PasswordResetExpiresAt = nil
			m.users[id] = user
			purged++
		}
	}
	return purged, nil
}

// expireResetToken backdates a pending reset token, simulating the clock
// running past the validity window.
func (m *memStore) expireResetToken(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := m.users[id]
	past := time.Now().Add(-time.Minute)
	user.PasswordResetExpiresAt = &past
	m.users[id] = user
}

type sentMail struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (f *fakeMailer) Send(_ context.Context, to string, subject string, textBody string, htmlBody string) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, TextBody: textBody, HTMLBody: htmlBody})
	return nil
}

func (f *fakeMailer) last() (sentMail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMail{}, false
	}
	return f.sent[len(f.sent)-1], true
}

type fakeLimiter struct {
	mu     sync.Mutex
	err    error
	allows []string
	resets []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allows = append(f.allows, key)
	return f.err
}

func (f *fakeLimiter) Reset(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, key)
	return nil
}
