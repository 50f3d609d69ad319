package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/campus-id/internal/model"
	q "github.com/iliyamo/campus-id/internal/queue"
	"github.com/iliyamo/campus-id/internal/repository"
)

// In-memory stand-ins for the repositories, mirroring their SQL
// semantics closely enough for the service tests.

type fakeCodeStore struct {
	mu    sync.Mutex
	codes []model.OneTimeCode
}

func (f *fakeCodeStore) Insert(_ context.Context, c model.OneTimeCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = uint64(len(f.codes) + 1)
	f.codes = append(f.codes, c)
	return nil
}

func (f *fakeCodeStore) InvalidateUnused(_ context.Context, email string, purpose model.Purpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.codes {
		if f.codes[i].Email == email && f.codes[i].Purpose == purpose && !f.codes[i].Used {
			f.codes[i].Used = true
		}
	}
	return nil
}

func (f *fakeCodeStore) Consume(_ context.Context, email, code string, purpose model.Purpose, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.codes {
		c := &f.codes[i]
		if c.Email == email && c.Code == code && c.Purpose == purpose && !c.Used && c.ExpiresAt.After(now) {
			c.Used = true
			return true, nil
		}
	}
	return false, nil
}

// latest returns the most recent unused code for the pair, or "".
func (f *fakeCodeStore) latest(email string, purpose model.Purpose) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.codes) - 1; i >= 0; i-- {
		c := f.codes[i]
		if c.Email == email && c.Purpose == purpose && !c.Used {
			return c.Code
		}
	}
	return ""
}

// unused reports how many codes for the pair are still consumable.
func (f *fakeCodeStore) unused(email string, purpose model.Purpose) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.codes {
		if c.Email == email && c.Purpose == purpose && !c.Used {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []q.EmailEvent
}

func (f *fakeNotifier) Send(_ context.Context, ev q.EmailEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeNotifier) sent() []q.EmailEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]q.EmailEvent, len(f.events))
	copy(out, f.events)
	return out
}

type fakeAccounts struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.Account
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[uint64]model.Account{}}
}

func (f *fakeAccounts) Create(_ context.Context, a *model.Account) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == a.Email {
			return 0, repository.ErrEmailExists
		}
	}
	f.nextID++
	cp := *a
	cp.ID = f.nextID
	f.byID[cp.ID] = cp
	return cp.ID, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (f *fakeAccounts) GetByID(_ context.Context, id uint64) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return a, nil
}

func (f *fakeAccounts) GetByIdentifier(_ context.Context, identifier string, role model.Role) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Role != role {
			continue
		}
		if a.Email == identifier {
			return a, nil
		}
		switch role {
		case model.RoleStudent:
			if a.Profile.StudentID == identifier {
				return a, nil
			}
		case model.RoleLecturer:
			if a.Profile.LecturerID == identifier {
				return a, nil
			}
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (f *fakeAccounts) MarkVerified(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range f.byID {
		if a.Email == email {
			a.EmailVerified = true
			a.Status = model.StatusActive
			f.byID[id] = a
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id uint64, newHash string, history []string, clearFirstLogin bool, expectHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.PasswordHash != expectHash {
		return false, nil
	}
	a.PasswordHash = newHash
	a.PasswordHistory = history
	if clearFirstLogin {
		a.IsFirstLogin = false
	}
	f.byID[id] = a
	return true, nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, id uint64, p model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Profile = p
	f.byID[id] = a
	return nil
}

func (f *fakeAccounts) UpdateStatus(_ context.Context, id uint64, status model.AccountStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	f.byID[id] = a
	return nil
}

func (f *fakeAccounts) CountAdmins(_ context.Context, institutionID uint64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.byID {
		if a.Role == model.RoleAdmin && a.InstitutionID == institutionID {
			n++
		}
	}
	return n, nil
}

// set overwrites an account in place, for test setup.
func (f *fakeAccounts) set(a model.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == 0 {
		f.nextID++
		a.ID = f.nextID
	} else if a.ID > f.nextID {
		f.nextID = a.ID
	}
	f.byID[a.ID] = a
}

type fakeInstitutions struct {
	mu   sync.Mutex
	byID map[uint64]model.Institution
}

func newFakeInstitutions(insts ...model.Institution) *fakeInstitutions {
	f := &fakeInstitutions{byID: map[uint64]model.Institution{}}
	for _, in := range insts {
		f.byID[in.ID] = in
	}
	return f
}

func (f *fakeInstitutions) GetByCode(_ context.Context, code string) (model.Institution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, in := range f.byID {
		if strings.EqualFold(in.Code, code) {
			return in, nil
		}
	}
	return model.Institution{}, repository.ErrNotFound
}

func (f *fakeInstitutions) GetByID(_ context.Context, id uint64) (model.Institution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.byID[id]
	if !ok {
		return model.Institution{}, repository.ErrNotFound
	}
	return in, nil
}
