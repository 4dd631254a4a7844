package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brahmamatch/server/internal/model"
)

// memoryIdentityRepo is an in-memory IdentityRepo with the same atomicity and
// uniqueness semantics as the Postgres implementation. It backs the
// reconciler race tests and the end-to-end suite.
type memoryIdentityRepo struct {
	mu         sync.Mutex
	byPhone    map[string]*model.Identity
	userIDs    map[string]string // user_id -> phone, the uniqueness constraint
	insertSeq  int
	insertTime map[string]int // phone -> insertion order for stable listing
}

// NewMemoryIdentityRepo builds an in-memory identity store for testing.
func NewMemoryIdentityRepo() IdentityRepo {
	return &memoryIdentityRepo{
		byPhone:    make(map[string]*model.Identity),
		userIDs:    make(map[string]string),
		insertTime: make(map[string]int),
	}
}

func copyIdentity(i *model.Identity) model.Identity {
	out := *i
	if i.UserID != nil {
		v := *i.UserID
		out.UserID = &v
	}
	if i.LastOTPSentAt != nil {
		v := *i.LastOTPSentAt
		out.LastOTPSentAt = &v
	}
	if i.LastLogin != nil {
		v := *i.LastLogin
		out.LastLogin = &v
	}
	return out
}

func (r *memoryIdentityRepo) UpsertOnSend(_ context.Context, phone string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ident, ok := r.byPhone[phone]; ok {
		t := now
		ident.LastOTPSentAt = &t
		return nil
	}
	t := now
	r.byPhone[phone] = &model.Identity{
		ID:            uuid.New(),
		Phone:         phone,
		IsVerified:    false,
		CreatedAt:     now,
		LastOTPSentAt: &t,
	}
	r.insertSeq++
	r.insertTime[phone] = r.insertSeq
	return nil
}

func (r *memoryIdentityRepo) GetByPhone(_ context.Context, phone string) (model.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.byPhone[phone]
	if !ok {
		return model.Identity{}, ErrNotFound
	}
	return copyIdentity(ident), nil
}

func (r *memoryIdentityRepo) GetByUserID(_ context.Context, userID string) (model.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	phone, ok := r.userIDs[userID]
	if !ok {
		return model.Identity{}, ErrNotFound
	}
	return copyIdentity(r.byPhone[phone]), nil
}

func (r *memoryIdentityRepo) CreateVerified(_ context.Context, phone, userID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPhone[phone]; exists {
		return false, nil
	}
	if _, taken := r.userIDs[userID]; taken {
		return false, nil
	}
	t := now
	r.byPhone[phone] = &model.Identity{
		ID:         uuid.New(),
		Phone:      phone,
		UserID:     &userID,
		IsVerified: true,
		CreatedAt:  now,
		LastLogin:  &t,
	}
	r.userIDs[userID] = phone
	r.insertSeq++
	r.insertTime[phone] = r.insertSeq
	return true, nil
}

func (r *memoryIdentityRepo) AssignUserIDIfAbsent(_ context.Context, phone, candidateID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.byPhone[phone]
	if !ok {
		return false, nil
	}
	if ident.UserID != nil {
		return false, nil
	}
	if _, taken := r.userIDs[candidateID]; taken {
		return false, nil
	}
	id := candidateID
	ident.UserID = &id
	r.userIDs[candidateID] = phone
	return true, nil
}

func (r *memoryIdentityRepo) MarkVerifiedLogin(_ context.Context, phone string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.byPhone[phone]
	if !ok {
		return ErrNotFound
	}
	t := now
	ident.IsVerified = true
	ident.LastLogin = &t
	return nil
}

func (r *memoryIdentityRepo) DeleteByUserID(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	phone, ok := r.userIDs[userID]
	if !ok {
		return false, nil
	}
	delete(r.userIDs, userID)
	delete(r.byPhone, phone)
	delete(r.insertTime, phone)
	return true, nil
}

func (r *memoryIdentityRepo) List(_ context.Context, skip, limit int) ([]model.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if skip < 0 {
		skip = 0
	}
	limit = ClampLimit(limit)

	phones := make([]string, 0, len(r.byPhone))
	for p := range r.byPhone {
		phones = append(phones, p)
	}
	sort.Slice(phones, func(i, j int) bool {
		return r.insertTime[phones[i]] < r.insertTime[phones[j]]
	})

	var out []model.Identity
	for i := skip; i < len(phones) && len(out) < limit; i++ {
		out = append(out, copyIdentity(r.byPhone[phones[i]]))
	}
	return out, nil
}

// memoryProfileRepo mirrors the Postgres ProfileRepo semantics in memory.
type memoryProfileRepo struct {
	mu        sync.Mutex
	profiles  map[string]*model.Profile
	insertSeq int
	order     map[string]int
}

// NewMemoryProfileRepo builds an in-memory profile store for testing.
func NewMemoryProfileRepo() ProfileRepo {
	return &memoryProfileRepo{
		profiles: make(map[string]*model.Profile),
		order:    make(map[string]int),
	}
}

func copyProfile(p *model.Profile) model.Profile {
	out := *p
	out.Interests = append([]string(nil), p.Interests...)
	out.GalleryImages = append([]string(nil), p.GalleryImages...)
	return out
}

func (r *memoryProfileRepo) ensure(userID string, now time.Time) *model.Profile {
	p, ok := r.profiles[userID]
	if !ok {
		p = &model.Profile{
			ID:        uuid.New(),
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.profiles[userID] = p
		r.insertSeq++
		r.order[userID] = r.insertSeq
	}
	return p
}

func (r *memoryProfileRepo) Upsert(_ context.Context, userID string, params UpdateProfileParams) (model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	p := r.ensure(userID, now)

	if params.FullName != nil {
		p.FullName = params.FullName
	}
	if params.FathersName != nil {
		p.FathersName = params.FathersName
	}
	if params.MothersName != nil {
		p.MothersName = params.MothersName
	}
	if params.Interests != nil {
		p.Interests = append([]string(nil), params.Interests...)
	}
	if params.DateOfBirth != nil {
		p.DateOfBirth = params.DateOfBirth
	}
	if params.BirthPlace != nil {
		p.BirthPlace = params.BirthPlace
	}
	if params.Education != nil {
		p.Education = params.Education
	}
	if params.HomeTown != nil {
		p.HomeTown = params.HomeTown
	}
	if params.MamaPariwar != nil {
		p.MamaPariwar = params.MamaPariwar
	}
	if params.Manglik != nil {
		p.Manglik = params.Manglik
	}
	if params.HeightCm != nil {
		p.HeightCm = params.HeightCm
	}
	if params.Age != nil {
		p.Age = params.Age
	}
	if params.Gotra != nil {
		p.Gotra = params.Gotra
	}
	if params.JobEmployer != nil {
		p.JobEmployer = params.JobEmployer
	}
	if params.JobDesignation != nil {
		p.JobDesignation = params.JobDesignation
	}
	if params.JobLocation != nil {
		p.JobLocation = params.JobLocation
	}
	if params.SalaryRange != nil {
		p.SalaryRange = params.SalaryRange
	}
	if params.AboutMe != nil {
		p.AboutMe = params.AboutMe
	}
	p.UpdatedAt = now

	return copyProfile(p), nil
}

func (r *memoryProfileRepo) Get(_ context.Context, userID string) (model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		return model.Profile{}, ErrNotFound
	}
	return copyProfile(p), nil
}

func (r *memoryProfileRepo) List(_ context.Context, skip, limit int) ([]model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if skip < 0 {
		skip = 0
	}
	limit = ClampLimit(limit)

	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.order[ids[i]] < r.order[ids[j]]
	})

	var out []model.Profile
	for i := skip; i < len(ids) && len(out) < limit; i++ {
		out = append(out, copyProfile(r.profiles[ids[i]]))
	}
	return out, nil
}

func (r *memoryProfileRepo) Delete(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[userID]; !ok {
		return false, nil
	}
	delete(r.profiles, userID)
	delete(r.order, userID)
	return true, nil
}

func (r *memoryProfileRepo) SetProfileImage(_ context.Context, userID, imageB64 string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	p := r.ensure(userID, now)
	img := imageB64
	p.ProfileImage = &img
	p.UpdatedAt = now
	return nil
}

func (r *memoryProfileRepo) AppendGalleryImage(_ context.Context, userID, imageB64 string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	p := r.ensure(userID, now)
	p.GalleryImages = append(p.GalleryImages, imageB64)
	p.UpdatedAt = now
	return nil
}
