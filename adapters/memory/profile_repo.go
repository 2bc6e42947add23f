package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/profile-card/internal/domain/profile"
	"github.com/khoahotran/profile-card/pkg/apperror"
)

// ProfileRepo mirrors the Postgres repository: ownership-scoped writes,
// replace-all children, unique share links. Values are deep-copied in and out.
type ProfileRepo struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*profile.Profile
	// FailWrites makes Create/Update/Delete fail, leaving state untouched.
	FailWrites error
}

var _ profile.Repository = (*ProfileRepo)(nil)

func NewProfileRepo() *ProfileRepo {
	return &ProfileRepo{profiles: make(map[uuid.UUID]*profile.Profile)}
}

func clone(p *profile.Profile) *profile.Profile {
	c := *p
	if p.ShareLink != nil {
		s := *p.ShareLink
		c.ShareLink = &s
	}
	if p.QRCodeURL != nil {
		s := *p.QRCodeURL
		c.QRCodeURL = &s
	}
	c.SocialLinks = append([]profile.SocialLink{}, p.SocialLinks...)
	c.Attachments = append([]profile.Attachment{}, p.Attachments...)
	return &c
}

func (r *ProfileRepo) shareLinkTaken(link *string, except uuid.UUID) bool {
	if link == nil {
		return false
	}
	for id, p := range r.profiles {
		if id != except && p.ShareLink != nil && *p.ShareLink == *link {
			return true
		}
	}
	return false
}

func (r *ProfileRepo) Create(ctx context.Context, p *profile.Profile) error {
	if r.FailWrites != nil {
		return r.FailWrites
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shareLinkTaken(p.ShareLink, p.ID) {
		return apperror.NewAppError(apperror.ErrConflict, "profile conflict", "share link already exists", profile.ErrShareLinkTaken)
	}
	r.profiles[p.ID] = clone(p)
	return nil
}

func (r *ProfileRepo) Update(ctx context.Context, p *profile.Profile) error {
	if r.FailWrites != nil {
		return r.FailWrites
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.profiles[p.ID]
	if !ok || existing.OwnerID != p.OwnerID {
		return apperror.NewNotFound("profile", p.ID.String())
	}
	if existing.HasShareIdentity() {
		kept := clone(existing)
		p.ShareLink, p.QRCodeURL = kept.ShareLink, kept.QRCodeURL
	} else if r.shareLinkTaken(p.ShareLink, p.ID) {
		return apperror.NewAppError(apperror.ErrConflict, "profile conflict", "share link already exists", profile.ErrShareLinkTaken)
	}
	updated := clone(p)
	updated.CreatedAt = existing.CreatedAt
	r.profiles[p.ID] = updated
	return nil
}

func (r *ProfileRepo) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	if r.FailWrites != nil {
		return r.FailWrites
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.profiles[id]
	if !ok || existing.OwnerID != ownerID {
		return apperror.NewNotFound("profile", id.String())
	}
	delete(r.profiles, id)
	return nil
}

func (r *ProfileRepo) FindByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, apperror.NewAppError(apperror.ErrNotFound, "profile not found", id.String(), profile.ErrProfileNotFound)
	}
	return clone(p), nil
}

func (r *ProfileRepo) FindByShareLink(ctx context.Context, shareLink string) (*profile.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.profiles {
		if p.ShareLink != nil && *p.ShareLink == shareLink {
			return clone(p), nil
		}
	}
	return nil, apperror.NewAppError(apperror.ErrNotFound, "profile not found", shareLink, profile.ErrProfileNotFound)
}

func (r *ProfileRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*profile.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*profile.Profile, 0)
	for _, p := range r.profiles {
		if p.OwnerID == ownerID {
			out = append(out, clone(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ProfileRepo) ShareLinkExists(ctx context.Context, shareLink string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.shareLinkTaken(&shareLink, uuid.Nil), nil
}

// Count returns the number of stored profiles.
func (r *ProfileRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// Touch rewrites CreatedAt, for ordering tests.
func (r *ProfileRepo) Touch(id uuid.UUID, createdAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		p.CreatedAt = createdAt
	}
}
