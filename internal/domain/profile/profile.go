package profile

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrShareLinkTaken  = errors.New("share link already in use")
)

type SocialLink struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"profileId"`
	Platform  string    `json:"platform"`
	URL       string    `json:"url"`
}

type Attachment struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"profileId"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
}

// Profile is a digital business card. ShareLink and QRCodeURL are either both
// nil or both set, and are never changed once set.
type Profile struct {
	ID          uuid.UUID    `json:"id"`
	OwnerID     uuid.UUID    `json:"userId"`
	Name        string       `json:"name"`
	Profession  string       `json:"profession"`
	Company     string       `json:"company"`
	Bio         string       `json:"bio"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	Website     string       `json:"website"`
	Avatar      string       `json:"avatar"`
	ShareLink   *string      `json:"shareLink"`
	QRCodeURL   *string      `json:"qrCodeUrl"`
	SocialLinks []SocialLink `json:"socialLinks"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (p *Profile) HasShareIdentity() bool {
	return p.ShareLink != nil && *p.ShareLink != ""
}

// AssignShareIdentity sets the share link and QR code once. It reports false
// and leaves the profile untouched when an identity already exists.
func (p *Profile) AssignShareIdentity(shareLink, qrCodeURL string) bool {
	if p.HasShareIdentity() {
		return false
	}
	p.ShareLink = &shareLink
	p.QRCodeURL = &qrCodeURL
	return true
}

// ReplaceChildren swaps both child collections, stamping fresh ids and the
// parent id on every entry.
func (p *Profile) ReplaceChildren(links []SocialLink, attachments []Attachment) {
	p.SocialLinks = make([]SocialLink, len(links))
	for i, l := range links {
		p.SocialLinks[i] = SocialLink{ID: uuid.New(), ProfileID: p.ID, Platform: l.Platform, URL: l.URL}
	}
	p.Attachments = make([]Attachment, len(attachments))
	for i, a := range attachments {
		p.Attachments[i] = Attachment{ID: uuid.New(), ProfileID: p.ID, Name: a.Name, Type: a.Type, URL: a.URL}
	}
}

// PublicProfile is the redacted view served to visitors: no owner identity.
type PublicProfile struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Profession  string       `json:"profession"`
	Company     string       `json:"company"`
	Bio         string       `json:"bio"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	Website     string       `json:"website"`
	Avatar      string       `json:"avatar"`
	ShareLink   *string      `json:"shareLink"`
	QRCodeURL   *string      `json:"qrCodeUrl"`
	SocialLinks []SocialLink `json:"socialLinks"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (p *Profile) Public() *PublicProfile {
	return &PublicProfile{
		ID:          p.ID,
		Name:        p.Name,
		Profession:  p.Profession,
		Company:     p.Company,
		Bio:         p.Bio,
		Email:       p.Email,
		Phone:       p.Phone,
		Website:     p.Website,
		Avatar:      p.Avatar,
		ShareLink:   p.ShareLink,
		QRCodeURL:   p.QRCodeURL,
		SocialLinks: p.SocialLinks,
		Attachments: p.Attachments,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// Repository persists profiles together with their child collections. Every
// write is a single transaction.
type Repository interface {
	// Create inserts the profile row and bulk-inserts its children.
	Create(ctx context.Context, p *Profile) error
	// Update rewrites the profile row owned by p.OwnerID and replaces both
	// child collections with the ones on p. An identity already stored wins
	// over the one on p; p is left holding the persisted identity.
	Update(ctx context.Context, p *Profile) error
	// Delete removes the profile owned by ownerID; children cascade.
	Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	FindByShareLink(ctx context.Context, shareLink string) (*Profile, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Profile, error)
	ShareLinkExists(ctx context.Context, shareLink string) (bool, error)
}
