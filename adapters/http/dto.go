package http

import (
	profileUC "github.com/khoahotran/profile-card/internal/application/usecase/profile"
)

type SocialLinkRequest struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

type AttachmentRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// ProfileRequest is the body of create and update. Field rules are enforced
// by the use case so both actions report failures the same way.
type ProfileRequest struct {
	Name        string              `json:"name"`
	Profession  string              `json:"profession"`
	Company     string              `json:"company"`
	Bio         string              `json:"bio"`
	Email       string              `json:"email"`
	Phone       string              `json:"phone"`
	Website     string              `json:"website"`
	Avatar      string              `json:"avatar"`
	SocialLinks []SocialLinkRequest `json:"socialLinks"`
	Attachments []AttachmentRequest `json:"attachments"`
}

func (r *ProfileRequest) ToForm() profileUC.ProfileForm {
	form := profileUC.ProfileForm{
		Name:        r.Name,
		Profession:  r.Profession,
		Company:     r.Company,
		Bio:         r.Bio,
		Email:       r.Email,
		Phone:       r.Phone,
		Website:     r.Website,
		Avatar:      r.Avatar,
		SocialLinks: make([]profileUC.SocialLinkInput, len(r.SocialLinks)),
		Attachments: make([]profileUC.AttachmentInput, len(r.Attachments)),
	}
	for i, l := range r.SocialLinks {
		form.SocialLinks[i] = profileUC.SocialLinkInput{Platform: l.Platform, URL: l.URL}
	}
	for i, a := range r.Attachments {
		form.Attachments[i] = profileUC.AttachmentInput{Name: a.Name, Type: a.Type, URL: a.URL}
	}
	return form
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
