package profile

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/emersion/go-vcard"

	"github.com/khoahotran/profile-card/internal/domain/profile"
	"github.com/khoahotran/profile-card/pkg/apperror"
)

const vcardVersion = "3.0"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

type VCardExport struct {
	Filename string
	Data     []byte
}

// ExportVCard renders the public profile behind a share token as a vCard.
func (uc *ProfileUseCase) ExportVCard(ctx context.Context, token string) (*VCardExport, error) {
	ctx, span := tracer.Start(ctx, "ExportVCard")
	defer span.End()

	p, err := uc.GetPublicProfileByToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	data, err := BuildVCard(p)
	if err != nil {
		err = apperror.NewInternal("encode vcard", err)
		span.RecordError(err)
		return nil, err
	}
	return &VCardExport{Filename: VCardFilename(p, token), Data: data}, nil
}

// BuildVCard encodes the contact fields of a profile. Empty fields are left out.
func BuildVCard(p *profile.PublicProfile) ([]byte, error) {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldVersion, vcardVersion)
	card.SetValue(vcard.FieldFormattedName, p.Name)
	card.SetName(splitName(p.Name))

	optional := []struct {
		field string
		value string
	}{
		{vcard.FieldTitle, p.Profession},
		{vcard.FieldOrganization, p.Company},
		{vcard.FieldEmail, p.Email},
		{vcard.FieldTelephone, p.Phone},
		{vcard.FieldURL, p.Website},
		{vcard.FieldNote, p.Bio},
	}
	for _, o := range optional {
		if strings.TrimSpace(o.value) != "" {
			card.AddValue(o.field, o.value)
		}
	}

	for _, l := range p.SocialLinks {
		card.Add("X-SOCIALPROFILE", &vcard.Field{
			Value:  l.URL,
			Params: vcard.Params{vcard.ParamType: {l.Platform}},
		})
	}

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(card); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// splitName treats the last word as the family name.
func splitName(full string) *vcard.Name {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return &vcard.Name{}
	case 1:
		return &vcard.Name{GivenName: parts[0]}
	}
	return &vcard.Name{
		GivenName:  strings.Join(parts[:len(parts)-1], " "),
		FamilyName: parts[len(parts)-1],
	}
}

func VCardFilename(p *profile.PublicProfile, token string) string {
	base := strings.Trim(unsafeFilenameChars.ReplaceAllString(p.Name, "-"), "-")
	if base == "" {
		base = token
	}
	return strings.ToLower(base) + ".vcf"
}
