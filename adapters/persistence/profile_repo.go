package persistence

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoahotran/profile-card/internal/domain/profile"
	"github.com/khoahotran/profile-card/pkg/apperror"
	"github.com/khoahotran/profile-card/pkg/logger"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var profileColumns = []string{
	"id", "owner_id", "name", "profession", "company", "bio", "email", "phone",
	"website", "avatar", "share_link", "qr_code_url", "created_at", "updated_at",
}

type postgresProfileRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresProfileRepo(db *pgxpool.Pool, log logger.Logger) profile.Repository {
	return &postgresProfileRepo{db: db, logger: log}
}

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	p := &profile.Profile{}
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.Profession,
		&p.Company,
		&p.Bio,
		&p.Email,
		&p.Phone,
		&p.Website,
		&p.Avatar,
		&p.ShareLink,
		&p.QRCodeURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.SocialLinks = []profile.SocialLink{}
	p.Attachments = []profile.Attachment{}
	return p, nil
}

func mapWriteError(err error, details string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperror.NewAppError(apperror.ErrConflict, "profile conflict", pgErr.ConstraintName, profile.ErrShareLinkTaken)
	}
	return apperror.NewInternal(details, err)
}

func (r *postgresProfileRepo) Create(ctx context.Context, p *profile.Profile) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperror.NewInternal("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := psql.Insert("profiles").
		Columns(profileColumns...).
		Values(
			p.ID, p.OwnerID, p.Name, p.Profession, p.Company, p.Bio, p.Email, p.Phone,
			p.Website, p.Avatar, p.ShareLink, p.QRCodeURL, p.CreatedAt, p.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return apperror.NewInternal("failed to build insert", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return mapWriteError(err, "failed to insert profile")
	}

	if err := insertChildren(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperror.NewInternal("failed to commit profile", err)
	}
	return nil
}

// Update never replaces an existing share identity; COALESCE only fills a
// missing one.
func (r *postgresProfileRepo) Update(ctx context.Context, p *profile.Profile) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return apperror.NewInternal("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE profiles
		SET name = $3, profession = $4, company = $5, bio = $6, email = $7, phone = $8,
		    website = $9, avatar = $10,
		    share_link = COALESCE(share_link, $11),
		    qr_code_url = COALESCE(qr_code_url, $12),
		    updated_at = $13
		WHERE id = $1 AND owner_id = $2
		RETURNING share_link, qr_code_url
	`
	var shareLink, qrCodeURL *string
	err = tx.QueryRow(ctx, query,
		p.ID, p.OwnerID, p.Name, p.Profession, p.Company, p.Bio, p.Email, p.Phone,
		p.Website, p.Avatar, p.ShareLink, p.QRCodeURL, p.UpdatedAt,
	).Scan(&shareLink, &qrCodeURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound("profile", p.ID.String())
	}
	if err != nil {
		return mapWriteError(err, "failed to update profile")
	}

	for _, table := range []string{"social_links", "attachments"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE profile_id = $1`, table), p.ID); err != nil {
			return apperror.NewInternal("failed to delete old "+table, err)
		}
	}
	if err := insertChildren(ctx, tx, p); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.NewInternal("failed to commit profile", err)
	}
	p.ShareLink, p.QRCodeURL = shareLink, qrCodeURL
	return nil
}

func insertChildren(ctx context.Context, tx pgx.Tx, p *profile.Profile) error {
	if len(p.SocialLinks) > 0 {
		rows := make([][]interface{}, len(p.SocialLinks))
		for i, l := range p.SocialLinks {
			rows[i] = []interface{}{l.ID, p.ID, l.Platform, l.URL, i}
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"social_links"},
			[]string{"id", "profile_id", "platform", "url", "position"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return apperror.NewInternal("failed to insert social links", err)
		}
	}

	if len(p.Attachments) > 0 {
		rows := make([][]interface{}, len(p.Attachments))
		for i, a := range p.Attachments {
			rows[i] = []interface{}{a.ID, p.ID, a.Name, a.Type, a.URL, i}
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"attachments"},
			[]string{"id", "profile_id", "name", "type", "url", "position"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return apperror.NewInternal("failed to insert attachments", err)
		}
	}
	return nil
}

func (r *postgresProfileRepo) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	query := `DELETE FROM profiles WHERE id = $1 AND owner_id = $2`
	cmdTag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return apperror.NewInternal("failed to delete profile", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("profile", id.String())
	}
	return nil
}

func (r *postgresProfileRepo) FindByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	return r.findOne(ctx, sq.Eq{"id": id}, id.String())
}

func (r *postgresProfileRepo) FindByShareLink(ctx context.Context, shareLink string) (*profile.Profile, error) {
	return r.findOne(ctx, sq.Eq{"share_link": shareLink}, shareLink)
}

func (r *postgresProfileRepo) findOne(ctx context.Context, where sq.Eq, identifier string) (*profile.Profile, error) {
	query, args, err := psql.Select(profileColumns...).From("profiles").Where(where).ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build select", err)
	}

	p, err := scanProfile(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewAppError(apperror.ErrNotFound, "profile not found", identifier, profile.ErrProfileNotFound)
		}
		return nil, apperror.NewInternal("failed to query profile", err)
	}

	if err := r.loadChildren(ctx, []*profile.Profile{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresProfileRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*profile.Profile, error) {
	query, args, err := psql.Select(profileColumns...).
		From("profiles").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build select", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.NewInternal("failed to query profiles by owner", err)
	}
	defer rows.Close()

	profiles := make([]*profile.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, apperror.NewInternal("failed to scan profile", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal("error iterating profiles", err)
	}

	if err := r.loadChildren(ctx, profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// loadChildren fetches both child collections of all given profiles in two
// queries, keeping submission order.
func (r *postgresProfileRepo) loadChildren(ctx context.Context, profiles []*profile.Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*profile.Profile, len(profiles))
	ids := make([]uuid.UUID, len(profiles))
	for i, p := range profiles {
		byID[p.ID] = p
		ids[i] = p.ID
	}

	linkRows, err := r.db.Query(ctx,
		`SELECT id, profile_id, platform, url FROM social_links WHERE profile_id = ANY($1) ORDER BY position`, ids)
	if err != nil {
		return apperror.NewInternal("failed to query social links", err)
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var l profile.SocialLink
		if err := linkRows.Scan(&l.ID, &l.ProfileID, &l.Platform, &l.URL); err != nil {
			return apperror.NewInternal("failed to scan social link", err)
		}
		p := byID[l.ProfileID]
		p.SocialLinks = append(p.SocialLinks, l)
	}
	if err := linkRows.Err(); err != nil {
		return apperror.NewInternal("error iterating social links", err)
	}

	attRows, err := r.db.Query(ctx,
		`SELECT id, profile_id, name, type, url FROM attachments WHERE profile_id = ANY($1) ORDER BY position`, ids)
	if err != nil {
		return apperror.NewInternal("failed to query attachments", err)
	}
	defer attRows.Close()
	for attRows.Next() {
		var a profile.Attachment
		if err := attRows.Scan(&a.ID, &a.ProfileID, &a.Name, &a.Type, &a.URL); err != nil {
			return apperror.NewInternal("failed to scan attachment", err)
		}
		p := byID[a.ProfileID]
		p.Attachments = append(p.Attachments, a)
	}
	if err := attRows.Err(); err != nil {
		return apperror.NewInternal("error iterating attachments", err)
	}
	return nil
}

func (r *postgresProfileRepo) ShareLinkExists(ctx context.Context, shareLink string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM profiles WHERE share_link = $1)`, shareLink).Scan(&exists)
	if err != nil {
		return false, apperror.NewInternal("failed to check share link", err)
	}
	return exists, nil
}
