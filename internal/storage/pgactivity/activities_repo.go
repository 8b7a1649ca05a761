package pgactivity

import (
	"context"

	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const selectColumns = `
  id, user_id, type, title, entity_type, entity_id, details::text,
  latitude, longitude, accuracy, location_name, city, country, source,
  device, browser, browser_version, os, risk_score, occurred_at, created_at`

func (s *Storage) InsertActivity(ctx context.Context, a models.StoredActivity) (bool, error) {
	details := a.Details
	if details == "" {
		details = "{}"
	}
	tag, err := s.db.Exec(ctx, `
INSERT INTO activities (
  id, user_id, type, title, entity_type, entity_id, details,
  latitude, longitude, accuracy, location_name, city, country, source,
  device, browser, browser_version, os, risk_score, occurred_at, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
ON CONFLICT (id) DO NOTHING
`,
		a.ID, a.UserID, string(a.Type), a.Title, a.EntityType, a.EntityID, details,
		a.Latitude, a.Longitude, a.Accuracy, a.LocationName, a.City, a.Country, a.Source,
		a.Device, a.Browser, a.BrowserVersion, a.OS, a.RiskScore, a.OccurredAt, a.CreatedAt,
	)
	if err != nil {
		return false, errors.Wrap(err, "insert activity")
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Storage) ListActivities(ctx context.Context, userID string, limit, offset int) ([]models.StoredActivity, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT`+selectColumns+`
FROM activities
WHERE user_id = $1
ORDER BY occurred_at DESC, id
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select activities")
	}
	defer rows.Close()

	out := []models.StoredActivity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) LastLocation(ctx context.Context, userID string) (models.LastLocation, bool, error) {
	row := s.db.QueryRow(ctx, `
SELECT`+selectColumns+`
FROM activities
WHERE user_id = $1 AND latitude IS NOT NULL
ORDER BY occurred_at DESC
LIMIT 1
`, userID)

	a, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.LastLocation{}, false, nil
	}
	if err != nil {
		return models.LastLocation{}, false, err
	}
	return models.LastLocation{
		UserID:       a.UserID,
		Latitude:     *a.Latitude,
		Longitude:    *a.Longitude,
		Accuracy:     a.Accuracy,
		LocationName: a.LocationName,
		City:         a.City,
		Country:      a.Country,
		Source:       a.Source,
		ActivityID:   a.ID,
		OccurredAt:   a.OccurredAt,
	}, true, nil
}

func scanActivity(row pgx.Row) (models.StoredActivity, error) {
	var a models.StoredActivity
	var typ string
	err := row.Scan(
		&a.ID, &a.UserID, &typ, &a.Title, &a.EntityType, &a.EntityID, &a.Details,
		&a.Latitude, &a.Longitude, &a.Accuracy, &a.LocationName, &a.City, &a.Country, &a.Source,
		&a.Device, &a.Browser, &a.BrowserVersion, &a.OS, &a.RiskScore, &a.OccurredAt, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, err
	}
	if err != nil {
		return a, errors.Wrap(err, "scan activity")
	}
	a.Type = models.ActivityType(typ)
	a.OccurredAt = a.OccurredAt.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}
