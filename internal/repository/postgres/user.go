package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/zaimgo/marketing-api/internal/model"
	"github.com/zaimgo/marketing-api/internal/repository"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.AppUser) error {
	query := `
		INSERT INTO app_users (
			id, vk_user_id, first_name, last_name, city, country, sex, bdate,
			notifications_enabled, notifications_allowed,
			first_seen, last_seen, total_visits,
			utm_source, utm_campaign, utm_content, extra,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	now := time.Now()
	user.ID = uuid.New()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.VKUserID,
		user.FirstName,
		user.LastName,
		user.City,
		user.Country,
		user.Sex,
		user.BDate,
		user.NotificationsEnabled,
		user.NotificationsAllowed,
		user.FirstSeen,
		user.LastSeen,
		user.TotalVisits,
		user.UTMSource,
		user.UTMCampaign,
		user.UTMContent,
		user.Extra,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *model.AppUser) error {
	query := `
		UPDATE app_users SET
			first_name = $1,
			last_name = $2,
			city = $3,
			country = $4,
			sex = $5,
			bdate = $6,
			last_seen = $7,
			total_visits = $8,
			utm_source = $9,
			utm_campaign = $10,
			utm_content = $11,
			extra = $12,
			updated_at = $13
		WHERE vk_user_id = $14
	`

	user.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.City,
		user.Country,
		user.Sex,
		user.BDate,
		user.LastSeen,
		user.TotalVisits,
		user.UTMSource,
		user.UTMCampaign,
		user.UTMContent,
		user.Extra,
		user.UpdatedAt,
		user.VKUserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("user", nil)
	}
	return nil
}

func (r *userRepository) GetByVKUserID(ctx context.Context, vkUserID int64) (*model.AppUser, error) {
	query := `SELECT * FROM app_users WHERE vk_user_id = $1`

	var user model.AppUser
	if err := r.db.GetContext(ctx, &user, query, vkUserID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// List compiles the filter into SQL predicates; model.UserFilter.Matches
// documents the same semantics.
func (r *userRepository) List(ctx context.Context, filter *model.UserFilter) ([]*model.AppUser, error) {
	var (
		conds []string
		args  []interface{}
	)

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter != nil {
		if filter.ConsentedOnly {
			conds = append(conds, "notifications_enabled AND notifications_allowed")
		}
		if !filter.LastSeenAfter.IsZero() {
			add("last_seen >= $%d", filter.LastSeenAfter)
		}
		if !filter.LastSeenBefore.IsZero() {
			add("last_seen < $%d", filter.LastSeenBefore)
		}
		if !filter.FirstSeenAfter.IsZero() {
			add("first_seen >= $%d", filter.FirstSeenAfter)
		}
		if filter.CityContains != "" {
			add("city ILIKE $%d", "%"+filter.CityContains+"%")
		}
		if filter.Sex != 0 {
			add("sex = $%d", filter.Sex)
		}
		if filter.UTMSourceContains != "" {
			add("utm_source ILIKE $%d", "%"+filter.UTMSourceContains+"%")
		}
		if len(filter.VKUserIDs) > 0 {
			add("vk_user_id = ANY($%d)", pq.Int64Array(filter.VKUserIDs))
		}
	}

	query := "SELECT * FROM app_users"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var users []*model.AppUser
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) UpdateConsent(ctx context.Context, vkUserID int64, enabled, allowed *bool) error {
	sets := []string{"updated_at = $1"}
	args := []interface{}{time.Now()}

	if enabled != nil {
		args = append(args, *enabled)
		sets = append(sets, fmt.Sprintf("notifications_enabled = $%d", len(args)))
	}
	if allowed != nil {
		args = append(args, *allowed)
		sets = append(sets, fmt.Sprintf("notifications_allowed = $%d", len(args)))
	}

	args = append(args, vkUserID)
	query := fmt.Sprintf("UPDATE app_users SET %s WHERE vk_user_id = $%d", strings.Join(sets, ", "), len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update consent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("user", nil)
	}
	return nil
}

func (r *userRepository) Stats(ctx context.Context) (*model.UserStats, error) {
	stats := &model.UserStats{BySource: make(map[string]int)}

	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE notifications_enabled AND notifications_allowed) AS consented,
			COALESCE(SUM(total_visits), 0) AS visits
		FROM app_users
	`
	row := r.db.QueryRowxContext(ctx, query)
	if err := row.Scan(&stats.TotalUsers, &stats.ConsentedUsers, &stats.TotalVisits); err != nil {
		return nil, fmt.Errorf("failed to aggregate user stats: %w", err)
	}

	srcQuery := `
		SELECT COALESCE(NULLIF(utm_source, ''), 'organic') AS source, COUNT(*)
		FROM app_users
		GROUP BY 1
	`
	rows, err := r.db.QueryxContext(ctx, srcQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		stats.BySource[source] = count
	}
	return stats, rows.Err()
}
