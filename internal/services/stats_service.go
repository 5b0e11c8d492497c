package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"

	"github.com/smsrent/backend/internal/middleware"
	"github.com/smsrent/backend/internal/models"
)

// StatsService aggregates a user's rental and spending history. Results are
// cached in Redis for a few minutes since the queries scan the full history.
type StatsService struct {
	db    *sql.DB
	redis *redis.Client
}

func NewStatsService(db *sql.DB, redisClient *redis.Client) *StatsService {
	viper.SetDefault("stats.cache_ttl", "5m")
	return &StatsService{db: db, redis: redisClient}
}

// UserStats is the per-user statistics payload.
type UserStats struct {
	TotalNumbers  int            `json:"total_numbers"`
	ByStatus      map[string]int `json:"by_status"`
	CodesReceived int            `json:"codes_received"`
	SuccessRate   float64        `json:"success_rate"`
	TotalConsumed float64        `json:"total_consumed"`
	TotalToppedUp float64        `json:"total_topped_up"`
	DailyNumbers  []DailyCount   `json:"daily_numbers"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// DailyCount is one day of the last-30-days series.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

func statsCacheKey(userID int) string {
	return fmt.Sprintf("stats:user:%d", userID)
}

// Statistics returns the caller's usage aggregates.
// @Summary User statistics
// @Description Rental counts, success rate, spending totals and a 30-day series. Cached; pass refresh=1 to bypass.
// @Tags statistics
// @Produce json
// @Param refresh query string false "1 to bypass the cache"
// @Success 200 {object} UserStats
// @Failure 401 {object} ErrorResponse
// @Router /statistics [get]
func (s *StatsService) Statistics(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	refresh := ParseParams(r).Get("refresh") == "1"
	if !refresh && s.redis != nil {
		if cached, err := s.redis.Get(r.Context(), statsCacheKey(identity.UserID)).Bytes(); err == nil {
			var stats UserStats
			if json.Unmarshal(cached, &stats) == nil {
				SendJSON(w, http.StatusOK, stats)
				return
			}
		}
	}

	stats, err := s.computeStats(identity.UserID)
	if err != nil {
		log.Printf("[STATS] Failed to compute stats for user %d: %v", identity.UserID, err)
		SendErrorResponse(w, "Failed to compute statistics", http.StatusInternalServerError, nil)
		return
	}

	if s.redis != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := s.redis.Set(r.Context(), statsCacheKey(identity.UserID), payload,
				viper.GetDuration("stats.cache_ttl")).Err(); err != nil {
				log.Printf("[STATS] Failed to cache stats for user %d: %v", identity.UserID, err)
			}
		}
	}

	SendJSON(w, http.StatusOK, stats)
}

func (s *StatsService) computeStats(userID int) (*UserStats, error) {
	stats := &UserStats{
		ByStatus:     map[string]int{},
		DailyNumbers: []DailyCount{},
		GeneratedAt:  time.Now(),
	}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM number_requests WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
		stats.TotalNumbers += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM number_requests WHERE user_id = $1 AND sms_code <> ''`,
		userID).Scan(&stats.CodesReceived); err != nil {
		return nil, err
	}
	if stats.TotalNumbers > 0 {
		stats.SuccessRate = float64(stats.CodesReceived) / float64(stats.TotalNumbers)
	}

	if err := s.db.QueryRow(`
		SELECT COALESCE(SUM(CASE WHEN type = $2 THEN -amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN type = $3 THEN amount ELSE 0 END), 0)
		FROM transactions WHERE user_id = $1`,
		userID, models.TransactionTypeConsume, models.TransactionTypeTopup).
		Scan(&stats.TotalConsumed, &stats.TotalToppedUp); err != nil {
		return nil, err
	}

	daily, err := s.db.Query(`
		SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD'), COUNT(*)
		FROM number_requests
		WHERE user_id = $1 AND created_at >= NOW() - INTERVAL '30 days'
		GROUP BY created_at::date
		ORDER BY created_at::date`, userID)
	if err != nil {
		return nil, err
	}
	defer daily.Close()
	for daily.Next() {
		var dc DailyCount
		if err := daily.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		stats.DailyNumbers = append(stats.DailyNumbers, dc)
	}
	return stats, daily.Err()
}
