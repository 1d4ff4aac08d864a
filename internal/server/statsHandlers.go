package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v9"

	"safacycle/internal/model"
)

func statsCacheKey(userID int64) string {
	return fmt.Sprintf("stats-%d", userID)
}

func dashboardCacheKey(userID int64) string {
	return fmt.Sprintf("dashboard-%d", userID)
}

// invalidateStatsCache drops the cached rollups after a scan changes them.
func (s Server) invalidateStatsCache(ctx context.Context, userID int64) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Del(ctx, statsCacheKey(userID), dashboardCacheKey(userID)).Err(); err != nil {
		s.Logger.Errorf("invalidateStatsCache: Error deleting cache for UserID: %d, err: %v", userID, err)
	}
}

func (s Server) cacheGet(ctx context.Context, key string, v any) bool {
	if s.Cache == nil {
		return false
	}
	cached, err := s.Cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.Logger.Errorf("cacheGet: Error getting Redis cache with key: %s, err: %v", key, err)
		}
		return false
	}
	if err = json.Unmarshal([]byte(cached), v); err != nil {
		s.Logger.Errorf("cacheGet: Error unmarshalling cache, key: %s, err: %v", key, err)
		return false
	}
	s.Logger.Debugf("cacheGet: Cache found, key: %s", key)
	return true
}

func (s Server) cacheSet(ctx context.Context, key string, v any) {
	if s.Cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.Logger.Errorf("cacheSet: Error marshalling value for key: %s, err: %v", key, err)
		return
	}
	if err = s.Cache.Set(ctx, key, data, s.StatsCacheTTL).Err(); err != nil {
		s.Logger.Errorf("cacheSet: Error setting Redis cache with key: %s, err: %v", key, err)
	}
}

func (s Server) userStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("userStats: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		var stats model.UserStats
		if s.cacheGet(r.Context(), statsCacheKey(uc.user.ID), &stats) {
			s.writeJsonResponse(w, stats, http.StatusOK)
			return
		}

		stats, err = s.DB.UserStats(r.Context(), uc.user, time.Now())
		if err != nil {
			s.Logger.Errorf("userStats: Error computing stats for UserID: %d, err: %v", uc.user.ID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		s.cacheSet(r.Context(), statsCacheKey(uc.user.ID), stats)
		s.writeJsonResponse(w, stats, http.StatusOK)
	}
}

func (s Server) dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uc, err := getUserContext(r.Context())
		if err != nil {
			s.Logger.Errorf("dashboard: Error getting userContext, err: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		var d model.Dashboard
		if s.cacheGet(r.Context(), dashboardCacheKey(uc.user.ID), &d) {
			s.writeJsonResponse(w, d, http.StatusOK)
			return
		}

		d, err = s.DB.Dashboard(r.Context(), uc.user, time.Now())
		if err != nil {
			s.Logger.Errorf("dashboard: Error computing dashboard for UserID: %d, err: %v", uc.user.ID, err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		s.cacheSet(r.Context(), dashboardCacheKey(uc.user.ID), d)
		s.writeJsonResponse(w, d, http.StatusOK)
	}
}
