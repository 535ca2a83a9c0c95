package client

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/motapi/auth"
	"github.com/jonwraymond/motapi/health"
)

// CredentialCheck reports whether a bearer token can be obtained. It uses
// the cached token when one is valid and exchanges otherwise, so it never
// spends API quota. A JWT whose audience does not match the configured
// scope is reported as degraded.
func (c *Client) CredentialCheck() health.Checker {
	return health.NewCheckerFunc("credentials", func(ctx context.Context) health.Result {
		token, err := c.credentials.Token(ctx)
		if err != nil {
			return health.Unhealthy(err.Error(), err)
		}

		cred := c.credentials.Credential()
		details := map[string]any{
			"expires_at": cred.ExpiresAt.UTC().Format(time.RFC3339),
		}

		claims, err := auth.InspectClaims(token)
		switch {
		case errors.Is(err, auth.ErrTokenNotJWT):
			return health.Healthy("token held").WithDetails(details)
		case err != nil:
			return health.Degraded("token claims unreadable: " + err.Error()).WithDetails(details)
		}

		details["issuer"] = claims.Issuer
		if claims.AppID != "" {
			details["app_id"] = claims.AppID
		}

		want := auth.AudienceForScope(c.scope)
		if len(claims.Audience) > 0 && !claims.HasAudience(want) {
			details["audience"] = claims.Audience
			return health.Degraded("token audience does not match " + want).WithDetails(details)
		}
		return health.Healthy("token held").WithDetails(details)
	})
}

// BudgetCheck reports the daily quota. It is degraded once the remaining
// share of the quota falls below lowWater (for example 0.05) and unhealthy
// while the quota is exhausted and not yet due to reset.
func (c *Client) BudgetCheck(lowWater float64) health.Checker {
	return health.NewCheckerFunc("budget", func(context.Context) health.Result {
		b := c.admission.Snapshot()
		details := map[string]any{
			"daily_remaining": b.DailyRemaining,
			"daily_quota":     b.DailyQuota,
			"daily_reset_at":  b.DailyResetAt.UTC().Format(time.RFC3339),
			"burst_tokens":    b.BurstTokens,
			"recent_requests": b.RecentRequests,
		}

		if !c.clock().Before(b.DailyResetAt) {
			return health.Healthy("daily quota due to reset").WithDetails(details)
		}
		if b.DailyRemaining <= 0 {
			return health.Unhealthy("daily quota exhausted", nil).WithDetails(details)
		}
		if float64(b.DailyRemaining) < lowWater*float64(b.DailyQuota) {
			return health.Degraded("daily quota low").WithDetails(details)
		}
		return health.Healthy("daily quota available").WithDetails(details)
	})
}
