package service

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gtm-backend/internal/common/logger"
	"gtm-backend/internal/features/referral/models"
)

// A /start log line looks like:
// 🔔 /start | 09.08.2025 11:00:40 MSK | id=6931629845 | @user | Name | ref=5ISJ6W3S
var (
	lineRe = regexp.MustCompile(`id=(?P<tid>\d+).*?ref=(?P<code>[A-Z0-9]{6,12})`)
	codeRe = regexp.MustCompile(`ref=(?P<code>[A-Z0-9]{6,12})`)
	idRe   = regexp.MustCompile(`id=(?P<tid>\d+)`)
)

// lookahead is how many lines after a ref= the matching id= may appear.
const lookahead = 3

// ParseLogLines extracts unique (referred id, code) pairs, sorted by id then code.
func ParseLogLines(lines []string) []models.Pair {
	seen := make(map[models.Pair]bool)
	add := func(tid, code string) {
		id, err := strconv.ParseInt(tid, 10, 64)
		if err != nil || id <= 0 {
			return
		}
		seen[models.Pair{ReferredID: id, Code: strings.TrimSpace(code)}] = true
	}

	for _, ln := range lines {
		if m := lineRe.FindStringSubmatch(ln); m != nil {
			add(m[lineRe.SubexpIndex("tid")], m[lineRe.SubexpIndex("code")])
		}
	}

	for i, ln := range lines {
		mc := codeRe.FindStringSubmatch(ln)
		if mc == nil {
			continue
		}
		code := mc[codeRe.SubexpIndex("code")]
		for j := i; j < len(lines) && j <= i+lookahead; j++ {
			if mi := idRe.FindStringSubmatch(lines[j]); mi != nil {
				add(mi[idRe.SubexpIndex("tid")], code)
				break
			}
		}
	}

	pairs := make([]models.Pair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ReferredID != pairs[j].ReferredID {
			return pairs[i].ReferredID < pairs[j].ReferredID
		}
		return pairs[i].Code < pairs[j].Code
	})
	return pairs
}

// Reconcile replays every pair through ProcessReferralJoin. Already counted
// joins are no-ops, so running it twice is safe.
func Reconcile(ctx context.Context, svc ReferralService, pairs []models.Pair, pause time.Duration) (*models.ReconcileSummary, error) {
	summary := &models.ReconcileSummary{Details: make([]models.ReconcileDetail, 0, len(pairs))}

	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && pause > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(pause):
			}
		}

		summary.Total++
		res, err := svc.ProcessReferralJoin(ctx, p.Code, p.ReferredID)
		if err != nil {
			summary.Errors++
			summary.Details = append(summary.Details, models.ReconcileDetail{Pair: p, Error: err.Error()})
			logger.Warn().Err(err).Int64("referred_id", p.ReferredID).Str("code", p.Code).Msg("reconcile join failed")
			continue
		}

		summary.Details = append(summary.Details, models.ReconcileDetail{Pair: p, Result: res})
		if res.Success {
			summary.Success++
		}
		switch {
		case res.Message == models.OutcomeAlreadyCounted:
			summary.AlreadyCounted++
		case res.Error == models.OutcomeInvalidCode:
			summary.InvalidReferralCode++
		case res.TicketAwarded:
			summary.Awarded++
		}
	}
	return summary, nil
}
