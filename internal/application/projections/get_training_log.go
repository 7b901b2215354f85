package projections

import (
	"context"
	"log/slog"
	"sort"

	"coachdesk/internal/adapters/cache"
	"coachdesk/internal/application/listutil"
	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/user"
)

// TrainingLogQuery carries input for the training log projection. PerPage 0 means the default.
type TrainingLogQuery struct {
	Caller   user.Caller
	ClientID string
	Page     int
	PerPage  int
}

// TrainingLogDeps holds dependencies for the training log projection.
type TrainingLogDeps struct {
	ClientTemplates ClientTemplateStore
	Users           UserStore
	Cache           cache.TrainingLog // optional: nil always reads the store
}

// TrainingLogResult carries one page of completed sessions, latest completion first.
type TrainingLogResult struct {
	Sessions    []clienttemplate.Session
	CurrentPage int
	EndPage     int
	Total       int
}

// QueryTrainingLog pages through every completed session of a client across all of their
// templates. A page past the end is empty and still echoes the requested page.
// PRE: Page >= 1
// POST: Sessions are ordered by completed_date descending; EndPage == ceil(Total / PerPage)
func QueryTrainingLog(ctx context.Context, query TrainingLogQuery, deps TrainingLogDeps) (TrainingLogResult, error) {
	params := listutil.PageParams{Page: query.Page, PerPage: query.PerPage}
	if params.PerPage == 0 {
		params.PerPage = listutil.DefaultPerPage
	}
	if err := params.Validate(); err != nil {
		return TrainingLogResult{}, apperr.Invalid(err)
	}
	if err := requireAccess(query.Caller, query.ClientID, "training log of client "+query.ClientID); err != nil {
		return TrainingLogResult{}, err
	}
	if _, err := deps.Users.GetByID(ctx, query.ClientID); err != nil {
		return TrainingLogResult{}, err
	}

	sessions, err := completedSessions(ctx, query.ClientID, deps)
	if err != nil {
		return TrainingLogResult{}, err
	}
	info := listutil.NewPageInfo(params.Page, params.PerPage, len(sessions))
	return TrainingLogResult{
		Sessions:    listutil.Slice(sessions, info),
		CurrentPage: info.Page,
		EndPage:     info.EndPage,
		Total:       info.Total,
	}, nil
}

// completedSessions returns the full sorted log, from the cache when it holds one.
func completedSessions(ctx context.Context, clientID string, deps TrainingLogDeps) ([]clienttemplate.Session, error) {
	// fill stays false when the cache is unset or unreadable.
	var (
		entry cache.Entry
		fill  bool
	)
	if deps.Cache != nil {
		e, err := deps.Cache.Get(ctx, clientID)
		switch {
		case err != nil:
			slog.Warn("cache_event", "event", "training_log_read_failed", "client_id", clientID, "error", err)
		case e.Hit:
			return e.Sessions, nil
		default:
			entry, fill = e, true
		}
	}

	templates, err := deps.ClientTemplates.ListByUser(ctx, clientID)
	if err != nil {
		return nil, err
	}
	var all []clienttemplate.Session
	for _, t := range templates {
		done, err := deps.ClientTemplates.ListCompletedSessions(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, done...)
	}
	// Templates arrive newest start first and sessions latest completion first; the global
	// stable sort interleaves templates whose programs overlapped in time.
	sort.SliceStable(all, func(i, j int) bool { return all[i].CompletedDate > all[j].CompletedDate })

	if fill {
		if err := deps.Cache.Set(ctx, clientID, entry.Generation, all); err != nil {
			slog.Warn("cache_event", "event", "training_log_write_failed", "client_id", clientID, "error", err)
		}
	}
	return all, nil
}
