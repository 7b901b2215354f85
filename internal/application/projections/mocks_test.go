package projections

import (
	"context"
	"sort"

	"coachdesk/internal/adapters/cache"
	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/checkin"
	"coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/coachtemplate"
	"coachdesk/internal/domain/user"
)

var coachCaller = user.Caller{ID: "coach-1", Role: user.RoleCoach}

func clientCaller(id string) user.Caller { return user.Caller{ID: id, Role: user.RoleClient} }

// mockTemplates is a map-backed ClientTemplateStore. Sessions live on their template.
type mockTemplates struct {
	templates map[string]clienttemplate.Template
	reads     int
	onList    func() // runs inside ListByUser, after the read is counted
}

func newMockTemplates(ts ...clienttemplate.Template) *mockTemplates {
	m := &mockTemplates{templates: map[string]clienttemplate.Template{}}
	for _, t := range ts {
		m.templates[t.ID] = t
	}
	return m
}

// Get implements ClientTemplateStore.
// POST: returns the row without children or NotFound
func (m *mockTemplates) Get(_ context.Context, id string) (clienttemplate.Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return clienttemplate.Template{}, apperr.NotFound("client template %s not found", id)
	}
	t.Sessions, t.CheckIns = nil, nil
	return t, nil
}

// GetTree implements ClientTemplateStore.
// POST: returns the template with ordered children or NotFound
func (m *mockTemplates) GetTree(_ context.Context, id string) (clienttemplate.Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return clienttemplate.Template{}, apperr.NotFound("client template %s not found", id)
	}
	t.SortTree()
	return t, nil
}

// GetSession implements ClientTemplateStore.
// POST: returns the session or NotFound naming both ids
func (m *mockTemplates) GetSession(_ context.Context, templateID, sessionID string) (clienttemplate.Session, error) {
	for _, s := range m.templates[templateID].Sessions {
		if s.ID == sessionID {
			return s, nil
		}
	}
	return clienttemplate.Session{}, apperr.NotFound("No session found with template_id: %s and session_id: %s", templateID, sessionID)
}

// ListByUser implements ClientTemplateStore.
// POST: rows of userID, newest start date first
func (m *mockTemplates) ListByUser(_ context.Context, userID string) ([]clienttemplate.Template, error) {
	m.reads++
	if m.onList != nil {
		m.onList()
	}
	var out []clienttemplate.Template
	for _, t := range m.templates {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate > out[j].StartDate })
	return out, nil
}

// ListActive implements ClientTemplateStore.
// POST: active rows of userID
func (m *mockTemplates) ListActive(_ context.Context, userID string) ([]clienttemplate.Template, error) {
	var out []clienttemplate.Template
	for _, t := range m.templates {
		if t.UserID == userID && t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListSessions implements ClientTemplateStore.
// POST: sessions of templateID in order
func (m *mockTemplates) ListSessions(_ context.Context, templateID string) ([]clienttemplate.Session, error) {
	t := m.templates[templateID]
	t.SortTree()
	return t.Sessions, nil
}

// ListCompletedSessions implements ClientTemplateStore.
// POST: completed sessions of templateID, latest completion first
func (m *mockTemplates) ListCompletedSessions(_ context.Context, templateID string) ([]clienttemplate.Session, error) {
	var out []clienttemplate.Session
	for _, s := range m.templates[templateID].Sessions {
		if s.Completed {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedDate > out[j].CompletedDate })
	return out, nil
}

// mockCheckIns is a map-backed CheckInStore.
type mockCheckIns map[string]checkin.CheckIn

// GetByID implements CheckInStore.
// POST: returns the check-in or NotFound
func (m mockCheckIns) GetByID(_ context.Context, id string) (checkin.CheckIn, error) {
	ci, ok := m[id]
	if !ok {
		return checkin.CheckIn{}, apperr.NotFound("check-in %s not found", id)
	}
	return ci, nil
}

// mockUsers is a map-backed UserStore.
type mockUsers map[string]user.User

// GetByID implements UserStore.
// POST: returns the user or NotFound
func (m mockUsers) GetByID(_ context.Context, id string) (user.User, error) {
	u, ok := m[id]
	if !ok {
		return user.User{}, apperr.NotFound("user %s not found", id)
	}
	return u, nil
}

// ListByRole implements UserStore.
// POST: users with role, in no particular order
func (m mockUsers) ListByRole(_ context.Context, role user.Role) ([]user.User, error) {
	var out []user.User
	for _, u := range m {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

// mockCoachTemplates serves coach templates by ID.
type mockCoachTemplates map[string]coachtemplate.Template

// GetTree implements CoachTemplateStore.
// POST: returns the template or NotFound
func (m mockCoachTemplates) GetTree(_ context.Context, id string) (coachtemplate.Template, error) {
	t, ok := m[id]
	if !ok {
		return coachtemplate.Template{}, apperr.NotFound("coach template %s not found", id)
	}
	return t, nil
}

// memoryCache is an in-process cache.TrainingLog. Only the current generation's list is kept.
type memoryCache struct {
	logs map[string][]clienttemplate.Session
	gens map[string]int64
	err  error
}

// Get implements cache.TrainingLog.
func (c *memoryCache) Get(_ context.Context, clientID string) (cache.Entry, error) {
	if c.err != nil {
		return cache.Entry{}, c.err
	}
	s, ok := c.logs[clientID]
	return cache.Entry{Sessions: s, Generation: c.gens[clientID], Hit: ok}, nil
}

// Set implements cache.TrainingLog.
// POST: sessions stored only when generation is current
func (c *memoryCache) Set(_ context.Context, clientID string, generation int64, sessions []clienttemplate.Session) error {
	if c.err != nil {
		return c.err
	}
	if generation == c.gens[clientID] {
		c.logs[clientID] = sessions
	}
	return nil
}

// Invalidate implements cache.TrainingLog.
func (c *memoryCache) Invalidate(_ context.Context, clientID string) error {
	if c.gens == nil {
		c.gens = map[string]int64{}
	}
	c.gens[clientID]++
	delete(c.logs, clientID)
	return nil
}

func approvedClient(id, first, last string) user.User {
	approved := true
	return user.User{ID: id, FirstName: first, LastName: last, Email: id + "@example.com", Role: user.RoleClient, Approved: &approved}
}

func done(id, templateID string, order int, date string) clienttemplate.Session {
	return clienttemplate.Session{ID: id, TemplateID: templateID, Name: id, Slug: id, Order: order, Completed: true, CompletedDate: date}
}

func pending(id, templateID string, order int) clienttemplate.Session {
	return clienttemplate.Session{ID: id, TemplateID: templateID, Name: id, Slug: id, Order: order}
}
