package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"coachdesk/internal/adapters/cache"
	emailAdapter "coachdesk/internal/adapters/email"
	"coachdesk/internal/adapters/events"
	clientstore "coachdesk/internal/adapters/storage/clienttemplate"
	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/checkin"
	"coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/coachtemplate"
	"coachdesk/internal/domain/user"
)

var fixedTime = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// seqIDs returns a generator of distinct IDs prefix-1, prefix-2, ...
func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

var (
	coachCaller = user.Caller{ID: "coach-1", Role: user.RoleCoach}
	errInjected = errors.New("injected failure")
)

func clientCaller(id string) user.Caller { return user.Caller{ID: id, Role: user.RoleClient} }

func boolPtr(b bool) *bool      { return &b }
func strPtr(s string) *string   { return &s }
func intPtr(i int) *int         { return &i }
func f64Ptr(f float64) *float64 { return &f }

// mockClientStore is a map-backed client template store. RunInTx snapshots every map and
// restores it when fn fails, and the active flag is checked like the partial unique index.
type mockClientStore struct {
	users     map[string]user.User
	templates map[string]clienttemplate.Template
	sessions  map[string]clienttemplate.Session
	checkIns  map[string]checkin.CheckIn
	failOn    string
}

func newMockClientStore() *mockClientStore {
	return &mockClientStore{
		users:     map[string]user.User{},
		templates: map[string]clienttemplate.Template{},
		sessions:  map[string]clienttemplate.Session{},
		checkIns:  map[string]checkin.CheckIn{},
	}
}

func (m *mockClientStore) addClient(id, first, last string) {
	approved := true
	m.users[id] = user.User{ID: id, FirstName: first, LastName: last, Email: id + "@example.com", Role: user.RoleClient, Approved: &approved}
}

func (m *mockClientStore) addTemplate(t clienttemplate.Template) {
	for _, s := range t.Sessions {
		m.sessions[s.ID] = s
	}
	for _, ci := range t.CheckIns {
		m.checkIns[ci.ID] = ci
	}
	t.Sessions, t.CheckIns = nil, nil
	m.templates[t.ID] = t
}

func (m *mockClientStore) activeCount(userID string) int {
	n := 0
	for _, t := range m.templates {
		if t.UserID == userID && t.Active {
			n++
		}
	}
	return n
}

func (m *mockClientStore) fail(method string) error {
	if m.failOn == method {
		return apperr.Internal(errInjected, method)
	}
	return nil
}

// RunInTx implements ClientTemplateStoreForOrchestrator.
// PRE: fn only uses the tx it is given
// POST: every map is restored when fn returns an error
func (m *mockClientStore) RunInTx(_ context.Context, fn func(clientstore.Tx) error) error {
	users, templates, sessions, checkIns := cloneMap(m.users), cloneMap(m.templates), cloneMap(m.sessions), cloneMap(m.checkIns)
	if err := fn(m); err != nil {
		m.users, m.templates, m.sessions, m.checkIns = users, templates, sessions, checkIns
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Get implements ClientTemplateStoreForOrchestrator.
// POST: returns the row without children or NotFound
func (m *mockClientStore) Get(_ context.Context, id string) (clienttemplate.Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return clienttemplate.Template{}, apperr.NotFound("client template %s not found", id)
	}
	return t, nil
}

// GetTree implements ClientTemplateStoreForOrchestrator.
// POST: returns the template with ordered sessions and check-ins
func (m *mockClientStore) GetTree(ctx context.Context, id string) (clienttemplate.Template, error) {
	t, err := m.Get(ctx, id)
	if err != nil {
		return t, err
	}
	t.Sessions, _ = m.LoadSessions(ctx, id)
	for _, ci := range m.checkIns {
		if ci.TemplateID == id {
			t.CheckIns = append(t.CheckIns, ci)
		}
	}
	t.SortTree()
	return t, nil
}

// LockClient implements clientstore.Tx.
// POST: returns the user or NotFound
func (m *mockClientStore) LockClient(_ context.Context, id string) (user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return user.User{}, apperr.NotFound("client %s not found", id)
	}
	return u, nil
}

// SaveClient implements clientstore.Tx.
// POST: user stored
func (m *mockClientStore) SaveClient(_ context.Context, u user.User) error {
	m.users[u.ID] = u
	return nil
}

// LockTemplate implements clientstore.Tx.
// POST: returns the row without children or NotFound
func (m *mockClientStore) LockTemplate(ctx context.Context, id string) (clienttemplate.Template, error) {
	return m.Get(ctx, id)
}

// LoadSessions implements clientstore.Tx.
// POST: sessions of templateID ascending by order
func (m *mockClientStore) LoadSessions(_ context.Context, templateID string) ([]clienttemplate.Session, error) {
	var out []clienttemplate.Session
	for _, s := range m.sessions {
		if s.TemplateID == templateID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// GetSession implements clientstore.Tx.
// POST: returns the session or NotFound naming both ids
func (m *mockClientStore) GetSession(_ context.Context, templateID, sessionID string) (clienttemplate.Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok || s.TemplateID != templateID {
		return clienttemplate.Session{}, apperr.NotFound("No session found with template_id: %s and session_id: %s", templateID, sessionID)
	}
	return s, nil
}

// TemplateSlugsContaining implements clientstore.Tx.
// POST: sorted slugs containing base
func (m *mockClientStore) TemplateSlugsContaining(_ context.Context, base string) ([]string, error) {
	var out []string
	for _, t := range m.templates {
		if strings.Contains(t.Slug, base) {
			out = append(out, t.Slug)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SessionSlugsContaining implements clientstore.Tx.
// POST: sorted slugs of templateID's sessions containing base
func (m *mockClientStore) SessionSlugsContaining(_ context.Context, templateID, base string) ([]string, error) {
	var out []string
	for _, s := range m.sessions {
		if s.TemplateID == templateID && strings.Contains(s.Slug, base) {
			out = append(out, s.Slug)
		}
	}
	sort.Strings(out)
	return out, nil
}

// NextSessionOrder implements clientstore.Tx.
// POST: max order + 1, or 1
func (m *mockClientStore) NextSessionOrder(_ context.Context, templateID string) (int, error) {
	highest := 0
	for _, s := range m.sessions {
		if s.TemplateID == templateID && s.Order > highest {
			highest = s.Order
		}
	}
	return highest + 1, nil
}

// DeactivateOthers implements clientstore.Tx.
// POST: only keepID may remain active for userID
func (m *mockClientStore) DeactivateOthers(_ context.Context, userID, keepID string) (int64, error) {
	if err := m.fail("DeactivateOthers"); err != nil {
		return 0, err
	}
	var n int64
	for id, t := range m.templates {
		if t.UserID == userID && id != keepID && t.Active {
			t.Active = false
			m.templates[id] = t
			n++
		}
	}
	return n, nil
}

// CountActive implements clientstore.Tx.
func (m *mockClientStore) CountActive(_ context.Context, userID string) (int, error) {
	return m.activeCount(userID), nil
}

func (m *mockClientStore) checkActiveIndex(t clienttemplate.Template) error {
	if !t.Active {
		return nil
	}
	for id, other := range m.templates {
		if id != t.ID && other.UserID == t.UserID && other.Active {
			return apperr.Conflict("active template already exists")
		}
	}
	return nil
}

// InsertTemplate implements clientstore.Tx.
// PRE: slug unused; no other active template for the user when t is active
// POST: row, sessions and check-ins stored
func (m *mockClientStore) InsertTemplate(ctx context.Context, t clienttemplate.Template) error {
	if err := m.fail("InsertTemplate"); err != nil {
		return err
	}
	for _, other := range m.templates {
		if other.Slug == t.Slug {
			return apperr.Conflict("client template %s already exists", t.Slug)
		}
	}
	if err := m.checkActiveIndex(t); err != nil {
		return err
	}
	for _, s := range t.Sessions {
		if err := m.InsertSession(ctx, s); err != nil {
			return err
		}
	}
	m.addTemplate(t)
	return nil
}

// UpdateTemplate implements clientstore.Tx.
// POST: row and session completion state stored
func (m *mockClientStore) UpdateTemplate(_ context.Context, t clienttemplate.Template) error {
	if err := m.fail("UpdateTemplate"); err != nil {
		return err
	}
	if _, ok := m.templates[t.ID]; !ok {
		return apperr.NotFound("client template %s not found", t.ID)
	}
	if err := m.checkActiveIndex(t); err != nil {
		return err
	}
	for _, s := range t.Sessions {
		stored := m.sessions[s.ID]
		stored.Completed, stored.CompletedDate = s.Completed, s.CompletedDate
		m.sessions[s.ID] = stored
	}
	t.Sessions, t.CheckIns = nil, nil
	m.templates[t.ID] = t
	return nil
}

// InsertSession implements clientstore.Tx.
// PRE: (template, order) and (template, slug) unused
// POST: session stored with its work
func (m *mockClientStore) InsertSession(_ context.Context, s clienttemplate.Session) error {
	if err := m.fail("InsertSession"); err != nil {
		return err
	}
	for _, other := range m.sessions {
		if other.TemplateID == s.TemplateID && (other.Order == s.Order || other.Slug == s.Slug) {
			return apperr.Conflict("client session %s already exists", s.Slug)
		}
	}
	m.sessions[s.ID] = s
	return nil
}

// UpdateSession implements clientstore.Tx.
// POST: session replaced, work lists included
func (m *mockClientStore) UpdateSession(_ context.Context, s clienttemplate.Session) error {
	if err := m.fail("UpdateSession"); err != nil {
		return err
	}
	if _, ok := m.sessions[s.ID]; !ok {
		return apperr.NotFound("No session found with template_id: %s and session_id: %s", s.TemplateID, s.ID)
	}
	m.sessions[s.ID] = s
	return nil
}

// mockCoachReader serves coach templates by ID.
type mockCoachReader struct {
	templates map[string]coachtemplate.Template
}

// GetTree implements CoachTemplateReader.
// POST: returns the template or NotFound
func (m *mockCoachReader) GetTree(_ context.Context, id string) (coachtemplate.Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return coachtemplate.Template{}, apperr.NotFound("coach template %s not found", id)
	}
	return t, nil
}

// recordingSender captures sent email.
type recordingSender struct {
	sent []emailAdapter.SendRequest
	err  error
}

// Send implements email.Sender.
// POST: request recorded unless err is set
func (r *recordingSender) Send(_ context.Context, req emailAdapter.SendRequest) (emailAdapter.SendResult, error) {
	if r.err != nil {
		return emailAdapter.SendResult{}, r.err
	}
	r.sent = append(r.sent, req)
	return emailAdapter.SendResult{MessageID: fmt.Sprintf("msg-%d", len(r.sent))}, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	published []events.Event
}

// Publish implements events.Publisher.
// POST: event recorded
func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.published = append(r.published, e)
	return nil
}

func (r *recordingPublisher) types() []string {
	out := make([]string, len(r.published))
	for i, e := range r.published {
		out[i] = e.Type
	}
	return out
}

// recordingCache captures invalidations.
type recordingCache struct {
	invalidated []string
}

// Get implements cache.TrainingLog.
func (r *recordingCache) Get(context.Context, string) (cache.Entry, error) {
	return cache.Entry{}, nil
}

// Set implements cache.TrainingLog.
func (r *recordingCache) Set(context.Context, string, int64, []clienttemplate.Session) error {
	return nil
}

// Invalidate implements cache.TrainingLog.
// POST: clientID recorded
func (r *recordingCache) Invalidate(_ context.Context, clientID string) error {
	r.invalidated = append(r.invalidated, clientID)
	return nil
}

type effectsRecorder struct {
	email  *recordingSender
	events *recordingPublisher
	cache  *recordingCache
}

func newEffects() (SideEffects, effectsRecorder) {
	rec := effectsRecorder{email: &recordingSender{}, events: &recordingPublisher{}, cache: &recordingCache{}}
	return SideEffects{Email: rec.email, Events: rec.events, Cache: rec.cache, AppURL: "https://app.example"}, rec
}
