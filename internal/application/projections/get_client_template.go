package projections

import (
	"context"

	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/user"
)

// GetClientTemplateQuery carries query parameters.
type GetClientTemplateQuery struct {
	Caller     user.Caller
	TemplateID string
}

// GetClientTemplateDeps holds dependencies for the client template projections.
type GetClientTemplateDeps struct {
	ClientTemplates ClientTemplateStore
}

// QueryGetClientTemplate returns a client template with its sessions, work and check-ins.
// PRE: TemplateID is non-empty
// POST: children are ordered; NotFound when the template does not exist
func QueryGetClientTemplate(ctx context.Context, query GetClientTemplateQuery, deps GetClientTemplateDeps) (clienttemplate.Template, error) {
	tpl, err := deps.ClientTemplates.GetTree(ctx, query.TemplateID)
	if err != nil {
		return clienttemplate.Template{}, err
	}
	if err := requireAccess(query.Caller, tpl.UserID, "client template "+tpl.ID); err != nil {
		return clienttemplate.Template{}, err
	}
	return tpl, nil
}

// GetClientSessionQuery carries query parameters.
type GetClientSessionQuery struct {
	Caller     user.Caller
	TemplateID string
	SessionID  string
}

// QueryGetClientSession returns one session of a client template.
// POST: NotFound names both ids when the session is not under the template
func QueryGetClientSession(ctx context.Context, query GetClientSessionQuery, deps GetClientTemplateDeps) (clienttemplate.Session, error) {
	tpl, err := deps.ClientTemplates.Get(ctx, query.TemplateID)
	if err != nil {
		return clienttemplate.Session{}, err
	}
	if err := requireAccess(query.Caller, tpl.UserID, "client template "+tpl.ID); err != nil {
		return clienttemplate.Session{}, err
	}
	return deps.ClientTemplates.GetSession(ctx, query.TemplateID, query.SessionID)
}

// GetActiveTemplateQuery carries query parameters.
type GetActiveTemplateQuery struct {
	Caller   user.Caller
	ClientID string
}

// GetActiveTemplateDeps holds dependencies for QueryGetActiveTemplate.
type GetActiveTemplateDeps struct {
	ClientTemplates ClientTemplateStore
	Users           UserStore
}

// QueryGetActiveTemplate returns the client's single active template.
// POST: NotFound when the client does not exist
// POST: Conflict when the client has zero or several active templates
func QueryGetActiveTemplate(ctx context.Context, query GetActiveTemplateQuery, deps GetActiveTemplateDeps) (clienttemplate.Template, error) {
	if err := requireAccess(query.Caller, query.ClientID, "templates of client "+query.ClientID); err != nil {
		return clienttemplate.Template{}, err
	}
	if _, err := deps.Users.GetByID(ctx, query.ClientID); err != nil {
		return clienttemplate.Template{}, err
	}
	active, err := deps.ClientTemplates.ListActive(ctx, query.ClientID)
	if err != nil {
		return clienttemplate.Template{}, err
	}
	if len(active) != 1 {
		return clienttemplate.Template{}, apperr.Conflict("client %s has %d active templates, want exactly 1", query.ClientID, len(active))
	}
	return deps.ClientTemplates.GetTree(ctx, active[0].ID)
}
