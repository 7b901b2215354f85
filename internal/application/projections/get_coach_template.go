package projections

import (
	"context"

	"coachdesk/internal/domain/coachtemplate"
)

// GetCoachTemplateQuery carries query parameters.
type GetCoachTemplateQuery struct {
	TemplateID string
}

// GetCoachTemplateDeps holds dependencies for GetCoachTemplate.
type GetCoachTemplateDeps struct {
	CoachTemplates CoachTemplateStore
}

// QueryGetCoachTemplate returns an authoring template with exercises resolved against the catalog.
func QueryGetCoachTemplate(ctx context.Context, query GetCoachTemplateQuery, deps GetCoachTemplateDeps) (coachtemplate.Template, error) {
	return deps.CoachTemplates.GetTree(ctx, query.TemplateID)
}
