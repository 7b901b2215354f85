package web

import (
	"time"

	"coachdesk/internal/domain/checkin"
	"coachdesk/internal/domain/clienttemplate"
	"coachdesk/internal/domain/coachtemplate"
	"coachdesk/internal/domain/exercise"
	"coachdesk/internal/domain/user"
)

// --- Requests ---

type createExerciseRequest struct {
	Category string `json:"category" validate:"required"`
	Name     string `json:"name" validate:"required"`
}

type nameRequest struct {
	Name string `json:"name" validate:"required"`
}

type addCoachExerciseRequest struct {
	ExerciseID string `json:"exercise_id" validate:"required"`
}

type overrideExerciseRequest struct {
	ID     string   `json:"id" validate:"required"`
	Sets   *int     `json:"sets" validate:"required,gte=0"`
	Reps   *int     `json:"reps" validate:"required,gte=0"`
	Weight *float64 `json:"weight" validate:"required,gte=0"`
}

type overrideSessionRequest struct {
	ID        string                    `json:"id" validate:"required"`
	Exercises []overrideExerciseRequest `json:"exercises" validate:"dive"`
}

type instantiateRequest struct {
	Role     string                   `json:"role" validate:"required,oneof=COACH CLIENT"`
	SourceID string                   `json:"source_id" validate:"required"`
	ClientID string                   `json:"client_id" validate:"required"`
	Sessions []overrideSessionRequest `json:"sessions" validate:"dive"`
	CheckIns []string                 `json:"check_ins" validate:"dive,datetime=2006-01-02"`
}

func (req instantiateRequest) overrides() []clienttemplate.Override {
	var out []clienttemplate.Override
	for _, s := range req.Sessions {
		for _, e := range s.Exercises {
			out = append(out, clienttemplate.Override{
				SessionID: s.ID, ExerciseID: e.ID, Sets: e.Sets, Reps: e.Reps, Weight: e.Weight,
			})
		}
	}
	return out
}

type updateTemplateRequest struct {
	Name      *string `json:"name"`
	StartDate *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Completed *bool   `json:"completed"`
	Active    *bool   `json:"active"`
}

// workRequest accepts id so a list read back from the API can be resent as is. Stored work
// always gets fresh IDs, so the value is dropped.
type workRequest struct {
	ID       string  `json:"id"`
	Sets     int     `json:"sets" validate:"gte=0"`
	Reps     int     `json:"reps" validate:"gte=0"`
	Weight   float64 `json:"weight" validate:"gte=0"`
	Category string  `json:"category" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Order    int     `json:"order" validate:"gte=0"`
}

func toWork(in []workRequest) []clienttemplate.Exercise {
	out := make([]clienttemplate.Exercise, 0, len(in))
	for _, w := range in {
		out = append(out, clienttemplate.Exercise{
			Sets: w.Sets, Reps: w.Reps, Weight: w.Weight,
			Category: w.Category, Name: w.Name, Order: w.Order,
		})
	}
	return out
}

type createSessionRequest struct {
	Name            string        `json:"name" validate:"required"`
	Completed       bool          `json:"completed"`
	ClientWeight    *float64      `json:"client_weight" validate:"omitempty,gte=0"`
	Comment         *string       `json:"comment"`
	Exercises       []workRequest `json:"exercises" validate:"dive"`
	TrainingEntries []workRequest `json:"training_entries" validate:"dive"`
}

// updateSessionRequest distinguishes an absent list (unchanged) from an empty one (cleared).
type updateSessionRequest struct {
	Name            *string        `json:"name"`
	ClientWeight    *float64       `json:"client_weight" validate:"omitempty,gte=0"`
	Comment         *string        `json:"comment"`
	Completed       *bool          `json:"completed"`
	Exercises       *[]workRequest `json:"exercises"`
	TrainingEntries *[]workRequest `json:"training_entries"`
}

type updateCheckInRequest struct {
	CoachComment  *string `json:"coach_comment"`
	ClientComment *string `json:"client_comment"`
	Completed     *bool   `json:"completed"`
}

// --- Responses ---

type exerciseResponse struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Name     string `json:"name"`
}

func toExerciseResponse(e exercise.Exercise) exerciseResponse {
	return exerciseResponse{ID: e.ID, Category: e.Category, Name: e.Name}
}

type coachExerciseResponse struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	ExerciseID string `json:"exercise_id"`
	Order      int    `json:"order"`
	Category   string `json:"category,omitempty"`
	Name       string `json:"name,omitempty"`
}

type coachSessionResponse struct {
	ID         string                  `json:"id"`
	TemplateID string                  `json:"template_id"`
	Name       string                  `json:"name"`
	Slug       string                  `json:"slug"`
	Order      int                     `json:"order"`
	Exercises  []coachExerciseResponse `json:"exercises"`
}

type coachTemplateResponse struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Slug     string                 `json:"slug"`
	Sessions []coachSessionResponse `json:"sessions"`
}

func toCoachExerciseResponse(e coachtemplate.Exercise) coachExerciseResponse {
	return coachExerciseResponse{
		ID: e.ID, SessionID: e.SessionID, ExerciseID: e.ExerciseID, Order: e.Order,
		Category: e.Category, Name: e.Name,
	}
}

func toCoachSessionResponse(s coachtemplate.Session) coachSessionResponse {
	out := coachSessionResponse{
		ID: s.ID, TemplateID: s.TemplateID, Name: s.Name, Slug: s.Slug, Order: s.Order,
		Exercises: make([]coachExerciseResponse, 0, len(s.Exercises)),
	}
	for _, e := range s.Exercises {
		out.Exercises = append(out.Exercises, toCoachExerciseResponse(e))
	}
	return out
}

func toCoachTemplateResponse(t coachtemplate.Template) coachTemplateResponse {
	out := coachTemplateResponse{
		ID: t.ID, Name: t.Name, Slug: t.Slug,
		Sessions: make([]coachSessionResponse, 0, len(t.Sessions)),
	}
	for _, s := range t.Sessions {
		out.Sessions = append(out.Sessions, toCoachSessionResponse(s))
	}
	return out
}

type workResponse struct {
	ID       string  `json:"id"`
	Sets     int     `json:"sets"`
	Reps     int     `json:"reps"`
	Weight   float64 `json:"weight"`
	Category string  `json:"category"`
	Name     string  `json:"name"`
	Order    int     `json:"order"`
}

func toWorkResponses(in []clienttemplate.Exercise) []workResponse {
	out := make([]workResponse, 0, len(in))
	for _, e := range in {
		out = append(out, workResponse{
			ID: e.ID, Sets: e.Sets, Reps: e.Reps, Weight: e.Weight,
			Category: e.Category, Name: e.Name, Order: e.Order,
		})
	}
	return out
}

type clientSessionResponse struct {
	ID              string         `json:"id"`
	TemplateID      string         `json:"template_id"`
	Name            string         `json:"name"`
	Slug            string         `json:"slug"`
	Order           int            `json:"order"`
	Completed       bool           `json:"completed"`
	CompletedDate   *string        `json:"completed_date"`
	ClientWeight    *float64       `json:"client_weight"`
	Comment         *string        `json:"comment"`
	Exercises       []workResponse `json:"exercises"`
	TrainingEntries []workResponse `json:"training_entries"`
}

func optionalDate(d string) *string {
	if d == "" {
		return nil
	}
	return &d
}

func toClientSessionResponse(s clienttemplate.Session) clientSessionResponse {
	return clientSessionResponse{
		ID: s.ID, TemplateID: s.TemplateID, Name: s.Name, Slug: s.Slug, Order: s.Order,
		Completed: s.Completed, CompletedDate: optionalDate(s.CompletedDate),
		ClientWeight: s.ClientWeight, Comment: s.Comment,
		Exercises:       toWorkResponses(s.Exercises),
		TrainingEntries: toWorkResponses(s.TrainingEntries),
	}
}

func toClientSessionResponses(in []clienttemplate.Session) []clientSessionResponse {
	out := make([]clientSessionResponse, 0, len(in))
	for _, s := range in {
		out = append(out, toClientSessionResponse(s))
	}
	return out
}

type imagesResponse struct {
	Front string `json:"front,omitempty"`
	Back  string `json:"back,omitempty"`
	SideA string `json:"side_a,omitempty"`
	SideB string `json:"side_b,omitempty"`
}

type checkInResponse struct {
	ID            string         `json:"id"`
	TemplateID    string         `json:"template_id"`
	StartDate     string         `json:"start_date"`
	EndDate       *string        `json:"end_date"`
	CoachComment  *string        `json:"coach_comment"`
	ClientComment *string        `json:"client_comment"`
	Completed     bool           `json:"completed"`
	Images        imagesResponse `json:"images"`
}

func toCheckInResponse(c checkin.CheckIn) checkInResponse {
	return checkInResponse{
		ID: c.ID, TemplateID: c.TemplateID, StartDate: c.StartDate, EndDate: optionalDate(c.EndDate),
		CoachComment: c.CoachComment, ClientComment: c.ClientComment, Completed: c.Completed,
		Images: imagesResponse{Front: c.Images.Front, Back: c.Images.Back, SideA: c.Images.SideA, SideB: c.Images.SideB},
	}
}

type clientTemplateResponse struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Slug      string                  `json:"slug"`
	StartDate string                  `json:"start_date"`
	EndDate   *string                 `json:"end_date"`
	UserID    string                  `json:"user_id"`
	Active    bool                    `json:"active"`
	Completed bool                    `json:"completed"`
	Sessions  []clientSessionResponse `json:"sessions"`
	CheckIns  []checkInResponse       `json:"check_ins"`
}

func toClientTemplateResponse(t clienttemplate.Template) clientTemplateResponse {
	out := clientTemplateResponse{
		ID: t.ID, Name: t.Name, Slug: t.Slug, StartDate: t.StartDate, EndDate: optionalDate(t.EndDate),
		UserID: t.UserID, Active: t.Active, Completed: t.Completed,
		Sessions: toClientSessionResponses(t.Sessions),
		CheckIns: make([]checkInResponse, 0, len(t.CheckIns)),
	}
	for _, c := range t.CheckIns {
		out.CheckIns = append(out.CheckIns, toCheckInResponse(c))
	}
	return out
}

type userResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Approved  *bool     `json:"approved"`
	Status    string    `json:"status,omitempty"`
	CoachID   string    `json:"coach_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u user.User) userResponse {
	out := userResponse{
		ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email,
		Role: u.Role.String(), Approved: u.Approved, CoachID: u.CoachID, CreatedAt: u.CreatedAt,
	}
	if u.Role == user.RoleClient {
		out.Status = u.ClientStatus()
	}
	return out
}

func toUserResponses(in []user.User) []userResponse {
	out := make([]userResponse, 0, len(in))
	for _, u := range in {
		out = append(out, toUserResponse(u))
	}
	return out
}

type listClientsResponse struct {
	Approved   []userResponse `json:"approved"`
	Unapproved []userResponse `json:"unapproved"`
	Past       []userResponse `json:"past"`
}

type trainingLogResponse struct {
	Sessions    []clientSessionResponse `json:"sessions"`
	CurrentPage int                     `json:"current_page"`
	EndPage     int                     `json:"end_page"`
	Total       int                     `json:"total"`
}

type uploadImageResponse struct {
	CheckIn checkInResponse `json:"check_in"`
	Key     string          `json:"key"`
	URL     string          `json:"url,omitempty"`
}
