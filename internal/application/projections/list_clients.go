package projections

import (
	"context"
	"sort"

	"coachdesk/internal/domain/apperr"
	"coachdesk/internal/domain/user"
)

// ListClientsQuery carries query parameters.
type ListClientsQuery struct {
	Caller user.Caller
}

// ListClientsDeps holds dependencies for ListClients.
type ListClientsDeps struct {
	Users UserStore
}

// ListClientsResult groups clients by where they stand with the coach.
type ListClientsResult struct {
	Approved   []user.User
	Unapproved []user.User
	Past       []user.User
}

// QueryListClients groups every client account into approved, unapproved and past lists.
// PRE: caller is a coach
// POST: each list is sorted by last name then first name; lists are never nil
func QueryListClients(ctx context.Context, query ListClientsQuery, deps ListClientsDeps) (ListClientsResult, error) {
	if !query.Caller.IsCoach() {
		return ListClientsResult{}, apperr.Forbidden("only coaches can list clients")
	}
	clients, err := deps.Users.ListByRole(ctx, user.RoleClient)
	if err != nil {
		return ListClientsResult{}, err
	}
	sort.SliceStable(clients, func(i, j int) bool {
		if clients[i].LastName != clients[j].LastName {
			return clients[i].LastName < clients[j].LastName
		}
		return clients[i].FirstName < clients[j].FirstName
	})

	res := ListClientsResult{Approved: []user.User{}, Unapproved: []user.User{}, Past: []user.User{}}
	for _, c := range clients {
		switch c.ClientStatus() {
		case user.StatusApproved:
			res.Approved = append(res.Approved, c)
		case user.StatusUnapproved:
			res.Unapproved = append(res.Unapproved, c)
		default:
			res.Past = append(res.Past, c)
		}
	}
	return res, nil
}

// GetUserQuery carries query parameters.
type GetUserQuery struct {
	Caller user.Caller
	UserID string
}

// QueryGetUser returns one account. Clients may only read their own.
func QueryGetUser(ctx context.Context, query GetUserQuery, deps ListClientsDeps) (user.User, error) {
	if err := requireAccess(query.Caller, query.UserID, "user "+query.UserID); err != nil {
		return user.User{}, err
	}
	return deps.Users.GetByID(ctx, query.UserID)
}
