// Package users is the user resource of the sample API. Its routes are
// published through the urls registry rather than imported directly.
package users

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sholola-Gbolahan/esmerald"
	"github.com/Sholola-Gbolahan/esmerald/urls"
)

// Namespace is where the user routes are registered.
const Namespace = "users.routes"

func init() {
	urls.RegisterDefault(Namespace, []esmerald.Route{
		esmerald.Get("/", listUsers, esmerald.WithSummary("List users")),
		esmerald.Post("/", createUser, esmerald.WithStatus(http.StatusCreated)),
		esmerald.Get("/{id}", getUser, esmerald.WithErrors(http.StatusNotFound)),
		esmerald.Put("/{id}", updateUser, esmerald.WithErrors(http.StatusNotFound)),
		esmerald.Delete("/{id}", deleteUser, esmerald.WithErrors(http.StatusNotFound)),
		esmerald.Post("/{id}/avatar", uploadAvatar,
			esmerald.WithDescription("Accepts a multipart upload of the user's avatar."),
			esmerald.WithErrors(http.StatusNotFound),
		),
	})

	urls.Register(Namespace, "admin_patterns", []*esmerald.Gateway{
		esmerald.Delete("/", purgeUsers,
			esmerald.WithSummary("Delete every user"),
			esmerald.WithDeprecated(),
		),
	})
}

// User is the core domain entity.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" required:"true"`
	Email     string    `json:"email" required:"true"`
	Role      string    `json:"role" enum:"admin,member"`
	CreatedAt time.Time `json:"created_at"`
}

type listUsersReq struct {
	Role   string `query:"role" doc:"Filter by role" enum:"admin,member"`
	Limit  int    `query:"limit" doc:"Max results" default:"50" minimum:"1" maximum:"100"`
	Offset int    `query:"offset" doc:"Pagination offset" default:"0" minimum:"0"`
}

type listUsersResp struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}

type createUserReq struct {
	Body struct {
		Name  string `json:"name" required:"true" minLength:"1" maxLength:"64" doc:"Display name"`
		Email string `json:"email" required:"true" pattern:"^[^@]+@[^@]+$" doc:"Email address"`
		Role  string `json:"role" enum:"admin,member" default:"member"`
	} `example:"{\"name\":\"Carol\",\"email\":\"carol@example.com\"}"`
}

type userByIDReq struct {
	ID string `path:"id" doc:"User ID"`
}

type updateUserReq struct {
	ID   string `path:"id" doc:"User ID"`
	Body struct {
		Name  string `json:"name" maxLength:"64"`
		Email string `json:"email" pattern:"^[^@]+@[^@]+$"`
		Role  string `json:"role" enum:"admin,member"`
	}
}

type uploadAvatarReq struct {
	ID     string              `path:"id" doc:"User ID"`
	Avatar esmerald.FileUpload `form:"avatar" required:"true"`
	Alt    string              `form:"alt" maxLength:"120"`
}

type avatarResp struct {
	Bytes       int    `json:"bytes"`
	ContentType string `json:"content_type"`
}

type store struct {
	mu      sync.RWMutex
	users   map[string]User
	avatars map[string][]byte
	nextID  int
}

var db = &store{
	users: map[string]User{
		"1": {ID: "1", Name: "Alice", Email: "alice@example.com", Role: "admin", CreatedAt: time.Now()},
		"2": {ID: "2", Name: "Bob", Email: "bob@example.com", Role: "member", CreatedAt: time.Now()},
	},
	avatars: map[string][]byte{},
	nextID:  3,
}

func notFound(id string) error {
	return esmerald.Errorf(http.StatusNotFound, "user %s not found", id)
}

func listUsers(_ context.Context, req *listUsersReq) (*listUsersResp, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]User, 0, len(db.users))
	for _, u := range db.users {
		if req.Role != "" && u.Role != req.Role {
			continue
		}
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b User) int { return strings.Compare(a.ID, b.ID) })

	total := len(out)
	out = out[min(req.Offset, len(out)):]
	if req.Limit < len(out) {
		out = out[:req.Limit]
	}
	return &listUsersResp{Users: out, Total: total}, nil
}

func createUser(_ context.Context, req *createUserReq) (*User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u := User{
		ID:        strconv.Itoa(db.nextID),
		Name:      req.Body.Name,
		Email:     req.Body.Email,
		Role:      req.Body.Role,
		CreatedAt: time.Now(),
	}
	if u.Role == "" {
		u.Role = "member"
	}
	db.nextID++
	db.users[u.ID] = u
	return &u, nil
}

func getUser(_ context.Context, req *userByIDReq) (*User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	u, ok := db.users[req.ID]
	if !ok {
		return nil, notFound(req.ID)
	}
	return &u, nil
}

func updateUser(_ context.Context, req *updateUserReq) (*User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[req.ID]
	if !ok {
		return nil, notFound(req.ID)
	}
	u.Name = cmp.Or(req.Body.Name, u.Name)
	u.Email = cmp.Or(req.Body.Email, u.Email)
	u.Role = cmp.Or(req.Body.Role, u.Role)
	db.users[u.ID] = u
	return &u, nil
}

func deleteUser(_ context.Context, req *userByIDReq) (*esmerald.Void, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.users[req.ID]; !ok {
		return nil, notFound(req.ID)
	}
	delete(db.users, req.ID)
	delete(db.avatars, req.ID)
	return &esmerald.Void{}, nil
}

func purgeUsers(_ context.Context, _ *esmerald.Void) (*esmerald.Void, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	clear(db.users)
	clear(db.avatars)
	return &esmerald.Void{}, nil
}

func uploadAvatar(_ context.Context, req *uploadAvatarReq) (*avatarResp, error) {
	data, err := req.Avatar.ReadAll()
	if err != nil {
		return nil, esmerald.Errorf(http.StatusBadRequest, "read avatar: %v", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.users[req.ID]; !ok {
		return nil, notFound(req.ID)
	}
	db.avatars[req.ID] = data
	return &avatarResp{Bytes: len(data), ContentType: req.Avatar.ContentType()}, nil
}

