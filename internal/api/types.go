package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"notionclone/client/internal/session"
)

// Timestamp accepts the server's zone-less LocalDateTime values as well as
// RFC 3339.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04:05"))
}

// Member roles as stored by the server.
const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
	RoleViewer = "VIEWER"
)

// Share permissions.
const (
	PermissionView = "VIEW"
	PermissionEdit = "EDIT"
)

type User struct {
	ID        json.Number `json:"id,omitempty"`
	FirstName string      `json:"firstName,omitempty"`
	LastName  string      `json:"lastName,omitempty"`
	Email     string      `json:"email"`
	Role      string      `json:"role,omitempty"`
}

// SessionUser converts the profile into the form the session caches.
func (u User) SessionUser() session.User {
	return session.User{
		ID:        u.ID.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}
}

func (u User) Name() string {
	return u.SessionUser().Name()
}

type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Personal    bool      `json:"personal"`
	CreatedAt   Timestamp `json:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt"`
}

type Member struct {
	UserID   json.Number `json:"userId"`
	Email    string      `json:"email"`
	Name     string      `json:"name,omitempty"`
	Role     string      `json:"role"`
	JoinedAt Timestamp   `json:"joinedAt"`
}

type Page struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Icon        string      `json:"icon,omitempty"`
	Content     string      `json:"content,omitempty"`
	ParentID    string      `json:"parentId,omitempty"`
	Workspace   *Workspace  `json:"workspace,omitempty"`
	WorkspaceID string      `json:"wsUid,omitempty"`
	Favorite    bool        `json:"favorite"`
	CreatedAt   Timestamp   `json:"createdAt"`
	UpdatedAt   Timestamp   `json:"updatedAt"`
	CreatedBy   json.Number `json:"createdBy,omitempty"`
	UpdatedBy   json.Number `json:"updatedBy,omitempty"`
}

// WorkspaceRef returns the owning workspace id from whichever field the
// server filled in.
func (p Page) WorkspaceRef() string {
	if p.WorkspaceID != "" {
		return p.WorkspaceID
	}
	if p.Workspace != nil {
		return p.Workspace.ID
	}
	return ""
}

type SharedPage struct {
	ID              string      `json:"id"`
	Page            Page        `json:"page"`
	SharedWithEmail string      `json:"sharedWithEmail"`
	Permission      string      `json:"permission"`
	SharedAt        Timestamp   `json:"sharedAt"`
	SharedByID      json.Number `json:"sharedById,omitempty"`
}

type SearchResult struct {
	Pages      []Page      `json:"pages"`
	Workspaces []Workspace `json:"workspaces"`
}

// Request bodies. Validation tags are checked before anything is sent.

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"notblank"`
	LastName  string `json:"lastName" validate:"notblank"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

type ProfileUpdate struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Password  string `json:"password,omitempty" validate:"omitempty,min=8"`
}

type WorkspaceInput struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	Personal    bool   `json:"personal"`
}

type AddMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"oneof=ADMIN MEMBER"`
}

type CreatePageRequest struct {
	Title       string `json:"title" validate:"notblank"`
	Icon        string `json:"icon,omitempty"`
	Content     string `json:"content,omitempty"`
	WorkspaceID string `json:"workspaceId" validate:"required"`
	ParentID    string `json:"parentId,omitempty"`
}

type UpdatePageRequest struct {
	Title   string `json:"title" validate:"notblank"`
	Icon    string `json:"icon,omitempty"`
	Content string `json:"content"`
	// ActualContent carries the plain-text rendition used by search and chat.
	ActualContent string `json:"actualContent,omitempty"`
}

type MovePageRequest struct {
	ParentID    string `json:"newParentId,omitempty"`
	WorkspaceID string `json:"newWorkspaceId,omitempty"`
}

type SharePageRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Permission string `json:"permission" validate:"oneof=VIEW EDIT"`
}

type ChatRequest struct {
	SourceID  string `json:"sourceId,omitempty"`
	Question  string `json:"question" validate:"notblank"`
	SessionID string `json:"sessionId,omitempty"`
}

type SummaryRequest struct {
	SourceID    string `json:"sourceId" validate:"required"`
	SummaryType string `json:"summaryType" validate:"notblank"`
}

// loginResponse matches both the bare {token,userDto} shape and the
// {message,data:{...}} wrapper the server uses for login.
type loginResponse struct {
	Token   string          `json:"token"`
	User    *User           `json:"userDto"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type tokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type errorResponse struct {
	Status  int               `json:"status"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Path    string            `json:"path"`
	Errors  map[string]string `json:"errors"`
}

func normalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}
