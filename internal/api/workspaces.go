package api

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	var out []Workspace
	err := c.do(ctx, request{method: http.MethodGet, path: "/workspaces", out: &out})
	return out, err
}

func (c *Client) Workspace(ctx context.Context, id string) (Workspace, error) {
	if err := required("workspaceId", id); err != nil {
		return Workspace{}, err
	}
	var out Workspace
	err := c.do(ctx, request{method: http.MethodGet, path: "/workspaces/" + escape(id), out: &out})
	return out, err
}

func (c *Client) CreateWorkspace(ctx context.Context, in WorkspaceInput) (Workspace, error) {
	if err := check(in); err != nil {
		return Workspace{}, err
	}
	var out Workspace
	err := c.do(ctx, request{method: http.MethodPost, path: "/workspaces", body: in, out: &out})
	return out, err
}

func (c *Client) UpdateWorkspace(ctx context.Context, id string, in WorkspaceInput) (Workspace, error) {
	if err := required("workspaceId", id); err != nil {
		return Workspace{}, err
	}
	if err := check(in); err != nil {
		return Workspace{}, err
	}
	var out Workspace
	err := c.do(ctx, request{method: http.MethodPut, path: "/workspaces/" + escape(id), body: in, out: &out})
	return out, err
}

func (c *Client) DeleteWorkspace(ctx context.Context, id string) error {
	if err := required("workspaceId", id); err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodDelete, path: "/workspaces/" + escape(id)})
}

func membersPath(workspaceID string) string {
	return "/workspaces/" + escape(workspaceID) + "/members"
}

func (c *Client) Members(ctx context.Context, workspaceID string) ([]Member, error) {
	if err := required("workspaceId", workspaceID); err != nil {
		return nil, err
	}
	var out []Member
	err := c.do(ctx, request{method: http.MethodGet, path: membersPath(workspaceID), out: &out})
	return out, err
}

func (c *Client) AddMember(ctx context.Context, workspaceID string, in AddMemberRequest) (Member, error) {
	if err := required("workspaceId", workspaceID); err != nil {
		return Member{}, err
	}
	in.Role = normalizeRole(in.Role)
	if err := check(in); err != nil {
		return Member{}, err
	}
	var out Member
	err := c.do(ctx, request{method: http.MethodPost, path: membersPath(workspaceID), body: in, out: &out})
	return out, err
}

func (c *Client) RemoveMember(ctx context.Context, workspaceID, userID string) error {
	if err := required("workspaceId", workspaceID); err != nil {
		return err
	}
	if err := required("userId", userID); err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodDelete, path: membersPath(workspaceID) + "/" + escape(userID)})
}

func (c *Client) UpdateMemberRole(ctx context.Context, workspaceID, userID, role string) (Member, error) {
	if err := required("workspaceId", workspaceID); err != nil {
		return Member{}, err
	}
	if err := required("userId", userID); err != nil {
		return Member{}, err
	}
	role = normalizeRole(role)
	if err := check(struct {
		Role string `json:"role" validate:"oneof=ADMIN MEMBER"`
	}{role}); err != nil {
		return Member{}, err
	}
	var out Member
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   membersPath(workspaceID) + "/" + escape(userID) + "/role",
		query:  url.Values{"role": {role}},
		out:    &out,
	})
	return out, err
}
