package api

import (
	"context"
	"net/http"
	"net/url"
)

// ListPages returns the pages of a workspace. An empty parentID lists the
// top level.
func (c *Client) ListPages(ctx context.Context, workspaceID, parentID string) ([]Page, error) {
	if err := required("workspaceId", workspaceID); err != nil {
		return nil, err
	}
	var query url.Values
	if parentID != "" {
		query = url.Values{"parentId": {parentID}}
	}
	var out []Page
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/workspaces/" + escape(workspaceID) + "/pages",
		query:  query,
		out:    &out,
	})
	return out, err
}

func (c *Client) LoadPage(ctx context.Context, id string) (Page, error) {
	if err := required("pageId", id); err != nil {
		return Page{}, err
	}
	var out Page
	err := c.do(ctx, request{method: http.MethodGet, path: "/pages/" + escape(id), out: &out})
	return out, err
}

func (c *Client) CreatePage(ctx context.Context, in CreatePageRequest) (Page, error) {
	if err := check(in); err != nil {
		return Page{}, err
	}
	var out Page
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/workspaces/" + escape(in.WorkspaceID) + "/pages",
		body:   in,
		out:    &out,
	})
	return out, err
}

// UpdatePage saves title and serialized content. An empty title is
// rejected before anything is sent.
func (c *Client) UpdatePage(ctx context.Context, id string, in UpdatePageRequest) (Page, error) {
	if err := required("pageId", id); err != nil {
		return Page{}, err
	}
	if err := check(in); err != nil {
		return Page{}, err
	}
	var out Page
	err := c.do(ctx, request{method: http.MethodPut, path: "/pages/" + escape(id), body: in, out: &out})
	return out, err
}

func (c *Client) DeletePage(ctx context.Context, id string) error {
	if err := required("pageId", id); err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodDelete, path: "/pages/" + escape(id)})
}

// MovePage reparents a page. An empty ParentID moves it to the top level.
func (c *Client) MovePage(ctx context.Context, id string, in MovePageRequest) (Page, error) {
	if err := required("pageId", id); err != nil {
		return Page{}, err
	}
	var out Page
	err := c.do(ctx, request{method: http.MethodPost, path: "/pages/" + escape(id) + "/move", body: in, out: &out})
	return out, err
}

func (c *Client) ToggleFavorite(ctx context.Context, id string) (Page, error) {
	if err := required("pageId", id); err != nil {
		return Page{}, err
	}
	var out Page
	err := c.do(ctx, request{method: http.MethodPost, path: "/pages/" + escape(id) + "/favorite", out: &out})
	return out, err
}

func (c *Client) Favorites(ctx context.Context) ([]Page, error) {
	var out []Page
	err := c.do(ctx, request{method: http.MethodGet, path: "/favorites", out: &out})
	return out, err
}
