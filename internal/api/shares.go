package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

func (c *Client) SharePage(ctx context.Context, pageID string, in SharePageRequest) (SharedPage, error) {
	if err := required("pageId", pageID); err != nil {
		return SharedPage{}, err
	}
	in.Permission = strings.ToUpper(strings.TrimSpace(in.Permission))
	if err := check(in); err != nil {
		return SharedPage{}, err
	}
	var out SharedPage
	err := c.do(ctx, request{method: http.MethodPost, path: "/pages/" + escape(pageID) + "/share", body: in, out: &out})
	return out, err
}

// SharedPages lists pages other users shared with the current user.
func (c *Client) SharedPages(ctx context.Context) ([]SharedPage, error) {
	var out []SharedPage
	err := c.do(ctx, request{method: http.MethodGet, path: "/shared", out: &out})
	return out, err
}

func (c *Client) RevokeShare(ctx context.Context, shareID string) error {
	if err := required("shareId", shareID); err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodDelete, path: "/shared/" + escape(shareID)})
}

func (c *Client) Search(ctx context.Context, q string) (SearchResult, error) {
	if err := required("q", q); err != nil {
		return SearchResult{}, err
	}
	var out SearchResult
	err := c.do(ctx, request{method: http.MethodGet, path: "/search", query: url.Values{"q": {q}}, out: &out})
	return out, err
}
