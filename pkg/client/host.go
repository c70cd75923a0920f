package client

import (
	"fmt"
	"net/http"
	"net/url"

	tagview "tagview/engine/core"
)

func tagPath(element, tag string) string {
	return fmt.Sprintf("/api/v1/elements/%s/tags/%s", url.PathEscape(element), url.PathEscape(tag))
}

// Health checks a running host.
func (c *Client) Health() (*HealthResponse, error) {
	var result HealthResponse
	if err := c.Request(http.MethodGet, "/health", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Tree retrieves the host's rendered tree.
func (c *Client) Tree() ([]tagview.ElementView, error) {
	var result ElementListResponse
	if err := c.Request(http.MethodGet, "/api/v1/elements", nil, &result); err != nil {
		return nil, err
	}
	return result.Elements, nil
}

// Element retrieves one rendered element.
func (c *Client) Element(name string) (*tagview.ElementView, error) {
	var result tagview.ElementView
	if err := c.Request(http.MethodGet, "/api/v1/elements/"+url.PathEscape(name), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Tag retrieves one rendered tag.
func (c *Client) Tag(element, tag string) (*tagview.TagView, error) {
	var result tagview.TagView
	if err := c.Request(http.MethodGet, tagPath(element, tag), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Focus marks a tag as being edited so refreshes leave it alone.
func (c *Client) Focus(element, tag string) (*tagview.TagView, error) {
	var result tagview.TagView
	if err := c.Request(http.MethodPost, tagPath(element, tag)+"/focus", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Blur abandons an edit without sending anything.
func (c *Client) Blur(element, tag string) (*tagview.TagView, error) {
	var result tagview.TagView
	if err := c.Request(http.MethodPost, tagPath(element, tag)+"/blur", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Input types display into a tag's widget without committing it.
func (c *Client) Input(element, tag, display string) (*tagview.TagView, error) {
	var result tagview.TagView
	if err := c.Request(http.MethodPost, tagPath(element, tag)+"/input", InputRequest{Display: &display}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Edit commits a tag's widget. With a non-nil display the text is typed first.
func (c *Client) Edit(element, tag string, display *string) (*InteractionResponse, error) {
	var result InteractionResponse
	if err := c.Request(http.MethodPost, tagPath(element, tag)+"/edit", InputRequest{Display: display}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Click presses a toggle or command button.
func (c *Client) Click(element, tag string) (*InteractionResponse, error) {
	var result InteractionResponse
	if err := c.Request(http.MethodPost, tagPath(element, tag)+"/click", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteElement drops an element from the host's tree.
func (c *Client) DeleteElement(name string) error {
	return c.Request(http.MethodDelete, "/api/v1/elements/"+url.PathEscape(name), nil, nil)
}

// PushSnapshot hands a snapshot to a host as if the device had sent it.
// An empty group renders the host's configured group.
func (c *Client) PushSnapshot(s *tagview.Snapshot, group string) (*RenderResponse, error) {
	path := "/api/v1/snapshots"
	if group != "" {
		path += "?group=" + url.QueryEscape(group)
	}
	var result RenderResponse
	if err := c.Request(http.MethodPost, path, s, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
