// http is used to interact with the automation platform's REST API.
// The bridge only needs it to confirm that entities named in a service
// call target actually exist.
package internal

import (
	"context"
	"errors"
	"net/url"
	"time"

	"resty.dev/v3"
)

type HttpClient struct {
	client      *resty.Client
	baseRequest *resty.Request
}

func NewHttpClient(ctx context.Context, baseUrl *url.URL, token string) *HttpClient {
	// Shallow copy the URL to avoid modifying the original
	u := *baseUrl
	u.Path = "/api"

	// Create resty client with configuration
	client := resty.New().
		SetBaseURL(u.String()).
		SetTimeout(30*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		AddRetryConditions(func(r *resty.Response, err error) bool {
			return err != nil || (r.StatusCode() >= 500 && r.StatusCode() != 403)
		}).
		SetHeader("User-Agent", "go-wemo/"+currentVersion).
		SetContext(ctx)

	return &HttpClient{
		client: client,
		baseRequest: client.R().
			SetContentType("application/json").
			SetHeader("Accept", "application/json").
			SetAuthToken(token),
	}
}

// getRequest returns a new request
func (c *HttpClient) getRequest() *resty.Request {
	return c.baseRequest.Clone(c.client.Context())
}

var ErrEntityNotFound = errors.New("entity not found")

// GetState returns the raw state object for a single entity.
func (c *HttpClient) GetState(entityId string) ([]byte, error) {
	resp, err := c.getRequest().Get("/states/" + entityId)

	if err != nil {
		return nil, errors.New("Error making HTTP request: " + err.Error())
	}

	if resp.StatusCode() == 404 {
		return nil, ErrEntityNotFound
	}

	if resp.StatusCode() >= 400 {
		return nil, errors.New("HTTP error: " + resp.Status() + " - " + string(resp.Bytes()))
	}

	return resp.Bytes(), nil
}

// EntityExists reports whether the platform knows the given entity id.
func (c *HttpClient) EntityExists(entityId string) (bool, error) {
	_, err := c.GetState(entityId)
	if errors.Is(err, ErrEntityNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
