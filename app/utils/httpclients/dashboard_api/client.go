package dashboardapi

import (
	"context"
	"errors"
	"fmt"

	"resty.dev/v3"
	"vantage.ai/dashboard-cache-engine/app/domain/common"
	"vantage.ai/dashboard-cache-engine/app/domain/fetcher"
	"vantage.ai/dashboard-cache-engine/app/utils/httpclients"
	"vantage.ai/dashboard-cache-engine/config/environment_variables"
)

var DashboardRestyClient *resty.Client

func Init() {
	DashboardRestyClient = httpclients.NewClient("DashboardAPIClient")
	DashboardRestyClient.SetBaseURL(environment_variables.EnvironmentVariables.DASHBOARD_API_BASE_URL)
}

// Client fetches dashboard resources over the REST collaborator. It is the
// production implementation of fetcher.Fetcher.
type Client struct{}

func NewClient() *Client {
	return &Client{}
}

type apiEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Error   string `json:"error"`
}

func (c *Client) Fetch(ctx context.Context, rd fetcher.ResourceDescriptor) (fetcher.Result, error) {
	if DashboardRestyClient == nil {
		return fetcher.Result{}, errors.New("dashboard api client not initialized")
	}

	var envelope apiEnvelope
	req := DashboardRestyClient.R().
		SetContext(ctx).
		SetResult(&envelope)
	if rd.Qualifier != "" {
		req.SetQueryParam("q", rd.Qualifier)
	}
	for k, v := range rd.Params {
		req.SetQueryParam(k, v)
	}

	resp, err := req.Get(fmt.Sprintf("/api/%s/%s/%s", rd.DataType, rd.ScopeID, rd.SubScopeID))
	if err != nil {
		code := common.ErrCodeFetchFailed
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			code = common.ErrCodeFetchTimeout
		case errors.Is(err, context.Canceled):
			code = common.ErrCodeFetchCanceled
		}
		return fetcher.Result{
			Success: false,
			Error:   common.NewError(code, err.Error()),
		}, err
	}
	if resp.IsError() {
		return fetcher.Result{
			Success: false,
			Error:   common.NewError(common.ErrCodeBadResponse, resp.Status()),
		}, nil
	}
	if !envelope.Success {
		return fetcher.Result{
			Success: false,
			Error:   common.NewError(common.ErrCodeFetchFailed, envelope.Error),
		}, nil
	}
	return fetcher.Result{Success: true, Data: envelope.Data}, nil
}
