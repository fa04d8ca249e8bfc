package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"taxtracker/internal/model"
)

// SignIn exchanges credentials for a session
func (c *Client) SignIn(ctx context.Context, creds model.Credentials) (model.UpstreamLoginResponse, error) {
	env, err := c.call(ctx, http.MethodPost, "/auth/sign_in", creds, "")
	if err != nil {
		return model.UpstreamLoginResponse{}, err
	}
	resp := model.UpstreamLoginResponse{
		Success: env.Success,
		Message: env.Message,
		Token:   env.Token,
		User:    env.User,
	}
	if err := decodeData(env, &resp.Data); err != nil {
		// data is optional on sign in; older revisions send a string here
		resp.Data = nil
	}
	return resp, nil
}

// SignUp registers a new account of the given class
func (c *Client) SignUp(ctx context.Context, class model.TaxpayerClass, req model.SignUpRequest) (string, error) {
	env, err := c.call(ctx, http.MethodPost, "/auth/sign_up/"+url.PathEscape(class.String()), req, "")
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// UpdateProfile changes the remote profile of the signed-in user
func (c *Client) UpdateProfile(ctx context.Context, id model.Identity, update model.ProfileUpdate) error {
	path := fmt.Sprintf("/auth/%s/profile", url.PathEscape(id.TaxpayerClass.String()))
	_, err := c.call(ctx, http.MethodPatch, path, update, id.AuthToken)
	return err
}

func (c *Client) UpdateReminderPreference(ctx context.Context, id model.Identity, enabled bool) error {
	_, err := c.call(ctx, http.MethodPut, "/auth/preferences/reminders",
		model.ReminderPreference{TaxReminder: enabled}, id.AuthToken)
	return err
}

// SubmitRecord persists a calculation and returns the new record id
func (c *Client) SubmitRecord(ctx context.Context, id model.Identity, req model.SubmitRecordRequest) (string, error) {
	env, err := c.call(ctx, http.MethodPost, "/tax/compute/"+url.PathEscape(id.UserID), req, id.AuthToken)
	if err != nil {
		return "", err
	}
	var data model.Fields
	if err := decodeData(env, &data); err != nil {
		return "", err
	}
	return data.String("_id", "id"), nil
}

// ListRecords returns the user's tax records normalized across field spellings
func (c *Client) ListRecords(ctx context.Context, id model.Identity) ([]model.TaxRecord, error) {
	env, err := c.call(ctx, http.MethodGet, "/tax/records/"+url.PathEscape(id.UserID), nil, id.AuthToken)
	if err != nil {
		return nil, err
	}
	var raw []model.Fields
	if err := decodeData(env, &raw); err != nil {
		return nil, err
	}
	records := make([]model.TaxRecord, 0, len(raw))
	for _, f := range raw {
		records = append(records, model.NewTaxRecord(f))
	}
	return records, nil
}

// TaxSummary returns the remote tax summary for the user as sent
func (c *Client) TaxSummary(ctx context.Context, id model.Identity) (model.Fields, error) {
	return c.summary(ctx, "/tax/summary/"+url.PathEscape(id.UserID), id)
}

// IncomeExpenseSummary returns the dashboard income and expense summary
func (c *Client) IncomeExpenseSummary(ctx context.Context, id model.Identity) (model.Fields, error) {
	return c.summary(ctx, "/income-expense/"+url.PathEscape(id.UserID)+"/summary", id)
}

func (c *Client) summary(ctx context.Context, path string, id model.Identity) (model.Fields, error) {
	env, err := c.call(ctx, http.MethodGet, path, nil, id.AuthToken)
	if err != nil {
		return nil, err
	}
	data := model.Fields{}
	if err := decodeData(env, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) MarkPaid(ctx context.Context, id model.Identity, recordID string, req model.MarkPaidRequest) error {
	path := fmt.Sprintf("/tax/mark-paid/%s/%s", url.PathEscape(id.UserID), url.PathEscape(recordID))
	_, err := c.call(ctx, http.MethodPatch, path, req, id.AuthToken)
	return err
}

func (c *Client) ListReminders(ctx context.Context, id model.Identity) ([]model.Reminder, error) {
	env, err := c.call(ctx, http.MethodGet, "/reminders/"+url.PathEscape(id.UserID), nil, id.AuthToken)
	if err != nil {
		return nil, err
	}
	var raw []model.Fields
	if err := decodeData(env, &raw); err != nil {
		return nil, err
	}
	reminders := make([]model.Reminder, 0, len(raw))
	for _, f := range raw {
		reminders = append(reminders, model.NewReminder(f))
	}
	return reminders, nil
}
