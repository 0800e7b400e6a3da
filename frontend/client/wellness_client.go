package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jghoshh/bienestar/backend/models"
	"github.com/jghoshh/bienestar/backend/wellness"
)

// SaveToday logs today's record.
func (c *Client) SaveToday(ctx context.Context, record models.WellnessRecord) (*models.WellnessRecord, error) {
	var saved models.WellnessRecord
	if err := c.authed(ctx, http.MethodPut, "/records/today", record, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Today returns nil when nothing was logged today.
func (c *Client) Today(ctx context.Context) (*models.WellnessRecord, error) {
	var record *models.WellnessRecord
	if err := c.authed(ctx, http.MethodGet, "/records/today", nil, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) Records(ctx context.Context) ([]models.WellnessRecord, error) {
	var records []models.WellnessRecord
	err := c.authed(ctx, http.MethodGet, "/records", nil, &records)
	return records, err
}

func (c *Client) Medical(ctx context.Context) (*models.MedicalProfile, error) {
	var profile *models.MedicalProfile
	if err := c.authed(ctx, http.MethodGet, "/medical", nil, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (c *Client) SaveMedical(ctx context.Context, profile models.MedicalProfile) error {
	return c.authed(ctx, http.MethodPut, "/medical", profile, nil)
}

func (c *Client) AddActivity(ctx context.Context, activity models.ActivityLog) (*models.ActivityLog, error) {
	var saved models.ActivityLog
	if err := c.authed(ctx, http.MethodPost, "/activities", activity, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Activities lists the activities on date; "" lists all of them.
func (c *Client) Activities(ctx context.Context, date string) ([]models.ActivityLog, error) {
	path := "/activities"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var activities []models.ActivityLog
	err := c.authed(ctx, http.MethodGet, path, nil, &activities)
	return activities, err
}

func (c *Client) DeleteActivity(ctx context.Context, id string) error {
	return c.authed(ctx, http.MethodDelete, "/activities/"+url.PathEscape(id), nil, nil)
}

func (c *Client) AddReminder(ctx context.Context, reminder models.Reminder) (*models.Reminder, error) {
	var saved models.Reminder
	if err := c.authed(ctx, http.MethodPost, "/reminders", reminder, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) Reminders(ctx context.Context) ([]models.Reminder, error) {
	var list []models.Reminder
	err := c.authed(ctx, http.MethodGet, "/reminders", nil, &list)
	return list, err
}

func (c *Client) ToggleReminder(ctx context.Context, id string) (*models.Reminder, error) {
	var reminder models.Reminder
	if err := c.authed(ctx, http.MethodPost, "/reminders/"+url.PathEscape(id)+"/toggle", nil, &reminder); err != nil {
		return nil, err
	}
	return &reminder, nil
}

func (c *Client) DeleteReminder(ctx context.Context, id string) error {
	return c.authed(ctx, http.MethodDelete, "/reminders/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Goals(ctx context.Context) (*models.UserGoals, error) {
	var goals models.UserGoals
	if err := c.authed(ctx, http.MethodGet, "/goals", nil, &goals); err != nil {
		return nil, err
	}
	return &goals, nil
}

func (c *Client) SaveGoals(ctx context.Context, goals models.UserGoals) error {
	return c.authed(ctx, http.MethodPut, "/goals", goals, nil)
}

func (c *Client) Stats(ctx context.Context) (*models.UserStats, error) {
	var stats models.UserStats
	if err := c.authed(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) Statistics(ctx context.Context) (*wellness.Statistics, error) {
	var stats wellness.Statistics
	if err := c.authed(ctx, http.MethodGet, "/statistics", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) History(ctx context.Context, filter string) ([]wellness.HistoryItem, error) {
	var items []wellness.HistoryItem
	err := c.authed(ctx, http.MethodGet, "/history?filter="+url.QueryEscape(filter), nil, &items)
	return items, err
}

func (c *Client) Home(ctx context.Context) (*wellness.HomeSummary, error) {
	var home wellness.HomeSummary
	if err := c.authed(ctx, http.MethodGet, "/home", nil, &home); err != nil {
		return nil, err
	}
	return &home, nil
}
