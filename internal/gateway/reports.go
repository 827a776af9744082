package gateway

import (
	"context"
	"fmt"
	"net/url"

	"github.com/qytetaret/synckit/internal/model"
)

// ListReports retrieves the report collection, optionally filtered.
func (c *Client) ListReports(ctx context.Context, filter model.ReportFilter) ([]model.Report, error) {
	q := url.Values{}
	if filter.Category != nil {
		q.Set("category", *filter.Category)
	}
	if filter.Subcategory != nil {
		q.Set("subcategory", *filter.Subcategory)
	}
	if filter.Status != nil {
		q.Set("status", *filter.Status)
	}
	if filter.Neighborhood != nil {
		q.Set("neighborhood", *filter.Neighborhood)
	}
	if filter.UserID != nil {
		q.Set("userId", *filter.UserID)
	}
	if filter.Query != nil && *filter.Query != "" {
		q.Set("search", *filter.Query)
	}
	if filter.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", filter.Offset))
	}

	path := "/reports"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var reports []model.Report
	if err := c.get(ctx, path, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// GetReport retrieves a single report by ID.
func (c *Client) GetReport(ctx context.Context, id string) (*model.Report, error) {
	var r model.Report
	if err := c.get(ctx, "/reports/"+url.PathEscape(id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReport submits a new report draft and returns the created record.
func (c *Client) CreateReport(ctx context.Context, draft model.ReportDraft) (*model.Report, error) {
	var r model.Report
	if err := c.post(ctx, "/reports", draft, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateStatus transitions a report to a new status with an optional
// comment and returns the updated record.
func (c *Client) UpdateStatus(ctx context.Context, id, status, comment string) (*model.Report, error) {
	body := map[string]string{
		"status":  status,
		"comment": comment,
	}

	var r model.Report
	if err := c.put(ctx, "/reports/"+url.PathEscape(id)+"/status", body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// AddComment appends a comment to a report and returns the updated record.
func (c *Client) AddComment(ctx context.Context, id, text string) (*model.Report, error) {
	body := map[string]string{"text": text}

	var r model.Report
	if err := c.post(ctx, "/reports/"+url.PathEscape(id)+"/comments", body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ReportsInRadius retrieves all reports within distanceKm of the given point.
func (c *Client) ReportsInRadius(ctx context.Context, lat, lng, distanceKm float64) ([]model.Report, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%g", lat))
	q.Set("lng", fmt.Sprintf("%g", lng))
	q.Set("distance", fmt.Sprintf("%g", distanceKm))

	var reports []model.Report
	if err := c.get(ctx, "/reports/radius?"+q.Encode(), &reports); err != nil {
		return nil, err
	}
	return reports, nil
}
