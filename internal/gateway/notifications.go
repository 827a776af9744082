package gateway

import (
	"context"
	"net/url"

	"github.com/qytetaret/synckit/internal/model"
)

// ListNotifications retrieves the current notification list for a user.
func (c *Client) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	var list []model.Notification
	err := c.get(ctx, "/notifications?userId="+url.QueryEscape(userID), &list)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// MarkNotificationRead marks a single notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.put(ctx, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllNotificationsRead marks every notification for a user as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	return c.put(ctx, "/notifications/read-all?userId="+url.QueryEscape(userID), nil, nil)
}

// DeleteNotification removes a notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.delete(ctx, "/notifications/"+url.PathEscape(id))
}
