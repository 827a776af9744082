package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/qytetaret/synckit/internal/gateway"
	"github.com/qytetaret/synckit/internal/model"
)

// ErrGatewayDown is the error every FakeGateway operation returns while
// the fake is marked unavailable.
var ErrGatewayDown = errors.New("gateway unreachable")

// FakeGateway is an in-memory stand-in for the remote data gateway,
// satisfying the consumer interfaces of the syncstore, notify, and
// session packages. Set Down to make every operation fail.
type FakeGateway struct {
	mu sync.Mutex

	Down          bool
	Reports       []model.Report
	Notifications []model.Notification
	Users         map[string]model.User // keyed by email
	Token         string

	// RejectPassword makes ChangePassword fail as a gateway refusal
	// rather than a transport error.
	RejectPassword bool

	// Calls counts operations by name, for asserting remote traffic.
	Calls map[string]int
}

// NewFakeGateway returns an empty, reachable fake.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		Users: make(map[string]model.User),
		Calls: make(map[string]int),
	}
}

// SetDown toggles availability.
func (f *FakeGateway) SetDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Down = down
}

func (f *FakeGateway) begin(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[op]++
	if f.Down {
		return ErrGatewayDown
	}
	return nil
}

// CallCount returns how often op was invoked.
func (f *FakeGateway) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op]
}

func (f *FakeGateway) ListReports(ctx context.Context, filter model.ReportFilter) ([]model.Report, error) {
	if err := f.begin("ListReports"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Report, len(f.Reports))
	copy(out, f.Reports)
	return out, nil
}

func (f *FakeGateway) GetReport(ctx context.Context, id string) (*model.Report, error) {
	if err := f.begin("GetReport"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.Reports {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, errors.New("report not found")
}

func (f *FakeGateway) CreateReport(ctx context.Context, draft model.ReportDraft) (*model.Report, error) {
	if err := f.begin("CreateReport"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r := model.Report{
		ID:           "remote-" + draft.Title,
		Title:        draft.Title,
		Description:  draft.Description,
		Category:     draft.Category,
		Subcategory:  draft.Subcategory,
		Address:      draft.Address,
		Neighborhood: draft.Neighborhood,
		Lat:          draft.Lat,
		Lng:          draft.Lng,
		Severity:     draft.Severity,
		Status:       model.StatusPending,
	}
	f.Reports = append(f.Reports, r)
	return &r, nil
}

func (f *FakeGateway) UpdateStatus(ctx context.Context, id, status, comment string) (*model.Report, error) {
	if err := f.begin("UpdateStatus"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Reports {
		if f.Reports[i].ID == id {
			f.Reports[i].Status = status
			cp := f.Reports[i]
			return &cp, nil
		}
	}
	return nil, errors.New("report not found")
}

func (f *FakeGateway) AddComment(ctx context.Context, id, text string) (*model.Report, error) {
	if err := f.begin("AddComment"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Reports {
		if f.Reports[i].ID == id {
			f.Reports[i].Comments = append(f.Reports[i].Comments, model.Comment{Text: text})
			cp := f.Reports[i]
			return &cp, nil
		}
	}
	return nil, errors.New("report not found")
}

func (f *FakeGateway) ReportsInRadius(ctx context.Context, lat, lng, distanceKm float64) ([]model.Report, error) {
	if err := f.begin("ReportsInRadius"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Report, len(f.Reports))
	copy(out, f.Reports)
	return out, nil
}

func (f *FakeGateway) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	if err := f.begin("ListNotifications"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Notification, len(f.Notifications))
	copy(out, f.Notifications)
	return out, nil
}

func (f *FakeGateway) MarkNotificationRead(ctx context.Context, id string) error {
	if err := f.begin("MarkNotificationRead"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Notifications {
		if f.Notifications[i].ID == id {
			f.Notifications[i].Read = true
		}
	}
	return nil
}

func (f *FakeGateway) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	if err := f.begin("MarkAllNotificationsRead"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Notifications {
		f.Notifications[i].Read = true
	}
	return nil
}

func (f *FakeGateway) DeleteNotification(ctx context.Context, id string) error {
	if err := f.begin("DeleteNotification"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Notifications {
		if f.Notifications[i].ID == id {
			f.Notifications = append(f.Notifications[:i], f.Notifications[i+1:]...)
			break
		}
	}
	return nil
}

func (f *FakeGateway) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	if err := f.begin("Login"); err != nil {
		return "", nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[email]
	if !ok || u.PasswordHash != password {
		return "", nil, errors.New("invalid credentials")
	}
	cp := u
	return "fake-token", &cp, nil
}

func (f *FakeGateway) Register(ctx context.Context, draft model.RegisterDraft) (*model.User, error) {
	if err := f.begin("Register"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Users[draft.Email]; ok {
		return nil, errors.New("email already registered")
	}
	u := model.User{
		ID:           "remote-" + draft.Email,
		Name:         draft.Name,
		Email:        draft.Email,
		PasswordHash: draft.Password,
		Neighborhood: draft.Neighborhood,
		Prefs:        model.DefaultNotificationPrefs(),
	}
	f.Users[draft.Email] = u
	cp := u
	return &cp, nil
}

func (f *FakeGateway) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.User, error) {
	if err := f.begin("UpdateProfile"); err != nil {
		return nil, err
	}
	return &model.User{ID: "remote-user", Name: update.Name, Neighborhood: update.Neighborhood}, nil
}

func (f *FakeGateway) ChangePassword(ctx context.Context, current, next string) error {
	if err := f.begin("ChangePassword"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RejectPassword {
		return fmt.Errorf("current password does not match: %w", gateway.ErrRejected)
	}
	return nil
}

func (f *FakeGateway) UpdatePreferences(ctx context.Context, prefs model.NotificationPrefs) error {
	return f.begin("UpdatePreferences")
}

func (f *FakeGateway) DeleteAccount(ctx context.Context) error {
	return f.begin("DeleteAccount")
}

func (f *FakeGateway) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Token = token
}
