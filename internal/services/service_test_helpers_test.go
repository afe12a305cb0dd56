package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eventpress/eventpress/internal/database/testutil"
	"github.com/eventpress/eventpress/internal/models"
	"github.com/eventpress/eventpress/pkg/mail"
)

type recordingNotifier struct {
	mu            sync.Mutex
	invites       []string
	verifications []string
	err           error
}

func (n *recordingNotifier) NotifyInvite(_ context.Context, ticket *models.StaffTicket, _ *models.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invites = append(n.invites, ticket.ID)
	return n.err
}

func (n *recordingNotifier) NotifyVerification(_ context.Context, ticket *models.StaffTicket, _ *models.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verifications = append(n.verifications, ticket.ID)
	return n.err
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.err
}

func newStaffTestService(t *testing.T, opts ...StaffOption) (*StaffService, *gorm.DB, *recordingNotifier) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	notifier := &recordingNotifier{}
	svc, err := NewStaffService(db, append([]StaffOption{WithStaffNotifier(notifier)}, opts...)...)
	require.NoError(t, err)
	return svc, db, notifier
}

func strPtr(v string) *string { return &v }

func boothIDs(booths []*models.Booth) []string {
	ids := make([]string, 0, len(booths))
	for _, booth := range booths {
		ids = append(ids, booth.ID)
	}
	return ids
}

func memberBoothIDs(member *StaffMember) []string {
	ids := make([]string, 0, len(member.Booths))
	for _, booth := range member.Booths {
		ids = append(ids, booth.ID)
	}
	return ids
}

func countTickets(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.StaffTicket{}).Count(&count).Error)
	return count
}
