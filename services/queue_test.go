package services

import (
	"coachlink/db"
	"coachlink/models"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentRepairTaskCreatesAssignment(t *testing.T) {
	setupTestDB(t)
	client, coach := seedClientAndCoach(t)
	remote := NewGormRemote(nil)

	qs := NewQueueService(remote)
	qs.retry = fastRetry()

	task := AssignmentRepairTask{RequestID: 1, CoachID: coach.ID, ClientUserID: client.ID}
	require.NoError(t, qs.processTask(context.Background(), &task))

	var assignment models.CoachClientAssignment
	require.NoError(t, db.ORM.First(&assignment, "coach_id = ? AND client_user_id = ?", coach.ID, client.ID).Error)
	assert.True(t, assignment.Active)
}

func TestAssignmentRepairTaskIsIdempotent(t *testing.T) {
	setupTestDB(t)
	client, coach := seedClientAndCoach(t)
	remote := NewGormRemote(nil)

	qs := NewQueueService(remote)
	qs.retry = fastRetry()

	task := AssignmentRepairTask{RequestID: 1, CoachID: coach.ID, ClientUserID: client.ID}
	require.NoError(t, qs.processTask(context.Background(), &task))
	// Повтор задачи не плодит вторую активную связку
	require.NoError(t, qs.processTask(context.Background(), &task))

	var count int64
	require.NoError(t, db.ORM.Model(&models.CoachClientAssignment{}).
		Where("coach_id = ? AND client_user_id = ? AND active = ?", coach.ID, client.ID, true).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestQueueStatsWithoutRedis(t *testing.T) {
	qs := NewQueueService(&funcRemote{})

	stats := qs.GetStats()
	assert.Contains(t, stats, "error")
}
