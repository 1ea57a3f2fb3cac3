package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitializeLevels(t *testing.T) {
	rule := ApprovalRule{Level1Required: true, Level3Required: true}
	var wf ApprovalWorkflow
	wf.InitializeLevels(&rule)

	require.Equal(t, LevelPending, wf.Level1.Status)
	require.Equal(t, LevelNotRequired, wf.Level2.Status)
	require.Equal(t, LevelPending, wf.Level3.Status)
	require.Equal(t, LevelNotRequired, wf.Finance.Status)
}

func TestApplyLevelApprovalAdvances(t *testing.T) {
	rule := ApprovalRule{
		Level1Required:  true,
		Level2Required:  true,
		FinanceRequired: true,
	}
	now := time.Now()

	wf := ApprovalWorkflow{ApprovalStatus: POApprovalPending, CurrentLevel: ApprovalLevel1}
	wf.InitializeLevels(&rule)

	wf.ApplyLevelApproval(&rule, ApprovalLevel1, "alice", now)
	require.Equal(t, LevelApproved, wf.Level1.Status)
	require.Equal(t, "alice", wf.Level1.Approver)
	require.Equal(t, ApprovalLevel2, wf.CurrentLevel)
	require.Equal(t, POApprovalLevel1Approved, wf.ApprovalStatus)
	require.True(t, wf.IsPending())

	wf.ApplyLevelApproval(&rule, ApprovalLevel2, "bob", now)
	// level 3 not required: jump straight to finance
	require.Equal(t, ApprovalLevelFinance, wf.CurrentLevel)
	require.Equal(t, POApprovalLevel2Approved, wf.ApprovalStatus)

	wf.ApplyLevelApproval(&rule, ApprovalLevelFinance, "carol", now)
	require.Equal(t, POApprovalFinalApproved, wf.ApprovalStatus)
	require.Empty(t, wf.CurrentLevel)
	require.Equal(t, "carol", wf.FinalApprovedBy)
	require.NotNil(t, wf.FinalApprovedAt)
	require.False(t, wf.IsPending())
}

func TestApplyLevelApprovalSingleLevelFinalizes(t *testing.T) {
	rule := ApprovalRule{Level1Required: true}
	now := time.Now()

	wf := ApprovalWorkflow{ApprovalStatus: POApprovalPending, CurrentLevel: ApprovalLevel1}
	wf.InitializeLevels(&rule)
	wf.ApplyLevelApproval(&rule, ApprovalLevel1, "alice", now)

	require.Equal(t, POApprovalFinalApproved, wf.ApprovalStatus)
	require.Equal(t, "alice", wf.FinalApprovedBy)
}

func TestLevelStateLookup(t *testing.T) {
	var wf ApprovalWorkflow
	require.Same(t, &wf.Level1, wf.LevelState(ApprovalLevel1))
	require.Same(t, &wf.Finance, wf.LevelState(ApprovalLevelFinance))
	require.Nil(t, wf.LevelState("nonsense"))
}
