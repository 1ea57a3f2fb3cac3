package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestResolveRuleTightestBandWins(t *testing.T) {
	rules := []ApprovalRule{
		{RuleName: "catch-all", MinAmount: dec("0"), MaxAmount: nil, IsActive: true},
		{RuleName: "mid", MinAmount: dec("10000"), MaxAmount: decPtr("100000"), IsActive: true},
		{RuleName: "high", MinAmount: dec("100000"), MaxAmount: nil, IsActive: true},
	}

	got := ResolveRule(rules, dec("50000"))
	require.NotNil(t, got)
	// both catch-all and mid match; mid has the higher min_amount
	require.Equal(t, "mid", got.RuleName)

	got = ResolveRule(rules, dec("100000"))
	require.NotNil(t, got)
	// catch-all, mid and high all match at the boundary; high is tightest
	require.Equal(t, "high", got.RuleName)

	got = ResolveRule(rules, dec("500"))
	require.NotNil(t, got)
	require.Equal(t, "catch-all", got.RuleName)
}

func TestResolveRuleSkipsInactiveAndNonMatching(t *testing.T) {
	rules := []ApprovalRule{
		{RuleName: "inactive", MinAmount: dec("0"), IsActive: false},
		{RuleName: "band", MinAmount: dec("1000"), MaxAmount: decPtr("2000"), IsActive: true},
	}

	require.Nil(t, ResolveRule(rules, dec("500")), "no active rule covers 500")
	require.Nil(t, ResolveRule(rules, dec("3000")), "above every band")
	require.NotNil(t, ResolveRule(rules, dec("1500")))
}

func TestResolveRuleIsDeterministic(t *testing.T) {
	rules := []ApprovalRule{
		{RuleName: "a", MinAmount: dec("0"), IsActive: true},
		{RuleName: "b", MinAmount: dec("100"), MaxAmount: decPtr("1000"), IsActive: true},
	}
	first := ResolveRule(rules, dec("200"))
	for i := 0; i < 10; i++ {
		require.Equal(t, first.RuleName, ResolveRule(rules, dec("200")).RuleName)
	}
}

func TestRuleAutoApproves(t *testing.T) {
	rule := ApprovalRule{AutoApproveBelow: dec("5000")}
	require.True(t, rule.AutoApproves(dec("2000")))
	require.True(t, rule.AutoApproves(dec("5000")), "threshold is inclusive")
	require.False(t, rule.AutoApproves(dec("5000.01")))

	zero := ApprovalRule{AutoApproveBelow: decimal.Zero}
	require.False(t, zero.AutoApproves(decimal.Zero), "zero threshold disables auto-approval")
}

func TestRequiredLevelsOrderAndSkips(t *testing.T) {
	rule := ApprovalRule{Level1Required: true, FinanceRequired: true}
	require.Equal(t, []string{ApprovalLevel1, ApprovalLevelFinance}, rule.RequiredLevels())

	first, ok := rule.FirstRequiredLevel()
	require.True(t, ok)
	require.Equal(t, ApprovalLevel1, first)

	next, ok := rule.NextRequiredLevel(ApprovalLevel1)
	require.True(t, ok)
	require.Equal(t, ApprovalLevelFinance, next, "level 2 and 3 are skipped entirely")

	_, ok = rule.NextRequiredLevel(ApprovalLevelFinance)
	require.False(t, ok)

	none := ApprovalRule{}
	_, ok = none.FirstRequiredLevel()
	require.False(t, ok)
}

func TestApproverListMembership(t *testing.T) {
	rule := ApprovalRule{
		Level1Required:  true,
		Level1Approvers: ApproverList{"alice", "bob"},
	}
	require.True(t, rule.IsApprover(ApprovalLevel1, "alice"))
	require.False(t, rule.IsApprover(ApprovalLevel1, "mallory"))
	require.False(t, rule.IsApprover(ApprovalLevel2, "alice"), "no approvers configured for level 2")
}

func TestApproverListScanValue(t *testing.T) {
	list := ApproverList{"u1", "u2"}
	v, err := list.Value()
	require.NoError(t, err)

	var decoded ApproverList
	require.NoError(t, decoded.Scan(v))
	require.Equal(t, list, decoded)

	var empty ApproverList
	require.NoError(t, empty.Scan(nil))
	require.Empty(t, empty)
}
