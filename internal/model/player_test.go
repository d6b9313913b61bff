package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlayerRecordClone(t *testing.T) {
	rec := &PlayerRecord{
		ID:       "p1",
		Name:     "Asha",
		PerStall: map[StallID]int{"ring_toss": 5},
		Total:    5,
		Balance:  5,
		Revision: 3,
	}

	clone := rec.Clone()
	clone.PerStall["ring_toss"] = 99
	clone.Total = 99

	assert.Equal(t, 5, rec.PerStall["ring_toss"])
	assert.Equal(t, 5, rec.Total)
	assert.Equal(t, int64(3), clone.Revision)
}

func TestSessionCapabilities(t *testing.T) {
	anon := Session{}
	assert.False(t, anon.Authenticated())
	assert.False(t, anon.CanView())
	assert.False(t, anon.CanAward("ring_toss"))
	assert.False(t, anon.CanDeduct())
	assert.False(t, anon.CanManage())

	admin := Session{Role: RoleAdmin}
	assert.True(t, admin.CanAward("anything"))
	assert.True(t, admin.CanDeduct())
	assert.True(t, admin.CanManage())

	stall := Session{Role: RoleStall, StallID: "ring_toss"}
	assert.True(t, stall.CanAward("ring_toss"))
	assert.False(t, stall.CanAward("dunk_tank"))
	assert.False(t, stall.CanDeduct())
	assert.False(t, stall.CanManage())

	gift := Session{Role: RoleGiftCounter}
	assert.False(t, gift.CanAward("ring_toss"))
	assert.True(t, gift.CanDeduct())
	assert.False(t, gift.CanManage())
}

func TestRankingSnapshotRankOf(t *testing.T) {
	snap := RankingSnapshot{
		{PlayerID: "a", Rank: 1},
		{PlayerID: "b", Rank: 2},
	}

	assert.Equal(t, 1, snap.RankOf("a"))
	assert.Equal(t, 2, snap.RankOf("b"))
	assert.Equal(t, 0, snap.RankOf("ghost"))
}
