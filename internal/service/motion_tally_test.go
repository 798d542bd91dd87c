package service

import (
	"testing"

	"consortium/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestTallyVotes(t *testing.T) {
	votes := []*model.MotionVote{
		{MotionID: 1, UserID: 1, Direction: true, Amount: 3},
		{MotionID: 1, UserID: 2, Direction: false, Amount: 2},
		{MotionID: 1, UserID: 3, Direction: true, Amount: 4},
		{MotionID: 1, UserID: 4, Direction: false, Amount: 1},
	}

	yes, no := tallyVotes(votes)
	assert.Equal(t, int64(7), yes)
	assert.Equal(t, int64(3), no)
}

func TestTallyVotes_Empty(t *testing.T) {
	yes, no := tallyVotes(nil)
	assert.Equal(t, int64(0), yes)
	assert.Equal(t, int64(0), no)
}

func TestResolveVoteDirection(t *testing.T) {
	votes := []*model.MotionVote{
		{MotionID: 1, UserID: 1, Direction: true, Amount: 3},
		{MotionID: 1, UserID: 2, Direction: false, Amount: 2},
	}
	yes, no := true, false

	// 已投过票可以省略方向，沿用既有方向
	dir, soFar, existing, err := resolveVoteDirection(votes, 2, nil)
	assert.NoError(t, err)
	assert.False(t, dir)
	assert.Equal(t, int64(2), soFar)
	assert.True(t, existing)

	// 明示同方向照常生效
	dir, soFar, existing, err = resolveVoteDirection(votes, 1, &yes)
	assert.NoError(t, err)
	assert.True(t, dir)
	assert.Equal(t, int64(3), soFar)
	assert.True(t, existing)

	// 改投另一方向被拒
	_, _, _, err = resolveVoteDirection(votes, 1, &no)
	assert.ErrorIs(t, err, ErrVoteDirection)

	// 首次投票必须明示方向
	_, _, _, err = resolveVoteDirection(votes, 9, nil)
	assert.ErrorIs(t, err, ErrVoteNoDirection)

	dir, soFar, existing, err = resolveVoteDirection(votes, 9, &no)
	assert.NoError(t, err)
	assert.False(t, dir)
	assert.Equal(t, int64(0), soFar)
	assert.False(t, existing)
}
