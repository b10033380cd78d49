package store

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.InitSchema())
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreateNeed(t *testing.T, s *Store, name, cost string, quantity int) {
	t.Helper()
	require.NoError(t, s.CreateNeed(&models.Need{
		Name:     name,
		Cost:     decimal.RequireFromString(cost),
		Quantity: quantity,
	}))
}

func TestCreateNeedDuplicate(t *testing.T) {
	s := newTestStore(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 10)

	err := s.CreateNeed(&models.Need{Name: "Blankets", Cost: decimal.NewFromInt(1), Quantity: 1})
	assert.ErrorIs(t, err, ErrNeedExists)
}

func TestGetNeedMissing(t *testing.T) {
	s := newTestStore(t)

	need, err := s.GetNeed("nope")
	require.NoError(t, err)
	assert.Nil(t, need)
}

func TestFindNeeds(t *testing.T) {
	s := newTestStore(t)
	mustCreateNeed(t, s, "Canned Soup", "2.00", 40)
	mustCreateNeed(t, s, "Soup Ladle", "8.00", 5)
	mustCreateNeed(t, s, "Blankets", "12.50", 10)

	needs, err := s.FindNeeds("Soup")
	require.NoError(t, err)
	require.Len(t, needs, 2)
	assert.Equal(t, "Canned Soup", needs[0].Name)
	assert.Equal(t, "Soup Ladle", needs[1].Name)

	all, err := s.FindNeeds("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateNeed(t *testing.T) {
	s := newTestStore(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 10)

	found, err := s.UpdateNeed(&models.Need{Name: "Blankets", Cost: decimal.RequireFromString("9.99"), Quantity: 4})
	require.NoError(t, err)
	require.True(t, found)

	need, err := s.GetNeed("Blankets")
	require.NoError(t, err)
	require.NotNil(t, need)
	assert.True(t, need.Cost.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, 4, need.Quantity)

	found, err = s.UpdateNeed(&models.Need{Name: "nope", Cost: decimal.NewFromInt(1), Quantity: 1})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDebitNeedClampsToStock(t *testing.T) {
	s := newTestStore(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 3)

	unitCost, funded, found, err := s.DebitNeed("Blankets", 5)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, funded)
	assert.True(t, unitCost.Equal(decimal.RequireFromString("12.50")))

	// Drained to zero, so the need is gone.
	need, err := s.GetNeed("Blankets")
	require.NoError(t, err)
	assert.Nil(t, need)
}

func TestDebitNeedLeavesRemainder(t *testing.T) {
	s := newTestStore(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 10)

	_, funded, found, err := s.DebitNeed("Blankets", 4)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 4, funded)

	need, err := s.GetNeed("Blankets")
	require.NoError(t, err)
	require.NotNil(t, need)
	assert.Equal(t, 6, need.Quantity)
}

func TestDebitNeedMissing(t *testing.T) {
	s := newTestStore(t)

	_, funded, found, err := s.DebitNeed("nope", 1)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, funded)
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateUser("alice", "hash", models.RoleSupporter))

	err := s.CreateUser("alice", "hash", models.RoleSupporter)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestGetSupporterRejectsAdmin(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateUser("admin", "hash", models.RoleAdmin))

	supporter, err := s.GetSupporter("admin")
	require.NoError(t, err)
	assert.Nil(t, supporter)
}

func TestReplaceBasketRoundTrip(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreateUser("alice", "hash", models.RoleSupporter))

	err := s.ReplaceBasket("alice", []models.BasketLine{
		{NeedName: "Soup Ladle", Quantity: 2},
		{NeedName: "Blankets", Quantity: 5},
		{NeedName: "Gone", Quantity: 0}, // not persisted
	})
	require.NoError(t, err)

	supporter, err := s.GetSupporter("alice")
	require.NoError(t, err)
	require.NotNil(t, supporter)
	require.Len(t, supporter.FundingBasket, 2)
	assert.Equal(t, models.BasketLine{NeedName: "Blankets", Quantity: 5}, supporter.FundingBasket[0])
	assert.Equal(t, models.BasketLine{NeedName: "Soup Ladle", Quantity: 2}, supporter.FundingBasket[1])

	// A replace overwrites the whole snapshot.
	require.NoError(t, s.ReplaceBasket("alice", nil))
	supporter, err = s.GetSupporter("alice")
	require.NoError(t, err)
	assert.Empty(t, supporter.FundingBasket)
}

func TestAccumulateReceipt(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AccumulateReceipt("alice", "Blankets", decimal.RequireFromString("62.50"), 5))
	require.NoError(t, s.AccumulateReceipt("alice", "Blankets", decimal.RequireFromString("37.50"), 3))

	receipt, err := s.GetReceipt("alice", "Blankets")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, 8, receipt.TotalQuantity)
	assert.True(t, receipt.TotalCost.Equal(decimal.RequireFromString("100")))
}

func TestGetFundingTotalEmpty(t *testing.T) {
	s := newTestStore(t)

	total, err := s.GetFundingTotal("nobody")
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestFundingLeaderboardOrder(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AccumulateReceipt("alice", "Blankets", decimal.NewFromInt(10), 1))
	require.NoError(t, s.AccumulateReceipt("alice", "Soup", decimal.NewFromInt(5), 1))
	require.NoError(t, s.AccumulateReceipt("bob", "Blankets", decimal.NewFromInt(40), 4))
	require.NoError(t, s.AccumulateReceipt("carol", "Soup", decimal.NewFromInt(15), 3))

	board, err := s.GetFundingLeaderboard()
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "bob", board[0].SupporterUsername)
	assert.Equal(t, "alice", board[1].SupporterUsername)
	assert.Equal(t, "carol", board[2].SupporterUsername)
	assert.True(t, board[1].Total.Equal(board[2].Total))
}

func TestMessagesUpsertAndDelete(t *testing.T) {
	s := newTestStore(t)

	msg := &models.NeedMessage{
		ReceiverUsername: "alice",
		NeedName:         "Blankets",
		SenderUsername:   "admin",
		Message:          "Thank you!",
	}
	require.NoError(t, s.SendOrUpdateMessage(msg))

	msg.Message = "Thank you so much!"
	require.NoError(t, s.SendOrUpdateMessage(msg))

	messages, err := s.GetMessages("alice")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Thank you so much!", messages[0].Message)

	found, err := s.DeleteMessage("alice", "Blankets")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.DeleteMessage("alice", "Blankets")
	require.NoError(t, err)
	assert.False(t, found)
}
