package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
	"github.com/theeman05/SWEN-261-StudentUFund/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.InitSchema())
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.CreateUser("admin", "hash", models.RoleAdmin))
	require.NoError(t, s.CreateUser("alice", "hash", models.RoleSupporter))
	require.NoError(t, s.CreateUser("bob", "hash", models.RoleSupporter))

	return New(s, s, s), s
}

func mustCreateNeed(t *testing.T, s *store.Store, name, cost string, quantity int) {
	t.Helper()
	require.NoError(t, s.CreateNeed(&models.Need{
		Name:     name,
		Cost:     decimal.RequireFromString(cost),
		Quantity: quantity,
	}))
}

func mustLogin(t *testing.T, e *Engine, username string) string {
	t.Helper()
	token := NewSessionToken()
	_, err := e.Login(token, username)
	require.NoError(t, err)
	return token
}

func TestLoginUnknownUser(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Login(NewSessionToken(), "nobody")
	var userErr *UserNotFoundError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "nobody", userErr.Username)
}

func TestLoginEmptyToken(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Login("", "alice")
	assert.Error(t, err)
}

func TestLoginReconcilesBasket(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 3)
	mustCreateNeed(t, s, "Soup", "2.00", 10)

	// Persisted snapshot from an earlier session: one line over stock, one
	// line whose need has since left the cupboard, one line untouched.
	require.NoError(t, s.ReplaceBasket("alice", []models.BasketLine{
		{NeedName: "Blankets", Quantity: 5},
		{NeedName: "Vanished", Quantity: 2},
		{NeedName: "Soup", Quantity: 4},
	}))

	token := mustLogin(t, e, "alice")

	lines, err := e.Basket(token)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, models.BasketLine{NeedName: "Blankets", Quantity: 3}, lines[0])
	assert.Equal(t, models.BasketLine{NeedName: "Soup", Quantity: 4}, lines[1])

	// The clamped snapshot was persisted back.
	supporter, err := s.GetSupporter("alice")
	require.NoError(t, err)
	assert.Equal(t, lines, supporter.FundingBasket)
}

func TestLoginSameTokenIdempotent(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 10)

	token := mustLogin(t, e, "alice")
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 2))

	// A repeated login under the same token keeps the live basket.
	user, err := e.Login(token, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	lines, err := e.Basket(token)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestSecondLoginTearsDownFirstSession(t *testing.T) {
	e, _ := newTestEngine(t)

	first := mustLogin(t, e, "alice")
	second := mustLogin(t, e, "alice")
	require.NotEqual(t, first, second)

	_, err := e.Basket(first)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	_, err = e.Basket(second)
	assert.NoError(t, err)
}

func TestLogoutKeepsPersistedSnapshot(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 10)

	token := mustLogin(t, e, "alice")
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 4))
	e.Logout(token)

	_, err := e.Basket(token)
	assert.ErrorIs(t, err, ErrNotSignedIn)

	// The snapshot survives and comes back on the next login.
	token = mustLogin(t, e, "alice")
	lines, err := e.Basket(token)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, models.BasketLine{NeedName: "Blankets", Quantity: 4}, lines[0])
}

func TestNotSignedInGuards(t *testing.T) {
	e, _ := newTestEngine(t)

	token := "never-logged-in"
	_, err := e.CurrentUser(token)
	assert.ErrorIs(t, err, ErrNotSignedIn)
	_, err = e.Basket(token)
	assert.ErrorIs(t, err, ErrNotSignedIn)
	_, err = e.BasketNeed(token, "Blankets")
	assert.ErrorIs(t, err, ErrNotSignedIn)
	_, err = e.AvailableNeeds(token)
	assert.ErrorIs(t, err, ErrNotSignedIn)
	_, err = e.Checkout(token)
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.ErrorIs(t, e.SetBasketNeed(token, "Blankets", 1), ErrNotSignedIn)
}

func TestAdminSessionHasNoBasket(t *testing.T) {
	e, _ := newTestEngine(t)

	token := mustLogin(t, e, "admin")

	user, err := e.CurrentUser(token)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	_, err = e.Basket(token)
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.ErrorIs(t, e.SetBasketNeed(token, "Blankets", 1), ErrNotSignedIn)
	_, err = e.Checkout(token)
	assert.ErrorIs(t, err, ErrNotSignedIn)
}

func TestSetBasketNeedSetsNotIncrements(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 10)

	token := mustLogin(t, e, "alice")
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 3))
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 2))

	lines, err := e.Basket(token)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)

	// Every mutation persists immediately.
	supporter, err := s.GetSupporter("alice")
	require.NoError(t, err)
	assert.Equal(t, lines, supporter.FundingBasket)
}

func TestSetBasketNeedZeroRemoves(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 10)

	token := mustLogin(t, e, "alice")
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 3))
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 0))

	lines, err := e.Basket(token)
	require.NoError(t, err)
	assert.Empty(t, lines)

	// Removing a line that is not there succeeds.
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 0))
}

func TestSetBasketNeedUnknownNeed(t *testing.T) {
	e, _ := newTestEngine(t)

	token := mustLogin(t, e, "alice")
	err := e.SetBasketNeed(token, "nope", 1)
	var needErr *NeedNotFoundError
	require.ErrorAs(t, err, &needErr)
	assert.Equal(t, "nope", needErr.Name)
}

func TestSetBasketNeedNotClampedUntilCheckout(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 3)

	token := mustLogin(t, e, "alice")
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 5))

	lines, err := e.Basket(token)
	require.NoError(t, err)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestBasketNeedProjection(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 3)

	token := mustLogin(t, e, "alice")

	// Not in the basket: quantity 0, never an error.
	bn, err := e.BasketNeed(token, "Blankets")
	require.NoError(t, err)
	assert.Equal(t, 0, bn.Quantity)
	assert.Equal(t, 3, bn.Stock)

	require.NoError(t, e.SetBasketNeed(token, "Blankets", 5))
	bn, err = e.BasketNeed(token, "Blankets")
	require.NoError(t, err)
	// The view clamps to live stock even though the line does not.
	assert.Equal(t, 3, bn.Quantity)

	_, err = e.BasketNeed(token, "nope")
	var needErr *NeedNotFoundError
	assert.ErrorAs(t, err, &needErr)
}

func TestAvailableNeedsSubtractsReservation(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 3)
	mustCreateNeed(t, s, "Soup", "2.00", 10)

	token := mustLogin(t, e, "alice")
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 3))
	require.NoError(t, e.SetBasketNeed(token, "Soup", 4))

	available, err := e.AvailableNeeds(token)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Soup", available[0].Name)
	assert.Equal(t, 6, available[0].Quantity)

	// Read-only: the cupboard itself is untouched.
	need, err := s.GetNeed("Blankets")
	require.NoError(t, err)
	require.NotNil(t, need)
	assert.Equal(t, 3, need.Quantity)
}

func TestCheckoutDebitsAndAccumulates(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 10)
	mustCreateNeed(t, s, "Soup", "2.00", 10)

	token := mustLogin(t, e, "alice")
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 4))
	require.NoError(t, e.SetBasketNeed(token, "Soup", 2))

	results, err := e.Checkout(token)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Blankets", results[0].NeedName)
	assert.Equal(t, 4, results[0].Quantity)
	assert.Equal(t, 4, results[0].FundedQuantity)
	assert.True(t, results[0].CostFunded.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, results[0].Funded)
	assert.Equal(t, "Soup", results[1].NeedName)
	assert.True(t, results[1].CostFunded.Equal(decimal.RequireFromString("4.00")))

	// Stock was debited exactly once.
	need, err := s.GetNeed("Blankets")
	require.NoError(t, err)
	assert.Equal(t, 6, need.Quantity)

	// Basket is empty, in memory and on disk.
	lines, err := e.Basket(token)
	require.NoError(t, err)
	assert.Empty(t, lines)
	supporter, err := s.GetSupporter("alice")
	require.NoError(t, err)
	assert.Empty(t, supporter.FundingBasket)

	receipt, err := s.GetReceipt("alice", "Blankets")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, 4, receipt.TotalQuantity)
	assert.True(t, receipt.TotalCost.Equal(decimal.RequireFromString("50")))
}

func TestCheckoutClampsToStockAndDeletesDrainedNeed(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 3)

	token := mustLogin(t, e, "alice")
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 5))

	results, err := e.Checkout(token)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Funded)
	assert.Equal(t, 5, results[0].Quantity)
	assert.Equal(t, 3, results[0].FundedQuantity)
	assert.True(t, results[0].CostFunded.Equal(decimal.RequireFromString("37.50")))

	// Drained needs leave the cupboard entirely.
	need, err := s.GetNeed("Blankets")
	require.NoError(t, err)
	assert.Nil(t, need)

	// The receipt records what was actually funded, not what was asked.
	receipt, err := s.GetReceipt("alice", "Blankets")
	require.NoError(t, err)
	assert.Equal(t, 3, receipt.TotalQuantity)
}

func TestCheckoutVanishedNeedUnfunded(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 10)
	mustCreateNeed(t, s, "Soup", "2.00", 10)

	token := mustLogin(t, e, "alice")
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 2))
	require.NoError(t, e.SetBasketNeed(token, "Soup", 2))

	// Admin removes a need after it was basketed.
	found, err := s.DeleteNeed("Blankets")
	require.NoError(t, err)
	require.True(t, found)

	results, err := e.Checkout(token)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.False(t, results[0].Funded)
	assert.Zero(t, results[0].FundedQuantity)
	assert.True(t, results[0].CostFunded.IsZero())
	assert.True(t, results[1].Funded)

	// No receipt for the unfunded line.
	receipt, err := s.GetReceipt("alice", "Blankets")
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestReceiptAccumulatesAcrossCheckouts(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "10.00", 20)

	token := mustLogin(t, e, "alice")
	require.NoError(t, e.SetBasketNeed(token, "Blankets", 5))
	_, err := e.Checkout(token)
	require.NoError(t, err)

	require.NoError(t, e.SetBasketNeed(token, "Blankets", 3))
	_, err = e.Checkout(token)
	require.NoError(t, err)

	receipt, err := s.GetReceipt("alice", "Blankets")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, 8, receipt.TotalQuantity)
	assert.True(t, receipt.TotalCost.Equal(decimal.RequireFromString("80")))
}

func TestCheckoutEmptyBasket(t *testing.T) {
	e, _ := newTestEngine(t)

	token := mustLogin(t, e, "alice")
	results, err := e.Checkout(token)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTwoSupportersIndependentBaskets(t *testing.T) {
	e, s := newTestEngine(t)
	mustCreateNeed(t, s, "Blankets", "12.50", 10)

	aliceToken := mustLogin(t, e, "alice")
	bobToken := mustLogin(t, e, "bob")

	require.NoError(t, e.SetBasketNeed(aliceToken, "Blankets", 3))
	require.NoError(t, e.SetBasketNeed(bobToken, "Blankets", 7))

	aliceLines, err := e.Basket(aliceToken)
	require.NoError(t, err)
	bobLines, err := e.Basket(bobToken)
	require.NoError(t, err)
	assert.Equal(t, 3, aliceLines[0].Quantity)
	assert.Equal(t, 7, bobLines[0].Quantity)

	// Both check out; the second sees what the first left behind.
	_, err = e.Checkout(aliceToken)
	require.NoError(t, err)
	results, err := e.Checkout(bobToken)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 7, results[0].Quantity)
	assert.Equal(t, 7, results[0].FundedQuantity)

	need, err := s.GetNeed("Blankets")
	require.NoError(t, err)
	assert.Nil(t, need)
}
