// Package engine keeps supporters' funding baskets consistent with the
// concurrently-mutating cupboard and performs checkout against the need
// store, the supporter store and the receipt ledger.
package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/theeman05/SWEN-261-StudentUFund/internal/models"
)

// NeedStore is the cupboard contract the engine consumes. Reads must reflect
// prior writes immediately; the engine re-reads live stock on every
// reconciliation and checkout line.
type NeedStore interface {
	// GetNeed returns nil, nil when the need does not exist.
	GetNeed(name string) (*models.Need, error)
	GetNeeds() ([]models.Need, error)
	// DebitNeed atomically debits up to qty from the need's stock, deleting
	// the need when its stock reaches zero. found is false when the need
	// does not exist.
	DebitNeed(name string, qty int) (unitCost decimal.Decimal, funded int, found bool, err error)
}

// SupporterStore persists supporter accounts and basket snapshots.
type SupporterStore interface {
	// GetUserByUsername returns nil, nil when the username has no account.
	GetUserByUsername(username string) (*models.User, error)
	// GetSupporter returns nil, nil when the username is not a supporter.
	GetSupporter(username string) (*models.Supporter, error)
	ReplaceBasket(username string, lines []models.BasketLine) error
}

// ReceiptLedger accumulates funding per (supporter, need) pair.
type ReceiptLedger interface {
	AccumulateReceipt(supporterUsername, needName string, deltaCost decimal.Decimal, deltaQuantity int) error
}

// Engine owns every live basket session. Sessions are keyed by an opaque
// token supplied by the caller (the HTTP layer mints one per login). A
// supporter has at most one live session; logging the same username in under
// a new token tears the old session down.
type Engine struct {
	needs      NeedStore
	supporters SupporterStore
	receipts   ReceiptLedger

	mu       sync.Mutex
	sessions map[string]*session // token -> session
	tokens   map[string]string   // username -> token
}

// session is one signed-in user. basket is nil for admin sessions; basket
// mutations and checkout are only defined for supporter sessions. The
// session mutex is held across every mutate-then-persist sequence and for
// the whole of checkout, so no caller observes a half-drained basket.
type session struct {
	mu     sync.Mutex
	user   models.User
	basket map[string]int // need name -> quantity
	closed bool
}

func New(needs NeedStore, supporters SupporterStore, receipts ReceiptLedger) *Engine {
	return &Engine{
		needs:      needs,
		supporters: supporters,
		receipts:   receipts,
		sessions:   make(map[string]*session),
		tokens:     make(map[string]string),
	}
}

// NewSessionToken mints an opaque session token for Login.
func NewSessionToken() string {
	return uuid.NewString()
}

// Login signs the user in under the given token and, for supporters, loads
// and reconciles the persisted basket against the live cupboard: lines whose
// need vanished are pruned, lines exceeding live stock are clamped, and a
// changed basket is persisted back before returning.
//
// A repeated login of the same username under the same token succeeds
// without reloading the basket.
func (e *Engine) Login(token, username string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("session token must not be empty")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if sess := e.sessions[token]; sess != nil && sess.user.Username == username {
		user := sess.user
		return &user, nil
	}

	user, err := e.supporters.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("looking up user %q: %w", username, err)
	}
	if user == nil {
		return nil, &UserNotFoundError{Username: username}
	}

	// Tear down whatever this token or this username previously owned.
	e.teardownLocked(token)
	if prev, ok := e.tokens[username]; ok {
		e.teardownLocked(prev)
	}

	sess := &session{user: *user}
	if !user.IsAdmin() {
		basket, err := e.loadReconciledBasket(username)
		if err != nil {
			return nil, err
		}
		sess.basket = basket
	}

	e.sessions[token] = sess
	e.tokens[username] = token

	out := sess.user
	return &out, nil
}

// loadReconciledBasket loads the persisted snapshot and clamps it against
// live stock. The clamped snapshot is persisted back only when something
// changed.
func (e *Engine) loadReconciledBasket(username string) (map[string]int, error) {
	supporter, err := e.supporters.GetSupporter(username)
	if err != nil {
		return nil, fmt.Errorf("loading basket for %q: %w", username, err)
	}
	if supporter == nil {
		return nil, &UserNotFoundError{Username: username}
	}

	basket := make(map[string]int, len(supporter.FundingBasket))
	changed := false
	for _, line := range supporter.FundingBasket {
		need, err := e.needs.GetNeed(line.NeedName)
		if err != nil {
			return nil, fmt.Errorf("reconciling basket line %q: %w", line.NeedName, err)
		}
		if need == nil {
			// The need left the cupboard; drop the line.
			changed = true
			continue
		}
		quantity := line.Quantity
		if quantity > need.Quantity {
			quantity = need.Quantity
			changed = true
		}
		if quantity > 0 {
			basket[line.NeedName] = quantity
		} else {
			changed = true
		}
	}

	if changed {
		if err := e.supporters.ReplaceBasket(username, basketLines(basket)); err != nil {
			return nil, fmt.Errorf("persisting reconciled basket for %q: %w", username, err)
		}
	}
	return basket, nil
}

// Logout drops the session's transient state. Only the last persisted basket
// snapshot survives.
func (e *Engine) Logout(token string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardownLocked(token)
}

func (e *Engine) teardownLocked(token string) {
	sess := e.sessions[token]
	if sess == nil {
		return
	}
	sess.mu.Lock()
	sess.closed = true
	sess.mu.Unlock()
	delete(e.sessions, token)
	if e.tokens[sess.user.Username] == token {
		delete(e.tokens, sess.user.Username)
	}
}

// CurrentUser returns the user signed in under the token, admin included.
func (e *Engine) CurrentUser(token string) (*models.User, error) {
	e.mu.Lock()
	sess := e.sessions[token]
	e.mu.Unlock()
	if sess == nil {
		return nil, ErrNotSignedIn
	}
	user := sess.user
	return &user, nil
}

// supporterSession resolves the token to a live supporter session. Admin
// sessions own no basket and fail the same way as no session at all.
func (e *Engine) supporterSession(token string) (*session, error) {
	e.mu.Lock()
	sess := e.sessions[token]
	e.mu.Unlock()
	if sess == nil || sess.basket == nil {
		return nil, ErrNotSignedIn
	}
	return sess, nil
}

// SetBasketNeed sets the basket line for the named need to exactly quantity.
// This is a set, not an increment. quantity <= 0 removes the line, and
// removing an absent line succeeds. The quantity is deliberately not clamped
// against live stock here; the authoritative clamp happens at login and at
// checkout, which avoids read-then-write races against concurrently changing
// stock. The updated basket is persisted before returning.
func (e *Engine) SetBasketNeed(token, needName string, quantity int) error {
	sess, err := e.supporterSession(token)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return ErrNotSignedIn
	}

	need, err := e.needs.GetNeed(needName)
	if err != nil {
		return fmt.Errorf("looking up need %q: %w", needName, err)
	}
	if need == nil {
		return &NeedNotFoundError{Name: needName}
	}

	if quantity <= 0 {
		delete(sess.basket, needName)
	} else {
		sess.basket[needName] = quantity
	}

	if err := e.supporters.ReplaceBasket(sess.user.Username, basketLines(sess.basket)); err != nil {
		return fmt.Errorf("persisting basket for %q: %w", sess.user.Username, err)
	}
	return nil
}

// Basket returns the session's current lines, ordered by need name.
func (e *Engine) Basket(token string) ([]models.BasketLine, error) {
	sess, err := e.supporterSession(token)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrNotSignedIn
	}
	return basketLines(sess.basket), nil
}

// BasketNeed returns the basket's view of one need annotated with live
// stock. A need that exists but is not in the basket yields a zero-quantity
// projection, never an error, so callers can show availability without a
// prior existence check.
func (e *Engine) BasketNeed(token, needName string) (*models.BasketNeed, error) {
	sess, err := e.supporterSession(token)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrNotSignedIn
	}

	need, err := e.needs.GetNeed(needName)
	if err != nil {
		return nil, fmt.Errorf("looking up need %q: %w", needName, err)
	}
	if need == nil {
		return nil, &NeedNotFoundError{Name: needName}
	}

	quantity := sess.basket[needName]
	if quantity > need.Quantity {
		quantity = need.Quantity
	}
	return &models.BasketNeed{
		Name:     need.Name,
		Cost:     need.Cost,
		Quantity: quantity,
		Stock:    need.Quantity,
	}, nil
}

// AvailableNeeds returns every need in the cupboard with its quantity
// reduced by what the basket already reserves; fully reserved needs are
// omitted. Read-only: the cupboard is never mutated.
func (e *Engine) AvailableNeeds(token string) ([]models.Need, error) {
	sess, err := e.supporterSession(token)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrNotSignedIn
	}

	needs, err := e.needs.GetNeeds()
	if err != nil {
		return nil, fmt.Errorf("listing needs: %w", err)
	}

	available := make([]models.Need, 0, len(needs))
	for _, need := range needs {
		remaining := need.Quantity - sess.basket[need.Name]
		if remaining <= 0 {
			continue
		}
		need.Quantity = remaining
		available = append(available, need)
	}
	return available, nil
}

// Checkout drains the basket as a best-effort batch, one line at a time in
// need-name order. Each line debits the cupboard (clamped to live stock) and
// accumulates a receipt for what was actually funded; a need that vanished
// since basketing marks its line unfunded without failing the batch. The
// basket is then cleared and the empty snapshot persisted.
//
// There is no cross-line rollback: lines already processed stay processed if
// a later line's storage write fails. On such a failure the returned results
// cover the lines completed so far and the caller must treat basket state as
// uncertain.
func (e *Engine) Checkout(token string) ([]models.FundedLine, error) {
	sess, err := e.supporterSession(token)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrNotSignedIn
	}

	names := make([]string, 0, len(sess.basket))
	for name := range sess.basket {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]models.FundedLine, 0, len(names))
	for _, name := range names {
		quantity := sess.basket[name]

		unitCost, funded, found, err := e.needs.DebitNeed(name, quantity)
		if err != nil {
			return results, fmt.Errorf("debiting need %q: %w", name, err)
		}
		if !found {
			// Already gone from the cupboard; the line cannot be fulfilled.
			results = append(results, models.FundedLine{
				NeedName:   name,
				Quantity:   quantity,
				CostFunded: decimal.Zero,
			})
			continue
		}

		costFunded := unitCost.Mul(decimal.NewFromInt(int64(funded)))
		if err := e.receipts.AccumulateReceipt(sess.user.Username, name, costFunded, funded); err != nil {
			return results, fmt.Errorf("recording receipt for %q: %w", name, err)
		}

		results = append(results, models.FundedLine{
			NeedName:       name,
			Quantity:       quantity,
			FundedQuantity: funded,
			CostFunded:     costFunded,
			Funded:         true,
		})
	}

	sess.basket = make(map[string]int)
	if err := e.supporters.ReplaceBasket(sess.user.Username, nil); err != nil {
		return results, fmt.Errorf("persisting emptied basket for %q: %w", sess.user.Username, err)
	}
	return results, nil
}

func basketLines(basket map[string]int) []models.BasketLine {
	lines := make([]models.BasketLine, 0, len(basket))
	for name, quantity := range basket {
		lines = append(lines, models.BasketLine{NeedName: name, Quantity: quantity})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].NeedName < lines[j].NeedName })
	return lines
}
