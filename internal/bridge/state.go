package bridge

// CartState is the session's cart pointer: either no cart yet or exactly one
// current cart id. The zero value is NoCart.
type CartState struct {
	id string
}

func NoCart() CartState { return CartState{} }

func HasCart(id string) CartState { return CartState{id: id} }

func (s CartState) CartID() (string, bool) { return s.id, s.id != "" }

// Decision says what the orchestrator must do to commit a transition.
type Decision int

const (
	// DecisionNone: the state is unchanged; duplicate or empty notification.
	DecisionNone Decision = iota
	// DecisionAdopt: advance the pointer directly, nothing to merge.
	DecisionAdopt
	// DecisionReconcile: merge the current cart into the new one; advance
	// only if the merge succeeds.
	DecisionReconcile
)

// OnSecondaryCartCreated is the pure transition for a "secondary cart
// created" notification. It returns the state to commit on success; on a
// failed reconcile the caller keeps the previous state.
func (s CartState) OnSecondaryCartCreated(newID string) (CartState, Decision) {
	cur, ok := s.CartID()
	switch {
	case newID == "":
		return s, DecisionNone
	case !ok:
		return HasCart(newID), DecisionAdopt
	case cur == newID:
		return s, DecisionNone
	default:
		return HasCart(newID), DecisionReconcile
	}
}

// OnLogin adopts the pre-login anonymous cart if the session has no pointer
// yet. An already-set pointer is never displaced by login.
func (s CartState) OnLogin(anonymousCartID string) CartState {
	if _, ok := s.CartID(); ok || anonymousCartID == "" {
		return s
	}
	return HasCart(anonymousCartID)
}
