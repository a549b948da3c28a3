package domain

type CheckoutStatus string

const (
	CheckoutStatusIdle                 CheckoutStatus = "IDLE"
	CheckoutStatusValidating           CheckoutStatus = "VALIDATING"
	CheckoutStatusSubmittingOrder      CheckoutStatus = "SUBMITTING_ORDER"
	CheckoutStatusInitiatingPayment    CheckoutStatus = "INITIATING_PAYMENT"
	CheckoutStatusRedirectingToGateway CheckoutStatus = "REDIRECTING_TO_GATEWAY"
	CheckoutStatusHandedOff            CheckoutStatus = "HANDED_OFF"
	CheckoutStatusFailed               CheckoutStatus = "FAILED"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusIdle:                 {CheckoutStatusValidating},
	CheckoutStatusValidating:           {CheckoutStatusIdle, CheckoutStatusSubmittingOrder},
	CheckoutStatusSubmittingOrder:      {CheckoutStatusInitiatingPayment, CheckoutStatusFailed},
	CheckoutStatusInitiatingPayment:    {CheckoutStatusRedirectingToGateway, CheckoutStatusFailed},
	CheckoutStatusRedirectingToGateway: {CheckoutStatusHandedOff, CheckoutStatusFailed},
}

// CanTransitionTo reports whether the checkout state machine allows from -> to.
// Failed is only reachable from the network-facing states; a validation
// failure goes back to Idle.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusHandedOff || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}
