package domain

const (
	EventOfferCreated   = "OFFER_CREATED"
	EventOfferAccepted  = "OFFER_ACCEPTED"
	EventOfferRejected  = "OFFER_REJECTED"
	EventOfferCancelled = "OFFER_CANCELLED"
	EventLoanActivated  = "LOAN_ACTIVATED"
	EventLoanCancelled  = "LOAN_CANCELLED"
	EventWalletCredited = "WALLET_CREDITED"
)

const (
	ReferenceTypeLoan  = "LOAN_REQUEST"
	ReferenceTypeOffer = "OFFER"
)

// Notification is a user-facing message handed to the notification sink after
// an operation commits. Delivery is best effort and never affects the
// committed financial state.
type Notification struct {
	UserID        string
	EventType     string
	Title         string
	Body          string
	ReferenceID   string
	ReferenceType string
}

// ActivityEntry is an audit-trail record handed to the activity log sink
// after commit.
type ActivityEntry struct {
	ActorID   string
	EventType string
	Detail    string
}
