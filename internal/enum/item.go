package enum

// ItemKind classifies a unit retrieved from a mail source. Only ItemKindMail
// is relayed; other kinds are recorded and skipped.
type ItemKind string

const (
	ItemKindMail    ItemKind = "mail"
	ItemKindReport  ItemKind = "report"
	ItemKindMeeting ItemKind = "meeting"
	ItemKindOther   ItemKind = "other"
)

func (k ItemKind) String() string {
	return string(k)
}

// DeliveryOutcome is the terminal state of one item going through the
// delivery pipeline.
type DeliveryOutcome string

const (
	OutcomeDelivered        DeliveryOutcome = "delivered"
	OutcomeSkippedNoID      DeliveryOutcome = "skipped_no_id"
	OutcomeSkippedKind      DeliveryOutcome = "skipped_kind"
	OutcomeSkippedDuplicate DeliveryOutcome = "skipped_duplicate"
	OutcomePartialFailure   DeliveryOutcome = "partial_failure"
)

func (o DeliveryOutcome) String() string {
	return string(o)
}
