package outbound

// BidMetrics records the outcome of bid placements
type BidMetrics interface {
	// ObserveBid records one placement attempt sequence. outcome is
	// "accepted", "rejected" or "conflict"; attempts counts OCC tries.
	ObserveBid(outcome string, attempts int)
}
