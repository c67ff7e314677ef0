package services

import (
	"fmt"
	"log"

	pubnub "github.com/pubnub/go"

	"event-ticketing/models"
)

// Notifier pushes issuance events to the per-event realtime channel.
// Delivery is fire-and-forget; a dropped notification never fails a booking.
type Notifier struct {
	pubnub *pubnub.PubNub
}

func NewNotifier(pn *pubnub.PubNub) *Notifier {
	return &Notifier{pubnub: pn}
}

func (n *Notifier) TicketIssued(eventID string, booking *models.BookingResponse) {
	if n == nil || n.pubnub == nil {
		return
	}

	channel := fmt.Sprintf("event-%s", eventID)
	_, _, err := n.pubnub.Publish().
		Channel(channel).
		Message(map[string]any{
			"type":        "ticket_issued",
			"event_id":    eventID,
			"tier_id":     booking.TierID,
			"qty":         booking.Qty,
			"ticket_hash": booking.TicketHash,
		}).
		Execute()
	if err != nil {
		log.Printf("publish ticket_issued for event %s: %v", eventID, err)
	}
}
