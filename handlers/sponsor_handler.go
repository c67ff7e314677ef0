package handlers

import (
	"net/http"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"event-ticketing/models"
)

type SponsorHandler struct {
	app *pocketbase.PocketBase
}

func NewSponsorHandler(app *pocketbase.PocketBase) *SponsorHandler {
	return &SponsorHandler{app: app}
}

// CreateSponsor - register a sponsor
func (h *SponsorHandler) CreateSponsor(e *core.RequestEvent) error {
	var req struct {
		Name    string `json:"name"`
		Website string `json:"website"`
		LogoURL string `json:"logo_url"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Name == "" {
		return apis.NewBadRequestError("Sponsor needs a name", nil)
	}

	collection, err := h.app.FindCollectionByNameOrId("sponsors")
	if err != nil {
		return apis.NewBadRequestError("Failed to create sponsor", err)
	}

	record := core.NewRecord(collection)
	record.Set("name", req.Name)
	record.Set("website", req.Website)
	record.Set("logo_url", req.LogoURL)
	if err := h.app.Save(record); err != nil {
		return apis.NewBadRequestError("Failed to create sponsor", err)
	}

	return e.JSON(http.StatusOK, models.Sponsor{
		ID:      record.Id,
		Name:    req.Name,
		Website: req.Website,
		LogoURL: req.LogoURL,
	})
}

// ListSponsors - all sponsors
func (h *SponsorHandler) ListSponsors(e *core.RequestEvent) error {
	records, err := h.app.FindRecordsByFilter("sponsors", "", "name", 0, 0)
	if err != nil {
		return apis.NewBadRequestError("Failed to list sponsors", err)
	}

	result := make([]models.Sponsor, 0, len(records))
	for _, record := range records {
		result = append(result, models.Sponsor{
			ID:      record.Id,
			Name:    record.GetString("name"),
			Website: record.GetString("website"),
			LogoURL: record.GetString("logo_url"),
		})
	}

	return e.JSON(http.StatusOK, result)
}

// CreateRating - upsert a 1-5 rating; only booked customers may rate
func (h *SponsorHandler) CreateRating(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	var req struct {
		UserPhone string `json:"user_phone"`
		Rating    int    `json:"rating"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Rating < 1 || req.Rating > 5 {
		return apis.NewBadRequestError("Rating must be between 1 and 5", nil)
	}

	if _, err := h.app.FindRecordById("events", eventID); err != nil {
		return apis.NewNotFoundError("Event not found", nil)
	}

	customer, err := h.app.FindFirstRecordByFilter(
		"customers",
		"phone = {:phone}",
		dbx.Params{"phone": req.UserPhone},
	)
	if err != nil {
		return apis.NewNotFoundError("Customer with this phone number not found", nil)
	}

	_, err = h.app.FindFirstRecordByFilter(
		"bookings",
		"event = {:event} && customer = {:customer}",
		dbx.Params{"event": eventID, "customer": customer.Id},
	)
	if err != nil {
		return apis.NewBadRequestError("You have not booked a ticket for this event", nil)
	}

	rating, err := h.app.FindFirstRecordByFilter(
		"ratings",
		"event = {:event} && customer = {:customer}",
		dbx.Params{"event": eventID, "customer": customer.Id},
	)
	if err != nil {
		collection, err := h.app.FindCollectionByNameOrId("ratings")
		if err != nil {
			return apis.NewBadRequestError("Failed to save rating", err)
		}
		rating = core.NewRecord(collection)
		rating.Set("event", eventID)
		rating.Set("customer", customer.Id)
	}

	rating.Set("rating", req.Rating)
	if err := h.app.Save(rating); err != nil {
		return apis.NewBadRequestError("Failed to save rating", err)
	}

	return e.JSON(http.StatusOK, models.Rating{
		ID:        rating.Id,
		EventID:   eventID,
		UserPhone: customer.GetString("phone"),
		Rating:    req.Rating,
	})
}
