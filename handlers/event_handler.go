package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"event-ticketing/models"
)

type EventHandler struct {
	app *pocketbase.PocketBase
}

func NewEventHandler(app *pocketbase.PocketBase) *EventHandler {
	return &EventHandler{app: app}
}

type createEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Tiers       []struct {
		Name       string  `json:"name"`
		BasePrice  float64 `json:"base_price"`
		TotalSeats int     `json:"total_seats"`
	} `json:"tiers"`
	SponsorIDs []string `json:"sponsor_ids"`
	Services   []struct {
		ProviderName string  `json:"provider_name"`
		Description  string  `json:"description"`
		Price        float64 `json:"price"`
		Contact      string  `json:"contact"`
	} `json:"services"`
}

// CreateEvent - create an event together with its tiers and sponsor links
func (h *EventHandler) CreateEvent(e *core.RequestEvent) error {
	var req createEventRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.Title == "" || len(req.Tiers) == 0 {
		return apis.NewBadRequestError("Event needs a title and at least one tier", nil)
	}
	for _, tier := range req.Tiers {
		if tier.BasePrice <= 0 || tier.TotalSeats < 1 {
			return apis.NewBadRequestError("Tiers need a positive base_price and total_seats", nil)
		}
	}
	for _, svc := range req.Services {
		if svc.ProviderName == "" {
			return apis.NewBadRequestError("Services need a provider_name", nil)
		}
	}

	var eventID string
	err := h.app.RunInTransaction(func(txApp core.App) error {
		eventsCol, err := txApp.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		event := core.NewRecord(eventsCol)
		event.Set("title", req.Title)
		event.Set("description", req.Description)
		event.Set("location", req.Location)
		event.Set("start_time", req.StartTime)
		event.Set("end_time", req.EndTime)
		event.Set("sponsors", req.SponsorIDs)
		if err := txApp.Save(event); err != nil {
			return err
		}
		eventID = event.Id

		tiersCol, err := txApp.FindCollectionByNameOrId("tiers")
		if err != nil {
			return err
		}
		for _, tier := range req.Tiers {
			record := core.NewRecord(tiersCol)
			record.Set("event", event.Id)
			record.Set("name", tier.Name)
			record.Set("base_price", tier.BasePrice)
			record.Set("last_price", tier.BasePrice)
			record.Set("total_seats", tier.TotalSeats)
			record.Set("seats_sold", 0)
			if err := txApp.Save(record); err != nil {
				return err
			}
		}

		if len(req.Services) > 0 {
			servicesCol, err := txApp.FindCollectionByNameOrId("event_services")
			if err != nil {
				return err
			}
			for _, svc := range req.Services {
				record := core.NewRecord(servicesCol)
				record.Set("event", event.Id)
				record.Set("provider_name", svc.ProviderName)
				record.Set("description", svc.Description)
				record.Set("price", svc.Price)
				record.Set("contact", svc.Contact)
				if err := txApp.Save(record); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return apis.NewBadRequestError("Failed to create event", err)
	}

	event, err := h.loadEvent(eventID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, event)
}

// ListEvents - list events with tiers, sponsors and booking aggregates
func (h *EventHandler) ListEvents(e *core.RequestEvent) error {
	records, err := h.app.FindRecordsByFilter("events", "", "-created", 50, 0)
	if err != nil {
		return apis.NewBadRequestError("Failed to list events", err)
	}

	result := make([]models.EventDetail, 0, len(records))
	for _, record := range records {
		event, err := h.loadEvent(record.Id)
		if err != nil {
			return apiError(err)
		}

		detail := models.EventDetail{Event: *event}

		bookings, err := h.app.FindRecordsByFilter(
			"bookings",
			"event = {:event}",
			"",
			0,
			0,
			dbx.Params{"event": record.Id},
		)
		if err != nil {
			return apis.NewBadRequestError("Failed to load bookings", err)
		}
		for _, b := range bookings {
			detail.TotalCollection += b.GetFloat("price_paid")
		}

		ratings, err := h.app.FindRecordsByFilter(
			"ratings",
			"event = {:event}",
			"",
			0,
			0,
			dbx.Params{"event": record.Id},
		)
		if err != nil {
			return apis.NewBadRequestError("Failed to load ratings", err)
		}
		if len(ratings) > 0 {
			sum := 0
			for _, r := range ratings {
				sum += r.GetInt("rating")
			}
			avg := float64(sum) / float64(len(ratings))
			detail.AverageRating = &avg
		}

		result = append(result, detail)
	}

	return e.JSON(http.StatusOK, result)
}

// DeleteEvent - delete an event; tiers, bookings and ratings cascade
func (h *EventHandler) DeleteEvent(e *core.RequestEvent) error {
	record, err := h.app.FindRecordById("events", e.Request.PathValue("eventId"))
	if err != nil {
		return apis.NewNotFoundError("Event not found", nil)
	}

	if err := h.app.Delete(record); err != nil {
		return apis.NewBadRequestError("Failed to delete event", err)
	}

	return e.NoContent(http.StatusNoContent)
}

// GetEventBookings - booking summaries for one event
func (h *EventHandler) GetEventBookings(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	if _, err := h.app.FindRecordById("events", eventID); err != nil {
		return apis.NewNotFoundError("Event not found", nil)
	}

	bookings, err := h.app.FindRecordsByFilter(
		"bookings",
		"event = {:event}",
		"-created",
		0,
		0,
		dbx.Params{"event": eventID},
	)
	if err != nil {
		return apis.NewBadRequestError("Failed to load bookings", err)
	}

	result := make([]models.BookingDetail, 0, len(bookings))
	for _, b := range bookings {
		detail := models.BookingDetail{
			TicketHash: b.GetString("ticket_hash"),
			Qty:        b.GetInt("qty"),
		}
		if customer, err := h.app.FindRecordById("customers", b.GetString("customer")); err == nil {
			detail.UserPhone = customer.GetString("phone")
		}
		if tier, err := h.app.FindRecordById("tiers", b.GetString("tier")); err == nil {
			detail.TierName = tier.GetString("name")
		}
		result = append(result, detail)
	}

	return e.JSON(http.StatusOK, result)
}

func (h *EventHandler) loadEvent(eventID string) (*models.Event, error) {
	record, err := h.app.FindRecordById("events", eventID)
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:          record.Id,
		Title:       record.GetString("title"),
		Description: record.GetString("description"),
		Location:    record.GetString("location"),
		StartTime:   record.GetDateTime("start_time").Time(),
		EndTime:     record.GetDateTime("end_time").Time(),
	}

	tiers, err := h.app.FindRecordsByFilter(
		"tiers",
		"event = {:event}",
		"created",
		0,
		0,
		dbx.Params{"event": eventID},
	)
	if err != nil {
		return nil, err
	}
	for _, t := range tiers {
		event.Tiers = append(event.Tiers, models.Tier{
			ID:         t.Id,
			EventID:    eventID,
			Name:       t.GetString("name"),
			BasePrice:  t.GetFloat("base_price"),
			LastPrice:  t.GetFloat("last_price"),
			TotalSeats: t.GetInt("total_seats"),
			SeatsSold:  t.GetInt("seats_sold"),
		})
	}

	services, err := h.app.FindRecordsByFilter(
		"event_services",
		"event = {:event}",
		"created",
		0,
		0,
		dbx.Params{"event": eventID},
	)
	if err != nil {
		return nil, err
	}
	for _, s := range services {
		event.Services = append(event.Services, models.EventService{
			ID:           s.Id,
			ProviderName: s.GetString("provider_name"),
			Description:  s.GetString("description"),
			Price:        s.GetFloat("price"),
			Contact:      s.GetString("contact"),
		})
	}

	for _, sponsorID := range record.GetStringSlice("sponsors") {
		sponsor, err := h.app.FindRecordById("sponsors", sponsorID)
		if err != nil {
			continue
		}
		event.Sponsors = append(event.Sponsors, models.Sponsor{
			ID:      sponsor.Id,
			Name:    sponsor.GetString("name"),
			Website: sponsor.GetString("website"),
			LogoURL: sponsor.GetString("logo_url"),
		})
	}

	return event, nil
}
