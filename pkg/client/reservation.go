package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"examslots/pkg/model"
)

const HeaderClaimantID = "X-Claimant-ID"

type ReservationClient struct {
	httpClient *HttpClient
}

func NewReservationClient(baseURL string, timeout time.Duration) *ReservationClient {
	return &ReservationClient{
		httpClient: NewHttpClient(baseURL, timeout),
	}
}

type ReserveOutcome struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresAt *int64 `json:"expires_at,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type ReleaseOutcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

type Availability struct {
	Available  bool   `json:"available"`
	ReservedBy string `json:"reserved_by,omitempty"`
	ExpiresAt  *int64 `json:"expires_at,omitempty"`
}

// Reserve asks the service to hold a slot. Conflicts are reported in the
// outcome, not as an error.
func (c *ReservationClient) Reserve(ctx context.Context, req model.ReserveSlotRequest) (*ReserveOutcome, error) {
	headers := map[string]string{
		HeaderClaimantID:  req.ClaimantID,
		"Idempotency-Key": newIdempotencyKey(),
	}
	resp, err := c.httpClient.POST(ctx, "/api/v1/reservations", req, headers)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusConflict, http.StatusUnprocessableEntity, http.StatusServiceUnavailable:
		var out ReserveOutcome
		if err := resp.DecodeJSON(&out); err != nil || out.Message == "" {
			return nil, fmt.Errorf("unexpected reserve response: %s", resp.String())
		}
		return &out, nil
	default:
		return nil, fmt.Errorf("reserve failed: %s", GetErrorMessage(resp))
	}
}

func (c *ReservationClient) Release(ctx context.Context, req model.ReleaseSlotRequest) (*ReleaseOutcome, error) {
	resp, err := c.httpClient.POST(ctx, "/api/v1/reservations/release", req, nil)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusUnprocessableEntity, http.StatusServiceUnavailable:
		var out ReleaseOutcome
		if err := resp.DecodeJSON(&out); err != nil || out.Message == "" {
			return nil, fmt.Errorf("unexpected release response: %s", resp.String())
		}
		return &out, nil
	default:
		return nil, fmt.Errorf("release failed: %s", GetErrorMessage(resp))
	}
}

func (c *ReservationClient) Availability(ctx context.Context, examinerProfileID, bookingTime string) (*Availability, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/reservations/availability?"+slotQuery(examinerProfileID, bookingTime))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("availability check failed: %s", GetErrorMessage(resp))
	}

	var out Availability
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("could not decode availability: %w", err)
	}
	return &out, nil
}

// Check returns the live reservation on a slot, or nil when it is free.
func (c *ReservationClient) Check(ctx context.Context, examinerProfileID, bookingTime string) (*model.SlotReservation, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/reservations/slot?"+slotQuery(examinerProfileID, bookingTime))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("slot check failed: %s", GetErrorMessage(resp))
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("could not decode reservation wrapper: %w", err)
	}
	var reservation model.SlotReservation
	if err := json.Unmarshal(wrapper.Data, &reservation); err != nil {
		return nil, fmt.Errorf("could not decode reservation: %w", err)
	}
	return &reservation, nil
}

func (c *ReservationClient) ReservedSlots(ctx context.Context, examinerProfileID, excludeExaminationID string) ([]string, error) {
	path := "/api/v1/examiners/" + url.PathEscape(examinerProfileID) + "/reserved-slots"
	if excludeExaminationID != "" {
		path += "?" + url.Values{"exclude_examination_id": {excludeExaminationID}}.Encode()
	}

	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing reserved slots failed: %s", GetErrorMessage(resp))
	}

	var wrapper struct {
		Data struct {
			BookingTimes []string `json:"booking_times"`
		} `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapper); err != nil {
		return nil, fmt.Errorf("could not decode reserved slots: %w", err)
	}
	return wrapper.Data.BookingTimes, nil
}

func slotQuery(examinerProfileID, bookingTime string) string {
	q := url.Values{}
	q.Set("examiner_profile_id", examinerProfileID)
	q.Set("booking_time", bookingTime)
	return q.Encode()
}
