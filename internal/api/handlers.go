package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/localgroup/localgroup-server/internal/apperr"
	"github.com/localgroup/localgroup-server/internal/group"
	"github.com/localgroup/localgroup-server/internal/model"
)

// --- auth ---

type otpRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (s *Server) requestOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid payload", apperr.ErrBadRequest))
	}
	if err := s.deps.Auth.RequestOTP(c.Context(), req.Email, req.Phone); err != nil {
		return fail(c, err)
	}
	return ok(c, "OTP generated successfully", "OTP sent (mocked)")
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

func (s *Server) verifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid payload", apperr.ErrBadRequest))
	}
	token, err := s.deps.Auth.VerifyOTP(c.Context(), req.Email, req.Phone, req.OTP)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Authentication successful", token)
}

// --- users ---

func (s *Server) me(c *fiber.Ctx) error {
	u, err := s.deps.Users.Get(c.Context(), userID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", u)
}

func (s *Server) trustScore(c *fiber.Ctx) error {
	score, err := s.deps.Users.TrustScore(c.Context(), userID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", score)
}

func (s *Server) blockUser(c *fiber.Ctx) error {
	if err := s.deps.Users.Block(c.Context(), userID(c), c.Params("userId")); err != nil {
		return fail(c, err)
	}
	return ok(c, "User blocked", nil)
}

// --- places ---

func (s *Server) listPlaces(c *fiber.Ctx) error {
	places, err := s.deps.Places.List(c.Context(), model.PlaceCategory(c.Query("category")))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", places)
}

func (s *Server) getPlace(c *fiber.Ctx) error {
	p, err := s.deps.Places.Get(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", p)
}

func (s *Server) nearbyPlaces(c *fiber.Ctx) error {
	lat := c.QueryFloat("lat")
	lng := c.QueryFloat("lng")
	radius := c.QueryFloat("radius", 1000)
	if lat == 0 && lng == 0 {
		return fail(c, fmt.Errorf("%w: lat and lng are required", apperr.ErrBadRequest))
	}
	places, err := s.deps.Places.Nearby(c.Context(), lat, lng, radius)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", places)
}

// --- groups ---

type mapPlaceRequest struct {
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	ExternalPlaceID string  `json:"externalPlaceId"`
}

type createGroupRequest struct {
	PlaceID    string           `json:"placeId"`
	MapPlace   *mapPlaceRequest `json:"mapPlace"`
	DateTime   time.Time        `json:"dateTime"`
	MaxSize    int              `json:"maxSize"`
	Visibility string           `json:"visibility"`
	InviteCode string           `json:"inviteCode"`
}

func (s *Server) createGroup(c *fiber.Ctx) error {
	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid payload", apperr.ErrBadRequest))
	}

	placeID := req.PlaceID
	if placeID == "" && req.MapPlace != nil {
		id, err := s.deps.Places.FindOrCreateMapPlace(c.Context(), &model.Place{
			Name:            req.MapPlace.Name,
			Category:        model.PlaceCategory(req.MapPlace.Category),
			Latitude:        req.MapPlace.Latitude,
			Longitude:       req.MapPlace.Longitude,
			ExternalPlaceID: req.MapPlace.ExternalPlaceID,
		})
		if err != nil {
			return fail(c, err)
		}
		placeID = id
	}

	g, err := s.deps.Groups.Create(c.Context(), userID(c), group.CreateParams{
		PlaceID:    placeID,
		DateTime:   req.DateTime,
		MaxSize:    req.MaxSize,
		Visibility: model.Visibility(req.Visibility),
		InviteCode: req.InviteCode,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "Group created", g)
}

func (s *Server) listGroups(c *fiber.Ctx) error {
	placeID := c.Query("placeId")
	if placeID == "" {
		return fail(c, fmt.Errorf("%w: placeId is required", apperr.ErrBadRequest))
	}
	groups, err := s.deps.Groups.ListByPlace(c.Context(), placeID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", groups)
}

func (s *Server) myGroups(c *fiber.Ctx) error {
	groups, err := s.deps.Groups.ListMine(c.Context(), userID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", groups)
}

func (s *Server) getGroup(c *fiber.Ctx) error {
	g, err := s.deps.Groups.Get(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "OK", g)
}

func (s *Server) joinGroup(c *fiber.Ctx) error {
	if err := s.deps.Groups.Join(c.Context(), c.Params("id"), userID(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, "Joined group", nil)
}

func (s *Server) joinPrivateGroup(c *fiber.Ctx) error {
	code := c.Query("inviteCode")
	if err := s.deps.Groups.JoinPrivate(c.Context(), c.Params("id"), userID(c), code); err != nil {
		return fail(c, err)
	}
	return ok(c, "Joined group", nil)
}

func (s *Server) leaveGroup(c *fiber.Ctx) error {
	if err := s.deps.Groups.Leave(c.Context(), c.Params("id"), userID(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, "Left group", nil)
}

func (s *Server) confirmGroup(c *fiber.Ctx) error {
	if err := s.deps.Groups.Confirm(c.Context(), c.Params("id"), userID(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, "Attendance confirmed", nil)
}

type reportRequest struct {
	TargetUserID string `json:"targetUserId"`
}

func (s *Server) reportMember(c *fiber.Ctx) error {
	var req reportRequest
	if err := c.BodyParser(&req); err != nil || req.TargetUserID == "" {
		return fail(c, fmt.Errorf("%w: targetUserId is required", apperr.ErrBadRequest))
	}
	if err := s.deps.Groups.Report(c.Context(), c.Params("id"), userID(c), req.TargetUserID); err != nil {
		return fail(c, err)
	}
	return ok(c, "Report recorded", nil)
}

// --- safety ---

type sosRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (s *Server) triggerSOS(c *fiber.Ctx) error {
	var req sosRequest
	_ = c.BodyParser(&req) // body is optional
	ev, err := s.deps.Safety.TriggerSOS(c.Context(), c.Params("id"), userID(c), req.Latitude, req.Longitude)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, "SOS triggered. This is not an emergency service and does not contact authorities.", ev.ID)
}

func (s *Server) resolveSOS(c *fiber.Ctx) error {
	if err := s.deps.Safety.Resolve(c.Context(), c.Params("eventId"), userID(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, "SOS resolved", nil)
}
