// ABOUTME: Route handlers for messages, stage suggestions, templates and reviews
// ABOUTME: Translate HTTP input into pipeline calls and render JSON envelopes
package web

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/models"
	"github.com/harperreed/canvass/pipeline"
	"github.com/harperreed/canvass/storage"
	"github.com/labstack/echo/v4"
)

type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func ok(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, response{Success: true, Data: data, Message: message})
}

func badInput(reason, message string) error {
	return &pipeline.Error{Kind: pipeline.KindInput, Reason: reason, Message: message}
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, &pipeline.Error{Kind: pipeline.KindNotFound, Message: "unknown id " + strconv.Quote(c.Param("id"))}
	}
	return id, nil
}

func optionalInt(c echo.Context, name string) (*int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, badInput("invalid_"+name, name+" must be a number")
	}
	return &n, nil
}

func (s *Server) handleUpload(c echo.Context) error {
	stage, err := strconv.Atoi(c.FormValue("stage"))
	if err != nil {
		return badInput("invalid_stage", "stage must be a number between 0 and 7")
	}
	fh, err := c.FormFile("screenshot")
	if err != nil {
		return badInput("invalid_screenshot", "screenshot file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return badInput("invalid_screenshot", "screenshot could not be read")
	}
	defer f.Close()

	image, err := io.ReadAll(io.LimitReader(f, s.maxUpload+1))
	if err != nil {
		return badInput("invalid_screenshot", "screenshot could not be read")
	}

	result, err := s.uploader.Upload(c.Request().Context(), pipeline.UploadRequest{
		StaffID:           identity(c).UserID,
		Stage:             stage,
		Category:          c.FormValue("category"),
		Channel:           c.FormValue("channel"),
		InteractionStatus: c.FormValue("interaction_status"),
		ContactNumber:     c.FormValue("contact_number"),
		Filename:          path.Base(fh.Filename),
		Image:             image,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, result, models.StageLabel(stage)+" screenshot recorded")
}

func (s *Server) handleListMessages(c echo.Context) error {
	who := identity(c)
	stage, err := optionalInt(c, "stage")
	if err != nil {
		return err
	}
	filter := db.MessageFilter{
		Stage:            stage,
		ValidationStatus: c.QueryParam("validation_status"),
		Limit:            100,
	}
	if who.Supervisor() {
		if staff, err := optionalInt(c, "staff_id"); err != nil {
			return err
		} else if staff != nil {
			filter.StaffID = int64(*staff)
		}
	} else {
		filter.StaffID = who.UserID
	}

	msgs, err := s.store.ListMessages(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []models.MessageView{}
	}
	return ok(c, http.StatusOK, msgs, "")
}

// visibleMessage loads a message the caller may see. Staff only see their own.
func (s *Server) visibleMessage(c echo.Context) (*models.MessageView, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}
	m, err := s.store.GetMessage(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	who := identity(c)
	if m == nil || (!who.Supervisor() && m.StaffID != who.UserID) {
		return nil, &pipeline.Error{Kind: pipeline.KindNotFound, Message: "message " + id.String() + " not found"}
	}
	return m, nil
}

func (s *Server) handleGetMessage(c echo.Context) error {
	m, err := s.visibleMessage(c)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, m, "")
}

func (s *Server) handleScreenshot(c echo.Context) error {
	m, err := s.visibleMessage(c)
	if err != nil {
		return err
	}
	data, err := s.uploader.Blobs.Get(c.Request().Context(), m.ScreenshotKey)
	if errors.Is(err, storage.ErrNotFound) {
		return &pipeline.Error{Kind: pipeline.KindNotFound, Message: "screenshot file is missing"}
	}
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, http.DetectContentType(data), data)
}

func (s *Server) handleDeleteMessage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.uploader.DeleteMessage(c.Request().Context(), identity(c).UserID, id); err != nil {
		return err
	}
	return ok(c, http.StatusOK, nil, "message deleted")
}

func (s *Server) handleSuggestStage(c echo.Context) error {
	suggestion, err := s.uploader.SuggestStage(c.Request().Context(), identity(c).UserID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, suggestion, "")
}

type validateRequest struct {
	Text  string `json:"text" form:"text"`
	Stage *int   `json:"stage" form:"stage"`
}

func (s *Server) handleValidateTemplate(c echo.Context) error {
	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return badInput("invalid_request", "text and stage are required")
	}
	if req.Text == "" || req.Stage == nil {
		return badInput("invalid_request", "text and stage are required")
	}
	if !models.ValidStage(*req.Stage) {
		return badInput("invalid_stage", "stage must be between 0 and 7")
	}
	return ok(c, http.StatusOK, s.scorer.ValidateForStage(req.Text, *req.Stage), "")
}

func (s *Server) handlePendingReviews(c echo.Context) error {
	stage, err := optionalInt(c, "stage")
	if err != nil {
		return err
	}
	staff, err := optionalInt(c, "staff_id")
	if err != nil {
		return err
	}
	var staffID int64
	if staff != nil {
		staffID = int64(*staff)
	}

	msgs, err := s.supervisor.Pending(c.Request().Context(), staffID, stage, 100)
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []models.MessageView{}
	}
	return ok(c, http.StatusOK, msgs, "")
}

type reviewRequest struct {
	Status string `json:"status" form:"status"`
	Notes  string `json:"notes" form:"notes"`
}

func (s *Server) handleReview(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return badInput("invalid_request", "status is required")
	}
	if req.Status != models.ReviewApproved && req.Status != models.ReviewRejected {
		return badInput("invalid_status", "status must be approved or rejected")
	}

	qc, err := s.supervisor.Review(c.Request().Context(), identity(c).UserID, id,
		req.Status == models.ReviewApproved, req.Notes)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, qc, "message "+req.Status)
}

type approveAllRequest struct {
	StaffID int64 `json:"staff_id" form:"staff_id"`
}

func (s *Server) handleApproveAll(c echo.Context) error {
	var req approveAllRequest
	if err := c.Bind(&req); err != nil {
		return badInput("invalid_request", "staff_id must be a number")
	}
	n, err := s.supervisor.ApproveAll(c.Request().Context(), identity(c).UserID, req.StaffID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, map[string]int{"approved": n}, strconv.Itoa(n)+" messages approved")
}

type statusRequest struct {
	Status string `json:"status" form:"status"`
	Notes  string `json:"notes" form:"notes"`
}

func (s *Server) handleCycleStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badInput("invalid_request", "status is required")
	}
	cycle, err := s.supervisor.UpdateCycleStatus(c.Request().Context(), id, req.Status, identity(c).UserID, req.Notes)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, cycle, "cycle status updated")
}
