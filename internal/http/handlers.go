package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/redactd/internal/logging"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

func (s *Server) handleCreateNote(c echo.Context) error {
	var req CreateNoteRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	note, err := s.service.CreateNote(c.Request().Context(), req.Content, req.SensitivityLevel)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, NoteResponse{
		ID:               note.ID,
		SensitivityLevel: note.SensitivityLevel,
		CreatedAt:        note.CreatedAt,
	})
}

func (s *Server) handlePreview(c echo.Context) error {
	ctx := logging.WithNoteID(c.Request().Context(), c.Param("id"))
	preview, err := s.service.PreviewRedaction(ctx, c.Param("id"), c.QueryParam("policy"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, preview)
}

func (s *Server) handleDisclose(c echo.Context) error {
	var req DiscloseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := logging.WithUserID(logging.WithNoteID(c.Request().Context(), c.Param("id")), req.UserID)
	content, err := s.service.Disclose(ctx, c.Param("id"), req.UserID, req.Pin)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, DiscloseResponse{NoteID: c.Param("id"), Content: content})
}

func (s *Server) handleDeleteNote(c echo.Context) error {
	if err := s.service.DeleteNote(c.Request().Context(), c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleScan(c echo.Context) error {
	var req ScanRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	report, err := s.service.ScanText(c.Request().Context(), req.Content)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, ScanResponse{Detections: report.Detections, Summary: report.Summary()})
}

func (s *Server) handleRedact(c echo.Context) error {
	var req RedactRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	masked := s.service.RedactText(req.Text, req.SensitivityLevel, req.Spans)
	return c.JSON(http.StatusOK, RedactResponse{Text: masked})
}

func (s *Server) handleSetPin(c echo.Context) error {
	var req PinRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := logging.WithUserID(c.Request().Context(), c.Param("id"))
	if err := s.service.SetVoicePin(ctx, req.Pin, c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleVerifyPin(c echo.Context) error {
	var req PinRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx := logging.WithUserID(c.Request().Context(), c.Param("id"))
	ok := s.service.VerifyVoicePin(ctx, req.Pin, c.Param("id"))
	return c.JSON(http.StatusOK, VerifyResponse{Verified: ok})
}
