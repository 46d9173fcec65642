package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/estatease/estatease/internal/config"
	"github.com/estatease/estatease/internal/usecase"
)

type StagedImage struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Preview     string `json:"preview,omitempty"`
}

type StagingSession struct {
	ID     string        `json:"id"`
	Images []StagedImage `json:"images"`
}

func convertStagingSession(id uuid.UUID, ss *stagingSession) StagingSession {
	var (
		files    = ss.buf.Files()
		previews = ss.buf.Previews()
	)
	out := StagingSession{
		ID:     id.String(),
		Images: make([]StagedImage, 0, len(files)),
	}
	for i, f := range files {
		img := StagedImage{
			Index:       i,
			Name:        f.Name,
			ContentType: f.MIME(),
			Size:        len(f.Data),
		}
		if i < len(previews) {
			img.Preview = previews[i]
		}
		out.Images = append(out.Images, img)
	}
	return out
}

func (s *Server) CreateStagingSession(ctx echo.Context) error {
	id := s.staging.create()
	ss, _ := s.staging.get(id)
	return ctx.JSON(http.StatusCreated, Res{Data: convertStagingSession(id, ss)})
}

type StagingSessionRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

// bindStagingSession resolves the :id session. On failure the error
// response has already been written.
func (s *Server) bindStagingSession(ctx echo.Context) (uuid.UUID, *stagingSession, bool, error) {
	var req StagingSessionRequest
	if err := (&echo.DefaultBinder{}).BindPathParams(ctx, &req); err != nil {
		return uuid.Nil, nil, false, ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return uuid.Nil, nil, false, ctx.JSON(422, map[string]string{"error": err.Error()})
	}
	id, _ := uuid.Parse(req.ID)
	ss, ok := s.staging.get(id)
	if !ok {
		return uuid.Nil, nil, false, ctx.JSON(404, map[string]string{"error": "staging session not found"})
	}
	return id, ss, true, nil
}

func (s *Server) GetStagingSession(ctx echo.Context) error {
	id, ss, ok, err := s.bindStagingSession(ctx)
	if !ok {
		return err
	}
	ss.touch()
	return ctx.JSON(200, Res{Data: convertStagingSession(id, ss)})
}

func (s *Server) DeleteStagingSession(ctx echo.Context) error {
	id, _, ok, err := s.bindStagingSession(ctx)
	if !ok {
		return err
	}
	s.staging.delete(id)
	return ctx.NoContent(204)
}

// AddStagedImages appends the multipart "images" files to the session in
// the order they were sent and returns once their previews are derived.
func (s *Server) AddStagedImages(ctx echo.Context) error {
	id, ss, ok, err := s.bindStagingSession(ctx)
	if !ok {
		return err
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	headers := form.File["images"]
	if len(headers) == 0 {
		return ctx.JSON(422, map[string]string{"error": "no images", "field": "images"})
	}
	// cheap early rejection; AddWithin enforces the cap atomically
	if ss.buf.Len()+len(headers) > config.MAX_STAGED_IMAGES {
		return ctx.JSON(422, map[string]string{
			"error": fmt.Sprintf("at most %d images per listing", config.MAX_STAGED_IMAGES),
			"field": "images",
		})
	}

	files := make([]usecase.StagedFile, 0, len(headers))
	for _, h := range headers {
		if h.Size > config.MAX_IMAGE_SIZE {
			return ctx.JSON(422, map[string]string{
				"error": fmt.Sprintf("%s exceeds %d bytes", h.Filename, config.MAX_IMAGE_SIZE),
				"field": "images",
			})
		}
		f, err := h.Open()
		if err != nil {
			return ctx.JSON(400, map[string]string{"error": err.Error()})
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return ctx.JSON(400, map[string]string{"error": err.Error()})
		}
		files = append(files, usecase.StagedFile{
			Name:        h.Filename,
			ContentType: h.Header.Get(echo.HeaderContentType),
			Data:        data,
		})
	}

	wait, err := ss.buf.AddWithin(config.MAX_STAGED_IMAGES, files...)
	if err != nil {
		return errorJSON(ctx, err)
	}
	wait()
	ss.touch()

	return ctx.JSON(200, Res{Data: convertStagingSession(id, ss)})
}

type RemoveStagedImageRequest struct {
	Index int `param:"index" validate:"gte=0"`
}

func (s *Server) RemoveStagedImage(ctx echo.Context) error {
	id, ss, ok, err := s.bindStagingSession(ctx)
	if !ok {
		return err
	}

	var req RemoveStagedImageRequest
	if err := (&echo.DefaultBinder{}).BindPathParams(ctx, &req); err != nil {
		return ctx.JSON(400, map[string]string{"error": err.Error()})
	}
	if err := s.validator.Struct(req); err != nil {
		return ctx.JSON(422, map[string]string{"error": err.Error()})
	}

	ss.buf.Remove(req.Index)
	ss.touch()
	return ctx.JSON(200, Res{Data: convertStagingSession(id, ss)})
}

type progressFrame struct {
	Progress int `json:"progress"`
}

// StreamSubmitProgress pushes {"progress":n} frames for submissions made
// with this session, starting with the current value. The stream closes
// normally after 100.
func (s *Server) StreamSubmitProgress(ctx echo.Context) error {
	_, ss, ok, err := s.bindStagingSession(ctx)
	if !ok {
		return err
	}

	conn, err := websocket.Accept(ctx.Response(), ctx.Request(), &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		// Accept has already written the handshake failure
		s.logger.WarnContext(ctx.Request().Context(), "websocket accept failed", slog.String("err", err.Error()))
		return nil
	}
	defer conn.CloseNow()

	ch, unsubscribe := ss.subscribe()
	defer unsubscribe()

	// the client never sends; CloseRead cancels when it goes away
	wctx := conn.CloseRead(context.WithoutCancel(ctx.Request().Context()))

	for {
		select {
		case <-wctx.Done():
			return nil
		case p := <-ch:
			if err := wsjson.Write(wctx, conn, progressFrame{Progress: p}); err != nil {
				return nil
			}
			if p >= 100 {
				conn.Close(websocket.StatusNormalClosure, "done")
				return nil
			}
		}
	}
}
