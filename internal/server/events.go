package server

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	apperrors "github.com/louisbranch/dotgrid/internal/errors"
)

// streamEvents upgrades to a websocket and tails the record log from the
// requested offset. Frames are binary and carry whole records only, so a
// client can feed them straight into a stream parser.
func (s *Server) streamEvents(c *gin.Context) {
	fromRecord := uint64(0)
	if raw := c.Query("from"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, submitResponse{
				Code:    string(apperrors.CodeOutOfRange),
				Message: "from must be a non-negative record offset",
			})
			return
		}
		fromRecord = parsed
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	s.metrics.TailOpened()
	defer s.metrics.TailClosed()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// The read pump exists to surface close frames; clients never send data.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	tail, err := s.eventLog.Tail(ctx, fromRecord)
	if err != nil {
		log.Printf("open event tail from_record=%d err=%v", fromRecord, err)
		return
	}
	for chunk := range tail {
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			return
		}
	}
}
