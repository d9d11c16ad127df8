// Package client is the submitting and tailing side of the game API. The
// local submission quota is checked before any request leaves the process.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/louisbranch/dotgrid/internal/errors"
	"github.com/louisbranch/dotgrid/internal/quota"
	"github.com/louisbranch/dotgrid/internal/wire"
)

const requestTimeout = 10 * time.Second

// Client submits edge claims and tails the record log over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	gate       *quota.Gate
}

// New creates a client for the server at baseURL. A nil gate disables the
// local quota and submits unconditionally.
func New(baseURL string, gate *quota.Gate) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		gate:       gate,
	}
}

type submitRequest struct {
	EdgeID int `json:"edge_id"`
	TeamID int `json:"team_id"`
}

type submitResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Submit claims an edge for a team. A quota token is consumed up front and
// refunded on EDGE_TAKEN and WARMING_UP outcomes. RATE_LIMITED never refunds.
func (c *Client) Submit(ctx context.Context, edgeID, team int) error {
	if c.gate != nil && !c.gate.Consume(time.Now()) {
		return apperrors.New(apperrors.CodeRateLimited, "local submission quota exhausted")
	}

	err := c.postEdge(ctx, edgeID, team)
	if err != nil && c.gate != nil && apperrors.GetCode(err).Refundable() {
		c.gate.Refund()
	}
	return err
}

func (c *Client) postEdge(ctx context.Context, edgeID, team int) error {
	body, err := json.Marshal(submitRequest{EdgeID: edgeID, TeamID: team})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, err, "encode submission")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/edges", bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, err, "build submission request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, err, "submit edge")
	}
	defer resp.Body.Close()

	var decoded submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, err, "decode submission response")
	}
	if resp.StatusCode == http.StatusOK && decoded.Code == "ACCEPTED" {
		return nil
	}
	code := apperrors.Code(decoded.Code)
	if code == "" {
		code = apperrors.CodeUnknown
	}
	message := decoded.Message
	if message == "" {
		message = fmt.Sprintf("server returned status %d", resp.StatusCode)
	}
	return apperrors.New(code, "%s", message)
}

// State mirrors the server's derived state summary.
type State struct {
	Phase         string    `json:"phase"`
	EventsApplied uint64    `json:"events_applied"`
	Scores        [4]uint64 `json:"scores"`
	EdgeCount     int       `json:"edge_count"`
	BoxCount      int       `json:"box_count"`
	GridWidth     int       `json:"grid_width"`
	GridHeight    int       `json:"grid_height"`
}

// State fetches the server's current derived state.
func (c *Client) State(ctx context.Context) (State, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/state", nil)
	if err != nil {
		return State{}, apperrors.Wrap(apperrors.CodeUnknown, err, "build state request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return State{}, apperrors.Wrap(apperrors.CodeUnknown, err, "fetch state")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return State{}, apperrors.New(apperrors.CodeUnknown, "state returned status %d", resp.StatusCode)
	}
	var state State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return State{}, apperrors.Wrap(apperrors.CodeUnknown, err, "decode state")
	}
	return state, nil
}

// TailEvents connects to the event stream from fromRecord and invokes
// onRecord for every decoded record until ctx is cancelled or the stream
// closes. Frames may split records at any byte; the stream parser reassembles
// them.
func (c *Client) TailEvents(ctx context.Context, fromRecord uint64, onRecord func(wire.Record)) error {
	wsURL, err := c.eventsURL(fromRecord)
	if err != nil {
		return err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, err, "dial event stream")
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	var parser wire.StreamParser
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return apperrors.Wrap(apperrors.CodeUnknown, err, "read event stream")
		}
		for _, rec := range parser.Feed(data) {
			onRecord(rec)
		}
	}
}

func (c *Client) eventsURL(fromRecord uint64) (string, error) {
	parsed, err := url.Parse(c.baseURL + "/v1/events")
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnknown, err, "parse base url")
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	}
	query := parsed.Query()
	query.Set("from", fmt.Sprintf("%d", fromRecord))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
