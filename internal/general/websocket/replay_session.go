package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"fleet-track/internal/domain/geo"
	"fleet-track/internal/general/contracts"
	"fleet-track/internal/replay"

	"github.com/gorilla/websocket"
)

// ConnectReplay handles GET /ws/replay/{trip_id}. Each connection owns an
// independent replay engine over the completed trip's route; commands from
// the client drive seek, pause, resume and playback speed.
func (ws *WebSocket) ConnectReplay(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("trip_id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	defer conn.Close()
	defer ws.writeLocks.Delete(conn)

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	// a viewer may press play and then just watch; pings keep the read
	// deadline moving for the whole playback
	stopPings := ws.pingLoop(conn)
	defer stopPings()

	logCtx := ws.logger.WithTripID(r.Context(), tripID)

	route, err := ws.loadReplayableRoute(logCtx, tripID)
	if err != nil {
		ws.logger.Error(logCtx, "replay_route_load_failed", "Cannot open replay session", err, nil)
		_ = ws.writeJSON(conn, contracts.WSReplayState{Type: "error", TripID: tripID, Message: err.Error()})
		ws.wsWriteClose(conn, websocket.ClosePolicyViolation, "trip is not replayable")
		return
	}

	engine := replay.NewEngine(route)

	ws.logger.Info(logCtx, "replay_session_opened", "Replay session opened", map[string]any{
		"samples": engine.Len(),
	})

	// session lifetime is bound to the connection
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	// initial state so the client can render controls before pressing play
	_ = ws.writeJSON(conn, ws.replayState(tripID, engine))

	go engine.Run(sessCtx, func(frame replay.Frame) {
		if err := ws.writeJSON(conn, ws.replayFrame(tripID, frame)); err != nil {
			cancel()
			_ = conn.Close()
		}
	})

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ws.logger.Error(logCtx, "ws_unexpected_close", "Replay connection closed unexpectedly", err, nil)
			} else {
				ws.logger.Info(logCtx, "replay_session_closed", "Replay session closed", nil)
			}
			return
		}

		var cmd contracts.WSReplayCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			_ = ws.writeJSON(conn, contracts.WSReplayState{Type: "error", TripID: tripID, Message: "bad json"})
			continue
		}

		switch cmd.Type {
		case "play":
			engine.Play()
		case "pause":
			engine.Pause()
		case "seek":
			engine.Seek(cmd.Index)
		case "speed":
			if err := engine.SetSpeed(replay.SpeedMultiplier(cmd.Speed)); err != nil {
				_ = ws.writeJSON(conn, contracts.WSReplayState{Type: "error", TripID: tripID, Message: err.Error()})
				continue
			}
		default:
			_ = ws.writeJSON(conn, contracts.WSReplayState{Type: "error", TripID: tripID, Message: "unknown command"})
			continue
		}

		_ = ws.writeJSON(conn, ws.replayState(tripID, engine))
	}
}

// loadReplayableRoute fetches the trip, checks it finished, and returns its
// stored route in capture order.
func (ws *WebSocket) loadReplayableRoute(ctx context.Context, tripID string) (geo.Route, error) {
	var route geo.Route
	err := ws.uow.WithinTx(ctx, func(txCtx context.Context) error {
		t, err := ws.tripRepo.GetByID(txCtx, tripID)
		if err != nil {
			return err
		}
		if !t.Replayable() {
			return replay.ErrNotReplayable
		}

		route, err = ws.routeRepo.GetRoute(txCtx, tripID)
		return err
	})
	return route, err
}

func (ws *WebSocket) replayState(tripID string, engine *replay.Engine) contracts.WSReplayState {
	frame := engine.Frame()
	return contracts.WSReplayState{
		Type:    "replay_state",
		TripID:  tripID,
		Playing: frame.Playing,
		Index:   frame.Index,
		Speed:   int(engine.Speed()),
	}
}

func (ws *WebSocket) replayFrame(tripID string, frame replay.Frame) contracts.WSReplayFrame {
	return contracts.WSReplayFrame{
		Type:            "replay_frame",
		TripID:          tripID,
		Index:           frame.Index,
		Location:        contracts.GeoPoint{Lat: frame.Sample.Lat, Lng: frame.Sample.Lng},
		CapturedAt:      frame.Sample.CapturedAtMillis,
		DistanceSoFarKm: frame.DistanceSoFarKm,
		Progress:        frame.Progress,
		Playing:         frame.Playing,
	}
}
