// Package ws exposes the planner and sync orchestrators to the browser over
// a WebSocket JSON protocol. The handler is thin glue: it decodes envelopes,
// calls the orchestrators, and encodes replies. One goroutine reads per
// connection, so operations on a connection are naturally serialized.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/0xaya/guild-skill-tree-sub000/internal/entities"
	"github.com/0xaya/guild-skill-tree-sub000/internal/errors"
	"github.com/0xaya/guild-skill-tree-sub000/internal/orchestrators/account"
	"github.com/0xaya/guild-skill-tree-sub000/internal/orchestrators/planner"
	"github.com/0xaya/guild-skill-tree-sub000/internal/skilltree"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Flusher commits any pending debounced remote write for an account.
// Satisfied by the sync package's Writer.
type Flusher interface {
	Flush(ctx context.Context, accountID string) error
}

// Config holds the dependencies for the WebSocket handler
type Config struct {
	Planner planner.Service
	Sync    account.Service
	Flusher Flusher
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}

	vb := errors.NewValidationBuilder()
	if c.Planner == nil {
		vb.RequiredField("Planner")
	}
	if c.Sync == nil {
		vb.RequiredField("Sync")
	}
	if c.Flusher == nil {
		vb.RequiredField("Flusher")
	}
	return vb.Build()
}

// Handler upgrades HTTP requests and speaks the JSON message protocol.
type Handler struct {
	planner planner.Service
	sync    account.Service
	flusher Flusher
}

// NewHandler creates a new WebSocket handler with the provided dependencies
func NewHandler(cfg *Config) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &Handler{
		planner: cfg.Planner,
		sync:    cfg.Sync,
		flusher: cfg.Flusher,
	}, nil
}

// session is the per-connection state: the socket and, once the client has
// synced, the account its edits belong to.
type session struct {
	conn      *websocket.Conn
	accountID string
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "websocket upgrade failed", "error", err.Error())
		return
	}
	defer func() { _ = conn.Close() }()

	ctx := r.Context()
	sess := &session{conn: conn}

	// Pending edits must not be lost because the tab closed: commit the
	// debounced write on the way out.
	defer func() {
		if sess.accountID == "" {
			return
		}
		if err := h.flusher.Flush(context.Background(), sess.accountID); err != nil {
			slog.Error("flush on disconnect failed",
				"account_id", sess.accountID,
				"error", err.Error())
		}
	}()

	// The session opens with the local snapshot, provisioning a default
	// character on first use.
	loaded, err := h.planner.Load(ctx, &planner.LoadInput{})
	if err != nil {
		h.sendError(sess, err)
		return
	}
	h.sendState(sess, loaded.State)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.dispatch(ctx, sess, data)
	}
}

func (h *Handler) dispatch(ctx context.Context, sess *session, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.sendError(sess, errors.InvalidArgument("malformed envelope"))
		return
	}

	switch env.Type {
	case MsgLevelUp:
		h.handleLevelUp(ctx, sess, env.Payload)
	case MsgLevelDown:
		h.handleLevelDown(ctx, sess, env.Payload)
	case MsgResetTree:
		h.handleResetTree(ctx, sess)
	case MsgCreateCharacter:
		h.handleCreateCharacter(ctx, sess, env.Payload)
	case MsgDeleteCharacter:
		h.handleDeleteCharacter(ctx, sess, env.Payload)
	case MsgSwitchCharacter:
		h.handleSwitchCharacter(ctx, sess, env.Payload)
	case MsgRenameCharacter:
		h.handleRenameCharacter(ctx, sess, env.Payload)
	case MsgSetGuildRank:
		h.handleSetGuildRank(ctx, sess, env.Payload)
	case MsgCostTotals:
		h.handleCostTotals(ctx, sess)
	case MsgSync:
		h.handleSync(ctx, sess, env.Payload)
	case MsgResolveConflict:
		h.handleResolveConflict(ctx, sess, env.Payload)
	case MsgFlush:
		h.handleFlush(ctx, sess)
	default:
		h.sendError(sess, errors.InvalidArgumentf("unknown message type %q", env.Type))
	}
}

func (h *Handler) handleLevelUp(ctx context.Context, sess *session, payload json.RawMessage) {
	var p skillPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, errors.InvalidArgument("malformed levelUp payload"))
		return
	}

	out, err := h.planner.LevelUp(ctx, &planner.LevelUpInput{SkillID: p.SkillID})
	if err != nil {
		h.sendError(sess, err)
		return
	}
	h.sendTransition(ctx, sess, out.Denial, out.Selection, out.Totals)
}

func (h *Handler) handleLevelDown(ctx context.Context, sess *session, payload json.RawMessage) {
	var p skillPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, errors.InvalidArgument("malformed levelDown payload"))
		return
	}

	out, err := h.planner.LevelDown(ctx, &planner.LevelDownInput{SkillID: p.SkillID})
	if err != nil {
		h.sendError(sess, err)
		return
	}
	h.sendTransition(ctx, sess, out.Denial, out.Selection, out.Totals)
}

func (h *Handler) handleResetTree(ctx context.Context, sess *session) {
	out, err := h.planner.ResetTree(ctx, &planner.ResetTreeInput{})
	if err != nil {
		h.sendError(sess, err)
		return
	}
	h.sendSessionState(ctx, sess, out.Totals)
}

func (h *Handler) handleCreateCharacter(ctx context.Context, sess *session, payload json.RawMessage) {
	var p createCharacterPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			h.sendError(sess, errors.InvalidArgument("malformed createCharacter payload"))
			return
		}
	}

	out, err := h.planner.CreateCharacter(ctx, &planner.CreateCharacterInput{Name: p.Name})
	if err != nil {
		h.sendError(sess, err)
		return
	}
	h.sendState(sess, out.State)
}

func (h *Handler) handleDeleteCharacter(ctx context.Context, sess *session, payload json.RawMessage) {
	var p characterPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, errors.InvalidArgument("malformed deleteCharacter payload"))
		return
	}

	out, err := h.planner.DeleteCharacter(ctx, &planner.DeleteCharacterInput{CharacterID: p.CharacterID})
	if err != nil {
		h.sendError(sess, err)
		return
	}
	h.sendState(sess, out.State)
}

func (h *Handler) handleSwitchCharacter(ctx context.Context, sess *session, payload json.RawMessage) {
	var p characterPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, errors.InvalidArgument("malformed switchCharacter payload"))
		return
	}

	if _, err := h.planner.SwitchCharacter(ctx, &planner.SwitchCharacterInput{CharacterID: p.CharacterID}); err != nil {
		h.sendError(sess, err)
		return
	}
	h.sendSessionState(ctx, sess, nil)
}

func (h *Handler) handleRenameCharacter(ctx context.Context, sess *session, payload json.RawMessage) {
	var p renameCharacterPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, errors.InvalidArgument("malformed renameCharacter payload"))
		return
	}

	if _, err := h.planner.RenameCharacter(ctx, &planner.RenameCharacterInput{
		CharacterID: p.CharacterID,
		Name:        p.Name,
	}); err != nil {
		h.sendError(sess, err)
		return
	}
	h.sendSessionState(ctx, sess, nil)
}

func (h *Handler) handleSetGuildRank(ctx context.Context, sess *session, payload json.RawMessage) {
	var p guildRankPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, errors.InvalidArgument("malformed setGuildRank payload"))
		return
	}

	if _, err := h.planner.SetGuildRank(ctx, &planner.SetGuildRankInput{GuildRank: p.GuildRank}); err != nil {
		h.sendError(sess, err)
		return
	}
	h.sendSessionState(ctx, sess, nil)
}

func (h *Handler) handleCostTotals(ctx context.Context, sess *session) {
	out, err := h.planner.CostTotals(ctx, &planner.CostTotalsInput{})
	if err != nil {
		h.sendError(sess, err)
		return
	}
	h.sendSessionState(ctx, sess, out.Totals)
}

func (h *Handler) handleSync(ctx context.Context, sess *session, payload json.RawMessage) {
	var p syncPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, errors.InvalidArgument("malformed sync payload"))
		return
	}

	out, err := h.sync.Sync(ctx, &account.SyncInput{AccountID: p.AccountID})
	if err != nil {
		h.sendError(sess, err)
		return
	}

	result := &SyncResultPayload{Outcome: out.Outcome}
	switch out.Outcome {
	case account.OutcomeConflict:
		// Remember the account but keep the session on its local state;
		// the client must resolve before edits flow remotely.
		sess.accountID = p.AccountID
		result.Local = out.Local
		result.Remote = out.Remote
	default:
		adopted, err := h.planner.AdoptState(ctx, &planner.AdoptStateInput{
			State:     out.State,
			AccountID: p.AccountID,
		})
		if err != nil {
			h.sendError(sess, err)
			return
		}
		sess.accountID = p.AccountID
		result.State = adopted.State
	}
	h.send(sess, MsgSyncResult, result)
}

func (h *Handler) handleResolveConflict(ctx context.Context, sess *session, payload json.RawMessage) {
	if sess.accountID == "" {
		h.sendError(sess, errors.FailedPrecondition("no sync in progress"))
		return
	}

	var p resolveConflictPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(sess, errors.InvalidArgument("malformed resolveConflict payload"))
		return
	}

	out, err := h.sync.ResolveConflict(ctx, &account.ResolveConflictInput{
		AccountID: sess.accountID,
		UseLocal:  p.UseLocal,
		Local:     p.Local,
		Remote:    p.Remote,
	})
	if err != nil {
		h.sendError(sess, err)
		return
	}

	adopted, err := h.planner.AdoptState(ctx, &planner.AdoptStateInput{
		State:     out.State,
		AccountID: sess.accountID,
	})
	if err != nil {
		h.sendError(sess, err)
		return
	}
	h.send(sess, MsgSyncResult, &SyncResultPayload{
		Outcome: account.OutcomeSynced,
		State:   adopted.State,
	})
}

func (h *Handler) handleFlush(ctx context.Context, sess *session) {
	if sess.accountID == "" {
		h.sendError(sess, errors.FailedPrecondition("not synced to an account"))
		return
	}
	if err := h.flusher.Flush(ctx, sess.accountID); err != nil {
		h.sendError(sess, err)
		return
	}
	h.sendSessionState(ctx, sess, nil)
}

// sendTransition routes an engine result: denied transitions go out as a
// denied frame, accepted ones as the refreshed session state.
func (h *Handler) sendTransition(ctx context.Context, sess *session, denial *skilltree.Denial, selection map[string]int, totals *entities.CostTotals) {
	if denial != nil {
		h.send(sess, MsgDenied, &DeniedPayload{Denial: denial, Selection: selection})
		return
	}
	h.sendSessionState(ctx, sess, totals)
}

// sendSessionState fetches the current state from the planner and sends it.
func (h *Handler) sendSessionState(ctx context.Context, sess *session, totals *entities.CostTotals) {
	out, err := h.planner.State(ctx, &planner.StateInput{})
	if err != nil {
		h.sendError(sess, err)
		return
	}
	h.send(sess, MsgState, &StatePayload{State: out.State, Totals: totals})
}

func (h *Handler) sendState(sess *session, state *entities.GlobalState) {
	h.send(sess, MsgState, &StatePayload{State: state})
}

func (h *Handler) sendError(sess *session, err error) {
	h.send(sess, MsgError, &ErrorPayload{
		Code:    string(errors.GetCode(err)),
		Message: errors.GetMessage(err),
	})
}

func (h *Handler) send(sess *session, msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal websocket payload", "type", msgType, "error", err.Error())
		return
	}
	env := Envelope{Type: msgType, Payload: data}
	if err := sess.conn.WriteJSON(env); err != nil {
		slog.Error("failed to write websocket frame", "type", msgType, "error", err.Error())
	}
}
