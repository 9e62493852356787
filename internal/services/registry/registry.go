package registry

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mcoot/iq180/internal/dependencies/clock"
	"github.com/mcoot/iq180/internal/model"
)

const (
	// MaxNicknameLength caps nicknames, in runes
	MaxNicknameLength = 24
	// MaxAvatarLength caps avatar identifiers, in runes
	MaxAvatarLength = 64
)

// Listener is notified synchronously, in mutation order, whenever the
// registry changes. Implementations may call the registry's read methods
// but must not mutate it.
type Listener interface {
	// OnlineChanged receives the full ordered snapshot after any change
	OnlineChanged(players []model.Player)
	// PlayerChanged receives the record of a player whose profile was edited
	PlayerChanged(player model.Player)
	// ReadinessChanged receives the readiness aggregate when it differs from
	// the previously reported value
	ReadinessChanged(ready bool)
}

// IDGenerator produces fresh player ids
type IDGenerator func() model.PlayerID

// NewUUID generates a random uuid player id
func NewUUID() model.PlayerID {
	return model.PlayerID(uuid.NewString())
}

// Registry tracks connected players. It is the sole owner of Player records.
type Registry struct {
	// opMu serializes each mutation together with its notifications
	opMu sync.Mutex

	mu      sync.RWMutex
	players map[model.PlayerID]*model.Player
	order   []model.PlayerID
	byConn  map[model.ConnID]model.PlayerID

	readiness ReadinessTracker
	listener  Listener
	newID     IDGenerator
	clock     clock.Clock
	logger    *slog.Logger
}

// Option configures a Registry
type Option func(*Registry)

// WithIDGenerator overrides the player id generator
func WithIDGenerator(gen IDGenerator) Option {
	return func(r *Registry) {
		r.newID = gen
	}
}

// New creates an empty Registry
func New(clk clock.Clock, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		players: make(map[model.PlayerID]*model.Player),
		byConn:  make(map[model.ConnID]model.PlayerID),
		newID:   NewUUID,
		clock:   clk,
		logger:  logger.With(slog.String("component", "registry")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetListener installs the change listener. It must be called before the
// registry is shared.
func (r *Registry) SetListener(l Listener) {
	r.listener = l
}

// Join registers a new player for the connection
func (r *Registry) Join(conn model.ConnID, profile model.Profile) (model.Player, error) {
	nickname, avatar, err := normalizeProfile(profile)
	if err != nil {
		return model.Player{}, err
	}
	if nickname == "" {
		return model.Player{}, model.ErrInvalidNickname
	}

	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	if _, exists := r.byConn[conn]; exists {
		r.mu.Unlock()
		return model.Player{}, model.ErrDuplicateConnection
	}
	id := r.newID()
	for {
		if _, taken := r.players[id]; !taken {
			break
		}
		id = r.newID()
	}
	player := &model.Player{
		ID:       id,
		Nickname: nickname,
		Avatar:   avatar,
		Conn:     conn,
		JoinedAt: r.clock.Now(),
	}
	r.players[id] = player
	r.order = append(r.order, id)
	r.byConn[conn] = id
	r.mu.Unlock()

	r.logger.Info("player joined",
		slog.String("player_id", string(id)),
		slog.String("nickname", nickname))

	r.notifyChanged()
	return *player, nil
}

// Edit merges the non-empty fields of delta into the player's profile
func (r *Registry) Edit(id model.PlayerID, delta model.Profile) (model.Player, error) {
	nickname, avatar, err := normalizeProfile(delta)
	if err != nil {
		return model.Player{}, err
	}

	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	player, ok := r.players[id]
	if !ok {
		r.mu.Unlock()
		return model.Player{}, fmt.Errorf("edit %s: %w", id, model.ErrUnknownPlayer)
	}
	if nickname != "" {
		player.Nickname = nickname
	}
	if avatar != "" {
		player.Avatar = avatar
	}
	updated := *player
	r.mu.Unlock()

	if r.listener != nil {
		r.listener.PlayerChanged(updated)
	}
	r.notifyChanged()
	return updated, nil
}

// SetReady updates the player's ready flag and recomputes readiness
func (r *Registry) SetReady(id model.PlayerID, ready bool) (model.Player, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	player, ok := r.players[id]
	if !ok {
		r.mu.Unlock()
		return model.Player{}, fmt.Errorf("set ready %s: %w", id, model.ErrUnknownPlayer)
	}
	player.Ready = ready
	updated := *player
	r.mu.Unlock()

	r.notifyChanged()
	return updated, nil
}

// Leave removes the player. Removing an absent player is a no-op and
// reports false.
func (r *Registry) Leave(id model.PlayerID) bool {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	player, ok := r.players[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.players, id)
	delete(r.byConn, player.Conn)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.logger.Info("player left", slog.String("player_id", string(id)))

	r.notifyChanged()
	return true
}

// Online returns the connected players in join order
func (r *Registry) Online() []model.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// ReadyPlayers returns the ready players in join order
func (r *Registry) ReadyPlayers() []model.Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ready []model.Player
	for _, id := range r.order {
		if p := r.players[id]; p.Ready {
			ready = append(ready, *p)
		}
	}
	return ready
}

// Get returns the player with the given id
func (r *Registry) Get(id model.PlayerID) (model.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	if !ok {
		return model.Player{}, false
	}
	return *p, true
}

// ByConn returns the player registered for the connection
func (r *Registry) ByConn(conn model.ConnID) (model.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[conn]
	if !ok {
		return model.Player{}, false
	}
	return *r.players[id], true
}

// Conns resolves player ids to their live connection handles, in the given
// order. Ids that are no longer registered are skipped.
func (r *Registry) Conns(ids []model.PlayerID) []model.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]model.ConnID, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.players[id]; ok {
			conns = append(conns, p.Conn)
		}
	}
	return conns
}

// AllConns returns the connection handle of every online player in join order
func (r *Registry) AllConns() []model.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]model.ConnID, len(r.order))
	for i, id := range r.order {
		conns[i] = r.players[id].Conn
	}
	return conns
}

// Ready returns the current deduplicated readiness aggregate
func (r *Registry) Ready() bool {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	return r.readiness.Ready()
}

func (r *Registry) snapshotLocked() []model.Player {
	players := make([]model.Player, len(r.order))
	for i, id := range r.order {
		players[i] = *r.players[id]
	}
	return players
}

// notifyChanged publishes the online snapshot and any readiness change.
// Callers must hold opMu.
func (r *Registry) notifyChanged() {
	snapshot := r.Online()
	ready, changed := r.readiness.Update(snapshot)
	if r.listener == nil {
		return
	}
	r.listener.OnlineChanged(snapshot)
	if changed {
		r.logger.Info("readiness changed",
			slog.Bool("ready", ready),
			slog.Int("ready_players", CountReady(snapshot)))
		r.listener.ReadinessChanged(ready)
	}
}

func normalizeProfile(p model.Profile) (nickname, avatar string, err error) {
	nickname = strings.TrimSpace(p.Nickname)
	avatar = strings.TrimSpace(p.Avatar)
	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		return "", "", fmt.Errorf("%w: longer than %d characters", model.ErrInvalidNickname, MaxNicknameLength)
	}
	if utf8.RuneCountInString(avatar) > MaxAvatarLength {
		return "", "", fmt.Errorf("%w: avatar longer than %d characters", model.ErrMalformedPayload, MaxAvatarLength)
	}
	return nickname, avatar, nil
}
