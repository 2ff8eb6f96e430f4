package swarmbus

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// Receiver is any agent-side endpoint that can accept a delivered message.
// Implementations must return quickly; heavy handling should be deferred.
type Receiver interface {
	OnMessage(msg Message)
}

type member struct {
	agent    ids.EntityId
	recv     Receiver
	role     ids.Role
	subgroup ids.SubGroup
	kinds    map[Kind]bool // empty/nil means "all kinds"
	position *ids.Position
}

func (m *member) accepts(kind Kind) bool {
	if len(m.kinds) == 0 {
		return true
	}
	return m.kinds[kind]
}

type group struct {
	id          ids.GroupId
	members     map[ids.EntityId]*member
	queue       *groupQueue
	lastActive  time.Time
}

// ClaimRouter is the subset of the claim resolver's surface the bus needs:
// routing claim-family messages instead of queuing them directly, and
// releasing a departing agent's outstanding claims.
type ClaimRouter interface {
	Submit(msg Message, callback func(ids.ClaimStatus)) ids.ClaimStatus
	ReleaseAll(claimer ids.EntityId)
}

// Bus is the process-wide per-group message bus. One Bus instance serves
// every group; groups are created lazily on first Subscribe and reclaimed by
// CleanupInactive.
type Bus struct {
	mu     sync.Mutex
	groups map[ids.GroupId]*group

	claims ClaimRouter
	logger *slog.Logger

	maxQueuePerGroup int

	droppedMessages atomic.Int64
	invalidMessages atomic.Int64
	lastDropWarning atomic.Int64
}

// Option configures a Bus at construction.
type Option func(*Bus)

// WithMaxQueuePerGroup overrides the default per-group queue bound (1000).
func WithMaxQueuePerGroup(n int) Option {
	return func(b *Bus) { b.maxQueuePerGroup = n }
}

// New creates a Bus. claims may be nil if PublishClaim will never be called
// (e.g. in tests exercising only the broadcast paths).
func New(claims ClaimRouter, logger *slog.Logger, opts ...Option) *Bus {
	b := &Bus{
		groups:           make(map[ids.GroupId]*group),
		claims:           claims,
		logger:           logger,
		maxQueuePerGroup: 1000,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// enqueueLocked pushes msg onto g's queue, dropping it instead when the
// per-group bound is reached. Must be called with mu held.
func (b *Bus) enqueueLocked(g *group, msg Message) bool {
	if b.maxQueuePerGroup > 0 && g.queue.len() >= b.maxQueuePerGroup {
		n := b.droppedMessages.Add(1)
		b.maybeLogDropWarning(n, g.id)
		return false
	}
	g.queue.push(msg)
	g.lastActive = time.Now()
	return true
}

// maybeLogDropWarning logs at exponentially spaced drop counts (1, 10,
// 100, ...) so a flooded group surfaces in the log without a line per drop.
func (b *Bus) maybeLogDropWarning(count int64, groupID ids.GroupId) {
	if b.logger == nil {
		return
	}
	threshold := int64(1)
	for threshold*10 <= count {
		threshold *= 10
	}
	if count != threshold {
		return
	}
	last := b.lastDropWarning.Load()
	if threshold > last && b.lastDropWarning.CompareAndSwap(last, threshold) {
		b.logger.Warn("swarmbus: group queue full, dropping messages", "group", groupID, "dropped", count)
	}
}

func (b *Bus) groupLocked(id ids.GroupId) *group {
	g, ok := b.groups[id]
	if !ok {
		g = &group{id: id, members: make(map[ids.EntityId]*member), queue: newGroupQueue()}
		b.groups[id] = g
	}
	return g
}

// Subscribe registers agent as a member of group, able to receive messages
// addressed to it. kinds restricts delivery to the given set; an empty set
// means "all kinds." Re-subscribing updates role, subgroup, and kinds.
func (b *Bus) Subscribe(agent ids.EntityId, groupID ids.GroupId, recv Receiver, role ids.Role, subgroup ids.SubGroup, kinds ...Kind) bool {
	if agent.IsEmpty() || recv == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	g := b.groupLocked(groupID)
	kindSet := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}
	g.members[agent] = &member{agent: agent, recv: recv, role: role, subgroup: subgroup, kinds: kindSet}
	g.lastActive = time.Now()
	return true
}

// Unsubscribe removes agent from group, releasing any claims it still
// holds. If groupID is the zero value, the agent is removed from every
// group it belongs to.
func (b *Bus) Unsubscribe(agent ids.EntityId, groupID ids.GroupId) {
	if b.claims != nil {
		b.claims.ReleaseAll(agent)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if groupID.IsEmpty() {
		for _, g := range b.groups {
			delete(g.members, agent)
		}
		return
	}
	if g, ok := b.groups[groupID]; ok {
		delete(g.members, agent)
	}
}

// UpdateSubscription changes an existing member's role and subgroup without
// touching its kind filter or re-registering its receiver.
func (b *Bus) UpdateSubscription(agent ids.EntityId, groupID ids.GroupId, role ids.Role, subgroup ids.SubGroup) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, ok := b.groups[groupID]
	if !ok {
		return false
	}
	m, ok := g.members[agent]
	if !ok {
		return false
	}
	m.role = role
	m.subgroup = subgroup
	return true
}

// UpdatePosition records an agent's last-known position for NearbyBroadcast
// distance gating.
func (b *Bus) UpdatePosition(agent ids.EntityId, groupID ids.GroupId, pos ids.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g, ok := b.groups[groupID]; ok {
		if m, ok := g.members[agent]; ok {
			p := pos
			m.position = &p
		}
	}
}

// Publish enqueues msg on its group's priority queue. Claim-family messages
// must go through PublishClaim instead; Publish rejects them.
func (b *Bus) Publish(msg Message) bool {
	if !msg.Valid() {
		b.invalidMessages.Add(1)
		return false
	}
	if KindClass(msg.Kind) == 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.enqueueLocked(b.groupLocked(msg.Group), msg)
}

// PublishClaim delegates a claim-family message to the resolver, which owns
// the submit/pending/override state machine described in internal/claims.
func (b *Bus) PublishClaim(msg Message, callback func(ids.ClaimStatus)) ids.ClaimStatus {
	if b.claims == nil || !msg.Valid() {
		b.invalidMessages.Add(1)
		return ids.ClaimDenied
	}
	return b.claims.Submit(msg, callback)
}

// SendDirect locates the group containing recipient and enqueues msg with
// its scope forced to Direct and target set to recipient. Returns false if
// recipient is not a member of any tracked group.
func (b *Bus) SendDirect(msg Message, recipient ids.EntityId) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, g := range b.groups {
		if _, ok := g.members[recipient]; ok {
			msg.Scope = ScopeDirect
			msg.Target = recipient
			msg.Group = g.id
			if !msg.Valid() {
				b.invalidMessages.Add(1)
				return false
			}
			return b.enqueueLocked(g, msg)
		}
	}
	return false
}

// Process drains up to maxPerGroup messages from every group's queue,
// delivering each to matching subscribers, and returns the total number of
// messages processed.
func (b *Bus) Process(maxPerGroup int) int {
	b.mu.Lock()
	type work struct {
		g    *group
		msgs []Message
	}
	batches := make([]work, 0, len(b.groups))
	now := time.Now()
	for _, g := range b.groups {
		var msgs []Message
		for i := 0; i < maxPerGroup; i++ {
			msg, ok := g.queue.pop()
			if !ok {
				break
			}
			if msg.IsExpired(now) {
				continue
			}
			msgs = append(msgs, msg)
		}
		if len(msgs) > 0 {
			batches = append(batches, work{g: g, msgs: msgs})
		}
	}
	b.mu.Unlock()

	total := 0
	for _, w := range batches {
		for _, msg := range w.msgs {
			b.deliver(w.g, msg)
			total++
		}
	}
	return total
}

func (b *Bus) deliver(g *group, msg Message) {
	b.mu.Lock()
	recipients := make([]*member, 0, len(g.members))
	for _, m := range g.members {
		if m.agent == msg.Sender {
			continue
		}
		if !scopeMatches(msg, m) {
			continue
		}
		if !m.accepts(msg.Kind) {
			continue
		}
		recipients = append(recipients, m)
	}
	b.mu.Unlock()

	for _, m := range recipients {
		b.safeInvoke(m, msg)
	}
}

func scopeMatches(msg Message, m *member) bool {
	switch msg.Scope {
	case ScopeGroupBroadcast:
		return true
	case ScopeRoleBroadcast:
		return m.role == msg.TargetRole
	case ScopeSubgroupBroadcast:
		return m.subgroup == msg.TargetSubgroup
	case ScopeDirect:
		return m.agent == msg.Target
	case ScopeNearbyBroadcast:
		if msg.Position == nil || m.position == nil {
			return true // ungated: no position data means don't filter
		}
		return m.position.Distance(*msg.Position) <= nearbyRadius
	default:
		return false
	}
}

// nearbyRadius is the distance, in world units, within which
// NearbyBroadcast messages are delivered when both positions are known.
const nearbyRadius = 40.0

func (b *Bus) safeInvoke(m *member, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			if b.logger != nil {
				b.logger.Error("swarmbus: subscriber panicked", "recovered", r, "agent", m.agent)
			}
		}
	}()
	m.recv.OnMessage(msg)
}

// CleanupInactive drops groups with zero members that have been inactive
// past thresholdSeconds, returning the number of groups reclaimed.
func (b *Bus) CleanupInactive(thresholdSeconds int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := time.Now().Add(-time.Duration(thresholdSeconds) * time.Second)
	reclaimed := 0
	for id, g := range b.groups {
		if len(g.members) == 0 && g.lastActive.Before(cutoff) {
			g.queue.discardAll()
			delete(b.groups, id)
			reclaimed++
		}
	}
	return reclaimed
}

// QueueDepth returns the number of undelivered messages queued for group.
func (b *Bus) QueueDepth(groupID ids.GroupId) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g, ok := b.groups[groupID]; ok {
		return g.queue.len()
	}
	return 0
}

// InvalidMessageCount returns the number of messages rejected by the
// validity check at Publish/PublishClaim/SendDirect.
func (b *Bus) InvalidMessageCount() int64 { return b.invalidMessages.Load() }

// DroppedMessageCount returns the number of messages dropped because a
// group's queue was at its bound.
func (b *Bus) DroppedMessageCount() int64 { return b.droppedMessages.Load() }
