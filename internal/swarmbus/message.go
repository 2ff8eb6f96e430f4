// Package swarmbus is the per-group message bus: agents subscribe to a
// group (optionally scoped to a role or subgroup) and publish Messages that
// are queued by priority and delivered through a scope filter. Claim-kind
// messages are routed through the claim resolver instead of queued
// directly. Each group's queue is a bounded priority heap ordered on
// (kind family, claim priority, timestamp); delivery isolates receiver
// panics so one misbehaving agent never blocks the rest of the group.
package swarmbus

import (
	"time"

	"github.com/google/uuid"

	"github.com/ashgrove/legion/internal/ids"
)

// Kind identifies a message's semantic family and specific intent. The top
// bits encode the family so priority ordering can be computed from Kind
// alone via KindClass.
type Kind int

// Kind families, most to least urgent. Commands outrank requests outrank
// announcements; claims are routed separately but still carry a Kind for
// logging and for the resolver's own bookkeeping.
const (
	familyCommand Kind = iota * 100
	familyRequest
	familyAnnouncement
	familyClaim
)

const (
	KindCommandFocusTarget Kind = familyCommand + iota
	KindCommandRetreat
	KindCommandRegroup
	KindCommandInterruptRotation
	KindCommandCallSwitch
	KindCommandBurstNow
)

const (
	KindRequestHeal Kind = familyRequest + iota
	KindRequestPeel
	KindRequestDispel
	KindRequestCooldown
	KindRequestPosition
)

const (
	KindAnnounceCasting Kind = familyAnnouncement + iota
	KindAnnounceCooldownUsed
	KindAnnounceTargetSwitch
	KindAnnounceBurstWindow
	KindAnnounceStatus
)

const (
	KindClaimInterrupt Kind = familyClaim + iota
	KindClaimDispel
	KindClaimCrowdControl
	KindClaimLoot
	KindClaimPull
)

// KindClass returns the priority family a kind belongs to: lower is more
// urgent. Used as the first component of the bus's composite ordering key.
func KindClass(k Kind) int {
	switch {
	case k >= familyClaim:
		return 0 // claims resolve out-of-band but still get first dibs if ever queued directly
	case k >= familyAnnouncement:
		return 3
	case k >= familyRequest:
		return 2
	default:
		return 1 // commands are most urgent among queued kinds
	}
}

// defaultExpiry returns the kind-specific default time-to-live applied by
// the New* factories when the caller doesn't override it.
func defaultExpiry(k Kind) time.Duration {
	switch {
	case k >= familyClaim:
		return 200 * time.Millisecond
	case k >= familyAnnouncement:
		switch k {
		case KindAnnounceBurstWindow:
			return 2 * time.Second
		default:
			return 5 * time.Second
		}
	case k >= familyRequest:
		return 3 * time.Second
	default: // commands
		return 10 * time.Second
	}
}

// Scope selects the delivery filter applied to a message's recipients.
type Scope int

const (
	ScopeGroupBroadcast Scope = iota
	ScopeRoleBroadcast
	ScopeSubgroupBroadcast
	ScopeDirect
	ScopeNearbyBroadcast
)

// Message is a bot-to-bot envelope. Fields irrelevant to Kind are left
// zero. ClaimPriority is only meaningful for claim-family kinds (lower
// numeric value wins ties and overrides).
type Message struct {
	ID      uuid.UUID
	Kind    Kind
	Scope   Scope
	Sender  ids.EntityId
	Group   ids.GroupId
	Created time.Time
	Expiry  time.Time

	ClaimPriority int

	Target   ids.EntityId
	SpellID  uint32
	AuraID   uint32
	Duration time.Duration
	Value    float64
	Position *ids.Position

	TargetRole     ids.Role
	TargetSubgroup ids.SubGroup
}

// IsExpired reports whether the message's expiry has passed as of now.
func (m Message) IsExpired(now time.Time) bool {
	return !m.Expiry.IsZero() && now.After(m.Expiry)
}

// Valid reports whether m passes the minimum validity check applied at
// publish: a sender and a non-zero creation time. The kind is not checked
// here.
func (m Message) Valid() bool {
	return !m.Sender.IsEmpty() && !m.Created.IsZero()
}

func newMessage(kind Kind, sender ids.EntityId, group ids.GroupId, scope Scope, now time.Time) Message {
	return Message{
		ID:      uuid.New(),
		Kind:    kind,
		Scope:   scope,
		Sender:  sender,
		Group:   group,
		Created: now,
		Expiry:  now.Add(defaultExpiry(kind)),
	}
}

// NewCommand builds a command-family message addressed to the whole group.
func NewCommand(kind Kind, sender ids.EntityId, group ids.GroupId, now time.Time) Message {
	return newMessage(kind, sender, group, ScopeGroupBroadcast, now)
}

// NewRequest builds a request-family message targeted at a single recipient.
func NewRequest(kind Kind, sender, recipient ids.EntityId, group ids.GroupId, now time.Time) Message {
	m := newMessage(kind, sender, group, ScopeDirect, now)
	m.Target = recipient
	return m
}

// NewAnnouncement builds an announcement-family broadcast message.
func NewAnnouncement(kind Kind, sender ids.EntityId, group ids.GroupId, now time.Time) Message {
	return newMessage(kind, sender, group, ScopeGroupBroadcast, now)
}

// NewClaim builds a claim-family message with the given priority (lower
// numeric value is higher priority). Claim messages never touch the group
// queue directly; PublishClaim routes them through the resolver.
func NewClaim(kind Kind, sender, target ids.EntityId, group ids.GroupId, spellOrAuraID uint32, priority int, now time.Time) Message {
	m := newMessage(kind, sender, group, ScopeGroupBroadcast, now)
	m.Target = target
	m.ClaimPriority = priority
	m.SpellID = spellOrAuraID
	return m
}
