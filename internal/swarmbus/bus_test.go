package swarmbus

import (
	"testing"
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

type recvFunc func(Message)

func (f recvFunc) OnMessage(m Message) { f(m) }

func TestDirectScope_DropsIfRecipientNotInGroup(t *testing.T) {
	b := New(nil, nil)
	group := ids.EntityId(1)
	sender := ids.EntityId(10)
	outsider := ids.EntityId(99)

	var delivered bool
	b.Subscribe(sender, group, recvFunc(func(Message) {}), ids.RoleDps, ids.SubGroupNone)

	msg := NewRequest(KindRequestHeal, sender, outsider, group, time.Now())
	ok := b.SendDirect(msg, outsider)
	if ok {
		t.Fatal("SendDirect succeeded for a recipient not in any tracked group")
	}
	if delivered {
		t.Fatal("message delivered despite recipient absence")
	}
}

func TestPriorityOrdering_CommandsBeforeRequestsBeforeAnnouncements(t *testing.T) {
	b := New(nil, nil)
	group := ids.EntityId(1)
	sender := ids.EntityId(10)
	recipient := ids.EntityId(11)

	var order []Kind
	b.Subscribe(recipient, group, recvFunc(func(m Message) { order = append(order, m.Kind) }), ids.RoleDps, ids.SubGroupNone)
	b.Subscribe(sender, group, recvFunc(func(Message) {}), ids.RoleDps, ids.SubGroupNone)

	now := time.Now()
	b.Publish(NewAnnouncement(KindAnnounceCasting, sender, group, now))
	b.Publish(NewRequest(KindRequestHeal, sender, recipient, group, now))
	b.Publish(NewCommand(KindCommandRetreat, sender, group, now))

	b.Process(10)

	if len(order) != 3 {
		t.Fatalf("delivered %d messages, want 3", len(order))
	}
	if order[0] != KindCommandRetreat {
		t.Fatalf("first delivered = %v, want command", order[0])
	}
	if order[1] != KindRequestHeal {
		t.Fatalf("second delivered = %v, want request", order[1])
	}
	if order[2] != KindAnnounceCasting {
		t.Fatalf("third delivered = %v, want announcement", order[2])
	}
}

func TestProcess_DiscardsExpiredMessage(t *testing.T) {
	b := New(nil, nil)
	group := ids.EntityId(1)
	sender := ids.EntityId(10)
	recipient := ids.EntityId(11)

	var got int
	b.Subscribe(recipient, group, recvFunc(func(Message) { got++ }), ids.RoleDps, ids.SubGroupNone)

	past := time.Now().Add(-time.Hour)
	msg := NewAnnouncement(KindAnnounceCasting, sender, group, past)
	msg.Expiry = past.Add(time.Millisecond)

	b.mu.Lock()
	g := b.groupLocked(group)
	g.queue.push(msg)
	b.mu.Unlock()

	b.Process(10)

	if got != 0 {
		t.Fatalf("expired message delivered %d times, want 0", got)
	}
}

func TestRoleBroadcast_OnlyMatchingRoleReceives(t *testing.T) {
	b := New(nil, nil)
	group := ids.EntityId(1)
	sender := ids.EntityId(10)
	healer := ids.EntityId(20)
	tank := ids.EntityId(21)

	var healerGot, tankGot int
	b.Subscribe(healer, group, recvFunc(func(Message) { healerGot++ }), ids.RoleHealer, ids.SubGroupNone)
	b.Subscribe(tank, group, recvFunc(func(Message) { tankGot++ }), ids.RoleTank, ids.SubGroupNone)
	b.Subscribe(sender, group, recvFunc(func(Message) {}), ids.RoleDps, ids.SubGroupNone)

	msg := NewRequest(KindRequestCooldown, sender, ids.Empty, group, time.Now())
	msg.Scope = ScopeRoleBroadcast
	msg.TargetRole = ids.RoleHealer
	b.Publish(msg)
	b.Process(10)

	if healerGot != 1 {
		t.Fatalf("healer got %d, want 1", healerGot)
	}
	if tankGot != 0 {
		t.Fatalf("tank got %d, want 0", tankGot)
	}
}

func TestSubscriberPanicDoesNotStopOtherDeliveries(t *testing.T) {
	b := New(nil, nil)
	group := ids.EntityId(1)
	sender := ids.EntityId(10)
	panicker := ids.EntityId(20)
	survivor := ids.EntityId(21)

	var survivorGot int
	b.Subscribe(panicker, group, recvFunc(func(Message) { panic("boom") }), ids.RoleDps, ids.SubGroupNone)
	b.Subscribe(survivor, group, recvFunc(func(Message) { survivorGot++ }), ids.RoleDps, ids.SubGroupNone)

	b.Publish(NewAnnouncement(KindAnnounceCasting, sender, group, time.Now()))
	b.Process(10)

	if survivorGot != 1 {
		t.Fatalf("survivor got %d, want 1", survivorGot)
	}
}

func TestCleanupInactive_ReclaimsEmptyGroupPastThreshold(t *testing.T) {
	b := New(nil, nil)
	group := ids.EntityId(5)
	agent := ids.EntityId(1)

	b.Subscribe(agent, group, recvFunc(func(Message) {}), ids.RoleDps, ids.SubGroupNone)
	b.Unsubscribe(agent, group)

	b.mu.Lock()
	b.groups[group].lastActive = time.Now().Add(-time.Hour)
	b.mu.Unlock()

	n := b.CleanupInactive(60)
	if n != 1 {
		t.Fatalf("reclaimed %d groups, want 1", n)
	}
	if b.QueueDepth(group) != 0 {
		t.Fatal("queue depth non-zero after group reclaim")
	}
}

type fakeClaims struct {
	released []ids.EntityId
}

func (f *fakeClaims) Submit(msg Message, callback func(ids.ClaimStatus)) ids.ClaimStatus {
	return ids.ClaimPending
}

func (f *fakeClaims) ReleaseAll(claimer ids.EntityId) {
	f.released = append(f.released, claimer)
}

func TestUnsubscribe_ReleasesOutstandingClaims(t *testing.T) {
	claims := &fakeClaims{}
	b := New(claims, nil)
	group := ids.EntityId(1)
	agent := ids.EntityId(10)

	b.Subscribe(agent, group, recvFunc(func(Message) {}), ids.RoleDps, ids.SubGroupNone)
	b.Unsubscribe(agent, group)

	if len(claims.released) != 1 || claims.released[0] != agent {
		t.Fatalf("released = %v, want exactly [%v]", claims.released, agent)
	}
}

func TestPublish_DropsWhenGroupQueueFull(t *testing.T) {
	b := New(nil, nil, WithMaxQueuePerGroup(2))
	group := ids.EntityId(1)
	sender := ids.EntityId(10)

	now := time.Now()
	for i := 0; i < 3; i++ {
		b.Publish(NewAnnouncement(KindAnnounceStatus, sender, group, now))
	}

	if depth := b.QueueDepth(group); depth != 2 {
		t.Fatalf("queue depth = %d, want 2 (bounded)", depth)
	}
	if got := b.DroppedMessageCount(); got != 1 {
		t.Fatalf("dropped count = %d, want 1", got)
	}
}

func TestInvalidMessage_RejectedAtPublish(t *testing.T) {
	b := New(nil, nil)
	msg := Message{} // no sender, zero creation time
	if b.Publish(msg) {
		t.Fatal("Publish accepted an invalid message")
	}
	if b.InvalidMessageCount() != 1 {
		t.Fatalf("invalid count = %d, want 1", b.InvalidMessageCount())
	}
}
