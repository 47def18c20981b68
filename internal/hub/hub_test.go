package hub

import (
	"testing"
)

func drain(s *Session) [][]byte {
	var msgs [][]byte
	for {
		select {
		case m := <-s.Outbox():
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func TestPackageRoom(t *testing.T) {
	if got := PackageRoom(99); got != "merchant.package.99.location" {
		t.Errorf("PackageRoom(99) = %q", got)
	}
	if PackageRoom(1) == PackageRoom(2) {
		t.Error("distinct packages must get distinct rooms")
	}
}

func TestHub_PublishToRoomMembers(t *testing.T) {
	h := New(nil)

	office := NewSession(4)
	merchant := NewSession(4)
	outsider := NewSession(4)
	for _, s := range []*Session{office, merchant, outsider} {
		h.Add(s)
	}

	h.Join(office, RoomAllCouriers)
	h.Join(merchant, PackageRoom(99))

	n := h.Publish(RoomAllCouriers, []byte("update"))
	if n != 1 {
		t.Errorf("Publish delivered %d, want 1", n)
	}

	if len(drain(office)) != 1 {
		t.Error("office member should receive the payload")
	}
	if len(drain(merchant)) != 0 {
		t.Error("merchant room member should not receive office payloads")
	}
	if len(drain(outsider)) != 0 {
		t.Error("session in no room should receive nothing")
	}
}

func TestHub_JoinIdempotent(t *testing.T) {
	h := New(nil)
	s := NewSession(4)
	h.Add(s)

	h.Join(s, RoomAllCouriers)
	h.Join(s, RoomAllCouriers)

	if n := h.Publish(RoomAllCouriers, []byte("x")); n != 1 {
		t.Errorf("Publish delivered %d, want 1 (duplicate join must not duplicate delivery)", n)
	}
	if got := len(drain(s)); got != 1 {
		t.Errorf("received %d payloads, want 1", got)
	}
}

func TestHub_RemoveClearsMembershipAndRegistry(t *testing.T) {
	h := New(nil)
	s := NewSession(4)
	h.Add(s)
	h.Join(s, RoomAllCouriers)
	h.Join(s, PackageRoom(7))
	h.BindCourier(12, s)

	h.Remove(s)

	if n := h.Publish(RoomAllCouriers, []byte("x")); n != 0 {
		t.Errorf("Publish after remove delivered %d, want 0", n)
	}
	if _, ok := h.Courier(12); ok {
		t.Error("courier registry entry should be cleared on remove")
	}

	stats := h.Stats()
	if stats.Sessions != 0 || stats.Rooms != 0 || stats.Couriers != 0 {
		t.Errorf("Stats after remove = %+v, want all zero", stats)
	}

	select {
	case <-s.Done():
	default:
		t.Error("removed session should be closed")
	}
}

func TestHub_RemoveUnknownSession(t *testing.T) {
	h := New(nil)
	// Disconnect events can arrive for sessions that never joined
	// anything; Remove must tolerate them.
	h.Remove(NewSession(1))
}

func TestHub_BindCourierLastWriterWins(t *testing.T) {
	h := New(nil)
	first := NewSession(4)
	second := NewSession(4)
	h.Add(first)
	h.Add(second)

	h.BindCourier(5, first)
	h.BindCourier(5, second)

	got, ok := h.Courier(5)
	if !ok {
		t.Fatal("courier 5 not registered")
	}
	if got != second {
		t.Error("re-registration should replace the prior session")
	}

	// The replaced session is not closed by re-registration.
	select {
	case <-first.Done():
		t.Error("prior session must not be closed by re-registration")
	default:
	}
}

func TestSession_SendDropsWhenFull(t *testing.T) {
	s := NewSession(1)

	if !s.Send([]byte("a")) {
		t.Fatal("first send should succeed")
	}
	if s.Send([]byte("b")) {
		t.Error("send into a full outbox should report a drop")
	}
	if s.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", s.Dropped())
	}
}

func TestSession_SendAfterClose(t *testing.T) {
	s := NewSession(4)
	s.Close()
	s.Close() // idempotent

	if s.Send([]byte("a")) {
		t.Error("send after close should fail")
	}
}
