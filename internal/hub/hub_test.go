package hub

import "testing"

func TestBroadcastMatchesSubscription(t *testing.T) {
	h := New()

	branchOne := &Client{ID: "a", Send: make(chan []byte, 1), Subscription: Subscription{BranchID: "b1"}}
	branchTwo := &Client{ID: "b", Send: make(chan []byte, 1), Subscription: Subscription{BranchID: "b2"}}
	everything := &Client{ID: "c", Send: make(chan []byte, 1)}
	h.Register(branchOne)
	h.Register(branchTwo)
	h.Register(everything)

	h.Broadcast([]byte(`{"type":"turn.created"}`), Subscription{BranchID: "b1", CategoryID: "cat-caja"})

	if len(branchOne.Send) != 1 {
		t.Fatal("matching branch client did not receive the event")
	}
	if len(branchTwo.Send) != 0 {
		t.Fatal("other branch client received the event")
	}
	if len(everything.Send) != 1 {
		t.Fatal("wildcard client did not receive the event")
	}
}

func TestBroadcastCategoryFilter(t *testing.T) {
	h := New()

	caja := &Client{ID: "a", Send: make(chan []byte, 1), Subscription: Subscription{BranchID: "b1", CategoryID: "cat-caja"}}
	info := &Client{ID: "b", Send: make(chan []byte, 1), Subscription: Subscription{BranchID: "b1", CategoryID: "cat-info"}}
	h.Register(caja)
	h.Register(info)

	h.Broadcast([]byte(`{}`), Subscription{BranchID: "b1", CategoryID: "cat-caja"})

	if len(caja.Send) != 1 {
		t.Fatal("category subscriber missed its event")
	}
	if len(info.Send) != 0 {
		t.Fatal("other category subscriber received the event")
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	h := New()
	client := &Client{ID: "a", Send: make(chan []byte, 1)}
	h.Register(client)

	h.Broadcast([]byte(`1`), Subscription{})
	h.Broadcast([]byte(`2`), Subscription{})

	if len(client.Send) != 1 {
		t.Fatalf("send buffer has %d messages, want 1", len(client.Send))
	}
}

func TestParseSubscribe(t *testing.T) {
	msg, ok := ParseSubscribe([]byte(`{"action":"subscribe","branch_id":"b1","category_id":"cat-caja"}`))
	if !ok {
		t.Fatal("valid subscribe rejected")
	}
	if msg.BranchID != "b1" || msg.CategoryID != "cat-caja" {
		t.Fatalf("parsed message = %+v", msg)
	}

	if _, ok := ParseSubscribe([]byte(`{"action":"dance"}`)); ok {
		t.Fatal("unknown action accepted")
	}
	if _, ok := ParseSubscribe([]byte(`not json`)); ok {
		t.Fatal("invalid JSON accepted")
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := New()
	client := &Client{ID: "a", Send: make(chan []byte, 1)}
	h.Register(client)
	h.Unregister(client)

	if _, open := <-client.Send; open {
		t.Fatal("send channel still open after unregister")
	}

	// Unregistered clients must not receive further broadcasts.
	h.Broadcast([]byte(`{}`), Subscription{})
}
