package sse

import (
	"testing"
	"time"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHub_PublishReachesSubscriber(t *testing.T) {
	h := startHub(t)

	c := NewClient("task-1")
	h.Register(c)
	waitFor(t, func() bool { return h.SubscriberCount("task-1") == 1 })

	h.Publish("task-1", []byte(`{"percentage":30}`))

	select {
	case data := <-c.Events():
		if string(data) != `{"percentage":30}` {
			t.Errorf("unexpected event: %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestHub_TaskIsolation(t *testing.T) {
	h := startHub(t)

	a := NewClient("task-a")
	b := NewClient("task-b")
	h.Register(a)
	h.Register(b)
	waitFor(t, func() bool {
		return h.SubscriberCount("task-a") == 1 && h.SubscriberCount("task-b") == 1
	})

	h.Publish("task-a", []byte("for-a"))

	select {
	case data := <-a.Events():
		if string(data) != "for-a" {
			t.Errorf("unexpected event: %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered to task-a subscriber")
	}

	select {
	case data := <-b.Events():
		t.Errorf("task-b subscriber received foreign event: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_MultipleSubscribersSameTask(t *testing.T) {
	h := startHub(t)

	c1 := NewClient("task-1")
	c2 := NewClient("task-1")
	h.Register(c1)
	h.Register(c2)
	waitFor(t, func() bool { return h.SubscriberCount("task-1") == 2 })

	h.Publish("task-1", []byte("hello"))

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.Events():
			if string(data) != "hello" {
				t.Errorf("unexpected event: %s", data)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("client %s did not receive event", c.ID())
		}
	}
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	h := startHub(t)

	c := NewClient("task-1")
	h.Register(c)
	waitFor(t, func() bool { return h.SubscriberCount("task-1") == 1 })

	h.Unregister(c)
	waitFor(t, func() bool { return h.SubscriberCount("task-1") == 0 })

	select {
	case _, ok := <-c.Events():
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unregister")
	}
}

func TestHub_StopClosesAllClients(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := NewClient("task-1")
	h.Register(c)
	waitFor(t, func() bool { return h.SubscriberCount("task-1") == 1 })

	h.Stop()
	h.Stop() // idempotent

	select {
	case _, ok := <-c.Events():
		if ok {
			t.Error("expected channel to be closed on stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after stop")
	}
}
