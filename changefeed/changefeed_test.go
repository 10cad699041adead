package changefeed

import (
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "changefeed")
	defer teardown()
	//
	f := New()
	defer f.Close()

	versions := f.Versions()
	f.Publish(7)

	select {
	case v := <-versions:
		if v != 7 {
			t.Fatalf("got version %d, want 7", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published version")
	}
}

func TestPublishWithoutSubscriberDoesNotBlock(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "changefeed")
	defer teardown()
	//
	f := New()
	defer f.Close()

	done := make(chan struct{})
	go func() {
		f.Publish(1)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with no subscribers")
	}
}

func TestCloseClosesSubscriberChannels(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "changefeed")
	defer teardown()
	//
	f := New()
	versions := f.Versions()
	f.Close()

	select {
	case _, ok := <-versions:
		if ok {
			t.Fatal("expected channel to be closed after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "changefeed")
	defer teardown()
	//
	f := New()
	defer f.Close()

	a := f.Versions()
	b := f.Versions()
	f.Publish(42)

	for _, ch := range []<-chan uint64{a, b} {
		select {
		case v := <-ch:
			if v != 42 {
				t.Fatalf("got %d, want 42", v)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for a subscriber to receive")
		}
	}
}
