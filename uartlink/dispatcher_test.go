package uartlink

import "testing"

type recordingHandler struct {
	prefix string
	seen   []string
}

func (h *recordingHandler) CanHandle(line string) bool {
	return len(line) >= len(h.prefix) && line[:len(h.prefix)] == h.prefix
}

func (h *recordingHandler) Handle(line string) {
	h.seen = append(h.seen, line)
}

type panickingHandler struct{}

func (panickingHandler) CanHandle(string) bool { return true }
func (panickingHandler) Handle(string)         { panic("boom") }

func TestDispatcherOffersLineToMatchingHandlersInOrder(t *testing.T) {
	d := NewDispatcher()
	h1 := &recordingHandler{prefix: "Video Mute"}
	h2 := &recordingHandler{prefix: "PORT_SW_INVERTER"}
	d.Register(h1)
	d.Register(h2)
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	d.Dispatch("Video Mute on")
	d.Dispatch("PORT_SW_INVERTER off")
	d.Dispatch("unrelated line")

	if len(h1.seen) != 1 || h1.seen[0] != "Video Mute on" {
		t.Fatalf("h1.seen = %v", h1.seen)
	}
	if len(h2.seen) != 1 || h2.seen[0] != "PORT_SW_INVERTER off" {
		t.Fatalf("h2.seen = %v", h2.seen)
	}
}

func TestDispatcherPanicDoesNotStopLaterHandlers(t *testing.T) {
	d := NewDispatcher()
	d.Register(panickingHandler{})
	after := &recordingHandler{prefix: ""}
	d.Register(after)
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	d.Dispatch("anything")

	if len(after.seen) != 1 {
		t.Fatalf("handler after panic did not run: %v", after.seen)
	}
}

func TestDispatcherInactiveBeforeStart(t *testing.T) {
	d := NewDispatcher()
	h := &recordingHandler{prefix: ""}
	d.Register(h)

	d.Dispatch("line")

	if len(h.seen) != 0 {
		t.Fatalf("handler saw line before Start: %v", h.seen)
	}
}
