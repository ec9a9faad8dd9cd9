package video

import "testing"

func TestHeadlessInputDrainsOnPoll(t *testing.T) {
	hl := NewHeadless()
	hl.PushKey(29, true)
	hl.PushKey(29, false)

	keys, quit := hl.PollEvents()
	if quit {
		t.Error("unexpected quit")
	}
	if len(keys) != 2 || keys[0].Code != 29 || !keys[0].Down || keys[1].Down {
		t.Errorf("unexpected events: %+v", keys)
	}

	keys, _ = hl.PollEvents()
	if len(keys) != 0 {
		t.Errorf("second poll should be empty, got %+v", keys)
	}
}

func TestHeadlessQuitIsOneShot(t *testing.T) {
	hl := NewHeadless()
	hl.RequestQuit()

	if _, quit := hl.PollEvents(); !quit {
		t.Fatal("expected quit on first poll")
	}
	if _, quit := hl.PollEvents(); quit {
		t.Fatal("quit should not repeat")
	}
}

func TestHeadlessRetainsLastFrame(t *testing.T) {
	hl := NewHeadless()
	if frame, _, _ := hl.LastFrame(); frame != nil {
		t.Fatal("frame before any present")
	}

	hl.Present([]uint32{0x00FF0000, 0x0000FF00}, 2, 1)
	frame, w, h := hl.LastFrame()
	if w != 2 || h != 1 {
		t.Errorf("geometry: got %dx%d", w, h)
	}
	if frame[0] != 0x00FF0000 || frame[1] != 0x0000FF00 {
		t.Errorf("frame contents: %x", frame)
	}
	if hl.Frames() != 1 {
		t.Errorf("expected 1 present, got %d", hl.Frames())
	}
}
