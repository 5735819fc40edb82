package confirm

import (
	"errors"
	"testing"

	"github.com/desertthunder/coursechat/internal/models"
	"github.com/desertthunder/coursechat/internal/shared"
)

var req = models.ConfirmationRequest{Title: "call mom", SSID: "abc123", Message: "Create task 'call mom'?"}

func TestWorkflow(t *testing.T) {
	t.Run("Starts Idle", func(t *testing.T) {
		w := New(nil)
		if w.State() != Idle {
			t.Errorf("expected idle, got %s", w.State())
		}
		if _, ok := w.Pending(); ok {
			t.Error("expected nothing pending")
		}
	})

	t.Run("Present Then Confirm", func(t *testing.T) {
		w := New(nil)
		if w.Present(req) {
			t.Error("first request should not replace anything")
		}
		if w.State() != Pending {
			t.Fatalf("expected pending, got %s", w.State())
		}
		if got, ok := w.Pending(); !ok || got != req {
			t.Errorf("expected pending request %+v, got %+v", req, got)
		}

		got, err := w.Confirm()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != req {
			t.Errorf("expected resolved request %+v, got %+v", req, got)
		}
		if w.State() != Idle {
			t.Errorf("expected idle after confirm, got %s", w.State())
		}
	})

	t.Run("Present Then Cancel", func(t *testing.T) {
		w := New(nil)
		w.Present(req)

		if _, err := w.Cancel(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w.State() != Idle {
			t.Errorf("expected idle after cancel, got %s", w.State())
		}
	})

	t.Run("Exactly One Resolution", func(t *testing.T) {
		w := New(nil)
		w.Present(req)
		w.Cancel()

		if _, err := w.Confirm(); !errors.Is(err, ErrNotPending) {
			t.Errorf("expected ErrNotPending, got %v", err)
		}
	})

	t.Run("No Resolution While Idle", func(t *testing.T) {
		w := New(nil)
		for name, resolve := range map[string]func() (models.ConfirmationRequest, error){
			"confirm": w.Confirm,
			"cancel":  w.Cancel,
		} {
			_, err := resolve()
			if !errors.Is(err, ErrNotPending) || !errors.Is(err, shared.ErrOperationRejected) {
				t.Errorf("%s: expected rejected, got %v", name, err)
			}
		}
	})

	t.Run("Second Present Overwrites", func(t *testing.T) {
		w := New(nil)
		w.Present(req)

		next := models.ConfirmationRequest{Title: "buy milk", SSID: "def456", Message: "Create task 'buy milk'?"}
		if !w.Present(next) {
			t.Error("expected second request to report a replacement")
		}

		got, err := w.Confirm()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != next {
			t.Errorf("expected newest request %+v, got %+v", next, got)
		}
		if w.State() != Idle {
			t.Error("a single resolution should clear the overwritten request too")
		}
	})
}

func TestStrings(t *testing.T) {
	if Pending.String() != "pending" || State(9).String() != "unknown" {
		t.Error("unexpected state names")
	}
	if Confirmed.String() != "confirmed" || Cancelled.String() != "cancelled" || Decision(0).String() != "unknown" {
		t.Error("unexpected decision names")
	}
}
